package boot

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-lynx/lynx-di/app/log"
)

// Files read from the plugin configuration directory, one plugin id per line.
const (
	EnabledFile  = "enabled.txt"
	DisabledFile = "disabled.txt"
)

// StatusProvider decides which plugins are disabled from the enabled.txt and
// disabled.txt files of a directory. A non-empty enabled list disables every
// plugin it does not name; the disabled list always wins.
type StatusProvider struct {
	mu       sync.RWMutex
	dir      string
	enabled  map[string]struct{}
	disabled map[string]struct{}
}

// NewStatusProvider reads the status files of dir. Missing files are treated as empty.
func NewStatusProvider(dir string) (*StatusProvider, error) {
	p := &StatusProvider{dir: dir}
	var err error
	if p.enabled, err = readIDs(filepath.Join(dir, EnabledFile)); err != nil {
		return nil, err
	}
	if p.disabled, err = readIDs(filepath.Join(dir, DisabledFile)); err != nil {
		return nil, err
	}
	if len(p.enabled) > 0 {
		log.Infof("enabled plugins: %v", keys(p.enabled))
	}
	if len(p.disabled) > 0 {
		log.Infof("disabled plugins: %v", keys(p.disabled))
	}
	return p, nil
}

// Dir returns the directory the status files live in.
func (p *StatusProvider) Dir() string {
	return p.dir
}

// IsPluginDisabled reports whether pluginID may not start.
func (p *StatusProvider) IsPluginDisabled(pluginID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.disabled[pluginID]; ok {
		return true
	}
	if len(p.enabled) == 0 {
		return false
	}
	_, ok := p.enabled[pluginID]
	return !ok
}

// DisablePlugin disables a plugin and persists the change.
func (p *StatusProvider) DisablePlugin(pluginID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.enabled[pluginID]; ok {
		delete(p.enabled, pluginID)
		if err := writeIDs(filepath.Join(p.dir, EnabledFile), p.enabled); err != nil {
			return err
		}
		if len(p.enabled) > 0 {
			return nil
		}
	}
	p.disabled[pluginID] = struct{}{}
	return writeIDs(filepath.Join(p.dir, DisabledFile), p.disabled)
}

// EnablePlugin removes a plugin from the disabled list and persists the change.
func (p *StatusProvider) EnablePlugin(pluginID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.disabled[pluginID]; !ok {
		return nil
	}
	delete(p.disabled, pluginID)
	return writeIDs(filepath.Join(p.dir, DisabledFile), p.disabled)
}

func readIDs(path string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ids, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plugin status file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read plugin status file %s: %w", path, err)
	}
	return ids, nil
}

func writeIDs(path string, ids map[string]struct{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write plugin status file: %w", err)
	}
	var b strings.Builder
	for _, id := range keys(ids) {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write plugin status file: %w", err)
	}
	return nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
