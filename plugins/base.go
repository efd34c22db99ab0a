package plugins

import (
	"context"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	lynxlog "github.com/go-lynx/lynx-di/app/log"
)

// BasePlugin provides the metadata and no-op lifecycle shared by most plugins.
// Embed it and override what the plugin needs.
type BasePlugin struct {
	// Basic plugin metadata
	id          string // Unique identifier, also the extension namespace
	name        string // Human-readable name
	description string // Detailed description of functionality
	version     string // Semantic version number

	// Plugin weight for prioritization, higher values start first
	weight int

	mu           sync.RWMutex
	dependencies []Dependency
	logger       log.Logger
}

// BaseOption configures a BasePlugin.
type BaseOption func(*BasePlugin)

// WithDependencies declares the plugin dependencies.
func WithDependencies(deps ...Dependency) BaseOption {
	return func(p *BasePlugin) { p.dependencies = append(p.dependencies, deps...) }
}

// WithPluginLogger sets the plugin logger.
func WithPluginLogger(logger log.Logger) BaseOption {
	return func(p *BasePlugin) { p.logger = logger }
}

// NewBasePlugin creates a base plugin.
func NewBasePlugin(id, name, description, version string, weight int, opts ...BaseOption) *BasePlugin {
	p := &BasePlugin{
		id:          id,
		name:        name,
		description: description,
		version:     version,
		weight:      weight,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *BasePlugin) ID() string          { return p.id }
func (p *BasePlugin) Name() string        { return p.name }
func (p *BasePlugin) Description() string { return p.description }
func (p *BasePlugin) Version() string     { return p.version }
func (p *BasePlugin) Weight() int         { return p.weight }

// Start logs the start. Override for custom startup logic.
func (p *BasePlugin) Start(ctx context.Context) error {
	p.Logger().Infof("plugin %s started", p.id)
	return nil
}

// Stop logs the stop. Override for custom cleanup logic.
func (p *BasePlugin) Stop(ctx context.Context) error {
	p.Logger().Infof("plugin %s stopped", p.id)
	return nil
}

// GetDependencies returns a copy of the declared dependencies.
func (p *BasePlugin) GetDependencies() []Dependency {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.dependencies) == 0 {
		return nil
	}
	deps := make([]Dependency, len(p.dependencies))
	copy(deps, p.dependencies)
	return deps
}

// AddDependency adds a dependency, replacing any previous one with the same ID.
func (p *BasePlugin) AddDependency(dep Dependency) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, d := range p.dependencies {
		if d.ID == dep.ID {
			p.dependencies[i] = dep
			return
		}
	}
	p.dependencies = append(p.dependencies, dep)
}

// Logger returns a helper bound to the plugin id.
func (p *BasePlugin) Logger() *log.Helper {
	logger := p.logger
	if logger == nil {
		logger = lynxlog.Logger()
	}
	return log.NewHelper(log.With(logger, "plugin", p.id))
}
