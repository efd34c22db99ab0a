package plugins

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-lynx/lynx-di/app/extension"
)

// ID format constants
const (
	// DefaultOrg is the default organization identifier
	DefaultOrg = "go-lynx"
	// ComponentType represents the plugin component type
	ComponentType = "plugin"
)

// standardID matches org.plugin.name.vX or org.plugin.name.vX.Y.Z
var standardID = regexp.MustCompile(`^[\w-]+\.plugin\.[a-z0-9-]+\.v\d+(?:\.\d+\.\d+)?$`)

// GeneratePluginID generates a standard format plugin ID
func GeneratePluginID(org, name, version string) string {
	if org == "" {
		org = DefaultOrg
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return fmt.Sprintf("%s.%s.%s.%s", org, ComponentType, name, version)
}

// CheckPluginID verifies that id can serve as an extension namespace: it must be
// non-empty, free of whitespace and must not contain the key separator.
// Any such id is accepted; the standard format is only recommended.
func CheckPluginID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidPluginID)
	case strings.ContainsAny(id, " \t\r\n"):
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidPluginID, id)
	case strings.Contains(id, extension.KeySeparator):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidPluginID, id, extension.KeySeparator)
	}
	return nil
}

// ValidatePluginID validates the recommended plugin ID format (org.plugin.name.vX[.Y.Z]).
func ValidatePluginID(id string) error {
	if !standardID.MatchString(id) {
		return ErrInvalidPluginID
	}
	return nil
}
