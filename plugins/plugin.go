// Package plugins defines the contract between the Lynx plugin manager and a plugin.
//
// A plugin is identified by Metadata and driven through Lifecycle. Everything else is
// optional and detected with type assertions:
//
//   - DependencyAware orders plugins so that dependencies start first.
//   - ExtensionProvider registers the plugin's extension types in its namespace.
//   - ContainerProvider makes the plugin container-managed: it gets its own
//     container and fills it with beans before its extensions are created.
//   - ParentContainerAware lets a container-managed plugin see the host beans.
package plugins

import (
	"context"

	"github.com/go-lynx/lynx-di/app/container"
	"github.com/go-lynx/lynx-di/app/extension"
)

// PluginStatus represents the current operational status of a plugin in the system.
type PluginStatus int

const (
	// StatusInactive indicates that the plugin is loaded but not yet started.
	StatusInactive PluginStatus = iota

	// StatusStarting indicates that the plugin is building its container and calling Start.
	StatusStarting

	// StatusActive indicates that the plugin is started and its extensions are loadable.
	StatusActive

	// StatusStopping indicates that the plugin is shutting down.
	StatusStopping

	// StatusStopped indicates that the plugin has been stopped and its container closed.
	// A stopped plugin can be started again.
	StatusStopped

	// StatusFailed indicates that the plugin failed to start or stop.
	StatusFailed

	// StatusDisabled indicates that the status provider disabled the plugin.
	StatusDisabled
)

var statusNames = map[PluginStatus]string{
	StatusInactive: "inactive",
	StatusStarting: "starting",
	StatusActive:   "active",
	StatusStopping: "stopping",
	StatusStopped:  "stopped",
	StatusFailed:   "failed",
	StatusDisabled: "disabled",
}

func (s PluginStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Plugin is the minimal interface every plugin implements.
type Plugin interface {
	Metadata
	Lifecycle
}

// Metadata describes a plugin.
type Metadata interface {
	// ID returns the unique plugin identifier. It is also the namespace of the
	// plugin's extension types.
	ID() string

	// Name returns the human readable name.
	Name() string

	// Description returns a short summary.
	Description() string

	// Version returns the plugin version.
	Version() string

	// Weight orders plugins with no dependency between them, higher starts first.
	Weight() int
}

// Lifecycle is called by the plugin manager.
type Lifecycle interface {
	// Start is called after the plugin container, if any, has been configured.
	Start(ctx context.Context) error

	// Stop is called before the plugin container is closed.
	Stop(ctx context.Context) error
}

// DependencyAware is implemented by plugins that depend on other plugins.
type DependencyAware interface {
	GetDependencies() []Dependency
}

// ExtensionRegistrar is where a plugin registers its extension types. Types are
// registered in the plugin's namespace.
type ExtensionRegistrar interface {
	Register(name string, constructors ...any) (*extension.Type, error)
	RegisterWithOrdinal(name string, ordinal int, constructors ...any) (*extension.Type, error)
}

// ExtensionProvider is implemented by plugins exporting extensions.
type ExtensionProvider interface {
	// Extensions is called on every start with a fresh registrar.
	Extensions(reg ExtensionRegistrar) error
}

// ContainerProvider is implemented by container-managed plugins.
type ContainerProvider interface {
	// ConfigureContainer registers the plugin's own beans. It is called on every
	// start with a new, empty container.
	ConfigureContainer(c *container.Container) error
}

// ParentContainerAware is implemented by container-managed plugins that want the
// host container as the parent of their own.
type ParentContainerAware interface {
	UseParentContainer() bool
}
