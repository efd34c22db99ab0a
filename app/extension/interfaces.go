package extension

import "reflect"

// Container is the part of a DI container the extension core relies on.
type Container interface {
	// WireExisting applies field injection to an already-built instance.
	WireExisting(instance any) error

	// LookupAllOfType returns every managed instance of the given type, keyed by bean name.
	LookupAllOfType(t reflect.Type) map[string]any

	// RegisterSingleton registers instance under name. It fails with
	// ErrNameCollision when the name is taken.
	RegisterSingleton(name string, instance any) error
}

// Constructor is implemented by containers that can build and wire a new
// instance themselves, resolving constructor parameters from their beans.
type Constructor interface {
	ConstructAndWire(t *Type) (any, error)
}

// TypeLoader loads extension types by name inside one namespace.
type TypeLoader interface {
	Load(name string) (*Type, error)
}

// PluginHandle is an activated plugin as seen by the extension core.
type PluginHandle interface {
	// ID returns the plugin id, which is also the namespace of its types.
	ID() string

	// Loader returns the plugin's isolated type-loading boundary.
	Loader() TypeLoader

	// Container returns the container owned by the plugin, if it has one.
	Container() (Container, bool)
}

// PluginRegistry answers which activated plugin owns a type.
type PluginRegistry interface {
	WhichPlugin(t *Type) (PluginHandle, bool)
}

// Factory creates extension instances.
type Factory interface {
	Create(t *Type) (any, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(t *Type) (any, error)

// Create calls f(t).
func (f FactoryFunc) Create(t *Type) (any, error) {
	return f(t)
}
