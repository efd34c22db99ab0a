// Package extension implements the container-aware extension factory: it decides which
// container owns an extension type, builds the instance and lets the container wire it.
//
// An extension type is not discovered through reflection. Plugins register their
// constructors by name at load time, and the factory only ever calls what was
// registered.
package extension

import (
	"fmt"
	"reflect"
	"strings"
)

// KeySeparator separates the namespace from the type name in registration keys.
const KeySeparator = "/"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Type identifies a concrete, instantiable extension.
type Type struct {
	// Name is the qualified name of the type inside its namespace.
	Name string

	// Namespace is empty for host extensions, otherwise the owning plugin id.
	Namespace string

	// Ordinal is an ordering hint for listings, lower comes first.
	Ordinal int

	// Constructors are the registered constructor functions, in registration order.
	Constructors []any

	goType reflect.Type
}

// NewType validates the constructors and returns a new extension type.
//
// Every constructor must be a function returning either T or (T, error), with the
// same T for all of them. A type without constructors is valid but cannot be built.
func NewType(namespace, name string, constructors ...any) (*Type, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewError(name, "define", ErrInvalidType, fmt.Errorf("empty type name"))
	}
	if strings.Contains(namespace, KeySeparator) {
		return nil, NewError(name, "define", ErrInvalidType,
			fmt.Errorf("namespace %q must not contain %q", namespace, KeySeparator))
	}

	t := &Type{Name: name, Namespace: namespace}
	for i, ctor := range constructors {
		out, err := constructorResult(ctor)
		if err != nil {
			return nil, NewError(t.Key(), "define", ErrInvalidType, fmt.Errorf("constructor %d: %w", i, err))
		}
		if t.goType == nil {
			t.goType = out
		} else if t.goType != out {
			return nil, NewError(t.Key(), "define", ErrInvalidType,
				fmt.Errorf("constructor %d returns %s, expected %s", i, out, t.goType))
		}
		t.Constructors = append(t.Constructors, ctor)
	}
	return t, nil
}

// MustType is like NewType but panics on error.
func MustType(namespace, name string, constructors ...any) *Type {
	t, err := NewType(namespace, name, constructors...)
	if err != nil {
		panic(err)
	}
	return t
}

// Key returns the registration key: Name for host types, Namespace/Name otherwise.
func (t *Type) Key() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + KeySeparator + t.Name
}

// GoType returns the concrete Go type produced by the constructors, nil when none are registered.
func (t *Type) GoType() reflect.Type {
	return t.goType
}

// IsHost reports whether the type belongs to the host application.
func (t *Type) IsHost() bool {
	return t.Namespace == ""
}

func (t *Type) String() string {
	return t.Key()
}

func constructorResult(ctor any) (reflect.Type, error) {
	if ctor == nil {
		return nil, fmt.Errorf("nil constructor")
	}
	ft := reflect.TypeOf(ctor)
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", ft)
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if !ft.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("second result of %s must be error", ft)
		}
	default:
		return nil, fmt.Errorf("%s must return T or (T, error)", ft)
	}
	if ft.Out(0) == errorType {
		return nil, fmt.Errorf("%s returns only an error", ft)
	}
	return ft.Out(0), nil
}
