package extension

import (
	"errors"
	"fmt"
)

// Error kinds returned by the extension core. Use errors.Is to match them.
var (
	// ErrNoPublicConstructor indicates the type has no registered constructor.
	ErrNoPublicConstructor = errors.New("no public constructor")

	// ErrConstructionFailed wraps any failure raised while calling a constructor
	// or while wiring the instance it produced.
	ErrConstructionFailed = errors.New("construction failed")

	// ErrLoad indicates a type name could not be loaded in a namespace.
	ErrLoad = errors.New("extension type not loadable")

	// ErrNameCollision indicates a singleton with the same name is already registered.
	ErrNameCollision = errors.New("name collision")

	// ErrAmbiguousMatch is a warning-level condition: more than one managed
	// instance of the exact type exists in the owning container.
	ErrAmbiguousMatch = errors.New("ambiguous container match")

	// ErrInvalidType indicates a malformed type definition.
	ErrInvalidType = errors.New("invalid extension type")
)

// Error describes a failure bound to a single extension type.
type Error struct {
	// Type is the registration key of the extension, if known.
	Type string

	// Op is the step that failed: build, construct, wire, load, register.
	Op string

	// Kind is one of the sentinel errors above.
	Kind error

	// Err is the underlying cause, may be nil.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extension %s: %s: %v: %v", e.Type, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("extension %s: %s: %v", e.Type, e.Op, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewError creates an Error for the given type key.
func NewError(typeKey, op string, kind, err error) *Error {
	return &Error{Type: typeKey, Op: op, Kind: kind, Err: err}
}

// KindOf returns a short label for the error kind, suitable for metrics.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoPublicConstructor):
		return "no_public_constructor"
	case errors.Is(err, ErrConstructionFailed):
		return "construction_failed"
	case errors.Is(err, ErrLoad):
		return "load"
	case errors.Is(err, ErrNameCollision):
		return "name_collision"
	case errors.Is(err, ErrInvalidType):
		return "invalid_type"
	default:
		return "other"
	}
}
