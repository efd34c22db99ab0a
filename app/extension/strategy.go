package extension

import (
	"fmt"
	"reflect"
)

// Build creates a raw instance of t without any container.
//
// The constructor with the fewest parameters is selected, the first registered one
// on ties, and every parameter receives its zero value. Dependencies are not
// resolved here; that is the container's job.
func Build(t *Type) (any, error) {
	if t == nil {
		return nil, NewError("", "build", ErrInvalidType, fmt.Errorf("nil type"))
	}
	ctor, ok := fewestParams(t)
	if !ok {
		return nil, NewError(t.Key(), "build", ErrNoPublicConstructor, nil)
	}

	ft := reflect.TypeOf(ctor)
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		args[i] = reflect.Zero(ft.In(i))
	}
	return Invoke(t, ctor, args)
}

// Invoke calls one of t's constructors with the given arguments and normalizes the
// result. Panics, returned errors and nil results become ErrConstructionFailed.
func Invoke(t *Type, ctor any, args []reflect.Value) (instance any, err error) {
	fn := reflect.ValueOf(ctor)
	ft := fn.Type()

	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = NewError(t.Key(), "build", ErrConstructionFailed, fmt.Errorf("constructor panicked: %v", r))
		}
	}()

	var out []reflect.Value
	if ft.IsVariadic() && len(args) == ft.NumIn() {
		out = fn.CallSlice(args)
	} else {
		out = fn.Call(args)
	}

	if len(out) == 2 && !out[1].IsNil() {
		return nil, NewError(t.Key(), "build", ErrConstructionFailed, out[1].Interface().(error))
	}
	if isNil(out[0]) {
		return nil, NewError(t.Key(), "build", ErrConstructionFailed, fmt.Errorf("constructor returned nil"))
	}
	return out[0].Interface(), nil
}

func fewestParams(t *Type) (any, bool) {
	var (
		best  any
		least = -1
	)
	for _, ctor := range t.Constructors {
		n := reflect.TypeOf(ctor).NumIn()
		if least < 0 || n < least {
			best, least = ctor, n
		}
	}
	return best, least >= 0
}

func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	}
	return false
}
