package container

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-lynx/lynx-di/app/extension"
)

// TagName is the struct tag driving field injection.
const TagName = "inject"

// WireExisting injects the tagged fields of instance, then calls AfterPropertiesSet
// when the instance implements Initializer. Values that are not pointers to structs
// have nothing to wire and are left untouched.
func (c *Container) WireExisting(instance any) error {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil
	}
	if err := c.wireFields(v.Elem()); err != nil {
		return err
	}
	if initializer, ok := instance.(Initializer); ok {
		if err := initializer.AfterPropertiesSet(); err != nil {
			return fmt.Errorf("%s: initialize %s: %w", c.name, v.Type(), err)
		}
	}
	return nil
}

func (c *Container) wireFields(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		name, optional := parseTag(tag)
		if !field.IsExported() {
			return fmt.Errorf("%s: field %s.%s is tagged %q but unexported", c.name, t, field.Name, TagName)
		}

		fv := v.Field(i)
		if !fv.IsZero() {
			// already set by the constructor or by hand
			continue
		}

		var (
			dep reflect.Value
			err error
		)
		if name != "" {
			dep, err = c.resolveName(name, field.Type)
		} else {
			dep, err = c.resolveType(field.Type)
		}
		if err != nil {
			if optional {
				continue
			}
			return fmt.Errorf("%s: wire %s.%s: %w", c.name, t, field.Name, err)
		}
		fv.Set(dep)
	}
	return nil
}

func parseTag(tag string) (name string, optional bool) {
	parts := strings.Split(tag, ",")
	name = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		if strings.TrimSpace(p) == "optional" {
			optional = true
		}
	}
	return name, optional
}

// ConstructAndWire builds a new instance of t with constructor injection, then
// wires its fields.
//
// Constructors are tried from the most parameters to the fewest; the first one
// whose parameters can all be resolved from this container (or its parents) is
// used. A trailing variadic parameter is left empty.
func (c *Container) ConstructAndWire(t *extension.Type) (any, error) {
	if len(t.Constructors) == 0 {
		return nil, extension.NewError(t.Key(), "construct", extension.ErrNoPublicConstructor, nil)
	}

	ctors := make([]any, len(t.Constructors))
	copy(ctors, t.Constructors)
	sort.SliceStable(ctors, func(i, j int) bool {
		return reflect.TypeOf(ctors[i]).NumIn() > reflect.TypeOf(ctors[j]).NumIn()
	})

	var lastErr error
	for _, ctor := range ctors {
		args, err := c.resolveArgs(reflect.TypeOf(ctor))
		if err != nil {
			lastErr = err
			continue
		}
		instance, err := extension.Invoke(t, ctor, args)
		if err != nil {
			return nil, err
		}
		if err := c.WireExisting(instance); err != nil {
			return nil, extension.NewError(t.Key(), "wire", extension.ErrConstructionFailed, err)
		}
		return instance, nil
	}
	return nil, extension.NewError(t.Key(), "construct", extension.ErrConstructionFailed, lastErr)
}

func (c *Container) resolveArgs(ft reflect.Type) ([]reflect.Value, error) {
	n := ft.NumIn()
	if ft.IsVariadic() {
		n--
	}
	args := make([]reflect.Value, 0, n)
	for i := 0; i < n; i++ {
		arg, err := c.resolveType(ft.In(i))
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}
