// Package container provides the named singleton container used as the DI registry
// of a Lynx host and of container-aware plugins. Beans live in a samber/do scope;
// a container with a parent owns a child scope of the parent's.
//
// Beans are registered by name. Wiring is driven by `inject` struct tags:
//
//	type Greeter struct {
//		Messages MessageProvider `inject:""`          // by type
//		Store    *Store          `inject:"store"`     // by name
//		Metrics  *Metrics        `inject:",optional"` // skipped when missing
//	}
//
// Constructor injection resolves every parameter by type. A container may have a
// parent; lookups and dependency resolution fall back to it, registration never does.
package container

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/samber/do/v2"

	"github.com/go-lynx/lynx-di/app/extension"
)

var (
	// ErrBeanNotFound indicates no bean is registered under a name.
	ErrBeanNotFound = errors.New("bean not found")

	// ErrUnsatisfiedDependency indicates a dependency cannot be resolved.
	ErrUnsatisfiedDependency = errors.New("unsatisfied dependency")

	// ErrAmbiguousDependency indicates more than one bean can satisfy a dependency.
	ErrAmbiguousDependency = errors.New("ambiguous dependency")

	// ErrClosed indicates the container has been closed.
	ErrClosed = errors.New("container closed")
)

// Initializer is implemented by beans that need a hook once their fields are wired.
type Initializer interface {
	AfterPropertiesSet() error
}

// Container is a named singleton registry with field and constructor injection.
type Container struct {
	mu sync.RWMutex

	name   string
	parent *Container
	scope  do.Injector

	// name → dynamic type of the bean held by scope
	beans map[string]reflect.Type
	// registration order, used for deterministic resolution and reverse close
	order []string
	// alias → name
	aliases map[string]string

	closed bool
}

// do rejects a child scope named like a live sibling, a restarted plugin reuses its name.
var scopeSeq atomic.Uint64

// Option configures a Container.
type Option func(*Container)

// WithName sets the container name used in errors and logs.
func WithName(name string) Option {
	return func(c *Container) { c.name = name }
}

// WithParent sets the parent container.
func WithParent(parent *Container) Option {
	return func(c *Container) { c.parent = parent }
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		name:    "container",
		beans:   make(map[string]reflect.Type),
		aliases: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.parent != nil {
		c.scope = c.parent.scope.Scope(fmt.Sprintf("%s#%d", c.name, scopeSeq.Add(1)))
	} else {
		c.scope = do.New()
	}
	return c
}

// Name returns the container name.
func (c *Container) Name() string {
	return c.name
}

// Parent returns the parent container, nil for a root container.
func (c *Container) Parent() *Container {
	return c.parent
}

// Injector returns the do scope holding the beans.
func (c *Container) Injector() do.Injector {
	return c.scope
}

// RegisterSingleton registers a pre-built instance under name.
// An existing bean or alias with the same name is never replaced.
func (c *Container) RegisterSingleton(name string, instance any) (err error) {
	if name == "" {
		return fmt.Errorf("%s: empty bean name", c.name)
	}
	if instance == nil {
		return fmt.Errorf("%s: nil instance for bean %q", c.name, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%s: register %q: %w", c.name, name, ErrClosed)
	}
	if _, exists := c.beans[name]; exists {
		return fmt.Errorf("%s: bean %q already registered: %w", c.name, name, extension.ErrNameCollision)
	}
	if _, exists := c.aliases[name]; exists {
		return fmt.Errorf("%s: %q already registered as alias: %w", c.name, name, extension.ErrNameCollision)
	}

	// do panics on a duplicate declaration
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: bean %q: %v: %w", c.name, name, r, extension.ErrNameCollision)
		}
	}()
	do.ProvideNamedValue[any](c.scope, name, instance)
	c.beans[name] = reflect.TypeOf(instance)
	c.order = append(c.order, name)
	return nil
}

// Alias registers an alternative name for a bean.
func (c *Container) Alias(name, alias string) error {
	if name == alias {
		return fmt.Errorf("%s: %q is aliased to itself", c.name, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.beans[name]; !ok {
		return fmt.Errorf("%s: alias %q: %w: %s", c.name, alias, ErrBeanNotFound, name)
	}
	if _, exists := c.beans[alias]; exists {
		return fmt.Errorf("%s: alias %q collides with a bean: %w", c.name, alias, extension.ErrNameCollision)
	}
	if target, exists := c.aliases[alias]; exists {
		return fmt.Errorf("%s: alias %q already points to %q: %w", c.name, alias, target, extension.ErrNameCollision)
	}
	c.aliases[alias] = name
	return nil
}

// Lookup returns the bean registered under name or alias, searching parents.
func (c *Container) Lookup(name string) (any, bool) {
	c.mu.RLock()
	local := name
	if target, ok := c.aliases[name]; ok {
		local = target
	}
	inst, ok := c.invokeLocked(local)
	c.mu.RUnlock()
	if ok {
		return inst, true
	}
	if c.parent != nil {
		return c.parent.Lookup(name)
	}
	return nil, false
}

// invokeLocked reads a local bean from the scope. c.mu must be held.
func (c *Container) invokeLocked(name string) (any, bool) {
	if _, ok := c.beans[name]; !ok {
		return nil, false
	}
	inst, err := do.InvokeNamed[any](c.scope, name)
	if err != nil {
		return nil, false
	}
	return inst, true
}

// Contains reports whether name or alias is registered in this container.
func (c *Container) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, isBean := c.beans[name]
	_, isAlias := c.aliases[name]
	return isBean || isAlias
}

// Names returns the bean names in registration order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// LookupAllOfType returns the local beans of type t. A concrete t matches the
// dynamic type exactly, an interface t matches every implementation.
func (c *Container) LookupAllOfType(t reflect.Type) map[string]any {
	out := make(map[string]any)
	if t == nil {
		return out
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, bt := range c.beans {
		if !matchesExactly(bt, t) {
			continue
		}
		if inst, ok := c.invokeLocked(name); ok {
			out[name] = inst
		}
	}
	return out
}

// Close calls Close on every bean implementing io.Closer, in reverse registration
// order, then shuts the scope down. Closing twice is a no-op.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	order := c.order
	instances := make([]any, len(order))
	for i, name := range order {
		instances[i], _ = c.invokeLocked(name)
	}
	c.closed = true
	c.beans = make(map[string]reflect.Type)
	c.aliases = make(map[string]string)
	c.order = nil
	c.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if closer, ok := instances[i].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close bean %q: %w", order[i], err))
			}
		}
	}
	// beans implementing do's Shutdowner interfaces are released by the scope
	c.scope.Shutdown()
	return errors.Join(errs...)
}

// Resolve looks up a bean by name and asserts its type.
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	inst, ok := c.Lookup(name)
	if !ok {
		return zero, fmt.Errorf("%s: %w: %s", c.name, ErrBeanNotFound, name)
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("%s: bean %q is %T, not %s", c.name, name, inst, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}

// resolveType finds the single bean assignable to t, searching parents when none
// is found locally.
func (c *Container) resolveType(t reflect.Type) (reflect.Value, error) {
	c.mu.RLock()
	var matches []string
	for _, name := range c.order {
		if c.beans[name].AssignableTo(t) {
			matches = append(matches, name)
		}
	}
	var (
		found any
		ok    bool
	)
	if len(matches) == 1 {
		found, ok = c.invokeLocked(matches[0])
	}
	c.mu.RUnlock()

	switch {
	case len(matches) == 1 && ok:
		return reflect.ValueOf(found), nil
	case len(matches) > 1:
		sort.Strings(matches)
		return reflect.Value{}, fmt.Errorf("%s: %w: %s matches %v", c.name, ErrAmbiguousDependency, t, matches)
	case c.parent != nil:
		return c.parent.resolveType(t)
	default:
		return reflect.Value{}, fmt.Errorf("%s: %w: no bean of type %s", c.name, ErrUnsatisfiedDependency, t)
	}
}

func (c *Container) resolveName(name string, t reflect.Type) (reflect.Value, error) {
	inst, ok := c.Lookup(name)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%s: %w: no bean named %q", c.name, ErrUnsatisfiedDependency, name)
	}
	v := reflect.ValueOf(inst)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%s: %w: bean %q is %s, not assignable to %s",
			c.name, ErrUnsatisfiedDependency, name, v.Type(), t)
	}
	return v, nil
}

func matchesExactly(actual, want reflect.Type) bool {
	if want.Kind() == reflect.Interface {
		return actual.Implements(want)
	}
	return actual == want
}
