package extension

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	lynxlog "github.com/go-lynx/lynx-di/app/log"
	"github.com/go-lynx/lynx-di/app/observability/metrics"
)

// Creation paths reported to metrics.
const (
	PathStrategy  = "strategy"
	PathExisting  = "existing"
	PathContainer = "container"
	PathWired     = "wired"
)

// DefaultFactory creates extensions through the container that owns them.
//
// With autowiring enabled the owning container is resolved first. A managed bean of
// the exact type is returned as is; otherwise the container constructs the instance
// when it can, or the instance is built without a container and wired afterwards.
// Without an owning container, or with autowiring disabled, the Construction
// Strategy alone is used.
//
// A new instance is returned on every call unless an existing bean is found; wrap
// the factory in a SingletonFactory to cache.
type DefaultFactory struct {
	resolver Resolver
	autowire bool
	log      *log.Helper
	metrics  *metrics.ExtensionMetrics

	warnOnce sync.Once
}

// Option configures a DefaultFactory.
type Option func(*DefaultFactory)

// WithAutowire enables or disables container wiring. Enabled by default.
func WithAutowire(enabled bool) Option {
	return func(f *DefaultFactory) { f.autowire = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(f *DefaultFactory) {
		if logger != nil {
			f.log = log.NewHelper(logger)
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.ExtensionMetrics) Option {
	return func(f *DefaultFactory) { f.metrics = m }
}

// NewFactory creates a factory. A nil resolver behaves as one that never finds a container.
func NewFactory(resolver Resolver, opts ...Option) *DefaultFactory {
	f := &DefaultFactory{
		resolver: resolver,
		autowire: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = log.NewHelper(lynxlog.Logger())
	}
	return f
}

// Autowire reports whether container wiring is enabled.
func (f *DefaultFactory) Autowire() bool {
	return f.autowire
}

// Create returns a fully wired instance of t.
func (f *DefaultFactory) Create(t *Type) (any, error) {
	if t == nil {
		return nil, NewError("", "create", ErrInvalidType, fmt.Errorf("nil type"))
	}

	if !f.autowire {
		f.warnOnce.Do(func() {
			f.log.Warn("autowiring is disabled: extensions are built without their container")
		})
		return f.record(t, PathStrategy, Build)
	}

	var (
		c  Container
		ok bool
	)
	if f.resolver != nil {
		c, ok = f.resolver.Resolve(t)
	}
	if !ok {
		f.log.Debugf("no container owns extension %s, building it directly", t.Key())
		return f.record(t, PathStrategy, Build)
	}

	if instance, found := f.existing(c, t); found {
		f.metrics.IncCreated(t.Namespace, PathExisting)
		return instance, nil
	}

	if ctor, ok := c.(Constructor); ok {
		return f.record(t, PathContainer, ctor.ConstructAndWire)
	}

	return f.record(t, PathWired, func(t *Type) (any, error) {
		instance, err := Build(t)
		if err != nil {
			return nil, err
		}
		if err := c.WireExisting(instance); err != nil {
			return nil, NewError(t.Key(), "wire", ErrConstructionFailed, err)
		}
		return instance, nil
	})
}

// existing returns a bean of the exact type already managed by c. More than one
// match is logged and the first by name is used. An interface-typed extension
// never reuses a bean: every implementation would match it.
func (f *DefaultFactory) existing(c Container, t *Type) (any, bool) {
	gt := t.GoType()
	if gt == nil || gt.Kind() == reflect.Interface {
		return nil, false
	}
	beans := c.LookupAllOfType(gt)
	if len(beans) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(beans))
	for name := range beans {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 1 {
		f.log.Warnw(
			"msg", "more than one bean matches extension, using the first",
			"type", t.Key(),
			"beans", names,
			"error", NewError(t.Key(), "lookup", ErrAmbiguousMatch, nil),
		)
	}
	return beans[names[0]], true
}

func (f *DefaultFactory) record(t *Type, path string, create func(*Type) (any, error)) (any, error) {
	instance, err := create(t)
	if err != nil {
		f.metrics.IncFailure(t.Namespace, KindOf(err))
		return nil, err
	}
	f.metrics.IncCreated(t.Namespace, path)
	return instance, nil
}
