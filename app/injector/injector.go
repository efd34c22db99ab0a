// Package injector publishes every declared extension as a named singleton of the
// host container, so host code can look extensions up like any other bean.
package injector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-lynx/lynx-di/app/extension"
	lynxlog "github.com/go-lynx/lynx-di/app/log"
	"github.com/go-lynx/lynx-di/app/observability/metrics"
)

const tracerName = "github.com/go-lynx/lynx-di/app/injector"

// Source lists the extensions to publish.
type Source interface {
	// HostLoader loads host extension types.
	HostLoader() extension.TypeLoader

	// ExtensionNames returns the declared extension names of a plugin, or of the
	// host when pluginID is empty.
	ExtensionNames(pluginID string) []string

	// StartedPlugins returns the started plugins in start order.
	StartedPlugins() []extension.PluginHandle
}

// Target receives the published singletons.
type Target interface {
	RegisterSingleton(name string, instance any) error
	Alias(name, alias string) error
}

// Failure is one extension that could not be published.
type Failure struct {
	Namespace string
	Name      string
	Op        string
	Err       error
}

func (f Failure) Error() string {
	key := f.Name
	if f.Namespace != "" {
		key = f.Namespace + extension.KeySeparator + f.Name
	}
	return fmt.Sprintf("publish %s: %s: %v", key, f.Op, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report is the outcome of a publish run.
type Report struct {
	// Registered holds the registration keys, in publish order.
	Registered []string

	// Failures holds every extension that was skipped.
	Failures []Failure

	// SkippedAliases holds bare names that were not aliased because the name
	// was already taken.
	SkippedAliases []string
}

// Err joins all failures, nil when every extension was published.
func (r *Report) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Injector publishes extensions once.
type Injector struct {
	src     Source
	factory extension.Factory
	target  Target

	log     *log.Helper
	metrics *metrics.ExtensionMetrics
	tracer  trace.Tracer

	once   sync.Once
	report *Report
}

// Option configures an Injector.
type Option func(*Injector)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(i *Injector) {
		if logger != nil {
			i.log = log.NewHelper(logger)
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.ExtensionMetrics) Option {
	return func(i *Injector) { i.metrics = m }
}

// WithTracerProvider sets the tracer provider, the global one by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(i *Injector) {
		if tp != nil {
			i.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates an injector.
func New(src Source, factory extension.Factory, target Target, opts ...Option) *Injector {
	i := &Injector{src: src, factory: factory, target: target}
	for _, opt := range opts {
		opt(i)
	}
	if i.log == nil {
		i.log = log.NewHelper(lynxlog.Logger())
	}
	if i.tracer == nil {
		i.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return i
}

// Publish creates every host extension, then the extensions of every started
// plugin in start order, and registers each under its registration key. A failing
// extension is logged and skipped.
//
// Publish runs once; later calls return the first report.
func (i *Injector) Publish(ctx context.Context) *Report {
	i.once.Do(func() {
		i.report = i.publish(ctx)
	})
	return i.report
}

func (i *Injector) publish(ctx context.Context) *Report {
	begin := time.Now()
	ctx, span := i.tracer.Start(ctx, "extension.publish")
	defer span.End()

	report := &Report{}
	i.publishNamespace(ctx, report, "", i.src.HostLoader())
	for _, p := range i.src.StartedPlugins() {
		i.publishNamespace(ctx, report, p.ID(), p.Loader())
	}

	i.metrics.ObservePublish(time.Since(begin))
	span.SetAttributes(
		attribute.Int("extension.registered", len(report.Registered)),
		attribute.Int("extension.failed", len(report.Failures)),
	)
	if len(report.Failures) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d extensions failed", len(report.Failures)))
	}
	i.log.Infof("published %d extensions, %d failed", len(report.Registered), len(report.Failures))
	return report
}

func (i *Injector) publishNamespace(ctx context.Context, report *Report, namespace string, loader extension.TypeLoader) {
	names := i.src.ExtensionNames(namespace)
	if len(names) == 0 {
		return
	}
	if loader == nil {
		for _, name := range names {
			i.fail(ctx, report, Failure{Namespace: namespace, Name: name, Op: "load",
				Err: extension.NewError(name, "load", extension.ErrLoad, errors.New("no loader"))})
		}
		return
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			i.fail(ctx, report, Failure{Namespace: namespace, Name: name, Op: "publish", Err: err})
			continue
		}
		i.publishOne(ctx, report, namespace, loader, name)
	}
}

func (i *Injector) publishOne(ctx context.Context, report *Report, namespace string, loader extension.TypeLoader, name string) {
	ctx, span := i.tracer.Start(ctx, "extension.create", trace.WithAttributes(
		attribute.String("extension.namespace", namespace),
		attribute.String("extension.name", name),
	))
	defer span.End()

	t, err := loader.Load(name)
	if err != nil {
		i.metrics.IncFailure(namespace, extension.KindOf(err))
		i.fail(ctx, report, Failure{Namespace: namespace, Name: name, Op: "load", Err: err})
		return
	}

	// the factory records its own failures
	instance, err := i.factory.Create(t)
	if err != nil {
		i.fail(ctx, report, Failure{Namespace: namespace, Name: name, Op: "create", Err: err})
		return
	}

	key := t.Key()
	if err := i.target.RegisterSingleton(key, instance); err != nil {
		i.metrics.IncFailure(namespace, extension.KindOf(err))
		i.fail(ctx, report, Failure{Namespace: namespace, Name: name, Op: "register", Err: err})
		return
	}
	report.Registered = append(report.Registered, key)
	i.metrics.IncPublished(namespace)
	i.log.Debugf("registered extension %s (%T)", key, instance)

	if key != t.Name {
		if err := i.target.Alias(key, t.Name); err != nil {
			report.SkippedAliases = append(report.SkippedAliases, t.Name)
			i.log.Warnw("msg", "extension name already taken, registered under its key only",
				"key", key, "name", t.Name, "error", err)
		}
	}
}

func (i *Injector) fail(ctx context.Context, report *Report, f Failure) {
	report.Failures = append(report.Failures, f)
	span := trace.SpanFromContext(ctx)
	span.RecordError(f.Err)
	span.SetStatus(codes.Error, f.Op)
	i.log.Errorw("msg", "cannot publish extension", "namespace", f.Namespace, "name", f.Name,
		"op", f.Op, "error", f.Err)
}
