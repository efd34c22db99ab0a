package boot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/transport"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-lynx/lynx-di/app"
	"github.com/go-lynx/lynx-di/app/conf"
	"github.com/go-lynx/lynx-di/app/container"
	"github.com/go-lynx/lynx-di/app/factory"
	"github.com/go-lynx/lynx-di/app/injector"
	"github.com/go-lynx/lynx-di/app/log"
	"github.com/go-lynx/lynx-di/app/observability/metrics"
	"github.com/go-lynx/lynx-di/plugins"
)

// Application boots a Lynx host: logging, tracing, metrics, the host container and
// the plugin manager.
type Application struct {
	bootstrap *conf.Bootstrap
	plugins   []plugins.Plugin

	hostBeans      func(c *container.Container) error
	hostExtensions func(reg *factory.TypeRegistry) error
	statusProvider app.StatusProvider
	registerer     prometheus.Registerer
	skipLogInit    bool

	mu              sync.Mutex
	manager         *app.PluginManager
	host            *container.Container
	shutdownTracing func(context.Context) error
	started         bool
}

// Option configures an Application.
type Option func(*Application)

// WithPlugins sets the plugins to manage.
func WithPlugins(ps ...plugins.Plugin) Option {
	return func(a *Application) { a.plugins = append(a.plugins, ps...) }
}

// WithHostBeans registers beans in the host container before plugins start.
func WithHostBeans(fn func(c *container.Container) error) Option {
	return func(a *Application) { a.hostBeans = fn }
}

// WithHostExtensions registers the host extension types.
func WithHostExtensions(fn func(reg *factory.TypeRegistry) error) Option {
	return func(a *Application) { a.hostExtensions = fn }
}

// WithStatusProvider replaces the provider read from lynx.plugins.config_dir.
func WithStatusProvider(p app.StatusProvider) Option {
	return func(a *Application) { a.statusProvider = p }
}

// WithRegisterer registers the metrics on reg instead of the global registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *Application) { a.registerer = reg }
}

// WithoutLogInit keeps the current logger and skips the banner, used when the caller
// configured logging itself.
func WithoutLogInit() Option {
	return func(a *Application) { a.skipLogInit = true }
}

// NewApplication creates an application from a loaded bootstrap configuration.
func NewApplication(bc *conf.Bootstrap, opts ...Option) *Application {
	a := &Application{bootstrap: bc}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start initializes the ambient stack, starts the plugins and publishes extensions.
func (a *Application) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	if a.bootstrap == nil {
		return fmt.Errorf("application has no bootstrap configuration")
	}
	begin := time.Now()
	lc := a.bootstrap.Lynx

	if !a.skipLogInit {
		if err := log.Init(lc.Application.Name, lc.Application.Version, lc.Log); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	if !a.skipLogInit {
		if err := printBanner(os.Stdout, lc.Application, LocalBannerPath); err != nil {
			log.Warnf("%v", err)
		}
	}
	log.Infof("lynx application %s %s is starting up", lc.Application.Name, lc.Application.Version)

	tp, shutdown, err := initTracing(ctx, lc.Application, lc.Tracing)
	if err != nil {
		return err
	}
	a.shutdownTracing = shutdown

	if a.statusProvider == nil && lc.Plugins.ConfigDir != "" {
		sp, err := NewStatusProvider(lc.Plugins.ConfigDir)
		if err != nil {
			return err
		}
		a.statusProvider = sp
	}

	em, err := a.extensionMetrics()
	if err != nil {
		return err
	}

	opts := []app.Option{
		app.WithPlugins(a.plugins...),
		app.WithAutowire(lc.Extensions.GetAutowire()),
		app.WithCoalesce(lc.Extensions.Coalesce),
		app.WithContainerManagedPlugins(lc.Plugins.GetContainerManaged()),
		app.WithParentContainer(lc.Plugins.UseParentContainer),
		app.WithStartTimeout(pluginTimeout("start_timeout", lc.Plugins.StartTimeout, 60*time.Second)),
		app.WithStopTimeout(pluginTimeout("stop_timeout", lc.Plugins.StopTimeout, 120*time.Second)),
		app.WithLogger(log.Logger()),
		app.WithMetrics(em),
		app.WithTracerProvider(tp),
	}
	if lc.Extensions.Singleton {
		opts = append(opts, app.WithSingletons(lc.Extensions.Singletons...))
	}
	if a.statusProvider != nil {
		opts = append(opts, app.WithStatusProvider(a.statusProvider))
	}
	if lc.Plugins.GetContainerManaged() {
		a.host = container.New(container.WithName("host"))
		if a.hostBeans != nil {
			if err := a.hostBeans(a.host); err != nil {
				return fmt.Errorf("failed to register host beans: %w", err)
			}
		}
		opts = append(opts, app.WithHostContainer(a.host))
	}

	manager, err := app.NewPluginManager(opts...)
	if err != nil {
		return err
	}
	a.manager = manager
	a.registerPluginCollector(manager)

	if a.hostExtensions != nil {
		if err := a.hostExtensions(manager.HostRegistry()); err != nil {
			return fmt.Errorf("failed to register host extensions: %w", err)
		}
	}

	if err := manager.StartPlugins(ctx); err != nil {
		// failed plugins are skipped, the others keep running
		log.Errorf("some plugins failed to start: %v", err)
	}
	a.started = true
	log.Infof("lynx application started in %d ms", time.Since(begin).Milliseconds())
	return nil
}

func (a *Application) extensionMetrics() (*metrics.ExtensionMetrics, error) {
	if a.registerer == nil {
		return metrics.DefaultExtensionMetrics(), nil
	}
	return metrics.NewExtensionMetrics(a.registerer)
}

func (a *Application) registerPluginCollector(m *app.PluginManager) {
	collector := metrics.NewPluginCollector(m)
	var err error
	if a.registerer == nil {
		err = metrics.RegisterCollector(collector)
	} else {
		err = a.registerer.Register(collector)
	}
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		log.Warnf("failed to register plugin collector: %v", err)
	}
}

// pluginTimeout parses a lynx.plugins timeout, clamped to [1s, max].
func pluginTimeout(key, raw string, max time.Duration) time.Duration {
	if raw == "" {
		return app.DefaultLifecycleTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Warnf("invalid lynx.plugins.%s %q, using %v", key, raw, app.DefaultLifecycleTimeout)
		return app.DefaultLifecycleTimeout
	}
	if d < time.Second {
		log.Warnf("%s too short (%v), using minimum 1s", key, d)
		return time.Second
	}
	if d > max {
		log.Warnf("%s too long (%v), using maximum %v", key, d, max)
		return max
	}
	return d
}

// Stop stops the plugins, closes the host container and flushes traces.
func (a *Application) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}
	a.started = false

	var errs []error
	if err := a.manager.StopPlugins(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.host != nil {
		if err := a.host.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	log.Infof("lynx application stopped")
	return errors.Join(errs...)
}

// Manager returns the plugin manager, nil before Start.
func (a *Application) Manager() *app.PluginManager {
	return a.manager
}

// HostContainer returns the host container, nil when the host is not container-managed.
func (a *Application) HostContainer() *container.Container {
	return a.host
}

// Report returns the publish report, nil when nothing was published.
func (a *Application) Report() *injector.Report {
	if a.manager == nil {
		return nil
	}
	return a.manager.PublishReport()
}

// Lookup returns a bean of the host container.
func (a *Application) Lookup(name string) (any, bool) {
	if a.host == nil {
		return nil, false
	}
	return a.host.Lookup(name)
}

// Servers builds the transport servers enabled by the configuration.
func (a *Application) Servers() []transport.Server {
	mc := a.bootstrap.Lynx.Metrics
	if mc.Addr == "" {
		return nil
	}
	srv := khttp.NewServer(khttp.Address(mc.Addr))
	srv.Handle(mc.GetPath(), metrics.Handler())
	return []transport.Server{srv}
}

// Run starts the application inside a kratos app and blocks until it receives a
// stop signal or ctx is done.
func (a *Application) Run(ctx context.Context) error {
	lc := a.bootstrap.Lynx
	k := kratos.New(
		kratos.Name(lc.Application.Name),
		kratos.Version(lc.Application.Version),
		kratos.Context(ctx),
		kratos.Logger(log.Logger()),
		kratos.Server(a.Servers()...),
		kratos.BeforeStart(a.Start),
		kratos.AfterStop(a.Stop),
	)
	return k.Run()
}
