// Package app provides the plugin manager of a Lynx application.
// 包 app 为 Lynx 应用提供插件管理器。
//
// The manager starts plugins in dependency order, gives every started plugin a fresh
// extension type registry and, for container-managed plugins, a fresh container. It
// answers the ownership question of the extension factory (WhichPlugin) and, once
// plugins are started, publishes all extensions into the host container.
// 管理器按依赖顺序启动插件，为每个启动的插件创建新的扩展类型注册表，并为容器托管插件
// 创建新的容器。插件启动后，所有扩展会被发布到宿主容器中。
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-lynx/lynx-di/app/container"
	"github.com/go-lynx/lynx-di/app/extension"
	"github.com/go-lynx/lynx-di/app/factory"
	"github.com/go-lynx/lynx-di/app/injector"
	lynxlog "github.com/go-lynx/lynx-di/app/log"
	"github.com/go-lynx/lynx-di/app/observability/metrics"
	"github.com/go-lynx/lynx-di/plugins"
)

// StatusProvider decides which plugins may start.
// StatusProvider 决定哪些插件可以启动。
type StatusProvider interface {
	IsPluginDisabled(pluginID string) bool
}

// PluginWrapper is the handle of a started plugin. A new wrapper is created on
// every start, so its registry and container never outlive a stop.
// PluginWrapper 是已启动插件的句柄，每次启动都会重新创建。
type PluginWrapper struct {
	plugin    plugins.Plugin
	registry  *factory.TypeRegistry
	container *container.Container
}

// ID returns the plugin id, which is also the extension namespace.
func (w *PluginWrapper) ID() string { return w.plugin.ID() }

// Plugin returns the wrapped plugin.
func (w *PluginWrapper) Plugin() plugins.Plugin { return w.plugin }

// Loader returns the type registry of this start.
func (w *PluginWrapper) Loader() extension.TypeLoader { return w.registry }

// Registry returns the type registry of this start.
func (w *PluginWrapper) Registry() *factory.TypeRegistry { return w.registry }

// Container returns the plugin container, if the plugin is container-managed.
func (w *PluginWrapper) Container() (extension.Container, bool) {
	if w.container == nil {
		return nil, false
	}
	return w.container, true
}

// PluginContainer returns the concrete plugin container, nil when not container-managed.
func (w *PluginWrapper) PluginContainer() *container.Container { return w.container }

// PluginManager starts and stops plugins and owns the extension machinery.
// PluginManager 负责插件的启动与停止，并持有扩展相关组件。
type PluginManager struct {
	mu sync.RWMutex

	// pluginList keeps registration order
	// pluginList 保存插件的注册顺序
	pluginList []plugins.Plugin
	byID       map[string]plugins.Plugin
	status     map[string]plugins.PluginStatus

	// started plugins, in start order
	// 已启动的插件，按启动顺序保存
	started    map[string]*PluginWrapper
	startOrder []string

	host           *container.Container
	hostRegistry   *factory.TypeRegistry
	statusProvider StatusProvider
	factory        extension.Factory
	// set when the default factory caches instances
	singletons *extension.SingletonFactory

	autowire           bool
	singleton          bool
	singletonKeys      []string
	coalesce           bool
	containerManaged   bool
	useParentContainer bool
	startTimeout       time.Duration
	stopTimeout        time.Duration

	logger  log.Logger
	log     *log.Helper
	metrics *metrics.ExtensionMetrics
	tracer  trace.TracerProvider

	injector *injector.Injector
	report   *injector.Report
}

// Option configures a PluginManager.
type Option func(*PluginManager)

// WithHostContainer makes the host container-managed. Extensions are published
// into c once plugins are started.
func WithHostContainer(c *container.Container) Option {
	return func(m *PluginManager) { m.host = c }
}

// WithExtensionFactory replaces the default extension factory.
func WithExtensionFactory(f extension.Factory) Option {
	return func(m *PluginManager) { m.factory = f }
}

// WithStatusProvider sets the provider deciding which plugins are disabled.
func WithStatusProvider(p StatusProvider) Option {
	return func(m *PluginManager) { m.statusProvider = p }
}

// WithPlugins adds plugins to the manager.
func WithPlugins(ps ...plugins.Plugin) Option {
	return func(m *PluginManager) { m.pluginList = append(m.pluginList, ps...) }
}

// WithAutowire enables or disables container wiring in the default factory.
func WithAutowire(enabled bool) Option {
	return func(m *PluginManager) { m.autowire = enabled }
}

// WithSingletons caches extension instances in the default factory. With keys, only
// those registration keys are cached.
func WithSingletons(keys ...string) Option {
	return func(m *PluginManager) {
		m.singleton = true
		m.singletonKeys = append(m.singletonKeys, keys...)
	}
}

// WithCoalesce makes concurrent creations of one type share a single call.
func WithCoalesce(enabled bool) Option {
	return func(m *PluginManager) { m.coalesce = enabled }
}

// WithContainerManagedPlugins controls whether plugins implementing
// plugins.ContainerProvider get their own container. Enabled by default.
func WithContainerManagedPlugins(enabled bool) Option {
	return func(m *PluginManager) { m.containerManaged = enabled }
}

// WithParentContainer makes the host container the parent of every plugin
// container, unless the plugin says otherwise through plugins.ParentContainerAware.
func WithParentContainer(enabled bool) Option {
	return func(m *PluginManager) { m.useParentContainer = enabled }
}

// WithLogger sets the logger of the manager and of the default factory.
func WithLogger(logger log.Logger) Option {
	return func(m *PluginManager) { m.logger = logger }
}

// WithMetrics sets the extension metrics sink.
func WithMetrics(em *metrics.ExtensionMetrics) Option {
	return func(m *PluginManager) { m.metrics = em }
}

// WithTracerProvider sets the tracer provider used while publishing.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *PluginManager) { m.tracer = tp }
}

// NewPluginManager creates a plugin manager.
// NewPluginManager 创建插件管理器。
func NewPluginManager(opts ...Option) (*PluginManager, error) {
	m := &PluginManager{
		byID:             make(map[string]plugins.Plugin),
		status:           make(map[string]plugins.PluginStatus),
		started:          make(map[string]*PluginWrapper),
		hostRegistry:     factory.NewTypeRegistry(""),
		autowire:         true,
		containerManaged: true,
		startTimeout:     DefaultLifecycleTimeout,
		stopTimeout:      DefaultLifecycleTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = lynxlog.Logger()
	}
	m.log = log.NewHelper(m.logger)

	list := m.pluginList
	m.pluginList = nil
	for _, p := range list {
		if err := m.addPlugin(p); err != nil {
			return nil, err
		}
	}

	if m.factory == nil {
		m.factory = m.defaultFactory()
	}
	if m.host != nil {
		m.injector = injector.New(m, m.factory, m.host,
			injector.WithLogger(m.logger),
			injector.WithMetrics(m.metrics),
			injector.WithTracerProvider(m.tracer),
		)
	}
	return m, nil
}

func (m *PluginManager) defaultFactory() extension.Factory {
	var host extension.Container
	if m.host != nil {
		host = m.host
	}
	var f extension.Factory = extension.NewFactory(
		extension.NewScopeResolver(m, host),
		extension.WithAutowire(m.autowire),
		extension.WithLogger(m.logger),
		extension.WithMetrics(m.metrics),
	)
	if m.singleton {
		m.singletons = extension.NewSingletonFactory(f, m.singletonKeys...)
		f = m.singletons
	}
	if m.coalesce {
		f = extension.Coalesce(f)
	}
	return f
}

// AddPlugin registers a plugin that has not been started yet.
// AddPlugin 注册一个尚未启动的插件。
func (m *PluginManager) AddPlugin(p plugins.Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addPlugin(p)
}

func (m *PluginManager) addPlugin(p plugins.Plugin) error {
	if p == nil {
		return fmt.Errorf("nil plugin")
	}
	if err := plugins.CheckPluginID(p.ID()); err != nil {
		return plugins.NewPluginError(p.ID(), "Add", "invalid plugin id", err)
	}
	if _, exists := m.byID[p.ID()]; exists {
		return plugins.NewPluginError(p.ID(), "Add", "duplicate plugin id", plugins.ErrPluginAlreadyExists)
	}
	m.byID[p.ID()] = p
	m.pluginList = append(m.pluginList, p)
	m.status[p.ID()] = plugins.StatusInactive
	return nil
}

// StartPlugins starts every plugin that is neither started nor disabled, in
// dependency order, then publishes extensions when the host is container-managed.
// A plugin failing to start is logged and skipped, as are the plugins requiring it.
// StartPlugins 按依赖顺序启动所有未启动且未禁用的插件，启动失败的插件会被跳过。
func (m *PluginManager) StartPlugins(ctx context.Context) error {
	m.mu.Lock()
	candidates := make([]plugins.Plugin, 0, len(m.pluginList))
	for _, p := range m.pluginList {
		if m.isDisabled(p.ID()) {
			m.status[p.ID()] = plugins.StatusDisabled
			m.log.Infof("plugin %s is disabled", p.ID())
			continue
		}
		candidates = append(candidates, p)
	}

	sorted, err := TopologicalSort(candidates)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	var errs []error
	for _, pw := range sorted {
		id := pw.ID()
		if _, ok := m.started[id]; ok {
			continue
		}
		if err := m.requireStarted(pw.Plugin); err != nil {
			m.status[id] = plugins.StatusFailed
			errs = append(errs, err)
			m.log.Errorf("skip plugin %s: %v", id, err)
			continue
		}
		if err := m.startPlugin(ctx, pw.Plugin); err != nil {
			errs = append(errs, err)
		}
	}
	m.mu.Unlock()

	m.publish(ctx)
	return errors.Join(errs...)
}

// StartPlugin starts a single plugin, used to restart a stopped one. Its required
// dependencies must already be started.
// StartPlugin 启动单个插件，用于重新启动已停止的插件。
func (m *PluginManager) StartPlugin(ctx context.Context, pluginID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[pluginID]
	if !ok {
		return plugins.NewPluginError(pluginID, "Start", "unknown plugin", plugins.ErrPluginNotFound)
	}
	if _, ok := m.started[pluginID]; ok {
		return plugins.NewPluginError(pluginID, "Start", "already started", plugins.ErrPluginAlreadyActive)
	}
	if m.isDisabled(pluginID) {
		m.status[pluginID] = plugins.StatusDisabled
		return plugins.NewPluginError(pluginID, "Start", "disabled by status provider", plugins.ErrPluginDisabled)
	}
	if err := m.requireStarted(p); err != nil {
		return err
	}
	return m.startPlugin(ctx, p)
}

// startPlugin runs one start with m.mu held.
func (m *PluginManager) startPlugin(ctx context.Context, p plugins.Plugin) error {
	id := p.ID()
	m.status[id] = plugins.StatusStarting
	w := &PluginWrapper{plugin: p, registry: factory.NewTypeRegistry(id)}

	fail := func(op, msg string, err error) error {
		if w.container != nil {
			if cerr := w.container.Close(); cerr != nil {
				m.log.Warnf("close container of plugin %s: %v", id, cerr)
			}
		}
		m.status[id] = plugins.StatusFailed
		perr := plugins.NewPluginError(id, op, msg, err)
		m.log.Errorw("msg", "plugin failed to start", "plugin", id, "error", perr)
		return perr
	}

	if provider, ok := p.(plugins.ExtensionProvider); ok {
		if err := provider.Extensions(w.registry); err != nil {
			return fail("Start", "register extensions", err)
		}
	}

	if provider, ok := p.(plugins.ContainerProvider); ok && m.containerManaged {
		opts := []container.Option{container.WithName("plugin:" + id)}
		if m.wantsParent(p) {
			opts = append(opts, container.WithParent(m.host))
		}
		w.container = container.New(opts...)
		if err := provider.ConfigureContainer(w.container); err != nil {
			return fail("Start", "configure container", err)
		}
	}

	if err := m.safeStartPlugin(ctx, p); err != nil {
		return fail("Start", "start", err)
	}

	m.started[id] = w
	m.startOrder = append(m.startOrder, id)
	m.status[id] = plugins.StatusActive
	m.log.Infof("plugin %s %s started with %d extensions, container managed: %t",
		id, p.Version(), len(w.registry.Names()), w.container != nil)
	return nil
}

func (m *PluginManager) wantsParent(p plugins.Plugin) bool {
	if m.host == nil {
		return false
	}
	if aware, ok := p.(plugins.ParentContainerAware); ok {
		return aware.UseParentContainer()
	}
	return m.useParentContainer
}

func (m *PluginManager) requireStarted(p plugins.Plugin) error {
	depAware, ok := p.(plugins.DependencyAware)
	if !ok {
		return nil
	}
	for _, dep := range depAware.GetDependencies() {
		if !dep.Required {
			continue
		}
		if _, ok := m.started[dep.ID]; !ok {
			return plugins.NewPluginError(p.ID(), "Start",
				fmt.Sprintf("required plugin %s is not started", dep.ID), plugins.ErrPluginDependencyNotMet)
		}
	}
	return nil
}

func (m *PluginManager) isDisabled(id string) bool {
	return m.statusProvider != nil && m.statusProvider.IsPluginDisabled(id)
}

func (m *PluginManager) publish(ctx context.Context) {
	if m.injector == nil {
		return
	}
	report := m.injector.Publish(ctx)
	m.mu.Lock()
	m.report = report
	m.mu.Unlock()
}

// PublishReport returns the outcome of publishing, nil before plugins are started
// or when the host is not container-managed.
func (m *PluginManager) PublishReport() *injector.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report
}

// StopPlugins stops all started plugins in reverse start order.
// StopPlugins 按启动的逆序停止所有已启动的插件。
func (m *PluginManager) StopPlugins(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for i := len(m.startOrder) - 1; i >= 0; i-- {
		if err := m.stopPlugin(ctx, m.startOrder[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopPlugin stops one plugin and closes its container. Its types are dropped and
// will be registered again on the next start.
// StopPlugin 停止单个插件并关闭其容器。
func (m *PluginManager) StopPlugin(ctx context.Context, pluginID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.started[pluginID]; !ok {
		return plugins.NewPluginError(pluginID, "Stop", "not started", plugins.ErrPluginNotActive)
	}
	return m.stopPlugin(ctx, pluginID)
}

func (m *PluginManager) stopPlugin(ctx context.Context, id string) error {
	w := m.started[id]
	delete(m.started, id)
	for i, sid := range m.startOrder {
		if sid == id {
			m.startOrder = append(m.startOrder[:i], m.startOrder[i+1:]...)
			break
		}
	}

	m.status[id] = plugins.StatusStopping
	var errs []error
	if err := m.safeStopPlugin(ctx, w.plugin); err != nil {
		errs = append(errs, err)
	}
	if w.container != nil {
		if err := w.container.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.singletons != nil {
		if n := m.singletons.Evict(id); n > 0 {
			m.log.Debugf("evicted %d cached extensions of plugin %s", n, id)
		}
	}
	if len(errs) > 0 {
		m.status[id] = plugins.StatusFailed
		perr := plugins.NewPluginError(id, "Stop", "stop", errors.Join(errs...))
		m.log.Errorw("msg", "plugin failed to stop", "plugin", id, "error", perr)
		return perr
	}
	m.status[id] = plugins.StatusStopped
	m.log.Infof("plugin %s stopped", id)
	return nil
}

// StartedPlugins returns the handles of the started plugins, in start order.
func (m *PluginManager) StartedPlugins() []extension.PluginHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]extension.PluginHandle, 0, len(m.startOrder))
	for _, id := range m.startOrder {
		out = append(out, m.started[id])
	}
	return out
}

// Started returns the wrapper of a started plugin.
func (m *PluginManager) Started(pluginID string) (*PluginWrapper, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.started[pluginID]
	return w, ok
}

// WhichPlugin returns the started plugin whose boundary the type was loaded
// through. Host types and types not handed out by a plugin's current loader
// belong to no plugin.
// WhichPlugin 返回加载了该类型的已启动插件。
func (m *PluginManager) WhichPlugin(t *extension.Type) (extension.PluginHandle, bool) {
	if t == nil || t.IsHost() {
		return nil, false
	}
	m.mu.RLock()
	w, ok := m.started[t.Namespace]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	loaded, err := w.registry.Load(t.Name)
	if err != nil || loaded != t {
		return nil, false
	}
	return w, true
}

// ExtensionNames returns the declared extension names of a started plugin, or of
// the host when pluginID is empty.
func (m *PluginManager) ExtensionNames(pluginID string) []string {
	if pluginID == "" {
		return m.hostRegistry.Names()
	}
	m.mu.RLock()
	w, ok := m.started[pluginID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return w.registry.Names()
}

// HostRegistry returns the registry of host extensions.
func (m *PluginManager) HostRegistry() *factory.TypeRegistry {
	return m.hostRegistry
}

// HostLoader returns the loader of host extensions.
func (m *PluginManager) HostLoader() extension.TypeLoader {
	return m.hostRegistry
}

// HostContainer returns the host container, nil when the host is not container-managed.
func (m *PluginManager) HostContainer() *container.Container {
	return m.host
}

// ExtensionFactory returns the factory used to create extensions.
func (m *PluginManager) ExtensionFactory() extension.Factory {
	return m.factory
}

// Plugin returns a registered plugin by id.
func (m *PluginManager) Plugin(pluginID string) (plugins.Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[pluginID]
	return p, ok
}

// Plugins returns every registered plugin in registration order.
func (m *PluginManager) Plugins() []plugins.Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]plugins.Plugin, len(m.pluginList))
	copy(out, m.pluginList)
	return out
}

// Status returns the status of a registered plugin.
func (m *PluginManager) Status(pluginID string) plugins.PluginStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status[pluginID]
}

// PluginInfos describes the started plugins for the metrics collector.
func (m *PluginManager) PluginInfos() []metrics.PluginInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]metrics.PluginInfo, 0, len(m.startOrder))
	for _, id := range m.startOrder {
		w := m.started[id]
		out = append(out, metrics.PluginInfo{
			ID:               id,
			Version:          w.plugin.Version(),
			ContainerManaged: w.container != nil,
			Extensions:       len(w.registry.Names()),
		})
	}
	return out
}
