package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-lynx/lynx-di/app/container"
	"github.com/go-lynx/lynx-di/app/extension"
	"github.com/go-lynx/lynx-di/plugins"
)

// MockPlugin is a configurable test plugin.
type MockPlugin struct {
	*plugins.BasePlugin

	extensions func(reg plugins.ExtensionRegistrar) error
	startErr   error
	started    int
	stopped    int
}

func newMock(id string, weight int, deps ...plugins.Dependency) *MockPlugin {
	return &MockPlugin{BasePlugin: plugins.NewBasePlugin(id, id, "mock", "v1.0.0", weight, plugins.WithDependencies(deps...))}
}

func (m *MockPlugin) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started++
	return nil
}

func (m *MockPlugin) Stop(ctx context.Context) error {
	m.stopped++
	return nil
}

func (m *MockPlugin) Extensions(reg plugins.ExtensionRegistrar) error {
	if m.extensions == nil {
		return nil
	}
	return m.extensions(reg)
}

// ContainerPlugin is a MockPlugin with its own container.
type ContainerPlugin struct {
	*MockPlugin
	configure func(c *container.Container) error
	parent    *bool
}

func (p *ContainerPlugin) ConfigureContainer(c *container.Container) error {
	if p.configure == nil {
		return nil
	}
	return p.configure(c)
}

type parentAware struct {
	*ContainerPlugin
}

func (p parentAware) UseParentContainer() bool { return *p.parent }

type MessageProvider interface{ Message() string }

type staticMessage struct {
	text   string
	closed bool
}

func (s *staticMessage) Message() string { return s.text }
func (s *staticMessage) Close() error    { s.closed = true; return nil }

type Greeter struct{ Text string }

type Welcome struct{ Text string }

type CommonService struct{}

func greeterWithMessages(m MessageProvider) *Greeter { return &Greeter{Text: m.Message()} }

func TestTopologicalSort(t *testing.T) {
	pluginA := newMock("A", 1)
	pluginB := newMock("B", 1, plugins.Requires("A"))
	pluginC := newMock("C", 1, plugins.Requires("B"))
	pluginD := newMock("D", 2, plugins.Requires("C"), plugins.Requires("A"), plugins.Requires("E"))
	pluginE := newMock("E", 3)

	result, err := TopologicalSort([]plugins.Plugin{pluginA, pluginB, pluginC, pluginD, pluginE})
	require.NoError(t, err)

	expectedOrder := []string{"E", "A", "B", "C", "D"}
	got := make([]string, len(result))
	for i, p := range result {
		got[i] = p.ID()
	}
	assert.Equal(t, expectedOrder, got)
	assert.Equal(t, 1, result[0].Level())
	assert.Equal(t, 4, result[4].Level())
}

func TestTopologicalSort_EqualWeightKeepsInputOrder(t *testing.T) {
	result, err := TopologicalSort([]plugins.Plugin{newMock("z", 0), newMock("a", 0), nil, newMock("m", 0)})
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "z", result[0].ID())
	assert.Equal(t, "a", result[1].ID())
	assert.Equal(t, "m", result[2].ID())
}

func TestTopologicalSort_Dependencies(t *testing.T) {
	_, err := TopologicalSort([]plugins.Plugin{newMock("A", 0, plugins.Requires("missing"))})
	assert.True(t, errors.Is(err, plugins.ErrPluginDependencyNotMet))

	result, err := TopologicalSort([]plugins.Plugin{newMock("A", 0, plugins.After("missing"))})
	require.NoError(t, err)
	assert.Len(t, result, 1)

	_, err = TopologicalSort([]plugins.Plugin{
		newMock("A", 0, plugins.Requires("B")),
		newMock("B", 0, plugins.Requires("A")),
	})
	assert.True(t, errors.Is(err, plugins.ErrPluginDependencyNotMet))

	_, err = TopologicalSort([]plugins.Plugin{newMock("A", 0, plugins.Dependency{})})
	assert.Error(t, err)
}

func demoManager(t *testing.T, opts ...Option) (*PluginManager, *ContainerPlugin, *MockPlugin, *staticMessage) {
	t.Helper()
	msg := &staticMessage{text: "hello from the plugin"}

	hello := &ContainerPlugin{MockPlugin: newMock("hello", 0)}
	hello.configure = func(c *container.Container) error {
		return c.RegisterSingleton("messages", msg)
	}
	hello.extensions = func(reg plugins.ExtensionRegistrar) error {
		_, err := reg.Register("Greeter", greeterWithMessages)
		return err
	}

	welcome := newMock("welcome", 0)
	welcome.extensions = func(reg plugins.ExtensionRegistrar) error {
		_, err := reg.Register("Greeter", func() *Welcome { return &Welcome{Text: "welcome"} })
		return err
	}

	opts = append([]Option{
		WithHostContainer(container.New(container.WithName("host"))),
		WithPlugins(hello, welcome),
	}, opts...)
	m, err := NewPluginManager(opts...)
	require.NoError(t, err)
	m.HostRegistry().MustRegister("CommonService", func() *CommonService { return &CommonService{} })
	return m, hello, welcome, msg
}

func TestPluginManager_StartAndPublish(t *testing.T) {
	m, _, welcome, _ := demoManager(t)
	require.NoError(t, m.StartPlugins(context.Background()))

	assert.Equal(t, 1, welcome.started)
	assert.Equal(t, plugins.StatusActive, m.Status("hello"))

	report := m.PublishReport()
	require.NotNil(t, report)
	require.NoError(t, report.Err())
	assert.Equal(t, []string{"CommonService", "hello/Greeter", "welcome/Greeter"}, report.Registered)

	host := m.HostContainer()
	hg, err := container.Resolve[*Greeter](host, "hello/Greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello from the plugin", hg.Text)

	wg, err := container.Resolve[*Welcome](host, "welcome/Greeter")
	require.NoError(t, err)
	assert.Equal(t, "welcome", wg.Text)

	g, err := container.Resolve[*Greeter](host, "Greeter")
	require.NoError(t, err)
	assert.Same(t, hg, g)

	// plugin-private beans stay in the plugin container
	assert.False(t, host.Contains("messages"))
	w, ok := m.Started("hello")
	require.True(t, ok)
	assert.True(t, w.PluginContainer().Contains("messages"))

	// publish runs once
	require.NoError(t, m.StartPlugins(context.Background()))
	assert.Same(t, report, m.PublishReport())
}

func TestPluginManager_WhichPlugin(t *testing.T) {
	m, _, _, _ := demoManager(t)
	require.NoError(t, m.StartPlugins(context.Background()))

	w, _ := m.Started("hello")
	typ, err := w.Registry().Load("Greeter")
	require.NoError(t, err)

	owner, ok := m.WhichPlugin(typ)
	require.True(t, ok)
	assert.Equal(t, "hello", owner.ID())
	c, ok := owner.Container()
	assert.True(t, ok)
	assert.NotNil(t, c)

	welcome, ok := m.WhichPlugin(mustLoad(t, m, "welcome", "Greeter"))
	require.True(t, ok)
	_, ok = welcome.Container()
	assert.False(t, ok)

	forged := extension.MustType("hello", "Greeter", func() *Greeter { return &Greeter{} })
	_, ok = m.WhichPlugin(forged)
	assert.False(t, ok)

	hostType, err := m.HostLoader().Load("CommonService")
	require.NoError(t, err)
	_, ok = m.WhichPlugin(hostType)
	assert.False(t, ok)
	_, ok = m.WhichPlugin(nil)
	assert.False(t, ok)
}

func mustLoad(t *testing.T, m *PluginManager, pluginID, name string) *extension.Type {
	t.Helper()
	w, ok := m.Started(pluginID)
	require.True(t, ok)
	typ, err := w.Loader().Load(name)
	require.NoError(t, err)
	return typ
}

type disabled map[string]bool

func (d disabled) IsPluginDisabled(id string) bool { return d[id] }

func TestPluginManager_DisabledPlugin(t *testing.T) {
	m, hello, _, _ := demoManager(t, WithStatusProvider(disabled{"hello": true}))
	require.NoError(t, m.StartPlugins(context.Background()))

	assert.Equal(t, 0, hello.started)
	assert.Equal(t, plugins.StatusDisabled, m.Status("hello"))
	assert.Nil(t, m.ExtensionNames("hello"))
	assert.False(t, m.HostContainer().Contains("hello/Greeter"))
	assert.True(t, m.HostContainer().Contains("Greeter"))

	err := m.StartPlugin(context.Background(), "hello")
	assert.True(t, errors.Is(err, plugins.ErrPluginDisabled))
}

func TestPluginManager_RestartReloadsTypes(t *testing.T) {
	m, hello, _, msg := demoManager(t)
	ctx := context.Background()
	require.NoError(t, m.StartPlugins(ctx))

	before := mustLoad(t, m, "hello", "Greeter")

	require.NoError(t, m.StopPlugin(ctx, "hello"))
	assert.Equal(t, 1, hello.stopped)
	assert.True(t, msg.closed)
	assert.Equal(t, plugins.StatusStopped, m.Status("hello"))
	_, ok := m.WhichPlugin(before)
	assert.False(t, ok)
	assert.True(t, errors.Is(m.StopPlugin(ctx, "hello"), plugins.ErrPluginNotActive))

	require.NoError(t, m.StartPlugin(ctx, "hello"))
	after := mustLoad(t, m, "hello", "Greeter")
	assert.NotSame(t, before, after)

	_, ok = m.WhichPlugin(after)
	assert.True(t, ok)
	_, ok = m.WhichPlugin(before)
	assert.False(t, ok)

	assert.True(t, errors.Is(m.StartPlugin(ctx, "hello"), plugins.ErrPluginAlreadyActive))
	assert.True(t, errors.Is(m.StartPlugin(ctx, "nope"), plugins.ErrPluginNotFound))

	// the restarted plugin is now last in start order
	handles := m.StartedPlugins()
	require.Len(t, handles, 2)
	assert.Equal(t, "welcome", handles[0].ID())
	assert.Equal(t, "hello", handles[1].ID())
}

func TestPluginManager_StartFailure(t *testing.T) {
	msg := &staticMessage{}
	broken := &ContainerPlugin{MockPlugin: newMock("broken", 10)}
	broken.startErr = errors.New("port in use")
	broken.configure = func(c *container.Container) error { return c.RegisterSingleton("m", msg) }

	dependent := newMock("dependent", 0, plugins.Requires("broken"))
	independent := newMock("independent", 0)

	m, err := NewPluginManager(WithPlugins(broken, dependent, independent))
	require.NoError(t, err)

	err = m.StartPlugins(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, broken.startErr))
	assert.True(t, errors.Is(err, plugins.ErrPluginDependencyNotMet))

	assert.Equal(t, plugins.StatusFailed, m.Status("broken"))
	assert.Equal(t, plugins.StatusFailed, m.Status("dependent"))
	assert.Equal(t, plugins.StatusActive, m.Status("independent"))
	assert.True(t, msg.closed)
	assert.Nil(t, m.PublishReport())
}

func TestPluginManager_ExtensionRegistrationFailure(t *testing.T) {
	p := newMock("bad", 0)
	p.extensions = func(reg plugins.ExtensionRegistrar) error {
		_, err := reg.Register("Bad", "not a constructor")
		return err
	}
	m, err := NewPluginManager(WithPlugins(p))
	require.NoError(t, err)

	err = m.StartPlugins(context.Background())
	assert.True(t, errors.Is(err, extension.ErrInvalidType))
	assert.Equal(t, 0, p.started)
}

func TestPluginManager_ParentContainer(t *testing.T) {
	host := container.New(container.WithName("host"))
	require.NoError(t, host.RegisterSingleton("messages", &staticMessage{text: "from host"}))

	yes, no := true, false
	child := &ContainerPlugin{MockPlugin: newMock("child", 0), parent: &yes}
	child.extensions = func(reg plugins.ExtensionRegistrar) error {
		_, err := reg.Register("Greeter", greeterWithMessages)
		return err
	}
	isolated := &ContainerPlugin{MockPlugin: newMock("isolated", 0), parent: &no}
	isolated.extensions = child.extensions

	m, err := NewPluginManager(
		WithHostContainer(host),
		WithPlugins(parentAware{child}, parentAware{isolated}),
	)
	require.NoError(t, err)

	require.NoError(t, m.StartPlugins(context.Background()))

	// the isolated plugin cannot see the host bean
	report := m.PublishReport()
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "isolated", report.Failures[0].Namespace)
	assert.True(t, errors.Is(report.Err(), extension.ErrConstructionFailed))

	g, err := container.Resolve[*Greeter](host, "child/Greeter")
	require.NoError(t, err)
	assert.Equal(t, "from host", g.Text)
	assert.False(t, host.Contains("isolated/Greeter"))
}

func TestPluginManager_AutowireDisabled(t *testing.T) {
	m, _, _, _ := demoManager(t, WithAutowire(false))
	require.NoError(t, m.StartPlugins(context.Background()))

	// built without its container, so the constructor dependency is never satisfied
	report := m.PublishReport()
	require.Error(t, report.Err())
	assert.False(t, m.HostContainer().Contains("hello/Greeter"))
	assert.True(t, m.HostContainer().Contains("welcome/Greeter"))
}

func TestPluginManager_Singletons(t *testing.T) {
	m, _, _, _ := demoManager(t, WithSingletons(), WithCoalesce(true))
	require.NoError(t, m.StartPlugins(context.Background()))

	typ := mustLoad(t, m, "welcome", "Greeter")
	a, err := m.ExtensionFactory().Create(typ)
	require.NoError(t, err)
	b, err := m.ExtensionFactory().Create(typ)
	require.NoError(t, err)
	assert.Same(t, a, b)

	published, _ := m.HostContainer().Lookup("welcome/Greeter")
	assert.Same(t, a, published)
}

func TestPluginManager_RestartDropsCachedInstances(t *testing.T) {
	m, hello, _, _ := demoManager(t, WithSingletons())
	ctx := context.Background()
	require.NoError(t, m.StartPlugins(ctx))

	before, err := m.ExtensionFactory().Create(mustLoad(t, m, "hello", "Greeter"))
	require.NoError(t, err)
	welcome, err := m.ExtensionFactory().Create(mustLoad(t, m, "welcome", "Greeter"))
	require.NoError(t, err)

	require.NoError(t, m.StopPlugin(ctx, "hello"))
	hello.configure = func(c *container.Container) error {
		return c.RegisterSingleton("messages", &staticMessage{text: "hello again"})
	}
	require.NoError(t, m.StartPlugin(ctx, "hello"))

	after, err := m.ExtensionFactory().Create(mustLoad(t, m, "hello", "Greeter"))
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, "hello again", after.(*Greeter).Text)

	// other plugins keep their cached instances
	again, err := m.ExtensionFactory().Create(mustLoad(t, m, "welcome", "Greeter"))
	require.NoError(t, err)
	assert.Same(t, welcome, again)
}

func TestPluginManager_AddPluginValidation(t *testing.T) {
	_, err := NewPluginManager(WithPlugins(newMock("a/b", 0)))
	assert.True(t, errors.Is(err, plugins.ErrInvalidPluginID))

	_, err = NewPluginManager(WithPlugins(newMock("a", 0), newMock("a", 0)))
	assert.True(t, errors.Is(err, plugins.ErrPluginAlreadyExists))

	m, err := NewPluginManager()
	require.NoError(t, err)
	assert.Error(t, m.AddPlugin(nil))
	require.NoError(t, m.AddPlugin(newMock("late", 0)))
	require.NoError(t, m.StartPlugins(context.Background()))
	assert.Equal(t, plugins.StatusActive, m.Status("late"))
	assert.Len(t, m.Plugins(), 1)
}

func TestPluginManager_StopPlugins(t *testing.T) {
	m, hello, welcome, msg := demoManager(t)
	ctx := context.Background()
	require.NoError(t, m.StartPlugins(ctx))
	require.Len(t, m.PluginInfos(), 2)
	assert.True(t, m.PluginInfos()[0].ContainerManaged)
	assert.Equal(t, 1, m.PluginInfos()[1].Extensions)

	require.NoError(t, m.StopPlugins(ctx))
	assert.Equal(t, 1, hello.stopped)
	assert.Equal(t, 1, welcome.stopped)
	assert.True(t, msg.closed)
	assert.Empty(t, m.StartedPlugins())
	assert.Empty(t, m.PluginInfos())
}

func TestPluginManager_NoHostContainer(t *testing.T) {
	welcome := newMock("welcome", 0)
	welcome.extensions = func(reg plugins.ExtensionRegistrar) error {
		_, err := reg.Register("Greeter", func() *Greeter { return &Greeter{} })
		return err
	}
	m, err := NewPluginManager(WithPlugins(welcome))
	require.NoError(t, err)
	require.NoError(t, m.StartPlugins(context.Background()))

	assert.Nil(t, m.HostContainer())
	assert.Nil(t, m.PublishReport())
	assert.Equal(t, []string{"Greeter"}, m.ExtensionNames("welcome"))

	inst, err := m.ExtensionFactory().Create(mustLoad(t, m, "welcome", "Greeter"))
	require.NoError(t, err)
	assert.IsType(t, &Greeter{}, inst)
}
