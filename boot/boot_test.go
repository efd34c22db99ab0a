package boot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-lynx/lynx-di/app/conf"
	"github.com/go-lynx/lynx-di/app/container"
	"github.com/go-lynx/lynx-di/app/factory"
	"github.com/go-lynx/lynx-di/plugins"
)

const sampleConfig = `
lynx:
  application:
    name: boot-test
    version: v0.1.0
  log:
    level: debug
  extensions:
    singleton: true
    singletons: ["CommonService"]
  plugins:
    use_parent_container: true
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleConfig)

	bc, cfg, err := LoadConfig(path)
	require.NoError(t, err)
	defer cfg.Close()

	lc := bc.Lynx
	assert.Equal(t, "boot-test", lc.Application.Name)
	assert.Equal(t, "v0.1.0", lc.Application.Version)
	assert.NotEmpty(t, lc.Application.Host)
	assert.Equal(t, "debug", lc.Log.GetLevel())
	assert.True(t, lc.Extensions.GetAutowire())
	assert.True(t, lc.Extensions.Singleton)
	assert.Equal(t, []string{"CommonService"}, lc.Extensions.Singletons)
	assert.True(t, lc.Plugins.GetContainerManaged())
	assert.True(t, lc.Plugins.UseParentContainer)
	assert.Equal(t, "/metrics", lc.Metrics.GetPath())
	assert.Equal(t, 1.0, lc.Tracing.GetRatio())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleConfig)
	t.Setenv(EnvPluginsConfigDir, "/tmp/plugins")

	bc, cfg, err := LoadConfig(path)
	require.NoError(t, err)
	defer cfg.Close()
	assert.Equal(t, "/tmp/plugins", bc.Lynx.Plugins.ConfigDir)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, _, err := LoadConfig("")
	assert.Error(t, err)

	_, _, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, t.TempDir(), "config.yaml", "lynx:\n  log:\n    level: info\n")
	_, _, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lynx.application.name")
}

func TestConfigManager(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cm := &ConfigManager{}
	assert.Equal(t, "./configs", cm.GetConfigPath())

	t.Setenv(EnvConfigPath, "/etc/lynx")
	assert.Equal(t, "/etc/lynx", cm.GetConfigPath())

	cm.SetConfigPath("/opt/lynx/config.yaml")
	assert.Equal(t, "/opt/lynx/config.yaml", cm.GetConfigPath())
}

func TestStatusProvider(t *testing.T) {
	dir := t.TempDir()

	sp, err := NewStatusProvider(dir)
	require.NoError(t, err)
	assert.False(t, sp.IsPluginDisabled("hello"))

	writeFile(t, dir, DisabledFile, "# disabled plugins\nhello\n\n")
	sp, err = NewStatusProvider(dir)
	require.NoError(t, err)
	assert.True(t, sp.IsPluginDisabled("hello"))
	assert.False(t, sp.IsPluginDisabled("welcome"))

	// a non-empty enabled list disables the others, disabled still wins
	writeFile(t, dir, EnabledFile, "hello\nwelcome\n")
	sp, err = NewStatusProvider(dir)
	require.NoError(t, err)
	assert.True(t, sp.IsPluginDisabled("hello"))
	assert.False(t, sp.IsPluginDisabled("welcome"))
	assert.True(t, sp.IsPluginDisabled("other"))
}

func TestStatusProvider_Persist(t *testing.T) {
	dir := t.TempDir()
	sp, err := NewStatusProvider(dir)
	require.NoError(t, err)

	require.NoError(t, sp.DisablePlugin("hello"))
	assert.True(t, sp.IsPluginDisabled("hello"))

	data, err := os.ReadFile(filepath.Join(dir, DisabledFile))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	reloaded, err := NewStatusProvider(dir)
	require.NoError(t, err)
	assert.True(t, reloaded.IsPluginDisabled("hello"))

	require.NoError(t, reloaded.EnablePlugin("hello"))
	assert.False(t, reloaded.IsPluginDisabled("hello"))
	require.NoError(t, reloaded.EnablePlugin("never-disabled"))
}

func TestInitTracing_Disabled(t *testing.T) {
	tp, shutdown, err := initTracing(context.Background(), conf.Application{Name: "t"}, conf.Tracing{})
	require.NoError(t, err)
	assert.NotNil(t, tp)
	assert.NoError(t, shutdown(context.Background()))

	_, _, err = initTracing(context.Background(), conf.Application{Name: "t"}, conf.Tracing{Enabled: true})
	assert.Error(t, err)
}

type messages struct{ text string }

type greeter struct{ Text string }

type commonService struct{}

type helloPlugin struct {
	*plugins.BasePlugin
}

func (p *helloPlugin) ConfigureContainer(c *container.Container) error {
	return c.RegisterSingleton("messages", &messages{text: "hello"})
}

func (p *helloPlugin) Extensions(reg plugins.ExtensionRegistrar) error {
	_, err := reg.Register("Greeter", func(m *messages) *greeter { return &greeter{Text: m.text} })
	return err
}

func TestApplication_StartStop(t *testing.T) {
	bc := &conf.Bootstrap{Lynx: conf.Lynx{
		Application: conf.Application{Name: "boot-test", Version: "v0.1.0"},
		Plugins:     conf.Plugins{ConfigDir: t.TempDir()},
	}}
	hello := &helloPlugin{BasePlugin: plugins.NewBasePlugin("hello", "hello", "", "v1.0.0", 0)}

	a := NewApplication(bc,
		WithoutLogInit(),
		WithRegisterer(prometheus.NewRegistry()),
		WithPlugins(hello),
		WithHostBeans(func(c *container.Container) error {
			return c.RegisterSingleton("region", "eu")
		}),
		WithHostExtensions(func(reg *factory.TypeRegistry) error {
			_, err := reg.Register("CommonService", func() *commonService { return &commonService{} })
			return err
		}),
	)
	assert.Nil(t, a.Report())

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	require.NoError(t, a.Start(ctx))

	report := a.Report()
	require.NotNil(t, report)
	require.NoError(t, report.Err())
	assert.Equal(t, []string{"CommonService", "hello/Greeter"}, report.Registered)

	g, ok := a.Lookup("Greeter")
	require.True(t, ok)
	assert.Equal(t, "hello", g.(*greeter).Text)
	_, ok = a.Lookup("region")
	assert.True(t, ok)
	assert.Equal(t, plugins.StatusActive, a.Manager().Status("hello"))
	assert.Empty(t, a.Servers())

	require.NoError(t, a.Stop(ctx))
	assert.Equal(t, plugins.StatusStopped, a.Manager().Status("hello"))
	require.NoError(t, a.Stop(ctx))
}

func TestApplication_DisabledByStatusFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DisabledFile, "hello\n")
	bc := &conf.Bootstrap{Lynx: conf.Lynx{
		Application: conf.Application{Name: "boot-test"},
		Plugins:     conf.Plugins{ConfigDir: dir},
	}}
	hello := &helloPlugin{BasePlugin: plugins.NewBasePlugin("hello", "hello", "", "v1.0.0", 0)}

	a := NewApplication(bc, WithoutLogInit(), WithRegisterer(prometheus.NewRegistry()), WithPlugins(hello))
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop(context.Background())

	assert.Equal(t, plugins.StatusDisabled, a.Manager().Status("hello"))
	_, ok := a.Lookup("Greeter")
	assert.False(t, ok)
}

func TestApplication_NotContainerManaged(t *testing.T) {
	off := false
	bc := &conf.Bootstrap{Lynx: conf.Lynx{
		Application: conf.Application{Name: "boot-test"},
		Plugins:     conf.Plugins{ContainerManaged: &off},
		Metrics:     conf.Metrics{Addr: "127.0.0.1:0"},
	}}
	a := NewApplication(bc, WithoutLogInit(), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop(context.Background())

	assert.Nil(t, a.HostContainer())
	assert.Nil(t, a.Report())
	_, ok := a.Lookup("anything")
	assert.False(t, ok)
	assert.Len(t, a.Servers(), 1)
}

func TestPluginTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, pluginTimeout("start_timeout", "", time.Minute))
	assert.Equal(t, 5*time.Second, pluginTimeout("start_timeout", "soon", time.Minute))
	assert.Equal(t, time.Second, pluginTimeout("start_timeout", "10ms", time.Minute))
	assert.Equal(t, time.Minute, pluginTimeout("start_timeout", "1h", time.Minute))
	assert.Equal(t, 30*time.Second, pluginTimeout("start_timeout", "30s", time.Minute))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	app := conf.Application{Name: "boot-test", Version: "v0.1.0"}

	require.NoError(t, printBanner(&buf, app, filepath.Join(t.TempDir(), "missing.txt")))
	assert.Contains(t, buf.String(), "boot-test v0.1.0")

	local := writeFile(t, t.TempDir(), "banner.txt", "LOCAL BANNER")
	buf.Reset()
	require.NoError(t, printBanner(&buf, app, local))
	assert.Contains(t, buf.String(), "LOCAL BANNER")

	buf.Reset()
	app.CloseBanner = true
	require.NoError(t, printBanner(&buf, app, local))
	assert.Empty(t, buf.String())
}
