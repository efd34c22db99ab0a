package demo

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-lynx/lynx-di/app/conf"
	"github.com/go-lynx/lynx-di/app/factory"
	"github.com/go-lynx/lynx-di/boot"
	"github.com/go-lynx/lynx-di/plugins"
)

func TestDemoPluginsRegistered(t *testing.T) {
	f := factory.GlobalPluginFactory()
	assert.True(t, f.HasPlugin(HelloPluginID))
	assert.True(t, f.HasPlugin(WelcomePluginID))
}

func TestDemoHost(t *testing.T) {
	bc := &conf.Bootstrap{Lynx: conf.Lynx{Application: conf.Application{Name: "demo"}}}
	a := boot.NewApplication(bc,
		boot.WithoutLogInit(),
		boot.WithRegisterer(prometheus.NewRegistry()),
		boot.WithPlugins(NewHelloPlugin(), NewWelcomePlugin()),
		boot.WithHostBeans(RegisterHostBeans),
		boot.WithHostExtensions(RegisterHostExtensions),
	)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	defer a.Stop(ctx)

	report := a.Report()
	require.NotNil(t, report)
	require.NoError(t, report.Err())
	assert.Equal(t, []string{"HostReport", "hello/Greeter", "welcome/Greeter"}, report.Registered)
	assert.Equal(t, []string{"Greeter"}, report.SkippedAliases)

	bean, ok := a.Lookup("hello/Greeter")
	require.True(t, ok)
	hello := bean.(*HelloGreeter)
	assert.Equal(t, "Hello, lynx", hello.Greet("lynx"))
	// the hello container has no parent, so host beans are not visible
	assert.Nil(t, hello.Common)

	bean, ok = a.Lookup("welcome/Greeter")
	require.True(t, ok)
	assert.Equal(t, "Welcome to lynx, dev", bean.(Greeter).Greet("dev"))

	bean, ok = a.Lookup("Greeter")
	require.True(t, ok)
	assert.Same(t, hello, bean)

	bean, ok = a.Lookup("HostReport")
	require.True(t, ok)
	assert.NotNil(t, bean.(*HostReport).Common)

	assert.Equal(t, plugins.StatusActive, a.Manager().Status(WelcomePluginID))
}
