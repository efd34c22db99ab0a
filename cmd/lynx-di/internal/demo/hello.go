// Package demo contains the sample host beans and plugins booted by the lynx-di CLI.
//
// The hello plugin owns a container holding its MessageProvider; its Greeter is
// built by constructor injection. The welcome plugin has no container, so its
// Greeter falls back to the host container for wiring.
package demo

import (
	"context"
	"fmt"

	"github.com/go-lynx/lynx-di/app/container"
	"github.com/go-lynx/lynx-di/app/factory"
	"github.com/go-lynx/lynx-di/plugins"
)

// Plugin ids.
const (
	HelloPluginID   = "hello"
	WelcomePluginID = "welcome"
)

func init() {
	factory.RegisterTypedPlugin(factory.GlobalPluginFactory(), HelloPluginID, NewHelloPlugin)
	factory.RegisterTypedPlugin(factory.GlobalPluginFactory(), WelcomePluginID, NewWelcomePlugin)
}

// MessageProvider supplies the greeting text.
type MessageProvider interface {
	Message() string
}

type staticMessages struct {
	text string
}

func (m *staticMessages) Message() string { return m.text }

// Greeter is exported by the demo plugins.
type Greeter interface {
	Greet(name string) string
}

// HelloGreeter greets with the message of its plugin.
type HelloGreeter struct {
	messages MessageProvider
	Common   *CommonService `inject:",optional"`
}

// NewHelloGreeter is used when the plugin container can supply the messages.
func NewHelloGreeter(m MessageProvider) *HelloGreeter {
	return &HelloGreeter{messages: m}
}

func (g *HelloGreeter) Greet(name string) string {
	return fmt.Sprintf("%s, %s", g.messages.Message(), name)
}

// HelloPlugin is a container-managed plugin.
type HelloPlugin struct {
	*plugins.BasePlugin
	message string
}

// NewHelloPlugin creates the hello plugin.
func NewHelloPlugin() *HelloPlugin {
	return &HelloPlugin{
		BasePlugin: plugins.NewBasePlugin(HelloPluginID, "Hello", "greets from its own container", "v1.0.0", 10),
		message:    "Hello",
	}
}

func (p *HelloPlugin) Extensions(reg plugins.ExtensionRegistrar) error {
	_, err := reg.Register("Greeter", NewHelloGreeter)
	return err
}

func (p *HelloPlugin) ConfigureContainer(c *container.Container) error {
	return c.RegisterSingleton("messages", &staticMessages{text: p.message})
}

func (p *HelloPlugin) Start(ctx context.Context) error {
	p.Logger().Infof("hello plugin started")
	return nil
}
