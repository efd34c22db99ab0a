package demo

import (
	"fmt"

	"github.com/go-lynx/lynx-di/plugins"
)

// WelcomeGreeter has no constructor dependencies; the host wires its fields.
type WelcomeGreeter struct {
	Common *CommonService `inject:",optional"`
}

func (g *WelcomeGreeter) Greet(name string) string {
	region := "unknown"
	if g.Common != nil {
		region = g.Common.Region
	}
	return fmt.Sprintf("Welcome to %s, %s", region, name)
}

// WelcomePlugin has no container of its own and depends on hello.
type WelcomePlugin struct {
	*plugins.BasePlugin
}

// NewWelcomePlugin creates the welcome plugin.
func NewWelcomePlugin() *WelcomePlugin {
	return &WelcomePlugin{
		BasePlugin: plugins.NewBasePlugin(WelcomePluginID, "Welcome", "greets through the host container", "v1.0.0", 0,
			plugins.WithDependencies(plugins.After(HelloPluginID))),
	}
}

func (p *WelcomePlugin) Extensions(reg plugins.ExtensionRegistrar) error {
	_, err := reg.Register("Greeter", func() *WelcomeGreeter { return &WelcomeGreeter{} })
	return err
}
