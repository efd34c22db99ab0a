package main

import (
	"github.com/go-lynx/lynx-di/app/conf"
	"github.com/go-lynx/lynx-di/app/factory"
	"github.com/go-lynx/lynx-di/boot"
	"github.com/go-lynx/lynx-di/cmd/lynx-di/internal/demo"
)

// loadBootstrap reads the configuration selected by --conf and applies the CLI overrides.
func loadBootstrap() (*conf.Bootstrap, func(), error) {
	bc, cfg, err := boot.LoadConfig(boot.GetConfigManager().GetConfigPath())
	if err != nil {
		return nil, nil, err
	}
	if flagLogLevel != "" {
		bc.Lynx.Log.Level = flagLogLevel
	}
	return bc, func() { _ = cfg.Close() }, nil
}

// newApplication creates the demo host with every plugin of the global factory.
func newApplication(bc *conf.Bootstrap, opts ...boot.Option) (*boot.Application, error) {
	ps, err := factory.GlobalPluginFactory().CreateAll()
	if err != nil {
		return nil, err
	}
	opts = append([]boot.Option{
		boot.WithPlugins(ps...),
		boot.WithHostBeans(demo.RegisterHostBeans),
		boot.WithHostExtensions(demo.RegisterHostExtensions),
	}, opts...)
	return boot.NewApplication(bc, opts...), nil
}
