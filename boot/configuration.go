package boot

import (
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"

	"github.com/go-lynx/lynx-di/app/conf"
)

// LoadConfig loads the bootstrap configuration from a file or a directory.
// Environment overrides are applied after the file is scanned.
//
// The returned config.Config must be closed by the caller.
func LoadConfig(path string) (*conf.Bootstrap, config.Config, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("configuration path is empty: please specify config path via --conf flag or %s environment variable", EnvConfigPath)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("configuration path %s: %w", path, err)
	}

	cfg := config.New(config.WithSource(file.NewSource(path)))
	if err := cfg.Load(); err != nil {
		_ = cfg.Close()
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}

	var bc conf.Bootstrap
	if err := cfg.Scan(&bc); err != nil {
		_ = cfg.Close()
		return nil, nil, fmt.Errorf("failed to scan configuration from %s: %w", path, err)
	}
	if err := validate(&bc); err != nil {
		_ = cfg.Close()
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	applyEnv(&bc)
	return &bc, cfg, nil
}

// validate checks the required configuration items
func validate(bc *conf.Bootstrap) error {
	if bc.Lynx.Application.Name == "" {
		return fmt.Errorf("required configuration key 'lynx.application.name' is missing")
	}
	return nil
}

func applyEnv(bc *conf.Bootstrap) {
	if dir := os.Getenv(EnvPluginsConfigDir); dir != "" {
		bc.Lynx.Plugins.ConfigDir = dir
	}
	if bc.Lynx.Application.Version == "" {
		bc.Lynx.Application.Version = "unknown"
	}
	if bc.Lynx.Application.Host == "" {
		bc.Lynx.Application.Host, _ = os.Hostname()
	}
}
