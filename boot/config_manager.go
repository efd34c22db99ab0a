package boot

import (
	"os"
	"sync"
)

// Environment variables overriding the configuration.
const (
	EnvConfigPath       = "LYNX_CONFIG_PATH"
	EnvPluginsConfigDir = "LYNX_PLUGINS_CONFIG_DIR"
)

// ConfigManager manages application configuration paths
type ConfigManager struct {
	configPath string
	mu         sync.RWMutex
}

var (
	configManager *ConfigManager
	once          sync.Once
)

// GetConfigManager returns singleton configuration manager instance
func GetConfigManager() *ConfigManager {
	once.Do(func() {
		configManager = &ConfigManager{}
	})
	return configManager
}

// SetConfigPath sets configuration path
func (cm *ConfigManager) SetConfigPath(path string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.configPath = path
}

// GetConfigPath returns the configuration path, falling back to the default one
func (cm *ConfigManager) GetConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.configPath == "" {
		return DefaultConfigPath()
	}
	return cm.configPath
}

// DefaultConfigPath gets default configuration path
func DefaultConfigPath() string {
	// Prioritize environment variable
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	// Default to configs directory under current directory
	return "./configs"
}
