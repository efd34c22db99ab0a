// Package factory holds the name based registries of a Lynx application: the plugin
// factory, from which the manager instantiates plugins, and the per-namespace
// extension type registries.
package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-lynx/lynx-di/plugins"
)

// Global factory instance
// 全局插件工厂实例，用于实现单例模式
var (
	globalPluginFactory *PluginFactory
	once                sync.Once
)

// GlobalPluginFactory returns the singleton instance of the plugin factory.
// Plugins usually register themselves from an init function.
// GlobalPluginFactory 返回插件工厂的单例实例，插件通常在 init 函数中注册自身。
func GlobalPluginFactory() *PluginFactory {
	once.Do(func() {
		globalPluginFactory = NewPluginFactory()
	})
	return globalPluginFactory
}

// PluginFactory maps plugin names to their creation functions.
// PluginFactory 将插件名称映射到各自的创建函数。
type PluginFactory struct {
	mu sync.RWMutex

	// pluginCreators stores the creation functions for each plugin.
	// pluginCreators 存储每个插件的创建函数。
	pluginCreators map[string]func() plugins.Plugin
}

// NewPluginFactory initializes an empty plugin factory.
// NewPluginFactory 初始化一个空的插件工厂。
func NewPluginFactory() *PluginFactory {
	return &PluginFactory{
		pluginCreators: make(map[string]func() plugins.Plugin),
	}
}

// RegisterPlugin registers a plugin creation function.
// Panics if a plugin with the same name is already registered.
// RegisterPlugin 注册插件的创建函数。
// 如果同名插件已注册，则触发 panic。
func (f *PluginFactory) RegisterPlugin(name string, creator func() plugins.Plugin) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.pluginCreators[name]; exists {
		panic(fmt.Errorf("plugin already registered: %s", name))
	}
	f.pluginCreators[name] = creator
}

// UnregisterPlugin removes a plugin from the factory.
// UnregisterPlugin 从工厂中移除一个插件。
func (f *PluginFactory) UnregisterPlugin(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pluginCreators, name)
}

// CreatePlugin creates a new instance of a plugin by its name.
// Returns an error if the plugin is not registered.
// CreatePlugin 根据插件名称创建一个新的插件实例。
// 如果插件未注册，则返回错误。
func (f *PluginFactory) CreatePlugin(name string) (plugins.Plugin, error) {
	f.mu.RLock()
	creator, exists := f.pluginCreators[name]
	f.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", plugins.ErrPluginNotFound, name)
	}
	p := creator()
	if p == nil {
		return nil, fmt.Errorf("plugin creator %s returned nil", name)
	}
	return p, nil
}

// CreateAll creates one instance of every registered plugin, sorted by name.
// CreateAll 为每个已注册的插件创建一个实例，按名称排序。
func (f *PluginFactory) CreateAll() ([]plugins.Plugin, error) {
	names := f.Names()
	out := make([]plugins.Plugin, 0, len(names))
	for _, name := range names {
		p, err := f.CreatePlugin(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// HasPlugin checks if a plugin is registered in the factory.
// HasPlugin 检查插件是否在工厂中注册。
func (f *PluginFactory) HasPlugin(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, exists := f.pluginCreators[name]
	return exists
}

// Names returns the registered plugin names in ascending order.
func (f *PluginFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.pluginCreators))
	for name := range f.pluginCreators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterTypedPlugin registers a creator returning a concrete plugin type.
// RegisterTypedPlugin 注册返回具体插件类型的创建函数。
func RegisterTypedPlugin[T plugins.Plugin](f *PluginFactory, name string, creator func() T) {
	f.RegisterPlugin(name, func() plugins.Plugin { return creator() })
}
