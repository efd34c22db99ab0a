package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-lynx/lynx-di/app/extension"
)

// TypeRegistry holds the extension types of one namespace and acts as its loader.
// The host uses the empty namespace, every plugin gets a registry named after its id.
// TypeRegistry 保存单个命名空间下的扩展类型，并作为该命名空间的类型加载器。
// 宿主使用空命名空间，每个插件拥有一个以插件 ID 命名的注册表。
type TypeRegistry struct {
	mu        sync.RWMutex
	namespace string

	// types maps type names to their definitions.
	// types 将类型名称映射到其定义。
	types map[string]*extension.Type

	// order keeps registration order, used to break ordinal ties.
	// order 记录注册顺序，用于序号相同时的排序。
	order []string
}

// NewTypeRegistry initializes an empty registry for namespace.
// NewTypeRegistry 为指定命名空间初始化一个空的注册表。
func NewTypeRegistry(namespace string) *TypeRegistry {
	return &TypeRegistry{
		namespace: namespace,
		types:     make(map[string]*extension.Type),
	}
}

// Namespace returns the namespace served by the registry.
func (r *TypeRegistry) Namespace() string {
	return r.namespace
}

// Register defines a type with the given constructors.
// Returns an error if the type is invalid or already registered.
// Register 使用给定的构造函数定义一个类型。
// 如果类型非法或已注册，则返回错误。
func (r *TypeRegistry) Register(name string, constructors ...any) (*extension.Type, error) {
	return r.RegisterWithOrdinal(name, 0, constructors...)
}

// RegisterWithOrdinal is like Register and sets the listing ordinal, lower comes first.
// RegisterWithOrdinal 与 Register 相同，并设置列表序号，序号越小越靠前。
func (r *TypeRegistry) RegisterWithOrdinal(name string, ordinal int, constructors ...any) (*extension.Type, error) {
	t, err := extension.NewType(r.namespace, name, constructors...)
	if err != nil {
		return nil, err
	}
	t.Ordinal = ordinal

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return nil, extension.NewError(t.Key(), "define", extension.ErrInvalidType,
			fmt.Errorf("type already registered: %s", name))
	}
	r.types[name] = t
	r.order = append(r.order, name)
	return t, nil
}

// MustRegister is like Register but panics if the type cannot be registered.
// MustRegister 与 Register 相同，但注册失败时触发 panic。
func (r *TypeRegistry) MustRegister(name string, constructors ...any) *extension.Type {
	t, err := r.Register(name, constructors...)
	if err != nil {
		panic(err)
	}
	return t
}

// Load returns the type registered under name.
// Load 返回以指定名称注册的类型。
func (r *TypeRegistry) Load(name string) (*extension.Type, error) {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		key := name
		if r.namespace != "" {
			key = r.namespace + extension.KeySeparator + name
		}
		return nil, extension.NewError(key, "load", extension.ErrLoad,
			fmt.Errorf("type not found in namespace %q", r.namespace))
	}
	return t, nil
}

// Names returns the registered type names by ordinal, then registration order.
// Names 按序号及注册顺序返回已注册的类型名称。
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.SliceStable(names, func(i, j int) bool {
		return r.types[names[i]].Ordinal < r.types[names[j]].Ordinal
	})
	return names
}

// Unregister removes a type from the registry.
// Unregister 从注册表中移除一个类型。
func (r *TypeRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; !ok {
		return
	}
	delete(r.types, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// HasType checks if a type is registered under name.
// HasType 检查指定名称的类型是否已注册。
func (r *TypeRegistry) HasType(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}
