package extension

import (
	"strings"
	"sync"
)

// SingletonFactory caches the instances created by an inner factory, keyed by
// Type.Key(). The inner factory is not called again for a cached type.
//
// The cache is optionally restricted to an allow-list of keys; an empty list
// caches every type. Entries live until the factory is dropped or their
// namespace is evicted.
//
// Concurrent first calls for the same type are not serialized and may construct
// it more than once; the first stored instance wins and is returned from then on.
// Callers needing strict at-most-once construction wrap the factory with Coalesce.
type SingletonFactory struct {
	inner Factory
	allow map[string]struct{}

	mu    sync.RWMutex
	cache map[string]any
}

// NewSingletonFactory wraps inner. keys restricts caching to those registration keys.
func NewSingletonFactory(inner Factory, keys ...string) *SingletonFactory {
	f := &SingletonFactory{
		inner: inner,
		cache: make(map[string]any),
	}
	if len(keys) > 0 {
		f.allow = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			f.allow[k] = struct{}{}
		}
	}
	return f
}

// Create returns the cached instance of t, creating it on first use.
func (f *SingletonFactory) Create(t *Type) (any, error) {
	if t == nil {
		return f.inner.Create(t)
	}
	key := t.Key()

	f.mu.RLock()
	instance, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		return instance, nil
	}

	instance, err := f.inner.Create(t)
	if err != nil {
		return nil, err
	}
	if !f.cacheable(key) {
		return instance, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if cached, ok := f.cache[key]; ok {
		return cached, nil
	}
	f.cache[key] = instance
	return instance, nil
}

// Cached reports whether an instance of t is cached.
func (f *SingletonFactory) Cached(t *Type) bool {
	if t == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.cache[t.Key()]
	return ok
}

// Evict drops the cached instances of a namespace, "" for host types. The
// instances of a stopped plugin must not outlive it.
func (f *SingletonFactory) Evict(namespace string) int {
	prefix := namespace + "/"
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for key := range f.cache {
		if (namespace == "" && !strings.Contains(key, "/")) ||
			(namespace != "" && strings.HasPrefix(key, prefix)) {
			delete(f.cache, key)
			n++
		}
	}
	return n
}

func (f *SingletonFactory) cacheable(key string) bool {
	if f.allow == nil {
		return true
	}
	_, ok := f.allow[key]
	return ok
}
