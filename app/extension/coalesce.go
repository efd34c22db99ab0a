package extension

import "golang.org/x/sync/singleflight"

type coalescingFactory struct {
	inner Factory
	group singleflight.Group
}

// Coalesce collapses concurrent Create calls for the same type key into one call
// of inner; every waiting caller receives the same result. Combined with a
// SingletonFactory it guarantees a type is constructed at most once:
//
//	f := extension.Coalesce(extension.NewSingletonFactory(extension.NewFactory(resolver)))
func Coalesce(inner Factory) Factory {
	return &coalescingFactory{inner: inner}
}

func (f *coalescingFactory) Create(t *Type) (any, error) {
	if t == nil {
		return f.inner.Create(t)
	}
	v, err, _ := f.group.Do(t.Key(), func() (any, error) {
		return f.inner.Create(t)
	})
	return v, err
}
