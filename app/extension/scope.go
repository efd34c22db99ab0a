package extension

// Resolver decides which container, if any, owns an extension type.
type Resolver interface {
	Resolve(t *Type) (Container, bool)
}

// ScopeResolver resolves the owning container of a type.
//
// A plugin's own container always wins, so a plugin extension is wired against the
// plugin's beans, including those the host cannot see. The host container is the
// fallback when the host is container-managed.
type ScopeResolver struct {
	plugins PluginRegistry
	host    Container
}

// NewScopeResolver creates a resolver. Both arguments may be nil: a nil registry
// means no type is plugin-owned, a nil host means the host is not container-managed.
func NewScopeResolver(plugins PluginRegistry, host Container) *ScopeResolver {
	return &ScopeResolver{plugins: plugins, host: host}
}

// Resolve returns the container owning t.
func (r *ScopeResolver) Resolve(t *Type) (Container, bool) {
	if t == nil {
		return nil, false
	}
	if r.plugins != nil {
		if p, ok := r.plugins.WhichPlugin(t); ok && p != nil {
			if c, ok := p.Container(); ok && c != nil {
				return c, true
			}
		}
	}
	if r.host != nil {
		return r.host, true
	}
	return nil, false
}
