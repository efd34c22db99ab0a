package plugins

// Dependency describes a plugin that must be started before the dependent one.
// Dependency 描述插件之间的依赖关系，被依赖的插件先启动。
type Dependency struct {
	// ID of the plugin depended on
	// 依赖插件的唯一标识符
	ID string `json:"id"`

	// Required dependencies must be present; optional ones only affect ordering when present.
	// 必需依赖必须存在，可选依赖存在时只影响启动顺序。
	Required bool `json:"required"`

	// Description 依赖描述
	Description string `json:"description"`
}

// Requires is shorthand for a required dependency.
func Requires(id string) Dependency {
	return Dependency{ID: id, Required: true}
}

// After is shorthand for an optional dependency.
func After(id string) Dependency {
	return Dependency{ID: id}
}
