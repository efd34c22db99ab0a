package app

import (
	"fmt"
	"sort"

	"github.com/go-lynx/lynx-di/plugins"
)

// PluginWithLevel represents a plugin with its dependency level in the topology.
// PluginWithLevel 表示一个带有拓扑依赖级别的插件。
type PluginWithLevel struct {
	plugins.Plugin
	level int
}

// Level returns the dependency level, 1 for plugins without dependencies.
func (p PluginWithLevel) Level() int {
	return p.level
}

// TopologicalSort sorts plugins so that every plugin comes after its dependencies.
// TopologicalSort 根据插件的依赖关系对插件列表进行拓扑排序，被依赖的插件排在前面。
//
// Plugins at the same level are ordered by descending weight, then by input order.
// Missing optional dependencies are ignored; a missing required dependency or a
// cycle is an error.
// 同一级别的插件按权重降序排列，权重相同时保持输入顺序。
// 缺少的可选依赖会被忽略，缺少必需依赖或存在循环依赖时返回错误。
func TopologicalSort(pluginList []plugins.Plugin) ([]PluginWithLevel, error) {
	// Build a map from plugin ID to the actual plugin instance
	// 构建一个从插件 ID 到实际插件实例的映射
	idToPlugin := make(map[string]plugins.Plugin, len(pluginList))
	// input position, used to keep equal weights stable
	position := make(map[string]int, len(pluginList))
	for i, p := range pluginList {
		if p != nil {
			idToPlugin[p.ID()] = p
			position[p.ID()] = i
		}
	}

	// Build the dependency graph as an adjacency list
	// 以邻接表的形式构建依赖图
	graph := make(map[string][]string)
	for _, p := range pluginList {
		depAware, ok := p.(plugins.DependencyAware)
		if !ok || p == nil {
			continue
		}
		for _, dep := range depAware.GetDependencies() {
			if dep.ID == "" {
				return nil, fmt.Errorf("plugin %s has an invalid dependency with empty ID", p.ID())
			}
			if _, exists := idToPlugin[dep.ID]; !exists {
				if dep.Required {
					return nil, fmt.Errorf("%w: plugin %s requires missing plugin %s",
						plugins.ErrPluginDependencyNotMet, p.ID(), dep.ID)
				}
				// Skip optional dependencies that are not available
				// 跳过不可用的可选依赖
				continue
			}
			graph[p.ID()] = append(graph[p.ID()], dep.ID)
		}
	}

	// Perform topological sort using depth-first search
	// 使用深度优先搜索进行拓扑排序
	byLevel := make(map[int][]PluginWithLevel)
	visited := make(map[string]bool)
	level := make(map[string]int)
	inProgress := make(map[string]bool)

	var visit func(string) error
	visit = func(id string) error {
		if inProgress[id] {
			return fmt.Errorf("%w: cyclic dependency detected for plugin %s", plugins.ErrPluginDependencyNotMet, id)
		}
		if visited[id] {
			return nil
		}

		inProgress[id] = true
		defer func() { inProgress[id] = false }()

		maxLevel := 0
		// Visit all dependencies first
		// 先访问所有依赖
		for _, dep := range graph[id] {
			if err := visit(dep); err != nil {
				return err
			}
			if level[dep] > maxLevel {
				maxLevel = level[dep]
			}
		}

		level[id] = maxLevel + 1
		byLevel[level[id]] = append(byLevel[level[id]], PluginWithLevel{Plugin: idToPlugin[id], level: level[id]})
		visited[id] = true
		return nil
	}

	for _, p := range pluginList {
		if p == nil {
			continue
		}
		if err := visit(p.ID()); err != nil {
			return nil, fmt.Errorf("failed to sort plugins: %w", err)
		}
	}

	// Flatten and sort each level group by descending weight
	// 将每个级别的分组按权重降序排序并扁平化结果
	levels := make([]int, 0, len(byLevel))
	for lvl := range byLevel {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)

	result := make([]PluginWithLevel, 0, len(idToPlugin))
	for _, lvl := range levels {
		group := byLevel[lvl]
		sort.SliceStable(group, func(i, j int) bool {
			wi, wj := group[i].Weight(), group[j].Weight()
			if wi != wj {
				return wi > wj // Higher weight comes first
			}
			return position[group[i].ID()] < position[group[j].ID()]
		})
		result = append(result, group...)
	}
	return result, nil
}
