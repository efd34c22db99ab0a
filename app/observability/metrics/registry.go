// Package metrics holds the Prometheus collectors of the extension subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PluginInfo describes one activated plugin for the plugin collector.
type PluginInfo struct {
	ID               string
	Version          string
	ContainerManaged bool
	Extensions       int
}

// PluginSource provides the activated plugins at collection time.
type PluginSource interface {
	PluginInfos() []PluginInfo
}

var (
	// Global registry (unified registration for the host and all plugins)
	registry = prometheus.NewRegistry()
	// Additional aggregation sources, e.g. plugins keeping a private *prometheus.Registry
	extraGatherers []prometheus.Gatherer
)

// Registry returns the global registry.
func Registry() *prometheus.Registry {
	return registry
}

// RegisterGatherer allows plugins that keep their own registry to expose it through Handler.
func RegisterGatherer(g prometheus.Gatherer) {
	if g == nil {
		return
	}
	extraGatherers = append(extraGatherers, g)
}

// RegisterCollector registers a Collector to the global registry
func RegisterCollector(c prometheus.Collector) error {
	return registry.Register(c)
}

// MustRegister registers Collectors in batch (will panic if registration fails)
func MustRegister(cs ...prometheus.Collector) {
	registry.MustRegister(cs...)
}

// pluginCollector adapts PluginSource to two metrics:
// - lynx_plugin_active{plugin,version,container} 1 for each activated plugin
// - lynx_plugin_extensions{plugin} number of exported extension types
type pluginCollector struct {
	src PluginSource

	activeDesc     *prometheus.Desc
	extensionsDesc *prometheus.Desc
}

// NewPluginCollector creates a collector that reports activated plugins.
func NewPluginCollector(src PluginSource) prometheus.Collector {
	return &pluginCollector{
		src: src,
		activeDesc: prometheus.NewDesc(
			"lynx_plugin_active",
			"Activated plugin (always 1), labelled with version and whether it owns a container",
			[]string{"plugin", "version", "container"}, nil,
		),
		extensionsDesc: prometheus.NewDesc(
			"lynx_plugin_extensions",
			"Number of extension types exported by an activated plugin",
			[]string{"plugin"}, nil,
		),
	}
}

func (c *pluginCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeDesc
	ch <- c.extensionsDesc
}

func (c *pluginCollector) Collect(ch chan<- prometheus.Metric) {
	for _, p := range c.src.PluginInfos() {
		managed := "false"
		if p.ContainerManaged {
			managed = "true"
		}
		ch <- prometheus.MustNewConstMetric(c.activeDesc, prometheus.GaugeValue, 1, p.ID, p.Version, managed)
		ch <- prometheus.MustNewConstMetric(c.extensionsDesc, prometheus.GaugeValue, float64(p.Extensions), p.ID)
	}
}
