package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the /metrics HTTP handler over the global registry, the default
// prometheus gatherer and any extra gatherers.
func Handler() http.Handler {
	g := prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	if len(extraGatherers) > 0 {
		g = append(g, extraGatherers...)
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		EnableOpenMetrics:  true,
		DisableCompression: false,
	})
}
