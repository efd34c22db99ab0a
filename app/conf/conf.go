// Package conf defines the bootstrap configuration of a container-managed Lynx host.
//
// The structs are filled by kratos config Scan from the "lynx" key:
//
//	lynx:
//	  application:
//	    name: demo
//	    version: v1.0.0
//	  log:
//	    level: info
//	  extensions:
//	    autowire: true
//	    singleton: true
//	    singletons: ["CommonService"]
//	  plugins:
//	    config_dir: ./plugins
//	    container_managed: true
//	    start_timeout: 5s
//	  tracing:
//	    enabled: false
//	    endpoint: localhost:4317
//	  metrics:
//	    addr: :9090
package conf

// Bootstrap is the root of the configuration file.
type Bootstrap struct {
	Lynx Lynx `json:"lynx"`
}

// Lynx groups the framework settings.
type Lynx struct {
	Application Application `json:"application"`
	Log         Log         `json:"log"`
	Extensions  Extensions  `json:"extensions"`
	Plugins     Plugins     `json:"plugins"`
	Tracing     Tracing     `json:"tracing"`
	Metrics     Metrics     `json:"metrics"`
}

// Application identifies the host service.
type Application struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Host    string `json:"host"`

	// CloseBanner hides the startup banner.
	CloseBanner bool `json:"close_banner"`
}

// Log configures the zerolog backed logger.
type Log struct {
	Level         string `json:"level"`
	ConsoleOutput *bool  `json:"console_output"`
	FilePath      string `json:"file_path"`
	MaxSizeMB     int    `json:"max_size_mb"`
	MaxBackups    int    `json:"max_backups"`
	MaxAgeDays    int    `json:"max_age_days"`
	Compress      bool   `json:"compress"`
}

// GetConsoleOutput defaults to true when unset.
func (l Log) GetConsoleOutput() bool {
	if l.ConsoleOutput == nil {
		return true
	}
	return *l.ConsoleOutput
}

// GetLevel defaults to info.
func (l Log) GetLevel() string {
	if l.Level == "" {
		return "info"
	}
	return l.Level
}

// Extensions configures the extension factory.
type Extensions struct {
	// Autowire lets the owning container wire extensions. Defaults to true.
	Autowire *bool `json:"autowire"`

	// Singleton wraps the factory in the singleton cache.
	Singleton bool `json:"singleton"`

	// Singletons restricts caching to these registration keys; empty caches all.
	Singletons []string `json:"singletons"`

	// Coalesce collapses concurrent creations of the same type.
	Coalesce bool `json:"coalesce"`
}

// GetAutowire defaults to true when unset.
func (e Extensions) GetAutowire() bool {
	if e.Autowire == nil {
		return true
	}
	return *e.Autowire
}

// Plugins configures the plugin manager.
type Plugins struct {
	// ConfigDir holds enabled.txt / disabled.txt.
	ConfigDir string `json:"config_dir"`

	// ContainerManaged gives the host its own container and publishes extensions
	// into it after the plugins start. Defaults to true.
	ContainerManaged *bool `json:"container_managed"`

	// UseParentContainer lets plugin containers fall back to host beans.
	UseParentContainer bool `json:"use_parent_container"`

	// StartTimeout and StopTimeout bound a single plugin Start / Stop, as Go
	// durations ("5s"). Default 5s.
	StartTimeout string `json:"start_timeout"`
	StopTimeout  string `json:"stop_timeout"`
}

// GetContainerManaged defaults to true when unset.
func (p Plugins) GetContainerManaged() bool {
	if p.ContainerManaged == nil {
		return true
	}
	return *p.ContainerManaged
}

// Tracing configures the OTLP trace exporter.
type Tracing struct {
	Enabled  bool    `json:"enabled"`
	Endpoint string  `json:"endpoint"`
	Insecure bool    `json:"insecure"`
	Ratio    float64 `json:"ratio"`
}

// GetRatio defaults to sampling everything.
func (t Tracing) GetRatio() float64 {
	if t.Ratio <= 0 || t.Ratio > 1 {
		return 1
	}
	return t.Ratio
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `json:"addr"`
	Path string `json:"path"`
}

// GetPath defaults to /metrics.
func (m Metrics) GetPath() string {
	if m.Path == "" {
		return "/metrics"
	}
	return m.Path
}
