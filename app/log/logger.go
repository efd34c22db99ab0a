// Package log provides the logging system of lynx-di: a Kratos logger backed by zerolog,
// with optional rotated file output.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/go-lynx/lynx-di/app/conf"
)

// Init initializes the application's logging system.
//
// Parameters:
//   - name: The name of the service
//   - version: The service version
//   - cfg: The log section of the bootstrap configuration
//
// Returns:
//   - error: An error if initialization fails, nil otherwise
func Init(name, version string, cfg conf.Log) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	var writers []io.Writer

	if cfg.GetConsoleOutput() {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339Nano,
		})
	}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}

	// no output configured: default to console
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	level, zlevel := ParseLevel(cfg.GetLevel())
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(zlevel)

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	logger := log.With(
		log.NewFilter(newSink(zl), log.FilterLevel(level)),
		"caller", log.Caller(4),
		"service.name", name,
		"service.version", version,
	)
	SetLogger(logger)
	return nil
}

// NewWriterLogger returns a Kratos logger writing JSON lines to w, used by tests and tools.
func NewWriterLogger(w io.Writer, level string) log.Logger {
	lvl, _ := ParseLevel(level)
	zl := zerolog.New(w).With().Timestamp().Logger()
	return log.NewFilter(newSink(zl), log.FilterLevel(lvl))
}

// ParseLevel maps a level name to the Kratos and zerolog levels. Unknown names map to info.
func ParseLevel(level string) (log.Level, zerolog.Level) {
	switch strings.ToLower(level) {
	case "debug":
		return log.LevelDebug, zerolog.DebugLevel
	case "warn", "warning":
		return log.LevelWarn, zerolog.WarnLevel
	case "error":
		return log.LevelError, zerolog.ErrorLevel
	default:
		return log.LevelInfo, zerolog.InfoLevel
	}
}
