package log

import (
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
)

var (
	// loggerStore stores the log.Logger atomically for safe hot-reload updates.
	loggerStore atomic.Value // of loggerHolder
	// helperStore stores *log.Helper atomically.
	helperStore atomic.Value // of *log.Helper
)

type loggerHolder struct {
	logger log.Logger
}

func init() {
	SetLogger(log.DefaultLogger)
}

// SetLogger replaces the global logger.
func SetLogger(logger log.Logger) {
	if logger == nil {
		return
	}
	loggerStore.Store(loggerHolder{logger: logger})
	helperStore.Store(log.NewHelper(logger))
}

// Logger returns the global logger.
func Logger() log.Logger {
	return loggerStore.Load().(loggerHolder).logger
}

func helper() *log.Helper {
	return helperStore.Load().(*log.Helper)
}

// Debugf logs a formatted message at DebugLevel.
func Debugf(format string, a ...any) {
	helper().Debugf(format, a...)
}

// Infof logs a formatted message at InfoLevel.
func Infof(format string, a ...any) {
	helper().Infof(format, a...)
}

// Infow logs key-value pairs at InfoLevel.
func Infow(keyvals ...any) {
	helper().Infow(keyvals...)
}

// Warnf logs a formatted message at WarnLevel.
func Warnf(format string, a ...any) {
	helper().Warnf(format, a...)
}

// Warnw logs key-value pairs at WarnLevel.
func Warnw(keyvals ...any) {
	helper().Warnw(keyvals...)
}

// Errorf logs a formatted message at ErrorLevel.
func Errorf(format string, a ...any) {
	helper().Errorf(format, a...)
}

// Errorw logs key-value pairs at ErrorLevel.
func Errorw(keyvals ...any) {
	helper().Errorw(keyvals...)
}
