package log

import (
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/rs/zerolog"
)

// levels maps kratos levels onto zerolog, unknown levels log at warn.
var levels = map[log.Level]zerolog.Level{
	log.LevelDebug: zerolog.DebugLevel,
	log.LevelInfo:  zerolog.InfoLevel,
	log.LevelWarn:  zerolog.WarnLevel,
	log.LevelError: zerolog.ErrorLevel,
	log.LevelFatal: zerolog.FatalLevel,
}

// sink is the kratos logger writing through zerolog. The kratos message key
// becomes the zerolog message and error values go to the error field.
type sink struct {
	zl zerolog.Logger
}

func newSink(zl zerolog.Logger) sink {
	return sink{zl: zl}
}

// Log implements log.Logger.
func (s sink) Log(level log.Level, keyvals ...any) error {
	zlevel, known := levels[level]
	if !known {
		zlevel = zerolog.WarnLevel
	}
	event := s.zl.WithLevel(zlevel)
	if event == nil {
		return nil
	}
	if !known {
		event.Str("kratos_level", level.String())
	}

	var msg string
	for i := 0; i < len(keyvals); i += 2 {
		key := fieldName(keyvals[i], i)
		if i+1 == len(keyvals) {
			// a dangling key is kept as a value of its own
			event.Interface("extra", keyvals[i])
			break
		}
		val := keyvals[i+1]
		switch {
		case key == log.DefaultMessageKey:
			msg = fmt.Sprint(val)
		default:
			addField(event, key, val)
		}
	}
	event.Msg(msg)
	return nil
}

func fieldName(k any, pos int) string {
	if s, ok := k.(string); ok {
		return s
	}
	if s, ok := k.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("key%d", pos)
}

func addField(event *zerolog.Event, key string, val any) {
	switch v := val.(type) {
	case error:
		if key == "err" || key == "error" {
			event.Err(v)
			return
		}
		event.AnErr(key, v)
	case string:
		event.Str(key, v)
	case int:
		event.Int(key, v)
	case bool:
		event.Bool(key, v)
	case time.Duration:
		event.Dur(key, v)
	case []string:
		event.Strs(key, v)
	default:
		event.Interface(key, v)
	}
}
