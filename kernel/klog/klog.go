// Package klog provides the kernel's structured logging seam.
//
// Package-level configuration, the same shape eventloop.SetStructuredLogger
// uses: the kernel logs scheduling-relevant events (kernel initialized,
// task created, task blocked, sleeping or relinquished, soft timer
// destroyed) through whatever
// Logger is installed, defaulting to a no-op so the hot path costs nothing
// until a caller opts in.
package klog

import (
	"sync"

	"github.com/rs/zerolog"
)

// Level mirrors the subset of severities the kernel actually emits.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is the structured logging interface the kernel depends on. Fields
// are passed as alternating key/value pairs, following zerolog's own
// event-building convention closely enough that ZerologLogger can forward
// them directly without an intermediate allocation per field.
type Logger interface {
	Log(level Level, msg string, kv ...any)
}

// nopLogger discards everything; it is the default so that an
// unconfigured kernel never pays for logging.
type nopLogger struct{}

func (nopLogger) Log(Level, string, ...any) {}

// ZerologLogger adapts zerolog.Logger to Logger, the same backend
// logiface/zerolog and logiface-zerolog wire into the wider logiface
// abstraction; klog talks to it directly since the kernel's logging needs
// are narrow enough not to warrant the extra layer.
type ZerologLogger struct {
	base zerolog.Logger
}

// NewZerolog wraps an existing zerolog.Logger.
func NewZerolog(base zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{base: base}
}

func (z *ZerologLogger) Log(level Level, msg string, kv ...any) {
	ev := z.base.WithLevel(level.zerolog())
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

var global = struct {
	sync.RWMutex
	logger Logger
}{logger: nopLogger{}}

// SetLogger installs the package-level logger used by the kernel. Passing
// nil restores the no-op default.
func SetLogger(l Logger) {
	global.Lock()
	defer global.Unlock()
	if l == nil {
		l = nopLogger{}
	}
	global.logger = l
}

// Get returns the currently installed logger.
func Get() Logger {
	global.RLock()
	defer global.RUnlock()
	return global.logger
}
