// Package log provides the leveled logger abstraction used throughout
// bincompat. It keeps the small Logger/Helper/Filter shape the loader
// package expects from its upstream sibling, rebuilt locally since the
// analyzer no longer depends on the PE-dumping tool that package served.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is the severity of a log record.
type Level int8

// Log levels, lowest to highest severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the level's name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every log record is written through.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// stdLogger writes records to an io.Writer, one line per record.
type stdLogger struct {
	mu  sync.Mutex
	out io.Writer
}

// NewStdLogger returns a Logger that writes "time level key=val ..." lines.
func NewStdLogger(out io.Writer) Logger {
	return &stdLogger{out: out}
}

func (l *stdLogger) Log(level Level, keyvals ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf := fmt.Sprintf("%s level=%s", time.Now().Format(time.RFC3339), level)
	for i := 0; i+1 < len(keyvals); i += 2 {
		buf += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	buf += "\n"
	_, err := io.WriteString(l.out, buf)
	return err
}

// Discard is a Logger that drops every record.
var Discard Logger = discard{}

type discard struct{}

func (discard) Log(Level, ...interface{}) error { return nil }

// filter wraps a Logger and drops records below a minimum level.
type filter struct {
	logger Logger
	level  Level
}

// FilterOption configures a Filter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level a record must have to pass through.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) { f.level = level }
}

// NewFilter wraps logger with the given options.
func NewFilter(logger Logger, opts ...FilterOption) Logger {
	f := &filter{logger: logger, level: LevelDebug}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.level {
		return nil
	}
	return f.logger.Log(level, keyvals...)
}

// Helper adds printf-style convenience methods on top of a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger in a Helper.
func NewHelper(logger Logger) *Helper {
	if logger == nil {
		logger = Discard
	}
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, format string, args ...interface{}) {
	_ = h.logger.Log(level, "msg", fmt.Sprintf(format, args...))
}

// Debugf logs at LevelDebug.
func (h *Helper) Debugf(format string, args ...interface{}) { h.log(LevelDebug, format, args...) }

// Infof logs at LevelInfo.
func (h *Helper) Infof(format string, args ...interface{}) { h.log(LevelInfo, format, args...) }

// Warnf logs at LevelWarn.
func (h *Helper) Warnf(format string, args ...interface{}) { h.log(LevelWarn, format, args...) }

// Errorf logs at LevelError.
func (h *Helper) Errorf(format string, args ...interface{}) { h.log(LevelError, format, args...) }

// Warn logs a single message at LevelWarn.
func (h *Helper) Warn(msg string) { h.log(LevelWarn, "%s", msg) }

// Debug logs a single message at LevelDebug.
func (h *Helper) Debug(msg string) { h.log(LevelDebug, "%s", msg) }

// Fatalf logs at LevelFatal then exits the process, mirroring the
// upstream log.Helper behavior the loader was written against.
func (h *Helper) Fatalf(format string, args ...interface{}) {
	h.log(LevelFatal, format, args...)
	os.Exit(1)
}
