package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines a minimal, printf-style logging contract. Components depend
// on this interface so tests can swap in Nop() without touching sinks.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

var (
	rootOnce sync.Once
	rootSink *sink
)

// sink is the shared write target behind every component logger.
type sink struct {
	mu     sync.Mutex
	logger *log.Logger
	level  Level
}

func rootLog() *sink {
	rootOnce.Do(func() {
		out := io.Writer(os.Stderr)
		if home, err := os.UserHomeDir(); err == nil {
			logPath := filepath.Join(home, "pearl-debug.log")
			if file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
				out = io.MultiWriter(os.Stderr, file)
			}
		}
		rootSink = &sink{
			logger: log.New(out, "", 0),
			level:  INFO,
		}
	})
	return rootSink
}

// SetLevel sets the minimum level for the process-wide log sink.
func SetLevel(level Level) {
	s := rootLog()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// componentLogger prefixes every line with a component tag.
type componentLogger struct {
	sink      *sink
	component string
}

// NewComponentLogger returns the default application logger scoped to a component.
func NewComponentLogger(component string) Logger {
	return &componentLogger{sink: rootLog(), component: component}
}

func (l *componentLogger) write(level Level, format string, args ...any) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if level < l.sink.level {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, args...)
	l.sink.logger.Printf("[%s] [%s] [%s] %s", timestamp, level, l.component, message)
}

func (l *componentLogger) Debug(format string, args ...any) { l.write(DEBUG, format, args...) }
func (l *componentLogger) Info(format string, args ...any)  { l.write(INFO, format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.write(WARN, format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.write(ERROR, format, args...) }
