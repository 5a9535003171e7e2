package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin structured wrapper over zerolog shared by every component.
type Logger struct {
	zlog zerolog.Logger
	file *os.File
}

// builder collects options before the zerolog instance is assembled.
type builder struct {
	level   zerolog.Level
	writers []io.Writer
	file    *os.File
}

type Option func(*builder) error

// WithConsole enables human readable console logging on stderr.
func WithConsole() Option {
	return func(b *builder) error {
		b.writers = append(b.writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
		return nil
	}
}

// WithLevel sets the minimum logging level.
func WithLevel(level zerolog.Level) Option {
	return func(b *builder) error {
		b.level = level
		return nil
	}
}

// WithFile appends log output to path, creating parent directories.
func WithFile(path string) Option {
	return func(b *builder) error {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		b.file = f
		b.writers = append(b.writers, zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
		return nil
	}
}

// WithWriter sends raw JSON events to w.
func WithWriter(w io.Writer) Option {
	return func(b *builder) error {
		b.writers = append(b.writers, w)
		return nil
	}
}

// New creates a logger. Without output options it writes JSON to stderr.
func New(opts ...Option) (*Logger, error) {
	b := &builder{level: zerolog.InfoLevel}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			if b.file != nil {
				b.file.Close()
			}
			return nil, fmt.Errorf("failed to apply logger option: %w", err)
		}
	}

	var out io.Writer = os.Stderr
	switch len(b.writers) {
	case 0:
	case 1:
		out = b.writers[0]
	default:
		out = zerolog.MultiLevelWriter(b.writers...)
	}

	return &Logger{
		zlog: zerolog.New(out).Level(b.level).With().Timestamp().Logger(),
		file: b.file,
	}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// ParseLevel maps a config string onto a zerolog level.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// With returns a child logger carrying an extra field.
func (l *Logger) With(key string, value any) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l != nil && l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Debug(msg string, fields ...any) {
	l.emit(l.zlog.Debug(), msg, nil, fields)
}

func (l *Logger) Info(msg string, fields ...any) {
	l.emit(l.zlog.Info(), msg, nil, fields)
}

func (l *Logger) Warn(msg string, fields ...any) {
	l.emit(l.zlog.Warn(), msg, nil, fields)
}

// Error logs msg at error level with err attached when non-nil.
func (l *Logger) Error(msg string, err error, fields ...any) {
	l.emit(l.zlog.Error(), msg, err, fields)
}

func (l *Logger) emit(event *zerolog.Event, msg string, err error, fields []any) {
	// Disabled levels hand back a nil event.
	if event == nil {
		return
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		event = event.Str("file", filepath.Base(file)).Int("line", line)
	}
	if err != nil {
		event = event.Err(err)
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}
