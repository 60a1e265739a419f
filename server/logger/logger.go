package logger

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Logger is a leveled, namespaced logger with structured context.
type Logger interface {
	// Level returns the configured level for the current namespace.
	Level() Level

	Namespace() string

	// IsLevelEnabled returns true when level is enabled, false otherwise.
	IsLevelEnabled(level Level) bool

	// Trace adds a log entry with level trace.
	Trace(message string, ctx Ctx) (int, error)

	// Debug adds a log entry with level debug.
	Debug(message string, ctx Ctx) (int, error)

	// Info adds a log entry with level info.
	Info(message string, ctx Ctx) (int, error)

	// Warn adds a log entry with level warn.
	Warn(message string, ctx Ctx) (int, error)

	// Error adds a log entry with level error.
	Error(message string, err error, ctx Ctx) (int, error)

	// WithCtx returns a new Logger with ctx appended to existing context.
	WithCtx(Ctx) Logger

	// WithFormatter returns a new Logger with formatter set.
	WithFormatter(Formatter) Logger

	// WithWriter returns a new Logger with writer set.
	WithWriter(io.Writer) Logger

	// WithNamespaceAppended returns a new Logger with namespace appended.
	WithNamespaceAppended(namespace string) Logger

	// WithConfig returns a new Logger with config set.
	WithConfig(config Config) Logger
}

// logger writes formatted entries to its writer when the configured level
// allows it.
type logger struct {
	config    Config
	ctx       Ctx
	formatter Formatter
	namespace string
	writer    io.Writer
}

// New returns a new Logger with the default StringFormatter and logging
// disabled. Use WithConfig to set levels per namespace.
func New() Logger {
	return &logger{
		config:    LevelDisabled,
		ctx:       nil,
		formatter: NewStringFormatter(StringFormatterParams{}),
		namespace: "",
		writer:    os.Stderr,
	}
}

// NewFromEnv returns a new Logger configured from the environment variable
// named key.
func NewFromEnv(key string) Logger {
	return New().WithConfig(NewConfigMapFromString(os.Getenv(key)))
}

var _ Logger = &logger{}

func (l *logger) WithCtx(ctx Ctx) Logger {
	dup := *l
	dup.ctx = l.ctx.WithCtx(ctx)

	return &dup
}

func (l *logger) WithFormatter(formatter Formatter) Logger {
	dup := *l
	dup.formatter = formatter

	return &dup
}

func (l *logger) WithWriter(writer io.Writer) Logger {
	dup := *l
	dup.writer = writer

	return &dup
}

func (l *logger) WithNamespaceAppended(namespace string) Logger {
	if l.namespace != "" {
		namespace = l.namespace + ":" + namespace
	}

	dup := *l
	dup.namespace = namespace

	return &dup
}

func (l *logger) WithConfig(config Config) Logger {
	if config == nil {
		return l
	}

	dup := *l
	dup.config = config

	return &dup
}

func (l *logger) Namespace() string {
	return l.namespace
}

func (l *logger) Level() Level {
	return l.config.LevelForNamespace(l.namespace)
}

func (l *logger) IsLevelEnabled(level Level) bool {
	configuredLevel := l.Level()

	return configuredLevel > 0 && level <= configuredLevel
}

func (l *logger) Trace(message string, ctx Ctx) (int, error) {
	return l.log(time.Now(), LevelTrace, message, ctx)
}

func (l *logger) Debug(message string, ctx Ctx) (int, error) {
	return l.log(time.Now(), LevelDebug, message, ctx)
}

func (l *logger) Info(message string, ctx Ctx) (int, error) {
	return l.log(time.Now(), LevelInfo, message, ctx)
}

func (l *logger) Warn(message string, ctx Ctx) (int, error) {
	return l.log(time.Now(), LevelWarn, message, ctx)
}

func (l *logger) Error(message string, err error, ctx Ctx) (int, error) {
	if err != nil {
		if message != "" {
			message = fmt.Sprintf("%s: %+v", message, err)
		} else {
			message = fmt.Sprintf("%+v", err)
		}
	}

	return l.log(time.Now(), LevelError, message, ctx)
}

func (l *logger) log(ts time.Time, level Level, message string, ctx Ctx) (int, error) {
	if !l.IsLevelEnabled(level) {
		return 0, nil
	}

	formatted, err := l.formatter.Format(Message{
		Timestamp: ts,
		Namespace: l.namespace,
		Level:     level,
		Body:      message,
		Ctx:       l.ctx.WithCtx(ctx),
	})
	if err != nil {
		return 0, fmt.Errorf("log format error: %w", err)
	}

	i, err := l.writer.Write(formatted)
	if err != nil {
		return i, fmt.Errorf("log write error: %w", err)
	}

	return i, nil
}
