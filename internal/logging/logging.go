// Package logging provides structured logging for tasklens.
// Records are written with zerolog; file output is rotated by lumberjack.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents a log level.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level that gets written.
	Level Level

	// JSON selects JSON console output instead of the human readable writer.
	// File output is always JSON.
	JSON bool

	// FilePath is the rotated log file. Empty disables file output.
	FilePath string

	// Rotation settings, see lumberjack.Logger.
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool

	// Console writes to stderr. When neither a file nor the console is
	// enabled the logger discards everything (used while the TUI owns the
	// terminal).
	Console bool
}

// DefaultConfig returns the configuration used before Init is called.
func DefaultConfig() *Config {
	return &Config{
		Level:      WarnLevel,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     7,
		Compress:   true,
		Console:    true,
	}
}

// DefaultFilePath returns the log file location under the user's state dir.
func DefaultFilePath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "tasklens", "tasklens.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tasklens.log")
	}
	return filepath.Join(home, ".local", "state", "tasklens", "tasklens.log")
}

// Logger wraps zerolog.Logger and remembers the provider and command it
// was scoped to.
type Logger struct {
	zl       zerolog.Logger
	provider string
	command  string
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
	loggerMu     sync.RWMutex
)

// Init replaces the global logger. A nil cfg means DefaultConfig.
func Init(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var writers []io.Writer

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	if cfg.Console {
		if cfg.JSON {
			writers = append(writers, os.Stderr)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.Kitchen,
			})
		}
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = zerolog.MultiLevelWriter(writers...)
	}

	setGlobal(zerolog.New(output).Level(cfg.Level).With().Timestamp().Logger())
	return nil
}

// InitWithWriter points the global logger at w. Used by tests.
func InitWithWriter(w io.Writer, level Level) {
	setGlobal(zerolog.New(w).Level(level).With().Timestamp().Logger())
}

// New returns a standalone logger writing JSON records to w.
func New(w io.Writer, level Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func setGlobal(zl zerolog.Logger) {
	loggerMu.Lock()
	globalLogger = &Logger{zl: zl}
	loggerMu.Unlock()
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() *Logger {
	loggerOnce.Do(func() {
		loggerMu.RLock()
		ready := globalLogger != nil
		loggerMu.RUnlock()
		if !ready {
			_ = Init(nil)
		}
	})

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}

func (l *Logger) derive(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl, provider: l.provider, command: l.command}
}

// WithProvider scopes the logger to a task provider.
func (l *Logger) WithProvider(name string) *Logger {
	out := l.derive(l.zl.With().Str("provider", name).Logger())
	out.provider = name
	return out
}

// WithCommand scopes the logger to a CLI command.
func (l *Logger) WithCommand(command string) *Logger {
	out := l.derive(l.zl.With().Str("command", command).Logger())
	out.command = command
	return out
}

// WithField returns a new logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.derive(l.zl.With().Interface(key, value).Logger())
}

// WithFields returns a new logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return l.derive(ctx.Logger())
}

// WithError returns a new logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.zl.With().Err(err).Logger())
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string) { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string) { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.zl.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{}) { l.zl.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{}) { l.zl.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.zl.Error().Msgf(format, args...) }

// ParseLevel parses a level string into a Level.
func ParseLevel(level string) (Level, error) {
	return zerolog.ParseLevel(level)
}

// Package-level helpers over the global logger.

func Debug(msg string) { Get().Debug(msg) }
func Info(msg string) { Get().Info(msg) }
func Warn(msg string) { Get().Warn(msg) }
func Error(msg string) { Get().Error(msg) }

func Debugf(format string, args ...interface{}) { Get().Debugf(format, args...) }
func Infof(format string, args ...interface{}) { Get().Infof(format, args...) }
func Warnf(format string, args ...interface{}) { Get().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Get().Errorf(format, args...) }

func WithProvider(name string) *Logger { return Get().WithProvider(name) }
func WithCommand(command string) *Logger { return Get().WithCommand(command) }
func WithField(key string, value interface{}) *Logger { return Get().WithField(key, value) }
func WithFields(fields map[string]interface{}) *Logger { return Get().WithFields(fields) }
func WithError(err error) *Logger { return Get().WithError(err) }

// LoggingConfig mirrors the `log` section of the config file.
type LoggingConfig struct {
	Level      string
	FilePath   string
	JSON       bool
	Console    bool
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// InitFromLogConfig initializes the global logger from a LoggingConfig.
func InitFromLogConfig(lc LoggingConfig) error {
	cfg := DefaultConfig()

	if lc.Level != "" {
		level, err := ParseLevel(lc.Level)
		if err != nil {
			return err
		}
		cfg.Level = level
	}

	cfg.FilePath = lc.FilePath
	cfg.JSON = lc.JSON
	cfg.Console = lc.Console

	if lc.MaxSize > 0 {
		cfg.MaxSize = lc.MaxSize
	}
	if lc.MaxBackups > 0 {
		cfg.MaxBackups = lc.MaxBackups
	}
	if lc.MaxAge > 0 {
		cfg.MaxAge = lc.MaxAge
	}
	cfg.Compress = lc.Compress

	return Init(cfg)
}
