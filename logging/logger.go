// Package logging provides the minimal Logger interface every stockmesh
// package depends on, a zerolog-backed implementation for binaries and a
// NoOpLogger for libraries and tests.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines the minimal logging interface. Args are alternating
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config configures the process logger.
type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
}

// ZerologLogger adapts zerolog.Logger to Logger.
type ZerologLogger struct {
	z zerolog.Logger
}

// NewZerolog wraps an existing zerolog.Logger.
func NewZerolog(z zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{z: z}
}

// New builds a zerolog logger writing to stdout. PrettyFormat switches to
// the human readable console writer.
func New(cfg Config) *ZerologLogger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg Config, w io.Writer) *ZerologLogger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := w
	if cfg.PrettyFormat {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	z := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.Debug {
		z = z.With().Caller().Logger()
	}
	return NewZerolog(z)
}

// With returns a child logger carrying the given key/value pairs on every
// entry.
func (l *ZerologLogger) With(args ...any) *ZerologLogger {
	return &ZerologLogger{z: l.z.With().Fields(args).Logger()}
}

// Zerolog exposes the underlying logger.
func (l *ZerologLogger) Zerolog() zerolog.Logger { return l.z }

// Debug logs at debug level.
func (l *ZerologLogger) Debug(msg string, args ...any) { l.z.Debug().Fields(args).Msg(msg) }

// Info logs at info level.
func (l *ZerologLogger) Info(msg string, args ...any) { l.z.Info().Fields(args).Msg(msg) }

// Warn logs at warn level.
func (l *ZerologLogger) Warn(msg string, args ...any) { l.z.Warn().Fields(args).Msg(msg) }

// Error logs at error level.
func (l *ZerologLogger) Error(msg string, args ...any) { l.z.Error().Fields(args).Msg(msg) }

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// Debug discards the message.
func (NoOpLogger) Debug(string, ...any) {}

// Info discards the message.
func (NoOpLogger) Info(string, ...any) {}

// Warn discards the message.
func (NoOpLogger) Warn(string, ...any) {}

// Error discards the message.
func (NoOpLogger) Error(string, ...any) {}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}
