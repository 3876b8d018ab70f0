// Package logging provides the leveled logger used across the tool. It is a thin
// wrapper around zerolog that keeps the printf-style call sites short.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LevelIds maps levels to their flag values.
var LevelIds = map[Level][]string{
	LevelDebug: {"debug"},
	LevelInfo:  {"info"},
	LevelWarn:  {"warn", "warning"},
	LevelError: {"error"},
}

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

type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// FormatIds maps formats to their flag values.
var FormatIds = map[Format][]string{
	FormatText: {"text"},
	FormatJSON: {"json"},
}

type Config struct {
	Level  Level
	Format Format
	Output io.Writer // Defaults to os.Stderr.
}

type Logger struct {
	zl zerolog.Logger
}

func NewLogger(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.Format == FormatText {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: !IsTerminal(out)}
	}

	return &Logger{zl: zerolog.New(out).Level(cfg.Level.zerolog()).With().Timestamp().Logger()}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that adds key=value to every event.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}
