// Package logger wraps a process-wide zerolog logger and carries
// request-scoped loggers through a context.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type loggerKey struct{}

var globalLogger zerolog.Logger

func init() {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}
	Setup(os.Stderr, os.Getenv("LOG_LEVEL"))
}

// Setup replaces the global logger. An empty or invalid level means info.
func Setup(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	hostname, _ := os.Hostname()
	globalLogger = zerolog.New(w).With().
		Timestamp().
		Str("hostname", hostname).
		Caller().
		Logger().
		Level(lvl)
	log.Logger = globalLogger

	if err != nil && level != "" {
		globalLogger.Warn().Str("log_level", level).Msg("invalid log level, defaulting to info")
	}
}

// Console switches the global logger to human-readable output.
func Console(w io.Writer) {
	globalLogger = globalLogger.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
	log.Logger = globalLogger
}

// Ctx returns the logger stored in ctx, or the global logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok {
			return l
		}
	}
	return &globalLogger
}

func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Global returns a copy of the process-wide logger.
func Global() zerolog.Logger {
	return globalLogger
}

// SetLevel updates the global log level
func SetLevel(level zerolog.Level) {
	globalLogger = globalLogger.Level(level)
	log.Logger = globalLogger
}

func Fatal() *zerolog.Event {
	return globalLogger.Fatal()
}

func Error() *zerolog.Event {
	return globalLogger.Error()
}

func Warn() *zerolog.Event {
	return globalLogger.Warn()
}

func Info() *zerolog.Event {
	return globalLogger.Info()
}

func Debug() *zerolog.Event {
	return globalLogger.Debug()
}
