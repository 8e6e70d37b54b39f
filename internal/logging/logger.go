package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. It discards everything until
// SetGlobalLogger installs a configured one.
var Logger = zerolog.Nop()

// SetGlobalLogger replaces Logger and makes it the fallback for contexts
// that carry no request logger.
func SetGlobalLogger(logger zerolog.Logger) {
	Logger = logger
	zerolog.DefaultContextLogger = &Logger
}

// New creates a logger writing JSON lines to w at the named level.
// "console" as format switches to zerolog's human-readable writer.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stderr
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func Info() *zerolog.Event { return Logger.Info() }

// Fatal logs and exits once the event is sent.
func Fatal() *zerolog.Event { return Logger.Fatal() }

// Ctx returns the request logger stored in ctx, or Logger.
func Ctx(ctx context.Context) *zerolog.Logger { return zerolog.Ctx(ctx) }
