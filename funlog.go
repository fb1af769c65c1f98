package funlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// EnvLevel names the environment variable read for the initial level.
const EnvLevel = "FUNLOG_LEVEL"

var (
	mu      sync.RWMutex
	logger  = defaultLogger(os.Getenv(EnvLevel))
	console io.Writer = os.Stdout
)

func defaultLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.TraceLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// SetLogger replaces the logger used by the leveled functions.
//
//nolint:gocritic // zerolog.Logger is passed by value
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Logger returns a copy of the current leveled logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetConsole replaces the writer used by Printf. A nil writer discards
// output.
func SetConsole(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	mu.Lock()
	defer mu.Unlock()
	console = w
}

// Tracef logs a formatted message at trace level on the leveled logger.
func Tracef(format string, args ...any) {
	l := Logger()
	l.Trace().Msgf(format, args...)
}

// Debugf logs a formatted message at debug level on the leveled logger.
func Debugf(format string, args ...any) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

// Infof logs a formatted message at info level on the leveled logger.
func Infof(format string, args ...any) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

// Warnf logs a formatted message at warn level on the leveled logger.
func Warnf(format string, args ...any) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}

// Errorf logs a formatted message at error level on the leveled logger.
func Errorf(format string, args ...any) {
	l := Logger()
	l.Error().Msgf(format, args...)
}

// Printf writes one line to the console writer. Lines from concurrent
// callers are never interleaved.
func Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	mu.Lock()
	defer mu.Unlock()
	_, _ = io.WriteString(console, line)
}
