package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the process-wide logger. Development mode writes
// human-readable console lines instead of JSON.
func Init(level string, development bool) {
	var out io.Writer = os.Stdout
	if development {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	base = zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger()
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	base = base.Output(w)
}

// Get returns the underlying structured logger for callers that want fields.
func Get() *zerolog.Logger {
	return &base
}

func Info(format string, v ...interface{}) {
	base.Info().CallerSkipFrame(1).Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	base.Error().CallerSkipFrame(1).Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	base.Debug().CallerSkipFrame(1).Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	base.Warn().CallerSkipFrame(1).Msgf(format, v...)
}

// LogTradeError records a settlement step failure with its trade id.
func LogTradeError(tradeID, action string, err error) {
	base.Warn().
		Str("trade_id", tradeID).
		Str("action", action).
		Err(err).
		Msg("trade step failed")
}
