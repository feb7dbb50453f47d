// Package obslog builds the structured logger used by the runtime and group
// packages: log/slog in front of zerolog, so call sites write against the
// standard library's logging interface while output formatting and level
// filtering stay in zerolog's hands.
package obslog

import (
	"log/slog"
	"os"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// New builds a slog.Logger backed by a console-writing zerolog.Logger at the
// given minimum level, with name attached to every record.
func New(name string, level slog.Level) *slog.Logger {
	zl := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).With().Timestamp().Str("component", name).Logger()

	handler := slogzerolog.Option{Level: level, Logger: &zl}.NewZerologHandler()
	return slog.New(handler)
}

// Discard returns a logger that drops every record, for tests and for
// callers that have not configured logging explicitly.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
