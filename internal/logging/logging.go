// Package logging sets up the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default slog logger. Format "pretty" selects a colorized
// human-readable handler for local development; anything else gets JSON.
// Called once at startup; components take the logger from slog.Default.
func Setup(out io.Writer, format string) {
	var handler slog.Handler
	switch format {
	case "pretty":
		handler = tint.NewHandler(out, &tint.Options{
			TimeFormat: time.TimeOnly,
		})
	default:
		handler = slog.NewJSONHandler(out, nil)
	}
	slog.SetDefault(slog.New(handler))
}
