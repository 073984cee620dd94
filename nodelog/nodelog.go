// Package nodelog configures the structured JSON logger shared across
// the node's components.
package nodelog

import (
	"log/slog"
	"os"
)

// New returns a JSON slog.Logger tagged with service, renaming the
// default attribute keys to timestamp/severity/message.
func New(service string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
			case slog.LevelKey:
				a.Key = "severity"
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
	return slog.New(handler).With("service", service)
}
