package dailylog

import (
	"io"
	"log/slog"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000000"

// NewSystemLogger returns a structured logger for the system channel. Each
// record is one JSON line with {timestamp, level, message, module} keys,
// matching the format of the app-{date}.log stream. Components attach their
// module name with logger.With("module", name).
func NewSystemLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("timestamp", a.Value.Time().Format(timestampLayout))
			case slog.LevelKey:
				return slog.String("level", levelName(a.Value.Any().(slog.Level)))
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
	return slog.New(handler)
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARNING"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// Timestamp formats t the way both log channels render instants.
func Timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}
