package dailylog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSystemLoggerLineFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSystemLogger(&buf, slog.LevelInfo).With("module", "recorder")

	logger.Info("journal insert failed")

	line := strings.TrimRight(buf.String(), "\n")
	if strings.Contains(line, "\n") {
		t.Fatalf("record spans multiple lines: %q", line)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		t.Fatalf("system line is not valid JSON: %v", err)
	}
	if obj["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", obj["level"])
	}
	if obj["message"] != "journal insert failed" {
		t.Errorf("message = %v", obj["message"])
	}
	if obj["module"] != "recorder" {
		t.Errorf("module = %v, want recorder", obj["module"])
	}
	ts, ok := obj["timestamp"].(string)
	if !ok || len(ts) != len("2006-01-02T15:04:05.000000") {
		t.Errorf("timestamp = %v, want microsecond ISO-8601", obj["timestamp"])
	}
}

func TestSystemLoggerLevelNames(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "DEBUG"},
		{slog.LevelInfo, "INFO"},
		{slog.LevelWarn, "WARNING"},
		{slog.LevelError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewSystemLogger(&buf, slog.LevelDebug)
			logger.Log(context.Background(), tt.level, "msg")

			var obj map[string]any
			if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if obj["level"] != tt.want {
				t.Errorf("level = %v, want %s", obj["level"], tt.want)
			}
		})
	}
}
