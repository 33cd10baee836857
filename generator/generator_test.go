package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mabletask/telemetry/models"
)

func testConfig(dir string) Config {
	return Config{
		Count:     300,
		OutputDir: dir,
		StartDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local),
		EndDate:   time.Date(2025, 3, 11, 0, 0, 0, 0, time.Local),
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	valid := testConfig(t.TempDir())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero count", func(c *Config) { c.Count = 0 }},
		{"negative count", func(c *Config) { c.Count = -5 }},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }},
		{"end before start", func(c *Config) { c.EndDate = c.StartDate.AddDate(0, 0, -1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := New(cfg, 1); err == nil {
				t.Fatal("expected config error, got nil")
			}
		})
	}
}

func TestSessionChurn(t *testing.T) {
	g, err := New(testConfig(t.TempDir()), 1)
	if err != nil {
		t.Fatal(err)
	}

	// Day one starts from an empty pool.
	g.churnSessions()
	if got := len(g.sessions); got != 100 {
		t.Fatalf("pool after first day = %d, want 100", got)
	}

	// 75 of the 100 are evicted, 100 fresh ones arrive.
	g.churnSessions()
	if got := len(g.sessions); got != 125 {
		t.Fatalf("pool after second day = %d, want 125", got)
	}

	g.churnSessions()
	if got := len(g.sessions); got != 132 {
		t.Fatalf("pool after third day = %d, want 132", got)
	}
}

func TestDailySummaryMatchesEmittedLines(t *testing.T) {
	g, err := New(testConfig(t.TempDir()), 42)
	if err != nil {
		t.Fatal(err)
	}

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	corpus, err := g.generateDay(day, 500)
	if err != nil {
		t.Fatal(err)
	}

	var pageViews, searches, logins int
	for _, line := range corpus.activityLines {
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Fatalf("invalid activity line: %v", err)
		}
		switch obj["event_type"] {
		case models.EventPageView:
			pageViews++
		case models.EventSearch:
			searches++
		case models.EventLoginSuccess:
			logins++
		}
	}

	last := corpus.systemLines[len(corpus.systemLines)-1]
	var rec systemRecord
	if err := json.Unmarshal([]byte(last), &rec); err != nil {
		t.Fatalf("invalid summary line: %v", err)
	}
	if rec.Module != "stats" {
		t.Errorf("summary module = %q, want stats", rec.Module)
	}
	if !strings.HasPrefix(rec.Timestamp, "2025-03-10T23:59:59") {
		t.Errorf("summary timestamp = %q, want end of day", rec.Timestamp)
	}

	var gotPV, gotSearch, gotLogin int
	_, err = fmt.Sscanf(rec.Message, "daily activity summary: page_view=%d search=%d login_success=%d",
		&gotPV, &gotSearch, &gotLogin)
	if err != nil {
		t.Fatalf("unparseable summary message %q: %v", rec.Message, err)
	}
	if gotPV != pageViews || gotSearch != searches || gotLogin != logins {
		t.Errorf("summary counts %d/%d/%d, emitted %d/%d/%d",
			gotPV, gotSearch, gotLogin, pageViews, searches, logins)
	}
}

func TestSameSeedSameCorpus(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)

	g1, err := New(testConfig(t.TempDir()), 7)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := New(testConfig(t.TempDir()), 7)
	if err != nil {
		t.Fatal(err)
	}

	c1, err := g1.generateDay(day, 200)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := g2.generateDay(day, 200)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Join(c1.activityLines, "\n") != strings.Join(c2.activityLines, "\n") {
		t.Error("activity lines differ between identically seeded runs")
	}
	if strings.Join(c1.systemLines, "\n") != strings.Join(c2.systemLines, "\n") {
		t.Error("system lines differ between identically seeded runs")
	}
}

func TestRunWritesDatedFiles(t *testing.T) {
	dir := t.TempDir()
	g, err := New(testConfig(dir), 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		"app-2025-03-10.log",
		"user_activity-2025-03-10.log",
		"app-2025-03-11.log",
		"user_activity-2025-03-11.log",
	}
	for _, name := range want {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing output file %s: %v", name, err)
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			t.Errorf("%s is empty or missing trailing newline", name)
		}
	}
}

func TestActivityLinesMatchLivePipelineShape(t *testing.T) {
	g, err := New(testConfig(t.TempDir()), 9)
	if err != nil {
		t.Fatal(err)
	}

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	corpus, err := g.generateDay(day, 400)
	if err != nil {
		t.Fatal(err)
	}

	for _, line := range corpus.activityLines {
		if strings.Contains(line, "\n") {
			t.Fatal("activity line contains embedded newline")
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Fatalf("invalid activity line: %v", err)
		}
		for _, key := range []string{"timestamp", "event_type", "session_id", "ip_address", "user_agent"} {
			if _, ok := obj[key]; !ok {
				t.Fatalf("line missing envelope key %q: %s", key, line)
			}
		}
		// entity_type and entity_id travel together.
		_, hasType := obj["entity_type"]
		_, hasID := obj["entity_id"]
		if hasType != hasID {
			t.Fatalf("entity pair split: %s", line)
		}
	}
}
