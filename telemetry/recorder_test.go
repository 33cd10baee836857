package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"mabletask/telemetry/models"
)

type memoryWriter struct {
	mu      sync.Mutex
	lines   []string
	failure error
}

func (m *memoryWriter) WriteLine(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}
	m.lines = append(m.lines, line)
	return nil
}

func (m *memoryWriter) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

type fakeJournal struct {
	rows    []models.ActivityLogRow
	failure error
}

func (f *fakeJournal) Insert(ctx context.Context, row models.ActivityLogRow) error {
	if f.failure != nil {
		return f.failure
	}
	f.rows = append(f.rows, row)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func TestRecordWritesBothSinks(t *testing.T) {
	writer := &memoryWriter{}
	journal := &fakeJournal{}
	rec := NewRecorder(writer, journal, quietLogger())

	ev := models.ActivityEvent{
		Timestamp:  time.Date(2025, 3, 10, 10, 0, 0, 0, time.Local),
		EventType:  models.EventView,
		SessionID:  "s1",
		UserID:     intPtr(7),
		EntityType: "product",
		EntityID:   intPtr(42),
		IPAddress:  "1.2.3.4",
		UserAgent:  "agent",
	}

	if err := rec.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if len(writer.lines) != 1 {
		t.Fatalf("file sink got %d lines, want 1", len(writer.lines))
	}
	if len(journal.rows) != 1 {
		t.Fatalf("journal got %d rows, want 1", len(journal.rows))
	}

	row := journal.rows[0]
	if row.ActivityType != models.EventView || row.SessionID != "s1" {
		t.Errorf("unexpected journal row: %+v", row)
	}
	if row.EntityType == nil || *row.EntityType != "product" || row.EntityID == nil || *row.EntityID != 42 {
		t.Errorf("entity pair not mirrored: %+v", row)
	}
	if row.Details != writer.lines[0] {
		t.Errorf("journal details differ from the file line")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(writer.lines[0]), &obj); err != nil {
		t.Fatalf("file line is not valid JSON: %v", err)
	}
}

func TestRecordSurvivesJournalFailure(t *testing.T) {
	writer := &memoryWriter{}
	journal := &fakeJournal{failure: errors.New("pq: duplicate key value violates unique constraint")}
	rec := NewRecorder(writer, journal, quietLogger())

	ev := models.ActivityEvent{
		Timestamp: time.Now(),
		EventType: models.EventPageView,
		SessionID: "s1",
	}

	// The journal failing must not surface: the file line already made the
	// event delivered.
	if err := rec.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record returned error despite successful file write: %v", err)
	}
	if len(writer.lines) != 1 {
		t.Fatalf("file sink got %d lines, want 1", len(writer.lines))
	}
}

func TestJournalFailureLoggedAsSinkError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	writer := &memoryWriter{}
	journal := &fakeJournal{failure: errors.New("connection refused")}
	rec := NewRecorder(writer, journal, logger)

	ev := models.ActivityEvent{Timestamp: time.Now(), EventType: models.EventPageView, SessionID: "s1"}
	if err := rec.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record returned error despite successful file write: %v", err)
	}

	// The suppressed failure must still reach the system channel classified
	// under the journal sink.
	if !strings.Contains(logs.String(), "journal sink write failed") {
		t.Errorf("journal failure not logged as a journal SinkError: %s", logs.String())
	}
	if !strings.Contains(logs.String(), "connection refused") {
		t.Errorf("underlying cause missing from the log: %s", logs.String())
	}
}

func TestRecordReportsFileSinkFailure(t *testing.T) {
	writer := &memoryWriter{failure: errors.New("disk full")}
	journal := &fakeJournal{}
	rec := NewRecorder(writer, journal, quietLogger())

	ev := models.ActivityEvent{
		Timestamp: time.Now(),
		EventType: models.EventPageView,
		SessionID: "s1",
	}

	err := rec.Record(context.Background(), ev)
	var sinkErr *SinkError
	if !errors.As(err, &sinkErr) || sinkErr.Sink != "file" {
		t.Fatalf("Record error = %v, want file SinkError", err)
	}

	// The journal insert is independent of the file sink's outcome.
	if len(journal.rows) != 1 {
		t.Errorf("journal got %d rows, want 1", len(journal.rows))
	}
}

func TestRecordWithoutJournal(t *testing.T) {
	writer := &memoryWriter{}
	rec := NewRecorder(writer, nil, quietLogger())

	ev := models.ActivityEvent{Timestamp: time.Now(), EventType: models.EventPageView}
	if err := rec.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if len(writer.lines) != 1 {
		t.Fatalf("file sink got %d lines, want 1", len(writer.lines))
	}
}
