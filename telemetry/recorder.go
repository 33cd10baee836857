package telemetry

import (
	"context"
	"log/slog"

	"mabletask/telemetry/models"
)

// LineWriter is the file sink: the rotating user_activity channel.
type LineWriter interface {
	WriteLine(line string) error
}

// Journal is the relational sink. Insert must leave the connection clean on
// failure (rollback), since telemetry shares it with unrelated work.
type Journal interface {
	Insert(ctx context.Context, row models.ActivityLogRow) error
}

// Recorder delivers every event to both sinks as a best-effort, non-atomic
// pair. The file line is authoritative: a journal failure is logged on the
// system channel and suppressed, and the event still counts as delivered.
// Construct one Recorder at startup and pass it by handle; there is no
// ambient registry.
type Recorder struct {
	activity LineWriter
	journal  Journal
	logger   *slog.Logger
}

func NewRecorder(activity LineWriter, journal Journal, logger *slog.Logger) *Recorder {
	return &Recorder{
		activity: activity,
		journal:  journal,
		logger:   logger.With("module", "recorder"),
	}
}

// Record encodes the event and writes it to the log stream and the journal.
// The returned error covers only encoding and the file sink; the caller's
// policy is log-and-continue, never failing the triggering request.
func (r *Recorder) Record(ctx context.Context, ev models.ActivityEvent) error {
	ev.Normalize()

	line, err := ev.Encode()
	if err != nil {
		return &EncodeError{EventType: ev.EventType, Err: err}
	}

	var fileErr error
	if err := r.activity.WriteLine(line); err != nil {
		fileErr = &SinkError{Sink: "file", Err: err}
		r.logger.Error("activity log write failed", "event_type", ev.EventType, "error", err.Error())
	}

	// The journal insert is independent of the file write's outcome.
	if r.journal != nil {
		row := journalRow(ev, line)
		if err := r.journal.Insert(ctx, row); err != nil {
			jErr := &SinkError{Sink: "journal", Err: err}
			r.logger.Error("journal insert failed", "event_type", ev.EventType, "error", jErr.Error())
		}
	}

	return fileErr
}

func journalRow(ev models.ActivityEvent, line string) models.ActivityLogRow {
	row := models.ActivityLogRow{
		UserID:       ev.UserID,
		SessionID:    ev.SessionID,
		ActivityType: ev.EventType,
		Details:      line,
		IPAddress:    ev.IPAddress,
		UserAgent:    ev.UserAgent,
		CreatedAt:    ev.Timestamp,
	}
	if ev.EntityType != "" {
		entityType := ev.EntityType
		row.EntityType = &entityType
		row.EntityID = ev.EntityID
	}
	return row
}
