package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"mabletask/telemetry/models"
)

// Acceptance window for server-observed dwell samples. Anything shorter is
// sub-second noise; anything longer is an abandoned session, not dwell.
const (
	minDwellSeconds = 1.0
	maxDwellSeconds = 1800.0
)

// TrackedRequest is what the dwell tracker needs to know about one request.
type TrackedRequest struct {
	SessionID string
	UserID    *int
	Path      string
	IPAddress string
	UserAgent string
}

// ClientDwellSample is a dwell measurement taken by the browser itself,
// typically reported on tab close.
type ClientDwellSample struct {
	SessionID           string
	UserID              *int
	ProductID           *int
	DwellTimeSeconds    float64
	MaxScrollPercentage int
	Path                string
	Referrer            string
	IPAddress           string
	UserAgent           string
}

// DwellTracker turns "time spent on page N before page N+1" into delivered
// server_dwell_time events by correlating consecutive requests of a session.
type DwellTracker struct {
	recorder *Recorder
	sessions *SessionStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewDwellTracker(recorder *Recorder, sessions *SessionStore, logger *slog.Logger) *DwellTracker {
	return &DwellTracker{
		recorder: recorder,
		sessions: sessions,
		logger:   logger.With("module", "dwell"),
		now:      time.Now,
	}
}

// Track runs once per tracked request. If the session was armed and the
// elapsed time falls inside the acceptance window, a server_dwell_time event
// is emitted; in every case the state is overwritten with the current path
// and time, so each request re-arms the tracker.
func (t *DwellTracker) Track(ctx context.Context, req TrackedRequest) {
	now := t.now()

	state, armed := t.sessions.DwellState(req.SessionID)
	if armed && state.LastPath != "" && !state.LastPathTime.IsZero() {
		elapsed := now.Sub(state.LastPathTime).Seconds()
		if elapsed >= minDwellSeconds && elapsed <= maxDwellSeconds {
			productID := ProductPathID(state.LastPath)

			ev := models.ActivityEvent{
				Timestamp: now,
				EventType: models.EventServerDwell,
				SessionID: req.SessionID,
				UserID:    req.UserID,
				IPAddress: req.IPAddress,
				UserAgent: req.UserAgent,
				Payload: models.DwellPayload{
					ProductID:        productID,
					PreviousPath:     state.LastPath,
					CurrentPath:      req.Path,
					DwellTimeSeconds: elapsed,
				},
			}
			if productID != nil {
				ev.EntityType = "product"
				ev.EntityID = productID
			}

			if err := t.recorder.Record(ctx, ev); err != nil {
				t.logger.Error("failed to record dwell event", "session_id", req.SessionID, "error", err.Error())
			}
		}
	}

	t.sessions.SetDwellState(req.SessionID, req.Path, now)
}

// RecordClientDwell delivers a client-measured dwell sample as a page_dwell
// event. The server-side acceptance window is deliberately not reapplied:
// the client already filtered its own measurement.
func (t *DwellTracker) RecordClientDwell(ctx context.Context, sample ClientDwellSample) error {
	ev := models.ActivityEvent{
		Timestamp: t.now(),
		EventType: models.EventPageDwell,
		SessionID: sample.SessionID,
		UserID:    sample.UserID,
		IPAddress: sample.IPAddress,
		UserAgent: sample.UserAgent,
		Payload: models.ClientDwellPayload{
			ProductID:           sample.ProductID,
			DwellTimeSeconds:    sample.DwellTimeSeconds,
			MaxScrollPercentage: sample.MaxScrollPercentage,
			Path:                sample.Path,
			Referrer:            sample.Referrer,
		},
	}
	if sample.ProductID != nil {
		ev.EntityType = "product"
		ev.EntityID = sample.ProductID
	}

	return t.recorder.Record(ctx, ev)
}

// ProductPathID extracts the trailing integer segment of a product detail
// path such as /products/42. A non-numeric trailing segment means no entity;
// the parse failure is swallowed.
func ProductPathID(path string) *int {
	if !strings.Contains(path, "/products/") {
		return nil
	}
	parts := strings.Split(path, "/")
	if len(parts) <= 2 {
		return nil
	}
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return nil
	}
	return &id
}
