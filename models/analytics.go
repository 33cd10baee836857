package models

import "time"

// ActivityEventRow is one activity log line projected into the ClickHouse
// mirror table. Raw keeps the original line so nothing is lost in the
// projection.
type ActivityEventRow struct {
	Timestamp        time.Time
	EventType        string
	SessionID        string
	UserID           *int64
	Path             string
	IPAddress        string
	UserAgent        string
	DwellTimeSeconds float64
	Raw              string
}

type TopPathResult struct {
	Path  string `json:"path"`
	Count uint64 `json:"count"`
}
