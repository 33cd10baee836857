package models

import "time"

// ActivityLogRow mirrors one recorded event into the relational journal
// (table user_activity_logs). The file sink remains the source of truth;
// this row is a best-effort secondary index for interactive queries.
type ActivityLogRow struct {
	ID           int64
	UserID       *int
	SessionID    string
	ActivityType string
	EntityType   *string
	EntityID     *int
	Details      string
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}
