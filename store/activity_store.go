package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mabletask/telemetry/models"
)

// ActivityStore is the relational journal: a best-effort secondary index of
// the activity log stream, used for interactive queries. The file sink is
// authoritative; inserts here may fail without the event being lost.
type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// EnsureSchema creates the journal table when it does not exist yet.
func (s *ActivityStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS user_activity_logs (
			id            BIGSERIAL PRIMARY KEY,
			user_id       INTEGER,
			session_id    VARCHAR(100),
			activity_type VARCHAR(20),
			entity_type   VARCHAR(50),
			entity_id     INTEGER,
			details       TEXT,
			ip_address    VARCHAR(45),
			user_agent    TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure user_activity_logs schema: %w", err)
	}
	return nil
}

// Insert writes one journal row in its own transaction. Any failure rolls
// the transaction back so the connection is clean for subsequent work.
func (s *ActivityStore) Insert(ctx context.Context, row models.ActivityLogRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journal transaction: %w", err)
	}

	query := `
		INSERT INTO user_activity_logs
			(user_id, session_id, activity_type, entity_type, entity_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	createdAt := row.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, query,
		row.UserID,
		row.SessionID,
		row.ActivityType,
		row.EntityType,
		row.EntityID,
		row.Details,
		row.IPAddress,
		row.UserAgent,
		createdAt,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert journal row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal row: %w", err)
	}
	return nil
}

// List returns recent journal rows, newest first, optionally filtered by
// activity type.
func (s *ActivityStore) List(ctx context.Context, limit int, activityType string) ([]models.ActivityLogRow, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, user_id, session_id, activity_type, entity_type, entity_id, details, ip_address, user_agent, created_at
		FROM user_activity_logs
	`
	args := []interface{}{}
	if activityType != "" {
		query += " WHERE activity_type = $1"
		args = append(args, activityType)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal rows: %w", err)
	}
	defer rows.Close()

	var result []models.ActivityLogRow
	for rows.Next() {
		var row models.ActivityLogRow
		if err := rows.Scan(
			&row.ID,
			&row.UserID,
			&row.SessionID,
			&row.ActivityType,
			&row.EntityType,
			&row.EntityID,
			&row.Details,
			&row.IPAddress,
			&row.UserAgent,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// DeleteOlderThan trims journal rows past the retention window and reports
// how many were removed.
func (s *ActivityStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_activity_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old journal rows: %w", err)
	}
	return result.RowsAffected()
}
