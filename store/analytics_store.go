package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"mabletask/telemetry/database"
	"mabletask/telemetry/models"
	"mabletask/telemetry/utils"
)

// AnalyticsStore mirrors the user_activity log stream into ClickHouse for
// interactive stats queries. It is fed by the log-file loader, never by the
// live request path.
type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

type EventTypeCountByTime struct {
	Time      time.Time `json:"time"`
	EventType *string   `json:"eventType,omitempty"`
	Count     uint64    `json:"count"`
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

// EnsureSchema creates the mirror table when it does not exist yet.
func (s *AnalyticsStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS activity_events (
			timestamp          DateTime64(6),
			event_type         LowCardinality(String),
			session_id         String,
			user_id            Nullable(Int64),
			path               String,
			ip_address         String,
			user_agent         String,
			dwell_time_seconds Float64,
			raw                String
		) ENGINE = MergeTree()
		ORDER BY (event_type, timestamp)
	`
	if err := s.DB.Conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure activity_events schema: %w", err)
	}
	return nil
}

// InsertEvents batch-inserts projected log lines into the mirror table.
func (s *AnalyticsStore) InsertEvents(ctx context.Context, rows []models.ActivityEventRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO activity_events (
			timestamp, event_type, session_id, user_id, path, ip_address, user_agent, dwell_time_seconds, raw
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, row := range rows {
		err := batch.Append(
			row.Timestamp,
			row.EventType,
			row.SessionID,
			row.UserID,
			row.Path,
			row.IPAddress,
			row.UserAgent,
			row.DwellTimeSeconds,
			row.Raw,
		)
		if err != nil {
			return fmt.Errorf("failed to append event to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *AnalyticsStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]EventTypeCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	var args []interface{}
	args = append(args, start, end)

	selectCols := fmt.Sprintf("toStartOf%s(timestamp) as time_bucket, count() as total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE timestamp >= ? AND timestamp <= ?"
	orderByCols := "time_bucket ASC"
	isFilteringByType := eventTypeFilter != ""

	if isFilteringByType {
		selectCols += ", event_type"
		groupByCols += ", event_type"
		whereClause += " AND event_type = ?"
		args = append(args, eventTypeFilter)
		orderByCols += ", event_type ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM activity_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	var results []EventTypeCountByTime
	for rows.Next() {
		var (
			timeBucket    time.Time
			count         uint64
			eventTypeDB   string
			currentResult EventTypeCountByTime
		)

		if isFilteringByType {
			if err := rows.Scan(&timeBucket, &count, &eventTypeDB); err != nil {
				return nil, fmt.Errorf("failed to scan event count row: %w", err)
			}
			currentResult.EventType = &eventTypeDB
		} else {
			if err := rows.Scan(&timeBucket, &count); err != nil {
				return nil, fmt.Errorf("failed to scan event count row: %w", err)
			}
		}

		currentResult.Time = timeBucket
		currentResult.Count = count
		results = append(results, currentResult)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}

	return results, nil
}

func (s *AnalyticsStore) GetTopNPagePaths(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT path, count() as view_count
		FROM activity_events
		WHERE event_type = 'page_view' AND timestamp >= ? AND timestamp <= ?
		GROUP BY path
		ORDER BY view_count DESC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top page paths: %w", err)
	}
	defer rows.Close()

	var results []models.TopPathResult
	for rows.Next() {
		var path string
		var count uint64
		if err := rows.Scan(&path, &count); err != nil {
			return nil, fmt.Errorf("failed to scan top path row: %w", err)
		}
		results = append(results, models.TopPathResult{
			Path:  path,
			Count: count,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top page paths: %w", err)
	}

	return results, nil
}

// GetAverageDwellSeconds averages dwell samples from both the server-derived
// and client-reported dwell event types.
func (s *AnalyticsStore) GetAverageDwellSeconds(ctx context.Context, start, end time.Time) (float64, error) {
	query := `
		SELECT avg(dwell_time_seconds)
		FROM activity_events
		WHERE event_type IN ('server_dwell_time', 'page_dwell')
		  AND timestamp >= ? AND timestamp <= ?
	`

	var avg float64
	err := s.DB.Conn.QueryRow(ctx, query, start, end).Scan(&avg)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return 0.0, nil
		}
		return 0.0, fmt.Errorf("failed to query average dwell time: %w", err)
	}

	// avg() over zero rows yields NaN, which JSON cannot carry.
	if math.IsNaN(avg) {
		return 0.0, nil
	}

	return avg, nil
}
