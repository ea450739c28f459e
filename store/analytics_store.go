package store

import (
	"context"
	"fmt"
	"time"

	"fixbro/api/database"
	"fixbro/api/models"
	"fixbro/api/utils"
)

// AnalyticsStore persists tracked events in ClickHouse. Events are append
// only; the only mutation is the operator's bulk clear.
type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{DB: chClient}
}

const eventColumns = `event_id, session_id, user_id, event, page_url, referrer,
	duration_ms, client_timestamp, ip, user_agent, payload, server_timestamp`

// InsertEvent appends one event to the given table. The table name must come
// from models.TableForEventType; anything else is rejected.
func (s *AnalyticsStore) InsertEvent(ctx context.Context, table string, event models.AnalyticsEvent) error {
	if !isEventTable(table) {
		return fmt.Errorf("unknown event table: %s", table)
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table, eventColumns))
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}

	err = batch.Append(
		event.EventID,
		event.SessionID,
		event.UserID,
		event.Event,
		event.PageURL,
		event.Referrer,
		event.DurationMs,
		event.ClientTimestamp,
		event.IPAddress,
		event.UserAgent,
		string(event.Payload),
		event.ServerTimestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append event to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// GetRecentPageVisits returns up to count page_start records, newest first.
// page_start and page_end rows are interleaved in the table, so it fetches
// 2x the requested count and filters rather than issuing a second query.
func (s *AnalyticsStore) GetRecentPageVisits(ctx context.Context, count int) ([]models.AnalyticsEvent, error) {
	raw, err := s.getRecentEvents(ctx, models.TablePageVisits, count*2)
	if err != nil {
		return nil, err
	}
	return filterPageStarts(raw, count), nil
}

// filterPageStarts keeps page_start records, truncated to count. The input
// order (newest first) is preserved.
func filterPageStarts(events []models.AnalyticsEvent, count int) []models.AnalyticsEvent {
	visits := make([]models.AnalyticsEvent, 0, count)
	for _, event := range events {
		if event.Event != models.EventPageStart {
			continue
		}
		visits = append(visits, event)
		if len(visits) == count {
			break
		}
	}
	return visits
}

func (s *AnalyticsStore) GetRecentUserEvents(ctx context.Context, count int) ([]models.AnalyticsEvent, error) {
	return s.getRecentEvents(ctx, models.TableUserEvents, count)
}

func (s *AnalyticsStore) getRecentEvents(ctx context.Context, table string, limit int) ([]models.AnalyticsEvent, error) {
	if !isEventTable(table) {
		return nil, fmt.Errorf("unknown event table: %s", table)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY server_timestamp DESC
		LIMIT ?
	`, eventColumns, table)

	rows, err := s.DB.Conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events from %s: %w", table, err)
	}
	defer rows.Close()

	var results []models.AnalyticsEvent
	for rows.Next() {
		var event models.AnalyticsEvent
		var payload string
		if err := rows.Scan(
			&event.EventID,
			&event.SessionID,
			&event.UserID,
			&event.Event,
			&event.PageURL,
			&event.Referrer,
			&event.DurationMs,
			&event.ClientTimestamp,
			&event.IPAddress,
			&event.UserAgent,
			&payload,
			&event.ServerTimestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row from %s: %w", table, err)
		}
		if payload != "" {
			event.Payload = []byte(payload)
		}
		results = append(results, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error reading %s: %w", table, err)
	}
	return results, nil
}

// ClearUserActivity truncates all three event tables. Each TRUNCATE is
// all-or-nothing per table; there is no cross-table transaction.
func (s *AnalyticsStore) ClearUserActivity(ctx context.Context) error {
	for _, table := range []string{models.TablePageVisits, models.TableUserEvents, models.TableBookingFunnel} {
		if err := s.DB.Conn.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// GetTopPagePaths returns the most visited pages by page_start count.
func (s *AnalyticsStore) GetTopPagePaths(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT page_url, count() AS view_count
		FROM page_visits
		WHERE event = 'page_start' AND server_timestamp >= ? AND server_timestamp <= ?
		GROUP BY page_url
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
		var result models.TopPathResult
		if err := rows.Scan(&result.PagePath, &result.Count); err != nil {
			return nil, fmt.Errorf("failed to scan top page path row: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error reading top page paths: %w", err)
	}
	return results, nil
}

// GetEventCountsOverTime buckets page_start counts by the given interval.
// The interval must pass utils.IsValidInterval.
func (s *AnalyticsStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(server_timestamp) AS time_bucket, count() AS total_events
		FROM page_visits
		WHERE event = 'page_start' AND server_timestamp >= ? AND server_timestamp <= ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	var results []models.EventCountByTime
	for rows.Next() {
		var result models.EventCountByTime
		if err := rows.Scan(&result.Time, &result.Count); err != nil {
			return nil, fmt.Errorf("failed to scan event count row: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error reading event counts: %w", err)
	}
	return results, nil
}

func isEventTable(table string) bool {
	switch table {
	case models.TablePageVisits, models.TableUserEvents, models.TableBookingFunnel:
		return true
	default:
		return false
	}
}
