package store

import (
	"context"
	"fmt"

	"fixbro/api/database"
	"fixbro/api/models"
)

// VisitorStore persists one geolocation snapshot per browser session.
type VisitorStore struct {
	DB       *database.ClickHouseClient
	sessions *SessionCache
}

func NewVisitorStore(chClient *database.ClickHouseClient) *VisitorStore {
	return &VisitorStore{
		DB:       chClient,
		sessions: NewSessionCache(),
	}
}

// HasSession reports whether a visitor log already exists for the session.
// The in-process cache answers repeat beacons without a store round trip;
// misses fall through to a LIMIT 1 existence query.
//
// HasSession followed by InsertVisitorLog is deliberately not atomic:
// concurrent duplicate requests for the same session can both pass the
// check and both insert. Duplicate analytics rows are accepted.
func (s *VisitorStore) HasSession(ctx context.Context, sessionID string) (bool, error) {
	if s.sessions.Seen(sessionID) {
		return true, nil
	}

	query := `SELECT session_id FROM visitor_logs WHERE session_id = ? LIMIT 1`
	rows, err := s.DB.Conn.Query(ctx, query, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing session: %w", err)
	}
	defer rows.Close()

	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("row error checking session: %w", err)
	}

	if exists {
		s.sessions.MarkSeen(sessionID)
	}
	return exists, nil
}

func (s *VisitorStore) InsertVisitorLog(ctx context.Context, log models.VisitorLog) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO visitor_logs (
			log_id, session_id, ip, city, region, country, postal, device, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare visitor log insert: %w", err)
	}

	err = batch.Append(
		log.LogID,
		log.SessionID,
		log.IP,
		log.City,
		log.Region,
		log.Country,
		log.Postal,
		log.Device,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append visitor log to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send visitor log batch: %w", err)
	}

	s.sessions.MarkSeen(log.SessionID)
	return nil
}

func (s *VisitorStore) GetRecentVisitorLogs(ctx context.Context, count int) ([]models.VisitorLog, error) {
	query := `
		SELECT log_id, session_id, ip, city, region, country, postal, device, timestamp
		FROM visitor_logs
		ORDER BY timestamp DESC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query visitor logs: %w", err)
	}
	defer rows.Close()

	var results []models.VisitorLog
	for rows.Next() {
		var log models.VisitorLog
		if err := rows.Scan(
			&log.LogID,
			&log.SessionID,
			&log.IP,
			&log.City,
			&log.Region,
			&log.Country,
			&log.Postal,
			&log.Device,
			&log.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan visitor log row: %w", err)
		}
		results = append(results, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error reading visitor logs: %w", err)
	}
	return results, nil
}

func (s *VisitorStore) ClearVisitorLogs(ctx context.Context) error {
	if err := s.DB.Conn.Exec(ctx, "TRUNCATE TABLE IF EXISTS visitor_logs"); err != nil {
		return fmt.Errorf("failed to clear visitor logs: %w", err)
	}
	return nil
}
