package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ClickHouseClient struct {
	Conn clickhouse.Conn
}

func NewClickHouseDB() (*ClickHouseClient, error) {
	host := os.Getenv("CLICKHOUSE_HOST")
	nativePortStr := os.Getenv("CLICKHOUSE_NATIVE_PORT")
	dbName := os.Getenv("CLICKHOUSE_DB_NAME")
	username := os.Getenv("CLICKHOUSE_USERNAME")
	password := os.Getenv("CLICKHOUSE_PASSWORD")

	if host == "" || nativePortStr == "" || dbName == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST, CLICKHOUSE_NATIVE_PORT, or CLICKHOUSE_DB_NAME environment variables are not set")
	}

	nativePort, err := strconv.Atoi(nativePortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CLICKHOUSE_NATIVE_PORT: %w", err)
	}

	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", host, nativePort)},
		Auth: clickhouse.Auth{
			Database: dbName,
			Username: username,
			Password: password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "fixbro-analytics", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseClient{Conn: conn}, nil
}

// eventTableDDL is shared by page_visits, user_events and booking_funnel.
// server_timestamp is the canonical ordering key for all reads.
const eventTableDDL = `
	CREATE TABLE IF NOT EXISTS %s (
		event_id         String,
		session_id       String,
		user_id          String,
		event            String,
		page_url         String,
		referrer         String,
		duration_ms      Int64,
		client_timestamp String,
		ip               String,
		user_agent       String,
		payload          String,
		server_timestamp DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	ORDER BY (server_timestamp)
`

const visitorLogTableDDL = `
	CREATE TABLE IF NOT EXISTS visitor_logs (
		log_id     String,
		session_id String,
		ip         String,
		city       String,
		region     String,
		country    String,
		postal     String,
		device     String,
		timestamp  DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	ORDER BY (timestamp)
`

// EnsureSchema creates the tracking tables if they do not exist yet.
func (c *ClickHouseClient) EnsureSchema(ctx context.Context) error {
	for _, table := range []string{"page_visits", "user_events", "booking_funnel"} {
		if err := c.Conn.Exec(ctx, fmt.Sprintf(eventTableDDL, table)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	if err := c.Conn.Exec(ctx, visitorLogTableDDL); err != nil {
		return fmt.Errorf("failed to create table visitor_logs: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
	}
}
