package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
)

// Client is the analytics sink. Everything written here is best-effort
// telemetry; nothing in the request path depends on it.
type Client struct {
	conn   driver.Conn
	logger *zap.Logger
}

func NewClient(cfg config.ClickHouseConfig, logger *zap.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addresses,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": int(cfg.QueryTimeout.Seconds()),
		},
		DialTimeout:  cfg.DialTimeout,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("opening clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging clickhouse: %w", err)
	}

	logger.Info("clickhouse client connected", zap.Strings("addresses", cfg.Addresses))

	return &Client{
		conn:   conn,
		logger: logger,
	}, nil
}

func (c *Client) EnsureTables(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS query_performance (
			event_type String,
			query_hash String,
			query_type String,
			duration_ms Float64,
			movie_count Int32,
			match_count Int32,
			timestamp DateTime,
			trace_id String
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (timestamp, query_hash)`,

		`CREATE TABLE IF NOT EXISTS search_events (
			request_id String,
			query_hash String,
			query String,
			intent String,
			movie_count Int32,
			match_count Int32,
			duration_ms Float64,
			cache_hit Bool,
			timestamp DateTime
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (timestamp, query_hash)`,

		`CREATE TABLE IF NOT EXISTS chat_activity (
			event_id String,
			timestamp DateTime
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (timestamp, event_id)`,
	}

	for _, ddl := range tables {
		if err := c.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}

	c.logger.Info("clickhouse tables ensured")
	return nil
}

// WriteQueryPerformance records one slow-query event. Implements the slow
// query detector's analytics writer.
func (c *Client) WriteQueryPerformance(ctx context.Context, event *models.AnalyticsEvent) error {
	query := `
		INSERT INTO query_performance (
			event_type, query_hash, query_type, duration_ms,
			movie_count, match_count, timestamp, trace_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return c.exec(ctx, "query_performance", query,
		event.EventType,
		event.QueryHash,
		event.QueryType,
		event.DurationMs,
		int32(event.MovieCount),
		int32(event.MatchCount),
		event.Timestamp,
		event.TraceID,
	)
}

// InsertActivityEvent routes one pipeline event to its table.
func (c *Client) InsertActivityEvent(ctx context.Context, event *models.ActivityEvent) error {
	switch event.Type {
	case "chat_message":
		return c.exec(ctx, "chat_activity",
			`INSERT INTO chat_activity (event_id, timestamp) VALUES (?, ?)`,
			event.EventID,
			event.Timestamp,
		)
	default:
		return c.exec(ctx, "search_events",
			`INSERT INTO search_events (
				request_id, query_hash, query, intent,
				movie_count, match_count, duration_ms, cache_hit, timestamp
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.RequestID,
			event.QueryHash,
			event.Query,
			event.Intent,
			int32(event.MovieCount),
			int32(event.MatchCount),
			event.DurationMs,
			event.CacheHit,
			event.Timestamp,
		)
	}
}

func (c *Client) exec(ctx context.Context, operation, query string, args ...any) error {
	start := time.Now()
	err := c.conn.Exec(ctx, query, args...)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.UpstreamRequestDuration.WithLabelValues("clickhouse", operation, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("ch %s insert: %w", operation, err)
	}
	return nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
