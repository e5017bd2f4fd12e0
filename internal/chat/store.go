package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/models"
)

var (
	ErrEmptyUsername   = errors.New("username must not be empty")
	ErrEmptyBody       = errors.New("message body must not be empty")
	ErrMessageTooLong  = errors.New("message body too long")
	ErrUsernameTooLong = errors.New("username too long")
)

// Store is the durable chat message store backed by Postgres.
type Store struct {
	pool   *pgxpool.Pool
	cfg    config.ChatConfig
	logger *zap.Logger
}

func NewStore(ctx context.Context, cfg config.PostgresConfig, chatCfg config.ChatConfig, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.ConnConfig.ConnectTimeout = cfg.DialTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	logger.Info("chat store connected")

	return &Store{pool: pool, cfg: chatCfg, logger: logger}, nil
}

// EnsureSchema creates the chat tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id         UUID PRIMARY KEY,
			event_id   TEXT NOT NULL REFERENCES events(id),
			username   TEXT NOT NULL,
			body       TEXT NOT NULL,
			client_ref TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_event_created
			ON chat_messages (event_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring chat schema: %w", err)
		}
	}
	return nil
}

// EnsureEvent upserts the event row a chat channel hangs off.
func (s *Store) EnsureEvent(ctx context.Context, eventID, title string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (id, title) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title WHERE EXCLUDED.title <> ''`,
		eventID, title,
	)
	if err != nil {
		return fmt.Errorf("ensuring event %s: %w", eventID, err)
	}
	return nil
}

// Insert durably persists one message and returns the stored row. The
// client-generated correlation ref rides along unchanged so optimistic
// placeholders can be reconciled.
func (s *Store) Insert(ctx context.Context, eventID, username, body, clientRef string) (*models.ChatMessage, error) {
	username = strings.TrimSpace(username)
	body = strings.TrimSpace(body)

	if username == "" {
		return nil, ErrEmptyUsername
	}
	if body == "" {
		return nil, ErrEmptyBody
	}
	if s.cfg.MaxUsernameLen > 0 && len(username) > s.cfg.MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	if s.cfg.MaxMessageLen > 0 && len(body) > s.cfg.MaxMessageLen {
		return nil, ErrMessageTooLong
	}

	msg := &models.ChatMessage{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Username:  username,
		Body:      body,
		ClientRef: clientRef,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, event_id, username, body, client_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.EventID, msg.Username, msg.Body, msg.ClientRef, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting chat message: %w", err)
	}
	return msg, nil
}

// Recent returns up to limit messages for the event in chronological order.
// The query fetches newest-first so the limit keeps the latest messages, then
// reverses for display.
func (s *Store) Recent(ctx context.Context, eventID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, username, body, client_ref, created_at
		 FROM chat_messages
		 WHERE event_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		eventID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ChatMessage, error) {
		var m models.ChatMessage
		err := row.Scan(&m.ID, &m.EventID, &m.Username, &m.Body, &m.ClientRef, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning chat messages: %w", err)
	}

	// Reverse newest-first into chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}
