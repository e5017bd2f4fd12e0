package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
)

var (
	ErrNotRegistered = errors.New("session is not registered")
	ErrSessionClosed = errors.New("session is closed")
)

// MessageStore is the durable side of the chat service. *Store implements it.
type MessageStore interface {
	EnsureEvent(ctx context.Context, eventID, title string) error
	Insert(ctx context.Context, eventID, username, body, clientRef string) (*models.ChatMessage, error)
	Recent(ctx context.Context, eventID string, limit int) ([]models.ChatMessage, error)
}

// ActivityPublisher receives best-effort chat activity events.
type ActivityPublisher interface {
	Publish(ctx context.Context, event *models.ActivityEvent) error
}

// Service wires the durable store, the broadcast hub and the presence
// registry into per-viewer sessions.
type Service struct {
	store     MessageStore
	hub       *Hub
	presence  *Presence
	publisher ActivityPublisher
	cfg       config.ChatConfig
	logger    *zap.Logger
}

func NewService(store MessageStore, hub *Hub, presence *Presence, publisher ActivityPublisher, cfg config.ChatConfig, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		hub:       hub,
		presence:  presence,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// History returns the recent chronological messages for an event.
func (s *Service) History(ctx context.Context, eventID string, limit int) ([]models.ChatMessage, error) {
	return s.store.Recent(ctx, eventID, limit)
}

// Send persists and broadcasts one message outside a session, for clients
// that post over plain HTTP instead of holding a realtime connection.
func (s *Service) Send(ctx context.Context, eventID, username, body, clientRef string) (*models.ChatMessage, error) {
	if clientRef == "" {
		clientRef = uuid.NewString()
	}

	persisted, err := s.store.Insert(ctx, eventID, username, body, clientRef)
	if err != nil {
		observability.ChatMessagesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	s.hub.Broadcast(ctx, eventID, *persisted, "")
	observability.ChatMessagesTotal.WithLabelValues("success").Inc()
	s.emitActivity(ctx, eventID)
	return persisted, nil
}

// Viewers returns the current presence count for an event.
func (s *Service) Viewers(eventID string) int {
	return s.presence.Count(eventID)
}

// SessionState tracks where a viewing session is in its lifecycle.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateIdle
	StateSending
	StateClosed
)

// Session is one viewer's connection to an event: a hub subscription, a
// presence slot once registered, and an optimistic timeline.
type Session struct {
	svc     *Service
	eventID string
	connID  string
	sub     *Subscriber

	mu       sync.Mutex
	state    SessionState
	username string
	timeline *Timeline
}

// OpenSession ensures the event exists, loads recent history and subscribes
// to the broadcast channel. The session starts anonymous; it must register a
// username before sending.
func (s *Service) OpenSession(ctx context.Context, eventID, title string) (*Session, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("event id must not be empty")
	}
	if err := s.store.EnsureEvent(ctx, eventID, title); err != nil {
		return nil, err
	}

	history, err := s.store.Recent(ctx, eventID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}

	return &Session{
		svc:      s,
		eventID:  eventID,
		connID:   uuid.NewString(),
		sub:      s.hub.Join(eventID),
		state:    StateAnonymous,
		timeline: NewTimeline(history),
	}, nil
}

// Register names the session and joins the event's presence channel.
// Re-registering updates the name without a second presence slot.
func (sess *Session) Register(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state == StateClosed {
		return ErrSessionClosed
	}
	sess.username = username
	if sess.state == StateAnonymous {
		sess.state = StateIdle
	}
	sess.svc.presence.Join(sess.eventID, sess.connID, username)
	return nil
}

// Send runs the optimistic path: placeholder append, durable insert,
// broadcast to the other viewers, local confirmation. On insert failure the
// placeholder is rolled back and the error surfaces to the caller.
func (sess *Session) Send(ctx context.Context, body string) (*models.ChatMessage, error) {
	sess.mu.Lock()
	switch sess.state {
	case StateClosed:
		sess.mu.Unlock()
		return nil, ErrSessionClosed
	case StateAnonymous:
		sess.mu.Unlock()
		return nil, ErrNotRegistered
	}
	sess.state = StateSending
	username := sess.username
	sess.mu.Unlock()

	defer func() {
		sess.mu.Lock()
		if sess.state == StateSending {
			sess.state = StateIdle
		}
		sess.mu.Unlock()
	}()

	temp := sess.timeline.AppendPending(sess.eventID, username, body)

	if timeout := sess.svc.cfg.SendTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	persisted, err := sess.svc.store.Insert(ctx, sess.eventID, username, body, temp.ClientRef)
	if err != nil {
		sess.timeline.Rollback(temp.ClientRef)
		observability.ChatMessagesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	sess.svc.hub.Broadcast(ctx, sess.eventID, *persisted, sess.sub.ID)
	sess.timeline.Confirm(*persisted)
	observability.ChatMessagesTotal.WithLabelValues("success").Inc()
	sess.svc.emitActivity(ctx, sess.eventID)
	return persisted, nil
}

// Apply merges a broadcast-received message into the session's timeline.
// Returns true when the view changed.
func (sess *Session) Apply(msg models.ChatMessage) bool {
	return sess.timeline.Merge(msg)
}

// Updates is the stream of messages broadcast by other viewers.
func (sess *Session) Updates() <-chan models.ChatMessage {
	return sess.sub.C
}

// Messages returns the session's current timeline.
func (sess *Session) Messages() []models.ChatMessage {
	return sess.timeline.Messages()
}

// EventID returns the event this session is attached to.
func (sess *Session) EventID() string {
	return sess.eventID
}

// Close tears the session down: hub unsubscribe plus presence leave. Safe to
// call twice.
func (sess *Session) Close() {
	sess.mu.Lock()
	if sess.state == StateClosed {
		sess.mu.Unlock()
		return
	}
	registered := sess.state != StateAnonymous
	sess.state = StateClosed
	sess.mu.Unlock()

	sess.svc.hub.Leave(sess.eventID, sess.sub)
	if registered {
		sess.svc.presence.Leave(sess.eventID, sess.connID)
	}
}

func (s *Service) emitActivity(ctx context.Context, eventID string) {
	if s.publisher == nil {
		return
	}
	event := &models.ActivityEvent{
		Type:      "chat_message",
		EventID:   eventID,
		Timestamp: time.Now().UTC(),
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.publisher.Publish(pubCtx, event); err != nil {
			s.logger.Warn("chat activity publish failed", zap.Error(err))
		}
	}()
}
