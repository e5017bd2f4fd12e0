package models

import (
	"strings"
	"time"
)

// TempIDPrefix marks a locally-generated message id that has not yet been
// confirmed by the durable store.
const TempIDPrefix = "temp-"

// ChatMessage is one chat entry for an event. Server-persisted messages carry
// a UUID id; unconfirmed local placeholders carry a TempIDPrefix id. ClientRef
// is a client-generated correlation ref threaded through the insert and
// broadcast paths so the placeholder can be replaced exactly once.
type ChatMessage struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Username  string    `json:"username"`
	Body      string    `json:"body"`
	ClientRef string    `json:"client_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Pending reports whether the message is still an unconfirmed placeholder.
func (m *ChatMessage) Pending() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// ViewerPresence is one open connection on an event's presence channel. It
// exists only while the connection is open and is never persisted.
type ViewerPresence struct {
	EventID  string    `json:"event_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}
