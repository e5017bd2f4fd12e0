package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ardiwinata/nobar/internal/models"
)

// Timeline is one session's ordered view of an event's messages, including
// the optimistic placeholders for this session's own in-flight sends.
// Reconciliation is keyed on the client-generated correlation ref, so
// whichever of the durable-insert response and the broadcast echo arrives
// first confirms the placeholder and the other is a no-op.
type Timeline struct {
	mu       sync.Mutex
	messages []models.ChatMessage

	ids     map[string]bool // persisted ids already present
	pending map[string]int  // client ref -> index of placeholder
}

func NewTimeline(history []models.ChatMessage) *Timeline {
	t := &Timeline{
		messages: make([]models.ChatMessage, 0, len(history)+8),
		ids:      make(map[string]bool, len(history)),
		pending:  make(map[string]int),
	}
	for _, m := range history {
		if m.ID != "" && t.ids[m.ID] {
			continue
		}
		t.ids[m.ID] = true
		t.messages = append(t.messages, m)
	}
	return t
}

// AppendPending adds an optimistic placeholder for an in-flight send and
// returns it. The placeholder carries a temp id and a fresh correlation ref.
func (t *Timeline) AppendPending(eventID, username, body string) models.ChatMessage {
	msg := models.ChatMessage{
		ID:        models.TempIDPrefix + uuid.NewString(),
		EventID:   eventID,
		Username:  username,
		Body:      body,
		ClientRef: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[msg.ClientRef] = len(t.messages)
	t.messages = append(t.messages, msg)
	return msg
}

// Confirm replaces the placeholder matching the persisted message's
// correlation ref. Exactly once: a second confirmation for the same ref (or
// an already-merged id) changes nothing.
func (t *Timeline) Confirm(persisted models.ChatMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reconcile(persisted)
}

// Rollback removes the placeholder for a failed send.
func (t *Timeline) Rollback(clientRef string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.pending[clientRef]
	if !ok {
		return false
	}
	delete(t.pending, clientRef)
	t.messages = append(t.messages[:idx], t.messages[idx+1:]...)
	t.reindexPending(idx)
	return true
}

// Merge applies a broadcast-received message: it confirms a matching
// placeholder if one exists, appends if the id is new, and ignores
// duplicates.
func (t *Timeline) Merge(msg models.ChatMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.reconcile(msg) {
		return true
	}
	if msg.ID == "" || t.ids[msg.ID] {
		return false
	}
	t.ids[msg.ID] = true
	t.messages = append(t.messages, msg)
	return true
}

// Messages returns a copy of the current view in order.
func (t *Timeline) Messages() []models.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// PendingCount reports how many placeholders are still unconfirmed.
func (t *Timeline) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// reconcile swaps a placeholder for its persisted form. Returns false when no
// matching placeholder remains. Caller holds the lock.
func (t *Timeline) reconcile(persisted models.ChatMessage) bool {
	if persisted.ClientRef == "" {
		return false
	}
	idx, ok := t.pending[persisted.ClientRef]
	if !ok {
		return false
	}
	delete(t.pending, persisted.ClientRef)
	t.ids[persisted.ID] = true
	t.messages[idx] = persisted
	return true
}

// reindexPending shifts placeholder indexes after a removal at idx. Caller
// holds the lock.
func (t *Timeline) reindexPending(idx int) {
	for ref, i := range t.pending {
		if i > idx {
			t.pending[ref] = i - 1
		}
	}
}
