package chat

import (
	"testing"
	"time"

	"github.com/ardiwinata/nobar/internal/models"
)

func persistedFrom(temp models.ChatMessage, id string) models.ChatMessage {
	return models.ChatMessage{
		ID:        id,
		EventID:   temp.EventID,
		Username:  temp.Username,
		Body:      temp.Body,
		ClientRef: temp.ClientRef,
		CreatedAt: time.Now().UTC(),
	}
}

func TestTimeline_AppendPendingIsTemporary(t *testing.T) {
	tl := NewTimeline(nil)
	temp := tl.AppendPending("ev1", "ardi", "halo")

	if !temp.Pending() {
		t.Error("placeholder must carry a temp id")
	}
	if temp.ClientRef == "" {
		t.Error("placeholder must carry a correlation ref")
	}
	if got := tl.Messages(); len(got) != 1 || got[0].ID != temp.ID {
		t.Errorf("unexpected timeline: %+v", got)
	}
}

func TestTimeline_ConfirmReplacesExactlyOnce(t *testing.T) {
	tl := NewTimeline(nil)
	temp := tl.AppendPending("ev1", "ardi", "halo")
	persisted := persistedFrom(temp, "server-id-1")

	if !tl.Confirm(persisted) {
		t.Fatal("first confirmation must replace the placeholder")
	}
	if tl.Confirm(persisted) {
		t.Error("second confirmation must be a no-op")
	}

	got := tl.Messages()
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 entry after confirmation, got %d", len(got))
	}
	if got[0].ID != "server-id-1" || got[0].Pending() {
		t.Errorf("placeholder not replaced: %+v", got[0])
	}
	if tl.PendingCount() != 0 {
		t.Errorf("expected no pending entries, got %d", tl.PendingCount())
	}
}

func TestTimeline_BroadcastEchoBeforeInsertResponse(t *testing.T) {
	// Whichever of the durable-write response and the broadcast echo arrives
	// first wins; the other must be a no-op.
	tl := NewTimeline(nil)
	temp := tl.AppendPending("ev1", "ardi", "halo")
	persisted := persistedFrom(temp, "server-id-1")

	if !tl.Merge(persisted) {
		t.Fatal("echo must confirm the placeholder")
	}
	if tl.Confirm(persisted) {
		t.Error("late insert response must be a no-op")
	}

	if got := tl.Messages(); len(got) != 1 || got[0].ID != "server-id-1" {
		t.Errorf("expected exactly one confirmed entry, got %+v", got)
	}
}

func TestTimeline_RollbackRemovesPlaceholder(t *testing.T) {
	tl := NewTimeline(nil)
	keep := tl.AppendPending("ev1", "ardi", "first")
	drop := tl.AppendPending("ev1", "ardi", "second")

	if !tl.Rollback(drop.ClientRef) {
		t.Fatal("rollback must remove the placeholder")
	}
	if tl.Rollback(drop.ClientRef) {
		t.Error("second rollback must be a no-op")
	}

	got := tl.Messages()
	if len(got) != 1 || got[0].ClientRef != keep.ClientRef {
		t.Errorf("unexpected timeline after rollback: %+v", got)
	}

	// The surviving placeholder must still confirm after the index shift.
	if !tl.Confirm(persistedFrom(keep, "server-id-9")) {
		t.Error("surviving placeholder failed to confirm after rollback")
	}
}

func TestTimeline_MergeIsIdempotent(t *testing.T) {
	tl := NewTimeline(nil)
	msg := models.ChatMessage{ID: "server-id-1", EventID: "ev1", Username: "other", Body: "hi"}

	if !tl.Merge(msg) {
		t.Fatal("first merge must append")
	}
	if tl.Merge(msg) {
		t.Error("duplicate delivery must be ignored")
	}
	if got := tl.Messages(); len(got) != 1 {
		t.Errorf("expected 1 entry, got %d", len(got))
	}
}

func TestTimeline_HistoryDeduped(t *testing.T) {
	history := []models.ChatMessage{
		{ID: "a", Body: "one"},
		{ID: "b", Body: "two"},
		{ID: "a", Body: "one again"},
	}
	tl := NewTimeline(history)

	if got := tl.Messages(); len(got) != 2 {
		t.Errorf("expected deduplicated history of 2, got %d", len(got))
	}
}
