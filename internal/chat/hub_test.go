package chat

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/models"
)

func recvOne(t *testing.T, sub *Subscriber) models.ChatMessage {
	t.Helper()
	select {
	case msg, ok := <-sub.C:
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
	return models.ChatMessage{}
}

func assertNothing(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case msg := <-sub.C:
		t.Fatalf("unexpected delivery: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_BroadcastExcludesSender(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	defer hub.CloseAll()

	sender := hub.Join("ev1")
	other := hub.Join("ev1")
	bystander := hub.Join("ev2")

	msg := models.ChatMessage{ID: "m1", EventID: "ev1", Body: "halo"}
	hub.Broadcast(context.Background(), "ev1", msg, sender.ID)

	if got := recvOne(t, other); got.ID != "m1" {
		t.Errorf("other subscriber got %+v", got)
	}
	assertNothing(t, sender)
	assertNothing(t, bystander)
}

func TestHub_ChannelCreatedOnFirstUse(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	defer hub.CloseAll()

	// Broadcasting into a channel nobody joined must not panic or create it.
	hub.Broadcast(context.Background(), "ghost", models.ChatMessage{ID: "m1"}, "")

	sub := hub.Join("ev1")
	hub.Broadcast(context.Background(), "ev1", models.ChatMessage{ID: "m2"}, "")
	if got := recvOne(t, sub); got.ID != "m2" {
		t.Errorf("got %+v", got)
	}
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	defer hub.CloseAll()

	sub := hub.Join("ev1")
	hub.Leave("ev1", sub)

	if _, ok := <-sub.C; ok {
		t.Error("expected closed channel after leave")
	}

	// Leaving twice is safe.
	hub.Leave("ev1", sub)
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())

	a := hub.Join("ev1")
	b := hub.Join("ev2")

	hub.CloseAll()

	if _, ok := <-a.C; ok {
		t.Error("expected ev1 subscriber closed")
	}
	if _, ok := <-b.C; ok {
		t.Error("expected ev2 subscriber closed")
	}

	// Idempotent, and joins after shutdown get a closed channel instead of
	// a dangling registration.
	hub.CloseAll()
	late := hub.Join("ev3")
	if _, ok := <-late.C; ok {
		t.Error("expected closed channel for post-shutdown join")
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	defer hub.CloseAll()

	slow := hub.Join("ev1")
	_ = slow // never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Broadcast(context.Background(), "ev1", models.ChatMessage{ID: "m"}, "")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}
