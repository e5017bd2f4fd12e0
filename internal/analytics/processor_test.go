package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.ActivityEvent
	err    error
}

func (s *recordingSink) InsertActivityEvent(ctx context.Context, event *models.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func searchEvent(query string) *models.ActivityEvent {
	return &models.ActivityEvent{
		Type:      "search",
		Query:     query,
		Timestamp: time.Now().UTC(),
	}
}

func TestHandleEvent_NilEvent(t *testing.T) {
	p := NewProcessor(&recordingSink{}, nil, 10, time.Hour, zap.NewNop())
	defer p.Stop()

	if err := p.HandleEvent(context.Background(), nil); err == nil {
		t.Error("expected error for nil event")
	}
}

func TestHandleEvent_BuffersBelowBatchSize(t *testing.T) {
	sink := &recordingSink{}
	p := NewProcessor(sink, nil, 10, time.Hour, zap.NewNop())

	for i := 0; i < 3; i++ {
		if err := p.HandleEvent(context.Background(), searchEvent("liga 1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := sink.count(); got != 0 {
		t.Errorf("expected no sink writes before the batch fills, got %d", got)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := sink.count(); got != 3 {
		t.Errorf("expected 3 events flushed on Stop, got %d", got)
	}
}

func TestHandleEvent_FlushesFullBatch(t *testing.T) {
	sink := &recordingSink{}
	p := NewProcessor(sink, nil, 2, time.Hour, zap.NewNop())
	defer p.Stop()

	p.HandleEvent(context.Background(), searchEvent("a"))
	if err := p.HandleEvent(context.Background(), searchEvent("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := sink.count(); got != 2 {
		t.Errorf("expected full batch to flush immediately, got %d writes", got)
	}
}

func TestHandleEvent_SinkErrorSurfacesOnFlush(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	p := NewProcessor(sink, nil, 1, time.Hour, zap.NewNop())
	defer p.Stop()

	if err := p.HandleEvent(context.Background(), searchEvent("a")); err == nil {
		t.Error("expected flush error to surface for the consumer's retry loop")
	}
}

func TestStop_FlushesRemainder(t *testing.T) {
	sink := &recordingSink{}
	p := NewProcessor(sink, nil, 100, time.Hour, zap.NewNop())

	p.HandleEvent(context.Background(), searchEvent("persib vs persija"))
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := sink.count(); got != 1 {
		t.Errorf("expected buffered event flushed on Stop, got %d", got)
	}
}
