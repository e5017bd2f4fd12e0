package observability

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/models"
)

type mockAnalyticsWriter struct {
	mu     sync.Mutex
	events []*models.AnalyticsEvent
}

func (m *mockAnalyticsWriter) WriteQueryPerformance(ctx context.Context, event *models.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockAnalyticsWriter) getEvents() []*models.AnalyticsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*models.AnalyticsEvent, len(m.events))
	copy(cp, m.events)
	return cp
}

func TestSlowQueryDetector_ClassifySeverity(t *testing.T) {
	sqd := &SlowQueryDetector{
		warningThreshold:  5 * time.Second,
		criticalThreshold: 15 * time.Second,
	}

	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"below warning", 2 * time.Second, "normal"},
		{"at warning", 5 * time.Second, "normal"},
		{"above warning", 8 * time.Second, "warning"},
		{"at critical", 15 * time.Second, "warning"},
		{"above critical", 20 * time.Second, "critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sqd.classifySeverity(tt.duration)
			if got != tt.want {
				t.Errorf("classifySeverity(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}

func TestSlowQueryDetector_InterceptBelowThreshold(t *testing.T) {
	aw := &mockAnalyticsWriter{}
	sqd := NewSlowQueryDetector(5*time.Second, 15*time.Second, zap.NewNop(), aw)

	sqd.Intercept(context.Background(), "fast query", "movies", 1*time.Second, 3, 0)

	// Give the async writer time just in case (it shouldn't fire).
	time.Sleep(50 * time.Millisecond)

	if events := aw.getEvents(); len(events) != 0 {
		t.Errorf("expected no analytics events for fast query, got %d", len(events))
	}
}

func TestSlowQueryDetector_InterceptAboveWarning(t *testing.T) {
	aw := &mockAnalyticsWriter{}
	sqd := NewSlowQueryDetector(5*time.Second, 15*time.Second, zap.NewNop(), aw)

	sqd.Intercept(context.Background(), "slow query", "both", 8*time.Second, 4, 6)

	time.Sleep(100 * time.Millisecond)

	events := aw.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 analytics event, got %d", len(events))
	}

	event := events[0]
	if event.EventType != "query_performance" {
		t.Errorf("expected event type 'query_performance', got %q", event.EventType)
	}
	if event.QueryType != "both" {
		t.Errorf("expected query type 'both', got %q", event.QueryType)
	}
	if event.DurationMs != 8000 {
		t.Errorf("expected duration 8000ms, got %f", event.DurationMs)
	}
	if event.MovieCount != 4 || event.MatchCount != 6 {
		t.Errorf("unexpected result counts: %d movies, %d matches", event.MovieCount, event.MatchCount)
	}
}

func TestSlowQueryDetector_NilAnalyticsWriter(t *testing.T) {
	sqd := NewSlowQueryDetector(5*time.Second, 15*time.Second, zap.NewNop(), nil)

	// Must not panic.
	sqd.Intercept(context.Background(), "slow query", "sports", 8*time.Second, 0, 2)
}

func TestHashQueryForLog(t *testing.T) {
	h1 := hashQueryForLog("film horor indonesia")
	h2 := hashQueryForLog("film horor indonesia")

	if h1 != h2 {
		t.Errorf("hashQueryForLog not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != 16 {
		t.Errorf("expected 16 char hex, got %d chars: %q", len(h1), h1)
	}
}

func TestHashUint64(t *testing.T) {
	if hashUint64("test") != hashUint64("test") {
		t.Error("hashUint64 not deterministic")
	}
	if hashUint64("test") == hashUint64("other") {
		t.Error("different inputs should produce different hashes")
	}
	if hashUint64("") != 0 {
		t.Error("expected 0 for empty string")
	}
}
