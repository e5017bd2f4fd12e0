package chat

import (
	"sync"
	"time"

	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
)

// Presence tracks who is watching each event. One record per open
// connection, so the same display name on two tabs counts twice. Purely
// observational: the count never drives message filtering.
type Presence struct {
	mu     sync.RWMutex
	events map[string]map[string]models.ViewerPresence
}

func NewPresence() *Presence {
	return &Presence{
		events: make(map[string]map[string]models.ViewerPresence),
	}
}

// Join registers a connection on the event and returns the new viewer count.
func (p *Presence) Join(eventID, connID, name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	viewers, ok := p.events[eventID]
	if !ok {
		viewers = make(map[string]models.ViewerPresence)
		p.events[eventID] = viewers
	}
	viewers[connID] = models.ViewerPresence{
		EventID:  eventID,
		Name:     name,
		JoinedAt: time.Now().UTC(),
	}

	count := len(viewers)
	observability.ChatViewersGauge.WithLabelValues(eventID).Set(float64(count))
	return count
}

// Leave drops a connection and returns the remaining viewer count.
func (p *Presence) Leave(eventID, connID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	viewers, ok := p.events[eventID]
	if !ok {
		return 0
	}
	delete(viewers, connID)
	if len(viewers) == 0 {
		delete(p.events, eventID)
	}

	count := len(viewers)
	observability.ChatViewersGauge.WithLabelValues(eventID).Set(float64(count))
	return count
}

// Count returns the current viewer count for an event.
func (p *Presence) Count(eventID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.events[eventID])
}

// Snapshot returns the current viewers of an event.
func (p *Presence) Snapshot(eventID string) []models.ViewerPresence {
	p.mu.RLock()
	defer p.mu.RUnlock()

	viewers := p.events[eventID]
	out := make([]models.ViewerPresence, 0, len(viewers))
	for _, v := range viewers {
		out = append(out, v)
	}
	return out
}
