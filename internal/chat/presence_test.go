package chat

import (
	"sync"
	"testing"
)

func TestPresence_JoinLeaveCounts(t *testing.T) {
	p := NewPresence()

	if got := p.Join("ev1", "c1", "ardi"); got != 1 {
		t.Errorf("first join count = %d, want 1", got)
	}
	if got := p.Join("ev1", "c2", "sari"); got != 2 {
		t.Errorf("second join count = %d, want 2", got)
	}
	if got := p.Join("ev2", "c3", "budi"); got != 1 {
		t.Errorf("other event count = %d, want 1", got)
	}

	if got := p.Leave("ev1", "c1"); got != 1 {
		t.Errorf("count after leave = %d, want 1", got)
	}
	if got := p.Count("ev1"); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestPresence_SameNameTwoConnectionsCountsTwice(t *testing.T) {
	p := NewPresence()

	p.Join("ev1", "c1", "ardi")
	p.Join("ev1", "c2", "ardi")

	if got := p.Count("ev1"); got != 2 {
		t.Errorf("Count = %d, want 2 (presence is per connection)", got)
	}
}

func TestPresence_RejoinSameConnectionIsIdempotent(t *testing.T) {
	p := NewPresence()

	p.Join("ev1", "c1", "ardi")
	if got := p.Join("ev1", "c1", "ardi renamed"); got != 1 {
		t.Errorf("rejoin count = %d, want 1", got)
	}
}

func TestPresence_LeaveUnknownIsSafe(t *testing.T) {
	p := NewPresence()

	if got := p.Leave("ev1", "ghost"); got != 0 {
		t.Errorf("Leave on empty event = %d, want 0", got)
	}
}

func TestPresence_CountConvergesUnderChurn(t *testing.T) {
	p := NewPresence()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := string(rune('a'+i%26)) + string(rune('0'+i/26))
			p.Join("ev1", connID, "viewer")
			p.Leave("ev1", connID)
		}(i)
	}
	wg.Wait()

	if got := p.Count("ev1"); got != 0 {
		t.Errorf("count after balanced churn = %d, want 0", got)
	}
}

func TestPresence_Snapshot(t *testing.T) {
	p := NewPresence()
	p.Join("ev1", "c1", "ardi")
	p.Join("ev1", "c2", "sari")

	viewers := p.Snapshot("ev1")
	if len(viewers) != 2 {
		t.Fatalf("expected 2 viewers, got %d", len(viewers))
	}
	for _, v := range viewers {
		if v.EventID != "ev1" || v.JoinedAt.IsZero() {
			t.Errorf("malformed presence record: %+v", v)
		}
	}
}
