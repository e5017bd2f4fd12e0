package models

import "time"

// ActivityEvent is one entry of the analytics pipeline: emitted by the
// orchestrator and the chat service, carried over Kafka, sunk into ClickHouse.
type ActivityEvent struct {
	Type       string    `json:"type"` // search, chat_message
	RequestID  string    `json:"request_id,omitempty"`
	QueryHash  string    `json:"query_hash,omitempty"`
	Query      string    `json:"query,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	MovieCount int       `json:"movie_count,omitempty"`
	MatchCount int       `json:"match_count,omitempty"`
	EventID    string    `json:"event_id,omitempty"`
	DurationMs float64   `json:"duration_ms,omitempty"`
	CacheHit   bool      `json:"cache_hit,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AnalyticsEvent records the performance of one slow query.
type AnalyticsEvent struct {
	EventType  string    `json:"event_type"`
	QueryHash  string    `json:"query_hash"`
	QueryType  string    `json:"query_type"`
	DurationMs float64   `json:"duration_ms"`
	MovieCount int       `json:"movie_count"`
	MatchCount int       `json:"match_count"`
	Timestamp  time.Time `json:"timestamp"`
	TraceID    string    `json:"trace_id"`
}
