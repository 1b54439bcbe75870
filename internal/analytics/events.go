package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventLoad       EventType = "load"
)

// Keys used when events are published to Kafka.
const (
	KeySearch = "search"
	KeyLoad   = "load"
)

type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Mode       string    `json:"mode"`
	Generation uint64    `json:"generation"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	Dangling   int       `json:"dangling"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

type LoadEvent struct {
	Type       EventType      `json:"type"`
	Generation uint64         `json:"generation"`
	Source     string         `json:"source"`
	Status     string         `json:"status"`
	Accepted   int            `json:"accepted"`
	Rejected   map[string]int `json:"rejected,omitempty"`
	LatencyMs  int64          `json:"latency_ms"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Tracker accepts events for delivery. Implementations must not block.
type Tracker interface {
	Track(key string, value any)
}
