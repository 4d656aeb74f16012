package models

// EventType enumerates the kinds of events the Query & Subscription API
// (C10) emits to per-tenant subscribers (§4.10).
type EventType string

const (
	EventLoopAdded       EventType = "loop_added"
	EventLoopRemoved     EventType = "loop_removed"
	EventLoopStale       EventType = "loop_stale"
	EventSubscriberLagged EventType = "subscriber_lagged"
)

// Event is one entry in a tenant's change stream. Version is the graph
// version (§3 TenantGraph.version) that produced the event — events are
// monotonically tagged so a subscriber can reconstruct a consistent
// chronological history of additions/removals (§5 Ordering guarantees).
type Event struct {
	Type    EventType  `json:"type"`
	Loop    *TradeLoop `json:"loop,omitempty"`
	Version uint64     `json:"version"`
}
