package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryRoster covers changes to who takes part in the exchange.
	CategoryRoster EventCategory = "roster"

	// CategoryExchange covers cycle generation outcomes.
	CategoryExchange EventCategory = "exchange"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Events never carry assignments: the exchange is anonymous, so a cycle event
// records only its key and size.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	// Subject is the member id or cycle key the action applies to.
	Subject   string `json:"subject"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// Count holds the roster size for cycle events.
	Count int `json:"count,omitempty"`
}

type AuditEvent string

const (
	EventMemberCreated AuditEvent = "member_created"
	EventMemberRenamed AuditEvent = "member_renamed"
	EventMemberDeleted AuditEvent = "member_deleted"

	EventCycleGenerated        AuditEvent = "cycle_generated"
	EventCycleGenerationFailed AuditEvent = "cycle_generation_failed"
)

// Store persists or forwards events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists persisted events, newest first.
type Reader interface {
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
