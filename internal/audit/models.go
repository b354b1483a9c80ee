package audit

import "time"

// EventType names an audited action.
type EventType string

const (
	EventMemberRegistered  EventType = "member.registered"
	EventDuplicateRejected EventType = "member.duplicate_rejected"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	PersonID   string    `json:"person_id"`
	MemberType string    `json:"member_type,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Operator   string    `json:"operator,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
