// Package events provides bridge and forward lifecycle event definitions and
// publishing infrastructure. Events are transport-agnostic; a Publisher decides
// where they go.
package events

import (
	"time"
)

// EventType identifies the type of lifecycle event
type EventType string

const (
	// BridgeCreated fires when two legs are wired together
	BridgeCreated EventType = "bridge.created"
	// BridgeEstablished fires when the inbound leg is connected
	BridgeEstablished EventType = "bridge.established"
	// BridgeRenegotiated fires when a re-INVITE crosses the bridge or is absorbed by it
	BridgeRenegotiated EventType = "bridge.renegotiated"
	// BridgeClosed fires once when either leg fails or disconnects
	BridgeClosed EventType = "bridge.closed"
	// ForwardFailed fires when an inbound alert could not be forwarded
	ForwardFailed EventType = "forward.failed"
)

// LegRole identifies which leg of a bridge
type LegRole string

const (
	LegA LegRole = "A" // Inbound leg (caller)
	LegB LegRole = "B" // Outbound leg (callee)
)

// Event is the base interface for all lifecycle events
type Event interface {
	// Type returns the event type for routing/filtering
	Type() EventType
	// Subject returns the subject this event should publish to
	Subject() string
	// Timestamp returns when the event occurred
	Timestamp() time.Time
	// CallID returns the primary correlation ID
	CallID() string
}

// BaseEvent contains fields common to all events
type BaseEvent struct {
	// EventID is a unique identifier for this event instance (for deduplication)
	EventID string `json:"event_id"`
	// EventType identifies the event
	EventType EventType `json:"event_type"`
	// EventTime is when the event occurred
	EventTime time.Time `json:"event_time"`
	// CallUUID is the ID of the inbound leg
	CallUUID string `json:"call_uuid"`
	// BridgeID links leg A and leg B (empty when no bridge was created)
	BridgeID string `json:"bridge_id,omitempty"`
	// NodeID identifies the instance that produced the event
	NodeID string `json:"node_id,omitempty"`
}

func (e *BaseEvent) Type() EventType      { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time { return e.EventTime }
func (e *BaseEvent) CallID() string       { return e.CallUUID }

// Subject returns the subject for routing.
// Bridge events are keyed by bridge ID, forward events by call UUID.
func (e *BaseEvent) Subject() string {
	if e.BridgeID != "" {
		return BridgeSubject(e.BridgeID, SubjectForEventType(e.EventType))
	}
	return ForwardSubject(e.CallUUID, SubjectForEventType(e.EventType))
}

// LegInfo describes one leg of a bridge
type LegInfo struct {
	ID          string `json:"id"`
	ClientType  string `json:"client_type"`
	DisplayName string `json:"display_name,omitempty"`
}

// BridgeCreatedEvent fires when a bridge registers its reactions
type BridgeCreatedEvent struct {
	BaseEvent
	LegA   LegInfo `json:"leg_a"`
	LegB   LegInfo `json:"leg_b"`
	Direct bool    `json:"direct"`
	// Forward is the forwarder variant that created leg B, if any
	Forward string `json:"forward,omitempty"`
}

// BridgeEstablishedEvent fires when the inbound leg reports connected
type BridgeEstablishedEvent struct {
	BaseEvent
	// SetupDurationMs is the time from bridge creation to establishment
	SetupDurationMs int64 `json:"setup_duration_ms"`
}

// BridgeRenegotiatedEvent fires for every re-INVITE received on a bridged leg
type BridgeRenegotiatedEvent struct {
	BaseEvent
	// From is the leg that received the re-INVITE
	From     LegRole `json:"from"`
	MimeType string  `json:"mime_type"`
	// Absorbed is true when the bridge answered the re-INVITE itself
	Absorbed bool `json:"absorbed"`
	// Hold is true when the offered SDP puts the media on hold
	Hold bool `json:"hold"`
}

// BridgeClosedEvent fires once per bridge
type BridgeClosedEvent struct {
	BaseEvent
	// TerminatedBy is the leg whose terminal event closed the bridge
	TerminatedBy LegRole `json:"terminated_by"`
	// Trigger is the terminal event name ("Failed" or "Disconnected")
	Trigger string `json:"trigger"`
	// Established is true if the bridge reached the established state
	Established bool `json:"established"`
	// DurationMs is the time from bridge creation to close
	DurationMs int64 `json:"duration_ms"`
}

// ForwardFailedEvent fires when an alert could not be forwarded
type ForwardFailedEvent struct {
	BaseEvent
	Forward     string `json:"forward"`
	Stage       string `json:"stage"`
	Destination string `json:"destination"`
	Error       string `json:"error"`
}
