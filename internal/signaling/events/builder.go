package events

import (
	"time"

	"github.com/google/uuid"
)

// Builder provides fluent construction of lifecycle events with consistent defaults.
type Builder struct {
	nodeID string
}

// NewBuilder creates an event builder with global defaults.
func NewBuilder(nodeID string) *Builder {
	return &Builder{nodeID: nodeID}
}

// newBase creates a BaseEvent with common fields populated.
func (b *Builder) newBase(eventType EventType, callUUID, bridgeID string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		EventTime: time.Now().UTC(),
		CallUUID:  callUUID,
		BridgeID:  bridgeID,
		NodeID:    b.nodeID,
	}
}

// BridgeCreatedBuilder constructs BridgeCreatedEvent.
type BridgeCreatedBuilder struct {
	event *BridgeCreatedEvent
}

// BridgeCreated starts building a BridgeCreatedEvent.
func (b *Builder) BridgeCreated(callUUID, bridgeID string) *BridgeCreatedBuilder {
	return &BridgeCreatedBuilder{
		event: &BridgeCreatedEvent{
			BaseEvent: b.newBase(BridgeCreated, callUUID, bridgeID),
		},
	}
}

func (cb *BridgeCreatedBuilder) Legs(a, b LegInfo) *BridgeCreatedBuilder {
	cb.event.LegA = a
	cb.event.LegB = b
	return cb
}

func (cb *BridgeCreatedBuilder) Direct(direct bool) *BridgeCreatedBuilder {
	cb.event.Direct = direct
	return cb
}

func (cb *BridgeCreatedBuilder) Forward(kind string) *BridgeCreatedBuilder {
	cb.event.Forward = kind
	return cb
}

func (cb *BridgeCreatedBuilder) Build() *BridgeCreatedEvent {
	return cb.event
}

// BridgeEstablishedBuilder constructs BridgeEstablishedEvent.
type BridgeEstablishedBuilder struct {
	event *BridgeEstablishedEvent
}

// BridgeEstablished starts building a BridgeEstablishedEvent.
func (b *Builder) BridgeEstablished(callUUID, bridgeID string) *BridgeEstablishedBuilder {
	return &BridgeEstablishedBuilder{
		event: &BridgeEstablishedEvent{
			BaseEvent: b.newBase(BridgeEstablished, callUUID, bridgeID),
		},
	}
}

func (cb *BridgeEstablishedBuilder) SetupDuration(d time.Duration) *BridgeEstablishedBuilder {
	cb.event.SetupDurationMs = d.Milliseconds()
	return cb
}

func (cb *BridgeEstablishedBuilder) Build() *BridgeEstablishedEvent {
	return cb.event
}

// BridgeRenegotiatedBuilder constructs BridgeRenegotiatedEvent.
type BridgeRenegotiatedBuilder struct {
	event *BridgeRenegotiatedEvent
}

// BridgeRenegotiated starts building a BridgeRenegotiatedEvent.
func (b *Builder) BridgeRenegotiated(callUUID, bridgeID string) *BridgeRenegotiatedBuilder {
	return &BridgeRenegotiatedBuilder{
		event: &BridgeRenegotiatedEvent{
			BaseEvent: b.newBase(BridgeRenegotiated, callUUID, bridgeID),
		},
	}
}

func (cb *BridgeRenegotiatedBuilder) From(role LegRole) *BridgeRenegotiatedBuilder {
	cb.event.From = role
	return cb
}

func (cb *BridgeRenegotiatedBuilder) MimeType(mimeType string) *BridgeRenegotiatedBuilder {
	cb.event.MimeType = mimeType
	return cb
}

func (cb *BridgeRenegotiatedBuilder) Absorbed(absorbed bool) *BridgeRenegotiatedBuilder {
	cb.event.Absorbed = absorbed
	return cb
}

func (cb *BridgeRenegotiatedBuilder) Hold(hold bool) *BridgeRenegotiatedBuilder {
	cb.event.Hold = hold
	return cb
}

func (cb *BridgeRenegotiatedBuilder) Build() *BridgeRenegotiatedEvent {
	return cb.event
}

// BridgeClosedBuilder constructs BridgeClosedEvent.
type BridgeClosedBuilder struct {
	event *BridgeClosedEvent
}

// BridgeClosed starts building a BridgeClosedEvent.
func (b *Builder) BridgeClosed(callUUID, bridgeID string) *BridgeClosedBuilder {
	return &BridgeClosedBuilder{
		event: &BridgeClosedEvent{
			BaseEvent: b.newBase(BridgeClosed, callUUID, bridgeID),
		},
	}
}

func (cb *BridgeClosedBuilder) TerminatedBy(role LegRole, trigger string) *BridgeClosedBuilder {
	cb.event.TerminatedBy = role
	cb.event.Trigger = trigger
	return cb
}

func (cb *BridgeClosedBuilder) Established(established bool) *BridgeClosedBuilder {
	cb.event.Established = established
	return cb
}

func (cb *BridgeClosedBuilder) Duration(d time.Duration) *BridgeClosedBuilder {
	cb.event.DurationMs = d.Milliseconds()
	return cb
}

func (cb *BridgeClosedBuilder) Build() *BridgeClosedEvent {
	return cb.event
}

// ForwardFailedBuilder constructs ForwardFailedEvent.
type ForwardFailedBuilder struct {
	event *ForwardFailedEvent
}

// ForwardFailed starts building a ForwardFailedEvent.
func (b *Builder) ForwardFailed(callUUID string) *ForwardFailedBuilder {
	return &ForwardFailedBuilder{
		event: &ForwardFailedEvent{
			BaseEvent: b.newBase(ForwardFailed, callUUID, ""),
		},
	}
}

func (cb *ForwardFailedBuilder) Forward(kind, stage string) *ForwardFailedBuilder {
	cb.event.Forward = kind
	cb.event.Stage = stage
	return cb
}

func (cb *ForwardFailedBuilder) Destination(dest string) *ForwardFailedBuilder {
	cb.event.Destination = dest
	return cb
}

func (cb *ForwardFailedBuilder) Error(err error) *ForwardFailedBuilder {
	if err != nil {
		cb.event.Error = err.Error()
	}
	return cb
}

func (cb *ForwardFailedBuilder) Build() *ForwardFailedEvent {
	return cb.event
}
