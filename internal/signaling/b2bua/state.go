// Package b2bua provides B2BUA (Back-to-Back User Agent) primitives
// for relaying signaling between two call legs and forwarding inbound calls.
package b2bua

import "fmt"

// ClientType identifies what kind of endpoint sits behind a leg.
type ClientType int

const (
	// ClientTypeUnknown is used when the host cannot classify the leg.
	ClientTypeUnknown ClientType = iota
	// ClientTypePSTN is a leg to or from the public telephone network.
	ClientTypePSTN
	// ClientTypeSIP is a leg to or from an arbitrary SIP URI.
	ClientTypeSIP
	// ClientTypeUser is a leg to or from a registered user of the application.
	ClientTypeUser
	// ClientTypeDirect is a peer-to-peer leg to a registered user.
	ClientTypeDirect
	// ClientTypeConference is a leg attached to a conference mixer.
	ClientTypeConference
)

// String returns the string representation of ClientType.
func (c ClientType) String() string {
	switch c {
	case ClientTypeUnknown:
		return "Unknown"
	case ClientTypePSTN:
		return "PSTN"
	case ClientTypeSIP:
		return "SIP"
	case ClientTypeUser:
		return "User"
	case ClientTypeDirect:
		return "Direct"
	case ClientTypeConference:
		return "Conference"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// EventType identifies a signaling event emitted by a leg.
type EventType int

const (
	// EventConnected fires when the leg is answered (200 OK / ACK).
	EventConnected EventType = iota
	// EventRinging fires on 180 Ringing.
	EventRinging
	// EventAudioStarted fires when early media begins (183 with SDP).
	EventAudioStarted
	// EventMessageReceived fires on an in-dialog instant message.
	EventMessageReceived
	// EventInfoReceived fires on an in-dialog INFO request.
	EventInfoReceived
	// EventReInviteReceived fires when the far end starts a renegotiation.
	EventReInviteReceived
	// EventReInviteAccepted fires when our renegotiation was accepted.
	EventReInviteAccepted
	// EventReInviteRejected fires when our renegotiation was rejected.
	EventReInviteRejected
	// EventFailed fires when the leg could not be established.
	EventFailed
	// EventDisconnected fires when an established leg hangs up.
	EventDisconnected
)

// String returns the string representation of EventType.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "Connected"
	case EventRinging:
		return "Ringing"
	case EventAudioStarted:
		return "AudioStarted"
	case EventMessageReceived:
		return "MessageReceived"
	case EventInfoReceived:
		return "InfoReceived"
	case EventReInviteReceived:
		return "ReInviteReceived"
	case EventReInviteAccepted:
		return "ReInviteAccepted"
	case EventReInviteRejected:
		return "ReInviteRejected"
	case EventFailed:
		return "Failed"
	case EventDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// IsTerminal returns true if the event ends the leg.
func (t EventType) IsTerminal() bool {
	return t == EventFailed || t == EventDisconnected
}

// ForwardKind identifies which forwarder variant handled an alert.
type ForwardKind string

const (
	ForwardPSTN       ForwardKind = "pstn"
	ForwardUser       ForwardKind = "user"
	ForwardUserDirect ForwardKind = "user-direct"
	ForwardSIP        ForwardKind = "sip"
)

// String returns the string representation of ForwardKind.
func (k ForwardKind) String() string {
	return string(k)
}

// ParseForwardKind parses a forward mode name as used in configuration.
func ParseForwardKind(s string) (ForwardKind, error) {
	switch k := ForwardKind(s); k {
	case ForwardPSTN, ForwardUser, ForwardUserDirect, ForwardSIP:
		return k, nil
	default:
		return "", fmt.Errorf("unknown forward mode %q", s)
	}
}
