package events

import (
	"fmt"
	"strings"
)

// Subject naming conventions.
//
// Hierarchy:
//   legbridge.bridges.<bridge_id>.<event_suffix>   - Per-bridge events
//   legbridge.forwards.<call_uuid>.<event_suffix>  - Per-alert forward events
//
// Wildcard subscriptions:
//   legbridge.bridges.>                            - All bridge events
//   legbridge.bridges.*.closed                     - All bridge.closed events

const (
	// SubjectPrefix is the root of all subjects
	SubjectPrefix = "legbridge"

	SubjectBridges  = SubjectPrefix + ".bridges"
	SubjectForwards = SubjectPrefix + ".forwards"

	SubjectBridgeCreated      = "created"
	SubjectBridgeEstablished  = "established"
	SubjectBridgeRenegotiated = "renegotiated"
	SubjectBridgeClosed       = "closed"
	SubjectForwardFailed      = "failed"
)

// BridgeSubject builds a subject for a specific bridge event.
// Example: BridgeSubject("abc-123", "closed") => "legbridge.bridges.abc-123.closed"
func BridgeSubject(bridgeID string, eventSuffix string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectBridges, bridgeID, eventSuffix)
}

// ForwardSubject builds a subject for a forward event of one inbound call.
func ForwardSubject(callUUID string, eventSuffix string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectForwards, callUUID, eventSuffix)
}

// Subject patterns for common consumer configurations
var (
	PatternAllBridges    = SubjectBridges + ".>"
	PatternBridgeClosed  = SubjectBridges + ".*.closed"
	PatternForwardFailed = SubjectForwards + ".*.failed"
)

// MatchSubject reports whether subject matches pattern. A "*" token matches
// exactly one token and a trailing ">" matches one or more.
func MatchSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}

// SubjectForEventType returns the suffix used for a given event type.
func SubjectForEventType(t EventType) string {
	switch t {
	case BridgeCreated:
		return SubjectBridgeCreated
	case BridgeEstablished:
		return SubjectBridgeEstablished
	case BridgeRenegotiated:
		return SubjectBridgeRenegotiated
	case BridgeClosed:
		return SubjectBridgeClosed
	case ForwardFailed:
		return SubjectForwardFailed
	default:
		return "unknown"
	}
}
