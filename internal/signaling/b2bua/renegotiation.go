package b2bua

import (
	"github.com/pion/sdp/v3"
)

// offersHold reports whether a renegotiation body puts the call on hold.
// Only SDP bodies are inspected; anything else reports false.
//
// An offer is a hold when the session or any media section is sendonly, recvonly or
// inactive, or when the connection address is the RFC 2543 style 0.0.0.0.
func offersHold(mimeType, body string) bool {
	if mimeType != MimeTypeSDP || body == "" {
		return false
	}

	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(body)); err != nil {
		return false
	}

	if holdDirection(desc.Attributes) {
		return true
	}
	if desc.ConnectionInformation != nil && nullAddress(desc.ConnectionInformation) {
		return true
	}

	for _, m := range desc.MediaDescriptions {
		if holdDirection(m.Attributes) {
			return true
		}
		if m.ConnectionInformation != nil && nullAddress(m.ConnectionInformation) {
			return true
		}
	}
	return false
}

func holdDirection(attrs []sdp.Attribute) bool {
	for _, a := range attrs {
		switch a.Key {
		case "sendonly", "recvonly", "inactive":
			return true
		}
	}
	return false
}

func nullAddress(c *sdp.ConnectionInformation) bool {
	return c.Address != nil && c.Address.Address == "0.0.0.0"
}
