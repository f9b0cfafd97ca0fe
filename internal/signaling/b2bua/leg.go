package b2bua

// Leg represents one side of a call in a B2BUA scenario.
//
// Legs are created and destroyed by the hosting session layer. The bridge only
// holds a reference for the duration of bridging and never touches a leg after
// a terminal event.
//
// Signaling operations are fire-and-forget: the host translates them into SIP
// requests or responses and reports the outcome through events.
type Leg interface {
	// ID returns the unique identifier for this leg.
	ID() string

	// ClientType returns the kind of endpoint behind the leg.
	ClientType() ClientType

	// Capabilities returns what the leg can take part in.
	Capabilities() Capabilities

	// DisplayName returns the display name the leg presents to its peer.
	DisplayName() string

	// Scheme returns the negotiation scheme the leg advertised, if any.
	Scheme() string

	// AddEventListener registers fn for events of type t.
	// Events on a single leg are delivered in emission order.
	// Returns a function to unregister the listener.
	AddEventListener(t EventType, fn Handler) func()

	// --- Signaling Operations ---

	Answer(headers Headers, params AnswerParams)
	AnswerDirect(peer Leg, headers Headers, params AnswerParams)
	Ring()
	StartEarlyMedia(headers Headers, scheme string)
	SendMessage(text string)
	SendInfo(mimeType, body string, headers Headers)
	ReInvite(headers Headers, mimeType, body string)
	AcceptReInvite(headers Headers, mimeType, body string)
	RejectReInvite(headers Headers, rejection Rejection)
}

// Capabilities is the explicit capability set of a leg.
type Capabilities struct {
	// SupportsReInvite is false for legs that cannot renegotiate mid-call.
	SupportsReInvite bool
	// IsConference is true when the leg terminates on a conference.
	IsConference bool
}

// Headers carries extra SIP headers, keyed by header name.
type Headers map[string]string

// Clone returns a copy of h. A nil map clones to nil.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// AnswerParams are the optional parameters of Answer and AnswerDirect.
type AnswerParams struct {
	DisplayName string
	Scheme      string
}

// Rejection describes why a renegotiation was refused.
type Rejection struct {
	Code   int
	Reason string
}

// Common body content types.
const (
	MimeTypeJSON = "application/json"
	MimeTypeSDP  = "application/sdp"
)

// Event is a signaling event emitted by a leg.
// Only the fields relevant to Type are populated.
type Event struct {
	Type EventType
	Leg  Leg

	Headers     Headers
	DisplayName string
	Scheme      string

	// MessageReceived
	Text string

	// InfoReceived and ReInvite*
	MimeType string
	Body     string

	// ReInviteRejected
	Code   int
	Reason string
}

// Handler reacts to a leg event.
type Handler func(e *Event)
