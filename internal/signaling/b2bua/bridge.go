package b2bua

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tevino/abool"

	"github.com/sebas/legbridge/internal/signaling/events"
)

// Bridge relays signaling between an inbound leg (A) and an outbound leg (B)
// so that, from the caller's perspective, both behave as one connected call.
//
// A Bridge coordinates:
//   - Answer, ringing and early media from B towards A
//   - Messages, INFO and renegotiation in both directions
//   - Teardown when either leg fails or disconnects
//
// A Bridge has no explicit stop: it ends when either leg emits a terminal
// event, and the shared cleanup runs exactly once.
//
// Thread Safety: reactions may run on any goroutine as long as the host
// delivers at most one event per leg at a time.
type Bridge struct {
	id  string
	svc *Service

	legA Leg
	legB Leg

	direct        bool
	forward       ForwardKind
	onEstablished EstablishedFunc

	createdAt       time.Time
	establishedOnce sync.Once
	established     *abool.AtomicBool
	closed          *abool.AtomicBool

	// Listener removers. A terminal event may arrive while start() is
	// still registering, so both sides go through mu.
	mu       sync.Mutex
	removers []func()
}

// notAcceptableHere answers offers a leg cannot take part in.
var notAcceptableHere = Rejection{Code: 488, Reason: "Not Acceptable Here"}

func newBridge(svc *Service, legA, legB Leg, onEstablished EstablishedFunc, direct bool, kind ForwardKind) *Bridge {
	return &Bridge{
		id:            "bridge-" + uuid.New().String(),
		svc:           svc,
		legA:          legA,
		legB:          legB,
		direct:        direct,
		forward:       kind,
		onEstablished: onEstablished,
		createdAt:     time.Now(),
		established:   abool.New(),
		closed:        abool.New(),
	}
}

// --- Identity Methods ---

func (b *Bridge) ID() string {
	return b.id
}

func (b *Bridge) LegA() Leg {
	return b.legA
}

func (b *Bridge) LegB() Leg {
	return b.legB
}

func (b *Bridge) Direct() bool {
	return b.direct
}

// Established returns true once leg A has reported connected.
func (b *Bridge) Established() bool {
	return b.established.IsSet()
}

// Closed returns true once the bridge has run its cleanup.
func (b *Bridge) Closed() bool {
	return b.closed.IsSet()
}

// start registers every cross-wiring reaction and requests media routing.
func (b *Bridge) start() {
	a, bl := b.legA, b.legB

	b.svc.cfg.Metrics.BridgeCreated(b.direct)
	b.svc.publish(b.svc.events.BridgeCreated(a.ID(), b.id).
		Legs(legInfo(a), legInfo(bl)).
		Direct(b.direct).
		Forward(b.forward.String()).
		Build())

	// Answer path and call progress: B -> A only
	b.on(bl, EventConnected, b.handlePeerConnected)
	b.on(a, EventConnected, b.handleEstablished)
	b.on(bl, EventRinging, b.handleRinging)
	b.on(bl, EventAudioStarted, b.handleAudioStarted)

	// Symmetric relays
	for _, leg := range []Leg{bl, a} {
		b.on(leg, EventMessageReceived, b.relayMessage)
		b.on(leg, EventInfoReceived, b.relayInfo)
		b.on(leg, EventReInviteReceived, b.relayReInvite)
		b.on(leg, EventReInviteAccepted, b.relayReInviteAccepted)
		b.on(leg, EventReInviteRejected, b.relayReInviteRejected)
	}

	// Both legs share the same cleanup
	for _, leg := range []Leg{a, bl} {
		b.on(leg, EventFailed, b.terminate)
		b.on(leg, EventDisconnected, b.terminate)
	}

	// A leg may already have ended during registration
	if b.closed.IsSet() {
		return
	}

	if m := b.svc.cfg.Media; m != nil {
		m.ConnectMedia(a, bl)
	}

	slog.Info("[Bridge] Created",
		"bridge_id", b.id,
		"leg_a", a.ID(),
		"leg_a_type", a.ClientType().String(),
		"leg_b", bl.ID(),
		"leg_b_type", bl.ClientType().String(),
		"direct", b.direct,
	)
}

// on registers fn on leg behind the closed guard.
func (b *Bridge) on(leg Leg, t EventType, fn func(from Leg, e *Event)) {
	remove := leg.AddEventListener(t, func(e *Event) {
		if b.closed.IsSet() {
			return
		}
		fn(leg, e)
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.IsSet() {
		remove()
		return
	}
	b.removers = append(b.removers, remove)
}

// peer returns the other leg of the pair.
func (b *Bridge) peer(leg Leg) Leg {
	if leg.ID() == b.legA.ID() {
		return b.legB
	}
	return b.legA
}

func (b *Bridge) role(leg Leg) events.LegRole {
	if leg.ID() == b.legA.ID() {
		return events.LegA
	}
	return events.LegB
}

func (b *Bridge) direction(from Leg) string {
	if from.ID() == b.legA.ID() {
		return "a_to_b"
	}
	return "b_to_a"
}

// --- Answer Path ---

func (b *Bridge) handlePeerConnected(from Leg, e *Event) {
	params := AnswerParams{DisplayName: b.legB.DisplayName()}

	if b.direct {
		slog.Debug("[Bridge] B-leg connected, answering A-leg direct",
			"bridge_id", b.id,
		)
		b.legA.AnswerDirect(b.legB, e.Headers, params)
	} else {
		if e.Scheme != "" && !b.legA.Capabilities().IsConference && !b.legB.Capabilities().IsConference {
			params.Scheme = e.Scheme
		}
		slog.Debug("[Bridge] B-leg connected, answering A-leg",
			"bridge_id", b.id,
			"scheme", params.Scheme,
		)
		b.legA.Answer(nil, params)
	}
	b.svc.cfg.Metrics.SignalRelayed(EventConnected.String(), b.direction(from))
}

func (b *Bridge) handleEstablished(_ Leg, _ *Event) {
	b.establishedOnce.Do(func() {
		b.established.Set()

		slog.Info("[Bridge] Established",
			"bridge_id", b.id,
			"setup", time.Since(b.createdAt),
		)
		b.svc.publish(b.svc.events.BridgeEstablished(b.legA.ID(), b.id).
			SetupDuration(time.Since(b.createdAt)).
			Build())

		if b.onEstablished != nil {
			b.onEstablished(b.legA, b.legB)
		}
	})
}

func (b *Bridge) handleRinging(from Leg, _ *Event) {
	b.legA.Ring()
	b.svc.cfg.Metrics.SignalRelayed(EventRinging.String(), b.direction(from))
}

func (b *Bridge) handleAudioStarted(from Leg, e *Event) {
	b.legA.StartEarlyMedia(nil, e.Scheme)
	b.svc.cfg.Metrics.SignalRelayed(EventAudioStarted.String(), b.direction(from))
}

// --- Symmetric Relays ---

func (b *Bridge) relayMessage(from Leg, e *Event) {
	b.peer(from).SendMessage(e.Text)
	b.svc.cfg.Metrics.SignalRelayed(EventMessageReceived.String(), b.direction(from))
}

func (b *Bridge) relayInfo(from Leg, e *Event) {
	b.peer(from).SendInfo(e.MimeType, e.Body, e.Headers)
	b.svc.cfg.Metrics.SignalRelayed(EventInfoReceived.String(), b.direction(from))
}

// relayReInvite forwards a renegotiation to the peer. An offer from a PSTN
// leg, or one the peer cannot renegotiate, is answered on the spot instead:
// JSON offers are accepted with an empty SDP answer, anything else is
// rejected with 488. The offering leg always gets a response.
func (b *Bridge) relayReInvite(from Leg, e *Event) {
	peer := b.peer(from)
	absorb := from.ClientType() == ClientTypePSTN || !peer.Capabilities().SupportsReInvite

	switch {
	case absorb && e.MimeType == MimeTypeJSON:
		slog.Debug("[Bridge] Accepting re-INVITE locally",
			"bridge_id", b.id,
			"leg", from.ID(),
			"client_type", from.ClientType().String(),
		)
		from.AcceptReInvite(nil, MimeTypeSDP, "")
		b.svc.cfg.Metrics.ReInviteAbsorbed()
	case absorb:
		slog.Debug("[Bridge] Rejecting re-INVITE locally",
			"bridge_id", b.id,
			"leg", from.ID(),
			"client_type", from.ClientType().String(),
			"mime_type", e.MimeType,
		)
		from.RejectReInvite(nil, notAcceptableHere)
		b.svc.cfg.Metrics.ReInviteAbsorbed()
	default:
		peer.ReInvite(e.Headers, e.MimeType, e.Body)
		b.svc.cfg.Metrics.SignalRelayed(EventReInviteReceived.String(), b.direction(from))
	}

	b.svc.publish(b.svc.events.BridgeRenegotiated(b.legA.ID(), b.id).
		From(b.role(from)).
		MimeType(e.MimeType).
		Absorbed(absorb).
		Hold(offersHold(e.MimeType, e.Body)).
		Build())
}

// relayReInviteAccepted hands the answer back to the offering leg. PSTN
// offers never cross the bridge, so there is nothing to hand back to one.
func (b *Bridge) relayReInviteAccepted(from Leg, e *Event) {
	peer := b.peer(from)
	if peer == nil || peer.ClientType() == ClientTypePSTN {
		return
	}
	peer.AcceptReInvite(e.Headers, e.MimeType, e.Body)
	b.svc.cfg.Metrics.SignalRelayed(EventReInviteAccepted.String(), b.direction(from))
}

func (b *Bridge) relayReInviteRejected(from Leg, e *Event) {
	b.peer(from).RejectReInvite(e.Headers, Rejection{Code: e.Code, Reason: e.Reason})
	b.svc.cfg.Metrics.SignalRelayed(EventReInviteRejected.String(), b.direction(from))
}

// --- Teardown ---

// terminate is the shared cleanup of both legs. Only the first terminal
// event gets past the guard.
func (b *Bridge) terminate(from Leg, e *Event) {
	if !b.closed.SetToIf(false, true) {
		return
	}

	b.mu.Lock()
	removers := b.removers
	b.removers = nil
	b.mu.Unlock()
	for _, remove := range removers {
		remove()
	}
	b.svc.release(b)

	role := b.role(from)
	slog.Info("[Bridge] Leg terminated, closing session",
		"bridge_id", b.id,
		"leg", string(role),
		"leg_id", from.ID(),
		"event", e.Type.String(),
	)

	b.svc.cfg.Metrics.BridgeClosed(string(role), e.Type.String())
	b.svc.publish(b.svc.events.BridgeClosed(b.legA.ID(), b.id).
		TerminatedBy(role, e.Type.String()).
		Established(b.established.IsSet()).
		Duration(time.Since(b.createdAt)).
		Build())

	b.svc.cfg.Closer.CloseSession()
}

func legInfo(leg Leg) events.LegInfo {
	return events.LegInfo{
		ID:          leg.ID(),
		ClientType:  leg.ClientType().String(),
		DisplayName: leg.DisplayName(),
	}
}
