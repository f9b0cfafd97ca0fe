package b2bua

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/emiago/sipgo/sip"
	"github.com/google/uuid"
	"github.com/tevino/abool"
)

// AlertEvent is an inbound call that is alerting and waiting to be forwarded.
type AlertEvent struct {
	// Call is the inbound (A) leg.
	Call Leg

	Destination string
	CallerID    string
	DisplayName string
	Scheme      string

	// ToURI is the SIP target, only meaningful to SIP forwards.
	ToURI string
}

// AlertSource delivers inbound alerting calls. OnCallAlerting returns a
// function that stops delivery to fn.
type AlertSource interface {
	OnCallAlerting(fn func(e *AlertEvent)) func()
}

// PSTNOptions are passed through to the PSTN leg factory.
type PSTNOptions struct {
	// CallerID overrides the inbound caller ID when set.
	CallerID string
	// FollowDiversion asks the carrier leg to honor call diversion.
	FollowDiversion bool
}

// DirectUserOptions are passed through to the direct user leg factory.
type DirectUserOptions struct {
	CallerID    string
	DisplayName string
	Headers     Headers
}

// LegFactory creates outbound legs. Implementations are provided by the
// hosting session layer.
type LegFactory interface {
	CreatePSTNLeg(number, callerID string, opts PSTNOptions) (Leg, error)
	CreateUserLeg(username, callerID, displayName string, headers Headers, video bool, scheme string) (Leg, error)
	// CreateDirectUserLeg receives the inbound leg as correlation context.
	CreateDirectUserLeg(ctxLeg Leg, username string, opts DirectUserOptions) (Leg, error)
	CreateSIPLeg(uri, callerID, displayName string, headers Headers, video bool) (Leg, error)
}

// ForwardOption configures a forwarder.
type ForwardOption func(*forwardOptions)

type forwardOptions struct {
	onEstablished   EstablishedFunc
	transform       NumberTransform
	callerID        string
	followDiversion bool
	video           bool
	headers         Headers
}

// WithOnEstablished sets the callback invoked once per forwarded call when
// the inbound leg connects.
func WithOnEstablished(fn EstablishedFunc) ForwardOption {
	return func(o *forwardOptions) {
		o.onEstablished = fn
	}
}

// WithNumberTransform rewrites PSTN destinations before dialing.
func WithNumberTransform(t NumberTransform) ForwardOption {
	return func(o *forwardOptions) {
		o.transform = t
	}
}

// WithCallerID overrides the caller ID presented on PSTN legs.
func WithCallerID(callerID string) ForwardOption {
	return func(o *forwardOptions) {
		o.callerID = callerID
	}
}

// WithFollowDiversion sets the follow-diversion flag on PSTN legs.
func WithFollowDiversion(follow bool) ForwardOption {
	return func(o *forwardOptions) {
		o.followDiversion = follow
	}
}

// WithVideo requests video on user and SIP legs.
func WithVideo(video bool) ForwardOption {
	return func(o *forwardOptions) {
		o.video = video
	}
}

// WithExtraHeaders adds headers to user, direct user and SIP legs.
func WithExtraHeaders(h Headers) ForwardOption {
	return func(o *forwardOptions) {
		o.headers = h.Clone()
	}
}

// Subscription is a registered forwarder. It stays active until Close.
type Subscription struct {
	id          string
	kind        ForwardKind
	unsubscribe func()
	closed      *abool.AtomicBool
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) Kind() ForwardKind {
	return s.kind
}

// Close stops forwarding new alerts. Bridges already created are unaffected.
// Safe to call more than once.
func (s *Subscription) Close() {
	if !s.closed.SetToIf(false, true) {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	slog.Debug("[Forward] Subscription closed", "subscription_id", s.id, "kind", s.kind.String())
}

func (s *Subscription) Closed() bool {
	return s.closed.IsSet()
}

// legCreator builds the outbound leg for one alert.
type legCreator func(e *AlertEvent, o *forwardOptions) (Leg, ForwardStage, error)

// ForwardToPSTN forwards every alert from src to the public telephone network.
func (s *Service) ForwardToPSTN(src AlertSource, opts ...ForwardOption) (*Subscription, error) {
	return s.subscribe(ForwardPSTN, src, false, s.createPSTN, opts)
}

// ForwardToUser forwards every alert from src to the registered user named
// by its destination.
func (s *Service) ForwardToUser(src AlertSource, opts ...ForwardOption) (*Subscription, error) {
	return s.subscribe(ForwardUser, src, false, s.createUser, opts)
}

// ForwardToUserDirect forwards every alert from src to a registered user in
// peer-to-peer mode. The inbound leg answers with AnswerDirect.
func (s *Service) ForwardToUserDirect(src AlertSource, opts ...ForwardOption) (*Subscription, error) {
	return s.subscribe(ForwardUserDirect, src, true, s.createDirectUser, opts)
}

// ForwardToSIP forwards every alert from src to the SIP URI it carries.
func (s *Service) ForwardToSIP(src AlertSource, opts ...ForwardOption) (*Subscription, error) {
	return s.subscribe(ForwardSIP, src, false, s.createSIP, opts)
}

// Forward registers the forwarder for kind.
func (s *Service) Forward(kind ForwardKind, src AlertSource, opts ...ForwardOption) (*Subscription, error) {
	switch kind {
	case ForwardPSTN:
		return s.ForwardToPSTN(src, opts...)
	case ForwardUser:
		return s.ForwardToUser(src, opts...)
	case ForwardUserDirect:
		return s.ForwardToUserDirect(src, opts...)
	case ForwardSIP:
		return s.ForwardToSIP(src, opts...)
	default:
		return nil, fmt.Errorf("unknown forward kind %q", kind)
	}
}

func (s *Service) subscribe(kind ForwardKind, src AlertSource, direct bool, create legCreator, opts []ForwardOption) (*Subscription, error) {
	if s.cfg.Factory == nil {
		return nil, ErrNoFactory
	}
	if src == nil {
		return nil, fmt.Errorf("forward %s: nil alert source", kind)
	}

	o := &forwardOptions{}
	for _, opt := range opts {
		opt(o)
	}

	sub := &Subscription{
		id:     "fwd-" + uuid.New().String(),
		kind:   kind,
		closed: abool.New(),
	}
	sub.unsubscribe = src.OnCallAlerting(func(e *AlertEvent) {
		if sub.closed.IsSet() {
			return
		}
		s.handleAlert(kind, direct, create, o, e)
	})

	slog.Info("[Forward] Subscribed", "subscription_id", sub.id, "kind", kind.String(), "direct", direct)
	return sub, nil
}

func (s *Service) handleAlert(kind ForwardKind, direct bool, create legCreator, o *forwardOptions, e *AlertEvent) {
	if e == nil || e.Call == nil {
		slog.Warn("[Forward] Ignoring alert without inbound leg", "kind", kind.String())
		return
	}
	s.cfg.Metrics.Forward(kind.String())

	legB, stage, err := create(e, o)
	if err == nil && legB == nil {
		err = ErrNilLeg
	}
	if err != nil {
		s.abortForward(kind, stage, e, err)
		return
	}

	b, err := s.bridge(e.Call, legB, o.onEstablished, direct, kind)
	if err != nil {
		s.abortForward(kind, StageBridge, e, err)
		return
	}

	slog.Info("[Forward] Alert forwarded",
		"kind", kind.String(),
		"call_id", e.Call.ID(),
		"destination", destinationOf(kind, e),
		"bridge_id", b.ID(),
	)
}

// abortForward closes the session of an alert that could not be forwarded,
// so the inbound leg is not left alerting.
func (s *Service) abortForward(kind ForwardKind, stage ForwardStage, e *AlertEvent, cause error) {
	fe := &ForwardError{
		Kind:        kind,
		Stage:       stage,
		Destination: destinationOf(kind, e),
		Cause:       cause,
	}

	slog.Error("[Forward] Failed to forward alert",
		"kind", kind.String(),
		"stage", string(stage),
		"call_id", e.Call.ID(),
		"error", fe,
	)

	s.cfg.Metrics.ForwardFailed(kind.String(), string(stage))
	s.publish(s.events.ForwardFailed(e.Call.ID()).
		Forward(kind.String(), string(stage)).
		Destination(fe.Destination).
		Error(fe).
		Build())

	s.cfg.Closer.CloseSession()
}

func destinationOf(kind ForwardKind, e *AlertEvent) string {
	if kind == ForwardSIP {
		return e.ToURI
	}
	return e.Destination
}

// --- Leg creators ---

func (s *Service) createPSTN(e *AlertEvent, o *forwardOptions) (Leg, ForwardStage, error) {
	number := e.Destination
	if o.transform != nil {
		transformed, err := o.transform(number)
		if err != nil {
			return nil, StageTransform, err
		}
		number = transformed
	}
	if number == "" {
		return nil, StageCreateLeg, ErrNoDestination
	}

	callerID := e.CallerID
	if o.callerID != "" {
		callerID = o.callerID
	}

	leg, err := s.cfg.Factory.CreatePSTNLeg(number, callerID, PSTNOptions{
		CallerID:        o.callerID,
		FollowDiversion: o.followDiversion,
	})
	return leg, StageCreateLeg, err
}

func (s *Service) createUser(e *AlertEvent, o *forwardOptions) (Leg, ForwardStage, error) {
	if e.Destination == "" {
		return nil, StageCreateLeg, ErrNoDestination
	}
	leg, err := s.cfg.Factory.CreateUserLeg(e.Destination, e.CallerID, e.DisplayName, o.headers.Clone(), o.video, e.Scheme)
	return leg, StageCreateLeg, err
}

func (s *Service) createDirectUser(e *AlertEvent, o *forwardOptions) (Leg, ForwardStage, error) {
	if e.Destination == "" {
		return nil, StageCreateLeg, ErrNoDestination
	}
	leg, err := s.cfg.Factory.CreateDirectUserLeg(e.Call, e.Destination, DirectUserOptions{
		CallerID:    e.CallerID,
		DisplayName: e.DisplayName,
		Headers:     o.headers.Clone(),
	})
	return leg, StageCreateLeg, err
}

func (s *Service) createSIP(e *AlertEvent, o *forwardOptions) (Leg, ForwardStage, error) {
	target, err := normalizeSIPURI(e.ToURI)
	if err != nil {
		return nil, StageCreateLeg, err
	}
	leg, err := s.cfg.Factory.CreateSIPLeg(target, e.CallerID, e.DisplayName, o.headers.Clone(), o.video)
	return leg, StageCreateLeg, err
}

// normalizeSIPURI parses raw as a SIP URI and returns its canonical form.
func normalizeSIPURI(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoDestination
	}

	var uri sip.Uri
	if err := sip.ParseUri(raw, &uri); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURI, raw, err)
	}
	if uri.Host == "" {
		return "", fmt.Errorf("%w: %q: missing host", ErrInvalidURI, raw)
	}
	return uri.String(), nil
}
