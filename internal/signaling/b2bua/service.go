package b2bua

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sebas/legbridge/internal/signaling/events"
	"github.com/sebas/legbridge/internal/signaling/stats"
)

// MediaRouter connects media between two legs. The bridge requests this once
// per pair and never moves media itself.
type MediaRouter interface {
	ConnectMedia(legA, legB Leg)
}

// MediaRouterFunc adapts a function to MediaRouter.
type MediaRouterFunc func(legA, legB Leg)

func (f MediaRouterFunc) ConnectMedia(legA, legB Leg) { f(legA, legB) }

// SessionCloser closes the session that encloses the bridged legs.
// Implementations must tolerate repeated calls.
type SessionCloser interface {
	CloseSession()
}

// SessionCloserFunc adapts a function to SessionCloser.
type SessionCloserFunc func()

func (f SessionCloserFunc) CloseSession() { f() }

// EstablishedFunc is invoked once when a bridge is established.
type EstablishedFunc func(legA, legB Leg)

// ServiceConfig contains dependencies for Service.
type ServiceConfig struct {
	// Factory creates outbound legs for the forwarders.
	// Required for forwarding, unused by Bridge.
	Factory LegFactory

	// Media connects media between bridged legs (optional).
	Media MediaRouter

	// Closer is asked to close the session when a bridge terminates.
	// Required.
	Closer SessionCloser

	// Publisher receives bridge and forward lifecycle events (optional).
	Publisher events.Publisher

	// Metrics records bridge and forward counters (optional).
	Metrics *stats.Metrics

	// NodeID is stamped on published events.
	NodeID string
}

// Service bridges legs and forwards inbound calls.
//
// Statelessness: Service holds configuration plus the set of legs currently
// governed by one of its bridges, so the same leg cannot be bridged twice.
//
// Thread Safety: All methods are safe for concurrent use.
type Service struct {
	cfg    ServiceConfig
	events *events.Builder

	mu     sync.Mutex
	active map[string]*Bridge
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Publisher == nil {
		cfg.Publisher = events.NewNoopPublisher()
	}
	if cfg.Closer == nil {
		cfg.Closer = SessionCloserFunc(func() {})
	}
	return &Service{
		cfg:    cfg,
		events: events.NewBuilder(cfg.NodeID),
		active: make(map[string]*Bridge),
	}
}

// Bridge wires the signaling of an inbound alerting leg (legA) and a freshly
// created outbound leg (legB) together for their joint lifetime.
//
// onEstablished may be nil. When direct is true the inbound leg answers in
// peer-to-peer mode.
func (s *Service) Bridge(legA, legB Leg, onEstablished EstablishedFunc, direct bool) (*Bridge, error) {
	return s.bridge(legA, legB, onEstablished, direct, "")
}

func (s *Service) bridge(legA, legB Leg, onEstablished EstablishedFunc, direct bool, kind ForwardKind) (*Bridge, error) {
	if legA == nil || legB == nil {
		return nil, ErrNilLeg
	}
	if legA.ID() == legB.ID() {
		return nil, ErrSameLeg
	}

	b := newBridge(s, legA, legB, onEstablished, direct, kind)

	s.mu.Lock()
	if _, ok := s.active[legA.ID()]; ok {
		s.mu.Unlock()
		return nil, ErrAlreadyBridged
	}
	if _, ok := s.active[legB.ID()]; ok {
		s.mu.Unlock()
		return nil, ErrAlreadyBridged
	}
	s.active[legA.ID()] = b
	s.active[legB.ID()] = b
	s.mu.Unlock()

	b.start()
	return b, nil
}

// release forgets the legs of a closed bridge.
func (s *Service) release(b *Bridge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[b.legA.ID()] == b {
		delete(s.active, b.legA.ID())
	}
	if s.active[b.legB.ID()] == b {
		delete(s.active, b.legB.ID())
	}
}

// ActiveBridges returns the number of bridges that have not closed yet.
func (s *Service) ActiveBridges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active) / 2
}

// BridgeFor returns the live bridge governing leg, if any.
func (s *Service) BridgeFor(leg Leg) (*Bridge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.active[leg.ID()]
	return b, ok
}

func (s *Service) publish(e events.Event) {
	if err := s.cfg.Publisher.Publish(context.Background(), e); err != nil {
		slog.Warn("[Service] Failed to publish event", "type", e.Type(), "error", err)
	}
}
