package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sebas/legbridge/internal/logger"
	"github.com/sebas/legbridge/internal/signaling/b2bua"
	"github.com/sebas/legbridge/internal/signaling/config"
	"github.com/sebas/legbridge/internal/signaling/events"
	"github.com/sebas/legbridge/internal/signaling/stats"
)

// Deps are the collaborators supplied by the hosting runtime.
type Deps struct {
	// Source delivers inbound alerting calls. Required.
	Source b2bua.AlertSource
	// Factory creates outbound legs. Required.
	Factory b2bua.LegFactory
	// Media connects media between bridged legs (optional).
	Media b2bua.MediaRouter
	// Closer closes the session enclosing a bridge (optional).
	Closer b2bua.SessionCloser
	// Publisher receives lifecycle events. Defaults to a LoggingPublisher.
	Publisher events.Publisher
	// Registry receives metrics when enabled. Defaults to a fresh registry.
	Registry *prometheus.Registry
}

// App is a configured forwarder: one Service and one Subscription.
type App struct {
	config       *config.Config
	service      *b2bua.Service
	subscription *b2bua.Subscription
	publisher    events.Publisher
	registry     *prometheus.Registry
}

// New builds the Service from cfg and subscribes the configured forwarder.
func New(cfg *config.Config, deps Deps) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("alert source is required")
	}
	if deps.Factory == nil {
		return nil, b2bua.ErrNoFactory
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NewLoggingPublisher(slog.Default())
	}

	var metrics *stats.Metrics
	registry := deps.Registry
	if cfg.MetricsEnabled {
		if registry == nil {
			registry = prometheus.NewRegistry()
		}
		metrics = stats.New(registry)
	}

	service := b2bua.NewService(b2bua.ServiceConfig{
		Factory:   deps.Factory,
		Media:     deps.Media,
		Closer:    deps.Closer,
		Publisher: publisher,
		Metrics:   metrics,
		NodeID:    cfg.NodeID,
	})

	kind := cfg.ForwardKind()
	sub, err := service.Forward(kind, deps.Source, forwardOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s forwarder: %w", kind, err)
	}

	slog.Info("[App] Forwarder started",
		"mode", kind.String(),
		"node_id", cfg.NodeID,
		"metrics", cfg.MetricsEnabled,
		"config", cfg.ConfigPath,
	)

	return &App{
		config:       cfg,
		service:      service,
		subscription: sub,
		publisher:    publisher,
		registry:     registry,
	}, nil
}

// forwardOptions translates the forward section into forwarder options.
func forwardOptions(cfg *config.Config) []b2bua.ForwardOption {
	fc := cfg.Forward
	opts := []b2bua.ForwardOption{
		b2bua.WithVideo(fc.Video),
		b2bua.WithCallerID(fc.CallerID),
		b2bua.WithFollowDiversion(fc.FollowDiversion),
	}
	if len(fc.Headers) > 0 {
		opts = append(opts, b2bua.WithExtraHeaders(b2bua.Headers(fc.Headers)))
	}

	var transforms []b2bua.NumberTransform
	if fc.StripPrefix != "" {
		transforms = append(transforms, b2bua.PrefixTransform(fc.StripPrefix, "+"))
	}
	if fc.NumberRegion != "" {
		transforms = append(transforms, b2bua.E164Transform(fc.NumberRegion))
	}
	if len(transforms) > 0 {
		opts = append(opts, b2bua.WithNumberTransform(b2bua.ChainTransforms(transforms...)))
	}
	return opts
}

// Service returns the underlying bridging service.
func (a *App) Service() *b2bua.Service {
	return a.service
}

// MetricsHandler serves the metrics registry, or nil when metrics are off.
func (a *App) MetricsHandler() http.Handler {
	if a.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// Close stops forwarding new alerts. Live bridges run until their legs end.
func (a *App) Close() error {
	a.subscription.Close()
	if err := a.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	slog.Info("[App] Forwarder stopped", "active_bridges", a.service.ActiveBridges())
	return nil
}
