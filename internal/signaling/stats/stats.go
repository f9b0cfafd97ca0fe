// Package stats exposes Prometheus metrics for bridges and forwards.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "legbridge"

// Metrics holds the bridge and forward counters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	bridgesCreated    *prometheus.CounterVec
	bridgesClosed     *prometheus.CounterVec
	bridgesActive     prometheus.Gauge
	signalsRelayed    *prometheus.CounterVec
	reInvitesAbsorbed prometheus.Counter
	forwardsTotal     *prometheus.CounterVec
	forwardFailures   *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
// A nil reg leaves the metrics unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bridgesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridges_created_total",
			Help:      "Bridges created, by answer mode.",
		}, []string{"mode"}),
		bridgesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridges_closed_total",
			Help:      "Bridges closed, by leg and terminal event.",
		}, []string{"leg", "trigger"}),
		bridgesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridges_active",
			Help:      "Bridges currently relaying signaling.",
		}),
		signalsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_relayed_total",
			Help:      "Signaling events relayed across a bridge, by event and direction.",
		}, []string{"event", "direction"}),
		reInvitesAbsorbed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reinvites_absorbed_total",
			Help:      "Re-INVITEs answered by the bridge instead of being forwarded.",
		}),
		forwardsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwards_total",
			Help:      "Inbound alerts handled, by forward kind.",
		}, []string{"kind"}),
		forwardFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_failures_total",
			Help:      "Inbound alerts that could not be forwarded, by kind and stage.",
		}, []string{"kind", "stage"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.bridgesCreated,
			m.bridgesClosed,
			m.bridgesActive,
			m.signalsRelayed,
			m.reInvitesAbsorbed,
			m.forwardsTotal,
			m.forwardFailures,
		)
	}
	return m
}

func (m *Metrics) BridgeCreated(direct bool) {
	if m == nil {
		return
	}
	mode := "normal"
	if direct {
		mode = "direct"
	}
	m.bridgesCreated.WithLabelValues(mode).Inc()
	m.bridgesActive.Inc()
}

func (m *Metrics) BridgeClosed(leg, trigger string) {
	if m == nil {
		return
	}
	m.bridgesClosed.WithLabelValues(leg, trigger).Inc()
	m.bridgesActive.Dec()
}

func (m *Metrics) SignalRelayed(event, direction string) {
	if m == nil {
		return
	}
	m.signalsRelayed.WithLabelValues(event, direction).Inc()
}

func (m *Metrics) ReInviteAbsorbed() {
	if m == nil {
		return
	}
	m.reInvitesAbsorbed.Inc()
}

func (m *Metrics) Forward(kind string) {
	if m == nil {
		return
	}
	m.forwardsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ForwardFailed(kind, stage string) {
	if m == nil {
		return
	}
	m.forwardFailures.WithLabelValues(kind, stage).Inc()
}
