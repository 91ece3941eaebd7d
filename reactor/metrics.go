package reactor

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "plugin_reactor"

// Metrics records reactor activity.
type Metrics struct {
	Pending   prometheus.Gauge
	Blocks    prometheus.Counter
	Wakes     prometheus.Counter
	Resolved  prometheus.Counter
	Cancelled prometheus.Counter
}

// NewMetrics creates the reactor collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pending_waits",
			Help:      "Number of waits registered with the reactor and not yet resolved.",
		}),
		Blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "block_until_total",
			Help:      "Number of blocking multiplex checks.",
		}),
		Wakes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "wakes_total",
			Help:      "Number of wakers invoked after a multiplex check.",
		}),
		Resolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "waits_resolved_total",
			Help:      "Number of waits that resolved ready.",
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "waits_cancelled_total",
			Help:      "Number of waits closed before resolving.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Pending, m.Blocks, m.Wakes, m.Resolved, m.Cancelled)
	}
	return m
}
