// Package metrics exposes Prometheus counters for the aggregation run.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lithos_scope"

// Event outcomes used as the "outcome" label.
const (
	OutcomeHandled     = "handled"
	OutcomeFailed      = "failed"
	OutcomeUnsupported = "unsupported"
	OutcomeDuplicate   = "duplicate"
	OutcomeSkipped     = "skipped"
)

// Collector holds the processor metrics on a private registry. A nil
// Collector discards observations.
type Collector struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	handleLatency *prometheus.HistogramVec
	lastBlock     prometheus.Gauge
	regressions   prometheus.Counter
}

// NewCollector registers all metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "events_total",
			Help:      "Typed events seen by the processor by route and outcome",
		}, []string{"route", "outcome"}),
		handleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "handle_seconds",
			Help:      "Time spent applying one event to the entity store",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		lastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "last_block",
			Help:      "Last fully processed block",
		}),
		regressions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "block_regressions_total",
			Help:      "Events whose block is lower than the previous event's",
		}),
	}
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveEvent counts one event and, for handled ones, its latency.
func (c *Collector) ObserveEvent(route, outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(route, outcome).Inc()
	if outcome == OutcomeHandled {
		c.handleLatency.WithLabelValues(route).Observe(took.Seconds())
	}
}

// SetLastBlock records the last completed block.
func (c *Collector) SetLastBlock(block uint64) {
	if c == nil {
		return
	}
	c.lastBlock.Set(float64(block))
}

// IncRegression counts an out-of-order block.
func (c *Collector) IncRegression() {
	if c == nil {
		return
	}
	c.regressions.Inc()
}
