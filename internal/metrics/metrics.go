// Package metrics exposes Prometheus collectors for the status poller.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "matchwatch"

// Metrics holds the collectors updated once per tick.
type Metrics struct {
	PollsTotal     *prometheus.CounterVec
	CheckDuration  prometheus.Histogram
	LastTick       prometheus.Gauge
	LastStatusCode prometheus.Gauge
	MatchActive    prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_total",
				Help:      "Total number of status checks by outcome",
			},
			[]string{"outcome"},
		),
		CheckDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Latency of status checks that reached the network",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		LastTick: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_tick",
				Help:      "Sequence number of the most recent tick",
			},
		),
		LastStatusCode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_status_code",
				Help:      "HTTP status of the most recent check, 0 when none was received",
			},
		),
		MatchActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "match_active",
				Help:      "1 while the most recent check found a live match",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.PollsTotal, m.CheckDuration, m.LastTick, m.LastStatusCode, m.MatchActive} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Observe records one tick. Latency is only observed when non-zero.
func (m *Metrics) Observe(tick uint64, outcome string, statusCode int, latency time.Duration) {
	m.PollsTotal.WithLabelValues(outcome).Inc()
	if latency > 0 {
		m.CheckDuration.Observe(latency.Seconds())
	}
	m.LastTick.Set(float64(tick))
	m.LastStatusCode.Set(float64(statusCode))
	if outcome == "active" {
		m.MatchActive.Set(1)
	} else {
		m.MatchActive.Set(0)
	}
}
