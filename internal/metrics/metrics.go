// Package metrics exposes pipeline counters over Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Stage names used for the stage counter.
const (
	StageRejectionBlocks = "rejection_blocks"
	StageInKillzone      = "in_killzone"
	StageRiskFeasible    = "risk_feasible"
	StageSetups          = "setups"
	StageNew             = "new"
	StageDelivered       = "delivered"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the default one. All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	stages         *prometheus.CounterVec
	fetchFailures  *prometheus.CounterVec
	deliveryFailed *prometheus.CounterVec
	staleSkips     *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	seenSetups     prometheus.Gauge
	lastCycle      prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wicksentinel_stage_total",
			Help: "Candidates surviving each pipeline stage",
		}, []string{"symbol", "stage"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wicksentinel_fetch_failures_total",
			Help: "Cycles skipped because candle data could not be fetched",
		}, []string{"symbol"}),
		deliveryFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wicksentinel_delivery_failures_total",
			Help: "Setups a sink failed to deliver",
		}, []string{"sink"}),
		staleSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wicksentinel_stale_skips_total",
			Help: "Cycles whose delivery was held back because data was stale",
		}, []string{"symbol"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wicksentinel_cycle_duration_seconds",
			Help:    "Wall time of one poll cycle across all symbols",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		seenSetups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wicksentinel_seen_setups",
			Help: "Setups remembered by the dedup state",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wicksentinel_last_cycle_timestamp_seconds",
			Help: "Unix time the last poll cycle finished",
		}),
	}
	m.Registry.MustRegister(
		m.stages, m.fetchFailures, m.deliveryFailed, m.staleSkips,
		m.cycleDuration, m.seenSetups, m.lastCycle,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveStage adds n candidates that survived stage for symbol.
func (m *Metrics) ObserveStage(symbol, stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.stages.WithLabelValues(symbol, stage).Add(float64(n))
}

func (m *Metrics) FetchFailed(symbol string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(symbol).Inc()
}

func (m *Metrics) DeliveryFailed(sink string) {
	if m == nil {
		return
	}
	m.deliveryFailed.WithLabelValues(sink).Inc()
}

func (m *Metrics) StaleSkipped(symbol string) {
	if m == nil {
		return
	}
	m.staleSkips.WithLabelValues(symbol).Inc()
}

// CycleDone records one finished cycle.
func (m *Metrics) CycleDone(d time.Duration, seen int, at time.Time) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
	m.seenSetups.Set(float64(seen))
	m.lastCycle.Set(float64(at.Unix()))
}
