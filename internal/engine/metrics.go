package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics holds the Prometheus metrics for the aggregation engine
type EngineMetrics struct {
	EventsTotal      prometheus.CounterVec
	FlushesTotal     prometheus.CounterVec
	WriteErrorsTotal prometheus.CounterVec
	SessionsKnown    prometheus.Gauge
	RoundsOpen       prometheus.Gauge
}

var (
	globalMetrics *EngineMetrics
	metricsOnce   sync.Once
)

// InitMetrics initializes global Prometheus metrics
func InitMetrics() *EngineMetrics {
	metricsOnce.Do(func() {
		globalMetrics = &EngineMetrics{
			EventsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hooktrail_events_total",
					Help: "Total classified hook events",
				},
				[]string{"kind"},
			),
			FlushesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hooktrail_flushes_total",
					Help: "Total flush attempts by outcome",
				},
				[]string{"outcome"},
			),
			WriteErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hooktrail_write_errors_total",
					Help: "Total durable-write failures by target",
				},
				[]string{"target"},
			),
			SessionsKnown: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "hooktrail_sessions_known",
					Help: "Sessions currently tracked in memory",
				},
			),
			RoundsOpen: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "hooktrail_rounds_open",
					Help: "Rounds currently open across all sessions",
				},
			),
		}
	})
	return globalMetrics
}

// RecordEvent records one classified event
func (m *EngineMetrics) RecordEvent(kind string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(kind).Inc()
}

// RecordFlush records a flush attempt outcome (written, empty, failed)
func (m *EngineMetrics) RecordFlush(outcome string) {
	if m == nil {
		return
	}
	m.FlushesTotal.WithLabelValues(outcome).Inc()
}

// RecordWriteError records a durable-write failure for a target
// (session_file, round_file, index)
func (m *EngineMetrics) RecordWriteError(target string) {
	if m == nil {
		return
	}
	m.WriteErrorsTotal.WithLabelValues(target).Inc()
}

// SetSessionsKnown sets the tracked session gauge
func (m *EngineMetrics) SetSessionsKnown(count int) {
	if m == nil {
		return
	}
	m.SessionsKnown.Set(float64(count))
}

// RoundOpened increments the open-round gauge
func (m *EngineMetrics) RoundOpened() {
	if m == nil {
		return
	}
	m.RoundsOpen.Inc()
}

// RoundClosed decrements the open-round gauge
func (m *EngineMetrics) RoundClosed() {
	if m == nil {
		return
	}
	m.RoundsOpen.Dec()
}
