// Package metrics exposes Prometheus metrics for the trip search service.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tripsearch"

// Metrics holds every collector of the service on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SearchesTotal   *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	SearchTimeouts  prometheus.Counter
	CandidatesTotal *prometheus.CounterVec

	NetworkStops        prometheus.Gauge
	NetworkLines        prometheus.Gauge
	NetworkLoadedAt     prometheus.Gauge
	NetworkReloadErrors prometheus.Counter

	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	logger *slog.Logger

	collectorStarted atomic.Bool
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

// New creates and registers the service metrics on a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger is New with a logger for collector failures.
func NewWithLogger(logger *slog.Logger) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		logger:   logger,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Trip searches by outcome",
		}, []string{"outcome"}),
		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Trip search latency by outcome",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"outcome"}),
		SearchTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_timeouts_total",
			Help:      "Trip searches that hit the per-call deadline",
		}),
		CandidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_candidates_total",
			Help:      "Candidate stop pairs evaluated by search stage",
		}, []string{"stage"}),

		NetworkStops: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_stops",
			Help:      "Stops in the loaded network snapshot",
		}),
		NetworkLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_lines",
			Help:      "Lines in the loaded network snapshot",
		}),
		NetworkLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_loaded_timestamp_seconds",
			Help:      "Unix time the network snapshot was last loaded",
		}),
		NetworkReloadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_reload_errors_total",
			Help:      "Failed network snapshot reloads",
		}),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_in_use",
			Help:      "Number of database connections currently in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		}),
		DBWaitSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_wait_seconds_total",
			Help:      "Total time blocked waiting for a database connection",
		}),
	}

	m.Registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SearchesTotal,
		m.SearchDuration,
		m.SearchTimeouts,
		m.CandidatesTotal,
		m.NetworkStops,
		m.NetworkLines,
		m.NetworkLoadedAt,
		m.NetworkReloadErrors,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitSecondsTotal,
	)

	return m
}

// RecordSearch counts a finished search.
func (m *Metrics) RecordSearch(outcome string, duration time.Duration) {
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordCandidates adds count evaluated candidates to stage.
func (m *Metrics) RecordCandidates(stage string, count int) {
	m.CandidatesTotal.WithLabelValues(stage).Add(float64(count))
}

// RecordTimeout counts a search cut short by its deadline.
func (m *Metrics) RecordTimeout() {
	m.SearchTimeouts.Inc()
}

// RecordNetworkLoad publishes the size of a freshly loaded snapshot.
func (m *Metrics) RecordNetworkLoad(stops, lines int, at time.Time) {
	m.NetworkStops.Set(float64(stops))
	m.NetworkLines.Set(float64(lines))
	m.NetworkLoadedAt.Set(float64(at.Unix()))
}

// RecordNetworkReloadError counts a failed reload.
func (m *Metrics) RecordNetworkReloadError() {
	m.NetworkReloadErrors.Inc()
}

// StartDBStatsCollector polls the connection pool of db every interval. Only the
// first call starts a collector; Shutdown stops it.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}
	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Add before exposing cancel so that Shutdown cannot miss the goroutine
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil && m.logger != nil {
				m.logger.Error("panic in DB stats collector", "error", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastWait time.Duration
		for {
			select {
			case <-ticker.C:
				lastWait = m.collectDBStats(db.Stats(), lastWait)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Metrics) collectDBStats(stats sql.DBStats, lastWait time.Duration) time.Duration {
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	if delta := stats.WaitDuration - lastWait; delta > 0 {
		m.DBWaitSecondsTotal.Add(delta.Seconds())
	}
	return stats.WaitDuration
}

// Shutdown stops the DB stats collector and waits for it. It is safe to call more
// than once.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
