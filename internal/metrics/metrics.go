// Package metrics exposes Prometheus instrumentation around a batch
// detection run. The core engine itself has no metrics dependency (it is a
// pure, single-threaded batch computation, spec §5); this package wraps it
// from the CLI's side the way the teacher wraps its own streaming pipeline.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds the Prometheus collectors for a single batch run's pipeline.
type Metrics struct {
	PoolsLoaded    prometheus.Gauge
	PoolsAdmitted  prometheus.Gauge
	TokensInterned prometheus.Gauge

	IngestLatency     prometheus.Histogram
	GraphBuildLatency prometheus.Histogram
	OracleLatency     prometheus.Histogram
	EnumerateLatency  prometheus.Histogram
	OptimizeLatency   prometheus.Histogram
	RunLatency        prometheus.Histogram

	CyclesFound    prometheus.Counter
	ResultsFound   prometheus.Counter
	StepCapReached prometheus.Counter

	server *http.Server
}

// New creates and registers all Prometheus metrics for a batch run.
func New() *Metrics {
	m := &Metrics{
		PoolsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arb_pools_loaded",
			Help: "Number of pool records loaded from the snapshot",
		}),
		PoolsAdmitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arb_pools_admitted",
			Help: "Number of pool records admitted to the graph after filtering",
		}),
		TokensInterned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arb_tokens_interned",
			Help: "Number of distinct tokens interned into the graph",
		}),
		IngestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_ingest_latency_seconds",
			Help:    "Time to decode the pool snapshot",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		GraphBuildLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_graph_build_latency_seconds",
			Help:    "Time to build the token graph",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		OracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_oracle_latency_seconds",
			Help:    "Time to compute ETH prices via the BFS oracle",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		EnumerateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_enumerate_latency_seconds",
			Help:    "Time to run SPFA cycle enumeration",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		OptimizeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_optimize_latency_seconds",
			Help:    "Time to optimize and aggregate candidate cycles",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		RunLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_run_latency_seconds",
			Help:    "Full end-to-end batch run latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 18),
		}),
		CyclesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_cycles_found_total",
			Help: "Total number of candidate negative cycles extracted",
		}),
		ResultsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_results_found_total",
			Help: "Total number of net-profitable opportunities retained",
		}),
		StepCapReached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_step_cap_reached_total",
			Help: "Number of runs where the SPFA step cap was hit before the queue drained",
		}),
	}

	prometheus.MustRegister(
		m.PoolsLoaded,
		m.PoolsAdmitted,
		m.TokensInterned,
		m.IngestLatency,
		m.GraphBuildLatency,
		m.OracleLatency,
		m.EnumerateLatency,
		m.OptimizeLatency,
		m.RunLatency,
		m.CyclesFound,
		m.ResultsFound,
		m.StepCapReached,
	)

	return m
}

// StartServer starts the HTTP server exposing /metrics and /health.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	m.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Info().Int("port", port).Str("path", path).Msg("starting metrics server")
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	return nil
}

// Shutdown gracefully stops the metrics server.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server != nil {
		return m.server.Shutdown(ctx)
	}
	return nil
}

// RecordIngest records pool-loading gauges and ingest latency.
func (m *Metrics) RecordIngest(poolsLoaded int, d time.Duration) {
	m.PoolsLoaded.Set(float64(poolsLoaded))
	m.IngestLatency.Observe(d.Seconds())
}

// RecordGraphBuild records graph-build gauges and latency.
func (m *Metrics) RecordGraphBuild(poolsAdmitted, tokensInterned int, d time.Duration) {
	m.PoolsAdmitted.Set(float64(poolsAdmitted))
	m.TokensInterned.Set(float64(tokensInterned))
	m.GraphBuildLatency.Observe(d.Seconds())
}

// RecordOracle records oracle latency.
func (m *Metrics) RecordOracle(d time.Duration) {
	m.OracleLatency.Observe(d.Seconds())
}

// RecordEnumerate records cycle-enumeration latency and candidate count,
// and whether the SPFA step cap was reached.
func (m *Metrics) RecordEnumerate(cyclesFound int, stepCapReached bool, d time.Duration) {
	m.CyclesFound.Add(float64(cyclesFound))
	m.EnumerateLatency.Observe(d.Seconds())
	if stepCapReached {
		m.StepCapReached.Inc()
	}
}

// RecordOptimize records the optimizer/aggregator phase's latency and the
// final retained-result count.
func (m *Metrics) RecordOptimize(resultsFound int, d time.Duration) {
	m.ResultsFound.Add(float64(resultsFound))
	m.OptimizeLatency.Observe(d.Seconds())
}

// RecordRun records the full end-to-end run latency.
func (m *Metrics) RecordRun(d time.Duration) {
	m.RunLatency.Observe(d.Seconds())
}
