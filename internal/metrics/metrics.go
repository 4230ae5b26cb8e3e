package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonearm_ingest_runs_total",
		Help: "Total album ingestion attempts",
	})
	IngestErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonearm_ingest_errors_total",
		Help: "Total album ingestion failures",
	})
	RebuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tonearm_rebuild_duration_seconds",
		Help:    "Matrix and index rebuild duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	RecommendRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonearm_recommend_requests_total",
		Help: "Total recommendation requests",
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tonearm_api_retries_total",
		Help: "Total Last.fm API retry attempts",
	}, []string{"method"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tonearm_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tonearm_command_errors_total",
		Help: "Total CLI command errors",
	}, []string{"cmd"})
)

func init() {
	prometheus.MustRegister(IngestRuns, IngestErrors, RebuildDuration,
		RecommendRequests, APIRetries, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveRebuildDuration records one rebuild duration.
func ObserveRebuildDuration(start time.Time) {
	RebuildDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an API method.
func IncAPIRetry(method string) { APIRetries.WithLabelValues(method).Inc() }

// IncCommandRun counts a CLI command invocation.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError counts a CLI command failure.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
