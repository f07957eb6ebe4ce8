package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Aggregate metrics
	StatsMapVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_statsmap_version",
			Help: "Current version of the aggregated cluster stats map",
		},
	)

	PGsTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_pgs_tracked",
			Help: "Number of placement groups present in the stats map",
		},
	)

	NodesTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratum_nodes_tracked",
			Help: "Number of storage nodes present in the stats map",
		},
	)

	// Ingestion metrics
	ReportsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_reports_ingested_total",
			Help: "Total number of node stats reports ingested",
		},
	)

	ReportEntriesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratum_report_entries_dropped_total",
			Help: "Total number of per-PG report entries dropped by reason",
		},
		[]string{"reason"},
	)

	CommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_commits_total",
			Help: "Total number of pending deltas committed into the stats map",
		},
	)

	MapsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_cluster_maps_applied_total",
			Help: "Total number of cluster map snapshots ingested",
		},
	)

	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stratum_commit_duration_seconds",
			Help:    "Time taken to fold a pending delta into the stats map",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Admin API metrics
	AdminRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratum_admin_requests_total",
			Help: "Total number of admin API requests by path and status",
		},
		[]string{"path", "status"},
	)

	CheckpointsSaved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stratum_checkpoints_saved_total",
			Help: "Total number of stats map checkpoints written to disk",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(StatsMapVersion)
	prometheus.MustRegister(PGsTracked)
	prometheus.MustRegister(NodesTracked)
	prometheus.MustRegister(ReportsIngested)
	prometheus.MustRegister(ReportEntriesDropped)
	prometheus.MustRegister(CommitsTotal)
	prometheus.MustRegister(MapsApplied)
	prometheus.MustRegister(CommitDuration)
	prometheus.MustRegister(AdminRequestsTotal)
	prometheus.MustRegister(CheckpointsSaved)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// DropReason labels for ReportEntriesDropped.
const (
	DropUnknownPool = "unknown_pool"
	DropStale       = "stale"
)
