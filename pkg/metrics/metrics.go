package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogoblog", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogoblog", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// PostOperations counts post writes by operation (create|update|delete) and result (ok|error).
	PostOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogoblog", Name: "post_operations_total", Help: "Post write operations by operation and result."},
		[]string{"op", "result"},
	)
	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogoblog", Name: "uploads_total", Help: "File uploads by result."},
		[]string{"result"},
	)
	// OrphanedFiles counts featured images whose best-effort delete failed.
	OrphanedFiles = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "gogoblog", Name: "orphaned_files_total", Help: "Files left behind after a failed best-effort delete."},
	)
	ReconciledFiles = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "gogoblog", Name: "reconciled_files_total", Help: "Unreferenced files removed by the reconciliation pass."},
	)
	SessionResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogoblog", Name: "session_resolutions_total", Help: "Session resolutions by result (user|anonymous|error)."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(PostOperations)
	reg.MustRegister(Uploads)
	reg.MustRegister(OrphanedFiles)
	reg.MustRegister(ReconciledFiles)
	reg.MustRegister(SessionResolutions)
}
