package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gitSyncFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grammars_git_sync_failed_total",
			Help: "Total number of failed grammar sync operations",
		},
		[]string{"language", "reason"},
	)

	gitSyncCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grammars_git_sync_count_total",
			Help: "Total number of grammar sync operations",
		},
	)

	gitSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grammars_git_sync_duration_seconds",
			Help:    "Grammar sync duration in seconds",
			Buckets: []float64{0.1, 0.2, 0.5, 1, 1.5, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"language"},
	)

	lastGitSyncStart = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grammars_last_git_sync_start_timestamp",
			Help: "Unix timestamp of when the last grammar sync started",
		},
		[]string{"language"},
	)

	lastGitSyncEnd = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grammars_last_git_sync_end_timestamp",
			Help: "Unix timestamp of when the last grammar sync ended",
		},
		[]string{"language"},
	)
)

func GitSyncStarted(language string, startTime time.Time) {
	gitSyncCount.Inc()
	lastGitSyncStart.WithLabelValues(language).Set(float64(startTime.Unix()))
}

func GitSyncSucceeded(language string, startTime time.Time) {
	gitSyncDuration.WithLabelValues(language).Observe(time.Since(startTime).Seconds())
	lastGitSyncEnd.WithLabelValues(language).SetToCurrentTime()
}

func GitSyncFailed(language, reason string) {
	gitSyncFailed.WithLabelValues(language, reason).Inc()
	lastGitSyncEnd.WithLabelValues(language).SetToCurrentTime()
}
