package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grammars_run_entries_total",
			Help: "Number of entries processed by sync runs, by outcome",
		},
		[]string{"selector", "state"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grammars_run_duration_seconds",
			Help:    "Duration of a whole sync run in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"selector"},
	)
)

func RunCompleted(selector string, succeeded, failed int, startTime time.Time) {
	runEntries.WithLabelValues(selector, "succeeded").Add(float64(succeeded))
	runEntries.WithLabelValues(selector, "failed").Add(float64(failed))
	runDuration.WithLabelValues(selector).Observe(time.Since(startTime).Seconds())
}

// WriteTextfile dumps the default registry in the text exposition format, for
// node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
