package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// AnalyzeTotal counts analysis requests by outcome.
	AnalyzeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imagedescriber",
		Subsystem: "api",
		Name:      "analyze_total",
		Help:      "Total number of image analysis requests, labeled by result.",
	}, []string{"result"})

	// AnalyzeDurationSeconds is end-to-end time per analysis request.
	AnalyzeDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "imagedescriber",
		Subsystem: "api",
		Name:      "analyze_duration_seconds",
		Help:      "End-to-end time to analyze one uploaded image.",
		// Remote vision calls routinely take seconds, keep buckets coarse.
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 60, 120},
	}, []string{"result"})

	// AnalyzeInFlight is the current number of analysis requests being served.
	AnalyzeInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "imagedescriber",
		Subsystem: "api",
		Name:      "analyze_in_flight",
		Help:      "Current number of analysis requests being processed.",
	})
)

// Register registers describer metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AnalyzeTotal,
			AnalyzeDurationSeconds,
			AnalyzeInFlight,
		)
	})
}
