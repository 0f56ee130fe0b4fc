// Package metrics exposes Prometheus collectors for the case service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeAttemptsTotal    *prometheus.CounterVec
	scrapeDurationSeconds  *prometheus.HistogramVec
	resolutionsTotal       *prometheus.CounterVec
	coalescedWaitersTotal  prometheus.Counter
	demoFallbacksTotal     prometheus.Counter
	summaryGenerationTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		scrapeAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepulse_scrape_attempts_total",
				Help: "Total live fetch attempts, labeled by court and result.",
			},
			[]string{"court", "result"},
		)

		scrapeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casepulse_scrape_duration_seconds",
				Help:    "Histogram of live fetch attempt durations, labeled by court.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"court"},
		)

		resolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepulse_resolutions_total",
				Help: "Total query resolutions, labeled by outcome and cache source.",
			},
			[]string{"outcome", "from_cache"},
		)

		coalescedWaitersTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "casepulse_coalesced_waiters_total",
				Help: "Total callers that awaited an already in-flight fetch for the same case key.",
			},
		)

		demoFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "casepulse_demo_fallbacks_total",
				Help: "Total resolutions served from the bundled demo dataset after live failure.",
			},
		)

		summaryGenerationTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepulse_summary_generation_total",
				Help: "Total AI summary generation attempts, labeled by result.",
			},
			[]string{"result"},
		)
	})
}

// ObserveScrapeAttempt records one live fetch attempt.
func ObserveScrapeAttempt(court, result string, elapsed time.Duration) {
	Init()
	scrapeAttemptsTotal.WithLabelValues(court, result).Inc()
	scrapeDurationSeconds.WithLabelValues(court).Observe(elapsed.Seconds())
}

// ObserveResolution records one completed query resolution.
func ObserveResolution(outcome string, fromCache bool) {
	Init()
	label := "false"
	if fromCache {
		label = "true"
	}
	resolutionsTotal.WithLabelValues(outcome, label).Inc()
}

// ObserveCoalescedWaiter records a caller that shared an in-flight fetch.
func ObserveCoalescedWaiter() {
	Init()
	coalescedWaitersTotal.Inc()
}

// ObserveDemoFallback records a resolution served from the demo dataset.
func ObserveDemoFallback() {
	Init()
	demoFallbacksTotal.Inc()
}

// ObserveSummary records a summary generation attempt.
func ObserveSummary(result string) {
	Init()
	summaryGenerationTotal.WithLabelValues(result).Inc()
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}
