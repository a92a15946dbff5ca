// Package metrics collects and exposes Prometheus metrics for both binaries.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkboard"

// Outcome labels.
const (
	OutcomeChecked = "checked"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
)

// Collector implements every recorder interface used by the service, the
// worker and the dashboard.
type Collector struct {
	linksSubmitted  prometheus.Counter
	statusUpdates   *prometheus.CounterVec
	analyses        *prometheus.CounterVec
	analysisLatency prometheus.Histogram
	pageFetches     *prometheus.CounterVec
	staleResponses  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		linksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_submitted_total",
			Help:      "URLs accepted for analysis.",
		}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_updates_total",
			Help:      "Operator status changes by target status.",
		}, []string{"status"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Background analyses by outcome.",
		}, []string{"outcome"}),
		analysisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent analyzing one page.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		pageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_page_fetches_total",
			Help:      "Dashboard page fetches by outcome.",
		}, []string{"outcome"}),
		staleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_stale_responses_total",
			Help:      "Page responses discarded because a newer request was issued.",
		}),
	}

	reg.MustRegister(
		c.linksSubmitted,
		c.statusUpdates,
		c.analyses,
		c.analysisLatency,
		c.pageFetches,
		c.staleResponses,
	)
	return c
}

func (c *Collector) RecordSubmitted(n int) {
	c.linksSubmitted.Add(float64(n))
}

func (c *Collector) RecordStatusUpdate(status string) {
	c.statusUpdates.WithLabelValues(status).Inc()
}

func (c *Collector) RecordAnalysis(outcome string, d time.Duration) {
	c.analyses.WithLabelValues(outcome).Inc()
	c.analysisLatency.Observe(d.Seconds())
}

func (c *Collector) RecordPageFetch(outcome string) {
	c.pageFetches.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordStaleResponse() {
	c.staleResponses.Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSubmitted(int)                  {}
func (Nop) RecordStatusUpdate(string)            {}
func (Nop) RecordAnalysis(string, time.Duration) {}
func (Nop) RecordPageFetch(string)               {}
func (Nop) RecordStaleResponse()                 {}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
