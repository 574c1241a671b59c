package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors of a search service
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the search collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bachpedia",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Searches run, by text mode and outcome.",
		}, []string{"mode", "ranker", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bachpedia",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Wall time of a search including count and facet queries.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"mode", "ranker"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(mode Mode, ranker string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.requests.WithLabelValues(string(mode), ranker, status).Inc()
	m.duration.WithLabelValues(string(mode), ranker).Observe(elapsed.Seconds())
}
