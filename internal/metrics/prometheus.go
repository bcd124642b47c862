package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pageprobe"

// Prometheus exports run metrics as Prometheus series.
type Prometheus struct {
	runs          *prometheus.CounterVec
	duration      prometheus.Histogram
	assertions    *prometheus.CounterVec
	consoleErrors prometheus.Counter
	requests      prometheus.Counter
}

// NewPrometheus registers the pageprobe series on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of probe runs by terminal status.",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of probe runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		assertions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assertions_total",
			Help:      "Number of evaluated assertions by result.",
		}, []string{"result"}),
		consoleErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "console_errors_total",
			Help:      "Console errors reported by probed pages.",
		}),
		requests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_requests_total",
			Help:      "Finished network requests observed by probed pages.",
		}),
	}
}

// Observe implements Observer.
func (p *Prometheus) Observe(metric *RunMetric) {
	p.runs.WithLabelValues(string(metric.Status)).Inc()
	p.duration.Observe(metric.Duration.Seconds())

	if metric.AssertionsPassed > 0 {
		p.assertions.WithLabelValues("passed").Add(float64(metric.AssertionsPassed))
	}

	if metric.AssertionsFailed > 0 {
		p.assertions.WithLabelValues("failed").Add(float64(metric.AssertionsFailed))
	}

	if metric.ConsoleErrors > 0 {
		p.consoleErrors.Add(float64(metric.ConsoleErrors))
	}

	if metric.Requests > 0 {
		p.requests.Add(float64(metric.Requests))
	}
}

var _ Observer = (*Prometheus)(nil)
