package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatcher's Prometheus collectors, exposed on /metrics.
type Metrics struct {
	JobsFired           prometheus.Counter
	DeliveriesSucceeded prometheus.Counter
	RetriesScheduled    prometheus.Counter
	TerminalFailures    prometheus.Counter
}

// New registers and returns the dispatcher collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_jobs_fired_total",
			Help: "Lesson delivery jobs dispatched to the handler.",
		}),
		DeliveriesSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_deliveries_succeeded_total",
			Help: "Lesson deliveries where every message part was sent.",
		}),
		RetriesScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_retries_scheduled_total",
			Help: "Failed deliveries rescheduled for a retry.",
		}),
		TerminalFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_terminal_failures_total",
			Help: "Deliveries abandoned after exhausting retries.",
		}),
	}
}

// RegisterLiveJobs exposes the current job table size as a gauge.
func RegisterLiveJobs(reg prometheus.Registerer, count func() float64) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "learnhub_jobs_live",
		Help: "Jobs currently held by the job table, any state.",
	}, count)
}
