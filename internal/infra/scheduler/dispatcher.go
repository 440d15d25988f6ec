package scheduler

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"learnhub/internal/domain/schedule"
	"learnhub/internal/infra/metrics"
)

// Handler executes one due lesson delivery job. Deliver must respect its
// context deadline; OnTerminalFailure runs once when retries are exhausted.
type Handler interface {
	Deliver(ctx context.Context, job *schedule.Job) error
	OnTerminalFailure(ctx context.Context, job *schedule.Job)
}

// RetryPolicy bounds retries for failed deliveries.
type RetryPolicy struct {
	MaxRetries int
	Backoff    func(attempt int) time.Duration
}

// FixedBackoff spaces every retry by the same delay.
func FixedBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Table          schedule.JobTable
	Handler        Handler
	Policy         RetryPolicy
	Clock          Clock
	PollInterval   time.Duration
	HandlerTimeout time.Duration
	Metrics        *metrics.Metrics
	Logger         *logrus.Entry
}

// Dispatcher is the time-driven loop that fires due jobs. It alternates
// between sleeping for the poll interval and scanning the job table; Scan is
// exported so tests can drive it with a fake clock. Handlers run
// synchronously inside the scan, bounded by HandlerTimeout, so a hung
// external call cannot starve the loop past one job's budget.
type Dispatcher struct {
	table          schedule.JobTable
	handler        Handler
	policy         RetryPolicy
	clock          Clock
	pollInterval   time.Duration
	handlerTimeout time.Duration
	metrics        *metrics.Metrics
	log            *logrus.Entry
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Clock == nil {
		cfg.Clock = NewRealClock()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	if cfg.Policy.Backoff == nil {
		cfg.Policy.Backoff = FixedBackoff(5 * time.Minute)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(prometheus.NewRegistry())
	}
	return &Dispatcher{
		table:          cfg.Table,
		handler:        cfg.Handler,
		policy:         cfg.Policy,
		clock:          cfg.Clock,
		pollInterval:   cfg.PollInterval,
		handlerTimeout: cfg.HandlerTimeout,
		metrics:        cfg.Metrics,
		log:            cfg.Logger,
	}
}

// Run drives the SLEEP/SCAN loop until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.WithField("poll_interval", d.pollInterval.String()).Info("Dispatcher started")
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Dispatcher stopped")
			return
		case <-ticker.C:
			d.Scan(ctx, d.clock.Now())
		}
	}
}

// Scan fires every job due at now. A job already removed by a concurrent
// cancellation simply no-ops through the Mark* calls and runs its handler to
// completion; progress increments are per-delivery, so that is harmless.
func (d *Dispatcher) Scan(ctx context.Context, now time.Time) {
	due, err := d.table.Due(ctx, now)
	if err != nil {
		d.log.WithError(err).Error("Failed to enumerate due jobs")
		return
	}

	for _, job := range due {
		jobLog := d.log.WithFields(logrus.Fields{
			"job_id":       job.ID,
			"recipient":    job.Recipient,
			"course":       job.Course,
			"lesson_index": job.LessonIndex,
			"attempt":      job.Attempt,
		})

		if err := d.table.MarkFired(ctx, job.ID); err != nil {
			jobLog.WithError(err).Error("Failed to mark job fired")
			continue
		}
		d.metrics.JobsFired.Inc()

		hctx, cancel := context.WithTimeout(ctx, d.handlerTimeout)
		deliverErr := d.handler.Deliver(hctx, job)
		cancel()

		if deliverErr == nil {
			d.metrics.DeliveriesSucceeded.Inc()
			if err := d.table.Remove(ctx, job.ID); err != nil {
				jobLog.WithError(err).Error("Failed to remove delivered job")
			}
			jobLog.Info("Lesson delivered")
			continue
		}

		if job.Attempt >= d.policy.MaxRetries {
			d.metrics.TerminalFailures.Inc()
			if err := d.table.MarkTerminal(ctx, job.ID); err != nil {
				jobLog.WithError(err).Error("Failed to mark job terminal")
			}
			jobLog.WithError(deliverErr).Warn("Delivery failed terminally, retries exhausted")
			d.handler.OnTerminalFailure(ctx, job)
			continue
		}

		retryAt := now.Add(d.policy.Backoff(job.Attempt))
		d.metrics.RetriesScheduled.Inc()
		if err := d.table.MarkRetry(ctx, job.ID, retryAt); err != nil {
			jobLog.WithError(err).Error("Failed to schedule retry")
			continue
		}
		jobLog.WithError(deliverErr).WithField("retry_at", retryAt).Warn("Delivery failed, retry scheduled")
	}
}
