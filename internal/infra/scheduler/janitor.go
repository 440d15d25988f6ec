package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"learnhub/internal/domain/schedule"
)

// Janitor runs the recurring maintenance jobs: pruning terminally failed
// jobs past their retention window and logging a daily job table summary.
type Janitor struct {
	cronEngine *cron.Cron
	table      schedule.JobTable
	retention  time.Duration
	log        *logrus.Entry
}

func NewJanitor(table schedule.JobTable, retention time.Duration, log *logrus.Entry) *Janitor {
	return &Janitor{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		table:      table,
		retention:  retention,
		log:        log,
	}
}

func (j *Janitor) Start() {
	_, err := j.cronEngine.AddFunc("@every 1h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		cutoff := time.Now().Add(-j.retention)
		pruned, err := j.table.PruneTerminal(ctx, cutoff)
		if err != nil {
			j.log.WithError(err).Error("Failed to prune terminal jobs")
			return
		}
		if pruned > 0 {
			j.log.WithField("pruned", pruned).Info("Pruned terminal jobs")
		}
	})
	if err != nil {
		j.log.WithError(err).Fatal("Could not add prune cron job")
	}

	_, err = j.cronEngine.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := j.table.Count(ctx)
		if err != nil {
			j.log.WithError(err).Error("Failed to count jobs for daily summary")
			return
		}
		j.log.WithField("jobs", n).Info("Daily job table summary")
	})
	if err != nil {
		j.log.WithError(err).Fatal("Could not add summary cron job")
	}

	j.cronEngine.Start()
	j.log.Info("Janitor started")
}

func (j *Janitor) Stop() {
	ctx := j.cronEngine.Stop()
	<-ctx.Done()
	j.log.Info("Janitor stopped")
}
