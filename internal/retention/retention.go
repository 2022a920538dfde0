package retention

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"mindcare/backend/internal/logger"
	"mindcare/backend/internal/metrics"
)

const DefaultSchedule = "@daily"

// Purger is the slice of db.Store the job needs.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job removes messages and mood logs older than the retention window on a
// cron schedule.
type Job struct {
	store Purger
	keep  time.Duration
	cron  *cron.Cron
	now   func() time.Time
}

func New(store Purger, days int, schedule string) (*Job, error) {
	if days <= 0 {
		return nil, errors.New("retention days must be positive")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	j := &Job{
		store: store,
		keep:  time.Duration(days) * 24 * time.Hour,
		cron:  cron.New(),
		now:   time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, func() { _, _ = j.Run(context.Background()) }); err != nil {
		return nil, err
	}
	return j, nil
}

// Run purges once and reports how many records went away.
func (j *Job) Run(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := j.now().UTC().Add(-j.keep)
	removed, err := j.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		logger.Log.Error("retention_purge_failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	metrics.Purged.Add(float64(removed))
	logger.Log.Info("retention_purged", zap.Time("cutoff", cutoff), zap.Int64("removed", removed))
	return removed, nil
}

func (j *Job) Start() {
	j.cron.Start()
}

// Stop halts scheduling and waits for a running purge to finish.
func (j *Job) Stop() {
	<-j.cron.Stop().Done()
}
