package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/pkg/logger"
)

const (
	defaultRetention      = 30 * 24 * time.Hour
	defaultRetentionEvery = time.Hour
)

// PurgeFunc deletes rows that aged out before cutoff and reports how many
// went.
type PurgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

type RetentionJobParams struct {
	Name      string
	Logger    *logger.Logger
	Purge     PurgeFunc
	Retention time.Duration
	Every     time.Duration
}

// retentionJob keeps a table bounded by age. It runs on its own cadence
// instead of every scheduler tick.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	purge     PurgeFunc
	retention time.Duration
	every     time.Duration
	now       func() time.Time
}

func NewRetentionJob(params RetentionJobParams) (Job, error) {
	var err error
	if params.Name == "" {
		err = multierr.Append(err, errors.New("job name required"))
	}
	if params.Logger == nil {
		err = multierr.Append(err, errors.New("logger required"))
	}
	if params.Purge == nil {
		err = multierr.Append(err, errors.New("purge func required"))
	}
	if err != nil {
		return nil, fmt.Errorf("retention job %q: %w", params.Name, err)
	}

	job := &retentionJob{
		name:      params.Name,
		logg:      params.Logger,
		purge:     params.Purge,
		retention: params.Retention,
		every:     params.Every,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultRetention
	}
	if job.every <= 0 {
		job.every = defaultRetentionEvery
	}
	return job, nil
}

func (j *retentionJob) Name() string         { return j.name }
func (j *retentionJob) Every() time.Duration { return j.every }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	if deleted == 0 {
		return nil
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"job":          j.name,
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "expired rows purged")
	return nil
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxPurge drops published outbox rows. Pending rows are never touched.
func OutboxPurge(db txRunner, repo outboxPurger) PurgeFunc {
	return func(ctx context.Context, cutoff time.Time) (int64, error) {
		var deleted int64
		err := db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			deleted, err = repo.DeletePublishedBefore(tx, cutoff)
			return err
		})
		return deleted, err
	}
}
