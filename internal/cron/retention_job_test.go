package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/littlelight-store/backend/pkg/logger"
)

type recordingPurge struct {
	cutoffs []time.Time
	deleted int64
	err     error
}

func (p *recordingPurge) purge(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.deleted, p.err
}

func newTestRetentionJob(t *testing.T, p *recordingPurge, retention time.Duration, now time.Time) *retentionJob {
	t.Helper()
	job, err := NewRetentionJob(RetentionJobParams{
		Name:      "test-retention",
		Logger:    logger.Nop(),
		Purge:     p.purge,
		Retention: retention,
	})
	if err != nil {
		t.Fatalf("NewRetentionJob: %v", err)
	}
	typed := job.(*retentionJob)
	typed.now = func() time.Time { return now }
	return typed
}

func TestRetentionJobCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	for name, tc := range map[string]struct {
		retention time.Duration
		want      time.Time
	}{
		"default":    {want: now.Add(-defaultRetention)},
		"configured": {retention: 72 * time.Hour, want: now.Add(-72 * time.Hour)},
	} {
		t.Run(name, func(t *testing.T) {
			p := &recordingPurge{deleted: 3}
			job := newTestRetentionJob(t, p, tc.retention, now)
			if err := job.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(p.cutoffs) != 1 || !p.cutoffs[0].Equal(tc.want) {
				t.Fatalf("expected one purge at %s, got %v", tc.want, p.cutoffs)
			}
		})
	}
}

func TestRetentionJobNamesItselfInErrors(t *testing.T) {
	job := newTestRetentionJob(t, &recordingPurge{err: errors.New("boom")}, 0, time.Now())
	err := job.Run(context.Background())
	if err == nil || err.Error() != "test-retention: boom" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewRetentionJobListsMissingParams(t *testing.T) {
	_, err := NewRetentionJob(RetentionJobParams{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"job name required", "logger required", "purge func required"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

type fakeOutboxPurger struct {
	tx     *gorm.DB
	cutoff time.Time
}

func (f *fakeOutboxPurger) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.tx = tx
	f.cutoff = cutoff
	return 7, nil
}

type recordingTx struct{ tx *gorm.DB }

func (r recordingTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(r.tx)
}

func TestOutboxPurgeRunsInsideTransaction(t *testing.T) {
	tx := &gorm.DB{}
	repo := &fakeOutboxPurger{}
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	deleted, err := OutboxPurge(recordingTx{tx: tx}, repo)(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 7 || repo.tx != tx || !repo.cutoff.Equal(cutoff) {
		t.Fatalf("unexpected purge: deleted=%d tx=%p cutoff=%s", deleted, repo.tx, repo.cutoff)
	}
}
