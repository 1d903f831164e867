package cron

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order with unique names.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
	err   error
}

// NewRegistry registers jobs in order. Rejections are kept for Err so the
// service refuses to start with a half-built schedule.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		r.err = multierr.Append(r.err, r.Register(job))
	}
	return r
}

// Register ignores nil jobs and rejects a name that is already taken.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if name == "" {
		return errors.New("cron job without a name")
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	if _, taken := r.names[name]; taken {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Err() error { return r.err }

func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
