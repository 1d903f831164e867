package cron

import (
	"context"
	"strings"
	"testing"

	"github.com/littlelight-store/backend/pkg/logger"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "auto-accept"})
	retention := &stubJob{name: "outbox-retention"}
	if err := registry.Register(retention); err != nil {
		t.Fatalf("register: %v", err)
	}

	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0].Name() != "auto-accept" || jobs[1] != retention {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("Jobs must return a copy")
	}
	if registry.Err() != nil {
		t.Fatalf("unexpected registry error %v", registry.Err())
	}
}

func TestServiceRefusesRegistryWithRejectedJobs(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "sweep"}, &stubJob{name: "sweep"}, &stubJob{})
	err := registry.Err()
	if err == nil || !strings.Contains(err.Error(), `"sweep" already registered`) || !strings.Contains(err.Error(), "without a name") {
		t.Fatalf("unexpected registry error %v", err)
	}
	if len(registry.Jobs()) != 1 {
		t.Fatalf("expected only the first sweep to register")
	}

	if _, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}, Registry: registry}); err == nil {
		t.Fatal("expected NewService to reject the registry")
	}
}
