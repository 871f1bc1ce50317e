package cron

import (
	"context"
	"slices"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryPreservesOrderAndSkipsNil(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: "order-expiry"}, nil, &stubJob{name: "refund-sync"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if err := registry.Register(nil); err != nil {
		t.Fatalf("nil job should be ignored: %v", err)
	}
	if got := registry.Names(); !slices.Equal(got, []string{"order-expiry", "refund-sync"}) {
		t.Fatalf("unexpected names %v", got)
	}

	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("Jobs must return a copy")
	}
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "refund-sync"}, &stubJob{name: "refund-sync"}); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
	var registry Registry
	if err := registry.Register(&stubJob{name: "  "}); err == nil {
		t.Fatal("expected blank name to be rejected")
	}
	if err := registry.Register(&stubJob{name: "outbox-retention"}); err != nil {
		t.Fatalf("zero registry should accept jobs: %v", err)
	}
	if len(registry.Jobs()) != 1 {
		t.Fatalf("expected one job")
	}
}
