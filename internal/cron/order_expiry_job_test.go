package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

type fakeExpiringOrders struct {
	stale      []models.Order
	lastCutoff time.Time
	lastLimit  int
	raced      map[uuid.UUID]bool
	failing    map[uuid.UUID]error
	expired    []uuid.UUID
}

func (f *fakeExpiringOrders) FindExpirable(_ context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	f.lastCutoff = cutoff
	f.lastLimit = limit
	return f.stale, nil
}

func (f *fakeExpiringOrders) Expire(_ context.Context, id uuid.UUID) (bool, error) {
	if err := f.failing[id]; err != nil {
		return false, err
	}
	if f.raced[id] {
		return false, nil
	}
	f.expired = append(f.expired, id)
	return true, nil
}

func TestOrderExpiryJobUsesPendingTTL(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	fake := &fakeExpiringOrders{stale: []models.Order{{ID: uuid.New()}, {ID: uuid.New()}}}
	jobIface, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: testLogger(), Orders: fake, PendingTTL: 48 * time.Hour})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}
	job := jobIface.(*orderExpiryJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-48 * time.Hour); !fake.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s got %s", want, fake.lastCutoff)
	}
	if fake.lastLimit != defaultExpiryBatch {
		t.Fatalf("expected default batch, got %d", fake.lastLimit)
	}
	if len(fake.expired) != 2 {
		t.Fatalf("expected 2 expirations, got %d", len(fake.expired))
	}
}

func TestOrderExpiryJobContinuesPastFailures(t *testing.T) {
	broken, raced, fine := uuid.New(), uuid.New(), uuid.New()
	fake := &fakeExpiringOrders{
		stale:   []models.Order{{ID: broken}, {ID: raced}, {ID: fine}},
		raced:   map[uuid.UUID]bool{raced: true},
		failing: map[uuid.UUID]error{broken: errors.New("deadlock")},
	}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: testLogger(), Orders: fake})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}

	err = job.Run(context.Background())
	if len(multierr.Errors(err)) != 1 {
		t.Fatalf("expected exactly one error, got %v", err)
	}
	if len(fake.expired) != 1 || fake.expired[0] != fine {
		t.Fatalf("expected only %s expired, got %v", fine, fake.expired)
	}
}
