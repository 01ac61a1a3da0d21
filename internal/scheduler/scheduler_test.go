package scheduler

import (
	"context"
	"testing"
	"time"

	"creatorsync/internal/model"
	"creatorsync/internal/queue"
)

func newIdleQueue() *queue.Queue {
	q := queue.New(queue.Options{Name: "scheduler-test", Concurrency: 1, MaxAttempts: 1})
	nop := queue.HandlerFunc(func(ctx context.Context, job *queue.Job) (any, error) { return nil, nil })
	q.Register(JobDiscover, nop)
	q.Register(JobSync, nop)
	return q
}

type staleListStore struct {
	creators []model.CreatorRecord
}

func (s *staleListStore) ListStale(ctx context.Context, cutoff time.Time) ([]model.CreatorRecord, error) {
	return s.creators, nil
}

func TestPriorityForTiers(t *testing.T) {
	cases := []struct {
		name       string
		followers  int64
		engagement float64
		want       model.SyncPriority
	}{
		{"mega account", 1_500_000, 1, model.SyncHigh},
		{"big and hot", 150_000, 9, model.SyncHigh},
		{"big but cool", 150_000, 2, model.SyncNormal},
		{"mid size", 60_000, 1, model.SyncNormal},
		{"small but engaged", 8_000, 6, model.SyncNormal},
		{"long tail", 8_000, 2, model.SyncLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := model.CreatorRecord{FollowerCount: tc.followers, EngagementRate: tc.engagement}
			if got := PriorityFor(rec); got != tc.want {
				t.Fatalf("PriorityFor(%d followers, %.0f%%) = %d, want %d",
					tc.followers, tc.engagement, got, tc.want)
			}
		})
	}
}

func TestIntervalForTiers(t *testing.T) {
	if got := IntervalFor(model.SyncHigh); got != 4*time.Hour {
		t.Fatalf("high tier interval = %v, want 4h", got)
	}
	if got := IntervalFor(model.SyncNormal); got != 24*time.Hour {
		t.Fatalf("normal tier interval = %v, want 24h", got)
	}
	if got := IntervalFor(model.SyncLow); got != 168*time.Hour {
		t.Fatalf("low tier interval = %v, want 168h", got)
	}
	// Unknown tiers fall back to the slowest cadence.
	if got := IntervalFor(model.SyncPriority(99)); got != 168*time.Hour {
		t.Fatalf("unknown tier interval = %v, want 168h", got)
	}
}

func TestPlanForAnchorsNextSync(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	rec := model.CreatorRecord{ID: "c1", FollowerCount: 2_000_000}

	plan := PlanFor(rec, now)
	if plan.CreatorID != "c1" {
		t.Fatalf("plan creator = %s, want c1", plan.CreatorID)
	}
	if plan.Priority != model.SyncHigh {
		t.Fatalf("plan priority = %d, want high", plan.Priority)
	}
	if !plan.NextSyncAt.Equal(now.Add(4 * time.Hour)) {
		t.Fatalf("next sync at %v, want %v", plan.NextSyncAt, now.Add(4*time.Hour))
	}
	if plan.IntervalHours != 4 {
		t.Fatalf("interval hours = %d, want 4", plan.IntervalHours)
	}
}

// resyncDue enqueues only creators outside their tier interval: a low-tier
// creator last synced two days ago is still fresh on a weekly cadence.
func TestResyncDueSkipsCreatorsWithinInterval(t *testing.T) {
	now := time.Now().UTC()
	overdue := now.Add(-30 * time.Hour)
	recent := now.Add(-48 * time.Hour)

	store := &staleListStore{creators: []model.CreatorRecord{
		// Normal tier, 30h since last sync, 24h interval: due.
		{ID: "due-normal", FollowerCount: 60_000, LastSync: &overdue},
		// Low tier, 48h since last sync, 168h interval: not due.
		{ID: "fresh-low", FollowerCount: 2_000, LastSync: &recent},
		// Never synced at all: always due.
		{ID: "never-synced", FollowerCount: 2_000},
	}}

	q := newIdleQueue()
	s := New(q, store, nil)
	s.resyncDue(context.Background())

	if got := q.Stats().Pending; got != 2 {
		t.Fatalf("pending sync jobs = %d, want 2 (due-normal and never-synced)", got)
	}
}

func TestCategorySweepEnqueuesPerTopic(t *testing.T) {
	q := newIdleQueue()
	s := New(q, &staleListStore{}, []string{"gaming", "food", "tech"})

	s.categorySweep(context.Background())

	if got := q.Stats().Pending; got != 3 {
		t.Fatalf("pending discovery jobs = %d, want one per topic", got)
	}
}
