// Package scheduler owns the recurring triggers that feed the pipeline: a
// cron-driven set of discovery scans and an adaptive per-creator resync
// schedule keyed by priority tier.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"creatorsync/internal/model"
	"creatorsync/internal/queue"
)

// Job types enqueued by the triggers. Handlers are registered by the sync
// service before Start is called.
const (
	JobDiscover  = "discovery:scan"
	JobEvaluate  = "evaluate:candidate"
	JobAggregate = "aggregate:creator"
	JobSync      = "sync:creator"
)

// Resync cadence per priority tier. Big, highly-engaged creators change
// fast and are re-read every few hours; the long tail is weekly.
var resyncIntervals = map[model.SyncPriority]time.Duration{
	model.SyncHigh:   4 * time.Hour,
	model.SyncNormal: 24 * time.Hour,
	model.SyncLow:    168 * time.Hour,
}

var defaultTopics = []string{
	"fitness", "beauty", "gaming", "food", "travel", "fashion", "tech", "music",
}

// Store is the read surface the scheduler needs.
type Store interface {
	ListStale(ctx context.Context, cutoff time.Time) ([]model.CreatorRecord, error)
}

// Scheduler wraps robfig/cron and enqueues discovery and resync jobs. It
// never executes work itself; the job queue does, on its own cadence, so no
// ordering between cron ticks and job execution may be assumed.
type Scheduler struct {
	cron   *cron.Cron
	q      *queue.Queue
	store  Store
	topics []string
}

// New builds a Scheduler. topics may be nil to use the default sweep list.
func New(q *queue.Queue, store Store, topics []string) *Scheduler {
	if len(topics) == 0 {
		topics = defaultTopics
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.DefaultLogger)),
		q:      q,
		store:  store,
		topics: topics,
	}
}

// Start registers the cron entries and starts the scheduler. One trending
// scan runs immediately so a fresh deployment doesn't idle until the first
// tick.
func (s *Scheduler) Start(ctx context.Context) error {
	entries := []struct {
		spec string
		fn   func()
	}{
		{"@hourly", func() { s.trendingScan(ctx) }},
		{"@daily", func() { s.categorySweep(ctx) }},
		{"@weekly", func() { s.deepScan(ctx) }},
		{"@daily", func() { s.resyncDue(ctx) }},
	}
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, e.fn); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.Printf("[scheduler] cron started — %d trigger(s), %d sweep topic(s)", len(entries), len(s.topics))

	go s.trendingScan(ctx)
	return nil
}

// Stop gracefully shuts down the cron runner. Jobs already enqueued keep
// processing until the queue itself stops.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] cron stopped")
}

// trendingScan enqueues one high-priority discovery job against the
// trending feed.
func (s *Scheduler) trendingScan(ctx context.Context) {
	s.enqueueDiscovery("", model.SourceTrending, queue.PriorityHigh)
}

// categorySweep enqueues one normal-priority discovery job per topic.
func (s *Scheduler) categorySweep(ctx context.Context) {
	for _, topic := range s.topics {
		s.enqueueDiscovery(topic, model.SourceCategory, queue.PriorityNormal)
	}
}

// deepScan enqueues low-priority searches across every topic; the weekly
// slow crawl that picks up whatever the faster scans miss.
func (s *Scheduler) deepScan(ctx context.Context) {
	for _, topic := range s.topics {
		s.enqueueDiscovery(topic, model.SourceSearch, queue.PriorityLow)
	}
}

func (s *Scheduler) enqueueDiscovery(topic string, source model.DiscoverySource, priority queue.Priority) {
	payload := map[string]any{"source": string(source)}
	if topic != "" {
		payload["topic"] = topic
	}
	if _, err := s.q.Add(JobDiscover, payload, priority); err != nil {
		log.Printf("[scheduler] enqueue discovery (%s, %q): %v", source, topic, err)
	}
}

// resyncDue enqueues a sync job for every creator whose last sync is older
// than its tier interval. Creators inside their interval are skipped, so a
// daily trigger never produces redundant work for weekly-tier creators.
func (s *Scheduler) resyncDue(ctx context.Context) {
	now := time.Now().UTC()

	// The widest net: anything younger than the shortest interval can't be
	// due on any tier.
	creators, err := s.store.ListStale(ctx, now.Add(-resyncIntervals[model.SyncHigh]))
	if err != nil {
		log.Printf("[scheduler] list stale creators: %v", err)
		return
	}

	enqueued := 0
	for _, rec := range creators {
		priority := PriorityFor(rec)
		interval := resyncIntervals[priority]
		if rec.LastSync != nil && now.Sub(*rec.LastSync) < interval {
			continue
		}

		payload := map[string]any{"creatorId": rec.ID}
		if _, err := s.q.Add(JobSync, payload, queue.Priority(priority)); err != nil {
			log.Printf("[scheduler] enqueue sync for %s: %v", rec.ID, err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		log.Printf("[scheduler] resync pass enqueued %d creator(s) of %d stale", enqueued, len(creators))
	}
}

// PriorityFor derives the sync tier from recent follower and engagement
// signals.
func PriorityFor(rec model.CreatorRecord) model.SyncPriority {
	switch {
	case rec.FollowerCount >= 1_000_000,
		rec.EngagementRate >= 8 && rec.FollowerCount >= 100_000:
		return model.SyncHigh
	case rec.FollowerCount >= 50_000, rec.EngagementRate >= 5:
		return model.SyncNormal
	default:
		return model.SyncLow
	}
}

// IntervalFor returns the resync interval for a tier.
func IntervalFor(priority model.SyncPriority) time.Duration {
	if interval, ok := resyncIntervals[priority]; ok {
		return interval
	}
	return resyncIntervals[model.SyncLow]
}

// PlanFor builds the next SyncSchedule for a creator, anchored at now.
// Called by the sync service each time a sync completes.
func PlanFor(rec model.CreatorRecord, now time.Time) model.SyncSchedule {
	priority := PriorityFor(rec)
	interval := IntervalFor(priority)
	return model.SyncSchedule{
		CreatorID:     rec.ID,
		Priority:      priority,
		NextSyncAt:    now.Add(interval),
		IntervalHours: int(interval.Hours()),
	}
}
