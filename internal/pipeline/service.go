// Package pipeline wires discovery, dedup, evaluation, aggregation and
// rescheduling into one flow driven by the job queue.
//
// The service is an explicitly constructed object with injected
// collaborators and no package-level state; a test can hold several
// independent instances side by side.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"creatorsync/internal/dedup"
	"creatorsync/internal/discovery"
	"creatorsync/internal/errs"
	"creatorsync/internal/evaluate"
	"creatorsync/internal/model"
	"creatorsync/internal/queue"
	"creatorsync/internal/scheduler"
)

const discoveryLimit = 50

// Store is the persistence surface the pipeline itself needs; dedup and
// aggregation hold their own narrower views of the same store.
type Store interface {
	Insert(ctx context.Context, rec *model.CreatorRecord) error
	Get(ctx context.Context, id string) (*model.CreatorRecord, error)
	UpdateSyncState(ctx context.Context, id string, lastSync time.Time) error
	CountsByPlatform(ctx context.Context) (map[model.Platform]int, error)
}

// Aggregator is the aggregation engine contract.
type Aggregator interface {
	Aggregate(ctx context.Context, creatorID string) (*model.AggregatedData, error)
}

// Service runs the discover → dedupe → evaluate → persist → aggregate →
// reschedule pipeline on top of the job queue.
type Service struct {
	q         *queue.Queue
	source    discovery.Source
	detector  *dedup.Detector
	evaluator *evaluate.Evaluator
	engine    Aggregator
	store     Store
}

// New builds the service and installs its handlers on the queue's dispatch
// table. The queue is not started here; call Start.
func New(q *queue.Queue, source discovery.Source, detector *dedup.Detector,
	evaluator *evaluate.Evaluator, engine Aggregator, store Store) *Service {

	s := &Service{
		q:         q,
		source:    source,
		detector:  detector,
		evaluator: evaluator,
		engine:    engine,
		store:     store,
	}

	q.Register(scheduler.JobDiscover, queue.HandlerFunc(s.handleDiscover))
	q.Register(scheduler.JobEvaluate, queue.HandlerFunc(s.handleEvaluate))
	q.Register(scheduler.JobAggregate, queue.HandlerFunc(s.handleSyncCreator))
	q.Register(scheduler.JobSync, queue.HandlerFunc(s.handleSyncCreator))
	return s
}

// Start preloads the dedup cache and starts the queue's processing loop.
func (s *Service) Start(ctx context.Context) {
	if err := s.detector.Preload(ctx); err != nil {
		// Cold cache only slows the first discovery run down, it doesn't
		// break correctness.
		log.Printf("[pipeline] dedup preload failed, starting cold: %v", err)
	}
	s.q.Start(ctx)
}

// Stop halts the queue; in-flight jobs run to completion.
func (s *Service) Stop() {
	s.q.Stop()
}

// handleDiscover runs one discovery job: query the source, drop duplicates,
// and hand the surviving candidates to an evaluation job.
func (s *Service) handleDiscover(ctx context.Context, job *queue.Job) (any, error) {
	topic, _ := job.Payload["topic"].(string)
	sourceName, _ := job.Payload["source"].(string)
	if sourceName == "" {
		return nil, errs.Validation("source", "discovery job without a source")
	}
	if topic == "" {
		topic = sourceName // trending scans have no topic of their own
	}

	candidates, err := s.source.SearchCreatorsByTopic(ctx, topic, discoveryLimit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", topic, err)
	}

	var fresh []model.DiscoveryCandidate
	duplicates := 0
	// The detector only knows persisted creators, so repeats inside one
	// response have to be caught here before they race to the same insert.
	seen := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		if cand.Source == "" {
			cand.Source = model.DiscoverySource(sourceName)
		}
		key := string(cand.Platform) + ":" + strings.ToLower(cand.Username)
		if _, repeat := seen[key]; repeat {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		match := s.detector.Check(ctx, cand)
		if match.IsDuplicate {
			duplicates++
			continue
		}
		fresh = append(fresh, cand)
	}

	if len(fresh) > 0 {
		payload, err := candidatePayload(fresh)
		if err != nil {
			return nil, err
		}
		if _, err := s.q.Add(scheduler.JobEvaluate, payload, job.Priority); err != nil {
			return nil, fmt.Errorf("enqueue evaluation: %w", err)
		}
	}

	log.Printf("[pipeline] discovery %q (%s): %d candidate(s), %d duplicate(s), %d to evaluate",
		topic, sourceName, len(candidates), duplicates, len(fresh))
	return map[string]any{
		"candidates": len(candidates),
		"duplicates": duplicates,
		"evaluating": len(fresh),
	}, nil
}

// handleEvaluate scores a batch of candidates, persists the accepted ones
// and queues each for aggregation.
func (s *Service) handleEvaluate(ctx context.Context, job *queue.Job) (any, error) {
	candidates, err := candidatesFromPayload(job.Payload)
	if err != nil {
		return nil, err
	}

	results := s.evaluator.EvaluateBatch(ctx, candidates)

	added, monitoring, rejected := 0, 0, 0
	for i, res := range results {
		switch res.Recommendation {
		case evaluate.RecommendAdd:
			if err := s.acceptCandidate(ctx, candidates[i], res); err != nil {
				log.Printf("[pipeline] accept %s@%s failed: %v",
					candidates[i].Username, candidates[i].Platform, err)
				continue
			}
			added++
		case evaluate.RecommendMonitor:
			monitoring++
			log.Printf("[pipeline] monitoring %s@%s (score %.1f)",
				candidates[i].Username, candidates[i].Platform, res.QualityScore)
		default:
			rejected++
		}
	}

	log.Printf("[pipeline] evaluation batch done — added=%d monitoring=%d rejected=%d",
		added, monitoring, rejected)
	return map[string]any{"added": added, "monitoring": monitoring, "rejected": rejected}, nil
}

// acceptCandidate persists an accepted candidate and enqueues its first
// aggregation run.
func (s *Service) acceptCandidate(ctx context.Context, cand model.DiscoveryCandidate, res evaluate.Result) error {
	rec := &model.CreatorRecord{
		ID:             uuid.New().String(),
		Platform:       cand.Platform,
		Username:       cand.Username,
		FollowerCount:  res.Profile.FollowerCount,
		EngagementRate: res.Metrics.EngagementRate,
		ProfileData:    *res.Profile,
		Profiles:       map[model.Platform]string{cand.Platform: cand.Username},
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return err
	}

	payload := map[string]any{"creatorId": rec.ID}
	if _, err := s.q.Add(scheduler.JobAggregate, payload, queue.PriorityNormal); err != nil {
		return fmt.Errorf("enqueue aggregation: %w", err)
	}

	log.Printf("[pipeline] added creator %s (%s@%s, score %.1f)",
		rec.ID, rec.Username, rec.Platform, res.QualityScore)
	return nil
}

// handleSyncCreator aggregates one creator and reschedules its next sync.
// Serves both the first aggregation after acceptance and periodic resyncs.
func (s *Service) handleSyncCreator(ctx context.Context, job *queue.Job) (any, error) {
	creatorID, _ := job.Payload["creatorId"].(string)
	if creatorID == "" {
		return nil, errs.Validation("creatorId", "sync job without a creator id")
	}

	data, err := s.engine.Aggregate(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.store.UpdateSyncState(ctx, creatorID, now); err != nil {
		return nil, fmt.Errorf("stamp sync state: %w", err)
	}

	rec, err := s.store.Get(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("reload creator: %w", err)
	}
	plan := scheduler.PlanFor(*rec, now)

	// The next sync rides on the completion of this one; the daily resync
	// pass only catches creators whose follow-up job was lost.
	if _, err := s.q.Add(scheduler.JobSync,
		map[string]any{"creatorId": creatorID},
		queue.Priority(plan.Priority),
		queue.WithScheduledFor(plan.NextSyncAt),
	); err != nil {
		log.Printf("[pipeline] schedule next sync for %s: %v", creatorID, err)
	}

	return map[string]any{
		"score":    data.Score.Overall,
		"tier":     string(data.Score.Tier),
		"nextSync": plan.NextSyncAt.Format(time.RFC3339),
		"interval": plan.IntervalHours,
	}, nil
}

// Report is the read-only snapshot served to dashboards.
type Report struct {
	Queue              queue.Stats            `json:"queue"`
	CreatorsByPlatform map[model.Platform]int `json:"creatorsByPlatform"`
}

// Report assembles queue health and per-platform creator counts.
func (s *Service) Report(ctx context.Context) (Report, error) {
	counts, err := s.store.CountsByPlatform(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("creator counts: %w", err)
	}
	return Report{
		Queue:              s.q.Stats(),
		CreatorsByPlatform: counts,
	}, nil
}

func candidatePayload(candidates []model.DiscoveryCandidate) (map[string]any, error) {
	raw, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}
	return map[string]any{"candidates": string(raw)}, nil
}

func candidatesFromPayload(payload map[string]any) ([]model.DiscoveryCandidate, error) {
	raw, _ := payload["candidates"].(string)
	if raw == "" {
		return nil, errs.Validation("candidates", "evaluation job without candidates")
	}
	var candidates []model.DiscoveryCandidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, errs.Validation("candidates", "malformed candidate payload: "+err.Error())
	}
	return candidates, nil
}
