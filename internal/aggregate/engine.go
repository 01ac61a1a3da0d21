package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"creatorsync/internal/errs"
	"creatorsync/internal/model"
	"creatorsync/internal/platform"
)

// ErrNoPlatformData is returned when every platform fetch fails during an
// aggregation run. A single platform failing is only logged and skipped.
var ErrNoPlatformData = errors.New("no platform data available")

// Store is the persistence surface the engine needs.
type Store interface {
	Get(ctx context.Context, id string) (*model.CreatorRecord, error)
	UpdateAggregated(ctx context.Context, id string, data *model.AggregatedData, followers int64, engagement float64) error
}

// Engine runs the full aggregation pipeline for one creator: collect
// per-platform snapshots, normalize, score, analyze, persist. Writes are
// last-writer-wins; callers must not aggregate the same creator
// concurrently (the sync pipeline serialises per creator, so this holds).
type Engine struct {
	store     Store
	api       platform.API
	postLimit int
}

// NewEngine builds an Engine.
func NewEngine(store Store, api platform.API) *Engine {
	return &Engine{store: store, api: api, postLimit: 30}
}

// Aggregate recomputes and persists the aggregated data for creatorID.
// Returns errs.ErrNotFound when the creator is missing and ErrNoPlatformData
// when no platform yields anything.
func (e *Engine) Aggregate(ctx context.Context, creatorID string) (*model.AggregatedData, error) {
	rec, err := e.store.Get(ctx, creatorID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("creator %s: %w", creatorID, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("load creator %s: %w", creatorID, err)
	}

	snapshots := e.collect(ctx, rec)
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("creator %s: %w", creatorID, ErrNoPlatformData)
	}

	metrics := Normalize(snapshots)

	postCount := 0
	for _, s := range snapshots {
		postCount += len(s.Posts)
	}
	score := Score(metrics, postCount, len(snapshots))
	insights := Analyze(snapshots, metrics)

	platforms := make([]model.Platform, 0, len(snapshots))
	for _, s := range snapshots {
		platforms = append(platforms, s.Platform)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	data := &model.AggregatedData{
		Metrics:      metrics,
		Score:        score,
		Insights:     insights,
		Platforms:    platforms,
		AggregatedAt: time.Now().UTC(),
	}

	followers, engagement := primarySignals(rec, snapshots)
	if err := e.store.UpdateAggregated(ctx, creatorID, data, followers, engagement); err != nil {
		return nil, fmt.Errorf("persist aggregation for %s: %w", creatorID, err)
	}

	log.Printf("[aggregate] creator %s scored %.1f (%s) across %d platform(s)",
		creatorID, score.Overall, score.Tier, len(snapshots))
	return data, nil
}

// collect fetches a snapshot per linked platform. A failed platform is
// logged and skipped; the run only fails when nothing comes back.
func (e *Engine) collect(ctx context.Context, rec *model.CreatorRecord) []model.PlatformSnapshot {
	var snapshots []model.PlatformSnapshot
	for plat, username := range rec.Profiles {
		profile, err := e.api.GetProfile(ctx, plat, username)
		if err != nil {
			log.Printf("[aggregate] %s profile for creator %s failed, skipping platform: %v", plat, rec.ID, err)
			continue
		}
		posts, err := e.api.GetRecentPosts(ctx, plat, username, e.postLimit)
		if err != nil {
			log.Printf("[aggregate] %s posts for creator %s failed, continuing with profile only: %v", plat, rec.ID, err)
			posts = nil
		}
		snapshots = append(snapshots, model.PlatformSnapshot{
			Platform: plat,
			Profile:  *profile,
			Posts:    posts,
			Metrics:  platform.CalculateEngagement(*profile, posts),
		})
	}
	return snapshots
}

// primarySignals picks the follower/engagement values to write back onto
// the record: the creator's home platform when it survived the fetch,
// otherwise the strongest platform available.
func primarySignals(rec *model.CreatorRecord, snapshots []model.PlatformSnapshot) (int64, float64) {
	for _, s := range snapshots {
		if s.Platform == rec.Platform {
			return s.Profile.FollowerCount, s.Metrics.EngagementRate
		}
	}

	best := snapshots[0]
	for _, s := range snapshots[1:] {
		if s.Profile.FollowerCount > best.Profile.FollowerCount {
			best = s
		}
	}
	return best.Profile.FollowerCount, best.Metrics.EngagementRate
}
