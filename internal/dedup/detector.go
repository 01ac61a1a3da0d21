package dedup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"creatorsync/internal/errs"
	"creatorsync/internal/model"
)

const (
	similarThreshold   = 0.85 // same-platform fuzzy match
	crossSimThreshold  = 0.7  // cross-platform username similarity floor
	crossDiscount      = 0.8  // weaker evidence than same-platform
	crossAcceptFloor   = 0.6  // discounted confidence needed to accept
	followerTolerance  = 0.30 // ±30% window on the follower hint
	failOpenConfidence = 0.5
)

// MatchType distinguishes how a duplicate was identified.
type MatchType string

const (
	MatchExact         MatchType = "exact"
	MatchSimilar       MatchType = "similar"
	MatchCrossPlatform MatchType = "cross-platform"
)

// Match is the outcome of one duplicate check. Derived, never stored;
// recomputed per check.
type Match struct {
	IsDuplicate bool      `json:"isDuplicate"`
	ExistingID  string    `json:"existingId,omitempty"`
	MatchType   MatchType `json:"matchType,omitempty"`
	Confidence  float64   `json:"confidence"`
}

// Store is the read surface the detector needs from persistence, plus the
// mutations used by Merge.
type Store interface {
	Get(ctx context.Context, id string) (*model.CreatorRecord, error)
	FindByPlatformUsername(ctx context.Context, platform model.Platform, username string) (*model.CreatorRecord, error)
	ListByPlatform(ctx context.Context, platform model.Platform) ([]model.CreatorRecord, error)
	ListByFollowerRange(ctx context.Context, exclude model.Platform, min, max int64) ([]model.CreatorRecord, error)
	List(ctx context.Context) ([]model.CreatorRecord, error)
	UpdateMerged(ctx context.Context, rec *model.CreatorRecord) error
	Delete(ctx context.Context, id string) error
}

// Detector answers "have we seen this creator before?". Exact hits are
// served from an in-process map backed by Redis so batch discovery runs
// don't hammer Postgres.
type Detector struct {
	store Store
	rdb   *redis.Client // optional; nil disables the shared cache

	mu    sync.RWMutex
	cache map[string]string // "<platform>:<lower username>" → creator id
}

// New builds a Detector. rdb may be nil.
func New(store Store, rdb *redis.Client) *Detector {
	return &Detector{
		store: store,
		rdb:   rdb,
		cache: make(map[string]string),
	}
}

func cacheKey(platform model.Platform, username string) string {
	return fmt.Sprintf("creator:%s:%s", platform, strings.ToLower(username))
}

// Check runs the three-stage match against a candidate, short-circuiting on
// the first hit: exact (platform, case-insensitive username) → same-platform
// fuzzy → cross-platform heuristic.
//
// Internal errors fail open: the candidate is reported as not-duplicate with
// confidence 0.5 so one flaky lookup never stalls a discovery run. The cost
// is a possible duplicate insert, cleaned up later via Merge.
func (d *Detector) Check(ctx context.Context, candidate model.DiscoveryCandidate) Match {
	// Stage 1: exact lookup, cache first.
	if id, ok := d.cacheGet(ctx, candidate.Platform, candidate.Username); ok {
		return Match{IsDuplicate: true, ExistingID: id, MatchType: MatchExact, Confidence: 1.0}
	}

	existing, err := d.store.FindByPlatformUsername(ctx, candidate.Platform, candidate.Username)
	if err == nil {
		d.cacheSet(ctx, candidate.Platform, candidate.Username, existing.ID)
		return Match{IsDuplicate: true, ExistingID: existing.ID, MatchType: MatchExact, Confidence: 1.0}
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return d.failOpen("exact lookup", err)
	}

	// Stage 2: fuzzy match within the candidate's platform.
	samePlatform, err := d.store.ListByPlatform(ctx, candidate.Platform)
	if err != nil {
		return d.failOpen("list platform creators", err)
	}
	for _, rec := range samePlatform {
		sim := Similarity(candidate.Username, rec.Username)
		if sim > similarThreshold {
			return Match{IsDuplicate: true, ExistingID: rec.ID, MatchType: MatchSimilar, Confidence: sim}
		}
	}

	// Stage 3: cross-platform heuristic, only when we have a follower hint
	// to narrow the comparison set.
	if candidate.FollowerHint > 0 {
		min := int64(float64(candidate.FollowerHint) * (1 - followerTolerance))
		max := int64(float64(candidate.FollowerHint) * (1 + followerTolerance))
		others, err := d.store.ListByFollowerRange(ctx, candidate.Platform, min, max)
		if err != nil {
			return d.failOpen("list follower range", err)
		}
		for _, rec := range others {
			if _, onPlatform := rec.Profiles[candidate.Platform]; onPlatform {
				continue
			}
			sim := Similarity(candidate.Username, rec.Username)
			if sim <= crossSimThreshold {
				continue
			}
			confidence := sim * crossDiscount
			if confidence > crossAcceptFloor {
				return Match{IsDuplicate: true, ExistingID: rec.ID, MatchType: MatchCrossPlatform, Confidence: confidence}
			}
		}
	}

	return Match{IsDuplicate: false}
}

func (d *Detector) failOpen(op string, err error) Match {
	log.Printf("[dedup] %s failed, failing open: %v", op, err)
	return Match{IsDuplicate: false, Confidence: failOpenConfidence}
}

// Preload warms the exact-match cache from the store. Called before batch
// discovery runs so stage 1 rarely touches Postgres.
func (d *Detector) Preload(ctx context.Context) error {
	records, err := d.store.List(ctx)
	if err != nil {
		return fmt.Errorf("preload creators: %w", err)
	}

	var pipe redis.Pipeliner
	if d.rdb != nil {
		pipe = d.rdb.Pipeline()
	}

	d.mu.Lock()
	for _, rec := range records {
		for platform, username := range rec.Profiles {
			key := cacheKey(platform, username)
			d.cache[key] = rec.ID
			if pipe != nil {
				pipe.Set(ctx, key, rec.ID, 0)
			}
		}
	}
	d.mu.Unlock()

	if pipe != nil {
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("[dedup] redis preload failed, in-process cache only: %v", err)
		}
	}

	log.Printf("[dedup] preloaded %d creator(s) into the exact-match cache", len(records))
	return nil
}

// Merge confirms keepID and dropID as the same creator: platform profiles
// are unioned and the maximum follower/engagement values win, then the
// losing record is deleted. Returns the surviving record.
func (d *Detector) Merge(ctx context.Context, keepID, dropID string) (*model.CreatorRecord, error) {
	keep, err := d.store.Get(ctx, keepID)
	if err != nil {
		return nil, fmt.Errorf("load keep record %s: %w", keepID, err)
	}
	drop, err := d.store.Get(ctx, dropID)
	if err != nil {
		return nil, fmt.Errorf("load drop record %s: %w", dropID, err)
	}

	if keep.Profiles == nil {
		keep.Profiles = make(map[model.Platform]string)
	}
	for platform, username := range drop.Profiles {
		if _, ok := keep.Profiles[platform]; !ok {
			keep.Profiles[platform] = username
		}
	}
	if drop.FollowerCount > keep.FollowerCount {
		keep.FollowerCount = drop.FollowerCount
	}
	if drop.EngagementRate > keep.EngagementRate {
		keep.EngagementRate = drop.EngagementRate
	}

	if err := d.store.UpdateMerged(ctx, keep); err != nil {
		return nil, fmt.Errorf("update merged record %s: %w", keepID, err)
	}
	if err := d.store.Delete(ctx, dropID); err != nil {
		return nil, fmt.Errorf("delete merged record %s: %w", dropID, err)
	}

	d.mu.Lock()
	for platform, username := range keep.Profiles {
		d.cache[cacheKey(platform, username)] = keep.ID
	}
	d.mu.Unlock()

	log.Printf("[dedup] merged creator %s into %s (%d platform profile(s))",
		dropID, keepID, len(keep.Profiles))
	return keep, nil
}

func (d *Detector) cacheGet(ctx context.Context, platform model.Platform, username string) (string, bool) {
	key := cacheKey(platform, username)

	d.mu.RLock()
	id, ok := d.cache[key]
	d.mu.RUnlock()
	if ok {
		return id, true
	}

	if d.rdb == nil {
		return "", false
	}
	id, err := d.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[dedup] redis get %s: %v", key, err)
		}
		return "", false
	}

	d.mu.Lock()
	d.cache[key] = id
	d.mu.Unlock()
	return id, true
}

func (d *Detector) cacheSet(ctx context.Context, platform model.Platform, username string, id string) {
	key := cacheKey(platform, username)

	d.mu.Lock()
	d.cache[key] = id
	d.mu.Unlock()

	if d.rdb != nil {
		if err := d.rdb.Set(ctx, key, id, 0).Err(); err != nil {
			log.Printf("[dedup] redis set %s: %v", key, err)
		}
	}
}
