package dedup

import (
	"context"
	"errors"
	"testing"

	"creatorsync/internal/errs"
	"creatorsync/internal/model"
)

// fakeStore is an in-memory Store for detector tests.
type fakeStore struct {
	records map[string]*model.CreatorRecord
	failAll bool // force every call to error, for fail-open tests
}

func newFakeStore(records ...*model.CreatorRecord) *fakeStore {
	s := &fakeStore{records: make(map[string]*model.CreatorRecord)}
	for _, r := range records {
		if r.Profiles == nil {
			r.Profiles = map[model.Platform]string{r.Platform: r.Username}
		}
		s.records[r.ID] = r
	}
	return s
}

var errStoreDown = errors.New("store down")

func (s *fakeStore) Get(ctx context.Context, id string) (*model.CreatorRecord, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) FindByPlatformUsername(ctx context.Context, platform model.Platform, username string) (*model.CreatorRecord, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	for _, rec := range s.records {
		if rec.Platform == platform && equalFold(rec.Username, username) {
			return rec, nil
		}
	}
	return nil, errs.ErrNotFound
}

func equalFold(a, b string) bool {
	return normalizeCase(a) == normalizeCase(b)
}

func normalizeCase(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

func (s *fakeStore) ListByPlatform(ctx context.Context, platform model.Platform) ([]model.CreatorRecord, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	var out []model.CreatorRecord
	for _, rec := range s.records {
		if rec.Platform == platform {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByFollowerRange(ctx context.Context, exclude model.Platform, min, max int64) ([]model.CreatorRecord, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	var out []model.CreatorRecord
	for _, rec := range s.records {
		if rec.Platform != exclude && rec.FollowerCount >= min && rec.FollowerCount <= max {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeStore) List(ctx context.Context) ([]model.CreatorRecord, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	var out []model.CreatorRecord
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *fakeStore) UpdateMerged(ctx context.Context, rec *model.CreatorRecord) error {
	if s.failAll {
		return errStoreDown
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	if s.failAll {
		return errStoreDown
	}
	delete(s.records, id)
	return nil
}

func TestCheckExactMatchIsIdempotent(t *testing.T) {
	store := newFakeStore(&model.CreatorRecord{
		ID: "c1", Platform: model.PlatformInstagram, Username: "JohnSmith",
	})
	d := New(store, nil)

	cand := model.DiscoveryCandidate{Platform: model.PlatformInstagram, Username: "johnsmith"}

	first := d.Check(context.Background(), cand)
	second := d.Check(context.Background(), cand)

	for i, match := range []Match{first, second} {
		if !match.IsDuplicate || match.Confidence != 1.0 || match.MatchType != MatchExact {
			t.Fatalf("check #%d = %+v, want exact duplicate with confidence 1.0", i+1, match)
		}
		if match.ExistingID != "c1" {
			t.Fatalf("check #%d matched %q, want c1", i+1, match.ExistingID)
		}
	}
}

func TestCheckFuzzyMatchSamePlatform(t *testing.T) {
	store := newFakeStore(&model.CreatorRecord{
		ID: "c1", Platform: model.PlatformTikTok, Username: "fitnessguru",
	})
	d := New(store, nil)

	match := d.Check(context.Background(), model.DiscoveryCandidate{
		Platform: model.PlatformTikTok, Username: "fitnes_guru",
	})
	if !match.IsDuplicate || match.MatchType != MatchSimilar {
		t.Fatalf("expected fuzzy duplicate, got %+v", match)
	}
	if match.Confidence <= similarThreshold || match.Confidence > 1 {
		t.Fatalf("fuzzy confidence %v should be in (%v, 1]", match.Confidence, similarThreshold)
	}
}

func TestCheckCrossPlatform(t *testing.T) {
	store := newFakeStore(&model.CreatorRecord{
		ID: "c1", Platform: model.PlatformYouTube, Username: "gamerqueen",
		FollowerCount: 100_000,
	})
	d := New(store, nil)

	// Same handle, follower hint within ±30%: discounted confidence
	// 1.0×0.8 = 0.8 > 0.6, accepted.
	match := d.Check(context.Background(), model.DiscoveryCandidate{
		Platform: model.PlatformTwitch, Username: "gamer_queen", FollowerHint: 90_000,
	})
	if !match.IsDuplicate || match.MatchType != MatchCrossPlatform {
		t.Fatalf("expected cross-platform duplicate, got %+v", match)
	}
	if match.Confidence != 0.8 {
		t.Fatalf("cross-platform confidence = %v, want 0.8", match.Confidence)
	}

	// Follower hint far outside the ±30% window: no match.
	match = d.Check(context.Background(), model.DiscoveryCandidate{
		Platform: model.PlatformTwitch, Username: "gamer_queen", FollowerHint: 5_000,
	})
	if match.IsDuplicate {
		t.Fatalf("follower window should have excluded the match, got %+v", match)
	}
}

func TestCheckFailsOpenOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	d := New(store, nil)

	match := d.Check(context.Background(), model.DiscoveryCandidate{
		Platform: model.PlatformInstagram, Username: "whoever",
	})
	if match.IsDuplicate {
		t.Fatal("detector must fail open, not report a duplicate")
	}
	if match.Confidence != failOpenConfidence {
		t.Fatalf("fail-open confidence = %v, want %v", match.Confidence, failOpenConfidence)
	}
}

func TestPreloadServesExactHitsFromCache(t *testing.T) {
	store := newFakeStore(&model.CreatorRecord{
		ID: "c1", Platform: model.PlatformInstagram, Username: "someone",
	})
	d := New(store, nil)
	if err := d.Preload(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Break the store: a cache hit must not touch it anymore.
	store.failAll = true
	match := d.Check(context.Background(), model.DiscoveryCandidate{
		Platform: model.PlatformInstagram, Username: "SOMEONE",
	})
	if !match.IsDuplicate || match.Confidence != 1.0 {
		t.Fatalf("preloaded exact match not served from cache: %+v", match)
	}
}

func TestMergeUnionsProfilesAndKeepsMaxima(t *testing.T) {
	keep := &model.CreatorRecord{
		ID: "keep", Platform: model.PlatformInstagram, Username: "creator",
		FollowerCount: 50_000, EngagementRate: 2.5,
	}
	drop := &model.CreatorRecord{
		ID: "drop", Platform: model.PlatformTikTok, Username: "creator",
		FollowerCount: 80_000, EngagementRate: 1.5,
	}
	store := newFakeStore(keep, drop)
	d := New(store, nil)

	merged, err := d.Merge(context.Background(), "keep", "drop")
	if err != nil {
		t.Fatal(err)
	}

	if merged.FollowerCount != 80_000 {
		t.Errorf("merged follower count = %d, want the maximum 80000", merged.FollowerCount)
	}
	if merged.EngagementRate != 2.5 {
		t.Errorf("merged engagement = %v, want the maximum 2.5", merged.EngagementRate)
	}
	if len(merged.Profiles) != 2 {
		t.Errorf("merged profiles = %v, want both platforms", merged.Profiles)
	}
	if _, err := store.Get(context.Background(), "drop"); !errors.Is(err, errs.ErrNotFound) {
		t.Error("losing record must be deleted after merge")
	}
}
