package evaluate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"creatorsync/internal/model"
)

// stubAPI returns canned profiles and posts per username.
type stubAPI struct {
	profiles map[string]*model.Profile
	posts    map[string][]model.Post
	err      error
}

func (s *stubAPI) GetProfile(ctx context.Context, platform model.Platform, username string) (*model.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[username]
	if !ok {
		return nil, errors.New("unknown user")
	}
	return p, nil
}

func (s *stubAPI) GetRecentPosts(ctx context.Context, platform model.Platform, username string, limit int) ([]model.Post, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.posts[username], nil
}

// weeklyPosts fabricates n posts a week apart with the given per-post
// likes, so engagement is fully determined by likes/followers.
func weeklyPosts(n int, likes int64) []model.Post {
	posts := make([]model.Post, n)
	base := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)
	for i := range posts {
		posts[i] = model.Post{
			ID:          "p",
			Likes:       likes,
			PublishedAt: base.Add(time.Duration(i) * 7 * 24 * time.Hour),
		}
	}
	return posts
}

func defaultGates() Thresholds {
	return Thresholds{MinFollowers: 1000, MaxFollowers: 10_000_000, MinEngagement: 1.0, ScoreThreshold: 60}
}

// A candidate under the follower minimum is rejected with a reason that
// cites the threshold.
func TestEvaluateRejectsBelowMinFollowers(t *testing.T) {
	api := &stubAPI{
		profiles: map[string]*model.Profile{
			"tiny": {Username: "tiny", FollowerCount: 500, PostCount: 10},
		},
		posts: map[string][]model.Post{"tiny": weeklyPosts(10, 50)},
	}
	e := New(api, defaultGates())

	res := e.Evaluate(context.Background(), model.DiscoveryCandidate{
		Platform: model.PlatformInstagram, Username: "tiny",
	})

	if res.Recommendation != RecommendReject {
		t.Fatalf("recommendation = %s, want reject", res.Recommendation)
	}
	found := false
	for _, reason := range res.Reasons {
		if strings.Contains(reason, "500") && strings.Contains(reason, "1000") {
			found = true
		}
	}
	if !found {
		t.Fatalf("reasons %v must cite follower count and threshold", res.Reasons)
	}
}

func TestEvaluateRejectsSuspiciousPatterns(t *testing.T) {
	cases := []struct {
		name      string
		followers int64
		postCount int
		likes     int64
	}{
		// 10 posts, 3000 likes each on 10K followers: 30% engagement.
		{"implausible engagement", 10_000, 10, 3000},
		// 100K followers, 30 likes per post: 0.03% engagement.
		{"dead big account", 100_000, 10, 30},
		// 20K followers and not a single post.
		{"ghost account", 20_000, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &stubAPI{
				profiles: map[string]*model.Profile{
					"x": {Username: "x", FollowerCount: tc.followers, PostCount: tc.postCount},
				},
				posts: map[string][]model.Post{"x": weeklyPosts(tc.postCount, tc.likes)},
			}
			e := New(api, defaultGates())

			res := e.Evaluate(context.Background(), model.DiscoveryCandidate{
				Platform: model.PlatformInstagram, Username: "x",
			})
			if res.Recommendation != RecommendReject {
				t.Fatalf("recommendation = %s (score %.1f, reasons %v), want reject",
					res.Recommendation, res.QualityScore, res.Reasons)
			}
		})
	}
}

func TestEvaluateAddsStrongCandidate(t *testing.T) {
	// 200K followers, daily posts at ~5% engagement, verified.
	posts := make([]model.Post, 30)
	base := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	for i := range posts {
		posts[i] = model.Post{
			Likes: 9500, Comments: 500,
			PublishedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	api := &stubAPI{
		profiles: map[string]*model.Profile{
			"star": {Username: "star", FollowerCount: 200_000, PostCount: 500, Verified: true},
		},
		posts: map[string][]model.Post{"star": posts},
	}
	e := New(api, defaultGates())

	res := e.Evaluate(context.Background(), model.DiscoveryCandidate{
		Platform: model.PlatformInstagram, Username: "star", Source: model.SourceTrending,
	})
	if res.Recommendation != RecommendAdd {
		t.Fatalf("recommendation = %s (score %.1f, reasons %v), want add",
			res.Recommendation, res.QualityScore, res.Reasons)
	}
	if res.QualityScore < 60 || res.QualityScore > 100 {
		t.Fatalf("quality score %.1f out of expected range", res.QualityScore)
	}
}

// When the platform API is down the evaluator falls back to discovery hints
// instead of erroring out.
func TestEvaluateFallsBackToHints(t *testing.T) {
	api := &stubAPI{err: errors.New("api down")}
	e := New(api, defaultGates())

	res := e.Evaluate(context.Background(), model.DiscoveryCandidate{
		Platform:       model.PlatformTikTok,
		Username:       "hinted",
		FollowerHint:   500, // below the minimum → reject via hints
		EngagementHint: 4,
	})
	if res.Recommendation != RecommendReject {
		t.Fatalf("recommendation = %s, want reject from hint data", res.Recommendation)
	}
	if res.Profile == nil || res.Profile.FollowerCount != 500 {
		t.Fatalf("fallback profile should carry the follower hint, got %+v", res.Profile)
	}
	found := false
	for _, reason := range res.Reasons {
		if strings.Contains(reason, "hints") {
			found = true
		}
	}
	if !found {
		t.Fatalf("reasons %v should mention the hint fallback", res.Reasons)
	}
}

// Hint data carries no post count, so a large candidate evaluated from
// hints must not be flagged as a ghost account.
func TestEvaluateFallbackSkipsZeroPostsGate(t *testing.T) {
	api := &stubAPI{err: errors.New("api down")}
	e := New(api, defaultGates())

	res := e.Evaluate(context.Background(), model.DiscoveryCandidate{
		Platform:       model.PlatformYouTube,
		Username:       "bighint",
		FollowerHint:   80_000,
		EngagementHint: 4,
	})
	for _, reason := range res.Reasons {
		if strings.Contains(reason, "posting activity") {
			t.Fatalf("fallback evaluation flagged a ghost account: %v", res.Reasons)
		}
	}

	// Strong hints can still clear the add threshold outright.
	strong := e.Evaluate(context.Background(), model.DiscoveryCandidate{
		Platform:       model.PlatformYouTube,
		Username:       "stronghint",
		FollowerHint:   80_000,
		EngagementHint: 10,
		Source:         model.SourceTrending,
	})
	if strong.Recommendation != RecommendAdd {
		t.Fatalf("recommendation = %s (score %.1f, reasons %v), want add from hints",
			strong.Recommendation, strong.QualityScore, strong.Reasons)
	}
}

func TestEvaluateBatchPreservesOrder(t *testing.T) {
	profiles := make(map[string]*model.Profile)
	posts := make(map[string][]model.Post)
	var candidates []model.DiscoveryCandidate
	names := []string{"a", "b", "c", "d", "e", "f", "g"} // spans two batches of 5

	for i, name := range names {
		profiles[name] = &model.Profile{
			Username: name, FollowerCount: int64(1000 * (i + 1)), PostCount: 10,
		}
		posts[name] = weeklyPosts(10, int64(40*(i+1)))
		candidates = append(candidates, model.DiscoveryCandidate{
			Platform: model.PlatformInstagram, Username: name,
		})
	}

	e := New(&stubAPI{profiles: profiles, posts: posts}, defaultGates())
	results := e.EvaluateBatch(context.Background(), candidates)

	if len(results) != len(candidates) {
		t.Fatalf("got %d results for %d candidates", len(results), len(candidates))
	}
	for i, res := range results {
		if res.Profile == nil || res.Profile.Username != names[i] {
			t.Fatalf("result %d is for %+v, want %s", i, res.Profile, names[i])
		}
	}
}
