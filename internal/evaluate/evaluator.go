// Package evaluate scores freshly discovered candidates against minimum
// quality gates and recommends whether to add, monitor or reject them.
package evaluate

import (
	"context"
	"fmt"
	"log"
	"sync"

	"creatorsync/internal/model"
	"creatorsync/internal/platform"
)

const (
	defaultBatchSize = 5
	recentPostLimit  = 30

	// Suspicious-pattern gates.
	maxBelievableEngagement = 20.0   // percent
	bigAccountFollowers     = 50_000 // big accounts with dead engagement
	bigAccountMinEngagement = 0.5
	ghostAccountFollowers   = 10_000 // accounts that never post

	fallbackAudienceQuality = 50
)

// Recommendation is the evaluator's verdict on a candidate.
type Recommendation string

const (
	RecommendAdd     Recommendation = "add"
	RecommendMonitor Recommendation = "monitor"
	RecommendReject  Recommendation = "reject"
)

// Result is produced once per candidate and drives the persistence decision.
type Result struct {
	QualityScore   float64                 `json:"qualityScore"` // 0-100
	Profile        *model.Profile          `json:"profile,omitempty"`
	Metrics        model.EngagementMetrics `json:"metrics"`
	Recommendation Recommendation          `json:"recommendation"`
	Reasons        []string                `json:"reasons"`
}

// Thresholds are the configured quality gates.
type Thresholds struct {
	MinFollowers   int64
	MaxFollowers   int64
	MinEngagement  float64 // percent
	ScoreThreshold float64 // add if quality score reaches this; default 60
}

// Evaluator fetches live metrics through the platform collaborator and
// applies the gates. Fetch failures fall back to discovery hints; internal
// failures convert to a reject with a diagnostic reason rather than
// propagating, so one bad candidate never sinks a batch.
type Evaluator struct {
	api       platform.API
	gates     Thresholds
	batchSize int
}

// New builds an Evaluator. Zero threshold fields get sane defaults.
func New(api platform.API, gates Thresholds) *Evaluator {
	if gates.MinFollowers <= 0 {
		gates.MinFollowers = 1000
	}
	if gates.MaxFollowers <= 0 {
		gates.MaxFollowers = 10_000_000
	}
	if gates.MinEngagement <= 0 {
		gates.MinEngagement = 1.0
	}
	if gates.ScoreThreshold <= 0 {
		gates.ScoreThreshold = 60
	}
	return &Evaluator{api: api, gates: gates, batchSize: defaultBatchSize}
}

// Evaluate scores one candidate.
func (e *Evaluator) Evaluate(ctx context.Context, candidate model.DiscoveryCandidate) Result {
	profile, metrics, fetchReason := e.fetchMetrics(ctx, candidate)
	fromHints := fetchReason != ""

	result := Result{Profile: profile, Metrics: metrics}
	if fromHints {
		result.Reasons = append(result.Reasons, fetchReason)
	}

	// Hard gates first; a rejected candidate keeps a zero quality score.
	if reason := e.hardReject(profile, metrics, fromHints); reason != "" {
		result.Recommendation = RecommendReject
		result.Reasons = append(result.Reasons, reason)
		return result
	}

	result.QualityScore = e.qualityScore(profile, metrics, candidate.Source)
	result.Recommendation, result.Reasons = e.recommend(result.QualityScore, profile, metrics, result.Reasons)
	return result
}

// fetchMetrics loads live profile and engagement data, falling back to the
// candidate's discovery hints when the platform API fails.
func (e *Evaluator) fetchMetrics(ctx context.Context, candidate model.DiscoveryCandidate) (*model.Profile, model.EngagementMetrics, string) {
	profile, err := e.api.GetProfile(ctx, candidate.Platform, candidate.Username)
	if err == nil {
		posts, postsErr := e.api.GetRecentPosts(ctx, candidate.Platform, candidate.Username, recentPostLimit)
		if postsErr != nil {
			log.Printf("[evaluate] recent posts for %s@%s failed: %v", candidate.Username, candidate.Platform, postsErr)
			posts = nil
		}
		return profile, platform.CalculateEngagement(*profile, posts), ""
	}

	log.Printf("[evaluate] profile fetch for %s@%s failed, using discovery hints: %v",
		candidate.Username, candidate.Platform, err)

	fallback := &model.Profile{
		Username:      candidate.Username,
		Platform:      candidate.Platform,
		FollowerCount: candidate.FollowerHint,
	}
	metrics := model.EngagementMetrics{
		EngagementRate:  candidate.EngagementHint,
		AudienceQuality: fallbackAudienceQuality,
	}
	return fallback, metrics, "live metrics unavailable, evaluated from discovery hints"
}

// hardReject returns a non-empty reason when a candidate fails an outright
// gate: follower bounds, engagement floor, or suspicious patterns. fromHints
// disables the zero-posts gate, since hint data carries no post count.
func (e *Evaluator) hardReject(profile *model.Profile, m model.EngagementMetrics, fromHints bool) string {
	if profile.FollowerCount < e.gates.MinFollowers {
		return fmt.Sprintf("follower count %d below minimum %d", profile.FollowerCount, e.gates.MinFollowers)
	}
	if profile.FollowerCount > e.gates.MaxFollowers {
		return fmt.Sprintf("follower count %d above maximum %d", profile.FollowerCount, e.gates.MaxFollowers)
	}
	if m.EngagementRate < e.gates.MinEngagement {
		return fmt.Sprintf("engagement rate %.2f%% below minimum %.2f%%", m.EngagementRate, e.gates.MinEngagement)
	}

	switch {
	case m.EngagementRate > maxBelievableEngagement:
		return fmt.Sprintf("engagement rate %.2f%% exceeds %.0f%%, likely inauthentic", m.EngagementRate, maxBelievableEngagement)
	case profile.FollowerCount > bigAccountFollowers && m.EngagementRate < bigAccountMinEngagement:
		return fmt.Sprintf("%d followers with %.2f%% engagement suggests purchased audience", profile.FollowerCount, m.EngagementRate)
	case !fromHints && profile.PostCount == 0 && profile.FollowerCount > ghostAccountFollowers:
		return fmt.Sprintf("no posting activity with %d followers", profile.FollowerCount)
	}
	return ""
}

// qualityScore maps metrics to the 0-100 weighted sum: engagement ≤35,
// audience quality ≤25, consistency ≤20, follower tier ≤10, source ≤10.
func (e *Evaluator) qualityScore(profile *model.Profile, m model.EngagementMetrics, source model.DiscoverySource) float64 {
	// Engagement: linear up to 10%, then capped.
	er := m.EngagementRate
	if er > 10 {
		er = 10
	}
	score := er / 10 * 35

	score += m.AudienceQuality / 100 * 25

	// Consistency: posts per week, capped at a daily cadence.
	ppw := m.PostsPerWeek
	if ppw > 7 {
		ppw = 7
	}
	score += ppw / 7 * 20

	score += followerTierPoints(profile.FollowerCount)
	score += sourceBonus(source)

	if score > 100 {
		score = 100
	}
	return score
}

func followerTierPoints(followers int64) float64 {
	switch {
	case followers >= 1_000_000:
		return 10
	case followers >= 100_000:
		return 8
	case followers >= 50_000:
		return 6
	case followers >= 10_000:
		return 4
	case followers >= 5_000:
		return 2
	}
	return 0
}

// sourceBonus rewards discovery channels by how well they historically
// convert: trending > recommendation > category > search.
func sourceBonus(source model.DiscoverySource) float64 {
	switch source {
	case model.SourceTrending:
		return 10
	case model.SourceRecommendation:
		return 8
	case model.SourceCategory:
		return 6
	case model.SourceSearch:
		return 4
	}
	return 0
}

func (e *Evaluator) recommend(score float64, profile *model.Profile, m model.EngagementMetrics, reasons []string) (Recommendation, []string) {
	threshold := e.gates.ScoreThreshold
	switch {
	case score >= threshold:
		reasons = append(reasons, fmt.Sprintf("quality score %.1f meets threshold %.1f", score, threshold))
		return RecommendAdd, reasons
	case score >= threshold*0.8 && m.EngagementRate > 3 && profile.FollowerCount < bigAccountFollowers:
		reasons = append(reasons, fmt.Sprintf("quality score %.1f near threshold with strong engagement on a growing account", score))
		return RecommendMonitor, reasons
	default:
		reasons = append(reasons, fmt.Sprintf("quality score %.1f below threshold %.1f", score, threshold))
		return RecommendReject, reasons
	}
}

// EvaluateBatch processes candidates in fixed-size concurrent batches to
// bound outbound API concurrency. Results come back in input order.
func (e *Evaluator) EvaluateBatch(ctx context.Context, candidates []model.DiscoveryCandidate) []Result {
	results := make([]Result, len(candidates))

	for start := 0; start < len(candidates); start += e.batchSize {
		end := start + e.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = e.Evaluate(ctx, candidates[i])
			}(i)
		}
		wg.Wait()
	}
	return results
}
