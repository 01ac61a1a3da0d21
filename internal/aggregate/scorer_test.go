package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"creatorsync/internal/model"
)

func TestScoreSumsToBoundedOverall(t *testing.T) {
	best := model.NormalizedMetrics{
		TotalReach:         2_000_000,
		AvgEngagementRate:  10,
		ContentConsistency: 1,
		AudienceQuality:    100,
		GrowthRate:         50,
	}
	score := Score(best, 60, 3)
	assert.InDelta(t, 100.0, score.Overall, 0.001)
	assert.Equal(t, model.TierPlatinum, score.Tier)

	worst := Score(model.NormalizedMetrics{GrowthRate: -50}, 0, 0)
	assert.GreaterOrEqual(t, worst.Overall, 0.0)
	assert.LessOrEqual(t, worst.Overall, 100.0)
	assert.Equal(t, model.TierEmerging, worst.Tier)
}

// Tier assignment requires both score and, for the upper tiers, real reach.
func TestTierGates(t *testing.T) {
	cases := []struct {
		score float64
		reach int64
		want  model.Tier
	}{
		{90, 150_000, model.TierPlatinum},
		{90, 20_000, model.TierGold}, // high score alone does not reach platinum
		{70, 0, model.TierGold},
		{66, 60_000, model.TierGold},
		{66, 10_000, model.TierSilver},
		{52, 12_000, model.TierSilver},
		{52, 2_000, model.TierBronze},
		{37, 6_000, model.TierBronze},
		{37, 1_000, model.TierEmerging},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tierFor(tc.score, tc.reach),
			"score %.0f reach %d", tc.score, tc.reach)
	}
}

// For a fixed reach, raising the score never lowers the tier.
func TestTierMonotonicInScore(t *testing.T) {
	rank := map[model.Tier]int{
		model.TierEmerging: 0,
		model.TierBronze:   1,
		model.TierSilver:   2,
		model.TierGold:     3,
		model.TierPlatinum: 4,
	}
	for _, reach := range []int64{0, 5_000, 10_000, 50_000, 100_000, 1_000_000} {
		prev := 0
		for score := 0.0; score <= 100; score++ {
			r := rank[tierFor(score, reach)]
			assert.GreaterOrEqual(t, r, prev, "reach %d score %.0f", reach, score)
			prev = r
		}
	}
}

func TestReachPointsLogScale(t *testing.T) {
	assert.Zero(t, reachPoints(1000))
	assert.InDelta(t, 12.5, reachPoints(31_623), 0.1) // 10^4.5, the midpoint
	assert.InDelta(t, 25.0, reachPoints(1_000_000), 0.001)
	assert.InDelta(t, 25.0, reachPoints(50_000_000), 0.001) // capped
}

func TestConfidenceShrinksWithThinEvidence(t *testing.T) {
	assert.InDelta(t, 1.0, confidence(30, 3), 0.001)
	assert.InDelta(t, 0.8, confidence(7, 2), 0.001)  // few posts
	assert.InDelta(t, 0.8, confidence(30, 1), 0.001) // single platform
	assert.InDelta(t, 0.5, confidence(3, 1), 0.001)  // both
}
