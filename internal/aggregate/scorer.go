package aggregate

import (
	"math"

	"creatorsync/internal/model"
)

// Breakdown weights. The overall score is the exact sum of the five
// components, so it stays in [0,100] by construction.
const (
	reachWeight       = 25.0
	engagementWeight  = 25.0
	consistencyWeight = 20.0
	audienceWeight    = 20.0
	growthWeight      = 10.0

	minConfidence = 0.3
)

// Score maps normalized metrics to the weighted breakdown, assigns a tier
// from score-AND-reach thresholds, and attaches a confidence that shrinks
// with thin evidence (few posts, single platform).
func Score(m model.NormalizedMetrics, postCount, platformCount int) model.CompositeScore {
	b := model.ScoreBreakdown{
		Reach:           reachPoints(m.TotalReach),
		Engagement:      engagementPoints(m.AvgEngagementRate),
		Consistency:     m.ContentConsistency * consistencyWeight,
		AudienceQuality: m.AudienceQuality / 100 * audienceWeight,
		Growth:          growthPoints(m.GrowthRate),
	}

	overall := b.Reach + b.Engagement + b.Consistency + b.AudienceQuality + b.Growth

	return model.CompositeScore{
		Overall:    overall,
		Breakdown:  b,
		Tier:       tierFor(overall, m.TotalReach),
		Confidence: confidence(postCount, platformCount),
	}
}

// reachPoints scales logarithmically: 1K followers is the floor, 1M the
// ceiling. Linear scaling would let mega-accounts drown every other signal.
func reachPoints(reach int64) float64 {
	if reach <= 1000 {
		return 0
	}
	points := (math.Log10(float64(reach)) - 3) / 3 * reachWeight
	if points > reachWeight {
		return reachWeight
	}
	if points < 0 {
		return 0
	}
	return points
}

// engagementPoints is linear in the normalized rate, saturating at 10%.
func engagementPoints(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	if rate > 10 {
		rate = 10
	}
	return rate / 10 * engagementWeight
}

// growthPoints maps the ±50% clamped growth rate onto [0,10], with flat
// growth landing in the middle.
func growthPoints(growth float64) float64 {
	return (growth + growthClamp) / (2 * growthClamp) * growthWeight
}

// tierFor assigns the discrete tier. Each tier needs either a clear score
// or a slightly lower score backed by real reach; Platinum demands both.
func tierFor(score float64, reach int64) model.Tier {
	switch {
	case score >= 85 && reach >= 100_000:
		return model.TierPlatinum
	case score >= 70 || (score >= 65 && reach >= 50_000):
		return model.TierGold
	case score >= 55 || (score >= 50 && reach >= 10_000):
		return model.TierSilver
	case score >= 40 || (score >= 35 && reach >= 5_000):
		return model.TierBronze
	default:
		return model.TierEmerging
	}
}

// confidence lands in [0.3,1]: thin post history and single-platform
// presence both reduce trust in the composite.
func confidence(postCount, platformCount int) float64 {
	c := 1.0
	if postCount < 10 {
		c -= 0.2
	}
	if postCount < 5 {
		c -= 0.1
	}
	if platformCount <= 1 {
		c -= 0.2
	}
	if c < minConfidence {
		return minConfidence
	}
	return c
}
