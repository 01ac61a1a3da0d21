// Package aggregate merges per-platform metrics into a normalized profile,
// a 0-100 composite score with tier, and narrative content insights.
package aggregate

import (
	"math"
	"sort"

	"creatorsync/internal/model"
)

// Platform baselines differ wildly: short-form video inflates raw
// engagement, text platforms depress it. Factors below pull every platform
// toward a comparable scale.
var engagementFactors = map[model.Platform]float64{
	model.PlatformTikTok:    0.7,
	model.PlatformInstagram: 1.0,
	model.PlatformYouTube:   1.1,
	model.PlatformTwitch:    1.2,
	model.PlatformTwitter:   1.3,
}

const (
	overlapPerPlatform = 0.10 // audience overlap grows with each platform
	overlapCap         = 0.25
	growthClamp        = 50 // percent, either direction
)

// Normalize folds per-platform snapshots into one cross-platform profile.
// Recomputed on every aggregation run; never persisted on its own.
func Normalize(snapshots []model.PlatformSnapshot) model.NormalizedMetrics {
	m := model.NormalizedMetrics{
		PlatformDistribution: make(map[model.Platform]float64),
	}
	if len(snapshots) == 0 {
		return m
	}

	var rawReach int64
	for _, s := range snapshots {
		rawReach += s.Profile.FollowerCount
	}

	// The same humans follow a creator on several platforms; discount the
	// summed follower counts by an overlap factor that grows with platform
	// count, capped at a 25% reduction.
	overlap := overlapPerPlatform * float64(len(snapshots)-1)
	if overlap > overlapCap {
		overlap = overlapCap
	}
	m.TotalReach = int64(float64(rawReach) * (1 - overlap))

	if rawReach > 0 {
		var weighted float64
		for _, s := range snapshots {
			factor, ok := engagementFactors[s.Platform]
			if !ok {
				factor = 1.0
			}
			weight := float64(s.Profile.FollowerCount) / float64(rawReach)
			weighted += s.Metrics.EngagementRate * factor * weight
			m.PlatformDistribution[s.Platform] = weight
		}
		m.AvgEngagementRate = weighted
	}

	var posts []model.Post
	for _, s := range snapshots {
		m.ContentFrequency += s.Metrics.PostsPerWeek
		posts = append(posts, s.Posts...)
	}
	m.ContentConsistency = postingConsistency(posts)
	m.AudienceQuality = audienceQuality(snapshots, rawReach)
	m.GrowthRate = growthRate(posts)
	return m
}

// postingConsistency inverts the coefficient of variation of posting
// intervals into a 0-1 score: perfectly regular cadence scores 1, chaotic
// bursts trend toward 0.
func postingConsistency(posts []model.Post) float64 {
	if len(posts) < 3 {
		return 0.5 // not enough signal either way
	}

	sorted := make([]model.Post, len(posts))
	copy(sorted, posts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.Before(sorted[j].PublishedAt)
	})

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, sorted[i].PublishedAt.Sub(sorted[i-1].PublishedAt).Hours())
	}

	var sum float64
	for _, iv := range intervals {
		sum += iv
	}
	mean := sum / float64(len(intervals))
	if mean <= 0 {
		return 0
	}

	var variance float64
	for _, iv := range intervals {
		variance += (iv - mean) * (iv - mean)
	}
	cv := math.Sqrt(variance/float64(len(intervals))) / mean

	consistency := 1 - cv/2
	if consistency < 0 {
		return 0
	}
	if consistency > 1 {
		return 1
	}
	return consistency
}

// audienceQuality is the follower-weighted average of per-platform audience
// quality, penalised when any platform shows bot-like engagement.
func audienceQuality(snapshots []model.PlatformSnapshot, rawReach int64) float64 {
	if rawReach <= 0 {
		return 0
	}

	var quality float64
	suspicious := false
	for _, s := range snapshots {
		weight := float64(s.Profile.FollowerCount) / float64(rawReach)
		quality += s.Metrics.AudienceQuality * weight
		if s.Metrics.EngagementRate > 20 {
			suspicious = true
		}
	}
	if suspicious {
		quality -= 15
	}
	if quality < 0 {
		return 0
	}
	if quality > 100 {
		return 100
	}
	return quality
}

// growthRate compares per-post engagement of the recent half of posts
// against the older half, as a percentage clamped to ±50.
func growthRate(posts []model.Post) float64 {
	if len(posts) < 4 {
		return 0
	}

	sorted := make([]model.Post, len(posts))
	copy(sorted, posts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.Before(sorted[j].PublishedAt)
	})

	mid := len(sorted) / 2
	older := avgInteractions(sorted[:mid])
	recent := avgInteractions(sorted[mid:])
	if older <= 0 {
		return 0
	}

	growth := (recent - older) / older * 100
	if growth > growthClamp {
		return growthClamp
	}
	if growth < -growthClamp {
		return -growthClamp
	}
	return growth
}

func avgInteractions(posts []model.Post) float64 {
	if len(posts) == 0 {
		return 0
	}
	var total int64
	for _, p := range posts {
		total += p.Likes + p.Comments + p.Shares
	}
	return float64(total) / float64(len(posts))
}
