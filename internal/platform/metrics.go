package platform

import (
	"sort"
	"time"

	"creatorsync/internal/model"
)

// CalculateEngagement derives engagement metrics from a profile and its
// recent posts. Pure computation, no I/O.
func CalculateEngagement(profile model.Profile, posts []model.Post) model.EngagementMetrics {
	m := model.EngagementMetrics{AudienceQuality: 50}
	if len(posts) == 0 || profile.FollowerCount <= 0 {
		return m
	}

	var likes, comments, interactions int64
	for _, p := range posts {
		likes += p.Likes
		comments += p.Comments
		interactions += p.Likes + p.Comments + p.Shares
	}
	n := float64(len(posts))

	m.AvgLikes = float64(likes) / n
	m.AvgComments = float64(comments) / n
	m.EngagementRate = float64(interactions) / n / float64(profile.FollowerCount) * 100
	m.PostsPerWeek = postsPerWeek(posts)
	m.AudienceQuality = audienceQuality(profile, m)
	return m
}

// postsPerWeek measures cadence over the observed posting span. A single
// post has no span and counts as one per week.
func postsPerWeek(posts []model.Post) float64 {
	if len(posts) < 2 {
		return float64(len(posts))
	}
	times := make([]time.Time, len(posts))
	for i, p := range posts {
		times[i] = p.PublishedAt
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	span := times[len(times)-1].Sub(times[0])
	if span <= 0 {
		return float64(len(posts))
	}
	weeks := span.Hours() / (24 * 7)
	if weeks < 1 {
		weeks = 1
	}
	return float64(len(posts)) / weeks
}

// audienceQuality is a 0-100 heuristic: healthy engagement ratios and a
// real comment presence raise it, inflated engagement lowers it.
func audienceQuality(profile model.Profile, m model.EngagementMetrics) float64 {
	quality := 50.0

	// Engagement in a plausible band is the strongest positive signal.
	switch {
	case m.EngagementRate >= 1 && m.EngagementRate <= 10:
		quality += m.EngagementRate * 3
	case m.EngagementRate > 10 && m.EngagementRate <= 20:
		quality += 25 // high but still believable
	case m.EngagementRate > 20:
		quality -= 20 // bot-like
	}

	// Comments are harder to fake than likes.
	if m.AvgLikes > 0 {
		commentRatio := m.AvgComments / m.AvgLikes
		if commentRatio > 0.02 {
			quality += 10
		}
	}

	if profile.Verified {
		quality += 10
	}

	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}
	return quality
}
