package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creatorsync/internal/model"
)

func TestExtractThemesRanksDominantTheme(t *testing.T) {
	at := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	posts := []model.Post{
		{Caption: "leg day workout", Likes: 900, PublishedAt: at},
		{Caption: "new gym routine", Hashtags: []string{"fitness"}, Likes: 800, PublishedAt: at},
		{Caption: "post-training meal", Likes: 700, PublishedAt: at},
		{Caption: "my favorite pasta recipe", Likes: 100, PublishedAt: at},
	}

	themes := extractThemes(posts)
	require.NotEmpty(t, themes)
	assert.Equal(t, "fitness", themes[0].Name)
	assert.Equal(t, 3, themes[0].Frequency)
	assert.LessOrEqual(t, len(themes), maxThemes)
	for _, th := range themes {
		assert.Greater(t, th.Relevance, 0.0)
		assert.LessOrEqual(t, th.Relevance, 1.0)
	}
}

func TestExtractThemesEmptyPosts(t *testing.T) {
	assert.Nil(t, extractThemes(nil))
}

// Identical handles posting at the same hour imply one shared audience.
func TestAudienceOverlapSignals(t *testing.T) {
	at := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	same := []model.PlatformSnapshot{
		{
			Platform: model.PlatformInstagram,
			Profile:  model.Profile{Username: "alice"},
			Posts:    []model.Post{{PublishedAt: at}},
		},
		{
			Platform: model.PlatformYouTube,
			Profile:  model.Profile{Username: "alice"},
			Posts:    []model.Post{{PublishedAt: at}},
		},
	}
	// Username similarity 1.0 and perfect hour correlation, no cross
	// mentions: 0.5 + 0.3.
	assert.InDelta(t, 0.8, audienceOverlap(same), 0.001)

	// A caption pointing followers at the other platform adds the mention
	// signal.
	same[0].Posts[0].Caption = "full video on youtube tonight"
	assert.InDelta(t, 1.0, audienceOverlap(same), 0.001)

	assert.Zero(t, audienceOverlap(same[:1]))
}

func TestEstimateValueAppliesMultipliers(t *testing.T) {
	m := model.NormalizedMetrics{TotalReach: 120_000, AvgEngagementRate: 3}
	// 100K band at par engagement across two platforms: 1500 * 1.0 * 1.1.
	assert.InDelta(t, 1650.0, estimateValue(m, 2), 0.001)

	// Engagement multiplier is clamped to 2x.
	hot := model.NormalizedMetrics{TotalReach: 120_000, AvgEngagementRate: 12}
	assert.InDelta(t, 3000.0, estimateValue(hot, 1), 0.001)
}
