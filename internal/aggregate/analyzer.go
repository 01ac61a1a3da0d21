package aggregate

import (
	"math"
	"sort"
	"strings"

	"creatorsync/internal/dedup"
	"creatorsync/internal/model"
)

// themeVocabulary maps a theme to the keywords that evidence it in captions
// and hashtags. Matching is case-insensitive substring, which is crude but
// holds up well on hashtag-heavy social text.
var themeVocabulary = map[string][]string{
	"fitness":   {"workout", "gym", "fitness", "training", "exercise", "muscle"},
	"beauty":    {"makeup", "skincare", "beauty", "cosmetic", "tutorial"},
	"gaming":    {"gaming", "gamer", "stream", "esports", "playthrough", "speedrun"},
	"food":      {"recipe", "cooking", "food", "foodie", "baking", "restaurant"},
	"travel":    {"travel", "wanderlust", "destination", "trip", "adventure"},
	"fashion":   {"fashion", "outfit", "style", "ootd", "streetwear"},
	"tech":      {"tech", "gadget", "unboxing", "review", "coding", "software"},
	"music":     {"music", "song", "album", "concert", "playlist", "cover"},
	"comedy":    {"comedy", "funny", "meme", "skit", "prank"},
	"education": {"learn", "howto", "tutorial", "explained", "course", "study"},
	"finance":   {"invest", "crypto", "stocks", "money", "budget", "finance"},
	"lifestyle": {"lifestyle", "vlog", "daily", "routine", "minimalism"},
}

// Value-per-post baselines by reach band, in USD. Adjusted by engagement
// and platform-count multipliers below.
var valueBands = []struct {
	reach int64
	base  float64
}{
	{1_000_000, 10_000},
	{500_000, 3_000},
	{100_000, 1_500},
	{50_000, 500},
	{10_000, 150},
	{0, 50},
}

const maxThemes = 5

// Analyze extracts themes, estimates audience overlap across platforms and
// produces a monetary value estimate with its own confidence.
func Analyze(snapshots []model.PlatformSnapshot, metrics model.NormalizedMetrics) model.ContentInsights {
	var posts []model.Post
	for _, s := range snapshots {
		posts = append(posts, s.Posts...)
	}

	return model.ContentInsights{
		Themes:          extractThemes(posts),
		AudienceOverlap: audienceOverlap(snapshots),
		EstimatedValue:  estimateValue(metrics, len(snapshots)),
		ValueConfidence: valueConfidence(len(posts), len(snapshots)),
	}
}

// extractThemes matches posts against the vocabulary, ranks themes by
// frequency weighted with the engagement of the posts that carried them,
// and returns the top entries.
func extractThemes(posts []model.Post) []model.Theme {
	if len(posts) == 0 {
		return nil
	}

	type themeStat struct {
		frequency  int
		engagement int64
	}
	stats := make(map[string]*themeStat)
	var totalEngagement int64

	for _, post := range posts {
		text := strings.ToLower(post.Caption + " " + strings.Join(post.Hashtags, " "))
		interactions := post.Likes + post.Comments + post.Shares
		totalEngagement += interactions

		for theme, keywords := range themeVocabulary {
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					st, ok := stats[theme]
					if !ok {
						st = &themeStat{}
						stats[theme] = st
					}
					st.frequency++
					st.engagement += interactions
					break // one hit per theme per post
				}
			}
		}
	}

	themes := make([]model.Theme, 0, len(stats))
	for name, st := range stats {
		relevance := float64(st.frequency) / float64(len(posts))
		if totalEngagement > 0 {
			// Themes that appear on the posts people actually engage with
			// matter more than filler hashtags.
			relevance = relevance*0.6 + float64(st.engagement)/float64(totalEngagement)*0.4
		}
		themes = append(themes, model.Theme{Name: name, Frequency: st.frequency, Relevance: relevance})
	}

	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Relevance != themes[j].Relevance {
			return themes[i].Relevance > themes[j].Relevance
		}
		return themes[i].Name < themes[j].Name
	})
	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}
	return themes
}

// audienceOverlap estimates how much of the audience is shared across
// platforms, from three weak signals: username consistency, cross-platform
// mentions in captions, and posting-time correlation.
func audienceOverlap(snapshots []model.PlatformSnapshot) float64 {
	if len(snapshots) < 2 {
		return 0
	}

	// Username consistency: same handle everywhere implies one audience
	// found the creator on every platform.
	var simSum float64
	var pairs int
	for i := 0; i < len(snapshots); i++ {
		for j := i + 1; j < len(snapshots); j++ {
			simSum += dedup.Similarity(snapshots[i].Profile.Username, snapshots[j].Profile.Username)
			pairs++
		}
	}
	usernameSignal := simSum / float64(pairs)

	// Cross-mentions: captions pointing followers at another platform.
	mentionSignal := 0.0
	for _, s := range snapshots {
		for _, other := range snapshots {
			if other.Platform == s.Platform {
				continue
			}
			for _, post := range s.Posts {
				if strings.Contains(strings.ToLower(post.Caption), string(other.Platform)) {
					mentionSignal = 1
					break
				}
			}
		}
	}

	// Posting-time correlation: creators posting at the same hour on every
	// platform are broadcasting to one audience.
	timeSignal := postingHourCorrelation(snapshots)

	overlap := usernameSignal*0.5 + mentionSignal*0.2 + timeSignal*0.3
	if overlap > 1 {
		return 1
	}
	return overlap
}

func postingHourCorrelation(snapshots []model.PlatformSnapshot) float64 {
	hours := make([]float64, 0, len(snapshots))
	for _, s := range snapshots {
		if len(s.Posts) == 0 {
			continue
		}
		var sum float64
		for _, p := range s.Posts {
			sum += float64(p.PublishedAt.UTC().Hour())
		}
		hours = append(hours, sum/float64(len(s.Posts)))
	}
	if len(hours) < 2 {
		return 0
	}

	var maxDiff float64
	for i := 1; i < len(hours); i++ {
		diff := math.Abs(hours[i] - hours[0])
		if diff > 12 { // wrap around midnight
			diff = 24 - diff
		}
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	return 1 - maxDiff/12
}

// estimateValue prices a sponsored post from the reach band, adjusted by
// engagement (0.5x-2x) and a platform-count multiplier.
func estimateValue(m model.NormalizedMetrics, platformCount int) float64 {
	var base float64
	for _, band := range valueBands {
		if m.TotalReach >= band.reach {
			base = band.base
			break
		}
	}

	engagementMult := m.AvgEngagementRate / 3 // 3% engagement is par
	if engagementMult < 0.5 {
		engagementMult = 0.5
	}
	if engagementMult > 2 {
		engagementMult = 2
	}

	platformMult := 1 + 0.1*float64(platformCount-1)

	return math.Round(base * engagementMult * platformMult)
}

func valueConfidence(postCount, platformCount int) float64 {
	c := 0.9
	if postCount < 10 {
		c -= 0.3
	}
	if platformCount <= 1 {
		c -= 0.2
	}
	if c < 0.1 {
		return 0.1
	}
	return c
}
