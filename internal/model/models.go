// Package model defines shared data structures for the creator sync service.
package model

import "time"

// Platform identifies an external social platform a creator publishes on.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitter   Platform = "twitter"
	PlatformTwitch    Platform = "twitch"
)

// DiscoverySource names the mechanism that surfaced a candidate.
type DiscoverySource string

const (
	SourceTrending       DiscoverySource = "trending"
	SourceCategory       DiscoverySource = "category"
	SourceSearch         DiscoverySource = "search"
	SourceRecommendation DiscoverySource = "recommendation"
)

// DiscoveryCandidate is an unvalidated creator reference surfaced by the
// discovery source. Transient: consumed by dedup and evaluation, never
// persisted directly.
type DiscoveryCandidate struct {
	Platform       Platform        `json:"platform"`
	Username       string          `json:"username"`
	Source         DiscoverySource `json:"source"`
	FollowerHint   int64           `json:"followerHint,omitempty"`
	EngagementHint float64         `json:"engagementHint,omitempty"`
	Topic          string          `json:"topic,omitempty"`
}

// Profile is a live platform profile snapshot fetched from the platform API.
type Profile struct {
	Username      string   `json:"username"`
	DisplayName   string   `json:"displayName,omitempty"`
	Platform      Platform `json:"platform"`
	FollowerCount int64    `json:"followerCount"`
	PostCount     int      `json:"postCount"`
	Bio           string   `json:"bio,omitempty"`
	Verified      bool     `json:"verified"`
}

// Post is a single published item used for engagement and content analysis.
type Post struct {
	ID          string    `json:"id"`
	Caption     string    `json:"caption"`
	Hashtags    []string  `json:"hashtags,omitempty"`
	Likes       int64     `json:"likes"`
	Comments    int64     `json:"comments"`
	Shares      int64     `json:"shares"`
	PublishedAt time.Time `json:"publishedAt"`
}

// EngagementMetrics summarises recent-post performance on one platform.
// EngagementRate is a percentage: 3.2 means 3.2%.
type EngagementMetrics struct {
	EngagementRate  float64 `json:"engagementRate"`
	AvgLikes        float64 `json:"avgLikes"`
	AvgComments     float64 `json:"avgComments"`
	PostsPerWeek    float64 `json:"postsPerWeek"`
	AudienceQuality float64 `json:"audienceQuality"` // 0-100
}

// PlatformSnapshot bundles everything fetched from one platform during an
// aggregation run.
type PlatformSnapshot struct {
	Platform Platform
	Profile  Profile
	Posts    []Post
	Metrics  EngagementMetrics
}

// CreatorRecord is the persisted creator row. Created on evaluator accept,
// mutated by aggregation and sync, deleted only through duplicate merge.
type CreatorRecord struct {
	ID             string          `json:"id"`
	Platform       Platform        `json:"platform"`
	Username       string          `json:"username"`
	FollowerCount  int64           `json:"followerCount"`
	EngagementRate float64         `json:"engagementRate"`
	ProfileData    Profile         `json:"profileData"`
	// Profiles maps every platform this creator is known on to the username
	// there. Seeded with the primary platform at insert; grown by duplicate
	// merges. Aggregation iterates this map.
	Profiles   map[Platform]string `json:"profiles"`
	Aggregated *AggregatedData     `json:"aggregatedData,omitempty"`
	LastSync   *time.Time          `json:"lastSync,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// NormalizedMetrics is the cross-platform profile recomputed on every
// aggregation run. Only the latest snapshot survives, inside AggregatedData.
type NormalizedMetrics struct {
	TotalReach           int64                `json:"totalReach"`
	AvgEngagementRate    float64              `json:"avgEngagementRate"`
	ContentFrequency     float64              `json:"contentFrequency"`   // posts/week
	ContentConsistency   float64              `json:"contentConsistency"` // 0-1
	AudienceQuality      float64              `json:"audienceQuality"`    // 0-100
	GrowthRate           float64              `json:"growthRate"`         // percent, clamped to ±50
	PlatformDistribution map[Platform]float64 `json:"platformDistribution"`
}

// Tier is the discrete quality classification assigned from composite score
// and reach.
type Tier string

const (
	TierPlatinum Tier = "platinum"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierBronze   Tier = "bronze"
	TierEmerging Tier = "emerging"
)

// ScoreBreakdown carries the weighted components of the composite score.
// Invariant: the overall score is the exact sum of these fields.
type ScoreBreakdown struct {
	Reach           float64 `json:"reach"`           // 0-25
	Engagement      float64 `json:"engagement"`      // 0-25
	Consistency     float64 `json:"consistency"`     // 0-20
	AudienceQuality float64 `json:"audienceQuality"` // 0-20
	Growth          float64 `json:"growth"`          // 0-10
}

// CompositeScore is the 0-100 weighted aggregate with tier and confidence.
type CompositeScore struct {
	Overall    float64        `json:"overall"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	Tier       Tier           `json:"tier"`
	Confidence float64        `json:"confidence"` // 0.3-1
}

// Theme is a ranked content theme extracted from recent posts.
type Theme struct {
	Name      string  `json:"name"`
	Frequency int     `json:"frequency"`
	Relevance float64 `json:"relevance"`
}

// ContentInsights is the narrative output of the content analyzer.
type ContentInsights struct {
	Themes          []Theme `json:"themes"`
	AudienceOverlap float64 `json:"audienceOverlap"` // 0-1, across platforms
	EstimatedValue  float64 `json:"estimatedValue"`  // USD per sponsored post
	ValueConfidence float64 `json:"valueConfidence"` // 0-1
}

// AggregatedData is what the aggregation engine writes back onto the
// creator record.
type AggregatedData struct {
	Metrics      NormalizedMetrics `json:"metrics"`
	Score        CompositeScore    `json:"score"`
	Insights     ContentInsights   `json:"insights"`
	Platforms    []Platform        `json:"platforms"`
	AggregatedAt time.Time         `json:"aggregatedAt"`
}

// SyncPriority orders creators for resync; lower value = more urgent.
type SyncPriority int

const (
	SyncHigh   SyncPriority = 1
	SyncNormal SyncPriority = 2
	SyncLow    SyncPriority = 3
)

// SyncSchedule records when a creator should next be synced. One per
// creator, recreated each time a sync completes.
type SyncSchedule struct {
	CreatorID     string       `json:"creatorId"`
	Priority      SyncPriority `json:"priority"`
	NextSyncAt    time.Time    `json:"nextSyncAt"`
	IntervalHours int          `json:"intervalHours"`
}
