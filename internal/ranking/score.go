package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/startlinker/rankfeed/pkg/config"
)

// Weights holds the scoring formula constants. The recency half-life and
// the trending window are different horizons on purpose: recency rewards
// "still relevant", trending rewards "currently active".
type Weights struct {
	Like     float64
	Comment  float64
	Share    float64
	Bookmark float64
	View     float64

	RecencyHalfLifeHours float64
	RecencyCutoffHours   float64
	RecencyFloor         float64
	TrendingWindowHours  float64

	EngagementFactor float64
	RecencyFactor    float64
	QualityFactor    float64
	ReputationFactor float64
	TrendingFactor   float64

	FollowBonus float64
}

// DefaultWeights returns the production formula constants
func DefaultWeights() Weights {
	return Weights{
		Like:     1.0,
		Comment:  3.0,
		Share:    5.0,
		Bookmark: 2.0,
		View:     0.01,

		RecencyHalfLifeHours: 24,
		RecencyCutoffHours:   120,
		RecencyFloor:         0.01,
		TrendingWindowHours:  48,

		EngagementFactor: 1.0,
		RecencyFactor:    0.5,
		QualityFactor:    0.3,
		ReputationFactor: 0.2,
		TrendingFactor:   0.8,

		FollowBonus: 10.0,
	}
}

// WeightsFromConfig builds Weights from the ranking configuration
func WeightsFromConfig(cfg *config.RankingConfig) Weights {
	return Weights{
		Like:     cfg.LikeWeight,
		Comment:  cfg.CommentWeight,
		Share:    cfg.ShareWeight,
		Bookmark: cfg.BookmarkWeight,
		View:     cfg.ViewWeight,

		RecencyHalfLifeHours: cfg.RecencyHalfLifeHours,
		RecencyCutoffHours:   cfg.RecencyCutoffHours,
		RecencyFloor:         cfg.RecencyFloor,
		TrendingWindowHours:  cfg.TrendingWindowHours,

		EngagementFactor: cfg.EngagementFactor,
		RecencyFactor:    cfg.RecencyFactor,
		QualityFactor:    cfg.QualityFactor,
		ReputationFactor: cfg.ReputationFactor,
		TrendingFactor:   cfg.TrendingFactor,

		FollowBonus: cfg.FollowBonus,
	}
}

// neutralReputation is used when an author's reputation is unavailable
const neutralReputation = 0.5

// Counters holds a post's engagement counters
type Counters struct {
	Likes     int64
	Comments  int64
	Shares    int64
	Bookmarks int64
	Views     int64
}

// Input is one post's scoring input. Reputation is the author's 0-100
// score, nil when unavailable.
type Input struct {
	PostID    int64
	AuthorID  int64
	CreatedAt time.Time
	Counters  Counters

	Reputation          *float64
	ViewerFollowsAuthor bool
}

// Breakdown holds the component scores and composite total for one post
type Breakdown struct {
	PostID      int64     `json:"post_id"`
	CreatedAt   time.Time `json:"created_at"`
	Engagement  float64   `json:"engagement"`
	Recency     float64   `json:"recency"`
	Quality     float64   `json:"quality"`
	Reputation  float64   `json:"reputation"`
	Trending    float64   `json:"trending"`
	FollowBonus float64   `json:"follow_bonus"`
	Total       float64   `json:"total"`
}

// Engagement computes the weighted interaction sum
func (w Weights) Engagement(c Counters) float64 {
	return float64(c.Likes)*w.Like +
		float64(c.Comments)*w.Comment +
		float64(c.Shares)*w.Share +
		float64(c.Bookmarks)*w.Bookmark +
		float64(c.Views)*w.View
}

// Recency computes the exponential age decay. Past the cutoff it returns
// the floor value so arbitrarily old posts never score exactly zero and
// stay sortable.
func (w Weights) Recency(hoursSince float64) float64 {
	if hoursSince < 0 {
		hoursSince = 0
	}
	if hoursSince > w.RecencyCutoffHours {
		return w.RecencyFloor
	}
	return math.Exp2(-hoursSince / w.RecencyHalfLifeHours)
}

// Quality approximates the fraction of viewers who engaged. Zero when the
// post has no views. Clamped to [0, 1]: inconsistent counters could push
// likes + 2*comments above views, and an unbounded quality term would let
// a single manipulated post dominate the composite.
func (w Weights) Quality(c Counters) float64 {
	if c.Views <= 0 {
		return 0
	}
	q := float64(c.Likes+c.Comments*2) / float64(c.Views)
	if q > 1 {
		return 1
	}
	return q
}

// Trending rewards recent activity only: engagement * recency inside the
// trending window, zero outside it.
func (w Weights) Trending(engagement, recency, hoursSince float64) float64 {
	if hoursSince > w.TrendingWindowHours {
		return 0
	}
	return engagement * recency
}

// NormalizeReputation maps a 0-100 reputation to [0, 1], substituting the
// neutral default when unavailable
func NormalizeReputation(reputation *float64) float64 {
	if reputation == nil {
		return neutralReputation
	}
	return *reputation / 100.0
}

// Score computes the full breakdown for one post at the given time
func (w Weights) Score(in Input, now time.Time) Breakdown {
	hoursSince := now.Sub(in.CreatedAt).Hours()
	if hoursSince < 0 {
		hoursSince = 0
	}

	engagement := w.Engagement(in.Counters)
	recency := w.Recency(hoursSince)
	quality := w.Quality(in.Counters)
	reputation := NormalizeReputation(in.Reputation)
	trending := w.Trending(engagement, recency, hoursSince)

	followBonus := 0.0
	if in.ViewerFollowsAuthor {
		followBonus = w.FollowBonus
	}

	total := followBonus +
		engagement*w.EngagementFactor +
		recency*w.RecencyFactor +
		quality*w.QualityFactor +
		reputation*w.ReputationFactor +
		trending*w.TrendingFactor

	return Breakdown{
		PostID:      in.PostID,
		CreatedAt:   in.CreatedAt,
		Engagement:  engagement,
		Recency:     recency,
		Quality:     quality,
		Reputation:  reputation,
		Trending:    trending,
		FollowBonus: followBonus,
		Total:       total,
	}
}

// ScoreAll scores a batch of posts against the same clock
func (w Weights) ScoreAll(inputs []Input, now time.Time) []Breakdown {
	out := make([]Breakdown, len(inputs))
	for i, in := range inputs {
		out[i] = w.Score(in, now)
	}
	return out
}

// Sort orders breakdowns by total descending, ties broken by newest
// created_at, then by post id for determinism
func Sort(breakdowns []Breakdown) {
	sort.SliceStable(breakdowns, func(i, j int) bool {
		if breakdowns[i].Total != breakdowns[j].Total {
			return breakdowns[i].Total > breakdowns[j].Total
		}
		if !breakdowns[i].CreatedAt.Equal(breakdowns[j].CreatedAt) {
			return breakdowns[i].CreatedAt.After(breakdowns[j].CreatedAt)
		}
		return breakdowns[i].PostID < breakdowns[j].PostID
	})
}

// Page applies offset/limit to an already sorted slice
func Page(breakdowns []Breakdown, limit, offset int) []Breakdown {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(breakdowns) {
		return []Breakdown{}
	}
	end := offset + limit
	if limit <= 0 || end > len(breakdowns) {
		end = len(breakdowns)
	}
	return breakdowns[offset:end]
}
