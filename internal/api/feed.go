package api

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/startlinker/rankfeed/internal/db"
	"github.com/startlinker/rankfeed/internal/feed"
	"github.com/startlinker/rankfeed/internal/scorer"
)

// FeedAPI provides the ranked feed JSON-RPC methods
type FeedAPI struct {
	ranker *feed.Ranker
	scores *db.RankingScoreRepository
	scorer *scorer.Scorer
}

// NewFeedAPI creates a new feed API
func NewFeedAPI(ranker *feed.Ranker, repo *db.Repository, batchScorer *scorer.Scorer) *FeedAPI {
	return &FeedAPI{
		ranker: ranker,
		scores: db.NewRankingScoreRepository(repo),
		scorer: batchScorer,
	}
}

// parseRankedParams extracts the paging parameters for
// feed.get_ranked_posts. Every parameter is optional: absent params are
// the anonymous first page.
func parseRankedParams(params json.RawMessage) (viewerID int64, limit, offset int, err error) {
	if len(params) == 0 {
		return 0, 0, 0, nil
	}

	var pMap map[string]interface{}
	if err := json.Unmarshal(params, &pMap); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid parameters format")
	}

	if v, ok := pMap["viewer_id"].(float64); ok {
		viewerID = int64(v)
	}
	if l, ok := pMap["limit"].(float64); ok {
		if l < 0 {
			return 0, 0, 0, fmt.Errorf("limit must not be negative")
		}
		limit = int(l)
	}
	if o, ok := pMap["offset"].(float64); ok {
		if o < 0 {
			return 0, 0, 0, fmt.Errorf("offset must not be negative")
		}
		offset = int(o)
	}
	return viewerID, limit, offset, nil
}

// parsePostID extracts the required post_id parameter
func parsePostID(params json.RawMessage) (int64, error) {
	if len(params) == 0 {
		return 0, fmt.Errorf("missing required parameter: post_id")
	}

	var pMap map[string]interface{}
	if err := json.Unmarshal(params, &pMap); err != nil {
		return 0, fmt.Errorf("invalid parameters format")
	}

	id, ok := pMap["post_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("missing required parameter: post_id")
	}
	return int64(id), nil
}

// GetRankedPosts handles feed.get_ranked_posts
func (f *FeedAPI) GetRankedPosts(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	viewerID, limit, offset, err := parseRankedParams(params)
	if err != nil {
		return nil, err
	}

	return f.ranker.GetRankedPosts(ctx.Request.Context(), viewerID, limit, offset)
}

// GetPostScore handles feed.get_post_score
func (f *FeedAPI) GetPostScore(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	id, err := parsePostID(params)
	if err != nil {
		return nil, err
	}

	score, err := f.scores.GetByPostID(ctx.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if score == nil {
		// Never scored
		return nil, nil
	}

	return map[string]interface{}{
		"post_id":    score.PostID,
		"engagement": score.Engagement,
		"recency":    score.Recency,
		"quality":    score.Quality,
		"reputation": score.Reputation,
		"trending":   score.Trending,
		"total":      score.Total,
		"scored_at":  score.ScoredAt,
	}, nil
}

// Rescore handles feed.rescore, running one batch pass inline. Operational
// hook; the interval job in cmd/scorer uses the same code path.
func (f *FeedAPI) Rescore(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	force := false
	if len(params) > 0 {
		var pMap map[string]interface{}
		if err := json.Unmarshal(params, &pMap); err != nil {
			return nil, fmt.Errorf("invalid parameters format")
		}
		if fv, ok := pMap["force"].(bool); ok {
			force = fv
		}
	}

	summary, err := f.scorer.RunOnce(ctx.Request.Context(), force)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
