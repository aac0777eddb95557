package feed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/startlinker/rankfeed/internal/cache"
	"github.com/startlinker/rankfeed/internal/db"
	"github.com/startlinker/rankfeed/internal/models"
	"github.com/startlinker/rankfeed/internal/ranking"
	"github.com/startlinker/rankfeed/pkg/config"
	"github.com/startlinker/rankfeed/pkg/logging"
)

const defaultLimit = 20

// RankedPost is one feed entry: the post's public fields plus its score
// breakdown. Fallback entries carry a zero breakdown.
type RankedPost struct {
	PostID        int64             `json:"post_id"`
	AuthorID      int64             `json:"author_id"`
	CreatedAt     time.Time         `json:"created_at"`
	LikeCount     int64             `json:"like_count"`
	CommentCount  int64             `json:"comment_count"`
	ShareCount    int64             `json:"share_count"`
	BookmarkCount int64             `json:"bookmark_count"`
	ViewCount     int64             `json:"view_count"`
	Score         ranking.Breakdown `json:"score"`
}

// postStore loads feed candidates, ranked-path and fallback-path
type postStore interface {
	ListApproved(ctx context.Context) ([]*models.Post, error)
	ListApprovedByCreated(ctx context.Context, limit, offset int) ([]*models.Post, error)
}

// followStore resolves a viewer's followed authors
type followStore interface {
	FollowedAuthorIDs(ctx context.Context, followerID int64) ([]int64, error)
}

// reputationReader resolves author reputations
type reputationReader interface {
	ReputationByIDs(ctx context.Context, ids []int64) (map[int64]float64, error)
}

// Ranker serves ranked feed pages. Scoring is a pure pass over the
// candidate set; any number of request handlers may share one Ranker.
type Ranker struct {
	posts    postStore
	follows  followStore
	accounts reputationReader
	cache    *cache.Cache
	weights  ranking.Weights
	cfg      *config.RankingConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewRanker creates a new feed ranker
func NewRanker(repo *db.Repository, redisCache *cache.Cache, cfg *config.RankingConfig) *Ranker {
	return &Ranker{
		posts:    db.NewPostRepository(repo),
		follows:  db.NewFollowRepository(repo),
		accounts: db.NewAccountRepository(repo),
		cache:    redisCache,
		weights:  ranking.WeightsFromConfig(cfg),
		cfg:      cfg,
		logger:   logging.WithComponent("feed"),
		now:      time.Now,
	}
}

// GetRankedPosts returns one page of the ranked feed for the given viewer.
// viewerID 0 means anonymous; the follow bonus only applies to known
// viewers. Whole-request scoring failures fall back to plain recency
// ordering rather than erroring the caller.
func (r *Ranker) GetRankedPosts(ctx context.Context, viewerID int64, limit, offset int) ([]RankedPost, error) {
	limit, offset = r.clampPage(limit, offset)

	cacheKey := cache.HashKey(
		"feed_ranked",
		fmt.Sprintf("%d", viewerID),
		fmt.Sprintf("%d", limit),
		fmt.Sprintf("%d", offset),
	)

	if r.cache != nil {
		var cached []RankedPost
		if err := r.cache.GetJSON(cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	page, err := r.rank(ctx, viewerID, limit, offset)
	if err != nil {
		r.logger.Error("Scoring failed, falling back to recency ordering",
			zap.Int64("viewer_id", viewerID),
			zap.Error(err))
		return r.fallback(ctx, limit, offset)
	}

	if r.cache != nil {
		ttl := r.cfg.AnonFeedTTL
		if viewerID != 0 {
			ttl = r.cfg.FeedTTL
		}
		if err := r.cache.SetJSON(cacheKey, page, ttl); err != nil && err != cache.ErrCacheDisabled {
			r.logger.Warn("Failed to cache feed page", zap.Error(err))
		}
	}

	return page, nil
}

// rank scores the full candidate set and cuts out the requested page
func (r *Ranker) rank(ctx context.Context, viewerID int64, limit, offset int) ([]RankedPost, error) {
	posts, err := r.posts.ListApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate posts: %w", err)
	}

	followed := map[int64]bool{}
	if viewerID != 0 {
		followed, err = r.followSet(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load follow set: %w", err)
		}
	}

	authorIDs := make([]int64, 0, len(posts))
	seen := make(map[int64]bool, len(posts))
	for _, p := range posts {
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}
	reputations, err := r.accounts.ReputationByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load author reputations: %w", err)
	}

	now := r.now()
	inputs := make([]ranking.Input, len(posts))
	byID := make(map[int64]*models.Post, len(posts))
	for i, p := range posts {
		byID[p.ID] = p
		in := ranking.Input{
			PostID:    p.ID,
			AuthorID:  p.AuthorID,
			CreatedAt: p.CreatedAt,
			Counters: ranking.Counters{
				Likes:     p.LikeCount,
				Comments:  p.CommentCount,
				Shares:    p.ShareCount,
				Bookmarks: p.BookmarkCount,
				Views:     p.ViewCount,
			},
			ViewerFollowsAuthor: followed[p.AuthorID],
		}
		if rep, ok := reputations[p.AuthorID]; ok {
			in.Reputation = &rep
		}
		inputs[i] = in
	}

	breakdowns := r.weights.ScoreAll(inputs, now)
	ranking.Sort(breakdowns)
	pageScores := ranking.Page(breakdowns, limit, offset)

	page := make([]RankedPost, len(pageScores))
	for i, b := range pageScores {
		page[i] = toRankedPost(byID[b.PostID], b)
	}
	return page, nil
}

// fallback returns posts ordered by creation time descending
func (r *Ranker) fallback(ctx context.Context, limit, offset int) ([]RankedPost, error) {
	posts, err := r.posts.ListApprovedByCreated(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fallback query failed: %w", err)
	}

	page := make([]RankedPost, len(posts))
	for i, p := range posts {
		page[i] = toRankedPost(p, ranking.Breakdown{PostID: p.ID, CreatedAt: p.CreatedAt})
	}
	return page, nil
}

// followSet returns the ids of authors the viewer follows, memoized for
// the configured follow-set TTL
func (r *Ranker) followSet(ctx context.Context, viewerID int64) (map[int64]bool, error) {
	cacheKey := fmt.Sprintf("follow_set:%d", viewerID)

	var ids []int64
	if r.cache != nil {
		if err := r.cache.GetJSON(cacheKey, &ids); err == nil {
			return toSet(ids), nil
		}
	}

	ids, err := r.follows.FollowedAuthorIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetJSON(cacheKey, ids, r.cfg.FollowSetTTL); err != nil && err != cache.ErrCacheDisabled {
			r.logger.Warn("Failed to cache follow set",
				zap.Int64("viewer_id", viewerID),
				zap.Error(err))
		}
	}

	return toSet(ids), nil
}

func (r *Ranker) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > r.cfg.MaxLimit {
		limit = r.cfg.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func toRankedPost(p *models.Post, b ranking.Breakdown) RankedPost {
	if p == nil {
		return RankedPost{PostID: b.PostID, CreatedAt: b.CreatedAt, Score: b}
	}
	return RankedPost{
		PostID:        p.ID,
		AuthorID:      p.AuthorID,
		CreatedAt:     p.CreatedAt,
		LikeCount:     p.LikeCount,
		CommentCount:  p.CommentCount,
		ShareCount:    p.ShareCount,
		BookmarkCount: p.BookmarkCount,
		ViewCount:     p.ViewCount,
		Score:         b,
	}
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
