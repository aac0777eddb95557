package scorer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/startlinker/rankfeed/internal/cache"
	"github.com/startlinker/rankfeed/internal/db"
	"github.com/startlinker/rankfeed/internal/models"
	"github.com/startlinker/rankfeed/internal/ranking"
	"github.com/startlinker/rankfeed/pkg/config"
	"github.com/startlinker/rankfeed/pkg/logging"
	"github.com/startlinker/rankfeed/pkg/telemetry"
)

// lockName is the shared mutual-exclusion key for the rescoring job
const lockName = "scorer"

// ErrAlreadyRunning is returned when a rescoring pass is requested while
// another one holds the job lock
var ErrAlreadyRunning = errors.New("rescoring job already running")

// Summary reports the outcome of one rescoring pass
type Summary struct {
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Errored   int       `json:"errored"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

// postLister loads id-ordered batches of scoring candidates
type postLister interface {
	ListApprovedAfterID(ctx context.Context, afterID int64, limit int) ([]*models.Post, error)
}

// scoreStore reads and writes persisted ranking scores
type scoreStore interface {
	ScoredAtByPostIDs(ctx context.Context, ids []int64) (map[int64]time.Time, error)
	Upsert(ctx context.Context, score *models.RankingScore) error
}

// reputationReader resolves author reputations
type reputationReader interface {
	ReputationByIDs(ctx context.Context, ids []int64) (map[int64]float64, error)
}

// Scorer recomputes and persists viewer-independent ranking scores for
// all eligible posts. It is the only writer of sl_ranking_scores.
type Scorer struct {
	posts    postLister
	scores   scoreStore
	accounts reputationReader
	cache    *cache.Cache
	weights  ranking.Weights
	cfg      *config.ScorerConfig
	logger   *zap.Logger
	running  atomic.Bool
	now      func() time.Time
}

// New creates a new batch scorer
func New(repo *db.Repository, redisCache *cache.Cache, rankCfg *config.RankingConfig, cfg *config.ScorerConfig) *Scorer {
	return &Scorer{
		posts:    db.NewPostRepository(repo),
		scores:   db.NewRankingScoreRepository(repo),
		accounts: db.NewAccountRepository(repo),
		cache:    redisCache,
		weights:  ranking.WeightsFromConfig(rankCfg),
		cfg:      cfg,
		logger:   logging.WithComponent("scorer"),
		now:      time.Now,
	}
}

// Run executes rescoring passes on the configured interval until the
// context is cancelled. Pass failures are logged and retried on the next
// tick rather than aborting the loop.
func (s *Scorer) Run(ctx context.Context) error {
	s.logger.Info("Starting rescoring loop",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("batch_size", s.cfg.BatchSize))

	for {
		summary, err := s.RunOnce(ctx, false)
		switch {
		case errors.Is(err, ErrAlreadyRunning):
			s.logger.Warn("Skipping rescoring pass, another run holds the lock")
		case err != nil:
			s.logger.Error("Rescoring pass failed", zap.Error(err))
		default:
			s.logger.Info("Rescoring pass complete",
				zap.Int("processed", summary.Processed),
				zap.Int("skipped", summary.Skipped),
				zap.Int("errored", summary.Errored),
				zap.Duration("elapsed", summary.Finished.Sub(summary.Started)))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.Interval):
		}
	}
}

// RunOnce executes a single rescoring pass. Posts scored within the
// freshness window are skipped unless force is set. Per-post failures are
// logged and counted, never abort the pass. Safe to re-run: without
// counter changes, repeated passes write identical rows.
func (s *Scorer) RunOnce(ctx context.Context, force bool) (*Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx, span := telemetry.StartSpan(ctx, "scorer.run_once")
	defer span.End()

	summary := &Summary{Started: s.now().UTC()}
	afterID := int64(0)

	for {
		posts, err := s.posts.ListApprovedAfterID(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load post batch after id %d: %w", afterID, err)
		}
		if len(posts) == 0 {
			break
		}
		afterID = posts[len(posts)-1].ID

		if err := s.scoreBatch(ctx, posts, force, summary); err != nil {
			return nil, err
		}
	}

	summary.Finished = s.now().UTC()
	return summary, nil
}

// scoreBatch recomputes and upserts scores for one batch of posts
func (s *Scorer) scoreBatch(ctx context.Context, posts []*models.Post, force bool, summary *Summary) error {
	ids := make([]int64, len(posts))
	authorIDs := make([]int64, 0, len(posts))
	seen := make(map[int64]bool, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}

	scoredAt, err := s.scores.ScoredAtByPostIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load score timestamps: %w", err)
	}
	reputations, err := s.accounts.ReputationByIDs(ctx, authorIDs)
	if err != nil {
		return fmt.Errorf("failed to load author reputations: %w", err)
	}

	now := s.now().UTC()
	for _, p := range posts {
		if !force {
			if last, ok := scoredAt[p.ID]; ok && now.Sub(last) < s.cfg.FreshnessWindow {
				summary.Skipped++
				continue
			}
		}

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
			// Batch scores are viewer-independent: no follow bonus
		}
		if rep, ok := reputations[p.AuthorID]; ok {
			in.Reputation = &rep
		}

		b := s.weights.Score(in, now)
		row := &models.RankingScore{
			PostID:     b.PostID,
			Engagement: b.Engagement,
			Recency:    b.Recency,
			Quality:    b.Quality,
			Reputation: b.Reputation,
			Trending:   b.Trending,
			Total:      b.Total,
			ScoredAt:   now,
		}

		if err := s.scores.Upsert(ctx, row); err != nil {
			summary.Errored++
			s.logger.Error("Failed to persist score",
				zap.Int64("post_id", p.ID),
				zap.Error(err))
			continue
		}
		summary.Processed++
	}

	return nil
}

// acquireLock takes the shared job lock. When Redis is disabled only the
// in-process guard applies.
func (s *Scorer) acquireLock(ctx context.Context) (func(), error) {
	ok, err := s.cache.AcquireLock(ctx, lockName, s.cfg.LockTTL)
	if errors.Is(err, cache.ErrCacheDisabled) {
		return func() {}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire job lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	return func() {
		if err := s.cache.ReleaseLock(context.Background(), lockName); err != nil {
			s.logger.Warn("Failed to release job lock", zap.Error(err))
		}
	}, nil
}
