package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/startlinker/rankfeed/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// ListApproved retrieves all approved, non-draft posts
func (r *PostRepository) ListApproved(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("is_approved = ? AND is_draft = ?", true, false).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListApprovedAfterID retrieves one id-ordered batch of approved,
// non-draft posts starting after the given id. Keyset pagination keeps
// batch scans stable while counters change underneath.
func (r *PostRepository) ListApprovedAfterID(ctx context.Context, afterID int64, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("is_approved = ? AND is_draft = ? AND id > ?", true, false, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListApprovedByCreated retrieves approved, non-draft posts ordered by
// creation time descending, ties broken by id. Used as the fallback feed
// ordering when scoring fails.
func (r *PostRepository) ListApprovedByCreated(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("is_approved = ? AND is_draft = ?", true, false).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// AccountRepository provides account-related database operations
type AccountRepository struct {
	*Repository
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(repo *Repository) *AccountRepository {
	return &AccountRepository{Repository: repo}
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// ReputationByIDs retrieves reputation scores for the given account ids.
// Accounts without a stored reputation are absent from the result map.
func (r *AccountRepository) ReputationByIDs(ctx context.Context, ids []int64) (map[int64]float64, error) {
	if len(ids) == 0 {
		return map[int64]float64{}, nil
	}

	var accounts []*models.Account
	if err := r.db.WithContext(ctx).
		Select("id", "reputation").
		Where("id IN ?", ids).
		Find(&accounts).Error; err != nil {
		return nil, err
	}

	reps := make(map[int64]float64, len(accounts))
	for _, acc := range accounts {
		if acc.Reputation.Valid {
			reps[acc.ID] = acc.Reputation.Float64
		}
	}
	return reps, nil
}

// FollowRepository provides follow-relation database operations
type FollowRepository struct {
	*Repository
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(repo *Repository) *FollowRepository {
	return &FollowRepository{Repository: repo}
}

// FollowedAuthorIDs retrieves the set of author ids the viewer follows
func (r *FollowRepository) FollowedAuthorIDs(ctx context.Context, followerID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", followerID).
		Pluck("author_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// RankingScoreRepository provides ranking-score database operations
type RankingScoreRepository struct {
	*Repository
}

// NewRankingScoreRepository creates a new ranking score repository
func NewRankingScoreRepository(repo *Repository) *RankingScoreRepository {
	return &RankingScoreRepository{Repository: repo}
}

// GetByPostID retrieves the score row for a post
func (r *RankingScoreRepository) GetByPostID(ctx context.Context, postID int64) (*models.RankingScore, error) {
	var score models.RankingScore
	if err := r.db.WithContext(ctx).First(&score, "post_id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &score, nil
}

// ScoredAtByPostIDs retrieves the last-scored timestamps for the given
// post ids. Posts never scored are absent from the result map.
func (r *RankingScoreRepository) ScoredAtByPostIDs(ctx context.Context, ids []int64) (map[int64]time.Time, error) {
	if len(ids) == 0 {
		return map[int64]time.Time{}, nil
	}

	var scores []*models.RankingScore
	if err := r.db.WithContext(ctx).
		Select("post_id", "scored_at").
		Where("post_id IN ?", ids).
		Find(&scores).Error; err != nil {
		return nil, err
	}

	stamps := make(map[int64]time.Time, len(scores))
	for _, s := range scores {
		stamps[s.PostID] = s.ScoredAt
	}
	return stamps, nil
}

// Upsert creates or overwrites the score row for a post
func (r *RankingScoreRepository) Upsert(ctx context.Context, score *models.RankingScore) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "post_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"engagement", "recency", "quality", "reputation", "trending", "total", "scored_at",
			}),
		}).
		Create(score).Error
}
