package feed

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/startlinker/rankfeed/internal/models"
	"github.com/startlinker/rankfeed/internal/ranking"
	"github.com/startlinker/rankfeed/pkg/config"
)

type fakePostStore struct {
	posts   []*models.Post
	listErr error
}

func (f *fakePostStore) ListApproved(ctx context.Context) ([]*models.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.posts, nil
}

func (f *fakePostStore) ListApprovedByCreated(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	sorted := make([]*models.Post, len(f.posts))
	copy(sorted, f.posts)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if offset >= len(sorted) {
		return nil, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], nil
}

type fakeFollowStore struct {
	followed map[int64][]int64
}

func (f *fakeFollowStore) FollowedAuthorIDs(ctx context.Context, followerID int64) ([]int64, error) {
	return f.followed[followerID], nil
}

type fakeAccountStore struct {
	reps map[int64]float64
}

func (f *fakeAccountStore) ReputationByIDs(ctx context.Context, ids []int64) (map[int64]float64, error) {
	out := make(map[int64]float64)
	for _, id := range ids {
		if rep, ok := f.reps[id]; ok {
			out[id] = rep
		}
	}
	return out, nil
}

func newTestRanker(posts *fakePostStore, follows *fakeFollowStore, accounts *fakeAccountStore, now time.Time) *Ranker {
	return &Ranker{
		posts:    posts,
		follows:  follows,
		accounts: accounts,
		weights:  ranking.DefaultWeights(),
		cfg: &config.RankingConfig{
			MaxLimit:     200,
			FeedTTL:      5 * time.Minute,
			AnonFeedTTL:  10 * time.Minute,
			FollowSetTTL: 30 * time.Minute,
		},
		logger: zap.NewNop(),
		now:    func() time.Time { return now },
	}
}

func TestGetRankedPostsFollowBonusOrdering(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)
	counters := models.Post{LikeCount: 10, CommentCount: 5, ShareCount: 2, BookmarkCount: 1, ViewCount: 1000}
	posts := &fakePostStore{posts: []*models.Post{
		{ID: 1, AuthorID: 10, CreatedAt: created,
			LikeCount: counters.LikeCount, CommentCount: counters.CommentCount,
			ShareCount: counters.ShareCount, BookmarkCount: counters.BookmarkCount, ViewCount: counters.ViewCount},
		{ID: 2, AuthorID: 11, CreatedAt: created,
			LikeCount: counters.LikeCount, CommentCount: counters.CommentCount,
			ShareCount: counters.ShareCount, BookmarkCount: counters.BookmarkCount, ViewCount: counters.ViewCount},
	}}
	follows := &fakeFollowStore{followed: map[int64][]int64{9: {11}}}
	r := newTestRanker(posts, follows, &fakeAccountStore{}, now)

	// Anonymous viewer: identical scores, id breaks the tie
	anon, err := r.GetRankedPosts(context.Background(), 0, 10, 0)
	if err != nil {
		t.Fatalf("GetRankedPosts() anonymous failed: %v", err)
	}
	if len(anon) != 2 || anon[0].PostID != 1 || anon[1].PostID != 2 {
		t.Fatalf("anonymous order = %+v, want posts 1 then 2", anon)
	}
	if anon[0].Score.FollowBonus != 0 || anon[1].Score.FollowBonus != 0 {
		t.Error("anonymous viewer should never get a follow bonus")
	}

	// Viewer 9 follows author 11: post 2 jumps ahead on the flat bonus
	personalized, err := r.GetRankedPosts(context.Background(), 9, 10, 0)
	if err != nil {
		t.Fatalf("GetRankedPosts() personalized failed: %v", err)
	}
	if len(personalized) != 2 || personalized[0].PostID != 2 {
		t.Fatalf("personalized order = %+v, want post 2 first", personalized)
	}
	if personalized[0].Score.FollowBonus != 10.0 {
		t.Errorf("follow bonus = %v, want 10.0", personalized[0].Score.FollowBonus)
	}
	if diff := personalized[0].Score.Total - personalized[1].Score.Total; diff < 9.99 || diff > 10.01 {
		t.Errorf("followed post should lead by the flat bonus, diff = %v", diff)
	}
}

func TestGetRankedPostsFallsBackToRecencyOrdering(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	posts := &fakePostStore{
		posts: []*models.Post{
			{ID: 1, AuthorID: 10, CreatedAt: now.Add(-3 * time.Hour), LikeCount: 500},
			{ID: 2, AuthorID: 11, CreatedAt: now.Add(-1 * time.Hour)},
			{ID: 3, AuthorID: 12, CreatedAt: now.Add(-2 * time.Hour), LikeCount: 900},
		},
		listErr: errors.New("candidate query failed"),
	}
	r := newTestRanker(posts, &fakeFollowStore{}, &fakeAccountStore{}, now)

	page, err := r.GetRankedPosts(context.Background(), 0, 10, 0)
	if err != nil {
		t.Fatalf("fallback should not surface the scoring failure, got: %v", err)
	}

	// Plain created-at descending, engagement ignored
	wantOrder := []int64{2, 3, 1}
	if len(page) != len(wantOrder) {
		t.Fatalf("fallback returned %d posts, want %d", len(page), len(wantOrder))
	}
	for i, want := range wantOrder {
		if page[i].PostID != want {
			t.Errorf("position %d: got post %d, want %d", i, page[i].PostID, want)
		}
	}
	for _, entry := range page {
		if entry.Score.Total != 0 {
			t.Errorf("fallback entry for post %d carries a score total %v, want zero breakdown",
				entry.PostID, entry.Score.Total)
		}
	}
}

func TestClampPage(t *testing.T) {
	r := &Ranker{cfg: &config.RankingConfig{MaxLimit: 200}}

	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", limit: 0, offset: 0, wantLimit: defaultLimit, wantOffset: 0},
		{name: "within bounds", limit: 50, offset: 100, wantLimit: 50, wantOffset: 100},
		{name: "limit capped", limit: 5000, offset: 0, wantLimit: 200, wantOffset: 0},
		{name: "negative limit falls back to default", limit: -1, offset: 0, wantLimit: defaultLimit, wantOffset: 0},
		{name: "negative offset clamped", limit: 10, offset: -5, wantLimit: 10, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := r.clampPage(tt.limit, tt.offset)
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("clampPage(%d, %d) = (%d, %d), want (%d, %d)",
					tt.limit, tt.offset, limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestToRankedPost(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	post := &models.Post{
		ID:            7,
		AuthorID:      3,
		CreatedAt:     created,
		LikeCount:     10,
		CommentCount:  5,
		ShareCount:    2,
		BookmarkCount: 1,
		ViewCount:     1000,
	}
	breakdown := ranking.Breakdown{PostID: 7, CreatedAt: created, Total: 84.1}

	got := toRankedPost(post, breakdown)
	if got.PostID != 7 || got.AuthorID != 3 || got.LikeCount != 10 || got.ViewCount != 1000 {
		t.Errorf("toRankedPost() dropped post fields: %+v", got)
	}
	if got.Score.Total != 84.1 {
		t.Errorf("toRankedPost() dropped score: %+v", got.Score)
	}

	// Missing post still yields a usable entry
	orphan := toRankedPost(nil, breakdown)
	if orphan.PostID != 7 || orphan.Score.Total != 84.1 {
		t.Errorf("toRankedPost(nil) = %+v, want id and score preserved", orphan)
	}
}

func TestToSet(t *testing.T) {
	set := toSet([]int64{1, 2, 2, 3})
	if len(set) != 3 {
		t.Errorf("toSet() returned %d entries, want 3", len(set))
	}
	for _, id := range []int64{1, 2, 3} {
		if !set[id] {
			t.Errorf("toSet() missing id %d", id)
		}
	}
	if set[4] {
		t.Error("toSet() contains id that was never added")
	}

	empty := toSet(nil)
	if len(empty) != 0 {
		t.Errorf("toSet(nil) returned %d entries, want 0", len(empty))
	}
}
