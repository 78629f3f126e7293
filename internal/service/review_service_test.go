package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/review"
	"github.com/DmitriyRebrykov/BlockWear/internal/repository/mysql"
)

const (
	validTitle   = "Great boots!"
	validContent = "These boots kept my feet dry through the whole winter season."
)

func newReviewFixture(t *testing.T) *ReviewService {
	t.Helper()
	db := testDB(t)
	return NewReviewService(mysql.NewReviewRepository(db))
}

func TestCreateReviewValidation(t *testing.T) {
	svc := newReviewFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, 1, 0, validTitle, validContent, nil)
	assert.Error(t, err, "rating below range")
	_, err = svc.Create(ctx, 1, 1, 6, validTitle, validContent, nil)
	assert.Error(t, err, "rating above range")
	_, err = svc.Create(ctx, 1, 1, 5, "ok", validContent, nil)
	assert.Error(t, err, "title too short")
	_, err = svc.Create(ctx, 1, 1, 5, validTitle, "nice", nil)
	assert.Error(t, err, "content too short")

	rev, err := svc.Create(ctx, 1, 1, 5, validTitle, validContent, []string{"/uploads/reviews/a.png"})
	require.NoError(t, err)
	assert.NotZero(t, rev.ID)
	require.Len(t, rev.Images, 1)
}

func TestCreateReviewOncePerProduct(t *testing.T) {
	svc := newReviewFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, 1, 5, validTitle, validContent, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, 1, 3, validTitle, validContent, nil)
	assert.ErrorIs(t, err, review.ErrDuplicateReview)

	// 其他商品、其他用户不受影响
	_, err = svc.Create(ctx, 2, 1, 4, validTitle, validContent, nil)
	assert.NoError(t, err)
	_, err = svc.Create(ctx, 1, 2, 4, validTitle, validContent, nil)
	assert.NoError(t, err)
}

func TestConcurrentDuplicateSurfacesAsDuplicatedKey(t *testing.T) {
	db := testDB(t)
	repo := mysql.NewReviewRepository(db)
	ctx := context.Background()

	// 两个并发提交都通过了预检查时，唯一索引兜底，
	// 驱动错误必须翻译成 gorm.ErrDuplicatedKey 才能映射为重复评论
	require.NoError(t, repo.Create(ctx, &review.Review{
		ProductID: 1, UserID: 1, Rating: 5, Title: validTitle, Content: validContent,
	}))
	err := repo.Create(ctx, &review.Review{
		ProductID: 1, UserID: 1, Rating: 4, Title: validTitle, Content: validContent,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestEditReview(t *testing.T) {
	svc := newReviewFixture(t)
	ctx := context.Background()

	rev, err := svc.Create(ctx, 1, 1, 5, validTitle, validContent, nil)
	require.NoError(t, err)

	_, err = svc.Edit(ctx, rev.ID, 99, 4, validTitle, validContent)
	assert.ErrorIs(t, err, review.ErrNotAuthor)

	got, err := svc.Edit(ctx, rev.ID, 1, 4, "Still great boots", validContent)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, "Still great boots", got.Title)
}

func TestEditWindowCloses(t *testing.T) {
	svc := newReviewFixture(t)
	ctx := context.Background()

	rev, err := svc.Create(ctx, 1, 1, 5, validTitle, validContent, nil)
	require.NoError(t, err)

	// 把时钟拨到窗口边界之外
	svc.now = func() time.Time { return rev.CreatedAt.Add(review.EditWindow + time.Hour) }
	_, err = svc.Edit(ctx, rev.ID, 1, 4, validTitle, validContent)
	assert.ErrorIs(t, err, review.ErrEditWindowClosed)

	svc.now = func() time.Time { return rev.CreatedAt.Add(review.EditWindow - time.Hour) }
	_, err = svc.Edit(ctx, rev.ID, 1, 4, validTitle, validContent)
	assert.NoError(t, err)
}

func TestDeleteReviewPermissions(t *testing.T) {
	svc := newReviewFixture(t)
	ctx := context.Background()

	rev, err := svc.Create(ctx, 1, 1, 5, validTitle, validContent, nil)
	require.NoError(t, err)

	err = svc.Delete(ctx, rev.ID, 99, false)
	assert.ErrorIs(t, err, review.ErrNotAuthor)

	// 管理员可以删除任何评论
	assert.NoError(t, svc.Delete(ctx, rev.ID, 99, true))
}

func TestMarkHelpfulToggles(t *testing.T) {
	svc := newReviewFixture(t)
	ctx := context.Background()

	rev, err := svc.Create(ctx, 1, 1, 5, validTitle, validContent, nil)
	require.NoError(t, err)

	_, _, err = svc.MarkHelpful(ctx, rev.ID, 1)
	assert.ErrorIs(t, err, review.ErrSelfVote)

	voted, count, err := svc.MarkHelpful(ctx, rev.ID, 2)
	require.NoError(t, err)
	assert.True(t, voted)
	assert.Equal(t, int64(1), count)

	voted, count, err = svc.MarkHelpful(ctx, rev.ID, 2)
	require.NoError(t, err)
	assert.False(t, voted)
	assert.Equal(t, int64(0), count)

	// 两个用户的投票互不影响
	_, _, err = svc.MarkHelpful(ctx, rev.ID, 2)
	require.NoError(t, err)
	voted, count, err = svc.MarkHelpful(ctx, rev.ID, 3)
	require.NoError(t, err)
	assert.True(t, voted)
	assert.Equal(t, int64(2), count)
}

func TestStatsAggregation(t *testing.T) {
	svc := newReviewFixture(t)
	ctx := context.Background()

	ratings := []int{5, 5, 4, 2}
	for i, r := range ratings {
		_, err := svc.Create(ctx, 1, int64(i+1), r, validTitle, validContent, nil)
		require.NoError(t, err)
	}
	// 别的商品的评论不计入
	_, err := svc.Create(ctx, 2, 1, 1, validTitle, validContent, nil)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalReviews)
	assert.InDelta(t, 4.0, stats.AvgRating, 0.001)
	assert.Equal(t, int64(2), stats.StarCounts[5])
	assert.Equal(t, int64(1), stats.StarCounts[4])
	assert.Equal(t, int64(1), stats.StarCounts[2])
	assert.Equal(t, int64(0), stats.StarCounts[3])
}

func TestListSortingAndPaging(t *testing.T) {
	db := testDB(t)
	repo := mysql.NewReviewRepository(db)
	svc := NewReviewService(repo)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rev, err := svc.Create(ctx, 1, int64(i), i+2, validTitle, validContent, nil)
		require.NoError(t, err)
		// 用户 10 给每条都投票，再让最后一条多一票
		_, _, err = svc.MarkHelpful(ctx, rev.ID, 10)
		require.NoError(t, err)
		if i == 3 {
			_, _, err = svc.MarkHelpful(ctx, rev.ID, 11)
			require.NoError(t, err)
		}
	}

	byHelpful, err := svc.List(ctx, 1, review.ListOptions{Sort: "helpful", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, byHelpful, 3)
	assert.Equal(t, int64(2), byHelpful[0].HelpfulCount)

	byRatingHigh, err := svc.List(ctx, 1, review.ListOptions{Sort: "rating_high", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, byRatingHigh[0].Rating)

	onlyFive, err := svc.List(ctx, 1, review.ListOptions{Rating: 5, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, onlyFive, 1)
	assert.Equal(t, 5, onlyFive[0].Rating)

	paged, err := svc.List(ctx, 1, review.ListOptions{Sort: "rating_low", Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, 5, paged[0].Rating)
}
