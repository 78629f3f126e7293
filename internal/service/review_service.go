package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/review"
)

// ReviewService 评论与评分聚合
type ReviewService struct {
	repo review.Repository
	now  func() time.Time
}

// NewReviewService 创建评论服务
func NewReviewService(repo review.Repository) *ReviewService {
	return &ReviewService{repo: repo, now: time.Now}
}

// Create 发布评论。每个用户对同一商品只能评论一次，
// 标题/正文/配图都要先通过内容校验。imagePaths 为已落盘的配图路径。
func (s *ReviewService) Create(ctx context.Context, productID, userID int64, rating int, title, content string, imagePaths []string) (*review.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.New("评分必须在 1 到 5 之间")
	}
	if err := ValidateReviewTitle(title); err != nil {
		return nil, err
	}
	if err := ValidateReviewContent(content); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByProductAndUser(ctx, productID, userID); err == nil {
		return nil, review.ErrDuplicateReview
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	rev := &review.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Title:     title,
		Content:   content,
	}
	for _, p := range imagePaths {
		rev.Images = append(rev.Images, review.ReviewImage{Path: p})
	}
	if err := s.repo.Create(ctx, rev); err != nil {
		// 唯一索引兜底并发下的重复提交
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, review.ErrDuplicateReview
		}
		return nil, err
	}
	return rev, nil
}

// Edit 编辑评论。只允许作者本人，且必须在发布后 30 天内；
// 编辑不刷新这个窗口。
func (s *ReviewService) Edit(ctx context.Context, reviewID, userID int64, rating int, title, content string) (*review.Review, error) {
	rev, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if rev.UserID != userID {
		return nil, review.ErrNotAuthor
	}
	if !rev.CanEdit(s.now()) {
		return nil, review.ErrEditWindowClosed
	}
	if rating < 1 || rating > 5 {
		return nil, errors.New("评分必须在 1 到 5 之间")
	}
	if err := ValidateReviewTitle(title); err != nil {
		return nil, err
	}
	if err := ValidateReviewContent(content); err != nil {
		return nil, err
	}

	rev.Rating = rating
	rev.Title = title
	rev.Content = content
	if err := s.repo.Update(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

// Delete 删除评论，作者或管理员可操作
func (s *ReviewService) Delete(ctx context.Context, reviewID, userID int64, isStaff bool) error {
	rev, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if rev.UserID != userID && !isStaff {
		return review.ErrNotAuthor
	}
	return s.repo.Delete(ctx, reviewID)
}

// MarkHelpful 有用投票开关：没投过则投票并 +1，投过则撤销并 -1（下限 0）。
// 作者不能给自己的评论投票。返回投票后的状态与最新计数。
func (s *ReviewService) MarkHelpful(ctx context.Context, reviewID, userID int64) (bool, int64, error) {
	rev, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return false, 0, err
	}
	if rev.UserID == userID {
		return false, 0, review.ErrSelfVote
	}
	return s.repo.ToggleVote(ctx, reviewID, userID)
}

// List 评论列表，支持排序、按星级过滤与分页
func (s *ReviewService) List(ctx context.Context, productID int64, opts review.ListOptions) ([]*review.Review, error) {
	return s.repo.List(ctx, productID, opts)
}

// Stats 商品评分统计，读取时聚合
func (s *ReviewService) Stats(ctx context.Context, productID int64) (*review.Stats, error) {
	return s.repo.Stats(ctx, productID)
}
