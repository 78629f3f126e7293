package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/review"
)

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepository 创建评论仓储
func NewReviewRepository(db *gorm.DB) review.Repository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) GetByID(ctx context.Context, id int64) (*review.Review, error) {
	var rev review.Review
	if err := r.db.WithContext(ctx).Preload("Images").First(&rev, id).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *reviewRepo) GetByProductAndUser(ctx context.Context, productID, userID int64) (*review.Review, error) {
	var rev review.Review
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		First(&rev).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *reviewRepo) List(ctx context.Context, productID int64, opts review.ListOptions) ([]*review.Review, error) {
	query := r.db.WithContext(ctx).
		Preload("Images").
		Where("product_id = ?", productID)

	if opts.Rating >= 1 && opts.Rating <= 5 {
		query = query.Where("rating = ?", opts.Rating)
	}

	switch opts.Sort {
	case "helpful":
		query = query.Order("helpful_count DESC, created_at DESC")
	case "rating_high":
		query = query.Order("rating DESC, created_at DESC")
	case "rating_low":
		query = query.Order("rating ASC, created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	query = query.Offset((opts.Page - 1) * opts.PageSize).Limit(opts.PageSize)

	var list []*review.Review
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reviewRepo) Create(ctx context.Context, rev *review.Review) error {
	return r.db.WithContext(ctx).Create(rev).Error
}

func (r *reviewRepo) Update(ctx context.Context, rev *review.Review) error {
	return r.db.WithContext(ctx).Save(rev).Error
}

func (r *reviewRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Select("Images").Delete(&review.Review{ID: id}).Error
}

// Stats 读取时聚合评分统计，不做增量维护
func (r *reviewRepo) Stats(ctx context.Context, productID int64) (*review.Stats, error) {
	stats := &review.Stats{StarCounts: make(map[int]int64)}

	type row struct {
		Rating int
		Cnt    int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&review.Review{}).
		Select("rating, COUNT(*) AS cnt").
		Where("product_id = ?", productID).
		Group("rating").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	var sum int64
	for _, row := range rows {
		stats.StarCounts[row.Rating] = row.Cnt
		stats.TotalReviews += row.Cnt
		sum += int64(row.Rating) * row.Cnt
	}
	if stats.TotalReviews > 0 {
		stats.AvgRating = float64(sum) / float64(stats.TotalReviews)
	}
	return stats, nil
}

func (r *reviewRepo) GetVote(ctx context.Context, reviewID, userID int64) (*review.ReviewHelpful, error) {
	var v review.ReviewHelpful
	if err := r.db.WithContext(ctx).
		Where("review_id = ? AND user_id = ?", reviewID, userID).
		First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ToggleVote 投票开关：投票行的增删与 helpful_count 的修改在同一事务内完成。
// 计数下限为 0，重复调用互为逆操作。
func (r *reviewRepo) ToggleVote(ctx context.Context, reviewID, userID int64) (bool, int64, error) {
	var (
		voted bool
		count int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v review.ReviewHelpful
		err := tx.Where("review_id = ? AND user_id = ?", reviewID, userID).First(&v).Error
		switch {
		case err == nil:
			// 已投过，撤销投票
			if err := tx.Delete(&v).Error; err != nil {
				return err
			}
			if err := tx.Model(&review.Review{}).
				Where("id = ?", reviewID).
				UpdateColumn("helpful_count",
					gorm.Expr("CASE WHEN helpful_count > 0 THEN helpful_count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
			voted = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&review.ReviewHelpful{ReviewID: reviewID, UserID: userID}).Error; err != nil {
				return err
			}
			if err := tx.Model(&review.Review{}).
				Where("id = ?", reviewID).
				UpdateColumn("helpful_count", gorm.Expr("helpful_count + 1")).Error; err != nil {
				return err
			}
			voted = true
		default:
			return err
		}

		var rev review.Review
		if err := tx.Select("helpful_count").First(&rev, reviewID).Error; err != nil {
			return err
		}
		count = rev.HelpfulCount
		return nil
	})
	return voted, count, err
}
