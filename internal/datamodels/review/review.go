package review

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateReview 同一用户对同一商品重复评论
	ErrDuplicateReview = errors.New("您已经评论过该商品")
	// ErrSelfVote 不允许给自己的评论投有用票
	ErrSelfVote = errors.New("不能给自己的评论投票")
	// ErrNotAuthor 只有作者本人可以编辑或删除评论
	ErrNotAuthor = errors.New("只能操作自己的评论")
	// ErrEditWindowClosed 超过 30 天编辑窗口
	ErrEditWindowClosed = errors.New("评论发布超过 30 天，不能再编辑")
)

// EditWindow 评论发布后可编辑的时间窗口
const EditWindow = 30 * 24 * time.Hour

// Review 商品评论，每个用户对同一商品只能评论一次
type Review struct {
	ID                 int64     `gorm:"primaryKey" json:"id"`
	ProductID          int64     `gorm:"uniqueIndex:idx_product_user;index:idx_product_created;not null" json:"product_id"`
	UserID             int64     `gorm:"uniqueIndex:idx_product_user;not null" json:"user_id"`
	Rating             int       `gorm:"not null" json:"rating"` // 1~5
	Title              string    `gorm:"size:200;not null" json:"title"`
	Content            string    `gorm:"type:text;not null" json:"content"`
	HelpfulCount       int64     `gorm:"not null;default:0" json:"helpful_count"`
	IsVerifiedPurchase bool      `json:"is_verified_purchase"`
	CreatedAt          time.Time `gorm:"index:idx_product_created" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	Images []ReviewImage `gorm:"constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

// CanEdit 只允许在发布后 30 天内编辑，编辑不会重置窗口
func (r *Review) CanEdit(now time.Time) bool {
	return now.Sub(r.CreatedAt) < EditWindow
}

// ReviewImage 评论配图
type ReviewImage struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	ReviewID int64  `gorm:"index;not null" json:"review_id"`
	Path     string `gorm:"size:255;not null" json:"path"`
}

// ReviewHelpful 有用投票记录，存在与否对应 helpful_count 的 ±1
type ReviewHelpful struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ReviewID  int64     `gorm:"uniqueIndex:idx_review_user;not null" json:"review_id"`
	UserID    int64     `gorm:"uniqueIndex:idx_review_user;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats 某商品的评分统计，读取时实时聚合
type Stats struct {
	AvgRating    float64       `json:"avg_rating"`
	TotalReviews int64         `json:"total_reviews"`
	StarCounts   map[int]int64 `json:"star_counts"` // 星级 -> 数量
}

// ListOptions 评论列表查询参数
type ListOptions struct {
	Sort     string // recent / helpful / rating_high / rating_low
	Rating   int    // 0 表示不过滤
	Page     int
	PageSize int
}

// Repository 评论仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Review, error)
	GetByProductAndUser(ctx context.Context, productID, userID int64) (*Review, error)
	List(ctx context.Context, productID int64, opts ListOptions) ([]*Review, error)
	Create(ctx context.Context, r *Review) error
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id int64) error

	Stats(ctx context.Context, productID int64) (*Stats, error)

	GetVote(ctx context.Context, reviewID, userID int64) (*ReviewHelpful, error)
	// ToggleVote 在一个事务内完成投票行的增删与 helpful_count 的同步修改，
	// 返回投票后的状态（true=已投）与最新计数
	ToggleVote(ctx context.Context, reviewID, userID int64) (bool, int64, error)
}
