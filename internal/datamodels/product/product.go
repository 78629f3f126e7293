package product

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrNotEnoughStock 加购/改量时请求数量超过库存
	ErrNotEnoughStock = errors.New("库存不足")
	// ErrOversell 落单扣减时库存已不足，整个订单事务回滚
	ErrOversell = errors.New("库存不足，订单未能创建")
)

// Product 商品模型
type Product struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"size:58;not null" json:"name"`
	Slug           string          `gorm:"size:58;uniqueIndex;not null" json:"slug"`
	Description    string          `gorm:"type:text" json:"description"`
	Price          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Color          string          `gorm:"size:100" json:"color"`
	MainImage      string          `gorm:"size:255" json:"main_image"`
	StatusDiscount bool            `gorm:"index" json:"status_discount"`
	CategoryID     int64           `gorm:"index;not null" json:"category_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// 删除商品时级联删除附图与尺码库存
	Images []ProductImage `gorm:"constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Sizes  []ProductSize  `gorm:"constraint:OnDelete:CASCADE" json:"sizes,omitempty"`
}

// ProductImage 商品附图
type ProductImage struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	ProductID int64  `gorm:"index;not null" json:"product_id"`
	Path      string `gorm:"size:255;not null" json:"path"`
}

// Size 尺码字典
type Size struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:20;not null" json:"name"`
}

// ProductSize 某商品某尺码的库存记录，库存永不为负
type ProductSize struct {
	ID        int64 `gorm:"primaryKey" json:"id"`
	ProductID int64 `gorm:"uniqueIndex:idx_product_size;not null" json:"product_id"`
	SizeID    int64 `gorm:"uniqueIndex:idx_product_size;not null" json:"size_id"`
	Stock     int64 `gorm:"not null;default:0" json:"stock"`

	Size Size `gorm:"foreignKey:SizeID" json:"size"`
}

// Filter 商品列表过滤条件
type Filter struct {
	CategorySlugs []string
	SizeIDs       []int64
	PriceMin      *decimal.Decimal
	PriceMax      *decimal.Decimal
	Color         string
	DiscountOnly  bool
	Name          string
}

// Repository 商品仓储接口，同时承担库存台账职责
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	List(ctx context.Context, f Filter) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error

	GetProductSize(ctx context.Context, productID, sizeID int64) (*ProductSize, error)
	ListSizes(ctx context.Context, productID int64) ([]*ProductSize, error)
	CheckAvailable(ctx context.Context, productID, sizeID, qty int64) (bool, error)

	// DecrementStock 条件扣减库存，库存不足时返回 ErrOversell，只在订单落库事务中调用
	DecrementStock(tx *gorm.DB, productSizeID, qty int64) error
	// RestoreStock 退款时恢复库存
	RestoreStock(tx *gorm.DB, productSizeID, qty int64) error
}
