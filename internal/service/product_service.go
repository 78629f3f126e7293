package service

import (
	"context"

	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/category"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/product"
)

// ProductService 商品目录服务
type ProductService struct {
	productRepo  product.Repository
	categoryRepo category.Repository
}

// NewProductService 创建商品服务
func NewProductService(productRepo product.Repository, categoryRepo category.Repository) *ProductService {
	return &ProductService{productRepo: productRepo, categoryRepo: categoryRepo}
}

// List 按分类/尺码/价格区间/颜色/折扣/名称过滤商品
func (s *ProductService) List(ctx context.Context, f product.Filter) ([]*product.Product, error) {
	return s.productRepo.List(ctx, f)
}

// Get 商品详情（含附图与各尺码库存）
func (s *ProductService) Get(ctx context.Context, id int64) (*product.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// GetBySlug 按 slug 查询商品详情
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return s.productRepo.GetBySlug(ctx, slug)
}

// Sizes 商品各尺码的库存情况，详情页选尺码用
func (s *ProductService) Sizes(ctx context.Context, productID int64) ([]*product.ProductSize, error) {
	return s.productRepo.ListSizes(ctx, productID)
}

// Categories 所有分类
func (s *ProductService) Categories(ctx context.Context) ([]*category.Category, error) {
	return s.categoryRepo.ListAll(ctx)
}
