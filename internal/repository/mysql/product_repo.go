package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/product"
)

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepo{db: db}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).
		Preload("Images").
		Preload("Sizes.Size").
		First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).
		Preload("Images").
		Preload("Sizes.Size").
		Where("slug = ?", slug).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List 按过滤条件查询商品列表，对应商城的分类/尺码/价格区间/颜色/折扣筛选
func (r *productRepo) List(ctx context.Context, f product.Filter) ([]*product.Product, error) {
	query := r.db.WithContext(ctx).Model(&product.Product{})

	if len(f.CategorySlugs) > 0 {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug IN ?", f.CategorySlugs)
	}
	if len(f.SizeIDs) > 0 {
		// 只要任一所选尺码有货即可命中，JOIN 后去重
		query = query.Joins("JOIN product_sizes ON product_sizes.product_id = products.id").
			Where("product_sizes.size_id IN ?", f.SizeIDs).
			Distinct("products.*")
	}
	if f.PriceMin != nil {
		query = query.Where("products.price >= ?", f.PriceMin)
	}
	if f.PriceMax != nil {
		query = query.Where("products.price <= ?", f.PriceMax)
	}
	if f.Color != "" {
		query = query.Where("products.color LIKE ?", "%"+f.Color+"%")
	}
	if f.DiscountOnly {
		query = query.Where("products.status_discount = ?", true)
	}
	if f.Name != "" {
		query = query.Where("products.name LIKE ?", "%"+f.Name+"%")
	}

	var list []*product.Product
	if err := query.Order("products.id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) Update(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Select("Images", "Sizes").Delete(&product.Product{ID: id}).Error
}

func (r *productRepo) GetProductSize(ctx context.Context, productID, sizeID int64) (*product.ProductSize, error) {
	var ps product.ProductSize
	if err := r.db.WithContext(ctx).
		Preload("Size").
		Where("product_id = ? AND size_id = ?", productID, sizeID).
		First(&ps).Error; err != nil {
		return nil, err
	}
	return &ps, nil
}

func (r *productRepo) ListSizes(ctx context.Context, productID int64) ([]*product.ProductSize, error) {
	var list []*product.ProductSize
	if err := r.db.WithContext(ctx).
		Preload("Size").
		Where("product_id = ?", productID).
		Order("size_id").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) CheckAvailable(ctx context.Context, productID, sizeID, qty int64) (bool, error) {
	ps, err := r.GetProductSize(ctx, productID, sizeID)
	if err != nil {
		return false, err
	}
	return ps.Stock >= qty, nil
}

// DecrementStock 条件扣减：stock >= qty 才会命中行，避免并发下库存为负
func (r *productRepo) DecrementStock(tx *gorm.DB, productSizeID, qty int64) error {
	res := tx.Model(&product.ProductSize{}).
		Where("id = ? AND stock >= ?", productSizeID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return product.ErrOversell
	}
	return nil
}

func (r *productRepo) RestoreStock(tx *gorm.DB, productSizeID, qty int64) error {
	return tx.Model(&product.ProductSize{}).
		Where("id = ?", productSizeID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}
