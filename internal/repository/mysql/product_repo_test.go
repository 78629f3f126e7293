package mysql

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/category"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/product"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) (boots, sneakers *category.Category, sizes []*product.Size) {
	t.Helper()
	boots = &category.Category{Name: "Boots", Slug: "boots"}
	sneakers = &category.Category{Name: "Sneakers", Slug: "sneakers"}
	require.NoError(t, db.Create(boots).Error)
	require.NoError(t, db.Create(sneakers).Error)
	for _, n := range []string{"41", "42"} {
		s := &product.Size{Name: n}
		require.NoError(t, db.Create(s).Error)
		sizes = append(sizes, s)
	}
	return boots, sneakers, sizes
}

func TestListFilters(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	boots, sneakers, sizes := seedCatalog(t, db)

	trail := &product.Product{
		Name: "Trail Boot", Slug: "trail-boot", Color: "brown",
		Price: decimal.NewFromFloat(129.90), CategoryID: boots.ID,
	}
	runner := &product.Product{
		Name: "City Runner", Slug: "city-runner", Color: "white",
		Price: decimal.NewFromFloat(89), StatusDiscount: true, CategoryID: sneakers.ID,
	}
	require.NoError(t, repo.Create(ctx, trail))
	require.NoError(t, repo.Create(ctx, runner))
	// trail 只有 41 码有货
	require.NoError(t, db.Create(&product.ProductSize{ProductID: trail.ID, SizeID: sizes[0].ID, Stock: 3}).Error)

	all, err := repo.List(ctx, product.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCategory, err := repo.List(ctx, product.Filter{CategorySlugs: []string{"boots"}})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Trail Boot", byCategory[0].Name)

	bySize, err := repo.List(ctx, product.Filter{SizeIDs: []int64{sizes[0].ID, sizes[1].ID}})
	require.NoError(t, err)
	require.Len(t, bySize, 1)
	assert.Equal(t, trail.ID, bySize[0].ID)

	maxPrice := decimal.NewFromInt(100)
	byPrice, err := repo.List(ctx, product.Filter{PriceMax: &maxPrice})
	require.NoError(t, err)
	require.Len(t, byPrice, 1)
	assert.Equal(t, runner.ID, byPrice[0].ID)

	discounted, err := repo.List(ctx, product.Filter{DiscountOnly: true})
	require.NoError(t, err)
	require.Len(t, discounted, 1)
	assert.Equal(t, runner.ID, discounted[0].ID)

	byName, err := repo.List(ctx, product.Filter{Name: "runner"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
}

func TestGetBySlugAndListSizes(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	boots, _, sizes := seedCatalog(t, db)
	p := &product.Product{Name: "Trail Boot", Slug: "trail-boot", Price: decimal.NewFromInt(100), CategoryID: boots.ID}
	require.NoError(t, repo.Create(ctx, p))
	for i, s := range sizes {
		require.NoError(t, db.Create(&product.ProductSize{
			ProductID: p.ID, SizeID: s.ID, Stock: int64(i + 1),
		}).Error)
	}

	got, err := repo.GetBySlug(ctx, "trail-boot")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Len(t, got.Sizes, 2)

	_, err = repo.GetBySlug(ctx, "no-such-slug")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	list, err := repo.ListSizes(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "41", list[0].Size.Name)
	assert.Equal(t, int64(1), list[0].Stock)
	assert.Equal(t, int64(2), list[1].Stock)
}

func TestCheckAvailable(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	boots, _, sizes := seedCatalog(t, db)
	p := &product.Product{Name: "Trail Boot", Slug: "trail-boot", Price: decimal.NewFromInt(100), CategoryID: boots.ID}
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, db.Create(&product.ProductSize{ProductID: p.ID, SizeID: sizes[0].ID, Stock: 2}).Error)

	ok, err := repo.CheckAvailable(ctx, p.ID, sizes[0].ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CheckAvailable(ctx, p.ID, sizes[0].ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.CheckAvailable(ctx, p.ID, sizes[1].ID, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDecrementStockGuardsAgainstOversell(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db)

	ps := &product.ProductSize{ProductID: 1, SizeID: 1, Stock: 5}
	require.NoError(t, db.Create(ps).Error)

	require.NoError(t, repo.DecrementStock(db, ps.ID, 3))
	var got product.ProductSize
	require.NoError(t, db.First(&got, ps.ID).Error)
	assert.Equal(t, int64(2), got.Stock)

	// 剩 2 件时要 3 件不命中任何行，库存保持不变
	err := repo.DecrementStock(db, ps.ID, 3)
	assert.ErrorIs(t, err, product.ErrOversell)
	require.NoError(t, db.First(&got, ps.ID).Error)
	assert.Equal(t, int64(2), got.Stock)

	// 正好扣到 0 是合法的
	require.NoError(t, repo.DecrementStock(db, ps.ID, 2))
	require.NoError(t, db.First(&got, ps.ID).Error)
	assert.Equal(t, int64(0), got.Stock)

	err = repo.DecrementStock(db, ps.ID, 1)
	assert.ErrorIs(t, err, product.ErrOversell)
}

func TestRestoreStock(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db)

	ps := &product.ProductSize{ProductID: 1, SizeID: 1, Stock: 0}
	require.NoError(t, db.Create(ps).Error)

	require.NoError(t, repo.RestoreStock(db, ps.ID, 4))
	var got product.ProductSize
	require.NoError(t, db.First(&got, ps.ID).Error)
	assert.Equal(t, int64(4), got.Stock)
}
