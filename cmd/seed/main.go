package main

import (
	"flag"
	"log"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/DmitriyRebrykov/BlockWear/internal/config"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/category"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/product"
	"github.com/DmitriyRebrykov/BlockWear/internal/logger"
	"github.com/DmitriyRebrykov/BlockWear/internal/repository/mysql"
)

// seed 建表并写入演示数据：分类、尺码和一批带库存的商品
func main() {
	configPath := flag.String("config", "", "配置文件路径，留空使用默认配置")
	flag.Parse()

	if err := logger.Init(true); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zap.L().Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.L().Fatal("load config failed", zap.Error(err))
	}

	db := mysql.Init(&cfg.MySQL)
	if err := mysql.Migrate(db); err != nil {
		zap.L().Fatal("migrate failed", zap.Error(err))
	}

	categories := []*category.Category{
		{Name: "Boots", Slug: "boots"},
		{Name: "Sneakers", Slug: "sneakers"},
		{Name: "Sandals", Slug: "sandals"},
	}
	for _, c := range categories {
		if err := db.Where(category.Category{Slug: c.Slug}).FirstOrCreate(c).Error; err != nil {
			zap.L().Fatal("seed category failed", zap.String("slug", c.Slug), zap.Error(err))
		}
	}

	sizes := []*product.Size{
		{Name: "38"}, {Name: "39"}, {Name: "40"},
		{Name: "41"}, {Name: "42"}, {Name: "43"},
	}
	for _, s := range sizes {
		if err := db.Where(product.Size{Name: s.Name}).FirstOrCreate(s).Error; err != nil {
			zap.L().Fatal("seed size failed", zap.String("size", s.Name), zap.Error(err))
		}
	}

	products := []*product.Product{
		{
			Name:        "Trail Boot",
			Slug:        "trail-boot",
			Description: "Waterproof leather boot with a lugged outsole.",
			Price:       decimal.NewFromFloat(129.90),
			Color:       "brown",
			MainImage:   "/uploads/products/trail-boot.jpg",
			CategoryID:  categories[0].ID,
		},
		{
			Name:           "City Runner",
			Slug:           "city-runner",
			Description:    "Lightweight knit sneaker for everyday wear.",
			Price:          decimal.NewFromFloat(89.00),
			Color:          "white",
			MainImage:      "/uploads/products/city-runner.jpg",
			StatusDiscount: true,
			CategoryID:     categories[1].ID,
		},
		{
			Name:        "Canyon Sandal",
			Slug:        "canyon-sandal",
			Description: "Strapped sandal with a contoured footbed.",
			Price:       decimal.NewFromFloat(49.50),
			Color:       "black",
			MainImage:   "/uploads/products/canyon-sandal.jpg",
			CategoryID:  categories[2].ID,
		},
	}
	for _, p := range products {
		if err := db.Where(product.Product{Slug: p.Slug}).FirstOrCreate(p).Error; err != nil {
			zap.L().Fatal("seed product failed", zap.String("slug", p.Slug), zap.Error(err))
		}
		for _, s := range sizes {
			ps := &product.ProductSize{ProductID: p.ID, SizeID: s.ID, Stock: 25}
			if err := db.Where(product.ProductSize{ProductID: p.ID, SizeID: s.ID}).
				FirstOrCreate(ps).Error; err != nil {
				zap.L().Fatal("seed product size failed",
					zap.String("slug", p.Slug), zap.String("size", s.Name), zap.Error(err))
			}
		}
	}

	zap.L().Info("seed complete",
		zap.Int("categories", len(categories)),
		zap.Int("sizes", len(sizes)),
		zap.Int("products", len(products)))
}
