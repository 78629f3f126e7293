package mysql

import (
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/DmitriyRebrykov/BlockWear/internal/config"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/category"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/order"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/product"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/review"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/user"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Migrate 自动迁移表结构，测试中也会复用
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&category.Category{},
		&product.Product{},
		&product.ProductImage{},
		&product.Size{},
		&product.ProductSize{},
		&user.User{},
		&order.Order{},
		&order.OrderItem{},
		&review.Review{},
		&review.ReviewImage{},
		&review.ReviewHelpful{},
	)
}

// Init 初始化全局 GORM 实例并自动迁移表结构
func Init(cfg *config.MySQLConfig) *gorm.DB {
	once.Do(func() {
		var err error
		// TranslateError 让唯一键冲突以 gorm.ErrDuplicatedKey 暴露
		db, err = gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{TranslateError: true})
		if err != nil {
			zap.L().Fatal("failed to connect mysql", zap.Error(err))
		}
		if err = Migrate(db); err != nil {
			zap.L().Fatal("auto migrate failed", zap.Error(err))
		}
	})
	return db
}

// DB 获取全局 DB
func DB() *gorm.DB {
	return db
}
