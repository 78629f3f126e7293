package user

import (
	"context"
	"time"
)

// User 用户模型，地址字段用于预填结算表单
type User struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	Password   string    `gorm:"size:255;not null" json:"-"` // 已加密密码
	Salt       string    `gorm:"size:64" json:"-"`
	FirstName  string    `gorm:"size:50" json:"first_name"`
	LastName   string    `gorm:"size:50" json:"last_name"`
	Phone      string    `gorm:"size:20" json:"phone"`
	Address1   string    `gorm:"size:250" json:"address1"`
	Address2   string    `gorm:"size:250" json:"address2"`
	City       string    `gorm:"size:100" json:"city"`
	PostalCode string    `gorm:"size:20" json:"postal_code"`
	Country    string    `gorm:"size:100" json:"country"`
	IsStaff    bool      `json:"is_staff"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Repository 用户仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
}
