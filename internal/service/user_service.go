package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/DmitriyRebrykov/BlockWear/internal/auth"
	"github.com/DmitriyRebrykov/BlockWear/internal/config"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/user"
)

// UserService 用户注册/登录与资料维护
type UserService struct {
	repo user.Repository
	jwt  *config.JWTConfig
}

// NewUserService 创建用户服务
func NewUserService(repo user.Repository, jwt *config.JWTConfig) *UserService {
	return &UserService{repo: repo, jwt: jwt}
}

func hashPassword(raw, salt string) string {
	h := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(h[:])
}

func newSalt() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Register 注册新用户
func (s *UserService) Register(ctx context.Context, u *user.User, password string) (*user.User, error) {
	if len(password) < 8 {
		return nil, errors.New("密码至少需要 8 位")
	}
	u.Salt = newSalt()
	u.Password = hashPassword(password, u.Salt)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 登录并返回 JWT
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", errors.New("邮箱或密码错误")
	}
	if hashPassword(password, u.Salt) != u.Password {
		return "", errors.New("邮箱或密码错误")
	}
	return auth.GenerateToken(s.jwt, u.ID, u.Email, u.IsStaff)
}

// Profile 用户资料，用于预填结算表单
func (s *UserService) Profile(ctx context.Context, userID int64) (*user.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile 更新收货资料
func (s *UserService) UpdateProfile(ctx context.Context, u *user.User) error {
	return s.repo.Update(ctx, u)
}
