package service

import (
	"context"

	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/order"
)

// OrderService 订单查询
type OrderService struct {
	repo order.Repository
}

// NewOrderService 创建订单服务
func NewOrderService(repo order.Repository) *OrderService {
	return &OrderService{repo: repo}
}

// ListByUser 查询用户自己的订单
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListRecent 查询最新订单记录
func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.repo.ListRecent(ctx, limit)
}

// Confirmation 订单确认页：只对下单人开放，游客订单校验会话里的下单邮箱
func (s *OrderService) Confirmation(ctx context.Context, orderID int64, userID *int64, isStaff bool, guestEmail string) (*order.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if isStaff {
		return o, nil
	}
	if o.UserID != nil {
		if userID == nil || *userID != *o.UserID {
			return nil, ErrOrderAccessDenied
		}
		return o, nil
	}
	if guestEmail == "" || guestEmail != o.Email {
		return nil, ErrOrderAccessDenied
	}
	return o, nil
}
