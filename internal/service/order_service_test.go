package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/order"
	"github.com/DmitriyRebrykov/BlockWear/internal/repository/mysql"
)

func TestConfirmationAccessControl(t *testing.T) {
	db := testDB(t)
	svc := NewOrderService(mysql.NewOrderRepository(db))
	ctx := context.Background()

	owner := int64(7)
	userOrder := &order.Order{
		OrderNumber: "n-1", UserID: &owner,
		Email: "owner@example.com", Status: order.StatusPaid,
	}
	guestOrder := &order.Order{
		OrderNumber: "n-2",
		Email:       "guest@example.com", Status: order.StatusPaid,
	}
	require.NoError(t, db.Create(userOrder).Error)
	require.NoError(t, db.Create(guestOrder).Error)

	// 下单人本人可见
	got, err := svc.Confirmation(ctx, userOrder.ID, &owner, false, "")
	require.NoError(t, err)
	assert.Equal(t, userOrder.ID, got.ID)

	// 其他用户与未登录者都不可见
	other := int64(8)
	_, err = svc.Confirmation(ctx, userOrder.ID, &other, false, "")
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
	_, err = svc.Confirmation(ctx, userOrder.ID, nil, false, "")
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	// 游客订单靠会话中的下单邮箱
	got, err = svc.Confirmation(ctx, guestOrder.ID, nil, false, "guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, guestOrder.ID, got.ID)
	_, err = svc.Confirmation(ctx, guestOrder.ID, nil, false, "")
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
	_, err = svc.Confirmation(ctx, guestOrder.ID, nil, false, "stranger@example.com")
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	// 管理员全量可见
	got, err = svc.Confirmation(ctx, guestOrder.ID, &other, true, "")
	require.NoError(t, err)
	assert.Equal(t, guestOrder.ID, got.ID)

	_, err = svc.Confirmation(ctx, 9999, nil, false, "")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListByUserScopesToOwner(t *testing.T) {
	db := testDB(t)
	svc := NewOrderService(mysql.NewOrderRepository(db))
	ctx := context.Background()

	u1, u2 := int64(1), int64(2)
	require.NoError(t, db.Create(&order.Order{OrderNumber: "a", UserID: &u1, Email: "a@x.com", Status: order.StatusPaid}).Error)
	require.NoError(t, db.Create(&order.Order{OrderNumber: "b", UserID: &u1, Email: "a@x.com", Status: order.StatusPaid}).Error)
	require.NoError(t, db.Create(&order.Order{OrderNumber: "c", UserID: &u2, Email: "b@x.com", Status: order.StatusPaid}).Error)

	list, err := svc.ListByUser(ctx, u1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestListRecentNewestFirst(t *testing.T) {
	db := testDB(t)
	svc := NewOrderService(mysql.NewOrderRepository(db))
	ctx := context.Background()

	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, db.Create(&order.Order{OrderNumber: n, Email: "x@x.com", Status: order.StatusPaid}).Error)
	}

	list, err := svc.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].OrderNumber)
	assert.Equal(t, "b", list[1].OrderNumber)
}
