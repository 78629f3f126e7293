package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 订单状态。订单只在支付确认成功后落库，初始状态即为 paid，
// pending/processing 只存在于会话中的结算草稿阶段。
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusPaid       = "paid"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

// validNext 订单状态机的合法迁移
var validNext = map[string][]string{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusPaid, StatusCancelled},
	StatusPaid:       {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {StatusRefunded},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to string) bool {
	for _, s := range validNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Order 订单模型。联系人与地址字段创建后不可变，只有 Status 会变化
type Order struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"size:64;uniqueIndex;not null" json:"order_number"`
	UserID      *int64 `gorm:"index" json:"user_id,omitempty"` // 游客下单时为空

	Email     string `gorm:"size:128;not null" json:"email"`
	FirstName string `gorm:"size:50;not null" json:"first_name"`
	LastName  string `gorm:"size:50;not null" json:"last_name"`
	Phone     string `gorm:"size:20;not null" json:"phone"`

	AddressLine1 string `gorm:"size:250;not null" json:"address_line1"`
	AddressLine2 string `gorm:"size:250" json:"address_line2"`
	City         string `gorm:"size:100;not null" json:"city"`
	PostalCode   string `gorm:"size:20;not null" json:"postal_code"`
	Country      string `gorm:"size:100;not null" json:"country"`

	Status string `gorm:"size:20;index;not null" json:"status"`

	TotalAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"shipping_cost"`
	TaxAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax_amount"`

	StripePaymentIntentID string `gorm:"size:250;index" json:"-"`
	StripeChargeID        string `gorm:"size:250;index" json:"-"`

	CustomerNotes string `gorm:"type:text" json:"customer_notes"`
	AdminNotes    string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 删除订单时级联删除订单明细
	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// OrderItem 订单明细，价格为下单时快照，创建后只读
type OrderItem struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	OrderID       int64           `gorm:"index;not null" json:"order_id"`
	ProductID     int64           `gorm:"index;not null" json:"product_id"`
	ProductSizeID int64           `gorm:"not null" json:"product_size_id"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity      int64           `gorm:"not null;default:1" json:"quantity"`
}

// Cost 该明细的小计
func (i OrderItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// TotalCost 总金额恒由已存明细推导，不回查商品现价，保证历史订单金额稳定
func (o *Order) TotalCost() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Cost())
	}
	return subtotal.Add(o.ShippingCost).Add(o.TaxAmount)
}

// Repository 订单仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*Order, error)
	GetByChargeID(ctx context.Context, chargeID string) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
}
