package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	radix "github.com/mediocregopher/radix/v3"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DmitriyRebrykov/BlockWear/internal/config"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/checkout"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/order"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/product"
	"github.com/DmitriyRebrykov/BlockWear/internal/infra/mq"
	"github.com/DmitriyRebrykov/BlockWear/internal/payment"
)

const (
	draftSessionKey = "checkout_draft"

	// redisWebhookEventKey 回调事件去重标记，eventID
	redisWebhookEventKey = "webhook:evt:%s"
	webhookDedupeSeconds = 86400
)

// OrderEvent 写入 MQ 的订单事件，由 order-worker 消费
type OrderEvent struct {
	Type        string `json:"type"` // order.paid / order.refunded / order.cancelled
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Email       string `json:"email"`
}

// CheckoutService 结算与订单生命周期。
// 订单在支付确认前只以会话草稿存在，支付成功后在单个事务里物化：
// 建订单、建明细、扣库存，任一步失败整体回滚，不留下可见的半成品订单。
type CheckoutService struct {
	db          *gorm.DB
	productRepo product.Repository
	orderRepo   order.Repository
	cartSvc     *CartService
	provider    payment.Provider
	cfg         *config.CheckoutConfig
	redis       radix.Client
	mqConn      *amqp.Connection
}

// NewCheckoutService 创建结算服务。redis 与 mqConn 允许为 nil（测试场景），
// 为 nil 时分别跳过回调去重与事件发布。
func NewCheckoutService(
	db *gorm.DB,
	productRepo product.Repository,
	orderRepo order.Repository,
	cartSvc *CartService,
	provider payment.Provider,
	cfg *config.CheckoutConfig,
	redisClient radix.Client,
	mqConn *amqp.Connection,
) *CheckoutService {
	return &CheckoutService{
		db:          db,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		cartSvc:     cartSvc,
		provider:    provider,
		cfg:         cfg,
		redis:       redisClient,
		mqConn:      mqConn,
	}
}

// ComputeAmounts 结算金额：小计达到免邮门槛运费为 0 否则固定运费，
// 税对（小计+运费）计
func (s *CheckoutService) ComputeAmounts(subtotal decimal.Decimal) checkout.Amounts {
	shipping := s.cfg.FlatShipping
	if subtotal.GreaterThanOrEqual(s.cfg.FreeShippingOver) {
		shipping = decimal.Zero
	}
	tax := subtotal.Add(shipping).Mul(s.cfg.TaxRate).Round(2)
	return checkout.Amounts{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// Begin 提交结算表单：校验、计算金额、在网关创建支付意向，
// 并把草稿整体写入会话。此时数据库里还没有任何订单行。
func (s *CheckoutService) Begin(ctx context.Context, sess Session, form checkout.Form) (*checkout.Draft, error) {
	GetMonitor().RecordCheckoutRequest()

	c := s.cartSvc.Load(sess)
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	amounts := s.ComputeAmounts(c.Total())
	intent, err := s.provider.CreateIntent(ctx, amounts.TotalMinorUnits(), map[string]string{
		"email": form.Email,
	})
	if err != nil {
		GetMonitor().RecordPaymentError()
		zap.L().Error("create payment intent failed", zap.Error(err))
		return nil, fmt.Errorf("支付服务暂不可用，请稍后重试: %w", err)
	}

	draft := &checkout.Draft{
		Form:            form,
		Amounts:         amounts,
		PaymentIntentID: intent.ID,
	}
	s.saveDraft(sess, draft)
	return draft, nil
}

// Draft 从会话读取结算草稿
func (s *CheckoutService) Draft(sess Session) (*checkout.Draft, error) {
	raw := sess.GetString(draftSessionKey)
	if raw == "" {
		return nil, ErrNoDraft
	}
	var d checkout.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, ErrNoDraft
	}
	return &d, nil
}

func (s *CheckoutService) saveDraft(sess Session, d *checkout.Draft) {
	data, _ := json.Marshal(d)
	sess.Set(draftSessionKey, string(data))
}

// ClientSecret 支付页所需的网关凭据
func (s *CheckoutService) ClientSecret(ctx context.Context, sess Session) (string, error) {
	draft, err := s.Draft(sess)
	if err != nil {
		return "", err
	}
	intent, err := s.provider.GetIntent(ctx, draft.PaymentIntentID)
	if err != nil {
		GetMonitor().RecordPaymentError()
		return "", fmt.Errorf("支付会话已过期，请重新结算: %w", err)
	}
	return intent.ClientSecret, nil
}

// Confirm 支付成功回跳后的订单物化。
// 先向网关直接核实意向状态（不信任客户端），再在一个事务里
// 建订单 + 建明细（按快照价）+ 条件扣库存，随后清空购物车与草稿。
// 对同一支付意向重复调用时返回已存在的订单，不重复落库。
func (s *CheckoutService) Confirm(ctx context.Context, sess Session, userID *int64) (*order.Order, error) {
	draft, err := s.Draft(sess)
	if err != nil {
		return nil, err
	}

	intent, err := s.provider.GetIntent(ctx, draft.PaymentIntentID)
	if err != nil {
		GetMonitor().RecordPaymentError()
		zap.L().Error("retrieve payment intent failed", zap.Error(err))
		return nil, fmt.Errorf("支付状态核实失败: %w", err)
	}
	if intent.Status != payment.IntentStatusSucceeded {
		return nil, ErrPaymentNotSucceeded
	}

	// 回调可能先一步创建了订单
	if existing, err := s.orderRepo.GetByPaymentIntentID(ctx, draft.PaymentIntentID); err == nil {
		s.finishSession(sess)
		return existing, nil
	}

	c := s.cartSvc.Load(sess)
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	o := &order.Order{
		OrderNumber:           uuid.NewString(),
		UserID:                userID,
		Email:                 draft.Form.Email,
		FirstName:             draft.Form.FirstName,
		LastName:              draft.Form.LastName,
		Phone:                 draft.Form.Phone,
		AddressLine1:          draft.Form.AddressLine1,
		AddressLine2:          draft.Form.AddressLine2,
		City:                  draft.Form.City,
		PostalCode:            draft.Form.PostalCode,
		Country:               draft.Form.Country,
		CustomerNotes:         draft.Form.CustomerNotes,
		Status:                order.StatusPaid,
		TotalAmount:           draft.Amounts.Total,
		ShippingCost:          draft.Amounts.Shipping,
		TaxAmount:             draft.Amounts.Tax,
		StripePaymentIntentID: draft.PaymentIntentID,
		StripeChargeID:        intent.LatestCharge,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		for _, line := range c.Lines {
			var ps product.ProductSize
			if err := tx.Where("product_id = ? AND size_id = ?", line.ProductID, line.SizeID).
				First(&ps).Error; err != nil {
				return fmt.Errorf("尺码记录不存在: %w", err)
			}
			item := order.OrderItem{
				OrderID:       o.ID,
				ProductID:     line.ProductID,
				ProductSizeID: ps.ID,
				Price:         line.Price, // 快照价，不回查现价
				Quantity:      line.Quantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			if err := s.productRepo.DecrementStock(tx, ps.ID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, product.ErrOversell) {
			GetMonitor().RecordOversell()
			zap.L().Warn("order rejected, stock exhausted between check and finalize",
				zap.String("intent", draft.PaymentIntentID))
		} else {
			GetMonitor().RecordDBError()
		}
		zap.L().Error("order creation failed, transaction rolled back", zap.Error(err))
		return nil, ErrOrderCreateFailed
	}

	GetMonitor().RecordOrderCreated()
	s.publishEvent(OrderEvent{
		Type:        "order.paid",
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Email:       o.Email,
	})
	s.finishSession(sess)

	o.Items = nil // 响应里重新查询时再带明细
	return o, nil
}

// finishSession 结算完成后清理会话状态
func (s *CheckoutService) finishSession(sess Session) {
	s.cartSvc.Clear(sess)
	sess.Delete(draftSessionKey)
}

// HandleWebhook 处理已验签的网关回调。投递语义是至少一次，
// 先用 Redis 按事件 ID 去重，再按订单状态做幂等：状态已迁移的事件只确认不重做。
// 事件 ID 只在处理成功后才打上标记，处理失败的投递返回错误，重投时不会被去重拦截。
func (s *CheckoutService) HandleWebhook(ctx context.Context, ev *payment.Event) error {
	GetMonitor().RecordWebhookEvent()

	if s.isDuplicateEvent(ev.ID) {
		GetMonitor().RecordWebhookDuplicate()
		zap.L().Info("webhook event already processed", zap.String("event", ev.ID))
		return nil
	}

	var err error
	switch ev.Type {
	case payment.EventIntentSucceeded:
		err = s.handleIntentSucceeded(ctx, ev)
	case payment.EventIntentFailed:
		err = s.handleIntentFailed(ctx, ev)
	case payment.EventChargeRefunded:
		err = s.handleChargeRefunded(ctx, ev)
	default:
		zap.L().Debug("ignoring webhook event", zap.String("type", ev.Type))
	}
	if err != nil {
		return err
	}
	s.markEventHandled(ev.ID)
	return nil
}

func (s *CheckoutService) isDuplicateEvent(eventID string) bool {
	if s.redis == nil || eventID == "" {
		return false
	}
	key := fmt.Sprintf(redisWebhookEventKey, eventID)
	var exists int
	err := s.redis.Do(radix.Cmd(&exists, "EXISTS", key))
	if err != nil {
		// Redis 不可用时退回到状态幂等，不拦截事件
		zap.L().Warn("webhook dedupe unavailable", zap.Error(err))
		return false
	}
	return exists == 1
}

func (s *CheckoutService) markEventHandled(eventID string) {
	if s.redis == nil || eventID == "" {
		return
	}
	key := fmt.Sprintf(redisWebhookEventKey, eventID)
	err := s.redis.Do(radix.Cmd(nil, "SET", key, "1", "EX", fmt.Sprint(webhookDedupeSeconds)))
	if err != nil {
		zap.L().Warn("mark webhook event failed", zap.Error(err))
	}
}

// handleIntentSucceeded 成功回调：补记 charge 引用。
// 订单可能尚未由回跳流程创建，此时只记录等待下次投递。
func (s *CheckoutService) handleIntentSucceeded(ctx context.Context, ev *payment.Event) error {
	o, err := s.orderRepo.GetByPaymentIntentID(ctx, ev.IntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("order not found for succeeded intent", zap.String("intent", ev.IntentID))
			return nil
		}
		return err
	}
	if o.StripeChargeID != "" || ev.LatestCharge == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND stripe_charge_id = ''", o.ID).
		Update("stripe_charge_id", ev.LatestCharge).Error
}

func (s *CheckoutService) handleIntentFailed(ctx context.Context, ev *payment.Event) error {
	o, err := s.orderRepo.GetByPaymentIntentID(ctx, ev.IntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("order not found for failed intent", zap.String("intent", ev.IntentID))
			return nil
		}
		return err
	}
	if o.Status == order.StatusCancelled {
		return nil // 重复投递
	}
	if !order.CanTransition(o.Status, order.StatusCancelled) {
		zap.L().Warn("ignoring payment_failed for order in terminal state",
			zap.Int64("order", o.ID), zap.String("status", o.Status))
		return nil
	}

	reason := ev.FailureMessage
	if reason == "" {
		reason = "unknown error"
	}
	err = s.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND status = ?", o.ID, o.Status).
		Updates(map[string]interface{}{
			"status":      order.StatusCancelled,
			"admin_notes": "Payment failed: " + reason,
		}).Error
	if err != nil {
		return err
	}
	GetMonitor().RecordOrderCancelled()
	s.publishEvent(OrderEvent{
		Type:        "order.cancelled",
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Email:       o.Email,
	})
	return nil
}

// handleChargeRefunded 退款回调：置为 refunded 并按明细数量恢复库存。
// 状态已是 refunded 时整体跳过，重放不会二次加库存。
func (s *CheckoutService) handleChargeRefunded(ctx context.Context, ev *payment.Event) error {
	o, err := s.orderRepo.GetByChargeID(ctx, ev.ChargeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("order not found for refunded charge", zap.String("charge", ev.ChargeID))
			return nil
		}
		return err
	}
	if o.Status == order.StatusRefunded {
		return nil // 重复投递
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 条件更新承担并发下的幂等：状态已被别的投递改掉时这里不命中
		res := tx.Model(&order.Order{}).
			Where("id = ? AND status <> ?", o.ID, order.StatusRefunded).
			Update("status", order.StatusRefunded)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		for _, item := range o.Items {
			if err := s.productRepo.RestoreStock(tx, item.ProductSizeID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		GetMonitor().RecordDBError()
		return err
	}

	GetMonitor().RecordOrderRefunded()
	s.publishEvent(OrderEvent{
		Type:        "order.refunded",
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Email:       o.Email,
	})
	return nil
}

// publishEvent 把订单事件写入 MQ，失败只记日志不影响主流程
func (s *CheckoutService) publishEvent(ev OrderEvent) {
	if s.mqConn == nil {
		return
	}
	ch, err := s.mqConn.Channel()
	if err != nil {
		zap.L().Error("open mq channel failed", zap.Error(err))
		return
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(mq.OrderQueue, true, false, false, false, nil); err != nil {
		zap.L().Error("declare queue failed", zap.Error(err))
		return
	}
	body, err := json.Marshal(&ev)
	if err != nil {
		return
	}
	err = ch.PublishWithContext(context.Background(), "", mq.OrderQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		zap.L().Error("publish order event failed", zap.Error(err), zap.String("type", ev.Type))
	}
}
