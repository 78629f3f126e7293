package payment

import (
	"context"
)

// 支付意向状态，与网关侧取值保持一致
const (
	IntentStatusSucceeded = "succeeded"
)

// 消费的回调事件类型
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded  = "charge.refunded"
)

// Intent 支付网关侧的一次扣款尝试
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	LatestCharge string
}

// Event 已通过签名校验的回调事件
type Event struct {
	ID   string
	Type string
	// IntentID payment_intent 事件的意向 ID，charge 事件为其关联意向 ID
	IntentID string
	// ChargeID charge 事件的扣款 ID
	ChargeID string
	// LatestCharge 意向成功事件携带的扣款 ID
	LatestCharge string
	// FailureMessage 支付失败原因
	FailureMessage string
}

// Provider 支付网关契约。只描述本系统依赖的能力，
// 状态永远以向网关的直接查询为准，不信任客户端上报。
type Provider interface {
	CreateIntent(ctx context.Context, amountMinor int64, metadata map[string]string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	// ParseWebhook 校验签名并解析事件，签名不合法时返回错误
	ParseWebhook(payload []byte, sigHeader string) (*Event, error)
}
