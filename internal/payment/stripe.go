package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/DmitriyRebrykov/BlockWear/internal/config"
)

type stripeProvider struct {
	cfg *config.StripeConfig
}

// NewStripeProvider 创建 Stripe 支付网关客户端
func NewStripeProvider(cfg *config.StripeConfig) Provider {
	stripe.Key = cfg.SecretKey
	return &stripeProvider{cfg: cfg}
}

func (p *stripeProvider) CreateIntent(ctx context.Context, amountMinor int64, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(p.cfg.Currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

func (p *stripeProvider) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}
	if pi.LatestCharge != nil {
		intent.LatestCharge = pi.LatestCharge.ID
	}
	return intent
}

// ParseWebhook 用共享密钥校验回调签名，再解析出本系统关心的字段
func (p *stripeProvider) ParseWebhook(payload []byte, sigHeader string) (*Event, error) {
	ev, err := webhook.ConstructEvent(payload, sigHeader, p.cfg.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	out := &Event{
		ID:   ev.ID,
		Type: string(ev.Type),
	}

	switch out.Type {
	case EventIntentSucceeded, EventIntentFailed:
		var obj struct {
			ID           string `json:"id"`
			LatestCharge string `json:"latest_charge"`
			LastError    struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		}
		if err := json.Unmarshal(ev.Data.Raw, &obj); err != nil {
			return nil, fmt.Errorf("decode payment_intent payload: %w", err)
		}
		out.IntentID = obj.ID
		out.LatestCharge = obj.LatestCharge
		out.FailureMessage = obj.LastError.Message
	case EventChargeRefunded:
		var obj struct {
			ID            string `json:"id"`
			PaymentIntent string `json:"payment_intent"`
		}
		if err := json.Unmarshal(ev.Data.Raw, &obj); err != nil {
			return nil, fmt.Errorf("decode charge payload: %w", err)
		}
		out.ChargeID = obj.ID
		out.IntentID = obj.PaymentIntent
	}
	return out, nil
}
