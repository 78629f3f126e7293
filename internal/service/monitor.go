package service

import (
	"sync"
	"time"
)

// Monitor 监控服务，统计结算/回调链路的错误与吞吐
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	PaymentErrors  int64
	DBErrors       int64
	WebhookErrors  int64
	OversellErrors int64

	// 业务统计
	CheckoutRequests  int64
	OrdersCreated     int64
	OrdersCancelled   int64
	OrdersRefunded    int64
	WebhookEvents     int64
	WebhookDuplicates int64

	// 时间统计
	LastPaymentError time.Time
	LastWebhookTime  time.Time
	LastOrderTime    time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordPaymentError 记录支付网关错误
func (m *Monitor) RecordPaymentError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentErrors++
	m.LastPaymentError = time.Now()
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
}

// RecordWebhookError 记录回调校验/处理失败
func (m *Monitor) RecordWebhookError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WebhookErrors++
}

// RecordOversell 记录因库存不足被拒绝的落单
func (m *Monitor) RecordOversell() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OversellErrors++
}

// RecordCheckoutRequest 记录结算请求
func (m *Monitor) RecordCheckoutRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckoutRequests++
}

// RecordOrderCreated 记录订单创建
func (m *Monitor) RecordOrderCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersCreated++
	m.LastOrderTime = time.Now()
}

// RecordOrderCancelled 记录订单取消
func (m *Monitor) RecordOrderCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersCancelled++
}

// RecordOrderRefunded 记录订单退款
func (m *Monitor) RecordOrderRefunded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersRefunded++
}

// RecordWebhookEvent 记录收到的回调事件
func (m *Monitor) RecordWebhookEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WebhookEvents++
	m.LastWebhookTime = time.Now()
}

// RecordWebhookDuplicate 记录被去重跳过的回调事件
func (m *Monitor) RecordWebhookDuplicate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WebhookDuplicates++
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conversionRate := float64(0)
	if m.CheckoutRequests > 0 {
		conversionRate = float64(m.OrdersCreated) / float64(m.CheckoutRequests) * 100
	}

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"payment":  m.PaymentErrors,
			"db":       m.DBErrors,
			"webhook":  m.WebhookErrors,
			"oversell": m.OversellErrors,
		},
		"orders": map[string]interface{}{
			"checkout_requests": m.CheckoutRequests,
			"created":           m.OrdersCreated,
			"cancelled":         m.OrdersCancelled,
			"refunded":          m.OrdersRefunded,
			"conversion_rate":   conversionRate,
		},
		"webhooks": map[string]interface{}{
			"events":     m.WebhookEvents,
			"duplicates": m.WebhookDuplicates,
		},
		"last_events": map[string]interface{}{
			"payment_error": m.LastPaymentError,
			"webhook":       m.LastWebhookTime,
			"order":         m.LastOrderTime,
		},
	}
}

// Reset 重置统计（用于测试）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentErrors = 0
	m.DBErrors = 0
	m.WebhookErrors = 0
	m.OversellErrors = 0
	m.CheckoutRequests = 0
	m.OrdersCreated = 0
	m.OrdersCancelled = 0
	m.OrdersRefunded = 0
	m.WebhookEvents = 0
	m.WebhookDuplicates = 0
}
