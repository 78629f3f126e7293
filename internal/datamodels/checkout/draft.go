package checkout

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Form 结算表单，校验通过后进入草稿
type Form struct {
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"address_line1"`
	AddressLine2  string `json:"address_line2"`
	City          string `json:"city"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	CustomerNotes string `json:"customer_notes"`
}

// Validate 基础表单校验，返回校验类错误
func (f *Form) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	if f.Email == "" || !strings.Contains(f.Email, "@") {
		return errors.New("邮箱格式不正确")
	}
	required := map[string]string{
		"first_name":    f.FirstName,
		"last_name":     f.LastName,
		"phone":         f.Phone,
		"address_line1": f.AddressLine1,
		"city":          f.City,
		"postal_code":   f.PostalCode,
		"country":       f.Country,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return errors.New("缺少必填项: " + field)
		}
	}
	return nil
}

// Amounts 结算金额拆分
type Amounts struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// TotalMinorUnits 总价的最小货币单位（分），传给支付网关
func (a Amounts) TotalMinorUnits() int64 {
	return a.Total.Mul(decimal.NewFromInt(100)).IntPart()
}

// Draft 结算草稿。订单在支付确认前只以该草稿形式存在于会话中，
// 不落任何数据库行；支付成功后草稿一次性物化为 Order。
// 草稿的唯一修改方是结算流程本身。
type Draft struct {
	Form            Form    `json:"form"`
	Amounts         Amounts `json:"amounts"`
	PaymentIntentID string  `json:"payment_intent_id"`
}
