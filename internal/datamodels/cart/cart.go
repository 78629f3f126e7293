package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Line 购物车中的一条记录，键为 (商品, 尺码)，Price 为加入时的价格快照。
// 结算金额始终按快照价计算，商品在会话中途改价不会悄悄改变购物车总价。
type Line struct {
	ProductID int64           `json:"product_id"`
	SizeID    int64           `json:"size_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Total 该行小计（快照价 × 数量）
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(l.Quantity))
}

// Cart 会话级购物车，生命周期与会话一致
type Cart struct {
	Lines map[string]*Line `json:"lines"`
}

// New 创建空购物车
func New() *Cart {
	return &Cart{Lines: make(map[string]*Line)}
}

// Key 购物车行键，与会话中存储的格式保持一致
func Key(productID, sizeID int64) string {
	return fmt.Sprintf("%d_%d", productID, sizeID)
}

// Add 添加商品或更新数量。replace 为 true 时直接覆盖数量，否则累加。
// 行不存在时以 0 数量和当前价格快照创建。
func (c *Cart) Add(productID, sizeID, quantity int64, price decimal.Decimal, replace bool) {
	if c.Lines == nil {
		c.Lines = make(map[string]*Line)
	}
	key := Key(productID, sizeID)
	line, ok := c.Lines[key]
	if !ok {
		line = &Line{
			ProductID: productID,
			SizeID:    sizeID,
			Quantity:  0,
			Price:     price,
		}
		c.Lines[key] = line
	}
	if replace {
		line.Quantity = quantity
	} else {
		line.Quantity += quantity
	}
}

// Remove 删除一条记录
func (c *Cart) Remove(productID, sizeID int64) {
	delete(c.Lines, Key(productID, sizeID))
}

// Get 取出一条记录，不存在返回 nil
func (c *Cart) Get(productID, sizeID int64) *Line {
	return c.Lines[Key(productID, sizeID)]
}

// Total 全车总价 = Σ(快照价 × 数量)
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Total())
	}
	return total
}

// ItemCount 商品总件数
func (c *Cart) ItemCount() int64 {
	var n int64
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// LineCount 不同 (商品, 尺码) 组合的数量
func (c *Cart) LineCount() int {
	return len(c.Lines)
}

// IsEmpty 购物车是否为空
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clear 清空购物车
func (c *Cart) Clear() {
	c.Lines = make(map[string]*Line)
}
