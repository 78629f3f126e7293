package service

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/cart"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/product"
)

const cartSessionKey = "cart"

// Session 服务所需的最小会话能力，由 iris 的 session 实现
type Session interface {
	GetString(key string) string
	Set(key string, value interface{})
	Delete(key string) bool
}

// CartService 会话购物车服务。购物车本体存在会话里，
// 行内价格是加入时的快照，展示时再对照商品实时数据。
type CartService struct {
	productRepo product.Repository
}

// NewCartService 创建购物车服务
func NewCartService(productRepo product.Repository) *CartService {
	return &CartService{productRepo: productRepo}
}

// Load 从会话解出购物车，会话为空或数据损坏时返回空车
func (s *CartService) Load(sess Session) *cart.Cart {
	raw := sess.GetString(cartSessionKey)
	if raw == "" {
		return cart.New()
	}
	var c cart.Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		zap.L().Warn("corrupted cart in session, starting fresh", zap.Error(err))
		return cart.New()
	}
	if c.Lines == nil {
		c.Lines = make(map[string]*cart.Line)
	}
	return &c
}

func (s *CartService) save(sess Session, c *cart.Cart) {
	data, _ := json.Marshal(c)
	sess.Set(cartSessionKey, string(data))
}

// Add 加购或修改数量。replace 为 true 时覆盖数量，否则累加。
// 这里的库存检查只服务于交互提示，真正的扣减发生在订单落库事务里。
func (s *CartService) Add(ctx context.Context, sess Session, productID, sizeID, qty int64, replace bool) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	ps, err := s.productRepo.GetProductSize(ctx, productID, sizeID)
	if err != nil {
		return err
	}

	c := s.Load(sess)
	wanted := qty
	if !replace {
		if line := c.Get(productID, sizeID); line != nil {
			wanted += line.Quantity
		}
	}
	if ps.Stock < wanted {
		return product.ErrNotEnoughStock
	}

	c.Add(productID, sizeID, qty, p.Price, replace)
	s.save(sess, c)
	return nil
}

// Remove 从购物车删除一条记录
func (s *CartService) Remove(sess Session, productID, sizeID int64) {
	c := s.Load(sess)
	c.Remove(productID, sizeID)
	s.save(sess, c)
}

// Clear 清空购物车
func (s *CartService) Clear(sess Session) {
	sess.Delete(cartSessionKey)
}

// ItemView 购物车展示行：快照价 + 商品/尺码的实时信息
type ItemView struct {
	cart.Line
	ProductName string          `json:"product_name"`
	ProductSlug string          `json:"product_slug"`
	MainImage   string          `json:"main_image"`
	SizeName    string          `json:"size_name"`
	Stock       int64           `json:"stock"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// View 购物车页面数据
type View struct {
	Items     []ItemView      `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int64           `json:"item_count"`
	LineCount int             `json:"line_count"`
}

// Detail 把购物车行与商品实时数据拼装成页面视图。
// 金额只用快照价，展示字段（名称、图、库存）查实时数据。
func (s *CartService) Detail(ctx context.Context, sess Session) (*View, error) {
	c := s.Load(sess)
	view := &View{
		Items:     make([]ItemView, 0, c.LineCount()),
		Subtotal:  c.Total(),
		ItemCount: c.ItemCount(),
		LineCount: c.LineCount(),
	}

	for _, line := range c.Lines {
		item := ItemView{
			Line:      *line,
			LineTotal: line.Total(),
		}
		p, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		item.ProductName = p.Name
		item.ProductSlug = p.Slug
		item.MainImage = p.MainImage

		if ps, err := s.productRepo.GetProductSize(ctx, line.ProductID, line.SizeID); err == nil {
			item.SizeName = ps.Size.Name
			item.Stock = ps.Stock
		}
		view.Items = append(view.Items, item)
	}
	return view, nil
}
