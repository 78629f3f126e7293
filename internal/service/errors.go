package service

import "errors"

var (
	// ErrInvalidQuantity 数量参数非法
	ErrInvalidQuantity = errors.New("数量必须大于 0")
	// ErrEmptyCart 空购物车不能结算
	ErrEmptyCart = errors.New("购物车是空的")
	// ErrNoDraft 会话中没有待支付的结算草稿
	ErrNoDraft = errors.New("请先完成结算表单")
	// ErrPaymentNotSucceeded 支付网关侧状态不是成功
	ErrPaymentNotSucceeded = errors.New("支付未成功")
	// ErrOrderCreateFailed 订单落库失败后给用户的统一提示。
	// 该流程不自动重试，重试可能造成重复扣款或重复扣库存。
	ErrOrderCreateFailed = errors.New("订单处理失败，请联系客服")
	// ErrOrderAccessDenied 订单只对下单人（或对应游客会话）可见
	ErrOrderAccessDenied = errors.New("无权查看该订单")
)
