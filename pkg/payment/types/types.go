// Package types 定义支付网关的通用类型
package types

import (
	"context"
	"strings"

	"github.com/spf13/cast"

	"elink/app/models/order"
)

// Method 支付方式
type Method string

const (
	MethodAlipay Method = "alipay" // 支付宝
	MethodWxpay  Method = "wxpay"  // 微信支付
)

// ParseMethod 非法值回退为支付宝
func ParseMethod(value string) Method {
	if value == string(MethodWxpay) {
		return MethodWxpay
	}
	return MethodAlipay
}

// QrResult 创建二维码支付的结果
type QrResult struct {
	TradeNo string // 网关侧交易号
	QRCode  string // 二维码内容
	QRImage string // 二维码图片地址
	PayURL  string // 收银台跳转地址

	// Raw 网关原始响应，留档用
	Raw map[string]interface{}
}

// QueryResult 订单查询的原始响应
type QueryResult map[string]interface{}

// TradeNo 取网关交易号
func (q QueryResult) TradeNo() string {
	return cast.ToString(q["trade_no"])
}

// CodeOK 判断业务码是否成功：1、"1" 或 "SUCCESS"（忽略大小写）
func (q QueryResult) CodeOK() bool {
	code, ok := q["code"]
	if !ok {
		return false
	}
	value := strings.TrimSpace(cast.ToString(code))
	return value == "1" || strings.EqualFold(value, "SUCCESS")
}

// TradeStatus 按候选字段顺序提取交易状态
// 网关不同版本的状态字段名不一致，按固定顺序逐个探测。
func (q QueryResult) TradeStatus() string {
	return ExtractTradeStatus(func(key string) (string, bool) {
		value, ok := q[key]
		if !ok || value == nil {
			return "", false
		}
		return cast.ToString(value), true
	})
}

// statusFieldCandidates 状态字段的候选名，按优先级排列
var statusFieldCandidates = []string{
	"status",
	"trade_status",
	"trade_state",
	"state",
	"order_status",
	"pay_status",
}

// ExtractTradeStatus 按候选顺序取第一个存在的状态字段
func ExtractTradeStatus(get func(key string) (string, bool)) string {
	for _, key := range statusFieldCandidates {
		if value, ok := get(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// paidStatusSynonyms 各版本网关表示"已支付"的取值全集
var paidStatusSynonyms = map[string]struct{}{
	"1":             {},
	"PAID":          {},
	"SUCCESS":       {},
	"SUCCEED":       {},
	"TRADE_SUCCESS": {},
	"FINISHED":      {},
	"COMPLETED":     {},
	"OK":            {},
	"PAY_SUCCESS":   {},
}

// PaidStatus 判断状态值是否表示已支付
func PaidStatus(value string) bool {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return false
	}
	if _, ok := paidStatusSynonyms[strings.ToUpper(normalized)]; ok {
		return true
	}
	// 中文语义的支付成功描述，如"已支付""支付成功"
	return strings.Contains(normalized, "支付")
}

// Gateway 支付网关客户端接口
type Gateway interface {
	// IsConfigured 网关参数是否已配置
	IsConfigured() bool

	// CreateQrPayment 创建二维码支付
	CreateQrPayment(ctx context.Context, o *order.Order, method Method, description string) (*QrResult, error)

	// QueryOrder 查询订单状态，返回网关原始响应
	QueryOrder(ctx context.Context, orderNo string) (QueryResult, error)

	// VerifySign 校验回调签名
	VerifySign(payload map[string]string) bool
}
