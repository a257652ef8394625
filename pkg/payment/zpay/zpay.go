/*
	Package zpay ZPay 聚合支付网关客户端

	网关走 epay 风格的协议：表单参数按 key 字典序拼接后附加商户密钥做 MD5
	签名，下单用表单 POST，查询用带签名的 GET，回调以同样的算法验签。
*/
package zpay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"elink/app/models/order"
	"elink/pkg/logger"
	"elink/pkg/payment/types"
)

// DefaultBaseURL 网关默认地址
const DefaultBaseURL = "https://zpayz.cn"

// Config 网关配置
type Config struct {
	Pid       string        // 商户号
	Key       string        // 商户密钥
	Cid       string        // 渠道号，可选
	BaseURL   string        // 网关地址
	NotifyURL string        // 异步回调地址
	ReturnURL string        // 同步跳转地址（拼接 orderId 参数）
	Timeout   time.Duration // 请求超时
}

// Client ZPay 客户端，实现 types.Gateway
type Client struct {
	config Config
	client *resty.Client
}

// New 创建客户端
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Client{
		config: config,
		client: resty.New().
			SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
			SetTimeout(config.Timeout),
	}
}

// IsConfigured 商户号和密钥都配置了才可用
func (c *Client) IsConfigured() bool {
	return c.config.Pid != "" && c.config.Key != ""
}

// returnURLFor 拼接带订单 id 的同步跳转地址
func (c *Client) returnURLFor(orderID string) string {
	if c.config.ReturnURL == "" {
		return ""
	}
	separator := "?"
	if strings.Contains(c.config.ReturnURL, "?") {
		separator = "&"
	}
	return c.config.ReturnURL + separator + "orderId=" + url.QueryEscape(orderID)
}

// CreateQrPayment 创建二维码支付
// 网关返回非 200 或业务码非 1 时报错，错误信息带上网关的 msg。
func (c *Client) CreateQrPayment(ctx context.Context, o *order.Order, method types.Method, description string) (*types.QrResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if description == "" {
		description = "Balance Top-up"
	}

	params := map[string]string{
		"pid":          c.config.Pid,
		"type":         string(method),
		"out_trade_no": o.OrderNo,
		"notify_url":   c.config.NotifyURL,
		"return_url":   c.returnURLFor(o.ID),
		"name":         description,
		"money":        o.DisplayAmount,
		"clientip":     "",
		"device":       "pc",
		"param":        o.ID,
		"sign_type":    "MD5",
	}
	if c.config.Cid != "" {
		params["cid"] = c.config.Cid
	}
	params["sign"] = BuildSign(params, c.config.Key)

	logger.InfoString("ZPay", "CreateQrPayment", fmt.Sprintf(
		"发起二维码支付 订单:%s 方式:%s 金额:%s", o.OrderNo, method, o.DisplayAmount))

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(params).
		Post("/mapi.php")
	if err != nil {
		return nil, fmt.Errorf("请求 ZPay 下单接口失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		logger.ErrorString("ZPay", "CreateQrPayment", fmt.Sprintf(
			"mapi.php 非 200 响应 订单:%s 状态码:%d", o.OrderNo, resp.StatusCode()))
		return nil, fmt.Errorf("%w: HTTP %d", ErrGateway, resp.StatusCode())
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("解析 ZPay 下单响应失败: %w", err)
	}

	result := types.QueryResult(raw)
	if !result.CodeOK() {
		msg := strings.TrimSpace(stringField(raw, "msg"))
		logger.WarnString("ZPay", "CreateQrPayment", fmt.Sprintf(
			"下单被拒 订单:%s msg:%s", o.OrderNo, msg))
		if msg == "" {
			msg = "创建支付订单失败，请稍后重试"
		}
		return nil, fmt.Errorf("%w: %s", ErrGateway, msg)
	}

	qr := &types.QrResult{
		TradeNo: stringField(raw, "trade_no"),
		QRCode:  stringField(raw, "qrcode"),
		QRImage: stringField(raw, "img"),
		PayURL:  stringField(raw, "payurl"),
		Raw:     raw,
	}
	// 部分渠道不回收银台地址，用二维码内容兜底
	if qr.PayURL == "" {
		qr.PayURL = qr.QRCode
	}

	logger.InfoString("ZPay", "CreateQrPayment", fmt.Sprintf(
		"下单成功 订单:%s 交易号:%s", o.OrderNo, qr.TradeNo))
	return qr, nil
}

// QueryOrder 查询订单
// 只要求 HTTP 200，业务码和状态交给调用方判断。
func (c *Client) QueryOrder(ctx context.Context, orderNo string) (types.QueryResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"act":          "order",
			"pid":          c.config.Pid,
			"key":          c.config.Key,
			"out_trade_no": orderNo,
		}).
		Get("/api.php")
	if err != nil {
		return nil, fmt.Errorf("查询 ZPay 订单失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: 查询订单 HTTP %d", ErrGateway, resp.StatusCode())
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("解析 ZPay 查询响应失败: %w", err)
	}
	return types.QueryResult(raw), nil
}

// VerifySign 校验回调签名，比较时忽略大小写
func (c *Client) VerifySign(payload map[string]string) bool {
	if !c.IsConfigured() {
		return false
	}

	received := payload["sign"]
	if received == "" {
		return false
	}

	calculated := BuildSign(payload, c.config.Key)
	return strings.EqualFold(received, calculated)
}

func stringField(raw map[string]interface{}, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}
