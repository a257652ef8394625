// Package billing 充值与对账编排
//
// 订单创建、轮询同步、异步回调三条路径在这里汇合，
// 最终都落到订单仓库幂等的 MarkPaid 上。
package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"elink/app/models/order"
	"elink/app/repositories"
	"elink/pkg/logger"
	"elink/pkg/payment/types"
)

const (
	// SyncInterval 轮询触发网关查询的最小间隔
	SyncInterval = 10 * time.Second
	// OrderTTLMinutes 新订单的有效期（分钟）
	OrderTTLMinutes = 30
)

var (
	// ErrChannelNotConfigured 支付渠道未配置
	ErrChannelNotConfigured = errors.New("支付渠道暂未配置，请联系管理员后重试")
	// ErrNotOwner 无权查看他人订单
	ErrNotOwner = errors.New("无权查看该订单的状态")
)

// Service 充值对账服务
type Service struct {
	orders   *repositories.OrderRepository
	balances *repositories.BalanceRepository
	pricing  *repositories.PricingRepository
	gateway  types.Gateway
}

// NewService 创建服务实例
func NewService(
	orders *repositories.OrderRepository,
	balances *repositories.BalanceRepository,
	pricing *repositories.PricingRepository,
	gateway types.Gateway,
) *Service {
	return &Service{
		orders:   orders,
		balances: balances,
		pricing:  pricing,
		gateway:  gateway,
	}
}

// TopUpParams 发起充值的参数
type TopUpParams struct {
	Email         string
	Amount        float64
	PaymentMethod string
}

// TopUpResult 发起充值的结果
type TopUpResult struct {
	Email         string     `json:"email"`
	OrderID       string     `json:"orderId"`
	OrderNo       string     `json:"orderNo"`
	DisplayAmount string     `json:"displayAmount"`
	QRCode        string     `json:"qrCode,omitempty"`
	QRImage       string     `json:"qrImage,omitempty"`
	PayURL        string     `json:"payUrl,omitempty"`
	PaymentMethod string     `json:"paymentMethod"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// TopUp 发起充值：创建订单并向网关请求二维码
// 网关下单失败时订单置为 failed，错误带上网关侧的提示。
func (s *Service) TopUp(ctx context.Context, params TopUpParams) (*TopUpResult, error) {
	if !s.gateway.IsConfigured() {
		return nil, ErrChannelNotConfigured
	}

	method := types.ParseMethod(params.PaymentMethod)

	o, err := s.orders.Create(ctx, repositories.CreateParams{
		Email:            params.Email,
		Amount:           params.Amount,
		Currency:         "CNY",
		PaymentMethod:    string(method),
		ExpiresInMinutes: OrderTTLMinutes,
	})
	if err != nil {
		return nil, err
	}

	qr, err := s.gateway.CreateQrPayment(ctx, o, method, "Balance top-up "+o.DisplayAmount)
	if err != nil {
		failed := order.StatusFailed
		if _, updateErr := s.orders.Update(ctx, o.ID, repositories.Patch{Status: &failed}); updateErr != nil {
			logger.ErrorString("充值", "标记下单失败", updateErr.Error())
		}
		return nil, err
	}

	patch := repositories.Patch{MapiPayload: qr.Raw}
	if qr.TradeNo != "" {
		patch.ProviderTradeNo = &qr.TradeNo
	}
	if qr.QRCode != "" {
		patch.QRCode = &qr.QRCode
	}
	if qr.QRImage != "" {
		patch.QRImage = &qr.QRImage
	}
	if qr.PayURL != "" {
		patch.PayURL = &qr.PayURL
	}

	updated, err := s.orders.Update(ctx, o.ID, patch)
	if err != nil {
		updated = o
	}

	return &TopUpResult{
		Email:         updated.Email,
		OrderID:       updated.ID,
		OrderNo:       updated.OrderNo,
		DisplayAmount: updated.DisplayAmount,
		QRCode:        updated.QRCode,
		QRImage:       updated.QRImage,
		PayURL:        updated.PayURL,
		PaymentMethod: updated.PaymentMethod,
		ExpiresAt:     updated.ExpiresAt,
	}, nil
}

// StatusResult 订单状态查询结果
type StatusResult struct {
	Status        order.Status `json:"status"`
	Balance       *float64     `json:"balance,omitempty"`
	Email         string       `json:"email"`
	OrderID       string       `json:"orderId"`
	OrderNo       string       `json:"orderNo"`
	DisplayAmount string       `json:"displayAmount"`
}

// OrderStatus 查询订单状态（轮询入口）
//
// pending 订单先做过期检查（不触达网关）；未过期且距上次同步超过
// SyncInterval 时向网关查询一次。sessionEmail 非空时校验订单归属。
func (s *Service) OrderStatus(ctx context.Context, orderID, sessionEmail string) (*StatusResult, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if sessionEmail != "" && order.NormalizeEmail(sessionEmail) != o.Email {
		return nil, ErrNotOwner
	}

	current := o
	now := time.Now()

	if o.IsPending() {
		if o.IsExpiredAt(now) {
			if expired, err := s.orders.Expire(ctx, o.ID); err == nil {
				current = expired
			}
		} else if s.gateway.IsConfigured() && s.shouldSync(o, now) {
			current = s.syncWithGateway(ctx, o, now)
		}
	}

	result := &StatusResult{
		Status:        current.Status,
		Email:         current.Email,
		OrderID:       current.ID,
		OrderNo:       current.OrderNo,
		DisplayAmount: current.DisplayAmount,
	}
	if current.IsPaid() {
		if b, err := s.balances.GetBalance(ctx, current.Email); err == nil {
			result.Balance = &b
		}
	}
	return result, nil
}

// shouldSync 距上次同步超过最小间隔才再查网关，纯粹为了给网关减压
func (s *Service) shouldSync(o *order.Order, now time.Time) bool {
	if o.LastSyncedAt == nil {
		return true
	}
	return now.Sub(*o.LastSyncedAt) > SyncInterval
}

// syncWithGateway 向网关查询一次并尝试推进订单状态
//
// 查询结果无论成败都记录 lastSyncedAt 和 syncAttempts；只有业务码和
// 交易状态同时判定成功才会标记支付。查询失败不向上抛错，等下次轮询重试。
func (s *Service) syncWithGateway(ctx context.Context, o *order.Order, now time.Time) *order.Order {
	attempts := o.SyncAttempts + 1

	query, err := s.gateway.QueryOrder(ctx, o.OrderNo)
	if err != nil {
		logger.ErrorString("对账", "查询网关失败", fmt.Sprintf(
			"订单:%s 错误:%v", o.OrderNo, err))
		if _, updateErr := s.orders.Update(ctx, o.ID, repositories.Patch{
			LastSyncedAt: &now,
			SyncAttempts: &attempts,
		}); updateErr != nil {
			logger.ErrorString("对账", "记录同步状态失败", updateErr.Error())
		}
		return s.refresh(ctx, o)
	}

	logger.InfoJSON("对账", "网关查询结果", map[string]interface{}{
		"orderId": o.ID,
		"orderNo": o.OrderNo,
		"raw":     map[string]interface{}(query),
	})

	if _, err := s.orders.Update(ctx, o.ID, repositories.Patch{
		LastSyncedAt: &now,
		SyncAttempts: &attempts,
		MapiPayload:  query,
	}); err != nil {
		logger.ErrorString("对账", "记录同步状态失败", err.Error())
	}

	if query.CodeOK() && types.PaidStatus(query.TradeStatus()) {
		paid, err := s.orders.MarkPaid(ctx, repositories.MarkPaidParams{
			OrderID:         o.ID,
			ProviderTradeNo: query.TradeNo(),
			NotifyPayload:   query,
			Operator:        "zpay:sync",
		})
		if err != nil {
			logger.ErrorString("对账", "标记支付失败", fmt.Sprintf(
				"订单:%s 错误:%v", o.OrderNo, err))
			return s.refresh(ctx, o)
		}
		return paid
	}

	return s.refresh(ctx, o)
}

func (s *Service) refresh(ctx context.Context, o *order.Order) *order.Order {
	if latest, err := s.orders.FindByID(ctx, o.ID); err == nil {
		return latest
	}
	return o
}

// GetBalance 查询余额
func (s *Service) GetBalance(ctx context.Context, email string) (float64, error) {
	return s.balances.GetBalance(ctx, email)
}

// ChargeResult 按量扣费结果
type ChargeResult struct {
	Email   string  `json:"email"`
	Cost    float64 `json:"cost"`
	Balance float64 `json:"balance"`
}

// ChargeUsage 按消耗的 token 数扣费并累计用量
// 折算后费用为 0 时不扣费不记用量。
func (s *Service) ChargeUsage(ctx context.Context, email string, tokens int64) (*ChargeResult, error) {
	normalized := order.NormalizeEmail(email)
	if normalized == "" {
		return nil, repositories.ErrEmptyEmail
	}
	if tokens < 0 {
		return nil, repositories.ErrInvalidTokens
	}

	tokenPricing, err := s.pricing.Get(ctx)
	if err != nil {
		return nil, err
	}

	cost := math.Round(tokenPricing.PricePerThousandTokens*float64(tokens)/1000*100) / 100
	if cost <= 0 {
		current, err := s.balances.GetBalance(ctx, normalized)
		if err != nil {
			return nil, err
		}
		return &ChargeResult{Email: normalized, Cost: 0, Balance: current}, nil
	}

	updated, err := s.balances.Debit(ctx, normalized, cost, normalized)
	if err != nil {
		return nil, err
	}

	if _, err := s.balances.AddUsage(ctx, normalized, tokens, cost); err != nil {
		logger.ErrorString("计费", "记录用量失败", err.Error())
	}

	return &ChargeResult{Email: normalized, Cost: cost, Balance: updated.Balance}, nil
}

// SweepOrders 巡检 pending 订单
//
// 过期的直接置为 expired；serverSideSync 打开时，对到期该同步的订单
// 主动查一次网关，保证没有客户端轮询时支付也能入账。
func (s *Service) SweepOrders(ctx context.Context, serverSideSync bool) {
	pending, err := s.orders.ListPending(ctx)
	if err != nil {
		logger.ErrorString("订单巡检", "读取订单失败", err.Error())
		return
	}

	now := time.Now()
	for i := range pending {
		o := &pending[i]

		if o.IsExpiredAt(now) {
			if _, err := s.orders.Expire(ctx, o.ID); err != nil {
				logger.ErrorString("订单巡检", "标记过期失败", fmt.Sprintf(
					"订单:%s 错误:%v", o.OrderNo, err))
			}
			continue
		}

		if serverSideSync && s.gateway.IsConfigured() && s.shouldSync(o, now) {
			s.syncWithGateway(ctx, o, now)
		}
	}
}
