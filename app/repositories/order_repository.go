package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"elink/app/models/order"
	"elink/pkg/kvstore"
	"elink/pkg/logger"
)

// ErrOrderNotFound 订单不存在
var ErrOrderNotFound = errors.New("未找到对应的支付订单")

// OrderRepository 支付订单仓库，订单状态的唯一事实来源
// MarkPaid 是唯一会触达余额账本的操作。
type OrderRepository struct {
	store    kvstore.Store
	balances *BalanceRepository
	keys     *AccessKeyRepository
}

// NewOrderRepository 创建仓库实例
func NewOrderRepository(store kvstore.Store, balances *BalanceRepository, keys *AccessKeyRepository) *OrderRepository {
	return &OrderRepository{
		store:    store,
		balances: balances,
		keys:     keys,
	}
}

// CreateParams 创建订单参数
type CreateParams struct {
	Email            string
	Amount           float64
	Currency         string
	PaymentMethod    string
	ExpiresInMinutes int
}

// Create 创建待支付订单
func (r *OrderRepository) Create(ctx context.Context, params CreateParams) (*order.Order, error) {
	email := order.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmptyEmail
	}

	amount := order.NormalizeAmount(params.Amount)
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, ErrInvalidAmount
	}

	currency := params.Currency
	if currency == "" {
		currency = "CNY"
	}

	now := time.Now()
	record := order.Order{
		ID:            uuid.NewString(),
		OrderNo:       order.GenerateOrderNo(),
		Email:         email,
		Amount:        amount,
		DisplayAmount: order.ToDisplayAmount(amount),
		Currency:      currency,
		Channel:       order.Channel,
		PaymentMethod: order.NormalizePaymentMethod(params.PaymentMethod),
		Status:        order.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if params.ExpiresInMinutes > 0 {
		expiresAt := now.Add(time.Duration(params.ExpiresInMinutes) * time.Minute)
		record.ExpiresAt = &expiresAt
	}

	err := r.store.Update(ctx, kvstore.KeyPaymentOrders, func(raw string, _ bool) (string, error) {
		records := order.ParseCollection(raw)
		return order.EncodeCollection(append(records, record))
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByID 按内部 id 查找订单
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*order.Order, error) {
	if orderID == "" {
		return nil, ErrOrderNotFound
	}

	records, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == orderID {
			record := records[i]
			return &record, nil
		}
	}
	return nil, ErrOrderNotFound
}

// FindByOrderNo 按对外订单号查找订单
func (r *OrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	if orderNo == "" {
		return nil, ErrOrderNotFound
	}

	records, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].OrderNo == orderNo {
			record := records[i]
			return &record, nil
		}
	}
	return nil, ErrOrderNotFound
}

// ListPending 列出全部待支付订单（后台巡检用）
func (r *OrderRepository) ListPending(ctx context.Context) ([]order.Order, error) {
	records, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]order.Order, 0)
	for i := range records {
		if records[i].IsPending() {
			pending = append(pending, records[i])
		}
	}
	return pending, nil
}

// Patch 订单部分更新，nil 字段不修改
type Patch struct {
	Status              *order.Status
	ProviderTradeNo     *string
	QRCode              *string
	QRImage             *string
	PayURL              *string
	MapiPayload         map[string]interface{}
	NotifyPayload       map[string]interface{}
	LastSyncedAt        *time.Time
	SyncAttempts        *int
	BalanceAfterPayment *float64
}

// Update 合并部分字段，始终刷新 UpdatedAt
func (r *OrderRepository) Update(ctx context.Context, orderID string, patch Patch) (*order.Order, error) {
	var result order.Order
	err := r.store.Update(ctx, kvstore.KeyPaymentOrders, func(raw string, _ bool) (string, error) {
		records := order.ParseCollection(raw)
		index := findOrderIndex(records, orderID)
		if index < 0 {
			return "", ErrOrderNotFound
		}

		applyPatch(&records[index], patch)
		records[index].UpdatedAt = time.Now()
		result = records[index]
		return order.EncodeCollection(records)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Expire 将订单置为已过期
func (r *OrderRepository) Expire(ctx context.Context, orderID string) (*order.Order, error) {
	status := order.StatusExpired
	return r.Update(ctx, orderID, Patch{Status: &status})
}

// MarkPaidParams 标记已支付的参数
type MarkPaidParams struct {
	OrderID         string
	ProviderTradeNo string
	NotifyPayload   map[string]interface{}
	Operator        string
}

// MarkPaid 标记订单已支付（幂等）
//
// 先在乐观事务里完成 pending → paid 的状态抢占，抢占成功的调用方才去
// 入账余额、确保密钥存在；已经是 paid 的订单原样返回，不会重复入账。
// 两个并发的触发方（轮询与回调）最多只有一个能抢占成功。
func (r *OrderRepository) MarkPaid(ctx context.Context, params MarkPaidParams) (*order.Order, error) {
	var result order.Order
	err := r.store.Update(ctx, kvstore.KeyPaymentOrders, func(raw string, _ bool) (string, error) {
		records := order.ParseCollection(raw)
		index := findOrderIndex(records, params.OrderID)
		if index < 0 {
			return "", ErrOrderNotFound
		}

		if records[index].Status == order.StatusPaid {
			result = records[index]
			return "", kvstore.ErrAborted
		}

		now := time.Now()
		records[index].Status = order.StatusPaid
		records[index].PaidAt = &now
		records[index].UpdatedAt = now
		if params.ProviderTradeNo != "" {
			records[index].ProviderTradeNo = params.ProviderTradeNo
		}
		if params.NotifyPayload != nil {
			records[index].NotifyPayload = params.NotifyPayload
		}
		result = records[index]
		return order.EncodeCollection(records)
	})
	if errors.Is(err, kvstore.ErrAborted) {
		// 已支付，幂等空操作
		return &result, nil
	}
	if err != nil {
		return nil, err
	}

	operator := params.Operator
	if operator == "" {
		tradeNo := params.ProviderTradeNo
		if tradeNo == "" {
			tradeNo = result.OrderNo
		}
		operator = "zpay:" + tradeNo
	}

	// 抢占成功后入账，并确保付款人持有访问密钥
	balanceRecord, err := r.balances.Credit(ctx, result.Email, result.Amount, operator)
	if err != nil {
		logger.ErrorString("订单", "入账失败", fmt.Sprintf(
			"订单 %s 已标记支付但入账失败: %v", result.OrderNo, err))
		return &result, err
	}

	if _, _, err := r.keys.EnsureForEmail(ctx, result.Email, operator); err != nil {
		logger.ErrorString("订单", "密钥补发失败", fmt.Sprintf(
			"订单 %s 的访问密钥补发失败: %v", result.OrderNo, err))
	}

	updated, err := r.Update(ctx, result.ID, Patch{BalanceAfterPayment: &balanceRecord.Balance})
	if err != nil {
		return &result, nil
	}
	return updated, nil
}

func (r *OrderRepository) list(ctx context.Context) ([]order.Order, error) {
	raw, _, err := r.store.Get(ctx, kvstore.KeyPaymentOrders)
	if err != nil {
		return nil, err
	}
	return order.ParseCollection(raw), nil
}

func findOrderIndex(records []order.Order, orderID string) int {
	for i := range records {
		if records[i].ID == orderID {
			return i
		}
	}
	return -1
}

func applyPatch(record *order.Order, patch Patch) {
	if patch.Status != nil {
		record.Status = *patch.Status
	}
	if patch.ProviderTradeNo != nil {
		record.ProviderTradeNo = *patch.ProviderTradeNo
	}
	if patch.QRCode != nil {
		record.QRCode = *patch.QRCode
	}
	if patch.QRImage != nil {
		record.QRImage = *patch.QRImage
	}
	if patch.PayURL != nil {
		record.PayURL = *patch.PayURL
	}
	if patch.MapiPayload != nil {
		record.MapiPayload = patch.MapiPayload
	}
	if patch.NotifyPayload != nil {
		record.NotifyPayload = patch.NotifyPayload
	}
	if patch.LastSyncedAt != nil {
		record.LastSyncedAt = patch.LastSyncedAt
	}
	if patch.SyncAttempts != nil {
		record.SyncAttempts = *patch.SyncAttempts
	}
	if patch.BalanceAfterPayment != nil {
		record.BalanceAfterPayment = patch.BalanceAfterPayment
	}
}
