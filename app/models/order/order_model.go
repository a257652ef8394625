package order

import (
	"time"
)

// Channel 支付渠道标识，目前只接入 ZPay 聚合渠道
const Channel = "zpay"

// Status 支付订单状态
type Status string

const (
	StatusPending Status = "pending" // 待支付
	StatusPaid    Status = "paid"    // 已支付
	StatusFailed  Status = "failed"  // 下单失败
	StatusExpired Status = "expired" // 已过期
)

// Order 支付订单
// 订单是充值尝试的只增账本：状态只会从 pending 走向终态，记录本身不会删除。
// JSON 字段名与存量数据保持一致（camelCase）。
type Order struct {
	ID            string  `json:"id"`
	OrderNo       string  `json:"orderNo"`
	Email         string  `json:"email"`
	Amount        float64 `json:"amount"`
	DisplayAmount string  `json:"displayAmount"`
	Currency      string  `json:"currency"`
	Channel       string  `json:"channel"`
	PaymentMethod string  `json:"paymentMethod"`
	Status        Status  `json:"status"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`

	// 网关回填的字段
	ProviderTradeNo string `json:"providerTradeNo,omitempty"`
	QRCode          string `json:"qrCode,omitempty"`
	QRImage         string `json:"qrImage,omitempty"`
	PayURL          string `json:"payUrl,omitempty"`

	// 原始报文留档，便于排查对账问题
	MapiPayload   map[string]interface{} `json:"mapiPayload,omitempty"`
	NotifyPayload map[string]interface{} `json:"notifyPayload,omitempty"`

	// 轮询同步的记录
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	SyncAttempts int        `json:"syncAttempts,omitempty"`

	// 支付成功后的余额快照
	BalanceAfterPayment *float64 `json:"balanceAfterPayment,omitempty"`
}

// IsPending 是否待支付
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

// IsPaid 是否已支付
func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid
}

// IsTerminal 是否已到达终态（paid / failed / expired 不再变更）
func (o *Order) IsTerminal() bool {
	return o.Status == StatusPaid || o.Status == StatusFailed || o.Status == StatusExpired
}

// IsExpiredAt 判断订单在给定时刻是否已过期
func (o *Order) IsExpiredAt(now time.Time) bool {
	return o.ExpiresAt != nil && o.ExpiresAt.Before(now)
}
