package order

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	assert.Equal(t, 10.0, NormalizeAmount(9.999))
	assert.Equal(t, 9.99, NormalizeAmount(9.994))
	assert.Equal(t, 0.1, NormalizeAmount(0.1))
}

func TestToDisplayAmount(t *testing.T) {
	assert.Equal(t, "10.00", ToDisplayAmount(9.999))
	assert.Equal(t, "0.10", ToDisplayAmount(0.1))
	assert.Equal(t, "100.00", ToDisplayAmount(100))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}

func TestNormalizePaymentMethod(t *testing.T) {
	assert.Equal(t, "wxpay", NormalizePaymentMethod("wxpay"))
	assert.Equal(t, "alipay", NormalizePaymentMethod("alipay"))
	assert.Equal(t, "alipay", NormalizePaymentMethod("paypal"))
	assert.Equal(t, "alipay", NormalizePaymentMethod(""))
}

func TestGenerateOrderNo(t *testing.T) {
	orderNo := GenerateOrderNo()

	assert.True(t, strings.HasPrefix(orderNo, "ZP"))
	// ZP + 13 位毫秒时间戳 + 6 位随机数
	assert.Len(t, orderNo, 21)
	assert.NotEqual(t, orderNo, GenerateOrderNo())
}

func TestParseCollectionTolerance(t *testing.T) {
	// 整体损坏返回空集合
	assert.Empty(t, ParseCollection("not-json"))
	assert.Empty(t, ParseCollection(""))

	// 单条损坏跳过，合法记录保留并归一化
	raw := `[
		{"id":"a","orderNo":"ZP1","email":"User@Example.com","amount":9.999,"paymentMethod":"paypal"},
		{"id":"","orderNo":"ZP2","email":"x@y.com"},
		"garbage"
	]`
	records := ParseCollection(raw)
	require.Len(t, records, 1)

	assert.Equal(t, "user@example.com", records[0].Email)
	assert.Equal(t, 10.0, records[0].Amount)
	assert.Equal(t, "10.00", records[0].DisplayAmount)
	assert.Equal(t, "alipay", records[0].PaymentMethod)
	assert.Equal(t, Channel, records[0].Channel)
	assert.Equal(t, StatusPending, records[0].Status)
}

func TestOrderStatusChecks(t *testing.T) {
	o := &Order{Status: StatusPending}
	assert.True(t, o.IsPending())
	assert.False(t, o.IsTerminal())

	o.Status = StatusPaid
	assert.True(t, o.IsPaid())
	assert.True(t, o.IsTerminal())
}

func TestIsExpiredAt(t *testing.T) {
	now := time.Now()

	// 没有过期时间的订单永不过期
	o := &Order{Status: StatusPending}
	assert.False(t, o.IsExpiredAt(now))

	past := now.Add(-time.Minute)
	o.ExpiresAt = &past
	assert.True(t, o.IsExpiredAt(now))

	future := now.Add(time.Minute)
	o.ExpiresAt = &future
	assert.False(t, o.IsExpiredAt(now))
}
