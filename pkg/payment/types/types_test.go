package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMethod(t *testing.T) {
	assert.Equal(t, MethodAlipay, ParseMethod("alipay"))
	assert.Equal(t, MethodWxpay, ParseMethod("wxpay"))
	// 未知方式回落到支付宝
	assert.Equal(t, MethodAlipay, ParseMethod("paypal"))
	assert.Equal(t, MethodAlipay, ParseMethod(""))
}

func TestQueryResultCodeOK(t *testing.T) {
	assert.True(t, QueryResult{"code": float64(1)}.CodeOK())
	assert.True(t, QueryResult{"code": "1"}.CodeOK())
	assert.True(t, QueryResult{"code": "SUCCESS"}.CodeOK())
	assert.True(t, QueryResult{"code": "success"}.CodeOK())

	assert.False(t, QueryResult{"code": float64(0)}.CodeOK())
	assert.False(t, QueryResult{"code": "-1"}.CodeOK())
	assert.False(t, QueryResult{}.CodeOK())
}

func TestPaidStatus(t *testing.T) {
	for _, status := range []string{
		"1", "PAID", "paid", "SUCCESS", "TRADE_SUCCESS", "FINISHED",
		"COMPLETED", "OK", "PAY_SUCCESS", "支付成功",
	} {
		assert.True(t, PaidStatus(status), status)
	}

	for _, status := range []string{"", "0", "WAIT_BUYER_PAY", "CLOSED", "REFUND"} {
		assert.False(t, PaidStatus(status), status)
	}
}

func TestExtractTradeStatusProbesFieldsInOrder(t *testing.T) {
	payload := map[string]string{
		"trade_status": "TRADE_SUCCESS",
		"state":        "0",
	}
	got := ExtractTradeStatus(func(key string) (string, bool) {
		value, ok := payload[key]
		return value, ok
	})
	// status 缺失时取 trade_status，而不是排在后面的 state
	assert.Equal(t, "TRADE_SUCCESS", got)

	empty := ExtractTradeStatus(func(key string) (string, bool) { return "", false })
	assert.Equal(t, "", empty)
}
