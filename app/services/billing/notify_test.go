package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elink/app/models/order"
	"elink/app/repositories"
)

func createPendingOrder(t *testing.T, f *fixture, amount float64) *order.Order {
	t.Helper()
	o, err := f.orders.Create(context.Background(), repositories.CreateParams{
		Email:  "a@b.com",
		Amount: amount,
	})
	require.NoError(t, err)
	return o
}

func TestHandleNotifyMarksPaid(t *testing.T) {
	f := newFixture(&fakeGateway{configured: true, validSign: true})
	ctx := context.Background()
	o := createPendingOrder(t, f, 50)

	f.service.HandleNotify(ctx, map[string]string{
		"out_trade_no": o.OrderNo,
		"trade_no":     "T900",
		"money":        "50.00",
		"trade_status": "TRADE_SUCCESS",
		"sign":         "deadbeef",
	})

	stored, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, stored.Status)
	assert.Equal(t, "T900", stored.ProviderTradeNo)

	balance, err := f.balances.GetBalance(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 50.0, balance)
}

func TestHandleNotifyInvalidSignKeepsPendingButArchivesPayload(t *testing.T) {
	f := newFixture(&fakeGateway{configured: true, validSign: false})
	ctx := context.Background()
	o := createPendingOrder(t, f, 50)

	f.service.HandleNotify(ctx, map[string]string{
		"out_trade_no": o.OrderNo,
		"money":        "50.00",
		"sign":         "bogus",
	})

	stored, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
	// 验签失败也要留档原始报文
	assert.NotNil(t, stored.NotifyPayload)

	balance, err := f.balances.GetBalance(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
}

func TestHandleNotifyAmountMismatchKeepsPending(t *testing.T) {
	f := newFixture(&fakeGateway{configured: true, validSign: true})
	ctx := context.Background()
	o := createPendingOrder(t, f, 50)

	f.service.HandleNotify(ctx, map[string]string{
		"out_trade_no": o.OrderNo,
		"money":        "49.00",
		"trade_status": "TRADE_SUCCESS",
		"sign":         "deadbeef",
	})

	stored, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
}

func TestHandleNotifyAmountWithinEpsilon(t *testing.T) {
	f := newFixture(&fakeGateway{configured: true, validSign: true})
	ctx := context.Background()
	o := createPendingOrder(t, f, 50)

	// 0.001 以内的误差视为一致
	f.service.HandleNotify(ctx, map[string]string{
		"out_trade_no": o.OrderNo,
		"money":        "50.0005",
		"trade_status": "TRADE_SUCCESS",
		"sign":         "deadbeef",
	})

	stored, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, stored.Status)
}

func TestHandleNotifyUnpaidStatusKeepsPending(t *testing.T) {
	f := newFixture(&fakeGateway{configured: true, validSign: true})
	ctx := context.Background()
	o := createPendingOrder(t, f, 50)

	f.service.HandleNotify(ctx, map[string]string{
		"out_trade_no": o.OrderNo,
		"money":        "50.00",
		"trade_status": "WAIT_BUYER_PAY",
		"sign":         "deadbeef",
	})

	stored, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
}

func TestHandleNotifyDuplicateCreditsOnce(t *testing.T) {
	f := newFixture(&fakeGateway{configured: true, validSign: true})
	ctx := context.Background()
	o := createPendingOrder(t, f, 50)

	payload := map[string]string{
		"out_trade_no": o.OrderNo,
		"trade_no":     "T900",
		"money":        "50.00",
		"trade_status": "TRADE_SUCCESS",
		"sign":         "deadbeef",
	}

	// 网关按"至少一次"投递，重复回调只入账一次
	f.service.HandleNotify(ctx, payload)
	f.service.HandleNotify(ctx, payload)

	balance, err := f.balances.GetBalance(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 50.0, balance)
}

func TestHandleNotifyIgnoresUnknownOrderAndMissingFields(t *testing.T) {
	f := newFixture(&fakeGateway{configured: true, validSign: true})
	ctx := context.Background()

	// 这些分支都不该 panic，也不产生任何记录
	f.service.HandleNotify(ctx, map[string]string{})
	f.service.HandleNotify(ctx, map[string]string{"out_trade_no": "ZP-unknown"})

	records, err := f.balances.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHandleNotifyNotConfigured(t *testing.T) {
	f := newFixture(&fakeGateway{configured: false, validSign: true})
	ctx := context.Background()
	o := createPendingOrder(t, f, 50)

	f.service.HandleNotify(ctx, map[string]string{
		"out_trade_no": o.OrderNo,
		"trade_status": "TRADE_SUCCESS",
		"sign":         "deadbeef",
	})

	stored, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
}
