package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elink/app/models/order"
	"elink/app/repositories"
	"elink/pkg/kvstore"
	"elink/pkg/payment/types"
)

// fakeGateway 可编排的网关替身
type fakeGateway struct {
	configured bool

	qrResult *types.QrResult
	qrErr    error

	queryResult types.QueryResult
	queryErr    error
	queryCalls  int

	validSign bool
}

func (f *fakeGateway) IsConfigured() bool { return f.configured }

func (f *fakeGateway) CreateQrPayment(_ context.Context, _ *order.Order, _ types.Method, _ string) (*types.QrResult, error) {
	if f.qrErr != nil {
		return nil, f.qrErr
	}
	return f.qrResult, nil
}

func (f *fakeGateway) QueryOrder(_ context.Context, _ string) (types.QueryResult, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResult, nil
}

func (f *fakeGateway) VerifySign(_ map[string]string) bool { return f.validSign }

type fixture struct {
	service  *Service
	orders   *repositories.OrderRepository
	balances *repositories.BalanceRepository
	gateway  *fakeGateway
	store    *kvstore.MemoryStore
}

func newFixture(gateway *fakeGateway) *fixture {
	store := kvstore.NewMemoryStore()
	balances := repositories.NewBalanceRepository(store)
	keys := repositories.NewAccessKeyRepository(store)
	orders := repositories.NewOrderRepository(store, balances, keys)
	pricing := repositories.NewPricingRepository(store)

	return &fixture{
		service:  NewService(orders, balances, pricing, gateway),
		orders:   orders,
		balances: balances,
		gateway:  gateway,
		store:    store,
	}
}

func TestTopUpNotConfigured(t *testing.T) {
	f := newFixture(&fakeGateway{configured: false})

	_, err := f.service.TopUp(context.Background(), TopUpParams{Email: "a@b.com", Amount: 10})
	assert.ErrorIs(t, err, ErrChannelNotConfigured)
}

func TestTopUpPersistsQrFields(t *testing.T) {
	f := newFixture(&fakeGateway{
		configured: true,
		qrResult: &types.QrResult{
			TradeNo: "T100",
			QRCode:  "weixin://pay/T100",
			QRImage: "https://gw.example.com/qr/T100.png",
			PayURL:  "https://gw.example.com/cashier/T100",
			Raw:     map[string]interface{}{"code": float64(1)},
		},
	})
	ctx := context.Background()

	result, err := f.service.TopUp(ctx, TopUpParams{Email: "a@b.com", Amount: 9.999, PaymentMethod: "wxpay"})
	require.NoError(t, err)

	assert.Equal(t, "10.00", result.DisplayAmount)
	assert.Equal(t, "wxpay", result.PaymentMethod)
	assert.Equal(t, "weixin://pay/T100", result.QRCode)
	require.NotNil(t, result.ExpiresAt)

	stored, err := f.orders.FindByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "T100", stored.ProviderTradeNo)
	assert.Equal(t, order.StatusPending, stored.Status)
	assert.NotNil(t, stored.MapiPayload)
}

func TestTopUpGatewayErrorMarksOrderFailed(t *testing.T) {
	f := newFixture(&fakeGateway{configured: true, qrErr: errors.New("下单被拒")})
	ctx := context.Background()

	_, err := f.service.TopUp(ctx, TopUpParams{Email: "a@b.com", Amount: 10})
	require.Error(t, err)

	pending, err := f.orders.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOrderStatusOwnership(t *testing.T) {
	f := newFixture(&fakeGateway{configured: false})
	ctx := context.Background()

	o, err := f.orders.Create(ctx, repositories.CreateParams{Email: "a@b.com", Amount: 10})
	require.NoError(t, err)

	_, err = f.service.OrderStatus(ctx, o.ID, "other@b.com")
	assert.ErrorIs(t, err, ErrNotOwner)

	// 大小写不同的同一邮箱可以通过
	result, err := f.service.OrderStatus(ctx, o.ID, "A@B.COM")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, result.Status)
}

func TestOrderStatusExpiresWithoutGatewayCall(t *testing.T) {
	gateway := &fakeGateway{configured: true}
	f := newFixture(gateway)
	ctx := context.Background()

	o, err := f.orders.Create(ctx, repositories.CreateParams{Email: "a@b.com", Amount: 10})
	require.NoError(t, err)

	// 把过期时间拨到过去
	setExpiresAt(t, f, o.ID, time.Now().Add(-time.Minute))

	result, err := f.service.OrderStatus(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, order.StatusExpired, result.Status)
	// 过期判定在本地完成，不触达网关
	assert.Equal(t, 0, gateway.queryCalls)
}

func TestOrderStatusSyncRequiresBothChecks(t *testing.T) {
	tests := []struct {
		name   string
		result types.QueryResult
		paid   bool
	}{
		{"业务码和状态都成功", types.QueryResult{"code": float64(1), "status": "1", "trade_no": "T1"}, true},
		{"业务码成功但状态未支付", types.QueryResult{"code": float64(1), "status": "0"}, false},
		{"状态成功但业务码失败", types.QueryResult{"code": float64(0), "status": "TRADE_SUCCESS"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(&fakeGateway{configured: true, queryResult: tt.result})
			ctx := context.Background()

			o, err := f.orders.Create(ctx, repositories.CreateParams{Email: "a@b.com", Amount: 25})
			require.NoError(t, err)

			status, err := f.service.OrderStatus(ctx, o.ID, "")
			require.NoError(t, err)

			if tt.paid {
				assert.Equal(t, order.StatusPaid, status.Status)
				require.NotNil(t, status.Balance)
				assert.Equal(t, 25.0, *status.Balance)
			} else {
				assert.Equal(t, order.StatusPending, status.Status)
				assert.Nil(t, status.Balance)
			}

			// 无论成败都记录同步时间
			stored, err := f.orders.FindByID(ctx, o.ID)
			require.NoError(t, err)
			assert.NotNil(t, stored.LastSyncedAt)
			assert.Equal(t, 1, stored.SyncAttempts)
		})
	}
}

func TestOrderStatusGatewayFailureIsNotFatal(t *testing.T) {
	f := newFixture(&fakeGateway{configured: true, queryErr: errors.New("网关超时")})
	ctx := context.Background()

	o, err := f.orders.Create(ctx, repositories.CreateParams{Email: "a@b.com", Amount: 10})
	require.NoError(t, err)

	// 查询失败不向上抛错，订单保持 pending
	result, err := f.service.OrderStatus(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, result.Status)

	stored, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.SyncAttempts)
	assert.NotNil(t, stored.LastSyncedAt)
}

func TestOrderStatusSyncThrottled(t *testing.T) {
	gateway := &fakeGateway{configured: true, queryResult: types.QueryResult{"code": float64(0)}}
	f := newFixture(gateway)
	ctx := context.Background()

	o, err := f.orders.Create(ctx, repositories.CreateParams{Email: "a@b.com", Amount: 10})
	require.NoError(t, err)

	_, err = f.service.OrderStatus(ctx, o.ID, "")
	require.NoError(t, err)
	_, err = f.service.OrderStatus(ctx, o.ID, "")
	require.NoError(t, err)

	// 10 秒内的第二次轮询不再触达网关
	assert.Equal(t, 1, gateway.queryCalls)
}

func TestChargeUsage(t *testing.T) {
	f := newFixture(&fakeGateway{})
	ctx := context.Background()

	_, err := f.balances.Credit(ctx, "a@b.com", 10, "op")
	require.NoError(t, err)

	// 默认单价 1.00/1000 tokens，2500 tokens 折算 2.50
	result, err := f.service.ChargeUsage(ctx, "a@b.com", 2500)
	require.NoError(t, err)
	assert.Equal(t, 2.5, result.Cost)
	assert.Equal(t, 7.5, result.Balance)
}

func TestChargeUsageZeroCostIsNoOp(t *testing.T) {
	f := newFixture(&fakeGateway{})
	ctx := context.Background()

	_, err := f.balances.Credit(ctx, "a@b.com", 10, "op")
	require.NoError(t, err)

	result, err := f.service.ChargeUsage(ctx, "a@b.com", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Cost)
	assert.Equal(t, 10.0, result.Balance)
}

func TestChargeUsageInsufficient(t *testing.T) {
	f := newFixture(&fakeGateway{})

	_, err := f.service.ChargeUsage(context.Background(), "poor@b.com", 5000)
	assert.ErrorIs(t, err, repositories.ErrInsufficientBalance)
}

func TestSweepOrdersExpiresOverdue(t *testing.T) {
	gateway := &fakeGateway{configured: true}
	f := newFixture(gateway)
	ctx := context.Background()

	overdue, err := f.orders.Create(ctx, repositories.CreateParams{Email: "a@b.com", Amount: 10})
	require.NoError(t, err)
	setExpiresAt(t, f, overdue.ID, time.Now().Add(-time.Minute))

	fresh, err := f.orders.Create(ctx, repositories.CreateParams{
		Email: "a@b.com", Amount: 20, ExpiresInMinutes: 30,
	})
	require.NoError(t, err)

	f.service.SweepOrders(ctx, false)

	expired, err := f.orders.FindByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusExpired, expired.Status)

	kept, err := f.orders.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, kept.Status)

	// serverSideSync 关闭时不触达网关
	assert.Equal(t, 0, gateway.queryCalls)
}

// setExpiresAt 直接改写存储里的过期时间，模拟时间流逝
func setExpiresAt(t *testing.T, f *fixture, orderID string, at time.Time) {
	t.Helper()

	raw, _, err := f.store.Get(context.Background(), kvstore.KeyPaymentOrders)
	require.NoError(t, err)

	records := order.ParseCollection(raw)
	for i := range records {
		if records[i].ID == orderID {
			records[i].ExpiresAt = &at
		}
	}
	encoded, err := order.EncodeCollection(records)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(context.Background(), kvstore.KeyPaymentOrders, encoded))
}
