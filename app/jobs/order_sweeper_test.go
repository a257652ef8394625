package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elink/app/models/order"
	"elink/app/repositories"
	billingsvc "elink/app/services/billing"
	"elink/pkg/kvstore"
	"elink/pkg/payment/types"
)

type idleGateway struct{}

func (idleGateway) IsConfigured() bool { return false }
func (idleGateway) CreateQrPayment(context.Context, *order.Order, types.Method, string) (*types.QrResult, error) {
	return nil, nil
}
func (idleGateway) QueryOrder(context.Context, string) (types.QueryResult, error) {
	return nil, nil
}
func (idleGateway) VerifySign(map[string]string) bool { return false }

func TestOrderSweeperExpiresOverdueOrders(t *testing.T) {
	store := kvstore.NewMemoryStore()
	balances := repositories.NewBalanceRepository(store)
	keys := repositories.NewAccessKeyRepository(store)
	orders := repositories.NewOrderRepository(store, balances, keys)
	pricing := repositories.NewPricingRepository(store)
	service := billingsvc.NewService(orders, balances, pricing, idleGateway{})

	ctx := context.Background()
	o, err := orders.Create(ctx, repositories.CreateParams{Email: "a@b.com", Amount: 10})
	require.NoError(t, err)

	// 把过期时间改到过去
	past := time.Now().Add(-time.Minute)
	raw, _, err := store.Get(ctx, kvstore.KeyPaymentOrders)
	require.NoError(t, err)
	records := order.ParseCollection(raw)
	records[0].ExpiresAt = &past
	encoded, err := order.EncodeCollection(records)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, kvstore.KeyPaymentOrders, encoded))

	sweeper := NewOrderSweeper(service, 10*time.Millisecond, false)
	sweeper.Start()

	// 等待至少一轮巡检
	require.Eventually(t, func() bool {
		latest, err := orders.FindByID(ctx, o.ID)
		return err == nil && latest.Status == order.StatusExpired
	}, time.Second, 10*time.Millisecond)

	sweeper.Stop()

	latest, err := orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusExpired, latest.Status)
}

func TestOrderSweeperStopIsClean(t *testing.T) {
	store := kvstore.NewMemoryStore()
	balances := repositories.NewBalanceRepository(store)
	keys := repositories.NewAccessKeyRepository(store)
	orders := repositories.NewOrderRepository(store, balances, keys)
	pricing := repositories.NewPricingRepository(store)
	service := billingsvc.NewService(orders, balances, pricing, idleGateway{})

	sweeper := NewOrderSweeper(service, time.Hour, false)
	sweeper.Start()

	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop 未在预期时间内返回")
	}
}
