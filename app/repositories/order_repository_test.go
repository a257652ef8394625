package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elink/app/models/order"
	"elink/pkg/kvstore"
)

func newOrderRepo() (*OrderRepository, *BalanceRepository, *AccessKeyRepository) {
	store := kvstore.NewMemoryStore()
	balances := NewBalanceRepository(store)
	keys := NewAccessKeyRepository(store)
	return NewOrderRepository(store, balances, keys), balances, keys
}

func TestOrderCreate(t *testing.T) {
	repo, _, _ := newOrderRepo()
	ctx := context.Background()

	o, err := repo.Create(ctx, CreateParams{
		Email:            "  User@Example.COM ",
		Amount:           9.999,
		PaymentMethod:    "wxpay",
		ExpiresInMinutes: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", o.Email)
	assert.Equal(t, 10.0, o.Amount)
	assert.Equal(t, "10.00", o.DisplayAmount)
	assert.Equal(t, "CNY", o.Currency)
	assert.Equal(t, "wxpay", o.PaymentMethod)
	assert.Equal(t, order.StatusPending, o.Status)
	require.NotNil(t, o.ExpiresAt)

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNo, found.OrderNo)

	byNo, err := repo.FindByOrderNo(ctx, o.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNo.ID)
}

func TestOrderCreateValidation(t *testing.T) {
	repo, _, _ := newOrderRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateParams{Email: "", Amount: 10})
	assert.ErrorIs(t, err, ErrEmptyEmail)

	_, err = repo.Create(ctx, CreateParams{Email: "a@b.com", Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = repo.Create(ctx, CreateParams{Email: "a@b.com", Amount: -5})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestOrderFindNotFound(t *testing.T) {
	repo, _, _ := newOrderRepo()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = repo.FindByOrderNo(ctx, "ZP000")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMarkPaidCreditsBalanceAndEnsuresKey(t *testing.T) {
	repo, balances, keys := newOrderRepo()
	ctx := context.Background()

	o, err := repo.Create(ctx, CreateParams{Email: "a@b.com", Amount: 50})
	require.NoError(t, err)

	paid, err := repo.MarkPaid(ctx, MarkPaidParams{
		OrderID:         o.ID,
		ProviderTradeNo: "T100",
		Operator:        "zpay:notify",
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPaid, paid.Status)
	assert.Equal(t, "T100", paid.ProviderTradeNo)
	require.NotNil(t, paid.PaidAt)
	require.NotNil(t, paid.BalanceAfterPayment)
	assert.Equal(t, 50.0, *paid.BalanceAfterPayment)

	balance, err := balances.GetBalance(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 50.0, balance)

	// 支付成功后自动补发访问密钥
	record, _, _, err := keys.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, record)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	repo, balances, _ := newOrderRepo()
	ctx := context.Background()

	o, err := repo.Create(ctx, CreateParams{Email: "a@b.com", Amount: 30})
	require.NoError(t, err)

	_, err = repo.MarkPaid(ctx, MarkPaidParams{OrderID: o.ID, Operator: "zpay:notify"})
	require.NoError(t, err)

	// 回调和轮询重复触发，第二次不再入账
	again, err := repo.MarkPaid(ctx, MarkPaidParams{OrderID: o.ID, Operator: "zpay:sync"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, again.Status)

	balance, err := balances.GetBalance(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 30.0, balance)
}

func TestMarkPaidMissingOrder(t *testing.T) {
	repo, _, _ := newOrderRepo()

	_, err := repo.MarkPaid(context.Background(), MarkPaidParams{OrderID: "missing"})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestExpire(t *testing.T) {
	repo, _, _ := newOrderRepo()
	ctx := context.Background()

	o, err := repo.Create(ctx, CreateParams{Email: "a@b.com", Amount: 10})
	require.NoError(t, err)

	expired, err := repo.Expire(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusExpired, expired.Status)
	assert.True(t, expired.IsTerminal())
}

func TestUpdatePatchMergesFields(t *testing.T) {
	repo, _, _ := newOrderRepo()
	ctx := context.Background()

	o, err := repo.Create(ctx, CreateParams{Email: "a@b.com", Amount: 10})
	require.NoError(t, err)

	tradeNo := "T200"
	qrCode := "https://pay.example.com/qr"
	now := time.Now()
	attempts := 3

	updated, err := repo.Update(ctx, o.ID, Patch{
		ProviderTradeNo: &tradeNo,
		QRCode:          &qrCode,
		LastSyncedAt:    &now,
		SyncAttempts:    &attempts,
		MapiPayload:     map[string]interface{}{"code": float64(1)},
	})
	require.NoError(t, err)

	assert.Equal(t, tradeNo, updated.ProviderTradeNo)
	assert.Equal(t, qrCode, updated.QRCode)
	assert.Equal(t, 3, updated.SyncAttempts)
	require.NotNil(t, updated.LastSyncedAt)
	// 未出现在 patch 里的字段保持原值
	assert.Equal(t, order.StatusPending, updated.Status)
	assert.Equal(t, "10.00", updated.DisplayAmount)
}

func TestListPending(t *testing.T) {
	repo, _, _ := newOrderRepo()
	ctx := context.Background()

	first, err := repo.Create(ctx, CreateParams{Email: "a@b.com", Amount: 10})
	require.NoError(t, err)
	second, err := repo.Create(ctx, CreateParams{Email: "a@b.com", Amount: 20})
	require.NoError(t, err)

	_, err = repo.Expire(ctx, first.ID)
	require.NoError(t, err)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}
