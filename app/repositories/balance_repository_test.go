package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elink/pkg/kvstore"
)

func newBalanceRepo() *BalanceRepository {
	return NewBalanceRepository(kvstore.NewMemoryStore())
}

func TestCreditCreatesAndAccumulates(t *testing.T) {
	repo := newBalanceRepo()
	ctx := context.Background()

	record, err := repo.Credit(ctx, "User@Example.com", 10.005, "zpay:T1")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", record.Email)
	assert.Equal(t, 10.01, record.Balance)
	assert.Equal(t, "zpay:T1", record.UpdatedBy)

	record, err = repo.Credit(ctx, "user@example.com", 5, "zpay:T2")
	require.NoError(t, err)
	assert.Equal(t, 15.01, record.Balance)

	balance, err := repo.GetBalance(ctx, "USER@example.com")
	require.NoError(t, err)
	assert.Equal(t, 15.01, balance)
}

func TestCreditValidation(t *testing.T) {
	repo := newBalanceRepo()
	ctx := context.Background()

	_, err := repo.Credit(ctx, "", 10, "op")
	assert.ErrorIs(t, err, ErrEmptyEmail)

	_, err = repo.Credit(ctx, "a@b.com", 0, "op")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = repo.Credit(ctx, "a@b.com", -1, "op")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDebit(t *testing.T) {
	repo := newBalanceRepo()
	ctx := context.Background()

	_, err := repo.Credit(ctx, "a@b.com", 10, "op")
	require.NoError(t, err)

	record, err := repo.Debit(ctx, "a@b.com", 2.5, "usage")
	require.NoError(t, err)
	assert.Equal(t, 7.5, record.Balance)
}

func TestDebitInsufficientLeavesBalanceUnchanged(t *testing.T) {
	repo := newBalanceRepo()
	ctx := context.Background()

	// 无记录时扣费直接失败
	_, err := repo.Debit(ctx, "a@b.com", 1, "usage")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = repo.Credit(ctx, "a@b.com", 5, "op")
	require.NoError(t, err)

	_, err = repo.Debit(ctx, "a@b.com", 10, "usage")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// 失败的扣费不动余额
	balance, err := repo.GetBalance(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 5.0, balance)
}

func TestGetBalanceMissingIsZero(t *testing.T) {
	repo := newBalanceRepo()

	balance, err := repo.GetBalance(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
}

func TestAddUsageAccumulates(t *testing.T) {
	repo := newBalanceRepo()
	ctx := context.Background()

	summary, err := repo.AddUsage(ctx, "a@b.com", 1200, 1.2)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), summary.TotalTokens)
	assert.Equal(t, 1.2, summary.TotalSpent)

	summary, err = repo.AddUsage(ctx, "a@b.com", 800, 0.8)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), summary.TotalTokens)
	assert.Equal(t, 2.0, summary.TotalSpent)

	_, err = repo.AddUsage(ctx, "a@b.com", -1, 0)
	assert.ErrorIs(t, err, ErrInvalidTokens)
}

func TestListSortsByUpdatedAtDesc(t *testing.T) {
	repo := newBalanceRepo()
	ctx := context.Background()

	_, err := repo.Credit(ctx, "first@b.com", 1, "op")
	require.NoError(t, err)
	_, err = repo.Credit(ctx, "second@b.com", 2, "op")
	require.NoError(t, err)

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.False(t, records[0].UpdatedAt.Before(records[1].UpdatedAt))
}
