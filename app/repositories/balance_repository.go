package repositories

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"elink/app/models/balance"
	"elink/pkg/kvstore"
)

var (
	// ErrEmptyEmail 邮箱为空
	ErrEmptyEmail = errors.New("邮箱不能为空")
	// ErrInvalidAmount 金额必须是大于 0 的有限数
	ErrInvalidAmount = errors.New("金额必须大于 0")
	// ErrInsufficientBalance 余额不足
	ErrInsufficientBalance = errors.New("余额不足，请先充值")
	// ErrInvalidTokens Token 数量非法
	ErrInvalidTokens = errors.New("Token 数量无效")
)

// BalanceRepository 余额与用量仓库
type BalanceRepository struct {
	store kvstore.Store
}

// NewBalanceRepository 创建仓库实例
func NewBalanceRepository(store kvstore.Store) *BalanceRepository {
	return &BalanceRepository{store: store}
}

// GetBalance 查询余额，无记录时返回 0
func (r *BalanceRepository) GetBalance(ctx context.Context, email string) (float64, error) {
	normalized := balance.NormalizeEmail(email)
	raw, _, err := r.store.Get(ctx, kvstore.KeyBalances)
	if err != nil {
		return 0, err
	}

	for _, record := range balance.ParseRecords(raw) {
		if record.Email == normalized {
			return record.Balance, nil
		}
	}
	return 0, nil
}

// List 列出全部余额记录，按更新时间倒序
func (r *BalanceRepository) List(ctx context.Context) ([]balance.Record, error) {
	raw, _, err := r.store.Get(ctx, kvstore.KeyBalances)
	if err != nil {
		return nil, err
	}

	records := balance.ParseRecords(raw)
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

// Credit 充值入账
// 无记录时按充值金额建档，有记录时累加，金额始终保留两位小数。
func (r *BalanceRepository) Credit(ctx context.Context, email string, amount float64, operator string) (*balance.Record, error) {
	normalized := balance.NormalizeEmail(email)
	amount = balance.NormalizeAmount(amount)

	if normalized == "" {
		return nil, ErrEmptyEmail
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var result balance.Record
	err := r.store.Update(ctx, kvstore.KeyBalances, func(raw string, _ bool) (string, error) {
		records := balance.ParseRecords(raw)
		now := time.Now()

		index := findBalanceIndex(records, normalized)
		if index >= 0 {
			records[index].Balance = balance.NormalizeAmount(records[index].Balance + amount)
			records[index].UpdatedAt = now
			records[index].UpdatedBy = operator
			result = records[index]
		} else {
			result = balance.Record{
				Email:     normalized,
				Balance:   amount,
				UpdatedAt: now,
				UpdatedBy: operator,
			}
			records = append(records, result)
		}

		return balance.EncodeRecords(records)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Debit 扣费
// 无记录或余额不足时返回 ErrInsufficientBalance，余额保持不变。
func (r *BalanceRepository) Debit(ctx context.Context, email string, amount float64, operator string) (*balance.Record, error) {
	normalized := balance.NormalizeEmail(email)
	amount = balance.NormalizeAmount(amount)

	if normalized == "" {
		return nil, ErrEmptyEmail
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var result balance.Record
	err := r.store.Update(ctx, kvstore.KeyBalances, func(raw string, _ bool) (string, error) {
		records := balance.ParseRecords(raw)

		index := findBalanceIndex(records, normalized)
		if index < 0 {
			return "", ErrInsufficientBalance
		}
		if records[index].Balance < amount {
			return "", ErrInsufficientBalance
		}

		records[index].Balance = balance.NormalizeAmount(records[index].Balance - amount)
		records[index].UpdatedAt = time.Now()
		records[index].UpdatedBy = operator
		result = records[index]

		return balance.EncodeRecords(records)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AddUsage 累计用量，独立于余额
func (r *BalanceRepository) AddUsage(ctx context.Context, email string, tokens int64, cost float64) (*balance.UsageSummary, error) {
	normalized := balance.NormalizeEmail(email)
	cost = balance.NormalizeAmount(cost)

	if normalized == "" {
		return nil, ErrEmptyEmail
	}
	if tokens < 0 {
		return nil, ErrInvalidTokens
	}

	var result balance.UsageSummary
	err := r.store.Update(ctx, kvstore.KeyUsage, func(raw string, _ bool) (string, error) {
		records := balance.ParseUsage(raw)
		now := time.Now()

		index := -1
		for i := range records {
			if records[i].Email == normalized {
				index = i
				break
			}
		}

		if index >= 0 {
			records[index].TotalTokens += tokens
			records[index].TotalSpent = balance.NormalizeAmount(records[index].TotalSpent + cost)
			records[index].LastUsedAt = now
			result = records[index]
		} else {
			result = balance.UsageSummary{
				Email:       normalized,
				TotalTokens: tokens,
				TotalSpent:  cost,
				LastUsedAt:  now,
			}
			records = append(records, result)
		}

		return balance.EncodeUsage(records)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListUsage 列出全部用量记录，按最近使用时间倒序
func (r *BalanceRepository) ListUsage(ctx context.Context) ([]balance.UsageSummary, error) {
	raw, _, err := r.store.Get(ctx, kvstore.KeyUsage)
	if err != nil {
		return nil, err
	}

	records := balance.ParseUsage(raw)
	sort.Slice(records, func(i, j int) bool {
		return records[i].LastUsedAt.After(records[j].LastUsedAt)
	})
	return records, nil
}

func findBalanceIndex(records []balance.Record, email string) int {
	for i := range records {
		if records[i].Email == email {
			return i
		}
	}
	return -1
}
