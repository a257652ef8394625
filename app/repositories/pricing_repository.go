package repositories

import (
	"context"
	"time"

	"elink/app/models/pricing"
	"elink/pkg/kvstore"
)

// PricingRepository Token 计费单价仓库
type PricingRepository struct {
	store kvstore.Store
}

// NewPricingRepository 创建仓库实例
func NewPricingRepository(store kvstore.Store) *PricingRepository {
	return &PricingRepository{store: store}
}

// Get 读取当前定价，未配置或配置损坏时返回默认定价
func (r *PricingRepository) Get(ctx context.Context) (pricing.TokenPricing, error) {
	raw, ok, err := r.store.Get(ctx, kvstore.KeyTokenPricing)
	if err != nil {
		return pricing.Default(), err
	}
	if !ok {
		return pricing.Default(), nil
	}

	if record := pricing.Parse(raw); record != nil {
		return *record, nil
	}
	return pricing.Default(), nil
}

// Update 更新定价，价格必须大于 0
func (r *PricingRepository) Update(ctx context.Context, pricePerThousandTokens float64, updatedBy string) (pricing.TokenPricing, error) {
	normalized := pricing.NormalizePrice(pricePerThousandTokens)
	if normalized <= 0 {
		return pricing.TokenPricing{}, ErrInvalidAmount
	}

	record := pricing.TokenPricing{
		PricePerThousandTokens: normalized,
		UpdatedAt:              time.Now(),
		UpdatedBy:              updatedBy,
	}

	encoded, err := pricing.Encode(record)
	if err != nil {
		return pricing.TokenPricing{}, err
	}
	if err := r.store.Set(ctx, kvstore.KeyTokenPricing, encoded); err != nil {
		return pricing.TokenPricing{}, err
	}
	return record, nil
}
