package pricing

import (
	"encoding/json"
	"math"
	"time"
)

// DefaultPricePerThousandTokens 默认每 1000 tokens 的价格（单位：元）
const DefaultPricePerThousandTokens = 1.0

// TokenPricing Token 计费单价，全局一条记录
type TokenPricing struct {
	PricePerThousandTokens float64   `json:"pricePerThousandTokens"`
	UpdatedAt              time.Time `json:"updatedAt"`
	UpdatedBy              string    `json:"updatedBy"`
}

// NormalizePrice 价格四舍五入保留两位小数
func NormalizePrice(value float64) float64 {
	return math.Round(value*100) / 100
}

// Default 未配置时的兜底定价
func Default() TokenPricing {
	return TokenPricing{
		PricePerThousandTokens: NormalizePrice(DefaultPricePerThousandTokens),
		UpdatedAt:              time.Unix(0, 0).UTC(),
		UpdatedBy:              "system",
	}
}

// Parse 解析定价 JSON，解析失败或字段非法返回 nil
func Parse(raw string) *TokenPricing {
	if raw == "" {
		return nil
	}

	var record TokenPricing
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil
	}
	if record.PricePerThousandTokens <= 0 {
		return nil
	}
	record.PricePerThousandTokens = NormalizePrice(record.PricePerThousandTokens)
	return &record
}

// Encode 序列化定价记录
func Encode(record TokenPricing) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
