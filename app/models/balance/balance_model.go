package balance

import (
	"time"
)

// Record 用户余额记录，按邮箱一条
type Record struct {
	Email     string    `json:"email"`
	Balance   float64   `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// UsageSummary 用户的累计用量，只增不减
type UsageSummary struct {
	Email       string    `json:"email"`
	TotalTokens int64     `json:"totalTokens"`
	TotalSpent  float64   `json:"totalSpent"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}
