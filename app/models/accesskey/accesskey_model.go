package accesskey

import (
	"time"
)

// Record 访问密钥记录
// 只保存密钥的单向哈希，明文密钥和令牌都由邮箱现场推导。
type Record struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
}

// Sanitized 管理后台展示用的脱敏视图
type Sanitized struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
	HashPreview string    `json:"hashPreview"`
}

// Sanitize 生成脱敏视图，哈希只保留前 10 位
func (r *Record) Sanitize() Sanitized {
	preview := r.Hash
	if len(preview) > 10 {
		preview = preview[:10]
	}
	return Sanitized{
		ID:          r.ID,
		Email:       r.Email,
		CreatedAt:   r.CreatedAt,
		CreatedBy:   r.CreatedBy,
		HashPreview: preview,
	}
}
