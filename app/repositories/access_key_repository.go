package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"elink/app/models/accesskey"
	"elink/pkg/kvstore"
)

var (
	// ErrInvalidEmail 邮箱格式非法
	ErrInvalidEmail = errors.New("请输入有效的邮箱地址")
	// ErrDuplicateEmail 同一邮箱只允许一条密钥记录
	ErrDuplicateEmail = errors.New("该邮箱已生成过访问密钥")
	// ErrKeyNotFound 密钥记录不存在
	ErrKeyNotFound = errors.New("未找到指定的密钥记录")
)

// AccessKeyRepository 访问密钥仓库
// 密钥和令牌都是邮箱的纯函数推导值，仓库只保存密钥哈希。
type AccessKeyRepository struct {
	store kvstore.Store
}

// NewAccessKeyRepository 创建仓库实例
func NewAccessKeyRepository(store kvstore.Store) *AccessKeyRepository {
	return &AccessKeyRepository{store: store}
}

// List 列出全部密钥记录
func (r *AccessKeyRepository) List(ctx context.Context) ([]accesskey.Record, error) {
	raw, _, err := r.store.Get(ctx, kvstore.KeyAccessKeys)
	if err != nil {
		return nil, err
	}
	return accesskey.ParseRecords(raw), nil
}

// Add 为邮箱生成密钥记录，返回记录和明文密钥
func (r *AccessKeyRepository) Add(ctx context.Context, email, createdBy string) (*accesskey.Record, string, error) {
	normalized := accesskey.NormalizeEmail(email)
	if normalized == "" {
		return nil, "", ErrEmptyEmail
	}
	if !accesskey.ValidEmail(normalized) {
		return nil, "", ErrInvalidEmail
	}

	plainKey := accesskey.DeriveAccessKey(normalized)
	record := accesskey.Record{
		ID:        uuid.NewString(),
		Email:     normalized,
		Hash:      accesskey.HashAccessKey(plainKey),
		CreatedAt: time.Now(),
		CreatedBy: createdBy,
	}

	err := r.store.Update(ctx, kvstore.KeyAccessKeys, func(raw string, _ bool) (string, error) {
		records := accesskey.ParseRecords(raw)
		for i := range records {
			if records[i].Email == normalized {
				return "", ErrDuplicateEmail
			}
		}
		return accesskey.EncodeRecords(append(records, record))
	})
	if err != nil {
		return nil, "", err
	}
	return &record, plainKey, nil
}

// Remove 删除密钥记录，记录不存在时视为成功
func (r *AccessKeyRepository) Remove(ctx context.Context, id string) error {
	return r.store.Update(ctx, kvstore.KeyAccessKeys, func(raw string, _ bool) (string, error) {
		records := accesskey.ParseRecords(raw)
		next := make([]accesskey.Record, 0, len(records))
		for i := range records {
			if records[i].ID != id {
				next = append(next, records[i])
			}
		}
		return accesskey.EncodeRecords(next)
	})
}

// UpdateEmail 修改记录邮箱
// 注意：密钥由邮箱推导，改邮箱等价于轮换密钥，旧密钥随之失效。
func (r *AccessKeyRepository) UpdateEmail(ctx context.Context, id, email, updatedBy string) (*accesskey.Record, string, error) {
	normalized := accesskey.NormalizeEmail(email)
	if normalized == "" {
		return nil, "", ErrEmptyEmail
	}
	if !accesskey.ValidEmail(normalized) {
		return nil, "", ErrInvalidEmail
	}

	plainKey := accesskey.DeriveAccessKey(normalized)
	newHash := accesskey.HashAccessKey(plainKey)

	var result accesskey.Record
	err := r.store.Update(ctx, kvstore.KeyAccessKeys, func(raw string, _ bool) (string, error) {
		records := accesskey.ParseRecords(raw)

		index := -1
		for i := range records {
			if records[i].ID == id {
				index = i
				continue
			}
			if records[i].Email == normalized {
				return "", ErrDuplicateEmail
			}
		}
		if index < 0 {
			return "", ErrKeyNotFound
		}

		records[index].Email = normalized
		records[index].Hash = newHash
		result = records[index]
		return accesskey.EncodeRecords(records)
	})
	if err != nil {
		return nil, "", err
	}
	_ = updatedBy // 创建人信息保留原值，与存量行为一致
	return &result, plainKey, nil
}

// GetPlain 按 id 取记录及推导出的明文密钥和令牌
func (r *AccessKeyRepository) GetPlain(ctx context.Context, id string) (*accesskey.Record, string, string, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, "", "", err
	}

	for i := range records {
		if records[i].ID == id {
			record := records[i]
			return &record, accesskey.DeriveAccessKey(record.Email), accesskey.DeriveAccessToken(record.Email), nil
		}
	}
	return nil, "", "", ErrKeyNotFound
}

// GetByEmail 按邮箱取记录及推导值，无记录时返回 nil 且无错误
func (r *AccessKeyRepository) GetByEmail(ctx context.Context, email string) (*accesskey.Record, string, string, error) {
	normalized := accesskey.NormalizeEmail(email)
	if normalized == "" {
		return nil, "", "", nil
	}

	records, err := r.List(ctx)
	if err != nil {
		return nil, "", "", err
	}

	for i := range records {
		if records[i].Email == normalized {
			record := records[i]
			return &record, accesskey.DeriveAccessKey(record.Email), accesskey.DeriveAccessToken(record.Email), nil
		}
	}
	return nil, "", "", nil
}

// EnsureForEmail 确保邮箱存在密钥记录，不存在则创建
func (r *AccessKeyRepository) EnsureForEmail(ctx context.Context, email, createdBy string) (*accesskey.Record, string, error) {
	record, plainKey, _, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if record != nil {
		return record, plainKey, nil
	}

	record, plainKey, err = r.Add(ctx, email, createdBy)
	if errors.Is(err, ErrDuplicateEmail) {
		// 并发创建时让出，读取已存在的记录
		record, plainKey, _, err = r.GetByEmail(ctx, email)
		if err == nil && record == nil {
			err = ErrKeyNotFound
		}
	}
	return record, plainKey, err
}

// FindOwner 按候选密钥查找归属记录
// 先比对入库哈希；兼容历史数据：候选值直接等于旧版明文推导密钥时，
// 顺手把哈希字段补齐（首次使用时自愈）。
func (r *AccessKeyRepository) FindOwner(ctx context.Context, candidate string) (*accesskey.Record, error) {
	value := strings.TrimSpace(candidate)
	if value == "" {
		return nil, nil
	}

	hashedCandidate := accesskey.HashAccessKey(value)

	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range records {
		record := records[i]

		if record.Hash == hashedCandidate {
			return &record, nil
		}

		legacyKey := accesskey.DeriveAccessKey(record.Email)
		if value == legacyKey {
			if record.Hash != hashedCandidate {
				if err := r.backfillHash(ctx, record.ID, hashedCandidate); err != nil {
					return nil, err
				}
				record.Hash = hashedCandidate
			}
			return &record, nil
		}
	}
	return nil, nil
}

// backfillHash 自愈旧记录的哈希字段
func (r *AccessKeyRepository) backfillHash(ctx context.Context, id, hash string) error {
	return r.store.Update(ctx, kvstore.KeyAccessKeys, func(raw string, _ bool) (string, error) {
		records := accesskey.ParseRecords(raw)
		for i := range records {
			if records[i].ID == id {
				records[i].Hash = hash
				break
			}
		}
		return accesskey.EncodeRecords(records)
	})
}
