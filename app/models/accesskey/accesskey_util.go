package accesskey

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// 哈希入库时的前缀，防止与裸密钥哈希混用
const hashPrefix = "access-key:"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail 邮箱统一小写去空格
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail 校验邮箱格式
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// DeriveAccessKey 由邮箱推导访问密钥：hex(sha256(email))
// 纯函数：同一邮箱永远得到同一密钥，改邮箱等价于轮换密钥。
func DeriveAccessKey(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// DeriveAccessToken 由邮箱推导请求令牌：hex(sha256(md5hex(normalizedEmail)))
func DeriveAccessToken(email string) string {
	md5Sum := md5.Sum([]byte(NormalizeEmail(email)))
	md5Hex := hex.EncodeToString(md5Sum[:])
	sum := sha256.Sum256([]byte(md5Hex))
	return hex.EncodeToString(sum[:])
}

// HashAccessKey 计算密钥的入库哈希：hex(sha256("access-key:" + key))
func HashAccessKey(accessKey string) string {
	sum := sha256.Sum256([]byte(hashPrefix + accessKey))
	return hex.EncodeToString(sum[:])
}

// ParseRecords 解析密钥集合 JSON，损坏的记录跳过
func ParseRecords(raw string) []Record {
	if raw == "" {
		return []Record{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []Record{}
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		var record Record
		if err := json.Unmarshal(item, &record); err != nil {
			continue
		}
		// Hash 允许为空，历史数据没有该字段，首次使用时自愈补齐
		if record.ID == "" || record.Email == "" {
			continue
		}
		record.Email = NormalizeEmail(record.Email)
		records = append(records, record)
	}
	return records
}

// EncodeRecords 序列化密钥集合
func EncodeRecords(records []Record) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("序列化访问密钥失败: %w", err)
	}
	return string(data), nil
}
