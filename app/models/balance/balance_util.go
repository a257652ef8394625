package balance

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// NormalizeEmail 邮箱统一小写去空格
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeAmount 金额四舍五入保留两位小数
func NormalizeAmount(value float64) float64 {
	return math.Round(value*100) / 100
}

// ParseRecords 解析余额集合 JSON，损坏的记录跳过
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
		if record.Email == "" {
			continue
		}
		record.Email = NormalizeEmail(record.Email)
		record.Balance = NormalizeAmount(record.Balance)
		records = append(records, record)
	}
	return records
}

// EncodeRecords 序列化余额集合
func EncodeRecords(records []Record) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("序列化余额记录失败: %w", err)
	}
	return string(data), nil
}

// ParseUsage 解析用量集合 JSON
func ParseUsage(raw string) []UsageSummary {
	if raw == "" {
		return []UsageSummary{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []UsageSummary{}
	}

	records := make([]UsageSummary, 0, len(items))
	for _, item := range items {
		var record UsageSummary
		if err := json.Unmarshal(item, &record); err != nil {
			continue
		}
		if record.Email == "" {
			continue
		}
		record.Email = NormalizeEmail(record.Email)
		record.TotalSpent = NormalizeAmount(record.TotalSpent)
		records = append(records, record)
	}
	return records
}

// EncodeUsage 序列化用量集合
func EncodeUsage(records []UsageSummary) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("序列化用量记录失败: %w", err)
	}
	return string(data), nil
}
