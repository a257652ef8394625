package order

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// PaymentMethods 支持的支付方式
var PaymentMethods = []string{"alipay", "wxpay"}

// NormalizeEmail 邮箱统一小写去空格
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeAmount 金额四舍五入保留两位小数
func NormalizeAmount(value float64) float64 {
	return math.Round(value*100) / 100
}

// ToDisplayAmount 金额的两位小数展示串
func ToDisplayAmount(value float64) string {
	return fmt.Sprintf("%.2f", NormalizeAmount(value))
}

// NormalizePaymentMethod 非法值一律回退为 alipay，与存量数据的容错保持一致
func NormalizePaymentMethod(method string) string {
	if method == "wxpay" {
		return "wxpay"
	}
	return "alipay"
}

// GenerateOrderNo 生成对外订单号：ZP + 毫秒时间戳 + 6 位随机数
// 碰撞概率可以忽略，不做唯一性检查
func GenerateOrderNo() string {
	return fmt.Sprintf("ZP%d%06d", time.Now().UnixMilli(), rand.Intn(1_000_000))
}

// ParseCollection 解析订单集合 JSON
// 与存量数据保持同样的容错策略：整体解析失败返回空集合，
// 单条记录损坏则跳过，字段缺省做归一化。
func ParseCollection(raw string) []Order {
	if raw == "" {
		return []Order{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []Order{}
	}

	records := make([]Order, 0, len(items))
	for _, item := range items {
		var record Order
		if err := json.Unmarshal(item, &record); err != nil {
			continue
		}
		if record.ID == "" || record.OrderNo == "" || record.Email == "" {
			continue
		}

		record.Email = NormalizeEmail(record.Email)
		record.Amount = NormalizeAmount(record.Amount)
		if record.DisplayAmount == "" {
			record.DisplayAmount = ToDisplayAmount(record.Amount)
		}
		record.Channel = Channel
		record.PaymentMethod = NormalizePaymentMethod(record.PaymentMethod)
		if record.Status == "" {
			record.Status = StatusPending
		}

		records = append(records, record)
	}
	return records
}

// EncodeCollection 序列化订单集合
func EncodeCollection(records []Order) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("序列化支付订单失败: %w", err)
	}
	return string(data), nil
}
