package zpay

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotConfigured 商户参数未配置
	ErrNotConfigured = errors.New("未配置 ZPay 支付参数")
	// ErrGateway 网关侧报错
	ErrGateway = errors.New("ZPay 网关错误")
)

// BuildSign 计算 epay 风格的 MD5 签名
//
// 规则：剔除 sign、sign_type 和空值参数，其余按 key 字典序排列，
// 拼成 k=v&k=v 串后直接追加商户密钥，取 MD5 的小写十六进制。
func BuildSign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if key == "sign" || key == "sign_type" || value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	source := strings.Join(pairs, "&") + secret
	sum := md5.Sum([]byte(source))
	return hex.EncodeToString(sum[:])
}
