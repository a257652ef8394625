package zpay

import (
	"time"

	"elink/pkg/app"
	"elink/pkg/config"
)

// NewFromConfig 从配置创建客户端
// 回调与回跳地址未显式配置时，基于 app.url 拼接默认路径。
func NewFromConfig() *Client {
	notifyURL := config.GetString("payment.zpay.notify_url")
	if notifyURL == "" {
		notifyURL = app.URL("/v1/payments/zpay/notify")
	}
	returnURL := config.GetString("payment.zpay.return_url")
	if returnURL == "" {
		returnURL = app.URL("/topup")
	}

	return New(Config{
		Pid:       config.GetString("payment.zpay.pid"),
		Key:       config.GetString("payment.zpay.key"),
		Cid:       config.GetString("payment.zpay.cid"),
		BaseURL:   config.GetString("payment.zpay.base_url"),
		NotifyURL: notifyURL,
		ReturnURL: returnURL,
		Timeout:   15 * time.Second,
	})
}
