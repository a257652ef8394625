package config

import "elink/pkg/config"

func init() {
	config.Add("payment", func() map[string]interface{} {
		return map[string]interface{}{

			// ZPay 商户配置，pid 和 key 为空时支付渠道视为未开通
			"zpay": map[string]interface{}{
				"pid":      config.Env("ZPAY_PID", ""),
				"key":      config.Env("ZPAY_KEY", ""),
				"cid":      config.Env("ZPAY_CID", ""),
				"base_url": config.Env("ZPAY_BASE_URL", "https://zpayz.cn"),

				// 异步回调与同步回跳地址，留空时由 app.url 拼接
				"notify_url": config.Env("ZPAY_NOTIFY_URL", ""),
				"return_url": config.Env("ZPAY_RETURN_URL", ""),
			},

			// 服务端是否主动轮询网关对账（无客户端轮询时兜底）
			"server_side_sync": config.Env("PAYMENT_SERVER_SIDE_SYNC", true),

			// 过期订单清理间隔，秒
			"sweep_interval": config.Env("PAYMENT_SWEEP_INTERVAL", 60),
		}
	})
}
