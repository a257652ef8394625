package config

import "elink/pkg/config"

func init() {
	config.Add("search", func() map[string]interface{} {
		return map[string]interface{}{
			"endpoint": config.Env("SEARCH_ENDPOINT", "https://google.serper.dev/search"),
			"api_key":  config.Env("SEARCH_API_KEY", ""),

			// 搜索接口超时，秒
			"timeout": config.Env("SEARCH_TIMEOUT", 15),
		}
	})
}
