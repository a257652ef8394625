package config

import "elink/pkg/config"

func init() {
	config.Add("ai", func() map[string]interface{} {
		return map[string]interface{}{
			"base_url": config.Env("AI_BASE_URL", "https://api.openai.com/v1"),
			"api_key":  config.Env("AI_API_KEY", ""),
			"model":    config.Env("AI_MODEL", "gpt-4o-mini"),

			// 模型接口超时，秒
			"timeout": config.Env("AI_TIMEOUT", 90),
		}
	})
}
