package config

import "elink/pkg/config"

func init() {
	config.Add("jwt", func() map[string]interface{} {
		return map[string]interface{}{
			"secret": config.Env("JWT_SECRET", ""),

			// 过期时间，单位分钟
			"expire_time": config.Env("JWT_EXPIRE_TIME", 720),
		}
	})
}
