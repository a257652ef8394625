package config

import "elink/pkg/config"

func init() {
	config.Add("admin", func() map[string]interface{} {
		return map[string]interface{}{
			"username": config.Env("ADMIN_USERNAME", "admin"),

			// bcrypt 哈希，不落明文
			"password_hash": config.Env("ADMIN_PASSWORD_HASH", ""),
		}
	})
}
