package bootstrap

import (
	"fmt"

	"elink/pkg/config"
	"elink/pkg/kvstore"
	"elink/pkg/redis"
)

// SetupRedis 初始化 Redis 连接并注入全局 KV 存储
func SetupRedis() {
	redis.ConnectRedis(
		fmt.Sprintf("%v:%v", config.GetString("redis.host"), config.GetString("redis.port")),
		config.GetString("redis.username"),
		config.GetString("redis.password"),
		config.GetInt("redis.database"),
	)

	// 业务数据统一走 kvstore 抽象，测试时可换内存实现
	kvstore.KV = kvstore.NewRedisStore(redis.Redis.Client)
}
