package bootstrap

import (
	"time"

	"elink/app/jobs"
	"elink/app/repositories"
	billingsvc "elink/app/services/billing"
	"elink/pkg/config"
	"elink/pkg/kvstore"
	"elink/pkg/payment/zpay"
)

// SetupOrderSweeper 启动订单巡检任务，返回句柄供关闭时停止
func SetupOrderSweeper() *jobs.OrderSweeper {
	balances := repositories.NewBalanceRepository(kvstore.KV)
	keys := repositories.NewAccessKeyRepository(kvstore.KV)
	orders := repositories.NewOrderRepository(kvstore.KV, balances, keys)
	pricing := repositories.NewPricingRepository(kvstore.KV)

	service := billingsvc.NewService(orders, balances, pricing, zpay.NewFromConfig())

	sweeper := jobs.NewOrderSweeper(
		service,
		time.Duration(config.GetInt64("payment.sweep_interval", 60))*time.Second,
		config.GetBool("payment.server_side_sync"),
	)
	sweeper.Start()
	return sweeper
}
