// Package routes 注册路由
package routes

import (
	"github.com/gin-gonic/gin"

	"elink/app/http/controllers/api/v1/admin"
	"elink/app/http/controllers/api/v1/auth"
	"elink/app/http/controllers/api/v1/billing"
	"elink/app/http/controllers/api/v1/links"
	"elink/app/http/controllers/api/v1/payments"
	"elink/app/http/middlewares"
)

// 路由限流配置
const (
	// 🌍 全局限流：每小时每 IP 30000 请求
	GlobalRateLimit = "30000-H"
	// 💰 发起充值限流：每小时每 IP 100 请求
	TopUpLimit = "100-H"
	// 📊 订单状态轮询限流：每分钟每 IP 300 请求
	OrderStatusLimit = "300-M"
	// 🔗 外链接口限流：每分钟每 IP 60 请求
	LinksLimit = "60-M"
	// 🔐 登录限流：每小时每 IP 30 请求
	LoginLimit = "30-H"
)

// RegisterAPIRoutes 注册所有 API 路由
func RegisterAPIRoutes(r *gin.Engine) {
	v1 := r.Group("/v1")

	v1.Use(
		middlewares.SecurityHeaders(),
		middlewares.LimitIP(GlobalRateLimit),
		middlewares.Cors(),
	)

	// 💰 充值与余额
	billingRoutes := v1.Group("/billing")
	{
		bc := billing.NewBillingController()

		// 发起充值，返回支付二维码
		// POST /v1/billing/topup
		billingRoutes.POST("/topup",
			middlewares.LimitPerRoute(TopUpLimit),
			bc.TopUp,
		)

		// 轮询订单状态
		// GET /v1/billing/orders/:id/status
		billingRoutes.GET("/orders/:id/status",
			middlewares.LimitPerRoute(OrderStatusLimit),
			bc.OrderStatus,
		)

		// 查询余额
		// GET /v1/billing/balance?email=
		billingRoutes.GET("/balance",
			middlewares.LimitPerRoute(OrderStatusLimit),
			bc.Balance,
		)
	}

	// 📥 支付网关回调，GET/POST 都要兼容
	nc := payments.NewNotifyController()
	v1.GET("/payments/zpay/notify", nc.ZPayNotify)
	v1.POST("/payments/zpay/notify", nc.ZPayNotify)

	// 🔗 关键词外链
	lc := links.NewLinksController()
	v1.GET("/external-links",
		middlewares.LimitPerRoute(LinksLimit),
		lc.Query,
	)
	v1.POST("/external-links",
		middlewares.LimitPerRoute(LinksLimit),
		lc.Store,
	)

	// 🔐 管理员登录
	authController := auth.NewAuthController()
	v1.POST("/auth/admin/login",
		middlewares.LimitPerRoute(LoginLimit),
		authController.AdminLogin,
	)

	// 🛠 管理后台，全部要求 Bearer JWT
	adminRoutes := v1.Group("/admin", middlewares.AuthAdmin())
	{
		ac := admin.NewAdminController()

		adminRoutes.GET("/keys", ac.ListKeys)
		adminRoutes.POST("/keys", ac.CreateKey)
		adminRoutes.PUT("/keys/:id", ac.UpdateKey)
		adminRoutes.DELETE("/keys/:id", ac.DeleteKey)
		adminRoutes.GET("/keys/:id/plain", ac.GetPlainKey)

		adminRoutes.GET("/pricing", ac.GetPricing)
		adminRoutes.PUT("/pricing", ac.UpdatePricing)

		adminRoutes.GET("/balances", ac.ListBalances)
		adminRoutes.GET("/usage", ac.ListUsage)
	}
}
