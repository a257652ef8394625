// Package payments 支付网关回调接口
package payments

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"elink/app/repositories"
	billingsvc "elink/app/services/billing"
	"elink/pkg/kvstore"
	"elink/pkg/payment/zpay"
)

type NotifyController struct {
	service *billingsvc.Service
}

func NewNotifyController() *NotifyController {
	balances := repositories.NewBalanceRepository(kvstore.KV)
	keys := repositories.NewAccessKeyRepository(kvstore.KV)
	orders := repositories.NewOrderRepository(kvstore.KV, balances, keys)
	pricing := repositories.NewPricingRepository(kvstore.KV)

	return &NotifyController{
		service: billingsvc.NewService(orders, balances, pricing, zpay.NewFromConfig()),
	}
}

// ZPayNotify 处理 ZPay 异步回调
//
// 网关对非 "success" 应答会反复重试，所以这里无论处理结果如何，
// 一律回固定的 "success" 文本。参数兼容 GET 查询串和 POST 表单。
func (nc *NotifyController) ZPayNotify(c *gin.Context) {
	payload := collectParams(c)
	nc.service.HandleNotify(c.Request.Context(), payload)
	c.String(http.StatusOK, "success")
}

// collectParams 合并查询串和表单参数，表单优先
func collectParams(c *gin.Context) map[string]string {
	payload := make(map[string]string)

	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}

	if c.Request.Method == http.MethodPost {
		if err := c.Request.ParseForm(); err == nil {
			for key, values := range c.Request.PostForm {
				if len(values) > 0 {
					payload[key] = values[0]
				}
			}
		}
	}

	return payload
}
