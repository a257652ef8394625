// Package billing 充值与余额相关接口
package billing

import (
	"errors"

	"github.com/gin-gonic/gin"

	"elink/app/repositories"
	"elink/app/requests"
	billingsvc "elink/app/services/billing"
	"elink/pkg/kvstore"
	"elink/pkg/payment/zpay"
	"elink/pkg/response"
)

type BillingController struct {
	service *billingsvc.Service
}

func NewBillingController() *BillingController {
	balances := repositories.NewBalanceRepository(kvstore.KV)
	keys := repositories.NewAccessKeyRepository(kvstore.KV)
	orders := repositories.NewOrderRepository(kvstore.KV, balances, keys)
	pricing := repositories.NewPricingRepository(kvstore.KV)

	return &BillingController{
		service: billingsvc.NewService(orders, balances, pricing, zpay.NewFromConfig()),
	}
}

// TopUp 发起充值，返回支付二维码
func (bc *BillingController) TopUp(c *gin.Context) {
	rules, messages := requests.TopUpRules()
	request, err := requests.ValidateRequest[requests.TopUpRequest](c, rules, messages)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	result, err := bc.service.TopUp(c.Request.Context(), billingsvc.TopUpParams{
		Email:         request.Email,
		Amount:        request.Amount,
		PaymentMethod: request.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, billingsvc.ErrChannelNotConfigured):
			response.Fail(c, 503, "PAYMENT_UNAVAILABLE", err.Error())
		case errors.Is(err, repositories.ErrEmptyEmail),
			errors.Is(err, repositories.ErrInvalidAmount):
			response.Fail(c, 400, response.CodeInvalidBody, err.Error())
		default:
			response.ServerError(c, err, "创建支付订单失败，请稍后重试")
		}
		return
	}

	response.Data(c, result)
}

// OrderStatus 查询订单状态，前端轮询入口
func (bc *BillingController) OrderStatus(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		response.Fail(c, 400, response.CodeInvalidQuery, "缺少订单 ID")
		return
	}

	result, err := bc.service.OrderStatus(c.Request.Context(), orderID, c.Query("email"))
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrOrderNotFound):
			response.Abort404(c, "订单不存在")
		case errors.Is(err, billingsvc.ErrNotOwner):
			response.Unauthorized(c, err.Error())
		default:
			response.ServerError(c, err, "查询订单状态失败")
		}
		return
	}

	response.Data(c, result)
}

// Balance 查询指定邮箱的余额
func (bc *BillingController) Balance(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Fail(c, 400, response.CodeInvalidQuery, "缺少 email 参数")
		return
	}

	balance, err := bc.service.GetBalance(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, repositories.ErrEmptyEmail) {
			response.Fail(c, 400, response.CodeInvalidQuery, err.Error())
			return
		}
		response.ServerError(c, err, "查询余额失败")
		return
	}

	response.Data(c, gin.H{
		"email":   email,
		"balance": balance,
	})
}
