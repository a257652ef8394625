// Package admin 管理后台接口，全部路由走 AuthAdmin 中间件
package admin

import (
	"errors"

	"github.com/gin-gonic/gin"

	"elink/app/models/accesskey"
	"elink/app/repositories"
	"elink/app/requests"
	"elink/pkg/kvstore"
	"elink/pkg/response"
)

type AdminController struct {
	keys     *repositories.AccessKeyRepository
	balances *repositories.BalanceRepository
	pricing  *repositories.PricingRepository
}

func NewAdminController() *AdminController {
	return &AdminController{
		keys:     repositories.NewAccessKeyRepository(kvstore.KV),
		balances: repositories.NewBalanceRepository(kvstore.KV),
		pricing:  repositories.NewPricingRepository(kvstore.KV),
	}
}

// operator 当前操作的管理员，AuthAdmin 中间件注入
func operator(c *gin.Context) string {
	return c.GetString("admin_username")
}

// ListKeys 列出全部访问密钥（脱敏视图）
func (ac *AdminController) ListKeys(c *gin.Context) {
	records, err := ac.keys.List(c.Request.Context())
	if err != nil {
		response.ServerError(c, err, "读取访问密钥失败")
		return
	}

	sanitized := make([]accesskey.Sanitized, 0, len(records))
	for _, record := range records {
		sanitized = append(sanitized, record.Sanitize())
	}
	response.Data(c, gin.H{"keys": sanitized})
}

// CreateKey 为邮箱创建访问密钥，返回一次性的明文密钥
func (ac *AdminController) CreateKey(c *gin.Context) {
	rules, messages := requests.AccessKeyRules()
	request, err := requests.ValidateRequest[requests.AccessKeyRequest](c, rules, messages)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	record, plainKey, err := ac.keys.Add(c.Request.Context(), request.Email, operator(c))
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrInvalidEmail):
			response.Fail(c, 400, response.CodeInvalidBody, err.Error())
		case errors.Is(err, repositories.ErrDuplicateEmail):
			response.Fail(c, 409, "DUPLICATE_EMAIL", err.Error())
		default:
			response.ServerError(c, err, "创建访问密钥失败")
		}
		return
	}

	response.Created(c, gin.H{
		"key":       record.Sanitize(),
		"accessKey": plainKey,
	})
}

// UpdateKey 更换访问密钥绑定的邮箱，密钥随之轮换
func (ac *AdminController) UpdateKey(c *gin.Context) {
	rules, messages := requests.AccessKeyRules()
	request, err := requests.ValidateRequest[requests.AccessKeyRequest](c, rules, messages)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	record, plainKey, err := ac.keys.UpdateEmail(c.Request.Context(), c.Param("id"), request.Email, operator(c))
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrKeyNotFound):
			response.Abort404(c, "访问密钥不存在")
		case errors.Is(err, repositories.ErrInvalidEmail):
			response.Fail(c, 400, response.CodeInvalidBody, err.Error())
		case errors.Is(err, repositories.ErrDuplicateEmail):
			response.Fail(c, 409, "DUPLICATE_EMAIL", err.Error())
		default:
			response.ServerError(c, err, "更新访问密钥失败")
		}
		return
	}

	response.Data(c, gin.H{
		"key":       record.Sanitize(),
		"accessKey": plainKey,
	})
}

// DeleteKey 删除访问密钥
func (ac *AdminController) DeleteKey(c *gin.Context) {
	if err := ac.keys.Remove(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			response.Abort404(c, "访问密钥不存在")
			return
		}
		response.ServerError(c, err, "删除访问密钥失败")
		return
	}
	response.Success(c, "删除成功")
}

// GetPlainKey 取回明文密钥和令牌，给后台展示用
func (ac *AdminController) GetPlainKey(c *gin.Context) {
	record, plainKey, token, err := ac.keys.GetPlain(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			response.Abort404(c, "访问密钥不存在")
			return
		}
		response.ServerError(c, err, "读取访问密钥失败")
		return
	}

	response.Data(c, gin.H{
		"email":       record.Email,
		"accessKey":   plainKey,
		"accessToken": token,
	})
}

// GetPricing 读取 token 单价
func (ac *AdminController) GetPricing(c *gin.Context) {
	record, err := ac.pricing.Get(c.Request.Context())
	if err != nil {
		response.ServerError(c, err, "读取计费配置失败")
		return
	}
	response.Data(c, record)
}

// UpdatePricing 更新 token 单价
func (ac *AdminController) UpdatePricing(c *gin.Context) {
	rules, messages := requests.PricingUpdateRules()
	request, err := requests.ValidateRequest[requests.PricingUpdateRequest](c, rules, messages)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	record, err := ac.pricing.Update(c.Request.Context(), request.PricePerThousandTokens, operator(c))
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidAmount) {
			response.Fail(c, 400, response.CodeInvalidBody, "单价必须是大于 0 的数字")
			return
		}
		response.ServerError(c, err, "更新计费配置失败")
		return
	}
	response.Data(c, record)
}

// ListBalances 列出全部用户余额
func (ac *AdminController) ListBalances(c *gin.Context) {
	records, err := ac.balances.List(c.Request.Context())
	if err != nil {
		response.ServerError(c, err, "读取余额失败")
		return
	}
	response.Data(c, gin.H{"balances": records})
}

// ListUsage 列出全部用户用量
func (ac *AdminController) ListUsage(c *gin.Context) {
	records, err := ac.balances.ListUsage(c.Request.Context())
	if err != nil {
		response.ServerError(c, err, "读取用量失败")
		return
	}
	response.Data(c, gin.H{"usage": records})
}
