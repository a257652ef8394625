// Package links 关键词外链接口
//
// 鉴权支持两种形态：直接携带 accessKey，或 email 加 x-token 请求头。
// 两种形态最终都落到同一个派生校验上，失败一律回笼统的 401。
package links

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"elink/app/models/order"
	"elink/app/repositories"
	"elink/app/requests"
	billingsvc "elink/app/services/billing"
	"elink/pkg/ai"
	"elink/pkg/kvstore"
	"elink/pkg/logger"
	"elink/pkg/payment/zpay"
	"elink/pkg/response"
	"elink/pkg/search"
)

type LinksController struct {
	billing *billingsvc.Service
	keys    *repositories.AccessKeyRepository
	ai      *ai.Client
	search  *search.Client
}

func NewLinksController() *LinksController {
	balances := repositories.NewBalanceRepository(kvstore.KV)
	keys := repositories.NewAccessKeyRepository(kvstore.KV)
	orders := repositories.NewOrderRepository(kvstore.KV, balances, keys)
	pricing := repositories.NewPricingRepository(kvstore.KV)

	return &LinksController{
		billing: billingsvc.NewService(orders, balances, pricing, zpay.NewFromConfig()),
		keys:    keys,
		ai:      ai.NewFromConfig(),
		search:  search.NewFromConfig(),
	}
}

// KeywordItem 单个关键词的产出
type KeywordItem struct {
	Keyword      string              `json:"keyword"`
	Query        string              `json:"query"`
	Link         string              `json:"link,omitempty"`
	Title        string              `json:"title,omitempty"`
	Alternatives search.Alternatives `json:"alternatives"`
}

// Query GET 形态，参数走查询串
func (lc *LinksController) Query(c *gin.Context) {
	request := requests.ParseLinksQuery(c)
	lc.handle(c, request, response.CodeInvalidQuery)
}

// Store POST 形态，参数走 JSON
func (lc *LinksController) Store(c *gin.Context) {
	var request requests.LinksRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Fail(c, http.StatusBadRequest, response.CodeInvalidBody, "请求体不是合法的 JSON")
		return
	}
	lc.handle(c, request, response.CodeInvalidBody)
}

func (lc *LinksController) handle(c *gin.Context, request requests.LinksRequest, invalidCode string) {
	email, ok := lc.authenticate(c, request)
	if !ok {
		response.Unauthorized(c)
		return
	}

	if strings.TrimSpace(request.Text) == "" {
		response.Fail(c, http.StatusBadRequest, invalidCode, "缺少 text 参数")
		return
	}
	if strings.EqualFold(request.Provider, "custom") && request.APIKey == "" {
		response.Fail(c, http.StatusBadRequest, invalidCode, "provider 为 custom 时 apiKey 必填")
		return
	}

	// 余额为 0 的账号直接拒绝，避免白白消耗模型额度
	balance, err := lc.billing.GetBalance(c.Request.Context(), email)
	if err != nil {
		response.ServerError(c, err)
		return
	}
	if balance <= 0 {
		response.Fail(c, http.StatusPaymentRequired, "INSUFFICIENT_BALANCE", "余额不足，请先充值")
		return
	}

	result, err := lc.ai.ExtractKeywords(c.Request.Context(), request.Text, ai.Options{
		APIKey:  request.APIKey,
		BaseURL: request.BaseURL,
		Model:   request.Model,
	})
	if err != nil {
		if errors.Is(err, ai.ErrAI) {
			response.Fail(c, http.StatusInternalServerError, response.CodeAIError, err.Error())
			return
		}
		response.ServerError(c, err)
		return
	}

	// 外链检索失败不致命，降级为只返回关键词
	items, linkFetchError := lc.fetchLinks(c, result.Keywords, request)

	// 自定义模型用的是调用方自己的额度，不计费
	if !strings.EqualFold(request.Provider, "custom") {
		if _, err := lc.billing.ChargeUsage(c.Request.Context(), email, result.Usage.TotalTokens); err != nil {
			logger.ErrorString("外链", "扣费失败", err.Error())
		}
	}

	data := gin.H{
		"keywords": items,
		"usage":    result.Usage,
	}
	if linkFetchError != "" {
		data["linkFetchError"] = linkFetchError
	}
	response.Data(c, data)
}

// authenticate 解析并校验调用方身份，返回归一化邮箱
func (lc *LinksController) authenticate(c *gin.Context, request requests.LinksRequest) (string, bool) {
	ctx := c.Request.Context()

	if key := strings.TrimSpace(request.AccessKey); key != "" {
		record, err := lc.keys.FindOwner(ctx, key)
		if err != nil || record == nil {
			return "", false
		}
		return record.Email, true
	}

	email := order.NormalizeEmail(request.Email)
	if email == "" {
		return "", false
	}
	record, _, token, err := lc.keys.GetByEmail(ctx, email)
	if err != nil || record == nil {
		return "", false
	}
	if c.GetHeader("x-token") != token {
		return "", false
	}
	return email, true
}

func (lc *LinksController) fetchLinks(c *gin.Context, keywords []ai.Keyword, request requests.LinksRequest) ([]KeywordItem, string) {
	queries := make([]search.Query, 0, len(keywords))
	for _, kw := range keywords {
		queries = append(queries, search.Query{Keyword: kw.Keyword, Query: kw.Query})
	}

	results, err := lc.search.FetchLinks(c.Request.Context(), queries, request.Blacklist, request.PreferredSites)
	linkFetchError := ""
	if err != nil {
		logger.WarnString("外链", "检索失败", err.Error())
		linkFetchError = "外链检索失败，已返回关键词"
	}

	items := make([]KeywordItem, 0, len(keywords))
	for _, kw := range keywords {
		item := KeywordItem{Keyword: kw.Keyword, Query: kw.Query}
		if result, ok := results[kw.Keyword]; ok {
			item.Link = result.Link
			item.Title = result.Title
			item.Alternatives = result.Alternatives
		}
		items = append(items, item)
	}
	return items, linkFetchError
}
