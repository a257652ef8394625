package payments

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"elink/pkg/kvstore"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	kvstore.KV = kvstore.NewMemoryStore()

	router := gin.New()
	nc := NewNotifyController()
	router.GET("/v1/payments/zpay/notify", nc.ZPayNotify)
	router.POST("/v1/payments/zpay/notify", nc.ZPayNotify)
	return router
}

func TestNotifyAlwaysRespondsSuccess(t *testing.T) {
	router := setupRouter()

	// GET 形态，参数不全
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/payments/zpay/notify?out_trade_no=ZP-unknown", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())

	// POST 表单形态
	form := url.Values{}
	form.Set("out_trade_no", "ZP-unknown")
	form.Set("trade_status", "TRADE_SUCCESS")
	form.Set("sign", "bogus")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/payments/zpay/notify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())

	// 空参数也回 success
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/payments/zpay/notify", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())
}
