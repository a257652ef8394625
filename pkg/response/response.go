// Package response 提供统一的 HTTP 响应处理

package response

import (
	"net/http"

	"elink/pkg/logger"

	"github.com/gin-gonic/gin"
)

/* 标准响应结构
{
    "success": true,
    "data": {},       // 成功时返回的数据
    "error": {        // 失败时返回的错误
        "code": "UNAUTHORIZED",
        "message": "...",
        "details": []
    }
}
*/

// 对外错误码
const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeInvalidQuery  = "INVALID_QUERY"
	CodeInvalidBody   = "INVALID_BODY"
	CodeRateLimited   = "RATE_LIMITED"
	CodeAIError       = "AI_ERROR"
	CodeInternalError = "INTERNAL_ERROR"
)

// ErrorBody 错误信息
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Response 统一响应结构体
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ------------------ 🎯 成功响应系列 ------------------

// Data 响应 200 和数据
func Data(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// JSON 直接返回 JSON 数据
func JSON(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Success 响应 200 和提示信息
func Success(c *gin.Context, msg ...string) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: getMsg("操作成功", msg...),
	})
}

// Created 成功创建的响应
func Created(c *gin.Context, data interface{}, msg ...string) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: getMsg("创建成功", msg...),
		Data:    data,
	})
}

//  ------------------ 错误响应系列 ------------------

// Fail 按错误码响应失败
func Fail(c *gin.Context, status int, code, message string, details ...interface{}) {
	body := &ErrorBody{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		body.Details = details[0]
	}
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   body,
	})
}

// Unauthorized 响应 401，提示信息保持笼统，不暴露具体是哪项校验失败
func Unauthorized(c *gin.Context, msg ...string) {
	Fail(c, http.StatusUnauthorized, CodeUnauthorized, getMsg("未被授权使用 Elink", msg...))
}

// BadRequest 响应 400 错误（带错误信息）
func BadRequest(c *gin.Context, err error, msg ...string) {
	logger.LogWarnIf(err)
	message := getMsg("请求格式错误", msg...)
	if err != nil && len(msg) == 0 {
		message = err.Error()
	}
	Fail(c, http.StatusBadRequest, CodeInvalidBody, message)
}

// Abort404 响应 404 错误
func Abort404(c *gin.Context, msg ...string) {
	c.AbortWithStatusJSON(http.StatusNotFound, Response{
		Success: false,
		Error: &ErrorBody{
			Code:    "NOT_FOUND",
			Message: getMsg("资源不存在", msg...),
		},
	})
}

// Abort500 响应 500 错误
// 内部错误细节只进日志，不回给客户端
func Abort500(c *gin.Context, msg ...string) {
	Fail(c, http.StatusInternalServerError, CodeInternalError, getMsg("服务器内部错误，请稍后重试", msg...))
}

// ServerError 响应 500 错误（记录错误，响应不带细节）
func ServerError(c *gin.Context, err error, msg ...string) {
	logger.LogIf(err)
	Abort500(c, msg...)
}

// ValidationError 响应 400 表单验证错误
func ValidationError(c *gin.Context, errors map[string][]string) {
	Fail(c, http.StatusBadRequest, CodeInvalidBody, "请求参数不合法", errors)
}

// getMsg 获取消息内容
func getMsg(defaultMsg string, msg ...string) string {
	if len(msg) > 0 {
		return msg[0]
	}
	return defaultMsg
}
