package middlewares

import (
	"strings"

	"elink/pkg/jwt"
	"elink/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthAdmin 管理后台鉴权，要求 Bearer JWT
func AuthAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			response.Unauthorized(c)
			return
		}

		claims, err := jwt.NewJWT().ParseToken(token)
		if err != nil {
			response.Unauthorized(c)
			return
		}

		// 后续 handler 可读取当前管理员
		c.Set("admin_username", claims.Username)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	authorization := c.GetHeader("Authorization")
	if strings.HasPrefix(authorization, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	}
	return ""
}
