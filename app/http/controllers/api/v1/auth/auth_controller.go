// Package auth 管理员登录接口
package auth

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"elink/app/requests"
	"elink/pkg/config"
	"elink/pkg/jwt"
	"elink/pkg/response"
)

type AuthController struct{}

func NewAuthController() *AuthController {
	return &AuthController{}
}

// AdminLogin 管理员登录，签发 JWT
// 用户名比较使用常数时间，避免侧信道探测账号是否存在。
func (ac *AuthController) AdminLogin(c *gin.Context) {
	rules, messages := requests.AdminLoginRules()
	request, err := requests.ValidateRequest[requests.AdminLoginRequest](c, rules, messages)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	username := config.GetString("admin.username")
	passwordHash := config.GetString("admin.password_hash")
	if username == "" || passwordHash == "" {
		response.Unauthorized(c, "管理后台未启用")
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(request.Username), []byte(username)) == 1
	passwordOK := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(request.Password)) == nil
	if !usernameOK || !passwordOK {
		response.Unauthorized(c, "用户名或密码错误")
		return
	}

	token := jwt.NewJWT().IssueToken(request.Username)
	if token == "" {
		response.Abort500(c, "签发令牌失败")
		return
	}

	response.Data(c, gin.H{"token": token})
}
