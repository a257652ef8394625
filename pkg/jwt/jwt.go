// Package jwt 处理管理后台的会话令牌
package jwt

import (
	"errors"
	"time"

	jwtpkg "github.com/golang-jwt/jwt/v5"

	"elink/pkg/config"
	"elink/pkg/logger"
)

var (
	// ErrTokenExpired 令牌已过期
	ErrTokenExpired = errors.New("令牌已过期")
	// ErrTokenInvalid 令牌非法
	ErrTokenInvalid = errors.New("请求令牌无效")
)

// CustomClaims 自定义载荷
type CustomClaims struct {
	Username string `json:"username"`
	jwtpkg.RegisteredClaims
}

// JWT 令牌签发与解析
type JWT struct {
	SignKey    []byte
	ExpireTime time.Duration
}

// NewJWT 从配置创建实例
func NewJWT() *JWT {
	return &JWT{
		SignKey:    []byte(config.GetString("jwt.secret")),
		ExpireTime: time.Duration(config.GetInt64("jwt.expire_time", 720)) * time.Minute,
	}
}

// IssueToken 签发令牌
func (j *JWT) IssueToken(username string) string {
	now := time.Now()
	claims := CustomClaims{
		Username: username,
		RegisteredClaims: jwtpkg.RegisteredClaims{
			Issuer:    config.GetString("app.name"),
			IssuedAt:  jwtpkg.NewNumericDate(now),
			NotBefore: jwtpkg.NewNumericDate(now),
			ExpiresAt: jwtpkg.NewNumericDate(now.Add(j.ExpireTime)),
		},
	}

	token, err := jwtpkg.NewWithClaims(jwtpkg.SigningMethodHS256, claims).SignedString(j.SignKey)
	if err != nil {
		logger.LogIf(err)
		return ""
	}
	return token
}

// ParseToken 解析并校验令牌
func (j *JWT) ParseToken(tokenString string) (*CustomClaims, error) {
	token, err := jwtpkg.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwtpkg.Token) (interface{}, error) {
		return j.SignKey, nil
	})
	if err != nil {
		if errors.Is(err, jwtpkg.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrTokenInvalid
}
