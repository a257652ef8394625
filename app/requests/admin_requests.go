package requests

import "github.com/thedevsaddam/govalidator"

// AdminLoginRequest 管理员登录
type AdminLoginRequest struct {
	Username string `json:"username" valid:"username"`
	Password string `json:"password" valid:"password"`
}

// AdminLoginRules 登录请求的验证规则
func AdminLoginRules() (govalidator.MapData, govalidator.MapData) {
	rules := govalidator.MapData{
		"username": []string{"required"},
		"password": []string{"required"},
	}
	messages := govalidator.MapData{
		"username": []string{"required:用户名为必填项"},
		"password": []string{"required:密码为必填项"},
	}
	return rules, messages
}

// AccessKeyRequest 创建或更新访问密钥
type AccessKeyRequest struct {
	Email string `json:"email" valid:"email"`
}

// AccessKeyRules 访问密钥请求的验证规则
func AccessKeyRules() (govalidator.MapData, govalidator.MapData) {
	rules := govalidator.MapData{
		"email": []string{"required", "email"},
	}
	messages := govalidator.MapData{
		"email": []string{
			"required:邮箱为必填项",
			"email:邮箱格式不正确",
		},
	}
	return rules, messages
}

// PricingUpdateRequest 更新 token 单价
type PricingUpdateRequest struct {
	PricePerThousandTokens float64 `json:"pricePerThousandTokens" valid:"pricePerThousandTokens"`
}

// PricingUpdateRules 单价更新请求的验证规则
func PricingUpdateRules() (govalidator.MapData, govalidator.MapData) {
	rules := govalidator.MapData{
		"pricePerThousandTokens": []string{"required"},
	}
	messages := govalidator.MapData{
		"pricePerThousandTokens": []string{"required:单价为必填项"},
	}
	return rules, messages
}
