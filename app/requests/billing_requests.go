package requests

import "github.com/thedevsaddam/govalidator"

// TopUpRequest 发起充值
type TopUpRequest struct {
	Email         string  `json:"email" valid:"email"`
	Amount        float64 `json:"amount" valid:"amount"`
	PaymentMethod string  `json:"paymentMethod" valid:"paymentMethod"`
}

// TopUpRules 充值请求的验证规则
func TopUpRules() (govalidator.MapData, govalidator.MapData) {
	rules := govalidator.MapData{
		"email":  []string{"required", "email"},
		"amount": []string{"required"},
	}
	messages := govalidator.MapData{
		"email": []string{
			"required:邮箱为必填项",
			"email:邮箱格式不正确",
		},
		"amount": []string{
			"required:充值金额为必填项",
		},
	}
	return rules, messages
}
