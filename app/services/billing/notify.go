package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"elink/app/repositories"
	"elink/pkg/logger"
	"elink/pkg/payment/types"
)

// AmountEpsilon 回调金额与订单金额的允许误差（元）
const AmountEpsilon = 0.001

// HandleNotify 处理网关异步回调
//
// 回调按"至少一次"投递，处理结果一律不影响应答（外层固定回 "success"
// 以免网关反复重试）。验签失败只留档不改状态；金额或状态不符时静默放弃。
func (s *Service) HandleNotify(ctx context.Context, payload map[string]string) {
	if !s.gateway.IsConfigured() {
		return
	}

	outTradeNo := payload["out_trade_no"]
	if outTradeNo == "" {
		return
	}

	o, err := s.orders.FindByOrderNo(ctx, outTradeNo)
	if err != nil {
		if !errors.Is(err, repositories.ErrOrderNotFound) {
			logger.ErrorString("回调", "查找订单失败", err.Error())
		}
		return
	}

	// 原始报文无条件留档，便于审计
	notifyPayload := toPayloadMap(payload)
	if _, err := s.orders.Update(ctx, o.ID, repositories.Patch{NotifyPayload: notifyPayload}); err != nil {
		logger.ErrorString("回调", "留档失败", err.Error())
	}

	if !s.gateway.VerifySign(payload) {
		// 不提示验签失败的细节，避免给攻击方提供探测信号
		logger.WarnString("回调", "验签失败", fmt.Sprintf("订单:%s", o.OrderNo))
		return
	}

	if o.IsPaid() {
		return
	}

	// 金额交叉校验，误差超过 AmountEpsilon 时放弃
	if money := payload["money"]; money != "" {
		paidAmount, err := strconv.ParseFloat(money, 64)
		orderAmount, err2 := strconv.ParseFloat(o.DisplayAmount, 64)
		if err == nil && err2 == nil && math.Abs(paidAmount-orderAmount) > AmountEpsilon {
			logger.WarnString("回调", "金额不符", fmt.Sprintf(
				"订单:%s 订单金额:%s 回调金额:%s", o.OrderNo, o.DisplayAmount, money))
			return
		}
	}

	tradeStatus := types.ExtractTradeStatus(func(key string) (string, bool) {
		value, ok := payload[key]
		return value, ok
	})
	if tradeStatus != "" && !types.PaidStatus(tradeStatus) {
		return
	}

	if _, err := s.orders.MarkPaid(ctx, repositories.MarkPaidParams{
		OrderID:         o.ID,
		ProviderTradeNo: payload["trade_no"],
		NotifyPayload:   notifyPayload,
		Operator:        "zpay:notify",
	}); err != nil {
		logger.ErrorString("回调", "标记支付失败", fmt.Sprintf(
			"订单:%s 错误:%v", o.OrderNo, err))
	}
}

func toPayloadMap(payload map[string]string) map[string]interface{} {
	result := make(map[string]interface{}, len(payload))
	for key, value := range payload {
		result[key] = value
	}
	return result
}
