// Package jobs 后台任务
package jobs

import (
	"context"
	"time"

	billingsvc "elink/app/services/billing"
	"elink/pkg/logger"
)

// OrderSweeper 定时巡检支付订单的后台任务
type OrderSweeper struct {
	service        *billingsvc.Service
	interval       time.Duration
	serverSideSync bool
	stopChan       chan struct{}
	doneChan       chan struct{}
}

// NewOrderSweeper 创建巡检任务
func NewOrderSweeper(service *billingsvc.Service, interval time.Duration, serverSideSync bool) *OrderSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &OrderSweeper{
		service:        service,
		interval:       interval,
		serverSideSync: serverSideSync,
		stopChan:       make(chan struct{}),
		doneChan:       make(chan struct{}),
	}
}

// Start 启动巡检循环
func (s *OrderSweeper) Start() {
	go func() {
		defer close(s.doneChan)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		logger.InfoString("订单巡检", "启动", "interval="+s.interval.String())
		for {
			select {
			case <-s.stopChan:
				logger.InfoString("订单巡检", "停止", "收到退出信号")
				return
			case <-ticker.C:
				s.sweepOnce()
			}
		}
	}()
}

// Stop 停止巡检并等待当前一轮结束
func (s *OrderSweeper) Stop() {
	close(s.stopChan)
	<-s.doneChan
}

func (s *OrderSweeper) sweepOnce() {
	// 单轮巡检限时，避免网关抖动拖住整个循环
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.service.SweepOrders(ctx, s.serverSideSync)
}
