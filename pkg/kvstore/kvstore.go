/*
	Package kvstore 封装业务数据的 KV 存储

	所有业务集合（余额、用量、访问密钥、支付订单、定价）都以 JSON 字符串的形式
	存放在固定的几个 key 下。写入统一走 Update：在乐观事务里执行
	读取-修改-写回，避免两次并发的整集合写互相覆盖。
*/
package kvstore

import (
	"context"
	"errors"
)

// 各业务集合的存储 key
const (
	KeyBalances      = "elink:user-balances"
	KeyUsage         = "elink:user-usage"
	KeyAccessKeys    = "elink:api-access-keys"
	KeyPaymentOrders = "elink:payment-orders"
	KeyTokenPricing  = "elink:token-pricing"
)

var (
	// ErrUpdateConflict 乐观事务重试次数耗尽
	ErrUpdateConflict = errors.New("kvstore: 并发写冲突，重试次数已用完")

	// ErrAborted 由 UpdateFunc 返回，表示本次不需要写入（读到的状态已满足要求）
	ErrAborted = errors.New("kvstore: update aborted")
)

// UpdateFunc 读取-修改函数
// old 为当前值，ok 表示 key 是否存在；返回要写回的新值。
// 返回 ErrAborted 时放弃写入，Update 原样返回 ErrAborted。
type UpdateFunc func(old string, ok bool) (string, error)

// Store KV 存储接口
type Store interface {
	// Get 读取 key 的当前值，ok 为 false 表示 key 不存在
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set 覆盖写入
	Set(ctx context.Context, key string, value string) error

	// Update 在乐观事务中执行读取-修改-写回
	// fn 可能被执行多次（写冲突重试时），不要在 fn 里做有副作用的操作。
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// KV 全局 Store 实例，bootstrap 阶段注入
var KV Store
