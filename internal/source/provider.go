// Package source 定义现货价格源的统一契约。
// 价格源要么给出一个正数报价与新鲜度信息，要么显式报错；
// 严禁以零价、负价或过期报价静默顶替。
package source

import (
	"context"
	"errors"

	"synthetic-funding-tracker/internal/core/model"
)

var (
	// ErrUnavailable 上游价格源不可用（网络失败、响应异常等）
	// 由驱动循环决定跳过本 tick 还是复用最近一次有效价格。
	ErrUnavailable = errors.New("价格源不可用")

	// ErrStale 报价已过期（超过配置的最大年龄）
	ErrStale = errors.New("价格报价已过期")
)

// Provider 现货价格源
// 驱动循环按 tick 拉取；实现必须保证返回的报价价格为正的有限值。
type Provider interface {
	// Fetch 获取最新现货报价
	// 参数 ctx: 上下文，用于取消与超时
	// 返回: 报价或错误（ErrUnavailable/ErrStale 或其包裹）
	Fetch(ctx context.Context) (*model.SpotQuote, error)

	// Name 价格源标识，用于日志与 Observation 溯源
	Name() string
}
