// Package model 定义资金费率追踪器中使用的核心数据结构。
package model

import (
	"time"
)

// TimestampLayout CSV 与日志中使用的时间戳格式
// 与历史数据文件保持一致，精确到秒。
const TimestampLayout = "2006-01-02 15:04:05"

// Observation 单次采样的观测记录（不可变）
// 每个 tick 由 FundingEngine 产出一条，随后进入展示窗口与 CSV 持久化。
type Observation struct {
	// Timestamp 采样时间，序列内单调不减
	Timestamp time.Time `json:"timestamp"`
	// SpotPrice 现货价格（正数），来自价格源
	SpotPrice float64 `json:"spot_price"`
	// PerpPrice 合成永续价格（正数）
	PerpPrice float64 `json:"perp_price"`
	// FundingRate 资金费率（小数，按 8 小时结算周期计）
	// 正值表示多头向空头支付
	FundingRate float64 `json:"funding_rate"`
	// DivergencePct 价格偏离（百分比）
	// 计算公式: (PerpPrice - SpotPrice) / SpotPrice * 100
	DivergencePct float64 `json:"price_divergence"`
}

// IsPremium 判断永续价格是否高于现货（升水）
func (o *Observation) IsPremium() bool {
	return o.DivergencePct > 0
}

// IsDiscount 判断永续价格是否低于现货（贴水）
func (o *Observation) IsDiscount() bool {
	return o.DivergencePct < 0
}
