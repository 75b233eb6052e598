// Package funding 实现合成永续价格与资金费率引擎。
// 引擎按 tick 接收现货价格，生成带噪声与趋势偏置的合成永续价格，
// 并根据价格偏离推导资金费率。状态仅归属单个引擎实例，跨 tick 连续。
package funding

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"synthetic-funding-tracker/internal/core/model"
)

// 引擎固定常量（设计选择，统一在此文档化，不对外暴露配置）。
const (
	// ReversionFactor 均值回归系数
	// 每步将永续价格向现货价格拉回偏离量的 20%，防止无界漂移。
	ReversionFactor = 0.2

	// FundingCoefficient 溢价到资金费率的缩放系数
	// funding_rate = premium * FundingCoefficient（premium 为小数偏离）
	FundingCoefficient = 0.375

	// MaxFundingRate 单个结算周期的资金费率上限（小数，±对称）
	MaxFundingRate = 0.0075

	// FundingIntervalHours 资金费率结算周期假设（小时）
	// 沿用主流交易所的 8 小时惯例，仅用于解释费率口径。
	FundingIntervalHours = 8

	// MinPerpPrice 永续价格正数下限
	// 任何一步计算结果都会被钳制到不低于该值。
	MinPerpPrice = 1e-4
)

var (
	// ErrInvalidInput 输入无效：非正现货价格、负噪声水平或非有限配置值
	// 属于调用方错误，不应重试；失败时引擎状态保持不变。
	ErrInvalidInput = errors.New("输入参数无效")

	// ErrDegenerate 计算退化：钳制后价格仍非正或非有限
	// 通常意味着极端的 trend_bias 配置，必须向上层暴露而非吞掉。
	ErrDegenerate = errors.New("永续价格计算退化")
)

// EngineConfig 引擎每步配置
// 仅 NoiseLevel 与 TrendBias 对外可调，其余引擎参数为固定常量。
type EngineConfig struct {
	// NoiseLevel 噪声水平（现货价格的小数比例，如 0.005 = 0.5%）
	// 必须为非负有限值；为 0 时完全不消耗随机数，序列可复现。
	NoiseLevel float64
	// TrendBias 趋势偏置（现货价格的小数比例，可正可负）
	// 每步向永续价格追加 TrendBias*spot 的漂移；
	// 与均值回归共同作用下序列收敛于约 TrendBias/ReversionFactor 的偏离。
	TrendBias float64
}

// Validate 验证配置合法性
// 返回: 若噪声为负或任一字段非有限则返回包裹 ErrInvalidInput 的错误
func (c EngineConfig) Validate() error {
	if math.IsNaN(c.NoiseLevel) || math.IsInf(c.NoiseLevel, 0) || c.NoiseLevel < 0 {
		return fmt.Errorf("%w: noise_level 必须为非负有限值，当前值: %v", ErrInvalidInput, c.NoiseLevel)
	}
	if math.IsNaN(c.TrendBias) || math.IsInf(c.TrendBias, 0) {
		return fmt.Errorf("%w: trend_bias 必须为有限值，当前值: %v", ErrInvalidInput, c.TrendBias)
	}
	return nil
}

// engineState 引擎滚动状态
// 仅在 Step 成功时整体提交，失败的调用不会留下部分更新。
type engineState struct {
	// seeded 是否已用首个现货价格播种
	seeded bool
	// lastPerpPrice 上一步产出的永续价格（下一步随机游走的起点）
	lastPerpPrice float64
	// trendOffset 累计趋势偏移（诊断用，记录历史漂移总量）
	trendOffset float64
	// steps 成功步数
	steps int64
}

// Engine 合成永续资金费率引擎
// 每个会话应创建独立实例；引擎本身不加锁，假定单写者访问
// （与聚合循环的单 goroutine 驱动模式一致）。
type Engine struct {
	// rng 随机数生成器（可注入种子以便测试复现）
	rng *rand.Rand
	// st 滚动状态
	st engineState
}

// NewEngine 创建引擎
// 参数 src: 随机数源；传 nil 时使用时间种子。
// 测试中应传入固定种子的 rand.NewSource 以获得确定性序列。
func NewEngine(src rand.Source) *Engine {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Engine{rng: rand.New(src)}
}

// Step 执行一次采样步
// 参数 now: 采样时间戳
// 参数 spotPrice: 当前现货价格，必须为正的有限值
// 参数 cfg: 本步引擎配置
// 返回: 本步观测记录；失败时返回错误且状态不变。
//
// 算法（按序）:
//  1. 均值回归: perp = prev + ReversionFactor*(spot - prev)
//  2. 趋势漂移: perp += TrendBias*spot（同时累计到 trendOffset）
//  3. 噪声扰动: perp += N(0,1)*NoiseLevel*spot（NoiseLevel=0 时跳过）
//  4. 正数钳制与退化检查
//  5. 偏离与资金费率: rate = clamp(premium*FundingCoefficient, ±MaxFundingRate)
func (e *Engine) Step(now time.Time, spotPrice float64, cfg EngineConfig) (model.Observation, error) {
	if math.IsNaN(spotPrice) || math.IsInf(spotPrice, 0) || spotPrice <= 0 {
		return model.Observation{}, fmt.Errorf("%w: spot_price 必须为正的有限值，当前值: %v", ErrInvalidInput, spotPrice)
	}
	if err := cfg.Validate(); err != nil {
		return model.Observation{}, err
	}

	prev := e.st.lastPerpPrice
	if !e.st.seeded {
		// 首次调用以现货价格播种，避免人为的初始偏离
		prev = spotPrice
	}

	// 均值回归先于噪声与趋势，保证偏离被按比例拉回
	perp := prev + ReversionFactor*(spotPrice-prev)

	// 趋势漂移按步追加，依赖 prev 的延续形成跨步趋势
	trendStep := cfg.TrendBias * spotPrice
	perp += trendStep

	if cfg.NoiseLevel > 0 {
		// 零均值正态噪声，幅度与现货价格成比例
		perp += e.rng.NormFloat64() * cfg.NoiseLevel * spotPrice
	}

	if perp < MinPerpPrice {
		perp = MinPerpPrice
	}
	if math.IsNaN(perp) || math.IsInf(perp, 0) || perp <= 0 {
		return model.Observation{}, fmt.Errorf("%w: perp_price=%v（spot=%v, trend_bias=%v）", ErrDegenerate, perp, spotPrice, cfg.TrendBias)
	}

	premium := (perp - spotPrice) / spotPrice
	rate := premium * FundingCoefficient
	if rate > MaxFundingRate {
		rate = MaxFundingRate
	} else if rate < -MaxFundingRate {
		rate = -MaxFundingRate
	}

	// 全部计算成功后才提交状态
	e.st.seeded = true
	e.st.lastPerpPrice = perp
	e.st.trendOffset += trendStep
	e.st.steps++

	return model.Observation{
		Timestamp:     now,
		SpotPrice:     spotPrice,
		PerpPrice:     perp,
		FundingRate:   rate,
		DivergencePct: premium * 100,
	}, nil
}

// Reset 清空引擎状态
// 下一次 Step 将重新以现货价格播种。
func (e *Engine) Reset() {
	e.st = engineState{}
}

// StepCount 获取成功执行的步数
func (e *Engine) StepCount() int64 {
	return e.st.steps
}

// TrendOffset 获取累计趋势偏移（价格单位）
func (e *Engine) TrendOffset() float64 {
	return e.st.trendOffset
}
