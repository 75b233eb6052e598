// Package funding 引擎属性测试
package funding

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// **Feature: synthetic-funding-tracker, Property 1: Perp Price Positivity**

func TestEngine_Positivity_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("任意有效输入下永续价格恒为正的有限值", prop.ForAll(
		func(seed int64, spot float64, noise float64, bias float64) bool {
			e := NewEngine(rand.NewSource(seed))
			cfg := EngineConfig{NoiseLevel: noise, TrendBias: bias}
			now := time.Unix(1_700_000_000, 0)

			for i := 0; i < 50; i++ {
				obs, err := e.Step(now.Add(time.Duration(i)*time.Minute), spot, cfg)
				if err != nil {
					return false
				}
				if obs.PerpPrice <= 0 || math.IsNaN(obs.PerpPrice) || math.IsInf(obs.PerpPrice, 0) {
					return false
				}
				if math.IsNaN(obs.FundingRate) || math.IsInf(obs.FundingRate, 0) {
					return false
				}
				if math.IsNaN(obs.DivergencePct) || math.IsInf(obs.DivergencePct, 0) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.Float64Range(0.001, 200000),
		gen.Float64Range(0, 0.05),
		gen.Float64Range(-0.02, 0.02),
	))

	properties.TestingRun(t)
}

// **Feature: synthetic-funding-tracker, Property 2: Funding Sign Convention**
// 升水（永续高于现货）必须产生正费率（多头付空头），贴水反之。

func TestEngine_SignConvention_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("费率符号与偏离符号一致且不超过上限", prop.ForAll(
		func(seed int64, spot float64, noise float64, bias float64) bool {
			e := NewEngine(rand.NewSource(seed))
			cfg := EngineConfig{NoiseLevel: noise, TrendBias: bias}
			now := time.Unix(1_700_000_000, 0)

			for i := 0; i < 30; i++ {
				obs, err := e.Step(now.Add(time.Duration(i)*time.Minute), spot, cfg)
				if err != nil {
					return false
				}
				switch {
				case obs.DivergencePct > 0 && obs.FundingRate <= 0:
					return false
				case obs.DivergencePct < 0 && obs.FundingRate >= 0:
					return false
				case obs.DivergencePct == 0 && obs.FundingRate != 0:
					return false
				}
				if math.Abs(obs.FundingRate) > MaxFundingRate {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.Float64Range(0.001, 200000),
		gen.Float64Range(0, 0.05),
		gen.Float64Range(-0.02, 0.02),
	))

	properties.TestingRun(t)
}

// **Feature: synthetic-funding-tracker, Property 3: Zero-Noise Determinism**
// noise_level=0 时序列是步数的确定函数，随机源不得泄漏进结果。

func TestEngine_ZeroNoiseDeterminism_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("零噪声下不同随机种子产生完全相同的序列", prop.ForAll(
		func(seedA int64, seedB int64, spot float64, bias float64) bool {
			a := NewEngine(rand.NewSource(seedA))
			b := NewEngine(rand.NewSource(seedB))
			cfg := EngineConfig{NoiseLevel: 0, TrendBias: bias}
			now := time.Unix(1_700_000_000, 0)

			for i := 0; i < 20; i++ {
				ts := now.Add(time.Duration(i) * time.Minute)
				oa, errA := a.Step(ts, spot, cfg)
				ob, errB := b.Step(ts, spot, cfg)
				if errA != nil || errB != nil {
					return false
				}
				if oa.PerpPrice != ob.PerpPrice || oa.FundingRate != ob.FundingRate || oa.DivergencePct != ob.DivergencePct {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.Int64(),
		gen.Float64Range(0.001, 200000),
		gen.Float64Range(-0.02, 0.02),
	))

	properties.TestingRun(t)
}

// **Feature: synthetic-funding-tracker, Property 4: Mean Reversion**
// trend_bias=0 且 noise_level=0 时，偏离每步按固定比例缩小。

func TestEngine_MeanReversion_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("无趋势无噪声时偏离严格收敛", prop.ForAll(
		func(spot float64, pushBias float64) bool {
			e := NewEngine(rand.NewSource(1))
			now := time.Unix(1_700_000_000, 0)

			// 先制造非零偏离
			if _, err := e.Step(now, spot, EngineConfig{NoiseLevel: 0, TrendBias: pushBias}); err != nil {
				return false
			}

			calm := EngineConfig{NoiseLevel: 0, TrendBias: 0}
			prev := math.Inf(1)
			for i := 0; i < 100; i++ {
				obs, err := e.Step(now.Add(time.Duration(i+1)*time.Minute), spot, calm)
				if err != nil {
					return false
				}
				d := math.Abs(obs.DivergencePct)
				if d < 1e-9 {
					return true
				}
				if d >= prev {
					return false
				}
				prev = d
			}
			return prev < 1e-3
		},
		gen.Float64Range(1, 200000),
		gen.OneConstOf(0.02, -0.02, 0.005, -0.005),
	))

	properties.TestingRun(t)
}

// **Feature: synthetic-funding-tracker, Property 5: Bounded Drift Under Noise**
// 固定噪声、恒定现货时，偏离停留在统计有界带内（不随机游走到无穷）。
// 单步递推 d' = 0.8·d + ε（ε 标准差 1%），平稳标准差约 1.67%，
// 取 15% 为多倍标准差的保守上界。

func TestEngine_BoundedDrift_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("噪声随机游走被均值回归约束在有界带内", prop.ForAll(
		func(seed int64) bool {
			e := NewEngine(rand.NewSource(seed))
			cfg := EngineConfig{NoiseLevel: 0.01, TrendBias: 0}
			now := time.Unix(1_700_000_000, 0)

			for i := 0; i < 300; i++ {
				obs, err := e.Step(now.Add(time.Duration(i)*time.Minute), 100, cfg)
				if err != nil {
					return false
				}
				if math.Abs(obs.DivergencePct) > 15 {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
