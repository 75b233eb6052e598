// Package funding 引擎单元测试
package funding

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestEngine_FirstStepScenario(t *testing.T) {
	e := NewEngine(rand.NewSource(1))

	// spot=100, noise=0, trend_bias=0.01（1%）
	// 首步以现货播种: perp = 100 + 0.2*(100-100) + 0.01*100 = 101
	obs, err := e.Step(time.Unix(1_700_000_000, 0), 100, EngineConfig{NoiseLevel: 0, TrendBias: 0.01})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	if math.Abs(obs.PerpPrice-101) > 1e-9 {
		t.Fatalf("PerpPrice=%v, want 101", obs.PerpPrice)
	}
	if math.Abs(obs.DivergencePct-1.0) > 1e-9 {
		t.Fatalf("DivergencePct=%v, want 1.0", obs.DivergencePct)
	}
	// funding_rate = premium * 0.375 = 0.01*0.375 = 0.00375（未触及 ±0.0075 上限）
	if math.Abs(obs.FundingRate-0.00375) > 1e-12 {
		t.Fatalf("FundingRate=%v, want 0.00375", obs.FundingRate)
	}
	if !obs.IsPremium() {
		t.Fatalf("升水观测 IsPremium 应为 true")
	}
	if e.StepCount() != 1 {
		t.Fatalf("StepCount=%d, want 1", e.StepCount())
	}
	if math.Abs(e.TrendOffset()-1.0) > 1e-9 {
		t.Fatalf("TrendOffset=%v, want 1.0", e.TrendOffset())
	}
}

func TestEngine_SecondStepCarriesState(t *testing.T) {
	e := NewEngine(rand.NewSource(1))
	cfg := EngineConfig{NoiseLevel: 0, TrendBias: 0.01}

	now := time.Unix(1_700_000_000, 0)
	if _, err := e.Step(now, 100, cfg); err != nil {
		t.Fatalf("Step 1: %v", err)
	}

	// prev=101: perp = 101 + 0.2*(100-101) + 1 = 101.8
	obs, err := e.Step(now.Add(time.Minute), 100, cfg)
	if err != nil {
		t.Fatalf("Step 2: %v", err)
	}
	if math.Abs(obs.PerpPrice-101.8) > 1e-9 {
		t.Fatalf("PerpPrice=%v, want 101.8", obs.PerpPrice)
	}
}

func TestEngine_FundingRateCap(t *testing.T) {
	e := NewEngine(rand.NewSource(1))

	// trend_bias=0.1 → 首步偏离 10%，原始费率 0.0375 超过上限
	obs, err := e.Step(time.Unix(1_700_000_000, 0), 100, EngineConfig{NoiseLevel: 0, TrendBias: 0.1})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if obs.FundingRate != MaxFundingRate {
		t.Fatalf("FundingRate=%v, want 上限 %v", obs.FundingRate, MaxFundingRate)
	}

	e2 := NewEngine(rand.NewSource(1))
	obs2, err := e2.Step(time.Unix(1_700_000_000, 0), 100, EngineConfig{NoiseLevel: 0, TrendBias: -0.1})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if obs2.FundingRate != -MaxFundingRate {
		t.Fatalf("FundingRate=%v, want 下限 %v", obs2.FundingRate, -MaxFundingRate)
	}
}

func TestEngine_MeanReversionConvergence(t *testing.T) {
	e := NewEngine(rand.NewSource(1))
	now := time.Unix(1_700_000_000, 0)

	// 先用正趋势制造升水
	push := EngineConfig{NoiseLevel: 0, TrendBias: 0.02}
	var last float64
	for i := 0; i < 5; i++ {
		obs, err := e.Step(now, 100, push)
		if err != nil {
			t.Fatalf("push step %d: %v", i, err)
		}
		last = obs.DivergencePct
	}
	if last <= 0 {
		t.Fatalf("趋势推升后应为升水，divergence=%v", last)
	}

	// 关闭趋势与噪声后，偏离应每步严格缩小直至低于阈值
	calm := EngineConfig{NoiseLevel: 0, TrendBias: 0}
	prev := last
	for i := 0; i < 200; i++ {
		obs, err := e.Step(now, 100, calm)
		if err != nil {
			t.Fatalf("calm step %d: %v", i, err)
		}
		d := math.Abs(obs.DivergencePct)
		if d < 1e-6 {
			return
		}
		if d >= math.Abs(prev) {
			t.Fatalf("第 %d 步偏离未缩小: %v -> %v", i, prev, obs.DivergencePct)
		}
		prev = obs.DivergencePct
	}
	t.Fatalf("200 步后偏离仍未收敛: %v", prev)
}

func TestEngine_InvalidInput(t *testing.T) {
	cases := []struct {
		name string
		spot float64
		cfg  EngineConfig
	}{
		{"零现货价格", 0, EngineConfig{}},
		{"负现货价格", -5, EngineConfig{}},
		{"NaN 现货价格", math.NaN(), EngineConfig{}},
		{"Inf 现货价格", math.Inf(1), EngineConfig{}},
		{"负噪声水平", 100, EngineConfig{NoiseLevel: -0.1}},
		{"NaN 噪声水平", 100, EngineConfig{NoiseLevel: math.NaN()}},
		{"Inf 趋势偏置", 100, EngineConfig{TrendBias: math.Inf(-1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine(rand.NewSource(1))
			_, err := e.Step(time.Unix(1_700_000_000, 0), tc.spot, tc.cfg)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err=%v, want ErrInvalidInput", err)
			}
			if e.StepCount() != 0 {
				t.Fatalf("失败调用不应推进状态，StepCount=%d", e.StepCount())
			}
		})
	}
}

func TestEngine_FailedStepLeavesStateUntouched(t *testing.T) {
	cfg := EngineConfig{NoiseLevel: 0, TrendBias: 0.01}
	now := time.Unix(1_700_000_000, 0)

	// 对照引擎只执行两次有效调用
	control := NewEngine(rand.NewSource(1))
	if _, err := control.Step(now, 100, cfg); err != nil {
		t.Fatalf("control step 1: %v", err)
	}
	want, err := control.Step(now.Add(time.Minute), 100, cfg)
	if err != nil {
		t.Fatalf("control step 2: %v", err)
	}

	// 被测引擎在两次有效调用之间插入一次失败调用
	e := NewEngine(rand.NewSource(1))
	if _, err := e.Step(now, 100, cfg); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if _, err := e.Step(now, -1, cfg); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v, want ErrInvalidInput", err)
	}
	got, err := e.Step(now.Add(time.Minute), 100, cfg)
	if err != nil {
		t.Fatalf("step 3: %v", err)
	}

	if got.PerpPrice != want.PerpPrice || got.FundingRate != want.FundingRate {
		t.Fatalf("失败调用影响了后续结果: got=%+v want=%+v", got, want)
	}
}

func TestEngine_DegenerateTrendBias(t *testing.T) {
	e := NewEngine(rand.NewSource(1))

	// trend_bias 有限但与现货相乘后溢出为 +Inf，应报退化而非返回非有限价格
	_, err := e.Step(time.Unix(1_700_000_000, 0), 1e30, EngineConfig{NoiseLevel: 0, TrendBias: 1e300})
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("err=%v, want ErrDegenerate", err)
	}
	if e.StepCount() != 0 {
		t.Fatalf("退化调用不应推进状态，StepCount=%d", e.StepCount())
	}
}

func TestEngine_ExtremeNegativeBiasClampsPositive(t *testing.T) {
	e := NewEngine(rand.NewSource(1))

	// 极端负趋势把价格打穿 0，应被钳制到正数下限而不是报错
	obs, err := e.Step(time.Unix(1_700_000_000, 0), 100, EngineConfig{NoiseLevel: 0, TrendBias: -5})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if obs.PerpPrice != MinPerpPrice {
		t.Fatalf("PerpPrice=%v, want 下限 %v", obs.PerpPrice, MinPerpPrice)
	}
	if obs.FundingRate != -MaxFundingRate {
		t.Fatalf("FundingRate=%v, want 下限 %v", obs.FundingRate, -MaxFundingRate)
	}
}

func TestEngine_Reset(t *testing.T) {
	e := NewEngine(rand.NewSource(1))
	cfg := EngineConfig{NoiseLevel: 0, TrendBias: 0.01}
	now := time.Unix(1_700_000_000, 0)

	if _, err := e.Step(now, 100, cfg); err != nil {
		t.Fatalf("Step: %v", err)
	}
	e.Reset()

	if e.StepCount() != 0 || e.TrendOffset() != 0 {
		t.Fatalf("Reset 后状态未清空: steps=%d offset=%v", e.StepCount(), e.TrendOffset())
	}

	// 重置后应重新以现货播种，结果与全新引擎一致
	obs, err := e.Step(now, 200, cfg)
	if err != nil {
		t.Fatalf("Step after reset: %v", err)
	}
	if math.Abs(obs.PerpPrice-202) > 1e-9 {
		t.Fatalf("PerpPrice=%v, want 202", obs.PerpPrice)
	}
}
