// Package funding 统计计算器测试
package funding

import (
	"math"
	"testing"
)

func TestCalculator_Empty(t *testing.T) {
	c := NewCalculator(10)
	s := c.Snapshot()
	if s.Count != 0 || s.TotalCount != 0 {
		t.Fatalf("Count=%d TotalCount=%d, want 0/0", s.Count, s.TotalCount)
	}
	if s.Mean != 0 || s.Std != 0 {
		t.Fatalf("空窗口 Mean=%v Std=%v, want 0/0", s.Mean, s.Std)
	}
}

func TestCalculator_KnownValues(t *testing.T) {
	c := NewCalculator(100)

	// 样本: -0.002, 0, 0.001, 0.003, 0.008
	for _, v := range []float64{0.001, -0.002, 0.008, 0, 0.003} {
		c.Add(v)
	}

	s := c.Snapshot()
	if s.Count != 5 || s.TotalCount != 5 {
		t.Fatalf("Count=%d TotalCount=%d, want 5/5", s.Count, s.TotalCount)
	}
	if math.Abs(s.Mean-0.002) > 1e-12 {
		t.Fatalf("Mean=%v, want 0.002", s.Mean)
	}
	if s.Min != -0.002 || s.Max != 0.008 {
		t.Fatalf("Min=%v Max=%v, want -0.002/0.008", s.Min, s.Max)
	}
	if s.Median != 0.001 {
		t.Fatalf("Median=%v, want 0.001", s.Median)
	}
	if s.Q25 != 0 || s.Q75 != 0.003 {
		t.Fatalf("Q25=%v Q75=%v, want 0/0.003", s.Q25, s.Q75)
	}

	// 样本标准差: Σ(x-mean)² = 5.8e-5, /4 → sqrt ≈ 0.00380789
	wantStd := math.Sqrt((math.Pow(-0.004, 2) + math.Pow(-0.002, 2) + math.Pow(-0.001, 2) + math.Pow(0.001, 2) + math.Pow(0.006, 2)) / 4)
	if math.Abs(s.Std-wantStd) > 1e-9 {
		t.Fatalf("Std=%v, want %v", s.Std, wantStd)
	}

	// 3 正 1 负 1 零
	if math.Abs(s.PositiveRatePct-60) > 1e-9 {
		t.Fatalf("PositiveRatePct=%v, want 60", s.PositiveRatePct)
	}
	if math.Abs(s.NegativeRatePct-20) > 1e-9 {
		t.Fatalf("NegativeRatePct=%v, want 20", s.NegativeRatePct)
	}
}

func TestCalculator_RollingWindow(t *testing.T) {
	c := NewCalculator(2)

	c.Add(0.01)
	c.Add(-0.01)
	c.Add(0.02)

	s := c.Snapshot()
	if s.Count != 2 {
		t.Fatalf("Count=%d, want 2", s.Count)
	}
	if s.TotalCount != 3 {
		t.Fatalf("TotalCount=%d, want 3", s.TotalCount)
	}
	// 窗口内应为 -0.01 与 0.02
	if s.Min != -0.01 || s.Max != 0.02 {
		t.Fatalf("Min=%v Max=%v, want -0.01/0.02", s.Min, s.Max)
	}
	if math.Abs(s.Mean-0.005) > 1e-12 {
		t.Fatalf("Mean=%v, want 0.005", s.Mean)
	}
	if math.Abs(s.PositiveRatePct-50) > 1e-9 || math.Abs(s.NegativeRatePct-50) > 1e-9 {
		t.Fatalf("正负占比错误: %v/%v", s.PositiveRatePct, s.NegativeRatePct)
	}
}

func TestCalculator_WindowEvictionKeepsSumsConsistent(t *testing.T) {
	c := NewCalculator(3)

	// 填满并多次覆盖后，统计应只反映窗口内样本
	for i := 0; i < 100; i++ {
		c.Add(float64(i))
	}

	s := c.Snapshot()
	if s.Count != 3 {
		t.Fatalf("Count=%d, want 3", s.Count)
	}
	// 窗口内应为 97, 98, 99
	if s.Min != 97 || s.Max != 99 || math.Abs(s.Mean-98) > 1e-9 {
		t.Fatalf("窗口统计错误: Min=%v Max=%v Mean=%v", s.Min, s.Max, s.Mean)
	}
	if s.Std != 1 {
		t.Fatalf("Std=%v, want 1", s.Std)
	}
}

func TestCalculator_SingleSample(t *testing.T) {
	c := NewCalculator(10)
	c.Add(0.004)

	s := c.Snapshot()
	if s.Std != 0 {
		t.Fatalf("单样本 Std=%v, want 0", s.Std)
	}
	if s.Median != 0.004 || s.Q25 != 0.004 || s.Q75 != 0.004 {
		t.Fatalf("单样本分位数错误: %v/%v/%v", s.Q25, s.Median, s.Q75)
	}
}
