// Package funding 实现资金费率的滚动窗口统计。
// 统计口径沿用追踪器展示面板：均值/标准差/极值/分位数与正负费率占比。
package funding

import (
	"math"
	"sort"
)

// Stats 资金费率统计快照（滚动窗口）
// 费率单位与 Observation.FundingRate 一致（小数）。
type Stats struct {
	// Count 窗口内样本数
	Count int64 `json:"count"`
	// TotalCount 累计样本数（含已滑出窗口的样本）
	TotalCount int64 `json:"total_count"`

	// Mean 均值
	Mean float64 `json:"mean"`
	// Std 样本标准差
	Std float64 `json:"std"`
	// Min 最小值
	Min float64 `json:"min"`
	// Max 最大值
	Max float64 `json:"max"`

	// Median 中位数
	Median float64 `json:"median"`
	// Q25 25% 分位数
	Q25 float64 `json:"q25"`
	// Q75 75% 分位数
	Q75 float64 `json:"q75"`

	// PositiveRatePct 正费率样本占比（百分比）
	PositiveRatePct float64 `json:"positive_rate_pct"`
	// NegativeRatePct 负费率样本占比（百分比）
	NegativeRatePct float64 `json:"negative_rate_pct"`
}

// Calculator 资金费率统计计算器（滚动窗口）
// 维护滚动和以 O(1) 更新均值/方差，分位数在快照时排序计算。
type Calculator struct {
	// windowSize 滚动窗口大小
	windowSize int
	// buf 环形缓冲区
	buf []float64
	// pos 写入位置
	pos int
	// full 是否已填满
	full bool

	// total 累计样本数
	total int64
	// sum 窗口内求和
	sum float64
	// sumSq 窗口内平方和
	sumSq float64
	// posCount 窗口内正样本数
	posCount int64
	// negCount 窗口内负样本数
	negCount int64
}

// NewCalculator 创建统计计算器
// 参数 windowSize: 滚动窗口大小（建议与展示窗口一致，如 1000）
func NewCalculator(windowSize int) *Calculator {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &Calculator{
		windowSize: windowSize,
		buf:        make([]float64, 0, windowSize),
	}
}

// Add 添加一个资金费率样本
func (c *Calculator) Add(rate float64) {
	c.total++

	if c.full {
		// 移除被覆盖样本对滚动和的贡献
		old := c.buf[c.pos]
		c.sum -= old
		c.sumSq -= old * old
		if old > 0 {
			c.posCount--
		} else if old < 0 {
			c.negCount--
		}
		c.buf[c.pos] = rate
		c.pos++
		if c.pos >= c.windowSize {
			c.pos = 0
		}
	} else {
		c.buf = append(c.buf, rate)
		if len(c.buf) == c.windowSize {
			c.full = true
			c.pos = 0
		}
	}

	c.sum += rate
	c.sumSq += rate * rate
	if rate > 0 {
		c.posCount++
	} else if rate < 0 {
		c.negCount++
	}
}

// Snapshot 返回当前窗口统计
func (c *Calculator) Snapshot() Stats {
	n := len(c.buf)
	out := Stats{
		Count:      int64(n),
		TotalCount: c.total,
	}
	if n == 0 {
		return out
	}

	fn := float64(n)
	out.Mean = c.sum / fn
	out.PositiveRatePct = float64(c.posCount) / fn * 100
	out.NegativeRatePct = float64(c.negCount) / fn * 100

	if n > 1 {
		// 样本方差: (Σx² - n·mean²) / (n-1)，数值误差下钳制为非负
		variance := (c.sumSq - fn*out.Mean*out.Mean) / (fn - 1)
		if variance < 0 {
			variance = 0
		}
		out.Std = math.Sqrt(variance)
	}

	tmp := make([]float64, n)
	copy(tmp, c.buf)
	sort.Float64s(tmp)

	out.Min = tmp[0]
	out.Max = tmp[n-1]
	out.Q25 = quantile(tmp, 0.25)
	out.Median = quantile(tmp, 0.50)
	out.Q75 = quantile(tmp, 0.75)

	return out
}

// quantile 计算已排序序列的分位数（最近秩法）
// 参数 sorted: 升序序列，长度至少为 1
// 参数 q: 分位（0-1）
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	idx := int(float64(n-1) * q)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}
