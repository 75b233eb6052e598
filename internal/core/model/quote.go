package model

import (
	"time"
)

// SpotQuote 现货价格报价
// 由价格源（HTTP 轮询或 WebSocket 流）产出，附带新鲜度信息。
type SpotQuote struct {
	// Price 现货价格（USD），必须为正数
	Price float64
	// FetchedAt 报价获取时间
	FetchedAt time.Time
	// Source 价格源标识: jupiter 或 binance_ws
	Source string
}

// Age 计算报价距 now 的年龄
// 参数 now: 当前时间
func (q *SpotQuote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}

// IsStale 判断报价是否已过期
// 参数 now: 当前时间
// 参数 maxAge: 最大可接受年龄，<=0 表示永不过期
func (q *SpotQuote) IsStale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return q.Age(now) > maxAge
}
