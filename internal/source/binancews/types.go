// Package binancews 定义 Binance 行情流消息类型。
package binancews

// SubscribeRequest Binance WebSocket 订阅请求
// 订阅 <symbol>@miniTicker 行情流。
type SubscribeRequest struct {
	// Method 订阅方法: SUBSCRIBE
	Method string `json:"method"`
	// Params 订阅参数列表，如 "solusdt@miniTicker"
	Params []string `json:"params"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// MiniTicker Binance 轻量 ticker 推送消息（24hrMiniTicker）
// 字段映射：
// - e: 事件类型（24hrMiniTicker）
// - E: 事件时间（毫秒）
// - s: Symbol（如 SOLUSDT）
// - c: 最新成交价（字符串）
type MiniTicker struct {
	// EventType 事件类型: 24hrMiniTicker
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
	// Symbol 交易对（大写）
	Symbol string `json:"s"`
	// ClosePrice 最新成交价（字符串）
	ClosePrice string `json:"c"`
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// ReconnectCount 重连次数
	ReconnectCount int64
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64
	// UpdatesPerSec 每秒更新次数
	UpdatesPerSec float64
	// LastMessageAgeMs 最后消息距今时间（毫秒）
	LastMessageAgeMs int64
}
