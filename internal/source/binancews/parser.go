package binancews

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"synthetic-funding-tracker/internal/util/fastparse"
)

// Parser Binance 行情流消息解析器
type Parser struct {
	// symbol 订阅的交易对（大写，如 SOLUSDT）
	symbol string
}

// NewParser 创建解析器
// 参数 symbol: 订阅的交易对
func NewParser(symbol string) *Parser {
	return &Parser{symbol: strings.ToUpper(symbol)}
}

// Parse 解析一条 WebSocket 消息
// 返回: 最新成交价；订阅确认等非 ticker 消息返回 (0, false, nil)。
func (p *Parser) Parse(data []byte) (price float64, ok bool, err error) {
	var msg MiniTicker
	if err := json.Unmarshal(data, &msg); err != nil {
		return 0, false, fmt.Errorf("解析 miniTicker 消息失败: %w", err)
	}

	// 订阅确认形如 {"result":null,"id":1}，无事件类型字段
	if msg.EventType != "24hrMiniTicker" {
		return 0, false, nil
	}
	if !strings.EqualFold(msg.Symbol, p.symbol) {
		return 0, false, nil
	}

	v, err := fastparse.ParseFloat(msg.ClosePrice)
	if err != nil {
		return 0, false, fmt.Errorf("解析价格字段失败: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false, fmt.Errorf("非法价格: %v", v)
	}

	return v, true, nil
}
