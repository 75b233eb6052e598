// Package jupiter 定义 Jupiter 价格 API 的消息类型。
package jupiter

// PriceResponse Jupiter price v2 接口响应
// 形如 {"data":{"<mint>":{"id":"<mint>","price":"152.34"}},"timeTaken":0.001}
type PriceResponse struct {
	// Data 按 mint 地址索引的价格数据
	Data map[string]PriceData `json:"data"`
	// TimeTaken 服务端处理耗时（秒）
	TimeTaken float64 `json:"timeTaken"`
}

// PriceData 单个代币的价格数据
type PriceData struct {
	// ID 代币 mint 地址
	ID string `json:"id"`
	// Type 价格类型（derivedPrice 等）
	Type string `json:"type"`
	// Price 价格（USD，字符串编码）
	Price string `json:"price"`
}
