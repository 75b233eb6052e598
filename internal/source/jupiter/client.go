// Package jupiter 实现基于 Jupiter 价格 API 的现货价格源。
// 接口地址: https://api.jup.ag/price/v2?ids=<mint>
// 每次 Fetch 发起一次 HTTP GET，失败时显式返回错误而非过期价格。
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"synthetic-funding-tracker/internal/core/model"
	"synthetic-funding-tracker/internal/source"
	"synthetic-funding-tracker/internal/util/fastparse"
)

// SOLMint SOL 的 mint 地址（wrapped SOL）
const SOLMint = "So11111111111111111111111111111111111111112"

// SourceName 价格源标识
const SourceName = "jupiter"

// Client Jupiter 现货价格客户端
type Client struct {
	// baseURL price v2 接口地址
	baseURL string
	// mint 查询的代币 mint 地址
	mint string
	// client HTTP 客户端
	client *http.Client
}

// NewClient 创建 Jupiter 价格客户端
// 参数 baseURL: price v2 接口地址
// 参数 mint: 代币 mint 地址，空串时使用 SOLMint
// 参数 timeoutMs: HTTP 请求超时时间（毫秒）
func NewClient(baseURL, mint string, timeoutMs int) *Client {
	if mint == "" {
		mint = SOLMint
	}
	if timeoutMs <= 0 {
		timeoutMs = 10000
	}
	return &Client{
		baseURL: baseURL,
		mint:    mint,
		client: &http.Client{
			Timeout: time.Duration(timeoutMs) * time.Millisecond,
		},
	}
}

// Name 价格源标识
func (c *Client) Name() string {
	return SourceName
}

// Fetch 获取最新现货报价
// 参数 ctx: 上下文，用于取消请求
// 返回: 现货报价；上游失败或价格非法时返回包裹 source.ErrUnavailable 的错误
func (c *Client) Fetch(ctx context.Context) (*model.SpotQuote, error) {
	reqURL := fmt.Sprintf("%s?ids=%s", c.baseURL, url.QueryEscape(c.mint))

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrUnavailable, err)
	}

	var resp PriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: 解析 Jupiter 响应失败: %v", source.ErrUnavailable, err)
	}

	data, ok := resp.Data[c.mint]
	if !ok {
		return nil, fmt.Errorf("%w: Jupiter 响应缺少 mint %s 的价格", source.ErrUnavailable, c.mint)
	}

	price, err := fastparse.ParseFloat(data.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析价格字段失败: %v", source.ErrUnavailable, err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, fmt.Errorf("%w: Jupiter 返回非法价格: %v", source.ErrUnavailable, price)
	}

	return &model.SpotQuote{
		Price:     price,
		FetchedAt: time.Now(),
		Source:    SourceName,
	}, nil
}

// doRequest 执行 HTTP GET 请求
// 参数 ctx: 上下文
// 参数 reqURL: 请求地址
// 返回: 响应体字节数组
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("User-Agent", "synthetic-funding-tracker/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP 状态码错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	return body, nil
}
