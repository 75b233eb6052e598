// Package config 负责加载和验证 YAML 配置文件。
// 提供追踪器所需的所有配置项，包括价格源、采样循环、引擎参数与输出设置。
package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 价格源模式
const (
	// SourceModeJupiter HTTP 轮询 Jupiter 价格 API
	SourceModeJupiter = "jupiter"
	// SourceModeBinanceWS Binance miniTicker 行情流
	SourceModeBinanceWS = "binance_ws"
)

// 取价失败策略
const (
	// OnErrorSkip 跳过本 tick，保留上一条有效观测
	OnErrorSkip = "skip"
	// OnErrorReuseLast 在 max_stale_ms 内复用最近一次有效报价
	OnErrorReuseLast = "reuse_last"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Source 现货价格源配置
	Source SourceConfig `yaml:"source"`
	// Poll 采样循环配置
	Poll PollConfig `yaml:"poll"`
	// Engine 引擎参数配置（噪声与趋势偏置）
	Engine EngineConfig `yaml:"engine"`
	// Output 持久化输出配置
	Output OutputConfig `yaml:"output"`
	// Display 展示窗口配置
	Display DisplayConfig `yaml:"display"`
	// Stats 统计配置
	Stats StatsConfig `yaml:"stats"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// SourceConfig 现货价格源配置
type SourceConfig struct {
	// Mode 价格源模式: jupiter 或 binance_ws
	Mode string `yaml:"mode"`
	// OnError 取价失败策略: skip 或 reuse_last
	// 必须显式选择，禁止隐式顶替过期价格。
	OnError string `yaml:"on_error"`
	// MaxStaleMs 报价最大可接受年龄（毫秒）
	// 超龄报价按 ErrStale 处理；<=0 表示不检查。
	MaxStaleMs int `yaml:"max_stale_ms"`
	// Jupiter Jupiter HTTP 价格源配置
	Jupiter JupiterConfig `yaml:"jupiter"`
	// BinanceWS Binance 行情流价格源配置
	BinanceWS BinanceWSConfig `yaml:"binance_ws"`
}

// JupiterConfig Jupiter HTTP 价格源配置
type JupiterConfig struct {
	// URL price v2 接口地址
	URL string `yaml:"url"`
	// Mint 代币 mint 地址，默认 SOL
	Mint string `yaml:"mint"`
	// TimeoutMs HTTP 请求超时时间（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
}

// BinanceWSConfig Binance 行情流配置
type BinanceWSConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// Symbol 订阅交易对，如 SOLUSDT
	Symbol string `yaml:"symbol"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
}

// PollConfig 采样循环配置
type PollConfig struct {
	// IntervalMs 采样间隔（毫秒）
	IntervalMs int `yaml:"interval_ms"`
}

// EngineConfig 引擎参数配置
// 仅噪声与趋势偏置对外可调，其余引擎常量在 funding 包中文档化。
type EngineConfig struct {
	// NoiseLevel 噪声水平（现货价格的小数比例，如 0.005 = 0.5%）
	NoiseLevel float64 `yaml:"noise_level"`
	// TrendBias 趋势偏置（现货价格的小数比例，可正可负）
	TrendBias float64 `yaml:"trend_bias"`
}

// OutputConfig 持久化输出配置
type OutputConfig struct {
	// Dir 数据目录
	Dir string `yaml:"dir"`
	// CSVEnabled 是否写入按日期分文件的 CSV 时间序列
	CSVEnabled bool `yaml:"csv_enabled"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
	// WarmDays 启动时回放最近 N 天历史预热展示窗口，0 表示不回放
	WarmDays int `yaml:"warm_days"`
}

// DisplayConfig 展示窗口配置
type DisplayConfig struct {
	// Window 近期观测窗口容量
	Window int `yaml:"window"`
}

// StatsConfig 统计配置
type StatsConfig struct {
	// Window 资金费率统计滚动窗口大小
	Window int `yaml:"window"`
	// LogIntervalMs 统计快照日志输出间隔（毫秒）
	LogIntervalMs int `yaml:"log_interval_ms"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析 YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 设置默认值
	cfg.setDefaults()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	// 应用默认值
	if c.App.Name == "" {
		c.App.Name = "synthetic-funding-tracker"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	// 价格源默认值
	if c.Source.Mode == "" {
		c.Source.Mode = SourceModeJupiter
	}
	if c.Source.OnError == "" {
		c.Source.OnError = OnErrorSkip
	}
	if c.Source.MaxStaleMs == 0 {
		c.Source.MaxStaleMs = 30000 // 30 秒
	}
	if c.Source.Jupiter.URL == "" {
		c.Source.Jupiter.URL = "https://api.jup.ag/price/v2"
	}
	if c.Source.Jupiter.TimeoutMs == 0 {
		c.Source.Jupiter.TimeoutMs = 10000 // 10 秒
	}
	if c.Source.BinanceWS.URL == "" {
		c.Source.BinanceWS.URL = "wss://stream.binance.com:9443/ws"
	}
	if c.Source.BinanceWS.Symbol == "" {
		c.Source.BinanceWS.Symbol = "SOLUSDT"
	}
	if c.Source.BinanceWS.PingIntervalMs == 0 {
		c.Source.BinanceWS.PingIntervalMs = 15000 // 15 秒
	}
	if c.Source.BinanceWS.ReadTimeoutMs == 0 {
		c.Source.BinanceWS.ReadTimeoutMs = 30000 // 30 秒
	}

	// 采样循环默认值
	if c.Poll.IntervalMs == 0 {
		c.Poll.IntervalMs = 60000 // 60 秒
	}

	// 输出默认值
	if c.Output.Dir == "" {
		c.Output.Dir = "./data"
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}

	// 展示与统计窗口默认值
	if c.Display.Window == 0 {
		c.Display.Window = 1000
	}
	if c.Stats.Window == 0 {
		c.Stats.Window = 1000
	}
	if c.Stats.LogIntervalMs == 0 {
		c.Stats.LogIntervalMs = 300000 // 5 分钟
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	// 验证价格源配置
	switch c.Source.Mode {
	case SourceModeJupiter:
		if c.Source.Jupiter.URL == "" {
			errs = append(errs, "source.jupiter.url: Jupiter 接口地址不能为空")
		}
		if c.Source.Jupiter.TimeoutMs <= 0 {
			errs = append(errs, "source.jupiter.timeout_ms: 超时时间必须为正数")
		}
	case SourceModeBinanceWS:
		if c.Source.BinanceWS.URL == "" {
			errs = append(errs, "source.binance_ws.url: WebSocket 地址不能为空")
		}
		if c.Source.BinanceWS.Symbol == "" {
			errs = append(errs, "source.binance_ws.symbol: 交易对不能为空")
		}
	default:
		errs = append(errs, fmt.Sprintf("source.mode: 无效的价格源模式 '%s'，有效值: %s, %s", c.Source.Mode, SourceModeJupiter, SourceModeBinanceWS))
	}

	if c.Source.OnError != OnErrorSkip && c.Source.OnError != OnErrorReuseLast {
		errs = append(errs, fmt.Sprintf("source.on_error: 无效的失败策略 '%s'，有效值: %s, %s", c.Source.OnError, OnErrorSkip, OnErrorReuseLast))
	}
	if c.Source.MaxStaleMs < 0 {
		errs = append(errs, "source.max_stale_ms: 最大报价年龄不能为负数")
	}

	// 验证采样循环
	if c.Poll.IntervalMs <= 0 {
		errs = append(errs, "poll.interval_ms: 采样间隔必须为正数")
	}

	// 验证引擎参数（与引擎自身的前置条件一致）
	if math.IsNaN(c.Engine.NoiseLevel) || math.IsInf(c.Engine.NoiseLevel, 0) || c.Engine.NoiseLevel < 0 {
		errs = append(errs, fmt.Sprintf("engine.noise_level: 噪声水平必须为非负有限值，当前值: %v", c.Engine.NoiseLevel))
	}
	if math.IsNaN(c.Engine.TrendBias) || math.IsInf(c.Engine.TrendBias, 0) {
		errs = append(errs, fmt.Sprintf("engine.trend_bias: 趋势偏置必须为有限值，当前值: %v", c.Engine.TrendBias))
	}

	// 验证输出配置
	if c.Output.BufferSize <= 0 {
		errs = append(errs, "output.buffer_size: 缓冲区大小必须为正数")
	}
	if c.Output.WarmDays < 0 {
		errs = append(errs, "output.warm_days: 回放天数不能为负数")
	}

	// 验证窗口配置
	if c.Display.Window <= 0 {
		errs = append(errs, "display.window: 展示窗口容量必须为正数")
	}
	if c.Stats.Window <= 0 {
		errs = append(errs, "stats.window: 统计窗口大小必须为正数")
	}
	if c.Stats.LogIntervalMs <= 0 {
		errs = append(errs, "stats.log_interval_ms: 统计输出间隔必须为正数")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
