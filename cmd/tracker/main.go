// Package main 是合成永续资金费率追踪器的入口点。
// 追踪器按固定间隔拉取 SOL 现货价格，通过 FundingEngine 合成永续价格
// 并推导资金费率，将每条观测追加到按日期分文件的 CSV 时间序列。
//
// 重要：本系统为合成/演示性质的资金费率模拟，不连接任何真实交易通道。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"synthetic-funding-tracker/internal/config"
	"synthetic-funding-tracker/internal/core/funding"
	"synthetic-funding-tracker/internal/core/model"
	"synthetic-funding-tracker/internal/core/store"
	"synthetic-funding-tracker/internal/output/csvlog"
	"synthetic-funding-tracker/internal/source"
	"synthetic-funding-tracker/internal/source/binancews"
	"synthetic-funding-tracker/internal/source/jupiter"
	statsfunding "synthetic-funding-tracker/internal/stats/funding"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	// 构建价格源
	var provider source.Provider
	var wsClient *binancews.Client
	switch cfg.Source.Mode {
	case config.SourceModeBinanceWS:
		wsClient = binancews.NewClient(&cfg.Source.BinanceWS, logger)

		startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := wsClient.Connect(startCtx); err != nil {
			startCancel()
			logger.Error("Binance 连接失败", zap.Error(err))
			os.Exit(1)
		}
		startCancel()
		if err := wsClient.Subscribe(); err != nil {
			logger.Error("Binance 订阅失败", zap.Error(err))
			os.Exit(1)
		}
		go wsClient.Run(ctx)
		provider = wsClient
	default:
		provider = jupiter.NewClient(cfg.Source.Jupiter.URL, cfg.Source.Jupiter.Mint, cfg.Source.Jupiter.TimeoutMs)
	}

	var csvWriter *csvlog.Writer
	if cfg.Output.CSVEnabled {
		csvWriter, err = csvlog.NewWriter(cfg.Output.Dir, cfg.Output.BufferSize)
		if err != nil {
			logger.Error("创建 CSV writer 失败", zap.Error(err))
			os.Exit(1)
		}
	}

	// 初始化核心组件（单引擎实例，归本进程会话独占）
	obsStore := store.New(cfg.Display.Window)
	statsCalc := statsfunding.NewCalculator(cfg.Stats.Window)
	engine := funding.NewEngine(nil)

	// 回放最近历史，预热展示窗口与统计
	if cfg.Output.WarmDays > 0 {
		warm, err := csvlog.LoadDays(cfg.Output.Dir, cfg.Output.WarmDays, time.Now())
		if err != nil {
			logger.Warn("读取历史数据失败", zap.Error(err))
		} else {
			for _, obs := range warm {
				obsStore.Add(obs)
				statsCalc.Add(obs.FundingRate)
			}
			logger.Info("历史数据回放完成", zap.Int("records", len(warm)), zap.Int("days", cfg.Output.WarmDays))
		}
	}

	logger.Info("追踪器启动",
		zap.String("source", provider.Name()),
		zap.Int("interval_ms", cfg.Poll.IntervalMs),
		zap.Float64("noise_level", cfg.Engine.NoiseLevel),
		zap.Float64("trend_bias", cfg.Engine.TrendBias),
	)

	runLoop(ctx, logger, cfg, provider, engine, obsStore, statsCalc, csvWriter)

	// 输出最后一份统计快照（便于离线复盘）
	logStats(logger, statsCalc.Snapshot(), engine.StepCount())

	// 优雅关闭（10s 超时）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if wsClient != nil {
			_ = wsClient.Close()
		}
		if csvWriter != nil {
			_ = csvWriter.Close()
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("关闭超时，强制退出")
	case <-done:
		logger.Info("关闭完成")
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// runLoop 驱动循环：按间隔取价 → 引擎步进 → 窗口/统计/CSV
// 循环为单 goroutine，引擎与展示窗口均按单写者约定访问。
func runLoop(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	provider source.Provider,
	engine *funding.Engine,
	obsStore *store.Store,
	statsCalc *statsfunding.Calculator,
	csvWriter *csvlog.Writer,
) {
	interval := time.Duration(cfg.Poll.IntervalMs) * time.Millisecond
	maxStale := time.Duration(cfg.Source.MaxStaleMs) * time.Millisecond
	engineCfg := funding.EngineConfig{
		NoiseLevel: cfg.Engine.NoiseLevel,
		TrendBias:  cfg.Engine.TrendBias,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(time.Duration(cfg.Stats.LogIntervalMs) * time.Millisecond)
	defer statsTicker.Stop()

	// lastQuote 最近一次有效报价（reuse_last 策略使用）
	var lastQuote *model.SpotQuote

	// 启动立即采样一次，不等首个 tick
	lastQuote = tick(ctx, logger, cfg, provider, engine, obsStore, statsCalc, csvWriter, engineCfg, interval, maxStale, lastQuote)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lastQuote = tick(ctx, logger, cfg, provider, engine, obsStore, statsCalc, csvWriter, engineCfg, interval, maxStale, lastQuote)
		case <-statsTicker.C:
			logStats(logger, statsCalc.Snapshot(), engine.StepCount())
		}
	}
}

// tick 执行一次完整采样
// 取价失败按 source.on_error 策略处理：skip 跳过本 tick 并保留上一条
// 有效观测；reuse_last 在 max_stale_ms 内复用最近一次有效报价。
// 返回: 本次使用的有效报价（失败时原样返回 lastQuote）。
func tick(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	provider source.Provider,
	engine *funding.Engine,
	obsStore *store.Store,
	statsCalc *statsfunding.Calculator,
	csvWriter *csvlog.Writer,
	engineCfg funding.EngineConfig,
	interval time.Duration,
	maxStale time.Duration,
	lastQuote *model.SpotQuote,
) *model.SpotQuote {
	fetchTimeout := interval
	if fetchTimeout > 10*time.Second {
		fetchTimeout = 10 * time.Second
	}
	fetchCtx, fetchCancel := context.WithTimeout(ctx, fetchTimeout)
	quote, err := provider.Fetch(fetchCtx)
	fetchCancel()

	now := time.Now()

	if err == nil && quote.IsStale(now, maxStale) {
		err = fmt.Errorf("%w: 报价年龄 %s 超过上限 %s", source.ErrStale, quote.Age(now).Round(time.Millisecond), maxStale)
		quote = nil
	}

	if err != nil {
		if cfg.Source.OnError == config.OnErrorReuseLast && lastQuote != nil && !lastQuote.IsStale(now, maxStale) {
			logger.Warn("取价失败，复用最近一次有效报价",
				zap.Error(err),
				zap.Float64("price", lastQuote.Price),
				zap.Duration("age", lastQuote.Age(now).Round(time.Millisecond)),
			)
			quote = lastQuote
		} else {
			// 跳过本 tick，上一条有效观测保持可见
			logger.Warn("取价失败，跳过本 tick", zap.Error(err))
			return lastQuote
		}
	}

	obs, err := engine.Step(now, quote.Price, engineCfg)
	if err != nil {
		// 引擎失败不改变状态，下个 tick 正常继续
		logger.Error("引擎步进失败", zap.Error(err), zap.Float64("spot_price", quote.Price))
		return quote
	}

	obsStore.Add(obs)
	statsCalc.Add(obs.FundingRate)
	if csvWriter != nil {
		if err := csvWriter.Write(obs); err != nil {
			logger.Warn("CSV 写入失败", zap.Error(err))
		}
	}

	logger.Info("采样完成",
		zap.Float64("spot_price", obs.SpotPrice),
		zap.Float64("perp_price", obs.PerpPrice),
		zap.Float64("funding_rate", obs.FundingRate),
		zap.Float64("divergence_pct", obs.DivergencePct),
		zap.String("source", quote.Source),
	)

	return quote
}

// logStats 输出统计快照日志
func logStats(logger *zap.Logger, s statsfunding.Stats, steps int64) {
	if s.Count == 0 {
		return
	}
	logger.Info("资金费率统计",
		zap.Int64("count", s.Count),
		zap.Int64("total_count", s.TotalCount),
		zap.Int64("engine_steps", steps),
		zap.Float64("mean", s.Mean),
		zap.Float64("std", s.Std),
		zap.Float64("min", s.Min),
		zap.Float64("max", s.Max),
		zap.Float64("median", s.Median),
		zap.Float64("positive_pct", s.PositiveRatePct),
		zap.Float64("negative_pct", s.NegativeRatePct),
	)
}
