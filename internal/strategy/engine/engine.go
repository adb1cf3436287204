package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"market-risk-sentry/internal/risk"
	"market-risk-sentry/internal/storage"
	"market-risk-sentry/internal/strategy/database"
	"market-risk-sentry/pkg/types"
)

// persistInterval K线落库周期
const persistInterval = 30 * time.Second

// KlineSource 实时K线来源
type KlineSource interface {
	KLines() <-chan *types.KLine
}

// HistorySource 历史K线来源
type HistorySource interface {
	FetchMultipleSymbolsHistory(ctx context.Context, symbols []string, interval string, limit int) map[string][]*types.KLine
}

// SnapshotStore K线与分析快照持久化
type SnapshotStore interface {
	BatchSaveKlines(klines []*types.KLine) error
	SaveSnapshot(snapshot *database.AnalysisSnapshot) error
}

// Engine 风险分析引擎：维护各交易对K线缓冲，周期性执行分析并派发警报
type Engine struct {
	config    *types.Config
	pipeline  *Pipeline
	buffers   *storage.BufferSet
	trigger   risk.AlertTrigger
	store     SnapshotStore
	portfolio *portfolioChecker

	reports      map[string]*Report
	reportsMutex sync.RWMutex

	pending      []*types.KLine
	pendingMutex sync.Mutex

	wg sync.WaitGroup

	processedKlines int64
	analysisRuns    int64
	dispatched      int64
	statsMutex      sync.RWMutex
}

// Option 引擎可选项
type Option func(*Engine)

// WithStore 启用MySQL持久化
func WithStore(store SnapshotStore) Option {
	return func(e *Engine) { e.store = store }
}

// NewEngine 创建引擎，trigger 为警报系统入口
func NewEngine(cfg *types.Config, trigger risk.AlertTrigger, opts ...Option) *Engine {
	e := &Engine{
		config:    cfg,
		pipeline:  NewPipeline(cfg),
		buffers:   storage.NewBufferSet(cfg.Market.BufferSize),
		trigger:   trigger,
		portfolio: newPortfolioChecker(cfg),
		reports:   make(map[string]*Report),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Buffers K线缓冲
func (e *Engine) Buffers() *storage.BufferSet {
	return e.buffers
}

// Bootstrap 拉取历史K线填充缓冲并落库
func (e *Engine) Bootstrap(ctx context.Context, source HistorySource) int {
	zap.L().Info("📚 开始初始化历史K线数据",
		zap.Strings("symbols", e.config.Market.Symbols),
		zap.Int("limit", e.config.Market.HistoryLimit))

	history := source.FetchMultipleSymbolsHistory(ctx, e.config.Market.Symbols, e.config.Market.Interval, e.config.Market.HistoryLimit)

	total := 0
	for symbol, klines := range history {
		if len(klines) == 0 {
			zap.L().Warn("⚠️ 历史数据为空", zap.String("symbol", symbol))
			continue
		}
		e.buffers.Buffer(symbol).Load(klines)
		total += len(klines)
		e.persistKlines(klines)

		zap.L().Info("✅ 历史数据初始化完成",
			zap.String("symbol", symbol),
			zap.Int("klines_count", len(klines)),
			zap.Time("oldest", klines[0].OpenTime),
			zap.Time("newest", klines[len(klines)-1].OpenTime))
	}

	zap.L().Info("🎉 所有历史K线数据初始化完成",
		zap.Int("symbols_count", len(history)),
		zap.Int("total_klines", total))
	return total
}

// Start 启动K线收集与落库协程
func (e *Engine) Start(ctx context.Context, source KlineSource) {
	if source != nil {
		e.wg.Add(1)
		go e.klineCollector(ctx, source)
	}

	e.wg.Add(1)
	go e.databasePersister(ctx)
}

// Wait 等待后台协程退出，超时返回false
func (e *Engine) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (e *Engine) klineCollector(ctx context.Context, source KlineSource) {
	defer e.wg.Done()

	klines := source.KLines()
	for {
		select {
		case <-ctx.Done():
			return
		case kline, ok := <-klines:
			if !ok {
				return
			}
			e.HandleKLine(kline)
		}
	}
}

// HandleKLine 写入单根K线，已确认的K线排队落库
func (e *Engine) HandleKLine(kline *types.KLine) bool {
	if kline == nil || !e.buffers.Store(kline) {
		return false
	}

	if kline.Confirmed && e.store != nil {
		e.pendingMutex.Lock()
		e.pending = append(e.pending, kline)
		e.pendingMutex.Unlock()
	}

	e.statsMutex.Lock()
	e.processedKlines++
	e.statsMutex.Unlock()
	return true
}

func (e *Engine) databasePersister(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.FlushKlines()
			return
		case <-ticker.C:
			e.FlushKlines()
		}
	}
}

// FlushKlines 将排队的K线写入数据库
func (e *Engine) FlushKlines() {
	e.pendingMutex.Lock()
	batch := e.pending
	e.pending = nil
	e.pendingMutex.Unlock()

	e.persistKlines(batch)
}

func (e *Engine) persistKlines(klines []*types.KLine) {
	if e.store == nil || len(klines) == 0 {
		return
	}
	if err := e.store.BatchSaveKlines(klines); err != nil {
		zap.L().Error("批量保存K线失败", zap.Int("count", len(klines)), zap.Error(err))
	}
}

// AnalyzeSymbol 基于已确认K线分析单个交易对
func (e *Engine) AnalyzeSymbol(symbol string) (*Report, error) {
	klines := e.buffers.Buffer(symbol).Snapshot(true)
	series, err := types.SeriesFromKLines(symbol, e.config.Market.Interval, klines)
	if err != nil {
		return nil, fmt.Errorf("构建%s价格序列失败: %w", symbol, err)
	}
	return e.pipeline.Analyze(series)
}

// AnalyzeAll 并发分析全部交易对，派发风险警报、保存快照，随后执行组合检查
func (e *Engine) AnalyzeAll(ctx context.Context) map[string]*Report {
	symbols := e.buffers.GetAllSymbols()
	reports := make(map[string]*Report, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}

			report, err := e.AnalyzeSymbol(symbol)
			if err != nil {
				zap.L().Warn("分析失败", zap.String("symbol", symbol), zap.Error(err))
				return
			}

			mu.Lock()
			reports[symbol] = report
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	// 派发与落库按交易对顺序执行，保证警报顺序稳定
	ordered := make([]string, 0, len(reports))
	for symbol := range reports {
		ordered = append(ordered, symbol)
	}
	sort.Strings(ordered)

	for _, symbol := range ordered {
		report := reports[symbol]
		sent := e.pipeline.Monitor().Dispatch(e.trigger, report.Alerts)
		e.saveSnapshot(report)

		e.statsMutex.Lock()
		e.analysisRuns++
		e.dispatched += int64(sent)
		e.statsMutex.Unlock()
	}

	e.reportsMutex.Lock()
	for symbol, report := range reports {
		e.reports[symbol] = report
	}
	e.reportsMutex.Unlock()

	if result := e.CheckPortfolio(); result != nil {
		sent := e.pipeline.Monitor().Dispatch(e.trigger, result.Alerts)
		e.statsMutex.Lock()
		e.dispatched += int64(sent)
		e.statsMutex.Unlock()
	}

	return reports
}

// CheckPortfolio 基于最新报告执行组合再平衡、集中度与归因检查，未配置持仓时返回nil
func (e *Engine) CheckPortfolio() *PortfolioReport {
	e.reportsMutex.RLock()
	snapshot := make(map[string]*Report, len(e.reports))
	for symbol, report := range e.reports {
		snapshot[symbol] = report
	}
	e.reportsMutex.RUnlock()

	return e.portfolio.check(snapshot)
}

// LatestReport 交易对最近一次分析报告
func (e *Engine) LatestReport(symbol string) (*Report, bool) {
	e.reportsMutex.RLock()
	defer e.reportsMutex.RUnlock()
	report, ok := e.reports[symbol]
	return report, ok
}

func (e *Engine) saveSnapshot(report *Report) {
	if e.store == nil {
		return
	}
	snapshot, err := ToSnapshot(report)
	if err != nil {
		zap.L().Error("序列化分析报告失败", zap.String("symbol", report.Symbol), zap.Error(err))
		return
	}
	if err := e.store.SaveSnapshot(snapshot); err != nil {
		zap.L().Error("保存分析快照失败", zap.String("symbol", report.Symbol), zap.Error(err))
	}
}

// ToSnapshot 报告转换为数据库快照
func ToSnapshot(report *Report) (*database.AnalysisSnapshot, error) {
	detail, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}

	snapshot := &database.AnalysisSnapshot{
		RunID:               report.RunID,
		Symbol:              report.Symbol,
		KlineTime:           report.BarTime.UnixMilli(),
		Price:               report.Price,
		RecommendedPosition: report.Position.Recommended,
		AlertCount:          len(report.Alerts),
		Detail:              string(detail),
	}
	if report.Signal != nil {
		snapshot.Signal = report.Signal.Signal
		snapshot.Confidence = report.Signal.Confidence
		snapshot.TotalStrength = report.Signal.TotalStrength
	}
	if report.Analysis != nil {
		snapshot.Trend = report.Analysis.Trend.Trend
	}
	if m := report.Risk; m != nil {
		snapshot.RiskScore = &m.RiskScore
		snapshot.RiskLevel = m.RiskLevel
		snapshot.Volatility = &m.Volatility
		snapshot.MaxDrawdown = &m.MaxDrawdown
		snapshot.VaR95 = &m.VaR95
		snapshot.SharpeRatio = &m.SharpeRatio
	}
	if s := report.StopLoss; s != nil {
		snapshot.StopLossPrice = &s.StopLossPrice
		snapshot.TakeProfitPrice = &s.TakeProfitPrice
	}
	return snapshot, nil
}

// GetStats 引擎运行统计
func (e *Engine) GetStats() map[string]interface{} {
	e.statsMutex.RLock()
	defer e.statsMutex.RUnlock()

	bufferSizes := make(map[string]int)
	for _, symbol := range e.buffers.GetAllSymbols() {
		bufferSizes[symbol] = e.buffers.Buffer(symbol).Length()
	}

	return map[string]interface{}{
		"processed_klines": e.processedKlines,
		"analysis_runs":    e.analysisRuns,
		"alerts_sent":      e.dispatched,
		"buffer_sizes":     bufferSizes,
		"symbols":          e.config.Market.Symbols,
		"interval":         e.config.Market.Interval,
	}
}

// LogStats 输出运行统计
func (e *Engine) LogStats() {
	stats := e.GetStats()
	zap.L().Info("📈 引擎运行统计",
		zap.Any("processed_klines", stats["processed_klines"]),
		zap.Any("analysis_runs", stats["analysis_runs"]),
		zap.Any("alerts_sent", stats["alerts_sent"]),
		zap.Any("buffer_sizes", stats["buffer_sizes"]))
}
