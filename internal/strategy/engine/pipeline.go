package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"market-risk-sentry/internal/analyzer"
	"market-risk-sentry/internal/risk"
	"market-risk-sentry/internal/strategy/indicators"
	"market-risk-sentry/internal/strategy/signals"
	"market-risk-sentry/pkg/types"
)

// Report 单个交易对的一次完整分析结果
type Report struct {
	RunID      string                       `json:"run_id"`
	Symbol     string                       `json:"symbol"`
	Interval   string                       `json:"interval"`
	BarTime    time.Time                    `json:"bar_time"`
	Price      float64                      `json:"price"`
	Indicators map[string]float64           `json:"indicators"`
	Analysis   *analyzer.Summary            `json:"analysis"`
	Signal     *types.CompositeSignal       `json:"signal"`
	Risk       *types.RiskMetrics           `json:"risk,omitempty"`
	Position   types.PositionRecommendation `json:"position"`
	StopLoss   *types.StopLossTarget        `json:"stop_loss,omitempty"`
	Alerts     []types.RiskAlert            `json:"alerts"`
	Returns    []float64                    `json:"-"`
	CreatedAt  time.Time                    `json:"created_at"`
}

// Direction 综合信号为强烈卖出时按空头计算止损，其余按多头
func Direction(signal *types.CompositeSignal) string {
	if signal != nil && signal.Signal == types.SignalStrongSell {
		return types.DirectionShort
	}
	return types.DirectionLong
}

// Pipeline 指标 -> 分析/信号 -> 风险 -> 仓位/止损 -> 监控
// 各阶段均无共享可变状态，可并发调用Analyze
type Pipeline struct {
	calculator *indicators.Calculator
	analyzer   *analyzer.Analyzer
	generator  *signals.Generator
	measurer   *risk.Measurer
	sizer      *risk.PositionSizer
	stops      *risk.StopLossCalculator
	monitor    *risk.RiskMonitor
	now        func() time.Time
}

// NewPipeline 创建分析流水线
func NewPipeline(cfg *types.Config) *Pipeline {
	return &Pipeline{
		calculator: indicators.NewCalculator(cfg.Indicators),
		analyzer:   analyzer.New(cfg.Analysis),
		generator:  signals.NewGenerator(),
		measurer:   risk.NewMeasurer(cfg.Risk),
		sizer:      risk.NewPositionSizer(cfg.Position),
		stops:      risk.NewStopLossCalculator(cfg.StopLoss),
		monitor:    risk.NewRiskMonitor(cfg.Monitor),
		now:        time.Now,
	}
}

// Analyze 对价格序列执行完整分析，少于2根K线返回 types.ErrInsufficientData
func (p *Pipeline) Analyze(series *types.PriceSeries) (*Report, error) {
	if series.Len() < 2 {
		return nil, fmt.Errorf("%s K线 %d 根: %w", series.Symbol, series.Len(), types.ErrInsufficientData)
	}

	last := series.Last()
	report := &Report{
		RunID:     uuid.NewString(),
		Symbol:    series.Symbol,
		Interval:  series.Interval,
		BarTime:   last.Timestamp,
		Price:     last.Close,
		Returns:   types.Returns(series.Closes()),
		CreatedAt: p.now(),
	}

	frame := p.calculator.Compute(series)
	report.Indicators = latestIndicators(frame)
	report.Analysis = p.analyzer.Summary(frame)
	report.Signal = p.generator.Generate(frame)

	metrics, err := p.measurer.MeasureReturns(series.Symbol, report.Returns)
	switch {
	case err == nil:
		report.Risk = metrics
		winRate, plr := metrics.WinRate, metrics.ProfitLossRatio
		report.Position = p.sizer.Composite(series.Symbol, report.Returns, &winRate, &plr)
	case errors.Is(err, types.ErrInsufficientData):
		zap.L().Debug("样本不足，使用默认仓位", zap.String("symbol", series.Symbol), zap.Error(err))
		report.Position = p.sizer.Default(series.Symbol)
	default:
		return nil, err
	}

	report.StopLoss = p.stops.Calculate(series, Direction(report.Signal))
	report.Alerts = p.monitor.CheckAsset(report.Risk, report.Position.Recommended)

	zap.L().Info("📊 分析完成",
		zap.String("run_id", report.RunID),
		zap.String("symbol", report.Symbol),
		zap.Float64("price", report.Price),
		zap.String("signal", report.Signal.Signal),
		zap.Float64("position", report.Position.Recommended),
		zap.Int("alerts", len(report.Alerts)))

	return report, nil
}

// Monitor 流水线使用的风险监控器
func (p *Pipeline) Monitor() *risk.RiskMonitor {
	return p.monitor
}

// latestIndicators 最后一行已定义的指标值
func latestIndicators(frame *types.IndicatorFrame) map[string]float64 {
	values := make(map[string]float64, len(frame.Columns))
	for name := range frame.Columns {
		if v, ok := frame.Latest(name); ok {
			values[name] = v
		}
	}
	return values
}
