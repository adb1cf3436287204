package analyzer

import (
	"time"

	"go.uber.org/zap"
	"market-risk-sentry/pkg/types"
)

// Analyzer 趋势与波动率分析器，无内部状态，可并发使用
type Analyzer struct {
	config types.AnalysisConfig
}

// New 创建分析器
func New(config types.AnalysisConfig) *Analyzer {
	return &Analyzer{config: config}
}

// Summary 综合趋势与波动率分析
func (a *Analyzer) Summary(frame *types.IndicatorFrame) *Summary {
	series := frame.Series
	closes := series.Closes()

	summary := &Summary{
		Trend:             IdentifyTrend(closes, a.config.TrendPeriod),
		SupportResistance: FindSupportResistance(series, a.config.SRWindow, a.config.SRLevels, a.config.SRLookback),
		TrendStrength:     TrendStrength(series, a.config.ADXPeriod),
		Divergence:        DetectDivergence(frame, a.config.DivergenceWindow),
		Regime:            VolatilityRegime(closes),
		HistoricalVol:     HistoricalVolatility(closes, a.config.TrendPeriod),
		BollingerSqueeze:  BollingerSqueeze(frame),
		Timestamp:         time.Now().Format("2006-01-02 15:04:05"),
	}
	if vol, ok := ParkinsonVolatility(series, a.config.TrendPeriod); ok {
		summary.ParkinsonVol = vol * 100
	}

	if summary.Divergence.Type != DivergenceNone {
		zap.L().Info("检测到背离",
			zap.String("symbol", series.Symbol),
			zap.String("type", summary.Divergence.Type))
	}
	zap.L().Debug("趋势分析完成",
		zap.String("symbol", series.Symbol),
		zap.String("trend", summary.Trend.Trend),
		zap.String("regime", summary.Regime.Regime))

	return summary
}
