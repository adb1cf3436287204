package risk

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"market-risk-sentry/pkg/config"
	"market-risk-sentry/pkg/types"
)

// defaultStopForSizing 综合法中固定风险子方法使用的止损幅度
const defaultStopForSizing = 0.05

// KellyFraction 凯利比例 f* = p - (1-p)/b，截断到 [0, cap]，cap 不超过0.25
func KellyFraction(winRate, profitLossRatio, cap float64) float64 {
	if cap <= 0 || cap > config.MaxKellyCap {
		cap = config.MaxKellyCap
	}
	if profitLossRatio <= 0 || math.IsNaN(winRate) || math.IsNaN(profitLossRatio) {
		return 0
	}
	f := winRate - (1-winRate)/profitLossRatio
	return clamp(f, 0, cap)
}

// PositionSizer 仓位计算器
type PositionSizer struct {
	config types.PositionConfig
	min    float64
	max    float64
	days   float64
}

// NewPositionSizer 创建仓位计算器，最大仓位始终受硬上限约束
func NewPositionSizer(cfg types.PositionConfig) *PositionSizer {
	max := math.Min(cfg.MaxPosition, config.HardMaxPosition)
	if max <= 0 {
		max = config.HardMaxPosition
	}
	min := cfg.MinPosition
	if min < 0 || min > max {
		min = 0
	}
	return &PositionSizer{config: cfg, min: min, max: max, days: 252}
}

// Kelly 凯利公式仓位
func (s *PositionSizer) Kelly(symbol string, winRate, profitLossRatio float64) types.PositionRecommendation {
	fraction := KellyFraction(winRate, profitLossRatio, s.config.KellyCap)
	rec := s.recommend(symbol, "kelly", fraction, kellyConfidence(winRate, profitLossRatio),
		fmt.Sprintf("凯利公式计算: 胜率%.1f%%, 盈亏比%.2f, 截断后%.1f%%", winRate*100, profitLossRatio, fraction*100))
	rec.Details = map[string]interface{}{
		"kelly_fraction": fraction,
		"kelly_cap":      s.config.KellyCap,
	}
	return rec
}

// Volatility 目标波动率/实际年化波动率；收益率少于20个时使用默认仓位
func (s *PositionSizer) Volatility(symbol string, returns []float64) types.PositionRecommendation {
	vol, ok := s.annualizedVol(returns)
	if !ok {
		zap.L().Warn("数据不足以计算波动率仓位", zap.String("symbol", symbol), zap.Int("returns", len(returns)))
		return s.Default(symbol)
	}

	target := s.config.VolatilityTarget
	ratio := 0.0
	if vol > 0 {
		ratio = target / vol
	}
	confidence := clamp(math.Min(0.7, 1-math.Abs(vol-target)/target), 0, 1)

	rec := s.recommend(symbol, "volatility", ratio, confidence,
		fmt.Sprintf("波动率调整: 目标%.1f%%, 实际%.1f%%, 比例%.1f%%", target*100, vol*100, ratio*100))
	rec.Details = map[string]interface{}{
		"target_volatility": target,
		"actual_volatility": vol,
		"position_ratio":    ratio,
	}
	return rec
}

// FixedRisk 单笔风险/止损幅度，止损幅度无效时使用默认仓位
func (s *PositionSizer) FixedRisk(symbol string, stopLossPct float64) types.PositionRecommendation {
	if stopLossPct <= 0 {
		zap.L().Warn("止损比例无效", zap.String("symbol", symbol), zap.Float64("stop_loss_pct", stopLossPct))
		return s.Default(symbol)
	}

	raw := s.config.RiskPerTrade / stopLossPct
	rec := s.recommend(symbol, "fixed_risk", raw, 0.8,
		fmt.Sprintf("固定风险法: 风险%.1f%%, 止损%.1f%%", s.config.RiskPerTrade*100, stopLossPct*100))
	rec.Details = map[string]interface{}{
		"risk_per_trade": s.config.RiskPerTrade,
		"stop_loss_pct":  stopLossPct,
	}
	return rec
}

// Composite 综合仓位：波动率0.4、凯利0.4、固定风险0.2 加权，缺失的子方法不参与并重新归一化
func (s *PositionSizer) Composite(symbol string, returns []float64, winRate, profitLossRatio *float64) types.PositionRecommendation {
	type part struct {
		method   string
		position float64
		weight   float64
	}
	var parts []part

	if _, ok := s.annualizedVol(returns); ok {
		parts = append(parts, part{"volatility", s.Volatility(symbol, returns).Recommended, 0.4})
	}
	if winRate != nil && profitLossRatio != nil {
		parts = append(parts, part{"kelly", s.Kelly(symbol, *winRate, *profitLossRatio).Recommended, 0.4})
	}
	parts = append(parts, part{"fixed_risk", s.FixedRisk(symbol, defaultStopForSizing).Recommended, 0.2})

	var weightSum, blended float64
	for _, p := range parts {
		weightSum += p.weight
	}
	methods := make([]string, 0, len(parts))
	positions := make([]float64, 0, len(parts))
	weights := make([]float64, 0, len(parts))
	for _, p := range parts {
		w := p.weight / weightSum
		blended += p.position * w
		methods = append(methods, p.method)
		positions = append(positions, p.position)
		weights = append(weights, w)
	}

	rec := s.recommend(symbol, "composite", blended, 0.75,
		fmt.Sprintf("综合%d种方法: %s", len(parts), strings.Join(methods, ", ")))
	rec.Methods = methods
	rec.Details = map[string]interface{}{
		"positions": positions,
		"weights":   weights,
	}

	zap.L().Debug("综合仓位计算完成",
		zap.String("symbol", symbol),
		zap.Float64("recommended", rec.Recommended),
		zap.Strings("methods", methods))
	return rec
}

// Default 默认仓位
func (s *PositionSizer) Default(symbol string) types.PositionRecommendation {
	position := s.config.DefaultPosition
	if position <= 0 {
		position = 0.10
	}
	return types.PositionRecommendation{
		Symbol:      symbol,
		Recommended: clamp(position, s.min, s.max),
		Min:         s.min,
		Max:         s.max,
		Method:      "default",
		Confidence:  0.5,
		RiskLevel:   types.RiskMedium,
		Reason:      "使用默认仓位配置",
	}
}

func (s *PositionSizer) recommend(symbol, method string, raw, confidence float64, reason string) types.PositionRecommendation {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		raw = 0
	}
	position := clamp(raw, s.min, s.max)
	return types.PositionRecommendation{
		Symbol:      symbol,
		Recommended: position,
		Min:         s.min,
		Max:         s.max,
		Method:      method,
		Confidence:  confidence,
		RiskLevel:   PositionRiskLevel(position),
		Reason:      reason,
	}
}

func (s *PositionSizer) annualizedVol(returns []float64) (float64, bool) {
	if len(returns) < 20 {
		return 0, false
	}
	return stat.StdDev(returns, nil) * math.Sqrt(s.days), true
}

// kellyConfidence 0.4·胜率得分 + 0.6·盈亏比得分（盈亏比3以上满分）
func kellyConfidence(winRate, profitLossRatio float64) float64 {
	winScore := math.Min(winRate, 1-winRate) * 2
	plScore := math.Min(profitLossRatio/3, 1)
	return clamp(winScore*0.4+plScore*0.6, 0, 1)
}

// PositionRiskLevel 仓位风险等级
func PositionRiskLevel(position float64) string {
	switch {
	case position >= 0.5:
		return types.PositionRiskHigh
	case position >= 0.3:
		return types.PositionRiskMedium
	case position >= 0.1:
		return types.PositionRiskLow
	default:
		return types.PositionRiskVeryLow
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
