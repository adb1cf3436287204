package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"market-risk-sentry/pkg/types"
)

// Measurer 风险度量计算器
type Measurer struct {
	config types.RiskConfig
	now    func() time.Time
}

// NewMeasurer 创建风险度量计算器
func NewMeasurer(config types.RiskConfig) *Measurer {
	if config.TradingDays <= 0 {
		config.TradingDays = 252
	}
	return &Measurer{config: config, now: time.Now}
}

// Measure 基于收盘价计算风险指标，收益率少于2个时返回 types.ErrInsufficientData
func (m *Measurer) Measure(symbol string, closes []float64) (*types.RiskMetrics, error) {
	return m.MeasureReturns(symbol, types.Returns(closes))
}

// MeasureReturns 基于简单收益率序列计算风险指标
func (m *Measurer) MeasureReturns(symbol string, returns []float64) (*types.RiskMetrics, error) {
	if len(returns) < 2 {
		return nil, fmt.Errorf("%s 收益率样本 %d 个: %w", symbol, len(returns), types.ErrInsufficientData)
	}

	days := float64(m.config.TradingDays)
	confidence := m.config.ConfidenceLevel
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	metrics := &types.RiskMetrics{
		Symbol:             symbol,
		Timestamp:          m.now().Format("2006-01-02 15:04:05"),
		SampleSize:         len(returns),
		TotalReturn:        TotalReturn(returns),
		AnnualizedReturn:   stat.Mean(returns, nil) * days,
		Volatility:         Volatility(returns, days),
		DownsideVolatility: DownsideVolatility(returns, days),
		MaxDrawdown:        MaxDrawdown(returns),
		SharpeRatio:        SharpeRatio(returns, m.config.RiskFreeRate, days),
		SortinoRatio:       SortinoRatio(returns, m.config.RiskFreeRate, days),
		VaR95:              ValueAtRisk(returns, confidence),
		CVaR95:             ConditionalVaR(returns, confidence),
		WinRate:            WinRate(returns),
		ProfitLossRatio:    ProfitLossRatio(returns),
	}
	metrics.CalmarRatio = CalmarRatio(metrics.AnnualizedReturn, metrics.MaxDrawdown)
	metrics.RiskScore, metrics.RiskLevel = AssessRisk(metrics)

	zap.L().Debug("风险指标计算完成",
		zap.String("symbol", symbol),
		zap.Float64("annualized_return", metrics.AnnualizedReturn),
		zap.Float64("volatility", metrics.Volatility),
		zap.Float64("sharpe", metrics.SharpeRatio),
		zap.Float64("max_drawdown", metrics.MaxDrawdown),
		zap.String("risk_level", metrics.RiskLevel))

	return metrics, nil
}

// TotalReturn 累计收益率
func TotalReturn(returns []float64) float64 {
	value := 1.0
	for _, r := range returns {
		value *= 1 + r
	}
	return value - 1
}

// Volatility 年化波动率（样本标准差×√days）
func Volatility(returns []float64, days float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(days)
}

// DownsideVolatility 负收益的年化样本标准差，负收益少于2个时为0
func DownsideVolatility(returns []float64, days float64) float64 {
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	if len(negative) < 2 {
		return 0
	}
	return stat.StdDev(negative, nil) * math.Sqrt(days)
}

// MaxDrawdown 最大回撤（净值/历史最高净值-1 的最小值），始终 <= 0
func MaxDrawdown(returns []float64) float64 {
	value, peak, worst := 1.0, 1.0, 0.0
	for _, r := range returns {
		value *= 1 + r
		if value > peak {
			peak = value
		}
		if peak > 0 {
			if dd := value/peak - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// SharpeRatio 年化夏普比率，标准差为0时为0
func SharpeRatio(returns []float64, riskFree, days float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	// 扣除常数无风险利率不改变标准差
	std := stat.StdDev(returns, nil)
	if std < 1e-15 || math.IsNaN(std) {
		return 0
	}
	return stat.Mean(excessReturns(returns, riskFree/days), nil) / std * math.Sqrt(days)
}

// SortinoRatio 年化超额收益除以年化下行波动率，下行波动率为0时为0
func SortinoRatio(returns []float64, riskFree, days float64) float64 {
	downside := DownsideVolatility(returns, days)
	if downside == 0 {
		return 0
	}
	return stat.Mean(excessReturns(returns, riskFree/days), nil) * days / downside
}

// CalmarRatio 年化收益除以最大回撤绝对值，无回撤时为0
func CalmarRatio(annualizedReturn, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return annualizedReturn / math.Abs(maxDrawdown)
}

// ValueAtRisk 收益率分布的(1-confidence)分位数（线性插值），亏损为负数
func ValueAtRisk(returns []float64, confidence float64) float64 {
	return percentile(returns, 1-confidence)
}

// ConditionalVaR 不高于VaR的收益率均值
func ConditionalVaR(returns []float64, confidence float64) float64 {
	v := ValueAtRisk(returns, confidence)
	var tail []float64
	for _, r := range returns {
		if r <= v {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return v
	}
	return stat.Mean(tail, nil)
}

// WinRate 正收益占比
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// ProfitLossRatio 平均盈利/平均亏损绝对值，没有盈利或亏损时为0
func ProfitLossRatio(returns []float64) float64 {
	var wins, losses []float64
	for _, r := range returns {
		switch {
		case r > 0:
			wins = append(wins, r)
		case r < 0:
			losses = append(losses, r)
		}
	}
	if len(wins) == 0 || len(losses) == 0 {
		return 0
	}
	avgLoss := math.Abs(stat.Mean(losses, nil))
	if avgLoss == 0 {
		return 0
	}
	return stat.Mean(wins, nil) / avgLoss
}

// AssessRisk 综合风险评分（0-100）与风险等级
func AssessRisk(m *types.RiskMetrics) (float64, string) {
	score := 0.0

	switch {
	case m.Volatility > 0.5:
		score += 30
	case m.Volatility > 0.3:
		score += 20
	case m.Volatility > 0.15:
		score += 10
	}

	drawdown := math.Abs(m.MaxDrawdown)
	switch {
	case drawdown > 0.4:
		score += 30
	case drawdown > 0.25:
		score += 20
	case drawdown > 0.15:
		score += 10
	}

	switch {
	case m.SharpeRatio < 0:
		score += 20
	case m.SharpeRatio < 0.5:
		score += 15
	case m.SharpeRatio < 1.0:
		score += 10
	}

	tailLoss := math.Abs(m.VaR95)
	switch {
	case tailLoss > 0.05:
		score += 20
	case tailLoss > 0.03:
		score += 10
	}

	score = math.Min(score, 100)

	switch {
	case score >= 70:
		return score, types.RiskExtreme
	case score >= 50:
		return score, types.RiskHigh
	case score >= 30:
		return score, types.RiskMedium
	default:
		return score, types.RiskLow
	}
}

func excessReturns(returns []float64, dailyRiskFree float64) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r - dailyRiskFree
	}
	return out
}

// percentile 线性插值分位数，位置为 q*(n-1)
func percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
