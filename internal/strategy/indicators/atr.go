package indicators

import (
	"market-risk-sentry/pkg/types"
)

// atrHistoryBars 计算斜率与分位数时回看的ATR个数
const atrHistoryBars = 45

// ATRCalculator ATR指标计算器
type ATRCalculator struct {
	length int
}

// NewATRCalculator 创建ATR计算器
func NewATRCalculator(length int) *ATRCalculator {
	return &ATRCalculator{
		length: length,
	}
}

// Series 整条ATR序列
func (ac *ATRCalculator) Series(series *types.PriceSeries) []float64 {
	return ATR(series.Highs(), series.Lows(), series.Closes(), ac.length)
}

// Calculate 计算最新ATR值、斜率与历史分位；数据不足返回nil
func (ac *ATRCalculator) Calculate(series *types.PriceSeries) *types.ATRData {
	atrSeries := ac.Series(series)
	value, ok := lastDefined(atrSeries)
	if !ok {
		return nil
	}

	history := ac.recentDefined(atrSeries)

	return &types.ATRData{
		Value:      value,
		Slope:      ac.slope(history),
		Percentile: ac.percentile(value, history),
	}
}

// recentDefined 最近45个已定义的ATR值
func (ac *ATRCalculator) recentDefined(atrSeries []float64) []float64 {
	start := len(atrSeries) - atrHistoryBars
	if start < 0 {
		start = 0
	}
	var values []float64
	for _, v := range atrSeries[start:] {
		if v == v {
			values = append(values, v)
		}
	}
	return values
}

// slope 线性回归斜率，至少10个点
func (ac *ATRCalculator) slope(history []float64) float64 {
	if len(history) < 10 {
		return 0
	}
	return LinearRegressionSlope(history)
}

// percentile 当前ATR高于历史ATR的比例
func (ac *ATRCalculator) percentile(current float64, history []float64) float64 {
	if len(history) == 0 {
		return 50
	}
	rank := 0
	for _, v := range history {
		if current > v {
			rank++
		}
	}
	return float64(rank) / float64(len(history)) * 100
}

// IsATRDecreasing 斜率为负或处于最低25%分位视为波动收敛
func (ac *ATRCalculator) IsATRDecreasing(atrData *types.ATRData) bool {
	if atrData == nil {
		return false
	}
	return atrData.Slope < 0 || atrData.Percentile <= 25
}

// Normalized ATR占价格的百分比
func (ac *ATRCalculator) Normalized(atrValue, currentPrice float64) float64 {
	if currentPrice == 0 {
		return 0
	}
	return (atrValue / currentPrice) * 100
}
