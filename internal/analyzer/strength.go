package analyzer

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"market-risk-sentry/internal/strategy/indicators"
	"market-risk-sentry/pkg/types"
)

// strengthBars ADX计算使用的K线数
const strengthBars = 50

// TrendStrength 基于+DM/-DM与ATR的ADX趋势强度
func TrendStrength(series *types.PriceSeries, period int) StrengthInfo {
	info := StrengthInfo{Description: "数据不足", Direction: "未知"}
	if period <= 0 {
		return info
	}

	recent := series.Tail(strengthBars)
	highs, lows, closes := recent.Highs(), recent.Lows(), recent.Closes()
	n := len(closes)

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atr := windowMean(indicators.TrueRange(highs, lows, closes), period)
	plusAvg := windowMean(plusDM, period)
	minusAvg := windowMean(minusDM, period)

	plusDI := make([]float64, n)
	minusDI := make([]float64, n)
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		plusDI[i] = 100 * plusAvg[i] / atr[i]
		minusDI[i] = 100 * minusAvg[i] / atr[i]
		dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / (plusDI[i] + minusDI[i])
	}
	adx := windowMean(dx, period)

	last := n - 1
	if last < 0 || !finite(adx[last]) || !finite(plusDI[last]) || !finite(minusDI[last]) {
		return info
	}

	info.Defined = true
	info.ADX = adx[last]
	info.PlusDI = plusDI[last]
	info.MinusDI = minusDI[last]

	switch {
	case info.ADX > 40:
		info.Description = "强趋势"
	case info.ADX > 25:
		info.Description = "中等趋势"
	default:
		info.Description = "弱趋势/震荡"
	}
	if info.PlusDI > info.MinusDI {
		info.Direction = "上涨"
	} else {
		info.Direction = "下跌"
	}
	return info
}

// windowMean 滚动均值，窗口内任一值未定义则结果未定义
func windowMean(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
		if i < n-1 {
			continue
		}
		window := values[i-n+1 : i+1]
		if !allFinite(window) {
			continue
		}
		out[i] = stat.Mean(window, nil)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if !finite(v) {
			return false
		}
	}
	return true
}
