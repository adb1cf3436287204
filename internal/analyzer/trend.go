package analyzer

import (
	"gonum.org/v1/gonum/stat"
)

// IdentifyTrend 按最近period根K线的涨跌幅划分趋势，并判断均线排列
func IdentifyTrend(closes []float64, period int) TrendInfo {
	window := tail(closes, period)
	if len(window) < 2 || window[0] == 0 {
		return TrendInfo{Trend: "未知", Strength: "unknown", MAAlignment: "混乱", Alignment: "mixed"}
	}

	first, current := window[0], window[len(window)-1]
	change := (current - first) / first * 100

	ma5 := stat.Mean(tail(window, 5), nil)
	ma10 := stat.Mean(tail(window, 10), nil)
	ma20 := ma10
	if len(window) >= 20 {
		ma20 = stat.Mean(tail(window, 20), nil)
	}

	info := TrendInfo{
		Defined:      true,
		PriceChange:  change,
		MA5:          ma5,
		MA10:         ma10,
		MA20:         ma20,
		CurrentPrice: current,
	}

	switch {
	case change > 5:
		info.Trend, info.Strength = "强势上涨", "strong_bullish"
	case change > 2:
		info.Trend, info.Strength = "上涨", "bullish"
	case change > -2:
		info.Trend, info.Strength = "震荡", "neutral"
	case change > -5:
		info.Trend, info.Strength = "下跌", "bearish"
	default:
		info.Trend, info.Strength = "强势下跌", "strong_bearish"
	}

	switch {
	case ma5 > ma10 && ma10 > ma20 && current > ma5:
		info.MAAlignment, info.Alignment = "多头排列", "bullish"
	case ma5 < ma10 && ma10 < ma20 && current < ma5:
		info.MAAlignment, info.Alignment = "空头排列", "bearish"
	default:
		info.MAAlignment, info.Alignment = "混乱", "mixed"
	}

	return info
}

// tail 最后n个元素（不复制）
func tail(values []float64, n int) []float64 {
	if n <= 0 || n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}
