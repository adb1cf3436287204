package indicators

import "math"

// Bollinger 布林带：中轨为n期均线，上下轨为中轨±k倍样本标准差，宽度为带宽占中轨百分比
func Bollinger(closes []float64, n int, k float64) (upper, middle, lower, width []float64) {
	size := len(closes)
	middle = SMA(closes, n)
	std := RollingStd(closes, n)

	upper = undefinedSeries(size)
	lower = undefinedSeries(size)
	width = undefinedSeries(size)
	for i := 0; i < size; i++ {
		if math.IsNaN(middle[i]) || math.IsNaN(std[i]) {
			continue
		}
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
		if middle[i] != 0 {
			width[i] = (upper[i] - lower[i]) / middle[i] * 100
		}
	}
	return upper, middle, lower, width
}

// TrueRange 真实波幅，首根K线取最高价-最低价
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		hl := highs[i] - lows[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR 真实波幅的n期简单均值
func ATR(highs, lows, closes []float64, n int) []float64 {
	if len(closes) < n {
		return undefinedSeries(len(closes))
	}
	return SMA(TrueRange(highs, lows, closes), n)
}
