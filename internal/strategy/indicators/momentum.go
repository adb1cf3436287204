package indicators

import "math"

// RSI 相对强弱指标，平均涨幅/跌幅为最近n个价差的简单均值；
// 第n行起有定义。跌幅均值为0时：有涨幅记100，完全走平记50
func RSI(closes []float64, n int) []float64 {
	out := undefinedSeries(len(closes))
	if n <= 0 || len(closes) <= n {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i <= n; i++ {
		gainSum += gains[i]
		lossSum += losses[i]
	}

	for i := n; i < len(closes); i++ {
		if i > n {
			gainSum += gains[i] - gains[i-n]
			lossSum += losses[i] - losses[i-n]
		}
		out[i] = rsiValue(gainSum/float64(n), lossSum/float64(n))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	// 滚动加减可能留下极小的负残差
	if avgGain < 1e-12 {
		avgGain = 0
	}
	if avgLoss < 1e-12 {
		avgLoss = 0
	}

	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50
	case avgLoss == 0:
		return 100
	}

	rs := avgGain / avgLoss
	rsi := 100 - 100/(1+rs)
	return math.Max(0, math.Min(100, rsi))
}

// KDJ 随机指标：K、D 分别以 α=1/m1、α=1/m2 平滑，J=3K-2D 不做截断
func KDJ(highs, lows, closes []float64, n, m1, m2 int) (k, d, j []float64) {
	size := len(closes)
	if n <= 0 || m1 <= 0 || m2 <= 0 || size < n {
		return undefinedSeries(size), undefinedSeries(size), undefinedSeries(size)
	}

	highest := RollingMax(highs, n)
	lowest := RollingMin(lows, n)

	rsv := undefinedSeries(size)
	for i := n - 1; i < size; i++ {
		span := highest[i] - lowest[i]
		if span == 0 || math.IsNaN(span) {
			continue
		}
		rsv[i] = (closes[i] - lowest[i]) / span * 100
	}

	k = ewm(rsv, 1/float64(m1))
	d = ewm(k, 1/float64(m2))
	j = undefinedSeries(size)
	for i := range k {
		if math.IsNaN(k[i]) || math.IsNaN(d[i]) {
			continue
		}
		j[i] = 3*k[i] - 2*d[i]
	}
	return k, d, j
}
