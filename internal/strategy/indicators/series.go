package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// undefinedSeries 长度为n、全部未定义的序列
func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// maskLeading 将前lookback行标记为未定义
func maskLeading(values []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(values); i++ {
		values[i] = math.NaN()
	}
	return values
}

// SMA 简单移动平均，前n-1行未定义；长度不足时整列未定义
func SMA(values []float64, n int) []float64 {
	if n <= 0 || len(values) < n {
		return undefinedSeries(len(values))
	}
	if n == 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	return maskLeading(talib.Sma(values, n), n-1)
}

// RollingMax 滚动最高值
func RollingMax(values []float64, n int) []float64 {
	if n <= 0 || len(values) < n {
		return undefinedSeries(len(values))
	}
	if n == 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	return maskLeading(talib.Max(values, n), n-1)
}

// RollingMin 滚动最低值
func RollingMin(values []float64, n int) []float64 {
	if n <= 0 || len(values) < n {
		return undefinedSeries(len(values))
	}
	if n == 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	return maskLeading(talib.Min(values, n), n-1)
}

// RollingStd 滚动样本标准差（自由度n-1）
func RollingStd(values []float64, n int) []float64 {
	out := undefinedSeries(len(values))
	if n < 2 || len(values) < n {
		return out
	}
	for i := n - 1; i < len(values); i++ {
		out[i] = stat.StdDev(values[i-n+1:i+1], nil)
	}
	return out
}

// ewm 指数加权平均（不做偏差修正），以第一个已定义值为种子；
// 遇到未定义输入时沿用上一个结果
func ewm(values []float64, alpha float64) []float64 {
	out := undefinedSeries(len(values))
	prev := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = prev
		case math.IsNaN(prev):
			prev = v
			out[i] = v
		default:
			prev = prev + alpha*(v-prev)
			out[i] = prev
		}
	}
	return out
}

// rawEMA 从首值开始的EMA，不做遮盖
func rawEMA(values []float64, n int) []float64 {
	return ewm(values, 2/float64(n+1))
}

// LinearRegressionSlope 以1..n为自变量的最小二乘斜率
func LinearRegressionSlope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	_, beta := stat.LinearRegression(xs, values, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return beta
}

// lastDefined 最后一个已定义值
func lastDefined(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	v := values[len(values)-1]
	return v, !math.IsNaN(v)
}
