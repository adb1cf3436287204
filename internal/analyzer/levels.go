package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"market-risk-sentry/pkg/types"
)

// clusterTolerance 相邻价位相对差不超过2%时合并
const clusterTolerance = 0.02

// FindSupportResistance 在最近lookback根K线中寻找±window范围的局部高低点，
// 聚类后返回离当前价最近的levels个支撑位与阻力位
func FindSupportResistance(series *types.PriceSeries, window, levels, lookback int) Levels {
	result := Levels{Support: []float64{}, Resistance: []float64{}}
	if series.Len() == 0 || window <= 0 || levels <= 0 {
		return result
	}

	recent := series.Tail(lookback)
	highs := recent.Highs()
	lows := recent.Lows()

	var peaks, troughs []float64
	for i := window; i < len(highs)-window; i++ {
		if highs[i] == maxOf(highs[i-window:i+window+1]) {
			peaks = append(peaks, highs[i])
		}
		if lows[i] == minOf(lows[i-window:i+window+1]) {
			troughs = append(troughs, lows[i])
		}
	}

	price := recent.Last().Close
	result.Support = nearest(clusterLevels(troughs), price, levels)
	result.Resistance = nearest(clusterLevels(peaks), price, levels)

	sort.Sort(sort.Reverse(sort.Float64Slice(result.Support)))
	sort.Float64s(result.Resistance)
	return result
}

// clusterLevels 排序后把相近价位合并为均值
func clusterLevels(levels []float64) []float64 {
	if len(levels) == 0 {
		return nil
	}

	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)

	var clusters []float64
	current := []float64{sorted[0]}
	for _, level := range sorted[1:] {
		last := current[len(current)-1]
		if last != 0 && (level-last)/last <= clusterTolerance {
			current = append(current, level)
			continue
		}
		clusters = append(clusters, stat.Mean(current, nil))
		current = []float64{level}
	}
	return append(clusters, stat.Mean(current, nil))
}

// nearest 按与价格的距离取前n个
func nearest(levels []float64, price float64, n int) []float64 {
	out := append([]float64{}, levels...)
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(price-out[i]) < math.Abs(price-out[j])
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func maxOf(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		if v < m {
			m = v
		}
	}
	return m
}
