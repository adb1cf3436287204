package analyzer

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"market-risk-sentry/internal/strategy/indicators"
	"market-risk-sentry/pkg/types"
)

var annualFactor = math.Sqrt(252)

// VolatilityRegime 比较10/30/60期年化已实现波动率：短>中>长为扩张，短<中<长为收敛
func VolatilityRegime(closes []float64) RegimeInfo {
	returns := types.Returns(closes)
	if len(returns) < 10 {
		return RegimeInfo{Trend: "数据不足", Regime: "unknown"}
	}

	info := RegimeInfo{
		Defined:   true,
		ShortVol:  annualizedPct(tail(returns, 10)),
		MediumVol: annualizedPct(tail(returns, 30)),
		LongVol:   annualizedPct(tail(returns, 60)),
	}

	switch {
	case info.ShortVol > info.MediumVol && info.MediumVol > info.LongVol:
		info.Trend, info.Regime = "波动率上升", RegimeExpanding
	case info.ShortVol < info.MediumVol && info.MediumVol < info.LongVol:
		info.Trend, info.Regime = "波动率下降", RegimeContracting
	default:
		info.Trend, info.Regime = "波动率稳定", RegimeStable
	}

	var history []float64
	for _, v := range indicators.RollingStd(returns, 20) {
		if !math.IsNaN(v) {
			history = append(history, v*annualFactor*100)
		}
	}
	info.Percentile = 50
	if len(history) > 0 {
		below := 0
		for _, v := range history {
			if v < info.ShortVol {
				below++
			}
		}
		info.Percentile = float64(below) / float64(len(history)) * 100
	}

	return info
}

// HistoricalVolatility 当前滚动年化波动率与最近60个值的均值比较
func HistoricalVolatility(closes []float64, period int) HistVolInfo {
	info := HistVolInfo{Level: "未知", Period: period}

	rolling := indicators.RollingStd(types.Returns(closes), period)
	if len(rolling) == 0 || math.IsNaN(rolling[len(rolling)-1]) {
		return info
	}

	var recent []float64
	for _, v := range tail(rolling, 60) {
		if !math.IsNaN(v) {
			recent = append(recent, v)
		}
	}

	info.Defined = true
	info.Current = rolling[len(rolling)-1] * annualFactor * 100
	info.Average = stat.Mean(recent, nil) * annualFactor * 100

	switch {
	case info.Current > info.Average*1.5:
		info.Level = "高波动"
	case info.Current > info.Average*0.7:
		info.Level = "正常波动"
	default:
		info.Level = "低波动"
	}
	return info
}

// ParkinsonVolatility 基于高低价的Parkinson年化波动率
func ParkinsonVolatility(series *types.PriceSeries, period int) (float64, bool) {
	recent := series.Tail(period)
	if recent.Len() == 0 {
		return 0, false
	}

	squares := make([]float64, 0, recent.Len())
	for _, bar := range recent.Bars {
		if bar.Low <= 0 || bar.High <= 0 {
			return 0, false
		}
		hl := math.Log(bar.High / bar.Low)
		squares = append(squares, hl*hl)
	}

	return math.Sqrt(stat.Mean(squares, nil)/(4*math.Ln2)) * annualFactor, true
}

// BollingerSqueeze 当前布林带宽度与最近100个宽度均值比较
func BollingerSqueeze(frame *types.IndicatorFrame) SqueezeInfo {
	info := SqueezeInfo{Status: "未知"}

	current, ok := frame.Latest(types.ColBollWidth)
	if !ok {
		return info
	}

	var widths []float64
	for _, v := range tail(frame.Column(types.ColBollWidth), 100) {
		if !math.IsNaN(v) {
			widths = append(widths, v)
		}
	}
	average := stat.Mean(widths, nil)

	info.Defined = true
	info.CurrentWidth = current
	info.AverageWidth = average

	switch {
	case current < average*0.5:
		info.Status, info.Description = "强挤压", "布林带极度收窄，可能即将突破"
	case current < average*0.7:
		info.Status, info.Description = "挤压", "布林带收窄，关注突破方向"
	case current > average*1.5:
		info.Status, info.Description = "扩张", "布林带扩张，波动率上升"
	default:
		info.Status, info.Description = "正常", "布林带宽度正常"
	}
	return info
}

// annualizedPct 样本标准差年化后的百分比
func annualizedPct(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * annualFactor * 100
}
