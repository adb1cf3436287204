package indicators

import (
	"fmt"

	"go.uber.org/zap"
	"market-risk-sentry/pkg/types"
)

// Calculator 指标计算器
type Calculator struct {
	params types.IndicatorParams
}

// NewCalculator 创建指标计算器
func NewCalculator(params types.IndicatorParams) *Calculator {
	return &Calculator{params: params}
}

// ComputeIndicators 使用给定参数计算全部指标
func ComputeIndicators(series *types.PriceSeries, params types.IndicatorParams) *types.IndicatorFrame {
	return NewCalculator(params).Compute(series)
}

// Compute 计算全部指标列。窗口不足的列整列为NaN，调用方需自行检查
func (c *Calculator) Compute(series *types.PriceSeries) *types.IndicatorFrame {
	frame := types.NewIndicatorFrame(series)
	if series.Len() == 0 {
		return frame
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()
	p := c.params

	// 均线类必须先于MACD
	for _, n := range p.MAPeriods {
		frame.Set(fmt.Sprintf("MA%d", n), MA(closes, n))
	}
	for _, n := range p.EMAPeriods {
		frame.Set(fmt.Sprintf("EMA%d", n), EMA(closes, n))
	}

	macd, signal, hist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	frame.Set(types.ColMACD, macd)
	frame.Set(types.ColMACDSignal, signal)
	frame.Set(types.ColMACDHist, hist)

	frame.Set(types.ColRSI, RSI(closes, p.RSIPeriod))

	k, d, j := KDJ(highs, lows, closes, p.KDJPeriod, p.KDJSmoothK, p.KDJSmoothD)
	frame.Set(types.ColK, k)
	frame.Set(types.ColD, d)
	frame.Set(types.ColJ, j)

	upper, middle, lower, width := Bollinger(closes, p.BollPeriod, p.BollStdDev)
	frame.Set(types.ColBollUpper, upper)
	frame.Set(types.ColBollMiddle, middle)
	frame.Set(types.ColBollLower, lower)
	frame.Set(types.ColBollWidth, width)

	frame.Set(types.ColATR, ATR(highs, lows, closes, p.ATRPeriod))
	frame.Set(types.ColOBV, OBV(closes, volumes))

	zap.L().Debug("指标计算完成",
		zap.String("symbol", series.Symbol),
		zap.Int("bars", series.Len()),
		zap.Int("columns", len(frame.Columns)))

	return frame
}
