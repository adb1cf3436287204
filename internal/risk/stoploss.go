package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"market-risk-sentry/internal/strategy/indicators"
	"market-risk-sentry/pkg/types"
)

// 止损方法
const (
	StopMethodFixed             = "fixed"
	StopMethodATR               = "atr"
	StopMethodSupportResistance = "support_resistance"
)

// priceDigits 止损止盈价格保留的有效数字位数（价格>=1时为小数位数）
const priceDigits = 8

// StopLossCalculator 止损止盈计算器
type StopLossCalculator struct {
	config types.StopLossConfig
}

// NewStopLossCalculator 创建止损止盈计算器
func NewStopLossCalculator(config types.StopLossConfig) *StopLossCalculator {
	if config.StopLossPct <= 0 {
		config.StopLossPct = 0.05
	}
	if config.RiskRewardRatio <= 0 {
		config.RiskRewardRatio = 3.0
	}
	if config.ATRPeriod <= 0 {
		config.ATRPeriod = 14
	}
	if config.ATRStopMultiplier <= 0 {
		config.ATRStopMultiplier = 2.0
	}
	if config.ATRProfitMultiplier <= 0 {
		config.ATRProfitMultiplier = 3.0
	}
	if config.Lookback <= 0 {
		config.Lookback = 20
	}
	return &StopLossCalculator{config: config}
}

// Calculate 按配置的方法计算
func (c *StopLossCalculator) Calculate(series *types.PriceSeries, direction string) *types.StopLossTarget {
	switch c.config.Method {
	case StopMethodFixed:
		return c.Fixed(series.Symbol, series.Last().Close, direction)
	case StopMethodSupportResistance:
		return c.SupportResistance(series, direction)
	default:
		return c.ATR(series, direction)
	}
}

// Fixed 固定百分比止损，止盈优先取 take_profit_pct，否则为 止损×风险收益比
func (c *StopLossCalculator) Fixed(symbol string, price float64, direction string) *types.StopLossTarget {
	direction = normalizeDirection(direction)
	stopPct := c.config.StopLossPct
	profitPct := c.config.TakeProfitPct
	if profitPct <= 0 {
		profitPct = stopPct * c.config.RiskRewardRatio
	}

	stop := price * (1 - stopPct)
	profit := price * (1 + profitPct)
	if direction == types.DirectionShort {
		stop = price * (1 + stopPct)
		profit = price * (1 - profitPct)
	}

	target := c.build(symbol, direction, price, stop, profit, StopMethodFixed,
		fmt.Sprintf("固定百分比: 止损%.1f%%, 止盈%.1f%%, 风险收益比1:%.1f", stopPct*100, profitPct*100, profitPct/stopPct))
	if !target.Valid() {
		// 舍入后与现价重合时保留原始价格
		target.StopLossPrice, target.TakeProfitPrice = stop, profit
		target.StopLossPct, target.TakeProfitPct = stopPct, profitPct
		if !target.Valid() {
			zap.L().Warn("固定止损方向无效",
				zap.String("symbol", symbol),
				zap.Float64("price", price),
				zap.Float64("stop_loss", stop),
				zap.Float64("take_profit", profit))
		}
	}

	zap.L().Debug("固定止损计算",
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Float64("stop_loss", target.StopLossPrice),
		zap.Float64("take_profit", target.TakeProfitPrice))
	return target
}

// ATR 止损 = 价格 ∓ 倍数×ATR，ATR为0或未定义时退回固定止损
func (c *StopLossCalculator) ATR(series *types.PriceSeries, direction string) *types.StopLossTarget {
	direction = normalizeDirection(direction)
	price := series.Last().Close

	atrValue := math.NaN()
	if data := indicators.NewATRCalculator(c.config.ATRPeriod).Calculate(series); data != nil {
		atrValue = data.Value
	}
	if math.IsNaN(atrValue) || atrValue <= 0 {
		zap.L().Warn("ATR不可用，使用固定止损", zap.String("symbol", series.Symbol))
		return c.Fixed(series.Symbol, price, direction)
	}

	stopDistance := atrValue * c.config.ATRStopMultiplier
	profitDistance := atrValue * c.config.ATRProfitMultiplier
	stop, profit := price-stopDistance, price+profitDistance
	if direction == types.DirectionShort {
		stop, profit = price+stopDistance, price-profitDistance
	}

	target := c.build(series.Symbol, direction, price, stop, profit, StopMethodATR,
		fmt.Sprintf("ATR动态止损: ATR=%.4f, 止损倍数%.1fx, 止盈倍数%.1fx",
			atrValue, c.config.ATRStopMultiplier, c.config.ATRProfitMultiplier))
	target.ATRValue = &atrValue
	return c.checked(series.Symbol, price, direction, target)
}

// SupportResistance 以回看窗口内的最低/最高价作为支撑/阻力，加减缓冲比例
func (c *StopLossCalculator) SupportResistance(series *types.PriceSeries, direction string) *types.StopLossTarget {
	direction = normalizeDirection(direction)
	price := series.Last().Close

	lookback := c.config.Lookback
	if series.Len() < lookback {
		lookback = series.Len()
	}
	channel := indicators.NewChannelCalculator(lookback, 0).Calculate(series)
	if channel == nil {
		zap.L().Warn("数据不足，使用固定止损", zap.String("symbol", series.Symbol))
		return c.Fixed(series.Symbol, price, direction)
	}

	support, resistance := channel.Lower, channel.Upper
	buffer := c.config.Buffer
	stop, profit := support*(1-buffer), resistance*(1-buffer)
	if direction == types.DirectionShort {
		stop, profit = resistance*(1+buffer), support*(1+buffer)
	}

	target := c.build(series.Symbol, direction, price, stop, profit, StopMethodSupportResistance,
		fmt.Sprintf("支撑阻力位: 支撑%.4f, 阻力%.4f, 回看%d期", support, resistance, lookback))
	return c.checked(series.Symbol, price, direction, target)
}

// checked 方向不变式不成立时退回固定止损
func (c *StopLossCalculator) checked(symbol string, price float64, direction string, target *types.StopLossTarget) *types.StopLossTarget {
	if target.Valid() {
		return target
	}
	zap.L().Warn("止损止盈价格方向无效，使用固定止损",
		zap.String("symbol", symbol),
		zap.String("method", target.Method),
		zap.Float64("price", price),
		zap.Float64("stop_loss", target.StopLossPrice),
		zap.Float64("take_profit", target.TakeProfitPrice))
	return c.Fixed(symbol, price, direction)
}

func (c *StopLossCalculator) build(symbol, direction string, price, stop, profit float64, method, reason string) *types.StopLossTarget {
	stopPrice := roundPrice(stop)
	profitPrice := roundPrice(profit)

	var stopPct, profitPct float64
	if price != 0 {
		p := decimal.NewFromFloat(price)
		stopPct, _ = decimal.NewFromFloat(stopPrice).Sub(p).Abs().Div(p).Float64()
		profitPct, _ = decimal.NewFromFloat(profitPrice).Sub(p).Abs().Div(p).Float64()
	}

	return &types.StopLossTarget{
		Symbol:          symbol,
		Direction:       direction,
		CurrentPrice:    price,
		StopLossPrice:   stopPrice,
		TakeProfitPrice: profitPrice,
		StopLossPct:     stopPct,
		TakeProfitPct:   profitPct,
		Method:          method,
		Reason:          reason,
	}
}

// roundPrice 价格>=1时保留8位小数，小于1时保留8位有效数字
func roundPrice(v float64) float64 {
	places := int32(priceDigits)
	if a := math.Abs(v); a > 0 && a < 1 {
		places += int32(-math.Floor(math.Log10(a))) - 1
	}
	rounded, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return rounded
}

func normalizeDirection(direction string) string {
	if direction == types.DirectionShort {
		return types.DirectionShort
	}
	return types.DirectionLong
}
