package indicators

import (
	"market-risk-sentry/pkg/types"
)

// ChannelCalculator 价格通道计算器（最近length根K线的最高/最低价）
type ChannelCalculator struct {
	length int
	offset int
}

// NewChannelCalculator 创建通道计算器，offset为排除的最新K线数
func NewChannelCalculator(length, offset int) *ChannelCalculator {
	return &ChannelCalculator{
		length: length,
		offset: offset,
	}
}

// Calculate 计算通道；K线不足length+offset时返回nil
func (cc *ChannelCalculator) Calculate(series *types.PriceSeries) *types.ChannelData {
	if cc.length <= 0 || series.Len() < cc.length+cc.offset {
		return nil
	}

	end := series.Len() - cc.offset
	start := end - cc.length

	highest, lowest := series.Bars[start].High, series.Bars[start].Low
	for _, bar := range series.Bars[start+1 : end] {
		if bar.High > highest {
			highest = bar.High
		}
		if bar.Low < lowest {
			lowest = bar.Low
		}
	}

	return &types.ChannelData{
		Upper:  highest,
		Lower:  lowest,
		Middle: (highest + lowest) / 2,
	}
}

// DetectConsolidation 通道宽度不超过中轨的maxWidthPct%视为盘整
func (cc *ChannelCalculator) DetectConsolidation(series *types.PriceSeries, maxWidthPct float64) bool {
	channel := cc.Calculate(series)
	if channel == nil {
		return false
	}
	return cc.Width(channel) <= maxWidthPct
}

// Position 价格在通道中的位置（0-1）
func (cc *ChannelCalculator) Position(price float64, channel *types.ChannelData) float64 {
	if channel == nil || channel.Upper == channel.Lower {
		return 0.5
	}

	position := (price - channel.Lower) / (channel.Upper - channel.Lower)
	if position < 0 {
		position = 0
	} else if position > 1 {
		position = 1
	}
	return position
}

// Width 通道宽度百分比
func (cc *ChannelCalculator) Width(channel *types.ChannelData) float64 {
	if channel == nil || channel.Middle == 0 {
		return 0
	}
	return ((channel.Upper - channel.Lower) / channel.Middle) * 100
}
