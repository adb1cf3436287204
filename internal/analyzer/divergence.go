package analyzer

import (
	"market-risk-sentry/pkg/types"
)

// divergenceBars 背离检测回看的行数
const divergenceBars = 50

type extreme struct {
	index int
	price float64
	rsi   float64
}

// DetectDivergence 比较最近两个价格高点/低点与同位置RSI，判断顶背离或底背离
func DetectDivergence(frame *types.IndicatorFrame, window int) DivergenceInfo {
	rsiColumn := frame.Column(types.ColRSI)
	if rsiColumn == nil {
		return DivergenceInfo{Type: DivergenceNone, Description: "需要RSI数据"}
	}
	if window <= 0 {
		window = 5
	}

	closes := frame.Series.Closes()
	start := len(closes) - divergenceBars
	if start < 0 {
		start = 0
	}
	closes = closes[start:]
	rsi := rsiColumn[start:]

	var highs, lows []extreme
	for i := window; i < len(closes)-window; i++ {
		span := closes[i-window : i+window+1]
		point := extreme{index: i, price: closes[i], rsi: rsi[i]}
		if closes[i] == maxOf(span) {
			highs = append(highs, point)
		}
		if closes[i] == minOf(span) {
			lows = append(lows, point)
		}
	}

	info := DivergenceInfo{Type: DivergenceNone, Description: "未检测到明显背离"}

	if len(highs) >= 2 {
		prev, last := highs[len(highs)-2], highs[len(highs)-1]
		if last.price > prev.price && last.rsi < prev.rsi {
			info = DivergenceInfo{Type: DivergenceBearish, Description: "顶背离：价格创新高但RSI走弱，可能见顶"}
		}
	}

	// 底背离后判定，同时出现时以底背离为准
	if len(lows) >= 2 {
		prev, last := lows[len(lows)-2], lows[len(lows)-1]
		if last.price < prev.price && last.rsi > prev.rsi {
			info = DivergenceInfo{Type: DivergenceBullish, Description: "底背离：价格创新低但RSI走强，可能见底"}
		}
	}

	return info
}
