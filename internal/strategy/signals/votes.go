package signals

import (
	"fmt"
	"math"

	"market-risk-sentry/pkg/types"
)

// 指标族
const (
	FamilyMA   = "ma"
	FamilyMACD = "macd"
	FamilyRSI  = "rsi"
	FamilyKDJ  = "kdj"
)

// missingVote 数据不足时的中性票
func missingVote(family, reason string) types.SignalVote {
	return types.SignalVote{
		Family:   family,
		Signal:   types.SignalNeutral,
		Strength: 0,
		Reasons:  []string{reason},
	}
}

// settle 没有交叉信号时按强度定方向
func settle(signal string, strength float64) string {
	if signal != types.SignalNeutral {
		return signal
	}
	switch {
	case strength >= 2:
		return types.SignalBuy
	case strength <= -2:
		return types.SignalSell
	}
	return signal
}

// MAVote 均线信号：MA5/MA10金叉死叉±2，价格相对MA20±1，三线排列±1
func MAVote(frame *types.IndicatorFrame) types.SignalVote {
	ma5, ok1 := frame.Latest(types.ColMA5)
	ma10, ok2 := frame.Latest(types.ColMA10)
	ma20, ok3 := frame.Latest(types.ColMA20)
	prev5, ok4 := frame.Previous(types.ColMA5)
	prev10, ok5 := frame.Previous(types.ColMA10)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return missingVote(FamilyMA, "缺少MA数据")
	}

	signal := types.SignalNeutral
	strength := 0.0
	var reasons []string

	if prev5 <= prev10 && ma5 > ma10 {
		signal = types.SignalBuy
		strength += 2
		reasons = append(reasons, "MA5上穿MA10形成金叉")
	} else if prev5 >= prev10 && ma5 < ma10 {
		signal = types.SignalSell
		strength -= 2
		reasons = append(reasons, "MA5下穿MA10形成死叉")
	}

	price := frame.Close(frame.Len() - 1)
	if price > ma20 {
		strength++
		reasons = append(reasons, "价格在MA20上方")
	} else {
		strength--
		reasons = append(reasons, "价格在MA20下方")
	}

	if ma5 > ma10 && ma10 > ma20 {
		strength++
		reasons = append(reasons, "多头排列")
	} else if ma5 < ma10 && ma10 < ma20 {
		strength--
		reasons = append(reasons, "空头排列")
	}

	return types.SignalVote{
		Family:   FamilyMA,
		Signal:   settle(signal, strength),
		Strength: int(strength),
		Reasons:  reasons,
		Values:   map[string]float64{"ma5": ma5, "ma10": ma10, "ma20": ma20},
	}
}

// MACDVote MACD信号：交叉±2，柱状图翻转±1，零轴位置±0.5，强度向零取整
func MACDVote(frame *types.IndicatorFrame) types.SignalVote {
	macd, ok1 := frame.Latest(types.ColMACD)
	sig, ok2 := frame.Latest(types.ColMACDSignal)
	hist, ok3 := frame.Latest(types.ColMACDHist)
	prevMACD, ok4 := frame.Previous(types.ColMACD)
	prevSig, ok5 := frame.Previous(types.ColMACDSignal)
	prevHist, ok6 := frame.Previous(types.ColMACDHist)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return missingVote(FamilyMACD, "缺少MACD数据")
	}

	signal := types.SignalNeutral
	strength := 0.0
	var reasons []string

	if prevMACD <= prevSig && macd > sig {
		signal = types.SignalBuy
		strength += 2
		reasons = append(reasons, "MACD金叉")
	} else if prevMACD >= prevSig && macd < sig {
		signal = types.SignalSell
		strength -= 2
		reasons = append(reasons, "MACD死叉")
	}

	if hist > 0 && prevHist <= 0 {
		strength++
		reasons = append(reasons, "MACD柱状图转正")
	} else if hist < 0 && prevHist >= 0 {
		strength--
		reasons = append(reasons, "MACD柱状图转负")
	}

	if math.Abs(hist) > math.Abs(prevHist) {
		if hist > 0 {
			reasons = append(reasons, "多头动能增强")
		} else {
			reasons = append(reasons, "空头动能增强")
		}
	}

	if macd > 0 {
		strength += 0.5
		reasons = append(reasons, "MACD在零轴上方")
	} else {
		strength -= 0.5
		reasons = append(reasons, "MACD在零轴下方")
	}

	return types.SignalVote{
		Family:   FamilyMACD,
		Signal:   settle(signal, strength),
		Strength: int(strength),
		Reasons:  reasons,
		Values:   map[string]float64{"macd": macd, "signal": sig, "hist": hist},
	}
}

// RSIVote RSI超买超卖信号
func RSIVote(frame *types.IndicatorFrame) types.SignalVote {
	rsi, ok := frame.Latest(types.ColRSI)
	if !ok {
		return missingVote(FamilyRSI, "缺少RSI数据")
	}

	vote := types.SignalVote{
		Family: FamilyRSI,
		Signal: types.SignalNeutral,
		Values: map[string]float64{"rsi": rsi},
	}

	switch {
	case rsi < 30:
		vote.Signal, vote.Strength = types.SignalBuy, 2
		vote.Reasons = []string{fmt.Sprintf("RSI=%.1f，超卖", rsi)}
	case rsi < 40:
		vote.Strength = 1
		vote.Reasons = []string{fmt.Sprintf("RSI=%.1f，接近超卖", rsi)}
	case rsi > 70:
		vote.Signal, vote.Strength = types.SignalSell, -2
		vote.Reasons = []string{fmt.Sprintf("RSI=%.1f，超买", rsi)}
	case rsi > 60:
		vote.Strength = -1
		vote.Reasons = []string{fmt.Sprintf("RSI=%.1f，接近超买", rsi)}
	default:
		vote.Reasons = []string{fmt.Sprintf("RSI=%.1f，中性区域", rsi)}
	}
	return vote
}

// KDJVote KDJ信号：K/D交叉±2，J<20 +1，J>80 -1
func KDJVote(frame *types.IndicatorFrame) types.SignalVote {
	k, ok1 := frame.Latest(types.ColK)
	d, ok2 := frame.Latest(types.ColD)
	j, ok3 := frame.Latest(types.ColJ)
	prevK, ok4 := frame.Previous(types.ColK)
	prevD, ok5 := frame.Previous(types.ColD)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return missingVote(FamilyKDJ, "缺少KDJ数据")
	}

	signal := types.SignalNeutral
	strength := 0.0
	var reasons []string

	if prevK <= prevD && k > d {
		signal = types.SignalBuy
		strength += 2
		reasons = append(reasons, "KDJ金叉")
	} else if prevK >= prevD && k < d {
		signal = types.SignalSell
		strength -= 2
		reasons = append(reasons, "KDJ死叉")
	}

	if j < 20 {
		strength++
		reasons = append(reasons, fmt.Sprintf("J值=%.1f，超卖", j))
	} else if j > 80 {
		strength--
		reasons = append(reasons, fmt.Sprintf("J值=%.1f，超买", j))
	}

	return types.SignalVote{
		Family:   FamilyKDJ,
		Signal:   settle(signal, strength),
		Strength: int(strength),
		Reasons:  reasons,
		Values:   map[string]float64{"k": k, "d": d, "j": j},
	}
}
