package signals

import (
	"time"

	"go.uber.org/zap"
	"market-risk-sentry/pkg/types"
)

// maxReasons 综合信号保留的理由条数
const maxReasons = 5

var familyPrefix = map[string]string{
	FamilyMA:   "MA",
	FamilyMACD: "MACD",
	FamilyRSI:  "RSI",
	FamilyKDJ:  "KDJ",
}

// Generator 交易信号生成器
type Generator struct {
	now func() time.Time
}

// NewGenerator 创建信号生成器
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Votes 各指标族投票，顺序固定为 MA、MACD、RSI、KDJ
func (g *Generator) Votes(frame *types.IndicatorFrame) []types.SignalVote {
	if frame == nil || frame.Len() < 2 {
		return []types.SignalVote{
			missingVote(FamilyMA, "缺少MA数据"),
			missingVote(FamilyMACD, "缺少MACD数据"),
			missingVote(FamilyRSI, "缺少RSI数据"),
			missingVote(FamilyKDJ, "缺少KDJ数据"),
		}
	}
	return []types.SignalVote{MAVote(frame), MACDVote(frame), RSIVote(frame), KDJVote(frame)}
}

// Generate 生成综合交易信号
func (g *Generator) Generate(frame *types.IndicatorFrame) *types.CompositeSignal {
	composite := Combine(g.Votes(frame))
	composite.Timestamp = g.now().Format("2006-01-02 15:04:05")

	symbol := ""
	if frame != nil && frame.Series != nil {
		symbol = frame.Series.Symbol
	}
	zap.L().Debug("生成综合信号",
		zap.String("symbol", symbol),
		zap.String("signal", composite.Signal),
		zap.String("confidence", composite.Confidence),
		zap.Int("total_strength", composite.TotalStrength))

	return composite
}

// Combine 汇总投票：强度求和并统计买卖票数
func Combine(votes []types.SignalVote) *types.CompositeSignal {
	composite := &types.CompositeSignal{
		Individual: make(map[string]string, len(votes)),
		Votes:      votes,
		Reasons:    []string{},
	}

	for _, vote := range votes {
		composite.TotalStrength += vote.Strength
		switch vote.Signal {
		case types.SignalBuy:
			composite.BuySignals++
		case types.SignalSell:
			composite.SellSignals++
		}
		composite.Individual[vote.Family] = vote.Signal

		prefix := familyPrefix[vote.Family]
		for _, reason := range vote.Reasons {
			composite.Reasons = append(composite.Reasons, prefix+": "+reason)
		}
	}

	if len(composite.Reasons) > maxReasons {
		composite.Reasons = composite.Reasons[:maxReasons]
	}

	total := composite.TotalStrength
	switch {
	case composite.BuySignals >= 3 || total >= 5:
		composite.Signal, composite.Confidence = types.SignalStrongBuy, types.ConfidenceHigh
	case composite.BuySignals >= 2 || total >= 3:
		composite.Signal, composite.Confidence = types.SignalBuy, types.ConfidenceMedium
	case composite.SellSignals >= 3 || total <= -5:
		composite.Signal, composite.Confidence = types.SignalStrongSell, types.ConfidenceHigh
	case composite.SellSignals >= 2 || total <= -3:
		composite.Signal, composite.Confidence = types.SignalSell, types.ConfidenceMedium
	default:
		composite.Signal, composite.Confidence = types.SignalWatch, types.ConfidenceLow
	}

	return composite
}
