package types

// 单指标信号
const (
	SignalBuy     = "买入"
	SignalSell    = "卖出"
	SignalNeutral = "中性"
)

// 综合信号
const (
	SignalStrongBuy  = "强烈买入"
	SignalWatch      = "观望"
	SignalStrongSell = "强烈卖出"
)

// 信心度
const (
	ConfidenceHigh   = "高"
	ConfidenceMedium = "中"
	ConfidenceLow    = "低"
)

// SignalVote 单个指标族给出的投票
type SignalVote struct {
	Family   string             `json:"family"`   // MA/MACD/RSI/KDJ
	Signal   string             `json:"signal"`   // 买入/卖出/中性
	Strength int                `json:"strength"` // 强度，正数偏多
	Reasons  []string           `json:"reasons"`
	Values   map[string]float64 `json:"values,omitempty"`
}

// CompositeSignal 四个指标族汇总后的综合信号
type CompositeSignal struct {
	Signal        string            `json:"signal"`
	Confidence    string            `json:"confidence"`
	TotalStrength int               `json:"total_strength"`
	BuySignals    int               `json:"buy_signals"`
	SellSignals   int               `json:"sell_signals"`
	Reasons       []string          `json:"reasons"`
	Individual    map[string]string `json:"individual_signals"`
	Votes         []SignalVote      `json:"votes"`
	Timestamp     string            `json:"timestamp"`
}
