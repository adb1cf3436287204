package types

// 风险等级
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskExtreme = "extreme"
)

// 仓位风险等级
const (
	PositionRiskVeryLow = "very_low"
	PositionRiskLow     = "low"
	PositionRiskMedium  = "medium"
	PositionRiskHigh    = "high"
)

// 方向
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// RiskMetrics 基于收益率序列的风险指标快照
type RiskMetrics struct {
	Symbol             string  `json:"symbol"`
	Timestamp          string  `json:"timestamp"`
	SampleSize         int     `json:"sample_size"`
	TotalReturn        float64 `json:"total_return"`
	AnnualizedReturn   float64 `json:"annualized_return"`
	Volatility         float64 `json:"volatility"`
	DownsideVolatility float64 `json:"downside_volatility"`
	MaxDrawdown        float64 `json:"max_drawdown"` // <= 0
	SharpeRatio        float64 `json:"sharpe_ratio"`
	SortinoRatio       float64 `json:"sortino_ratio"`
	CalmarRatio        float64 `json:"calmar_ratio"`
	VaR95              float64 `json:"var_95"`
	CVaR95             float64 `json:"cvar_95"`
	WinRate            float64 `json:"win_rate"`
	ProfitLossRatio    float64 `json:"profit_loss_ratio"`
	RiskScore          float64 `json:"risk_score"` // 0-100
	RiskLevel          string  `json:"risk_level"`
}

// PositionRecommendation 仓位建议，Min <= Recommended <= Max
type PositionRecommendation struct {
	Symbol      string                 `json:"symbol"`
	Recommended float64                `json:"recommended_position"`
	Min         float64                `json:"min_position"`
	Max         float64                `json:"max_position"`
	Method      string                 `json:"method"`
	Confidence  float64                `json:"confidence"`
	RiskLevel   string                 `json:"risk_level"`
	Reason      string                 `json:"reason"`
	Methods     []string               `json:"methods,omitempty"` // 综合法中参与计算的子方法
	Details     map[string]interface{} `json:"details,omitempty"`
}

// StopLossTarget 止损止盈目标
// long: StopLossPrice < CurrentPrice < TakeProfitPrice；short反之
type StopLossTarget struct {
	Symbol          string   `json:"symbol"`
	Direction       string   `json:"direction"`
	CurrentPrice    float64  `json:"current_price"`
	StopLossPrice   float64  `json:"stop_loss_price"`
	TakeProfitPrice float64  `json:"take_profit_price"`
	StopLossPct     float64  `json:"stop_loss_pct"`
	TakeProfitPct   float64  `json:"take_profit_pct"`
	Method          string   `json:"method"`
	ATRValue        *float64 `json:"atr_value,omitempty"`
	Reason          string   `json:"reason"`
}

// Valid 检查止损止盈价格方向是否正确
func (t *StopLossTarget) Valid() bool {
	if t.Direction == DirectionShort {
		return t.TakeProfitPrice < t.CurrentPrice && t.CurrentPrice < t.StopLossPrice
	}
	return t.StopLossPrice < t.CurrentPrice && t.CurrentPrice < t.TakeProfitPrice
}

// RiskAlert 风险监控发现的单条超限记录
type RiskAlert struct {
	Level           AlertLevel `json:"level"`
	Symbol          string     `json:"symbol"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	MetricName      string     `json:"metric_name"`
	MetricValue     float64    `json:"metric_value"`
	Threshold       float64    `json:"threshold"`
	Severity        int        `json:"severity"` // 1-5
	SuggestedAction string     `json:"suggested_action"`
}
