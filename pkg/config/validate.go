package config

import (
	"fmt"

	"market-risk-sentry/pkg/types"
)

// HardMaxPosition 单品种仓位硬上限，任何配置都不能突破
const HardMaxPosition = 0.30

// MaxKellyCap 凯利仓位上限
const MaxKellyCap = 0.25

// Validate 启动时校验配置，任何越界参数直接返回 *types.ConfigError
func Validate(c *types.Config) error {
	if err := ValidateRisk(c.Risk); err != nil {
		return err
	}
	if err := ValidatePosition(c.Position); err != nil {
		return err
	}
	if err := ValidateStopLoss(c.StopLoss); err != nil {
		return err
	}
	if err := ValidateAlert(c.Alert); err != nil {
		return err
	}
	if err := validateIndicators(c.Indicators); err != nil {
		return err
	}
	if err := validateAnalysis(c.Analysis); err != nil {
		return err
	}

	for asset, w := range c.Portfolio.TargetAllocation {
		if w < 0 {
			return configErr("portfolio.target_allocation."+asset, "权重不能为负数")
		}
	}
	for asset, q := range c.Portfolio.Holdings {
		if q < 0 {
			return configErr("portfolio.holdings."+asset, "持仓数量不能为负数")
		}
	}
	if c.Portfolio.RebalanceThreshold < 0 {
		return configErr("portfolio.rebalance_threshold", "不能为负数")
	}

	return nil
}

// ValidateRisk 校验风险度量参数
func ValidateRisk(r types.RiskConfig) error {
	if r.ConfidenceLevel <= 0 || r.ConfidenceLevel >= 1 {
		return configErr("risk.confidence_level", fmt.Sprintf("必须在(0,1)区间内，当前为%v", r.ConfidenceLevel))
	}
	if r.TradingDays <= 0 {
		return configErr("risk.trading_days", "必须大于0")
	}
	return nil
}

// ValidatePosition 校验仓位参数
func ValidatePosition(p types.PositionConfig) error {
	if p.MinPosition <= 0 {
		return configErr("position.min_position", "必须大于0")
	}
	if p.MaxPosition < p.MinPosition {
		return configErr("position.max_position", "不能小于min_position")
	}
	if p.MaxPosition > HardMaxPosition {
		return configErr("position.max_position", fmt.Sprintf("不能超过%.0f%%", HardMaxPosition*100))
	}
	if p.KellyCap <= 0 || p.KellyCap > MaxKellyCap {
		return configErr("position.kelly_cap", fmt.Sprintf("必须在(0,%.2f]区间内", MaxKellyCap))
	}
	if p.RiskPerTrade <= 0 || p.RiskPerTrade >= 1 {
		return configErr("position.risk_per_trade", "必须在(0,1)区间内")
	}
	if p.VolatilityTarget <= 0 {
		return configErr("position.volatility_target", "必须大于0")
	}
	return nil
}

// ValidateStopLoss 校验止损参数
func ValidateStopLoss(s types.StopLossConfig) error {
	if s.StopLossPct <= 0 || s.StopLossPct >= 1 {
		return configErr("stop_loss.stop_loss_pct", "必须在(0,1)区间内")
	}
	if s.TakeProfitPct < 0 || s.TakeProfitPct >= 1 {
		return configErr("stop_loss.take_profit_pct", "必须在[0,1)区间内")
	}
	if s.RiskRewardRatio <= 0 {
		return configErr("stop_loss.risk_reward_ratio", "必须大于0")
	}
	if s.ATRPeriod <= 0 || s.Lookback <= 0 {
		return configErr("stop_loss.atr_period", "窗口必须大于0")
	}
	if s.ATRStopMultiplier <= 0 || s.ATRProfitMultiplier <= 0 {
		return configErr("stop_loss.atr_stop_multiplier", "倍数必须大于0")
	}
	if s.Buffer < 0 || s.Buffer >= 1 {
		return configErr("stop_loss.buffer", "必须在[0,1)区间内")
	}
	switch s.Method {
	case "", "fixed", "atr", "support_resistance":
	default:
		return configErr("stop_loss.method", "仅支持 fixed / atr / support_resistance")
	}
	return nil
}

// ValidateAlert 校验警报参数
func ValidateAlert(a types.AlertConfig) error {
	if a.MinInterval < 0 {
		return configErr("alert.min_interval", "不能为负数")
	}
	if a.MaxPerHour <= 0 {
		return configErr("alert.max_per_hour", "必须大于0")
	}
	if a.MaxHistoryDays <= 0 {
		return configErr("alert.max_history_days", "必须大于0")
	}
	if a.MinLevelForEmail != "" && a.MinLevelForEmail.Rank() < 0 {
		return configErr("alert.min_level_for_email", "未知级别 "+string(a.MinLevelForEmail))
	}
	return nil
}

func validateIndicators(p types.IndicatorParams) error {
	for _, n := range append(append([]int{}, p.MAPeriods...), p.EMAPeriods...) {
		if n <= 0 {
			return configErr("indicators.ma_periods", "窗口必须大于0")
		}
	}
	windows := map[string]int{
		"indicators.macd_fast":    p.MACDFast,
		"indicators.macd_slow":    p.MACDSlow,
		"indicators.macd_signal":  p.MACDSignal,
		"indicators.rsi_period":   p.RSIPeriod,
		"indicators.kdj_period":   p.KDJPeriod,
		"indicators.kdj_smooth_k": p.KDJSmoothK,
		"indicators.kdj_smooth_d": p.KDJSmoothD,
		"indicators.boll_period":  p.BollPeriod,
		"indicators.atr_period":   p.ATRPeriod,
	}
	for field, n := range windows {
		if n <= 0 {
			return configErr(field, "窗口必须大于0")
		}
	}
	if p.MACDFast >= p.MACDSlow {
		return configErr("indicators.macd_fast", "快线周期必须小于慢线周期")
	}
	if p.BollStdDev <= 0 {
		return configErr("indicators.boll_std_dev", "必须大于0")
	}
	return nil
}

func validateAnalysis(a types.AnalysisConfig) error {
	if a.TrendPeriod < 2 {
		return configErr("analysis.trend_period", "至少为2")
	}
	if a.SRWindow <= 0 || a.SRLevels <= 0 || a.SRLookback <= 0 {
		return configErr("analysis.sr_window", "支撑阻力参数必须大于0")
	}
	if a.ADXPeriod <= 0 || a.DivergenceWindow <= 0 {
		return configErr("analysis.adx_period", "窗口必须大于0")
	}
	return nil
}

func configErr(field, reason string) error {
	return &types.ConfigError{Field: field, Reason: reason}
}
