package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"market-risk-sentry/pkg/types"
)

// portfolioSymbol 组合级警报使用的标的名
const portfolioSymbol = "Portfolio"

// Holding 单个资产持仓
type Holding struct {
	Quantity float64 `json:"quantity"`
	Value    float64 `json:"value"`
}

// AlertTrigger 警报入口，由警报系统实现
type AlertTrigger interface {
	Trigger(level types.AlertLevel, category, title, message string, data map[string]interface{}, channels []types.AlertChannel) (*types.Alert, bool)
}

// RiskMonitor 风险监控器
type RiskMonitor struct {
	config types.MonitorConfig
}

// NewRiskMonitor 创建风险监控器
func NewRiskMonitor(config types.MonitorConfig) *RiskMonitor {
	return &RiskMonitor{config: config}
}

// CheckAsset 检查单个资产的风险指标与当前仓位
func (m *RiskMonitor) CheckAsset(metrics *types.RiskMetrics, currentPosition float64) []types.RiskAlert {
	if metrics == nil {
		return nil
	}

	var alerts []types.RiskAlert
	alerts = append(alerts, m.checkDrawdown(metrics)...)
	alerts = append(alerts, m.checkVolatility(metrics)...)
	alerts = append(alerts, m.checkVaR(metrics)...)
	alerts = append(alerts, m.checkSharpe(metrics)...)
	alerts = append(alerts, m.checkPosition(metrics.Symbol, currentPosition)...)
	alerts = append(alerts, m.checkRiskLevel(metrics)...)

	zap.L().Info("风险监控",
		zap.String("symbol", metrics.Symbol),
		zap.String("risk_level", metrics.RiskLevel),
		zap.Int("alerts", len(alerts)))
	return alerts
}

// CheckPortfolio 检查组合集中度与多样性
func (m *RiskMonitor) CheckPortfolio(holdings map[string]Holding) []types.RiskAlert {
	if len(holdings) == 0 {
		return nil
	}

	total := 0.0
	for _, h := range holdings {
		total += h.Value
	}
	if total == 0 {
		return nil
	}

	symbols := make([]string, 0, len(holdings))
	for symbol := range holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var alerts []types.RiskAlert
	for _, symbol := range symbols {
		share := holdings[symbol].Value / total
		if share > m.config.MaxPosition {
			alerts = append(alerts, types.RiskAlert{
				Level:           types.AlertWarning,
				Symbol:          symbol,
				Title:           "持仓集中度过高",
				Message:         fmt.Sprintf("%s仓位占比%.1f%%，超过阈值%.1f%%", symbol, share*100, m.config.MaxPosition*100),
				MetricName:      "position_concentration",
				MetricValue:     share,
				Threshold:       m.config.MaxPosition,
				Severity:        3,
				SuggestedAction: "建议分散投资，降低单一资产风险敞口",
			})
		}
	}

	if len(holdings) < m.config.MinDiversity {
		alerts = append(alerts, types.RiskAlert{
			Level:           types.AlertWarning,
			Symbol:          portfolioSymbol,
			Title:           "投资组合过于集中",
			Message:         fmt.Sprintf("仅持有%d个资产，建议增加多元化", len(holdings)),
			MetricName:      "portfolio_diversity",
			MetricValue:     float64(len(holdings)),
			Threshold:       float64(m.config.MinDiversity),
			Severity:        2,
			SuggestedAction: "增加持仓品种，提高投资组合多样性",
		})
	}

	zap.L().Info("投资组合监控", zap.Int("assets", len(holdings)), zap.Int("alerts", len(alerts)))
	return alerts
}

// Dispatch 将风险警报转交警报系统，返回实际发出的数量
func (m *RiskMonitor) Dispatch(trigger AlertTrigger, alerts []types.RiskAlert) int {
	if trigger == nil {
		return 0
	}
	sent := 0
	for _, a := range alerts {
		data := map[string]interface{}{
			"symbol":           a.Symbol,
			"metric_name":      a.MetricName,
			"metric_value":     a.MetricValue,
			"threshold":        a.Threshold,
			"severity":         a.Severity,
			"suggested_action": a.SuggestedAction,
		}
		if _, ok := trigger.Trigger(a.Level, Category(a.Symbol, a.MetricName), a.Title, a.Message, data, nil); ok {
			sent++
		}
	}
	return sent
}

// Category 风险警报类别 risk:<symbol>:<metric>
func Category(symbol, metric string) string {
	return fmt.Sprintf("risk:%s:%s", symbol, metric)
}

func (m *RiskMonitor) checkDrawdown(metrics *types.RiskMetrics) []types.RiskAlert {
	drawdown := math.Abs(metrics.MaxDrawdown)
	if drawdown <= m.config.MaxDrawdown {
		return nil
	}
	severity, level := 3, types.AlertWarning
	if drawdown > 0.3 {
		severity, level = 4, types.AlertCritical
	}
	return []types.RiskAlert{{
		Level:           level,
		Symbol:          metrics.Symbol,
		Title:           "最大回撤超标",
		Message:         fmt.Sprintf("最大回撤%.1f%%，超过阈值%.1f%%", drawdown*100, m.config.MaxDrawdown*100),
		MetricName:      "max_drawdown",
		MetricValue:     metrics.MaxDrawdown,
		Threshold:       m.config.MaxDrawdown,
		Severity:        severity,
		SuggestedAction: "考虑减仓或设置更严格的止损",
	}}
}

func (m *RiskMonitor) checkVolatility(metrics *types.RiskMetrics) []types.RiskAlert {
	if metrics.Volatility <= m.config.Volatility {
		return nil
	}
	severity, level := 3, types.AlertWarning
	if metrics.Volatility > 0.6 {
		severity, level = 4, types.AlertCritical
	}
	return []types.RiskAlert{{
		Level:           level,
		Symbol:          metrics.Symbol,
		Title:           "波动率过高",
		Message:         fmt.Sprintf("年化波动率%.1f%%，超过阈值%.1f%%", metrics.Volatility*100, m.config.Volatility*100),
		MetricName:      "volatility",
		MetricValue:     metrics.Volatility,
		Threshold:       m.config.Volatility,
		Severity:        severity,
		SuggestedAction: "高波动环境，建议降低仓位或使用期权对冲",
	}}
}

// checkVaR VaR为负数，按绝对值比较
func (m *RiskMonitor) checkVaR(metrics *types.RiskMetrics) []types.RiskAlert {
	tailLoss := math.Abs(metrics.VaR95)
	if tailLoss <= m.config.VaR {
		return nil
	}
	return []types.RiskAlert{{
		Level:           types.AlertWarning,
		Symbol:          metrics.Symbol,
		Title:           "VaR值偏高",
		Message:         fmt.Sprintf("VaR为%.1f%%，超过阈值%.1f%%", tailLoss*100, m.config.VaR*100),
		MetricName:      "var_95",
		MetricValue:     metrics.VaR95,
		Threshold:       m.config.VaR,
		Severity:        2,
		SuggestedAction: "潜在日损失较大，注意风险控制",
	}}
}

func (m *RiskMonitor) checkSharpe(metrics *types.RiskMetrics) []types.RiskAlert {
	if metrics.SharpeRatio >= m.config.MinSharpe {
		return nil
	}
	severity, level := 2, types.AlertInfo
	if metrics.SharpeRatio < 0 {
		severity, level = 3, types.AlertWarning
	}
	return []types.RiskAlert{{
		Level:           level,
		Symbol:          metrics.Symbol,
		Title:           "夏普比率偏低",
		Message:         fmt.Sprintf("夏普比率%.2f，低于阈值%.2f", metrics.SharpeRatio, m.config.MinSharpe),
		MetricName:      "sharpe_ratio",
		MetricValue:     metrics.SharpeRatio,
		Threshold:       m.config.MinSharpe,
		Severity:        severity,
		SuggestedAction: "风险调整后收益不佳，考虑调整策略",
	}}
}

func (m *RiskMonitor) checkPosition(symbol string, position float64) []types.RiskAlert {
	if position <= m.config.MaxPosition {
		return nil
	}
	return []types.RiskAlert{{
		Level:           types.AlertWarning,
		Symbol:          symbol,
		Title:           "仓位过重",
		Message:         fmt.Sprintf("当前仓位%.1f%%，超过建议上限%.1f%%", position*100, m.config.MaxPosition*100),
		MetricName:      "position",
		MetricValue:     position,
		Threshold:       m.config.MaxPosition,
		Severity:        3,
		SuggestedAction: "建议减仓至合理水平",
	}}
}

func (m *RiskMonitor) checkRiskLevel(metrics *types.RiskMetrics) []types.RiskAlert {
	if metrics.RiskLevel != types.RiskHigh && metrics.RiskLevel != types.RiskExtreme {
		return nil
	}
	severity := 4
	if metrics.RiskLevel == types.RiskExtreme {
		severity = 5
	}
	return []types.RiskAlert{{
		Level:           types.AlertCritical,
		Symbol:          metrics.Symbol,
		Title:           "风险等级: " + strings.ToUpper(metrics.RiskLevel),
		Message:         fmt.Sprintf("综合风险评分%.0f/100，风险等级%s", metrics.RiskScore, metrics.RiskLevel),
		MetricName:      "risk_score",
		MetricValue:     metrics.RiskScore,
		Threshold:       50,
		Severity:        severity,
		SuggestedAction: "高风险环境，建议谨慎操作或空仓观望",
	}}
}
