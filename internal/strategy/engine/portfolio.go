package engine

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"market-risk-sentry/internal/risk"
	"market-risk-sentry/pkg/types"
)

// PortfolioReport 组合层面的检查结果
type PortfolioReport struct {
	Holdings          map[string]risk.Holding `json:"holdings"`
	Rebalance         *risk.RebalancePlan     `json:"rebalance"`
	Alerts            []types.RiskAlert       `json:"alerts"`
	Attribution       *risk.AttributionResult `json:"attribution,omitempty"`
	MinVarianceWeight map[string]float64      `json:"min_variance_weights,omitempty"`
}

type portfolioChecker struct {
	holdings    map[string]float64
	benchmark   string
	quote       string
	rebalancer  *risk.Rebalancer
	monitor     *risk.RiskMonitor
	attribution *risk.Attribution
}

func newPortfolioChecker(cfg *types.Config) *portfolioChecker {
	holdings := make(map[string]float64, len(cfg.Portfolio.Holdings))
	for asset, q := range cfg.Portfolio.Holdings {
		holdings[strings.ToUpper(asset)] = q
	}
	return &portfolioChecker{
		holdings:    holdings,
		benchmark:   cfg.Portfolio.Benchmark,
		quote:       strings.ToUpper(cfg.Portfolio.QuoteCurrency),
		rebalancer:  risk.NewRebalancer(cfg.Portfolio),
		monitor:     risk.NewRiskMonitor(cfg.Monitor),
		attribution: risk.NewAttribution(cfg.Risk),
	}
}

// BaseAsset 交易对的基础币，BTC-USDT -> BTC
func BaseAsset(symbol string) string {
	if i := strings.Index(symbol, "-"); i > 0 {
		return strings.ToUpper(symbol[:i])
	}
	return strings.ToUpper(symbol)
}

func (pc *portfolioChecker) check(reports map[string]*Report) *PortfolioReport {
	if len(pc.holdings) == 0 {
		return nil
	}

	prices := make(map[string]float64)
	returns := make(map[string][]float64)
	for symbol, report := range reports {
		if pc.quote != "" && !strings.HasSuffix(strings.ToUpper(symbol), "-"+pc.quote) {
			continue
		}
		asset := BaseAsset(symbol)
		prices[asset] = report.Price
		returns[asset] = report.Returns
	}

	holdings := make(map[string]risk.Holding, len(pc.holdings))
	for asset, q := range pc.holdings {
		price, ok := prices[asset]
		if !ok {
			zap.L().Warn("持仓缺少行情，跳过", zap.String("asset", asset))
			continue
		}
		holdings[asset] = risk.Holding{Quantity: q, Value: q * price}
	}

	result := &PortfolioReport{
		Holdings:  holdings,
		Rebalance: pc.rebalancer.Check(holdings, prices),
		Alerts:    pc.monitor.CheckPortfolio(holdings),
	}

	assets := make([]string, 0, len(holdings))
	for asset := range holdings {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	series := alignedReturns(assets, returns)
	if len(assets) > 1 && series != nil {
		result.MinVarianceWeight = risk.MinVarianceWeights(assets, series)
	}

	if bench, ok := reports[pc.benchmark]; ok && series != nil {
		weights := result.Rebalance.CurrentAllocation
		portfolio := weightedReturns(assets, weights, series)
		attribution, err := pc.attribution.Analyze(portfolio, bench.Returns, pc.segments(assets, weights, series), nil)
		if err != nil {
			zap.L().Debug("组合归因跳过", zap.Error(err))
		} else {
			result.Attribution = attribution
		}
	}

	return result
}

// segments 以目标配置为基准权重的Brinson分组；未配置目标时返回nil
func (pc *portfolioChecker) segments(assets []string, weights map[string]float64, series [][]float64) []risk.Segment {
	target := pc.rebalancer.Target()
	if len(target) == 0 {
		return nil
	}

	segments := make([]risk.Segment, 0, len(assets))
	for i, asset := range assets {
		r := risk.TotalReturn(series[i])
		segments = append(segments, risk.Segment{
			Name:            asset,
			PortfolioWeight: weights[asset],
			BenchmarkWeight: target[asset],
			PortfolioReturn: r,
			BenchmarkReturn: r,
		})
	}
	return segments
}

// alignedReturns 按末端对齐各资产收益率，任一资产样本少于2时返回nil
func alignedReturns(assets []string, returns map[string][]float64) [][]float64 {
	if len(assets) == 0 {
		return nil
	}
	n := -1
	for _, asset := range assets {
		if l := len(returns[asset]); n < 0 || l < n {
			n = l
		}
	}
	if n < 2 {
		return nil
	}

	series := make([][]float64, len(assets))
	for i, asset := range assets {
		r := returns[asset]
		series[i] = r[len(r)-n:]
	}
	return series
}

func weightedReturns(assets []string, weights map[string]float64, series [][]float64) []float64 {
	out := make([]float64, len(series[0]))
	for i, asset := range assets {
		w := weights[asset]
		for t, r := range series[i] {
			out[t] += w * r
		}
	}
	return out
}
