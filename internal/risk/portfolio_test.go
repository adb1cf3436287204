package risk

import (
	"testing"

	"market-risk-sentry/pkg/types"
)

func testRebalancer() *Rebalancer {
	return NewRebalancer(types.PortfolioConfig{
		TargetAllocation:   map[string]float64{"btc": 0.5, "eth": 0.5},
		RebalanceThreshold: 0.05,
		MinTradeAmount:     100,
	})
}

func TestRebalancerNeedsRebalance(t *testing.T) {
	plan := testRebalancer().Check(
		map[string]Holding{"BTC": {Quantity: 1}, "ETH": {Quantity: 3}},
		map[string]float64{"BTC": 700, "ETH": 100},
	)

	if plan.Action != ActionRebalance {
		t.Fatalf("Action = %s", plan.Action)
	}
	if !approx(plan.TotalValue, 1000, 1e-9) || !approx(plan.MaxDeviation, 0.2, 1e-12) {
		t.Errorf("TotalValue=%v MaxDeviation=%v", plan.TotalValue, plan.MaxDeviation)
	}
	if !approx(plan.Confidence, 0.7, 1e-12) {
		t.Errorf("Confidence = %v", plan.Confidence)
	}
	if !approx(plan.Concentration, 0.58, 1e-12) || !approx(plan.Diversification, 0.42, 1e-12) {
		t.Errorf("HHI=%v 多样化=%v", plan.Concentration, plan.Diversification)
	}

	if len(plan.Trades) != 2 {
		t.Fatalf("Trades = %+v", plan.Trades)
	}
	btc, eth := plan.Trades[0], plan.Trades[1]
	if btc.Asset != "BTC" || btc.Action != TradeSell || !approx(btc.Value, 200, 1e-9) || !approx(btc.Quantity, 200.0/700, 1e-9) {
		t.Errorf("BTC交易 = %+v", btc)
	}
	if eth.Asset != "ETH" || eth.Action != TradeBuy || !approx(eth.Quantity, 2, 1e-9) {
		t.Errorf("ETH交易 = %+v", eth)
	}
	if TradeInstructions(plan.Trades) == "" {
		t.Error("交易说明为空")
	}
}

func TestRebalancerWithinThreshold(t *testing.T) {
	plan := testRebalancer().Check(
		map[string]Holding{"BTC": {Quantity: 1}, "ETH": {Quantity: 5.2}},
		map[string]float64{"BTC": 480, "ETH": 100},
	)
	if plan.Action != ActionHold || len(plan.Trades) != 0 || plan.Confidence != 0 {
		t.Errorf("偏离2%%不应再平衡: %+v", plan)
	}
}

func TestRebalancerSkipsSmallTrades(t *testing.T) {
	r := NewRebalancer(types.PortfolioConfig{
		TargetAllocation:   map[string]float64{"BTC": 0.5, "ETH": 0.5},
		RebalanceThreshold: 0.05,
		MinTradeAmount:     100,
	})
	plan := r.Check(
		map[string]Holding{"BTC": {Quantity: 1}, "ETH": {Quantity: 1}},
		map[string]float64{"BTC": 70, "ETH": 30},
	)
	if plan.Action != ActionRebalance || len(plan.Trades) != 0 {
		t.Errorf("低于最小交易金额的调整应被忽略: %+v", plan)
	}
}

func TestRebalancerMissingData(t *testing.T) {
	plan := testRebalancer().Check(nil, map[string]float64{"BTC": 1})
	if plan.Action != ActionHold || plan.Reason != "缺少投资组合或价格数据" {
		t.Errorf("plan = %+v", plan)
	}
}

func TestRebalancerNormalizesTarget(t *testing.T) {
	r := NewRebalancer(types.PortfolioConfig{TargetAllocation: map[string]float64{"BTC": 2, "ETH": 2}})
	plan := r.Check(
		map[string]Holding{"BTC": {Quantity: 1}, "ETH": {Quantity: 1}},
		map[string]float64{"BTC": 100, "ETH": 100},
	)
	if !approx(plan.TargetAllocation["BTC"], 0.5, 1e-12) || plan.MaxDeviation > 1e-12 {
		t.Errorf("plan = %+v", plan)
	}
}

func TestMinVarianceWeights(t *testing.T) {
	x := []float64{1, -1, 1, -1}
	y := []float64{1, 1, -1, -1}
	a := make([]float64, 4)
	b := make([]float64, 4)
	for i := range x {
		a[i] = 0.01 * x[i]
		b[i] = 0.02 * y[i]
	}

	weights := MinVarianceWeights([]string{"A", "B"}, [][]float64{a, b})
	if !approx(weights["A"], 0.8, 1e-9) || !approx(weights["B"], 0.2, 1e-9) {
		t.Errorf("weights = %v, want A=0.8 B=0.2", weights)
	}

	doubled := make([]float64, 4)
	for i := range a {
		doubled[i] = 2 * a[i]
	}
	equal := MinVarianceWeights([]string{"A", "B"}, [][]float64{a, doubled})
	if !approx(equal["A"], 0.5, 1e-12) || !approx(equal["B"], 0.5, 1e-12) {
		t.Errorf("奇异协方差应返回等权重, got %v", equal)
	}
}
