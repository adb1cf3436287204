package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"market-risk-sentry/pkg/types"
)

// 再平衡动作
const (
	ActionRebalance = "rebalance"
	ActionHold      = "hold"
	TradeBuy        = "buy"
	TradeSell       = "sell"
)

// Trade 单个资产的再平衡交易
type Trade struct {
	Asset        string  `json:"asset"`
	Action       string  `json:"action"`
	Quantity     float64 `json:"quantity"`
	Value        float64 `json:"value"`
	CurrentRatio float64 `json:"current_ratio"`
	TargetRatio  float64 `json:"target_ratio"`
}

// RebalancePlan 再平衡检查结果
type RebalancePlan struct {
	Action            string             `json:"action"`
	Confidence        float64            `json:"confidence"`
	Reason            string             `json:"reason"`
	TotalValue        float64            `json:"total_value"`
	CurrentAllocation map[string]float64 `json:"current_allocation"`
	TargetAllocation  map[string]float64 `json:"target_allocation"`
	Deviations        map[string]float64 `json:"deviations"`
	MaxDeviation      float64            `json:"max_deviation"`
	Trades            []Trade            `json:"trades"`
	Concentration     float64            `json:"concentration"`   // 赫芬达尔指数
	Diversification   float64            `json:"diversification"` // 1 - HHI
}

// Rebalancer 组合再平衡检查
type Rebalancer struct {
	target    map[string]decimal.Decimal
	threshold float64
	minTrade  decimal.Decimal
}

// NewRebalancer 创建再平衡检查器，目标权重归一化，资产名统一为大写
func NewRebalancer(config types.PortfolioConfig) *Rebalancer {
	target := make(map[string]decimal.Decimal, len(config.TargetAllocation))
	sum := decimal.Zero
	for asset, w := range config.TargetAllocation {
		d := decimal.NewFromFloat(w)
		target[strings.ToUpper(asset)] = d
		sum = sum.Add(d)
	}
	if sum.IsPositive() && !sum.Equal(decimal.NewFromInt(1)) {
		zap.L().Warn("目标配置权重和不为1，已归一化", zap.String("sum", sum.String()))
		for asset, w := range target {
			target[asset] = w.Div(sum)
		}
	}
	return &Rebalancer{
		target:    target,
		threshold: config.RebalanceThreshold,
		minTrade:  decimal.NewFromFloat(config.MinTradeAmount),
	}
}

// Target 归一化后的目标配置
func (r *Rebalancer) Target() map[string]float64 {
	target := make(map[string]float64, len(r.target))
	for asset, w := range r.target {
		target[asset], _ = w.Float64()
	}
	return target
}

// Check 基于持仓数量与现价计算当前配置、偏离度与再平衡交易
func (r *Rebalancer) Check(holdings map[string]Holding, prices map[string]float64) *RebalancePlan {
	plan := &RebalancePlan{
		Action:            ActionHold,
		CurrentAllocation: map[string]float64{},
		TargetAllocation:  r.Target(),
		Deviations:        map[string]float64{},
	}

	upperPrices := make(map[string]decimal.Decimal, len(prices))
	for asset, p := range prices {
		upperPrices[strings.ToUpper(asset)] = decimal.NewFromFloat(p)
	}

	values := map[string]decimal.Decimal{}
	total := decimal.Zero
	for asset, h := range holdings {
		asset = strings.ToUpper(asset)
		price, ok := upperPrices[asset]
		if !ok {
			continue
		}
		v := decimal.NewFromFloat(h.Quantity).Mul(price)
		values[asset] = values[asset].Add(v)
		total = total.Add(v)
	}
	plan.TotalValue, _ = total.Float64()

	if len(holdings) == 0 || len(prices) == 0 || !total.IsPositive() {
		plan.Reason = "缺少投资组合或价格数据"
		return plan
	}

	current := make(map[string]decimal.Decimal, len(values))
	hhi := decimal.Zero
	for asset, v := range values {
		ratio := v.Div(total)
		current[asset] = ratio
		plan.CurrentAllocation[asset], _ = ratio.Float64()
		hhi = hhi.Add(ratio.Mul(ratio))
	}
	plan.Concentration, _ = hhi.Float64()
	plan.Diversification, _ = decimal.NewFromInt(1).Sub(hhi).Float64()

	for _, asset := range r.assets() {
		dev, _ := current[asset].Sub(r.target[asset]).Float64()
		plan.Deviations[asset] = dev
		if math.Abs(dev) > plan.MaxDeviation {
			plan.MaxDeviation = math.Abs(dev)
		}
	}

	if plan.MaxDeviation <= r.threshold {
		plan.Reason = "投资组合配置合理，无需调整"
		return plan
	}

	plan.Action = ActionRebalance
	plan.Confidence = math.Min(0.9, 0.5+plan.MaxDeviation)
	plan.Reason = fmt.Sprintf("投资组合偏离目标%.1f%%，需要再平衡", plan.MaxDeviation*100)
	plan.Trades = r.trades(current, upperPrices, total)

	zap.L().Info("组合需要再平衡",
		zap.Float64("max_deviation", plan.MaxDeviation),
		zap.Int("trades", len(plan.Trades)))
	return plan
}

func (r *Rebalancer) trades(current, prices map[string]decimal.Decimal, total decimal.Decimal) []Trade {
	var trades []Trade
	for _, asset := range r.assets() {
		price, ok := prices[asset]
		if !ok || !price.IsPositive() {
			continue
		}
		target := r.target[asset]
		diff := total.Mul(target).Sub(total.Mul(current[asset]))
		if diff.Abs().LessThan(r.minTrade) {
			continue
		}

		action := TradeBuy
		if diff.IsNegative() {
			action = TradeSell
		}
		quantity, _ := diff.Abs().Div(price).Float64()
		value, _ := diff.Abs().Float64()
		currentRatio, _ := current[asset].Float64()
		targetRatio, _ := target.Float64()
		trades = append(trades, Trade{
			Asset:        asset,
			Action:       action,
			Quantity:     quantity,
			Value:        value,
			CurrentRatio: currentRatio,
			TargetRatio:  targetRatio,
		})
	}
	return trades
}

func (r *Rebalancer) assets() []string {
	assets := make([]string, 0, len(r.target))
	for asset := range r.target {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// TradeInstructions 再平衡操作说明
func TradeInstructions(trades []Trade) string {
	if len(trades) == 0 {
		return ""
	}
	lines := []string{"再平衡操作："}
	for _, t := range trades {
		action := "买入"
		if t.Action == TradeSell {
			action = "卖出"
		}
		lines = append(lines, fmt.Sprintf("%s%s: %.4f份 (价值%.2f)", action, t.Asset, t.Quantity, t.Value))
	}
	return strings.Join(lines, "\n")
}

// MinVarianceWeights 最小方差配置 w = Σ⁻¹1 / 1ᵀΣ⁻¹1，负权重截为0后归一化；
// 协方差矩阵奇异时退回等权重
func MinVarianceWeights(assets []string, returns [][]float64) map[string]float64 {
	n := len(assets)
	if n == 0 || len(returns) != n {
		return nil
	}
	equal := make(map[string]float64, n)
	for _, a := range assets {
		equal[a] = 1 / float64(n)
	}

	rows := len(returns[0])
	for _, col := range returns {
		if len(col) != rows || rows < 2 {
			return equal
		}
	}
	data := mat.NewDense(rows, n, nil)
	for j, col := range returns {
		for i, v := range col {
			data.Set(i, j, v)
		}
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	var inv mat.Dense
	if err := inv.Inverse(&cov); err != nil {
		zap.L().Warn("协方差矩阵不可逆，使用等权重", zap.Error(err))
		return equal
	}

	ones := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		ones.SetVec(i, 1)
	}
	var raw mat.VecDense
	raw.MulVec(&inv, ones)

	sum := 0.0
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = math.Max(raw.AtVec(i), 0)
		sum += weights[i]
	}
	if sum == 0 {
		return equal
	}
	out := make(map[string]float64, n)
	for i, a := range assets {
		out[a] = weights[i] / sum
	}
	return out
}
