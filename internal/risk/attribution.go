package risk

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"market-risk-sentry/pkg/types"
)

// rollingWindow 滚动alpha/beta的窗口
const rollingWindow = 60

// Segment 单个分组（资产/板块）的组合与基准权重、收益
type Segment struct {
	Name            string  `json:"name"`
	PortfolioWeight float64 `json:"portfolio_weight"`
	BenchmarkWeight float64 `json:"benchmark_weight"`
	PortfolioReturn float64 `json:"portfolio_return"`
	BenchmarkReturn float64 `json:"benchmark_return"`
}

// SegmentEffect 分组的Brinson效应
type SegmentEffect struct {
	Name        string  `json:"name"`
	Allocation  float64 `json:"allocation"`
	Selection   float64 `json:"selection"`
	Interaction float64 `json:"interaction"`
}

// Brinson Brinson-Fachler 分解
type Brinson struct {
	Allocation  float64         `json:"allocation"`
	Selection   float64         `json:"selection"`
	Interaction float64         `json:"interaction"`
	Segments    []SegmentEffect `json:"segments"`
}

// RollingPoint 滚动窗口末端的alpha/beta
type RollingPoint struct {
	End   int     `json:"end"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// AttributionResult 归因分析结果
type AttributionResult struct {
	TotalReturn      float64            `json:"total_return"`
	BenchmarkReturn  float64            `json:"benchmark_return"`
	ExcessReturn     float64            `json:"excess_return"`
	Alpha            float64            `json:"alpha"`
	Beta             float64            `json:"beta"`
	InformationRatio float64            `json:"information_ratio"`
	TrackingError    float64            `json:"tracking_error"`
	TreynorRatio     float64            `json:"treynor_ratio"`
	BrinsonAvailable bool               `json:"brinson_available"`
	Brinson          *Brinson           `json:"brinson,omitempty"`
	Rolling          []RollingPoint     `json:"rolling,omitempty"`
	FactorExposure   map[string]float64 `json:"factor_exposure,omitempty"`
	FactorReturn     map[string]float64 `json:"factor_attribution,omitempty"`
}

// Attribution 归因分析器
type Attribution struct {
	riskFree float64
	days     float64
}

// NewAttribution 创建归因分析器
func NewAttribution(config types.RiskConfig) *Attribution {
	days := float64(config.TradingDays)
	if days <= 0 {
		days = 252
	}
	return &Attribution{riskFree: config.RiskFreeRate, days: days}
}

// Analyze 执行归因分析，两条序列按末端对齐；segments 为空时不做Brinson分解，factors 为空时不做因子回归
func (a *Attribution) Analyze(portfolio, benchmark []float64, segments []Segment, factors map[string][]float64) (*AttributionResult, error) {
	portfolio, benchmark = alignTail(portfolio, benchmark)
	if len(portfolio) < 2 {
		return nil, fmt.Errorf("组合与基准共同样本 %d 个: %w", len(portfolio), types.ErrInsufficientData)
	}

	result := &AttributionResult{
		TotalReturn:     TotalReturn(portfolio),
		BenchmarkReturn: TotalReturn(benchmark),
	}
	result.ExcessReturn = result.TotalReturn - result.BenchmarkReturn
	result.Alpha, result.Beta = a.AlphaBeta(portfolio, benchmark)
	result.InformationRatio, result.TrackingError = a.InformationRatio(portfolio, benchmark)
	result.TreynorRatio = a.TreynorRatio(portfolio, result.Beta)
	result.Rolling = a.RollingAlphaBeta(portfolio, benchmark, rollingWindow)

	if len(segments) > 0 {
		result.BrinsonAvailable = true
		result.Brinson = BrinsonFachler(segments)
	}

	if len(factors) > 0 {
		exposure, contribution, err := FactorRegression(portfolio, factors)
		if err != nil {
			zap.L().Warn("因子归因计算失败", zap.Error(err))
		} else {
			result.FactorExposure = exposure
			result.FactorReturn = contribution
		}
	}

	zap.L().Info("归因分析完成",
		zap.Float64("total_return", result.TotalReturn),
		zap.Float64("alpha", result.Alpha),
		zap.Float64("beta", result.Beta),
		zap.Bool("brinson", result.BrinsonAvailable))
	return result, nil
}

// AlphaBeta beta = cov/var（超额收益，样本口径），alpha为年化
func (a *Attribution) AlphaBeta(portfolio, benchmark []float64) (alpha, beta float64) {
	daily := a.riskFree / a.days
	pe := excessReturns(portfolio, daily)
	be := excessReturns(benchmark, daily)

	variance := stat.Variance(be, nil)
	if variance > 0 {
		beta = stat.Covariance(pe, be, nil) / variance
	}
	alpha = stat.Mean(pe, nil)*a.days - beta*stat.Mean(be, nil)*a.days
	return alpha, beta
}

// InformationRatio 年化超额收益/跟踪误差
func (a *Attribution) InformationRatio(portfolio, benchmark []float64) (ir, trackingError float64) {
	diff := make([]float64, len(portfolio))
	for i := range portfolio {
		diff[i] = portfolio[i] - benchmark[i]
	}
	trackingError = stat.StdDev(diff, nil) * math.Sqrt(a.days)
	if trackingError > 1e-15 {
		ir = stat.Mean(diff, nil) * a.days / trackingError
	}
	return ir, trackingError
}

// TreynorRatio (年化收益-无风险利率)/beta，beta<=0时为0
func (a *Attribution) TreynorRatio(portfolio []float64, beta float64) float64 {
	if beta <= 0 {
		return 0
	}
	return (stat.Mean(portfolio, nil)*a.days - a.riskFree) / beta
}

// RollingAlphaBeta 滚动窗口alpha/beta，样本不足一个窗口时为空
func (a *Attribution) RollingAlphaBeta(portfolio, benchmark []float64, window int) []RollingPoint {
	if window < 2 || len(portfolio) < window {
		return nil
	}
	points := make([]RollingPoint, 0, len(portfolio)-window+1)
	for end := window; end <= len(portfolio); end++ {
		alpha, beta := a.AlphaBeta(portfolio[end-window:end], benchmark[end-window:end])
		points = append(points, RollingPoint{End: end - 1, Alpha: alpha, Beta: beta})
	}
	return points
}

// BrinsonFachler 配置效应 (wp-wb)(Rb_i-Rb)，选择效应 wb(Rp_i-Rb_i)，交互效应 (wp-wb)(Rp_i-Rb_i)
func BrinsonFachler(segments []Segment) *Brinson {
	benchmarkTotal := 0.0
	for _, s := range segments {
		benchmarkTotal += s.BenchmarkWeight * s.BenchmarkReturn
	}

	out := &Brinson{Segments: make([]SegmentEffect, 0, len(segments))}
	for _, s := range segments {
		activeWeight := s.PortfolioWeight - s.BenchmarkWeight
		effect := SegmentEffect{
			Name:        s.Name,
			Allocation:  activeWeight * (s.BenchmarkReturn - benchmarkTotal),
			Selection:   s.BenchmarkWeight * (s.PortfolioReturn - s.BenchmarkReturn),
			Interaction: activeWeight * (s.PortfolioReturn - s.BenchmarkReturn),
		}
		out.Allocation += effect.Allocation
		out.Selection += effect.Selection
		out.Interaction += effect.Interaction
		out.Segments = append(out.Segments, effect)
	}
	return out
}

// FactorRegression 最小二乘 R_p = Σ β_k F_k，返回因子暴露与收益贡献（β·因子均值·样本数）
func FactorRegression(portfolio []float64, factors map[string][]float64) (exposure, contribution map[string]float64, err error) {
	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := len(portfolio)
	for _, name := range names {
		if len(factors[name]) < rows {
			rows = len(factors[name])
		}
	}
	if rows < len(names) || rows == 0 {
		return nil, nil, fmt.Errorf("因子样本 %d 个少于因子数 %d: %w", rows, len(names), types.ErrInsufficientData)
	}

	y := mat.NewVecDense(rows, append([]float64(nil), portfolio[len(portfolio)-rows:]...))
	x := mat.NewDense(rows, len(names), nil)
	for j, name := range names {
		col := factors[name][len(factors[name])-rows:]
		for i, v := range col {
			x.Set(i, j, v)
		}
	}

	var betas mat.VecDense
	if err := betas.SolveVec(x, y); err != nil {
		return nil, nil, err
	}

	exposure = make(map[string]float64, len(names))
	contribution = make(map[string]float64, len(names))
	for j, name := range names {
		col := factors[name][len(factors[name])-rows:]
		exposure[name] = betas.AtVec(j)
		contribution[name] = betas.AtVec(j) * stat.Mean(col, nil) * float64(rows)
	}
	return exposure, contribution, nil
}

func alignTail(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}
