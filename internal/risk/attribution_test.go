package risk

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
	"market-risk-sentry/pkg/types"
)

func benchmarkReturns(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.01 * math.Sin(float64(i)*0.7)
	}
	return out
}

func scaled(values []float64, k float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * k
	}
	return out
}

func TestAlphaBetaLeveredPortfolio(t *testing.T) {
	a := NewAttribution(types.RiskConfig{RiskFreeRate: 0, TradingDays: 252})
	benchmark := benchmarkReturns(30)
	portfolio := scaled(benchmark, 2)

	alpha, beta := a.AlphaBeta(portfolio, benchmark)
	if !approx(beta, 2, 1e-9) || !approx(alpha, 0, 1e-9) {
		t.Errorf("alpha=%v beta=%v, want 0 / 2", alpha, beta)
	}

	want := stat.Mean(portfolio, nil) * 252 / 2
	if got := a.TreynorRatio(portfolio, beta); !approx(got, want, 1e-9) {
		t.Errorf("Treynor = %v, want %v", got, want)
	}
	if got := a.TreynorRatio(portfolio, 0); got != 0 {
		t.Errorf("beta为0时Treynor应为0, got %v", got)
	}
}

func TestInformationRatioZeroTrackingError(t *testing.T) {
	a := NewAttribution(types.RiskConfig{TradingDays: 252})
	benchmark := benchmarkReturns(20)
	ir, te := a.InformationRatio(benchmark, benchmark)
	if ir != 0 || te != 0 {
		t.Errorf("相同序列 IR=%v TE=%v", ir, te)
	}
}

func TestBrinsonFachler(t *testing.T) {
	b := BrinsonFachler([]Segment{
		{Name: "A", PortfolioWeight: 0.6, BenchmarkWeight: 0.5, PortfolioReturn: 0.10, BenchmarkReturn: 0.08},
		{Name: "B", PortfolioWeight: 0.4, BenchmarkWeight: 0.5, PortfolioReturn: 0.02, BenchmarkReturn: 0.03},
	})

	if !approx(b.Allocation, 0.005, 1e-12) || !approx(b.Selection, 0.005, 1e-12) || !approx(b.Interaction, 0.003, 1e-12) {
		t.Errorf("brinson = %+v", b)
	}
	// 三项之和等于组合与基准的收益差
	excess := (0.6*0.10 + 0.4*0.02) - (0.5*0.08 + 0.5*0.03)
	if !approx(b.Allocation+b.Selection+b.Interaction, excess, 1e-12) {
		t.Errorf("分解之和 %v != 超额收益 %v", b.Allocation+b.Selection+b.Interaction, excess)
	}
	if len(b.Segments) != 2 || b.Segments[0].Name != "A" {
		t.Errorf("segments = %+v", b.Segments)
	}
}

func TestAnalyzeWithoutSegments(t *testing.T) {
	a := NewAttribution(types.RiskConfig{RiskFreeRate: 0.03, TradingDays: 252})
	benchmark := benchmarkReturns(70)
	portfolio := scaled(benchmark, 1.5)

	result, err := a.Analyze(portfolio, benchmark, nil, nil)
	if err != nil {
		t.Fatalf("归因失败: %v", err)
	}
	if result.BrinsonAvailable || result.Brinson != nil {
		t.Error("没有分组数据时不应给出Brinson分解")
	}
	if len(result.Rolling) != 11 {
		t.Errorf("滚动点数 = %d, want 11", len(result.Rolling))
	}
	if !approx(result.ExcessReturn, result.TotalReturn-result.BenchmarkReturn, 1e-15) {
		t.Errorf("超额收益不一致: %+v", result)
	}
}

func TestAnalyzeAlignsTail(t *testing.T) {
	a := NewAttribution(types.RiskConfig{TradingDays: 252})
	benchmark := benchmarkReturns(10)
	portfolio := append([]float64{0.5, -0.5}, benchmark...)

	result, err := a.Analyze(portfolio, benchmark, nil, nil)
	if err != nil {
		t.Fatalf("归因失败: %v", err)
	}
	if !approx(result.Beta, 1, 1e-9) || !approx(result.ExcessReturn, 0, 1e-12) {
		t.Errorf("按末端对齐后应与基准一致: %+v", result)
	}

	if _, err := a.Analyze([]float64{0.01}, benchmark, nil, nil); !errors.Is(err, types.ErrInsufficientData) {
		t.Errorf("err = %v", err)
	}
}

func TestFactorRegression(t *testing.T) {
	f1 := benchmarkReturns(40)
	f2 := make([]float64, 40)
	for i := range f2 {
		f2[i] = 0.005 * math.Cos(float64(i)*1.3)
	}
	portfolio := make([]float64, 40)
	for i := range portfolio {
		portfolio[i] = 1.5*f1[i] + 0.5*f2[i]
	}

	exposure, contribution, err := FactorRegression(portfolio, map[string][]float64{"market": f1, "size": f2})
	if err != nil {
		t.Fatalf("回归失败: %v", err)
	}
	if !approx(exposure["market"], 1.5, 1e-9) || !approx(exposure["size"], 0.5, 1e-9) {
		t.Errorf("exposure = %v", exposure)
	}
	want := 1.5 * stat.Mean(f1, nil) * 40
	if !approx(contribution["market"], want, 1e-9) {
		t.Errorf("contribution = %v, want %v", contribution["market"], want)
	}

	if _, _, err := FactorRegression([]float64{0.01}, map[string][]float64{"a": {0.1}, "b": {0.2}}); err == nil {
		t.Error("样本少于因子数应返回错误")
	}
}
