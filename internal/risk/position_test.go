package risk

import (
	"testing"

	"market-risk-sentry/pkg/config"
	"market-risk-sentry/pkg/types"
)

func alternating(amplitude float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude
		if i%2 == 1 {
			out[i] = -amplitude
		}
	}
	return out
}

func TestKellyFraction(t *testing.T) {
	tests := []struct {
		name      string
		p, b, cap float64
		want      float64
	}{
		{"截断到上限", 0.6, 2, 0.25, 0.25},
		{"无优势", 0.5, 1, 0.25, 0},
		{"负期望截断为0", 0.3, 1, 0.25, 0},
		{"正常值", 0.4, 2, 0.25, 0.1},
		{"自定义上限", 0.55, 2, 0.1, 0.1},
		{"上限不超过0.25", 0.9, 5, 0.8, 0.25},
		{"盈亏比为0", 0.6, 0, 0.25, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KellyFraction(tt.p, tt.b, tt.cap); !approx(got, tt.want, 1e-12) {
				t.Errorf("KellyFraction(%v,%v,%v) = %v, want %v", tt.p, tt.b, tt.cap, got, tt.want)
			}
		})
	}
}

func TestKellyFractionBounds(t *testing.T) {
	for p := 0.0; p <= 1.0; p += 0.05 {
		for b := 0.1; b <= 5; b += 0.3 {
			f := KellyFraction(p, b, 0.25)
			if f < 0 || f > 0.25 {
				t.Fatalf("KellyFraction(%v,%v) = %v 超出[0,0.25]", p, b, f)
			}
		}
	}
}

func TestPositionSizerHardCap(t *testing.T) {
	cfg := config.Default().Position
	cfg.MaxPosition = 0.9
	sizer := NewPositionSizer(cfg)

	rec := sizer.FixedRisk("BTC-USDT", 0.01)
	if rec.Max != config.HardMaxPosition {
		t.Fatalf("Max = %v, want %v", rec.Max, config.HardMaxPosition)
	}
	if rec.Recommended != config.HardMaxPosition {
		t.Errorf("Recommended = %v, 应截断到硬上限", rec.Recommended)
	}
}

func TestPositionSizerKelly(t *testing.T) {
	sizer := NewPositionSizer(config.Default().Position)
	rec := sizer.Kelly("BTC-USDT", 0.4, 2)

	if !approx(rec.Recommended, 0.1, 1e-12) {
		t.Errorf("Recommended = %v, want 0.1", rec.Recommended)
	}
	if !approx(rec.Confidence, 0.72, 1e-12) {
		t.Errorf("Confidence = %v, want 0.72", rec.Confidence)
	}
	if rec.RiskLevel != types.PositionRiskLow || rec.Method != "kelly" {
		t.Errorf("RiskLevel=%s Method=%s", rec.RiskLevel, rec.Method)
	}

	zero := sizer.Kelly("BTC-USDT", 0.3, 1)
	if zero.Recommended != zero.Min {
		t.Errorf("负凯利应落在下限, got %v", zero.Recommended)
	}
}

func TestPositionSizerFixedRisk(t *testing.T) {
	sizer := NewPositionSizer(config.Default().Position)

	if rec := sizer.FixedRisk("ETH-USDT", 0.1); !approx(rec.Recommended, 0.2, 1e-12) || rec.Confidence != 0.8 {
		t.Errorf("FixedRisk(0.1) = %+v", rec)
	}
	if rec := sizer.FixedRisk("ETH-USDT", 0); rec.Method != "default" || rec.Recommended != 0.10 {
		t.Errorf("止损为0应返回默认仓位, got %+v", rec)
	}
}

func TestPositionSizerVolatility(t *testing.T) {
	sizer := NewPositionSizer(config.Default().Position)

	if rec := sizer.Volatility("BTC-USDT", alternating(0.01, 10)); rec.Method != "default" {
		t.Errorf("样本不足应返回默认仓位, got %s", rec.Method)
	}

	returns := alternating(0.05, 40)
	rec := sizer.Volatility("BTC-USDT", returns)
	vol := rec.Details["actual_volatility"].(float64)
	want := 0.15 / vol
	if !approx(rec.Recommended, want, 1e-12) {
		t.Errorf("Recommended = %v, want %v", rec.Recommended, want)
	}
	if rec.Confidence < 0 || rec.Confidence > 0.7 {
		t.Errorf("Confidence = %v 超出[0,0.7]", rec.Confidence)
	}
}

func TestPositionSizerComposite(t *testing.T) {
	sizer := NewPositionSizer(config.Default().Position)
	returns := alternating(0.05, 40)

	rec := sizer.Composite("BTC-USDT", returns, nil, nil)
	if len(rec.Methods) != 2 || rec.Methods[0] != "volatility" || rec.Methods[1] != "fixed_risk" {
		t.Fatalf("Methods = %v", rec.Methods)
	}
	vol := sizer.Volatility("BTC-USDT", returns).Recommended
	fixed := sizer.FixedRisk("BTC-USDT", 0.05).Recommended
	want := vol*2/3 + fixed/3
	if !approx(rec.Recommended, want, 1e-12) {
		t.Errorf("Recommended = %v, want %v", rec.Recommended, want)
	}

	p, b := 0.4, 2.0
	full := sizer.Composite("BTC-USDT", returns, &p, &b)
	if len(full.Methods) != 3 {
		t.Errorf("Methods = %v", full.Methods)
	}
	if full.Recommended < full.Min || full.Recommended > full.Max || full.Confidence != 0.75 {
		t.Errorf("综合仓位越界: %+v", full)
	}

	short := sizer.Composite("BTC-USDT", returns[:5], nil, nil)
	if len(short.Methods) != 1 || short.Methods[0] != "fixed_risk" {
		t.Errorf("样本不足时仅固定风险法参与, got %v", short.Methods)
	}
}

func TestPositionRiskLevel(t *testing.T) {
	tests := []struct {
		position float64
		want     string
	}{
		{0.6, types.PositionRiskHigh},
		{0.3, types.PositionRiskMedium},
		{0.15, types.PositionRiskLow},
		{0.05, types.PositionRiskVeryLow},
	}
	for _, tt := range tests {
		if got := PositionRiskLevel(tt.position); got != tt.want {
			t.Errorf("PositionRiskLevel(%v) = %s, want %s", tt.position, got, tt.want)
		}
	}
}
