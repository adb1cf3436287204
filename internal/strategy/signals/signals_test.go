package signals

import (
	"math"
	"strings"
	"testing"
	"time"

	"market-risk-sentry/internal/strategy/indicators"
	"market-risk-sentry/pkg/types"
)

func frameOf(t *testing.T, closes []float64, spread float64) *types.IndicatorFrame {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = types.PriceBar{
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c,
			High:      c + spread,
			Low:       c - spread,
			Close:     c,
			Volume:    1_000_000,
		}
	}
	series, err := types.NewPriceSeries("TEST-USDT", "1D", bars)
	if err != nil {
		t.Fatalf("构造序列失败: %v", err)
	}
	return indicators.ComputeIndicators(series, types.DefaultIndicatorParams())
}

func sumStrength(votes []types.SignalVote) int {
	total := 0
	for _, v := range votes {
		total += v.Strength
	}
	return total
}

func TestFlatSeriesIsWatch(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 50
	}
	g := NewGenerator()
	frame := frameOf(t, closes, 0)

	composite := g.Generate(frame)
	if composite.Signal != types.SignalWatch || composite.Confidence != types.ConfidenceLow {
		t.Errorf("走平序列应为观望/低, 实际 %s/%s", composite.Signal, composite.Confidence)
	}

	kdj := KDJVote(frame)
	if kdj.Strength != 0 || kdj.Reasons[0] != "缺少KDJ数据" {
		t.Errorf("零波幅时KDJ应缺失, 实际 %+v", kdj)
	}
	rsi := RSIVote(frame)
	if rsi.Values["rsi"] != 50 || rsi.Signal != types.SignalNeutral {
		t.Errorf("RSI投票 = %+v", rsi)
	}
}

func TestRisingSeriesVotes(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + 30*float64(i)/29
	}
	g := NewGenerator()
	frame := frameOf(t, closes, 0.5)
	votes := g.Votes(frame)

	if votes[0].Signal != types.SignalBuy || votes[0].Strength != 2 {
		t.Errorf("MA投票应为买入/2, 实际 %+v", votes[0])
	}
	if votes[2].Signal != types.SignalSell || votes[2].Strength != -2 {
		t.Errorf("RSI=100 应投卖出/-2, 实际 %+v", votes[2])
	}

	composite := Combine(votes)
	if composite.TotalStrength != sumStrength(votes) {
		t.Errorf("综合强度 %d 不等于各族之和 %d", composite.TotalStrength, sumStrength(votes))
	}
	if composite.Individual[FamilyMA] != types.SignalBuy {
		t.Errorf("Individual = %v", composite.Individual)
	}
}

func TestMissingDataFallsBackToNeutral(t *testing.T) {
	g := NewGenerator()

	single := g.Generate(frameOf(t, []float64{100}, 1))
	if single.TotalStrength != 0 || single.Signal != types.SignalWatch {
		t.Errorf("单根K线应为观望, 实际 %+v", single)
	}
	want := []string{"MA: 缺少MA数据", "MACD: 缺少MACD数据", "RSI: 缺少RSI数据", "KDJ: 缺少KDJ数据"}
	for i, r := range want {
		if single.Reasons[i] != r {
			t.Errorf("原因[%d] = %q, 期望 %q", i, single.Reasons[i], r)
		}
	}

	short := make([]float64, 12)
	for i := range short {
		short[i] = 100 + float64(i%3)
	}
	votes := g.Votes(frameOf(t, short, 1))
	for _, v := range votes[:3] {
		if v.Strength != 0 || !strings.HasPrefix(v.Reasons[0], "缺少") {
			t.Errorf("%s 数据不足时应为缺失, 实际 %+v", v.Family, v)
		}
	}
}

func TestCombineThresholds(t *testing.T) {
	vote := func(signal string, strength int) types.SignalVote {
		return types.SignalVote{Family: FamilyMA, Signal: signal, Strength: strength}
	}

	tests := []struct {
		name       string
		votes      []types.SignalVote
		signal     string
		confidence string
	}{
		{"三族看多", []types.SignalVote{vote(types.SignalBuy, 1), vote(types.SignalBuy, 0), vote(types.SignalBuy, 0), vote(types.SignalNeutral, -1)}, types.SignalStrongBuy, types.ConfidenceHigh},
		{"强度5", []types.SignalVote{vote(types.SignalNeutral, 2), vote(types.SignalNeutral, 2), vote(types.SignalNeutral, 1)}, types.SignalStrongBuy, types.ConfidenceHigh},
		{"两族看多", []types.SignalVote{vote(types.SignalBuy, 2), vote(types.SignalBuy, 2), vote(types.SignalSell, -2)}, types.SignalBuy, types.ConfidenceMedium},
		{"强度-3", []types.SignalVote{vote(types.SignalNeutral, -1), vote(types.SignalNeutral, -2)}, types.SignalSell, types.ConfidenceMedium},
		{"强度-5", []types.SignalVote{vote(types.SignalNeutral, -2), vote(types.SignalNeutral, -2), vote(types.SignalNeutral, -1)}, types.SignalStrongSell, types.ConfidenceHigh},
		{"多空抵消", []types.SignalVote{vote(types.SignalBuy, 2), vote(types.SignalSell, -2)}, types.SignalWatch, types.ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.votes)
			if got.Signal != tt.signal || got.Confidence != tt.confidence {
				t.Errorf("得到 %s/%s, 期望 %s/%s", got.Signal, got.Confidence, tt.signal, tt.confidence)
			}
		})
	}
}

func TestHighConfidenceImpliesStrongAgreement(t *testing.T) {
	g := NewGenerator()
	for phase := 0; phase < 40; phase++ {
		closes := make([]float64, 90)
		for i := range closes {
			x := float64(i+phase) / 6
			closes[i] = 100 + 15*math.Sin(x) + 5*math.Cos(2.3*x)
		}
		c := g.Generate(frameOf(t, closes, 1))

		if c.TotalStrength != sumStrength(c.Votes) {
			t.Fatalf("phase %d: 综合强度不等于各族之和", phase)
		}
		if len(c.Reasons) > 5 {
			t.Fatalf("phase %d: 理由超过5条", phase)
		}
		if c.Confidence == types.ConfidenceHigh {
			strong := c.TotalStrength >= 5 || c.TotalStrength <= -5 || c.BuySignals >= 3 || c.SellSignals >= 3
			if !strong {
				t.Fatalf("phase %d: 高信心但强度 %d 买 %d 卖 %d", phase, c.TotalStrength, c.BuySignals, c.SellSignals)
			}
		}
	}
}

func TestMACDStrengthTruncatesTowardZero(t *testing.T) {
	series, _ := types.NewPriceSeries("X", "1D", []types.PriceBar{
		{Timestamp: time.Unix(0, 0), Open: 1, Close: 1, High: 1, Low: 1},
		{Timestamp: time.Unix(60, 0), Open: 1, Close: 1, High: 1, Low: 1},
	})
	frame := types.NewIndicatorFrame(series)
	frame.Set(types.ColMACD, []float64{-1, -0.5})
	frame.Set(types.ColMACDSignal, []float64{-0.8, -0.6})
	frame.Set(types.ColMACDHist, []float64{-0.2, 0.1})

	// 金叉 +2，柱状图转正 +1，零轴下方 -0.5 → 2.5 取整为2
	vote := MACDVote(frame)
	if vote.Strength != 2 || vote.Signal != types.SignalBuy {
		t.Errorf("MACD投票 = %+v", vote)
	}
}
