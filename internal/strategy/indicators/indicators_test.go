package indicators

import (
	"math"
	"testing"
	"time"

	"market-risk-sentry/pkg/types"
)

func buildSeries(t *testing.T, closes []float64, spread float64) *types.PriceSeries {
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
	return series
}

func linear(from, to float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return out
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func allUndefined(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

func TestShortSeriesColumnsUndefined(t *testing.T) {
	series := buildSeries(t, linear(100, 110, 10), 1)
	frame := ComputeIndicators(series, types.DefaultIndicatorParams())

	for _, col := range []string{
		types.ColMA20, types.ColMA60, types.ColEMA12, types.ColEMA26,
		types.ColMACD, types.ColMACDSignal, types.ColMACDHist, types.ColRSI,
		types.ColBollUpper, types.ColBollMiddle, types.ColBollLower, types.ColBollWidth,
		types.ColATR,
	} {
		if !allUndefined(frame.Column(col)) {
			t.Errorf("%s 在数据不足时应整列未定义", col)
		}
	}

	// MA5 从第5根开始有定义
	if _, ok := frame.Value(types.ColMA5, 3); ok {
		t.Errorf("MA5 第4行应未定义")
	}
	if v, ok := frame.Value(types.ColMA5, 4); !ok || math.Abs(v-frame.Close(2)) > 1e-9 {
		t.Errorf("MA5 第5行 = %v, %v", v, ok)
	}
}

func TestRSIBoundsAndExtremes(t *testing.T) {
	rising := RSI(linear(100, 130, 30), 14)
	if v := rising[len(rising)-1]; v != 100 {
		t.Errorf("单边上涨RSI应为100, 实际 %v", v)
	}

	falling := RSI(linear(130, 100, 30), 14)
	if v := falling[len(falling)-1]; v != 0 {
		t.Errorf("单边下跌RSI应为0, 实际 %v", v)
	}

	flat := RSI(constant(50, 60), 14)
	if !math.IsNaN(flat[13]) {
		t.Errorf("第14行RSI应未定义")
	}
	if flat[14] != 50 || flat[59] != 50 {
		t.Errorf("走平序列RSI应为50, 实际 %v / %v", flat[14], flat[59])
	}

	zigzag := make([]float64, 80)
	for i := range zigzag {
		zigzag[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)
	}
	for i, v := range RSI(zigzag, 14) {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Fatalf("RSI[%d]=%v 超出[0,100]", i, v)
		}
	}
}

func TestEMASeededFromFirstValue(t *testing.T) {
	ema := EMA([]float64{1, 2, 3}, 2)
	if !math.IsNaN(ema[0]) {
		t.Errorf("EMA第1行应未定义")
	}
	if math.Abs(ema[1]-5.0/3) > 1e-9 {
		t.Errorf("EMA[1] = %v", ema[1])
	}
	if math.Abs(ema[2]-23.0/9) > 1e-9 {
		t.Errorf("EMA[2] = %v", ema[2])
	}
}

func TestMACDFlatSeries(t *testing.T) {
	macd, sig, hist := MACD(constant(50, 60), 12, 26, 9)
	for i := 0; i < 25; i++ {
		if !math.IsNaN(macd[i]) || !math.IsNaN(sig[i]) || !math.IsNaN(hist[i]) {
			t.Fatalf("MACD第%d行应未定义", i)
		}
	}
	last := len(macd) - 1
	if math.Abs(macd[last]) > 1e-12 || math.Abs(hist[last]) > 1e-12 {
		t.Errorf("走平序列MACD应为0, macd=%v hist=%v", macd[last], hist[last])
	}
}

func TestKDJJIsNotClamped(t *testing.T) {
	closes := []float64{100, 99, 98, 97, 96, 95, 94, 93, 92, 95, 100, 105, 110, 115, 120, 125}
	highs := make([]float64, len(closes))
	lows := make([]float64, len(closes))
	for i, c := range closes {
		if i < 9 {
			highs[i], lows[i] = c+1, c
		} else {
			highs[i], lows[i] = c, c-1
		}
	}

	k, d, j := KDJ(highs, lows, closes, 9, 3, 3)
	maxJ := math.Inf(-1)
	for i := range j {
		if math.IsNaN(j[i]) {
			continue
		}
		if math.Abs(j[i]-(3*k[i]-2*d[i])) > 1e-9 {
			t.Fatalf("J[%d] 不等于 3K-2D", i)
		}
		maxJ = math.Max(maxJ, j[i])
	}
	if maxJ <= 100 {
		t.Errorf("急速上涨时J应突破100, 实际最大值 %v", maxJ)
	}
}

func TestKDJZeroRangeUndefined(t *testing.T) {
	flat := constant(50, 20)
	k, _, j := KDJ(flat, flat, flat, 9, 3, 3)
	if !allUndefined(k) || !allUndefined(j) {
		t.Errorf("区间为0时KDJ应未定义")
	}
}

func TestBollingerUsesSampleStd(t *testing.T) {
	upper, middle, lower, width := Bollinger(linear(1, 20, 20), 20, 2)
	std := math.Sqrt(35)
	if math.Abs(middle[19]-10.5) > 1e-9 {
		t.Errorf("中轨 = %v", middle[19])
	}
	if math.Abs(upper[19]-(10.5+2*std)) > 1e-9 || math.Abs(lower[19]-(10.5-2*std)) > 1e-9 {
		t.Errorf("上下轨 = %v / %v", upper[19], lower[19])
	}
	if math.Abs(width[19]-4*std/10.5*100) > 1e-9 {
		t.Errorf("带宽 = %v", width[19])
	}
	if !math.IsNaN(middle[18]) {
		t.Errorf("第19行应未定义")
	}
}

func TestATRConstantRange(t *testing.T) {
	series := buildSeries(t, constant(100, 30), 1)
	atr := ATR(series.Highs(), series.Lows(), series.Closes(), 14)
	if !math.IsNaN(atr[12]) {
		t.Errorf("ATR第13行应未定义")
	}
	if math.Abs(atr[29]-2) > 1e-9 {
		t.Errorf("ATR = %v, 期望 2", atr[29])
	}
}

func TestOBV(t *testing.T) {
	got := OBV([]float64{10, 11, 11, 10}, []float64{100, 200, 300, 400})
	want := []float64{0, 200, 200, -200}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("OBV[%d] = %v, 期望 %v", i, got[i], want[i])
		}
	}
}

func TestComputeRisingSeriesAlignment(t *testing.T) {
	series := buildSeries(t, linear(100, 130, 30), 0.5)
	frame := ComputeIndicators(series, types.DefaultIndicatorParams())

	ma5, _ := frame.Latest(types.ColMA5)
	ma10, _ := frame.Latest(types.ColMA10)
	ma20, ok := frame.Latest(types.ColMA20)
	if !ok || !(ma5 > ma10 && ma10 > ma20) {
		t.Errorf("期望 MA5>MA10>MA20, 实际 %v %v %v", ma5, ma10, ma20)
	}
	if rsi, _ := frame.Latest(types.ColRSI); rsi != 100 {
		t.Errorf("RSI = %v", rsi)
	}
	if _, ok := frame.Latest(types.ColMA60); ok {
		t.Errorf("30根K线时MA60应未定义")
	}
	if obv, _ := frame.Latest(types.ColOBV); obv != 29_000_000 {
		t.Errorf("OBV = %v", obv)
	}
}

func TestATRCalculator(t *testing.T) {
	calc := NewATRCalculator(14)
	if calc.Calculate(buildSeries(t, constant(100, 10), 1)) != nil {
		t.Errorf("数据不足应返回nil")
	}

	data := calc.Calculate(buildSeries(t, constant(100, 60), 1))
	if data == nil {
		t.Fatal("ATR数据为空")
	}
	if math.Abs(data.Value-2) > 1e-9 || math.Abs(data.Slope) > 1e-9 {
		t.Errorf("ATR = %+v", data)
	}
	if math.Abs(calc.Normalized(data.Value, 100)-2) > 1e-9 {
		t.Errorf("归一化ATR错误")
	}
}

func TestChannelCalculator(t *testing.T) {
	series := buildSeries(t, linear(100, 119, 20), 1)
	cc := NewChannelCalculator(10, 1)
	channel := cc.Calculate(series)
	if channel == nil {
		t.Fatal("通道为空")
	}
	// 排除最新一根，窗口为第9-18根
	if channel.Upper != 119 || channel.Lower != 108 {
		t.Errorf("通道 = %+v", channel)
	}
	if p := cc.Position(200, channel); p != 1 {
		t.Errorf("位置应截断为1, 实际 %v", p)
	}
	if NewChannelCalculator(30, 0).Calculate(series) != nil {
		t.Errorf("数据不足应返回nil")
	}
}
