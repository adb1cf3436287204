package indicators

// MA 收盘价简单移动平均
func MA(closes []float64, n int) []float64 {
	return SMA(closes, n)
}

// EMA 指数移动平均，α=2/(n+1)，以首个收盘价为种子；前n-1行未定义
func EMA(closes []float64, n int) []float64 {
	if n <= 0 || len(closes) < n {
		return undefinedSeries(len(closes))
	}
	return maskLeading(rawEMA(closes, n), n-1)
}

// MACD 返回 MACD线、信号线、柱状图；慢线窗口未满足前三列均未定义
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	n := len(closes)
	if fast <= 0 || slow <= 0 || signal <= 0 || n < slow {
		return undefinedSeries(n), undefinedSeries(n), undefinedSeries(n)
	}

	fastEMA := rawEMA(closes, fast)
	slowEMA := rawEMA(closes, slow)

	macd = make([]float64, n)
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	sig = rawEMA(macd, signal)

	hist = make([]float64, n)
	for i := range macd {
		hist[i] = macd[i] - sig[i]
	}

	lookback := slow - 1
	return maskLeading(macd, lookback), maskLeading(sig, lookback), maskLeading(hist, lookback)
}
