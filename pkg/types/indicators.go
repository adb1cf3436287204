package types

import "math"

// 指标列名
const (
	ColMA5        = "MA5"
	ColMA10       = "MA10"
	ColMA20       = "MA20"
	ColMA60       = "MA60"
	ColEMA12      = "EMA12"
	ColEMA26      = "EMA26"
	ColMACD       = "MACD"
	ColMACDSignal = "MACD_Signal"
	ColMACDHist   = "MACD_Hist"
	ColRSI        = "RSI"
	ColK          = "K"
	ColD          = "D"
	ColJ          = "J"
	ColBollUpper  = "BOLL_UPPER"
	ColBollMiddle = "BOLL_MIDDLE"
	ColBollLower  = "BOLL_LOWER"
	ColBollWidth  = "BOLL_WIDTH"
	ColATR        = "ATR"
	ColOBV        = "OBV"
)

// IndicatorFrame 价格序列 + 派生指标列，未定义的单元格为NaN
type IndicatorFrame struct {
	Series  *PriceSeries         `json:"series"`
	Columns map[string][]float64 `json:"columns"`
}

// NewIndicatorFrame 创建空指标帧
func NewIndicatorFrame(series *PriceSeries) *IndicatorFrame {
	return &IndicatorFrame{Series: series, Columns: make(map[string][]float64)}
}

// Len 行数
func (f *IndicatorFrame) Len() int {
	return f.Series.Len()
}

// Set 写入指标列
func (f *IndicatorFrame) Set(name string, values []float64) {
	f.Columns[name] = values
}

// Column 返回指标列（不存在时为nil）
func (f *IndicatorFrame) Column(name string) []float64 {
	return f.Columns[name]
}

// Value 读取第i行指标值，未定义或非有限值返回ok=false
func (f *IndicatorFrame) Value(name string, i int) (float64, bool) {
	col, ok := f.Columns[name]
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	v := col[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Latest 最新一行指标值
func (f *IndicatorFrame) Latest(name string) (float64, bool) {
	return f.Value(name, f.Len()-1)
}

// Previous 倒数第二行指标值
func (f *IndicatorFrame) Previous(name string) (float64, bool) {
	return f.Value(name, f.Len()-2)
}

// Close 第i行收盘价
func (f *IndicatorFrame) Close(i int) float64 {
	return f.Series.Bars[i].Close
}

// ChannelData 价格通道（滚动最高/最低）
type ChannelData struct {
	Upper  float64 `json:"upper"`  // 上轨
	Lower  float64 `json:"lower"`  // 下轨
	Middle float64 `json:"middle"` // 中轨
}

// ATRData ATR指标数据
type ATRData struct {
	Value      float64 `json:"value"`      // ATR值
	Slope      float64 `json:"slope"`      // ATR斜率
	Percentile float64 `json:"percentile"` // 当前ATR在历史中的百分位
}

// IndicatorParams 指标窗口参数
type IndicatorParams struct {
	MAPeriods  []int   `mapstructure:"ma_periods" json:"ma_periods"`
	EMAPeriods []int   `mapstructure:"ema_periods" json:"ema_periods"`
	MACDFast   int     `mapstructure:"macd_fast" json:"macd_fast"`
	MACDSlow   int     `mapstructure:"macd_slow" json:"macd_slow"`
	MACDSignal int     `mapstructure:"macd_signal" json:"macd_signal"`
	RSIPeriod  int     `mapstructure:"rsi_period" json:"rsi_period"`
	KDJPeriod  int     `mapstructure:"kdj_period" json:"kdj_period"`
	KDJSmoothK int     `mapstructure:"kdj_smooth_k" json:"kdj_smooth_k"`
	KDJSmoothD int     `mapstructure:"kdj_smooth_d" json:"kdj_smooth_d"`
	BollPeriod int     `mapstructure:"boll_period" json:"boll_period"`
	BollStdDev float64 `mapstructure:"boll_std_dev" json:"boll_std_dev"`
	ATRPeriod  int     `mapstructure:"atr_period" json:"atr_period"`
}

// DefaultIndicatorParams 默认指标参数
func DefaultIndicatorParams() IndicatorParams {
	return IndicatorParams{
		MAPeriods:  []int{5, 10, 20, 60},
		EMAPeriods: []int{12, 26},
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		RSIPeriod:  14,
		KDJPeriod:  9,
		KDJSmoothK: 3,
		KDJSmoothD: 3,
		BollPeriod: 20,
		BollStdDev: 2,
		ATRPeriod:  14,
	}
}
