package analyzer

// TrendInfo 趋势识别结果
type TrendInfo struct {
	Defined      bool    `json:"defined"`
	Trend        string  `json:"trend"`    // 强势上涨/上涨/震荡/下跌/强势下跌
	Strength     string  `json:"strength"` // strong_bullish/bullish/neutral/bearish/strong_bearish
	PriceChange  float64 `json:"price_change"`
	MAAlignment  string  `json:"ma_alignment"` // 多头排列/空头排列/混乱
	Alignment    string  `json:"alignment"`    // bullish/bearish/mixed
	MA5          float64 `json:"ma5"`
	MA10         float64 `json:"ma10"`
	MA20         float64 `json:"ma20"`
	CurrentPrice float64 `json:"current_price"`
}

// Levels 支撑位/阻力位
type Levels struct {
	Support    []float64 `json:"support"`    // 从高到低
	Resistance []float64 `json:"resistance"` // 从低到高
}

// StrengthInfo ADX趋势强度
type StrengthInfo struct {
	Defined     bool    `json:"defined"`
	ADX         float64 `json:"adx"`
	PlusDI      float64 `json:"plus_di"`
	MinusDI     float64 `json:"minus_di"`
	Description string  `json:"strength_description"`
	Direction   string  `json:"direction"`
}

// 背离类型
const (
	DivergenceNone    = "none"
	DivergenceBearish = "bearish"
	DivergenceBullish = "bullish"
)

// DivergenceInfo 价格与RSI背离
type DivergenceInfo struct {
	Type        string `json:"divergence"`
	Description string `json:"description"`
}

// 波动率状态
const (
	RegimeExpanding   = "expanding"
	RegimeContracting = "contracting"
	RegimeStable      = "stable"
)

// RegimeInfo 波动率状态（短/中/长期年化波动率，百分比）
type RegimeInfo struct {
	Defined    bool    `json:"defined"`
	ShortVol   float64 `json:"short_term_vol"`
	MediumVol  float64 `json:"medium_term_vol"`
	LongVol    float64 `json:"long_term_vol"`
	Trend      string  `json:"trend"`
	Regime     string  `json:"regime"`
	Percentile float64 `json:"percentile"`
}

// HistVolInfo 历史波动率
type HistVolInfo struct {
	Defined bool    `json:"defined"`
	Current float64 `json:"current_volatility"`
	Average float64 `json:"average_volatility"`
	Level   string  `json:"volatility_level"`
	Period  int     `json:"period"`
}

// SqueezeInfo 布林带挤压
type SqueezeInfo struct {
	Defined      bool    `json:"defined"`
	CurrentWidth float64 `json:"current_width"`
	AverageWidth float64 `json:"average_width"`
	Status       string  `json:"squeeze_status"`
	Description  string  `json:"description"`
}

// Summary 趋势与波动率综合分析
type Summary struct {
	Trend             TrendInfo      `json:"trend"`
	SupportResistance Levels         `json:"support_resistance"`
	TrendStrength     StrengthInfo   `json:"trend_strength"`
	Divergence        DivergenceInfo `json:"divergence"`
	Regime            RegimeInfo     `json:"volatility_regime"`
	HistoricalVol     HistVolInfo    `json:"historical_volatility"`
	ParkinsonVol      float64        `json:"parkinson_volatility"`
	BollingerSqueeze  SqueezeInfo    `json:"bollinger_squeeze"`
	Timestamp         string         `json:"timestamp"`
}
