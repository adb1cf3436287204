package types

import (
	"fmt"
	"math"
	"time"
)

// KLine 交易所K线数据（websocket/REST/数据库之间流转）
type KLine struct {
	Symbol    string    `json:"symbol"`
	OpenTime  time.Time `json:"open_time"`
	CloseTime time.Time `json:"close_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Interval  string    `json:"interval"` // 15m
	Confirmed bool      `json:"confirmed"`
}

// PriceBar 单根OHLCV价格柱
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries 按时间严格递增的价格序列，引擎只读不写
type PriceSeries struct {
	Symbol   string     `json:"symbol"`
	Interval string     `json:"interval"`
	Bars     []PriceBar `json:"bars"`
}

// NewPriceSeries 校验并创建价格序列
func NewPriceSeries(symbol, interval string, bars []PriceBar) (*PriceSeries, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: 价格序列为空", ErrInvalidSeries)
	}

	for i, bar := range bars {
		for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close, bar.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: 第%d根K线存在非有限数值", ErrInvalidSeries, i)
			}
		}
		if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
			return nil, fmt.Errorf("%w: 第%d根K线价格必须为正数", ErrInvalidSeries, i)
		}
		if bar.Volume < 0 {
			return nil, fmt.Errorf("%w: 第%d根K线成交量为负数", ErrInvalidSeries, i)
		}
		if bar.High < bar.Low {
			return nil, fmt.Errorf("%w: 第%d根K线最高价低于最低价", ErrInvalidSeries, i)
		}
		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: 第%d根K线时间戳未严格递增", ErrInvalidSeries, i)
		}
	}

	copied := make([]PriceBar, len(bars))
	copy(copied, bars)

	return &PriceSeries{Symbol: symbol, Interval: interval, Bars: copied}, nil
}

// SeriesFromKLines 将K线转换为价格序列
func SeriesFromKLines(symbol, interval string, klines []*KLine) (*PriceSeries, error) {
	bars := make([]PriceBar, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		bars = append(bars, PriceBar{
			Timestamp: k.OpenTime.UTC(),
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
		})
	}
	return NewPriceSeries(symbol, interval, bars)
}

// Len 序列长度
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last 最新一根K线
func (s *PriceSeries) Last() PriceBar {
	return s.Bars[len(s.Bars)-1]
}

// Tail 返回最后n根K线组成的新序列（n超过长度时返回全部）
func (s *PriceSeries) Tail(n int) *PriceSeries {
	if n >= len(s.Bars) || n <= 0 {
		return &PriceSeries{Symbol: s.Symbol, Interval: s.Interval, Bars: s.Bars}
	}
	return &PriceSeries{Symbol: s.Symbol, Interval: s.Interval, Bars: s.Bars[len(s.Bars)-n:]}
}

func (s *PriceSeries) Closes() []float64 {
	return s.column(func(b PriceBar) float64 { return b.Close })
}

func (s *PriceSeries) Highs() []float64 {
	return s.column(func(b PriceBar) float64 { return b.High })
}

func (s *PriceSeries) Lows() []float64 {
	return s.column(func(b PriceBar) float64 { return b.Low })
}

func (s *PriceSeries) Volumes() []float64 {
	return s.column(func(b PriceBar) float64 { return b.Volume })
}

func (s *PriceSeries) column(pick func(PriceBar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = pick(b)
	}
	return out
}

// Returns 收盘价简单收益率序列（长度为n-1）
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// IntervalDuration K线周期字符串对应的时长，未知周期返回0
func IntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1H", "1h":
		return time.Hour
	case "2H", "2h":
		return 2 * time.Hour
	case "4H", "4h":
		return 4 * time.Hour
	case "6H", "6h":
		return 6 * time.Hour
	case "12H", "12h":
		return 12 * time.Hour
	case "1D", "1d":
		return 24 * time.Hour
	case "1W", "1w":
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}
