package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"market-risk-sentry/pkg/types"
)

// requestGap 连续请求间隔，OKX限速 20次/2s
const requestGap = 200 * time.Millisecond

// HistoryKlineFetcher 历史K线数据获取器
type HistoryKlineFetcher struct {
	endpoint   string
	httpClient *http.Client
}

// OKXHistoryKlineResponse OKX历史K线API响应
type OKXHistoryKlineResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// NewHistoryKlineFetcher 创建历史K线获取器
func NewHistoryKlineFetcher(endpoint string, network types.NetworkConfig) *HistoryKlineFetcher {
	client := &http.Client{
		Timeout: network.Timeout,
	}

	if network.Proxy != "" {
		proxyURL, err := url.Parse(network.Proxy)
		if err == nil {
			client.Transport = &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			}
		} else {
			zap.L().Warn("代理地址无效，忽略", zap.String("proxy", network.Proxy), zap.Error(err))
		}
	}

	return &HistoryKlineFetcher{
		endpoint:   endpoint,
		httpClient: client,
	}
}

// FetchHistoryKlines 获取历史K线数据，按开盘时间升序返回
func (h *HistoryKlineFetcher) FetchHistoryKlines(ctx context.Context, symbol, interval string, limit int) ([]*types.KLine, error) {
	query := url.Values{}
	query.Set("instId", symbol)
	query.Set("bar", interval)
	query.Set("limit", strconv.Itoa(limit))
	requestURL := h.endpoint + "?" + query.Encode()

	zap.L().Info("📊 获取历史K线数据",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("limit", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "Market-Risk-Sentry/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP响应错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var okxResponse OKXHistoryKlineResponse
	if err := json.Unmarshal(body, &okxResponse); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}

	if okxResponse.Code != "0" {
		return nil, fmt.Errorf("OKX API返回错误: code=%s, msg=%s", okxResponse.Code, okxResponse.Msg)
	}

	klines := make([]*types.KLine, 0, len(okxResponse.Data))
	for _, data := range okxResponse.Data {
		kline, err := ParseCandle(symbol, interval, data)
		if err != nil {
			zap.L().Warn("解析历史K线数据失败", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		klines = append(klines, kline)
	}

	// OKX返回从新到旧，反转为从旧到新
	reverseKlines(klines)

	zap.L().Info("✅ 历史K线数据获取完成",
		zap.String("symbol", symbol),
		zap.Int("requested", limit),
		zap.Int("received", len(klines)))

	return klines, nil
}

// FetchMultipleSymbolsHistory 批量获取多个交易对的历史数据，单个交易对失败不影响其他
func (h *HistoryKlineFetcher) FetchMultipleSymbolsHistory(ctx context.Context, symbols []string, interval string, limit int) map[string][]*types.KLine {
	result := make(map[string][]*types.KLine)

	for i, symbol := range symbols {
		if i > 0 {
			select {
			case <-ctx.Done():
				return result
			case <-time.After(requestGap):
			}
		}

		klines, err := h.FetchHistoryKlines(ctx, symbol, interval, limit)
		if err != nil {
			zap.L().Error("获取历史K线失败", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		result[symbol] = klines
	}

	return result
}

// ParseCandle 解析OKX K线数组 [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]
// 成交量或确认位缺失时视为0与已确认
func ParseCandle(symbol, interval string, data []string) (*types.KLine, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("K线数据格式不正确: %d个字段", len(data))
	}

	timestamp, err := strconv.ParseInt(data[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("解析时间戳失败: %w", err)
	}

	prices := make([]float64, 4)
	names := []string{"开盘价", "最高价", "最低价", "收盘价"}
	for i := range prices {
		prices[i], err = strconv.ParseFloat(data[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("解析%s失败: %w", names[i], err)
		}
	}

	volume := 0.0
	if len(data) > 5 && data[5] != "" {
		if volume, err = strconv.ParseFloat(data[5], 64); err != nil {
			return nil, fmt.Errorf("解析成交量失败: %w", err)
		}
	}

	confirmed := true
	if len(data) > 8 {
		confirmed = data[8] == "1"
	}

	openTime := time.UnixMilli(timestamp).UTC()
	return &types.KLine{
		Symbol:    symbol,
		OpenTime:  openTime,
		CloseTime: openTime.Add(types.IntervalDuration(interval)),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
		Interval:  interval,
		Confirmed: confirmed,
	}, nil
}

func reverseKlines(klines []*types.KLine) {
	for i, j := 0, len(klines)-1; i < j; i, j = i+1, j-1 {
		klines[i], klines[j] = klines[j], klines[i]
	}
}
