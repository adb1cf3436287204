package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"market-risk-sentry/pkg/types"
)

func TestFetchHistoryKlines(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`{"code":"0","msg":"","data":[
			["1714608000000","102","105","101","104","12.5","0","0","0"],
			["1714521600000","100","103","99","102","10","0","0","1"],
			["bad","1","1","1","1"]
		]}`))
	}))
	defer server.Close()

	f := NewHistoryKlineFetcher(server.URL, types.NetworkConfig{Timeout: time.Second})
	klines, err := f.FetchHistoryKlines(context.Background(), "BTC-USDT", "1D", 3)
	if err != nil {
		t.Fatalf("获取失败: %v", err)
	}

	if query != "bar=1D&instId=BTC-USDT&limit=3" {
		t.Errorf("query = %s", query)
	}
	if len(klines) != 2 {
		t.Fatalf("应跳过无法解析的K线, got %d", len(klines))
	}
	if klines[0].Close != 102 || !klines[0].Confirmed {
		t.Errorf("第一根应为较早的已确认K线: %+v", klines[0])
	}
	if klines[1].Volume != 12.5 || klines[1].Confirmed {
		t.Errorf("第二根 = %+v", klines[1])
	}
	if !klines[1].CloseTime.Equal(klines[1].OpenTime.Add(24 * time.Hour)) {
		t.Errorf("CloseTime = %v", klines[1].CloseTime)
	}
}

func TestFetchHistoryKlinesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	}))
	defer server.Close()

	f := NewHistoryKlineFetcher(server.URL, types.NetworkConfig{Timeout: time.Second})
	if _, err := f.FetchHistoryKlines(context.Background(), "NOPE-USDT", "1D", 10); err == nil {
		t.Fatal("API错误应返回error")
	}

	result := f.FetchMultipleSymbolsHistory(context.Background(), []string{"NOPE-USDT"}, "1D", 10)
	if len(result) != 0 {
		t.Errorf("失败的交易对不应出现在结果中: %v", result)
	}
}

func TestParseCandle(t *testing.T) {
	k, err := ParseCandle("ETH-USDT", "4H", []string{"1714521600000", "1", "2", "0.5", "1.5"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if k.Volume != 0 || !k.Confirmed || k.CloseTime.Sub(k.OpenTime) != 4*time.Hour {
		t.Errorf("k = %+v", k)
	}

	if _, err := ParseCandle("ETH-USDT", "4H", []string{"1714521600000", "1", "x", "0.5", "1.5"}); err == nil {
		t.Error("非法价格应返回错误")
	}
	if _, err := ParseCandle("ETH-USDT", "4H", []string{"1"}); err == nil {
		t.Error("字段不足应返回错误")
	}
}
