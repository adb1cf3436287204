package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"market-risk-sentry/pkg/types"
)

func kline(symbol string, minute int, close float64, confirmed bool) *types.KLine {
	open := time.Date(2024, 5, 1, 0, minute, 0, 0, time.UTC)
	return &types.KLine{
		Symbol:    symbol,
		OpenTime:  open,
		CloseTime: open.Add(time.Minute),
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    10,
		Interval:  "1m",
		Confirmed: confirmed,
	}
}

func TestKLineBufferCapacityAndOrder(t *testing.T) {
	buffer := NewKLineBuffer(3)
	for i := 0; i < 5; i++ {
		buffer.Add(kline("BTC-USDT", i, 100+float64(i), true))
	}
	if buffer.Length() != 3 {
		t.Fatalf("Length = %d, want 3", buffer.Length())
	}
	snapshot := buffer.Snapshot(false)
	if snapshot[0].Close != 102 || snapshot[2].Close != 104 {
		t.Errorf("应保留最新3根K线: %v %v", snapshot[0].Close, snapshot[2].Close)
	}

	if buffer.Add(kline("BTC-USDT", 1, 999, true)) {
		t.Error("乱序K线应被丢弃")
	}
}

func TestKLineBufferReplacesOpenCandle(t *testing.T) {
	buffer := NewKLineBuffer(10)
	buffer.Add(kline("ETH-USDT", 0, 100, true))
	buffer.Add(kline("ETH-USDT", 1, 101, false))
	buffer.Add(kline("ETH-USDT", 1, 102, true))

	if buffer.Length() != 2 {
		t.Fatalf("Length = %d, want 2", buffer.Length())
	}
	if latest := buffer.GetLatest(); latest.Close != 102 || !latest.Confirmed {
		t.Errorf("latest = %+v", latest)
	}

	buffer.Add(kline("ETH-USDT", 2, 103, false))
	if got := len(buffer.Snapshot(true)); got != 2 {
		t.Errorf("已确认K线 = %d, want 2", got)
	}
}

func TestKLineBufferSnapshotIsCopy(t *testing.T) {
	buffer := NewKLineBuffer(10)
	buffer.Add(kline("BTC-USDT", 0, 100, true))
	snapshot := buffer.Snapshot(false)
	snapshot[0].Close = 0
	if buffer.GetLatest().Close != 100 {
		t.Error("快照修改不应影响窗口")
	}
}

func TestKLineBufferLoadSorts(t *testing.T) {
	buffer := NewKLineBuffer(10)
	buffer.Load([]*types.KLine{
		kline("BTC-USDT", 2, 102, true),
		nil,
		kline("BTC-USDT", 0, 100, true),
		kline("BTC-USDT", 1, 101, true),
	})
	snapshot := buffer.Snapshot(false)
	if len(snapshot) != 3 || snapshot[0].Close != 100 || snapshot[2].Close != 102 {
		t.Errorf("snapshot = %v", snapshot)
	}
}

func TestBufferSet(t *testing.T) {
	set := NewBufferSet(5)
	set.Store(kline("ETH-USDT", 0, 100, true))
	set.Store(kline("BTC-USDT", 0, 100, true))
	set.Store(kline("BTC-USDT", 1, 101, true))

	symbols := set.GetAllSymbols()
	if len(symbols) != 2 || symbols[0] != "BTC-USDT" {
		t.Errorf("symbols = %v", symbols)
	}
	if set.Buffer("BTC-USDT").Length() != 2 {
		t.Errorf("BTC长度 = %d", set.Buffer("BTC-USDT").Length())
	}
	if set.Store(nil) {
		t.Error("nil K线不应写入")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "alert_history.json")
	store := NewFileStore(path)

	alerts, err := store.Load()
	if err != nil || alerts != nil {
		t.Fatalf("文件不存在时应返回空: %v %v", alerts, err)
	}

	sentAt := time.Date(2024, 5, 1, 8, 0, 1, 0, time.UTC)
	want := []*types.Alert{{
		ID:        "ALERT_20240501080000_0001",
		Timestamp: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Level:     types.AlertWarning,
		Category:  "risk:BTC-USDT:volatility",
		Title:     "波动率过高",
		Message:   "年化波动率55.0%",
		Data:      map[string]interface{}{"metric_value": 0.55},
		Channels:  []types.AlertChannel{types.ChannelLog},
		IsSent:    true,
		SentAt:    &sentAt,
	}}
	if err := store.Save(want); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if len(got) != 1 || got[0].ID != want[0].ID || !got[0].Timestamp.Equal(want[0].Timestamp) || got[0].SentAt == nil {
		t.Errorf("got = %+v", got[0])
	}
	if got[0].Data["metric_value"].(float64) != 0.55 {
		t.Errorf("data = %v", got[0].Data)
	}
}

func TestFileStoreEmptyHistoryIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := NewFileStore(path).Save(nil); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("空历史应写为[], got %s", data)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("损坏的历史文件应返回错误")
	}
}

func TestRedisMirrorDisabledWithoutURL(t *testing.T) {
	mirror := NewRedisMirror(types.RedisConfig{}, time.Hour)
	if mirror.Enabled() {
		t.Fatal("未配置URL时不应启用")
	}
	ctx := context.Background()
	if err := mirror.Append(ctx, &types.Alert{Level: types.AlertInfo}); err != nil {
		t.Errorf("未启用时Append应为空操作: %v", err)
	}
	if alerts, err := mirror.Recent(ctx, types.AlertInfo, time.Time{}); alerts != nil || err != nil {
		t.Errorf("Recent = %v, %v", alerts, err)
	}
	if stats := mirror.Stats(ctx); stats["redis_enabled"] != false {
		t.Errorf("stats = %v", stats)
	}
	if err := mirror.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}
