package database

import (
	"testing"
	"time"

	"market-risk-sentry/pkg/types"
)

func TestDSN(t *testing.T) {
	dsn := DSN(types.MySQLConfig{
		Host:     "db",
		Port:     3307,
		Username: "sentry",
		Password: "secret",
		Database: "market_risk",
	})
	want := "sentry:secret@tcp(db:3307)/market_risk?charset=utf8mb4&parseTime=True&loc=Local"
	if dsn != want {
		t.Errorf("DSN = %s, want %s", dsn, want)
	}
}

func TestKLineModelRoundTrip(t *testing.T) {
	open := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	k := &types.KLine{
		Symbol:    "BTC-USDT",
		Interval:  "1D",
		OpenTime:  open,
		CloseTime: open.Add(24 * time.Hour),
		Open:      60000,
		High:      61000,
		Low:       59000,
		Close:     60500,
		Volume:    1234.5,
		Confirmed: true,
	}

	row := toKLineModel(k)
	if row.OpenTime != open.UnixMilli() {
		t.Errorf("OpenTime = %d", row.OpenTime)
	}

	back := fromKLineModel(row)
	if !back.OpenTime.Equal(k.OpenTime) || !back.CloseTime.Equal(k.CloseTime) {
		t.Errorf("时间不一致: %+v", back)
	}
	if back.Close != k.Close || back.Volume != k.Volume || !back.Confirmed || back.Interval != "1D" {
		t.Errorf("字段不一致: %+v", back)
	}
}
