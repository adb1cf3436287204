package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"market-risk-sentry/internal/strategy/engine"
)

type countingAnalyzer struct {
	mu    sync.Mutex
	runs  int
	stats int
}

func (c *countingAnalyzer) AnalyzeAll(ctx context.Context) map[string]*engine.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
	return map[string]*engine.Report{"BTC-USDT": {Symbol: "BTC-USDT"}}
}

func (c *countingAnalyzer) LogStats() {
	c.mu.Lock()
	c.stats++
	c.mu.Unlock()
}

func (c *countingAnalyzer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

type countingHousekeeper struct {
	mu    sync.Mutex
	calls int
}

func (h *countingHousekeeper) ClearOldAlerts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return 1
}

func (h *countingHousekeeper) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestNextKlineTime(t *testing.T) {
	s := NewScheduler(&countingAnalyzer{}, &countingHousekeeper{}, nil, 5*time.Minute, time.Hour)

	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 5, 1, 10, 3, 20, 0, time.UTC), time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)},
		{time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC), time.Date(2024, 5, 1, 10, 10, 0, 0, time.UTC)},
		{time.Date(2024, 5, 1, 23, 58, 0, 0, time.UTC), time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		now := tc.now
		s.now = func() time.Time { return now }
		if got := s.NextKlineTime(); !got.Equal(tc.want) {
			t.Errorf("NextKlineTime(%v) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestStartRunsImmediatelyAndCleans(t *testing.T) {
	analyzer := &countingAnalyzer{}
	housekeeper := &countingHousekeeper{}
	s := NewScheduler(analyzer, housekeeper, nil, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for analyzer.count() < 1 || housekeeper.count() < 1 {
		select {
		case <-deadline:
			t.Fatalf("runs=%d cleanups=%d", analyzer.count(), housekeeper.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("调度器未在ctx取消后退出")
	}
}
