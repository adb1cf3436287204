package storage

import (
	"sort"
	"sync"

	"market-risk-sentry/pkg/types"
)

// KLineBuffer 单个交易对的K线窗口，按开盘时间升序，超过容量时丢弃最旧的K线
type KLineBuffer struct {
	data     []*types.KLine
	capacity int
	mutex    sync.RWMutex
}

func NewKLineBuffer(capacity int) *KLineBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &KLineBuffer{
		data:     make([]*types.KLine, 0, capacity),
		capacity: capacity,
	}
}

// Add 追加或更新K线：开盘时间相同的未确认K线被替换，早于最新K线的乱序数据被丢弃
func (kb *KLineBuffer) Add(kline *types.KLine) bool {
	if kline == nil {
		return false
	}

	kb.mutex.Lock()
	defer kb.mutex.Unlock()

	if n := len(kb.data); n > 0 {
		last := kb.data[n-1]
		switch {
		case kline.OpenTime.Equal(last.OpenTime):
			kb.data[n-1] = kline
			return true
		case kline.OpenTime.Before(last.OpenTime):
			return false
		}
	}

	kb.data = append(kb.data, kline)
	if len(kb.data) > kb.capacity {
		kb.data = kb.data[len(kb.data)-kb.capacity:]
	}
	return true
}

// Load 用历史K线初始化窗口
func (kb *KLineBuffer) Load(klines []*types.KLine) {
	sorted := make([]*types.KLine, 0, len(klines))
	for _, k := range klines {
		if k != nil {
			sorted = append(sorted, k)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OpenTime.Before(sorted[j].OpenTime)
	})

	kb.mutex.Lock()
	kb.data = kb.data[:0]
	kb.mutex.Unlock()

	for _, k := range sorted {
		kb.Add(k)
	}
}

// Snapshot 当前窗口的拷贝，confirmedOnly 时只返回已收盘的K线
func (kb *KLineBuffer) Snapshot(confirmedOnly bool) []*types.KLine {
	kb.mutex.RLock()
	defer kb.mutex.RUnlock()

	out := make([]*types.KLine, 0, len(kb.data))
	for _, k := range kb.data {
		if confirmedOnly && !k.Confirmed {
			continue
		}
		copied := *k
		out = append(out, &copied)
	}
	return out
}

func (kb *KLineBuffer) GetLatest() *types.KLine {
	kb.mutex.RLock()
	defer kb.mutex.RUnlock()

	if len(kb.data) == 0 {
		return nil
	}
	copied := *kb.data[len(kb.data)-1]
	return &copied
}

func (kb *KLineBuffer) Length() int {
	kb.mutex.RLock()
	defer kb.mutex.RUnlock()
	return len(kb.data)
}

// BufferSet 按交易对管理K线窗口
type BufferSet struct {
	buffers  map[string]*KLineBuffer
	capacity int
	mutex    sync.RWMutex
}

func NewBufferSet(capacity int) *BufferSet {
	return &BufferSet{
		buffers:  make(map[string]*KLineBuffer),
		capacity: capacity,
	}
}

// Buffer 获取或创建交易对的窗口
func (bs *BufferSet) Buffer(symbol string) *KLineBuffer {
	bs.mutex.RLock()
	buffer := bs.buffers[symbol]
	bs.mutex.RUnlock()
	if buffer != nil {
		return buffer
	}

	bs.mutex.Lock()
	defer bs.mutex.Unlock()
	if bs.buffers[symbol] == nil {
		bs.buffers[symbol] = NewKLineBuffer(bs.capacity)
	}
	return bs.buffers[symbol]
}

// Store 写入一根K线
func (bs *BufferSet) Store(kline *types.KLine) bool {
	if kline == nil {
		return false
	}
	return bs.Buffer(kline.Symbol).Add(kline)
}

func (bs *BufferSet) GetAllSymbols() []string {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	symbols := make([]string, 0, len(bs.buffers))
	for symbol := range bs.buffers {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
