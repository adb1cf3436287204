package storage

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"market-risk-sentry/pkg/types"
)

// memoryRedis 内存实现的有序集合，只覆盖镜像用到的命令
type memoryRedis struct {
	mu        sync.Mutex
	sets      map[string][]redis.Z
	ttl       map[string]time.Duration
	pingErr   error
	expireErr error
	trimErr   error
	trimmed   []string
	closed    bool
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{sets: map[string][]redis.Z{}, ttl: map[string]time.Duration{}}
}

func (m *memoryRedis) Ping(ctx context.Context) *redis.StatusCmd {
	if m.pingErr != nil {
		return redis.NewStatusResult("", m.pingErr)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryRedis) ZAdd(ctx context.Context, key string, members ...*redis.Z) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, z := range members {
		member := z.Member
		if b, ok := member.([]byte); ok {
			member = string(b)
		}
		m.sets[key] = append(m.sets[key], redis.Z{Score: z.Score, Member: member})
	}
	sort.SliceStable(m.sets[key], func(i, j int) bool { return m.sets[key][i].Score < m.sets[key][j].Score })
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *memoryRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if m.expireErr != nil {
		return redis.NewBoolResult(false, m.expireErr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttl[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *memoryRedis) ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd {
	if m.trimErr != nil {
		return redis.NewIntResult(0, m.trimErr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimmed = append(m.trimmed, min+" "+max)
	var kept []redis.Z
	removed := 0
	for _, z := range m.sets[key] {
		if inRange(z.Score, min, max) {
			removed++
			continue
		}
		kept = append(kept, z)
	}
	m.sets[key] = kept
	return redis.NewIntResult(int64(removed), nil)
}

func (m *memoryRedis) ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, z := range m.sets[key] {
		if inRange(z.Score, opt.Min, opt.Max) {
			out = append(out, z.Member.(string))
		}
	}
	return redis.NewStringSliceResult(out, nil)
}

func (m *memoryRedis) Keys(ctx context.Context, pattern string) *redis.StringSliceCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for key, set := range m.sets {
		if strings.HasPrefix(key, prefix) && len(set) > 0 {
			out = append(out, key)
		}
	}
	return redis.NewStringSliceResult(out, nil)
}

func (m *memoryRedis) Close() error {
	m.closed = true
	return nil
}

func (m *memoryRedis) size(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets[key])
}

// inRange 解析 Redis 分数区间语法：-inf / +inf / (n 开区间
func inRange(score float64, min, max string) bool {
	lo, loOpen := parseBound(min)
	hi, hiOpen := parseBound(max)
	if score < lo || (loOpen && score == lo) {
		return false
	}
	if score > hi || (hiOpen && score == hi) {
		return false
	}
	return true
}

func parseBound(s string) (float64, bool) {
	switch s {
	case "-inf":
		return math.Inf(-1), false
	case "+inf":
		return math.Inf(1), false
	}
	open := strings.HasPrefix(s, "(")
	v, _ := strconv.ParseFloat(strings.TrimPrefix(s, "("), 64)
	return v, open
}

func useMemoryRedis(t *testing.T, client *memoryRedis) {
	t.Helper()
	orig := newRedisClient
	t.Cleanup(func() { newRedisClient = orig })

	newRedisClient = func(opts *redis.Options) redisClient {
		return client
	}
}

func TestRedisMirrorAppendAndRecent(t *testing.T) {
	client := newMemoryRedis()
	useMemoryRedis(t, client)

	mirror := NewRedisMirror(types.RedisConfig{URL: "redis:6379", KeyPrefix: "test:alerts"}, time.Hour)
	if !mirror.Enabled() {
		t.Fatal("Ping成功后应启用")
	}

	ctx := context.Background()
	now := time.Now()
	alerts := []*types.Alert{
		{ID: "A1", Level: types.AlertCritical, Category: "risk", Title: "old", Timestamp: now.Add(-30 * time.Minute)},
		{ID: "A2", Level: types.AlertCritical, Category: "risk", Title: "new", Timestamp: now},
		{ID: "A3", Level: types.AlertInfo, Category: "system", Title: "info", Timestamp: now},
	}
	for _, a := range alerts {
		if err := mirror.Append(ctx, a); err != nil {
			t.Fatalf("Append(%s): %v", a.ID, err)
		}
	}

	if client.ttl["test:alerts:critical"] != time.Hour {
		t.Errorf("ttl = %v", client.ttl)
	}
	if len(client.trimmed) != 3 || !strings.HasPrefix(client.trimmed[0], "0 (") {
		t.Errorf("trimmed = %v", client.trimmed)
	}

	got, err := mirror.Recent(ctx, types.AlertCritical, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "A2" {
		t.Errorf("Recent = %+v", got)
	}

	all, _ := mirror.Recent(ctx, types.AlertCritical, time.Time{})
	if len(all) != 2 || all[0].ID != "A1" || all[1].ID != "A2" {
		t.Errorf("Recent应按时间升序: %+v", all)
	}
}

func TestRedisMirrorRetentionTrimsOldAlerts(t *testing.T) {
	client := newMemoryRedis()
	useMemoryRedis(t, client)

	mirror := NewRedisMirror(types.RedisConfig{URL: "redis:6379"}, time.Hour)
	ctx := context.Background()
	old := &types.Alert{ID: "OLD", Level: types.AlertWarning, Timestamp: time.Now().Add(-2 * time.Hour)}
	fresh := &types.Alert{ID: "NEW", Level: types.AlertWarning, Timestamp: time.Now()}

	if err := mirror.Append(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := mirror.Append(ctx, fresh); err != nil {
		t.Fatal(err)
	}
	if n := client.size("sentry:alerts:warning"); n != 1 {
		t.Errorf("超出保留期的警报应被清理, size = %d", n)
	}
}

func TestRedisMirrorTrimErrorsDoNotFailAppend(t *testing.T) {
	client := newMemoryRedis()
	client.expireErr = errors.New("expire failed")
	client.trimErr = errors.New("trim failed")
	useMemoryRedis(t, client)

	mirror := NewRedisMirror(types.RedisConfig{URL: "redis:6379"}, time.Hour)
	alert := &types.Alert{ID: "A", Level: types.AlertInfo, Timestamp: time.Now()}
	if err := mirror.Append(context.Background(), alert); err != nil {
		t.Errorf("清理失败只记录日志, Append = %v", err)
	}
	if n := client.size("sentry:alerts:info"); n != 1 {
		t.Errorf("size = %d", n)
	}
}

func TestRedisMirrorStats(t *testing.T) {
	client := newMemoryRedis()
	useMemoryRedis(t, client)

	mirror := NewRedisMirror(types.RedisConfig{URL: "redis:6379"}, 0)
	ctx := context.Background()
	now := time.Now()
	for _, a := range []*types.Alert{
		{ID: "1", Level: types.AlertCritical, Timestamp: now},
		{ID: "2", Level: types.AlertCritical, Timestamp: now.Add(-time.Hour)},
		{ID: "3", Level: types.AlertInfo, Timestamp: now.Add(-48 * time.Hour)},
	} {
		if err := mirror.Append(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	stats := mirror.Stats(ctx)
	if stats["redis_enabled"] != true || stats["redis_keys"] != 2 {
		t.Fatalf("stats = %v", stats)
	}
	recent, ok := stats["recent_24h"].(map[types.AlertLevel]int)
	if !ok {
		t.Fatalf("recent_24h = %T", stats["recent_24h"])
	}
	if recent[types.AlertCritical] != 2 || recent[types.AlertInfo] != 0 {
		t.Errorf("recent_24h = %v", recent)
	}

	if err := mirror.Close(); err != nil || !client.closed {
		t.Errorf("Close = %v, closed = %v", err, client.closed)
	}
}

func TestRedisMirrorPingFailureDisables(t *testing.T) {
	client := newMemoryRedis()
	client.pingErr = errors.New("connection refused")
	useMemoryRedis(t, client)

	mirror := NewRedisMirror(types.RedisConfig{URL: "redis:6379"}, time.Hour)
	if mirror.Enabled() {
		t.Error("Ping失败时不应启用")
	}
	if !client.closed {
		t.Error("Ping失败时应关闭连接")
	}
}
