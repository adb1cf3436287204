package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"market-risk-sentry/pkg/types"
)

// redisClient 镜像用到的Redis命令
type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	ZAdd(ctx context.Context, key string, members ...*redis.Z) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd
	ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Close() error
}

var newRedisClient = func(opts *redis.Options) redisClient {
	return redis.NewClient(opts)
}

// statsWindow Stats 统计最近警报的时间窗口
const statsWindow = 24 * time.Hour

// RedisMirror 将警报写入Redis有序集合（分数为时间戳），供其他进程查询
type RedisMirror struct {
	client    redisClient
	keyPrefix string
	retention time.Duration
	useRedis  bool
}

// NewRedisMirror 连接Redis，未配置或连接失败时返回未启用的镜像
func NewRedisMirror(redisConfig types.RedisConfig, retention time.Duration) *RedisMirror {
	rm := &RedisMirror{
		keyPrefix: redisConfig.KeyPrefix,
		retention: retention,
	}
	if rm.keyPrefix == "" {
		rm.keyPrefix = "sentry:alerts"
	}

	if redisConfig.URL == "" {
		zap.L().Info("🔧 未配置Redis，警报仅保存到本地文件")
		return rm
	}

	rm.client = newRedisClient(&redis.Options{
		Addr:     redisConfig.URL,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rm.client.Ping(ctx).Result(); err != nil {
		zap.L().Warn("⚠️ Redis连接失败，警报仅保存到本地文件", zap.Error(err))
		_ = rm.client.Close()
		rm.client = nil
		return rm
	}

	zap.L().Info("✅ Redis连接成功", zap.String("addr", redisConfig.URL))
	rm.useRedis = true
	return rm
}

// Enabled 是否已连接Redis
func (rm *RedisMirror) Enabled() bool {
	return rm != nil && rm.useRedis
}

func (rm *RedisMirror) key(level types.AlertLevel) string {
	return fmt.Sprintf("%s:%s", rm.keyPrefix, level)
}

// Append 写入一条警报并清理超过保留期的数据
func (rm *RedisMirror) Append(ctx context.Context, alert *types.Alert) error {
	if !rm.Enabled() || alert == nil {
		return nil
	}

	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("序列化警报失败: %w", err)
	}

	key := rm.key(alert.Level)
	if err := rm.client.ZAdd(ctx, key, &redis.Z{
		Score:  float64(alert.Timestamp.Unix()),
		Member: value,
	}).Err(); err != nil {
		return fmt.Errorf("Redis存储失败 %s: %w", key, err)
	}

	if rm.retention > 0 {
		if err := rm.client.Expire(ctx, key, rm.retention).Err(); err != nil {
			zap.L().Warn("设置Redis过期时间失败", zap.String("key", key), zap.Error(err))
		}
		cutoff := time.Now().Add(-rm.retention).Unix()
		if err := rm.client.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("(%d", cutoff)).Err(); err != nil {
			zap.L().Warn("清理过期警报失败", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Recent 读取某级别自since以来的警报，按时间升序
func (rm *RedisMirror) Recent(ctx context.Context, level types.AlertLevel, since time.Time) ([]*types.Alert, error) {
	if !rm.Enabled() {
		return nil, nil
	}

	members, err := rm.client.ZRangeByScore(ctx, rm.key(level), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.Unix()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("Redis读取失败: %w", err)
	}

	alerts := make([]*types.Alert, 0, len(members))
	for _, m := range members {
		var a types.Alert
		if err := json.Unmarshal([]byte(m), &a); err != nil {
			zap.L().Warn("跳过无法解析的警报", zap.Error(err))
			continue
		}
		alerts = append(alerts, &a)
	}
	return alerts, nil
}

// Stats Redis镜像状态
func (rm *RedisMirror) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"redis_enabled": rm.Enabled(),
	}
	if !rm.Enabled() {
		return stats
	}

	keys, err := rm.client.Keys(ctx, rm.keyPrefix+":*").Result()
	if err != nil {
		stats["redis_error"] = err.Error()
		return stats
	}
	stats["redis_keys"] = len(keys)

	since := time.Now().Add(-statsWindow)
	recent := map[types.AlertLevel]int{}
	for _, level := range types.AlertLevels {
		alerts, err := rm.Recent(ctx, level, since)
		if err != nil {
			stats["redis_error"] = err.Error()
			return stats
		}
		recent[level] = len(alerts)
	}
	stats["recent_24h"] = recent
	return stats
}

// Close 关闭连接
func (rm *RedisMirror) Close() error {
	if rm == nil || rm.client == nil {
		return nil
	}
	return rm.client.Close()
}
