package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"market-risk-sentry/pkg/types"
)

// defaultLimit GetAlerts 默认返回条数
const defaultLimit = 100

// mirrorTimeout 单条警报镜像写入超时
const mirrorTimeout = 3 * time.Second

// HistoryStore 警报历史持久化
type HistoryStore interface {
	Load() ([]*types.Alert, error)
	Save(alerts []*types.Alert) error
}

// Dispatcher 按渠道发送警报
type Dispatcher interface {
	Dispatch(alert *types.Alert)
	Has(channel types.AlertChannel) bool
}

// Mirror 警报的外部副本（如Redis），写入失败不影响警报本身
type Mirror interface {
	Append(ctx context.Context, alert *types.Alert) error
}

// Filter GetAlerts 过滤条件，零值字段不参与过滤
type Filter struct {
	Level    types.AlertLevel
	Category string
	Start    time.Time
	Limit    int
}

// Statistics 最近N小时的警报统计
type Statistics struct {
	Total      int                      `json:"total"`
	ByLevel    map[types.AlertLevel]int `json:"by_level"`
	ByCategory map[string]int           `json:"by_category"`
	TimeRange  string                   `json:"time_range"`
}

// System 警报系统：限流、渠道选择、分发与历史记录
type System struct {
	config       types.AlertConfig
	emailEnabled bool
	store        HistoryStore
	dispatcher   Dispatcher
	mirror       Mirror
	mirrorWG     sync.WaitGroup
	now          func() time.Time

	mu           sync.Mutex
	alerts       []*types.Alert
	alertCount   int
	lastAlert    map[string]time.Time
	hourlyCounts map[string]int
	unsaved      int
}

// Option 可选配置
type Option func(*System)

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *System) { s.now = now }
}

// WithMirror 设置外部副本
func WithMirror(m Mirror) Option {
	return func(s *System) { s.mirror = m }
}

// WithEmail 是否启用邮件渠道
func WithEmail(enabled bool) Option {
	return func(s *System) { s.emailEnabled = enabled }
}

// NewSystem 创建警报系统并加载历史
func NewSystem(config types.AlertConfig, store HistoryStore, dispatcher Dispatcher, opts ...Option) *System {
	if config.FlushEvery <= 0 {
		config.FlushEvery = 10
	}
	if config.MaxPerHour <= 0 {
		config.MaxPerHour = 10
	}
	if config.MinLevelForEmail == "" {
		config.MinLevelForEmail = types.AlertWarning
	}

	s := &System{
		config:       config,
		store:        store,
		dispatcher:   dispatcher,
		now:          time.Now,
		lastAlert:    map[string]time.Time{},
		hourlyCounts: map[string]int{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.loadHistory()
	zap.L().Info("警报系统初始化完成", zap.Int("history", len(s.alerts)))
	return s
}

// Trigger 触发警报；被限流时返回 (nil, false)。channels 为空时按级别自动选择
func (s *System) Trigger(level types.AlertLevel, category, title, message string, data map[string]interface{}, channels []types.AlertChannel) (*types.Alert, bool) {
	s.mu.Lock()

	now := s.now()
	if reason, ok := s.checkRateLimit(category, now); !ok {
		s.mu.Unlock()
		zap.L().Debug("警报被限流",
			zap.String("category", category),
			zap.String("title", title),
			zap.String("reason", reason))
		return nil, false
	}

	if len(channels) == 0 {
		channels = s.selectChannels(level)
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	s.alertCount++
	alert := &types.Alert{
		ID:        fmt.Sprintf("ALERT_%s_%04d", now.Format("20060102150405"), s.alertCount),
		Timestamp: now,
		Level:     level,
		Category:  category,
		Title:     title,
		Message:   message,
		Data:      data,
		Channels:  channels,
	}

	s.send(alert)

	s.alerts = append(s.alerts, alert)
	s.updateRateLimit(category, now)
	s.unsaved++
	flush := s.unsaved >= s.config.FlushEvery
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirrorWG.Add(1)
		go s.appendMirror(alert)
	}

	if flush {
		if err := s.Flush(); err != nil {
			zap.L().Error("保存警报历史失败", zap.Error(err))
		}
	}
	return alert, true
}

// appendMirror 异步写入外部副本，失败只记录日志
func (s *System) appendMirror(alert *types.Alert) {
	defer s.mirrorWG.Done()

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := s.mirror.Append(ctx, alert); err != nil {
		zap.L().Warn("警报镜像写入失败", zap.String("alert_id", alert.ID), zap.Error(err))
	}
}

// Info 信息级警报
func (s *System) Info(category, title, message string, data map[string]interface{}) (*types.Alert, bool) {
	return s.Trigger(types.AlertInfo, category, title, message, data, nil)
}

// Warning 警告级警报
func (s *System) Warning(category, title, message string, data map[string]interface{}) (*types.Alert, bool) {
	return s.Trigger(types.AlertWarning, category, title, message, data, nil)
}

// Critical 严重警报
func (s *System) Critical(category, title, message string, data map[string]interface{}) (*types.Alert, bool) {
	return s.Trigger(types.AlertCritical, category, title, message, data, nil)
}

// Emergency 紧急警报
func (s *System) Emergency(category, title, message string, data map[string]interface{}) (*types.Alert, bool) {
	return s.Trigger(types.AlertEmergency, category, title, message, data, nil)
}

// checkRateLimit 同类别最小间隔与每小时上限，两者都通过才放行
func (s *System) checkRateLimit(category string, now time.Time) (string, bool) {
	if last, ok := s.lastAlert[category]; ok && now.Sub(last) < s.config.MinInterval {
		return "min_interval", false
	}
	if s.hourlyCounts[hourKey(now)] >= s.config.MaxPerHour {
		return "max_per_hour", false
	}
	return "", true
}

func (s *System) updateRateLimit(category string, now time.Time) {
	s.lastAlert[category] = now
	s.hourlyCounts[hourKey(now)]++

	cutoff := hourKey(now.Add(-24 * time.Hour))
	for key := range s.hourlyCounts {
		if key < cutoff {
			delete(s.hourlyCounts, key)
		}
	}
}

func hourKey(t time.Time) string {
	return t.Format("2006010215")
}

// selectChannels 日志总是启用；邮件在启用且级别达到阈值时加入；严重及以上加入已配置的推送与webhook
func (s *System) selectChannels(level types.AlertLevel) []types.AlertChannel {
	channels := []types.AlertChannel{types.ChannelLog}

	if s.emailEnabled && level.Rank() >= s.config.MinLevelForEmail.Rank() && level.Rank() >= types.AlertWarning.Rank() {
		channels = append(channels, types.ChannelEmail)
	}

	if s.dispatcher != nil && level.Rank() >= types.AlertCritical.Rank() {
		for _, c := range []types.AlertChannel{types.ChannelPush, types.ChannelWebhook} {
			if s.dispatcher.Has(c) {
				channels = append(channels, c)
			}
		}
	}
	return channels
}

func (s *System) send(alert *types.Alert) {
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(alert)
	}
	sentAt := s.now()
	alert.IsSent = true
	alert.SentAt = &sentAt
}

// GetAlerts 按条件查询警报，时间倒序
func (s *System) GetAlerts(filter Filter) []*types.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var out []*types.Alert
	for _, a := range s.alerts {
		if filter.Level != "" && a.Level != filter.Level {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		if !filter.Start.IsZero() && a.Timestamp.Before(filter.Start) {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetStatistics 最近hours小时的警报统计
func (s *System) GetStatistics(hours int) Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-time.Duration(hours) * time.Hour)
	stats := Statistics{
		ByLevel:    map[types.AlertLevel]int{},
		ByCategory: map[string]int{},
		TimeRange:  fmt.Sprintf("最近%d小时", hours),
	}
	for _, level := range types.AlertLevels {
		stats.ByLevel[level] = 0
	}

	for _, a := range s.alerts {
		if a.Timestamp.Before(cutoff) {
			continue
		}
		stats.Total++
		stats.ByLevel[a.Level]++
		stats.ByCategory[a.Category]++
	}
	return stats
}

// ClearOldAlerts 删除超过保留天数的警报，有删除时重写历史文件
func (s *System) ClearOldAlerts() int {
	s.mu.Lock()
	cutoff := s.now().AddDate(0, 0, -s.config.MaxHistoryDays)
	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if !a.Timestamp.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := len(s.alerts) - len(kept)
	s.alerts = kept
	s.mu.Unlock()

	if removed > 0 {
		zap.L().Info("清理旧警报", zap.Int("removed", removed))
		if err := s.Flush(); err != nil {
			zap.L().Error("保存警报历史失败", zap.Error(err))
		}
	}
	return removed
}

// Flush 将全部历史写入存储
func (s *System) Flush() error {
	if s.store == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]*types.Alert, len(s.alerts))
	copy(snapshot, s.alerts)
	if err := s.store.Save(snapshot); err != nil {
		return err
	}
	s.unsaved = 0
	return nil
}

// Close 等待镜像写入完成并保存历史
func (s *System) Close() error {
	s.mirrorWG.Wait()
	return s.Flush()
}

func (s *System) loadHistory() {
	if s.store == nil {
		return
	}
	alerts, err := s.store.Load()
	if err != nil {
		zap.L().Error("加载警报历史失败", zap.Error(err))
		return
	}
	s.alerts = alerts
	if len(alerts) > 0 {
		zap.L().Info("加载警报历史", zap.Int("count", len(alerts)))
	}
}
