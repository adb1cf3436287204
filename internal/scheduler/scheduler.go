package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"market-risk-sentry/internal/strategy/engine"
)

// Analyzer 周期性分析入口
type Analyzer interface {
	AnalyzeAll(ctx context.Context) map[string]*engine.Report
	LogStats()
}

// Housekeeper 警报历史清理
type Housekeeper interface {
	ClearOldAlerts() int
}

// StatsProvider 存储状态
type StatsProvider interface {
	Stats(ctx context.Context) map[string]interface{}
}

// Scheduler 调度器：对齐到K线时间执行分析，按固定间隔清理警报历史
type Scheduler struct {
	analyzer        Analyzer
	housekeeper     Housekeeper
	stats           StatsProvider
	monitorPeriod   time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// NewScheduler 创建调度器，stats 可为nil
func NewScheduler(analyzer Analyzer, housekeeper Housekeeper, stats StatsProvider, monitorPeriod, cleanupInterval time.Duration) *Scheduler {
	if monitorPeriod <= 0 {
		monitorPeriod = 5 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	return &Scheduler{
		analyzer:        analyzer,
		housekeeper:     housekeeper,
		stats:           stats,
		monitorPeriod:   monitorPeriod,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
	}
}

// Start 阻塞运行直到ctx取消
func (s *Scheduler) Start(ctx context.Context) {
	zap.L().Info("🚀 调度器启动中...", zap.Duration("period", s.monitorPeriod))

	go s.cleanupLoop(ctx)

	// 启动后先跑一轮，避免等待整个周期
	s.RunAnalysis(ctx)

	for {
		next := s.NextKlineTime()
		wait := next.Sub(s.now())

		zap.L().Info("⏰ 下次分析时间",
			zap.String("at", next.Format("15:04:05")),
			zap.Duration("wait", wait))

		select {
		case <-ctx.Done():
			zap.L().Info("📴 调度器已停止")
			return
		case <-time.After(wait):
			s.RunAnalysis(ctx)
		}
	}
}

// RunAnalysis 执行一轮分析
func (s *Scheduler) RunAnalysis(ctx context.Context) int {
	zap.L().Info("--- 风险分析任务 ---", zap.String("time", s.now().Format("15:04:05")))

	if s.stats != nil {
		zap.L().Info("📊 存储状态", zap.Any("stats", s.stats.Stats(ctx)))
	}

	reports := s.analyzer.AnalyzeAll(ctx)
	s.analyzer.LogStats()

	zap.L().Info("--- 分析任务完成 ---", zap.Int("symbols", len(reports)))
	return len(reports)
}

func (s *Scheduler) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.housekeeper.ClearOldAlerts(); removed > 0 {
				zap.L().Info("🧹 清理过期警报", zap.Int("removed", removed))
			}
		}
	}
}

// NextKlineTime 下一个监控周期整点，如5分钟周期在 10:03 返回 10:05
func (s *Scheduler) NextKlineTime() time.Time {
	now := s.now()
	aligned := now.Truncate(s.monitorPeriod)
	return aligned.Add(s.monitorPeriod)
}
