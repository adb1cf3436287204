package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"market-risk-sentry/internal/alert"
	"market-risk-sentry/internal/notifier"
	"market-risk-sentry/internal/scheduler"
	"market-risk-sentry/internal/storage"
	"market-risk-sentry/internal/strategy/database"
	"market-risk-sentry/internal/strategy/engine"
	"market-risk-sentry/internal/strategy/fetcher"
	"market-risk-sentry/internal/strategy/websocket"
	"market-risk-sentry/pkg/types"
)

// shutdownTimeout 优雅关闭最长等待时间
const shutdownTimeout = 30 * time.Second

// App 应用程序管理器
type App struct {
	config *types.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dispatcher *notifier.Dispatcher
	mirror     *storage.RedisMirror
	alerts     *alert.System
	db         *database.Manager
	wsClient   *websocket.Client
	engine     *engine.Engine
}

// NewApp 创建应用程序实例
func NewApp(config *types.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 组装各模块并启动后台任务
func (app *App) Start() error {
	cfg := app.config
	zap.L().Info("🚀 Market Risk Sentry 启动中...",
		zap.Strings("symbols", cfg.Market.Symbols),
		zap.String("interval", cfg.Market.Interval))

	app.dispatcher = notifier.FromConfig(cfg)
	app.mirror = storage.NewRedisMirror(cfg.Redis, time.Duration(cfg.Alert.MaxHistoryDays)*24*time.Hour)

	alertOpts := []alert.Option{alert.WithEmail(cfg.Email.Enabled)}
	if app.mirror.Enabled() {
		alertOpts = append(alertOpts, alert.WithMirror(app.mirror))
	}
	app.alerts = alert.NewSystem(cfg.Alert, storage.NewFileStore(cfg.Alert.HistoryFile), app.dispatcher, alertOpts...)

	var engineOpts []engine.Option
	if cfg.Database.MySQL.Enabled {
		db, err := database.NewManager(cfg.Database.MySQL)
		if err != nil {
			zap.L().Error("❌ MySQL不可用，分析快照不落库", zap.Error(err))
		} else {
			app.db = db
			engineOpts = append(engineOpts, engine.WithStore(db))
		}
	}
	app.engine = engine.NewEngine(cfg, app.alerts, engineOpts...)

	history := fetcher.NewHistoryKlineFetcher(cfg.Market.RESTEndpoint, cfg.Network)
	if loaded := app.engine.Bootstrap(app.ctx, history); loaded == 0 {
		zap.L().Warn("⚠️ 未获取到任何历史K线，等待实时数据")
	}

	var source engine.KlineSource
	if cfg.WebSocket.Enabled {
		if err := app.startWebSocket(); err != nil {
			return fmt.Errorf("启动WebSocket失败: %w", err)
		}
		source = app.wsClient
	}
	app.engine.Start(app.ctx, source)

	var stats scheduler.StatsProvider
	if app.mirror.Enabled() {
		stats = app.mirror
	}
	taskScheduler := scheduler.NewScheduler(app.engine, app.alerts, stats, cfg.Scheduler.Period, cfg.Scheduler.CleanupInterval)

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		taskScheduler.Start(app.ctx)
	}()

	app.alerts.Info("system", "风险监控已启动",
		fmt.Sprintf("监控%d个交易对，周期%s", len(cfg.Market.Symbols), cfg.Scheduler.Period),
		map[string]interface{}{"symbols": cfg.Market.Symbols})

	zap.L().Info("✅ Market Risk Sentry 已启动")
	return nil
}

func (app *App) startWebSocket() error {
	client := websocket.NewClient(app.config.Network.Proxy, app.config.WebSocket)
	if err := client.Connect(app.ctx); err != nil {
		return err
	}
	if err := client.Subscribe(app.config.Market.Symbols, app.config.Market.Interval); err != nil {
		client.Close()
		return err
	}
	client.Run(app.ctx)
	app.wsClient = client
	return nil
}

// Stop 停止后台任务，刷新警报历史并释放连接
func (app *App) Stop() {
	zap.L().Info("🛑 收到停止信号，正在优雅关闭...")
	app.cancel()

	deadline := time.Now().Add(shutdownTimeout)

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Until(deadline)):
		zap.L().Warn("⚠️ 调度器停止超时")
	}

	if app.wsClient != nil {
		if err := app.wsClient.Close(); err != nil {
			zap.L().Error("关闭WebSocket连接失败", zap.Error(err))
		}
	}

	if app.engine != nil && !app.engine.Wait(time.Until(deadline)) {
		zap.L().Warn("⚠️ 引擎协程停止超时")
	}

	if app.alerts != nil {
		if err := app.alerts.Close(); err != nil {
			zap.L().Error("保存警报历史失败", zap.Error(err))
		}
	}
	if app.dispatcher != nil {
		app.dispatcher.Wait()
	}
	if app.mirror != nil {
		if err := app.mirror.Close(); err != nil {
			zap.L().Error("关闭Redis连接失败", zap.Error(err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			zap.L().Error("关闭数据库连接失败", zap.Error(err))
		}
	}

	zap.L().Info("✅ Market Risk Sentry 已安全关闭")
}

// WaitForShutdown 等待关闭信号
func (app *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
