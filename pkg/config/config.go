package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"market-risk-sentry/pkg/types"
)

// Load 加载配置
func Load() (*types.Config, error) {
	// .env 可选，存在时注入环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 优先尝试读取本地配置文件
	v.SetConfigName("config.local")
	if err := v.ReadInConfig(); err != nil {
		v.SetConfigName("config")
		if err := v.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, err
			}
		}
	}

	return decode(v)
}

// LoadFile 从指定文件加载配置
func LoadFile(path string) (*types.Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return decode(v)
}

func decode(v *viper.Viper) (*types.Config, error) {
	var config types.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default 默认配置
func Default() *types.Config {
	return &types.Config{
		Log: types.LogConfig{
			Level:      "info",
			FilePath:   "logs",
			MaxSize:    200,
			MaxAge:     30,
			MaxBackups: 7,
		},
		Redis: types.RedisConfig{
			KeyPrefix: "sentry:alerts",
		},
		Email: types.EmailConfig{
			SMTPServer: "smtp.gmail.com",
			SMTPPort:   587,
		},
		Alert: types.AlertConfig{
			MinInterval:      300 * time.Second,
			MaxPerHour:       10,
			MinLevelForEmail: types.AlertWarning,
			HistoryFile:      "data/logs/alert_history.json",
			MaxHistoryDays:   30,
			FlushEvery:       10,
		},
		Network: types.NetworkConfig{
			Timeout: 30 * time.Second,
		},
		Market: types.MarketConfig{
			Symbols:      []string{"BTC-USDT", "ETH-USDT"},
			Interval:     "1D",
			HistoryLimit: 300,
			RESTEndpoint: "https://www.okx.com/api/v5/market/history-candles",
			BufferSize:   500,
		},
		WebSocket: types.WebSocketConfig{
			Endpoint:             "wss://ws.okx.com:8443/ws/v5/business",
			ReconnectInterval:    5 * time.Second,
			PingInterval:         20 * time.Second,
			MaxReconnectAttempts: 10,
		},
		Scheduler: types.SchedulerConfig{
			Period:          5 * time.Minute,
			CleanupInterval: time.Hour,
		},
		Database: types.DatabaseConfig{
			MySQL: types.MySQLConfig{
				Host:         "127.0.0.1",
				Port:         3306,
				Database:     "market_risk",
				MaxIdleConns: 5,
				MaxOpenConns: 20,
			},
		},
		Indicators: types.DefaultIndicatorParams(),
		Analysis: types.AnalysisConfig{
			TrendPeriod:      20,
			SRWindow:         20,
			SRLevels:         3,
			SRLookback:       100,
			ADXPeriod:        14,
			DivergenceWindow: 5,
		},
		Risk: types.RiskConfig{
			RiskFreeRate:    0.03,
			ConfidenceLevel: 0.95,
			TradingDays:     252,
		},
		Position: types.PositionConfig{
			MaxPosition:      0.30,
			MinPosition:      0.05,
			DefaultPosition:  0.10,
			RiskPerTrade:     0.02,
			KellyCap:         0.25,
			VolatilityTarget: 0.15,
		},
		StopLoss: types.StopLossConfig{
			Method:              "atr",
			StopLossPct:         0.05,
			TakeProfitPct:       0.15,
			RiskRewardRatio:     3.0,
			ATRPeriod:           14,
			ATRStopMultiplier:   2.0,
			ATRProfitMultiplier: 3.0,
			Lookback:            20,
			Buffer:              0.01,
		},
		Monitor: types.MonitorConfig{
			MaxDrawdown:  0.20,
			Volatility:   0.40,
			VaR:          0.05,
			MinSharpe:    0.5,
			MaxPosition:  0.30,
			MinDiversity: 2,
		},
		Portfolio: types.PortfolioConfig{
			RebalanceThreshold: 0.05,
			MinTradeAmount:     100,
			Benchmark:          "BTC-USDT",
			QuoteCurrency:      "USDT",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("dingtalk.webhook_url", "")
	v.SetDefault("dingtalk.secret", "")
	v.SetDefault("pushplus.user_token", "")
	v.SetDefault("pushplus.to", "")
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_server", d.Email.SMTPServer)
	v.SetDefault("email.smtp_port", d.Email.SMTPPort)
	v.SetDefault("alert.min_interval", d.Alert.MinInterval)
	v.SetDefault("alert.max_per_hour", d.Alert.MaxPerHour)
	v.SetDefault("alert.min_level_for_email", string(d.Alert.MinLevelForEmail))
	v.SetDefault("alert.history_file", d.Alert.HistoryFile)
	v.SetDefault("alert.max_history_days", d.Alert.MaxHistoryDays)
	v.SetDefault("alert.flush_every", d.Alert.FlushEvery)
	v.SetDefault("network.proxy", "")
	v.SetDefault("network.timeout", d.Network.Timeout)
	v.SetDefault("market.symbols", d.Market.Symbols)
	v.SetDefault("market.interval", d.Market.Interval)
	v.SetDefault("market.history_limit", d.Market.HistoryLimit)
	v.SetDefault("market.rest_endpoint", d.Market.RESTEndpoint)
	v.SetDefault("market.buffer_size", d.Market.BufferSize)
	v.SetDefault("websocket.enabled", false)
	v.SetDefault("websocket.endpoint", d.WebSocket.Endpoint)
	v.SetDefault("websocket.reconnect_interval", d.WebSocket.ReconnectInterval)
	v.SetDefault("websocket.ping_interval", d.WebSocket.PingInterval)
	v.SetDefault("websocket.max_reconnect_attempts", d.WebSocket.MaxReconnectAttempts)
	v.SetDefault("scheduler.period", d.Scheduler.Period)
	v.SetDefault("scheduler.cleanup_interval", d.Scheduler.CleanupInterval)
	v.SetDefault("database.mysql.enabled", false)
	v.SetDefault("database.mysql.host", d.Database.MySQL.Host)
	v.SetDefault("database.mysql.port", d.Database.MySQL.Port)
	v.SetDefault("database.mysql.database", d.Database.MySQL.Database)
	v.SetDefault("database.mysql.max_idle_conns", d.Database.MySQL.MaxIdleConns)
	v.SetDefault("database.mysql.max_open_conns", d.Database.MySQL.MaxOpenConns)

	ind := d.Indicators
	v.SetDefault("indicators.ma_periods", ind.MAPeriods)
	v.SetDefault("indicators.ema_periods", ind.EMAPeriods)
	v.SetDefault("indicators.macd_fast", ind.MACDFast)
	v.SetDefault("indicators.macd_slow", ind.MACDSlow)
	v.SetDefault("indicators.macd_signal", ind.MACDSignal)
	v.SetDefault("indicators.rsi_period", ind.RSIPeriod)
	v.SetDefault("indicators.kdj_period", ind.KDJPeriod)
	v.SetDefault("indicators.kdj_smooth_k", ind.KDJSmoothK)
	v.SetDefault("indicators.kdj_smooth_d", ind.KDJSmoothD)
	v.SetDefault("indicators.boll_period", ind.BollPeriod)
	v.SetDefault("indicators.boll_std_dev", ind.BollStdDev)
	v.SetDefault("indicators.atr_period", ind.ATRPeriod)

	v.SetDefault("analysis.trend_period", d.Analysis.TrendPeriod)
	v.SetDefault("analysis.sr_window", d.Analysis.SRWindow)
	v.SetDefault("analysis.sr_levels", d.Analysis.SRLevels)
	v.SetDefault("analysis.sr_lookback", d.Analysis.SRLookback)
	v.SetDefault("analysis.adx_period", d.Analysis.ADXPeriod)
	v.SetDefault("analysis.divergence_window", d.Analysis.DivergenceWindow)

	v.SetDefault("risk.risk_free_rate", d.Risk.RiskFreeRate)
	v.SetDefault("risk.confidence_level", d.Risk.ConfidenceLevel)
	v.SetDefault("risk.trading_days", d.Risk.TradingDays)

	v.SetDefault("position.max_position", d.Position.MaxPosition)
	v.SetDefault("position.min_position", d.Position.MinPosition)
	v.SetDefault("position.default_position", d.Position.DefaultPosition)
	v.SetDefault("position.risk_per_trade", d.Position.RiskPerTrade)
	v.SetDefault("position.kelly_cap", d.Position.KellyCap)
	v.SetDefault("position.volatility_target", d.Position.VolatilityTarget)

	v.SetDefault("stop_loss.method", d.StopLoss.Method)
	v.SetDefault("stop_loss.stop_loss_pct", d.StopLoss.StopLossPct)
	v.SetDefault("stop_loss.take_profit_pct", d.StopLoss.TakeProfitPct)
	v.SetDefault("stop_loss.risk_reward_ratio", d.StopLoss.RiskRewardRatio)
	v.SetDefault("stop_loss.atr_period", d.StopLoss.ATRPeriod)
	v.SetDefault("stop_loss.atr_stop_multiplier", d.StopLoss.ATRStopMultiplier)
	v.SetDefault("stop_loss.atr_profit_multiplier", d.StopLoss.ATRProfitMultiplier)
	v.SetDefault("stop_loss.lookback", d.StopLoss.Lookback)
	v.SetDefault("stop_loss.buffer", d.StopLoss.Buffer)

	v.SetDefault("monitor.max_drawdown", d.Monitor.MaxDrawdown)
	v.SetDefault("monitor.volatility", d.Monitor.Volatility)
	v.SetDefault("monitor.var", d.Monitor.VaR)
	v.SetDefault("monitor.min_sharpe", d.Monitor.MinSharpe)
	v.SetDefault("monitor.max_position", d.Monitor.MaxPosition)
	v.SetDefault("monitor.min_diversity", d.Monitor.MinDiversity)

	v.SetDefault("portfolio.rebalance_threshold", d.Portfolio.RebalanceThreshold)
	v.SetDefault("portfolio.min_trade_amount", d.Portfolio.MinTradeAmount)
	v.SetDefault("portfolio.benchmark", d.Portfolio.Benchmark)
	v.SetDefault("portfolio.quote_currency", d.Portfolio.QuoteCurrency)
}
