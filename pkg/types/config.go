package types

import "time"

// Config 主配置结构
type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	Redis      RedisConfig     `mapstructure:"redis"`
	DingTalk   DingTalkConfig  `mapstructure:"dingtalk"`
	PushPlus   PushPlusConfig  `mapstructure:"pushplus"`
	Email      EmailConfig     `mapstructure:"email"`
	Alert      AlertConfig     `mapstructure:"alert"`
	Network    NetworkConfig   `mapstructure:"network"`
	Market     MarketConfig    `mapstructure:"market"`
	WebSocket  WebSocketConfig `mapstructure:"websocket"`
	Scheduler  SchedulerConfig `mapstructure:"scheduler"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Indicators IndicatorParams `mapstructure:"indicators"`
	Analysis   AnalysisConfig  `mapstructure:"analysis"`
	Risk       RiskConfig      `mapstructure:"risk"`
	Position   PositionConfig  `mapstructure:"position"`
	StopLoss   StopLossConfig  `mapstructure:"stop_loss"`
	Monitor    MonitorConfig   `mapstructure:"monitor"`
	Portfolio  PortfolioConfig `mapstructure:"portfolio"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	FilePath   string `mapstructure:"file_path"`   // 日志输出路径名
	MaxSize    int    `mapstructure:"max_size"`    // 日志文件大小 单位：MB，超限后会自动切割
	MaxAge     int    `mapstructure:"max_age"`     // 日志文件存放时间 单位：天
	MaxBackups int    `mapstructure:"max_backups"` // 日志文件备份数量
	Compress   bool   `mapstructure:"compress"`    // 日志文件压缩
}

// RedisConfig Redis配置，URL为空时不启用警报镜像
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DingTalkConfig 钉钉配置（webhook渠道）
type DingTalkConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Secret     string `mapstructure:"secret"`
}

// PushPlusConfig PushPlus配置（push渠道）
type PushPlusConfig struct {
	UserToken string `mapstructure:"user_token"`
	To        string `mapstructure:"to"` // 好友令牌，多人用逗号分隔
}

// EmailConfig 邮件配置
type EmailConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	SMTPServer string   `mapstructure:"smtp_server"`
	SMTPPort   int      `mapstructure:"smtp_port"`
	From       string   `mapstructure:"from"`
	Password   string   `mapstructure:"password"`
	To         []string `mapstructure:"to"`
}

// AlertConfig 警报系统配置
type AlertConfig struct {
	MinInterval      time.Duration `mapstructure:"min_interval"`        // 同类别最小警报间隔
	MaxPerHour       int           `mapstructure:"max_per_hour"`        // 每小时最大警报数
	MinLevelForEmail AlertLevel    `mapstructure:"min_level_for_email"` // 邮件最低级别
	HistoryFile      string        `mapstructure:"history_file"`
	MaxHistoryDays   int           `mapstructure:"max_history_days"`
	FlushEvery       int           `mapstructure:"flush_every"` // 每N条警报写一次历史文件
}

// NetworkConfig 网络配置
type NetworkConfig struct {
	Proxy   string        `mapstructure:"proxy"`   // HTTP代理地址，如 http://127.0.0.1:7890
	Timeout time.Duration `mapstructure:"timeout"` // 网络超时时间
}

// MarketConfig 行情数据配置
type MarketConfig struct {
	Symbols      []string `mapstructure:"symbols"`
	Interval     string   `mapstructure:"interval"`      // K线周期，如 1D、4H、15m
	HistoryLimit int      `mapstructure:"history_limit"` // 启动时拉取的历史K线数量
	RESTEndpoint string   `mapstructure:"rest_endpoint"`
	BufferSize   int      `mapstructure:"buffer_size"` // 每个交易对保留的K线数量
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	Endpoint             string        `mapstructure:"endpoint"`
	ReconnectInterval    time.Duration `mapstructure:"reconnect_interval"`
	PingInterval         time.Duration `mapstructure:"ping_interval"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
}

// SchedulerConfig 调度配置
type SchedulerConfig struct {
	Period          time.Duration `mapstructure:"period"`           // 分析周期，对齐到K线时间
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"` // 警报历史清理间隔
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
}

// MySQLConfig MySQL配置
type MySQLConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// AnalysisConfig 趋势与波动率分析参数
type AnalysisConfig struct {
	TrendPeriod      int `mapstructure:"trend_period"`
	SRWindow         int `mapstructure:"sr_window"`
	SRLevels         int `mapstructure:"sr_levels"`
	SRLookback       int `mapstructure:"sr_lookback"`
	ADXPeriod        int `mapstructure:"adx_period"`
	DivergenceWindow int `mapstructure:"divergence_window"`
}

// RiskConfig 风险度量参数
type RiskConfig struct {
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`   // 年化无风险利率
	ConfidenceLevel float64 `mapstructure:"confidence_level"` // VaR置信水平，(0,1)
	TradingDays     int     `mapstructure:"trading_days"`
}

// PositionConfig 仓位管理参数
type PositionConfig struct {
	MaxPosition      float64 `mapstructure:"max_position"`
	MinPosition      float64 `mapstructure:"min_position"`
	DefaultPosition  float64 `mapstructure:"default_position"`
	RiskPerTrade     float64 `mapstructure:"risk_per_trade"`
	KellyCap         float64 `mapstructure:"kelly_cap"`
	VolatilityTarget float64 `mapstructure:"volatility_target"`
}

// StopLossConfig 止损止盈参数
type StopLossConfig struct {
	Method              string  `mapstructure:"method"` // fixed / atr / support_resistance
	StopLossPct         float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct       float64 `mapstructure:"take_profit_pct"`
	RiskRewardRatio     float64 `mapstructure:"risk_reward_ratio"`
	ATRPeriod           int     `mapstructure:"atr_period"`
	ATRStopMultiplier   float64 `mapstructure:"atr_stop_multiplier"`
	ATRProfitMultiplier float64 `mapstructure:"atr_profit_multiplier"`
	Lookback            int     `mapstructure:"lookback"`
	Buffer              float64 `mapstructure:"buffer"`
}

// MonitorConfig 风险监控阈值
type MonitorConfig struct {
	MaxDrawdown  float64 `mapstructure:"max_drawdown"`
	Volatility   float64 `mapstructure:"volatility"`
	VaR          float64 `mapstructure:"var"`
	MinSharpe    float64 `mapstructure:"min_sharpe"`
	MaxPosition  float64 `mapstructure:"max_position"`
	MinDiversity int     `mapstructure:"min_diversity"`
}

// PortfolioConfig 组合再平衡参数
type PortfolioConfig struct {
	TargetAllocation   map[string]float64 `mapstructure:"target_allocation"`
	RebalanceThreshold float64            `mapstructure:"rebalance_threshold"`
	MinTradeAmount     float64            `mapstructure:"min_trade_amount"`
	Holdings           map[string]float64 `mapstructure:"holdings"`  // 资产 -> 持有数量，资产名对应交易对的基础币
	Benchmark          string             `mapstructure:"benchmark"` // 业绩归因基准交易对
	QuoteCurrency      string             `mapstructure:"quote_currency"`
}
