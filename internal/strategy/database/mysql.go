package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"market-risk-sentry/pkg/types"
)

// batchSize 批量写入每批条数
const batchSize = 100

// Manager 数据库管理器
type Manager struct {
	db     *gorm.DB
	config types.MySQLConfig
}

// KLine 数据库K线模型
type KLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"type:varchar(20);not null;uniqueIndex:uk_symbol_interval_time" json:"symbol"`
	Interval  string    `gorm:"column:bar_interval;type:varchar(10);not null;uniqueIndex:uk_symbol_interval_time" json:"interval"`
	OpenTime  int64     `gorm:"not null;uniqueIndex:uk_symbol_interval_time" json:"open_time"`
	CloseTime int64     `gorm:"not null" json:"close_time"`
	Open      float64   `gorm:"type:decimal(20,8);not null" json:"open"`
	High      float64   `gorm:"type:decimal(20,8);not null" json:"high"`
	Low       float64   `gorm:"type:decimal(20,8);not null" json:"low"`
	Close     float64   `gorm:"type:decimal(20,8);not null" json:"close"`
	Volume    float64   `gorm:"type:decimal(28,8);not null" json:"volume"`
	Confirmed bool      `gorm:"default:true" json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnalysisSnapshot 单次分析的结果快照
type AnalysisSnapshot struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	RunID               string    `gorm:"type:char(36);not null;uniqueIndex" json:"run_id"`
	Symbol              string    `gorm:"type:varchar(20);not null;index:idx_symbol_time" json:"symbol"`
	KlineTime           int64     `gorm:"not null;index:idx_symbol_time" json:"kline_time"`
	Price               float64   `gorm:"type:decimal(20,8);not null" json:"price"`
	Signal              string    `gorm:"type:varchar(16)" json:"signal"`
	Confidence          string    `gorm:"type:varchar(8)" json:"confidence"`
	TotalStrength       int       `json:"total_strength"`
	Trend               string    `gorm:"type:varchar(16)" json:"trend"`
	RiskScore           *float64  `gorm:"type:decimal(6,2)" json:"risk_score"`
	RiskLevel           string    `gorm:"type:varchar(16)" json:"risk_level"`
	Volatility          *float64  `gorm:"type:decimal(12,6)" json:"volatility"`
	MaxDrawdown         *float64  `gorm:"type:decimal(12,6)" json:"max_drawdown"`
	VaR95               *float64  `gorm:"column:var_95;type:decimal(12,6)" json:"var_95"`
	SharpeRatio         *float64  `gorm:"type:decimal(12,6)" json:"sharpe_ratio"`
	RecommendedPosition float64   `gorm:"type:decimal(6,4)" json:"recommended_position"`
	StopLossPrice       *float64  `gorm:"type:decimal(20,8)" json:"stop_loss_price"`
	TakeProfitPrice     *float64  `gorm:"type:decimal(20,8)" json:"take_profit_price"`
	AlertCount          int       `gorm:"default:0" json:"alert_count"`
	Detail              string    `gorm:"type:mediumtext" json:"detail"` // 完整报告JSON
	CreatedAt           time.Time `json:"created_at"`
}

// DSN 生成MySQL连接串
func DSN(config types.MySQLConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)
}

// NewManager 创建数据库管理器
func NewManager(config types.MySQLConfig) (*Manager, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(DSN(config)), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库实例失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	manager := &Manager{
		db:     db,
		config: config,
	}

	if err := manager.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	zap.L().Info("✅ MySQL数据库连接成功",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("database", config.Database))

	return manager, nil
}

// AutoMigrate 自动迁移表结构
func (m *Manager) AutoMigrate() error {
	return m.db.AutoMigrate(
		&KLine{},
		&AnalysisSnapshot{},
	)
}

// SaveKLine 保存单根K线，同一交易对同一开盘时间重复写入时更新价格
func (m *Manager) SaveKLine(kline *types.KLine) error {
	return m.BatchSaveKlines([]*types.KLine{kline})
}

// BatchSaveKlines 批量保存K线数据
func (m *Manager) BatchSaveKlines(klines []*types.KLine) error {
	if len(klines) == 0 {
		return nil
	}

	rows := make([]KLine, 0, len(klines))
	for _, kline := range klines {
		rows = append(rows, toKLineModel(kline))
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "bar_interval"}, {Name: "open_time"}},
			DoUpdates: clause.AssignmentColumns([]string{"close_time", "open", "high", "low", "close", "volume", "confirmed", "updated_at"}),
		}).CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("批量写入K线数据失败: %w", err)
	}

	zap.L().Debug("✅ 批量保存K线数据完成",
		zap.Int("count", len(klines)),
		zap.String("first_symbol", klines[0].Symbol))

	return nil
}

// GetKLines 最近limit根K线，按开盘时间升序
func (m *Manager) GetKLines(symbol, interval string, limit int) ([]*types.KLine, error) {
	var rows []KLine
	err := m.db.Where("symbol = ? AND bar_interval = ?", symbol, interval).
		Order("open_time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	klines := make([]*types.KLine, len(rows))
	for i, row := range rows {
		klines[len(rows)-1-i] = fromKLineModel(row)
	}
	return klines, nil
}

// SaveSnapshot 保存分析快照
func (m *Manager) SaveSnapshot(snapshot *AnalysisSnapshot) error {
	if err := m.db.Create(snapshot).Error; err != nil {
		return fmt.Errorf("保存分析快照失败: %w", err)
	}
	return nil
}

// GetSnapshots 最近的分析快照，新的在前
func (m *Manager) GetSnapshots(symbol string, limit int) ([]AnalysisSnapshot, error) {
	var snapshots []AnalysisSnapshot
	err := m.db.Where("symbol = ?", symbol).
		Order("kline_time DESC, id DESC").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, err
}

// PruneSnapshots 删除早于before的快照
func (m *Manager) PruneSnapshots(before time.Time) (int64, error) {
	result := m.db.Where("created_at < ?", before).Delete(&AnalysisSnapshot{})
	return result.RowsAffected, result.Error
}

// Close 关闭数据库连接
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接健康状态
func (m *Manager) Health() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func toKLineModel(kline *types.KLine) KLine {
	return KLine{
		Symbol:    kline.Symbol,
		Interval:  kline.Interval,
		OpenTime:  kline.OpenTime.UnixMilli(),
		CloseTime: kline.CloseTime.UnixMilli(),
		Open:      kline.Open,
		High:      kline.High,
		Low:       kline.Low,
		Close:     kline.Close,
		Volume:    kline.Volume,
		Confirmed: kline.Confirmed,
	}
}

func fromKLineModel(row KLine) *types.KLine {
	return &types.KLine{
		Symbol:    row.Symbol,
		Interval:  row.Interval,
		OpenTime:  time.UnixMilli(row.OpenTime).UTC(),
		CloseTime: time.UnixMilli(row.CloseTime).UTC(),
		Open:      row.Open,
		High:      row.High,
		Low:       row.Low,
		Close:     row.Close,
		Volume:    row.Volume,
		Confirmed: row.Confirmed,
	}
}
