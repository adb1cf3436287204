package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData 数据量不足以完成计算
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidSeries 价格序列不合法
	ErrInvalidSeries = errors.New("invalid price series")
)

// ConfigError 配置校验错误，启动时直接失败
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置项 %s 无效: %s", e.Field, e.Reason)
}
