package types

import "time"

// AlertLevel 警报级别
type AlertLevel string

const (
	AlertInfo      AlertLevel = "info"
	AlertWarning   AlertLevel = "warning"
	AlertCritical  AlertLevel = "critical"
	AlertEmergency AlertLevel = "emergency"
)

// Rank 级别序号，用于比较
func (l AlertLevel) Rank() int {
	switch l {
	case AlertInfo:
		return 0
	case AlertWarning:
		return 1
	case AlertCritical:
		return 2
	case AlertEmergency:
		return 3
	default:
		return -1
	}
}

// AlertLevels 全部级别，按严重程度升序
var AlertLevels = []AlertLevel{AlertInfo, AlertWarning, AlertCritical, AlertEmergency}

// AlertChannel 通知渠道
type AlertChannel string

const (
	ChannelLog     AlertChannel = "log"
	ChannelEmail   AlertChannel = "email"
	ChannelSMS     AlertChannel = "sms"
	ChannelPush    AlertChannel = "push"
	ChannelWebhook AlertChannel = "webhook"
)

// Alert 警报记录，JSON字段即历史文件格式
type Alert struct {
	ID        string                 `json:"alert_id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     AlertLevel             `json:"level"`
	Category  string                 `json:"category"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Channels  []AlertChannel         `json:"channels"`
	IsSent    bool                   `json:"is_sent"`
	SentAt    *time.Time             `json:"sent_at"`
}
