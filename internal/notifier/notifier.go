package notifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"market-risk-sentry/pkg/types"
)

// Interface 单个通知渠道
type Interface interface {
	Channel() types.AlertChannel
	Send(alert *types.Alert) error
}

// levelColors 各级别在HTML/Markdown中的颜色
var levelColors = map[types.AlertLevel]string{
	types.AlertInfo:      "#17a2b8",
	types.AlertWarning:   "#ffc107",
	types.AlertCritical:  "#dc3545",
	types.AlertEmergency: "#d32f2f",
}

func levelColor(level types.AlertLevel) string {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return "#666"
}

func levelTag(level types.AlertLevel) string {
	return "[" + strings.ToUpper(string(level)) + "]"
}

// subject 通知标题
func subject(alert *types.Alert) string {
	return fmt.Sprintf("%s %s", levelTag(alert.Level), alert.Title)
}

// formatData 附加数据格式化为缩进JSON
func formatData(data map[string]interface{}) string {
	if len(data) == 0 {
		return ""
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}

// Dispatcher 按渠道分发警报：日志渠道同步执行，其余渠道在goroutine中发送，失败只记录不重试
type Dispatcher struct {
	senders map[types.AlertChannel]Interface
	wg      sync.WaitGroup
}

// NewDispatcher 创建分发器，日志渠道始终可用
func NewDispatcher(senders ...Interface) *Dispatcher {
	d := &Dispatcher{senders: map[types.AlertChannel]Interface{}}
	d.Register(NewLogNotifier())
	for _, s := range senders {
		d.Register(s)
	}
	return d
}

// FromConfig 根据配置注册邮件、PushPlus、钉钉渠道
func FromConfig(cfg *types.Config) *Dispatcher {
	d := NewDispatcher()
	if cfg.Email.Enabled {
		d.Register(NewEmailNotifier(cfg.Email))
	}
	if cfg.PushPlus.UserToken != "" {
		d.Register(NewPushPlusNotifier(cfg.PushPlus.UserToken, cfg.PushPlus.To, cfg.Network.Timeout))
	} else {
		zap.L().Info("🔧 未配置PushPlus User Token，push渠道不可用")
	}
	if cfg.DingTalk.WebhookURL != "" {
		d.Register(NewDingTalkNotifier(cfg.DingTalk.WebhookURL, cfg.DingTalk.Secret, cfg.Network.Timeout))
	} else {
		zap.L().Info("🔧 未配置钉钉Webhook URL，webhook渠道不可用")
	}
	return d
}

// Register 注册渠道，同一渠道后注册的覆盖先注册的
func (d *Dispatcher) Register(sender Interface) {
	if sender == nil {
		return
	}
	d.senders[sender.Channel()] = sender
}

// Has 渠道是否已配置
func (d *Dispatcher) Has(channel types.AlertChannel) bool {
	_, ok := d.senders[channel]
	return ok
}

// Dispatch 发送到警报指定的全部渠道
func (d *Dispatcher) Dispatch(alert *types.Alert) {
	for _, channel := range alert.Channels {
		sender, ok := d.senders[channel]
		if !ok {
			zap.L().Warn("渠道未配置，跳过", zap.String("channel", string(channel)), zap.String("alert_id", alert.ID))
			continue
		}

		if channel == types.ChannelLog {
			if err := sender.Send(alert); err != nil {
				zap.L().Error("发送警报失败", zap.String("channel", string(channel)), zap.Error(err))
			}
			continue
		}

		copied := *alert
		d.wg.Add(1)
		go func(s Interface, a *types.Alert) {
			defer d.wg.Done()
			if err := s.Send(a); err != nil {
				zap.L().Error("❌ 发送警报失败",
					zap.String("channel", string(s.Channel())),
					zap.String("alert_id", a.ID),
					zap.Error(err))
				return
			}
			zap.L().Info("✅ 警报已发送", zap.String("channel", string(s.Channel())), zap.String("alert_id", a.ID))
		}(sender, &copied)
	}
}

// Wait 等待所有异步发送结束
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogNotifier 日志渠道
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (ln *LogNotifier) Channel() types.AlertChannel {
	return types.ChannelLog
}

func (ln *LogNotifier) Send(alert *types.Alert) error {
	msg := fmt.Sprintf("%s %s | %s | %s", levelTag(alert.Level), alert.Category, alert.Title, alert.Message)
	fields := []zap.Field{zap.String("alert_id", alert.ID), zap.String("category", alert.Category)}

	switch alert.Level {
	case types.AlertInfo:
		zap.L().Info(msg, fields...)
	case types.AlertWarning:
		zap.L().Warn(msg, fields...)
	default:
		zap.L().Error(msg, fields...)
	}
	return nil
}
