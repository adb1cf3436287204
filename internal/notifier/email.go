package notifier

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"market-risk-sentry/pkg/types"
)

// sendMail 发送函数，测试中替换
var sendMail = smtp.SendMail

// EmailNotifier 邮件渠道（SMTP + PLAIN认证）
type EmailNotifier struct {
	config types.EmailConfig
}

func NewEmailNotifier(config types.EmailConfig) *EmailNotifier {
	return &EmailNotifier{config: config}
}

func (en *EmailNotifier) Channel() types.AlertChannel {
	return types.ChannelEmail
}

func (en *EmailNotifier) Send(alert *types.Alert) error {
	if en.config.From == "" || len(en.config.To) == 0 {
		return fmt.Errorf("邮件配置不完整，跳过邮件发送")
	}

	addr := fmt.Sprintf("%s:%d", en.config.SMTPServer, en.config.SMTPPort)
	auth := smtp.PlainAuth("", en.config.From, en.config.Password, en.config.SMTPServer)
	if err := sendMail(addr, auth, en.config.From, en.config.To, en.buildMessage(alert)); err != nil {
		return fmt.Errorf("邮件发送失败: %w", err)
	}
	return nil
}

func (en *EmailNotifier) buildMessage(alert *types.Alert) []byte {
	var b strings.Builder
	b.WriteString("From: " + en.config.From + "\r\n")
	b.WriteString("To: " + strings.Join(en.config.To, ", ") + "\r\n")
	b.WriteString("Subject: " + subject(alert) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(buildEmailHTML(alert))
	return []byte(b.String())
}

func buildEmailHTML(alert *types.Alert) string {
	color := levelColor(alert.Level)
	content := fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif;">
    <div style="border-left: 4px solid %s; padding: 15px; margin: 20px 0; background-color: #f8f9fa;">
        <div style="color: %s; font-size: 18px; font-weight: bold; margin-bottom: 10px;">%s %s</div>
        <div style="color: #666; font-size: 12px;">时间: %s<br>类别: %s</div>
        <div style="margin: 15px 0; line-height: 1.6;">%s</div>
`,
		color, color, levelTag(alert.Level), html.EscapeString(alert.Title),
		alert.Timestamp.Format("2006-01-02 15:04:05"), html.EscapeString(alert.Category),
		html.EscapeString(alert.Message))

	if data := formatData(alert.Data); data != "" {
		content += fmt.Sprintf(`        <div style="background-color: #fff; padding: 10px; border-radius: 4px; font-family: monospace; font-size: 12px;">
            <strong>详细数据:</strong><pre>%s</pre>
        </div>
`, html.EscapeString(data))
	}

	content += "    </div>\n</body>\n</html>\n"
	return content
}
