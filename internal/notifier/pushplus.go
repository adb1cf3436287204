package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"market-risk-sentry/pkg/types"
)

const pushPlusEndpoint = "http://www.pushplus.plus/send"

// PushPlusNotifier PushPlus推送渠道
type PushPlusNotifier struct {
	userToken  string
	to         string // 好友令牌，多人用逗号分隔
	endpoint   string
	httpClient *http.Client
}

type PushPlusRequest struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Template string `json:"template"`
	To       string `json:"to,omitempty"`
}

type PushPlusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data string `json:"data"`
}

func NewPushPlusNotifier(userToken, to string, timeout time.Duration) *PushPlusNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PushPlusNotifier{
		userToken: userToken,
		to:        to,
		endpoint:  pushPlusEndpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (ppn *PushPlusNotifier) Channel() types.AlertChannel {
	return types.ChannelPush
}

func (ppn *PushPlusNotifier) Send(alert *types.Alert) error {
	return ppn.sendPushPlusMessage(subject(alert), ppn.buildHTMLContent(alert))
}

func (ppn *PushPlusNotifier) buildHTMLContent(alert *types.Alert) string {
	color := levelColor(alert.Level)
	content := fmt.Sprintf(`
<div style="border: 2px solid %s; border-radius: 10px; padding: 20px; margin: 10px; background-color: #f9f9f9;">
    <h2 style="color: %s; text-align: center; margin-top: 0;">%s %s</h2>
    <div style="background-color: white; padding: 15px; border-radius: 8px; margin: 10px 0;">
        <p><strong>类别:</strong> <span style="color: #333;">%s</span></p>
        <p><strong>内容:</strong> <span style="font-size: 16px; color: #333;">%s</span></p>
        <p><strong>预警时间:</strong> <span style="color: #666;">%s</span></p>
    </div>
`,
		color, color, levelTag(alert.Level), html.EscapeString(alert.Title),
		html.EscapeString(alert.Category),
		html.EscapeString(alert.Message),
		alert.Timestamp.Format("2006-01-02 15:04:05"))

	if action, ok := alert.Data["suggested_action"].(string); ok && action != "" {
		content += fmt.Sprintf(`    <div style="background-color: %s; color: white; padding: 10px; border-radius: 8px; text-align: center; margin-top: 15px;">
        <strong>💡 %s</strong>
    </div>
`, color, html.EscapeString(action))
	}

	content += "</div>\n"
	return content
}

func (ppn *PushPlusNotifier) sendPushPlusMessage(title, content string) error {
	reqData := PushPlusRequest{
		Token:    ppn.userToken,
		Title:    title,
		Content:  content,
		Template: "html",
		To:       ppn.to,
	}

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return fmt.Errorf("序列化请求数据失败: %w", err)
	}

	resp, err := ppn.httpClient.Post(ppn.endpoint, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	var pushResp PushPlusResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}

	if pushResp.Code != 200 {
		return fmt.Errorf("PushPlus API错误: %s", pushResp.Msg)
	}

	return nil
}
