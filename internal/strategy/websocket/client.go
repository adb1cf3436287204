package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"market-risk-sentry/internal/strategy/fetcher"
	"market-risk-sentry/pkg/types"
)

// Client OKX K线推送客户端
type Client struct {
	endpoint      string
	proxy         string
	conn          *websocket.Conn
	mu            sync.RWMutex
	isConnected   bool
	reconnectChan chan struct{}
	klineChan     chan *types.KLine
	config        types.WebSocketConfig

	symbols  []string
	interval string
}

// OKXKlineResponse OKX K线推送
type OKXKlineResponse struct {
	Event string `json:"event"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data [][]string `json:"data"`
}

type subscriptionArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

// OKXSubscription OKX订阅消息
type OKXSubscription struct {
	Op   string            `json:"op"`
	Args []subscriptionArg `json:"args"`
}

// NewClient 创建WebSocket客户端
func NewClient(proxy string, config types.WebSocketConfig) *Client {
	return &Client{
		endpoint:      config.Endpoint,
		proxy:         proxy,
		reconnectChan: make(chan struct{}, 1),
		klineChan:     make(chan *types.KLine, 1000),
		config:        config,
	}
}

// Connect 建立连接
func (c *Client) Connect(ctx context.Context) error {
	dialer := *websocket.DefaultDialer
	if c.proxy != "" {
		proxyURL, err := url.Parse(c.proxy)
		if err != nil {
			return fmt.Errorf("解析代理URL失败: %w", err)
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("WebSocket连接失败: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	zap.L().Info("✅ WebSocket连接建立成功",
		zap.String("endpoint", c.endpoint),
		zap.String("proxy", c.proxy))

	return nil
}

// Subscribe 订阅K线频道，重连后自动重新订阅
func (c *Client) Subscribe(symbols []string, interval string) error {
	c.mu.Lock()
	c.symbols = append([]string(nil), symbols...)
	c.interval = interval
	c.mu.Unlock()

	return c.sendSubscription()
}

func (c *Client) sendSubscription() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected || c.conn == nil {
		return fmt.Errorf("WebSocket未连接")
	}

	subscription := OKXSubscription{Op: "subscribe"}
	for _, symbol := range c.symbols {
		subscription.Args = append(subscription.Args, subscriptionArg{
			Channel: "candle" + c.interval,
			InstID:  symbol,
		})
	}

	if err := c.conn.WriteJSON(subscription); err != nil {
		return fmt.Errorf("发送订阅消息失败: %w", err)
	}

	zap.L().Info("📊 已订阅K线数据",
		zap.Strings("symbols", c.symbols),
		zap.String("interval", c.interval))

	return nil
}

// Run 启动读、重连与心跳循环，ctx取消后全部退出
func (c *Client) Run(ctx context.Context) {
	go c.readLoop(ctx)
	go c.reconnectLoop(ctx)
	go c.pingLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("WebSocket读取panic", zap.Any("error", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Error("WebSocket读取消息失败", zap.Error(err))
			c.handleDisconnect()
			continue
		}

		if err := c.handleMessage(message); err != nil {
			zap.L().Warn("解析K线数据失败", zap.Error(err))
		}
	}
}

// handleMessage 解析推送消息，K线发往klineChan
func (c *Client) handleMessage(message []byte) error {
	if string(message) == "pong" {
		return nil
	}

	var response OKXKlineResponse
	if err := json.Unmarshal(message, &response); err != nil {
		return err
	}

	if response.Event != "" || !strings.HasPrefix(response.Arg.Channel, "candle") {
		return nil
	}

	interval := strings.TrimPrefix(response.Arg.Channel, "candle")
	for _, data := range response.Data {
		kline, err := fetcher.ParseCandle(response.Arg.InstID, interval, data)
		if err != nil {
			zap.L().Warn("解析单条K线数据失败", zap.Error(err))
			continue
		}

		select {
		case c.klineChan <- kline:
		default:
			zap.L().Warn("K线数据通道满，丢弃数据", zap.String("symbol", kline.Symbol))
		}
	}

	return nil
}

func (c *Client) reconnectLoop(ctx context.Context) {
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.reconnectChan:
			attempts++
			if attempts > c.config.MaxReconnectAttempts {
				zap.L().Error("达到最大重连次数，停止重连",
					zap.Int("max_attempts", c.config.MaxReconnectAttempts))
				return
			}

			zap.L().Info("尝试重连WebSocket",
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", c.config.MaxReconnectAttempts))

			if err := c.Connect(ctx); err != nil {
				zap.L().Error("重连失败", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.config.ReconnectInterval):
				}
				c.triggerReconnect()
				continue
			}

			if err := c.sendSubscription(); err != nil {
				zap.L().Error("重新订阅失败", zap.Error(err))
			}

			attempts = 0
			zap.L().Info("WebSocket重连成功")
		}
	}
}

// pingLoop OKX要求30秒内有消息，否则断开，发送文本ping保活
func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			var err error
			if c.isConnected && conn != nil {
				err = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
			c.mu.Unlock()

			if err != nil {
				zap.L().Error("发送心跳失败", zap.Error(err))
				c.handleDisconnect()
			}
		}
	}
}

func (c *Client) handleDisconnect() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.isConnected = false
	c.mu.Unlock()

	c.triggerReconnect()
}

func (c *Client) triggerReconnect() {
	select {
	case c.reconnectChan <- struct{}{}:
	default:
	}
}

// KLines K线数据通道
func (c *Client) KLines() <-chan *types.KLine {
	return c.klineChan
}

// Close 关闭连接
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.isConnected = false
		return err
	}

	return nil
}

// IsConnected 连接状态
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}
