package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const binanceWSBase = "wss://stream.binance.com:9443"

// Stream 维护一条到币安aggTrade推送流的长连接，缓存最近一次成交价。
// 连接断开后自动重连；消费方通过 Fresh 判断缓存是否仍然新鲜。
type Stream struct {
	url    string
	logger *zap.SugaredLogger

	mu      sync.Mutex
	price   float64
	updated time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewStream 为指定交易对创建推送流，symbol 使用 "BTC/USDT" 形式
func NewStream(symbol string, logger *zap.SugaredLogger) *Stream {
	exSymbol := strings.ToLower(strings.ReplaceAll(symbol, "/", ""))
	return &Stream{
		url:    fmt.Sprintf("%s/ws/%s@aggTrade", binanceWSBase, exSymbol),
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start 启动后台连接守护循环
func (s *Stream) Start() {
	go s.run()
}

// Stop 关闭推送流
func (s *Stream) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Fresh 返回缓存价格；超过 maxAge 未更新则视为过期
func (s *Stream) Fresh(maxAge time.Duration) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updated.IsZero() || time.Since(s.updated) > maxAge {
		return 0, false
	}
	return s.price, true
}

// run 是连接守护循环：断开后等5秒重连，直到 Stop 被调用
func (s *Stream) run() {
	for {
		select {
		case <-s.stopCh:
			s.logger.Info("行情推送流已停止。")
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
		if err != nil {
			s.logger.Warnf("行情推送流连接失败: %v。5秒后重试...", err)
			if !s.sleep(5 * time.Second) {
				return
			}
			continue
		}

		s.logger.Infof("行情推送流连接成功: %s", s.url)
		if err := s.consume(conn); err != nil {
			s.logger.Warnf("行情推送流中断: %v", err)
		}
		conn.Close()

		if !s.sleep(5 * time.Second) {
			return
		}
	}
}

// consume 在一条已建立的连接上读取成交消息，并维持ping/pong心跳
func (s *Stream) consume(conn *websocket.Conn) error {
	const (
		pongWait   = 60 * time.Second
		pingPeriod = (pongWait * 9) / 10
	)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	pingStop := make(chan struct{})
	defer close(pingStop)

	go func() {
		for {
			select {
			case <-pingTicker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingStop:
				return
			case <-s.stopCh:
				return
			}
		}
	}()

	for {
		select {
		case <-s.stopCh:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("读取消息失败: %w", err)
			}

			var trade struct {
				Price json.Number `json:"p"`
			}
			if err := json.Unmarshal(message, &trade); err != nil {
				continue
			}
			price, err := trade.Price.Float64()
			if err != nil || price <= 0 {
				continue
			}

			s.mu.Lock()
			s.price = price
			s.updated = time.Now()
			s.mu.Unlock()
		}
	}
}

// sleep 等待d，期间收到停止信号则返回false
func (s *Stream) sleep(d time.Duration) bool {
	select {
	case <-s.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}
