package engine

import (
	"sync"
	"time"

	"grid-trader-go/internal/notify"

	"go.uber.org/zap"
)

// Gate 是买入前的人工确认关卡：发出带token的是/否提问，轮询等待外部应答。
// 等待期间不持有状态锁；整个tick会停在这里，这是设计上接受的简化。
type Gate struct {
	notifier notify.Notifier
	timeout  time.Duration
	poll     time.Duration
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	answers map[string]string
}

// NewGate 创建确认门。timeout是等待上限，poll是轮询粒度。
func NewGate(notifier notify.Notifier, timeout, poll time.Duration, logger *zap.SugaredLogger) *Gate {
	if poll <= 0 {
		poll = time.Second
	}
	return &Gate{
		notifier: notifier,
		timeout:  timeout,
		poll:     poll,
		logger:   logger,
		answers:  make(map[string]string),
	}
}

// Submit 记录一条外部应答，由命令轮询器在收到按钮回调时调用
func (g *Gate) Submit(token, answer string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers[token] = answer
}

// Confirm 发出确认请求并等待应答。只有明确的"yes"才放行；
// 超时或"否"都返回false，由调用方在下一个tick重新评估。
func (g *Gate) Confirm(prompt, token string) bool {
	if !g.notifier.SendConfirm(prompt, token) {
		g.logger.Warnf("确认请求 %s 发送失败，本次买入跳过", token)
		return false
	}

	deadline := time.Now().Add(g.timeout)
	for {
		if answer, ok := g.take(token); ok {
			return answer == "yes"
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		// 最后一次等待按剩余时长截断，不超出timeout
		if remaining < g.poll {
			time.Sleep(remaining)
		} else {
			time.Sleep(g.poll)
		}
	}

	g.logger.Infof("确认请求 %s 等待超时", token)
	return false
}

// take 取走并删除一条应答
func (g *Gate) take(token string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	answer, ok := g.answers[token]
	if ok {
		delete(g.answers, token)
	}
	return answer, ok
}
