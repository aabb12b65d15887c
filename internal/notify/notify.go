// Package notify 封装对外的消息通道：驳回/成交通知与买入确认的请求-应答。
// 所有发送都是尽力而为，失败只记录日志，绝不影响交易流程。
package notify

// Notifier 是引擎使用的通知出口
type Notifier interface {
	// Send 发送一条纯文本消息，失败被吞掉并记录日志
	Send(text string)
	// SendConfirm 发送一条带 是/否 按钮的确认请求，token用于关联应答
	SendConfirm(text, token string) bool
	// Configured 返回通道是否真正可用；不可用时确认门直接放行由调用方决定
	Configured() bool
}

// AnswerSink 接收外部通道回传的确认应答，由确认门实现
type AnswerSink interface {
	Submit(token, answer string)
}

// Nop 是未配置通知通道时的空实现
type Nop struct{}

func (Nop) Send(string)                     {}
func (Nop) SendConfirm(string, string) bool { return false }
func (Nop) Configured() bool                { return false }
