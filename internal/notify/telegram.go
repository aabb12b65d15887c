package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Telegram 通过Bot API发送消息与确认请求
type Telegram struct {
	api    string
	chatID string
	client *http.Client
	logger *zap.SugaredLogger
}

// NewTelegram 创建Telegram通知通道。token或chatID为空时返回nil，
// 调用方应改用 Nop。
func NewTelegram(token, chatID string, logger *zap.SugaredLogger) *Telegram {
	if token == "" || chatID == "" {
		return nil
	}
	return &Telegram{
		api:    "https://api.telegram.org/bot" + token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Configured 总是true；未配置的场景由 Nop 承担
func (t *Telegram) Configured() bool { return true }

// Send 发送纯文本消息，失败仅记录日志
func (t *Telegram) Send(text string) {
	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	if err := t.post("/sendMessage", data); err != nil {
		t.logger.Warnf("Telegram消息发送失败: %v", err)
	}
}

// SendConfirm 发送带 是/否 内联键盘的确认请求，按钮回调携带token
func (t *Telegram) SendConfirm(text, token string) bool {
	yes, _ := json.Marshal(map[string]string{"id": token, "ans": "yes"})
	no, _ := json.Marshal(map[string]string{"id": token, "ans": "no"})
	keyboard, _ := json.Marshal(map[string]interface{}{
		"inline_keyboard": [][]map[string]string{{
			{"text": "是", "callback_data": string(yes)},
			{"text": "否", "callback_data": string(no)},
		}},
	})

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("reply_markup", string(keyboard))
	if err := t.post("/sendMessage", data); err != nil {
		t.logger.Warnf("Telegram确认请求发送失败: %v", err)
		return false
	}
	return true
}

// post 提交一个表单请求并检查状态码
func (t *Telegram) post(path string, data url.Values) error {
	resp, err := t.client.PostForm(t.api+path, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// getUpdates 做一次长轮询，返回原始更新列表
func (t *Telegram) getUpdates(offset int64) ([]update, error) {
	q := url.Values{}
	q.Set("timeout", "25")
	if offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", offset))
	}

	// 长轮询的客户端超时必须大于服务端timeout
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(t.api + "/getUpdates?" + q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if !body.OK {
		return nil, fmt.Errorf("getUpdates 返回 ok=false")
	}
	return body.Result, nil
}

// answerCallback 响应按钮点击，消除客户端的加载态
func (t *Telegram) answerCallback(callbackID string) {
	data := url.Values{}
	data.Set("callback_query_id", callbackID)
	if err := t.post("/answerCallbackQuery", data); err != nil {
		t.logger.Debugf("answerCallbackQuery失败: %v", err)
	}
}

// update 是getUpdates响应中单条更新的投影
type update struct {
	UpdateID      int64 `json:"update_id"`
	CallbackQuery *struct {
		ID   string `json:"id"`
		Data string `json:"data"`
	} `json:"callback_query,omitempty"`
	Message *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message,omitempty"`
}

// trimCommand 取命令后的参数部分
func trimCommand(text, cmd string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, cmd))
}
