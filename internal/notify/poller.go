package notify

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"grid-trader-go/internal/models"
	"grid-trader-go/internal/state"

	"go.uber.org/zap"
)

// Poller 长轮询Telegram更新：按钮回调转交确认门，文本命令直接执行。
// 命令只修改模式开关和策略参数，真正的交易动作都留给下一个tick。
type Poller struct {
	tg      *Telegram
	store   *state.Store
	answers AnswerSink
	logger  *zap.SugaredLogger

	// 依赖回调，避免与engine/strategy/news形成环
	Price         func() (float64, error)
	ApplyStrategy func(key string) (string, bool)
	ShowStrategy  func() string
	NewsNow       func() int
	Shutdown      func()

	stopCh chan struct{}
}

// NewPoller 创建命令轮询器
func NewPoller(tg *Telegram, store *state.Store, answers AnswerSink, logger *zap.SugaredLogger) *Poller {
	return &Poller{
		tg:      tg,
		store:   store,
		answers: answers,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Run 阻塞运行轮询循环，直到 Stop 被调用
func (p *Poller) Run() {
	p.logger.Info("Telegram命令轮询已启动。")
	var offset int64
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		updates, err := p.tg.getUpdates(offset)
		if err != nil {
			p.logger.Warnf("Telegram轮询失败: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			switch {
			case u.CallbackQuery != nil:
				p.handleCallback(u.CallbackQuery.ID, u.CallbackQuery.Data)
			case u.Message != nil && u.Message.Text != "":
				p.handleCommand(strings.TrimSpace(u.Message.Text))
			}
		}
		time.Sleep(1 * time.Second)
	}
}

// Stop 停止轮询循环
func (p *Poller) Stop() {
	close(p.stopCh)
}

// handleCallback 解析按钮回调并把应答交给确认门
func (p *Poller) handleCallback(callbackID, data string) {
	var payload struct {
		ID  string `json:"id"`
		Ans string `json:"ans"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		p.logger.Warnf("无法解析回调数据 %q: %v", data, err)
		return
	}
	p.answers.Submit(payload.ID, payload.Ans)
	p.tg.answerCallback(callbackID)
}

// handleCommand 执行文本命令。前缀较长的命令必须先于其前缀命令匹配。
func (p *Poller) handleCommand(text string) {
	switch {
	case strings.HasPrefix(text, "/auto"):
		p.store.Update(func(s *models.TradingState) { s.AutoMode = true })
		p.tg.Send("自动确认模式 ON")

	case strings.HasPrefix(text, "/manual"):
		p.store.Update(func(s *models.TradingState) { s.AutoMode = false })
		p.tg.Send("人工确认模式 ON")

	case strings.HasPrefix(text, "/restart"):
		p.store.Update(func(s *models.TradingState) { s.AutoMode = true })
		p.tg.Send("自动交易已重启 (AUTO_MODE=ON)")

	case strings.HasPrefix(text, "/stop"):
		p.tg.Send("自动交易即将退出。")
		if p.Shutdown != nil {
			p.Shutdown()
		}

	case strings.HasPrefix(text, "/balance"):
		p.sendBalance()

	case strings.HasPrefix(text, "/current_target"):
		p.sendCurrentTarget()

	case strings.HasPrefix(text, "/set_target"):
		p.setTarget(trimCommand(text, "/set_target"))

	case strings.HasPrefix(text, "/test_on"):
		p.store.Update(func(s *models.TradingState) { s.TestMode = true })
		p.tg.Send("测试模式 ON (模拟行情)")

	case strings.HasPrefix(text, "/test_off"):
		p.store.Update(func(s *models.TradingState) { s.TestMode = false })
		p.tg.Send("测试模式 OFF (尝试真实行情)")

	case strings.HasPrefix(text, "/mode"):
		snap := p.store.Snapshot()
		p.tg.Send(fmt.Sprintf("MODE\nAUTO_MODE: %v\nTEST_MODE: %v", snap.AutoMode, snap.TestMode))

	case strings.HasPrefix(text, "/news_on"):
		p.store.Update(func(s *models.TradingState) { s.NewsEnabled = true })
		p.tg.Send("新闻推送 ON")

	case strings.HasPrefix(text, "/news_off"):
		p.store.Update(func(s *models.TradingState) { s.NewsEnabled = false })
		p.tg.Send("新闻推送 OFF")

	case strings.HasPrefix(text, "/news_now"):
		if p.NewsNow != nil {
			sent := p.NewsNow()
			p.tg.Send(fmt.Sprintf("已即时推送 %d 条新闻", sent))
		}

	case strings.HasPrefix(text, "/news_filter"):
		p.setNewsFilter(trimCommand(text, "/news_filter"))

	case strings.HasPrefix(text, "/news"):
		snap := p.store.Snapshot()
		p.tg.Send(fmt.Sprintf("新闻推送: %v\n过滤词: %s\n即时获取: /news_now\nON: /news_on  OFF: /news_off\n改过滤词: /news_filter bitcoin,btc",
			snap.NewsEnabled, filterDisplay(snap.NewsFilter)))

	case strings.HasPrefix(text, "/strategy_show"):
		if p.ShowStrategy != nil {
			p.tg.Send(p.ShowStrategy())
		}

	case strings.HasPrefix(text, "/strategy"):
		p.applyStrategy(trimCommand(text, "/strategy"))
	}
}

// sendBalance 报告两侧余额；能取到现价时附带折算总值
func (p *Poller) sendBalance() {
	snap := p.store.Snapshot()
	msg := fmt.Sprintf("余额\nKRW: %.0f\nBTC: %.8f", snap.Account.KRW, snap.Account.BTC)
	if p.Price != nil {
		if price, err := p.Price(); err == nil {
			msg += fmt.Sprintf("\n折算总值: %.0f KRW (现价 %.0f)",
				snap.Account.KRW+snap.Account.BTC*price, price)
		}
	}
	p.tg.Send(msg)
}

// sendCurrentTarget 报告最后一个处于bought状态的网格
func (p *Poller) sendCurrentTarget() {
	snap := p.store.Snapshot()

	var last *models.GridCell
	indexes := make([]int, 0, len(snap.Cells))
	for i := range snap.Cells {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		if snap.Cells[i].Status == models.CellBought {
			last = snap.Cells[i]
		}
	}

	if last == nil {
		p.tg.Send("当前无持仓中的网格")
		return
	}
	p.tg.Send(fmt.Sprintf("最近买入网格 #%d\n买入价: %.0f\n目标价: %.0f\n数量: %.8f",
		last.Index, last.BuyPrice, last.SellPrice, last.Amount))
}

// setTarget 修改索引最大的网格的卖出目标价
func (p *Poller) setTarget(arg string) {
	target, err := strconv.ParseFloat(arg, 64)
	if err != nil || target <= 0 {
		p.tg.Send("用法: /set_target 价格")
		return
	}

	changed := -1
	p.store.Update(func(s *models.TradingState) {
		maxIdx := -1
		for i := range s.Cells {
			if i > maxIdx {
				maxIdx = i
			}
		}
		if maxIdx >= 0 {
			s.Cells[maxIdx].SellPrice = target
			changed = maxIdx
		}
	})

	if changed >= 0 {
		p.tg.Send(fmt.Sprintf("网格 #%d 目标价已改为 %.0f", changed, target))
	} else {
		p.tg.Send("尚无网格可修改")
	}
}

// setNewsFilter 更新新闻关键词过滤
func (p *Poller) setNewsFilter(arg string) {
	if arg == "" {
		p.tg.Send("用法: /news_filter 关键词1,关键词2  (留空表示不过滤)")
		return
	}
	var keywords []string
	for _, k := range strings.Split(arg, ",") {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	p.store.Update(func(s *models.TradingState) { s.NewsFilter = keywords })
	p.tg.Send("新闻过滤词已更新: " + filterDisplay(keywords))
}

// applyStrategy 套用策略预设
func (p *Poller) applyStrategy(key string) {
	key = strings.ToLower(key)
	if key == "" || p.ApplyStrategy == nil {
		p.tg.Send("用法: /strategy up | /strategy middle | /strategy down")
		return
	}
	summary, ok := p.ApplyStrategy(key)
	if !ok {
		p.tg.Send("策略应用失败: " + summary)
		return
	}
	p.tg.Send("策略已切换。\n" + summary + "\n下一个tick生效。")
}

func filterDisplay(keywords []string) string {
	if len(keywords) == 0 {
		return "(全部)"
	}
	return strings.Join(keywords, ", ")
}
