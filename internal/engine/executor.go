package engine

import (
	"fmt"
	"time"

	"grid-trader-go/internal/market"
	"grid-trader-go/internal/models"
	"grid-trader-go/internal/notify"
	"grid-trader-go/internal/state"

	"github.com/jxskiss/base62"
	"go.uber.org/zap"
)

// Executor 执行模拟成交：先过交易规则校验，再施加滑点，
// 最后在状态锁内完成余额检查与划转。成交是即时且完整的，不存在部分成交。
type Executor struct {
	symbol    string
	slippage  float64
	validator *market.Validator
	store     *state.Store
	notifier  notify.Notifier
	logger    *zap.SugaredLogger
}

// NewExecutor 创建执行引擎
func NewExecutor(symbol string, slippage float64, validator *market.Validator,
	store *state.Store, notifier notify.Notifier, logger *zap.SugaredLogger) *Executor {
	return &Executor{
		symbol:    symbol,
		slippage:  slippage,
		validator: validator,
		store:     store,
		notifier:  notifier,
		logger:    logger,
	}
}

// Execute 尝试按给定价格和数量成交。
// 校验驳回或余额不足时返回nil，不改变任何状态；调用方不得推进网格状态机。
// 成功时余额划转与持久化在一次锁内完成，返回成交记录。
func (e *Executor) Execute(side models.Side, price, amount float64) *models.OrderResult {
	verdict := e.validator.Validate(e.symbol, side, price, amount)
	if !verdict.OK {
		e.logger.Infof("[ORDER REJECT] %s", verdict.Reason)
		e.notifier.Send("❌ 订单被驳回: " + verdict.Reason)
		return nil
	}

	// 后续一律使用归一化后的价格与数量
	px := verdict.Price
	qty := verdict.Amount

	// 固定滑点模型：成交价总是劣于报价
	execPrice := px * (1 - e.slippage)
	if side == models.Sell {
		execPrice = px * (1 + e.slippage)
	}

	var (
		filled  bool
		account models.Account
	)
	e.store.Update(func(s *models.TradingState) {
		if side == models.Buy {
			cost := execPrice * qty
			if s.Account.KRW < cost {
				e.logger.Infof("KRW不足，无法买入: 需要 %.0f, 仅有 %.0f", cost, s.Account.KRW)
				return
			}
			s.Account.KRW -= cost
			s.Account.BTC += qty
		} else {
			if s.Account.BTC < qty {
				e.logger.Infof("BTC不足，无法卖出: 需要 %.8f, 仅有 %.8f", qty, s.Account.BTC)
				return
			}
			s.Account.BTC -= qty
			s.Account.KRW += execPrice * qty
		}
		filled = true
		account = s.Account
	})
	if !filled {
		return nil
	}

	now := time.Now()
	order := &models.OrderResult{
		ID:     fmt.Sprintf("SIM-%s-%s", side, base62.FormatInt(now.UnixNano())),
		Side:   side,
		Price:  execPrice,
		Amount: qty,
		Status: "closed",
		Time:   now.UnixMilli(),
	}

	e.logger.Infof("[SIM] %s %.8f %s @ %.0f", side, qty, e.symbol, execPrice)

	autoMode := false
	e.store.View(func(s *models.TradingState) { autoMode = s.AutoMode })
	if autoMode {
		e.notifier.Send(fmt.Sprintf("[AUTO 成交] %s %.8f %s @ %.0f\nKRW: %.0f / BTC: %.8f",
			side, qty, e.symbol, execPrice, account.KRW, account.BTC))
	}
	return order
}
