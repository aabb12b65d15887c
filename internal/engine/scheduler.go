package engine

import (
	"fmt"
	"sort"
	"time"

	"grid-trader-go/internal/feed"
	"grid-trader-go/internal/grid"
	"grid-trader-go/internal/models"
	"grid-trader-go/internal/notify"
	"grid-trader-go/internal/state"

	"go.uber.org/zap"
)

// 单个tick失败后的固定退避时长
const cycleBackoff = 3 * time.Second

// Scheduler 驱动网格状态机：每个周期取一次价，逐格评估买卖条件。
// 周期时长每轮从状态重读，策略预设修改间隔后下一轮即生效。
type Scheduler struct {
	cfg      *models.Config
	store    *state.Store
	feed     feed.PriceFeed
	executor *Executor
	gate     *Gate
	notifier notify.Notifier
	logger   *zap.SugaredLogger

	stopCh chan struct{}
}

// NewScheduler 创建tick调度器
func NewScheduler(cfg *models.Config, store *state.Store, priceFeed feed.PriceFeed,
	executor *Executor, gate *Gate, notifier notify.Notifier, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		feed:     priceFeed,
		executor: executor,
		gate:     gate,
		notifier: notifier,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Loop 永续运行调度循环。单个tick的任何错误都只会被记录并退避，
// 调度器本身绝不因一次失败而终止。
func (s *Scheduler) Loop() {
	s.logger.Info("网格调度循环已启动。")
	for {
		select {
		case <-s.stopCh:
			s.logger.Info("网格调度循环已停止。")
			return
		default:
		}

		if err := s.runOnceSafe(); err != nil {
			s.logger.Warnf("本次tick失败: %v", err)
			if !s.sleep(cycleBackoff) {
				return
			}
			continue
		}

		interval := time.Duration(s.interval()) * time.Second
		if !s.sleep(interval) {
			return
		}
	}
}

// Stop 停止调度循环
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// interval 每轮从状态重读tick周期
func (s *Scheduler) interval() int {
	interval := s.cfg.CheckIntervalSec
	s.store.View(func(st *models.TradingState) {
		if st.Settings.CheckIntervalSec > 0 {
			interval = st.Settings.CheckIntervalSec
		}
	})
	if interval <= 0 {
		interval = 5
	}
	return interval
}

// runOnceSafe 把未预期的panic转成错误，保证循环存活
func (s *Scheduler) runOnceSafe() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick发生未预期异常: %v", r)
		}
	}()
	return s.RunOnce()
}

// RunOnce 执行一个完整的tick：取价 → 补建缺失网格 → 按索引升序逐格评估。
// 也被 /tick 接口直接调用以强制执行一次。
func (s *Scheduler) RunOnce() error {
	snap := s.store.Snapshot()

	current, err := s.feed.Last(s.cfg.Symbol)
	if err != nil {
		// 行情瞬时不可用，跳过本tick，下个周期重试
		return fmt.Errorf("获取行情失败: %w", err)
	}

	low, high := s.priceRange(snap, current)
	ng := snap.Settings.NGrids
	if ng < 1 {
		s.logger.Warnf("网格数量非法 (%d)，跳过本tick", ng)
		return nil
	}
	if low >= high {
		s.logger.Warnf("区间非法: price_low (%.0f) 必须小于 price_high (%.0f)，跳过本tick", low, high)
		return nil
	}

	s.ensureCells(low, high, ng, snap.Settings)

	// 评估状态里存在的全部网格，而不只是当前配置的索引范围：
	// 策略收窄后，旧配置遗留的高索引持仓仍要走完生命周期
	for _, i := range s.cellIndexes() {
		s.evaluateCell(i, current)
	}

	s.store.View(func(st *models.TradingState) {
		s.logger.Infof("tick | price=%.0f | auto=%v | test=%v", current, st.AutoMode, st.TestMode)
	})
	return nil
}

// priceRange 解析本tick使用的价格区间：状态里的策略区间优先，
// 其次是配置的固定区间，都没有则围绕当前价取±2%。
func (s *Scheduler) priceRange(snap *models.TradingState, current float64) (float64, float64) {
	low := snap.Settings.PriceLow
	if low == 0 {
		low = s.cfg.PriceLow
	}
	if low == 0 {
		low = current * 0.98
	}
	high := snap.Settings.PriceHigh
	if high == 0 {
		high = s.cfg.PriceHigh
	}
	if high == 0 {
		high = current * 1.02
	}
	return low, high
}

// ensureCells 为尚不存在的索引补建网格单元。已存在的单元一概不动，
// 策略切换后旧单元保持原状态继续走完生命周期。
func (s *Scheduler) ensureCells(low, high float64, ng int, settings models.GridSettings) {
	levels := grid.Build(low, high, ng, settings.Mode)
	cells := grid.Cells(levels, settings.Padding, s.cfg.TotalQuote)

	s.store.Update(func(st *models.TradingState) {
		for _, cell := range cells {
			if _, exists := st.Cells[cell.Index]; !exists {
				st.Cells[cell.Index] = cell
			}
		}
	})
}

// evaluateCell 对单个网格执行状态机转移:
// idle→bought 需价格触及买入价 (非自动模式下先过确认门)；
// bought→sold 需价格触及卖出价，卖出永不需要确认；sold 为终态。
func (s *Scheduler) evaluateCell(index int, current float64) {
	cell, ok := s.cellCopy(index)
	if !ok {
		return
	}

	if cell.Status == models.CellIdle && current <= cell.BuyPrice {
		if s.approveBuy(index, cell) {
			if order := s.executor.Execute(models.Buy, cell.BuyPrice, cell.Amount); order != nil {
				s.store.Update(func(st *models.TradingState) {
					if c, exists := st.Cells[index]; exists && c.Status == models.CellIdle {
						c.Status = models.CellBought
						c.BuyOrder = order
					}
				})
			}
		}
	}

	// 买入后同一tick即可能满足卖出条件，重读一次最新状态
	cell, ok = s.cellCopy(index)
	if !ok {
		return
	}
	if cell.Status == models.CellBought && current >= cell.SellPrice {
		if order := s.executor.Execute(models.Sell, cell.SellPrice, cell.Amount); order != nil {
			s.store.Update(func(st *models.TradingState) {
				if c, exists := st.Cells[index]; exists && c.Status == models.CellBought {
					c.Status = models.CellSold
					c.SellOrder = order
				}
			})
		}
	}
}

// approveBuy 在需要时走人工确认。等待期间不持有状态锁。
func (s *Scheduler) approveBuy(index int, cell models.GridCell) bool {
	autoMode := false
	s.store.View(func(st *models.TradingState) { autoMode = st.AutoMode })
	if autoMode || !s.notifier.Configured() {
		return true
	}

	token := fmt.Sprintf("buy_%d_%d", index, time.Now().Unix())
	prompt := fmt.Sprintf("网格 #%d 买入确认?\n交易对: %s\n买入价: %.0f\n数量: %.8f\n(请在 %d 秒内应答)",
		index, s.cfg.Symbol, cell.BuyPrice, cell.Amount, s.cfg.ConfirmTimeoutSec)
	if !s.gate.Confirm(prompt, token) {
		s.logger.Infof("网格 #%d 买入未获确认，留待下个tick", index)
		return false
	}
	return true
}

// cellIndexes 返回当前全部网格索引，升序
func (s *Scheduler) cellIndexes() []int {
	var indexes []int
	s.store.View(func(st *models.TradingState) {
		indexes = make([]int, 0, len(st.Cells))
		for i := range st.Cells {
			indexes = append(indexes, i)
		}
	})
	sort.Ints(indexes)
	return indexes
}

// cellCopy 在锁内取出单个网格的浅拷贝
func (s *Scheduler) cellCopy(index int) (models.GridCell, bool) {
	var (
		cell models.GridCell
		ok   bool
	)
	s.store.View(func(st *models.TradingState) {
		if c, exists := st.Cells[index]; exists {
			cell = *c
			ok = true
		}
	})
	return cell, ok
}

// sleep 等待d，期间收到停止信号则返回false
func (s *Scheduler) sleep(d time.Duration) bool {
	select {
	case <-s.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}
