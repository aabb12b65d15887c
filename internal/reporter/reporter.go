// Package reporter 定期把账户余额和网格全貌渲染成表格写进日志，
// 给不方便开Telegram的场景一个快速巡检入口。
package reporter

import (
	"fmt"
	"sort"
	"time"

	"grid-trader-go/internal/models"
	"grid-trader-go/internal/state"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
)

// Reporter 周期性输出状态报表
type Reporter struct {
	store    *state.Store
	interval time.Duration
	logger   *zap.SugaredLogger

	stopCh chan struct{}
}

// New 创建报表器，interval不合法时回退到5分钟
func New(store *state.Store, interval time.Duration, logger *zap.SugaredLogger) *Reporter {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reporter{
		store:    store,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Run 阻塞运行报表循环，直到 Stop 被调用
func (r *Reporter) Run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.logger.Infof("状态报表\n%s", r.RenderStatus())
		}
	}
}

// Stop 停止报表循环
func (r *Reporter) Stop() {
	close(r.stopCh)
}

// RenderStatus 渲染当前状态的完整文本报表
func (r *Reporter) RenderStatus() string {
	snap := r.store.Snapshot()

	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.AppendHeader(table.Row{"KRW", "BTC", "AUTO", "TEST", "策略", "网格数"})
	summary.AppendRow(table.Row{
		fmt.Sprintf("%.0f", snap.Account.KRW),
		fmt.Sprintf("%.8f", snap.Account.BTC),
		snap.AutoMode,
		snap.TestMode,
		strategyDisplay(snap.Strategy),
		len(snap.Cells),
	})

	cells := table.NewWriter()
	cells.SetStyle(table.StyleLight)
	cells.AppendHeader(table.Row{"#", "买入价", "卖出价", "数量", "状态"})

	indexes := make([]int, 0, len(snap.Cells))
	for i := range snap.Cells {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		c := snap.Cells[i]
		cells.AppendRow(table.Row{
			c.Index,
			fmt.Sprintf("%.0f", c.BuyPrice),
			fmt.Sprintf("%.0f", c.SellPrice),
			fmt.Sprintf("%.8f", c.Amount),
			statusDisplay(c.Status),
		})
	}

	return summary.Render() + "\n" + cells.Render()
}

func strategyDisplay(key string) string {
	if key == "" {
		return "-"
	}
	return key
}

func statusDisplay(s models.CellStatus) string {
	switch s {
	case models.CellIdle:
		return "空闲"
	case models.CellBought:
		return "持仓"
	case models.CellSold:
		return "已卖出"
	default:
		return string(s)
	}
}
