package engine

import (
	"testing"
	"time"

	"grid-trader-go/internal/market"
	"grid-trader-go/internal/models"
	"grid-trader-go/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type schedulerFixture struct {
	cfg       *models.Config
	store     *state.Store
	feed      *scriptedFeed
	notifier  *stubNotifier
	scheduler *Scheduler
}

func newSchedulerFixture(t *testing.T, autoMode bool) *schedulerFixture {
	t.Helper()
	cfg := &models.Config{
		Symbol:            "BTC/KRW",
		TotalQuote:        200000,
		NGrids:            2,
		PriceLow:          95,
		PriceHigh:         105,
		GridMode:          "equal",
		CheckIntervalSec:  1,
		ConfirmTimeoutSec: 1,
		AutoMode:          autoMode,
	}
	store := newTestStore(cfg)
	// headroom so adjacent cells can fill on the same tick
	store.Update(func(s *models.TradingState) { s.Account.KRW = 400000 })

	feed := &scriptedFeed{price: 101}
	notifier := &stubNotifier{configured: true, sendOK: true}
	log := zap.NewNop().Sugar()
	validator := market.NewValidator(nil, log)
	executor := NewExecutor(cfg.Symbol, 0, validator, store, notifier, log)
	gate := NewGate(notifier, 50*time.Millisecond, 10*time.Millisecond, log)

	return &schedulerFixture{
		cfg:       cfg,
		store:     store,
		feed:      feed,
		notifier:  notifier,
		scheduler: NewScheduler(cfg, store, feed, executor, gate, notifier, log),
	}
}

func (f *schedulerFixture) cell(t *testing.T, index int) *models.GridCell {
	t.Helper()
	snap := f.store.Snapshot()
	cell, ok := snap.Cells[index]
	require.True(t, ok, "cell %d missing", index)
	return cell
}

func TestRunOnceCreatesCells(t *testing.T) {
	f := newSchedulerFixture(t, true)

	// 101 touches neither 95 nor 100, grid is built but stays idle
	require.NoError(t, f.scheduler.RunOnce())

	snap := f.store.Snapshot()
	require.Len(t, snap.Cells, 2)
	assert.Equal(t, 95.0, snap.Cells[0].BuyPrice)
	assert.Equal(t, 100.0, snap.Cells[0].SellPrice)
	assert.Equal(t, 100.0, snap.Cells[1].BuyPrice)
	assert.Equal(t, 105.0, snap.Cells[1].SellPrice)
	assert.Equal(t, models.CellIdle, snap.Cells[0].Status)
	assert.Equal(t, models.CellIdle, snap.Cells[1].Status)
}

func TestFullCycleAutoMode(t *testing.T) {
	f := newSchedulerFixture(t, true)

	// price drops through both buy edges
	f.feed.set(94)
	require.NoError(t, f.scheduler.RunOnce())
	assert.Equal(t, models.CellBought, f.cell(t, 0).Status)
	assert.Equal(t, models.CellBought, f.cell(t, 1).Status)
	require.NotNil(t, f.cell(t, 0).BuyOrder)
	assert.Equal(t, models.Buy, f.cell(t, 0).BuyOrder.Side)

	// price rallies through both sell edges
	f.feed.set(106)
	require.NoError(t, f.scheduler.RunOnce())
	assert.Equal(t, models.CellSold, f.cell(t, 0).Status)
	assert.Equal(t, models.CellSold, f.cell(t, 1).Status)
	require.NotNil(t, f.cell(t, 1).SellOrder)

	// sold is terminal: another dip must not reopen the cells
	f.feed.set(94)
	require.NoError(t, f.scheduler.RunOnce())
	assert.Equal(t, models.CellSold, f.cell(t, 0).Status)
	assert.Equal(t, models.CellSold, f.cell(t, 1).Status)
}

func TestFullCycleConservesValue(t *testing.T) {
	f := newSchedulerFixture(t, true)

	f.feed.set(94)
	require.NoError(t, f.scheduler.RunOnce())
	f.feed.set(106)
	require.NoError(t, f.scheduler.RunOnce())

	snap := f.store.Snapshot()
	// every cell bought low and sold high with zero slippage: KRW grew, BTC flat
	assert.Greater(t, snap.Account.KRW, 400000.0)
	assert.InDelta(t, 0.0, snap.Account.BTC, 1e-6)
}

func TestManualModeTimeoutLeavesCellIdle(t *testing.T) {
	f := newSchedulerFixture(t, false)

	f.feed.set(94)
	require.NoError(t, f.scheduler.RunOnce())

	// prompts went out but nobody answered
	assert.NotEmpty(t, f.notifier.confirms)
	assert.Equal(t, models.CellIdle, f.cell(t, 0).Status)
	assert.Equal(t, models.CellIdle, f.cell(t, 1).Status)

	snap := f.store.Snapshot()
	assert.InDelta(t, 400000.0, snap.Account.KRW, 1e-6)
}

func TestManualModeApprovedBuy(t *testing.T) {
	f := newSchedulerFixture(t, false)
	f.notifier.onConfirm = func(token string) { f.scheduler.gate.Submit(token, "yes") }

	f.feed.set(94)
	require.NoError(t, f.scheduler.RunOnce())
	assert.Equal(t, models.CellBought, f.cell(t, 0).Status)
	assert.Equal(t, models.CellBought, f.cell(t, 1).Status)
}

func TestManualModeDeclinedBuy(t *testing.T) {
	f := newSchedulerFixture(t, false)
	f.notifier.onConfirm = func(token string) { f.scheduler.gate.Submit(token, "no") }

	f.feed.set(94)
	require.NoError(t, f.scheduler.RunOnce())
	assert.Equal(t, models.CellIdle, f.cell(t, 0).Status)
}

func TestUnconfiguredNotifierSkipsGate(t *testing.T) {
	f := newSchedulerFixture(t, false)
	f.notifier.configured = false

	f.feed.set(94)
	require.NoError(t, f.scheduler.RunOnce())

	// no channel to ask on, buys proceed and no prompt is attempted
	assert.Empty(t, f.notifier.confirms)
	assert.Equal(t, models.CellBought, f.cell(t, 0).Status)
}

func TestSellIsNeverGated(t *testing.T) {
	f := newSchedulerFixture(t, false)

	// seed an existing position directly
	f.store.Update(func(s *models.TradingState) {
		s.Account.BTC = 2000
		s.Cells[0] = &models.GridCell{
			Index: 0, BuyPrice: 95, SellPrice: 100, Amount: 1000,
			Status: models.CellBought,
		}
		s.Cells[1] = &models.GridCell{
			Index: 1, BuyPrice: 100, SellPrice: 105, Amount: 1000,
			Status: models.CellSold,
		}
	})

	f.feed.set(106)
	require.NoError(t, f.scheduler.RunOnce())

	assert.Empty(t, f.notifier.confirms)
	assert.Equal(t, models.CellSold, f.cell(t, 0).Status)
}

func TestFeedErrorSkipsTick(t *testing.T) {
	f := newSchedulerFixture(t, true)
	f.feed.err = assert.AnError

	err := f.scheduler.RunOnce()
	require.Error(t, err)

	snap := f.store.Snapshot()
	assert.Empty(t, snap.Cells)
}

func TestInvalidRangeSkipsTick(t *testing.T) {
	f := newSchedulerFixture(t, true)
	f.store.Update(func(s *models.TradingState) {
		s.Settings.PriceLow = 200
		s.Settings.PriceHigh = 100
	})

	f.feed.set(94)
	require.NoError(t, f.scheduler.RunOnce())
	snap := f.store.Snapshot()
	assert.Empty(t, snap.Cells)
}

func TestLeftoverCellsBeyondGridCountStillSell(t *testing.T) {
	f := newSchedulerFixture(t, true)

	// a position left over from a wider grid: its index exceeds the
	// current n_grids of 2
	f.store.Update(func(s *models.TradingState) {
		s.Account.BTC = 1000
		s.Cells[5] = &models.GridCell{
			Index: 5, BuyPrice: 95, SellPrice: 100, Amount: 500,
			Status: models.CellBought,
		}
	})

	f.feed.set(106)
	require.NoError(t, f.scheduler.RunOnce())

	assert.Equal(t, models.CellSold, f.cell(t, 5).Status)
	require.NotNil(t, f.cell(t, 5).SellOrder)
}

func TestExistingCellsAreNotRebuilt(t *testing.T) {
	f := newSchedulerFixture(t, true)

	f.feed.set(94)
	require.NoError(t, f.scheduler.RunOnce())
	bought := f.cell(t, 0)
	require.Equal(t, models.CellBought, bought.Status)

	// widening the range must not clobber live cells at existing indexes;
	// 99 sits inside cell0 so no transition fires either way
	f.store.Update(func(s *models.TradingState) {
		s.Settings.PriceLow = 90
		s.Settings.PriceHigh = 110
	})
	f.feed.set(99)
	require.NoError(t, f.scheduler.RunOnce())

	after := f.cell(t, 0)
	assert.Equal(t, models.CellBought, after.Status)
	assert.Equal(t, bought.BuyPrice, after.BuyPrice)
}
