package engine

import (
	"strings"
	"testing"

	"grid-trader-go/internal/market"
	"grid-trader-go/internal/models"
	"grid-trader-go/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func executorFixture(t *testing.T, slippage float64) (*Executor, *state.Store, *stubNotifier) {
	t.Helper()
	cfg := &models.Config{
		Symbol:     "BTC/KRW",
		TotalQuote: 200000,
		NGrids:     20,
		GridMode:   "equal",
	}
	store := newTestStore(cfg)
	notifier := &stubNotifier{configured: true, sendOK: true}
	validator := market.NewValidator(nil, zap.NewNop().Sugar())
	exec := NewExecutor(cfg.Symbol, slippage, validator, store, notifier, zap.NewNop().Sugar())
	return exec, store, notifier
}

func TestExecuteBuyMovesFunds(t *testing.T) {
	exec, store, _ := executorFixture(t, 0)

	order := exec.Execute(models.Buy, 100000, 1.0)
	require.NotNil(t, order)

	assert.Equal(t, models.Buy, order.Side)
	assert.Equal(t, "closed", order.Status)
	assert.True(t, strings.HasPrefix(order.ID, "SIM-buy-"))
	assert.Equal(t, 100000.0, order.Price)

	snap := store.Snapshot()
	assert.InDelta(t, 100000.0, snap.Account.KRW, 1e-6)
	assert.InDelta(t, 1.0, snap.Account.BTC, 1e-9)
}

func TestExecuteAppliesSlippage(t *testing.T) {
	exec, store, _ := executorFixture(t, 0.003)

	order := exec.Execute(models.Buy, 100000, 1.0)
	require.NotNil(t, order)
	assert.InDelta(t, 99700.0, order.Price, 1e-6)

	snap := store.Snapshot()
	assert.InDelta(t, 200000.0-99700.0, snap.Account.KRW, 1e-6)
}

func TestExecuteRoundTripConservesValue(t *testing.T) {
	exec, store, _ := executorFixture(t, 0)

	buy := exec.Execute(models.Buy, 100000, 1.0)
	require.NotNil(t, buy)
	sell := exec.Execute(models.Sell, 110000, 1.0)
	require.NotNil(t, sell)

	snap := store.Snapshot()
	// bought at 100000, sold at 110000, zero slippage: +10000 KRW, flat BTC
	assert.InDelta(t, 210000.0, snap.Account.KRW, 1e-6)
	assert.InDelta(t, 0.0, snap.Account.BTC, 1e-9)
}

func TestExecuteInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	exec, store, _ := executorFixture(t, 0)

	order := exec.Execute(models.Buy, 100000, 5.0) // costs 500000, only 200000 available
	assert.Nil(t, order)

	snap := store.Snapshot()
	assert.InDelta(t, 200000.0, snap.Account.KRW, 1e-6)
	assert.InDelta(t, 0.0, snap.Account.BTC, 1e-9)
}

func TestExecuteSellWithoutInventory(t *testing.T) {
	exec, store, _ := executorFixture(t, 0)

	order := exec.Execute(models.Sell, 100000, 0.5)
	assert.Nil(t, order)

	snap := store.Snapshot()
	assert.InDelta(t, 200000.0, snap.Account.KRW, 1e-6)
}

func TestExecuteRejectedByValidator(t *testing.T) {
	exec, store, notifier := executorFixture(t, 0)

	// far below the 5000 KRW minimum notional
	order := exec.Execute(models.Buy, 100000, 0.00001)
	assert.Nil(t, order)

	snap := store.Snapshot()
	assert.InDelta(t, 200000.0, snap.Account.KRW, 1e-6)

	msgs := notifier.sent()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "驳回")
}

func TestExecuteNotifiesFillInAutoMode(t *testing.T) {
	exec, store, notifier := executorFixture(t, 0)

	store.Update(func(s *models.TradingState) { s.AutoMode = true })
	order := exec.Execute(models.Buy, 100000, 1.0)
	require.NotNil(t, order)

	msgs := notifier.sent()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "AUTO 成交")
}
