package state

import (
	"fmt"
	"testing"

	"grid-trader-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockRepository records saves in memory for store tests.
type mockRepository struct {
	saved     *models.TradingState
	saveCount int
	loadState *models.TradingState
	loadErr   error
	saveErr   error
}

func (m *mockRepository) Save(state *models.TradingState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = state.DeepCopy()
	m.saveCount++
	return nil
}

func (m *mockRepository) Load() (*models.TradingState, error) {
	return m.loadState, m.loadErr
}

func (m *mockRepository) Close() error { return nil }

func testConfig() *models.Config {
	return &models.Config{
		Symbol:     "BTC/KRW",
		TotalQuote: 200000,
		NGrids:     20,
		GridMode:   "equal",
	}
}

func TestNewStoreFreshState(t *testing.T) {
	repo := &mockRepository{}
	store, err := NewStore(repo, testConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)

	// a brand-new state is persisted immediately
	require.NotNil(t, repo.saved)
	assert.Equal(t, 200000.0, repo.saved.Account.KRW)
	assert.Equal(t, 0.0, repo.saved.Account.BTC)

	snap := store.Snapshot()
	assert.Equal(t, 20, snap.Settings.NGrids)
	assert.Empty(t, snap.Cells)
}

func TestNewStoreRestoresPersistedState(t *testing.T) {
	persisted := &models.TradingState{
		Account: models.Account{KRW: 150000, BTC: 0.001},
		Cells: map[int]*models.GridCell{
			0: {Index: 0, BuyPrice: 95, SellPrice: 100, Status: models.CellBought},
		},
	}
	repo := &mockRepository{loadState: persisted}

	store, err := NewStore(repo, testConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)

	snap := store.Snapshot()
	assert.Equal(t, 150000.0, snap.Account.KRW)
	assert.Equal(t, models.CellBought, snap.Cells[0].Status)
	// restored state is not re-saved at startup
	assert.Equal(t, 0, repo.saveCount)
}

func TestUpdatePersistsAfterMutation(t *testing.T) {
	repo := &mockRepository{}
	store, err := NewStore(repo, testConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)

	store.Update(func(s *models.TradingState) {
		s.Account.KRW = 123456
	})

	require.NotNil(t, repo.saved)
	assert.Equal(t, 123456.0, repo.saved.Account.KRW)
	assert.False(t, repo.saved.UpdatedAt.IsZero())
}

func TestUpdateSurvivesPersistFailure(t *testing.T) {
	repo := &mockRepository{}
	store, err := NewStore(repo, testConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)

	repo.saveErr = fmt.Errorf("disk full")
	store.Update(func(s *models.TradingState) {
		s.Account.KRW = 999
	})

	// in-memory state remains authoritative
	snap := store.Snapshot()
	assert.Equal(t, 999.0, snap.Account.KRW)
}

func TestSnapshotIsIsolated(t *testing.T) {
	repo := &mockRepository{}
	store, err := NewStore(repo, testConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)

	store.Update(func(s *models.TradingState) {
		s.Cells[0] = &models.GridCell{Index: 0, BuyPrice: 95, Status: models.CellIdle}
	})

	snap := store.Snapshot()
	snap.Cells[0].Status = models.CellSold
	snap.Account.KRW = 0

	fresh := store.Snapshot()
	assert.Equal(t, models.CellIdle, fresh.Cells[0].Status)
	assert.Equal(t, 200000.0, fresh.Account.KRW)
}
