package news

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"grid-trader-go/internal/models"
	"grid-trader-go/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepository struct{}

func (memRepository) Save(*models.TradingState) error     { return nil }
func (memRepository) Load() (*models.TradingState, error) { return nil, nil }
func (memRepository) Close() error                        { return nil }

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Send(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func (n *recordingNotifier) SendConfirm(string, string) bool { return true }
func (n *recordingNotifier) Configured() bool                { return true }

func newsStore(t *testing.T) *state.Store {
	t.Helper()
	cfg := &models.Config{Symbol: "BTC/KRW", TotalQuote: 200000, NGrids: 20, GridMode: "equal"}
	store, err := state.NewStore(memRepository{}, cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	return store
}

func newsLoop(t *testing.T, store *state.Store, notifier *recordingNotifier, maxItems int) *Loop {
	t.Helper()
	fetcher := NewFetcher(nil, zap.NewNop().Sugar())
	return NewLoop(fetcher, store, notifier, time.Hour, maxItems, zap.NewNop().Sugar())
}

func TestTakeUnseenDeduplicates(t *testing.T) {
	store := newsStore(t)
	loop := newsLoop(t, store, &recordingNotifier{}, 5)

	items := []Item{
		{ID: "a", Title: "first"},
		{ID: "b", Title: "second"},
	}

	fresh := loop.takeUnseen(items)
	assert.Len(t, fresh, 2)

	// same batch again: everything already seen
	fresh = loop.takeUnseen(items)
	assert.Empty(t, fresh)

	snap := store.Snapshot()
	assert.ElementsMatch(t, []string{"a", "b"}, snap.NewsSeenIDs)
}

func TestTakeUnseenRespectsMaxItems(t *testing.T) {
	store := newsStore(t)
	loop := newsLoop(t, store, &recordingNotifier{}, 2)

	items := []Item{
		{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"},
	}
	fresh := loop.takeUnseen(items)
	assert.Len(t, fresh, 2)

	// items beyond the cap were not marked seen, next round picks them up
	fresh = loop.takeUnseen(items)
	require.Len(t, fresh, 2)
	assert.Equal(t, "c", fresh[0].ID)
	assert.Equal(t, "d", fresh[1].ID)
}

func TestSeenRingIsBounded(t *testing.T) {
	store := newsStore(t)
	loop := newsLoop(t, store, &recordingNotifier{}, seenCap+100)

	items := make([]Item, 0, seenCap+50)
	for i := 0; i < seenCap+50; i++ {
		items = append(items, Item{ID: fmt.Sprintf("id-%d", i)})
	}
	loop.takeUnseen(items)

	snap := store.Snapshot()
	require.Len(t, snap.NewsSeenIDs, seenCap)
	// the oldest entries were evicted
	assert.Equal(t, "id-50", snap.NewsSeenIDs[0])
}
