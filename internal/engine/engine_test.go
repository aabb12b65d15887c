package engine

import (
	"sync"

	"grid-trader-go/internal/models"
	"grid-trader-go/internal/state"

	"go.uber.org/zap"
)

// memRepository keeps state in memory for engine tests.
type memRepository struct {
	saved *models.TradingState
}

func (m *memRepository) Save(s *models.TradingState) error {
	m.saved = s.DeepCopy()
	return nil
}

func (m *memRepository) Load() (*models.TradingState, error) { return nil, nil }
func (m *memRepository) Close() error                        { return nil }

// stubNotifier records outgoing messages and lets tests script the
// confirmation round-trip.
type stubNotifier struct {
	mu         sync.Mutex
	messages   []string
	confirms   []string
	configured bool
	sendOK     bool
	onConfirm  func(token string)
}

func (n *stubNotifier) Send(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func (n *stubNotifier) SendConfirm(text, token string) bool {
	n.mu.Lock()
	n.confirms = append(n.confirms, token)
	cb := n.onConfirm
	n.mu.Unlock()
	if cb != nil {
		cb(token)
	}
	return n.sendOK
}

func (n *stubNotifier) Configured() bool { return n.configured }

func (n *stubNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// scriptedFeed returns a fixed price until it is changed.
type scriptedFeed struct {
	mu    sync.Mutex
	price float64
	err   error
}

func (f *scriptedFeed) Last(string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, f.err
}

func (f *scriptedFeed) set(price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = price
}

func newTestStore(cfg *models.Config) *state.Store {
	store, err := state.NewStore(&memRepository{}, cfg, zap.NewNop().Sugar())
	if err != nil {
		panic(err)
	}
	return store
}
