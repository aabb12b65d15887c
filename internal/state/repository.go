package state

import "grid-trader-go/internal/models"

// Repository defines the interface for state persistence. It abstracts the
// underlying storage mechanism (BadgerDB in production, in-memory in tests)
// from the rest of the application.
type Repository interface {
	// Save atomically replaces the whole persisted trading state.
	Save(state *models.TradingState) error

	// Load returns the persisted state, or (nil, nil) when none exists yet.
	Load() (*models.TradingState, error)

	// Close gracefully closes the underlying storage.
	Close() error
}
