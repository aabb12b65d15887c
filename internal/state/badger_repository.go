package state

import (
	"encoding/json"
	"errors"

	"grid-trader-go/internal/models"

	"github.com/dgraph-io/badger/v3"
)

// badgerRepository is the BadgerDB implementation of Repository. The whole
// trading state lives under a single key and is replaced as one JSON document
// on every save, so a reader can never observe a half-written record.
type badgerRepository struct {
	db       *badger.DB
	stateKey []byte
}

// NewBadgerRepository opens (or creates) a BadgerDB database at dbPath.
func NewBadgerRepository(dbPath string) (Repository, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger's own logging is noisy; errors still surface through returned errors.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &badgerRepository{
		db:       db,
		stateKey: []byte("trading_state"),
	}, nil
}

// Save marshals the state to JSON and writes it in one transaction.
func (r *badgerRepository) Save(state *models.TradingState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(r.stateKey, data)
	})
}

// Load reads the state back. A missing key means a fresh start and returns
// (nil, nil) rather than an error.
func (r *badgerRepository) Load() (*models.TradingState, error) {
	var state models.TradingState

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(r.stateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("state value is empty in database")
			}
			return json.Unmarshal(val, &state)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Close closes the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
