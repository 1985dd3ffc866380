package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"solana-dca-bot-go/internal/models"

	"github.com/dgraph-io/badger/v3"
)

const (
	purchasePrefix   = "purchase/"
	purchaseIDPrefix = "purchase_id/"
)

// BadgerStore keeps the run state and, when configured as ledger driver, the purchase
// history in one BadgerDB database.
type BadgerStore struct {
	db       *badger.DB
	stateKey []byte
}

var (
	_ StateRepository = (*BadgerStore)(nil)
	_ Ledger          = (*BadgerStore)(nil)
)

// NewBadgerRepository opens the BadgerDB database at dbPath. An empty path opens an
// in-memory database.
func NewBadgerRepository(dbPath string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	if dbPath == "" {
		opts = opts.WithInMemory(true)
	}
	// Badger's own logging is disabled to keep the app's logs clean.
	// Errors will still be returned from DB operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dbPath, err)
	}

	return &BadgerStore{
		db:       db,
		stateKey: []byte("bot_state"),
	}, nil
}

// SaveState atomically saves the entire bot state.
func (r *BadgerStore) SaveState(state *models.BotState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(r.stateKey, data)
	})
}

// LoadState loads the bot state from storage.
// If the state key is not found, it returns (nil, nil) to indicate no state is present.
func (r *BadgerStore) LoadState() (*models.BotState, error) {
	var state models.BotState

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

// purchaseKey orders a wallet's records by creation time, then ID.
func purchaseKey(rec models.PurchaseRecord) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", purchasePrefix, rec.Wallet, rec.CreatedAt.UnixNano(), rec.ID))
}

// Insert appends rec. An ID that is already stored is ignored.
func (r *BadgerStore) Insert(ctx context.Context, rec models.PurchaseRecord) error {
	if rec.ID == "" {
		return errors.New("purchase record has no id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal purchase %s: %w", rec.ID, err)
	}

	idKey := []byte(purchaseIDPrefix + rec.ID)
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(idKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		key := purchaseKey(rec)
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(idKey, key)
	})
}

// QueryByWallet returns the wallet's purchases, oldest first.
func (r *BadgerStore) QueryByWallet(ctx context.Context, wallet string) ([]models.PurchaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(purchasePrefix + wallet + "/")
	records := make([]models.PurchaseRecord, 0)

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec models.PurchaseRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query purchases of %s: %w", wallet, err)
	}
	return records, nil
}

// Close gracefully closes the connection to the database.
func (r *BadgerStore) Close() error {
	return r.db.Close()
}
