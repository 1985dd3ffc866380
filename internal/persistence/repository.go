package persistence

import (
	"context"

	"solana-dca-bot-go/internal/models"
)

// StateRepository defines the interface for run-state persistence.
// It abstracts the underlying storage mechanism (e.g., BadgerDB, in-memory)
// from the rest of the application.
type StateRepository interface {
	// SaveState atomically saves the entire bot state.
	SaveState(state *models.BotState) error

	// LoadState loads the bot state from storage.
	// If no state is found, it should return (nil, nil).
	LoadState() (*models.BotState, error)

	// Close gracefully closes the connection to the database.
	Close() error
}

// Ledger is the append-only purchase history.
//
// Insert is idempotent on PurchaseRecord.ID: a second insert with an ID already stored is a
// no-op. A record returned by QueryByWallet is visible as soon as Insert returns.
type Ledger interface {
	Insert(ctx context.Context, rec models.PurchaseRecord) error
	// QueryByWallet returns the wallet's purchases, oldest first.
	QueryByWallet(ctx context.Context, wallet string) ([]models.PurchaseRecord, error)
	Close() error
}
