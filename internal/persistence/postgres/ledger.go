package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-dca-bot-go/internal/models"
	"solana-dca-bot-go/internal/persistence"
)

// Ledger implements persistence.Ledger on the purchases table.
type Ledger struct {
	pool *Pool
}

var _ persistence.Ledger = (*Ledger)(nil)

// NewLedger wraps an open pool.
func NewLedger(pool *Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Open connects to dsn, applies migrations and returns the ledger.
func Open(ctx context.Context, dsn string) (*Ledger, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewLedger(pool), nil
}

// Insert stores rec. A record whose id is already present is left untouched.
func (l *Ledger) Insert(ctx context.Context, rec models.PurchaseRecord) error {
	query := `
		INSERT INTO purchases (id, wallet, amount, token_price, symbol, signature, created_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := l.pool.Exec(ctx, query,
		rec.ID,
		rec.Wallet,
		rec.FiatAmount.String(),
		rec.Price.String(),
		rec.Symbol,
		rec.Signature,
		createdAt,
	)
	if err != nil && !isDuplicateKeyError(err) {
		return fmt.Errorf("insert purchase %s: %w", rec.ID, err)
	}
	return nil
}

// QueryByWallet returns the wallet's purchases, oldest first.
func (l *Ledger) QueryByWallet(ctx context.Context, wallet string) ([]models.PurchaseRecord, error) {
	query := `
		SELECT id, wallet, amount::text, token_price::text, symbol, signature, created_at
		FROM purchases
		WHERE wallet = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := l.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	records := make([]models.PurchaseRecord, 0)
	for rows.Next() {
		var (
			rec           models.PurchaseRecord
			amount, price string
		)
		if err := rows.Scan(&rec.ID, &rec.Wallet, &amount, &price, &rec.Symbol, &rec.Signature, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		if rec.FiatAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("purchase %s amount: %w", rec.ID, err)
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("purchase %s price: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return records, nil
}

// Close releases the pool.
func (l *Ledger) Close() error {
	l.pool.Close()
	return nil
}
