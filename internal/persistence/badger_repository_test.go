package persistence

import (
	"context"
	"testing"
	"time"

	"solana-dca-bot-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerRepository("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id, wallet string, at time.Time, amount string) models.PurchaseRecord {
	return models.PurchaseRecord{
		ID:         id,
		Wallet:     wallet,
		FiatAmount: decimal.RequireFromString(amount),
		Price:      decimal.RequireFromString("50000"),
		Symbol:     "WBTC",
		Signature:  "sig-" + id,
		CreatedAt:  at,
	}
}

func TestBadgerStore_State(t *testing.T) {
	store := newStore(t)

	state, err := store.LoadState()
	require.NoError(t, err)
	assert.Nil(t, state)

	want := &models.BotState{BotID: "bot", Symbol: "WBTC", Version: 1, CyclesStarted: 3, CyclesSucceeded: 2, CyclesFailed: 1}
	require.NoError(t, store.SaveState(want))

	got, err := store.LoadState()
	require.NoError(t, err)
	assert.Equal(t, want.CyclesStarted, got.CyclesStarted)
	assert.Equal(t, want.CyclesFailed, got.CyclesFailed)
	assert.Equal(t, "bot", got.BotID)
}

func TestBadgerStore_LedgerOrderingAndIsolation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, record("c", "w1", base.Add(2*time.Hour), "30")))
	require.NoError(t, store.Insert(ctx, record("a", "w1", base, "10")))
	require.NoError(t, store.Insert(ctx, record("b", "w1", base.Add(time.Hour), "20")))
	require.NoError(t, store.Insert(ctx, record("x", "w10", base, "99")))

	got, err := store.QueryByWallet(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.True(t, got[2].FiatAmount.Equal(decimal.NewFromInt(30)))

	other, err := store.QueryByWallet(ctx, "w10")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	none, err := store.QueryByWallet(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBadgerStore_InsertIdempotentOnID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, record("same", "w", at, "5")))
	require.NoError(t, store.Insert(ctx, record("same", "w", at.Add(time.Minute), "5")))

	got, err := store.QueryByWallet(ctx, "w")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBadgerStore_InsertRequiresID(t *testing.T) {
	store := newStore(t)
	err := store.Insert(context.Background(), record("", "w", time.Now(), "5"))
	assert.Error(t, err)
}
