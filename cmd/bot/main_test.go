package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-dca-bot-go/internal/models"
	"solana-dca-bot-go/internal/persistence"
)

func paperConfig(t *testing.T, priceStatus int) *models.Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(priceStatus)
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":50000}}`))
	}))
	t.Cleanup(srv.Close)

	return &models.Config{
		DestinationWallet: "cold-wallet",
		TargetMint:        "target-mint",
		StablecoinMint:    "usdc-mint",
		TargetSymbol:      "BTC",
		TargetDecimals:    8,
		PriceID:           "bitcoin",
		PriceSource:       "coingecko",
		FiatAmount:        decimal.NewFromInt(10),
		RetryAttempts:     1,
		DryRun:            true,
		CoinGeckoURL:      srv.URL,
		LedgerDriver:      "badger",
		DBPath:            t.TempDir(),
	}
}

func savedState(t *testing.T, cfg *models.Config) *models.BotState {
	t.Helper()
	store, err := persistence.NewBadgerRepository(cfg.DBPath)
	require.NoError(t, err)
	defer store.Close()
	state, err := store.LoadState()
	require.NoError(t, err)
	require.NotNil(t, state)
	return state
}

func TestRunOnceMode_SavesOutcomeOnClose(t *testing.T) {
	cfg := paperConfig(t, http.StatusOK)

	a, err := newApp(cfg)
	require.NoError(t, err)
	assert.NoError(t, runOnceMode(a))
	a.close()

	state := savedState(t, cfg)
	assert.Equal(t, 1, state.CyclesSucceeded)
	assert.Equal(t, models.CycleSucceeded, state.LastCycle.Status)
	assert.Equal(t, paperWallet, state.BotID)
}

func TestRunOnceMode_FailedCycleIsNotAnError(t *testing.T) {
	cfg := paperConfig(t, http.StatusInternalServerError)

	a, err := newApp(cfg)
	require.NoError(t, err)
	assert.NoError(t, runOnceMode(a))
	a.close()

	state := savedState(t, cfg)
	assert.Equal(t, 0, state.CyclesSucceeded)
	assert.Equal(t, 1, state.CyclesFailed)
	assert.Equal(t, models.CycleFailed, state.LastCycle.Status)
}

func TestRunResetMode_ClearsRunState(t *testing.T) {
	cfg := paperConfig(t, http.StatusOK)

	a, err := newApp(cfg)
	require.NoError(t, err)
	require.NoError(t, runOnceMode(a))
	a.close()
	require.Equal(t, 1, savedState(t, cfg).CyclesSucceeded)

	a, err = newApp(cfg)
	require.NoError(t, err)
	assert.NoError(t, runResetMode(a))
	a.close()

	state := savedState(t, cfg)
	assert.Equal(t, 0, state.CyclesSucceeded)
	assert.Equal(t, 0, state.CyclesFailed)
	assert.Equal(t, stateSchemaVersion, state.Version)
	assert.Equal(t, "BTC", state.Symbol)
}

func TestRunHistoryMode(t *testing.T) {
	cfg := paperConfig(t, http.StatusOK)

	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.close()

	assert.NoError(t, runHistoryMode(a), "empty ledger")

	require.NoError(t, runOnceMode(a))
	assert.NoError(t, runHistoryMode(a))
}

func TestModes(t *testing.T) {
	for _, m := range []string{"live", "once", "history", "reset"} {
		assert.Contains(t, modes, m)
	}
	assert.NotContains(t, modes, "backtest")
}
