package reporter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"solana-dca-bot-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func purchase(wallet, amount, price string) models.PurchaseRecord {
	return models.PurchaseRecord{
		Wallet:     wallet,
		FiatAmount: d(amount),
		Price:      d(price),
		Symbol:     "BTC",
		CreatedAt:  time.Now(),
	}
}

func assertStats(t *testing.T, got models.InvestmentStats, spent, value, profit, roi, avg string) {
	t.Helper()
	assert.Equal(t, spent, got.TotalSpent.String(), "totalSpent")
	assert.Equal(t, value, got.CurrentValue.String(), "currentValue")
	assert.Equal(t, profit, got.Profit.String(), "profit")
	assert.Equal(t, roi, got.ROI.String(), "roi")
	assert.Equal(t, avg, got.AverageBuyPrice.String(), "averageBuyPrice")
}

// mockHistory is an in-memory HistoryReader.
type mockHistory struct {
	sync.Mutex
	records []models.PurchaseRecord
	err     error
}

func (m *mockHistory) QueryByWallet(ctx context.Context, wallet string) ([]models.PurchaseRecord, error) {
	m.Lock()
	defer m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.PurchaseRecord
	for _, r := range m.records {
		if r.Wallet == wallet {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestComputeStats_EmptyHistory(t *testing.T) {
	for _, tc := range []struct{ holding, price string }{
		{"0", "50000"},
		{"0.5", "50000"},
		{"3", "0"},
	} {
		got := ComputeStats(nil, d(tc.holding), d(tc.price))
		assertStats(t, got, "0", "0", "0", "0", "0")

		got = ComputeStats([]models.PurchaseRecord{}, d(tc.holding), d(tc.price))
		assertStats(t, got, "0", "0", "0", "0", "0")
	}
}

func TestComputeStats_PositiveROI(t *testing.T) {
	history := []models.PurchaseRecord{
		purchase("w1", "100", "40000"),
		purchase("w1", "100", "45000"),
	}

	got := ComputeStats(history, d("0.005"), d("50000"))

	assertStats(t, got, "200", "250", "50", "25", "40000")
}

func TestComputeStats_NegativeROI(t *testing.T) {
	history := []models.PurchaseRecord{purchase("w1", "100", "60000")}

	got := ComputeStats(history, d("0.001"), d("50000"))

	assertStats(t, got, "100", "50", "-50", "-50", "100000")
}

func TestComputeStats_ZeroSpentMeansZeroROI(t *testing.T) {
	history := []models.PurchaseRecord{purchase("w1", "0", "60000")}

	got := ComputeStats(history, d("2"), d("10"))

	assert.Equal(t, "20", got.Profit.String())
	assert.True(t, got.ROI.IsZero())
}

func TestComputeStats_ZeroHoldingMeansZeroAverage(t *testing.T) {
	history := []models.PurchaseRecord{purchase("w1", "75", "60000")}

	got := ComputeStats(history, d("0"), d("50000"))

	assertStats(t, got, "75", "0", "-75", "-100", "0")
}

func TestComputeStats_RoundsHalfAwayFromZero(t *testing.T) {
	// value = 0.125, profit = -0.125 -> 0.13 and -0.13
	history := []models.PurchaseRecord{purchase("w1", "0.25", "1")}

	got := ComputeStats(history, d("0.125"), d("1"))

	assert.Equal(t, "0.13", got.CurrentValue.String())
	assert.Equal(t, "-0.13", got.Profit.String())
	assert.Equal(t, "-50", got.ROI.String())
	assert.Equal(t, "2", got.AverageBuyPrice.String())
}

func TestComputeStats_RoundsRepeatingFractions(t *testing.T) {
	history := []models.PurchaseRecord{
		purchase("w1", "50", "1"),
		purchase("w1", "50", "1"),
		purchase("w1", "50", "1"),
	}

	got := ComputeStats(history, d("7"), d("10"))

	// avg = 150/7 = 21.428571..., roi = (70-150)/150*100 = -53.333...
	assert.Equal(t, "21.43", got.AverageBuyPrice.String())
	assert.Equal(t, "-53.33", got.ROI.String())
}

func TestCalculator_DetermineStats_FiltersByWallet(t *testing.T) {
	repo := &mockHistory{records: []models.PurchaseRecord{
		purchase("wallet1", "100", "40000"),
		purchase("wallet2", "200", "45000"),
	}}
	calc := NewCalculator(repo)

	got, err := calc.DetermineStats(context.Background(), "wallet1", d("0.002"), d("50000"))

	require.NoError(t, err)
	assert.Equal(t, "100", got.TotalSpent.String())
	assert.Equal(t, "50000", got.AverageBuyPrice.String())
}

func TestCalculator_DetermineStats_LedgerError(t *testing.T) {
	sentinel := errors.New("db down")
	calc := NewCalculator(&mockHistory{err: sentinel})

	_, err := calc.DetermineStats(context.Background(), "wallet1", d("1"), d("1"))

	assert.ErrorIs(t, err, sentinel)
}
