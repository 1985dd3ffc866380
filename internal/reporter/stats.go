package reporter

import (
	"context"
	"fmt"

	"solana-dca-bot-go/internal/models"

	"github.com/shopspring/decimal"
)

// statsPlaces is the number of decimal places every stat is rounded to (half away from zero).
const statsPlaces = 2

var hundred = decimal.NewFromInt(100)

// HistoryReader is the part of the ledger the calculator needs.
type HistoryReader interface {
	QueryByWallet(ctx context.Context, wallet string) ([]models.PurchaseRecord, error)
}

// Calculator derives investment stats for a wallet from the ledger.
type Calculator struct {
	history HistoryReader
}

// NewCalculator creates a Calculator backed by the given ledger.
func NewCalculator(history HistoryReader) *Calculator {
	return &Calculator{history: history}
}

// DetermineStats loads the wallet's purchase history and computes stats for the current
// holding and price.
func (c *Calculator) DetermineStats(ctx context.Context, wallet string, holding, price decimal.Decimal) (models.InvestmentStats, error) {
	records, err := c.history.QueryByWallet(ctx, wallet)
	if err != nil {
		return models.InvestmentStats{}, fmt.Errorf("load purchase history: %w", err)
	}
	return ComputeStats(records, holding, price), nil
}

// ComputeStats is a pure function of the history, the current holding and the current price.
// ROI is zero when nothing was spent, average buy price is zero when nothing is held.
// A wallet without purchases has nothing to report, so every stat is zero.
func ComputeStats(history []models.PurchaseRecord, holding, price decimal.Decimal) models.InvestmentStats {
	if len(history) == 0 {
		return models.InvestmentStats{}
	}

	totalSpent := decimal.Zero
	for _, r := range history {
		totalSpent = totalSpent.Add(r.FiatAmount)
	}

	currentValue := holding.Mul(price)
	profit := currentValue.Sub(totalSpent)

	roi := decimal.Zero
	if totalSpent.IsPositive() {
		roi = profit.Div(totalSpent).Mul(hundred)
	}

	averageBuyPrice := decimal.Zero
	if holding.IsPositive() {
		averageBuyPrice = totalSpent.Div(holding)
	}

	return models.InvestmentStats{
		TotalSpent:      totalSpent.Round(statsPlaces),
		CurrentValue:    currentValue.Round(statsPlaces),
		Profit:          profit.Round(statsPlaces),
		ROI:             roi.Round(statsPlaces),
		AverageBuyPrice: averageBuyPrice.Round(statsPlaces),
	}
}
