package reporter

import (
	"testing"

	"solana-dca-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func samplePayload() models.NotificationPayload {
	return models.NotificationPayload{
		Transaction: models.TransactionDetails{
			AmountPurchased: d("0.01"),
			Price:           d("50000"),
			Signature:       "abc123",
			FiatAmount:      d("5"),
			Symbol:          "BTC",
		},
		Balances: models.WalletBalances{
			GasToken:    d("0.5"),
			Stablecoin:  d("500"),
			TargetAsset: d("0.05"),
		},
		Stats: models.InvestmentStats{
			TotalSpent:      d("250"),
			CurrentValue:    d("2500"),
			Profit:          d("2250"),
			ROI:             d("900"),
			AverageBuyPrice: d("50000"),
		},
	}
}

func TestFormat_CompleteMessage(t *testing.T) {
	got := NewFormatter("https://explorer.test/tx/").Format(samplePayload())

	assert.Contains(t, got, "Successfully bought **0.01 BTC** ($5) @ $50000 per BTC!")
	assert.Contains(t, got, "SOL: 0.5\n")
	assert.Contains(t, got, "USDC: 500\n")
	assert.Contains(t, got, "BTC: 0.05")
	assert.Contains(t, got, "Value: $2500\n")
	assert.Contains(t, got, "Total Spent: $250")
	assert.Contains(t, got, "Average Buy Price: $50000")
	assert.Contains(t, got, "Profit: $2250")
	assert.Contains(t, got, "ROI: 900%")
	assert.Contains(t, got, "[View on Orbmarkets](https://explorer.test/tx/abc123)")
	assert.NotContains(t, got, "TOPUP REQUIRED")
}

func TestFormat_ColdWalletValue(t *testing.T) {
	p := samplePayload()
	p.Transaction.Price = d("100")
	p.Balances.TargetAsset = d("10")

	got := FormatNotification(p)

	assert.Contains(t, got, "  - BTC: 10\n  - Value: $1000\n")
}

func TestFormat_GasThresholdIsStrict(t *testing.T) {
	p := samplePayload()

	p.Balances.GasToken = d("0.01")
	got := FormatNotification(p)
	assert.Contains(t, got, "SOL: 0.01\n")
	assert.NotContains(t, got, "TOPUP REQUIRED")

	p.Balances.GasToken = d("0.009999")
	got = FormatNotification(p)
	assert.Contains(t, got, "SOL: 0.009999 TOPUP REQUIRED\n")
	assert.Contains(t, got, "USDC: 500\n")
}

func TestFormat_StablecoinThresholdIsStrict(t *testing.T) {
	p := samplePayload()

	p.Balances.Stablecoin = d("100")
	got := FormatNotification(p)
	assert.Contains(t, got, "USDC: 100\n")
	assert.NotContains(t, got, "TOPUP REQUIRED")

	p.Balances.Stablecoin = d("99.99")
	got = FormatNotification(p)
	assert.Contains(t, got, "USDC: 99.99 TOPUP REQUIRED\n")
	assert.Contains(t, got, "SOL: 0.5\n")
}

func TestFormat_BothWarnings(t *testing.T) {
	p := samplePayload()
	p.Balances.GasToken = d("0.001")
	p.Balances.Stablecoin = d("10")

	got := FormatNotification(p)

	assert.Contains(t, got, "SOL: 0.001 TOPUP REQUIRED")
	assert.Contains(t, got, "USDC: 10 TOPUP REQUIRED")
}

func TestFormat_NegativeROI(t *testing.T) {
	p := samplePayload()
	p.Stats.Profit = d("-50")
	p.Stats.ROI = d("-20")

	got := FormatNotification(p)

	assert.Contains(t, got, "Profit: $-50")
	assert.Contains(t, got, "ROI: -20%")
}

func TestFormat_IsDeterministic(t *testing.T) {
	p := samplePayload()
	assert.Equal(t, FormatNotification(p), FormatNotification(p))
}
