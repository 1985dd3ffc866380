package reporter

import (
	"fmt"
	"strings"

	"solana-dca-bot-go/internal/models"

	"github.com/shopspring/decimal"
)

// Low balance thresholds. A balance exactly at the threshold is fine.
var (
	LowGasThreshold        = decimal.RequireFromString("0.01")
	LowStablecoinThreshold = decimal.NewFromInt(100)
)

const (
	topUpWarning = " TOPUP REQUIRED"
	gasSymbol    = "SOL"
	stableSymbol = "USDC"
)

// Formatter renders notification payloads as Telegram Markdown.
type Formatter struct {
	explorerTxURL string
}

// NewFormatter creates a Formatter linking signatures under explorerTxURL.
func NewFormatter(explorerTxURL string) *Formatter {
	return &Formatter{explorerTxURL: strings.TrimRight(explorerTxURL, "/")}
}

// Format builds the report text. It does no I/O.
func (f *Formatter) Format(p models.NotificationPayload) string {
	tx, bal, st := p.Transaction, p.Balances, p.Stats

	gasWarning := ""
	if bal.GasToken.LessThan(LowGasThreshold) {
		gasWarning = topUpWarning
	}
	stableWarning := ""
	if bal.Stablecoin.LessThan(LowStablecoinThreshold) {
		stableWarning = topUpWarning
	}

	coldValue := bal.TargetAsset.Mul(tx.Price)

	var b strings.Builder
	fmt.Fprintf(&b, "Successfully bought **%s %s** ($%s) @ $%s per %s!\n\n",
		tx.AmountPurchased, tx.Symbol, tx.FiatAmount, tx.Price, tx.Symbol)

	b.WriteString("Bot Wallet Balances:\n")
	fmt.Fprintf(&b, "  - %s: %s%s\n", gasSymbol, bal.GasToken, gasWarning)
	fmt.Fprintf(&b, "  - %s: %s%s\n\n", stableSymbol, bal.Stablecoin, stableWarning)

	b.WriteString("Cold Wallet Balances:\n")
	fmt.Fprintf(&b, "  - %s: %s\n", tx.Symbol, bal.TargetAsset)
	fmt.Fprintf(&b, "  - Value: $%s\n\n", coldValue)

	b.WriteString("Stats\n")
	fmt.Fprintf(&b, "  - Total Spent: $%s\n", st.TotalSpent)
	fmt.Fprintf(&b, "  - Total %s: %s\n", tx.Symbol, bal.TargetAsset)
	fmt.Fprintf(&b, "  - Value: $%s\n", st.CurrentValue)
	fmt.Fprintf(&b, "  - Average Buy Price: $%s\n", st.AverageBuyPrice)
	fmt.Fprintf(&b, "  - Profit: $%s\n", st.Profit)
	fmt.Fprintf(&b, "  - ROI: %s%%\n\n", st.ROI)

	b.WriteString("-----------------------------------------\n")
	fmt.Fprintf(&b, "[View on Orbmarkets](%s/%s)\n", f.explorerTxURL, tx.Signature)

	return b.String()
}

// FormatNotification renders p with the default explorer.
func FormatNotification(p models.NotificationPayload) string {
	return NewFormatter(DefaultExplorerTxURL).Format(p)
}

// DefaultExplorerTxURL is the transaction page prefix used when none is configured.
const DefaultExplorerTxURL = "https://www.orbmarkets.io/tx"
