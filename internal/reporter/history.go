package reporter

import (
	"io"

	"solana-dca-bot-go/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderHistory writes the purchase history of one wallet and its stats as a table.
func RenderHistory(w io.Writer, records []models.PurchaseRecord, stats models.InvestmentStats) string {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("DCA purchase history")
	t.AppendHeader(table.Row{"#", "Date", "Symbol", "Spent ($)", "Price ($)", "Signature"})

	for i, r := range records {
		t.AppendRow(table.Row{
			i + 1,
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			r.Symbol,
			r.FiatAmount.StringFixed(2),
			r.Price.String(),
			shorten(r.Signature),
		})
	}

	t.AppendFooter(table.Row{"", "", "Total", stats.TotalSpent.StringFixed(2), "", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	out := t.Render()

	s := table.NewWriter()
	s.SetOutputMirror(w)
	s.SetStyle(table.StyleLight)
	s.AppendRows([]table.Row{
		{"Value", "$" + stats.CurrentValue.String()},
		{"Average Buy Price", "$" + stats.AverageBuyPrice.String()},
		{"Profit", "$" + stats.Profit.String()},
		{"ROI", stats.ROI.String() + "%"},
	})
	return out + "\n" + s.Render()
}

func shorten(sig string) string {
	if len(sig) <= 16 {
		return sig
	}
	return sig[:8] + "…" + sig[len(sig)-8:]
}
