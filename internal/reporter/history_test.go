package reporter

import (
	"bytes"
	"testing"

	"solana-dca-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderHistory(t *testing.T) {
	records := []models.PurchaseRecord{
		purchase("w1", "50", "40000"),
		purchase("w1", "50", "60000"),
	}
	records[0].Signature = "5VERYLONGSIGNATUREVALUE1234567890"
	stats := ComputeStats(records, d("0.002"), d("50000"))

	var buf bytes.Buffer
	out := RenderHistory(&buf, records, stats)

	assert.Contains(t, out, "DCA purchase history")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "5VERYLON…34567890")
	assert.Contains(t, out, "$50000")
	assert.Contains(t, buf.String(), "ROI")
}
