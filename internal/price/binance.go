package price

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Binance reads the last traded price of a spot ticker. The id passed to GetPrice is
// ignored in favour of the configured symbol, e.g. BTCUSDT.
type Binance struct {
	client *binance.Client
	symbol string
	logger *zap.Logger
}

// NewBinance creates an oracle for symbol. Public endpoints need no API key.
func NewBinance(symbol string, logger *zap.Logger) *Binance {
	return &Binance{
		client: binance.NewClient("", ""),
		symbol: symbol,
		logger: logger,
	}
}

// GetPrice returns the ticker's last price in the quote asset.
func (b *Binance) GetPrice(ctx context.Context, _ string) (decimal.Decimal, error) {
	prices, err := b.client.NewListPricesService().Symbol(b.symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance ticker %s: %w", b.symbol, err)
	}
	for _, p := range prices {
		if p.Symbol != b.symbol {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("binance ticker %s: bad price %q: %w", b.symbol, p.Price, err)
		}
		b.logger.Info("Binance price", zap.String("symbol", b.symbol), zap.String("price", price.String()))
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("%w: binance has no ticker %s", ErrPriceNotFound, b.symbol)
}
