// Package price quotes the fiat price of the target asset.
package price

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Oracle returns the current USD price of an asset identified by id.
type Oracle interface {
	GetPrice(ctx context.Context, id string) (decimal.Decimal, error)
}

// ErrPriceNotFound means the source answered but carried no usable price for the id.
var ErrPriceNotFound = errors.New("price not found")
