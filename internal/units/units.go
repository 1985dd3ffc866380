// Package units converts between on-chain smallest-unit integers and human-scale decimals.
package units

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// StablecoinDecimals is the decimal count of USDC on Solana.
const StablecoinDecimals int32 = 6

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// SOLDecimals is the decimal count of native SOL.
const SOLDecimals int32 = 9

var (
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrNegativeDecimals = errors.New("decimals must not be negative")
	ErrInvalidAmount    = errors.New("invalid smallest-unit amount")
)

// ParseAmount parses a base-10 smallest-unit amount as returned by swap venues and RPC nodes.
func ParseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, s)
	}
	return n, nil
}

// AmountToDecimal returns amount / 10^decimals without precision loss.
func AmountToDecimal(amount *big.Int, decimals int32) (decimal.Decimal, error) {
	if decimals < 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrNegativeDecimals, decimals)
	}
	if amount == nil {
		return decimal.Zero, nil
	}
	if amount.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	return decimal.NewFromBigInt(amount, -decimals), nil
}

// FiatToStablecoinUnits returns round(fiat * 10^decimals). The stablecoin is taken as 1:1 with fiat.
// Rounding is half away from zero.
func FiatToStablecoinUnits(fiat decimal.Decimal, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeDecimals, decimals)
	}
	if fiat.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, fiat)
	}
	return fiat.Shift(decimals).Round(0).BigInt(), nil
}

// LamportsToSOL converts a native lamport balance to SOL.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -SOLDecimals)
}
