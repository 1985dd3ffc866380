package exchange

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-dca-bot-go/internal/ids"
	"solana-dca-bot-go/internal/models"
	"solana-dca-bot-go/internal/units"
)

// PriceFeed quotes the fiat price of an asset.
type PriceFeed interface {
	GetPrice(ctx context.Context, id string) (decimal.Decimal, error)
}

// PaperTrade is one simulated fill.
type PaperTrade struct {
	Time        time.Time
	FiatAmount  decimal.Decimal
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Destination string
	Signature   string
}

// PaperExchange simulates the venue and the chain for dry runs. Fills happen at the oracle
// price worsened by the requested slippage; balances live in memory.
type PaperExchange struct {
	feed           PriceFeed
	priceID        string
	stablecoinMint string
	targetMint     string
	targetDecimals int32

	GasBalance decimal.Decimal            // simulated bot wallet SOL
	Cash       decimal.Decimal            // simulated bot wallet stablecoin
	Holdings   map[string]decimal.Decimal // target asset by wallet
	FeePerSwap decimal.Decimal            // SOL charged per swap
	TotalFees  decimal.Decimal
	TradeLog   []PaperTrade

	now    func() time.Time
	logger *zap.Logger
	mu     sync.Mutex
}

// PaperConfig seeds a PaperExchange.
type PaperConfig struct {
	PriceID        string
	StablecoinMint string
	TargetMint     string
	TargetDecimals int32
	InitialGas     decimal.Decimal
	InitialCash    decimal.Decimal
}

// NewPaperExchange creates a simulated venue funded with the given balances.
func NewPaperExchange(cfg PaperConfig, feed PriceFeed, logger *zap.Logger) *PaperExchange {
	return &PaperExchange{
		feed:           feed,
		priceID:        cfg.PriceID,
		stablecoinMint: cfg.StablecoinMint,
		targetMint:     cfg.TargetMint,
		targetDecimals: cfg.TargetDecimals,
		GasBalance:     cfg.InitialGas,
		Cash:           cfg.InitialCash,
		Holdings:       make(map[string]decimal.Decimal),
		FeePerSwap:     units.LamportsToSOL(5000),
		TradeLog:       make([]PaperTrade, 0),
		now:            time.Now,
		logger:         logger,
	}
}

// ExecuteSwap fills the stablecoin-to-target swap against the simulated wallet.
func (e *PaperExchange) ExecuteSwap(ctx context.Context, req models.SwapRequest) (*models.SwapOutcome, error) {
	if req.InputMint != e.stablecoinMint || req.OutputMint != e.targetMint {
		return nil, fmt.Errorf("%w: paper venue only routes %s -> %s", ErrNoQuote, e.stablecoinMint, e.targetMint)
	}
	fiat, err := units.AmountToDecimal(req.Amount, units.StablecoinDecimals)
	if err != nil {
		return nil, err
	}
	if !fiat.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrNoQuote)
	}
	price, err := e.feed.GetPrice(ctx, e.priceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoQuote, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive price %s", ErrNoQuote, price)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Cash.LessThan(fiat) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, e.Cash, fiat)
	}

	// Buying with slippage means paying more per unit.
	slippage := decimal.New(int64(req.SlippageBps), -4)
	executionPrice := price.Mul(decimal.NewFromInt(1).Add(slippage))
	quantity := fiat.DivRound(executionPrice, e.targetDecimals+4).Truncate(e.targetDecimals)
	outAmount := quantity.Shift(e.targetDecimals).BigInt()
	if outAmount.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s buys less than one unit", ErrNoQuote, fiat)
	}

	e.Cash = e.Cash.Sub(fiat)
	e.GasBalance = e.GasBalance.Sub(e.FeePerSwap)
	e.TotalFees = e.TotalFees.Add(e.FeePerSwap)
	e.Holdings[req.Destination] = e.Holdings[req.Destination].Add(quantity)

	trade := PaperTrade{
		Time:        e.now(),
		FiatAmount:  fiat,
		Price:       executionPrice,
		Quantity:    quantity,
		Destination: req.Destination,
		Signature:   "paper-" + ids.New(),
	}
	e.TradeLog = append(e.TradeLog, trade)

	e.logger.Info("Paper swap filled",
		zap.String("fiat", fiat.String()),
		zap.String("price", executionPrice.StringFixed(4)),
		zap.String("quantity", quantity.String()),
		zap.String("cash_left", e.Cash.String()),
		zap.String("holding", e.Holdings[req.Destination].String()),
		zap.String("signature", trade.Signature))

	return &models.SwapOutcome{OutAmount: new(big.Int).Set(outAmount), Signature: trade.Signature}, nil
}

// GetGasBalance returns the simulated SOL balance; wallet is ignored.
func (e *PaperExchange) GetGasBalance(_ context.Context, _ string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.GasBalance, nil
}

// GetAssetBalance returns the simulated stablecoin balance of the bot wallet or the target
// holding of wallet.
func (e *PaperExchange) GetAssetBalance(_ context.Context, wallet, mint string, _ int32) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch mint {
	case e.stablecoinMint:
		return e.Cash, nil
	case e.targetMint:
		return e.Holdings[wallet], nil
	default:
		return decimal.Zero, nil
	}
}
