package exchange

import (
	"context"
	"errors"

	"solana-dca-bot-go/internal/models"
)

// Swapper executes one swap and returns once it is settled. Both the on-chain venue and the
// paper exchange implement it, so the bot can switch between real and simulated trading.
type Swapper interface {
	ExecuteSwap(ctx context.Context, req models.SwapRequest) (*models.SwapOutcome, error)
}

var (
	// ErrNoQuote means the venue found no route for the requested swap.
	ErrNoQuote = errors.New("no quote found for swap")
	// ErrNoDestinationAccount means the cold wallet has no token account for the output mint.
	ErrNoDestinationAccount = errors.New("destination wallet has no token account for the target token")
	// ErrConfirmationFailed means the swap was submitted but did not confirm successfully.
	ErrConfirmationFailed = errors.New("swap transaction failed to confirm")
	// ErrInsufficientFunds is returned by the paper exchange when the simulated wallet is short.
	ErrInsufficientFunds = errors.New("insufficient stablecoin balance")
)
