package solana

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-dca-bot-go/internal/units"
)

// Client reads wallet balances from the chain.
type Client struct {
	rpc *HTTPClient
}

// NewClient wraps an RPC client.
func NewClient(rpc *HTTPClient) *Client {
	return &Client{rpc: rpc}
}

// GetGasBalance returns the wallet's SOL balance.
func (c *Client) GetGasBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	owner, err := ParsePublicKey(wallet)
	if err != nil {
		return decimal.Zero, err
	}
	lamports, err := c.rpc.GetBalance(ctx, owner)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get SOL balance of %s: %w", wallet, err)
	}
	return units.LamportsToSOL(lamports), nil
}

// GetAssetBalance returns the balance of the wallet's associated token account for mint.
func (c *Client) GetAssetBalance(ctx context.Context, wallet, mint string, decimals int32) (decimal.Decimal, error) {
	owner, err := ParsePublicKey(wallet)
	if err != nil {
		return decimal.Zero, err
	}
	mintKey, err := ParsePublicKey(mint)
	if err != nil {
		return decimal.Zero, err
	}
	ata, err := AssociatedTokenAddress(owner, mintKey)
	if err != nil {
		return decimal.Zero, err
	}

	balance, err := c.rpc.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get %s balance of %s: %w", mint, wallet, err)
	}
	amount, err := units.ParseAmount(balance.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	return units.AmountToDecimal(amount, decimals)
}
