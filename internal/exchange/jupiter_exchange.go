package exchange

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"solana-dca-bot-go/internal/models"
	"solana-dca-bot-go/internal/solana"
	"solana-dca-bot-go/internal/units"
)

// ChainClient is the subset of the Solana RPC the venue needs.
type ChainClient interface {
	GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]solana.TokenAccount, error)
	SendTransaction(ctx context.Context, signed []byte) (string, error)
}

// Confirmer blocks until a signature is confirmed.
type Confirmer interface {
	Confirm(ctx context.Context, signature string) error
}

// JupiterExchange swaps through the Jupiter aggregator and settles on Solana.
type JupiterExchange struct {
	baseURL   string
	apiKey    string
	http      *http.Client
	chain     ChainClient
	confirmer Confirmer
	wallet    *solana.Wallet
	logger    *zap.Logger
}

// NewJupiterExchange creates the venue. The wallet pays for and signs every swap.
func NewJupiterExchange(baseURL, apiKey string, chain ChainClient, confirmer Confirmer, wallet *solana.Wallet, logger *zap.Logger) *JupiterExchange {
	return &JupiterExchange{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		http:      &http.Client{Timeout: 30 * time.Second},
		chain:     chain,
		confirmer: confirmer,
		wallet:    wallet,
		logger:    logger,
	}
}

type quoteResponse struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
}

type swapRequest struct {
	QuoteResponse           json.RawMessage `json:"quoteResponse"`
	UserPublicKey           string          `json:"userPublicKey"`
	WrapAndUnwrapSol        bool            `json:"wrapAndUnwrapSol"`
	DestinationTokenAccount string          `json:"destinationTokenAccount"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// ExecuteSwap quotes, builds, signs, sends and confirms the swap. The output lands in the
// destination wallet's existing token account.
func (e *JupiterExchange) ExecuteSwap(ctx context.Context, req models.SwapRequest) (*models.SwapOutcome, error) {
	rawQuote, quote, err := e.getQuote(ctx, req)
	if err != nil {
		return nil, err
	}
	outAmount, err := units.ParseAmount(quote.OutAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: bad outAmount: %v", ErrNoQuote, err)
	}

	destination, err := solana.ParsePublicKey(req.Destination)
	if err != nil {
		return nil, err
	}
	outputMint, err := solana.ParsePublicKey(req.OutputMint)
	if err != nil {
		return nil, err
	}
	accounts, err := e.chain.GetTokenAccountsByOwner(ctx, destination, outputMint)
	if err != nil {
		return nil, fmt.Errorf("look up destination token account: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: create one for %s first", ErrNoDestinationAccount, req.OutputMint)
	}

	unsigned, err := e.buildSwap(ctx, rawQuote, accounts[0].Pubkey)
	if err != nil {
		return nil, err
	}
	signed, _, err := solana.SignTransaction(unsigned, e.wallet)
	if err != nil {
		return nil, fmt.Errorf("sign swap transaction: %w", err)
	}

	signature, err := e.chain.SendTransaction(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("send swap transaction: %w", err)
	}
	e.logger.Info("Swap transaction sent", zap.String("signature", signature))

	if err := e.confirmer.Confirm(ctx, signature); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfirmationFailed, signature, err)
	}
	e.logger.Info("Swap transaction confirmed",
		zap.String("signature", signature),
		zap.String("out_amount", outAmount.String()))

	return &models.SwapOutcome{OutAmount: outAmount, Signature: signature}, nil
}

func (e *JupiterExchange) getQuote(ctx context.Context, req models.SwapRequest) (json.RawMessage, *quoteResponse, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: amount must be positive", ErrNoQuote)
	}
	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", req.Amount.String())
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}
	body, status, err := e.do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("quote request: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: status %d: %s", ErrNoQuote, status, string(body))
	}

	var quote quoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, nil, fmt.Errorf("%w: decode quote: %v", ErrNoQuote, err)
	}
	if quote.OutAmount == "" {
		return nil, nil, fmt.Errorf("%w: empty quote", ErrNoQuote)
	}
	return body, &quote, nil
}

func (e *JupiterExchange) buildSwap(ctx context.Context, quote json.RawMessage, destinationAccount string) ([]byte, error) {
	payload, err := json.Marshal(swapRequest{
		QuoteResponse:           quote,
		UserPublicKey:           e.wallet.PublicKey().String(),
		WrapAndUnwrapSol:        false,
		DestinationTokenAccount: destinationAccount,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	body, status, err := e.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("swap request: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("swap request: status %d: %s", status, string(body))
	}

	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode swap response: %w", err)
	}
	if resp.SwapTransaction == "" {
		return nil, fmt.Errorf("swap response has no transaction")
	}
	tx, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}
	return tx, nil
}

func (e *JupiterExchange) do(req *http.Request) ([]byte, int, error) {
	if e.apiKey != "" {
		req.Header.Set("x-api-key", e.apiKey)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
