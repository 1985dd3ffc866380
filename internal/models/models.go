package models

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds every setting the bot needs. Values come from an optional JSON file and are
// then overridden by environment variables (see config.Load).
type Config struct {
	// Trading pair
	DestinationWallet string `json:"dest_wallet"`          // cold wallet receiving the target asset
	TargetMint        string `json:"target_token_address"` // mint of the asset being bought
	StablecoinMint    string `json:"usdc_address"`         // mint of the asset being sold
	TargetSymbol      string `json:"target_token_symbol"`
	TargetDecimals    int32  `json:"target_token_decimals"`
	PriceID           string `json:"target_token_coingecko_id"` // id passed to the price oracle
	BinanceSymbol     string `json:"binance_symbol,omitempty"`  // ticker used when PriceSource is "binance"
	PriceSource       string `json:"price_source"`              // "coingecko" or "binance"

	// Purchase
	FiatAmount  decimal.Decimal `json:"usd_amount_buy"` // fiat spent per cycle
	SlippageBps int             `json:"slippage_bps"`

	// Scheduling and retries
	Schedule        string `json:"schedule"`   // cron expression
	RunOnce         bool   `json:"local_test"` // run a single cycle immediately and exit
	RetryAttempts   int    `json:"retry_attempts"`
	RetryDelayMs    int    `json:"retry_delay_ms"`
	RetryMaxDelayMs int    `json:"retry_max_delay_ms,omitempty"` // above RetryDelayMs enables exponential backoff
	RetryScope      string `json:"retry_scope"`                  // "cycle" or "split"
	DryRun          bool   `json:"dry_run"`                      // paper trading, no chain writes

	// Endpoints
	RPCEndpoint     string `json:"rpc_endpoint"`
	WSEndpoint      string `json:"ws_endpoint,omitempty"`
	JupiterBaseURL  string `json:"jupiter_base_url"`
	CoinGeckoURL    string `json:"coingecko_url"`
	TelegramBaseURL string `json:"telegram_base_url"`
	ExplorerTxURL   string `json:"explorer_tx_url"`

	// Storage
	LedgerDriver string `json:"ledger_driver"` // "badger" or "postgres"
	DatabaseURL  string `json:"-"`
	DBPath       string `json:"db_path"`

	// Secrets, environment only
	Mnemonic       string `json:"-"`
	JupiterAPIKey  string `json:"-"`
	TelegramBotID  string `json:"-"`
	TelegramChatID string `json:"-"`

	LogConfig LogConfig `json:"log"`
}

// RetryDelay returns the delay between cycle attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// RetryMaxDelay returns the backoff ceiling; zero or below RetryDelay means a fixed delay.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

// LogConfig defines logging output.
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file", "both"
	File       string `json:"file"`        // log file path
	MaxSize    int    `json:"max_size"`    // MB per file
	MaxBackups int    `json:"max_backups"` // rotated files kept
	MaxAge     int    `json:"max_age"`     // days
	Compress   bool   `json:"compress"`
}

// PurchaseRecord is one historical purchase. Records are append-only.
type PurchaseRecord struct {
	ID         string          `json:"id"`
	Wallet     string          `json:"wallet"`
	FiatAmount decimal.Decimal `json:"amount"`
	Price      decimal.Decimal `json:"token_price"`
	Symbol     string          `json:"symbol"`
	Signature  string          `json:"signature,omitempty"`
	CreatedAt  time.Time       `json:"date"`
}

// SwapRequest describes one swap on the venue. Amount is in the input asset's smallest unit.
type SwapRequest struct {
	InputMint   string
	OutputMint  string
	Amount      *big.Int
	Destination string
	SlippageBps int
}

// SwapOutcome is the result of a confirmed swap.
type SwapOutcome struct {
	OutAmount *big.Int // output asset, smallest unit
	Signature string
}

// WalletBalances is a point-in-time snapshot, never stored.
type WalletBalances struct {
	GasToken    decimal.Decimal // bot wallet fee token (SOL)
	Stablecoin  decimal.Decimal // bot wallet stablecoin (USDC)
	TargetAsset decimal.Decimal // cold wallet target asset
}

// InvestmentStats are derived from the full purchase history, all rounded to 2 places.
type InvestmentStats struct {
	TotalSpent      decimal.Decimal
	CurrentValue    decimal.Decimal
	Profit          decimal.Decimal
	ROI             decimal.Decimal // percent
	AverageBuyPrice decimal.Decimal
}

// TransactionDetails describes the purchase made in the current cycle.
type TransactionDetails struct {
	AmountPurchased decimal.Decimal
	Price           decimal.Decimal
	Signature       string
	FiatAmount      decimal.Decimal
	Symbol          string
}

// NotificationPayload is everything the formatter renders.
type NotificationPayload struct {
	Transaction TransactionDetails
	Balances    WalletBalances
	Stats       InvestmentStats
}

// CycleReport is what a successful cycle returns to its caller.
type CycleReport struct {
	Record  PurchaseRecord
	Payload NotificationPayload
	Message string
}
