package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"solana-dca-bot-go/internal/models"
	"solana-dca-bot-go/internal/solana"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Defaults applied when neither the config file nor the environment set a value.
const (
	DefaultSymbol          = "TOKEN"
	DefaultDecimals        = 8
	DefaultPriceID         = "bitcoin"
	DefaultFiatAmount      = "5"
	DefaultSchedule        = "0 0,12 * * *"
	DefaultSlippageBps     = 4
	DefaultRetryAttempts   = 5
	DefaultRetryDelayMs    = 10_000
	DefaultJupiterBaseURL  = "https://public.jupiterapi.com"
	DefaultCoinGeckoURL    = "https://api.coingecko.com/api"
	DefaultTelegramBaseURL = "https://api.telegram.org/bot"
	DefaultExplorerTxURL   = "https://www.orbmarkets.io/tx"
	DefaultDBPath          = "data/dca"
)

// Retry scopes.
const (
	RetryScopeCycle = "cycle"
	RetryScopeSplit = "split"
)

// ErrInvalidConfig marks every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig reads the JSON config file at path into a Config. A missing file yields an empty
// Config so the bot can run from the environment alone.
func LoadConfig(path string) (*models.Config, error) {
	cfg := &models.Config{}
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file, overlays environment variables, fills defaults and validates.
func Load(path string) (*models.Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *models.Config) error {
	var errs []error

	setString(&cfg.DestinationWallet, "DEST_WALLET")
	setString(&cfg.TargetMint, "TARGET_TOKEN_ADDRESS")
	setString(&cfg.StablecoinMint, "USDC_ADDRESS")
	setString(&cfg.TargetSymbol, "TARGET_TOKEN_SYMBOL")
	setString(&cfg.PriceID, "TARGET_TOKEN_COINGECKO_ID")
	setString(&cfg.PriceSource, "PRICE_SOURCE")
	setString(&cfg.BinanceSymbol, "BINANCE_SYMBOL")
	setString(&cfg.Schedule, "SCHEDULE")
	setString(&cfg.RetryScope, "RETRY_SCOPE")
	setString(&cfg.RPCEndpoint, "RPC_ENDPOINT")
	setString(&cfg.WSEndpoint, "WS_ENDPOINT")
	setString(&cfg.JupiterBaseURL, "JUPITER_BASE_URL")
	setString(&cfg.LedgerDriver, "LEDGER_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.Mnemonic, "MNEMONIC")
	setString(&cfg.JupiterAPIKey, "JUPITER_API_KEY")
	setString(&cfg.TelegramBotID, "TELEGRAM_BOT_ID")
	setString(&cfg.TelegramChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.LogConfig.Level, "LOG_LEVEL")

	if v, ok := lookup("TARGET_TOKEN_DECIMALS"); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("TARGET_TOKEN_DECIMALS: %w", err))
		}
		cfg.TargetDecimals = int32(n)
	}
	if v, ok := lookup("USD_AMOUNT_BUY"); ok {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("USD_AMOUNT_BUY: %w", err))
		}
		cfg.FiatAmount = amount
	}
	errs = append(errs,
		setInt(&cfg.SlippageBps, "SLIPPAGE"),
		setInt(&cfg.RetryAttempts, "RETRY_ATTEMPTS"),
		setInt(&cfg.RetryDelayMs, "RETRY_DELAY"),
		setInt(&cfg.RetryDelayMs, "RETRY_DELAY_MS"),
		setInt(&cfg.RetryMaxDelayMs, "RETRY_MAX_DELAY_MS"),
		setBool(&cfg.RunOnce, "LOCAL_TEST"),
		setBool(&cfg.DryRun, "DRY_RUN"),
	)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func applyDefaults(cfg *models.Config) {
	if cfg.TargetSymbol == "" {
		cfg.TargetSymbol = DefaultSymbol
	}
	if cfg.TargetDecimals == 0 {
		cfg.TargetDecimals = DefaultDecimals
	}
	if cfg.PriceID == "" {
		cfg.PriceID = DefaultPriceID
	}
	if cfg.PriceSource == "" {
		cfg.PriceSource = "coingecko"
	}
	if cfg.FiatAmount.IsZero() {
		cfg.FiatAmount = decimal.RequireFromString(DefaultFiatAmount)
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.SlippageBps == 0 {
		cfg.SlippageBps = DefaultSlippageBps
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.RetryDelayMs == 0 {
		cfg.RetryDelayMs = DefaultRetryDelayMs
	}
	if cfg.RetryScope == "" {
		cfg.RetryScope = RetryScopeCycle
	}
	if cfg.JupiterBaseURL == "" {
		cfg.JupiterBaseURL = DefaultJupiterBaseURL
	}
	if cfg.CoinGeckoURL == "" {
		cfg.CoinGeckoURL = DefaultCoinGeckoURL
	}
	if cfg.TelegramBaseURL == "" {
		cfg.TelegramBaseURL = DefaultTelegramBaseURL
	}
	if cfg.ExplorerTxURL == "" {
		cfg.ExplorerTxURL = DefaultExplorerTxURL
	}
	if cfg.WSEndpoint == "" && cfg.RPCEndpoint != "" {
		cfg.WSEndpoint = solana.WSEndpointFor(cfg.RPCEndpoint)
	}
	if cfg.LedgerDriver == "" {
		cfg.LedgerDriver = "badger"
		if cfg.DatabaseURL != "" {
			cfg.LedgerDriver = "postgres"
		}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.LogConfig.Output == "" {
		cfg.LogConfig.Output = "console"
	}
}

// Validate reports every problem at once so a misconfigured deployment fails in one restart.
func Validate(cfg *models.Config) error {
	var errs []error

	for _, f := range []struct{ name, value string }{
		{"DEST_WALLET", cfg.DestinationWallet},
		{"TARGET_TOKEN_ADDRESS", cfg.TargetMint},
		{"USDC_ADDRESS", cfg.StablecoinMint},
	} {
		if _, err := solana.ParsePublicKey(f.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
		}
	}

	if cfg.TargetDecimals < 0 || cfg.TargetDecimals > 18 {
		errs = append(errs, fmt.Errorf("TARGET_TOKEN_DECIMALS must be within 0..18, got %d", cfg.TargetDecimals))
	}
	if !cfg.FiatAmount.IsPositive() {
		errs = append(errs, fmt.Errorf("USD_AMOUNT_BUY must be positive, got %s", cfg.FiatAmount))
	}
	if cfg.SlippageBps < 0 || cfg.SlippageBps > 10_000 {
		errs = append(errs, fmt.Errorf("SLIPPAGE must be within 0..10000 bps, got %d", cfg.SlippageBps))
	}
	if cfg.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", cfg.RetryAttempts))
	}
	if cfg.RetryDelayMs < 0 {
		errs = append(errs, fmt.Errorf("RETRY_DELAY_MS must not be negative, got %d", cfg.RetryDelayMs))
	}
	if cfg.RetryScope != RetryScopeCycle && cfg.RetryScope != RetryScopeSplit {
		errs = append(errs, fmt.Errorf("RETRY_SCOPE must be %q or %q, got %q", RetryScopeCycle, RetryScopeSplit, cfg.RetryScope))
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULE %q: %w", cfg.Schedule, err))
	}

	switch cfg.PriceSource {
	case "coingecko":
	case "binance":
		if cfg.BinanceSymbol == "" {
			errs = append(errs, errors.New("BINANCE_SYMBOL is required when PRICE_SOURCE is binance"))
		}
	default:
		errs = append(errs, fmt.Errorf("PRICE_SOURCE must be coingecko or binance, got %q", cfg.PriceSource))
	}

	switch cfg.LedgerDriver {
	case "badger":
	case "postgres":
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres ledger"))
		}
	default:
		errs = append(errs, fmt.Errorf("LEDGER_DRIVER must be badger or postgres, got %q", cfg.LedgerDriver))
	}

	if !cfg.DryRun {
		if cfg.Mnemonic == "" {
			errs = append(errs, errors.New("MNEMONIC is required"))
		}
		if cfg.JupiterAPIKey == "" {
			errs = append(errs, errors.New("JUPITER_API_KEY is required"))
		}
		if cfg.RPCEndpoint == "" {
			errs = append(errs, errors.New("RPC_ENDPOINT is required"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Masked returns a printable copy of the settings with secrets hidden.
func Masked(cfg *models.Config) map[string]string {
	return map[string]string{
		"DEST_WALLET":               cfg.DestinationWallet,
		"TARGET_TOKEN_ADDRESS":      cfg.TargetMint,
		"USDC_ADDRESS":              cfg.StablecoinMint,
		"TARGET_TOKEN_SYMBOL":       cfg.TargetSymbol,
		"TARGET_TOKEN_DECIMALS":     strconv.Itoa(int(cfg.TargetDecimals)),
		"TARGET_TOKEN_COINGECKO_ID": cfg.PriceID,
		"USD_AMOUNT_BUY":            cfg.FiatAmount.String(),
		"SCHEDULE":                  cfg.Schedule,
		"SLIPPAGE":                  strconv.Itoa(cfg.SlippageBps),
		"RETRY_SCOPE":               cfg.RetryScope,
		"LOCAL_TEST":                strconv.FormatBool(cfg.RunOnce),
		"DRY_RUN":                   strconv.FormatBool(cfg.DryRun),
		"LEDGER_DRIVER":             cfg.LedgerDriver,
		"RPC_ENDPOINT":              cfg.RPCEndpoint,
		"MNEMONIC":                  mask(cfg.Mnemonic),
		"JUPITER_API_KEY":           mask(cfg.JupiterAPIKey),
		"TELEGRAM_BOT_ID":           mask(cfg.TelegramBotID),
		"DATABASE_URL":              mask(cfg.DatabaseURL),
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
