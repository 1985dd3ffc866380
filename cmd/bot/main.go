package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"solana-dca-bot-go/internal/bot"
	"solana-dca-bot-go/internal/config"
	"solana-dca-bot-go/internal/exchange"
	"solana-dca-bot-go/internal/logger"
	"solana-dca-bot-go/internal/models"
	"solana-dca-bot-go/internal/notify"
	"solana-dca-bot-go/internal/persistence"
	"solana-dca-bot-go/internal/persistence/postgres"
	"solana-dca-bot-go/internal/price"
	"solana-dca-bot-go/internal/reporter"
	"solana-dca-bot-go/internal/scheduler"
	"solana-dca-bot-go/internal/solana"
	"solana-dca-bot-go/internal/statemanager"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	stateSchemaVersion = 1
	confirmTimeout     = 60 * time.Second
	paperWallet        = "paper-bot-wallet"
)

// Simulated funding for dry runs.
var (
	paperGas  = decimal.NewFromInt(1)
	paperCash = decimal.NewFromInt(1000)
)

// modes maps -mode values to their runners.
var modes = map[string]func(*app) error{
	"live":    runLiveMode,
	"once":    runOnceMode,
	"history": runHistoryMode,
	"reset":   runResetMode,
}

func main() {
	configPath := flag.String("config", "config.json", "path to the optional JSON config file")
	mode := flag.String("mode", "live", "running mode: live, once, history or reset")
	flag.Parse()

	// a console logger until the configured one is available
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err != nil {
		logger.S().Info("No .env file found, reading configuration from the environment.")
	} else {
		logger.S().Info("Loaded configuration from .env file.")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.S().Fatalf("Failed to load configuration: %v", err)
	}

	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	printBanner(cfg)

	if cfg.RunOnce && *mode == "live" {
		*mode = "once"
	}
	run, ok := modes[*mode]
	if !ok {
		logger.S().Fatalf("Unknown mode %q, choose live, once, history or reset.", *mode)
	}

	app, err := newApp(cfg)
	if err != nil {
		logger.S().Fatalf("Failed to start: %v", err)
	}

	runErr := run(app)
	app.close()
	if runErr != nil {
		logger.S().Errorf("%s mode failed: %v", *mode, runErr)
		logger.S().Sync()
		os.Exit(1)
	}
}

func printBanner(cfg *models.Config) {
	logger.S().Infof("--- Solana DCA bot %s ---", version)
	settings := config.Masked(cfg)
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.S().Infof("  %-26s %s", k, settings[k])
	}
}

// app holds everything opened at startup and closed once at shutdown.
type app struct {
	cfg       *models.Config
	botWallet string
	store     *persistence.BadgerStore
	ledger    persistence.Ledger
	pg        *postgres.Ledger
	oracle    price.Oracle
	chain     bot.BalanceReader // nil in dry runs
	state     *statemanager.StateManager
	bot       *bot.DCABot
}

func newApp(cfg *models.Config) (*app, error) {
	log := logger.L()

	// run state always lives in badger; the purchase ledger does too unless postgres is configured
	store, err := persistence.NewBadgerRepository(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	a := &app{cfg: cfg, store: store, ledger: store}

	if cfg.LedgerDriver == "postgres" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		a.ledger, a.pg = pg, pg
	}

	switch cfg.PriceSource {
	case "binance":
		a.oracle = price.NewBinance(cfg.BinanceSymbol, log)
	default:
		a.oracle = price.NewCoinGecko(cfg.CoinGeckoURL, log)
	}

	var sender notify.Sender
	if cfg.TelegramBotID != "" && cfg.TelegramChatID != "" {
		sender = notify.NewTelegramSender(cfg.TelegramBaseURL, cfg.TelegramBotID, cfg.TelegramChatID, log)
	} else {
		logger.S().Warn("Telegram is not configured, reports will only be logged.")
		sender = notify.NewLogSender(log)
	}

	deps := bot.Dependencies{Oracle: a.oracle, Ledger: a.ledger, Sender: sender}

	if cfg.DryRun {
		logger.S().Warn("DRY RUN: swaps and balances are simulated, nothing is sent to the chain.")
		paper := exchange.NewPaperExchange(exchange.PaperConfig{
			PriceID:        cfg.PriceID,
			StablecoinMint: cfg.StablecoinMint,
			TargetMint:     cfg.TargetMint,
			TargetDecimals: cfg.TargetDecimals,
			InitialGas:     paperGas,
			InitialCash:    paperCash,
		}, a.oracle, log)
		deps.Swapper, deps.Balances = paper, paper
		a.botWallet = paperWallet
	} else {
		wallet, err := solana.WalletFromMnemonic(cfg.Mnemonic, "")
		if err != nil {
			a.close()
			return nil, fmt.Errorf("derive wallet: %w", err)
		}
		a.botWallet = wallet.PublicKey().String()
		logger.S().Infof("Bot wallet: %s", a.botWallet)

		rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
		confirmer := solana.NewConfirmer(cfg.WSEndpoint, rpc, confirmTimeout, log)
		deps.Swapper = exchange.NewJupiterExchange(cfg.JupiterBaseURL, cfg.JupiterAPIKey, rpc, confirmer, wallet, log)
		a.chain = solana.NewClient(rpc)
		deps.Balances = a.chain
	}

	initial, err := store.LoadState()
	if err != nil {
		logger.S().Warnf("Could not load run state: %v, starting fresh.", err)
	}
	if initial == nil {
		initial = a.freshState()
	}
	initial.BotID, initial.Symbol = a.botWallet, cfg.TargetSymbol

	a.state = statemanager.NewStateManager(initial, store, log)
	a.state.Start()
	deps.State = a.state

	a.bot = bot.NewDCABot(cfg, a.botWallet, deps, log)
	return a, nil
}

func (a *app) freshState() *models.BotState {
	return &models.BotState{Version: stateSchemaVersion, BotID: a.botWallet, Symbol: a.cfg.TargetSymbol}
}

// close stops the state manager, which saves every queued event, then closes the stores.
func (a *app) close() {
	if a.state != nil {
		a.state.Stop()
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			logger.S().Errorf("Failed to close ledger: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logger.S().Errorf("Failed to close state store: %v", err)
	}
}

// runLiveMode fires the bot on the configured schedule until SIGINT or SIGTERM.
func runLiveMode(a *app) error {
	logger.S().Infof("--- Starting live mode, schedule %q ---", a.cfg.Schedule)

	sched, err := scheduler.New(a.cfg.Schedule, a.bot, a.state, logger.L())
	if err != nil {
		return err
	}
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.S().Infof("Received %s, waiting for the running cycle to finish...", sig)
	<-sched.Stop().Done()
	logger.S().Info("Bot stopped.")
	return nil
}

// runOnceMode runs a single cycle immediately. A failed cycle was already logged by the bot
// and is not a process failure.
func runOnceMode(a *app) error {
	logger.S().Info("--- Running a single cycle ---")
	if err := a.bot.Run(context.Background()); err != nil {
		logger.S().Warn("Single cycle finished without a purchase.")
	}
	return nil
}

// runResetMode clears the run counters and last-cycle info. The purchase ledger is untouched.
func runResetMode(a *app) error {
	a.state.DispatchEvent(statemanager.NormalizedEvent{
		Type: statemanager.StateResetEvent,
		Data: a.freshState(),
	})
	logger.S().Infof("Run state of %s reset.", a.botWallet)
	return nil
}

// runHistoryMode prints the destination wallet's purchases and current stats.
func runHistoryMode(a *app) error {
	ctx := context.Background()
	cfg := a.cfg

	records, err := a.ledger.QueryByWallet(ctx, cfg.DestinationWallet)
	if err != nil {
		return fmt.Errorf("read purchase history: %w", err)
	}
	if len(records) == 0 {
		logger.S().Infof("No purchases recorded for %s yet.", cfg.DestinationWallet)
		return nil
	}

	holding := decimal.Zero
	for _, r := range records {
		if r.Price.IsPositive() {
			holding = holding.Add(r.FiatAmount.Div(r.Price))
		}
	}
	if a.chain != nil {
		if h, err := a.chain.GetAssetBalance(ctx, cfg.DestinationWallet, cfg.TargetMint, cfg.TargetDecimals); err != nil {
			logger.S().Warnf("Could not read cold wallet balance, estimating from history: %v", err)
		} else {
			holding = h
		}
	}

	current, err := a.oracle.GetPrice(ctx, cfg.PriceID)
	if err != nil {
		logger.S().Warnf("Could not fetch current price, using the last purchase price: %v", err)
		current = records[len(records)-1].Price
	}

	stats := reporter.ComputeStats(records, holding, current)
	reporter.RenderHistory(os.Stdout, records, stats)
	return nil
}
