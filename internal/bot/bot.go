// Package bot runs the DCA cycle: swap, price, persist, balances and stats, notify.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-dca-bot-go/internal/config"
	"solana-dca-bot-go/internal/exchange"
	"solana-dca-bot-go/internal/ids"
	"solana-dca-bot-go/internal/models"
	"solana-dca-bot-go/internal/notify"
	"solana-dca-bot-go/internal/persistence"
	"solana-dca-bot-go/internal/price"
	"solana-dca-bot-go/internal/reporter"
	"solana-dca-bot-go/internal/retry"
	"solana-dca-bot-go/internal/statemanager"
	"solana-dca-bot-go/internal/units"
)

// Phase names a step of the cycle.
type Phase string

const (
	PhaseSwap     Phase = "swap"
	PhasePrice    Phase = "price"
	PhasePersist  Phase = "persist"
	PhaseBalances Phase = "balances"
	PhaseStats    Phase = "stats"
	PhaseNotify   Phase = "notify"
)

// failed logs which phase err aborted and returns err unchanged.
func (b *DCABot) failed(phase Phase, err error) error {
	b.logger.Warn("Cycle phase failed", zap.String("phase", string(phase)), zap.Error(err))
	return err
}

// ErrCycleInProgress is returned by Run when another cycle still holds the bot.
var ErrCycleInProgress = errors.New("a cycle is already running")

// BalanceReader reads wallet balances from the chain.
type BalanceReader interface {
	GetGasBalance(ctx context.Context, wallet string) (decimal.Decimal, error)
	GetAssetBalance(ctx context.Context, wallet, mint string, decimals int32) (decimal.Decimal, error)
}

// EventDispatcher receives run-state events. *statemanager.StateManager implements it.
type EventDispatcher interface {
	DispatchEvent(event statemanager.NormalizedEvent)
}

// Dependencies are the collaborators of a DCABot.
type Dependencies struct {
	Swapper  exchange.Swapper
	Oracle   price.Oracle
	Ledger   persistence.Ledger
	Balances BalanceReader
	Sender   notify.Sender
	State    EventDispatcher // optional
}

// DCABot buys the configured fiat amount of the target asset once per cycle.
type DCABot struct {
	config     *models.Config
	botWallet  string
	swapper    exchange.Swapper
	oracle     price.Oracle
	ledger     persistence.Ledger
	balances   BalanceReader
	calculator *reporter.Calculator
	formatter  *reporter.Formatter
	sender     notify.Sender
	state      EventDispatcher
	running    sync.Mutex
	now        func() time.Time
	logger     *zap.Logger
}

// NewDCABot wires a bot. botWallet is the address that pays for swaps and holds the stablecoin.
func NewDCABot(cfg *models.Config, botWallet string, deps Dependencies, logger *zap.Logger) *DCABot {
	return &DCABot{
		config:     cfg,
		botWallet:  botWallet,
		swapper:    deps.Swapper,
		oracle:     deps.Oracle,
		ledger:     deps.Ledger,
		balances:   deps.Balances,
		calculator: reporter.NewCalculator(deps.Ledger),
		formatter:  reporter.NewFormatter(cfg.ExplorerTxURL),
		sender:     deps.Sender,
		state:      deps.State,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// firing carries what must survive between attempts of one scheduled run. A fresh firing
// per attempt gives the whole-cycle retry behaviour.
type firing struct {
	recordID  string
	createdAt time.Time
	outcome   *models.SwapOutcome
}

func (b *DCABot) newFiring() *firing {
	return &firing{recordID: ids.New(), createdAt: b.now()}
}

// purchase is the financial part of a cycle.
type purchase struct {
	record      models.PurchaseRecord
	transaction models.TransactionDetails
}

// RunCycle executes one complete cycle. The first phase error aborts the cycle and is
// returned as is.
func (b *DCABot) RunCycle(ctx context.Context) (*models.CycleReport, error) {
	p, err := b.buy(ctx, b.newFiring())
	if err != nil {
		return nil, err
	}
	return b.report(ctx, p)
}

// buy runs Swap, Price and Persist. A swap outcome memoised in f is reused instead of
// swapping again.
func (b *DCABot) buy(ctx context.Context, f *firing) (*purchase, error) {
	cfg := b.config

	if f.outcome == nil {
		amount, err := units.FiatToStablecoinUnits(cfg.FiatAmount, units.StablecoinDecimals)
		if err != nil {
			return nil, b.failed(PhaseSwap, err)
		}
		b.logger.Info("Swapping",
			zap.String("fiat", cfg.FiatAmount.String()),
			zap.String("symbol", cfg.TargetSymbol),
			zap.String("destination", cfg.DestinationWallet))

		outcome, err := b.swapper.ExecuteSwap(ctx, models.SwapRequest{
			InputMint:   cfg.StablecoinMint,
			OutputMint:  cfg.TargetMint,
			Amount:      amount,
			Destination: cfg.DestinationWallet,
			SlippageBps: cfg.SlippageBps,
		})
		if err != nil {
			return nil, b.failed(PhaseSwap, err)
		}
		if outcome == nil || outcome.OutAmount == nil {
			return nil, b.failed(PhaseSwap, errors.New("venue returned no output amount"))
		}
		f.outcome = outcome
	}

	purchased, err := units.AmountToDecimal(f.outcome.OutAmount, cfg.TargetDecimals)
	if err != nil {
		return nil, b.failed(PhaseSwap, err)
	}

	tokenPrice, err := b.oracle.GetPrice(ctx, cfg.PriceID)
	if err != nil {
		return nil, b.failed(PhasePrice, err)
	}

	rec := models.PurchaseRecord{
		ID:         f.recordID,
		Wallet:     cfg.DestinationWallet,
		FiatAmount: cfg.FiatAmount,
		Price:      tokenPrice,
		Symbol:     cfg.TargetSymbol,
		Signature:  f.outcome.Signature,
		CreatedAt:  f.createdAt,
	}
	if err := b.ledger.Insert(ctx, rec); err != nil {
		return nil, b.failed(PhasePersist, err)
	}
	b.logger.Info("Purchase recorded",
		zap.String("id", rec.ID),
		zap.String("amount", purchased.String()),
		zap.String("price", tokenPrice.String()),
		zap.String("signature", rec.Signature))

	return &purchase{
		record: rec,
		transaction: models.TransactionDetails{
			AmountPurchased: purchased,
			Price:           tokenPrice,
			Signature:       f.outcome.Signature,
			FiatAmount:      cfg.FiatAmount,
			Symbol:          cfg.TargetSymbol,
		},
	}, nil
}

// report runs Balances, Stats and Notify for a recorded purchase.
func (b *DCABot) report(ctx context.Context, p *purchase) (*models.CycleReport, error) {
	cfg := b.config

	gas, err := b.balances.GetGasBalance(ctx, b.botWallet)
	if err != nil {
		return nil, b.failed(PhaseBalances, err)
	}
	stablecoin, err := b.balances.GetAssetBalance(ctx, b.botWallet, cfg.StablecoinMint, units.StablecoinDecimals)
	if err != nil {
		return nil, b.failed(PhaseBalances, err)
	}
	holding, err := b.balances.GetAssetBalance(ctx, cfg.DestinationWallet, cfg.TargetMint, cfg.TargetDecimals)
	if err != nil {
		return nil, b.failed(PhaseBalances, err)
	}

	stats, err := b.calculator.DetermineStats(ctx, cfg.DestinationWallet, holding, p.transaction.Price)
	if err != nil {
		return nil, b.failed(PhaseStats, err)
	}

	payload := models.NotificationPayload{
		Transaction: p.transaction,
		Balances: models.WalletBalances{
			GasToken:    gas,
			Stablecoin:  stablecoin,
			TargetAsset: holding,
		},
		Stats: stats,
	}
	message := b.formatter.Format(payload)
	if err := b.sender.Send(ctx, message); err != nil {
		return nil, b.failed(PhaseNotify, err)
	}

	return &models.CycleReport{Record: p.record, Payload: payload, Message: message}, nil
}

// Run executes one scheduled run: the cycle under the configured retry policy. A terminal
// failure is logged and returned; Run never panics because of a collaborator.
func (b *DCABot) Run(ctx context.Context) error {
	if !b.running.TryLock() {
		b.logger.Warn("Previous cycle still running, skipping this trigger")
		return ErrCycleInProgress
	}
	defer b.running.Unlock()

	cycleID := ids.Cycle()
	log := b.logger.With(zap.String("cycle", cycleID))
	log.Info("Bot running", zap.String("wallet", b.botWallet), zap.String("retry_scope", b.config.RetryScope))
	b.dispatch(statemanager.CycleStartedEvent, statemanager.CycleStartedEventData{CycleID: cycleID})

	var (
		report   *models.CycleReport
		attempts int
		err      error
	)
	if b.config.RetryScope == config.RetryScopeSplit {
		report, attempts, err = b.runSplit(ctx, log)
	} else {
		report, attempts, err = b.runWhole(ctx, log)
	}

	if err != nil {
		log.Error("Bot run failed, check logs for more info", zap.Int("attempts", attempts), zap.Error(err))
		b.dispatch(statemanager.CycleFailedEvent, statemanager.CycleFailedEventData{Attempts: attempts, Err: err.Error()})
		return err
	}

	log.Info("Bot run completed successfully",
		zap.Int("attempts", attempts),
		zap.String("signature", report.Record.Signature))
	b.dispatch(statemanager.CycleSucceededEvent, statemanager.CycleSucceededEventData{
		Attempts:  attempts,
		Signature: report.Record.Signature,
	})
	return nil
}

// runWhole retries the complete pipeline; every attempt swaps again under a new record id.
func (b *DCABot) runWhole(ctx context.Context, log *zap.Logger) (*models.CycleReport, int, error) {
	attempts := 0
	report, err := retry.Do(ctx, func(ctx context.Context) (*models.CycleReport, error) {
		attempts++
		return b.RunCycle(ctx)
	}, b.retryOptions(log, &attempts))
	return report, attempts, err
}

// runSplit retries the financial and the reporting halves separately. The firing keeps the
// record id and the swap outcome, so a failure after the swap never buys twice.
func (b *DCABot) runSplit(ctx context.Context, log *zap.Logger) (*models.CycleReport, int, error) {
	f := b.newFiring()
	attempts := 0

	p, err := retry.Do(ctx, func(ctx context.Context) (*purchase, error) {
		attempts++
		return b.buy(ctx, f)
	}, b.retryOptions(log, &attempts))
	if err != nil {
		return nil, attempts, err
	}

	report, err := retry.Do(ctx, func(ctx context.Context) (*models.CycleReport, error) {
		attempts++
		return b.report(ctx, p)
	}, b.retryOptions(log, &attempts))
	return report, attempts, err
}

func (b *DCABot) retryOptions(log *zap.Logger, attempts *int) retry.Options {
	opts := retry.Options{
		MaxAttempts: b.config.RetryAttempts,
		Delay:       b.config.RetryDelay(),
		OnRetry: func(attempt int, err error) {
			log.Warn("Cycle attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			b.dispatch(statemanager.AttemptFailedEvent, statemanager.AttemptFailedEventData{
				Attempt: *attempts,
				Err:     err.Error(),
			})
		},
	}
	if maxDelay := b.config.RetryMaxDelay(); maxDelay > opts.Delay && opts.Delay > 0 {
		opts.Backoff = retry.Exponential(opts.Delay, maxDelay)
	}
	return opts
}

func (b *DCABot) dispatch(t statemanager.EventType, data interface{}) {
	if b.state == nil {
		return
	}
	b.state.DispatchEvent(statemanager.NormalizedEvent{Type: t, Timestamp: b.now(), Data: data})
}
