// Package scheduler fires the bot on a cron schedule and logs an uptime heartbeat.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"solana-dca-bot-go/internal/models"
)

// HeartbeatSpec is the schedule of the uptime log line.
const HeartbeatSpec = "@hourly"

// Runner is one scheduled unit of work. *bot.DCABot implements it.
type Runner interface {
	Run(ctx context.Context) error
}

// StateReader exposes the run-state snapshot logged by the heartbeat.
type StateReader interface {
	GetStateSnapshot() *models.BotState
}

// Scheduler triggers a Runner on a cron spec. A firing that arrives while the previous run is
// still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	jobID  cron.EntryID
	runner Runner
	state  StateReader
	logger *zap.Logger
}

// New parses spec (standard five-field cron) and registers the run and heartbeat jobs.
// state may be nil, in which case no heartbeat is scheduled.
func New(spec string, runner Runner, state StateReader, logger *zap.Logger) (*Scheduler, error) {
	cronLogger := zapLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner: runner,
		state:  state,
		logger: logger,
	}

	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.jobID = id
	if state != nil {
		if _, err := s.cron.AddFunc(HeartbeatSpec, s.heartbeat); err != nil {
			return nil, fmt.Errorf("heartbeat schedule: %w", err)
		}
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Time("next_run", s.NextRun()))
}

// NextRun is the next firing of the bot job. It is zero before Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.jobID).Next
}

// Stop stops new firings. The returned context is done once the running job, if any, returns.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// fire runs the bot. Failures were already logged by the runner; the scheduler just waits for
// the next firing.
func (s *Scheduler) fire() {
	_ = s.runner.Run(context.Background())
}

func (s *Scheduler) heartbeat() {
	st := s.state.GetStateSnapshot()
	if st == nil {
		s.logger.Info("Bot is alive")
		return
	}
	s.logger.Info("Bot is alive",
		zap.String("wallet", st.BotID),
		zap.Int("cycles_started", st.CyclesStarted),
		zap.Int("cycles_succeeded", st.CyclesSucceeded),
		zap.Int("cycles_failed", st.CyclesFailed),
		zap.String("last_status", st.LastCycle.Status),
		zap.String("last_signature", st.LastCycle.Signature))
}

// zapLogger adapts a sugared zap logger to cron.Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
