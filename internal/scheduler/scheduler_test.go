package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"solana-dca-bot-go/internal/models"
)

type countingRunner struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (r *countingRunner) Run(context.Context) error {
	r.calls.Add(1)
	if r.release != nil {
		<-r.release
	}
	return r.err
}

type fixedState struct{ state *models.BotState }

func (f fixedState) GetStateSnapshot() *models.BotState { return f.state }

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New("every tuesday", &countingRunner{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNew_RegistersHeartbeatOnlyWithState(t *testing.T) {
	s, err := New("0 0,12 * * *", &countingRunner{}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)

	s, err = New("0 0,12 * * *", &countingRunner{}, fixedState{}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestScheduler_FiresRunner(t *testing.T) {
	runner := &countingRunner{err: errors.New("cycle failed")}
	s, err := New("@every 1s", runner, nil, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	<-s.Stop().Done()
}

func TestScheduler_SkipsOverlappingFirings(t *testing.T) {
	runner := &countingRunner{release: make(chan struct{})}
	s, err := New("@every 1s", runner, nil, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	// at least one more firing passes while the first run is blocked
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(1), runner.calls.Load())

	close(runner.release)
	<-s.Stop().Done()
}

func TestScheduler_StopWaitsForRunningJob(t *testing.T) {
	runner := &countingRunner{release: make(chan struct{})}
	s, err := New("@every 1s", runner, nil, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, 3*time.Second, 10*time.Millisecond)

	ctx := s.Stop()
	select {
	case <-ctx.Done():
		t.Fatal("stop context finished while the job was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop context never finished")
	}
}

func TestStart_LogsNextBotRunNotHeartbeat(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	// yearly job: the hourly heartbeat always fires first
	s, err := New("0 0 1 1 *", &countingRunner{}, fixedState{}, zap.New(core))
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	next := s.NextRun()
	require.False(t, next.IsZero())
	assert.Equal(t, time.January, next.Month())
	assert.Equal(t, 1, next.Day())

	entries := logs.FilterMessage("Scheduler started").All()
	require.Len(t, entries, 1)
	logged, ok := entries[0].ContextMap()["next_run"].(time.Time)
	require.True(t, ok)
	assert.True(t, next.Equal(logged), "logged %s, bot job next %s", logged, next)
}

func TestHeartbeat_LogsSnapshot(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	state := fixedState{&models.BotState{
		BotID:           "BotWallet",
		CyclesStarted:   3,
		CyclesSucceeded: 2,
		CyclesFailed:    1,
		LastCycle:       models.CycleInfo{Status: models.CycleSucceeded, Signature: "sig"},
	}}
	s, err := New("0 0,12 * * *", &countingRunner{}, state, zap.New(core))
	require.NoError(t, err)

	s.heartbeat()

	entries := logs.FilterMessage("Bot is alive").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(3), fields["cycles_started"])
	assert.Equal(t, int64(1), fields["cycles_failed"])
	assert.Equal(t, models.CycleSucceeded, fields["last_status"])
}

func TestZapLogger_ImplementsCronLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var l cron.Logger = zapLogger{zap.New(core).Sugar()}

	l.Info("wake", "now", 1)
	l.Error(errors.New("boom"), "panic", "job", 2)

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, zapcore.DebugLevel, all[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, all[1].Level)
	assert.Equal(t, "boom", all[1].ContextMap()["error"])
}
