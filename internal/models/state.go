package models

import "time"

// BotState is the run bookkeeping persisted between restarts. It never holds purchase data;
// the ledger is the source of truth for that.
type BotState struct {
	BotID           string    `json:"bot_id"`  // bot wallet public key
	Symbol          string    `json:"symbol"`  // target asset symbol
	Version         int       `json:"version"` // schema version of this struct
	CyclesStarted   int       `json:"cycles_started"`
	CyclesSucceeded int       `json:"cycles_succeeded"`
	CyclesFailed    int       `json:"cycles_failed"`
	LastCycle       CycleInfo `json:"last_cycle"`
	LastUpdateTime  time.Time `json:"last_update_time"`
}

// CycleInfo describes the most recent cycle.
type CycleInfo struct {
	CycleID    string    `json:"cycle_id"`
	Status     string    `json:"status"` // RUNNING, SUCCEEDED, FAILED
	Attempts   int       `json:"attempts"`
	Signature  string    `json:"signature,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Cycle statuses.
const (
	CycleRunning   = "RUNNING"
	CycleSucceeded = "SUCCEEDED"
	CycleFailed    = "FAILED"
)
