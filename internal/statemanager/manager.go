package statemanager

import (
	"sync"
	"time"

	"solana-dca-bot-go/internal/models"
	"solana-dca-bot-go/internal/persistence"

	"go.uber.org/zap"
)

// EventType defines the type of a normalized event
type EventType int

const (
	CycleStartedEvent EventType = iota
	AttemptFailedEvent
	CycleSucceededEvent
	CycleFailedEvent
	StateResetEvent
)

// NormalizedEvent is a standardized internal representation of an event
type NormalizedEvent struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// CycleStartedEventData opens a new cycle.
type CycleStartedEventData struct {
	CycleID string
}

// AttemptFailedEventData records one failed attempt of the running cycle.
type AttemptFailedEventData struct {
	Attempt int
	Err     string
}

// CycleSucceededEventData closes the running cycle with its settlement signature.
type CycleSucceededEventData struct {
	Attempts  int
	Signature string
}

// CycleFailedEventData closes the running cycle after its last attempt failed.
type CycleFailedEventData struct {
	Attempts int
	Err      string
}

// StateManager is responsible for all run-state mutations and persistence.
// It ensures that all state changes are processed serially.
type StateManager struct {
	state           *models.BotState
	mu              sync.RWMutex
	repo            persistence.StateRepository
	eventChannel    chan NormalizedEvent
	persistenceChan chan *models.BotState
	stopChan        chan bool
	eventsDone      chan struct{} // closed once eventLoop has drained and returned
	stopOnce        sync.Once
	wg              sync.WaitGroup
	logger          *zap.Logger
}

// NewStateManager creates a new StateManager.
func NewStateManager(initialState *models.BotState, repo persistence.StateRepository, logger *zap.Logger) *StateManager {
	if initialState == nil {
		initialState = &models.BotState{}
	}
	return &StateManager{
		state:           initialState,
		repo:            repo,
		eventChannel:    make(chan NormalizedEvent, 1024),
		persistenceChan: make(chan *models.BotState, 128),
		stopChan:        make(chan bool),
		eventsDone:      make(chan struct{}),
		logger:          logger,
	}
}

// Start begins the state manager's event processing and persistence loops.
func (sm *StateManager) Start() {
	sm.wg.Add(2)
	go sm.eventLoop()
	go sm.persistenceLoop()
	sm.logger.Sugar().Info("StateManager started.")
}

// Stop shuts down both loops. Events already queued are applied and every resulting snapshot
// is saved before Stop returns.
func (sm *StateManager) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
		sm.wg.Wait()
		sm.logger.Sugar().Info("StateManager stopped.")
	})
}

// DispatchEvent sends an event to the StateManager for processing. Events dispatched after
// Stop are dropped.
func (sm *StateManager) DispatchEvent(event NormalizedEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case <-sm.stopChan:
		sm.logger.Sugar().Warnf("StateManager stopped, dropping event %d", event.Type)
		return
	default:
	}
	select {
	case sm.eventChannel <- event:
	case <-sm.stopChan:
		sm.logger.Sugar().Warnf("StateManager stopped, dropping event %d", event.Type)
	}
}

// GetStateSnapshot returns a copy of the current state for safe, concurrent reading.
func (sm *StateManager) GetStateSnapshot() *models.BotState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.copyState()
}

// copyState must be called with mu held. BotState holds no reference types, so a value
// copy is a deep copy.
func (sm *StateManager) copyState() *models.BotState {
	if sm.state == nil {
		return nil
	}
	stateCopy := *sm.state
	return &stateCopy
}

// eventLoop is the core processing loop that handles all incoming events serially.
func (sm *StateManager) eventLoop() {
	defer sm.wg.Done()
	defer close(sm.eventsDone)
	for {
		select {
		case event := <-sm.eventChannel:
			sm.processEvent(event)
		case <-sm.stopChan:
			for {
				select {
				case event := <-sm.eventChannel:
					sm.processEvent(event)
				default:
					return
				}
			}
		}
	}
}

// persistenceLoop handles the asynchronous saving of state snapshots. It outlives eventLoop so
// the snapshots of drained events are saved too.
func (sm *StateManager) persistenceLoop() {
	defer sm.wg.Done()
	for {
		select {
		case stateToSave := <-sm.persistenceChan:
			sm.save(stateToSave)
		case <-sm.eventsDone:
			for {
				select {
				case stateToSave := <-sm.persistenceChan:
					sm.save(stateToSave)
				default:
					return
				}
			}
		}
	}
}

func (sm *StateManager) save(state *models.BotState) {
	if sm.repo == nil {
		return
	}
	if err := sm.repo.SaveState(state); err != nil {
		sm.logger.Sugar().Errorf("CRITICAL: Failed to save state: %v", err)
	}
}

// processEvent contains the logic to mutate the state based on an event.
func (sm *StateManager) processEvent(event NormalizedEvent) {
	sm.mu.Lock()

	switch event.Type {
	case CycleStartedEvent:
		if data, ok := event.Data.(CycleStartedEventData); ok {
			sm.state.CyclesStarted++
			sm.state.LastCycle = models.CycleInfo{
				CycleID:   data.CycleID,
				Status:    models.CycleRunning,
				StartedAt: event.Timestamp,
			}
		} else {
			sm.logger.Sugar().Warnf("Received CycleStartedEvent with unexpected data type: %T", event.Data)
		}
	case AttemptFailedEvent:
		if data, ok := event.Data.(AttemptFailedEventData); ok {
			sm.state.LastCycle.Attempts = data.Attempt
			sm.state.LastCycle.LastError = data.Err
		} else {
			sm.logger.Sugar().Warnf("Received AttemptFailedEvent with unexpected data type: %T", event.Data)
		}
	case CycleSucceededEvent:
		if data, ok := event.Data.(CycleSucceededEventData); ok {
			sm.state.CyclesSucceeded++
			sm.state.LastCycle.Status = models.CycleSucceeded
			sm.state.LastCycle.Attempts = data.Attempts
			sm.state.LastCycle.Signature = data.Signature
			sm.state.LastCycle.FinishedAt = event.Timestamp
		} else {
			sm.logger.Sugar().Warnf("Received CycleSucceededEvent with unexpected data type: %T", event.Data)
		}
	case CycleFailedEvent:
		if data, ok := event.Data.(CycleFailedEventData); ok {
			sm.state.CyclesFailed++
			sm.state.LastCycle.Status = models.CycleFailed
			sm.state.LastCycle.Attempts = data.Attempts
			sm.state.LastCycle.LastError = data.Err
			sm.state.LastCycle.FinishedAt = event.Timestamp
		} else {
			sm.logger.Sugar().Warnf("Received CycleFailedEvent with unexpected data type: %T", event.Data)
		}
	case StateResetEvent:
		if newState, ok := event.Data.(*models.BotState); ok && newState != nil {
			sm.state = newState
			sm.logger.Sugar().Info("State has been reset.")
		} else {
			sm.logger.Sugar().Warnf("Received StateResetEvent with unexpected data type: %T", event.Data)
		}
	}

	sm.state.LastUpdateTime = time.Now()
	stateCopy := sm.copyState()
	sm.mu.Unlock()

	// After processing, send a copy of the new state to the persistence channel.
	sm.persistenceChan <- stateCopy
}
