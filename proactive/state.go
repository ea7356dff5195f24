package proactive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/telemetry"
)

// ManagerConfig configures a StateManager's strictness, persistence, and
// recovery behavior.
type ManagerConfig struct {
	Strict              bool
	MaxHistoryEntries   int
	PersistencePath     string
	PersistenceInterval time.Duration
	EnableAutoRecovery  bool
	StaleTaskThreshold  time.Duration
	RecoveryStrategy    RecoveryStrategy
	EventBufferSize     int
}

// DefaultManagerConfig runs strict, keeps 100 history entries per task,
// persists every minute, and auto-recovers stale Executing tasks by
// resetting them to Pending.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Strict:              true,
		MaxHistoryEntries:   100,
		PersistenceInterval: time.Minute,
		EnableAutoRecovery:  true,
		StaleTaskThreshold:  10 * time.Minute,
		RecoveryStrategy:    ResetToPending,
		EventBufferSize:     1000,
	}
}

// Metrics is the state manager's observability snapshot.
type Metrics struct {
	TotalTransitions       uint64
	SuccessfulTransitions  uint64
	FailedTransitions      uint64
	RecoveryOperations     uint64
	PopulationByState      map[TaskState]int
	AvgTransitionLatencyMs float64
	ErrorRate              float64
	LastUpdated            time.Time
}

type snapshot struct {
	Version    int                       `json:"version"`
	Lifecycles map[string]*TaskLifecycle `json:"lifecycles"`
}

const snapshotVersion = 1

// StateManager owns every research task's lifecycle: validated
// transitions, a per-task lock serializing mutation, periodic atomic
// persistence, stale-task recovery, and a broadcast event channel.
type StateManager struct {
	cfg    ManagerConfig
	logger core.Logger
	now    func() time.Time

	mu         sync.Mutex
	lifecycles map[string]*TaskLifecycle
	taskLocks  map[string]*sync.Mutex

	events chan Event

	metricsMu             sync.Mutex
	totalTransitions      uint64
	successfulTransitions uint64
	failedTransitions     uint64
	recoveryOperations    uint64
	latencySumMs          float64
	latencyCount          uint64

	stopOnce sync.Once
	started  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewStateManager builds a manager. If cfg.PersistencePath names an
// existing, readable snapshot, it is loaded; a parse error is logged as a
// warning and the manager starts empty rather than failing.
func NewStateManager(cfg ManagerConfig, logger core.Logger) *StateManager {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cfg.MaxHistoryEntries <= 0 {
		cfg.MaxHistoryEntries = 100
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 1000
	}
	m := &StateManager{
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		lifecycles: make(map[string]*TaskLifecycle),
		taskLocks:  make(map[string]*sync.Mutex),
		events:     make(chan Event, cfg.EventBufferSize),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	if cfg.PersistencePath != "" {
		m.loadSnapshot()
	}
	if cfg.EnableAutoRecovery {
		m.Recover(context.Background())
	}
	return m
}

// Events returns the broadcast channel. Subscribers that do not keep up
// with EventBufferSize may silently miss events.
func (m *StateManager) Events() <-chan Event {
	return m.events
}

func (m *StateManager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Debug("event channel full, dropping event", map[string]interface{}{
			"event_type": string(ev.Type),
			"task_id":    ev.TaskID,
		})
	}
}

func (m *StateManager) lockFor(taskID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.taskLocks[taskID]
	if !ok {
		lock = &sync.Mutex{}
		m.taskLocks[taskID] = lock
	}
	return lock
}

// CreateTask registers a new task in StatePending.
func (m *StateManager) CreateTask(ctx context.Context, taskID, gapRef string, priority TaskPriority) (*TaskLifecycle, error) {
	lock := m.lockFor(taskID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	if _, exists := m.lifecycles[taskID]; exists {
		m.mu.Unlock()
		return nil, core.New("proactive.StateManager.CreateTask", "state_manager", core.KindValidation,
			fmt.Sprintf("task %s already exists", taskID), core.ErrAlreadyStarted)
	}
	now := m.now()
	lifecycle := &TaskLifecycle{
		TaskID:         taskID,
		GapRef:         gapRef,
		Priority:       priority,
		CurrentState:   StatePending,
		CreatedAt:      now,
		LastUpdated:    now,
		StateDurations: make(map[TaskState]time.Duration),
	}
	m.lifecycles[taskID] = lifecycle
	m.mu.Unlock()

	m.emit(Event{Type: EventTaskCreated, TaskID: taskID, To: StatePending, Timestamp: now})
	return lifecycle.clone(), nil
}

// Transition moves taskID from its current state to to, recording history
// and per-state durations. In strict mode an edge outside the lifecycle DAG
// returns InvalidStateTransition and mutates nothing; in non-strict mode it
// is logged and permitted.
func (m *StateManager) Transition(ctx context.Context, taskID string, to TaskState, actor, reason string) (*TaskLifecycle, error) {
	lock := m.lockFor(taskID)
	lock.Lock()
	defer lock.Unlock()

	start := m.now()

	m.mu.Lock()
	lifecycle, ok := m.lifecycles[taskID]
	m.mu.Unlock()
	if !ok {
		return nil, core.New("proactive.StateManager.Transition", "state_manager", core.KindValidation,
			fmt.Sprintf("task %s not found", taskID), core.ErrNotFound)
	}

	from := lifecycle.CurrentState
	valid := IsValidTransition(from, to)

	select {
	case <-ctx.Done():
		return nil, core.New("proactive.StateManager.Transition", "state_manager", core.KindTimeout,
			"transition cancelled before commit", ctx.Err())
	default:
	}

	if !valid {
		if m.cfg.Strict {
			m.recordTransition(false, m.now().Sub(start))
			m.emit(Event{Type: EventValidationFailed, TaskID: taskID, From: from, To: to, Timestamp: m.now(), Reason: reason})
			return nil, core.New("proactive.StateManager.Transition", "state_manager", core.KindValidation,
				fmt.Sprintf("invalid transition %s -> %s for task %s", from, to, taskID), core.ErrInvalidTransition)
		}
		m.logger.Warn("permitting transition outside the validated DAG (non-strict mode)", map[string]interface{}{
			"task_id": taskID, "from": string(from), "to": string(to),
		})
	}

	now := m.now()
	duration := now.Sub(lifecycle.LastUpdated)
	entry := StateChangeEntry{
		TaskID: taskID, From: from, To: to, Timestamp: now,
		Actor: actor, Reason: reason, DurationInPrevious: duration,
	}
	lifecycle.History = append(lifecycle.History, entry)
	if len(lifecycle.History) > m.cfg.MaxHistoryEntries {
		lifecycle.History = lifecycle.History[len(lifecycle.History)-m.cfg.MaxHistoryEntries:]
	}
	lifecycle.StateDurations[from] += duration
	lifecycle.CurrentState = to
	lifecycle.LastUpdated = now
	if to == StateFailed {
		lifecycle.Attempts++
		lifecycle.LastError = reason
	}

	m.recordTransition(true, m.now().Sub(start))
	m.emit(Event{Type: EventStateTransition, TaskID: taskID, From: from, To: to, Timestamp: now, Reason: reason})
	telemetry.Counter("proactive.tasks.state_changes", "from_state", string(from), "to_state", string(to))
	return lifecycle.clone(), nil
}

// Get returns a copy of a task's lifecycle.
func (m *StateManager) Get(taskID string) (*TaskLifecycle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lifecycle, ok := m.lifecycles[taskID]
	if !ok {
		return nil, false
	}
	return lifecycle.clone(), true
}

func (m *StateManager) recordTransition(success bool, latency time.Duration) {
	m.metricsMu.Lock()
	defer m.metricsMu.Unlock()
	m.totalTransitions++
	if success {
		m.successfulTransitions++
	} else {
		m.failedTransitions++
	}
	m.latencySumMs += float64(latency.Microseconds()) / 1000.0
	m.latencyCount++
}

// Metrics returns the current observability snapshot.
func (m *StateManager) Metrics() Metrics {
	m.metricsMu.Lock()
	total, success, failed, recov := m.totalTransitions, m.successfulTransitions, m.failedTransitions, m.recoveryOperations
	var avgLatency float64
	if m.latencyCount > 0 {
		avgLatency = m.latencySumMs / float64(m.latencyCount)
	}
	m.metricsMu.Unlock()

	m.mu.Lock()
	population := make(map[TaskState]int)
	for _, l := range m.lifecycles {
		population[l.CurrentState]++
	}
	m.mu.Unlock()

	var errorRate float64
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	return Metrics{
		TotalTransitions:       total,
		SuccessfulTransitions:  success,
		FailedTransitions:      failed,
		RecoveryOperations:     recov,
		PopulationByState:      population,
		AvgTransitionLatencyMs: avgLatency,
		ErrorRate:              errorRate,
		LastUpdated:            m.now(),
	}
}

// Recover scans every lifecycle for a stale Executing task (last_updated
// older than StaleTaskThreshold) and applies cfg.RecoveryStrategy. A
// TaskRecovered event fires per mutated task.
func (m *StateManager) Recover(ctx context.Context) int {
	now := m.now()

	m.mu.Lock()
	var stale []string
	for id, l := range m.lifecycles {
		if l.CurrentState == StateExecuting && now.Sub(l.LastUpdated) > m.cfg.StaleTaskThreshold {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	recovered := 0
	for _, id := range stale {
		switch m.cfg.RecoveryStrategy {
		case ResetToPending:
			if _, err := m.forceTransition(id, StatePending, "recovery", "stale executing task reset"); err == nil {
				recovered++
				m.emit(Event{Type: EventTaskRecovered, TaskID: id, To: StatePending, Timestamp: m.now()})
			}
		case MarkAsFailed:
			if _, err := m.forceTransition(id, StateFailed, "recovery", "stale executing task marked failed"); err == nil {
				recovered++
				m.emit(Event{Type: EventTaskRecovered, TaskID: id, To: StateFailed, Timestamp: m.now()})
			}
		case RecoveryIgnore:
			// no-op by configuration
		}
	}
	if recovered > 0 {
		m.metricsMu.Lock()
		m.recoveryOperations += uint64(recovered)
		m.metricsMu.Unlock()
	}
	return recovered
}

// forceTransition bypasses DAG validation for recovery-only transitions:
// resetting a stuck Executing task to Pending, or failing it out, are not
// edges a normal caller may take but are the only two recovery actions.
func (m *StateManager) forceTransition(taskID string, to TaskState, actor, reason string) (*TaskLifecycle, error) {
	lock := m.lockFor(taskID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	lifecycle, ok := m.lifecycles[taskID]
	m.mu.Unlock()
	if !ok {
		return nil, core.ErrNotFound
	}

	now := m.now()
	from := lifecycle.CurrentState
	duration := now.Sub(lifecycle.LastUpdated)
	lifecycle.History = append(lifecycle.History, StateChangeEntry{
		TaskID: taskID, From: from, To: to, Timestamp: now, Actor: actor, Reason: reason, DurationInPrevious: duration,
	})
	if len(lifecycle.History) > m.cfg.MaxHistoryEntries {
		lifecycle.History = lifecycle.History[len(lifecycle.History)-m.cfg.MaxHistoryEntries:]
	}
	lifecycle.StateDurations[from] += duration
	lifecycle.CurrentState = to
	lifecycle.LastUpdated = now
	return lifecycle.clone(), nil
}

// Start begins the periodic persistence timer. Stop must be called to halt
// it and flush a final snapshot.
func (m *StateManager) Start(ctx context.Context) {
	if m.cfg.PersistencePath == "" || m.cfg.PersistenceInterval <= 0 {
		return
	}
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	go func() {
		defer close(m.doneCh)
		ticker := time.NewTicker(m.cfg.PersistenceInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.saveSnapshot()
				return
			case <-m.stopCh:
				m.saveSnapshot()
				return
			case <-ticker.C:
				m.saveSnapshot()
			}
		}
	}()
}

// Stop halts the persistence timer and writes a final snapshot. It is
// safe to call when Start never ran; the snapshot is then written here.
func (m *StateManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started {
		<-m.doneCh
	} else {
		m.saveSnapshot()
	}
}

func (m *StateManager) saveSnapshot() {
	if m.cfg.PersistencePath == "" {
		return
	}
	m.mu.Lock()
	snap := snapshot{Version: snapshotVersion, Lifecycles: make(map[string]*TaskLifecycle, len(m.lifecycles))}
	for id, l := range m.lifecycles {
		snap.Lifecycles[id] = l.clone()
	}
	m.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		m.logger.Error("failed to marshal state snapshot", map[string]interface{}{"error": err.Error()})
		return
	}

	dir := filepath.Dir(m.cfg.PersistencePath)
	tmp, err := os.CreateTemp(dir, ".state-snapshot-*.tmp")
	if err != nil {
		m.logger.Error("failed to create snapshot temp file", map[string]interface{}{"error": err.Error()})
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		m.logger.Error("failed to write snapshot", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := tmp.Close(); err != nil {
		m.logger.Error("failed to close snapshot temp file", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := os.Rename(tmp.Name(), m.cfg.PersistencePath); err != nil {
		m.logger.Error("failed to rename snapshot into place", map[string]interface{}{"error": err.Error()})
	}
}

func (m *StateManager) loadSnapshot() {
	data, err := os.ReadFile(m.cfg.PersistencePath)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("failed to read state snapshot, starting empty", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.logger.Warn("failed to parse state snapshot, starting empty", map[string]interface{}{"error": err.Error()})
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, l := range snap.Lifecycles {
		m.lifecycles[id] = l
	}
}
