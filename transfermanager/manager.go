package transfermanager

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

const (
	defaultMaxConcurrent = 2
	connectMaxAttempts   = 3
	connectBackoffBase   = 500 * time.Millisecond
)

// Manager is the transfer queue + scheduler. The zero value is not
// usable; use New.
type Manager struct {
	mu            sync.Mutex
	tasks         []*Task
	nextID        uint64
	pausedTasks   map[uint64]bool
	canceledTasks map[uint64]bool
	joinHandles   map[uint64]chan struct{}

	// client is injected and not owned: the caller guarantees it
	// outlives ClearClient.
	client   sftpcore.Client
	sessOpts sftpcore.SessionOptions

	connFactoryMu sync.Mutex // serializes NewConnectionLike across workers

	paused          atomic.Bool
	running         atomic.Int32
	maxConcurrent   atomic.Int32
	globalSpeedKbps atomic.Int32

	// ticks holds per-task throttle bookkeeping (tickState), keyed by
	// fmt.Sprint(task id), so concurrent workers' progress callbacks
	// don't contend on the queue mutex for the hot path.
	ticks *gocache.Cache

	overwritePrompt OverwritePrompt
	onTasksChanged  func()
	logger          *log.Logger
}

// New builds a Manager bound to client and opts. overwritePrompt may be
// nil only if the caller guarantees no destination ever pre-exists.
func New(client sftpcore.Client, opts sftpcore.SessionOptions, overwritePrompt OverwritePrompt) *Manager {
	m := &Manager{
		pausedTasks:     map[uint64]bool{},
		canceledTasks:   map[uint64]bool{},
		joinHandles:     map[uint64]chan struct{}{},
		client:          client,
		sessOpts:        opts,
		ticks:           gocache.New(10*time.Minute, time.Minute),
		overwritePrompt: overwritePrompt,
		logger:          log.New(os.Stderr, "transfermanager: ", log.LstdFlags),
	}
	m.maxConcurrent.Store(defaultMaxConcurrent)
	return m
}

// SetLogger redirects the manager's diagnostic output (reconnection
// backoff, mtime-restore failures). A nil logger is ignored.
func (m *Manager) SetLogger(logger *log.Logger) {
	if logger == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

func (m *Manager) logf(format string, args ...any) {
	m.mu.Lock()
	logger := m.logger
	m.mu.Unlock()
	logger.Printf(format, args...)
}

// Running reports the number of tasks currently Running, for tests and
// diagnostics.
func (m *Manager) Running() int {
	return int(m.running.Load())
}

// OnTasksChanged registers the coalesceable change listener; it fires
// after every status change and queue mutation, and listeners read state
// via TasksSnapshot. Per-tick progress updates and SetTaskSpeedLimit do
// not fire it.
func (m *Manager) OnTasksChanged(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTasksChanged = fn
}

func (m *Manager) emitChanged() {
	m.mu.Lock()
	fn := m.onTasksChanged
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// EnqueueUpload queues local → remote and schedules immediately unless
// globally paused.
func (m *Manager) EnqueueUpload(local, remote string) uint64 {
	return m.enqueue(Upload, local, remote)
}

// EnqueueDownload queues remote → local and schedules immediately
// unless globally paused.
func (m *Manager) EnqueueDownload(remote, local string) uint64 {
	return m.enqueue(Download, remote, local)
}

func (m *Manager) enqueue(typ TaskType, src, dst string) uint64 {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	t := newTask(id, uuid.NewString(), typ, src, dst)
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()

	m.emitChanged()
	if !m.paused.Load() {
		m.Schedule(context.Background())
	}
	return id
}

// TasksSnapshot returns a deep copy of the task list.
func (m *Manager) TasksSnapshot() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Task, len(m.tasks))
	for i, t := range m.tasks {
		out[i] = *t
	}
	return out
}

func (m *Manager) findLocked(id uint64) *Task {
	for _, t := range m.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// correlationFor returns the task's correlation id for diagnostic log
// lines, or the empty string when the task is gone.
func (m *Manager) correlationFor(id uint64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t := m.findLocked(id); t != nil {
		return t.CorrelationID
	}
	return ""
}

// PauseAll sets the global pause flag; running workers observe it
// through shouldCancel() on their next poll and terminate as Paused.
func (m *Manager) PauseAll() {
	m.paused.Store(true)
}

// ResumeAll clears the global pause flag and requeues every Paused
// task with ResumeHint set, then schedules.
func (m *Manager) ResumeAll() {
	m.paused.Store(false)
	m.mu.Lock()
	for _, t := range m.tasks {
		if t.Status == Paused {
			t.Status = Queued
			t.ResumeHint = true
			delete(m.pausedTasks, t.ID)
		}
	}
	m.mu.Unlock()
	m.emitChanged()
	m.Schedule(context.Background())
}

// PauseTask marks a single task for cooperative pause.
func (m *Manager) PauseTask(id uint64) {
	m.mu.Lock()
	m.pausedTasks[id] = true
	if t := m.findLocked(id); t != nil && !t.Status.terminal() {
		t.Status = Paused
	}
	m.mu.Unlock()
	m.emitChanged()
}

// ResumeTask clears a single task's pause mark and requeues it.
func (m *Manager) ResumeTask(id uint64) {
	m.mu.Lock()
	delete(m.pausedTasks, id)
	if t := m.findLocked(id); t != nil && t.Status == Paused {
		t.Status = Queued
		t.ResumeHint = true
	}
	m.mu.Unlock()
	m.emitChanged()
	m.Schedule(context.Background())
}

// CancelTask marks id canceled; any non-terminal task transitions to
// Canceled immediately, running workers pick it up on their next
// shouldCancel() poll.
func (m *Manager) CancelTask(id uint64) {
	m.mu.Lock()
	m.canceledTasks[id] = true
	if t := m.findLocked(id); t != nil && !t.Status.terminal() {
		t.Status = Canceled
	}
	m.mu.Unlock()
	m.emitChanged()
}

// CancelAll cancels every non-terminal task.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	for _, t := range m.tasks {
		if !t.Status.terminal() {
			m.canceledTasks[t.ID] = true
			t.Status = Canceled
		}
	}
	m.mu.Unlock()
	m.emitChanged()
}

// RetryFailed requeues every task in Error or Canceled.
func (m *Manager) RetryFailed() {
	m.mu.Lock()
	for _, t := range m.tasks {
		if t.Status == Error || t.Status == Canceled {
			t.Attempts = 0
			t.Progress = 0
			t.Err = ""
			delete(m.canceledTasks, t.ID)
			t.Status = Queued
		}
	}
	m.mu.Unlock()
	m.emitChanged()
	m.Schedule(context.Background())
}

// ClearCompleted drops every Done task from the list.
func (m *Manager) ClearCompleted() {
	m.clearWhere(func(t *Task) bool { return t.Status == Done })
}

// ClearFailedCanceled drops every Error or Canceled task.
func (m *Manager) ClearFailedCanceled() {
	m.clearWhere(func(t *Task) bool { return t.Status == Error || t.Status == Canceled })
}

// ClearFinishedOlderThan drops terminal tasks whose FinishedAtMs is
// older than the given duration. clearDone selects Done tasks;
// clearFailedCanceled selects Error and Canceled tasks. With both
// false nothing is dropped.
func (m *Manager) ClearFinishedOlderThan(d time.Duration, clearDone, clearFailedCanceled bool) {
	cutoff := time.Now().Add(-d).UnixMilli()
	m.clearWhere(func(t *Task) bool {
		if t.FinishedAtMs == 0 || t.FinishedAtMs >= cutoff {
			return false
		}
		switch t.Status {
		case Done:
			return clearDone
		case Error, Canceled:
			return clearFailedCanceled
		default:
			return false
		}
	})
}

func (m *Manager) clearWhere(drop func(*Task) bool) {
	m.mu.Lock()
	kept := m.tasks[:0:0]
	for _, t := range m.tasks {
		if !drop(t) {
			kept = append(kept, t)
		}
	}
	m.tasks = kept
	m.mu.Unlock()
	m.emitChanged()
}

// SetTaskSpeedLimit sets a per-task throughput cap in kbps, 0 = unlimited.
func (m *Manager) SetTaskSpeedLimit(id uint64, kbps int) {
	m.mu.Lock()
	if t := m.findLocked(id); t != nil {
		t.SpeedLimitKbps = kbps
	}
	m.mu.Unlock()
}

// SetGlobalSpeedLimitKbps sets the manager-wide throughput cap.
func (m *Manager) SetGlobalSpeedLimitKbps(kbps int) {
	m.globalSpeedKbps.Store(int32(kbps))
}

// SetMaxConcurrent changes the worker ceiling; n must be >= 1.
func (m *Manager) SetMaxConcurrent(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: max concurrent must be at least 1", sftpcore.ErrInvalidArgument)
	}
	m.maxConcurrent.Store(int32(n))
	m.Schedule(context.Background())
	return nil
}

// ClearClient joins every worker, then clears the injected client and
// session options so the caller may safely drop or replace them.
func (m *Manager) ClearClient() {
	m.joinAll()
	m.mu.Lock()
	m.client = nil
	m.sessOpts = sftpcore.SessionOptions{}
	m.mu.Unlock()
}

// Shutdown pauses the manager and joins every worker. It does not
// clear the injected client; call ClearClient afterward if needed.
func (m *Manager) Shutdown() {
	m.paused.Store(true)
	m.joinAll()
}

func (m *Manager) joinAll() {
	m.mu.Lock()
	handles := make([]chan struct{}, 0, len(m.joinHandles))
	for _, h := range m.joinHandles {
		handles = append(handles, h)
	}
	m.mu.Unlock()
	for _, h := range handles {
		<-h
	}
}
