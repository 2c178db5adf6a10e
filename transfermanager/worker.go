package transfermanager

import (
	"context"
	"fmt"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

// connectFactory opens a single fresh session via the injected
// client's NewConnectionLike, serialized under connFactoryMu. Used by
// both the precheck phase (single attempt) and connectWithRetry (the
// worker's retrying wrapper around this same call).
func (m *Manager) connectFactory(ctx context.Context, opts sftpcore.SessionOptions) (sftpcore.Client, error) {
	m.mu.Lock()
	base := m.client
	m.mu.Unlock()
	if base == nil {
		return nil, fmt.Errorf("%w: transfer manager has no client", sftpcore.ErrNotConnected)
	}
	m.connFactoryMu.Lock()
	defer m.connFactoryMu.Unlock()
	return base.NewConnectionLike(ctx, opts)
}

// connectWithRetry implements the worker thread's connection step: up
// to 3 attempts with exponential backoff 500ms·2^i. corr tags the log
// lines with the task's correlation id.
func (m *Manager) connectWithRetry(ctx context.Context, opts sftpcore.SessionOptions, corr string) (sftpcore.Client, error) {
	var lastErr error
	for i := 0; i < connectMaxAttempts; i++ {
		client, err := m.connectFactory(ctx, opts)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if i < connectMaxAttempts-1 {
			backoff := connectBackoffBase * time.Duration(int64(1)<<uint(i))
			m.logf("task %s: connect attempt %d/%d failed, retrying in %s: %v", corr, i+1, connectMaxAttempts, backoff, err)
			time.Sleep(backoff)
		}
	}
	return nil, lastErr
}

// runWorker is the body of one worker goroutine, bound to a single
// task id for its whole lifetime. done is closed on every exit path so
// ClearClient/Shutdown can join it.
func (m *Manager) runWorker(id uint64, typ TaskType, src, dst string, resume bool, done chan struct{}) {
	defer close(done)
	defer func() {
		m.mu.Lock()
		delete(m.joinHandles, id)
		m.mu.Unlock()
		m.running.Add(-1)
		m.emitChanged()
		if !m.paused.Load() {
			m.Schedule(context.Background())
		}
	}()

	m.mu.Lock()
	opts := m.sessOpts
	m.mu.Unlock()
	corr := m.correlationFor(id)

	ctx := context.Background()
	client, err := m.connectWithRetry(ctx, opts, corr)
	if err != nil {
		m.finishTask(id, Error, fmt.Sprintf("connect: %v", err))
		return
	}
	defer client.Disconnect()

	isCanceled := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.canceledTasks[id]
	}
	isPausedTask := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.pausedTasks[id]
	}
	shouldCancel := func() bool {
		return m.paused.Load() || isCanceled() || isPausedTask()
	}

	var transferErr error
	if typ == Upload {
		transferErr = client.Put(ctx, src, dst, m.progressFunc(id), shouldCancel, resume)
	} else {
		transferErr = client.Get(ctx, src, dst, m.progressFunc(id), shouldCancel, resume)
	}
	m.ticks.Delete(fmt.Sprint(id))

	if transferErr == nil {
		m.mu.Lock()
		if t := m.findLocked(id); t != nil {
			t.Progress = 100
		}
		m.mu.Unlock()
		if typ == Download {
			m.restoreMtime(ctx, client, src, dst, corr)
		}
		m.finishTask(id, Done, "")
		return
	}

	if shouldCancel() {
		if isCanceled() {
			m.finishTask(id, Canceled, "")
			return
		}
		m.mu.Lock()
		if t := m.findLocked(id); t != nil {
			t.Status = Paused
		}
		m.mu.Unlock()
		m.emitChanged()
		return
	}

	m.finishTask(id, Error, transferErr.Error())
}

// restoreMtime runs after a successful download: if the remote file's
// mtime is known, stamp the local copy with it (UTC). Failures are
// logged, never raised.
func (m *Manager) restoreMtime(ctx context.Context, client sftpcore.Client, remote, local, corr string) {
	info, err := client.Stat(ctx, remote)
	if err != nil {
		m.logf("task %s: stat %s after download: %v", corr, remote, err)
		return
	}
	if info.Mtime == 0 {
		return
	}
	mt := time.Unix(int64(info.Mtime), 0).UTC()
	if err := os.Chtimes(local, mt, mt); err != nil {
		m.logf("task %s: restore mtime on %s: %v", corr, local, err)
	}
}

// progressFunc builds the throttling progress callback for a task.
// Per-task throughput bookkeeping (last done/tick) lives in a
// patrickmn/go-cache instance keyed by task id so it never contends
// with the queue mutex guarding task metadata.
func (m *Manager) progressFunc(id uint64) sftpcore.ProgressFunc {
	key := fmt.Sprint(id)
	return func(done, total int64) {
		m.mu.Lock()
		var taskLimit int
		if t := m.findLocked(id); t != nil {
			if total > 0 {
				t.Progress = int(done * 100 / total)
			}
			t.BytesDone = done
			t.BytesTotal = total
			taskLimit = t.SpeedLimitKbps
		}
		m.mu.Unlock()

		effective := effectiveSpeedLimit(taskLimit, int(m.globalSpeedKbps.Load()))

		now := time.Now()
		prev := tickState{lastTick: now}
		if v, ok := m.ticks.Get(key); ok {
			prev = v.(tickState)
		}

		if effective > 0 {
			if sleepFor := computeThrottleSleep(done-prev.lastDone, effective, now.Sub(prev.lastTick)); sleepFor > 0 {
				time.Sleep(sleepFor)
			}
		}
		m.ticks.Set(key, tickState{lastDone: done, lastTick: time.Now()}, gocache.DefaultExpiration)
	}
}
