package transfermanager

import (
	"context"
	"fmt"
)

// Schedule is the scheduler loop: while running is
// below the concurrency ceiling and a Queued task exists, it prechecks
// the next task on the calling goroutine and, unless the precheck
// skipped or failed it outright, spawns a worker goroutine for it.
// Safe to call from any goroutine; concurrent calls coalesce on the
// queue mutex and the running counter.
func (m *Manager) Schedule(ctx context.Context) {
	for {
		if m.paused.Load() {
			return
		}

		// The concurrency check and the Running transition happen under
		// one queue-mutex hold, reserving the worker slot at pick time.
		// Checking the counter outside the lock would let two concurrent
		// Schedule calls both admit a task past the same free slot.
		m.mu.Lock()
		if m.running.Load() >= m.maxConcurrent.Load() {
			m.mu.Unlock()
			return
		}
		var picked *Task
		for _, t := range m.tasks {
			if t.Status == Queued {
				picked = t
				break
			}
		}
		if picked == nil {
			m.mu.Unlock()
			return
		}
		picked.Status = Running
		picked.Attempts++
		picked.Progress = 0
		picked.Err = ""
		m.running.Add(1)
		taskCopy := picked.clone()
		client := m.client
		opts := m.sessOpts
		m.mu.Unlock()
		m.emitChanged()

		if client == nil {
			m.releaseSlot()
			m.finishTask(taskCopy.ID, Error, "transfer manager has no client")
			continue
		}

		precheckClient, err := m.connectFactory(ctx, opts)
		if err != nil {
			m.releaseSlot()
			m.finishTask(taskCopy.ID, Error, fmt.Sprintf("precheck connect: %v", err))
			continue
		}
		outcome := m.precheck(ctx, precheckClient, taskCopy)
		precheckClient.Disconnect()

		if outcome.err != nil {
			m.releaseSlot()
			m.finishTask(taskCopy.ID, Error, outcome.err.Error())
			continue
		}
		if outcome.skip {
			m.releaseSlot()
			m.finishTask(taskCopy.ID, Done, "")
			continue
		}

		m.mu.Lock()
		if old, ok := m.joinHandles[taskCopy.ID]; ok {
			m.mu.Unlock()
			<-old
			m.mu.Lock()
		}
		done := make(chan struct{})
		m.joinHandles[taskCopy.ID] = done
		m.mu.Unlock()

		resume := outcome.resume || taskCopy.ResumeHint
		go m.runWorker(taskCopy.ID, taskCopy.Type, taskCopy.Src, taskCopy.Dst, resume, done)
	}
}

// releaseSlot undoes the worker-slot reservation made at pick time when
// the task never reaches a worker goroutine.
func (m *Manager) releaseSlot() {
	m.running.Add(-1)
}

func (m *Manager) finishTask(id uint64, status TaskStatus, errMsg string) {
	m.mu.Lock()
	if t := m.findLocked(id); t != nil {
		t.Status = status
		t.Err = errMsg
		t.FinishedAtMs = nowMillis()
	}
	m.mu.Unlock()
	m.emitChanged()
}
