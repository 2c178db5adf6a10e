package transfermanager

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

var testOpts = sftpcore.SessionOptions{Host: "h", Username: "u"}

// newTestManager silences the manager's diagnostic logger so expected
// failures (forced errors, missing remote stat after download) don't
// clutter test output.
func newTestManager(client sftpcore.Client, prompt OverwritePrompt) *Manager {
	m := New(client, testOpts, prompt)
	m.SetLogger(log.New(io.Discard, "", 0))
	return m
}

// waitForTerminal polls the manager until id reaches a state the
// scheduler won't advance on its own (Done, Error, Canceled, Paused),
// or fails the test after timeout.
func waitForTerminal(t *testing.T, mgr *Manager, id uint64, timeout time.Duration) Task {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, task := range mgr.TasksSnapshot() {
			if task.ID != id {
				continue
			}
			if task.Status == Done || task.Status == Error || task.Status == Canceled || task.Status == Paused {
				return task
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %d did not reach a terminal state within %s", id, timeout)
	return Task{}
}

func TestScheduleRunsUploadToDone(t *testing.T) {
	client := newFakeClient()
	mgr := newTestManager(client, nil)

	id := mgr.EnqueueUpload("/local/file.txt", "/remote/file.txt")
	task := waitForTerminal(t, mgr, id, time.Second)

	assert.Equal(t, Done, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, 1, task.Attempts)
	require.Len(t, client.putCalls, 1)
	assert.False(t, client.putCalls[0].resume)
}

func TestPrecheckSkipMarksDoneWithoutTransfer(t *testing.T) {
	client := newFakeClient()
	client.existing["/remote/file.txt"] = sftpcore.FileInfo{Name: "file.txt", Size: 10, HasSize: true}

	promptCalled := false
	prompt := func(filename string, local LocalInfo, remote RemoteInfo) OverwriteResponse {
		promptCalled = true
		assert.Equal(t, "file.txt", filename)
		assert.True(t, remote.Exists)
		return Skip
	}

	mgr := newTestManager(client, prompt)
	id := mgr.EnqueueUpload("/local/file.txt", "/remote/file.txt")
	task := waitForTerminal(t, mgr, id, time.Second)

	assert.True(t, promptCalled)
	assert.Equal(t, Done, task.Status)
	assert.Empty(t, client.putCalls)
}

func TestPrecheckResumePassesResumeFlagToPut(t *testing.T) {
	client := newFakeClient()
	client.existing["/remote/file.txt"] = sftpcore.FileInfo{Name: "file.txt", Size: 5, HasSize: true}
	prompt := func(string, LocalInfo, RemoteInfo) OverwriteResponse { return Resume }

	mgr := newTestManager(client, prompt)
	id := mgr.EnqueueUpload("/local/file.txt", "/remote/file.txt")
	task := waitForTerminal(t, mgr, id, time.Second)

	assert.Equal(t, Done, task.Status)
	require.Len(t, client.putCalls, 1)
	assert.True(t, client.putCalls[0].resume)
}

func TestPrecheckRejectsOverwriteWithoutPrompt(t *testing.T) {
	client := newFakeClient()
	client.existing["/remote/file.txt"] = sftpcore.FileInfo{Name: "file.txt", Size: 5, HasSize: true}

	mgr := newTestManager(client, nil)
	id := mgr.EnqueueUpload("/local/file.txt", "/remote/file.txt")
	task := waitForTerminal(t, mgr, id, time.Second)

	assert.Equal(t, Error, task.Status)
	assert.Empty(t, client.putCalls)
}

func TestPrecheckCreatesMissingRemoteParents(t *testing.T) {
	client := newFakeClient()
	mgr := newTestManager(client, nil)
	id := mgr.EnqueueUpload("/local/file.txt", "/a/b/c/file.txt")
	task := waitForTerminal(t, mgr, id, time.Second)

	assert.Equal(t, Done, task.Status)
	assert.Equal(t, []string{"/a", "/a/b", "/a/b/c"}, client.mkdirs)
}

func TestRetryFailedRequeuesErrorTasks(t *testing.T) {
	client := newFakeClient()
	client.putErr = fmt.Errorf("%w: boom", sftpcore.ErrTransport)

	mgr := newTestManager(client, nil)
	id := mgr.EnqueueUpload("/local/file.txt", "/remote/file.txt")
	task := waitForTerminal(t, mgr, id, time.Second)
	require.Equal(t, Error, task.Status)

	client.putErr = nil
	mgr.RetryFailed()
	task = waitForTerminal(t, mgr, id, time.Second)

	assert.Equal(t, Done, task.Status)
	// retry_failed() resets attempts to 0 before requeuing, so the
	// successful retry's single Running transition leaves it at 1.
	assert.Equal(t, 1, task.Attempts)
	assert.Empty(t, task.Err)
}

func TestSetMaxConcurrentRejectsBelowOne(t *testing.T) {
	mgr := newTestManager(newFakeClient(), nil)
	assert.ErrorIs(t, mgr.SetMaxConcurrent(0), sftpcore.ErrInvalidArgument)
}

func TestClearCompletedRemovesDoneTasks(t *testing.T) {
	client := newFakeClient()
	mgr := newTestManager(client, nil)
	id := mgr.EnqueueUpload("/local/a.txt", "/remote/a.txt")
	waitForTerminal(t, mgr, id, time.Second)

	mgr.ClearCompleted()
	assert.Empty(t, mgr.TasksSnapshot())
}

func TestClearFinishedOlderThanHonorsSelectors(t *testing.T) {
	client := newFakeClient()
	mgr := newTestManager(client, nil)

	doneID := mgr.EnqueueUpload("/local/ok.txt", "/remote/ok.txt")
	waitForTerminal(t, mgr, doneID, time.Second)

	client.putErr = fmt.Errorf("%w: boom", sftpcore.ErrTransport)
	failedID := mgr.EnqueueUpload("/local/bad.txt", "/remote/bad.txt")
	task := waitForTerminal(t, mgr, failedID, time.Second)
	require.Equal(t, Error, task.Status)

	time.Sleep(10 * time.Millisecond) // age both past a 1ms cutoff

	mgr.ClearFinishedOlderThan(time.Millisecond, true, false)
	snap := mgr.TasksSnapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, failedID, snap[0].ID)

	mgr.ClearFinishedOlderThan(time.Millisecond, false, true)
	assert.Empty(t, mgr.TasksSnapshot())
}

func TestCancelAllDrainsRunningTasks(t *testing.T) {
	client := newFakeClient()
	client.blockUntilCancel = true
	mgr := newTestManager(client, nil)
	require.NoError(t, mgr.SetMaxConcurrent(2))

	for i := 0; i < 4; i++ {
		mgr.EnqueueDownload(fmt.Sprintf("/remote/f%d", i), fmt.Sprintf("/local/f%d", i))
	}

	// Give the first two workers time to actually start before cutting
	// them off, so CancelAll observes tasks genuinely mid-flight.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && mgr.Running() < 2 {
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, 2, mgr.Running())

	mgr.CancelAll()

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && mgr.Running() > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, mgr.Running())

	for _, task := range mgr.TasksSnapshot() {
		assert.Equal(t, Canceled, task.Status, "task %d", task.ID)
	}
}

func TestPauseTaskThenResumeRequeues(t *testing.T) {
	client := newFakeClient()
	client.blockUntilCancel = true
	mgr := newTestManager(client, nil)

	id := mgr.EnqueueDownload("/remote/f", "/local/f")
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && mgr.Running() < 1 {
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, 1, mgr.Running())

	mgr.PauseTask(id)
	task := waitForTerminal(t, mgr, id, 2*time.Second)
	assert.Equal(t, Paused, task.Status)

	// Wait for the paused worker goroutine to actually exit before
	// resuming, so the retry doesn't race a still-unwinding worker for
	// the same task id.
	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) && mgr.Running() > 0 {
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, 0, mgr.Running())

	client.blockUntilCancel = false
	mgr.ResumeTask(id)
	task = waitForTerminal(t, mgr, id, time.Second)
	assert.Equal(t, Done, task.Status)
	assert.True(t, client.getCalls[len(client.getCalls)-1].resume)
}
