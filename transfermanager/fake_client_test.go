package transfermanager

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

// transferCall records one Get/Put invocation observed by fakeClient.
type transferCall struct {
	local, remote string
	resume        bool
}

// fakeClient is a minimal sftpcore.Client stand-in for transfermanager
// tests: it tracks mkdir calls and transfer calls, and lets a test
// script existing remote paths and forced errors without spinning up a
// real backend or the mock package's fixed seed tree.
type fakeClient struct {
	mu       sync.Mutex
	existing map[string]sftpcore.FileInfo
	mkdirs   []string
	putCalls []transferCall
	getCalls []transferCall
	putErr   error

	// blockUntilCancel, when set, makes Get/Put loop indefinitely,
	// polling cancel(), instead of completing after a fixed number of
	// progress ticks — used to exercise CancelAll against a task that
	// would otherwise never finish on its own.
	blockUntilCancel bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{existing: map[string]sftpcore.FileInfo{}}
}

var _ sftpcore.Client = (*fakeClient)(nil)

func (f *fakeClient) Connect(context.Context, sftpcore.SessionOptions) error { return nil }
func (f *fakeClient) Disconnect() error                                     { return nil }
func (f *fakeClient) IsConnected() bool                                     { return true }

func (f *fakeClient) List(context.Context, string) ([]sftpcore.FileInfo, error) { return nil, nil }

func (f *fakeClient) Stat(_ context.Context, p string) (sftpcore.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.existing[p]
	if !ok {
		return sftpcore.FileInfo{}, fmt.Errorf("%w: %s", sftpcore.ErrNotFound, p)
	}
	return info, nil
}

func (f *fakeClient) Exists(_ context.Context, p string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.existing[p]
	if !ok {
		return false, false, nil
	}
	return true, info.IsDir, nil
}

func (f *fakeClient) Get(_ context.Context, remote, local string, progress sftpcore.ProgressFunc, cancel sftpcore.CancelFunc, resume bool) error {
	f.mu.Lock()
	f.getCalls = append(f.getCalls, transferCall{local: local, remote: remote, resume: resume})
	f.mu.Unlock()
	return f.transfer(progress, cancel)
}

func (f *fakeClient) Put(_ context.Context, local, remote string, progress sftpcore.ProgressFunc, cancel sftpcore.CancelFunc, resume bool) error {
	f.mu.Lock()
	f.putCalls = append(f.putCalls, transferCall{local: local, remote: remote, resume: resume})
	f.mu.Unlock()
	return f.transfer(progress, cancel)
}

func (f *fakeClient) transfer(progress sftpcore.ProgressFunc, cancel sftpcore.CancelFunc) error {
	f.mu.Lock()
	blockUntilCancel := f.blockUntilCancel
	putErr := f.putErr
	f.mu.Unlock()

	if blockUntilCancel {
		var done int64
		for {
			if cancel != nil && cancel() {
				return fmt.Errorf("%w: transfer canceled", sftpcore.ErrTransport)
			}
			done++
			if progress != nil {
				progress(done, 0)
			}
			time.Sleep(2 * time.Millisecond)
		}
	}

	const total = int64(100)
	var done int64
	for done < total {
		if cancel != nil && cancel() {
			return fmt.Errorf("%w: transfer canceled", sftpcore.ErrTransport)
		}
		done += 10
		if progress != nil {
			progress(done, total)
		}
	}
	return putErr
}

func (f *fakeClient) Mkdir(_ context.Context, p string, _ sftpcore.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirs = append(f.mkdirs, p)
	f.existing[p] = sftpcore.FileInfo{Name: path.Base(p), IsDir: true}
	return nil
}

func (f *fakeClient) RemoveFile(context.Context, string) error              { return nil }
func (f *fakeClient) RemoveDir(context.Context, string) error               { return nil }
func (f *fakeClient) Rename(context.Context, string, string, bool) error    { return nil }
func (f *fakeClient) Chmod(context.Context, string, sftpcore.FileMode) error { return nil }
func (f *fakeClient) Chown(context.Context, string, uint32, uint32) error   { return nil }
func (f *fakeClient) SetTimes(context.Context, string, uint64, uint64) error { return nil }

func (f *fakeClient) NewConnectionLike(context.Context, sftpcore.SessionOptions) (sftpcore.Client, error) {
	return f, nil
}
