package sftpcore

import "context"

// Client is the capability set every SFTP backend implements: the
// production SSH backend (internal/sshbackend) and the in-memory
// mock (internal/sftpcore/mock) are both variants selected at
// construction, never subclasses of one another.
//
// Implementations are not required to be safe for concurrent use by
// multiple goroutines on the same instance; TransferManager never
// shares one Client across workers — see NewConnectionLike.
type Client interface {
	// Connect dials the session described by opts. Fails with
	// ErrInvalidArgument when Host or Username is empty. On success
	// IsConnected reports true.
	Connect(ctx context.Context, opts SessionOptions) error

	// Disconnect is idempotent. No further operation may be issued on
	// the instance once it returns.
	Disconnect() error

	IsConnected() bool

	// List returns the entries of path, unsorted; empty path means
	// "/". Ordering is the caller's responsibility.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Stat describes a single path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Exists reports whether path is present. Absence is reported as
	// (false, false, nil) — only transport or permission faults
	// populate the error.
	Exists(ctx context.Context, path string) (exists, isDir bool, err error)

	// Get downloads remote to local. When resume is true and local
	// already exists with size N < remote size, the transfer
	// continues from offset N; otherwise local is truncated. progress
	// and cancel may be nil. On cancellation the returned error is
	// non-nil and cancel() still reports true, so callers can
	// classify the outcome.
	Get(ctx context.Context, remote, local string, progress ProgressFunc, cancel CancelFunc, resume bool) error

	// Put uploads local to remote, symmetric to Get.
	Put(ctx context.Context, local, remote string, progress ProgressFunc, cancel CancelFunc, resume bool) error

	// Mkdir creates a single directory; it does not create parents.
	Mkdir(ctx context.Context, path string, mode FileMode) error

	RemoveFile(ctx context.Context, path string) error
	RemoveDir(ctx context.Context, path string) error
	Rename(ctx context.Context, from, to string, overwrite bool) error

	// Chmod, Chown and SetTimes are best-effort: servers that forbid
	// the operation return an error rather than silently ignoring it.
	Chmod(ctx context.Context, path string, mode FileMode) error
	Chown(ctx context.Context, path string, uid, gid uint32) error
	SetTimes(ctx context.Context, path string, atimeEpoch, mtimeEpoch uint64) error

	// NewConnectionLike opens a second, independent, already-connected
	// session using the given credentials. This is the sole entry
	// point TransferManager and the async lister use to obtain
	// per-worker sessions; a backend may serialize this call
	// internally to avoid cross-thread initialization hazards.
	NewConnectionLike(ctx context.Context, opts SessionOptions) (Client, error)
}
