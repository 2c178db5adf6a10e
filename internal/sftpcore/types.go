// Package sftpcore defines the capability contract every SFTP backend
// must satisfy, plus the value types that travel across it.
package sftpcore

import "fmt"

// KnownHostsPolicy controls how a backend should react to an unknown or
// changed host key. Storage of the known_hosts file itself is the
// caller's responsibility; the core only carries the policy value.
type KnownHostsPolicy int

const (
	KnownHostsStrict KnownHostsPolicy = iota
	KnownHostsAcceptNew
	KnownHostsOff
)

func (p KnownHostsPolicy) String() string {
	switch p {
	case KnownHostsStrict:
		return "strict"
	case KnownHostsAcceptNew:
		return "accept-new"
	case KnownHostsOff:
		return "off"
	default:
		return "unknown"
	}
}

// HostKeyConfirmFunc is asked to approve a host key the backend cannot
// validate automatically (first contact, or AcceptNew policy).
type HostKeyConfirmFunc func(host string, port int, algorithm, fingerprint string) bool

// KeyboardInteractivePrompts is a single round of a keyboard-interactive
// authentication exchange.
type KeyboardInteractivePrompts func(name, instruction string, prompts []string) (responses []string, ok bool)

// SessionOptions bundles the credentials and policy needed to open a
// session. It is a value type: freely copyable, safe to pass to
// NewConnectionLike without aliasing concerns.
type SessionOptions struct {
	Host     string
	Port     int // zero means "use default 22"
	Username string
	Password string

	PrivateKeyPath       string
	PrivateKeyPassphrase string

	KnownHostsPath   string
	KnownHostsPolicy KnownHostsPolicy

	ConfirmHostKey            HostKeyConfirmFunc
	KeyboardInteractivePrompt KeyboardInteractivePrompts
}

// EffectivePort returns Port, defaulting to 22 when unset.
func (o SessionOptions) EffectivePort() int {
	if o.Port == 0 {
		return 22
	}
	return o.Port
}

// Validate checks the required fields: host and username must be
// non-empty.
func (o SessionOptions) Validate() error {
	if o.Host == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidArgument)
	}
	if o.Username == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidArgument)
	}
	return nil
}

// FileMode holds the raw POSIX mode bits, type nibble included (e.g.
// 0120000 marks a symlink), mirroring what a real SFTP SSH_FXP_ATTRS
// payload carries.
type FileMode uint32

const (
	modeTypeMask    FileMode = 0170000
	modeTypeSymlink FileMode = 0120000
	modeTypeDir     FileMode = 0040000
)

func (m FileMode) IsSymlink() bool { return m&modeTypeMask == modeTypeSymlink }
func (m FileMode) IsDir() bool     { return m&modeTypeMask == modeTypeDir }
func (m FileMode) Perm() FileMode  { return m & 0007777 }

// FileInfo is a single directory entry as returned by List/Stat.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    uint64
	HasSize bool // distinguishes "zero bytes" from "size unknown"
	Mtime   uint64 // epoch seconds, 0 = unknown
	Mode    FileMode
	UID     uint32
	GID     uint32
}

// ProgressFunc reports bytes transferred so far against the known
// total (0 when the total is unknown).
type ProgressFunc func(done, total int64)

// CancelFunc is polled by the backend at its own I/O boundaries; once
// it returns true the backend should wind down and return promptly.
type CancelFunc func() bool
