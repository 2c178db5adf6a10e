// Package sshbackend is the production implementation of
// sftpcore.Client over ssh.Dial + sftp.NewClient, with a keepalive
// goroutine per session. It treats known_hosts storage and credential
// prompting as the caller's job: SessionOptions.ConfirmHostKey and
// KeyboardInteractivePrompt are wired straight into the
// ssh.ClientConfig callbacks, nothing is persisted here.
package sshbackend

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

// KeepAliveInterval is how often each connected session pings the
// server to keep idle transfers from being dropped.
const KeepAliveInterval = 30 * time.Second

// connectMu serializes session creation: opening two SSH sessions
// concurrently against some servers races on shared initialization
// state, so every Connect and NewConnectionLike call funnels through
// one process-wide mutex.
var connectMu sync.Mutex

// Backend is the concrete SFTP-over-SSH Client.
type Backend struct {
	logger *log.Logger

	mu      sync.Mutex
	ssh     *ssh.Client
	sftp    *sftp.Client
	opts    sftpcore.SessionOptions
	stopKA  chan struct{}
}

// New returns a disconnected Backend. A nil logger falls back to a
// stderr logger.
func New(logger *log.Logger) *Backend {
	if logger == nil {
		logger = log.New(os.Stderr, "sshbackend: ", log.LstdFlags)
	}
	return &Backend{logger: logger}
}

var _ sftpcore.Client = (*Backend)(nil)

func (b *Backend) Connect(ctx context.Context, opts sftpcore.SessionOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	sshConfig := &ssh.ClientConfig{
		User:            opts.Username,
		Auth:            authMethods(opts),
		HostKeyCallback: hostKeyCallback(opts),
		Timeout:         10 * time.Second,
	}

	connectMu.Lock()
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.EffectivePort())
	sshClient, err := ssh.Dial("tcp", addr, sshConfig)
	connectMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", sftpcore.ErrTransport, addr, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return fmt.Errorf("%w: open sftp subsystem: %v", sftpcore.ErrTransport, err)
	}

	b.mu.Lock()
	b.ssh = sshClient
	b.sftp = sftpClient
	b.opts = opts
	b.stopKA = make(chan struct{})
	stop := b.stopKA
	b.mu.Unlock()

	go b.keepAlive(sshClient, stop)
	return nil
}

func authMethods(opts sftpcore.SessionOptions) []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if opts.Password != "" {
		methods = append(methods, ssh.Password(opts.Password))
	}
	if opts.PrivateKeyPath != "" {
		if key, err := os.ReadFile(opts.PrivateKeyPath); err == nil {
			var signer ssh.Signer
			var parseErr error
			if opts.PrivateKeyPassphrase != "" {
				signer, parseErr = ssh.ParsePrivateKeyWithPassphrase(key, []byte(opts.PrivateKeyPassphrase))
			} else {
				signer, parseErr = ssh.ParsePrivateKey(key)
			}
			if parseErr == nil {
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
	}
	if opts.KeyboardInteractivePrompt != nil {
		methods = append(methods, ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
			responses, ok := opts.KeyboardInteractivePrompt(name, instruction, questions)
			if !ok {
				return nil, fmt.Errorf("%w: keyboard-interactive declined", sftpcore.ErrTransport)
			}
			return responses, nil
		}))
	}
	return methods
}

// hostKeyCallback delegates the decision to opts.ConfirmHostKey, except
// that KnownHostsOff accepts every key and KnownHostsAcceptNew accepts
// when no hook is set. It never reads or writes a known_hosts file —
// that storage is the external collaborator's responsibility.
func hostKeyCallback(opts sftpcore.SessionOptions) ssh.HostKeyCallback {
	if opts.KnownHostsPolicy == sftpcore.KnownHostsOff {
		return ssh.InsecureIgnoreHostKey()
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		sum := sha256.Sum256(key.Marshal())
		fingerprint := base64.StdEncoding.EncodeToString(sum[:])
		if opts.ConfirmHostKey == nil {
			if opts.KnownHostsPolicy == sftpcore.KnownHostsAcceptNew {
				return nil
			}
			return fmt.Errorf("%w: no host key confirmation hook configured", sftpcore.ErrTransport)
		}
		if !opts.ConfirmHostKey(hostname, opts.EffectivePort(), key.Type(), fingerprint) {
			return fmt.Errorf("%w: host key rejected for %s", sftpcore.ErrTransport, hostname)
		}
		return nil
	}
}

func (b *Backend) keepAlive(client *ssh.Client, stop chan struct{}) {
	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				b.logger.Printf("keepalive failed: %v", err)
				return
			}
		case <-stop:
			return
		}
	}
}

func (b *Backend) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopKA != nil {
		close(b.stopKA)
		b.stopKA = nil
	}
	var firstErr error
	if b.sftp != nil {
		if err := b.sftp.Close(); err != nil {
			firstErr = err
		}
		b.sftp = nil
	}
	if b.ssh != nil {
		if err := b.ssh.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.ssh = nil
	}
	return firstErr
}

func (b *Backend) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sftp != nil
}

func (b *Backend) client() (*sftp.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sftp == nil {
		return nil, sftpcore.ErrNotConnected
	}
	return b.sftp, nil
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

func (b *Backend) List(_ context.Context, dirPath string) ([]sftpcore.FileInfo, error) {
	client, err := b.client()
	if err != nil {
		return nil, err
	}
	entries, err := client.ReadDir(normalize(dirPath))
	if err != nil {
		return nil, classify(err, "list")
	}
	out := make([]sftpcore.FileInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, toFileInfo(e.Name(), e))
	}
	return out, nil
}

func (b *Backend) Stat(_ context.Context, p string) (sftpcore.FileInfo, error) {
	client, err := b.client()
	if err != nil {
		return sftpcore.FileInfo{}, err
	}
	info, err := client.Stat(normalize(p))
	if err != nil {
		return sftpcore.FileInfo{}, classify(err, "stat")
	}
	return toFileInfo(path.Base(normalize(p)), info), nil
}

func (b *Backend) Exists(_ context.Context, p string) (bool, bool, error) {
	client, err := b.client()
	if err != nil {
		return false, false, err
	}
	info, err := client.Stat(normalize(p))
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, classify(err, "exists")
	}
	return true, info.IsDir(), nil
}

func (b *Backend) Mkdir(_ context.Context, p string, mode sftpcore.FileMode) error {
	client, err := b.client()
	if err != nil {
		return err
	}
	if err := client.Mkdir(normalize(p)); err != nil {
		return classify(err, "mkdir")
	}
	if mode != 0 {
		_ = client.Chmod(normalize(p), os.FileMode(mode.Perm()))
	}
	return nil
}

func (b *Backend) RemoveFile(_ context.Context, p string) error {
	client, err := b.client()
	if err != nil {
		return err
	}
	return classify(client.Remove(normalize(p)), "remove_file")
}

func (b *Backend) RemoveDir(_ context.Context, p string) error {
	client, err := b.client()
	if err != nil {
		return err
	}
	return classify(client.RemoveDirectory(normalize(p)), "remove_dir")
}

func (b *Backend) Rename(_ context.Context, from, to string, overwrite bool) error {
	client, err := b.client()
	if err != nil {
		return err
	}
	if overwrite {
		return classify(client.PosixRename(normalize(from), normalize(to)), "rename")
	}
	return classify(client.Rename(normalize(from), normalize(to)), "rename")
}

func (b *Backend) Chmod(_ context.Context, p string, mode sftpcore.FileMode) error {
	client, err := b.client()
	if err != nil {
		return err
	}
	return classify(client.Chmod(normalize(p), os.FileMode(mode.Perm())), "chmod")
}

func (b *Backend) Chown(_ context.Context, p string, uid, gid uint32) error {
	client, err := b.client()
	if err != nil {
		return err
	}
	return classify(client.Chown(normalize(p), int(uid), int(gid)), "chown")
}

func (b *Backend) SetTimes(_ context.Context, p string, atimeEpoch, mtimeEpoch uint64) error {
	client, err := b.client()
	if err != nil {
		return err
	}
	at := time.Unix(int64(atimeEpoch), 0)
	mt := time.Unix(int64(mtimeEpoch), 0)
	return classify(client.Chtimes(normalize(p), at, mt), "set_times")
}

func (b *Backend) NewConnectionLike(ctx context.Context, opts sftpcore.SessionOptions) (sftpcore.Client, error) {
	fresh := New(b.logger)
	if err := fresh.Connect(ctx, opts); err != nil {
		return nil, err
	}
	return fresh, nil
}

func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s: %v", sftpcore.ErrNotFound, op, err)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %s: %v", sftpcore.ErrPermission, op, err)
	}
	return fmt.Errorf("%w: %s: %v", sftpcore.ErrTransport, op, err)
}

func toFileInfo(name string, info os.FileInfo) sftpcore.FileInfo {
	fi := sftpcore.FileInfo{
		Name:    name,
		IsDir:   info.IsDir(),
		Size:    uint64(info.Size()),
		HasSize: true,
		Mtime:   uint64(info.ModTime().Unix()),
	}
	if sys, ok := info.Sys().(*sftp.FileStat); ok {
		fi.UID = sys.UID
		fi.GID = sys.GID
		fi.Mode = sftpcore.FileMode(sys.Mode)
	}
	return fi
}

// copyWithProgressAndCancel streams src into dst, invoking progress
// once per buffer and returning promptly once cancel reports true.
// In-flight reads and writes always complete; cancellation is only
// observed between buffers.
func copyWithProgressAndCancel(dst io.Writer, src io.Reader, total int64, progress sftpcore.ProgressFunc, cancel sftpcore.CancelFunc) (int64, error) {
	buf := make([]byte, 1024*1024)
	var done int64
	for {
		if cancel != nil && cancel() {
			return done, fmt.Errorf("%w: transfer canceled", sftpcore.ErrTransport)
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return done, werr
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return done, nil
			}
			return done, rerr
		}
	}
}
