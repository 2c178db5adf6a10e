package transfermanager

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

// precheckOutcome is what Schedule does next with a task after its
// precheck phase: skip it outright (Skip response), fail it (err), or
// proceed to the worker with the resolved resume flag.
type precheckOutcome struct {
	skip   bool
	resume bool
	err    error
}

func (m *Manager) precheck(ctx context.Context, client sftpcore.Client, t *Task) precheckOutcome {
	if t.Type == Upload {
		return m.precheckUpload(ctx, client, t)
	}
	return m.precheckDownload(ctx, client, t)
}

// precheckUpload handles the precheck's upload branch: src is local,
// dst is remote.
func (m *Manager) precheckUpload(ctx context.Context, client sftpcore.Client, t *Task) precheckOutcome {
	exists, _, err := client.Exists(ctx, t.Dst)
	if err != nil {
		return precheckOutcome{err: err}
	}

	resume := t.ResumeHint
	if exists {
		remoteStat, err := client.Stat(ctx, t.Dst)
		if err != nil {
			return precheckOutcome{err: err}
		}
		resp, err := m.askOverwrite(path.Base(t.Dst), localInfoFor(t.Src), remoteInfoFrom(remoteStat))
		if err != nil {
			return precheckOutcome{err: err}
		}
		switch resp {
		case Skip:
			return precheckOutcome{skip: true}
		case Resume:
			resume = true
		case Overwrite:
			resume = false
		}
	}

	if err := ensureRemoteDirs(ctx, client, path.Dir(t.Dst)); err != nil {
		return precheckOutcome{err: err}
	}
	return precheckOutcome{resume: resume}
}

// precheckDownload handles the precheck's download branch, the
// mirror image of precheckUpload: src is remote, dst is local.
func (m *Manager) precheckDownload(ctx context.Context, client sftpcore.Client, t *Task) precheckOutcome {
	local := localInfoFor(t.Dst)
	resume := t.ResumeHint
	if local.Exists {
		remoteStat, err := client.Stat(ctx, t.Src)
		if err != nil {
			return precheckOutcome{err: err}
		}
		resp, err := m.askOverwrite(path.Base(t.Src), local, remoteInfoFrom(remoteStat))
		if err != nil {
			return precheckOutcome{err: err}
		}
		switch resp {
		case Skip:
			return precheckOutcome{skip: true}
		case Resume:
			resume = true
		case Overwrite:
			resume = false
		}
	}

	if err := os.MkdirAll(filepath.Dir(t.Dst), 0o755); err != nil {
		return precheckOutcome{err: fmt.Errorf("%w: create local parent dir: %v", sftpcore.ErrTransport, err)}
	}
	return precheckOutcome{resume: resume}
}

func (m *Manager) askOverwrite(filename string, local LocalInfo, remote RemoteInfo) (OverwriteResponse, error) {
	if m.overwritePrompt == nil {
		return Skip, fmt.Errorf("%w: %s already exists and no overwrite prompt is configured", sftpcore.ErrInvalidArgument, filename)
	}
	return m.overwritePrompt(filename, local, remote), nil
}

func localInfoFor(p string) LocalInfo {
	info, err := os.Stat(p)
	if err != nil {
		return LocalInfo{}
	}
	return LocalInfo{Exists: true, Size: info.Size(), ModTime: info.ModTime()}
}

func remoteInfoFrom(info sftpcore.FileInfo) RemoteInfo {
	return RemoteInfo{Exists: true, Size: info.Size, Mtime: info.Mtime}
}

// ensureRemoteDirs walks each segment of dir from the root, creating
// it only when absent. It never calls mkdir on a segment already
// reported to exist.
func ensureRemoteDirs(ctx context.Context, client sftpcore.Client, dir string) error {
	dir = path.Clean(dir)
	if dir == "/" || dir == "." || dir == "" {
		return nil
	}

	segments := strings.Split(strings.Trim(dir, "/"), "/")
	cur := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		exists, isDir, err := client.Exists(ctx, cur)
		if err != nil {
			return err
		}
		if exists {
			if !isDir {
				return fmt.Errorf("%w: %s exists and is not a directory", sftpcore.ErrInvalidArgument, cur)
			}
			continue
		}
		if err := client.Mkdir(ctx, cur, 0o755); err != nil {
			return err
		}
	}
	return nil
}
