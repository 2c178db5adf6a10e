package sshbackend

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/sftp"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

// Get downloads remote to local. When resume is true and local
// already exists with size N smaller than remote's size, the transfer
// continues at offset N; otherwise local is truncated.
func (b *Backend) Get(_ context.Context, remote, local string, progress sftpcore.ProgressFunc, cancel sftpcore.CancelFunc, resume bool) error {
	client, err := b.client()
	if err != nil {
		return err
	}

	remoteFile, err := client.Open(normalize(remote))
	if err != nil {
		return classify(err, "get")
	}
	defer remoteFile.Close()

	info, err := remoteFile.Stat()
	if err != nil {
		return classify(err, "get")
	}
	total := info.Size()

	var offset int64
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if resume {
		if localInfo, statErr := os.Stat(local); statErr == nil && localInfo.Size() < total {
			offset = localInfo.Size()
			flags = os.O_WRONLY | os.O_APPEND
		}
	}

	localFile, err := os.OpenFile(local, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: get: open local file: %v", sftpcore.ErrTransport, err)
	}
	defer localFile.Close()

	if offset > 0 {
		if _, err := remoteFile.Seek(offset, 0); err != nil {
			return fmt.Errorf("%w: get: seek remote: %v", sftpcore.ErrTransport, err)
		}
	}

	done, err := copyWithProgressAndCancel(localFile, remoteFile, total, func(d, t int64) {
		if progress != nil {
			progress(offset+d, t)
		}
	}, cancel)
	_ = done
	if err != nil {
		return err
	}
	return nil
}

// Put uploads local to remote, symmetric to Get.
func (b *Backend) Put(_ context.Context, local, remote string, progress sftpcore.ProgressFunc, cancel sftpcore.CancelFunc, resume bool) error {
	client, err := b.client()
	if err != nil {
		return err
	}

	localFile, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("%w: put: open local file: %v", sftpcore.ErrTransport, err)
	}
	defer localFile.Close()

	localInfo, err := localFile.Stat()
	if err != nil {
		return fmt.Errorf("%w: put: stat local file: %v", sftpcore.ErrTransport, err)
	}
	total := localInfo.Size()

	var offset int64
	if resume {
		if remoteInfo, statErr := client.Stat(normalize(remote)); statErr == nil && remoteInfo.Size() < total {
			offset = remoteInfo.Size()
		}
	}

	remoteFile, err := openRemoteForWrite(client, normalize(remote), offset)
	if err != nil {
		return err
	}
	if offset > 0 {
		if _, err := localFile.Seek(offset, 0); err != nil {
			return fmt.Errorf("%w: put: seek local: %v", sftpcore.ErrTransport, err)
		}
	}
	defer remoteFile.Close()

	_, err = copyWithProgressAndCancel(remoteFile, localFile, total, func(d, t int64) {
		if progress != nil {
			progress(offset+d, t)
		}
	}, cancel)
	return err
}

// openRemoteForWrite opens remote for a fresh upload (truncating) or,
// when offset > 0, for an append-based resume.
func openRemoteForWrite(client *sftp.Client, remote string, offset int64) (*sftp.File, error) {
	if offset > 0 {
		f, err := client.OpenFile(remote, os.O_WRONLY|os.O_APPEND)
		if err != nil {
			return nil, classify(err, "put")
		}
		return f, nil
	}
	f, err := client.Create(remote)
	if err != nil {
		return nil, classify(err, "put")
	}
	return f, nil
}
