// Command openscp-demo is a reference TUI consumer of transfermanager
// and remotemodel, wiring the SSH backend into an interactive queue
// viewer: connect first, then hand a live transfer table to bubbletea.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luiscuellar31/openscp-sub001/internal/settings"
	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
	"github.com/luiscuellar31/openscp-sub001/internal/sshbackend"
	"github.com/luiscuellar31/openscp-sub001/remotemodel"
	"github.com/luiscuellar31/openscp-sub001/transfermanager"
)

func main() {
	var (
		host        = flag.String("host", "", "SFTP host (required)")
		port        = flag.Int("port", 22, "SFTP port")
		user        = flag.String("user", "", "username (required)")
		password    = flag.String("password", "", "password (omit to use an SSH agent/key)")
		remoteDir   = flag.String("remote-dir", "/", "remote directory to browse on start")
		maxConc     = flag.Int("max-concurrent", 2, "max concurrent transfers")
		speedKbps   = flag.Int("speed-limit-kbps", 0, "global speed limit in kbps, 0 = unlimited")
		upload      = flag.String("upload", "", "local file to enqueue for upload on start")
		uploadDest  = flag.String("upload-dest", "", "remote destination for -upload")
		dl          = flag.String("download", "", "remote file to enqueue for download on start")
		dlDest      = flag.String("download-dest", "", "local destination for -download")
		recurseFrom = flag.String("recursive-download", "", "remote directory to recursively enumerate and enqueue for download")
		recurseTo   = flag.String("recursive-download-dest", "", "local directory mirroring -recursive-download")
		includeGlob = flag.String("include", "", "doublestar include glob applied to -recursive-download")
		excludeGlob = flag.String("exclude", "", "doublestar exclude glob applied to -recursive-download")
	)
	flag.Parse()

	if *host == "" || *user == "" {
		fmt.Fprintln(os.Stderr, "openscp-demo: -host and -user are required")
		flag.Usage()
		os.Exit(2)
	}

	opts := sftpcore.SessionOptions{
		Host:             *host,
		Port:             *port,
		Username:         *user,
		Password:         *password,
		KnownHostsPolicy: sftpcore.KnownHostsAcceptNew,
	}

	backend := sshbackend.New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := backend.Connect(ctx, opts); err != nil {
		cancel()
		log.Fatalf("openscp-demo: connect: %v", err)
	}
	cancel()
	defer backend.Disconnect()

	provider := settings.StaticProvider{Depth: 64}

	mgr := transfermanager.New(backend, opts, overwritePrompt)
	mgr.SetLogger(log.Default())
	if err := mgr.SetMaxConcurrent(*maxConc); err != nil {
		log.Fatalf("openscp-demo: %v", err)
	}
	mgr.SetGlobalSpeedLimitKbps(*speedKbps)

	browser := remotemodel.New(backend)
	browser.SetLogger(log.Default())
	browser.SetSessionOptions(opts)
	if err := browser.Load(context.Background(), *remoteDir); err != nil {
		log.Printf("openscp-demo: initial listing of %q failed: %v", *remoteDir, err)
	}

	if *upload != "" && *uploadDest != "" {
		mgr.EnqueueUpload(*upload, *uploadDest)
	}
	if *dl != "" && *dlDest != "" {
		mgr.EnqueueDownload(*dl, *dlDest)
	}

	if *recurseFrom != "" && *recurseTo != "" {
		enqueueRecursiveDownload(backend, mgr, provider, *recurseFrom, *recurseTo, *includeGlob, *excludeGlob)
	}

	m := newDemoModel(mgr, browser)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("openscp-demo: %v", err)
	}

	mgr.Shutdown()
}

// enqueueRecursiveDownload walks remoteDir with remotemodel.EnumerateFilesUnder
// and enqueues one download per discovered file, mirroring the relative path
// under localDir. Denied subdirectories are logged and skipped, matching the
// walk's own partial-error semantics.
func enqueueRecursiveDownload(client sftpcore.Client, mgr *transfermanager.Manager, provider settings.Provider, remoteDir, localDir, includeGlob, excludeGlob string) {
	result, err := remotemodel.EnumerateFilesUnder(context.Background(), client, remoteDir, remotemodel.EnumerateOptions{
		SkipSymlinks: true,
		IncludeGlob:  includeGlob,
		ExcludeGlob:  excludeGlob,
		Logger:       log.Default(),
	}, provider)
	if err != nil {
		log.Printf("openscp-demo: enumerate %q: %v", remoteDir, err)
		return
	}
	if result.Counters.PartialError {
		log.Printf("openscp-demo: enumerate %q was partial: %d denied directories", remoteDir, result.Counters.DeniedDirs)
	}
	for _, f := range result.Files {
		mgr.EnqueueDownload(f.AbsPath, filepath.Join(localDir, filepath.FromSlash(f.RelPath)))
	}
}

// overwritePrompt is a non-interactive default for the demo binary: resume
// when the remote file is larger than the local copy, otherwise overwrite
// outright.
// A real frontend would route this through its own confirmation UI instead.
func overwritePrompt(_ string, local transfermanager.LocalInfo, remote transfermanager.RemoteInfo) transfermanager.OverwriteResponse {
	if remote.Exists && local.Exists && remote.Size > uint64(local.Size) {
		return transfermanager.Resume
	}
	return transfermanager.Overwrite
}
