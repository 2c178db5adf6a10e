package remotemodel

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
	"github.com/luiscuellar31/openscp-sub001/internal/settings"
)

// EnumeratedFile is one file discovered by EnumerateFilesUnder: its
// absolute remote path plus a sanitized path relative to the walk's
// base directory.
type EnumeratedFile struct {
	AbsPath string
	RelPath string
	Size    uint64
	HasSize bool
}

// EnumerateOptions controls the recursive walk. MaxDepth of zero means
// "use the configured/default depth" (see resolveMaxDepth).
type EnumerateOptions struct {
	SkipSymlinks bool
	ShowHidden   bool
	MaxDepth     int
	Cancel       sftpcore.CancelFunc

	// IncludeGlob/ExcludeGlob, when set, require a file's RelPath to
	// match IncludeGlob (doublestar syntax) and not match ExcludeGlob
	// to be emitted. Directories are always descended regardless of the
	// filters; only leaf files are subject to them.
	IncludeGlob string
	ExcludeGlob string

	// Logger receives depth-cap and denied-directory diagnostics; nil
	// keeps the walk silent.
	Logger *log.Logger
}

// EnumerateCounters tallies what the walk did, for diagnostics and for
// assertions in tests.
type EnumerateCounters struct {
	DirsVisited      int
	SymlinksSkipped  int
	DeniedDirs       int
	UnknownSizeFiles int
	PartialError     bool
}

// EnumerateResult is the outcome of EnumerateFilesUnder.
type EnumerateResult struct {
	Files    []EnumeratedFile
	Counters EnumerateCounters
}

func resolveMaxDepth(requested int, provider settings.Provider) int {
	if requested > 0 {
		return requested
	}
	if provider != nil {
		return provider.MaxFolderDepth()
	}
	return settings.DefaultMaxFolderDepth
}

// stripHostReserved is set on platforms whose filesystems reject the
// characters in hostReservedChars; sanitizeRelative drops them there so
// a RelPath can always be joined into a local destination path.
var stripHostReserved = runtime.GOOS == "windows"

const hostReservedChars = `<>:"|?*`

// sanitizeRelative drops control characters and platform-reserved
// characters, folds backslashes to forward slashes, drops "." segments,
// and rejects the whole path (empty string) if any segment is "..".
func sanitizeRelative(rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	var cleaned strings.Builder
	for _, r := range rel {
		if r < 0x20 {
			continue
		}
		if stripHostReserved && strings.ContainsRune(hostReservedChars, r) {
			continue
		}
		cleaned.WriteRune(r)
	}
	segments := strings.Split(cleaned.String(), "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || seg == "." {
			continue
		}
		if seg == ".." {
			return ""
		}
		out = append(out, seg)
	}
	return strings.Join(out, "/")
}

func matchesFilter(rel string, opts EnumerateOptions) bool {
	if opts.IncludeGlob != "" {
		ok, err := doublestar.Match(opts.IncludeGlob, rel)
		if err != nil || !ok {
			return false
		}
	}
	if opts.ExcludeGlob != "" {
		ok, err := doublestar.Match(opts.ExcludeGlob, rel)
		if err == nil && ok {
			return false
		}
	}
	return true
}

// EnumerateFilesUnder walks baseRemote recursively. It never aborts on
// a single directory's list failure; it records the failure in
// Counters and continues with siblings.
func EnumerateFilesUnder(ctx context.Context, client sftpcore.Client, baseRemote string, opts EnumerateOptions, provider settings.Provider) (EnumerateResult, error) {
	if client == nil {
		return EnumerateResult{}, fmt.Errorf("%w: enumeration requires a client", sftpcore.ErrInvalidArgument)
	}
	maxDepth := resolveMaxDepth(opts.MaxDepth, provider)
	base := normalize(baseRemote)

	w := &walker{
		ctx:      ctx,
		client:   client,
		opts:     opts,
		maxDepth: maxDepth,
		visited:  map[string]bool{},
	}
	w.walk(base, "", 1)

	return EnumerateResult{Files: w.files, Counters: w.counters}, nil
}

type walker struct {
	ctx      context.Context
	client   sftpcore.Client
	opts     EnumerateOptions
	maxDepth int
	visited  map[string]bool
	files    []EnumeratedFile
	counters EnumerateCounters
}

func (w *walker) canceled() bool {
	return w.opts.Cancel != nil && w.opts.Cancel()
}

func (w *walker) logf(format string, args ...any) {
	if w.opts.Logger != nil {
		w.opts.Logger.Printf(format, args...)
	}
}

// walk descends into cur (absolute, normalized path), whose path
// relative to the walk's base is rel, at the given depth (the base
// itself is depth 1).
func (w *walker) walk(cur, rel string, depth int) {
	if w.canceled() {
		return
	}
	if w.visited[cur] {
		return // cycle guard: already descended into this absolute path
	}
	w.visited[cur] = true

	if depth > w.maxDepth {
		w.logf("depth cap %d reached at %s, not descending", w.maxDepth, cur)
		return
	}

	entries, err := w.client.List(w.ctx, cur)
	if err != nil {
		w.logf("listing %s failed, continuing with siblings: %v", cur, err)
		w.counters.DeniedDirs++
		w.counters.PartialError = true
		return
	}
	w.counters.DirsVisited++

	for _, e := range entries {
		if w.canceled() {
			return
		}
		if !w.opts.ShowHidden && strings.HasPrefix(e.Name, ".") {
			continue
		}

		childAbs := joinRemote(cur, e.Name)
		childRel := sanitizeRelative(joinRel(rel, e.Name))
		if childRel == "" {
			continue
		}

		if e.Mode.IsSymlink() {
			if w.opts.SkipSymlinks {
				w.counters.SymlinksSkipped++
				continue
			}
		}

		if e.IsDir {
			w.walk(normalize(childAbs), childRel, depth+1)
			continue
		}

		if !matchesFilter(childRel, w.opts) {
			continue
		}
		if !e.HasSize {
			w.counters.UnknownSizeFiles++
		}
		w.files = append(w.files, EnumeratedFile{
			AbsPath: childAbs,
			RelPath: childRel,
			Size:    e.Size,
			HasSize: e.HasSize,
		})
	}
}

func joinRemote(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func joinRel(rel, name string) string {
	if rel == "" {
		return name
	}
	return rel + "/" + name
}
