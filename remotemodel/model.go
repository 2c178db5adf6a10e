// Package remotemodel holds the current remote directory listing
// presented to a caller: path normalization, synchronous/asynchronous
// loads with stale-response discarding, the directories-first sort
// comparator, and recursive enumeration for drag-out style transfers.
package remotemodel

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/text/cases"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

// SortColumn selects the tie-break key used after the directories-first
// partition.
type SortColumn int

const (
	SortByName SortColumn = iota
	SortBySize
	SortByMtime
	SortByMode
)

// SortOrder is ascending or descending; it never reverses the
// directory/file partition, only the tie-break comparison.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// Item is a FileInfo plus the hidden/filter decision already applied
// when it was admitted into the current listing.
type Item struct {
	Name    string
	IsDir   bool
	Size    uint64
	HasSize bool
	Mtime   uint64
	Mode    sftpcore.FileMode
	UID     uint32
	GID     uint32
}

// LoadResult is delivered to OnLoaded after either load path completes.
type LoadResult struct {
	Path string
	OK   bool
	Err  error
}

// Model owns the current listing. It is safe for concurrent use: the
// async loader runs on its own goroutine and posts back through a
// mutex-guarded swap.
type Model struct {
	mu          sync.Mutex
	items       []Item
	currentPath string
	showHidden  bool
	sortCol     SortColumn
	sortOrder   SortOrder

	client  sftpcore.Client
	sessOpt *sftpcore.SessionOptions
	logger  *log.Logger

	// requestSeq is bumped before every load (sync or async) and lets a
	// late-arriving async result recognize it has been superseded.
	requestSeq atomic.Int64

	// OnLoaded, if set, is invoked after every completed load: from the
	// caller's own goroutine for the synchronous path, from an
	// internally spawned goroutine for the asynchronous one. Callers
	// that need UI-thread delivery must hop themselves.
	OnLoaded func(LoadResult)
}

// New returns a Model bound to client for synchronous loads. Call
// SetSessionOptions before using LoadAsync.
func New(client sftpcore.Client) *Model {
	return &Model{
		client:  client,
		sortCol: SortByName,
		logger:  log.New(os.Stderr, "remotemodel: ", log.LstdFlags),
	}
}

// SetLogger redirects the model's diagnostic output (discarded stale
// async results). A nil logger is ignored.
func (m *Model) SetLogger(logger *log.Logger) {
	if logger == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

func (m *Model) logf(format string, args ...any) {
	m.mu.Lock()
	logger := m.logger
	m.mu.Unlock()
	logger.Printf(format, args...)
}

// SetSessionOptions stores the credentials LoadAsync uses to open an
// isolated session via NewConnectionLike.
func (m *Model) SetSessionOptions(opts sftpcore.SessionOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := opts
	m.sessOpt = &o
}

// SetShowHidden and SetSort mutate display preferences applied to the
// *next* load; they do not re-sort or re-filter the current items.
func (m *Model) SetShowHidden(show bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showHidden = show
}

func (m *Model) SetSort(col SortColumn, order SortOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sortCol = col
	m.sortOrder = order
}

// CurrentPath and Items expose the last successfully replaced listing.
func (m *Model) CurrentPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentPath
}

func (m *Model) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// normalize applies path normalization: trim, default to "/", ensure a
// leading slash, drop any trailing slash except on the root itself.
func normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// snapshot is the immutable view of display preferences captured
// before a request is launched, so a concurrent SetShowHidden/SetSort
// call cannot change the filter or ordering applied to an in-flight
// request.
type snapshot struct {
	showHidden bool
	sortCol    SortColumn
	sortOrder  SortOrder
}

func (m *Model) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot{showHidden: m.showHidden, sortCol: m.sortCol, sortOrder: m.sortOrder}
}

func toItems(files []sftpcore.FileInfo, snap snapshot) []Item {
	items := make([]Item, 0, len(files))
	for _, f := range files {
		if !snap.showHidden && strings.HasPrefix(f.Name, ".") {
			continue
		}
		items = append(items, Item{
			Name: f.Name, IsDir: f.IsDir, Size: f.Size, HasSize: f.HasSize,
			Mtime: f.Mtime, Mode: f.Mode, UID: f.UID, GID: f.GID,
		})
	}
	sortItems(items, snap.sortCol, snap.sortOrder)
	return items
}

func (m *Model) replace(items []Item, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
	m.currentPath = path
}

func (m *Model) emit(res LoadResult) {
	if m.OnLoaded != nil {
		m.OnLoaded(res)
	}
}

// Load performs a synchronous listing of path on the caller's own
// client and goroutine.
func (m *Model) Load(ctx context.Context, path string) error {
	m.requestSeq.Add(1)
	normalized := normalize(path)
	snap := m.snapshot()

	if m.client == nil {
		err := fmt.Errorf("%w: remote model has no client", sftpcore.ErrInvalidArgument)
		m.emit(LoadResult{Path: normalized, OK: false, Err: err})
		return err
	}

	files, err := m.client.List(ctx, normalized)
	if err != nil {
		m.emit(LoadResult{Path: normalized, OK: false, Err: err})
		return err
	}

	m.replace(toItems(files, snap), normalized)
	m.emit(LoadResult{Path: normalized, OK: true})
	return nil
}

// LoadAsync mirrors Load but opens an isolated session via
// NewConnectionLike on a background goroutine and disconnects it
// before posting the result back through OnLoaded. A result that
// arrives after a newer request was launched is discarded.
func (m *Model) LoadAsync(ctx context.Context, path string) error {
	m.mu.Lock()
	opts := m.sessOpt
	m.mu.Unlock()
	if opts == nil {
		return fmt.Errorf("%w: no session options stored for async load", sftpcore.ErrInvalidArgument)
	}
	if m.client == nil {
		return fmt.Errorf("%w: remote model has no client", sftpcore.ErrInvalidArgument)
	}

	reqID := m.requestSeq.Add(1)
	normalized := normalize(path)
	snap := m.snapshot()
	baseClient := m.client
	optsCopy := *opts

	go func() {
		listClient, err := baseClient.NewConnectionLike(ctx, optsCopy)
		if err != nil {
			if reqID == m.requestSeq.Load() {
				m.emit(LoadResult{Path: normalized, OK: false, Err: err})
			}
			return
		}
		defer listClient.Disconnect()

		files, err := listClient.List(ctx, normalized)
		if reqID != m.requestSeq.Load() {
			m.logf("dropping stale listing of %s (request %d superseded)", normalized, reqID)
			return
		}
		if err != nil {
			m.emit(LoadResult{Path: normalized, OK: false, Err: err})
			return
		}
		m.replace(toItems(files, snap), normalized)
		m.emit(LoadResult{Path: normalized, OK: true})
	}()
	return nil
}

// sortItems implements the directory listing comparator: directories
// always precede files regardless of order; order only inverts the
// secondary key comparison.
func sortItems(items []Item, col SortColumn, order SortOrder) {
	asc := order == Ascending
	// cases.Caser carries internal buffers, so each sort gets its own
	// rather than sharing one across concurrently completing loads.
	fold := cases.Fold()
	lessName := func(a, b string) bool {
		cmp := strings.Compare(fold.String(a), fold.String(b))
		if asc {
			return cmp < 0
		}
		return cmp > 0
	}
	lessNum := func(a, b uint64) bool {
		if asc {
			return a < b
		}
		return a > b
	}
	less := func(i, j Item) bool {
		if i.IsDir != j.IsDir {
			return i.IsDir && !j.IsDir
		}
		switch col {
		case SortBySize:
			return lessNum(i.Size, j.Size)
		case SortByMtime:
			return lessNum(i.Mtime, j.Mtime)
		case SortByMode:
			return lessNum(uint64(i.Mode), uint64(j.Mode))
		default:
			return lessName(i.Name, j.Name)
		}
	}
	insertionSort(items, less)
}

// insertionSort is stable and fine for directory listing sizes; avoids
// pulling in sort.Slice's reflection-based closure path for a
// comparator this simple.
func insertionSort(items []Item, less func(a, b Item) bool) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
