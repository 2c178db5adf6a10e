// Package mock provides an in-memory Client implementation used for
// tests and offline development. Listing works against a fixed seed
// tree; every mutating and transfer operation reports unsupported so
// error wiring can be asserted.
package mock

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

// entry is one seeded directory member.
type entry struct {
	name  string
	isDir bool
	size  uint64
}

func seedTree() map[string][]entry {
	return map[string][]entry{
		"/": {
			{"home", true, 0},
			{"var", true, 0},
			{"readme.txt", false, 1280},
		},
		"/home": {
			{"luis", true, 0},
			{"guest", true, 0},
			{"notes.md", false, 2048},
		},
		"/home/luis": {
			{"proyectos", true, 0},
			{"foto.jpg", false, 34567},
		},
		"/var": {
			{"log", true, 0},
		},
	}
}

// Client is the mock SftpClient. The zero value is not usable; use New.
type Client struct {
	mu        sync.Mutex
	connected bool
	tree      map[string][]entry
	lastOpts  sftpcore.SessionOptions
}

// New returns a fresh, disconnected mock rooted at the standard seed
// tree (/, /home, /home/luis, /var).
func New() *Client {
	return &Client{tree: seedTree()}
}

var _ sftpcore.Client = (*Client)(nil)

func unsupported(op string) error {
	return fmt.Errorf("%w: %s is not supported by the mock client", sftpcore.ErrUnsupported, op)
}

func (c *Client) Connect(_ context.Context, opts sftpcore.SessionOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.lastOpts = opts
	return nil
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

func (c *Client) List(_ context.Context, dirPath string) ([]sftpcore.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, sftpcore.ErrNotConnected
	}

	key := normalize(dirPath)
	entries, ok := c.tree[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sftpcore.ErrNotFound, dirPath)
	}

	out := make([]sftpcore.FileInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, sftpcore.FileInfo{
			Name:    e.name,
			IsDir:   e.isDir,
			Size:    e.size,
			HasSize: !e.isDir,
		})
	}
	// Deterministic directories-first, name-ascending order, so
	// callers that skip the remote model's own sort still see a stable
	// order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (c *Client) find(p string) (entry, bool) {
	p = normalize(p)
	if p == "/" {
		return entry{name: "/", isDir: true}, true
	}
	dir := path.Dir(p)
	base := path.Base(p)
	for _, e := range c.tree[dir] {
		if e.name == base {
			return e, true
		}
	}
	return entry{}, false
}

func (c *Client) Stat(_ context.Context, p string) (sftpcore.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return sftpcore.FileInfo{}, sftpcore.ErrNotConnected
	}
	e, ok := c.find(p)
	if !ok {
		return sftpcore.FileInfo{}, fmt.Errorf("%w: %s", sftpcore.ErrNotFound, p)
	}
	return sftpcore.FileInfo{Name: e.name, IsDir: e.isDir, Size: e.size, HasSize: !e.isDir}, nil
}

func (c *Client) Exists(_ context.Context, p string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return false, false, sftpcore.ErrNotConnected
	}
	e, ok := c.find(p)
	if !ok {
		return false, false, nil
	}
	return true, e.isDir, nil
}

func (c *Client) Get(context.Context, string, string, sftpcore.ProgressFunc, sftpcore.CancelFunc, bool) error {
	return unsupported("get")
}

func (c *Client) Put(context.Context, string, string, sftpcore.ProgressFunc, sftpcore.CancelFunc, bool) error {
	return unsupported("put")
}

func (c *Client) Mkdir(context.Context, string, sftpcore.FileMode) error { return unsupported("mkdir") }
func (c *Client) RemoveFile(context.Context, string) error               { return unsupported("remove_file") }
func (c *Client) RemoveDir(context.Context, string) error                { return unsupported("remove_dir") }
func (c *Client) Rename(context.Context, string, string, bool) error     { return unsupported("rename") }
func (c *Client) Chmod(context.Context, string, sftpcore.FileMode) error { return unsupported("chmod") }
func (c *Client) Chown(context.Context, string, uint32, uint32) error    { return unsupported("chown") }

// SetTimes is a no-op success.
func (c *Client) SetTimes(context.Context, string, uint64, uint64) error { return nil }

// NewConnectionLike allocates a fresh mock and connects it.
func (c *Client) NewConnectionLike(ctx context.Context, opts sftpcore.SessionOptions) (sftpcore.Client, error) {
	fresh := New()
	if err := fresh.Connect(ctx, opts); err != nil {
		return nil, err
	}
	return fresh, nil
}
