package remotemodel

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore/mock"
)

func connectedMock(t *testing.T) *mock.Client {
	t.Helper()
	c := mock.New()
	require.NoError(t, c.Connect(context.Background(), sftpcore.SessionOptions{Host: "h", Username: "u"}))
	return c
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"  ":       "/",
		"/":        "/",
		"home":     "/home",
		"/home/":   "/home",
		"/home///": "/home",
		" /home ":  "/home",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalize(in), "normalize(%q)", in)
	}
}

func TestLoadFiltersHiddenAndSorts(t *testing.T) {
	c := connectedMock(t)
	m := New(c)

	require.NoError(t, m.Load(context.Background(), "/home"))
	items := m.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "guest", items[0].Name)
	assert.True(t, items[0].IsDir)
	assert.Equal(t, "luis", items[1].Name)
	assert.Equal(t, "notes.md", items[2].Name)
	assert.Equal(t, "/home", m.CurrentPath())
}

func TestLoadUnknownPathReportsError(t *testing.T) {
	c := connectedMock(t)
	m := New(c)

	var got LoadResult
	m.OnLoaded = func(r LoadResult) { got = r }

	err := m.Load(context.Background(), "/does-not-exist")
	require.Error(t, err)
	assert.False(t, got.OK)
	assert.Equal(t, "/does-not-exist", got.Path)
}

func TestLoadAsyncRequiresSessionOptions(t *testing.T) {
	c := connectedMock(t)
	m := New(c)
	err := m.LoadAsync(context.Background(), "/home")
	assert.ErrorIs(t, err, sftpcore.ErrInvalidArgument)
}

func TestLoadAsyncDeliversResult(t *testing.T) {
	c := connectedMock(t)
	m := New(c)
	m.SetSessionOptions(sftpcore.SessionOptions{Host: "h", Username: "u"})

	done := make(chan LoadResult, 1)
	m.OnLoaded = func(r LoadResult) { done <- r }

	require.NoError(t, m.LoadAsync(context.Background(), "/home"))
	res := <-done
	assert.True(t, res.OK)
	assert.Equal(t, "/home", res.Path)
	assert.Len(t, m.Items(), 3)
}

// gatedClient holds a listing of gatePath open until release is closed,
// so a test can guarantee a superseding request lands while the first
// one is still in flight.
type gatedClient struct {
	sftpcore.Client
	gatePath string
	entered  chan struct{}
	release  chan struct{}
}

func (g *gatedClient) List(ctx context.Context, p string) ([]sftpcore.FileInfo, error) {
	if p == g.gatePath {
		close(g.entered)
		<-g.release
	}
	return g.Client.List(ctx, p)
}

func (g *gatedClient) NewConnectionLike(context.Context, sftpcore.SessionOptions) (sftpcore.Client, error) {
	return g, nil
}

func TestLoadAsyncDiscardsStaleResult(t *testing.T) {
	g := &gatedClient{
		Client:   connectedMock(t),
		gatePath: "/home",
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	m := New(g)
	m.SetLogger(log.New(io.Discard, "", 0))
	m.SetSessionOptions(sftpcore.SessionOptions{Host: "h", Username: "u"})

	results := make(chan LoadResult, 2)
	m.OnLoaded = func(r LoadResult) { results <- r }

	require.NoError(t, m.LoadAsync(context.Background(), "/home"))
	<-g.entered // the /home listing is mid-flight and held open

	// A second, newer request supersedes it; the held result carries a
	// seq id the loader discards on arrival, so only the newest request
	// ever reaches OnLoaded.
	require.NoError(t, m.LoadAsync(context.Background(), "/var"))
	got := <-results
	assert.Equal(t, "/var", got.Path)
	assert.Equal(t, "/var", m.CurrentPath())

	close(g.release)
	select {
	case stale := <-results:
		t.Fatalf("stale result for %s was delivered", stale.Path)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, "/var", m.CurrentPath())
}

func TestSortDirectoriesAlwaysFirstRegardlessOfOrder(t *testing.T) {
	items := []Item{
		{Name: "zeta.txt", IsDir: false},
		{Name: "alpha", IsDir: true},
	}
	sortItems(items, SortByName, Descending)
	assert.True(t, items[0].IsDir)
	assert.Equal(t, "alpha", items[0].Name)
}

func TestSortByNameCaseInsensitive(t *testing.T) {
	items := []Item{
		{Name: "Banana", IsDir: false},
		{Name: "apple", IsDir: false},
	}
	sortItems(items, SortByName, Ascending)
	assert.Equal(t, "apple", items[0].Name)
	assert.Equal(t, "Banana", items[1].Name)
}

func TestSortBySizeDescending(t *testing.T) {
	items := []Item{
		{Name: "a", Size: 10},
		{Name: "b", Size: 100},
	}
	sortItems(items, SortBySize, Descending)
	assert.Equal(t, "b", items[0].Name)
}
