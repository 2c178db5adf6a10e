package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luiscuellar31/openscp-sub001/internal/sftpcore"
)

func TestSessionDefaults(t *testing.T) {
	var o sftpcore.SessionOptions
	assert.Equal(t, 22, o.EffectivePort())
	assert.Equal(t, sftpcore.KnownHostsStrict, o.KnownHostsPolicy)
	assert.Empty(t, o.Password)
}

func TestConnectValidation(t *testing.T) {
	ctx := context.Background()

	c := New()
	err := c.Connect(ctx, sftpcore.SessionOptions{Host: "", Username: "u"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sftpcore.ErrInvalidArgument))
	assert.False(t, c.IsConnected())

	c2 := New()
	require.NoError(t, c2.Connect(ctx, sftpcore.SessionOptions{Host: "example.test", Username: "alice"}))
	assert.True(t, c2.IsConnected())
}

func TestListKnownPaths(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.NoError(t, c.Connect(ctx, sftpcore.SessionOptions{Host: "h", Username: "u"}))

	home, err := c.List(ctx, "/home")
	require.NoError(t, err)
	require.Len(t, home, 3)
	assert.Equal(t, "guest", home[0].Name)
	assert.True(t, home[0].IsDir)
	assert.Equal(t, "luis", home[1].Name)
	assert.True(t, home[1].IsDir)
	assert.Equal(t, "notes.md", home[2].Name)
	assert.False(t, home[2].IsDir)

	empty, err := c.List(ctx, "")
	require.NoError(t, err)
	root, err := c.List(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, root, empty)

	_, err = c.List(ctx, "/does-not-exist")
	require.Error(t, err)
	assert.NotEmpty(t, err.Error())
}

func TestListRequiresConnection(t *testing.T) {
	c := New()
	_, err := c.List(context.Background(), "/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sftpcore.ErrNotConnected))
}

func TestMutatingOpsUnsupported(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.NoError(t, c.Connect(ctx, sftpcore.SessionOptions{Host: "h", Username: "u"}))

	assert.True(t, errors.Is(c.Mkdir(ctx, "/x", 0o755), sftpcore.ErrUnsupported))
	assert.True(t, errors.Is(c.RemoveFile(ctx, "/x"), sftpcore.ErrUnsupported))
	assert.True(t, errors.Is(c.RemoveDir(ctx, "/x"), sftpcore.ErrUnsupported))
	assert.True(t, errors.Is(c.Rename(ctx, "/a", "/b", true), sftpcore.ErrUnsupported))
	assert.True(t, errors.Is(c.Chmod(ctx, "/x", 0o644), sftpcore.ErrUnsupported))
	assert.True(t, errors.Is(c.Chown(ctx, "/x", 1000, 1000), sftpcore.ErrUnsupported))
	assert.True(t, errors.Is(c.Get(ctx, "/r", "/l", nil, nil, false), sftpcore.ErrUnsupported))
	assert.True(t, errors.Is(c.Put(ctx, "/l", "/r", nil, nil, false), sftpcore.ErrUnsupported))
	assert.NoError(t, c.SetTimes(ctx, "/x", 0, 0))
}

func TestNewConnectionLikeConnectsFreshMock(t *testing.T) {
	ctx := context.Background()
	c := New()
	opts := sftpcore.SessionOptions{Host: "h", Username: "u"}
	require.NoError(t, c.Connect(ctx, opts))

	other, err := c.NewConnectionLike(ctx, opts)
	require.NoError(t, err)
	assert.True(t, other.IsConnected())
	assert.NotSame(t, c, other)
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.NoError(t, c.Connect(ctx, sftpcore.SessionOptions{Host: "h", Username: "u"}))

	exists, isDir, err := c.Exists(ctx, "/home")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, isDir)

	exists, _, err = c.Exists(ctx, "/nope")
	require.NoError(t, err)
	assert.False(t, exists)
}
