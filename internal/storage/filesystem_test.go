package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T) *Filesystem {
	t.Helper()
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestFilesystemRoundTrip(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0x02}
	ref, err := fs.Store(ctx, data, "photo.png")
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	got, err := fs.Retrieve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFilesystemSameNameNeverCollides(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	ref1, err := fs.Store(ctx, []byte("first"), "photo.png")
	require.NoError(t, err)
	ref2, err := fs.Store(ctx, []byte("second"), "photo.png")
	require.NoError(t, err)

	assert.NotEqual(t, ref1, ref2)

	got1, err := fs.Retrieve(ctx, ref1)
	require.NoError(t, err)
	got2, err := fs.Retrieve(ctx, ref2)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got1)
	assert.Equal(t, []byte("second"), got2)
}

func TestFilesystemNotFound(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	_, err := fs.Retrieve(ctx, "no-such-ref")
	assert.ErrorIs(t, err, ErrNotFound)

	err = fs.Delete(ctx, "no-such-ref")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemDelete(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	ref, err := fs.Store(ctx, []byte("bytes"), "x.jpg")
	require.NoError(t, err)

	require.NoError(t, fs.Delete(ctx, ref))

	_, err = fs.Retrieve(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)
	// Double delete reports NotFound, same as the other backends.
	assert.ErrorIs(t, fs.Delete(ctx, ref), ErrNotFound)
}

func TestFilesystemSanitizesHostileNames(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	ref, err := fs.Store(ctx, []byte("data"), "../../etc/passwd")
	require.NoError(t, err)
	// The reference never contains path traversal.
	assert.NotContains(t, ref, "..")

	got, err := fs.Retrieve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "passwd", sanitizeName("/etc/passwd"))
	assert.Equal(t, "unnamed", sanitizeName(""))
	assert.Equal(t, "unnamed", sanitizeName(".."))
	assert.Equal(t, "a.png", sanitizeName("a.png"))
}
