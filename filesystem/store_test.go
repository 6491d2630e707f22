package filesystem_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedock/filedock"
	"github.com/filedock/filedock/filesystem"
)

func newTestStore(t *testing.T) *filesystem.Store {
	t.Helper()

	root, err := os.OpenRoot(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	return filesystem.NewStore(root)
}

func TestStoreWriteGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	content := "hello filedock"
	result, err := store.Write(ctx, "user-1/a.txt", strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), result.BytesWritten)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), result.Etag)

	r, err := store.Get(ctx, "user-1/a.txt")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestStoreWriteNestedKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Write(ctx, "user-1/photos/2025/b.jpg", strings.NewReader("bytes"))
	require.NoError(t, err)

	info, err := store.Stat(ctx, "user-1/photos/2025/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
}

func TestStoreWriteOverwrite(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Write(ctx, "a.txt", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = store.Write(ctx, "a.txt", strings.NewReader("second"))
	require.NoError(t, err)

	r, err := store.Get(ctx, "a.txt")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, filedock.ErrNotFound)
}

func TestStoreStatMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Stat(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, filedock.ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Write(ctx, "a.txt", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "a.txt"))

	_, err = store.Get(ctx, "a.txt")
	assert.ErrorIs(t, err, filedock.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "a.txt"), filedock.ErrNotFound)
}

func TestStoreListBlobs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Write(ctx, "user-1/a.txt", strings.NewReader("aa"))
	require.NoError(t, err)
	_, err = store.Write(ctx, "user-2/docs/b.txt", strings.NewReader("bbb"))
	require.NoError(t, err)

	blobs, err := store.ListBlobs(ctx)
	require.NoError(t, err)
	require.Len(t, blobs, 2)

	keys := map[string]int64{}
	for _, b := range blobs {
		keys[b.Key] = b.Size
		assert.False(t, b.ModTime.IsZero())
	}
	assert.Equal(t, int64(2), keys["user-1/a.txt"])
	assert.Equal(t, int64(3), keys["user-2/docs/b.txt"])
}

func TestStoreListBlobsEmpty(t *testing.T) {
	store := newTestStore(t)

	blobs, err := store.ListBlobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestStoreWriteCancelledContext(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Write(ctx, "a.txt", strings.NewReader("x"))
	assert.Error(t, err)

	_, statErr := store.Stat(context.Background(), "a.txt")
	assert.ErrorIs(t, statErr, filedock.ErrNotFound)
}

func TestStoreSandbox(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "../outside.txt")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, filedock.ErrNotFound)
}
