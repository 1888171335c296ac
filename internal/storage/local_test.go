package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	content := []byte("%PDF-1.4 fake document body")
	key := PDFObjectKey(1, 42, "report.pdf")

	err = store.Upload(ctx, key, bytes.NewReader(content), int64(len(content)), "application/pdf")
	require.NoError(t, err)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	reader, err := store.Download(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLocalStorageDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := PDFObjectKey(2, 7, "notes.pdf")
	err = store.Upload(ctx, key, bytes.NewReader([]byte("data")), 4, "application/pdf")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	// 删除不存在的对象不报错
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	err = store.Upload(ctx, "../escape.txt", bytes.NewReader([]byte("x")), 1, "text/plain")
	assert.Error(t, err)

	_, err = store.Download(ctx, "/etc/passwd")
	assert.Error(t, err)
}
