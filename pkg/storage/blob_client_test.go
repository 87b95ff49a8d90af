package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func TestBlobStore_RoundTrip(t *testing.T) {
	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)
	store := NewBlobWithBucket(bucket, Config{BlobURL: "mem://", Prefix: "photos"})
	defer store.Close()

	data := []byte("not really a jpeg")
	err := store.Put(ctx, "2024/05/a.jpg", bytes.NewReader(data), int64(len(data)), "image/jpeg", map[string]string{"source": "photo-meta"})
	require.NoError(t, err)

	attrs, err := bucket.Attributes(ctx, "photos/2024/05/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", attrs.ContentType)
	assert.Equal(t, "photo-meta", attrs.Metadata["source"])

	u, err := store.URL(ctx, "2024/05/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "mem://photos/2024/05/a.jpg", u)

	require.NoError(t, store.Delete(ctx, "2024/05/a.jpg"))
	ok, err := bucket.Exists(ctx, "photos/2024/05/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	err = store.Delete(ctx, "2024/05/a.jpg")
	assert.True(t, IsNotFoundError(err))
}

func TestBlobStore_FileURL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewBlob(ctx, Config{BlobURL: "file://" + dir + "?create_dir=true", PublicBaseURL: "https://img.example.com"})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "x.jpg", bytes.NewReader([]byte("x")), 1, "image/jpeg", nil))

	u, err := store.URL(ctx, "x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/x.jpg", u)
}

func TestNewBlob_Errors(t *testing.T) {
	_, err := NewBlob(context.Background(), Config{})
	assert.ErrorContains(t, err, "blob URL is required")

	_, err = NewBlob(context.Background(), Config{BlobURL: "nosuchscheme://bucket"})
	assert.Error(t, err)
}
