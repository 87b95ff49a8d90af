package uploader

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/bstardust/photo-meta/internal/config"
	"github.com/bstardust/photo-meta/internal/metadata"
	"github.com/bstardust/photo-meta/internal/testutil"
	"github.com/bstardust/photo-meta/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

// MockStore is a mock object store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, meta map[string]string) error {
	// drain so retries see a fresh reader each time
	_, _ = io.Copy(io.Discard, reader)
	args := m.Called(ctx, key, size, contentType, meta)
	return args.Error(0)
}

func (m *MockStore) URL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func testConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Timeout:        5 * time.Second,
	}
}

func newTestUploader(store storage.Store) *Uploader {
	u := New(store, testConfig())
	u.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	u.newID = func() string { return "0b5a1c62-5d1e-4c0e-9d44-1a3f3c1e9b20" }
	return u
}

func TestPersist(t *testing.T) {
	store := new(MockStore)
	u := newTestUploader(store)

	data := testutil.JPEG(16, 16, testutil.EXIF{})
	lat := 40.5
	rec := metadata.Record{Latitude: &lat}

	const key = "2024/03/0b5a1c62-5d1e-4c0e-9d44-1a3f3c1e9b20.jpg"
	store.On("Put", mock.Anything, key, int64(len(data)), "image/jpeg",
		mock.MatchedBy(func(meta map[string]string) bool {
			return meta["source"] == Source &&
				meta["geo-latitude"] == "40.500000" &&
				meta["average-hash"] != "" &&
				meta["difference-hash"] != ""
		}),
	).Return(nil).Once()
	store.On("URL", mock.Anything, key).Return("https://cdn.example.com/photos/"+key, nil)

	url, err := u.Persist(context.Background(), data, rec)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photos/"+key, url)
	store.AssertExpectations(t)
}

func TestPersist_DefaultKey(t *testing.T) {
	store := new(MockStore)
	u := New(store, testConfig())

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("URL", mock.Anything, mock.Anything).Return("u", nil)

	_, err := u.Persist(context.Background(), []byte("not a jpeg"), metadata.Record{})
	require.NoError(t, err)

	key := store.Calls[0].Arguments.String(1)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}/\d{2}/[0-9a-f-]{36}\.jpg$`), key)

	meta := store.Calls[0].Arguments.Get(4).(map[string]string)
	assert.NotContains(t, meta, "average-hash", "undecodable bodies carry no hashes")
}

func TestPersist_RetriesTransientErrors(t *testing.T) {
	store := new(MockStore)
	u := newTestUploader(store)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset by peer")).Once()
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()
	store.On("URL", mock.Anything, mock.Anything).Return("u", nil)

	url, err := u.Persist(context.Background(), []byte("x"), metadata.Record{})
	require.NoError(t, err)
	assert.Equal(t, "u", url)
	store.AssertNumberOfCalls(t, "Put", 2)
}

func TestPersist_GivesUp(t *testing.T) {
	store := new(MockStore)
	u := newTestUploader(store)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("503 ServiceUnavailable"))

	_, err := u.Persist(context.Background(), []byte("x"), metadata.Record{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	store.AssertNumberOfCalls(t, "Put", 3)
	store.AssertNotCalled(t, "URL", mock.Anything, mock.Anything)
}

func TestPersist_AuthErrorNotRetried(t *testing.T) {
	store := new(MockStore)
	u := newTestUploader(store)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("Access Denied (connection closed)"))

	_, err := u.Persist(context.Background(), []byte("x"), metadata.Record{})
	require.Error(t, err)
	store.AssertNumberOfCalls(t, "Put", 1)
}

func TestPersist_URLError(t *testing.T) {
	const key = "2024/03/0b5a1c62-5d1e-4c0e-9d44-1a3f3c1e9b20.jpg"

	tests := []struct {
		name      string
		deleteErr error
	}{
		{name: "object removed", deleteErr: nil},
		{name: "object already gone", deleteErr: awserr.New("NoSuchKey", "The specified key does not exist.", nil)},
		{name: "removal fails", deleteErr: errors.New("Access Denied")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			u := newTestUploader(store)

			store.On("Put", mock.Anything, key, mock.Anything, mock.Anything, mock.Anything).Return(nil)
			store.On("URL", mock.Anything, key).Return("", errors.New("signing failed"))
			store.On("Delete", mock.Anything, key).Return(tt.deleteErr).Once()

			_, err := u.Persist(context.Background(), []byte("x"), metadata.Record{})
			assert.ErrorContains(t, err, "failed to resolve URL")
			assert.ErrorContains(t, err, "signing failed")
			store.AssertCalled(t, "Delete", mock.Anything, key)
		})
	}
}

func TestPersist_URLErrorAfterTimeout(t *testing.T) {
	store := new(MockStore)
	u := newTestUploader(store)

	ctx, cancel := context.WithCancel(context.Background())
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("URL", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return("", context.Canceled)
	store.On("Delete", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).Return(nil).Once()

	_, err := u.Persist(ctx, []byte("x"), metadata.Record{})
	assert.ErrorIs(t, err, context.Canceled)
	store.AssertExpectations(t)
}

func TestPersist_BlobStore(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	store := storage.NewBlobWithBucket(bucket, storage.Config{BlobURL: "mem://", Prefix: "photos"})
	defer store.Close()

	u := newTestUploader(store)
	data := testutil.JPEG(8, 8, testutil.EXIF{})
	model := "X100V"

	url, err := u.Persist(ctx, data, metadata.Record{Model: &model})
	require.NoError(t, err)
	assert.Equal(t, "mem://photos/2024/03/0b5a1c62-5d1e-4c0e-9d44-1a3f3c1e9b20.jpg", url)

	attrs, err := bucket.Attributes(ctx, "photos/2024/03/0b5a1c62-5d1e-4c0e-9d44-1a3f3c1e9b20.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", attrs.ContentType)
	assert.Equal(t, "X100V", attrs.Metadata["camera-model"])
	assert.Equal(t, Source, attrs.Metadata["source"])
}
