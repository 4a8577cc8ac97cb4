package storage

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactKey(t *testing.T) {
	id := uuid.MustParse("3f2c1b4e-0000-4000-8000-000000000001")
	assert.Equal(t, "analyses/3f/3f2c1b4e-0000-4000-8000-000000000001/analysis.json", ArtifactKey(id, "analysis.json"))
	assert.Equal(t, "analyses/3f/3f2c1b4e-0000-4000-8000-000000000001/.._x", ArtifactKey(id, "../x"))
}

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := ArtifactKey(uuid.New(), "analysis.json")
	uri, err := s.Put(t.Context(), key, strings.NewReader(`{"ok":true}`), "application/json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.True(t, strings.HasSuffix(uri, key))

	rc, err := s.Get(t.Context(), key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))

	require.NoError(t, s.Delete(t.Context(), key))
	require.NoError(t, s.Delete(t.Context(), key), "deleting twice is fine")

	_, err = s.Get(t.Context(), key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../outside.json", "/etc/passwd", "a/../../b"} {
		_, err := s.Put(t.Context(), key, strings.NewReader("x"), "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNewStorageUnknownType(t *testing.T) {
	_, err := NewStorage(t.Context(), StorageConfig{Type: "ftp"})
	assert.Error(t, err)

	_, err = NewStorage(t.Context(), StorageConfig{Type: StorageTypeS3})
	assert.Error(t, err, "bucket is required")
}

func TestS3StoragePutAndMissingGet(t *testing.T) {
	var mu sync.Mutex
	var puts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			_, _ = io.Copy(io.Discard, r.Body)
			mu.Lock()
			puts = append(puts, r.URL.Path)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	s, err := NewS3Storage(t.Context(), StorageConfig{
		S3Bucket:     "artifacts",
		S3Region:     "us-east-1",
		S3Endpoint:   srv.URL,
		AWSAccessKey: "test",
		AWSSecretKey: "test",
	})
	require.NoError(t, err)

	uri, err := s.Put(t.Context(), "analyses/ab/job/analysis.json", bytes.NewReader([]byte(`{}`)), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "s3://artifacts/analyses/ab/job/analysis.json", uri)
	assert.Equal(t, []string{"/artifacts/analyses/ab/job/analysis.json"}, puts)

	_, err = s.Get(t.Context(), "analyses/ab/job/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}
