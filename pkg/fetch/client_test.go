package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDownloadWritesArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := New(zaptest.NewLogger(t), Opts{})
	dir := t.TempDir()
	path, err := c.Download(context.Background(), srv.URL+"/scrutins.json", dir)
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestDownloadServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(zaptest.NewLogger(t), Opts{})
	_, err := c.Download(context.Background(), srv.URL+"/x", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestProbePrefersETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
	}))
	defer srv.Close()

	c := New(zaptest.NewLogger(t), Opts{})
	fp, err := c.Probe(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `etag:"abc123"`, fp)
}

func TestProbeFallsBackToLastModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
	}))
	defer srv.Close()

	c := New(zaptest.NewLogger(t), Opts{})
	fp, err := c.Probe(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "mod:Mon, 02 Jan 2006 15:04:05 GMT", fp)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(zaptest.NewLogger(t), Opts{BreakerFailures: 2, BreakerCooldown: time.Minute})
	for i := 0; i < 5; i++ {
		_, err := c.Get(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrUnreachable)
	}
	// Two real attempts, then the breaker short-circuits.
	assert.Equal(t, int32(2), hits.Load())
}
