package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	celerrors "github.com/celestio/celestio/internal/errors"
)

// objectServer is a minimal in-memory HTTP object store for tests
type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	hits    int
}

func (o *objectServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits++

	switch r.Method {
	case http.MethodHead, http.MethodGet:
		data, ok := o.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		o.objects[r.URL.Path] = data
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newRemoteTest(t *testing.T, handler http.Handler) (*Remote, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewRemote(RemoteConfig{
		Endpoint:   srv.URL,
		Bucket:     "celestial",
		Prefix:     "ephemeris/",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	return s, srv
}

func TestRemoteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := &objectServer{objects: make(map[string][]byte)}
	s, _ := newRemoteTest(t, backend)

	exists, err := s.Exists(ctx, "de440s.bsp")
	require.NoError(t, err)
	assert.False(t, exists)

	payload := []byte("binary ephemeris data")
	require.NoError(t, s.Put(ctx, "de440s.bsp", payload))

	exists, err = s.Exists(ctx, "de440s.bsp")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.Get(ctx, "de440s.bsp")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestRemoteStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	backend := &objectServer{objects: make(map[string][]byte)}
	s, _ := newRemoteTest(t, backend)

	_, err := s.Get(ctx, "missing.bsp")
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeNotFound))
}

func TestRemoteStoreRetriesServerErrors(t *testing.T) {
	ctx := context.Background()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	})
	s, _ := newRemoteTest(t, handler)

	got, err := s.Get(ctx, "flaky.bsp")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), got)
	assert.Equal(t, 3, calls)
}

func TestRemoteStoreDoesNotRetryClientErrors(t *testing.T) {
	ctx := context.Background()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	})
	s, _ := newRemoteTest(t, handler)

	err := s.Put(ctx, "denied.bsp", []byte("x"))
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeStoreUnavailable))
	assert.Equal(t, 1, calls)
}

func TestRemoteStoreExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})
	s, _ := newRemoteTest(t, handler)

	_, err := s.Get(ctx, "down.bsp")
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeStoreUnavailable))
	assert.Equal(t, 3, calls) // initial attempt plus MaxRetries
}

func TestRemoteStoreRequiresEndpointAndBucket(t *testing.T) {
	_, err := NewRemote(RemoteConfig{Bucket: "b"}, nil)
	assert.Error(t, err)

	_, err = NewRemote(RemoteConfig{Endpoint: "http://example.com"}, nil)
	assert.Error(t, err)
}
