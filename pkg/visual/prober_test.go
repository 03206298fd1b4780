package visual

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpnow/pkg/db"
	"helpnow/pkg/request"
	"helpnow/pkg/store"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func imageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/html":
			_, _ = w.Write([]byte("<html><body>rate limited</body></html>"))
		default:
			_, _ = w.Write(pngHeader)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProber_Resolve(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	p := NewProber(request.New(nil, request.Options{}), 0)

	chain := NewFallbackChain(srv.URL+"/broken", []string{srv.URL + "/html", srv.URL + "/placeholder"})
	u, ok := p.Resolve(context.Background(), chain)
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/placeholder", u)
	assert.Equal(t, Loaded, chain.State())

	chain = NewFallbackChain(srv.URL+"/broken", []string{srv.URL + "/html"})
	_, ok = p.Resolve(context.Background(), chain)
	assert.False(t, ok)
	assert.True(t, chain.Unavailable())
}

func TestProber_Cache(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)

	d, err := db.Init(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	st := store.NewSQLiteStore(d)
	defer st.Close()

	p := NewProber(request.New(nil, request.Options{}), 0).WithCache(st)
	urls := []string{srv.URL + "/html", srv.URL + "/placeholder"}

	_, ok := p.Resolve(context.Background(), NewFallbackChain(srv.URL+"/broken", urls))
	require.True(t, ok)
	require.Equal(t, int32(3), atomic.LoadInt32(&hits))

	// The 502 is fetched again; the non-image body and the image are cached.
	u, ok := p.Resolve(context.Background(), NewFallbackChain(srv.URL+"/broken", urls))
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/placeholder", u)
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))

	for _, k := range []string{srv.URL + "/html", srv.URL + "/placeholder"} {
		_, hit := st.GetCache(context.Background(), CacheKeyPrefix+k)
		assert.True(t, hit, k)
	}
	_, hit := st.GetCache(context.Background(), CacheKeyPrefix+srv.URL+"/broken")
	assert.False(t, hit, "transient failures are not cached")
}

func TestProber_TransientFailureNotCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	d, err := db.Init(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	st := store.NewSQLiteStore(d)
	defer st.Close()

	p := NewProber(request.New(nil, request.Options{}), 0).WithCache(st)
	generic := srv.URL + "/prompt/first%20aid%20medical%20diagram"

	_, ok := p.Resolve(context.Background(), NewFallbackChain(generic, nil))
	assert.False(t, ok)

	u, ok := p.Resolve(context.Background(), NewFallbackChain(generic, nil))
	require.True(t, ok)
	assert.Equal(t, generic, u)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestProber_NotFoundIsCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d, err := db.Init(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	st := store.NewSQLiteStore(d)
	defer st.Close()

	p := NewProber(request.New(nil, request.Options{}), 0).WithCache(st)
	for range 2 {
		_, ok := p.Resolve(context.Background(), NewFallbackChain(srv.URL+"/gone", nil))
		assert.False(t, ok)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestProber_CancelledContext(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	p := NewProber(request.New(nil, request.Options{}), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := p.Resolve(ctx, NewFallbackChain(srv.URL+"/a", nil))
	assert.False(t, ok)
	assert.Zero(t, atomic.LoadInt32(&hits))
}
