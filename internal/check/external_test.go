package check

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	v := newExternalValidator(5 * time.Second)
	outcome := v.probe(context.Background(), srv.URL)
	require.NoError(t, outcome.err)
	assert.Equal(t, http.StatusOK, outcome.status)
	assert.False(t, outcome.permanent)
	assert.Equal(t, srv.URL, outcome.finalURL)
}

func TestProbe_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	v := newExternalValidator(5 * time.Second)
	outcome := v.probe(context.Background(), srv.URL+"/missing")
	require.NoError(t, outcome.err)
	assert.Equal(t, http.StatusNotFound, outcome.status)
}

func TestProbe_PermanentRedirectChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/moved", http.StatusMovedPermanently)
		case "/moved":
			http.Redirect(w, r, "/new", http.StatusPermanentRedirect)
		case "/new":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	v := newExternalValidator(5 * time.Second)
	outcome := v.probe(context.Background(), srv.URL+"/old")
	require.NoError(t, outcome.err)
	assert.True(t, outcome.permanent)
	assert.Equal(t, http.StatusOK, outcome.status)
	assert.Equal(t, srv.URL+"/new", outcome.finalURL)
}

func TestProbe_TemporaryRedirectNotFixable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "/end", http.StatusFound)
		case "/end":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	v := newExternalValidator(5 * time.Second)
	outcome := v.probe(context.Background(), srv.URL+"/start")
	require.NoError(t, outcome.err)
	assert.False(t, outcome.permanent)
	assert.Equal(t, http.StatusOK, outcome.status)
}

func TestProbe_HeadFallsBackToGet(t *testing.T) {
	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	v := newExternalValidator(5 * time.Second)
	outcome := v.probe(context.Background(), srv.URL)
	require.NoError(t, outcome.err)
	assert.Equal(t, http.StatusOK, outcome.status)
	assert.True(t, sawGet)
}

func TestProbe_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	v := newExternalValidator(2 * time.Second)
	outcome := v.probe(context.Background(), srv.URL)
	require.Error(t, outcome.err)
	assert.Zero(t, outcome.status)
}

func TestProbe_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	v := newExternalValidator(50 * time.Millisecond)
	outcome := v.probe(context.Background(), srv.URL)
	require.Error(t, outcome.err)
	assert.Zero(t, outcome.status)
}

func TestProbe_RedirectLoopStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/again", http.StatusMovedPermanently)
	}))
	t.Cleanup(srv.Close)

	v := newExternalValidator(5 * time.Second)
	outcome := v.probe(context.Background(), srv.URL)
	require.Error(t, outcome.err)
	assert.Contains(t, outcome.err.Error(), "redirects")
}
