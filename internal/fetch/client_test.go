package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(origin string) *Client {
	cfg := DefaultConfig(origin)
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.Timeout = 2 * time.Second
	return NewClient(zerolog.Nop(), cfg)
}

func TestClient_FetchPage(t *testing.T) {
	t.Run("sends browser profile", func(t *testing.T) {
		var got http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			w.Write([]byte("<html>ok</html>"))
		}))
		defer server.Close()

		body, err := testClient(server.URL).FetchPage(context.Background(), server.URL+"/")
		require.NoError(t, err)
		assert.Equal(t, "<html>ok</html>", body)
		assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
		assert.Equal(t, server.URL, got.Get("Referer"))
		assert.Contains(t, got.Get("Accept"), "text/html")
		assert.Contains(t, got.Get("Accept-Language"), "id-ID")
	})

	t.Run("relative redirect resolves against origin", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/deep/old/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", "/new/")
			w.WriteHeader(http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("moved here"))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		body, err := testClient(server.URL).FetchPage(context.Background(), server.URL+"/deep/old/")
		require.NoError(t, err)
		assert.Equal(t, "moved here", body)
	})

	t.Run("absolute redirect", func(t *testing.T) {
		target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("other host"))
		}))
		defer target.Close()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, target.URL+"/x", http.StatusFound)
		}))
		defer server.Close()

		body, err := testClient(server.URL).FetchPage(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "other host", body)
	})

	t.Run("non-2xx fails without retry", func(t *testing.T) {
		for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusForbidden} {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(status)
				w.Write([]byte("nope"))
			}))

			_, err := testClient(server.URL).FetchPage(context.Background(), server.URL)
			server.Close()

			require.Error(t, err)
			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, status, fe.Status)
			assert.Equal(t, status, StatusOf(err))
			assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
		}
	})

	t.Run("redirect without location fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusFound)
		}))
		defer server.Close()

		_, err := testClient(server.URL).FetchPage(context.Background(), server.URL)
		assert.Equal(t, http.StatusFound, StatusOf(err))
	})

	t.Run("redirect loop is capped", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.Header().Set("Location", "/loop")
			w.WriteHeader(http.StatusFound)
		}))
		defer server.Close()

		cfg := DefaultConfig(server.URL)
		cfg.MaxRedirects = 3
		_, err := NewClient(zerolog.Nop(), cfg).FetchPage(context.Background(), server.URL+"/loop")
		require.Error(t, err)
		assert.Equal(t, int32(4), atomic.LoadInt32(&attempts))
	})

	t.Run("transport failures retry with fixed budget", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
		}))
		defer server.Close()

		start := time.Now()
		_, err := testClient(server.URL).FetchPage(context.Background(), server.URL)
		require.Error(t, err)

		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Zero(t, fe.Status)
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("recovers after a transient failure", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				conn, _, _ := w.(http.Hijacker).Hijack()
				conn.Close()
				return
			}
			w.Write([]byte("second time"))
		}))
		defer server.Close()

		body, err := testClient(server.URL).FetchPage(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "second time", body)
		assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	})

	t.Run("timeout counts as transport failure", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		cfg := DefaultConfig(server.URL)
		cfg.Timeout = 50 * time.Millisecond
		cfg.RetryDelay = time.Millisecond
		cfg.Retries = 1

		_, err := NewClient(zerolog.Nop(), cfg).FetchPage(context.Background(), server.URL)
		require.Error(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, _, _ := w.(http.Hijacker).Hijack()
			conn.Close()
		}))
		defer server.Close()

		cfg := DefaultConfig(server.URL)
		cfg.RetryDelay = time.Minute

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := NewClient(zerolog.Nop(), cfg).FetchPage(ctx, server.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestFetchError_Error(t *testing.T) {
	assert.Equal(t, "fetch https://x/: HTTP 404", (&FetchError{URL: "https://x/", Status: 404}).Error())
	assert.Equal(t, "fetch https://x/: boom", (&FetchError{URL: "https://x/", Err: errors.New("boom")}).Error())
	assert.Zero(t, StatusOf(errors.New("plain")))
}
