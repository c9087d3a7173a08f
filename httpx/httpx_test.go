package httpx_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fusekit/fuse"
	"github.com/fusekit/fuse/httpx"
)

// successClassifier classifies all codes as Success.
func successClassifier(_ int) httpx.ErrorClass {
	return httpx.Success
}

func TestNewClientReturnsNonNil(t *testing.T) {
	t.Parallel()

	cl := httpx.NewClient(
		"test",
		http.DefaultClient,
		successClassifier,
	)

	require.NotNil(t, cl)
}

func TestNewClientWithEmptyName(t *testing.T) {
	t.Parallel()

	cl := httpx.NewClient(
		"",
		http.DefaultClient,
		successClassifier,
	)

	require.NotNil(t, cl)
}

func TestNewClientNilDefaults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	))
	defer srv.Close()

	cl := httpx.NewClient("", nil, nil)

	resp, err := cl.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func TestDefaultClassifier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		code int
		want httpx.ErrorClass
	}{
		{name: "ok", code: http.StatusOK, want: httpx.Success},
		{name: "redirect", code: http.StatusMovedPermanently, want: httpx.Success},
		{name: "bad request", code: http.StatusBadRequest, want: httpx.Permanent},
		{name: "not found", code: http.StatusNotFound, want: httpx.Permanent},
		{name: "request timeout", code: http.StatusRequestTimeout, want: httpx.Transient},
		{name: "too many requests", code: http.StatusTooManyRequests, want: httpx.Transient},
		{name: "internal error", code: http.StatusInternalServerError, want: httpx.Transient},
		{name: "not implemented", code: http.StatusNotImplemented, want: httpx.Permanent},
		{name: "service unavailable", code: http.StatusServiceUnavailable, want: httpx.Transient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, httpx.DefaultClassifier(tc.code))
		})
	}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		},
	))
	defer srv.Close()

	cl := httpx.NewClient(
		"",
		srv.Client(),
		httpx.DefaultClassifier,
		fuse.WithRetry(3, fuse.ConstantBackoff(time.Millisecond)),
	)

	resp, err := cl.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, int64(3), hits.Load())
}

func TestClientRetryReplaysRequestBody(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil || string(body) != `{"q":"fuse"}` {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		},
	))
	defer srv.Close()

	cl := httpx.NewClient(
		"",
		srv.Client(),
		httpx.DefaultClassifier,
		fuse.WithRetry(3, fuse.ConstantBackoff(time.Millisecond)),
	)

	// NewRequest sets GetBody for a strings.Reader, so every
	// attempt resends the full payload.
	req, err := http.NewRequest(
		http.MethodPost, srv.URL, strings.NewReader(`{"q":"fuse"}`),
	)
	require.NoError(t, err)

	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, int64(3), hits.Load())
}

func TestClientOneShotBodyFailsOnSecondAttempt(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	))
	defer srv.Close()

	cl := httpx.NewClient(
		"",
		srv.Client(),
		httpx.DefaultClassifier,
		fuse.WithRetry(3, fuse.ConstantBackoff(time.Millisecond)),
	)

	// Wrapping the reader hides its concrete type from
	// NewRequest, so GetBody stays nil and the body cannot be
	// rewound for a second attempt.
	oneShot := struct{ io.Reader }{strings.NewReader("payload")}
	req, err := http.NewRequest(http.MethodPost, srv.URL, oneShot)
	require.NoError(t, err)

	_, err = cl.Do(context.Background(), req)
	require.Error(t, err)
	require.False(t, fuse.IsTransient(err))
	require.Contains(t, err.Error(), "cannot replay request body")
	require.Equal(t, int64(1), hits.Load())
}

func TestClientDoesNotRetryPermanentStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		},
	))
	defer srv.Close()

	cl := httpx.NewClient(
		"",
		srv.Client(),
		httpx.DefaultClassifier,
		fuse.WithRetry(3, fuse.ConstantBackoff(time.Millisecond)),
	)

	_, err := cl.Get(context.Background(), srv.URL)
	require.Error(t, err)
	require.Equal(t, int64(1), hits.Load())

	var statusErr *httpx.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestClientCircuitOpensOnRepeatedFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		},
	))
	defer srv.Close()

	cl := httpx.NewClient(
		"",
		srv.Client(),
		httpx.DefaultClassifier,
		fuse.WithCircuitBreaker(fuse.FailureThreshold(2)),
	)

	for range 2 {
		_, err := cl.Get(context.Background(), srv.URL)
		require.Error(t, err)
	}

	// The third request is rejected without reaching the server.
	_, err := cl.Get(context.Background(), srv.URL)
	require.ErrorIs(t, err, fuse.ErrCircuitOpen)
	require.Equal(t, int64(2), hits.Load())
}

func TestClientTransportErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	))
	srv.Close() // closed before use: connection refused

	cl := httpx.NewClient("", http.DefaultClient, httpx.DefaultClassifier)

	_, err := cl.Get(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, fuse.IsTransient(err))
}

func TestClientStatusErrorMessage(t *testing.T) {
	t.Parallel()

	statusErr := &httpx.StatusError{StatusCode: http.StatusTeapot}
	require.Equal(t, "http status 418", statusErr.Error())
}

func TestClientDoRespectsRequestContext(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		},
	))
	defer srv.Close()

	cl := httpx.NewClient("", srv.Client(), httpx.DefaultClassifier)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := cl.Get(ctx, srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded) ||
		fuse.IsTransient(err))
}
