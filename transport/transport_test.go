// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/gogama/httpipe/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRoundTripper struct {
	mock.Mock
}

func (m *mockRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	args := m.Called(r)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func TestNewTransport(t *testing.T) {
	tr := NewTransport(nil)
	assert.True(t, tr.DisableKeepAlives)
	assert.True(t, tr.DisableCompression)
	assert.False(t, tr.ForceAttemptHTTP2)
	assert.Nil(t, tr.Proxy)
	assert.NotNil(t, tr.TLSNextProto)
	assert.Empty(t, tr.TLSNextProto)
}

func TestAdapter(t *testing.T) {
	resp := &http.Response{StatusCode: 200}
	plain := &mockRoundTripper{}
	secure := &mockRoundTripper{}
	plain.On("RoundTrip", mock.MatchedBy(func(r *http.Request) bool { return r.URL.Scheme == "http" })).Return(resp, nil).Once()
	secure.On("RoundTrip", mock.MatchedBy(func(r *http.Request) bool { return r.URL.Scheme == "https" })).Return(resp, nil).Once()
	a := &Adapter{Plain: plain, Secure: secure}

	for _, rawURL := range []string{"http://example.com", "https://example.com"} {
		r, err := http.NewRequest("GET", rawURL, nil)
		require.NoError(t, err)
		got, err := a.RoundTrip(r)
		assert.NoError(t, err)
		assert.Same(t, resp, got)
	}
	plain.AssertExpectations(t)
	secure.AssertExpectations(t)

	r, err := http.NewRequest("GET", "ftp://example.com", nil)
	require.NoError(t, err)
	got, err := a.RoundTrip(r)
	assert.Nil(t, got)
	var ve *request.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.Equal(t, "URL", ve.Field)
}

func TestAdapter_ZeroValue(t *testing.T) {
	var accepted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accepted = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write([]byte("not really gzip"))
	}))
	defer server.Close()

	r, err := http.NewRequest("GET", server.URL, nil)
	require.NoError(t, err)
	resp, err := (&Adapter{}).RoundTrip(r)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "not really gzip", string(b))
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	assert.Empty(t, accepted)
	assert.Equal(t, 1, resp.ProtoMajor)
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestClassify(t *testing.T) {
	const u = "http://example.com"
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, Classify(nil, nil, u, 0))
	})
	t.Run("typed passes through", func(t *testing.T) {
		te := &request.TransportError{Op: "Get", URL: u, Err: io.EOF}
		assert.Same(t, te, Classify(nil, te, u, 0))
		se := &request.ExceededSizeError{Limit: 1, Read: 2}
		assert.Same(t, se, Classify(nil, se, u, 0))
	})
	t.Run("network timeout", func(t *testing.T) {
		err := Classify(nil, &url.Error{Op: "Get", URL: u, Err: timeoutErr{}}, u, time.Second)
		var te *request.TimeoutError
		require.True(t, errors.As(err, &te), "expected TimeoutError, got %v", err)
		assert.Equal(t, time.Second, te.After)
		assert.Equal(t, u, te.URL)
	})
	t.Run("context deadline", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		err := Classify(ctx, errors.New("net/http: request canceled"), u, time.Millisecond)
		var te *request.TimeoutError
		assert.True(t, errors.As(err, &te), "expected TimeoutError, got %v", err)
	})
	t.Run("connection refused", func(t *testing.T) {
		err := Classify(context.Background(), &url.Error{Op: "Get", URL: u, Err: syscall.ECONNREFUSED}, u, 0)
		var te *request.TransportError
		require.True(t, errors.As(err, &te), "expected TransportError, got %v", err)
		assert.Equal(t, "Get", te.Op)
		assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	})
	t.Run("cancelled", func(t *testing.T) {
		err := Classify(nil, fmt.Errorf("x: %w", context.Canceled), u, 0)
		var te *request.TransportError
		require.True(t, errors.As(err, &te), "expected TransportError, got %v", err)
		assert.Equal(t, "read", te.Op)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type closeRecorder struct {
	io.Reader
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestNewBody(t *testing.T) {
	t.Run("read and close", func(t *testing.T) {
		src := &closeRecorder{Reader: strings.NewReader("hello")}
		ctx, w := NewWatchdog(context.Background(), time.Minute)
		b := NewBody(ctx, src, "http://example.com", time.Minute, w)
		data, err := io.ReadAll(b)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
		assert.NoError(t, ctx.Err())
		assert.NoError(t, b.Close())
		assert.NoError(t, b.Close())
		assert.Equal(t, 1, src.closed)
		assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
	})
	t.Run("read error classified", func(t *testing.T) {
		src := &closeRecorder{Reader: io.MultiReader(strings.NewReader("he"), iotestErr{syscall.ECONNRESET})}
		b := NewBody(context.Background(), src, "http://example.com", 0, nil)
		_, err := io.ReadAll(b)
		var te *request.TransportError
		require.True(t, errors.As(err, &te), "expected TransportError, got %v", err)
		assert.ErrorIs(t, err, syscall.ECONNRESET)
		assert.NoError(t, b.Close())
	})
}

type slowReader struct {
	chunks []string
	delay  time.Duration
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	time.Sleep(r.delay)
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestWatchdog(t *testing.T) {
	t.Run("fires when idle", func(t *testing.T) {
		ctx, w := NewWatchdog(context.Background(), 20*time.Millisecond)
		defer w.Stop()
		<-ctx.Done()
		assert.ErrorIs(t, context.Cause(ctx), context.DeadlineExceeded)
		var te *request.TimeoutError
		assert.True(t, errors.As(Classify(ctx, ctx.Err(), "http://example.com", 20*time.Millisecond), &te))
	})
	t.Run("paused never fires", func(t *testing.T) {
		ctx, w := NewWatchdog(context.Background(), 20*time.Millisecond)
		w.Pause()
		time.Sleep(60 * time.Millisecond)
		assert.NoError(t, ctx.Err())
		w.Stop()
		assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
		var te *request.TransportError
		assert.True(t, errors.As(Classify(ctx, ctx.Err(), "http://example.com", 0), &te))
	})
	t.Run("zero timeout", func(t *testing.T) {
		ctx, w := NewWatchdog(context.Background(), 0)
		w.Arm()
		w.Pause()
		assert.NoError(t, ctx.Err())
		w.Stop()
		assert.Error(t, ctx.Err())
	})
	t.Run("nil", func(t *testing.T) {
		var w *Watchdog
		assert.NotPanics(t, func() {
			w.Arm()
			w.Pause()
			w.Stop()
		})
	})
	t.Run("steady body outlives timeout", func(t *testing.T) {
		ctx, w := NewWatchdog(context.Background(), 50*time.Millisecond)
		w.Pause()
		src := &closeRecorder{Reader: &slowReader{chunks: []string{"a", "b", "c", "d", "e"}, delay: 20 * time.Millisecond}}
		b := NewBody(ctx, src, "http://example.com", 50*time.Millisecond, w)
		data, err := io.ReadAll(b)
		require.NoError(t, err)
		assert.Equal(t, "abcde", string(data))
		assert.NoError(t, ctx.Err())
		assert.NoError(t, b.Close())
	})
}

type iotestErr struct {
	err error
}

func (e iotestErr) Read(_ []byte) (int, error) {
	return 0, e.err
}

func TestThrottle_Validation(t *testing.T) {
	testCases := []struct {
		name       string
		rps, burst int
		valid      bool
	}{
		{"zero rps", 0, 10, false},
		{"negative rps", -5, 10, false},
		{"zero burst", 10, 0, false},
		{"negative burst", 10, -5, false},
		{"valid", 10, 20, true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			rt, err := Throttle(testCase.rps, testCase.burst, nil, &mockRoundTripper{})
			if testCase.valid {
				assert.NoError(t, err)
				assert.NotNil(t, rt)
			} else {
				assert.ErrorIs(t, err, ErrMustBePositive)
				assert.Nil(t, rt)
			}
		})
	}
}

func TestThrottle_Behavior(t *testing.T) {
	var served int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&served, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	t.Run("within burst", func(t *testing.T) {
		rt, err := Throttle(1, 3, func() *slog.Logger { return slog.Default() }, &Adapter{})
		require.NoError(t, err)
		start := time.Now()
		for i := 0; i < 3; i++ {
			r, err := http.NewRequest("GET", server.URL, nil)
			require.NoError(t, err)
			resp, err := rt.RoundTrip(r)
			require.NoError(t, err)
			_ = resp.Body.Close()
		}
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
	t.Run("waits past burst", func(t *testing.T) {
		rt, err := Throttle(10, 1, nil, &Adapter{})
		require.NoError(t, err)
		start := time.Now()
		for i := 0; i < 3; i++ {
			r, err := http.NewRequest("GET", server.URL, nil)
			require.NoError(t, err)
			resp, err := rt.RoundTrip(r)
			require.NoError(t, err)
			_ = resp.Body.Close()
		}
		assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	})
	t.Run("deadline while waiting", func(t *testing.T) {
		rt, err := Throttle(1, 1, nil, &Adapter{})
		require.NoError(t, err)
		r, err := http.NewRequest("GET", server.URL, nil)
		require.NoError(t, err)
		resp, err := rt.RoundTrip(r)
		require.NoError(t, err)
		_ = resp.Body.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		resp, err = rt.RoundTrip(r.WithContext(ctx))
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrWaitingFailed)
	})
	t.Run("context already ended", func(t *testing.T) {
		rt, err := Throttle(1, 1, nil, &mockRoundTripper{})
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r, err := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
		require.NoError(t, err)
		_, err = rt.RoundTrip(r)
		assert.ErrorIs(t, err, ErrContextEnded)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
