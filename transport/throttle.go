// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrMustBePositive is returned by Throttle for a non-positive rate
	// or burst.
	ErrMustBePositive = errors.New("must be greater than zero")
	// ErrWaitingFailed wraps a limiter wait that could not complete
	// before the hop's deadline.
	ErrWaitingFailed = errors.New("throttle wait failed")
	// ErrContextEnded wraps a hop context that ended before the request
	// was handed on.
	ErrContextEnded = errors.New("throttle context ended")
)

type throttle struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	next    http.RoundTripper
	logFn   func() *slog.Logger
}

// Throttle returns an http.RoundTripper that admits at most rps
// requests per second, with bursts of up to burst, before passing them
// to next. Each hop, including every redirect hop, takes one token.
// Requests wait for a token until their context ends.
//
// logFn is consulted on every request that has to wait and may return
// nil to disable logging.
func Throttle(rps, burst int, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("httpipe/transport: rps %d, burst %d: %w", rps, burst, ErrMustBePositive)
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}
	return &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		next:    next,
		logFn:   logFn,
	}, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w before wait: %w", ErrContextEnded, err)
	}

	if t.limiter.Allow() {
		return t.next.RoundTrip(r)
	}

	logger := t.logFn()
	start := time.Now()
	err := t.limiter.Wait(ctx)
	if logger != nil {
		logger.Debug("throttled hop", "url", r.URL.String(), "rate", t.rps, "burst", t.burst, "waited", time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}
	if err = ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w after wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
