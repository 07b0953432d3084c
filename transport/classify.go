// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"io"
	"net/url"
	"time"

	"github.com/gogama/httpipe/request"
	"github.com/gogama/httpipe/transient"
)

// Classify maps a failure from a round trip or a body read into the
// error taxonomy. ctx is the hop context and may be nil.
//
// Errors already in the taxonomy are returned unchanged. A failure
// caused by a deadline, either the hop context's (see Watchdog) or a
// network timeout, becomes a *request.TimeoutError. Everything else becomes a
// *request.TransportError preserving the original error.
func Classify(ctx context.Context, err error, rawURL string, timeout time.Duration) error {
	if err == nil || typed(err) {
		return err
	}

	if transient.Categorize(err) == transient.Timeout ||
		(ctx != nil && errors.Is(context.Cause(ctx), context.DeadlineExceeded)) {
		return &request.TimeoutError{URL: rawURL, After: timeout, Err: err}
	}

	op := "read"
	var ue *url.Error
	if errors.As(err, &ue) {
		op, err = ue.Op, ue.Err
	}
	return &request.TransportError{Op: op, URL: rawURL, Err: err}
}

func typed(err error) bool {
	var (
		validation *request.ValidationError
		transport  *request.TransportError
		timeout    *request.TimeoutError
		size       *request.ExceededSizeError
		decode     *request.DecodeError
	)
	return errors.As(err, &validation) ||
		errors.As(err, &transport) ||
		errors.As(err, &timeout) ||
		errors.As(err, &size) ||
		errors.As(err, &decode)
}

// NewBody wraps the raw body of a hop's response. Each Read arms w for
// its duration, read failures other than io.EOF are classified with
// Classify, and Close both closes rc and stops w, releasing the hop
// context. w may be nil.
func NewBody(ctx context.Context, rc io.ReadCloser, rawURL string, timeout time.Duration, w *Watchdog) io.ReadCloser {
	return &body{ctx: ctx, src: rc, url: rawURL, timeout: timeout, dog: w}
}

type body struct {
	ctx     context.Context
	src     io.ReadCloser
	url     string
	timeout time.Duration
	dog     *Watchdog
	closed  bool
}

func (b *body) Read(p []byte) (int, error) {
	b.dog.Arm()
	n, err := b.src.Read(p)
	b.dog.Pause()
	if err != nil && err != io.EOF {
		err = Classify(b.ctx, err, b.url, b.timeout)
	}
	return n, err
}

func (b *body) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	err := b.src.Close()
	b.dog.Stop()
	return err
}
