// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package limit enforces a ceiling on the size of a response body.
package limit

import (
	"io"

	"github.com/gogama/httpipe/request"
)

// NewReader returns a reader that counts the bytes read from rc and
// fails once the running total goes over max. When that happens rc is
// closed, so the connection behind it is torn down, and the pending
// Read as well as every later Read return *request.ExceededSizeError.
//
// A body of exactly max bytes is fine. If max is zero or negative, rc
// is returned unchanged.
func NewReader(rc io.ReadCloser, max int64) io.ReadCloser {
	if max <= 0 {
		return rc
	}
	return &reader{src: rc, max: max}
}

type reader struct {
	src  io.ReadCloser
	max  int64
	read int64
	err  error
}

func (r *reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	n, err := r.src.Read(p)
	r.read += int64(n)
	if r.read > r.max {
		r.err = &request.ExceededSizeError{Limit: r.max, Read: r.read}
		_ = r.src.Close()
		return 0, r.err
	}
	return n, err
}

func (r *reader) Close() error {
	if _, ok := r.err.(*request.ExceededSizeError); ok {
		return nil
	}
	return r.src.Close()
}
