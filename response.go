// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/gogama/httpipe/download"
	"github.com/gogama/httpipe/header"
	"github.com/gogama/httpipe/request"
)

// A Response is the final response of a successful plan execution.
//
// The status, URL and headers are fixed once the response exists. The
// body is still unread: it is the live, decoded and size-guarded
// stream from the final hop. It can be consumed in exactly one of two
// ways:
//
// • as a stream, via Body, Download or DownloadFile; or
//
// • through the buffered views Text, JSON, Buffer, ArrayBuffer and
// Blob, which share one lazy drain of the stream, so any number of
// them may be called in any order.
//
// Mixing the two ways fails with ErrBodyUsed, with one exception: a
// download after a buffered view is served from the buffer.
//
// A Response must be closed unless its body has been fully consumed.
// All methods are safe for concurrent use.
type Response struct {
	// StatusCode is the final status code.
	StatusCode int

	// URL is the final effective URL, after every redirect.
	URL *url.URL

	// Header holds the final response headers.
	Header *header.Headers

	// Execution is the execution that produced the response.
	Execution *request.Execution

	body   io.ReadCloser
	length int64
	logger *slog.Logger

	mu       sync.Mutex
	streamed bool
	buffered bool
	closed   bool
	data     []byte
	err      error
}

// A Blob is the body as binary data tagged with its content type.
type Blob struct {
	// Type is the Content-Type of the response, or "".
	Type string
	// Data is the decoded body.
	Data []byte
}

// Size returns the length of the blob data.
func (b *Blob) Size() int64 {
	return int64(len(b.Data))
}

func newResponse(e *request.Execution, body io.ReadCloser, length int64, logger *slog.Logger) *Response {
	return &Response{
		StatusCode: e.Response.StatusCode,
		URL:        e.URL,
		Header:     header.FromHTTP(e.Response.Header),
		Execution:  e,
		body:       body,
		length:     length,
		logger:     logger,
	}
}

// OK reports whether the status code is in the range 200-299.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Length returns the number of decoded body bytes expected, or -1 when
// it cannot be known in advance.
func (r *Response) Length() int64 {
	return r.length
}

// Body returns the decoded body stream for a single pass. The caller
// must close it.
func (r *Response) Body() (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.streamed || r.buffered {
		return nil, ErrBodyUsed
	}
	r.streamed = true
	return r.body, nil
}

// buffer drains the body on first use. Later calls return the same
// bytes or the same error.
func (r *Response) buffer() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.streamed {
		return nil, ErrBodyUsed
	}
	if !r.buffered {
		r.buffered = true
		r.data, r.err = io.ReadAll(r.body)
		_ = r.release()
	}
	return r.data, r.err
}

// Text returns the body as a UTF-8 string. Invalid UTF-8 sequences are
// replaced with U+FFFD.
func (r *Response) Text() (string, error) {
	b, err := r.buffer()
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), "\uFFFD"), nil
}

// JSON unmarshals the body into v. A body which is not valid JSON
// yields a *DecodeError with Encoding "json".
func (r *Response) JSON(v interface{}) error {
	b, err := r.buffer()
	if err != nil {
		return err
	}
	if err = json.Unmarshal(b, v); err != nil {
		return &DecodeError{Encoding: "json", Err: err}
	}
	return nil
}

// Buffer returns the body in a new bytes.Buffer.
func (r *Response) Buffer() (*bytes.Buffer, error) {
	b, err := r.ArrayBuffer()
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(b), nil
}

// ArrayBuffer returns a copy of the body bytes.
func (r *Response) ArrayBuffer() ([]byte, error) {
	b, err := r.buffer()
	if err != nil {
		return nil, err
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c, nil
}

// Blob returns the body together with its content type.
func (r *Response) Blob() (*Blob, error) {
	b, err := r.ArrayBuffer()
	if err != nil {
		return nil, err
	}
	return &Blob{Type: r.Header.Value("Content-Type"), Data: b}, nil
}

// Download streams the body to w and returns the number of bytes
// written. See package download for the options.
//
// If a buffered view was used first, the buffered bytes are written.
// Otherwise the body is streamed without buffering, and afterwards only
// Close may be called. Progress is indeterminate when the response had
// no Content-Length, or when it was compressed.
func (r *Response) Download(ctx context.Context, w io.Writer, opts ...DownloadOption) (int64, error) {
	src, total, err := r.downloadSource()
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()
	return download.Copy(ctx, w, src, total, opts...)
}

// DownloadFile streams the body into the file at path. The file is
// written under a temporary name in the same directory and renamed
// into place only once the body is complete and its digest, if any,
// has been verified.
func (r *Response) DownloadFile(ctx context.Context, path string, opts ...DownloadOption) (int64, error) {
	src, total, err := r.downloadSource()
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()
	return download.ToFile(ctx, src, total, path, r.logger, opts...)
}

func (r *Response) downloadSource() (io.Reader, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.streamed:
		return nil, 0, ErrBodyUsed
	case r.buffered && r.err != nil:
		return nil, 0, r.err
	case r.buffered:
		return bytes.NewReader(r.data), int64(len(r.data)), nil
	default:
		r.streamed = true
		return r.body, r.length, nil
	}
}

// Close releases the connection behind the response. It is safe to
// call Close more than once, and after the body has been consumed.
func (r *Response) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.release()
}

func (r *Response) release() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.body.Close()
	if err != nil {
		r.logger.Error("closing response body", "id", r.Execution.ID, "error", err)
	}
	return err
}
