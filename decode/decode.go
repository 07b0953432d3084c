// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package decode

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gogama/httpipe/request"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// A Variant is a decompression transform.
type Variant int

const (
	// Identity passes bytes through unchanged.
	Identity Variant = iota
	// Gzip strips the gzip coding (RFC 1952).
	Gzip
	// Brotli strips the br coding (RFC 7932).
	Brotli
	// Zlib strips a zlib-wrapped deflate stream (RFC 1950), which is
	// what the deflate coding is supposed to carry.
	Zlib
	// RawDeflate strips a bare deflate stream (RFC 1951), which some
	// servers send as the deflate coding anyway.
	RawDeflate
)

var variantNames = []string{
	"identity",
	"gzip",
	"br",
	"zlib",
	"deflate",
}

// String returns the lower-case name of the variant.
func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantNames) {
		return "unknown"
	}
	return variantNames[v]
}

// Applies reports whether a response's body needs the decoding
// pipeline. HEAD responses and 204 and 304 responses have no body, and
// a response without Content-Encoding needs no decoding.
func Applies(method string, status int, encoding string) bool {
	return method != http.MethodHead &&
		strings.TrimSpace(encoding) != "" &&
		status != http.StatusNoContent &&
		status != http.StatusNotModified
}

// Known reports whether encoding names a coding this package strips.
// Tokens are case-sensitive.
func Known(encoding string) bool {
	switch strings.TrimSpace(encoding) {
	case "gzip", "x-gzip", "br", "deflate", "x-deflate":
		return true
	default:
		return false
	}
}

// Select picks the transform for a Content-Encoding token, given the
// first byte or bytes of the encoded body. Select is a pure function.
//
// The deflate coding is ambiguous in practice, so its variant is chosen
// by sniffing the first byte: a zlib header has compression method 8 in
// its low nibble. Unrecognized tokens select Identity.
func Select(encoding string, head []byte) Variant {
	switch strings.TrimSpace(encoding) {
	case "gzip", "x-gzip":
		return Gzip
	case "br":
		return Brotli
	case "deflate", "x-deflate":
		if len(head) > 0 && head[0]&0x0f == 0x08 {
			return Zlib
		}
		return RawDeflate
	default:
		return Identity
	}
}

// NewReader wraps rc with the transform chosen for encoding. The
// returned reader is lazy: nothing is read from rc until the first call
// to Read, which peeks at the first body byte to pick the transform.
//
// An empty body decodes to an empty body whatever the encoding. Errors
// from the decompressor are reported as *request.DecodeError, while
// errors from rc that are already typed (transport, timeout or size
// errors) pass through unchanged.
//
// Closing the reader closes rc.
func NewReader(rc io.ReadCloser, encoding string) io.ReadCloser {
	return &reader{src: rc, encoding: encoding}
}

type reader struct {
	src      io.ReadCloser
	encoding string
	variant  Variant
	dec      io.Reader
	closer   io.Closer
	err      error
}

func (r *reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.dec == nil {
		if err := r.init(); err != nil {
			r.err = err
			return 0, err
		}
	}

	n, err := r.dec.Read(p)
	if err != nil && err != io.EOF {
		err = r.wrap(err)
		r.err = err
	}
	return n, err
}

func (r *reader) init() error {
	buf := bufio.NewReader(r.src)
	head, err := buf.Peek(1)
	if err == io.EOF {
		r.variant, r.dec = Identity, buf
		return nil
	} else if err != nil {
		return r.wrap(err)
	}

	r.variant = Select(r.encoding, head)
	switch r.variant {
	case Gzip:
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(buf); err != nil {
			return r.wrap(err)
		}
		r.dec, r.closer = gz, gz
	case Brotli:
		r.dec = brotli.NewReader(buf)
	case Zlib:
		var z io.ReadCloser
		if z, err = zlib.NewReader(buf); err != nil {
			return r.wrap(err)
		}
		r.dec, r.closer = z, z
	case RawDeflate:
		f := flate.NewReader(buf)
		r.dec, r.closer = f, f
	default:
		r.dec = buf
	}
	return nil
}

func (r *reader) wrap(err error) error {
	if r.variant == Identity || passThrough(err) {
		return err
	}
	return &request.DecodeError{Encoding: r.variant.String(), Err: err}
}

func passThrough(err error) bool {
	var (
		transport *request.TransportError
		timeout   *request.TimeoutError
		size      *request.ExceededSizeError
	)
	return errors.As(err, &transport) || errors.As(err, &timeout) || errors.As(err, &size)
}

func (r *reader) Close() error {
	if r.closer != nil {
		_ = r.closer.Close()
	}
	return r.src.Close()
}
