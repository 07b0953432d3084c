// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"errors"
	"hash"

	"github.com/gogama/httpipe/download"
	"github.com/gogama/httpipe/request"
)

// ErrBodyUsed is returned when a response body is read in two
// incompatible ways: the raw stream from Response.Body, or a download,
// together with any other view.
var ErrBodyUsed = errors.New("httpipe: response body already used")

// Error taxonomy, re-exported from package request.
type (
	// ValidationError reports bad input caught before any I/O, an
	// unfollowable redirect target, or a digest mismatch.
	ValidationError = request.ValidationError

	// TransportError reports a connection or socket failure.
	TransportError = request.TransportError

	// TimeoutError reports an expired deadline.
	TimeoutError = request.TimeoutError

	// RedirectLimitError reports too many redirects.
	RedirectLimitError = request.RedirectLimitError

	// RedirectMissingLocationError reports a redirect without Location.
	RedirectMissingLocationError = request.RedirectMissingLocationError

	// ExceededSizeError reports a body larger than the size ceiling.
	ExceededSizeError = request.ExceededSizeError

	// DecodeError reports a malformed compressed stream or malformed
	// JSON.
	DecodeError = request.DecodeError
)

// Download types and sentinels, re-exported from package download.
type (
	// DownloadOption configures Response.Download and
	// Response.DownloadFile.
	DownloadOption = download.Option

	// Progress is a snapshot of a running download.
	Progress = download.Progress
)

var (
	// ErrChecksumMismatch is wrapped by the ValidationError returned
	// when a download does not match its expected digest.
	ErrChecksumMismatch = download.ErrChecksumMismatch

	// ErrDownloadCancelled is wrapped around the context error of a
	// cancelled download.
	ErrDownloadCancelled = download.ErrCancelled
)

// Kind names the taxonomy kind of err. See request.Kind.
func Kind(err error) string {
	return request.Kind(err)
}

// WithChecksum validates a download against the hex digest expected
// produced by h.
func WithChecksum(h hash.Hash, expected string) DownloadOption {
	return download.WithChecksum(h, expected)
}

// WithDigest validates a download against a hex digest computed with
// the named algorithm (md5, sha1, sha256 or sha512).
func WithDigest(algorithm, expected string) DownloadOption {
	return download.WithDigest(algorithm, expected)
}

// WithProgress reports download progress to fn after every chunk.
func WithProgress(fn func(Progress)) DownloadOption {
	return download.WithProgress(fn)
}

// WithSkipExisting makes DownloadFile a no-op when the file exists.
func WithSkipExisting() DownloadOption {
	return download.WithSkipExisting()
}
