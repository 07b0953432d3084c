// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"time"
)

// A ValidationError reports bad input: request options rejected before
// any network I/O, a redirect target that cannot be followed, or a
// downloaded body whose digest does not match the expected value.
type ValidationError struct {
	// Field names the offending option or value, for example "Body",
	// "URL", "Location" or "digest".
	Field string
	// Reason is a human-readable explanation.
	Reason string
	// Err is an optional underlying cause.
	Err error
}

func (e *ValidationError) Error() string {
	msg := "httpipe: invalid " + e.Field + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// A TransportError reports a connection or socket failure. The
// originating error is preserved in Err.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("httpipe: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// A TimeoutError reports that a configured deadline expired before the
// hop completed.
type TimeoutError struct {
	URL   string
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("httpipe: %s: timed out after %s", e.URL, e.After)
	}
	return fmt.Sprintf("httpipe: %s: timed out", e.URL)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Timeout always returns true.
func (e *TimeoutError) Timeout() bool {
	return true
}

// A RedirectLimitError reports that a redirect was received after the
// maximum number of redirect hops had already been followed. URL is the
// original request URL, not the URL of the hop that failed.
type RedirectLimitError struct {
	URL string
	Max int
}

func (e *RedirectLimitError) Error() string {
	return fmt.Sprintf("httpipe: %s: exceeded maximum of %d redirects", e.URL, e.Max)
}

// A RedirectMissingLocationError reports a redirect response that did
// not carry a Location header.
type RedirectMissingLocationError struct {
	URL        string
	StatusCode int
}

func (e *RedirectMissingLocationError) Error() string {
	return fmt.Sprintf("httpipe: %s: redirect status %d without Location header", e.URL, e.StatusCode)
}

// An ExceededSizeError reports that the decoded response body grew
// beyond the configured size ceiling.
type ExceededSizeError struct {
	Limit int64
	Read  int64
}

func (e *ExceededSizeError) Error() string {
	return fmt.Sprintf("httpipe: response body exceeded %d bytes (read %d)", e.Limit, e.Read)
}

// A DecodeError reports a malformed compressed stream or, for
// Encoding "json", a body that is not valid JSON.
type DecodeError struct {
	Encoding string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("httpipe: decoding %s body: %v", e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Kind names the taxonomy kind of err, for metric labels and log
// attributes. It returns "none" for a nil error and "other" for errors
// outside the taxonomy.
func Kind(err error) string {
	var (
		validation *ValidationError
		transport  *TransportError
		timeout    *TimeoutError
		limit      *RedirectLimitError
		location   *RedirectMissingLocationError
		size       *ExceededSizeError
		decode     *DecodeError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &limit):
		return "redirect_limit"
	case errors.As(err, &location):
		return "redirect_missing_location"
	case errors.As(err, &size):
		return "exceeded_size"
	case errors.As(err, &decode):
		return "decode"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &transport):
		return "transport"
	default:
		return "other"
	}
}
