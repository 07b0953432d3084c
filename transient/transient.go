// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"syscall"
)

// A Category is the category of a particular error, as reported by
// Categorize.
type Category int

const (
	// Not indicates a nil error or an error which falls in none of the
	// other categories.
	Not Category = iota
	// Timeout indicates a client-side deadline was hit: either a
	// context deadline or a network operation whose error reports
	// Timeout() true.
	Timeout
	// Canceled indicates the caller cancelled the request context.
	Canceled
	// ConnRefused indicates the remote host refused the connection
	// (POSIX ECONNREFUSED).
	ConnRefused
	// ConnReset indicates the remote host reset a previously active
	// TCP connection (POSIX ECONNRESET).
	ConnReset
)

var categoryNames = []string{
	"not",
	"timeout",
	"canceled",
	"conn_refused",
	"conn_reset",
}

// String returns a short snake_case name for the category, suitable for
// metric labels.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Categorize returns the category of the given error, looking through
// wrapped causes as well as err itself.
//
// Timeout takes precedence over every other category, so an error that
// both reports Timeout() true and wraps ECONNRESET is a Timeout.
// Categorize never consults Temporary(), as its semantics are unclear.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	if errors.Is(err, context.Canceled) {
		return Canceled
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == syscall.ECONNRESET {
			return ConnReset
		} else if errno == syscall.ECONNREFUSED {
			return ConnRefused
		}
	}

	return Not
}

type hasTimeout interface {
	Timeout() bool
}
