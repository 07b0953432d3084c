// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package download

import (
	"errors"
	"time"
)

var (
	// ErrChecksumMismatch is wrapped by the *request.ValidationError
	// returned when a downloaded body does not match its expected
	// digest.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrLengthMismatch is wrapped by the *request.ValidationError
	// returned when fewer or more bytes arrive than announced.
	ErrLengthMismatch = errors.New("content length mismatch")
	// ErrCancelled is wrapped around the context error when a download
	// is cancelled.
	ErrCancelled = errors.New("download cancelled")
)

// Progress is a snapshot of a running download, passed to the function
// given to WithProgress after every chunk is written.
type Progress struct {
	// Transferred is the cumulative number of bytes written.
	Transferred int64
	// Delta is the number of bytes written by the latest chunk.
	Delta int64
	// Total is the expected number of bytes, or -1 when unknown.
	Total int64
	// Percent is Transferred as a percentage of Total. It is zero when
	// Indeterminate is true.
	Percent float64
	// Indeterminate is true when the total size cannot be known, for
	// example because the body is being decompressed.
	Indeterminate bool
	// Rate is the average rate in bytes per second.
	Rate float64
	// Elapsed is the time since the download started.
	Elapsed time.Duration
}
