// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gogama/httpipe/request"
)

// Copy streams src into dst without buffering the whole body, and
// returns the number of bytes written. total is the expected length, or
// -1 if unknown; when known, a different length is an error.
//
// The digest, if one was requested, is checked after the last byte is
// written. On mismatch Copy returns a *request.ValidationError wrapping
// ErrChecksumMismatch; the bytes have already reached dst by then.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, total int64, optFns ...Option) (int64, error) {
	opts, err := apply(optFns)
	if err != nil {
		return 0, err
	}
	return copyBody(ctx, dst, src, total, opts)
}

func copyBody(ctx context.Context, dst io.Writer, src io.Reader, total int64, opts options) (int64, error) {
	src = &contextReader{ctx: ctx, r: src}

	w := dst
	if opts.checksum != nil {
		w = io.MultiWriter(w, opts.checksum)
	}
	if opts.progress != nil {
		w = &progressWriter{w: w, fn: opts.progress, total: total, start: time.Now()}
	}

	n, err := io.Copy(w, src)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return n, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return n, err
	}

	if total >= 0 && n != total {
		return n, &request.ValidationError{
			Field:  "length",
			Reason: fmt.Sprintf("expected %d bytes, got %d", total, n),
			Err:    ErrLengthMismatch,
		}
	}

	return n, opts.checksum.Verify()
}

// ToFile streams src to a temporary file next to path and renames it
// into place once the body is complete and verified. On any error the
// temporary file is removed and path is left untouched.
func ToFile(ctx context.Context, src io.Reader, total int64, path string, logger *slog.Logger, optFns ...Option) (int64, error) {
	opts, err := apply(optFns)
	if err != nil {
		return 0, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	if opts.skipExisting {
		if _, err = os.Stat(path); err == nil {
			logger.Info("skipping existing file", "path", path)
			return 0, nil
		}
	}

	file, err := os.CreateTemp(filepath.Dir(path), ".httpipe-dl-*")
	if err != nil {
		return 0, fmt.Errorf("httpipe/download: creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("removing temp file", "error", err)
			}
		}
	}()

	n, err := copyBody(ctx, file, src, total, opts)
	if err != nil {
		return n, err
	}

	if err = file.Sync(); err != nil {
		return n, fmt.Errorf("httpipe/download: syncing temp file: %w", err)
	}
	if err = file.Close(); err != nil {
		return n, fmt.Errorf("httpipe/download: closing temp file: %w", err)
	}
	if err = os.Rename(file.Name(), path); err != nil {
		return n, fmt.Errorf("httpipe/download: renaming temp file: %w", err)
	}

	successful = true
	logger.Debug("download complete", "path", path, "bytes", n)
	return n, nil
}

// contextReader stops a copy as soon as ctx ends.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
