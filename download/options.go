// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package download

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// Option configures a download.
type Option func(*options) error

type options struct {
	checksum     *checksumVerifier
	progress     func(Progress)
	skipExisting bool
}

// WithChecksum validates the downloaded bytes against expected, the
// hex-encoded digest h should produce, for example sha256.New().
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}
		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{hash: h, expected: strings.ToLower(expected)}
		return nil
	}
}

// WithDigest is WithChecksum for a named algorithm: md5, sha1, sha256
// or sha512.
func WithDigest(algorithm, expected string) Option {
	return func(opts *options) error {
		var h hash.Hash
		switch strings.ToLower(strings.ReplaceAll(algorithm, "-", "")) {
		case "md5":
			h = md5.New()
		case "sha1":
			h = sha1.New()
		case "sha256":
			h = sha256.New()
		case "sha512":
			h = sha512.New()
		default:
			return fmt.Errorf("unsupported digest algorithm %q", algorithm)
		}
		return WithChecksum(h, expected)(opts)
	}
}

// WithProgress calls fn after every chunk written.
func WithProgress(fn func(Progress)) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("progress function must not be nil")
		}
		opts.progress = fn
		return nil
	}
}

// WithSkipExisting makes ToFile return immediately, without reading
// the body, when the destination file already exists.
func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}

func apply(optFns []Option) (options, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return opts, fmt.Errorf("httpipe/download: applying option: %w", err)
		}
	}
	return opts, nil
}
