// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package download streams response bodies to a writer or to disk, with
// optional progress reporting and digest validation.
//
// Copy streams to any io.Writer. ToFile writes through a temporary file
// in the destination directory and renames it into place only once the
// body is complete and, if WithChecksum or WithDigest was given,
// verified:
//
//	n, err := download.ToFile(ctx, body, length, "out.tar", logger,
//		download.WithDigest("sha256", expectedHex),
//		download.WithProgress(func(p download.Progress) { ... }),
//	)
package download
