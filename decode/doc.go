// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package decode strips the content coding from response bodies.
//
// The package supports every coding the request resolver advertises in
// Accept-Encoding: gzip (and its x-gzip alias), br, and deflate (and
// x-deflate). Since servers disagree on whether deflate means a zlib
// stream or a bare deflate stream, the first body byte is sniffed to
// decide.
//
// Decoding is lazy. NewReader does no I/O; the transform is chosen and
// started on the consumer's first Read.
package decode
