// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies low-level errors raised while a request
// hop is in flight. The transport adapter uses it to decide whether a
// failure surfaces as a timeout or as a plain transport error, and the
// metrics plug-in uses it to bucket failures.
//
// Package transient depends only on the standard library packages
// "context", "errors" and "syscall".
package transient
