// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request resolves user options into executable request plans and
holds the per-execution state of the redirect engine.

Resolve merges functional options over DefaultOptions, validates them,
and produces a Plan:

	p, err := request.Resolve(ctx, "https://example.com/search",
		request.WithQuery("q", "gophers"),
		request.WithTimeout(10*time.Second),
		request.WithMaxRedirects(5),
	)

All resolution failures are *ValidationError and happen before any
network I/O. A body combined with GET or HEAD is always rejected.

An Execution tracks one run of a Plan through the engine's states
(Sending, AwaitingResponse, Redirecting, Decoding, Done, Failed), the
redirect hop count, and the final response metadata.

The package also defines the error taxonomy shared by the pipeline:
ValidationError, TransportError, TimeoutError, RedirectLimitError,
RedirectMissingLocationError, ExceededSizeError and DecodeError.
*/
package request
