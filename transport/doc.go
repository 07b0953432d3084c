// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package transport is the boundary between the pipeline and the network.

Adapter picks the http.RoundTripper for a hop by URL scheme. The
transports built by NewTransport never pool connections, never use a
proxy, speak HTTP/1.1 only, and leave content codings alone so the
decode package can strip them.

Classify turns round-trip and body-read failures into the pipeline's
error taxonomy: deadline failures become *request.TimeoutError, and
other failures become *request.TransportError with the original error
preserved.

Throttle rate-limits hops with a token bucket:

	rt, err := transport.Throttle(10, 5, func() *slog.Logger { return logger }, &transport.Adapter{})
	if err != nil {
		...
	}
	client := &httpipe.Client{Transport: rt}
*/
package transport
