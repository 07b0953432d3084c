// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httpipe provides an HTTP client engine which follows redirects
one hop at a time, transparently decodes compressed response bodies,
and enforces per-hop timeouts and a response size ceiling, all within a
simple and familiar interface.

Create a Client to begin making requests.

	client := &httpipe.Client{}
	resp, err := client.Get("https://www.example.com")
	...
	resp, err := client.Post("https://www.example.com/upload",
		"application/json", &buf)
	...
	resp, err := client.PostForm("http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

For full control over a single request, pass options from package
request to Fetch:

	resp, err := client.Fetch(ctx, "https://api.example.com/items",
		request.WithMethod("POST"),
		request.WithJSON(item),
		request.WithTimeout(5*time.Second),
		request.WithMaxRedirects(3),
		request.WithMaxSize(1<<20))

The Response carries the final status, effective URL and headers. Its
body is read exactly once, either through the buffered views (Text,
JSON, Buffer, ArrayBuffer and Blob, which may be mixed freely) or as a
stream (Body, Download and DownloadFile):

	var items []Item
	if err := resp.JSON(&items); err != nil {
		...
	}

	n, err := resp.DownloadFile(ctx, "archive.tar",
		httpipe.WithDigest("sha256", expected),
		httpipe.WithProgress(func(p httpipe.Progress) { ... }))

For control over how hops are sent, set a custom Transport. The
transport must neither follow redirects nor decompress bodies, which is
why package transport provides suitable http.Transport values:

	throttled, err := transport.Throttle(10, 1, nil, &transport.Adapter{})
	...
	client := &httpipe.Client{
		Transport: throttled,
	}

To hook into the fine-grained details of the client's execution logic,
install a handler into the appropriate handler chain:

	handlers := &httpipe.HandlerGroup{}
	handlers.PushBack(httpipe.BeforeRedirect, httpipe.HandlerFunc(
		func(_ httpipe.Event, e *request.Execution) {
			slog.Info("redirected", "hop", e.Hops, "url", e.URL.String())
		}),
	)
	client := &httpipe.Client{
		Handlers: handlers,
	}

Packages metrics and tracing install ready-made handlers which export
Prometheus metrics and OpenTelemetry spans.

Every failure is one of the error types re-exported here from package
request, such as *TimeoutError or *RedirectLimitError, and Kind names
the type of any error for logs and metric labels.
*/
package httpipe
