// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gogama/httpipe/decode"
	"github.com/gogama/httpipe/limit"
	"github.com/gogama/httpipe/redirect"
	"github.com/gogama/httpipe/request"
	"github.com/gogama/httpipe/transient"
	"github.com/gogama/httpipe/transport"
)

var emptyHandlers = HandlerGroup{}

var defaultTransport http.RoundTripper = &transport.Adapter{}

// A Client executes request plans: it sends each hop through its
// transport, follows redirects, and wires up decoding and the size
// ceiling for the final response body. Its zero value is a valid
// configuration.
//
// The zero value client uses a transport.Adapter with default
// transports, slog.Default() as the logger, and an empty handler group
// (no event handlers/plug-ins).
//
// Client is safe for concurrent use by multiple goroutines. Each call
// to Do runs its own single-use execution, and every execution holds at
// most one live connection at a time: the previous hop's response is
// released before the next hop is sent.
//
// Client deliberately does not retry, pool connections, keep cookies
// or cache. Redirect following is the only repeated request it makes,
// and it is bounded by the plan's MaxRedirects.
type Client struct {
	// Transport sends individual hops.
	//
	// If Transport is nil, a zero transport.Adapter is used. The
	// transport must not follow redirects or decompress bodies itself.
	Transport http.RoundTripper
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during execution of a request plan.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives debug logs for every hop and redirect.
	//
	// If Logger is nil, slog.Default() is used.
	Logger *slog.Logger
}

// Do executes a request plan and returns the final response.
//
// The execution moves through the states Sending, AwaitingResponse,
// Redirecting, Decoding and finally Done or Failed. Every redirect
// status (301, 302, 303, 307, 308) is followed while the plan allows
// it, rewriting the request as described in package redirect. Any
// other status, or a redirect with following disabled, becomes the
// final response. A non-2XX final status is not an error.
//
// If the execution fails, Do returns a nil Response and an error from
// the taxonomy in package request: *TransportError, *TimeoutError,
// *RedirectLimitError, *RedirectMissingLocationError or
// *ValidationError. Nothing is returned as if successful after a
// failure, and the failing hop's connection is always released.
//
// On success the body has not been read yet. It is decoded according
// to Content-Encoding and bounded by the plan's MaxSize as it is read
// through the Response. The plan's timeout is an idle timeout: it bounds
// the wait for each hop's headers and then every wait for more body
// bytes, so a slow but steady body is never cut off. A HEAD response,
// or a 204 or 304, reports a Length of zero whatever its Content-Length
// header says.
func (c *Client) Do(p *request.Plan) (*Response, error) {
	x := c.newRun(p)
	return x.execute()
}

// Fetch resolves a plan from rawURL and opts, and executes it with Do.
// Resolution errors are returned before any I/O.
func (c *Client) Fetch(ctx context.Context, rawURL string, opts ...request.Option) (*Response, error) {
	return Fetch(ctx, c, rawURL, opts...)
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers, use request.Resolve and
// Client.Do, or use Client.Fetch.
func (c *Client) Get(url string) (*Response, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
func (c *Client) Head(url string) (*Response, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.WithBody, namely: string; []byte; and
// io.Reader.
func (c *Client) Post(url, contentType string, body interface{}) (*Response, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
func (c *Client) PostForm(url string, data url.Values) (*Response, error) {
	return PostForm(c, url, data)
}

// run is the state of one execution of Client.Do.
type run struct {
	e        *request.Execution
	cur      *request.Plan
	rt       http.RoundTripper
	handlers *HandlerGroup
	logger   *slog.Logger
	ctx      context.Context
	dog      *transport.Watchdog
	released bool
}

func (c *Client) newRun(p *request.Plan) *run {
	x := &run{
		e:        request.NewExecution(p),
		cur:      p,
		rt:       c.Transport,
		handlers: c.Handlers,
		logger:   c.Logger,
	}
	if x.rt == nil {
		x.rt = defaultTransport
	}
	if x.handlers == nil {
		x.handlers = &emptyHandlers
	}
	if x.logger == nil {
		x.logger = slog.Default()
	}
	return x
}

func (x *run) execute() (*Response, error) {
	e := x.e
	x.handlers.run(BeforeExecutionStart, e)
	e.Start = time.Now()
	x.logger.Debug("execution start", "id", e.ID, "method", x.cur.Method, "url", e.URL.String())

	for {
		if err := x.hop(); err != nil {
			return x.fail(err)
		}

		if !x.cur.FollowRedirects || !redirect.Is(e.Response.StatusCode) {
			break
		}

		e.Transition(request.Redirecting)
		next, err := redirect.Next(e, x.cur)
		x.release("redirect response")
		if err != nil {
			return x.fail(err)
		}

		x.logger.Debug("following redirect", "id", e.ID, "hop", e.Hops,
			"status", e.Response.StatusCode, "from", e.URL.String(), "to", next.URL.String(),
			"method", next.Method)
		e.URL = next.URL
		x.cur = next
		x.handlers.run(BeforeRedirect, e)
		e.Transition(request.Sending)
	}

	return x.finish(), nil
}

// hop sends the current plan and waits for response headers. On
// success the hop's context stays live, since the response body is
// still attached to it, and its watchdog is paused until the body is
// read.
func (x *run) hop() error {
	e, cur := x.e, x.cur
	x.ctx, x.dog = transport.NewWatchdog(cur.Context(), cur.Timeout)

	e.Request = cur.ToRequest(x.ctx)
	e.Response = nil
	x.released = false
	x.handlers.run(BeforeHop, e)
	x.logger.Debug("sending hop", "id", e.ID, "hop", e.Hops, "method", e.Request.Method, "url", e.URL.String())

	e.Transition(request.AwaitingResponse)
	resp, err := x.rt.RoundTrip(e.Request)
	if err != nil {
		err = transport.Classify(x.ctx, err, e.URL.String(), cur.Timeout)
		x.dog.Stop()
		if transient.Categorize(err) == transient.Timeout {
			e.Err = err
			x.handlers.run(AfterHopTimeout, e)
		}
		return err
	}

	x.dog.Pause()
	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	e.Response = resp
	x.handlers.run(AfterHeaders, e)
	return nil
}

// release closes the current hop's response body and stops its
// watchdog.
func (x *run) release(what string) {
	if x.e.Response != nil && !x.released {
		x.released = true
		if err := x.e.Response.Body.Close(); err != nil {
			x.logger.Error("closing "+what, "id", x.e.ID, "error", err)
		}
	}
	x.dog.Stop()
	x.dog = nil
}

func (x *run) fail(err error) (*Response, error) {
	e := x.e
	x.release("failed response")
	e.Err = err
	e.Transition(request.Failed)
	x.logger.Debug("execution failed", "id", e.ID, "hops", e.Hops, "kind", request.Kind(err), "error", err)
	x.handlers.run(AfterExecutionEnd, e)
	return nil, err
}

// finish wires the final body through classification, decoding and
// the size ceiling, and completes the execution.
func (x *run) finish() *Response {
	e, cur := x.e, x.cur
	e.Transition(request.Decoding)

	resp := e.Response
	var body io.ReadCloser = transport.NewBody(x.ctx, resp.Body, e.URL.String(), cur.Timeout, x.dog)
	length := resp.ContentLength
	if bodyless(cur.Method, resp.StatusCode) {
		length = 0
	}
	encoding := resp.Header.Get("Content-Encoding")
	if decode.Applies(cur.Method, resp.StatusCode, encoding) {
		body = decode.NewReader(body, encoding)
		if decode.Known(encoding) {
			length = -1
		}
	}
	if length < 0 {
		length = -1
	}
	body = limit.NewReader(body, cur.MaxSize)
	resp.Body = body
	x.dog = nil

	e.Transition(request.Done)
	x.logger.Debug("execution done", "id", e.ID, "status", resp.StatusCode, "hops", e.Hops,
		"url", e.URL.String(), "encoding", encoding)
	x.handlers.run(AfterExecutionEnd, e)
	return newResponse(e, body, length, x.logger)
}

// bodyless reports whether a response carries no body regardless of its
// Content-Length header.
func bodyless(method string, status int) bool {
	return method == http.MethodHead ||
		status == http.StatusNoContent ||
		status == http.StatusNotModified
}
