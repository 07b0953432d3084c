// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"sort"
	"strings"
	"time"

	"github.com/gogama/httpipe/header"
	"golang.org/x/net/http/httpguts"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

const (
	nilCtxMsg = "httpipe/request: nil context"
)

// AcceptEncoding lists every content coding the decode package can
// strip. The resolver always sends it as the Accept-Encoding header.
var AcceptEncoding = "gzip, deflate, br"

// A Plan is a fully resolved request: the effective RequestOptions
// handed to the redirect engine.
//
// A Plan is produced by Resolve and is not mutated by the engine, which
// derives a fresh Clone for every hop. The one exception is a streamed
// body, which is consumed by the first hop that sends it.
//
// Like an http.Request, a Plan has a context which controls the whole
// execution, including every hop and the reading of the final body.
type Plan struct {
	// Method is the upper-case HTTP method.
	Method string

	// URL is the target URL, with query parameters already merged.
	URL *urlpkg.URL

	// Header is the canonical outgoing header set. It never contains
	// system-managed headers such as Content-Length.
	Header *header.Headers

	// Body is the replayable request body, or nil.
	Body []byte

	// BodyStream is a single-use streamed request body, or nil. At most
	// one of Body and BodyStream is set.
	BodyStream io.Reader

	// Timeout bounds each hop. Zero means no deadline.
	Timeout time.Duration

	// MaxRedirects is the redirect hop bound.
	MaxRedirects int

	// MaxSize is the decoded response body ceiling. Zero means none.
	MaxSize int64

	// FollowRedirects enables redirect following.
	FollowRedirects bool

	// ctx allows the entire execution to be cancelled. It should only
	// be modified by copying the whole Plan using WithContext.
	ctx context.Context
}

// Resolve merges opts over DefaultOptions and resolves the result
// against rawURL. See Options.Resolve.
func Resolve(ctx context.Context, rawURL string, opts ...Option) (*Plan, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return nil, err
			}
			return nil, &ValidationError{Field: "Options", Reason: "cannot apply option", Err: err}
		}
	}
	return o.Resolve(ctx, rawURL)
}

// NewPlan wraps NewPlanWithContext using the background context.
func NewPlan(method, url string, body interface{}) (*Plan, error) {
	return NewPlanWithContext(context.Background(), method, url, body)
}

// NewPlanWithContext resolves a plan from a method, URL, and optional
// body, leaving every other option at its default.
func NewPlanWithContext(ctx context.Context, method, url string, body interface{}) (*Plan, error) {
	return Resolve(ctx, url, WithMethod(method), WithBody(body))
}

// Resolve produces the effective Plan for o and rawURL. No network I/O
// is done, and every failure is a *ValidationError. Steps run in order:
//
// 1. Validate option fields; the method is upper-cased and "" is GET.
//
// 2. Reject a body combined with a bodyless method (GET, HEAD).
//
// 3. Parse rawURL, requiring a host and an http or https scheme.
//
// 4. Merge Query into the URL query string, percent-encoding each key
// and value exactly once.
//
// 5. Build the header set: user headers minus system-managed ones, then
// Accept-Encoding, and defaults for Accept, Connection and, when a body
// is present, Content-Type.
func (o Options) Resolve(ctx context.Context, rawURL string) (*Plan, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}

	o.Method = strings.ToUpper(o.Method)
	if o.Method == "" {
		o.Method = "GET"
	}
	if err := o.check(); err != nil {
		return nil, err
	}

	b, err := classifyBody(o.Body)
	if err != nil {
		return nil, err
	}
	if o.Body != nil && Bodyless(o.Method) {
		return nil, &ValidationError{
			Field:  "Body",
			Reason: fmt.Sprintf("method %s does not allow a request body", o.Method),
		}
	}

	u, err := urlpkg.Parse(rawURL)
	if err != nil {
		return nil, &ValidationError{Field: "URL", Reason: "cannot parse", Err: err}
	}
	if err = CheckURL(u); err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	mergeQuery(u, o.Query)

	h, err := resolveHeader(o.Header, b, o.Body != nil)
	if err != nil {
		return nil, err
	}

	return &Plan{
		ctx:             ctx,
		Method:          o.Method,
		URL:             u,
		Header:          h,
		Body:            b.bytes,
		BodyStream:      b.stream,
		Timeout:         o.Timeout,
		MaxRedirects:    o.MaxRedirects,
		MaxSize:         o.MaxSize,
		FollowRedirects: o.FollowRedirects,
	}, nil
}

// CheckURL reports a *ValidationError unless u has a host and one of
// the two supported schemes, http and https.
func CheckURL(u *urlpkg.URL) error {
	switch {
	case u.Scheme == "":
		return &ValidationError{Field: "URL", Reason: fmt.Sprintf("%q has no scheme", u.String())}
	case u.Scheme != "http" && u.Scheme != "https":
		return &ValidationError{Field: "URL", Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	case u.Host == "":
		return &ValidationError{Field: "URL", Reason: fmt.Sprintf("%q has no host", u.String())}
	}
	return nil
}

// Bodyless reports whether method forbids a request body.
func Bodyless(method string) bool {
	return method == "GET" || method == "HEAD"
}

func mergeQuery(u *urlpkg.URL, q urlpkg.Values) {
	if len(q) == 0 {
		return
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf strings.Builder
	buf.WriteString(u.RawQuery)
	for _, k := range keys {
		for _, v := range q[k] {
			if buf.Len() > 0 {
				buf.WriteByte('&')
			}
			buf.WriteString(urlpkg.QueryEscape(k))
			buf.WriteByte('=')
			buf.WriteString(urlpkg.QueryEscape(v))
		}
	}
	u.RawQuery = buf.String()
}

func resolveHeader(user *header.Headers, b body, hasBody bool) (*header.Headers, error) {
	h := header.New()
	var err error
	user.Each(func(name string, values []string) {
		if err != nil || header.Managed(name) {
			return
		}
		if !httpguts.ValidHeaderFieldName(name) {
			err = &ValidationError{Field: "Header", Reason: fmt.Sprintf("invalid name %q", name)}
			return
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				err = &ValidationError{Field: "Header", Reason: fmt.Sprintf("invalid value for %q", name)}
				return
			}
			h.Append(name, v)
		}
	})
	if err != nil {
		return nil, err
	}

	h.Set("Accept-Encoding", AcceptEncoding)
	if !h.Has("Accept") {
		h.Set("Accept", "*/*")
	}
	if !h.Has("Connection") {
		h.Set("Connection", "close")
	}
	if hasBody && !h.Has("Content-Type") && b.contentType != "" {
		h.Set("Content-Type", b.contentType)
	}

	return h, nil
}

// Context returns the plan's context. The returned context is always
// non-nil; it defaults to the background context.
func (p *Plan) Context() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of p with its context changed to
// ctx, which must be non-nil.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	p2 := new(Plan)
	*p2 = *p
	p2.ctx = ctx
	return p2
}

// Clone returns a copy of p with its own URL and header set, so that a
// redirect hop may rewrite them without touching p. Body bytes and the
// body stream are shared.
func (p *Plan) Clone() *Plan {
	p2 := new(Plan)
	*p2 = *p
	if p.URL != nil {
		u := *p.URL
		p2.URL = &u
	}
	p2.Header = p.Header.Clone()
	return p2
}

// HasBody reports whether the plan carries a body.
func (p *Plan) HasBody() bool {
	return p.Body != nil || p.BodyStream != nil
}

// ToRequest creates the HTTP request for one hop of the plan. The
// context of the new request is set to ctx, which may not be nil.
//
// Content-Length is computed from the body here, never taken from the
// header set.
func (p *Plan) ToRequest(ctx context.Context) *http.Request {
	r := template.WithContext(ctx)
	r.Method = p.Method
	u := *p.URL
	r.URL = &u
	r.Header = p.Header.Raw()
	r.Host = u.Host
	switch {
	case p.Body != nil && len(p.Body) == 0:
		r.Body = http.NoBody
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
	case p.Body != nil:
		body := p.Body
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	case p.BodyStream != nil:
		if rc, ok := p.BodyStream.(io.ReadCloser); ok {
			r.Body = rc
		} else {
			r.Body = io.NopCloser(p.BodyStream)
		}
		r.ContentLength = streamLength(p.BodyStream)
	}
	r.Close = strings.EqualFold(p.Header.Value("Connection"), "close")
	return r
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort is lifted verbatim from net/http/http.go
//
// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
