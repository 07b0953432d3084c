// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gogama/httpipe/header"
)

// DefaultMaxRedirects is the redirect hop bound used when none is set.
const DefaultMaxRedirects = 20

// Options holds the user-facing request options before resolution.
//
// Start from DefaultOptions, or let Resolve do so, and override fields
// with Option functions. The zero value of Timeout and MaxSize means the
// corresponding limit is disabled.
type Options struct {
	// Method is the HTTP method. Resolve upper-cases it, and the empty
	// string means GET.
	Method string `validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`

	// Header holds user-supplied request headers.
	Header *header.Headers `validate:"-"`

	// Query holds parameters merged into the URL query string.
	Query url.Values `validate:"-"`

	// Body is the request body: nil (absent), a string (text), a []byte
	// (binary) or an io.Reader (stream, sent at most once).
	Body interface{} `validate:"-"`

	// Timeout bounds each hop. Zero disables the deadline.
	Timeout time.Duration `validate:"gte=0"`

	// MaxRedirects is the maximum number of redirects followed.
	MaxRedirects int `validate:"gte=0"`

	// MaxSize is the decoded response body ceiling in bytes. Zero
	// disables the ceiling.
	MaxSize int64 `validate:"gte=0"`

	// FollowRedirects enables redirect following.
	FollowRedirects bool
}

// DefaultOptions returns the defaults every resolution starts from:
// GET, no body, follow up to DefaultMaxRedirects redirects, and no
// timeout or size ceiling.
func DefaultOptions() Options {
	return Options{
		Method:          "GET",
		MaxRedirects:    DefaultMaxRedirects,
		FollowRedirects: true,
	}
}

// Option is a functional option applied over DefaultOptions by Resolve.
type Option func(*Options) error

// WithMethod sets the HTTP method.
func WithMethod(method string) Option {
	return func(o *Options) error {
		o.Method = method
		return nil
	}
}

// WithHeader appends a request header value.
func WithHeader(name, value string) Option {
	return func(o *Options) error {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Field: "Header", Reason: "empty header name"}
		}
		if o.Header == nil {
			o.Header = header.New()
		}
		o.Header.Append(name, value)
		return nil
	}
}

// WithHeaders appends every header in the map. Names are applied in
// sorted order so resolution stays deterministic.
func WithHeaders(headers map[string][]string) Option {
	return func(o *Options) error {
		names := make([]string, 0, len(headers))
		for name := range headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, v := range headers[name] {
				if err := WithHeader(name, v)(o); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) Option {
	return func(o *Options) error {
		if o.Query == nil {
			o.Query = url.Values{}
		}
		o.Query.Add(key, value)
		return nil
	}
}

// WithQueryValues adds every query parameter in values.
func WithQueryValues(values url.Values) Option {
	return func(o *Options) error {
		for k, vs := range values {
			for _, v := range vs {
				if err := WithQuery(k, v)(o); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// WithBody sets the request body. See Options.Body for accepted types.
func WithBody(body interface{}) Option {
	return func(o *Options) error {
		o.Body = body
		return nil
	}
}

// WithJSON sets the request body to the JSON encoding of v. Unless a
// Content-Type header is supplied, the resolved request carries
// "application/json".
func WithJSON(v interface{}) Option {
	return func(o *Options) error {
		b, err := json.Marshal(v)
		if err != nil {
			return &ValidationError{Field: "Body", Reason: "cannot encode JSON", Err: err}
		}
		o.Body = jsonBody(b)
		return nil
	}
}

// WithTimeout sets the per-hop timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) error {
		o.Timeout = d
		return nil
	}
}

// WithMaxRedirects sets the maximum number of redirects followed.
func WithMaxRedirects(n int) Option {
	return func(o *Options) error {
		o.MaxRedirects = n
		return nil
	}
}

// WithMaxSize sets the decoded response body ceiling. Zero disables it.
func WithMaxSize(n int64) Option {
	return func(o *Options) error {
		o.MaxSize = n
		return nil
	}
}

// WithFollowRedirects enables or disables redirect following.
func WithFollowRedirects(follow bool) Option {
	return func(o *Options) error {
		o.FollowRedirects = follow
		return nil
	}
}

// WithBasicAuth sets the Authorization header to use HTTP Basic
// Authentication with the provided username and password.
func WithBasicAuth(username, password string) Option {
	return func(o *Options) error {
		if o.Header == nil {
			o.Header = header.New()
		}
		o.Header.Set("Authorization", "Basic "+basicAuth(username, password))
		return nil
	}
}

// basicAuth is lifted verbatim from net/http/client.go.
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}
