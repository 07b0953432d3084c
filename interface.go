// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"context"
	"net/url"

	"github.com/gogama/httpipe/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do executes a request plan and returns the final response (or an
// error). Client implements the Doer interface, and any other Doer
// implementation must behave substantially the same as Client.Do.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Doer interface {
	Do(p *request.Plan) (*Response, error)
}

// Fetcher is the interface that wraps the basic Fetch method.
//
// Fetch resolves a request plan from a URL and request options,
// executes it, and returns the final response (or an error). Client
// implements the Fetcher interface.
//
// Any Doer can be used to emulate a Fetcher via the Fetch function.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts ...request.Option) (*Response, error)
}

// Getter is the interface that wraps the basic Get method.
//
// Any Doer can be used to emulate a Getter via the Get function.
type Getter interface {
	Get(url string) (*Response, error)
}

// Header is the interface that wraps the basic Head method.
//
// Any Doer can be used to emulate a Header via the Head function.
type Header interface {
	Head(url string) (*Response, error)
}

// Poster is the interface that wraps the basic Post method.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.WithBody, namely: string; []byte; and
// io.Reader.
//
// Any Doer can be used to emulate a Poster via the Post function.
type Poster interface {
	Post(url, contentType string, body interface{}) (*Response, error)
}

// FormPoster is the interface that wraps the basic PostForm method.
//
// The request body is set to the URL-encoded keys and values from data,
// and the content type is set to application/x-www-form-urlencoded.
//
// Any Doer can be used to emulate a FormPoster via the PostForm
// function.
type FormPoster interface {
	PostForm(url string, data url.Values) (*Response, error)
}

// Executor is the interface that groups the basic Do, Fetch, Get,
// Head, Post and PostForm methods.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Executor interface {
	Doer
	Fetcher
	Getter
	Header
	Poster
	FormPoster
}

// Fetch uses the specified Doer to execute the plan resolved from
// rawURL and opts. Resolution errors are returned without calling d.
func Fetch(ctx context.Context, d Doer, rawURL string, opts ...request.Option) (*Response, error) {
	p, err := request.Resolve(ctx, rawURL, opts...)
	if err != nil {
		return nil, err
	}
	return d.Do(p)
}

// Get uses the specified Doer to issue a GET to the specified URL,
// using the same policies as d.Do.
func Get(d Doer, url string) (*Response, error) {
	return Fetch(context.Background(), d, url)
}

// Head uses the specified Doer to issue a HEAD to the specified URL,
// using the same policies as d.Do.
func Head(d Doer, url string) (*Response, error) {
	return Fetch(context.Background(), d, url, request.WithMethod("HEAD"))
}

// Post uses the specified Doer to issue a POST to the specified URL,
// using the same policies as d.Do.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.WithBody, namely: string; []byte; and
// io.Reader.
func Post(d Doer, url, contentType string, body interface{}) (*Response, error) {
	opts := []request.Option{
		request.WithMethod("POST"),
		request.WithBody(body),
	}
	if contentType != "" {
		opts = append(opts, request.WithHeader("Content-Type", contentType))
	}
	return Fetch(context.Background(), d, url, opts...)
}

// PostForm uses the specified Doer to issue a POST to the specified URL,
// with data's keys and values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
func PostForm(d Doer, url string, data url.Values) (*Response, error) {
	return Post(d, url, "application/x-www-form-urlencoded", data.Encode())
}

// Inflate converts any non-nil Doer into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to a Doer needs to call a function that requires an
// Executor.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("httpipe: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(p *request.Plan) (*Response, error) {
	return i.doer.Do(p)
}

func (i inflated) Fetch(ctx context.Context, rawURL string, opts ...request.Option) (*Response, error) {
	return Fetch(ctx, i.doer, rawURL, opts...)
}

func (i inflated) Get(url string) (*Response, error) {
	return Get(i.doer, url)
}

func (i inflated) Head(url string) (*Response, error) {
	return Head(i.doer, url)
}

func (i inflated) Post(url, contentType string, body interface{}) (*Response, error) {
	return Post(i.doer, url, contentType, body)
}

func (i inflated) PostForm(url string, data url.Values) (*Response, error) {
	return PostForm(i.doer, url, data)
}
