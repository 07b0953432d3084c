// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gogama/httpipe/request"
)

var (
	defaultOnce sync.Once
	defaultRT   *http.Transport
)

// NewTransport returns an *http.Transport set up for the pipeline: one
// connection per request with no keep-alive pooling, no proxy, HTTP/1.1
// only, and no transparent decompression, since the pipeline decodes
// content codings itself.
//
// tlsConfig may be nil, in which case the default TLS configuration is
// used for https hops.
func NewTransport(tlsConfig *tls.Config) *http.Transport {
	return &http.Transport{
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: -1,
		}).DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   10 * time.Second,
		TLSNextProto:          map[string]func(string, *tls.Conn) http.RoundTripper{},
		DisableKeepAlives:     true,
		DisableCompression:    true,
		ForceAttemptHTTP2:     false,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func defaultTransport() http.RoundTripper {
	defaultOnce.Do(func() {
		defaultRT = NewTransport(nil)
	})
	return defaultRT
}

// An Adapter is an http.RoundTripper which hands each request to the
// transport for its URL scheme.
//
// The zero value is ready to use: a nil Plain or Secure transport is
// replaced by a shared transport from NewTransport.
type Adapter struct {
	// Plain sends http requests.
	Plain http.RoundTripper
	// Secure sends https requests.
	Secure http.RoundTripper
}

// RoundTrip sends r using the transport selected by its scheme. Any
// scheme other than http and https is rejected with a
// *request.ValidationError before any I/O.
func (a *Adapter) RoundTrip(r *http.Request) (*http.Response, error) {
	rt, err := a.For(r.URL.Scheme)
	if err != nil {
		if r.Body != nil {
			_ = r.Body.Close()
		}
		return nil, err
	}
	return rt.RoundTrip(r)
}

// For returns the transport for scheme.
func (a *Adapter) For(scheme string) (http.RoundTripper, error) {
	var rt http.RoundTripper
	switch scheme {
	case "http":
		rt = a.Plain
	case "https":
		rt = a.Secure
	default:
		return nil, &request.ValidationError{
			Field:  "URL",
			Reason: fmt.Sprintf("unsupported scheme %q", scheme),
		}
	}
	if rt == nil {
		rt = defaultTransport()
	}
	return rt, nil
}
