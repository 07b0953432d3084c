// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package redirect

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gogama/httpipe/request"
)

// Is reports whether status is one of the redirect status codes the
// engine follows: 301, 302, 303, 307 and 308.
func Is(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// Rewrite returns the method for the hop that follows a redirect with
// the given status, and whether the request body must be dropped.
//
// A 303 always becomes GET. A 301 or 302 answering a POST becomes GET,
// matching what browsers do after a form submission. Every other
// combination, including any 307 or 308, keeps the method and body.
func Rewrite(status int, method string) (string, bool) {
	switch status {
	case http.StatusSeeOther:
		return http.MethodGet, true
	case http.StatusMovedPermanently, http.StatusFound:
		if method == http.MethodPost {
			return http.MethodGet, true
		}
	}
	return method, false
}

// Target resolves a Location header value against the URL of the hop
// that returned it. Both absolute and relative references are accepted,
// but the result must be an http or https URL with a host.
func Target(base *url.URL, location string) (*url.URL, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return nil, &request.ValidationError{
			Field:  "Location",
			Reason: fmt.Sprintf("cannot parse %q", location),
			Err:    err,
		}
	}

	u := base.ResolveReference(ref)
	if err = request.CheckURL(u); err != nil {
		return nil, &request.ValidationError{
			Field:  "Location",
			Reason: fmt.Sprintf("cannot follow %q", location),
			Err:    err,
		}
	}
	return u, nil
}

// Next applies the redirect rules to the redirect response currently
// held by e, returning the plan for the following hop. cur is the plan
// that produced the current hop; it is never modified. The rules are
// applied in order:
//
// 1. If e has already followed MaxRedirects redirects, fail with a
// RedirectLimitError naming the original URL.
//
// 2. If the response has no Location header, fail with a
// RedirectMissingLocationError.
//
// 3. Rewrite the method and drop the body as Rewrite dictates. A hop
// which keeps its method cannot replay a streamed body that was already
// sent, and fails with a ValidationError.
//
// 4. Record the hop and resolve the Location against the current URL.
// When the target is neither the current host nor one of its
// subdomains, the credential headers Authorization, Www-Authenticate,
// Cookie and Cookie2 are removed from the next hop.
//
// Next never touches the response body; releasing the previous hop is
// the caller's job, whether or not Next returns an error.
func Next(e *request.Execution, cur *request.Plan) (*request.Plan, error) {
	if e.Exhausted() {
		return nil, &request.RedirectLimitError{
			URL: e.Plan.URL.String(),
			Max: e.Plan.MaxRedirects,
		}
	}

	status := e.StatusCode()
	location := strings.TrimSpace(e.Header().Get("Location"))
	if location == "" {
		return nil, &request.RedirectMissingLocationError{
			URL:        e.URL.String(),
			StatusCode: status,
		}
	}

	next := cur.Clone()
	method, drop := Rewrite(status, cur.Method)
	next.Method = method
	if drop {
		next.Body = nil
		next.BodyStream = nil
		next.Header.Delete("Content-Length")
		next.Header.Delete("Content-Type")
	} else if cur.BodyStream != nil {
		return nil, &request.ValidationError{
			Field:  "Body",
			Reason: fmt.Sprintf("streamed body cannot be replayed after %d redirect", status),
		}
	}

	u, err := Target(e.URL, location)
	if err != nil {
		return nil, err
	}

	if !sameDomain(e.URL, u) {
		for _, name := range sensitiveHeaders {
			next.Header.Delete(name)
		}
	}

	e.Hops++
	e.Chain = append(e.Chain, request.Hop{
		URL:        e.URL.String(),
		StatusCode: status,
		Location:   location,
	})
	next.URL = u
	return next, nil
}

var sensitiveHeaders = []string{"Authorization", "Www-Authenticate", "Cookie", "Cookie2"}

// sameDomain reports whether to is from's host or a subdomain of it.
func sameDomain(from, to *url.URL) bool {
	src := strings.ToLower(from.Hostname())
	dst := strings.ToLower(to.Hostname())
	if src == dst {
		return true
	}
	return strings.HasSuffix(dst, "."+src)
}
