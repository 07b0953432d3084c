// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gogama/httpipe/transient"
	"github.com/google/uuid"
)

// A State is a state of the redirect engine's finite-state machine.
type State int

const (
	// Sending is the state in which a hop's request is being handed to
	// the transport. Every execution starts here.
	Sending State = iota
	// AwaitingResponse is the state in which the request has been
	// written and the engine waits for response headers.
	AwaitingResponse
	// Redirecting is the state in which a redirect response is being
	// turned into the next hop.
	Redirecting
	// Decoding is the state in which the final response's content
	// encoding is being wired up.
	Decoding
	// Done is the terminal success state.
	Done
	// Failed is the terminal failure state.
	Failed
)

var stateNames = []string{
	"Sending",
	"AwaitingResponse",
	"Redirecting",
	"Decoding",
	"Done",
	"Failed",
}

// String returns the name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(?)"
	}
	return stateNames[s]
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// A Hop records one followed redirect.
type Hop struct {
	// URL is the URL that answered with the redirect.
	URL string
	// StatusCode is the redirect status code.
	StatusCode int
	// Location is the raw Location header value.
	Location string
}

// An Execution is the state of a single Plan execution: the redirect
// state (hop counter and chain), the state machine position, and once
// the execution is Done, the response metadata.
//
// An Execution is owned by exactly one engine run and is never shared
// across goroutines while in flight. Event handlers may read it and
// store values with SetValue, but should treat exported fields as
// read-only.
type Execution struct {
	// Plan is the plan being executed. It is never nil, and is never
	// modified by the engine.
	Plan *Plan

	// ID uniquely identifies the execution, for log and trace
	// correlation.
	ID string

	// Start is the start time of the execution.
	Start time.Time

	// End is the time the execution reached a terminal state, or zero.
	End time.Time

	// State is the current state machine position.
	State State

	// Hops counts followed redirects. It starts at zero and is
	// incremented exactly once per followed redirect.
	Hops int

	// Chain records each followed redirect in order.
	Chain []Hop

	// URL is the effective URL of the current hop; once Done, the final
	// URL.
	URL *url.URL

	// Request is the HTTP request of the current hop.
	Request *http.Request

	// Response is the HTTP response of the current hop, or nil. Once
	// Done, it is the final response, whose body the engine has
	// replaced with the decoded stream.
	Response *http.Response

	// Err is the terminal error. It is nil unless State is Failed, or
	// a hop has just failed and the engine is about to enter Failed.
	Err error

	data context.Context
}

// NewExecution returns an execution of p in the Sending state.
func NewExecution(p *Plan) *Execution {
	return &Execution{
		Plan: p,
		ID:   uuid.NewString(),
		URL:  p.URL,
	}
}

// Transition moves the execution to state s. Terminal states are never
// left: Transition panics if the execution is already Done or Failed.
// Entering a terminal state sets End.
func (e *Execution) Transition(s State) {
	if e.State.Terminal() {
		panic("httpipe/request: transition from terminal state " + e.State.String())
	}
	e.State = s
	if s.Terminal() {
		e.End = time.Now()
	}
}

// Exhausted reports whether the redirect hop bound has been reached, so
// that one more redirect would fail.
func (e *Execution) Exhausted() bool {
	return e.Hops >= e.Plan.MaxRedirects
}

// StatusCode returns the status code of the current response, or 0.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the headers of the current response, or nil.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has Ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has reached a terminal state.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently contains a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue allows event handlers to store arbitrary data in the
// execution. The key must follow the same rules as the key parameter in
// context.WithValue.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
