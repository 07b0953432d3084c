// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to extend it with custom
// functionality such as metrics or tracing.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before the
	// plan execution starts.
	//
	// When Client fires BeforeExecutionStart, the execution is in the
	// Sending state, its ID and plan are set, and its start time is
	// not yet set.
	BeforeExecutionStart Event = iota
	// BeforeHop identifies the event that occurs before each hop's
	// HTTP request is handed to the transport, including every hop
	// that follows a redirect.
	//
	// When Client fires BeforeHop, the execution's Request field is set
	// to the request that WILL BE sent after all BeforeHop handlers
	// have finished, and its URL field is the hop's URL. Handlers may
	// add headers to the request, but should not replace its body.
	BeforeHop
	// AfterHopTimeout identifies the event that occurs after a hop
	// failed because its deadline expired.
	//
	// When Client fires AfterHopTimeout, the execution's Err field is
	// set to the *request.TimeoutError.
	AfterHopTimeout
	// AfterHeaders identifies the event that occurs after a hop's
	// response headers are received and before the status is
	// classified as a redirect or a final response.
	//
	// When Client fires AfterHeaders, the execution's Response field is
	// set to the hop's response. Handlers must not read its body.
	AfterHeaders
	// BeforeRedirect identifies the event that occurs after a redirect
	// has been accepted and the previous hop released, but before the
	// next hop starts.
	//
	// When Client fires BeforeRedirect, the execution's hop counter and
	// redirect chain already include the redirect, and its URL field is
	// the redirect target.
	BeforeRedirect
	// AfterExecutionEnd identifies the event that occurs after the plan
	// execution ends, whether it is Done or Failed.
	//
	// When Client fires AfterExecutionEnd, the execution is in a
	// terminal state and its end time is set. If the execution is Done,
	// the final response body has not been read yet.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeHop",
	"AfterHopTimeout",
	"AfterHeaders",
	"BeforeRedirect",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur in a
// plan execution by Client, in the order in which they would occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeHop,
		AfterHopTimeout,
		AfterHeaders,
		BeforeRedirect,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
