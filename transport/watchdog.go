// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"time"
)

// A Watchdog enforces a hop's timeout as an idle timeout. It is armed
// while the hop waits for response headers and during every body read,
// and paused in between, so a body that keeps delivering bytes is never
// cut off however long the whole transfer takes. When the watchdog
// fires it cancels the hop context with context.DeadlineExceeded as the
// cause, which Classify reports as a *request.TimeoutError.
//
// All methods are safe to call on a nil Watchdog.
type Watchdog struct {
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelCauseFunc
}

// NewWatchdog returns a hop context derived from parent and the
// Watchdog guarding it. The watchdog starts armed. A non-positive
// timeout never fires, but Stop still cancels the context.
func NewWatchdog(parent context.Context, timeout time.Duration) (context.Context, *Watchdog) {
	ctx, cancel := context.WithCancelCause(parent)
	w := &Watchdog{timeout: timeout, cancel: cancel}
	if timeout > 0 {
		w.timer = time.AfterFunc(timeout, func() {
			cancel(context.DeadlineExceeded)
		})
	}
	return ctx, w
}

// Arm restarts the full timeout.
func (w *Watchdog) Arm() {
	if w != nil && w.timer != nil {
		w.timer.Reset(w.timeout)
	}
}

// Pause stops the timer without cancelling the context.
func (w *Watchdog) Pause() {
	if w != nil && w.timer != nil {
		w.timer.Stop()
	}
}

// Stop stops the timer and cancels the context, releasing the hop.
func (w *Watchdog) Stop() {
	if w == nil {
		return
	}
	w.Pause()
	w.cancel(context.Canceled)
}
