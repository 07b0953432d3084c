// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package redirect holds the protocol rules the engine applies when a
// hop answers with a redirect status.
//
// Is classifies status codes, Rewrite decides how the method and body
// change, Target resolves the Location header, and Next combines them
// into the plan for the following hop while keeping the execution's hop
// counter and redirect chain current:
//
//     if redirect.Is(e.StatusCode()) && plan.FollowRedirects {
//         next, err := redirect.Next(e, cur)
//         ...
//     }
//
// Redirect following is bounded by Plan.MaxRedirects. Exceeding the
// bound is a terminal RedirectLimitError, never a retry.
package redirect
