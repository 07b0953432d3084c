// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package header provides the case-insensitive, multi-value header store
// used by every other part of the request pipeline.
//
// Headers keeps an ordered list of (lower-case name, values) pairs rather
// than a map, so that iteration order is the insertion order and case
// folding is explicit:
//
//	h := header.New()
//	h.Set("Accept", "*/*")
//	h.Append("Cache-Control", "no-cache")
//	h.Append("cache-control", "no-store")
//	v, ok := h.Get("ACCEPT") // "*/*", true
//	req.Header = h.Raw()
package header
