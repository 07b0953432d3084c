// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package header

import (
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// managed lists the header names whose values are computed by the
// pipeline itself and are never taken from user input.
var managed = map[string]bool{
	"content-length":    true,
	"host":              true,
	"transfer-encoding": true,
}

// Managed reports whether the named header is system-managed. The
// resolver strips managed headers from user-supplied header sets, since
// their values are always computed downstream.
func Managed(name string) bool {
	return managed[fold(name)]
}

// Headers is an ordered, case-insensitive, multi-value collection of
// HTTP header fields.
//
// Names are folded to lower case on entry and kept in first-insertion
// order. The zero value is an empty collection ready to use, and a nil
// *Headers is safe for every read-only method.
type Headers struct {
	entries []entry
}

type entry struct {
	name   string
	values []string
}

// New returns an empty header collection.
func New() *Headers {
	return &Headers{}
}

// FromHTTP builds a header collection from a net/http header map. Since
// map iteration order is random, names are inserted in sorted order so
// the result is deterministic.
func FromHTTP(h http.Header) *Headers {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	hs := &Headers{entries: make([]entry, 0, len(names))}
	for _, name := range names {
		for _, v := range h[name] {
			hs.Append(name, v)
		}
	}
	return hs
}

// Set replaces all existing values for name with the single value.
func (h *Headers) Set(name, value string) {
	if i := h.index(name); i >= 0 {
		h.entries[i].values = []string{value}
		return
	}
	h.entries = append(h.entries, entry{name: fold(name), values: []string{value}})
}

// Append adds value to the values already held for name.
func (h *Headers) Append(name, value string) {
	if i := h.index(name); i >= 0 {
		h.entries[i].values = append(h.entries[i].values, value)
		return
	}
	h.entries = append(h.entries, entry{name: fold(name), values: []string{value}})
}

// Get returns the first value for name, and whether name is present.
func (h *Headers) Get(name string) (string, bool) {
	if i := h.index(name); i >= 0 && len(h.entries[i].values) > 0 {
		return h.entries[i].values[0], true
	}
	return "", false
}

// Value returns the first value for name, or the empty string.
func (h *Headers) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

// Values returns a copy of every value held for name.
func (h *Headers) Values(name string) []string {
	i := h.index(name)
	if i < 0 {
		return nil
	}
	vs := make([]string, len(h.entries[i].values))
	copy(vs, h.entries[i].values)
	return vs
}

// Has reports whether name is present, ignoring case.
func (h *Headers) Has(name string) bool {
	return h.index(name) >= 0
}

// Delete removes every value for name.
func (h *Headers) Delete(name string) {
	if i := h.index(name); i >= 0 {
		h.entries = append(h.entries[:i], h.entries[i+1:]...)
	}
}

// Len returns the number of distinct header names.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Names returns the lower-case header names in insertion order.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}
	names := make([]string, len(h.entries))
	for i := range h.entries {
		names[i] = h.entries[i].name
	}
	return names
}

// Each calls fn for every header name, in insertion order.
func (h *Headers) Each(fn func(name string, values []string)) {
	if h == nil {
		return
	}
	for _, e := range h.entries {
		fn(e.name, e.values)
	}
}

// Clone returns a deep copy of h. Cloning a nil collection yields an
// empty, non-nil one.
func (h *Headers) Clone() *Headers {
	c := &Headers{}
	if h == nil {
		return c
	}
	c.entries = make([]entry, len(h.entries))
	for i, e := range h.entries {
		vs := make([]string, len(e.values))
		copy(vs, e.values)
		c.entries[i] = entry{name: e.name, values: vs}
	}
	return c
}

// Raw exports the collection as a net/http header map keyed by
// canonical MIME header names, preserving multiple values, for handing
// to a transport.
func (h *Headers) Raw() http.Header {
	raw := make(http.Header, h.Len())
	h.Each(func(name string, values []string) {
		key := textproto.CanonicalMIMEHeaderKey(name)
		raw[key] = append(raw[key], values...)
	})
	return raw
}

func (h *Headers) index(name string) int {
	if h == nil {
		return -1
	}
	name = fold(name)
	for i := range h.entries {
		if h.entries[i].name == name {
			return i
		}
	}
	return -1
}

func fold(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
