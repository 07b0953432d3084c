// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

const textContentType = "text/plain;charset=UTF-8"

// jsonBody marks a body produced by WithJSON.
type jsonBody []byte

// body is a classified request body.
type body struct {
	bytes       []byte
	stream      io.Reader
	contentType string
}

// classifyBody sorts a generic body value into replayable bytes or a
// single-use stream, and infers the content type where the body's shape
// allows it:
//
// • nil: no body.
//
// • string: textual, replayable, inferred as text/plain.
//
// • WithJSON output: replayable, inferred as application/json.
//
// • []byte: binary, replayable, no inference.
//
// • io.Reader: stream, single-use, no inference.
//
// Any other type is a ValidationError.
func classifyBody(v interface{}) (body, error) {
	switch x := v.(type) {
	case nil:
		return body{}, nil
	case string:
		return body{bytes: []byte(x), contentType: textContentType}, nil
	case jsonBody:
		return body{bytes: []byte(x), contentType: "application/json"}, nil
	case []byte:
		if x == nil {
			x = []byte{}
		}
		return body{bytes: x}, nil
	case io.Reader:
		return body{stream: x}, nil
	default:
		return body{}, &ValidationError{
			Field:  "Body",
			Reason: fmt.Sprintf("unsupported type %T (use nil, string, []byte or io.Reader)", v),
		}
	}
}

// streamLength returns the length of well-known in-memory readers, the
// same way net/http.NewRequest does, or zero (unknown) otherwise.
func streamLength(r io.Reader) int64 {
	switch v := r.(type) {
	case *bytes.Buffer:
		return int64(v.Len())
	case *bytes.Reader:
		return int64(v.Len())
	case *strings.Reader:
		return int64(v.Len())
	default:
		return 0
	}
}
