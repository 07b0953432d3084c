// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package download

import (
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/gogama/httpipe/request"
)

// checksumVerifier hashes every byte written to it and compares the
// digest with the expected hex sum once the body is complete. A nil
// verifier accepts any body.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

// Verify reports a *request.ValidationError wrapping
// ErrChecksumMismatch when the digest differs from the expected sum.
func (v *checksumVerifier) Verify() error {
	if v == nil {
		return nil
	}

	actual := hex.EncodeToString(v.hash.Sum(nil))
	if actual != v.expected {
		return &request.ValidationError{
			Field:  "digest",
			Reason: fmt.Sprintf("expected %s, got %s", v.expected, actual),
			Err:    ErrChecksumMismatch,
		}
	}
	return nil
}
