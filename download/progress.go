// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package download

import (
	"io"
	"time"
)

// progressWriter reports a Progress after every write.
type progressWriter struct {
	w           io.Writer
	fn          func(Progress)
	transferred int64
	total       int64
	start       time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.transferred += int64(n)
	if n > 0 {
		pw.fn(pw.snapshot(int64(n)))
	}
	return n, err
}

func (pw *progressWriter) snapshot(delta int64) Progress {
	elapsed := time.Since(pw.start)
	p := Progress{
		Transferred:   pw.transferred,
		Delta:         delta,
		Total:         pw.total,
		Indeterminate: pw.total < 0,
		Elapsed:       elapsed,
	}
	if !p.Indeterminate && pw.total > 0 {
		p.Percent = float64(pw.transferred) / float64(pw.total) * 100
	}
	if s := elapsed.Seconds(); s > 0 {
		p.Rate = float64(pw.transferred) / s
	}
	return p
}
