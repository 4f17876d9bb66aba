// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package render draws polled snapshots.  A Renderer receives one Record
// per source per tick, in registration order, and keeps nothing between
// calls.
package render

import (
	"fmt"
	"time"

	"github.com/bpowers/histview/internal/config"
	"github.com/bpowers/histview/internal/delta"
	"github.com/bpowers/histview/internal/poller"
	"github.com/bpowers/histview/internal/snapshot"
)

// YAxisLabel is the same for every variant.
const YAxisLabel = "#samples"

// Record is everything needed to draw one source for one tick.
type Record struct {
	Source string
	// Label is "<elapsed> : <description>".
	Label      string
	XAxisUnit  string
	YAxisLabel string
	Series     snapshot.Data
	Summary    delta.Summary
	// Stats is the one-line summary shown under the label.
	Stats string

	Unchanged     bool
	ProducerReset bool
	Err           error

	Display config.Display
}

type Renderer interface {
	Render(records []Record) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func([]Record) error

func (f RendererFunc) Render(records []Record) error { return f(records) }

// FromResult turns a poll result into a Record.  The series is shared
// with the result, not copied.
func FromResult(r poller.Result, d config.Display) Record {
	rec := Record{
		Source:     r.Source,
		YAxisLabel: YAxisLabel,
		Err:        r.Err,
		Display:    d,
	}
	if r.Err != nil {
		rec.Label = fmt.Sprintf("%s : %s", formatElapsed(r.Elapsed), r.Source)
		rec.Stats = r.Err.Error()
		return rec
	}

	rec.Label = fmt.Sprintf("%s : %s", formatElapsed(r.Elapsed), r.Full.Description)
	rec.XAxisUnit = r.Full.XAxisLabel()
	rec.Series = r.Data
	rec.Summary = delta.Summarize(r.Header, r.Data)
	rec.Stats = rec.Summary.String()
	rec.Unchanged = r.Unchanged
	rec.ProducerReset = r.ProducerReset
	return rec
}

func formatElapsed(d time.Duration) string {
	return d.Truncate(time.Millisecond).String()
}
