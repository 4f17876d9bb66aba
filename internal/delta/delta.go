// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package delta turns cumulative snapshots into snapshots relative to a
// baseline captured when a source was opened, so a viewer can show what
// happened since it started watching rather than since the producer did.
package delta

import (
	"errors"
	"fmt"

	"github.com/bpowers/histview/internal/schema"
	"github.com/bpowers/histview/internal/snapshot"
)

var (
	ErrLengthMismatch  = errors.New("bucket count differs from baseline")
	ErrVariantMismatch = errors.New("variant differs from baseline")
)

// Baseline is the zero point deltas are computed against.
type Baseline struct {
	Header schema.Header
	Data   snapshot.Data
}

// Capture reads the full header and the payload of src.
func Capture(src *snapshot.Source) (Baseline, error) {
	h, err := src.ReadHeader(true)
	if err != nil {
		return Baseline{}, fmt.Errorf("capture baseline header: %w", err)
	}
	data, err := src.ReadData()
	if err != nil {
		return Baseline{}, fmt.Errorf("capture baseline data: %w", err)
	}
	return Baseline{Header: h, Data: data}, nil
}

// Apply subtracts base from the current header and payload.
//
// The cumulative counters (samples, overflows, sum) are subtracted and the
// mean follows from them.  Bucket count, min and max, the time scale and
// the text fields are descriptive and come from the baseline unchanged;
// a rate counter's write index is live state and comes from cur.  Results
// can be negative and are returned as-is.
func Apply(cur schema.Header, curData snapshot.Data, base Baseline) (schema.Header, snapshot.Data, error) {
	bh := base.Header
	if cur.Variant != bh.Variant {
		return schema.Header{}, nil, fmt.Errorf("%w: %s != %s", ErrVariantMismatch, cur.Variant, bh.Variant)
	}
	if cur.BucketCount != bh.BucketCount {
		return schema.Header{}, nil, fmt.Errorf("%w: header has %d buckets, baseline %d", ErrLengthMismatch, cur.BucketCount, bh.BucketCount)
	}
	if len(curData) != len(base.Data) {
		return schema.Header{}, nil, fmt.Errorf("%w: payload has %d buckets, baseline %d", ErrLengthMismatch, len(curData), len(base.Data))
	}

	h := bh
	h.CurrentIndex = cur.CurrentIndex
	h.SampleCount = cur.SampleCount - bh.SampleCount
	h.Overflows = cur.Overflows - bh.Overflows
	h.Sum = cur.Sum - bh.Sum

	data := make(snapshot.Data, len(curData))
	for i := range curData {
		data[i] = curData[i] - base.Data[i]
	}
	return h, data, nil
}

// Negative reports whether any counter or bucket went below zero, which
// after Apply usually means the producer restarted or reset its counters
// independently of us.
func Negative(h schema.Header, data snapshot.Data) bool {
	if h.SampleCount < 0 || h.Overflows < 0 || h.Sum < 0 {
		return true
	}
	for _, v := range data {
		if v < 0 {
			return true
		}
	}
	return false
}
