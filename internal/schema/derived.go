// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

import (
	"fmt"
	"math"
)

// Mean is Sum/SampleCount rounded to two decimals, or 0 unless the sample
// count is positive.  A delta after a producer reset can have a negative
// count, and that has no meaningful mean.  Rate counters carry no sample
// statistics and always report 0.
func (h Header) Mean() float64 {
	if h.Variant == RateCounter || h.SampleCount <= 0 {
		return 0
	}
	return round2(float64(h.Sum) / float64(h.SampleCount))
}

// MinUnits returns MinSample expressed in buckets of NanosPerBucket.
// Only time bucketed histograms have a scale; everything else reports the
// raw minimum.
func (h Header) MinUnits() float64 {
	return h.asUnits(h.MinSample)
}

// MaxUnits is MinUnits for MaxSample.
func (h Header) MaxUnits() float64 {
	return h.asUnits(h.MaxSample)
}

func (h Header) asUnits(v uint64) float64 {
	if h.Variant != TimeBucketedHistogram {
		return float64(v)
	}
	if h.NanosPerBucket == 0 {
		return 0
	}
	return float64(v) / float64(h.NanosPerBucket)
}

// TimeUnits labels the width of one bucket, empty for counting histograms.
func (h Header) TimeUnits() string {
	if h.Variant == CountingHistogram {
		return ""
	}
	return TimeUnitLabel(h.NanosPerBucket)
}

// XAxisLabel is what a renderer should put under the bucket axis.
func (h Header) XAxisLabel() string {
	if h.Variant == CountingHistogram {
		return h.XAxisDescription
	}
	return h.TimeUnits()
}

// TimeUnitLabel names a nanoseconds-per-bucket scale.
func TimeUnitLabel(nanos uint64) string {
	switch nanos {
	case 1:
		return "nanoseconds"
	case 1000:
		return "microseconds"
	case 1000000:
		return "milliseconds"
	case 1000000000:
		return "seconds"
	}
	return fmt.Sprintf("%d nanos per bucket", nanos)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
