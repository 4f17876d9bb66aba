// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package delta

import (
	"fmt"
	"math"
	"strconv"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/bpowers/histview/internal/schema"
	"github.com/bpowers/histview/internal/snapshot"
)

// quantileAccuracy is the relative accuracy of bucket quantiles.
const quantileAccuracy = 0.01

// Summary holds the statistics shown next to a plot.  Median, StdDev and
// the quantiles are in bucket units.
type Summary struct {
	Variant      schema.Variant
	Samples      int64
	Min          float64
	Max          float64
	Mean         float64
	Overflows    int64
	CurrentIndex uint64

	Median int
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
}

// Summarize derives display statistics from a (possibly delta) header and
// its payload.
func Summarize(h schema.Header, data snapshot.Data) Summary {
	s := Summary{
		Variant:      h.Variant,
		CurrentIndex: h.CurrentIndex,
	}
	if h.Variant == schema.RateCounter {
		return s
	}

	s.Samples = h.SampleCount
	s.Min = h.MinUnits()
	s.Max = h.MaxUnits()
	s.Mean = h.Mean()
	s.Overflows = h.Overflows
	s.Median = median(h.SampleCount, data)
	s.StdDev = stdDev(h, data)
	s.P50, s.P90, s.P99 = quantiles(data)
	return s
}

// median is the first bucket at which the running count reaches half
// the samples.
func median(samples int64, data snapshot.Data) int {
	half := samples / 2
	var sum int64
	for i, v := range data {
		sum += v
		if sum >= half {
			return i
		}
	}
	return 0
}

// stdDev is the spread of the bucket distribution around the mean, with
// the mean converted to bucket units first.
func stdDev(h schema.Header, data snapshot.Data) float64 {
	scale := float64(1)
	if h.Variant == schema.TimeBucketedHistogram {
		scale = float64(h.NanosPerBucket)
	}
	if h.SampleCount <= 0 || scale == 0 {
		return 0
	}

	average := float64(h.Sum) / float64(h.SampleCount) / scale
	var sum float64
	for i, v := range data {
		d := float64(i) - average
		sum += d * d * float64(v)
	}
	if sum <= 0 {
		return 0
	}
	return math.Sqrt(sum / float64(h.SampleCount))
}

// quantiles sketches the bucket distribution.  Negative buckets (only
// possible after a producer reset) carry no weight.
func quantiles(data snapshot.Data) (p50, p90, p99 float64) {
	sketch, err := ddsketch.NewDefaultDDSketch(quantileAccuracy)
	if err != nil {
		return 0, 0, 0
	}
	for i, v := range data {
		if v <= 0 {
			continue
		}
		if err := sketch.AddWithCount(float64(i), float64(v)); err != nil {
			return 0, 0, 0
		}
	}
	if sketch.IsEmpty() {
		return 0, 0, 0
	}
	qs, err := sketch.GetValuesAtQuantiles([]float64{0.50, 0.90, 0.99})
	if err != nil {
		return 0, 0, 0
	}
	return qs[0], qs[1], qs[2]
}

// String is the one-line stats legend.
func (s Summary) String() string {
	if s.Variant == schema.RateCounter {
		return fmt.Sprintf("currentIndex: %d", s.CurrentIndex)
	}
	return fmt.Sprintf("samples: %d, min: %s, max: %s, mean: %s, #overflows: %d",
		s.Samples, formatFloat(s.Min), formatFloat(s.Max), formatFloat(s.Mean), s.Overflows)
}

// Detail extends String with the bucket distribution statistics.
func (s Summary) Detail() string {
	if s.Variant == schema.RateCounter {
		return s.String()
	}
	return fmt.Sprintf("%s, median: %d, std: %s, p50: %s, p90: %s, p99: %s",
		s.String(), s.Median, formatFloat(round2(s.StdDev)),
		formatFloat(round2(s.P50)), formatFloat(round2(s.P90)), formatFloat(round2(s.P99)))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
