// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

// field names one little-endian u64 word of a numeric header.
type field uint8

const (
	fieldMagic field = iota
	fieldBucketCount
	fieldNanosPerBucket
	fieldMaxSample
	fieldMinSample
	fieldOverflows
	fieldSum
	fieldSampleCount
	fieldCurrentIndex
)

// text names one fixed-width, NUL-terminated text field that follows the
// numeric header in a full decode.
type text uint8

const (
	textDescription text = iota
	textXAxis
)

// layout describes the header of one variant.  Words are stored in order
// starting at offset 0 (the magic is always the first word); texts follow
// immediately after the last word.
type layout struct {
	magic uint64
	words []field
	texts []text
}

// Adding a variant means adding a Variant constant and an entry here.
var layouts = map[Variant]layout{
	CountingHistogram: {
		magic: MagicCountingHistogram,
		words: []field{
			fieldMagic,
			fieldBucketCount,
			fieldMaxSample,
			fieldMinSample,
			fieldOverflows,
			fieldSum,
			fieldSampleCount,
		},
		texts: []text{textDescription, textXAxis},
	},
	TimeBucketedHistogram: {
		magic: MagicTimeBucketedHistogram,
		words: []field{
			fieldMagic,
			fieldNanosPerBucket,
			fieldBucketCount,
			fieldMaxSample,
			fieldMinSample,
			fieldOverflows,
			fieldSum,
			fieldSampleCount,
		},
		texts: []text{textDescription},
	},
	RateCounter: {
		magic: MagicRateCounter,
		words: []field{
			fieldMagic,
			fieldNanosPerBucket,
			fieldBucketCount,
			fieldCurrentIndex,
		},
		texts: []text{textDescription},
	},
}

func (l layout) size(full bool) int {
	n := len(l.words) * wordSize
	if full {
		n += len(l.texts) * textSize
	}
	return n
}

// EncodedSize returns the number of header bytes read for variant v, or 0
// if v is not a known variant.
func EncodedSize(v Variant, full bool) int {
	l, ok := layouts[v]
	if !ok {
		return 0
	}
	return l.size(full)
}
