// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Header is a decoded snapshot header.  Which fields are meaningful
// depends on Variant:
//
//	CountingHistogram:     BucketCount, MinSample, MaxSample, Overflows, Sum,
//	                       SampleCount, Description, XAxisDescription
//	TimeBucketedHistogram: the above minus XAxisDescription, plus NanosPerBucket
//	RateCounter:           BucketCount, NanosPerBucket, CurrentIndex, Description
//
// The cumulative counters are signed: a header produced by subtracting a
// baseline may legitimately go negative.
type Header struct {
	Variant Variant
	// Full is set when the text fields were decoded.
	Full bool

	BucketCount uint64
	// NanosPerBucket is the samples-per-bucket scale of a time bucketed
	// histogram, or the width of one rate counter slot.
	NanosPerBucket uint64
	MinSample      uint64
	MaxSample      uint64
	CurrentIndex   uint64

	SampleCount int64
	Overflows   int64
	Sum         int64

	Description      string
	XAxisDescription string
}

func (h *Header) word(f field) uint64 {
	switch f {
	case fieldMagic:
		return h.Variant.Magic()
	case fieldBucketCount:
		return h.BucketCount
	case fieldNanosPerBucket:
		return h.NanosPerBucket
	case fieldMaxSample:
		return h.MaxSample
	case fieldMinSample:
		return h.MinSample
	case fieldOverflows:
		return uint64(h.Overflows)
	case fieldSum:
		return uint64(h.Sum)
	case fieldSampleCount:
		return uint64(h.SampleCount)
	case fieldCurrentIndex:
		return h.CurrentIndex
	}
	panic(fmt.Sprintf("unknown header field %d", f))
}

func (h *Header) setWord(f field, v uint64) {
	switch f {
	case fieldMagic:
		// checked by the caller
	case fieldBucketCount:
		h.BucketCount = v
	case fieldNanosPerBucket:
		h.NanosPerBucket = v
	case fieldMaxSample:
		h.MaxSample = v
	case fieldMinSample:
		h.MinSample = v
	case fieldOverflows:
		h.Overflows = int64(v)
	case fieldSum:
		h.Sum = int64(v)
	case fieldSampleCount:
		h.SampleCount = int64(v)
	case fieldCurrentIndex:
		h.CurrentIndex = v
	default:
		panic(fmt.Sprintf("unknown header field %d", f))
	}
}

func (h *Header) text(t text) *string {
	if t == textXAxis {
		return &h.XAxisDescription
	}
	return &h.Description
}

// DecodeHeader reads and decodes the header of variant v from the start
// of r.  Text fields are only read when full is set.
func DecodeHeader(r io.ReaderAt, v Variant, full bool) (Header, error) {
	l, ok := layouts[v]
	if !ok {
		return Header{}, fmt.Errorf("decode header: unknown variant %s", v)
	}
	buf := make([]byte, l.size(full))
	if err := readAt(r, buf, 0); err != nil {
		return Header{}, fmt.Errorf("read %s header: %w", v, err)
	}
	var h Header
	if err := h.unmarshal(l, v, buf, full); err != nil {
		return Header{}, err
	}
	return h, nil
}

// UnmarshalBytes decodes a header of variant v from headerBytes.
func (h *Header) UnmarshalBytes(v Variant, headerBytes []byte, full bool) error {
	l, ok := layouts[v]
	if !ok {
		return fmt.Errorf("unmarshal header: unknown variant %s", v)
	}
	if len(headerBytes) < l.size(full) {
		return fmt.Errorf("%w: headerBytes too short: %d < %d", ErrTruncated, len(headerBytes), l.size(full))
	}
	return h.unmarshal(l, v, headerBytes, full)
}

func (h *Header) unmarshal(l layout, v Variant, buf []byte, full bool) error {
	*h = Header{Variant: v, Full: full}

	for i, f := range l.words {
		word := binary.LittleEndian.Uint64(buf[i*wordSize : (i+1)*wordSize])
		if f == fieldMagic && word != l.magic {
			return fmt.Errorf("%w: expected %#x, found %#x", ErrMagicChanged, l.magic, word)
		}
		h.setWord(f, word)
	}

	if !full {
		return nil
	}
	off := len(l.words) * wordSize
	for _, t := range l.texts {
		s, err := decodeText(buf[off : off+textSize])
		if err != nil {
			return err
		}
		*h.text(t) = s
		off += textSize
	}
	return nil
}

// MarshalTo encodes h into buf using its variant's layout.  buf must be
// at least EncodedSize(h.Variant, full) bytes.
func (h *Header) MarshalTo(buf []byte, full bool) error {
	l, ok := layouts[h.Variant]
	if !ok {
		return fmt.Errorf("marshal header: unknown variant %s", h.Variant)
	}
	if len(buf) < l.size(full) {
		return fmt.Errorf("buf too short: %d < %d", len(buf), l.size(full))
	}
	for i, f := range l.words {
		binary.LittleEndian.PutUint64(buf[i*wordSize:(i+1)*wordSize], h.word(f))
	}
	if !full {
		return nil
	}
	off := len(l.words) * wordSize
	for _, t := range l.texts {
		s := *h.text(t)
		if len(s) > textSize {
			return fmt.Errorf("text field %q longer than %d bytes", s, textSize)
		}
		field := buf[off : off+textSize]
		n := copy(field, s)
		for i := n; i < textSize; i++ {
			field[i] = 0
		}
		off += textSize
	}
	return nil
}

// decodeText truncates a fixed-width field at the first NUL.
func decodeText(field []byte) (string, error) {
	b, _, _ := bytes.Cut(field, []byte{0})
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %q is not utf-8", ErrInvalidText, b)
	}
	return string(b), nil
}
