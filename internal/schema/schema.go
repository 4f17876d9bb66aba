// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	MagicCountingHistogram     = 0x0BADBABE00000001
	MagicTimeBucketedHistogram = 0x0BADBABE00000002
	MagicRateCounter           = 0x0BADBABE00000003

	magicSize = 8
	wordSize  = 8
	textSize  = 128

	// DataOffset is where the bucket payload starts, independent of how
	// large a variant's header is.
	DataOffset = 4096
)

var (
	ErrUnsupportedMagic = errors.New("unsupported magic")
	ErrMagicChanged     = errors.New("magic changed")
	ErrInvalidText      = errors.New("invalid text field")
	ErrTruncated        = errors.New("truncated header")
)

// UnsupportedMagicError is returned when the first 8 bytes of a source
// don't match any known variant.
type UnsupportedMagicError struct {
	Magic  uint64
	Source string
}

func (e *UnsupportedMagicError) Error() string {
	return fmt.Sprintf("file %s has magic %#x, it's not supported", e.Source, e.Magic)
}

func (e *UnsupportedMagicError) Is(target error) bool {
	return target == ErrUnsupportedMagic
}

// Variant identifies one of the binary layouts a snapshot file can use.
type Variant uint8

const (
	Unknown Variant = iota
	CountingHistogram
	TimeBucketedHistogram
	RateCounter
)

func (v Variant) String() string {
	switch v {
	case CountingHistogram:
		return "CountingHistogram"
	case TimeBucketedHistogram:
		return "TimeBucketedHistogram"
	case RateCounter:
		return "RateCounter"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// Magic returns the on-disk magic for v, or 0 for Unknown.
func (v Variant) Magic() uint64 {
	if l, ok := layouts[v]; ok {
		return l.magic
	}
	return 0
}

// VariantForMagic maps a raw magic value to its variant.
func VariantForMagic(magic uint64) (Variant, bool) {
	for v, l := range layouts {
		if l.magic == magic {
			return v, true
		}
	}
	return Unknown, false
}

// Identify reads the magic at offset 0 of r.  source is only used to
// build error messages.
func Identify(r io.ReaderAt, source string) (Variant, error) {
	var buf [magicSize]byte
	if err := readAt(r, buf[:], 0); err != nil {
		return Unknown, fmt.Errorf("read magic of %s: %w", source, err)
	}
	magic := binary.LittleEndian.Uint64(buf[:])
	v, ok := VariantForMagic(magic)
	if !ok {
		return Unknown, &UnsupportedMagicError{Magic: magic, Source: source}
	}
	return v, nil
}

// readAt fills buf from off, reporting a short read as ErrTruncated.
func readAt(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: read %d of %d bytes at offset %d", ErrTruncated, n, len(buf), off)
	}
	return err
}
