// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package snapshot reads the files a profiling process keeps overwriting
// with its latest histogram or rate counter state.
//
// A snapshot file looks like:
//
//	0                                         4096
//	+----------------+------------------------+-----------------------+
//	| header         | unused                 | buckets []u64         |
//	+----------------+------------------------+-----------------------+
//
// The header starts with an 8-byte magic identifying its layout (see
// package schema).  The payload always starts at byte 4096, no matter how
// large the header is, and holds bucketCount little-endian u64 words.
//
// The producer writes to the file while we read it and there is no lock
// between us: a header and the payload read right after it may observe
// different generations.  Callers should treat a (header, data) pair as
// approximately, not exactly, synchronized.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/bpowers/histview/internal/schema"
)

const maxBuckets = 1 << 24

var (
	ErrNotFound = errors.New("snapshot file not found")
	ErrIO       = errors.New("i/o error")
	ErrClosed   = errors.New("source closed")
)

type options struct {
	mmap bool
}

type Option func(*options)

// WithMmap reads the file through a shared read-only mapping instead of
// pread(2).
func WithMmap() Option {
	return func(o *options) {
		o.mmap = true
	}
}

// Source is one open snapshot file.  A Source owns its file handle and is
// not safe for concurrent use.
type Source struct {
	path    string
	backend backend
	full    schema.Header
	codec   dataCodec
	closed  bool
}

// Open opens path, identifies its variant and decodes the full header.
// The bucket count of that header fixes the payload width for the
// lifetime of the Source.
func Open(path string, opts ...Option) (s *Source, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var b backend
	if o.mmap {
		b, err = openMmapBackend(path)
	} else {
		b, err = openFileBackend(path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	variant, err := schema.Identify(b, path)
	if err != nil {
		return nil, classify(path, err)
	}
	full, err := schema.DecodeHeader(b, variant, true)
	if err != nil {
		return nil, classify(path, err)
	}
	codec, err := newDataCodec(full.BucketCount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if b.Size() < codec.end() {
		return nil, fmt.Errorf("%w: %s is %d bytes, payload of %d buckets needs %d",
			schema.ErrTruncated, path, b.Size(), codec.len, codec.end())
	}

	return &Source{
		path:    path,
		backend: b,
		full:    full,
		codec:   codec,
	}, nil
}

// classify leaves protocol errors alone and tags everything else as an
// I/O failure.
func classify(path string, err error) error {
	switch {
	case errors.Is(err, schema.ErrUnsupportedMagic),
		errors.Is(err, schema.ErrInvalidText),
		errors.Is(err, schema.ErrMagicChanged),
		errors.Is(err, schema.ErrTruncated),
		errors.Is(err, ErrClosed):
		return fmt.Errorf("%s: %w", path, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
}

// Path identifies the source.
func (s *Source) Path() string {
	return s.path
}

func (s *Source) Variant() schema.Variant {
	return s.full.Variant
}

// FullHeader returns the header decoded at Open, including text fields.
func (s *Source) FullHeader() schema.Header {
	return s.full
}

// BucketCount is the payload width fixed at Open.
func (s *Source) BucketCount() int {
	return s.codec.len
}

// ReadHeader re-reads the header.  A live (full == false) read skips the
// text fields.  The magic is re-checked on every read; a change is a
// protocol error.
func (s *Source) ReadHeader(full bool) (schema.Header, error) {
	if s.closed {
		return schema.Header{}, ErrClosed
	}
	h, err := schema.DecodeHeader(s.backend, s.full.Variant, full)
	if err != nil {
		return schema.Header{}, classify(s.path, err)
	}
	return h, nil
}

// ReadData reads the bucket payload.
func (s *Source) ReadData() (Data, error) {
	data, _, err := s.readData()
	return data, err
}

func (s *Source) readData() (Data, uint64, error) {
	if s.closed {
		return nil, 0, ErrClosed
	}
	buf := make([]byte, s.codec.size())
	n, err := s.backend.ReadAt(buf, s.codec.off)
	if n < len(buf) {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%s: %w: payload read %d of %d bytes", s.path, schema.ErrTruncated, n, len(buf))
		}
		return nil, 0, classify(s.path, err)
	}
	return s.codec.decode(buf)
}

// ReadSnapshot reads the live header followed by the payload.
func (s *Source) ReadSnapshot() (Snapshot, error) {
	h, err := s.ReadHeader(false)
	if err != nil {
		return Snapshot{}, err
	}
	data, fingerprint, err := s.readData()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Header:      h,
		Data:        data,
		Fingerprint: fingerprint,
	}, nil
}

// Close releases the file handle.  It is safe to call more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.Close()
}
