// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package snapshot

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/bpowers/histview/internal/schema"
)

// backend is where a Source reads its bytes from.  It could be provided
// by an mmap of the producer's file, or by pread(2) against it.
type backend interface {
	io.ReaderAt
	Size() int64
	Close() error
}

type fileBackend struct {
	f        *os.File
	size     int64
	isClosed atomic.Bool
}

func openFileBackend(path string) (*fileBackend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("f.Stat: %w", err)
	}

	return &fileBackend{
		f:    f,
		size: stats.Size(),
	}, nil
}

func (b *fileBackend) ReadAt(p []byte, off int64) (int, error) {
	if b.isClosed.Load() {
		return 0, ErrClosed
	}
	return b.f.ReadAt(p, off)
}

func (b *fileBackend) Size() int64 {
	return b.size
}

func (b *fileBackend) Close() error {
	if b.isClosed.Swap(true) {
		return nil
	}
	return b.f.Close()
}

// mmapBackend maps the whole file MAP_SHARED, so every read observes the
// producer's latest writes.  The producer sizes its file once at creation;
// later growth is not picked up.
//
// Touching a mapped page that lies past the end of a truncated file raises
// SIGBUS.  ReadAt clips every read to the file's current size and turns a
// fault that still slips through (the file shrinking between the size
// check and the copy) into schema.ErrTruncated.
type mmapBackend struct {
	f        *os.File
	data     []byte
	isClosed atomic.Bool
}

func openMmapBackend(path string) (*mmapBackend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	size := stats.Size()
	if size <= 0 {
		return &mmapBackend{f: f}, nil
	}
	if int64(int(size)) != size {
		_ = f.Close()
		return nil, fmt.Errorf("file %s too large to mmap: %d", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap(%s): %w", path, err)
	}
	if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		_ = unix.Munmap(data)
		_ = f.Close()
		return nil, fmt.Errorf("madvise: %w", err)
	}

	return &mmapBackend{f: f, data: data}, nil
}

// currentSize is the smaller of the mapping and the file as it is now.
func (b *mmapBackend) currentSize() (int64, error) {
	size := int64(len(b.data))
	if b.f == nil {
		return size, nil
	}
	stats, err := b.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("f.Stat: %w", err)
	}
	if stats.Size() < size {
		size = stats.Size()
	}
	return size, nil
}

func (b *mmapBackend) ReadAt(p []byte, off int64) (n int, err error) {
	if b.isClosed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	size, err := b.currentSize()
	if err != nil {
		return 0, err
	}
	if off >= size {
		return 0, io.EOF
	}
	end := off + int64(len(p))
	if end > size {
		end = size
	}

	n, err = b.copyGuarded(p, off, end)
	if err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// copyGuarded copies data[off:end] into p, recovering from a page fault
// on the mapping.
func (b *mmapBackend) copyGuarded(p []byte, off, end int64) (n int, err error) {
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); !ok {
				panic(r)
			}
			n, err = 0, fmt.Errorf("%w: mapping faulted reading offset %d: %v", schema.ErrTruncated, off, r)
		}
	}()
	return copy(p, b.data[off:end]), nil
}

func (b *mmapBackend) Size() int64 {
	return int64(len(b.data))
}

func (b *mmapBackend) Close() error {
	if b.isClosed.Swap(true) {
		return nil
	}
	var err error
	if b.data != nil {
		data := b.data
		b.data = nil
		err = unix.Munmap(data)
	}
	if b.f != nil {
		if cerr := b.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
