// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package snapshottest writes synthetic snapshot files for tests, laid out
// the way the profiler lays out its shared memory files.
package snapshottest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpowers/histview/internal/schema"
)

// WriteFile creates name under dir holding the full header h followed by
// data at schema.DataOffset, and returns its path.
func WriteFile(t testing.TB, dir, name string, h schema.Header, data []int64) string {
	t.Helper()

	path := filepath.Join(dir, name)
	buf := make([]byte, schema.DataOffset+8*len(data))
	require.NoError(t, h.MarshalTo(buf, true))
	putData(buf[schema.DataOffset:], data)
	require.NoError(t, os.WriteFile(path, buf, 0644))
	return path
}

// WriteBadMagic creates a file whose first word is magic, followed by
// enough zeros to look like a real snapshot.
func WriteBadMagic(t testing.TB, dir, name string, magic uint64) string {
	t.Helper()

	path := filepath.Join(dir, name)
	buf := make([]byte, schema.DataOffset+8)
	binary.LittleEndian.PutUint64(buf[:8], magic)
	require.NoError(t, os.WriteFile(path, buf, 0644))
	return path
}

// OverwriteHeader rewrites the numeric and text header in place, the way
// the producer updates it.
func OverwriteHeader(t testing.TB, path string, h schema.Header) {
	t.Helper()

	buf := make([]byte, schema.EncodedSize(h.Variant, true))
	require.NoError(t, h.MarshalTo(buf, true))
	writeAt(t, path, buf, 0)
}

// OverwriteData rewrites the payload in place.
func OverwriteData(t testing.TB, path string, data []int64) {
	t.Helper()

	buf := make([]byte, 8*len(data))
	putData(buf, data)
	writeAt(t, path, buf, schema.DataOffset)
}

// Truncate cuts the file at size bytes.
func Truncate(t testing.TB, path string, size int64) {
	t.Helper()
	require.NoError(t, os.Truncate(path, size))
}

func putData(buf []byte, data []int64) {
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:8*(i+1)], uint64(v))
	}
}

func writeAt(t testing.TB, path string, buf []byte, off int64) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()
	_, err = f.WriteAt(buf, off)
	require.NoError(t, err)
}
