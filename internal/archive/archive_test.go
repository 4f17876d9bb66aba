// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package archive

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/histview/internal/poller"
	"github.com/bpowers/histview/internal/schema"
	"github.com/bpowers/histview/internal/snapshot"
)

func result() poller.Result {
	h := schema.Header{
		Variant:        schema.TimeBucketedHistogram,
		BucketCount:    3,
		NanosPerBucket: 1000,
		Overflows:      1,
		Sum:            300,
		SampleCount:    10,
	}
	return poller.Result{
		Source:  "/dev/shm/test.shm",
		Elapsed: 1500 * time.Millisecond,
		Header:  h,
		Data:    snapshot.Data{1, -2, 3},
	}
}

func TestRowFromResult(t *testing.T) {
	r := result()
	row := RowFromResult(r)
	assert.Equal(t, Row{
		Source:    "/dev/shm/test.shm",
		ElapsedMs: 1500,
		Variant:   "TimeBucketedHistogram",
		Samples:   10,
		Overflows: 1,
		Sum:       300,
		Mean:      30,
		Buckets:   []int64{1, -2, 3},
	}, row)

	// the row owns its buckets
	r.Data[0] = 99
	assert.Equal(t, int64(1), row.Buckets[0])

	failed := RowFromResult(poller.Result{Source: "x", Err: schema.ErrTruncated})
	assert.Equal(t, "x", failed.Source)
	assert.Equal(t, schema.ErrTruncated.Error(), failed.Error)
	assert.Empty(t, failed.Buckets)
}

func TestWriter_RoundTrip(t *testing.T) {
	for _, compression := range []string{"none", "snappy", "zstd", "lz4", "gzip"} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "hist.parquet")
			w, err := Create(path, compression)
			require.NoError(t, err)
			assert.Equal(t, path, w.Path())

			var sink poller.Sink = w
			sink.Emit(result())
			sink.Emit(poller.Result{Source: "/dev/shm/bad.shm", Elapsed: time.Second, Err: schema.ErrUnsupportedMagic})
			assert.Equal(t, int64(2), w.RowCount())
			require.NoError(t, w.Close())
			require.NoError(t, w.Close())

			rows, err := ReadAll(path)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "/dev/shm/test.shm", rows[0].Source)
			assert.Equal(t, []int64{1, -2, 3}, rows[0].Buckets)
			assert.Equal(t, 30.0, rows[0].Mean)
			assert.Equal(t, "", rows[0].Error)
			assert.Equal(t, "/dev/shm/bad.shm", rows[1].Source)
			assert.NotEmpty(t, rows[1].Error)
		})
	}
}

func TestWriter_Closed(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "hist.parquet"), "zstd")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.Write(RowFromResult(result()))
	assert.True(t, errors.Is(err, ErrWriterClosed))

	// Emit after close is silently dropped
	w.Emit(result())
	assert.Equal(t, int64(0), w.RowCount())
}

func TestReadAll_Missing(t *testing.T) {
	_, err := ReadAll(filepath.Join(t.TempDir(), "missing.parquet"))
	assert.Error(t, err)
}
