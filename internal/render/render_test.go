// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package render

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/histview/internal/config"
	"github.com/bpowers/histview/internal/poller"
	"github.com/bpowers/histview/internal/schema"
	"github.com/bpowers/histview/internal/snapshot"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func timeHistResult() poller.Result {
	h := schema.Header{
		Variant:        schema.TimeBucketedHistogram,
		BucketCount:    3,
		NanosPerBucket: 1000,
		MinSample:      10,
		MaxSample:      90,
		Overflows:      1,
		Sum:            300,
		SampleCount:    10,
	}
	full := h
	full.Full = true
	full.Description = "test"
	return poller.Result{
		Source:  "/dev/shm/test.shm",
		Elapsed: 1500*time.Millisecond + 42*time.Microsecond,
		Full:    full,
		Header:  h,
		Data:    snapshot.Data{1, 2, 3},
	}
}

func TestFromResult(t *testing.T) {
	d := config.Display{Color: "red", Title: "latency"}
	rec := FromResult(timeHistResult(), d)

	assert.Equal(t, "1.5s : test", rec.Label)
	assert.Equal(t, "microseconds", rec.XAxisUnit)
	assert.Equal(t, "#samples", rec.YAxisLabel)
	assert.Equal(t, snapshot.Data{1, 2, 3}, rec.Series)
	assert.Equal(t, "samples: 10, min: 0.01, max: 0.09, mean: 30, #overflows: 1", rec.Stats)
	assert.Equal(t, d, rec.Display)
	assert.NoError(t, rec.Err)
}

func TestFromResult_Counting(t *testing.T) {
	r := timeHistResult()
	r.Full.Variant = schema.CountingHistogram
	r.Full.XAxisDescription = "bytes"
	r.Header.Variant = schema.CountingHistogram

	rec := FromResult(r, config.Display{})
	assert.Equal(t, "bytes", rec.XAxisUnit)
	assert.Equal(t, "samples: 10, min: 10, max: 90, mean: 30, #overflows: 1", rec.Stats)
}

func TestFromResult_Error(t *testing.T) {
	r := poller.Result{
		Source:  "/dev/shm/bad.shm",
		Elapsed: 2 * time.Second,
		Err:     schema.ErrUnsupportedMagic,
	}
	rec := FromResult(r, config.Display{})
	assert.Equal(t, "2s : /dev/shm/bad.shm", rec.Label)
	assert.True(t, errors.Is(rec.Err, schema.ErrUnsupportedMagic))
	assert.Nil(t, rec.Series)
}

func TestHistogram(t *testing.T) {
	h, negative := Histogram(snapshot.Data{1, 2, 3, 4, 5}, 2)
	assert.False(t, negative)
	require.Len(t, h.Buckets, 2)
	assert.Equal(t, 6, h.Buckets[0].Count)
	assert.Equal(t, 0.0, h.Buckets[0].Min)
	assert.Equal(t, 3.0, h.Buckets[0].Max)
	assert.Equal(t, 9, h.Buckets[1].Count)
	assert.Equal(t, 5.0, h.Buckets[1].Max)
	assert.Equal(t, 15, h.Count)
	assert.Equal(t, 0, h.Min)
	assert.Equal(t, 9, h.Max)

	h, _ = Histogram(snapshot.Data{1, 2, 3}, 20)
	assert.Len(t, h.Buckets, 3)
}

func TestHistogram_Negative(t *testing.T) {
	h, negative := Histogram(snapshot.Data{-1, 2, -3}, 3)
	assert.True(t, negative)
	assert.Equal(t, 0, h.Buckets[0].Count)
	assert.Equal(t, 2, h.Buckets[1].Count)
	assert.Equal(t, 0, h.Buckets[2].Count)

	h, negative = Histogram(snapshot.Data{-1, -1}, 2)
	assert.True(t, negative)
	assert.Equal(t, 1, h.Count)
}

func TestHistogram_Empty(t *testing.T) {
	h, negative := Histogram(nil, 10)
	assert.False(t, negative)
	assert.Empty(t, h.Buckets)
}

func TestTerminal_Render(t *testing.T) {
	good := FromResult(timeHistResult(), config.Display{Color: "green", Title: "latency", Figsize: config.DefaultFigsize})
	good.Unchanged = true

	reset := timeHistResult()
	reset.Source = "/dev/shm/reset.shm"
	reset.Data = snapshot.Data{-1, 2, 0}
	reset.ProducerReset = true
	resetRec := FromResult(reset, config.Display{})

	bad := FromResult(poller.Result{Source: "/dev/shm/bad.shm", Err: schema.ErrUnsupportedMagic}, config.Display{})

	var buf bytes.Buffer
	r := NewTerminal(&buf, WithWidth(60))
	require.NoError(t, r.Render([]Record{good, resetRec, bad}))
	out := buf.String()

	assert.Contains(t, out, "latency\n")
	assert.Contains(t, out, "1.5s : test")
	assert.Contains(t, out, "(unchanged)")
	assert.Contains(t, out, "x: microseconds, y: #samples")
	assert.Contains(t, out, "2-3")
	assert.Contains(t, out, "negative buckets drawn as empty")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "/dev/shm/bad.shm")
	assert.Contains(t, out, "/dev/shm/reset.shm")
	assert.False(t, strings.HasPrefix(out, "\x1b[H"))

	// the good source precedes the failed one
	assert.Less(t, strings.Index(out, "1.5s : test"), strings.Index(out, "ERROR"))
}

func TestTerminal_Clear(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminal(&buf, WithClear(true), WithWidth(40))
	require.NoError(t, r.Render(nil))
	assert.True(t, strings.HasPrefix(buf.String(), "\x1b[H\x1b[2J"))
}

func TestRendererFunc(t *testing.T) {
	var got []Record
	var r Renderer = RendererFunc(func(recs []Record) error {
		got = recs
		return nil
	})
	require.NoError(t, r.Render([]Record{{Source: "a"}}))
	assert.Len(t, got, 1)
}
