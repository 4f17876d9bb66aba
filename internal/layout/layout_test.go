// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package layout

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/histview/internal/config"
	"github.com/bpowers/histview/internal/poller"
	"github.com/bpowers/histview/internal/render"
	"github.com/bpowers/histview/internal/schema"
	"github.com/bpowers/histview/internal/snapshot"
	"github.com/bpowers/histview/internal/snapshottest"
)

func countingHist() schema.Header {
	return schema.Header{
		Variant:          schema.CountingHistogram,
		BucketCount:      4,
		SampleCount:      4,
		Sum:              6,
		MaxSample:        3,
		Description:      "sizes",
		XAxisDescription: "bytes",
	}
}

func timeHist() schema.Header {
	return schema.Header{
		Variant:        schema.TimeBucketedHistogram,
		BucketCount:    3,
		NanosPerBucket: 1000,
		MinSample:      10,
		MaxSample:      90,
		Overflows:      1,
		Sum:            300,
		SampleCount:    10,
		Description:    "test",
	}
}

func rateCounter() schema.Header {
	return schema.Header{
		Variant:        schema.RateCounter,
		BucketCount:    2,
		NanosPerBucket: 1000000000,
		Description:    "requests",
	}
}

func TestLayout_OneBadSourceAmongThree(t *testing.T) {
	for _, mmap := range []bool{false, true} {
		t.Run(fmt.Sprintf("mmap=%v", mmap), func(t *testing.T) {
			dir := t.TempDir()
			paths := []string{
				snapshottest.WriteFile(t, dir, "counting.shm", countingHist(), []int64{1, 1, 1, 1}),
				snapshottest.WriteBadMagic(t, dir, "corrupt.shm", 0xdeadbeef),
				snapshottest.WriteFile(t, dir, "time.shm", timeHist(), []int64{1, 2, 3}),
				snapshottest.WriteFile(t, dir, "rate.shm", rateCounter(), []int64{5, 0}),
			}
			lengths := map[string]int{paths[0]: 4, paths[2]: 3, paths[3]: 2}

			mock := clock.NewMock()
			l := New(WithMmap(mmap), WithClock(mock))
			defer func() { require.NoError(t, l.Close()) }()

			for _, p := range paths {
				err := l.Add(config.Source{Path: p})
				if p == paths[1] {
					assert.True(t, errors.Is(err, schema.ErrUnsupportedMagic))
				} else {
					require.NoError(t, err)
				}
			}
			require.Equal(t, 4, l.Len())

			for tick := int64(1); tick <= 3; tick++ {
				for p, n := range lengths {
					data := make([]int64, n)
					for i := range data {
						data[i] = tick * int64(i+1)
					}
					snapshottest.OverwriteData(t, p, data)
				}
				mock.Add(time.Second)

				results := l.Tick()
				require.Len(t, results, 4)
				for i, r := range results {
					assert.Equal(t, paths[i], r.Source)
				}

				assert.True(t, errors.Is(results[1].Err, schema.ErrUnsupportedMagic))
				for _, i := range []int{0, 2, 3} {
					r := results[i]
					require.NoError(t, r.Err)
					assert.False(t, r.Unchanged, "source %s went stale on tick %d", r.Source, tick)
					assert.Equal(t, tick, r.Data[0])
					assert.Equal(t, time.Duration(tick)*time.Second, r.Elapsed)
				}
			}

			// the producer of time.shm shrinks its file mid-stream; only
			// that source fails, on this tick and every later one
			snapshottest.Truncate(t, paths[2], 16)
			for tick := int64(4); tick <= 5; tick++ {
				for _, p := range []string{paths[0], paths[3]} {
					data := make([]int64, lengths[p])
					data[0] = tick
					snapshottest.OverwriteData(t, p, data)
				}

				results := l.Tick()
				require.Len(t, results, 4)
				assert.True(t, errors.Is(results[1].Err, schema.ErrUnsupportedMagic))
				assert.True(t, errors.Is(results[2].Err, schema.ErrTruncated), "tick %d: %v", tick, results[2].Err)
				for _, i := range []int{0, 3} {
					require.NoError(t, results[i].Err)
					assert.Equal(t, tick, results[i].Data[0])
				}
			}
		})
	}
}

func TestLayout_FailureIsSticky(t *testing.T) {
	dir := t.TempDir()
	good := snapshottest.WriteFile(t, dir, "good.shm", timeHist(), []int64{1, 2, 3})
	doomed := snapshottest.WriteFile(t, dir, "doomed.shm", timeHist(), []int64{1, 2, 3})
	broken := snapshottest.WriteBadMagic(t, dir, "broken.shm", 0xdeadbeef)

	var emitted []poller.Result
	l := New(WithSink(poller.SinkFunc(func(r poller.Result) { emitted = append(emitted, r) })))
	defer func() { require.NoError(t, l.Close()) }()
	require.NoError(t, l.Add(config.Source{Path: good}))
	require.NoError(t, l.Add(config.Source{Path: doomed}))
	assert.True(t, errors.Is(l.Add(config.Source{Path: broken}), schema.ErrUnsupportedMagic))

	snapshottest.WriteBadMagic(t, dir, "doomed.shm", 0x0BADBABE00000009)
	for i := 0; i < 3; i++ {
		results := l.Tick()
		require.Len(t, results, 3)
		require.NoError(t, results[0].Err)
		assert.True(t, errors.Is(results[1].Err, schema.ErrMagicChanged), "tick %d: %v", i, results[1].Err)
		assert.True(t, errors.Is(results[2].Err, schema.ErrUnsupportedMagic), "tick %d: %v", i, results[2].Err)
	}

	// open and mid-stream failures both reach the sink once; good
	// results every tick
	failures := map[string]int{}
	var ok int
	for _, r := range emitted {
		if r.Err != nil {
			failures[r.Source]++
		} else {
			ok++
		}
	}
	assert.Equal(t, map[string]int{doomed: 1, broken: 1}, failures)
	assert.Equal(t, 3, ok)
	assert.Len(t, emitted, 5)
}

func TestLayout_ResetSource(t *testing.T) {
	path := snapshottest.WriteFile(t, t.TempDir(), "hist.shm", timeHist(), []int64{1, 2, 3})
	l := New()
	defer func() { require.NoError(t, l.Close()) }()
	require.NoError(t, l.Add(config.Source{Path: path, Reset: true}))

	snapshottest.OverwriteData(t, path, []int64{2, 4, 6})
	results := l.Tick()
	require.NoError(t, results[0].Err)
	assert.Equal(t, snapshot.Data{1, 2, 3}, results[0].Data)
}

func TestLayout_PollAndRender(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Backend = config.BackendMmap
	cfg.AddPaths([]string{
		snapshottest.WriteFile(t, dir, "time.shm", timeHist(), []int64{1, 2, 3}),
		dir + "/missing.shm",
	}, false, config.Display{Color: "red", Title: "latency"})

	l := FromConfig(cfg)
	defer func() { require.NoError(t, l.Close()) }()

	var got []render.Record
	err := l.PollAndRender(render.RendererFunc(func(recs []render.Record) error {
		got = recs
		return nil
	}))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.NoError(t, got[0].Err)
	assert.Equal(t, "microseconds", got[0].XAxisUnit)
	assert.Equal(t, "red", got[0].Display.Color)
	assert.Equal(t, "latency", got[0].Display.Title)
	assert.Equal(t, snapshot.Data{1, 2, 3}, got[0].Series)

	assert.True(t, errors.Is(got[1].Err, snapshot.ErrNotFound))
}

func TestLayout_RenderError(t *testing.T) {
	l := New()
	want := errors.New("boom")
	err := l.PollAndRender(render.RendererFunc(func([]render.Record) error { return want }))
	assert.Equal(t, want, err)
	assert.NoError(t, l.Close())
}
