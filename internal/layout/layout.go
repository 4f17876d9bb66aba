// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package layout polls a fixed, ordered set of sources and hands the
// results to a renderer.  Sources fail independently: a file that can't be
// opened or stops decoding is reported on every tick while the others keep
// polling.
package layout

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/bpowers/histview/internal/config"
	"github.com/bpowers/histview/internal/logging"
	"github.com/bpowers/histview/internal/poller"
	"github.com/bpowers/histview/internal/render"
	"github.com/bpowers/histview/internal/snapshot"
)

type options struct {
	mmap  bool
	clock clock.Clock
	log   *slog.Logger
	sink  poller.Sink
}

type Option func(*options)

// WithMmap reads every source through a shared mapping.
func WithMmap(mmap bool) Option {
	return func(o *options) { o.mmap = mmap }
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithSink receives every result from every source.  A failure, whether at
// open or mid-stream, reaches the sink once; the ticks after it report the
// same error to the renderer without emitting it again.
func WithSink(s poller.Sink) Option {
	return func(o *options) { o.sink = s }
}

type entry struct {
	cfg    config.Source
	poller *poller.Poller
	// err is the open failure, or the tick failure that closed the poller
	err error
	// emitted is set once the open failure has reached the sink
	emitted bool
}

type Layout struct {
	opts    options
	log     *slog.Logger
	entries []*entry
}

func New(opts ...Option) *Layout {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log
	if log == nil {
		log = logging.Component("layout")
	}
	return &Layout{opts: o, log: log}
}

// FromConfig builds a layout with every source in cfg registered.
func FromConfig(cfg *config.Config, opts ...Option) *Layout {
	opts = append([]Option{WithMmap(cfg.Backend == config.BackendMmap)}, opts...)
	l := New(opts...)
	for _, s := range cfg.Sources {
		_ = l.Add(s)
	}
	return l
}

// Add registers a source after the ones already added.  The returned
// error is informational: the source stays registered and reports the
// failure on every tick.
func (l *Layout) Add(cfg config.Source) error {
	e := &entry{cfg: cfg}
	l.entries = append(l.entries, e)

	p, err := l.OpenSource(cfg.Path, cfg.Reset)
	if err != nil {
		e.err = err
		l.log.Warn("source unavailable", "path", cfg.Path, "error", err)
		return err
	}
	e.poller = p
	return nil
}

// OpenSource opens path and wraps it in a poller, capturing a baseline
// when reset is set.  The caller owns the result.
func (l *Layout) OpenSource(path string, reset bool) (*poller.Poller, error) {
	var sopts []snapshot.Option
	if l.opts.mmap {
		sopts = append(sopts, snapshot.WithMmap())
	}
	src, err := snapshot.Open(path, sopts...)
	if err != nil {
		return nil, err
	}

	popts := []poller.Option{
		poller.WithReset(reset),
		poller.WithClock(l.opts.clock),
	}
	if l.opts.log != nil {
		popts = append(popts, poller.WithLogger(l.opts.log))
	}
	if l.opts.sink != nil {
		popts = append(popts, poller.WithSink(l.opts.sink))
	}
	p, err := poller.New(src, popts...)
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", path, err)
	}
	return p, nil
}

// Len is the number of registered sources.
func (l *Layout) Len() int {
	return len(l.entries)
}

// Tick polls every source once, in registration order.  A source that
// failed keeps reporting the error that took it down.
func (l *Layout) Tick() []poller.Result {
	results := make([]poller.Result, len(l.entries))
	for i, e := range l.entries {
		if e.poller == nil {
			r := poller.Result{Source: e.cfg.Path, Err: e.err}
			if l.opts.sink != nil && !e.emitted {
				l.opts.sink.Emit(r)
			}
			e.emitted = true
			results[i] = r
			continue
		}

		r := e.poller.Tick()
		if r.Err != nil {
			if errors.Is(r.Err, poller.ErrClosed) && e.err != nil {
				r.Err = e.err
			} else {
				e.err = r.Err
			}
		}
		results[i] = r
	}
	return results
}

// PollAndRender runs one tick and draws it.
func (l *Layout) PollAndRender(r render.Renderer) error {
	results := l.Tick()
	records := make([]render.Record, len(results))
	for i, res := range results {
		records[i] = render.FromResult(res, l.entries[i].cfg.Display)
	}
	return r.Render(records)
}

// Close releases every open source.
func (l *Layout) Close() error {
	var err error
	for _, e := range l.entries {
		if e.poller != nil {
			err = multierr.Append(err, e.poller.Close())
		}
	}
	return err
}
