// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package poller re-reads one snapshot source each time it is ticked and
// hands the decoded, optionally baseline-relative result to a Sink.
//
// A Poller has no timer of its own: whoever owns it decides the cadence
// by calling Tick.
package poller

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/bpowers/histview/internal/delta"
	"github.com/bpowers/histview/internal/logging"
	"github.com/bpowers/histview/internal/schema"
	"github.com/bpowers/histview/internal/snapshot"
)

var ErrClosed = errors.New("poller closed")

type State int

const (
	Opened State = iota
	Polling
	Closed
)

func (s State) String() string {
	switch s {
	case Opened:
		return "opened"
	case Polling:
		return "polling"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is what one Tick produced.  When Err is set the other fields
// besides Source and Elapsed are zero.
type Result struct {
	Source  string
	Elapsed time.Duration
	// Full is the header captured at open, with the description text.
	Full   schema.Header
	Header schema.Header
	Data   snapshot.Data
	// Unchanged is set when the payload is byte-for-byte what the previous
	// tick read.
	Unchanged bool
	// ProducerReset is set when a delta went negative.
	ProducerReset bool
	Err           error
}

// Sink consumes results.  A Result may be handed to several sinks, so
// sinks must treat Data as read-only.
type Sink interface {
	Emit(Result)
}

type SinkFunc func(Result)

func (f SinkFunc) Emit(r Result) { f(r) }

// MultiSink fans results out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(r Result) {
	for _, s := range m {
		s.Emit(r)
	}
}

type options struct {
	reset bool
	clock clock.Clock
	log   *slog.Logger
	sink  Sink
}

type Option func(*options)

// WithReset makes every result relative to a baseline captured by New.
func WithReset(reset bool) Option {
	return func(o *options) { o.reset = reset }
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithSink(s Sink) Option {
	return func(o *options) { o.sink = s }
}

// Poller owns one Source.
type Poller struct {
	src      *snapshot.Source
	baseline *delta.Baseline
	clock    clock.Clock
	log      *slog.Logger
	sink     Sink
	opened   time.Time
	state    State

	lastFingerprint uint64
	havePrevious    bool
}

// New takes ownership of src.  If a baseline is requested and can't be
// captured, src is closed and the error returned.
func New(src *snapshot.Source, opts ...Option) (*Poller, error) {
	o := options{
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Component("poller")
	}

	p := &Poller{
		src:   src,
		clock: o.clock,
		log:   o.log.With("path", src.Path(), "variant", src.Variant().String()),
		sink:  o.sink,
	}
	if o.reset {
		base, err := delta.Capture(src)
		if err != nil {
			_ = src.Close()
			return nil, err
		}
		p.baseline = &base
	}
	p.opened = p.clock.Now()
	p.state = Opened
	p.log.Debug("source opened", "buckets", src.BucketCount(), "reset", o.reset)
	return p, nil
}

// Path identifies the polled source.
func (p *Poller) Path() string {
	return p.src.Path()
}

func (p *Poller) State() State {
	return p.state
}

// Tick reads the live header and payload, applies the baseline if there
// is one, and emits the result.  Any failure closes the poller; it is not
// retried.  Ticking a closed poller returns ErrClosed without touching the
// file or the sink.
func (p *Poller) Tick() Result {
	r := Result{
		Source:  p.src.Path(),
		Elapsed: p.clock.Since(p.opened),
	}
	if p.state == Closed {
		r.Err = ErrClosed
		return r
	}
	p.state = Polling

	snap, err := p.src.ReadSnapshot()
	if err != nil {
		return p.fail(r, err)
	}

	// the payload width was fixed by the full header at open
	h := snap.Header
	h.BucketCount = uint64(p.src.BucketCount())
	data := snap.Data
	if p.baseline != nil {
		h, data, err = delta.Apply(h, data, *p.baseline)
		if err != nil {
			return p.fail(r, err)
		}
		if delta.Negative(h, data) {
			r.ProducerReset = true
			p.log.Warn("negative delta against baseline, producer may have reset its counters")
		}
	}

	r.Full = p.src.FullHeader()
	r.Header = h
	r.Data = data
	r.Unchanged = p.havePrevious && snap.Fingerprint == p.lastFingerprint
	p.lastFingerprint = snap.Fingerprint
	p.havePrevious = true

	p.emit(r)
	return r
}

func (p *Poller) fail(r Result, err error) Result {
	r.Err = err
	p.log.Error("poll failed, closing source", "error", err)
	if cerr := p.close(); cerr != nil {
		p.log.Warn("close after failure", "error", cerr)
	}
	p.emit(r)
	return r
}

func (p *Poller) emit(r Result) {
	if p.sink != nil {
		p.sink.Emit(r)
	}
}

func (p *Poller) close() error {
	if p.state == Closed {
		return nil
	}
	p.state = Closed
	return p.src.Close()
}

// Close releases the source.
func (p *Poller) Close() error {
	return p.close()
}
