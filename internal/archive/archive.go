// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package archive records every polled snapshot to a parquet file so a
// session can be inspected after the producer is gone.
package archive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"go.uber.org/multierr"

	"github.com/bpowers/histview/internal/logging"
	"github.com/bpowers/histview/internal/poller"
)

var ErrWriterClosed = errors.New("archive writer closed")

// Row is one poll of one source.  Failed polls carry only the source,
// elapsed time and error.
type Row struct {
	Source        string  `parquet:"source,dict"`
	ElapsedMs     int64   `parquet:"elapsed_ms"`
	Variant       string  `parquet:"variant,dict"`
	Samples       int64   `parquet:"samples"`
	Overflows     int64   `parquet:"overflows"`
	Sum           int64   `parquet:"sum"`
	Mean          float64 `parquet:"mean"`
	CurrentIndex  int64   `parquet:"current_index"`
	Unchanged     bool    `parquet:"unchanged"`
	ProducerReset bool    `parquet:"producer_reset"`
	Buckets       []int64 `parquet:"buckets"`
	Error         string  `parquet:"error,optional"`
}

// RowFromResult flattens a poll result.
func RowFromResult(r poller.Result) Row {
	row := Row{
		Source:    r.Source,
		ElapsedMs: r.Elapsed.Milliseconds(),
	}
	if r.Err != nil {
		row.Error = r.Err.Error()
		return row
	}
	h := r.Header
	row.Variant = h.Variant.String()
	row.Samples = h.SampleCount
	row.Overflows = h.Overflows
	row.Sum = h.Sum
	row.Mean = h.Mean()
	row.CurrentIndex = int64(h.CurrentIndex)
	row.Unchanged = r.Unchanged
	row.ProducerReset = r.ProducerReset
	row.Buckets = append([]int64(nil), r.Data...)
	return row
}

// Codec maps a configured compression name to a parquet codec.  Unknown
// names fall back to zstd.
func Codec(name string) compress.Codec {
	switch name {
	case "none":
		return &parquet.Uncompressed
	case "snappy":
		return &parquet.Snappy
	case "lz4":
		return &parquet.Lz4Raw
	case "gzip":
		return &parquet.Gzip
	default:
		return &parquet.Zstd
	}
}

// Writer is a poller.Sink appending one Row per result.  Write errors
// can't be returned from Emit; the first one is logged, later rows are
// dropped and Close reports it.
type Writer struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[Row]
	log      *slog.Logger
	rowCount int64
	err      error
	closed   bool
}

// Create truncates path and starts a new archive there.
func Create(path, compression string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	return &Writer{
		path:   path,
		file:   f,
		writer: parquet.NewGenericWriter[Row](f, parquet.Compression(Codec(compression))),
		log:    logging.Component("archive").With("path", path),
	}, nil
}

func (w *Writer) Emit(r poller.Result) {
	if err := w.Write(RowFromResult(r)); err != nil && !errors.Is(err, ErrWriterClosed) {
		w.log.Debug("dropped archive row", "source", r.Source, "error", err)
	}
}

// Write appends rows.
func (w *Writer) Write(rows ...Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	if w.err != nil {
		return w.err
	}
	n, err := w.writer.Write(rows)
	w.rowCount += int64(n)
	if err != nil {
		w.err = fmt.Errorf("write rows: %w", err)
		w.log.Error("archive write failed, further rows are dropped", "error", err)
		return w.err
	}
	return nil
}

func (w *Writer) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

func (w *Writer) Path() string {
	return w.path
}

// Close writes the footer and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err := w.err
	if cerr := w.writer.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close writer: %w", cerr))
	}
	return multierr.Append(err, w.file.Close())
}

// ReadAll loads every row of an archive.
func ReadAll(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := parquet.NewGenericReader[Row](f)
	defer func() { _ = reader.Close() }()

	rows := make([]Row, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return rows[:n], nil
}
