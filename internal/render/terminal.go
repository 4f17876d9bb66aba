// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/bpowers/histview/internal/config"
	"github.com/bpowers/histview/internal/schema"
	"github.com/bpowers/histview/internal/snapshot"
)

const (
	defaultWidth = 80
	// label, percentage and count columns eat roughly this much
	barPadding = 36
	minBar     = 10
)

var colorAttrs = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

var (
	errorMarker = color.New(color.FgRed, color.Bold)
	warnMarker  = color.New(color.FgYellow)
	faint       = color.New(color.Faint)
)

// Terminal draws each record as a horizontal bar histogram followed by a
// summary table of all sources.
type Terminal struct {
	w     io.Writer
	width int
	clear bool
}

type TerminalOption func(*Terminal)

// WithWidth fixes the output width instead of asking the terminal.
func WithWidth(width int) TerminalOption {
	return func(t *Terminal) { t.width = width }
}

// WithClear redraws from the top-left corner on every frame.
func WithClear(clear bool) TerminalOption {
	return func(t *Terminal) { t.clear = clear }
}

func NewTerminal(w io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{w: w}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) Render(records []Record) error {
	var buf bytes.Buffer
	if t.clear {
		buf.WriteString("\x1b[H\x1b[2J")
	}

	width := t.termWidth()
	for _, rec := range records {
		if err := t.renderRecord(&buf, rec, width); err != nil {
			return err
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(summaryTable(records))
	buf.WriteByte('\n')

	_, err := t.w.Write(buf.Bytes())
	return err
}

func (t *Terminal) termWidth() int {
	if t.width > 0 {
		return t.width
	}
	if f, ok := t.w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return defaultWidth
}

func (t *Terminal) renderRecord(w io.Writer, rec Record, width int) error {
	attr, ok := colorAttrs[rec.Display.Color]
	if !ok {
		attr = colorAttrs[config.DefaultColor]
	}
	c := color.New(attr)

	if rec.Display.Title != "" {
		color.New(attr, color.Bold).Fprintln(w, rec.Display.Title)
	}
	if rec.Err != nil {
		fmt.Fprintf(w, "%s %s\n", errorMarker.Sprint("ERROR"), rec.Label)
		fmt.Fprintf(w, "  %s\n", rec.Err)
		return nil
	}

	fmt.Fprintln(w, rec.Label)
	fmt.Fprintf(w, "%s", rec.Stats)
	if rec.Unchanged {
		fmt.Fprintf(w, " %s", faint.Sprint("(unchanged)"))
	}
	if rec.ProducerReset {
		fmt.Fprintf(w, " %s", warnMarker.Sprint("(negative delta, producer reset?)"))
	}
	fmt.Fprintf(w, "\n%s\n", faint.Sprint(rec.Source))

	if len(rec.Series) == 0 {
		return nil
	}

	rows := histogramRows(rec.Display.Figsize)
	h, negative := Histogram(rec.Series, rows)
	bar := width - barPadding
	if bar < minBar {
		bar = minBar
	}
	var plot bytes.Buffer
	if err := histogram.Fprintf(&plot, h, histogram.Linear(bar), formatBucket); err != nil {
		return fmt.Errorf("draw %s: %w", rec.Source, err)
	}
	c.Fprint(w, plot.String())
	fmt.Fprintf(w, "  x: %s, y: %s\n", rec.XAxisUnit, rec.YAxisLabel)
	if negative {
		fmt.Fprintf(w, "  %s\n", warnMarker.Sprint("negative buckets drawn as empty"))
	}
	return nil
}

// histogramRows derives the row count from the height hint, four rows per
// unit.
func histogramRows(figsize [2]float64) int {
	rows := int(figsize[1] * 4)
	if rows < 1 {
		rows = int(config.DefaultFigsize[1] * 4)
	}
	return rows
}

func formatBucket(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// Histogram folds series into at most rows bars of consecutive buckets,
// with bar bounds in bucket indices.  Negative counts are drawn as zero
// and reported through negative.
func Histogram(series snapshot.Data, rows int) (h histogram.Histogram, negative bool) {
	if len(series) == 0 || rows <= 0 {
		return histogram.Histogram{}, false
	}
	if rows > len(series) {
		rows = len(series)
	}
	per := (len(series) + rows - 1) / rows

	for lo := 0; lo < len(series); lo += per {
		hi := lo + per
		if hi > len(series) {
			hi = len(series)
		}
		var count int64
		for _, v := range series[lo:hi] {
			if v < 0 {
				negative = true
				continue
			}
			count += v
		}
		b := histogram.Bucket{Count: int(count), Min: float64(lo), Max: float64(hi)}
		h.Buckets = append(h.Buckets, b)
		h.Count += b.Count
		if b.Count > h.Max {
			h.Max = b.Count
		}
	}
	// the scale runs from zero, not from the smallest bar
	h.Min = 0
	if h.Count == 0 {
		h.Count = 1
	}
	return h, negative
}

func summaryTable(records []Record) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Source", "Variant", "Samples", "Mean", "Median", "Std", "P50", "P90", "P99", "Status"})
	for i, rec := range records {
		if rec.Err != nil {
			tw.AppendRow(table.Row{i + 1, rec.Source, "", "", "", "", "", "", "", "", errorMarker.Sprint("error")})
			continue
		}
		s := rec.Summary
		status := "ok"
		switch {
		case rec.ProducerReset:
			status = warnMarker.Sprint("reset")
		case rec.Unchanged:
			status = "unchanged"
		}
		if s.Variant == schema.RateCounter {
			tw.AppendRow(table.Row{i + 1, rec.Source, s.Variant, "", "", "", "", "", "", "", status})
			continue
		}
		tw.AppendRow(table.Row{
			i + 1, rec.Source, s.Variant, s.Samples,
			fmt.Sprintf("%.2f", s.Mean), s.Median,
			fmt.Sprintf("%.2f", s.StdDev),
			fmt.Sprintf("%.2f", s.P50), fmt.Sprintf("%.2f", s.P90), fmt.Sprintf("%.2f", s.P99),
			status,
		})
	}
	return tw.Render()
}
