// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package config

import "time"

const (
	// DefaultInterval is how often every source is polled and redrawn.
	// Override via config: interval, or --interval.
	DefaultInterval = time.Second

	// DefaultBackend reads snapshot files with pread(2).
	// Override via config: backend (pread or mmap), or --mmap.
	DefaultBackend = BackendPread

	// DefaultColor is used for sources without a color hint.
	DefaultColor = "blue"

	// DefaultLogLevel. Override via config: log.level, or --log-level.
	DefaultLogLevel = "info"

	// DefaultArchiveCompression applies when archive.path is set.
	DefaultArchiveCompression = "zstd"

	// MinInterval keeps a misconfigured viewer from spinning on the files.
	MinInterval = 10 * time.Millisecond
)

// DefaultFigsize mirrors the width and height hint of a single plot.
var DefaultFigsize = [2]float64{20, 5}
