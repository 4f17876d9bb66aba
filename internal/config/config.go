// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package config loads the viewer configuration: which snapshot files to
// watch, how to read them and how to draw them.
//
//	interval: 1s
//	backend: mmap
//	log:
//	  level: info
//	archive:
//	  path: /var/tmp/hist.parquet
//	sources:
//	  - path: ${SHM_DIR}/shmFile_basic_1.shm
//	    color: red
//	    title: basic
//	    reset: true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	BackendPread = "pread"
	BackendMmap  = "mmap"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Colors are the display color hints a renderer understands.
var Colors = []string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

type Config struct {
	Interval time.Duration `yaml:"interval"`
	Backend  string        `yaml:"backend"`
	Log      Log           `yaml:"log"`
	Archive  Archive       `yaml:"archive"`
	Sources  []Source      `yaml:"sources"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Archive struct {
	// Path of a parquet file every polled snapshot is appended to.  Empty
	// disables archiving.
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

// Source is one snapshot file to watch.  Reset selects delta mode: the
// first snapshot becomes the zero point.
type Source struct {
	Path    string `yaml:"path"`
	Reset   bool   `yaml:"reset"`
	Display `yaml:",inline"`
}

// Display holds rendering hints; none of them affect decoding.
type Display struct {
	Color   string     `yaml:"color"`
	Title   string     `yaml:"title"`
	Figsize [2]float64 `yaml:"figsize"`
}

// Default returns a configuration with no sources.
func Default() *Config {
	return &Config{
		Interval: DefaultInterval,
		Backend:  DefaultBackend,
		Log: Log{
			Level: DefaultLogLevel,
		},
		Archive: Archive{
			Compression: DefaultArchiveCompression,
		},
	}
}

// Load reads a YAML config file, expanding ${VAR} references first.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes a config from r on top of Default.  Unknown keys are an
// error.
func Parse(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AddPaths appends a source for each path, sharing one display hint and
// reset mode.
func (c *Config) AddPaths(paths []string, reset bool, display Display) {
	for _, p := range paths {
		c.Sources = append(c.Sources, Source{Path: p, Reset: reset, Display: display})
	}
	c.ApplyDefaults()
}

// ApplyDefaults fills zero values left by the file or flags.
func (c *Config) ApplyDefaults() {
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Archive.Compression == "" {
		c.Archive.Compression = DefaultArchiveCompression
	}
	for i := range c.Sources {
		d := &c.Sources[i].Display
		if d.Color == "" {
			d.Color = DefaultColor
		}
		if d.Figsize == [2]float64{} {
			d.Figsize = DefaultFigsize
		}
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var err error
	if c.Interval < MinInterval {
		err = multierr.Append(err, fmt.Errorf("%w: interval %s below %s", ErrInvalidConfig, c.Interval, MinInterval))
	}
	if c.Backend != BackendPread && c.Backend != BackendMmap {
		err = multierr.Append(err, fmt.Errorf("%w: backend %q, want %q or %q", ErrInvalidConfig, c.Backend, BackendPread, BackendMmap))
	}
	switch c.Archive.Compression {
	case "none", "snappy", "zstd", "lz4", "gzip":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: archive compression %q", ErrInvalidConfig, c.Archive.Compression))
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Path == "" {
			err = multierr.Append(err, fmt.Errorf("%w: sources[%d]: missing path", ErrInvalidConfig, i))
			continue
		}
		if seen[s.Path] {
			err = multierr.Append(err, fmt.Errorf("%w: sources[%d]: %s listed twice", ErrInvalidConfig, i, s.Path))
		}
		seen[s.Path] = true
		if s.Color != "" && !validColor(s.Color) {
			err = multierr.Append(err, fmt.Errorf("%w: sources[%d]: unknown color %q", ErrInvalidConfig, i, s.Color))
		}
		if s.Figsize[0] < 0 || s.Figsize[1] < 0 {
			err = multierr.Append(err, fmt.Errorf("%w: sources[%d]: negative figsize", ErrInvalidConfig, i))
		}
	}
	return err
}

func validColor(c string) bool {
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}
