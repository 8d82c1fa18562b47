// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tailcast/tailcast/archive"
	"github.com/tailcast/tailcast/stream"
)

// Duration is a time.Duration that reads from YAML as a string like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML parses the duration from its string form.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a string like %q", "30s")
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the daemon's configuration file. Every field has a
// default, so an absent file or an empty one is a working setup.
type Config struct {
	// Listen is the HTTP listen address serving the viewer page,
	// the websocket endpoint, and the ingest endpoint.
	Listen string `yaml:"listen"`

	// SocketPath is the Unix socket for the admin surface
	// (tailcast status). Access control is the socket file's
	// permissions.
	SocketPath string `yaml:"socket_path"`

	Queue      QueueConfig      `yaml:"queue"`
	Backlog    BacklogConfig    `yaml:"backlog"`
	Filter     FilterConfig     `yaml:"filter"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Subscriber SubscriberConfig `yaml:"subscriber"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// QueueConfig bounds the ingestion queue.
type QueueConfig struct {
	// Capacity is the maximum number of lines waiting for the
	// broadcaster. Lines arriving beyond it are dropped.
	Capacity int `yaml:"capacity"`
}

// BacklogConfig sizes the replay ring.
type BacklogConfig struct {
	// Lines is how many recent lines a new subscriber receives on
	// connect. Zero disables replay.
	Lines int `yaml:"lines"`
}

// FilterConfig holds the suppression rules.
type FilterConfig struct {
	// Rules are substrings; a line containing any of them never
	// enters the stream. An explicitly empty list forwards
	// everything.
	Rules []string `yaml:"rules"`
}

// IngestConfig controls the producer-facing surfaces.
type IngestConfig struct {
	// Secret, when set, requires POST /ingest callers to present an
	// API key issued from it (Authorization: Bearer <key>). Empty
	// leaves the endpoint open.
	Secret string `yaml:"secret"`

	// TCPListen, when set, accepts raw newline-separated lines on a
	// plaintext TCP listener at this address.
	TCPListen string `yaml:"tcp_listen"`

	// MaxLineBytes caps a single ingested line. A longer line fails
	// the producer's request or connection.
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// SubscriberConfig tunes websocket delivery.
type SubscriberConfig struct {
	// WriteTimeout bounds every send to a subscriber. A subscriber
	// that cannot accept a line within it misses that line.
	WriteTimeout Duration `yaml:"write_timeout"`

	// PingInterval spaces keepalive pings so intermediaries do not
	// idle the connection out.
	PingInterval Duration `yaml:"ping_interval"`
}

// ArchiveConfig controls the on-disk mirror of the stream. An empty
// Directory disables it.
type ArchiveConfig struct {
	// Directory receives rotating segment files and index.log.
	Directory string `yaml:"directory"`

	// MaxSegmentBytes rotates a segment once its content reaches
	// this size.
	MaxSegmentBytes int64 `yaml:"max_segment_bytes"`

	// Compression is the segment codec: none, zstd, or lz4.
	Compression string `yaml:"compression"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Listen:     "127.0.0.1:8765",
		SocketPath: "/run/tailcast/tailcastd.sock",
		Queue:      QueueConfig{Capacity: 1000},
		Backlog:    BacklogConfig{Lines: stream.DefaultBacklogLines},
		Filter:     FilterConfig{Rules: stream.DefaultFilterRules},
		Ingest:     IngestConfig{MaxLineBytes: 64 * 1024},
		Subscriber: SubscriberConfig{
			WriteTimeout: Duration(10 * time.Second),
			PingInterval: Duration(30 * time.Second),
		},
		Archive: ArchiveConfig{
			MaxSegmentBytes: 8 * 1024 * 1024,
			Compression:     "none",
		},
	}
}

// LoadConfig reads a YAML file over the defaults: fields the file
// does not mention keep their default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks the configuration is runnable.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path is required")
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be positive, got %d", c.Queue.Capacity)
	}
	if c.Backlog.Lines < 0 {
		return fmt.Errorf("backlog.lines must be non-negative, got %d", c.Backlog.Lines)
	}
	if c.Ingest.MaxLineBytes <= 0 {
		return fmt.Errorf("ingest.max_line_bytes must be positive, got %d", c.Ingest.MaxLineBytes)
	}
	if c.Subscriber.WriteTimeout <= 0 {
		return fmt.Errorf("subscriber.write_timeout must be positive")
	}
	if c.Subscriber.PingInterval <= 0 {
		return fmt.Errorf("subscriber.ping_interval must be positive")
	}
	if c.Archive.Directory != "" {
		if c.Archive.MaxSegmentBytes <= 0 {
			return fmt.Errorf("archive.max_segment_bytes must be positive, got %d", c.Archive.MaxSegmentBytes)
		}
		if _, err := archive.ParseCompression(c.Archive.Compression); err != nil {
			return fmt.Errorf("archive.compression: %w", err)
		}
	}
	return nil
}
