// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive mirrors the broadcast stream to rotating segment
// files on disk. It is a write-only export: the daemon never reads
// segments back, and subscribers are served from memory alone.
//
// Segments are named tailcast-<stamp>-<seq> with an extension that
// reflects the codec (.log, .log.zst, .log.lz4). A segment rotates
// once its content reaches the configured size; on rotation the
// segment's BLAKE3 digest, on-disk byte count, and line count are
// appended to index.log in the same directory, so operators can
// verify a finished segment with b3sum alone.
package archive

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/tailcast/tailcast/lib/clock"
	"github.com/tailcast/tailcast/stream"
)

const (
	indexFileName      = "index.log"
	segmentStampLayout = "20060102-150405"
)

// Config carries the settings for NewWriter.
type Config struct {
	// Directory receives segment files and the index. Created if
	// absent.
	Directory string

	// MaxSegmentBytes rotates the open segment once its content
	// (uncompressed line bytes) reaches this size.
	MaxSegmentBytes int64

	// Compression selects the segment codec. Empty means none.
	Compression Compression

	// Clock stamps segment names. Required.
	Clock clock.Clock
}

// Writer archives stream lines to rotating segment files. The
// broadcaster calls WriteLine sequentially; the admin surface reads
// the counters concurrently, so all state sits behind one mutex.
type Writer struct {
	mu          sync.Mutex
	directory   string
	maxBytes    int64
	compression Compression
	clock       clock.Clock

	open              *segment
	sequence          int
	closed            bool
	segmentsCompleted uint64
	linesArchived     uint64
	bytesArchived     uint64
}

var _ stream.Sink = (*Writer)(nil)

// segment is one open archive file with its codec and digest state.
type segment struct {
	name      string
	file      *os.File
	disk      *countingWriter
	hasher    *blake3.Hasher
	content   io.Writer
	closer    io.Closer
	lineBytes int64
	lines     uint64
}

// countingWriter tracks how many bytes reach the file, which is the
// byte count recorded in the index.
type countingWriter struct {
	file  io.Writer
	count int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	w.count += int64(n)
	return n, err
}

// NewWriter creates an archive writer in config.Directory, creating
// the directory if needed. Panics if config.Clock is nil; other
// config problems are reported as errors.
func NewWriter(config Config) (*Writer, error) {
	if config.Clock == nil {
		panic("archive.Writer: clock is required")
	}
	if config.Directory == "" {
		return nil, errors.New("archive directory is empty")
	}
	if config.MaxSegmentBytes <= 0 {
		return nil, fmt.Errorf("max segment bytes must be positive, got %d", config.MaxSegmentBytes)
	}
	compression := config.Compression
	switch compression {
	case "":
		compression = CompressionNone
	case CompressionNone, CompressionZstd, CompressionLZ4:
	default:
		return nil, fmt.Errorf("unknown compression %q", string(compression))
	}
	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &Writer{
		directory:   config.Directory,
		maxBytes:    config.MaxSegmentBytes,
		compression: compression,
		clock:       config.Clock,
	}, nil
}

// WriteLine appends one line to the open segment, opening a fresh
// segment first when none is open and rotating afterwards when the
// segment reaches its size limit.
func (w *Writer) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("archive writer is closed")
	}
	if w.open == nil {
		if err := w.openSegment(); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w.open.content, line+"\n"); err != nil {
		return fmt.Errorf("writing segment %s: %w", w.open.name, err)
	}
	w.open.lineBytes += int64(len(line)) + 1
	w.open.lines++
	w.linesArchived++
	w.bytesArchived += uint64(len(line)) + 1

	if w.open.lineBytes >= w.maxBytes {
		return w.finishSegment()
	}
	return nil
}

// Close finalizes the open segment and records it in the index.
// Subsequent WriteLine calls fail; Close itself is idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.open == nil {
		return nil
	}
	return w.finishSegment()
}

// SegmentsCompleted returns the number of finalized segments.
func (w *Writer) SegmentsCompleted() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.segmentsCompleted
}

// LinesArchived returns the number of lines accepted so far.
func (w *Writer) LinesArchived() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.linesArchived
}

// BytesArchived returns the uncompressed content bytes accepted so
// far, newlines included. On-disk sizes are smaller when compression
// is on; the index records those per segment.
func (w *Writer) BytesArchived() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytesArchived
}

// openSegment creates the next segment file and its codec chain.
// Caller holds w.mu.
func (w *Writer) openSegment() error {
	stamp := w.clock.Now().UTC().Format(segmentStampLayout)
	name := fmt.Sprintf("tailcast-%s-%04d%s", stamp, w.sequence, w.compression.extension())
	w.sequence++

	file, err := os.Create(filepath.Join(w.directory, name))
	if err != nil {
		return fmt.Errorf("creating segment %s: %w", name, err)
	}

	// The hasher sees exactly the bytes that land on disk, so the
	// index digest matches b3sum of the finished file.
	disk := &countingWriter{file: file}
	hasher := blake3.New()
	content, closer, err := w.compression.newCompressor(io.MultiWriter(disk, hasher))
	if err != nil {
		file.Close()
		return fmt.Errorf("opening segment %s: %w", name, err)
	}

	w.open = &segment{
		name:    name,
		file:    file,
		disk:    disk,
		hasher:  hasher,
		content: content,
		closer:  closer,
	}
	return nil
}

// finishSegment flushes the codec, closes the file, and appends the
// segment's index entry. Caller holds w.mu.
func (w *Writer) finishSegment() error {
	segment := w.open
	w.open = nil

	if segment.closer != nil {
		if err := segment.closer.Close(); err != nil {
			segment.file.Close()
			return fmt.Errorf("finishing segment %s: %w", segment.name, err)
		}
	}
	if err := segment.file.Close(); err != nil {
		return fmt.Errorf("closing segment %s: %w", segment.name, err)
	}
	w.segmentsCompleted++

	digest := hex.EncodeToString(segment.hasher.Sum(nil))
	entry := fmt.Sprintf("%s blake3=%s bytes=%d lines=%d\n",
		segment.name, digest, segment.disk.count, segment.lines)
	return w.appendIndex(entry)
}

// appendIndex appends one entry to index.log. The file is opened and
// closed per entry; rotations are rare enough that this costs nothing
// and a crash can lose at most the entry being written.
func (w *Writer) appendIndex(entry string) error {
	path := filepath.Join(w.directory, indexFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening archive index: %w", err)
	}
	_, writeErr := io.WriteString(file, entry)
	closeErr := file.Close()
	if writeErr != nil {
		return fmt.Errorf("appending to archive index: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing archive index: %w", closeErr)
	}
	return nil
}
