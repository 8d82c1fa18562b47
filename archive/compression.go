// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the codec applied to segment files. The
// value appears in the segment file extension, so changing a name
// changes what operators see on disk.
type Compression string

const (
	// CompressionNone writes plain text segments. The default.
	CompressionNone Compression = "none"

	// CompressionZstd writes zstd-framed segments at the default
	// level. Best ratio for log text.
	CompressionZstd Compression = "zstd"

	// CompressionLZ4 writes lz4-framed segments. Lower ratio than
	// zstd but cheaper to produce, for hosts where the archive must
	// not compete with the stream for CPU.
	CompressionLZ4 Compression = "lz4"
)

// ParseCompression parses a compression name from configuration. The
// empty string means no compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return "", fmt.Errorf("unknown compression %q", name)
	}
}

// extension returns the file extension for segments of this codec.
func (c Compression) extension() string {
	switch c {
	case CompressionZstd:
		return ".log.zst"
	case CompressionLZ4:
		return ".log.lz4"
	default:
		return ".log"
	}
}

// newCompressor layers the codec's streaming writer over sink. The
// returned closer flushes the codec's final frame and must be closed
// before the underlying file; it is nil when no codec applies.
func (c Compression) newCompressor(sink io.Writer) (io.Writer, io.Closer, error) {
	switch c {
	case CompressionNone:
		return sink, nil, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(sink, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		return encoder, encoder, nil
	case CompressionLZ4:
		encoder := lz4.NewWriter(sink)
		return encoder, encoder, nil
	default:
		return nil, nil, fmt.Errorf("unknown compression %q", string(c))
	}
}
