// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package transcript exports a session's conversation log as JSON
// Lines, optionally compressed for download.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/parley-labs/parley/lib/chat"
)

// Compression selects the transcript encoding. Transcripts are text,
// so zstd is the ratio choice and lz4 the speed choice.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression parses a compression name as supplied by clients.
// The empty string means no compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return "", fmt.Errorf("unknown compression: %q", name)
	}
}

// ContentType returns the media type for a transcript download.
func (c Compression) ContentType() string {
	switch c {
	case CompressionZstd:
		return "application/zstd"
	case CompressionLZ4:
		return "application/x-lz4"
	default:
		return "application/x-ndjson"
	}
}

// Extension returns the download filename extension.
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".jsonl.zst"
	case CompressionLZ4:
		return ".jsonl.lz4"
	default:
		return ".jsonl"
	}
}

// Record is one line of a transcript. The first line carries the
// session, every following line carries one message in append order.
type Record struct {
	Type    string        `json:"type"`
	Session *chat.Session `json:"session,omitempty"`
	Message *chat.Message `json:"message,omitempty"`
}

// Export writes the session and its messages as JSON Lines to w,
// wrapped in the requested compression framing. The zstd and lz4
// outputs are standard framed streams readable by the stock tools.
func Export(w io.Writer, session *chat.Session, messages []chat.Message, compression Compression) error {
	sink, closeSink, err := wrap(w, compression)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(sink)
	if err := encoder.Encode(Record{Type: "session", Session: session}); err != nil {
		return fmt.Errorf("encoding session record: %w", err)
	}
	for i := range messages {
		if err := encoder.Encode(Record{Type: "message", Message: &messages[i]}); err != nil {
			return fmt.Errorf("encoding message record: %w", err)
		}
	}

	if err := closeSink(); err != nil {
		return fmt.Errorf("finalizing %s stream: %w", compression, err)
	}
	return nil
}

// wrap returns the write sink for the chosen compression and the
// function that flushes its framing.
func wrap(w io.Writer, compression Compression) (io.Writer, func() error, error) {
	switch compression {
	case CompressionNone:
		return w, func() error { return nil }, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, nil, fmt.Errorf("zstd writer: %w", err)
		}
		return encoder, encoder.Close, nil
	case CompressionLZ4:
		encoder := lz4.NewWriter(w)
		return encoder, encoder.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression: %q", compression)
	}
}
