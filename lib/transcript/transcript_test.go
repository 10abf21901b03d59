// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/parley-labs/parley/lib/chat"
)

func sampleSession() *chat.Session {
	return &chat.Session{ID: "s1", Name: "demo", Status: chat.StatusIdle, CostUSD: 0.01, Turns: 3}
}

func sampleMessages() []chat.Message {
	return []chat.Message{
		{ID: "m1", SessionID: "s1", Role: chat.RoleUser, Content: "Hello"},
		{ID: "m2", SessionID: "s1", Role: chat.RoleTool, Content: "output", ToolName: "Read"},
		{ID: "m3", SessionID: "s1", Role: chat.RoleAssistant, Content: "Hi there"},
	}
}

func decodeRecords(t *testing.T, r io.Reader) []Record {
	t.Helper()
	var records []Record
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var record Record
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning: %v", err)
	}
	return records
}

func checkRecords(t *testing.T, records []Record) {
	t.Helper()
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[0].Type != "session" || records[0].Session == nil || records[0].Session.ID != "s1" {
		t.Errorf("header = %+v", records[0])
	}
	wantContent := []string{"Hello", "output", "Hi there"}
	for i, want := range wantContent {
		record := records[i+1]
		if record.Type != "message" || record.Message == nil || record.Message.Content != want {
			t.Errorf("record %d = %+v, want content %q", i+1, record, want)
		}
	}
	if records[2].Message.ToolName != "Read" {
		t.Errorf("tool record = %+v", records[2])
	}
}

func TestExportPlain(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleSession(), sampleMessages(), CompressionNone); err != nil {
		t.Fatalf("Export: %v", err)
	}
	checkRecords(t, decodeRecords(t, &buf))
}

func TestExportZstd(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleSession(), sampleMessages(), CompressionZstd); err != nil {
		t.Fatalf("Export: %v", err)
	}
	decoder, err := zstd.NewReader(&buf)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer decoder.Close()
	checkRecords(t, decodeRecords(t, decoder))
}

func TestExportLZ4(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleSession(), sampleMessages(), CompressionLZ4); err != nil {
		t.Fatalf("Export: %v", err)
	}
	checkRecords(t, decodeRecords(t, lz4.NewReader(&buf)))
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{
		"":     CompressionNone,
		"none": CompressionNone,
		"zstd": CompressionZstd,
		"lz4":  CompressionLZ4,
	} {
		got, err := ParseCompression(name)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("unknown compression accepted")
	}
}
