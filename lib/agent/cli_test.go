// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/parley-labs/parley/lib/clock"
	"github.com/parley-labs/parley/lib/testutil"
)

func testRunner(t *testing.T, profiles string) *CLIRunner {
	t.Helper()
	set, err := ParseProfiles([]byte(profiles))
	if err != nil {
		t.Fatalf("ParseProfiles: %v", err)
	}
	return NewCLIRunner(set, clock.Fake(time.Unix(0, 0)), nil)
}

func TestParseLineInit(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "a", "binary": "x"}]}`)

	event := runner.parseLine([]byte(`{"type":"system","subtype":"init","session_id":"h1","model":"m1"}`))
	if event.Kind != KindInit {
		t.Fatalf("Kind = %q, want init", event.Kind)
	}
	if event.Init.ExecutionID != "h1" || event.Init.Model != "m1" {
		t.Errorf("Init = %+v", event.Init)
	}
}

func TestParseLineDelta(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "a", "binary": "x"}]}`)

	event := runner.parseLine([]byte(`{"type":"assistant","subtype":"text","text":"Hi there"}`))
	if event.Kind != KindDelta || event.Delta.Text != "Hi there" {
		t.Fatalf("event = %+v", event)
	}
}

func TestParseLineToolUse(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "a", "binary": "x"}]}`)

	event := runner.parseLine([]byte(`{"type":"assistant","subtype":"tool_use","name":"Read","input":{"path":"/etc/hosts"}}`))
	if event.Kind != KindTool {
		t.Fatalf("Kind = %q, want tool", event.Kind)
	}
	if event.Tool.Name != "Read" {
		t.Errorf("tool name = %q", event.Tool.Name)
	}
	if !strings.Contains(event.Tool.Content, "/etc/hosts") {
		t.Errorf("tool content = %q", event.Tool.Content)
	}
}

func TestParseLineResult(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "a", "binary": "x"}]}`)

	event := runner.parseLine([]byte(`{"type":"result","cost_usd":0.002,"num_turns":1}`))
	if event.Kind != KindResult {
		t.Fatalf("Kind = %q, want result", event.Kind)
	}
	if event.Result.CostUSD != 0.002 || event.Result.Turns != 1 {
		t.Errorf("Result = %+v", event.Result)
	}
}

func TestParseLineResultTotalCostFallback(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "a", "binary": "x"}]}`)

	event := runner.parseLine([]byte(`{"type":"result","total_cost_usd":0.01,"num_turns":2}`))
	if event.Result.CostUSD != 0.01 {
		t.Errorf("CostUSD = %v, want fallback to total_cost_usd", event.Result.CostUSD)
	}
}

func TestParseLineError(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "a", "binary": "x"}]}`)

	event := runner.parseLine([]byte(`{"type":"error","message":"boom"}`))
	if event.Kind != KindError || event.Error.Message != "boom" {
		t.Fatalf("event = %+v", event)
	}

	// Empty message still yields something human-readable.
	event = runner.parseLine([]byte(`{"type":"error"}`))
	if event.Error.Message == "" {
		t.Error("empty error message not defaulted")
	}
}

func TestParseLineUnknownAndMalformed(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "a", "binary": "x"}]}`)

	event := runner.parseLine([]byte(`{"type":"future_thing","payload":1}`))
	if event.Kind != KindRaw {
		t.Fatalf("unknown type Kind = %q, want raw", event.Kind)
	}

	event = runner.parseLine([]byte(`not json at all`))
	if event.Kind != KindRaw {
		t.Fatalf("malformed line Kind = %q, want raw", event.Kind)
	}
}

// TestRunStreamsProcessOutput spawns /bin/sh printing two stream-json
// lines and verifies the feed order and clean Wait.
func TestRunStreamsProcessOutput(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "sh", "binary": "/bin/sh", "args": ["-c", "printf '%s\n%s\n' '{\"type\":\"system\",\"subtype\":\"init\",\"session_id\":\"h9\"}' '{\"type\":\"result\",\"cost_usd\":0.1,\"num_turns\":3}'; exit 0", "--"]}]}`)

	turn, err := runner.Run(context.Background(), TurnRequest{SessionID: "s1", Prompt: "hi", AgentID: "sh"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	first := testutil.RequireReceive(t, turn.Events(), 5*time.Second, "first event")
	if first.Kind != KindInit || first.Init.ExecutionID != "h9" {
		t.Fatalf("first event = %+v", first)
	}

	second := testutil.RequireReceive(t, turn.Events(), 5*time.Second, "second event")
	if second.Kind != KindResult || second.Result.Turns != 3 {
		t.Fatalf("second event = %+v", second)
	}

	testutil.RequireClosed(t, turn.Events(), 5*time.Second, "feed close")
	if err := turn.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

// TestRunWaitReportsProcessFailure verifies a non-zero exit surfaces
// through Wait after the feed drains.
func TestRunWaitReportsProcessFailure(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "sh", "binary": "/bin/sh", "args": ["-c", "echo '{\"type\":\"assistant\",\"subtype\":\"text\",\"text\":\"partial\"}'; exit 7", "--"]}]}`)

	turn, err := runner.Run(context.Background(), TurnRequest{SessionID: "s1", Prompt: "hi", AgentID: "sh"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	event := testutil.RequireReceive(t, turn.Events(), 5*time.Second, "partial delta")
	if event.Kind != KindDelta || event.Delta.Text != "partial" {
		t.Fatalf("event = %+v", event)
	}
	testutil.RequireClosed(t, turn.Events(), 5*time.Second, "feed close")

	if err := turn.Wait(); err == nil {
		t.Fatal("Wait should report the non-zero exit")
	}
}

func TestRunUnknownProfile(t *testing.T) {
	runner := testRunner(t, `{"agents": [{"id": "a", "binary": "x"}]}`)
	if _, err := runner.Run(context.Background(), TurnRequest{AgentID: "missing"}); err == nil {
		t.Fatal("Run with unknown profile should fail before spawning")
	}
}
