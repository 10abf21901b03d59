// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/parley-labs/parley/lib/agent"
	"github.com/parley-labs/parley/lib/chat"
	"github.com/parley-labs/parley/lib/clock"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{
		Path:     filepath.Join(t.TempDir(), "chat.db"),
		PoolSize: 1,
		Clock:    clock.Fake(time.Unix(1_700_000_000, 0)),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created, err := store.CreateSession(ctx, "s1", "First chat", "claude")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if created.Status != chat.StatusIdle {
		t.Errorf("new session status = %q, want idle", created.Status)
	}

	loaded, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if loaded.Name != "First chat" || loaded.AgentID != "claude" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.CostUSD != 0 || loaded.Turns != 0 {
		t.Errorf("fresh session has nonzero totals: %+v", loaded)
	}
}

func TestGetSessionAbsent(t *testing.T) {
	store := testStore(t)
	_, err := store.GetSession(context.Background(), "missing")
	if !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestCreateSessionGeneratesIDAndName(t *testing.T) {
	store := testStore(t)
	session, err := store.CreateSession(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.ID == "" {
		t.Error("empty ID not generated")
	}
	if session.Name != session.ID {
		t.Errorf("Name = %q, want the ID as default", session.Name)
	}
}

func TestCreateSessionDuplicateID(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateSession(ctx, "s1", "first", "claude"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	_, err := store.CreateSession(ctx, "s1", "second", "claude")
	if !errors.Is(err, chat.ErrSessionExists) {
		t.Fatalf("err = %v, want ErrSessionExists", err)
	}

	// The original record is untouched.
	session, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Name != "first" {
		t.Errorf("Name = %q, want %q", session.Name, "first")
	}
}

func TestUpdateSessionPartial(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateSession(ctx, "s1", "chat", "claude"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	updated, err := store.UpdateSession(ctx, "s1", chat.SessionUpdate{
		ExecutionID: chat.StringPtr("h1"),
		Status:      chat.StatusPtr(chat.StatusActive),
	})
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if updated.ExecutionID != "h1" || updated.Status != chat.StatusActive {
		t.Errorf("updated = %+v", updated)
	}
	// Untouched fields survive.
	if updated.Name != "chat" {
		t.Errorf("Name clobbered: %q", updated.Name)
	}

	// Second partial update leaves the first's fields alone.
	updated, err = store.UpdateSession(ctx, "s1", chat.SessionUpdate{
		CostUSD: chat.Float64Ptr(0.002),
		Turns:   chat.Int64Ptr(1),
		Status:  chat.StatusPtr(chat.StatusIdle),
	})
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if updated.ExecutionID != "h1" {
		t.Errorf("ExecutionID lost across update: %+v", updated)
	}
	if updated.CostUSD != 0.002 || updated.Turns != 1 {
		t.Errorf("totals = %+v", updated)
	}
}

func TestUpdateSessionAbsent(t *testing.T) {
	store := testStore(t)
	_, err := store.UpdateSession(context.Background(), "missing", chat.SessionUpdate{
		Name: chat.StringPtr("x"),
	})
	if !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestDeleteSession(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateSession(ctx, "s1", "", ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	deleted, err := store.DeleteSession(ctx, "s1")
	if err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if !deleted {
		t.Error("DeleteSession returned false for existing session")
	}

	deleted, err = store.DeleteSession(ctx, "s1")
	if err != nil {
		t.Fatalf("DeleteSession (absent): %v", err)
	}
	if deleted {
		t.Error("DeleteSession returned true for absent session")
	}
}

func TestMessagesAppendInOrder(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateSession(ctx, "s1", "", ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	for _, content := range []string{"one", "two", "three"} {
		if _, err := store.AppendMessage(ctx, "s1", chat.RoleUser, content, ""); err != nil {
			t.Fatalf("AppendMessage(%s): %v", content, err)
		}
	}
	if _, err := store.AppendMessage(ctx, "s1", chat.RoleTool, "{}", "Read"); err != nil {
		t.Fatalf("AppendMessage tool: %v", err)
	}

	messages, err := store.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(messages))
	}
	for i, want := range []string{"one", "two", "three", "{}"} {
		if messages[i].Content != want {
			t.Errorf("messages[%d].Content = %q, want %q", i, messages[i].Content, want)
		}
	}
	if messages[3].Role != chat.RoleTool || messages[3].ToolName != "Read" {
		t.Errorf("tool message = %+v", messages[3])
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	fake := clock.Fake(time.Unix(100, 0))
	store.clock = fake

	if _, err := store.CreateSession(ctx, "old", "", ""); err != nil {
		t.Fatal(err)
	}
	fake.Advance(time.Minute)
	if _, err := store.CreateSession(ctx, "new", "", ""); err != nil {
		t.Fatal(err)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "new" || sessions[1].ID != "old" {
		t.Errorf("order = %v", sessionIDs(sessions))
	}
}

func sessionIDs(sessions []chat.Session) []string {
	ids := make([]string, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}
	return ids
}

func TestAttachmentRegisterLinkAndList(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateSession(ctx, "s1", "", ""); err != nil {
		t.Fatal(err)
	}

	content := []byte("\x89PNG fake image bytes")
	attachment, err := store.RegisterAttachment(ctx, "image/png", content)
	if err != nil {
		t.Fatalf("RegisterAttachment: %v", err)
	}
	if attachment.Size != int64(len(content)) {
		t.Errorf("Size = %d", attachment.Size)
	}
	if attachment.Digest != AttachmentDigest(content) {
		t.Error("stored digest does not match recomputation")
	}

	message, err := store.AppendMessage(ctx, "s1", chat.RoleUser, "see image", "")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := store.LinkAttachment(ctx, attachment.ID, message.ID); err != nil {
		t.Fatalf("LinkAttachment: %v", err)
	}
	// Linking twice is a no-op.
	if err := store.LinkAttachment(ctx, attachment.ID, message.ID); err != nil {
		t.Fatalf("LinkAttachment again: %v", err)
	}

	messages, err := store.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 1 || len(messages[0].Attachments) != 1 || messages[0].Attachments[0] != attachment.ID {
		t.Errorf("messages = %+v", messages)
	}
}

func TestLinkAttachmentUnregistered(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateSession(ctx, "s1", "", ""); err != nil {
		t.Fatal(err)
	}
	message, err := store.AppendMessage(ctx, "s1", chat.RoleUser, "hi", "")
	if err != nil {
		t.Fatal(err)
	}

	err = store.LinkAttachment(ctx, "ghost", message.ID)
	if !errors.Is(err, chat.ErrAttachmentNotFound) {
		t.Fatalf("err = %v, want ErrAttachmentNotFound", err)
	}
}

func TestAttachmentDigestStable(t *testing.T) {
	first := AttachmentDigest([]byte("same bytes"))
	second := AttachmentDigest([]byte("same bytes"))
	if first != second {
		t.Error("digest not deterministic")
	}
	if first == AttachmentDigest([]byte("different")) {
		t.Error("distinct content produced equal digests")
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateSession(ctx, "s1", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AppendMessage(ctx, "s1", chat.RoleUser, "hi", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AppendTurnTrace(ctx, "s1", []agent.Event{
		{Kind: agent.KindDelta, Delta: &agent.DeltaEvent{Text: "hi"}},
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	messages, err := store.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListMessages after delete: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("messages survived cascade: %d", len(messages))
	}

	traces, err := store.ListTurnTraces(ctx, "s1")
	if err != nil {
		t.Fatalf("ListTurnTraces after delete: %v", err)
	}
	if len(traces) != 0 {
		t.Errorf("traces survived cascade: %d", len(traces))
	}
}

func TestTurnTraceRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.CreateSession(ctx, "s1", "", ""); err != nil {
		t.Fatal(err)
	}

	events := []agent.Event{
		{Timestamp: time.Unix(10, 0).UTC(), Kind: agent.KindInit, Init: &agent.InitEvent{ExecutionID: "h1"}},
		{Timestamp: time.Unix(11, 0).UTC(), Kind: agent.KindDelta, Delta: &agent.DeltaEvent{Text: "Hi"}},
		{Timestamp: time.Unix(12, 0).UTC(), Kind: agent.KindResult, Result: &agent.ResultEvent{CostUSD: 0.002, Turns: 1}},
	}

	traceID, err := store.AppendTurnTrace(ctx, "s1", events)
	if err != nil {
		t.Fatalf("AppendTurnTrace: %v", err)
	}

	trace, err := store.GetTurnTrace(ctx, traceID)
	if err != nil {
		t.Fatalf("GetTurnTrace: %v", err)
	}
	if trace.SessionID != "s1" || trace.Seq != 1 {
		t.Errorf("trace = %+v", trace)
	}
	if len(trace.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(trace.Events))
	}
	if trace.Events[0].Init.ExecutionID != "h1" {
		t.Errorf("event 0 = %+v", trace.Events[0])
	}
	if trace.Events[2].Result.Turns != 1 {
		t.Errorf("event 2 = %+v", trace.Events[2])
	}

	_, err = store.GetTurnTrace(ctx, "missing")
	if !errors.Is(err, ErrTraceNotFound) {
		t.Fatalf("err = %v, want ErrTraceNotFound", err)
	}
}
