// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi exposes parley's session and turn operations over
// HTTP. Turns stream as server-sent events; everything else is plain
// JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/parley-labs/parley/lib/chat"
	"github.com/parley-labs/parley/lib/chatstore"
	"github.com/parley-labs/parley/lib/stream"
)

// AttachmentStore registers uploaded files and serves their metadata.
type AttachmentStore interface {
	RegisterAttachment(ctx context.Context, mediaType string, content []byte) (*chat.Attachment, error)
	GetAttachment(ctx context.Context, id string) (*chat.Attachment, error)
}

// TraceStore reads recorded turn traces.
type TraceStore interface {
	GetTurnTrace(ctx context.Context, traceID string) (*chatstore.TurnTrace, error)
	ListTurnTraces(ctx context.Context, sessionID string) ([]chatstore.TurnTrace, error)
}

// Config assembles the API.
type Config struct {
	// Orchestrator drives turns. Required.
	Orchestrator *stream.Orchestrator

	// Sessions and Messages back the CRUD endpoints. Required.
	Sessions chat.SessionStore
	Messages chat.MessageLog

	// Attachments backs the upload endpoints. May be nil, which
	// disables them.
	Attachments AttachmentStore

	// Traces backs the turn trace endpoints. May be nil.
	Traces TraceStore

	// Logger receives request-level errors. If nil, logs are dropped.
	Logger *slog.Logger

	// MaxAttachmentBytes bounds uploads. Defaults to 10 MiB.
	MaxAttachmentBytes int64
}

// API is the HTTP surface of a parley server.
type API struct {
	orchestrator *stream.Orchestrator
	sessions     chat.SessionStore
	messages     chat.MessageLog
	attachments  AttachmentStore
	traces       TraceStore
	logger       *slog.Logger

	maxAttachmentBytes int64
}

// New builds the API from cfg.
func New(cfg Config) (*API, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("httpapi: Orchestrator is required")
	}
	if cfg.Sessions == nil || cfg.Messages == nil {
		return nil, fmt.Errorf("httpapi: Sessions and Messages are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxAttachmentBytes := cfg.MaxAttachmentBytes
	if maxAttachmentBytes <= 0 {
		maxAttachmentBytes = 10 << 20
	}
	return &API{
		orchestrator:       cfg.Orchestrator,
		sessions:           cfg.Sessions,
		messages:           cfg.Messages,
		attachments:        cfg.Attachments,
		traces:             cfg.Traces,
		logger:             logger,
		maxAttachmentBytes: maxAttachmentBytes,
	}, nil
}

// Handler returns the route table.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.handleHealth)

	mux.HandleFunc("POST /v1/sessions", a.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions", a.handleListSessions)
	mux.HandleFunc("GET /v1/sessions/{id}", a.handleGetSession)
	mux.HandleFunc("PATCH /v1/sessions/{id}", a.handleRenameSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", a.handleDeleteSession)

	mux.HandleFunc("GET /v1/sessions/{id}/messages", a.handleListMessages)
	mux.HandleFunc("POST /v1/sessions/{id}/messages", a.handleTurn)
	mux.HandleFunc("GET /v1/sessions/{id}/transcript", a.handleTranscript)

	if a.traces != nil {
		mux.HandleFunc("GET /v1/sessions/{id}/turns", a.handleListTurnTraces)
		mux.HandleFunc("GET /v1/turns/{id}", a.handleGetTurnTrace)
	}
	if a.attachments != nil {
		mux.HandleFunc("POST /v1/attachments", a.handleUploadAttachment)
		mux.HandleFunc("GET /v1/attachments/{id}", a.handleGetAttachment)
	}

	return mux
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Error("writing response failed", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body with a 1 MiB cap.
func decodeBody(r *http.Request, into any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(into)
}
