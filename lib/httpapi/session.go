// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"errors"
	"net/http"

	"github.com/parley-labs/parley/lib/chat"
	"github.com/parley-labs/parley/lib/transcript"
)

type createSessionRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	AgentID string `json:"agent_id,omitempty"`
}

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var request createSessionRequest
	if err := decodeBody(r, &request); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := a.sessions.CreateSession(r.Context(), request.ID, request.Name, request.AgentID)
	if errors.Is(err, chat.ErrSessionExists) {
		a.writeError(w, http.StatusConflict, "session already exists")
		return
	}
	if err != nil {
		a.logger.Error("creating session failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	a.writeJSON(w, http.StatusCreated, session)
}

func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.sessions.ListSessions(r.Context())
	if err != nil {
		a.logger.Error("listing sessions failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []chat.Session{}
	}
	a.writeJSON(w, http.StatusOK, sessions)
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.sessions.GetSession(r.Context(), r.PathValue("id"))
	if errors.Is(err, chat.ErrSessionNotFound) {
		a.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		a.logger.Error("loading session failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	a.writeJSON(w, http.StatusOK, session)
}

type renameSessionRequest struct {
	Name string `json:"name"`
}

func (a *API) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	var request renameSessionRequest
	if err := decodeBody(r, &request); err != nil || request.Name == "" {
		a.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	session, err := a.sessions.UpdateSession(r.Context(), r.PathValue("id"), chat.SessionUpdate{
		Name: chat.StringPtr(request.Name),
	})
	if errors.Is(err, chat.ErrSessionNotFound) {
		a.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		a.logger.Error("renaming session failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to rename session")
		return
	}
	a.writeJSON(w, http.StatusOK, session)
}

func (a *API) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.sessions.DeleteSession(r.Context(), r.PathValue("id"))
	if err != nil {
		a.logger.Error("deleting session failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	if !deleted {
		a.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := a.sessions.GetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			a.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		a.logger.Error("loading session failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	messages, err := a.messages.ListMessages(r.Context(), sessionID)
	if err != nil {
		a.logger.Error("listing messages failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	a.writeJSON(w, http.StatusOK, messages)
}

func (a *API) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	compression, err := transcript.ParseCompression(r.URL.Query().Get("compression"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.sessions.GetSession(r.Context(), sessionID)
	if errors.Is(err, chat.ErrSessionNotFound) {
		a.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		a.logger.Error("loading session failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	messages, err := a.messages.ListMessages(r.Context(), sessionID)
	if err != nil {
		a.logger.Error("listing messages failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	w.Header().Set("Content-Type", compression.ContentType())
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+sessionID+compression.Extension()+`"`)
	if err := transcript.Export(w, session, messages, compression); err != nil {
		// Headers are already out; all we can do is log.
		a.logger.Error("exporting transcript failed", "session_id", sessionID, "error", err)
	}
}
