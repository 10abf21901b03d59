// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"errors"
	"net/http"

	"github.com/parley-labs/parley/lib/chat"
	"github.com/parley-labs/parley/lib/chatstore"
)

func (a *API) handleListTurnTraces(w http.ResponseWriter, r *http.Request) {
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

	traces, err := a.traces.ListTurnTraces(r.Context(), sessionID)
	if err != nil {
		a.logger.Error("listing turn traces failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to list turn traces")
		return
	}
	if traces == nil {
		traces = []chatstore.TurnTrace{}
	}
	a.writeJSON(w, http.StatusOK, traces)
}

func (a *API) handleGetTurnTrace(w http.ResponseWriter, r *http.Request) {
	trace, err := a.traces.GetTurnTrace(r.Context(), r.PathValue("id"))
	if errors.Is(err, chatstore.ErrTraceNotFound) {
		a.writeError(w, http.StatusNotFound, "turn trace not found")
		return
	}
	if err != nil {
		a.logger.Error("loading turn trace failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to load turn trace")
		return
	}
	a.writeJSON(w, http.StatusOK, trace)
}
