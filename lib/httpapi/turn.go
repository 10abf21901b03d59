// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/parley-labs/parley/lib/chat"
	"github.com/parley-labs/parley/lib/stream"
)

type turnRequest struct {
	Text          string   `json:"text,omitempty"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
	Model         string   `json:"model,omitempty"`
}

// handleTurn runs one agent turn and streams it as server-sent
// events. Validation failures surface as JSON errors before the
// stream starts; once streaming, failures arrive as error event
// frames followed by the sentinel.
func (a *API) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var request turnRequest
	if err := decodeBody(r, &request); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	frames, err := a.orchestrator.RunTurn(r.Context(), stream.TurnInput{
		SessionID:     sessionID,
		Text:          request.Text,
		AttachmentIDs: request.AttachmentIDs,
		Model:         request.Model,
	})
	switch {
	case chat.IsValidation(err):
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, chat.ErrTurnActive):
		a.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		a.logger.Error("starting turn failed", "session_id", sessionID, "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to start turn")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	// Disable proxy buffering so heartbeats actually reach the client.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	controller := http.NewResponseController(w)
	for frame := range frames {
		if _, err := io.WriteString(w, frame.Encode()); err != nil {
			// Client gone. Keep draining so the turn can finish
			// persisting; the context cancellation stops the agent.
			continue
		}
		if err := controller.Flush(); err != nil {
			continue
		}
	}
}
