// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/parley-labs/parley/lib/chat"
)

// handleUploadAttachment registers an uploaded file. The body is the
// raw content; the media type comes from the Content-Type header.
func (a *API) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	mediaType := r.Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/x-www-form-urlencoded" {
		mediaType = "application/octet-stream"
	}

	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxAttachmentBytes))
	if err != nil {
		a.writeError(w, http.StatusRequestEntityTooLarge, "attachment too large")
		return
	}
	if len(content) == 0 {
		a.writeError(w, http.StatusBadRequest, "attachment is empty")
		return
	}

	attachment, err := a.attachments.RegisterAttachment(r.Context(), mediaType, content)
	if err != nil {
		a.logger.Error("registering attachment failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to store attachment")
		return
	}
	a.writeJSON(w, http.StatusCreated, attachment)
}

func (a *API) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	attachment, err := a.attachments.GetAttachment(r.Context(), r.PathValue("id"))
	if errors.Is(err, chat.ErrAttachmentNotFound) {
		a.writeError(w, http.StatusNotFound, "attachment not found")
		return
	}
	if err != nil {
		a.logger.Error("loading attachment failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "failed to load attachment")
		return
	}
	a.writeJSON(w, http.StatusOK, attachment)
}
