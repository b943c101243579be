// Package handler provides HTTP request handlers for LexMesh.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// handleKeyCookie handles POST /admin/v1/keys/{key_id}/cookie.
//
// The cookie carries the key identity plus any caller-supplied
// parameters; index writers attach it to encrypted segment files.
//
// @design DS-0302
func (h *Handler) handleKeyCookie(w http.ResponseWriter, r *http.Request) {
	keyID := r.PathValue("key_id")

	var req KeyCookieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, http.StatusBadRequest, "LM-SYS-4000", "invalid request body", nil)
		return
	}

	cookie, err := h.keys.KeyCookie(r.Context(), keyID, req.Params)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, KeyCookieResponse{
		KeyID:  keyID,
		Cookie: cookie,
	})
}
