package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/monty-notes/inkwell/internal/ingest"
	"github.com/monty-notes/inkwell/internal/models"
)

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.sessionStore.List())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")

	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		h.writeJSON(w, session)
	case "DELETE":
		h.sessionStore.Delete(sessionID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createNoteSession(sessionID, sourceName string, result *ingest.Result) *models.NoteSession {
	return &models.NoteSession{
		ID:         sessionID,
		SourceName: sourceName,
		Provider:   h.provider,
		Model:      h.model,
		Result:     result,
		CreatedAt:  time.Now(),
	}
}
