package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/monty-notes/inkwell/internal/ingest"
	"github.com/monty-notes/inkwell/internal/models"
	"github.com/monty-notes/inkwell/internal/storage"
)

type Handler struct {
	sessionStore *storage.SessionStore
	pipeline     *ingest.Pipeline
	provider     string
	model        string
	uploadsDir   string
}

func New(pipeline *ingest.Pipeline, provider, model string) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		pipeline:     pipeline,
		provider:     provider,
		model:        model,
		uploadsDir:   "uploads",
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*models.NoteSession, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll(h.uploadsDir, 0755)
}
