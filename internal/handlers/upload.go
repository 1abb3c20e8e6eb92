package handlers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/monty-notes/inkwell/internal/models"
)

// HandleUpload accepts either a multipart file upload or a JSON body with
// an image URL, runs the ingestion pipeline on the image, and returns the
// resulting session.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	prompt := r.FormValue("prompt")

	session, err := h.ingestImage(r.Context(), fileData, header.Filename, prompt)
	if err != nil {
		h.writeError(w, "Failed to process image: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, session)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL string `json:"image_url"`
		Prompt   string `json:"prompt"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	imageData, err := h.downloadImageFromURL(request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to download image: "+err.Error(), http.StatusBadRequest)
		return
	}

	parts := strings.Split(request.ImageURL, "/")
	filename := parts[len(parts)-1]
	if filename == "" {
		filename = "image.jpg"
	}

	session, err := h.ingestImage(r.Context(), imageData, filename, request.Prompt)
	if err != nil {
		h.writeError(w, "Failed to process image: "+err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Session created from URL", "session_id", session.ID, "url", request.ImageURL)
	h.writeJSON(w, session)
}

// ingestImage saves the uploaded bytes, runs the pipeline on the saved
// file, and stores the outcome as a new session.
func (h *Handler) ingestImage(ctx context.Context, fileData []byte, filename, prompt string) (*models.NoteSession, error) {
	if err := h.ensureUploadsDir(); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	sum := md5.Sum(fileData)
	uploadPath := filepath.Join(h.uploadsDir, hex.EncodeToString(sum[:])+filepath.Ext(filename))
	if err := os.WriteFile(uploadPath, fileData, 0644); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	slog.Info("Image saved", "filename", filename, "path", uploadPath)

	result := h.pipeline.ProcessImage(ctx, uploadPath, prompt)

	sessionID := fmt.Sprintf("%s_%d", filename, time.Now().Unix())
	session := h.createNoteSession(sessionID, filename, result)
	h.sessionStore.Set(sessionID, session)

	return session, nil
}

func (h *Handler) downloadImageFromURL(imageURL string) ([]byte, error) {
	resp, err := http.Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}
