package models

import (
	"time"

	"github.com/monty-notes/inkwell/internal/ingest"
)

// NoteSession represents one note image upload processed through the
// ingestion pipeline by the web interface.
type NoteSession struct {
	ID         string         `json:"id"`
	SourceName string         `json:"source_name"`
	Provider   string         `json:"provider,omitempty"`
	Model      string         `json:"model,omitempty"`
	Result     *ingest.Result `json:"result,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
