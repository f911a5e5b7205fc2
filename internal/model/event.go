package model

import "github.com/google/uuid"

// IngestEvent is the queue message published when a file is uploaded.
// The original bytes are not carried on the wire; consumers load them
// from blob storage by Path.
type IngestEvent struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	MimeType string    `json:"mime_type"`
	Path     string    `json:"path"`
	Override *Settings `json:"override,omitempty"`
}
