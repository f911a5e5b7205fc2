package model

import (
	"time"

	"github.com/google/uuid"
)

// JobState is the processing state of a single job.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobProcessed  JobState = "processed"
	JobFailed     JobState = "failed"
)

// Terminal reports whether the state will not change without an
// explicit settings change or removal.
func (s JobState) Terminal() bool {
	return s == JobProcessed || s == JobFailed
}

// Job is one image's unit of work through the pipeline. Jobs are owned
// exclusively by the orchestrator; callers only ever see copies.
type Job struct {
	ID             uuid.UUID `json:"id"`
	Filename       string    `json:"filename"`
	MimeType       string    `json:"mime_type"`
	CustomFileName string    `json:"custom_file_name,omitempty"`

	// Override, when set, replaces the global settings for this job.
	Override *Settings `json:"override,omitempty"`

	OriginalBytes []byte `json:"-"`
	OriginalSize  int64  `json:"original_size"`

	State    JobState `json:"state"`
	Attempts int      `json:"attempts"`
	Error    string   `json:"error,omitempty"`

	// HadExif records whether metadata was detected in the original
	// bytes; re-encoding drops it from the output regardless.
	HadExif bool `json:"had_exif"`

	OutputBytes  []byte `json:"-"`
	OutputSize   int64  `json:"output_size,omitempty"`
	OutputFormat Format `json:"output_format,omitempty"`
	OutputWidth  int    `json:"output_width,omitempty"`
	OutputHeight int    `json:"output_height,omitempty"`

	// SettingsEpoch is bumped every time settings affecting this job
	// change; commits stamped with an older epoch are rejected.
	SettingsEpoch uint64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
