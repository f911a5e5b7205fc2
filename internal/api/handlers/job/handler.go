package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/pixmill/pixmill/internal/api/respond"
	"github.com/pixmill/pixmill/internal/model"
	jobsvc "github.com/pixmill/pixmill/internal/service/job"
)

// service defines the interface for job-related operations.
type service interface {
	SubmitJob(ctx context.Context, filename, mimeType string, file io.Reader, override *model.Settings) (uuid.UUID, error)
	GetJob(id uuid.UUID) (model.Job, error)
	ListJobs() []model.Job
	GetOutput(id uuid.UUID) (model.Job, []byte, error)
	DeleteJob(ctx context.Context, id uuid.UUID) error
	SetGlobalSettings(s model.Settings)
	GlobalSettings() model.Settings
	ApplyPreset(presetID string) model.Settings
	SetOverride(id uuid.UUID, s *model.Settings) error
}

// Handler provides HTTP handlers for job and settings endpoints.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Upload handles the HTTP request for uploading an image. An optional
// "settings" form field carries a per-item override as JSON.
func (h *Handler) Upload(c *ginext.Context) {
	// Parse the multipart form with a 32MB max memory limit.
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to retrieve the file")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to retrieve the file"))
		return
	}
	defer file.Close()

	var override *model.Settings
	if raw := c.PostForm("settings"); raw != "" {
		var s model.Settings
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			zlog.Logger.Err(err).Msg("failed to unmarshal settings override")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid settings override"))
			return
		}
		override = &s
	}

	mimeType := header.Header.Get("Content-Type")
	id, err := h.service.SubmitJob(c.Request.Context(), header.Filename, mimeType, file, override)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to submit the job")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to submit the job: %v", err))
		return
	}

	respond.Created(c, map[string]interface{}{
		"id":       id,
		"filename": header.Filename,
	})
}

// List returns all job records.
func (h *Handler) List(c *ginext.Context) {
	respond.OK(c, h.service.ListJobs())
}

// Get returns one job record.
func (h *Handler) Get(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	job, err := h.service.GetJob(id)
	if err != nil {
		if errors.Is(err, jobsvc.ErrJobNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("job not found"))
			return
		}
		respond.Fail(c, http.StatusInternalServerError, err)
		return
	}

	respond.OK(c, job)
}

// GetOutput serves the processed image bytes.
func (h *Handler) GetOutput(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	job, data, err := h.service.GetOutput(id)
	if err != nil {
		switch {
		case errors.Is(err, jobsvc.ErrJobNotFound):
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("job not found"))
		case errors.Is(err, jobsvc.ErrNoOutput):
			respond.Fail(c, http.StatusConflict, fmt.Errorf("job has no output yet"))
		default:
			respond.Fail(c, http.StatusInternalServerError, err)
		}
		return
	}

	// Output changes whenever settings do; never let browsers cache it.
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.Image(c, http.StatusOK, job.OutputFormat.ContentType(), data)
}

// Delete removes a job by ID.
func (h *Handler) Delete(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteJob(c.Request.Context(), id); err != nil {
		if errors.Is(err, jobsvc.ErrJobNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("job not found"))
			return
		}
		zlog.Logger.Err(err).Msg("failed to delete the job")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to delete job: %v", err))
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSettings returns the current global settings.
func (h *Handler) GetSettings(c *ginext.Context) {
	respond.OK(c, h.service.GlobalSettings())
}

// PutSettings replaces the global settings; every job without an
// override is invalidated and reprocessed.
func (h *Handler) PutSettings(c *ginext.Context) {
	var s model.Settings
	if err := json.NewDecoder(c.Request.Body).Decode(&s); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid settings: %v", err))
		return
	}

	h.service.SetGlobalSettings(s)
	respond.OK(c, s)
}

// ApplyPreset merges a named preset onto the global settings. Unknown
// preset ids leave the settings unchanged.
func (h *Handler) ApplyPreset(c *ginext.Context) {
	presetID := c.Param("preset")
	merged := h.service.ApplyPreset(presetID)
	respond.OK(c, merged)
}

// PutOverride replaces one job's settings override. An empty body
// clears the override back to the global settings.
func (h *Handler) PutOverride(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var override *model.Settings
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read body"))
		return
	}
	if len(body) > 0 {
		var s model.Settings
		if err := json.Unmarshal(body, &s); err != nil {
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid settings: %v", err))
			return
		}
		override = &s
	}

	if err := h.service.SetOverride(id, override); err != nil {
		if errors.Is(err, jobsvc.ErrJobNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("job not found"))
			return
		}
		respond.Fail(c, http.StatusInternalServerError, err)
		return
	}

	respond.OK(c, override)
}

// parseID extracts and validates the :id path parameter, responding
// with 400 on failure.
func parseID(c *ginext.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	if idStr == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing id"))
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return uuid.Nil, false
	}

	return id, true
}
