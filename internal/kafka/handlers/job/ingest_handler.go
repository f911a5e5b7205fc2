package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/pixmill/pixmill/internal/model"
)

// service defines the interface for ingesting uploaded files.
type service interface {
	IngestJob(ctx context.Context, ev model.IngestEvent) error
}

// IngestHandler handles Kafka messages for newly uploaded files.
type IngestHandler struct {
	service service
}

// NewIngestHandler creates a new handler with the given service.
func NewIngestHandler(s service) *IngestHandler {
	return &IngestHandler{service: s}
}

// Handle processes a Kafka message containing an ingest event: it
// unmarshals the event and hands it to the service, which loads the
// original bytes and submits the job to the orchestrator.
func (h *IngestHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var ev model.IngestEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	if err := h.service.IngestJob(ctx, ev); err != nil {
		return fmt.Errorf("ingest job: %w", err)
	}

	zlog.Logger.Printf("job ingested: %s", ev.ID)

	return nil
}
