package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/models"
	"github.com/warelens/warelens-engine/pkg/services"
)

// eventBuffer bounds how far the workflow can run ahead of a slow consumer.
const eventBuffer = 32

// ProfilingHandler streams profiling workflow progress as server-sent
// events.
type ProfilingHandler struct {
	workflow services.ProfilingWorkflow
	logger   *zap.Logger
}

// NewProfilingHandler creates a new profiling handler.
func NewProfilingHandler(workflow services.ProfilingWorkflow, logger *zap.Logger) *ProfilingHandler {
	return &ProfilingHandler{workflow: workflow, logger: logger}
}

// RegisterRoutes registers the profiling handler's routes on the given mux.
func (h *ProfilingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/analysis/profiling", h.Stream)
}

// Stream handles GET /api/analysis/profiling.
// Runs the profiling workflow for the requested tables and streams its
// progress events. The workflow keeps running after a client disconnect so
// the session record still completes.
func (h *ProfilingHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	projectID := strings.TrimSpace(r.URL.Query().Get("projectId"))
	tableIDs := splitTableIDs(r.URL.Query().Get("tableIds"))
	if projectID == "" || len(tableIDs) == 0 {
		h.writeEvent(w, models.ProgressEvent{
			Type:    models.EventError,
			Payload: map[string]any{"message": "projectId and tableIds parameters are required"},
		})
		flusher.Flush()
		return
	}

	events := make(chan models.ProgressEvent, eventBuffer)
	sink := services.EventSinkFunc(func(event models.ProgressEvent) {
		events <- event
	})

	// The workflow must not die with the connection; session persistence
	// depends on it running to the end.
	workflowCtx := context.WithoutCancel(r.Context())
	go func() {
		defer close(events)
		h.workflow.Run(workflowCtx, projectID, tableIDs, sink)
	}()

	clientGone := r.Context().Done()
	connected := true
	for event := range events {
		if !connected {
			continue
		}
		select {
		case <-clientGone:
			h.logger.Info("profiling stream client disconnected",
				zap.String("project_id", projectID))
			connected = false
			continue
		default:
		}
		if err := h.writeEvent(w, event); err != nil {
			h.logger.Warn("profiling stream write failed", zap.Error(err))
			connected = false
			continue
		}
		flusher.Flush()
	}
}

func (h *ProfilingHandler) writeEvent(w http.ResponseWriter, event models.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", zap.Error(err))
		return nil
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// splitTableIDs parses the tableIds query parameter, accepting comma or
// newline separated ids.
func splitTableIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(strings.ReplaceAll(raw, "\n", ","), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
