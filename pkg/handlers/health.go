package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/config"
)

// PingResponse describes the running service and which optional
// collaborators were wired at startup.
type PingResponse struct {
	Status      string          `json:"status"`
	Version     string          `json:"version"`
	Service     string          `json:"service"`
	GoVersion   string          `json:"go_version"`
	Hostname    string          `json:"hostname"`
	Environment string          `json:"environment"`
	Components  map[string]bool `json:"components"`
}

// HealthHandler answers liveness probes and the ping diagnostic.
type HealthHandler struct {
	cfg        *config.Config
	components ComponentStatus
	logger     *zap.Logger
}

func NewHealthHandler(cfg *config.Config, components ComponentStatus, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, components: components, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health. The engine is alive as soon as it serves
// requests; collaborator readiness is reported by /ping, not here, so a
// missing warehouse never fails a liveness probe.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping. Hostname lookup is best effort; an empty value
// beats failing a diagnostic endpoint.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "warelens-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Components: map[string]bool{
			"warehouse":     h.components.Warehouse,
			"llm":           h.components.LLM,
			"session_store": h.components.SessionStore,
		},
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
