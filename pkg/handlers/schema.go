package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/services"
)

// SchemaHandler exposes the cached schema catalog: field autocomplete,
// table suggestions, inferred relationships and cache management.
type SchemaHandler struct {
	catalog services.SchemaCatalogService
	logger  *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(catalog services.SchemaCatalogService, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/schema/suggest-fields", h.SuggestFields)
	mux.HandleFunc("GET /api/schema/tables", h.SuggestTables)
	mux.HandleFunc("GET /api/schema/relationships", h.Relationships)
	mux.HandleFunc("GET /api/schema/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/schema/cache/clear", h.ClearCache)
}

func projectParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	projectID := strings.TrimSpace(r.URL.Query().Get("projectId"))
	if projectID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "projectId parameter is required")
		return "", false
	}
	return projectID, true
}

// SuggestFields handles GET /api/schema/suggest-fields.
// Autocompletes field names for a cached project, filtered by the q prefix.
func (h *SchemaHandler) SuggestFields(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectParam(w, r)
	if !ok {
		return
	}

	fields := h.catalog.SuggestFields(projectID, r.URL.Query().Get("q"))
	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"project_id":  projectID,
		"suggestions": fields,
	})
}

// SuggestTables handles GET /api/schema/tables.
// Lists cached tables ordered by row count for the table picker.
func (h *SchemaHandler) SuggestTables(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectParam(w, r)
	if !ok {
		return
	}

	tables := h.catalog.SuggestTables(projectID)
	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"project_id": projectID,
		"tables":     tables,
	})
}

// Relationships handles GET /api/schema/relationships.
// Returns relationships inferred between the project's cached tables.
func (h *SchemaHandler) Relationships(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectParam(w, r)
	if !ok {
		return
	}

	relationships := h.catalog.InferRelationships(projectID)
	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"project_id":    projectID,
		"relationships": relationships,
	})
}

// CacheStats handles GET /api/schema/cache/stats.
func (h *SchemaHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, h.catalog.Stats())
}

// ClearCache handles POST /api/schema/cache/clear.
// With a projectId parameter only that project's entry is dropped; without
// one the whole cache is cleared.
func (h *SchemaHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("projectId"))

	h.catalog.Clear(projectID)
	h.logger.Info("schema cache cleared", zap.String("project_id", projectID))
	_ = WriteJSON(w, http.StatusOK, map[string]string{"message": "schema cache cleared"})
}
