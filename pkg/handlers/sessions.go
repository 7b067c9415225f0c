package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/models"
	"github.com/warelens/warelens-engine/pkg/repositories"
)

// SessionsHandler exposes the persisted analysis session library.
type SessionsHandler struct {
	sessions repositories.SessionRepository
	logger   *zap.Logger
}

// NewSessionsHandler creates a new sessions handler. sessions may be nil
// when the store is not configured; every route then answers 503.
func NewSessionsHandler(sessions repositories.SessionRepository, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers the sessions handler's routes on the given mux.
func (h *SessionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.List)
	mux.HandleFunc("GET /api/sessions/stats", h.Stats)
	mux.HandleFunc("GET /api/sessions/{sid}", h.Get)
	mux.HandleFunc("GET /api/sessions/{sid}/logs", h.Logs)
	mux.HandleFunc("GET /api/sessions/{sid}/export", h.Export)
	mux.HandleFunc("DELETE /api/sessions/{sid}", h.Delete)
	mux.HandleFunc("GET /api/all-logs", h.AllLogs)
}

func (h *SessionsHandler) storeReady(w http.ResponseWriter) bool {
	if h.sessions == nil {
		_ = ErrorResponse(w, http.StatusServiceUnavailable, apperrors.ErrSessionStoreNotConfigured.Error())
		return false
	}
	return true
}

// List handles GET /api/sessions.
// Supports project_id and status filters plus a limit, newest first.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.storeReady(w) {
		return
	}

	filter := repositories.ListFilter{
		ProjectID: r.URL.Query().Get("project_id"),
		Status:    models.SessionStatus(r.URL.Query().Get("status")),
		Limit:     queryInt(r, "limit", 0),
	}

	sessions, err := h.sessions.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("session list failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "failed to load sessions")
		return
	}
	_ = WriteJSON(w, http.StatusOK, sessions)
}

// Get handles GET /api/sessions/{sid}.
// Returns the session detail, with logs unless include_logs=false.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.storeReady(w) {
		return
	}

	includeLogs := r.URL.Query().Get("include_logs") != "false"
	session, err := h.sessions.Get(r.Context(), r.PathValue("sid"), includeLogs)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("session get failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	_ = WriteJSON(w, http.StatusOK, session)
}

// Logs handles GET /api/sessions/{sid}/logs.
// Returns a session's logs in timestamp order, optionally filtered by type.
func (h *SessionsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if !h.storeReady(w) {
		return
	}

	logs, err := h.sessions.GetSessionLogs(r.Context(), r.PathValue("sid"), r.URL.Query().Get("log_type"), queryInt(r, "limit", 0))
	if err != nil {
		h.logger.Error("session logs failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "failed to load session logs")
		return
	}
	_ = WriteJSON(w, http.StatusOK, logs)
}

// Export handles GET /api/sessions/{sid}/export.
// Exports the session's profiling report as json (default) or markdown.
func (h *SessionsHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.storeReady(w) {
		return
	}

	sessionID := r.PathValue("sid")
	session, err := h.sessions.Get(r.Context(), sessionID, false)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("session export failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session.ProfilingReport == nil {
		_ = ErrorResponse(w, http.StatusNotFound, "session has no profiling report")
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=profile_%s.md", sessionID))
		_, _ = w.Write([]byte(session.ProfilingReport.FullReport))
	case "", "json":
		_ = WriteJSON(w, http.StatusOK, map[string]any{
			"session_id":   sessionID,
			"project_id":   session.ProjectID,
			"table_ids":    session.TableIDs,
			"generated_at": session.ProfilingReport.GeneratedAt,
			"report":       session.ProfilingReport,
		})
	default:
		_ = ErrorResponse(w, http.StatusBadRequest, "unsupported format; available: json, markdown")
	}
}

// Delete handles DELETE /api/sessions/{sid}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.storeReady(w) {
		return
	}

	deleted, err := h.sessions.Delete(r.Context(), r.PathValue("sid"))
	if err != nil {
		h.logger.Error("session delete failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	if !deleted {
		_ = ErrorResponse(w, http.StatusNotFound, "session not found")
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

// Stats handles GET /api/sessions/stats.
func (h *SessionsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.storeReady(w) {
		return
	}

	stats, err := h.sessions.Stats(r.Context())
	if err != nil {
		h.logger.Error("session stats failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	_ = WriteJSON(w, http.StatusOK, stats)
}

// AllLogs handles GET /api/all-logs.
// Returns recent logs across every session, newest first.
func (h *SessionsHandler) AllLogs(w http.ResponseWriter, r *http.Request) {
	if !h.storeReady(w) {
		return
	}

	logs, err := h.sessions.GetAllLogs(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		h.logger.Error("all-logs failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "failed to load logs")
		return
	}
	_ = WriteJSON(w, http.StatusOK, logs)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
