package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/models"
	"github.com/warelens/warelens-engine/pkg/repositories"
)

func newSessionsMux(repo repositories.SessionRepository) *http.ServeMux {
	mux := http.NewServeMux()
	NewSessionsHandler(repo, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestSessions_StoreNotConfigured(t *testing.T) {
	mux := newSessionsMux(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSessions_ListPassesFilters(t *testing.T) {
	var gotFilter repositories.ListFilter
	repo := &repositories.MockSessionRepository{
		ListFunc: func(ctx context.Context, filter repositories.ListFilter) ([]*models.AnalysisSession, error) {
			gotFilter = filter
			return []*models.AnalysisSession{{ID: "s1"}}, nil
		},
	}
	mux := newSessionsMux(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?project_id=proj&status=completed&limit=5", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "proj", gotFilter.ProjectID)
	assert.Equal(t, models.SessionCompleted, gotFilter.Status)
	assert.Equal(t, 5, gotFilter.Limit)

	var sessions []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sessions))
	assert.Len(t, sessions, 1)
}

func TestSessions_GetNotFound(t *testing.T) {
	repo := &repositories.MockSessionRepository{
		GetFunc: func(ctx context.Context, sessionID string, includeLogs bool) (*models.AnalysisSession, error) {
			return nil, apperrors.ErrNotFound
		},
	}
	mux := newSessionsMux(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessions_GetIncludesLogsByDefault(t *testing.T) {
	repo := &repositories.MockSessionRepository{
		GetFunc: func(ctx context.Context, sessionID string, includeLogs bool) (*models.AnalysisSession, error) {
			assert.True(t, includeLogs)
			return &models.AnalysisSession{ID: sessionID, Logs: []models.SessionLog{{ID: "l1"}}}, nil
		},
	}
	mux := newSessionsMux(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessions_Delete(t *testing.T) {
	repo := &repositories.MockSessionRepository{
		DeleteFunc: func(ctx context.Context, sessionID string) (bool, error) {
			return sessionID == "s1", nil
		},
	}
	mux := newSessionsMux(repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/s1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/sessions/other", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessions_Stats(t *testing.T) {
	repo := &repositories.MockSessionRepository{
		StatsFunc: func(ctx context.Context) (*models.SessionStats, error) {
			return &models.SessionStats{TotalSessions: 4, CompletedSessions: 3, SuccessRate: 75.0}, nil
		},
	}
	mux := newSessionsMux(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var stats models.SessionStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 75.0, stats.SuccessRate)
}

func TestSessions_ExportMarkdown(t *testing.T) {
	repo := &repositories.MockSessionRepository{
		GetFunc: func(ctx context.Context, sessionID string, includeLogs bool) (*models.AnalysisSession, error) {
			return &models.AnalysisSession{
				ID: sessionID,
				ProfilingReport: &models.ProfilingReport{
					FullReport:  "# 📊 Data Profiling Report",
					GeneratedAt: time.Now().UTC(),
				},
			}, nil
		},
	}
	mux := newSessionsMux(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/export?format=markdown", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Data Profiling Report")
}

func TestSessions_ExportWithoutReport(t *testing.T) {
	repo := &repositories.MockSessionRepository{
		GetFunc: func(ctx context.Context, sessionID string, includeLogs bool) (*models.AnalysisSession, error) {
			return &models.AnalysisSession{ID: sessionID}, nil
		},
	}
	mux := newSessionsMux(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/export", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessions_AllLogs(t *testing.T) {
	repo := &repositories.MockSessionRepository{
		GetAllLogsFunc: func(ctx context.Context, limit int) ([]models.SessionLog, error) {
			return []models.SessionLog{{ID: "l1"}, {ID: "l2"}}, nil
		},
	}
	mux := newSessionsMux(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/all-logs", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var logs []models.SessionLog
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&logs))
	assert.Len(t, logs, 2)
}
