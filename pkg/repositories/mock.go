package repositories

import (
	"context"

	"github.com/warelens/warelens-engine/pkg/models"
)

// MockSessionRepository is a configurable test double. Unset function fields
// make the corresponding call a no-op returning zero values.
type MockSessionRepository struct {
	CreateFunc         func(ctx context.Context, projectID string, tableIDs []string) (*models.AnalysisSession, error)
	AppendLogFunc      func(ctx context.Context, sessionID, logType, message string, metadata map[string]any) error
	SaveResultFunc     func(ctx context.Context, sessionID string, kind ResultKind, result any) error
	UpdateStatusFunc   func(ctx context.Context, sessionID string, status models.SessionStatus, errorMessage string) error
	GetFunc            func(ctx context.Context, sessionID string, includeLogs bool) (*models.AnalysisSession, error)
	ListFunc           func(ctx context.Context, filter ListFilter) ([]*models.AnalysisSession, error)
	GetSessionLogsFunc func(ctx context.Context, sessionID, logType string, limit int) ([]models.SessionLog, error)
	GetAllLogsFunc     func(ctx context.Context, limit int) ([]models.SessionLog, error)
	DeleteFunc         func(ctx context.Context, sessionID string) (bool, error)
	StatsFunc          func(ctx context.Context) (*models.SessionStats, error)

	CreateCalls       int
	AppendLogCalls    int
	SaveResultCalls   int
	UpdateStatusCalls int
}

var _ SessionRepository = (*MockSessionRepository)(nil)

func (m *MockSessionRepository) Create(ctx context.Context, projectID string, tableIDs []string) (*models.AnalysisSession, error) {
	m.CreateCalls++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, projectID, tableIDs)
	}
	return &models.AnalysisSession{ID: "mock-session", ProjectID: projectID, TableIDs: tableIDs, Status: models.SessionInProgress}, nil
}

func (m *MockSessionRepository) AppendLog(ctx context.Context, sessionID, logType, message string, metadata map[string]any) error {
	m.AppendLogCalls++
	if m.AppendLogFunc != nil {
		return m.AppendLogFunc(ctx, sessionID, logType, message, metadata)
	}
	return nil
}

func (m *MockSessionRepository) SaveResult(ctx context.Context, sessionID string, kind ResultKind, result any) error {
	m.SaveResultCalls++
	if m.SaveResultFunc != nil {
		return m.SaveResultFunc(ctx, sessionID, kind, result)
	}
	return nil
}

func (m *MockSessionRepository) UpdateStatus(ctx context.Context, sessionID string, status models.SessionStatus, errorMessage string) error {
	m.UpdateStatusCalls++
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, sessionID, status, errorMessage)
	}
	return nil
}

func (m *MockSessionRepository) Get(ctx context.Context, sessionID string, includeLogs bool) (*models.AnalysisSession, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, sessionID, includeLogs)
	}
	return nil, nil
}

func (m *MockSessionRepository) List(ctx context.Context, filter ListFilter) ([]*models.AnalysisSession, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.AnalysisSession{}, nil
}

func (m *MockSessionRepository) GetSessionLogs(ctx context.Context, sessionID, logType string, limit int) ([]models.SessionLog, error) {
	if m.GetSessionLogsFunc != nil {
		return m.GetSessionLogsFunc(ctx, sessionID, logType, limit)
	}
	return []models.SessionLog{}, nil
}

func (m *MockSessionRepository) GetAllLogs(ctx context.Context, limit int) ([]models.SessionLog, error) {
	if m.GetAllLogsFunc != nil {
		return m.GetAllLogsFunc(ctx, limit)
	}
	return []models.SessionLog{}, nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, sessionID string) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionID)
	}
	return false, nil
}

func (m *MockSessionRepository) Stats(ctx context.Context) (*models.SessionStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &models.SessionStats{}, nil
}
