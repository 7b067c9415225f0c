package handlers

import (
	"context"

	"github.com/warelens/warelens-engine/pkg/models"
	"github.com/warelens/warelens-engine/pkg/prompts"
	"github.com/warelens/warelens-engine/pkg/services"
)

type mockOrchestrator struct {
	GenerateSQLFunc   func(ctx context.Context, question, projectID string, tableIDs []string) (string, error)
	ExecuteSQLFunc    func(ctx context.Context, sqlQuery string) *models.ExecutionResult
	ValidateQueryFunc func(ctx context.Context, sqlQuery string) (*services.QueryValidation, error)
}

var _ services.QueryOrchestrator = (*mockOrchestrator)(nil)

func (m *mockOrchestrator) GenerateSQL(ctx context.Context, question, projectID string, tableIDs []string) (string, error) {
	if m.GenerateSQLFunc != nil {
		return m.GenerateSQLFunc(ctx, question, projectID, tableIDs)
	}
	return "SELECT 1;", nil
}

func (m *mockOrchestrator) ExecuteSQL(ctx context.Context, sqlQuery string) *models.ExecutionResult {
	if m.ExecuteSQLFunc != nil {
		return m.ExecuteSQLFunc(ctx, sqlQuery)
	}
	return &models.ExecutionResult{Success: true, Rows: []map[string]any{}}
}

func (m *mockOrchestrator) ValidateQuery(ctx context.Context, sqlQuery string) (*services.QueryValidation, error) {
	if m.ValidateQueryFunc != nil {
		return m.ValidateQueryFunc(ctx, sqlQuery)
	}
	return &services.QueryValidation{Valid: true, Message: "query is valid"}, nil
}

type mockReports struct {
	BuildStructuredReportFunc func(ctx context.Context, question, sqlQuery string, columns []string, rows []map[string]any) (*models.AnalysisReport, error)
	BuildHTMLReportFunc       func(ctx context.Context, question, sqlQuery string, columns []string, rows []map[string]any) (*models.HTMLReport, error)
	ContextAnalysisFunc       func(ctx context.Context, question, sqlQuery string, rows []map[string]any, projectID string, tableIDs []string, analysisType prompts.ContextualAnalysisType) (string, error)
}

var _ services.ReportAssembler = (*mockReports)(nil)

func (m *mockReports) BuildStructuredReport(ctx context.Context, question, sqlQuery string, columns []string, rows []map[string]any) (*models.AnalysisReport, error) {
	if m.BuildStructuredReportFunc != nil {
		return m.BuildStructuredReportFunc(ctx, question, sqlQuery, columns, rows)
	}
	return &models.AnalysisReport{Report: "report", Insights: []string{}}, nil
}

func (m *mockReports) BuildHTMLReport(ctx context.Context, question, sqlQuery string, columns []string, rows []map[string]any) (*models.HTMLReport, error) {
	if m.BuildHTMLReportFunc != nil {
		return m.BuildHTMLReportFunc(ctx, question, sqlQuery, columns, rows)
	}
	return &models.HTMLReport{HTMLContent: "<!DOCTYPE html>", QualityScore: 100, Attempts: 1}, nil
}

func (m *mockReports) ContextAnalysis(ctx context.Context, question, sqlQuery string, rows []map[string]any, projectID string, tableIDs []string, analysisType prompts.ContextualAnalysisType) (string, error) {
	if m.ContextAnalysisFunc != nil {
		return m.ContextAnalysisFunc(ctx, question, sqlQuery, rows, projectID, tableIDs, analysisType)
	}
	return "analysis", nil
}

type mockWorkflow struct {
	RunFunc func(ctx context.Context, projectID string, tableIDs []string, sink services.EventSink)
}

var _ services.ProfilingWorkflow = (*mockWorkflow)(nil)

func (m *mockWorkflow) Run(ctx context.Context, projectID string, tableIDs []string, sink services.EventSink) {
	if m.RunFunc != nil {
		m.RunFunc(ctx, projectID, tableIDs, sink)
	}
}
