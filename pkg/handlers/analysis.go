package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/models"
	"github.com/warelens/warelens-engine/pkg/prompts"
	"github.com/warelens/warelens-engine/pkg/services"
)

// TableIDList accepts either a JSON array of table ids or a single string
// with comma or newline separated ids, the two shapes the frontend sends.
type TableIDList []string

func (t *TableIDList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	var ids []string
	for _, id := range strings.Split(strings.ReplaceAll(joined, "\n", ","), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	*t = ids
	return nil
}

// AnalysisRequest is the POST body shared by the quick, analyze and
// analyze-html endpoints.
type AnalysisRequest struct {
	Question  string      `json:"question"`
	ProjectID string      `json:"project_id"`
	TableIDs  TableIDList `json:"table_ids"`
}

// ContextAnalysisRequest is the POST body for /analyze-context.
type ContextAnalysisRequest struct {
	Question     string           `json:"question"`
	SQLQuery     string           `json:"sql_query"`
	QueryResults []map[string]any `json:"query_results"`
	ProjectID    string           `json:"project_id"`
	TableIDs     TableIDList      `json:"table_ids"`
	AnalysisType string           `json:"analysis_type"`
}

// ValidateQueryRequest is the POST body for /validate-query.
type ValidateQueryRequest struct {
	SQLQuery string `json:"sql_query"`
}

// ComponentStatus reports which optional collaborators were initialized at
// startup, for the debugging status endpoint.
type ComponentStatus struct {
	Warehouse    bool
	LLM          bool
	SessionStore bool
}

// AnalysisHandler handles the question-to-result analysis endpoints.
type AnalysisHandler struct {
	orchestrator services.QueryOrchestrator
	reports      services.ReportAssembler
	components   ComponentStatus
	logger       *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(orchestrator services.QueryOrchestrator, reports services.ReportAssembler, components ComponentStatus, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		orchestrator: orchestrator,
		reports:      reports,
		components:   components,
		logger:       logger,
	}
}

// RegisterRoutes registers the analysis handler's routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analysis/quick", h.Quick)
	mux.HandleFunc("POST /api/analysis/analyze", h.Analyze)
	mux.HandleFunc("POST /api/analysis/analyze-html", h.AnalyzeHTML)
	mux.HandleFunc("POST /api/analysis/analyze-context", h.AnalyzeContext)
	mux.HandleFunc("POST /api/analysis/validate-query", h.ValidateQuery)
	mux.HandleFunc("GET /api/analysis/status", h.Status)
}

func (h *AnalysisHandler) decodeAnalysisRequest(w http.ResponseWriter, r *http.Request) (*AnalysisRequest, bool) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	req.Question = strings.TrimSpace(req.Question)
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if req.Question == "" || req.ProjectID == "" || len(req.TableIDs) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "question, project_id and table_ids are all required")
		return nil, false
	}
	return &req, true
}

// runQuery generates SQL for the question and executes it. A false return
// means the error response has already been written.
func (h *AnalysisHandler) runQuery(w http.ResponseWriter, r *http.Request, req *AnalysisRequest) (string, *models.ExecutionResult, bool) {
	sqlQuery, err := h.orchestrator.GenerateSQL(r.Context(), req.Question, req.ProjectID, req.TableIDs)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperrors.ErrLLMNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Error("sql generation failed", zap.Error(err))
		_ = ErrorResponse(w, status, err.Error())
		return "", nil, false
	}

	result := h.orchestrator.ExecuteSQL(r.Context(), sqlQuery)
	if !result.Success {
		_ = WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"success":       false,
			"error":         result.Error,
			"error_type":    result.ErrorType,
			"generated_sql": sqlQuery,
		})
		return "", nil, false
	}
	return sqlQuery, result, true
}

// Quick handles POST /api/analysis/quick.
// Runs the question and returns the raw rows without report generation.
func (h *AnalysisHandler) Quick(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnalysisRequest(w, r)
	if !ok {
		return
	}

	sqlQuery, result, ok := h.runQuery(w, r, req)
	if !ok {
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"original_question": req.Question,
		"generated_sql":     sqlQuery,
		"data":              result.Rows,
		"row_count":         result.RowCount,
		"execution_stats":   result.JobStats,
	})
}

// Analyze handles POST /api/analysis/analyze.
// Runs the question and returns the structured report bundle.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnalysisRequest(w, r)
	if !ok {
		return
	}

	sqlQuery, result, ok := h.runQuery(w, r, req)
	if !ok {
		return
	}

	report, err := h.reports.BuildStructuredReport(r.Context(), req.Question, sqlQuery, result.Columns, result.Rows)
	if err != nil {
		h.logger.Error("structured report failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"mode":              "structured",
		"original_question": req.Question,
		"generated_sql":     sqlQuery,
		"data":              result.Rows,
		"row_count":         result.RowCount,
		"execution_stats":   result.JobStats,
		"analysis_report":   report.Report,
		"chart_config":      report.ChartConfig,
		"data_summary":      report.DataSummary,
		"insights":          report.Insights,
		"data_analysis":     report.DataAnalysis,
	})
}

// AnalyzeHTML handles POST /api/analysis/analyze-html.
// Runs the question and returns a self-contained HTML report document.
func (h *AnalysisHandler) AnalyzeHTML(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnalysisRequest(w, r)
	if !ok {
		return
	}

	sqlQuery, result, ok := h.runQuery(w, r, req)
	if !ok {
		return
	}

	report, err := h.reports.BuildHTMLReport(r.Context(), req.Question, sqlQuery, result.Columns, result.Rows)
	if err != nil {
		h.logger.Error("html report failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"mode":              "html",
		"original_question": req.Question,
		"generated_sql":     sqlQuery,
		"row_count":         result.RowCount,
		"html_content":      report.HTMLContent,
		"quality_score":     report.QualityScore,
		"attempts":          report.Attempts,
		"fallback":          report.Fallback,
	})
}

// AnalyzeContext handles POST /api/analysis/analyze-context.
// Produces one contextual analysis section for an already executed query.
func (h *AnalysisHandler) AnalyzeContext(w http.ResponseWriter, r *http.Request) {
	var req ContextAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" || req.SQLQuery == "" || req.ProjectID == "" || req.AnalysisType == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "question, sql_query, project_id and analysis_type are required")
		return
	}

	analysisType := prompts.ContextualAnalysisType(req.AnalysisType)
	analysis, err := h.reports.ContextAnalysis(r.Context(), req.Question, req.SQLQuery, req.QueryResults, req.ProjectID, req.TableIDs, analysisType)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "invalid analysis type") {
			status = http.StatusBadRequest
		} else if errors.Is(err, apperrors.ErrLLMNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Error("context analysis failed", zap.Error(err))
		_ = ErrorResponse(w, status, err.Error())
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"analysis":      analysis,
		"analysis_type": req.AnalysisType,
	})
}

// ValidateQuery handles POST /api/analysis/validate-query.
// Estimates the scan without executing. An invalid query is a successful
// validation outcome, not an HTTP error.
func (h *AnalysisHandler) ValidateQuery(w http.ResponseWriter, r *http.Request) {
	var req ValidateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SQLQuery) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "sql_query field is required")
		return
	}

	validation, err := h.orchestrator.ValidateQuery(r.Context(), req.SQLQuery)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperrors.ErrWarehouseNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		_ = ErrorResponse(w, status, err.Error())
		return
	}

	response := map[string]any{
		"success": true,
		"valid":   validation.Valid,
		"message": validation.Message,
	}
	if validation.Valid {
		response["bytes_processed"] = validation.BytesProcessed
		response["estimated_cost"] = validation.EstimatedCost
	} else {
		response["error"] = validation.Error
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// Status handles GET /api/analysis/status.
// Reports which collaborators were initialized, for debugging deployments.
func (h *AnalysisHandler) Status(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"warehouse_client":   initializedLabel(h.components.Warehouse),
		"llm_client":         initializedLabel(h.components.LLM),
		"session_store":      initializedLabel(h.components.SessionStore),
		"metadata_extractor": initializedLabel(h.components.Warehouse),
	})
}

func initializedLabel(ok bool) string {
	if ok {
		return "initialized"
	}
	return "not initialized"
}
