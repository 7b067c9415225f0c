package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/llm"
	"github.com/warelens/warelens-engine/pkg/models"
	"github.com/warelens/warelens-engine/pkg/prompts"
)

const (
	reportMaxTokens     = 3000
	htmlMaxTokens       = 4000
	contextMaxTokens    = 2000
	reportSampleRows    = 100
	htmlQualityBar      = 70
	htmlMaxAttempts     = 2
	fallbackQualityGoal = 60
)

// ReportAssembler composes profiling output, rule-based insights and
// LLM-generated narrative into final report bundles.
type ReportAssembler interface {
	// BuildStructuredReport produces the text report bundle for a result
	// set. Empty rows short-circuit to a fixed narrative without any
	// text-generation call.
	BuildStructuredReport(ctx context.Context, question, sqlQuery string, columns []string, rows []map[string]any) (*models.AnalysisReport, error)

	// BuildHTMLReport asks for a complete self-contained HTML document,
	// scores it, retries once below the quality bar, and falls back to a
	// deterministic template when generation never passes.
	BuildHTMLReport(ctx context.Context, question, sqlQuery string, columns []string, rows []map[string]any) (*models.HTMLReport, error)

	// ContextAnalysis produces one contextual analysis section
	// (explanation, context or suggestion) for an executed query.
	ContextAnalysis(ctx context.Context, question, sqlQuery string, rows []map[string]any, projectID string, tableIDs []string, analysisType prompts.ContextualAnalysisType) (string, error)
}

type reportAssembler struct {
	generator llm.TextGenerator
	profiler  DataProfiler
	insights  InsightGenerator
	catalog   SchemaCatalogService
	logger    *zap.Logger
}

func NewReportAssembler(generator llm.TextGenerator, profiler DataProfiler, insights InsightGenerator, catalog SchemaCatalogService, logger *zap.Logger) ReportAssembler {
	return &reportAssembler{
		generator: generator,
		profiler:  profiler,
		insights:  insights,
		catalog:   catalog,
		logger:    logger.Named("report"),
	}
}

var _ ReportAssembler = (*reportAssembler)(nil)

func (r *reportAssembler) BuildStructuredReport(ctx context.Context, question, sqlQuery string, columns []string, rows []map[string]any) (*models.AnalysisReport, error) {
	if r.generator == nil {
		return nil, apperrors.ErrLLMNotConfigured
	}

	if len(rows) == 0 {
		return &models.AnalysisReport{
			Report:   "There is no data to analyze.",
			Insights: []string{},
		}, nil
	}

	if len(columns) == 0 {
		columns = sortedColumns(rows[0])
	}

	profile := r.profiler.Profile(rows)
	insights := r.insights.Generate(profile, question)
	chart := r.insights.SuggestChart(rows, columns)

	dataTypes := make(map[string]models.ColumnType, len(profile.Columns))
	for name, col := range profile.Columns {
		dataTypes[name] = col.Type
	}
	summary := &models.DataSummary{
		Overview: models.DataOverview{
			TotalRows:        len(rows),
			ColumnsCount:     len(columns),
			DataTypes:        dataTypes,
			DataQualityScore: profile.DataQuality.OverallScore,
		},
		KeyStatistics: profile.Columns,
		QuickInsights: insights,
	}

	prompt := prompts.BuildAnalysisReportPrompt(question, sqlQuery, profile, insights, rows, reportSampleRows)
	narrative, err := r.generator.GenerateText(ctx, prompt, "", reportMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate analysis report: %w", err)
	}

	return &models.AnalysisReport{
		Report:       narrative,
		ChartConfig:  chart,
		DataSummary:  summary,
		Insights:     insights,
		DataAnalysis: profile,
	}, nil
}

func (r *reportAssembler) BuildHTMLReport(ctx context.Context, question, sqlQuery string, columns []string, rows []map[string]any) (*models.HTMLReport, error) {
	if r.generator == nil {
		return nil, apperrors.ErrLLMNotConfigured
	}

	if len(rows) == 0 {
		return &models.HTMLReport{
			HTMLContent:  fallbackHTML(question, 0),
			QualityScore: fallbackQualityGoal,
			Attempts:     1,
			Fallback:     true,
		}, nil
	}

	if len(columns) == 0 {
		columns = sortedColumns(rows[0])
	}
	prompt := prompts.BuildHTMLGenerationPrompt(question, sqlQuery, columns, rows)

	for attempt := 1; attempt <= htmlMaxAttempts; attempt++ {
		raw, err := r.generator.GenerateText(ctx, prompt, "", htmlMaxTokens)
		if err != nil {
			r.logger.Error("html generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		html := extractHTML(raw)
		score := scoreHTMLQuality(html)
		if score >= htmlQualityBar {
			return &models.HTMLReport{
				HTMLContent:  html,
				QualityScore: score,
				Attempts:     attempt,
				Fallback:     false,
			}, nil
		}

		r.logger.Info("html quality below threshold",
			zap.Int("attempt", attempt),
			zap.Int("score", score))
	}

	return &models.HTMLReport{
		HTMLContent:  fallbackHTML(question, len(rows)),
		QualityScore: fallbackQualityGoal,
		Attempts:     htmlMaxAttempts,
		Fallback:     true,
	}, nil
}

func (r *reportAssembler) ContextAnalysis(ctx context.Context, question, sqlQuery string, rows []map[string]any, projectID string, tableIDs []string, analysisType prompts.ContextualAnalysisType) (string, error) {
	if r.generator == nil {
		return "", apperrors.ErrLLMNotConfigured
	}

	if len(rows) == 0 {
		return "No data to analyze; skipping contextual analysis.", nil
	}

	schemaPrompt := r.catalog.SchemaPrompt(projectID, tableIDs)
	prompt, err := prompts.BuildContextualAnalysisPrompt(question, sqlQuery, rows, schemaPrompt, analysisType)
	if err != nil {
		return "", err
	}

	analysis, err := r.generator.GenerateText(ctx, prompt, "", contextMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate contextual analysis: %w", err)
	}
	return analysis, nil
}

// extractHTML strips markdown fences from generated output when the model
// wrapped the document instead of returning bare HTML.
func extractHTML(raw string) string {
	if strings.HasPrefix(raw, "<!DOCTYPE") || strings.HasPrefix(raw, "<html") {
		return raw
	}
	if idx := strings.Index(raw, "```html"); idx >= 0 {
		body := raw[idx+len("```html"):]
		if end := strings.Index(body, "```"); end >= 0 {
			return strings.TrimSpace(body[:end])
		}
	}
	if idx := strings.Index(raw, "```"); idx >= 0 {
		body := raw[idx+3:]
		if end := strings.Index(body, "```"); end >= 0 {
			return strings.TrimSpace(body[:end])
		}
	}
	return raw
}

// scoreHTMLQuality applies fixed penalties per missing marker: no doctype
// -20, chart library referenced without its CDN -20, no chart construction
// call -15, no inline styles -15.
func scoreHTMLQuality(html string) int {
	score := 100

	if !strings.HasPrefix(html, "<!DOCTYPE") {
		score -= 20
	}
	if strings.Contains(html, "Chart.js") && !strings.Contains(html, "cdnjs.cloudflare.com") {
		score -= 20
	}
	if !strings.Contains(html, "new Chart(") {
		score -= 15
	}
	if !strings.Contains(html, "<style>") {
		score -= 15
	}

	if score < 0 {
		return 0
	}
	return score
}

var fallbackTemplate = template.Must(template.New("fallback").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Question}} - Analysis Result</title>
    <style>
        body { font-family: 'Segoe UI', sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
        .container { max-width: 800px; margin: 0 auto; background: white; border-radius: 12px; padding: 30px; box-shadow: 0 4px 12px rgba(0,0,0,0.1); }
        .header { text-align: center; margin-bottom: 30px; color: #333; }
        .summary { background: #f8f9fa; padding: 15px; border-radius: 8px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>📊 {{.Question}}</h1>
            <p>Warehouse analysis result • {{.RowCount}} records</p>
        </div>
        <div class="summary">
            <h3>📋 Basic analysis report</h3>
            <p>The query returned {{.RowCount}} records.</p>
        </div>
    </div>
</body>
</html>`))

func fallbackHTML(question string, rowCount int) string {
	var buf bytes.Buffer
	data := struct {
		Question string
		RowCount int
	}{Question: question, RowCount: rowCount}

	if err := fallbackTemplate.Execute(&buf, data); err != nil {
		return fmt.Sprintf("<!DOCTYPE html><html><body><h1>%s</h1><p>%d records</p></body></html>",
			template.HTMLEscapeString(question), rowCount)
	}
	return buf.String()
}

func sortedColumns(row map[string]any) []string {
	columns := make([]string, 0, len(row))
	for name := range row {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns
}
