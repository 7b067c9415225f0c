package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/llm"
	"github.com/warelens/warelens-engine/pkg/prompts"
)

const goodHTMLDoc = `<!DOCTYPE html>
<html>
<head>
<script src="https://cdnjs.cloudflare.com/ajax/libs/Chart.js/3.9.1/chart.min.js"></script>
<style>body { margin: 0; }</style>
</head>
<body><canvas id="chart"></canvas><script>new Chart(document.getElementById("chart"), {});</script></body>
</html>`

const poorHTMLDoc = `<div>Chart.js report without the rest</div>`

func newTestAssembler(generator llm.TextGenerator) ReportAssembler {
	logger := zap.NewNop()
	return NewReportAssembler(
		generator,
		NewDataProfiler(logger),
		NewInsightGenerator(logger),
		NewSchemaCatalogService(logger),
		logger,
	)
}

func TestBuildStructuredReport_NoGenerator(t *testing.T) {
	a := newTestAssembler(nil)
	_, err := a.BuildStructuredReport(context.Background(), "q", "SELECT 1", nil, []map[string]any{{"a": 1.0}})
	assert.ErrorIs(t, err, apperrors.ErrLLMNotConfigured)
}

func TestBuildStructuredReport_EmptyRowsSkipsGeneration(t *testing.T) {
	generator := &llm.MockTextGenerator{}
	a := newTestAssembler(generator)

	report, err := a.BuildStructuredReport(context.Background(), "q", "SELECT 1", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "There is no data to analyze.", report.Report)
	assert.Empty(t, report.Insights)
	assert.Zero(t, generator.GenerateTextCalls)
}

func TestBuildStructuredReport_Bundle(t *testing.T) {
	generator := &llm.MockTextGenerator{
		GenerateTextFunc: func(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error) {
			assert.Contains(t, prompt, "SELECT region")
			return "## Executive Summary\nRevenue is concentrated in EMEA.", nil
		},
	}
	a := newTestAssembler(generator)

	rows := []map[string]any{
		{"region": "EMEA", "revenue": 1200.0},
		{"region": "APAC", "revenue": 800.0},
	}
	report, err := a.BuildStructuredReport(context.Background(), "revenue by region", "SELECT region, revenue FROM sales", []string{"region", "revenue"}, rows)

	require.NoError(t, err)
	assert.Contains(t, report.Report, "Executive Summary")
	require.NotNil(t, report.ChartConfig)
	assert.Equal(t, "bar", report.ChartConfig.Type)
	require.NotNil(t, report.DataSummary)
	assert.Equal(t, 2, report.DataSummary.Overview.TotalRows)
	assert.Equal(t, 2, report.DataSummary.Overview.ColumnsCount)
	require.NotNil(t, report.DataAnalysis)
	assert.Equal(t, 2, report.DataAnalysis.RowCount)
}

func TestBuildHTMLReport_FirstAttemptPasses(t *testing.T) {
	generator := &llm.MockTextGenerator{
		GenerateTextFunc: func(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error) {
			return goodHTMLDoc, nil
		},
	}
	a := newTestAssembler(generator)

	report, err := a.BuildHTMLReport(context.Background(), "q", "SELECT 1", []string{"a"}, []map[string]any{{"a": 1.0}})

	require.NoError(t, err)
	assert.False(t, report.Fallback)
	assert.Equal(t, 1, report.Attempts)
	assert.Equal(t, 100, report.QualityScore)
	assert.Equal(t, 1, generator.GenerateTextCalls)
}

func TestBuildHTMLReport_RetriesOnceBelowThreshold(t *testing.T) {
	generator := &llm.MockTextGenerator{}
	generator.GenerateTextFunc = func(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error) {
		if generator.GenerateTextCalls == 1 {
			return poorHTMLDoc, nil
		}
		return goodHTMLDoc, nil
	}
	a := newTestAssembler(generator)

	report, err := a.BuildHTMLReport(context.Background(), "q", "SELECT 1", []string{"a"}, []map[string]any{{"a": 1.0}})

	require.NoError(t, err)
	assert.False(t, report.Fallback)
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 2, generator.GenerateTextCalls)
}

func TestBuildHTMLReport_FallbackAfterTwoPoorAttempts(t *testing.T) {
	generator := &llm.MockTextGenerator{
		GenerateTextFunc: func(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error) {
			return poorHTMLDoc, nil
		},
	}
	a := newTestAssembler(generator)

	report, err := a.BuildHTMLReport(context.Background(), "sales report", "SELECT 1", []string{"a"}, []map[string]any{{"a": 1.0}})

	require.NoError(t, err)
	assert.True(t, report.Fallback)
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 60, report.QualityScore)
	assert.True(t, strings.HasPrefix(report.HTMLContent, "<!DOCTYPE html>"))
	assert.Contains(t, report.HTMLContent, "sales report")
	assert.Equal(t, 2, generator.GenerateTextCalls)
}

func TestBuildHTMLReport_EmptyRowsFallsBackImmediately(t *testing.T) {
	generator := &llm.MockTextGenerator{}
	a := newTestAssembler(generator)

	report, err := a.BuildHTMLReport(context.Background(), "q", "SELECT 1", nil, nil)

	require.NoError(t, err)
	assert.True(t, report.Fallback)
	assert.Equal(t, 1, report.Attempts)
	assert.Zero(t, generator.GenerateTextCalls)
}

func TestContextAnalysis_EmptyRows(t *testing.T) {
	a := newTestAssembler(&llm.MockTextGenerator{})

	analysis, err := a.ContextAnalysis(context.Background(), "q", "SELECT 1", nil, "proj", nil, prompts.ContextualExplanation)

	require.NoError(t, err)
	assert.Equal(t, "No data to analyze; skipping contextual analysis.", analysis)
}

func TestContextAnalysis_InvalidType(t *testing.T) {
	a := newTestAssembler(&llm.MockTextGenerator{})

	_, err := a.ContextAnalysis(context.Background(), "q", "SELECT 1", []map[string]any{{"a": 1.0}}, "proj", nil, "prophecy")

	assert.ErrorContains(t, err, "invalid analysis type")
}

func TestExtractHTML(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare document passes through",
			raw:  "<!DOCTYPE html><html></html>",
			want: "<!DOCTYPE html><html></html>",
		},
		{
			name: "html fence",
			raw:  "Here you go:\n```html\n<!DOCTYPE html><html></html>\n```",
			want: "<!DOCTYPE html><html></html>",
		},
		{
			name: "plain fence",
			raw:  "```\n<!DOCTYPE html><html></html>\n```",
			want: "<!DOCTYPE html><html></html>",
		},
		{
			name: "no fence",
			raw:  "just text",
			want: "just text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractHTML(tt.raw))
		})
	}
}

func TestScoreHTMLQuality(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{name: "complete document", html: goodHTMLDoc, want: 100},
		{name: "chart lib without cdn", html: poorHTMLDoc, want: 30},
		{name: "no chart references at all", html: "<!DOCTYPE html><style></style>", want: 85},
		{name: "empty", html: "", want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreHTMLQuality(tt.html))
		})
	}
}
