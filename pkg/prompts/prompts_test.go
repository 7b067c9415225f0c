package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warelens/warelens-engine/pkg/models"
)

func TestBuildSQLGenerationSystemPrompt(t *testing.T) {
	prompt := BuildSQLGenerationSystemPrompt("## Schema\n- users(id, name)")

	assert.Contains(t, prompt, "## Schema")
	assert.Contains(t, prompt, "Return only the SQL query")
	assert.Contains(t, prompt, "must end with a semicolon")
	assert.Contains(t, prompt, "```sql")
}

func TestBuildAnalysisReportPrompt(t *testing.T) {
	profile := &models.DataProfile{
		RowCount: 3,
		Columns:  map[string]*models.ColumnProfile{},
		DataQuality: models.DataQuality{
			OverallScore: 92,
		},
	}
	rows := []map[string]any{
		{"region": "east", "total": 10},
		{"region": "west", "total": 20},
		{"region": "north", "total": 30},
	}

	prompt := BuildAnalysisReportPrompt("sales by region", "SELECT region, SUM(total) FROM sales GROUP BY region;", profile, []string{"large dataset"}, rows, 100)

	assert.Contains(t, prompt, "sales by region")
	assert.Contains(t, prompt, "SELECT region, SUM(total)")
	assert.Contains(t, prompt, "**Total rows**: 3")
	assert.Contains(t, prompt, "- large dataset")
	assert.Contains(t, prompt, "Executive Summary")
}

func TestBuildHTMLGenerationPrompt(t *testing.T) {
	rows := []map[string]any{
		{"category": "a", "count": 5},
		{"category": "b", "count": 7},
	}

	prompt := BuildHTMLGenerationPrompt("counts per category", "SELECT category, COUNT(*) FROM t GROUP BY category;", []string{"category", "count"}, rows)

	assert.Contains(t, prompt, "<!DOCTYPE html>")
	assert.Contains(t, prompt, ChartJSCDN)
	assert.Contains(t, prompt, "new Chart(")
	assert.Contains(t, prompt, "<style>")
	assert.Contains(t, prompt, "Total rows: 2")
}

func TestProfilingSystemPrompt(t *testing.T) {
	prompt := ProfilingSystemPrompt()

	for _, section := range []string{"Overview", "Table Analysis", "Relationships", "Business Questions", "Recommendations"} {
		assert.Contains(t, prompt, section)
	}
}

func TestBuildContextualAnalysisPrompt(t *testing.T) {
	rows := []map[string]any{{"id": 1}}

	t.Run("each mission renders", func(t *testing.T) {
		for _, at := range []ContextualAnalysisType{ContextualExplanation, ContextualContext, ContextualSuggestion} {
			prompt, err := BuildContextualAnalysisPrompt("q", "SELECT 1;", rows, "schema", at)
			require.NoError(t, err)
			assert.Contains(t, prompt, "Requested analysis")
		}
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := BuildContextualAnalysisPrompt("q", "SELECT 1;", rows, "schema", ContextualAnalysisType("bogus"))
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "invalid analysis type"))
	})
}
