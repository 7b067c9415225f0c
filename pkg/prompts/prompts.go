// Package prompts builds the LLM prompts used for SQL generation, report
// generation and profiling. The exact wording is part of the output
// contract; downstream parsing depends on the formats requested here.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warelens/warelens-engine/pkg/models"
)

// ChartJSCDN is the only chart library URL report HTML may load. HTML
// quality scoring checks for this exact host path.
const ChartJSCDN = "https://cdnjs.cloudflare.com/ajax/libs/Chart.js/3.9.1/chart.min.js"

// BuildSQLGenerationSystemPrompt wraps the rendered schema context with the
// rules the SQL generator must follow.
func BuildSQLGenerationSystemPrompt(schemaPrompt string) string {
	var b strings.Builder

	b.WriteString("You are an expert in analytical warehouse SQL, specialized in exploring diverse datasets.\n")
	b.WriteString("Translate the user's natural-language question into a single SQL query.\n\n")

	b.WriteString(schemaPrompt)
	b.WriteString("\n\n## Rules\n\n")

	b.WriteString("### 1. Syntax and format\n")
	b.WriteString("- Use standard warehouse SQL syntax\n")
	b.WriteString("- Return only the SQL query, no explanation\n")
	b.WriteString("- The query must end with a semicolon (;)\n\n")

	b.WriteString("### 2. Performance\n")
	b.WriteString("- Use LIMIT on large tables to bound result size\n")
	b.WriteString("- Use partition or clustering filters when available\n")
	b.WriteString("- SELECT only the columns you need\n")
	b.WriteString("- Filter with WHERE whenever possible\n\n")

	b.WriteString("### 3. Data types\n")
	b.WriteString("- Access RECORD fields with dot notation: field.subfield\n")
	b.WriteString("- Expand REPEATED fields before aggregating over them\n")
	b.WriteString("- Use EXTRACT() and DATE() for timestamp handling\n")
	b.WriteString("- Handle NULL values with IFNULL or COALESCE\n\n")

	b.WriteString("### 4. Aggregation\n")
	b.WriteString("- Include every non-aggregated column in GROUP BY\n")
	b.WriteString("- Window functions are available for advanced analysis\n\n")

	b.WriteString("### 5. Common patterns\n")
	b.WriteString("- Basic statistics: COUNT, SUM, AVG, MIN, MAX\n")
	b.WriteString("- Time series: daily, monthly, yearly trends\n")
	b.WriteString("- Top N: ORDER BY with LIMIT\n")
	b.WriteString("- Ratios: share of total, growth rates\n")
	b.WriteString("- Conditional aggregation: CASE WHEN\n\n")

	b.WriteString("### 6. Example patterns\n\n")
	b.WriteString("Basic lookup:\n```sql\nSELECT * FROM my_table LIMIT 10;\n```\n\n")
	b.WriteString("Aggregation:\n```sql\nSELECT category, COUNT(*) AS count, AVG(amount) AS avg_amount\nFROM my_table\nGROUP BY category\nORDER BY count DESC;\n```\n\n")
	b.WriteString("Time series:\n```sql\nSELECT DATE(event_time) AS date, COUNT(*) AS daily_count\nFROM my_table\nWHERE event_time >= '2024-01-01'\nGROUP BY DATE(event_time)\nORDER BY date;\n```\n\n")

	b.WriteString("Understand the intent of the question and produce the most efficient SQL for it.")

	return b.String()
}

// BuildAnalysisReportPrompt renders the structured-report prompt from the
// question, the executed SQL, the data profile, the rule-based insights and
// a bounded sample of the result rows.
func BuildAnalysisReportPrompt(question, sqlQuery string, profile *models.DataProfile, insights []string, rows []map[string]any, maxRows int) string {
	sample := rows
	if len(sample) > maxRows {
		sample = sample[:maxRows]
	}

	columnsCount := 0
	if len(sample) > 0 {
		columnsCount = len(sample[0])
	}

	var b strings.Builder

	b.WriteString("The following is the result of a warehouse data analysis. Write a professional, practical analysis report.\n\n")

	b.WriteString("## Analysis request\n")
	b.WriteString(fmt.Sprintf("**Original question**: %s\n\n", question))
	b.WriteString(fmt.Sprintf("**Executed SQL**:\n```sql\n%s\n```\n\n", sqlQuery))

	b.WriteString("## Data overview\n")
	b.WriteString(fmt.Sprintf("- **Total rows**: %d\n", profile.RowCount))
	b.WriteString(fmt.Sprintf("- **Columns**: %d\n", columnsCount))
	b.WriteString(fmt.Sprintf("- **Data quality score**: %.0f of 100\n\n", profile.DataQuality.OverallScore))

	b.WriteString("## Column details\n")
	b.WriteString(mustJSON(profile.Columns))
	b.WriteString("\n\n## Automatically derived insights\n")
	for _, insight := range insights {
		b.WriteString(fmt.Sprintf("- %s\n", insight))
	}

	b.WriteString("\n## Sample data (first 5 rows)\n")
	head := rows
	if len(head) > 5 {
		head = head[:5]
	}
	b.WriteString(mustJSON(head))

	b.WriteString("\n\n---\n\nWrite the report with this structure:\n\n")
	b.WriteString("# 📊 Data Analysis Report\n\n")
	b.WriteString("## 🎯 Executive Summary\n")
	b.WriteString("- The 3-4 most important findings, concise and specific\n")
	b.WriteString("- Lead with business impact, backed by concrete numbers\n\n")
	b.WriteString("## 📈 Key Statistics\n")
	b.WriteString("- Headline metrics with comparable benchmarks where possible\n\n")
	b.WriteString("## 🔍 Data Patterns\n")
	b.WriteString("- Trends, outliers and distribution characteristics\n\n")
	b.WriteString("## 💡 Business Implications\n")
	b.WriteString("- Concrete suggestions practitioners can act on\n")
	b.WriteString("- Risks and caveats to keep in mind\n\n")
	b.WriteString("## 🚀 Suggested Follow-ups\n")
	b.WriteString("- Follow-up questions for deeper analysis and next actions\n\n")
	b.WriteString("## ⚠️ Data Quality and Limitations\n")
	b.WriteString("- Quality issues, interpretation caveats, sampling constraints\n\n")
	b.WriteString("**Style**: keep each section concise and scannable, include concrete numbers and percentages, and briefly explain any technical terms.")

	return b.String()
}

// BuildHTMLGenerationPrompt renders the prompt asking for a fully
// self-contained HTML report page. Chart labels and values are prepared
// from the first two result columns so the model has concrete data to chart.
func BuildHTMLGenerationPrompt(question, sqlQuery string, columns []string, rows []map[string]any) string {
	sample := rows
	if len(sample) > 10 {
		sample = sample[:10]
	}

	var chartLabels []string
	var chartValues []float64
	if len(columns) >= 2 {
		for _, row := range sample {
			label := row[columns[0]]
			chartLabels = append(chartLabels, fmt.Sprintf("%v", label))
			chartValues = append(chartValues, toFloat(row[columns[1]]))
		}
	}

	head := sample
	if len(head) > 5 {
		head = head[:5]
	}

	var b strings.Builder

	b.WriteString("Generate a complete, modern, self-contained HTML page presenting the following analysis result.\n\n")

	b.WriteString("## Analysis\n")
	b.WriteString(fmt.Sprintf("**Original question**: %s\n\n", question))
	b.WriteString(fmt.Sprintf("**Executed SQL**:\n```sql\n%s\n```\n\n", sqlQuery))

	b.WriteString("**Data**:\n")
	b.WriteString(fmt.Sprintf("- Total rows: %d\n", len(rows)))
	b.WriteString(fmt.Sprintf("- Columns: %s\n\n", strings.Join(columns, ", ")))

	b.WriteString("**Sample data** (first 5 rows):\n")
	b.WriteString(mustJSON(head))
	b.WriteString("\n\n**Chart data**:\n")
	b.WriteString(fmt.Sprintf("- Labels: %s\n", mustJSON(chartLabels)))
	b.WriteString(fmt.Sprintf("- Values: %s\n\n", mustJSON(chartValues)))

	b.WriteString("---\n\n## Requirements\n\n")
	b.WriteString("### 1. Technical\n")
	b.WriteString("- A complete HTML document from `<!DOCTYPE html>` to `</html>`\n")
	b.WriteString(fmt.Sprintf("- Chart.js via CDN: `%s`\n", ChartJSCDN))
	b.WriteString("- Responsive layout for mobile, tablet and desktop\n")
	b.WriteString("- All CSS inline inside a `<style>` tag, no external stylesheets\n\n")

	b.WriteString("### 2. Design\n")
	b.WriteString("- Clean card-based layout with shadows and rounded corners\n")
	b.WriteString("- Primary color #4285f4, accents #34a853, #fbbc05, #ea4335\n")
	b.WriteString("- Backgrounds #f8f9fa and #ffffff, text #202124 and #5f6368\n")
	b.WriteString("- Unicode emoji for icons\n\n")

	b.WriteString("### 3. Content structure\n")
	b.WriteString("- Header with the question, a KPI dashboard, a chart section with a `<canvas>`, a responsive data table, an insights section, and a collapsible SQL section\n")
	b.WriteString("- A working `new Chart(...)` call using the chart data above\n\n")

	b.WriteString("### 4. Analysis content\n")
	b.WriteString("- Concrete insights derived from the actual data provided\n")
	b.WriteString("- Business interpretation of the numbers, not just a restatement\n\n")

	b.WriteString("**Important**: all JavaScript and CSS must live inside the HTML file, and the Chart.js code must run as-is.\n\n")
	b.WriteString("Return only the complete HTML code.")

	return b.String()
}

// ProfilingSystemPrompt is the system prompt for dataset profiling sections.
func ProfilingSystemPrompt() string {
	var b strings.Builder

	b.WriteString("You are a data analysis and warehouse expert.\n")
	b.WriteString("Analyze the provided table metadata and write a professional, practical data profiling report.\n\n")

	b.WriteString("## Perspectives\n")
	b.WriteString("1. **Business**: what value the data can provide\n")
	b.WriteString("2. **Technical**: structure, quality and performance optimization\n")
	b.WriteString("3. **Analytical**: feasible analysis scenarios and how to derive insight\n\n")

	b.WriteString("## Style\n")
	b.WriteString("- Professional but accessible language\n")
	b.WriteString("- Concrete numbers and examples\n")
	b.WriteString("- Suggestions that are immediately applicable\n")
	b.WriteString("- Balanced mention of risks and limitations\n\n")

	b.WriteString("## Report structure\n")
	b.WriteString("Write substantial, practical content for each section:\n\n")
	b.WriteString("### 1. Overview\n- Overall character and scale of the dataset, likely business domain, potential value\n\n")
	b.WriteString("### 2. Table Analysis\n- Per-table detail, schema complexity, expected quality issues, performance considerations (partitioning, clustering)\n\n")
	b.WriteString("### 3. Relationships\n- Common-field based relationships, potential join keys, data flow, normalization level\n\n")
	b.WriteString("### 4. Business Questions\n- 5-7 core questions the data can answer, the analysis approach for each, expected insights, additional data needs\n\n")
	b.WriteString("### 5. Recommendations\n- Usage strategy, analysis priorities, governance considerations, optimization, caveats\n\n")
	b.WriteString("Each section must stand on its own while the whole reads as one coherent analysis story.")

	return b.String()
}

// ContextualAnalysisType selects the mission of a contextual analysis.
type ContextualAnalysisType string

const (
	ContextualExplanation ContextualAnalysisType = "explanation"
	ContextualContext     ContextualAnalysisType = "context"
	ContextualSuggestion  ContextualAnalysisType = "suggestion"
)

type contextualMission struct {
	title       string
	instruction string
}

var contextualMissions = map[ContextualAnalysisType]contextualMission{
	ContextualExplanation: {
		title:       "### Result Data Explained 📊",
		instruction: "Explain clearly and concisely what the returned data means. Point out the main patterns or anything notable.",
	},
	ContextualContext: {
		title:       "### Context Analysis 🔍",
		instruction: "Explain what this result means within the whole dataset, including other tables. Show the bigger picture or insight available by combining this result with data from other tables.",
	},
	ContextualSuggestion: {
		title:       "### Suggested Follow-up Analyses 💡",
		instruction: "Propose 2-3 concrete follow-up questions that go one step further. For each, briefly sketch which tables to join or analyze and how, so the user can easily decide their next move.",
	},
}

// BuildContextualAnalysisPrompt renders a single-mission contextual analysis
// prompt. Returns an error for an unknown analysis type.
func BuildContextualAnalysisPrompt(question, sqlQuery string, rows []map[string]any, schemaPrompt string, analysisType ContextualAnalysisType) (string, error) {
	mission, ok := contextualMissions[analysisType]
	if !ok {
		return "", fmt.Errorf("invalid analysis type: %s", analysisType)
	}

	sample := rows
	if len(sample) > 10 {
		sample = sample[:10]
	}

	var b strings.Builder

	b.WriteString("You are a data analysis expert. You are given the user's question, the warehouse query result, and the schema of the whole dataset.\n\n")

	b.WriteString("## 1. Analysis context\n")
	b.WriteString(fmt.Sprintf("**User question**: %s\n", question))
	b.WriteString(fmt.Sprintf("**Executed SQL**:\n```sql\n%s\n```\n", sqlQuery))
	b.WriteString("**Result (first 10 rows)**:\n```json\n")
	b.WriteString(mustJSON(sample))
	b.WriteString("\n```\n\n")

	b.WriteString("## 2. Dataset schema\n")
	b.WriteString(schemaPrompt)
	b.WriteString("\n\n## 3. Your mission\n")
	b.WriteString("Produce a professional answer for the item below, in markdown.\n\n")
	b.WriteString(fmt.Sprintf("**Requested analysis: %s**\n\n", mission.title))
	b.WriteString(fmt.Sprintf("**Instructions**: %s\n\n", mission.instruction))
	b.WriteString("**Style**: expert but approachable tone, use emoji sparingly for readability, and include only the requested analysis with no extra headings.")

	return b.String(), nil
}

func mustJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f
		}
	}
	return 0
}
