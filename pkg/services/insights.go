package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/models"
)

// InsightGenerator turns a data profile into short natural-language insight
// strings and suggests a chart configuration for a result set.
type InsightGenerator interface {
	// Generate runs the rule cascade over a profile. Each rule appends zero
	// or one insight, independent of the others; ordering is fixed.
	Generate(profile *models.DataProfile, question string) []string

	// SuggestChart proposes a chart for the result shape, or nil when no
	// sensible chart exists. The decision looks at the first row only.
	SuggestChart(rows []map[string]any, columns []string) *models.ChartConfig
}

type insightGenerator struct {
	logger *zap.Logger
}

func NewInsightGenerator(logger *zap.Logger) InsightGenerator {
	return &insightGenerator{logger: logger.Named("insights")}
}

var _ InsightGenerator = (*insightGenerator)(nil)

var (
	trendKeywords   = []string{"trend", "time", "date", "daily", "monthly", "yearly", "over time"}
	compareKeywords = []string{"compare", "comparison", "vs", "versus", "against"}
)

func (g *insightGenerator) Generate(profile *models.DataProfile, question string) []string {
	var insights []string

	// Row-count buckets. Counts in [10, 1000] emit nothing; the gap is part
	// of the contract.
	switch {
	case profile.RowCount > 10000:
		insights = append(insights, fmt.Sprintf("📊 **Large dataset**: a substantial set of %s records.", formatCount(int64(profile.RowCount))))
	case profile.RowCount > 1000:
		insights = append(insights, fmt.Sprintf("📊 **Medium dataset**: %s records.", formatCount(int64(profile.RowCount))))
	case profile.RowCount < 10:
		insights = append(insights, fmt.Sprintf("📊 **Small dataset**: a limited sample of %d records.", profile.RowCount))
	}

	// Quality buckets. Scores in [50, 70) emit nothing.
	score := profile.DataQuality.OverallScore
	switch {
	case score >= 90:
		insights = append(insights, "✅ **Excellent data quality**: completeness and consistency are very high.")
	case score >= 70:
		insights = append(insights, "⚠️ **Good data quality**: generally solid with room for some cleanup.")
	case score < 50:
		insights = append(insights, "🚨 **Data quality warning**: the data needs cleaning before deeper analysis.")
	}

	numericCols := profile.ColumnsOfType(models.ColumnTypeNumeric)
	categoricalCols := profile.ColumnsOfType(models.ColumnTypeCategorical)

	if len(numericCols) > 0 {
		insights = append(insights, fmt.Sprintf("🔢 **Numeric data**: %d columns (%s)", len(numericCols), previewNames(numericCols)))
	}
	if len(categoricalCols) > 0 {
		insights = append(insights, fmt.Sprintf("📂 **Categorical data**: %d columns (%s)", len(categoricalCols), previewNames(categoricalCols)))
	}

	// Per-column highlights for the first 3 columns only.
	for i, name := range profile.ColumnOrder {
		if i == 3 {
			break
		}
		col := profile.Columns[name]
		switch col.Type {
		case models.ColumnTypeNumeric:
			if col.Numeric == nil {
				continue
			}
			if col.Numeric.Sum > 1000000 {
				insights = append(insights, fmt.Sprintf("💰 **%s**: high total of %.0f.", name, col.Numeric.Sum))
			} else if col.Numeric.Range > col.Numeric.Mean*10 {
				insights = append(insights, fmt.Sprintf("📈 **%s**: wide value range (min %.0f, max %.0f).", name, col.Numeric.Min, col.Numeric.Max))
			}
		case models.ColumnTypeCategorical:
			if col.Categorical == nil {
				continue
			}
			if col.Categorical.Cardinality < 10 {
				insights = append(insights, fmt.Sprintf("🏷️ **%s**: low cardinality (%d unique values), well suited for grouping.", name, col.Categorical.UniqueCount))
			} else if col.Categorical.Cardinality > 80 {
				insights = append(insights, fmt.Sprintf("🌟 **%s**: high cardinality (%d unique values), likely an identifier.", name, col.Categorical.UniqueCount))
			}
		}
	}

	if question != "" {
		lower := strings.ToLower(question)
		if containsAny(lower, trendKeywords) {
			if dtCols := profile.ColumnsOfType(models.ColumnTypeDatetime); len(dtCols) > 0 {
				insights = append(insights, fmt.Sprintf("📅 **Time-series ready**: columns %s support trend analysis over time.", strings.Join(dtCols, ", ")))
			}
		}
		if containsAny(lower, compareKeywords) && len(categoricalCols) >= 2 {
			insights = append(insights, "🔄 **Comparison ready**: multiple categorical columns support comparative analysis.")
		}
	}

	return insights
}

func previewNames(names []string) string {
	preview := names
	suffix := ""
	if len(preview) > 3 {
		preview = preview[:3]
		suffix = "..."
	}
	return strings.Join(preview, ", ") + suffix
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (g *insightGenerator) SuggestChart(rows []map[string]any, columns []string) *models.ChartConfig {
	if len(rows) == 0 || len(columns) <= 1 {
		return nil
	}

	first := rows[0]

	if len(columns) == 2 {
		label, value := columns[0], columns[1]
		// Nulls in the first row count as an empty label and a zero value,
		// so a null pair still yields a bar chart.
		labelOK := first[label] == nil || isStringValue(first[label])
		valueOK := first[value] == nil || isNumberValue(first[value])
		if labelOK && valueOK {
			return &models.ChartConfig{
				Type:         "bar",
				LabelColumn:  label,
				ValueColumn:  value,
				Title:        fmt.Sprintf("%s by %s", value, label),
				ChartLibrary: models.ChartLibrary,
			}
		}
		return nil
	}

	// Three or more columns: first is the label, the rest must all be
	// numeric in the first row. A null in row one of a later-homogeneous
	// column causes misclassification; kept for output compatibility.
	valueCols := columns[1:]
	for _, col := range valueCols {
		if v := first[col]; v != nil && !isNumberValue(v) {
			return nil
		}
	}

	chartType := "bar"
	if len(valueCols) > 1 {
		chartType = "line"
	}
	return &models.ChartConfig{
		Type:         chartType,
		LabelColumn:  columns[0],
		ValueColumns: valueCols,
		Title:        fmt.Sprintf("Comparison by %s", columns[0]),
		ChartLibrary: models.ChartLibrary,
	}
}
