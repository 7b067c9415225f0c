package models

import "time"

// ChartLibrary is the only client-side chart library report HTML targets.
const ChartLibrary = "Chart.js"

// ChartConfig is a rendering suggestion derived from the shape of a result
// set. ValueColumn is set for single-series charts, ValueColumns for
// multi-series ones.
type ChartConfig struct {
	Type         string   `json:"type"`
	LabelColumn  string   `json:"label_column"`
	ValueColumn  string   `json:"value_column,omitempty"`
	ValueColumns []string `json:"value_columns,omitempty"`
	Title        string   `json:"title"`
	ChartLibrary string   `json:"chart_library"`
}

// DataOverview is the headline block of a data summary.
type DataOverview struct {
	TotalRows        int                   `json:"total_rows"`
	ColumnsCount     int                   `json:"columns_count"`
	DataTypes        map[string]ColumnType `json:"data_types"`
	DataQualityScore float64               `json:"data_quality_score"`
}

// DataSummary bundles the profile-derived summary embedded in reports.
type DataSummary struct {
	Overview      DataOverview              `json:"overview"`
	KeyStatistics map[string]*ColumnProfile `json:"key_statistics"`
	QuickInsights []string                  `json:"quick_insights"`
}

// AnalysisReport is the structured analysis bundle for one question.
type AnalysisReport struct {
	Report       string       `json:"report"`
	ChartConfig  *ChartConfig `json:"chart_config,omitempty"`
	DataSummary  *DataSummary `json:"data_summary,omitempty"`
	Insights     []string     `json:"insights"`
	DataAnalysis *DataProfile `json:"data_analysis,omitempty"`
}

// HTMLReport is the result of self-contained HTML document generation.
// Fallback is true when generation never reached the quality threshold and
// the deterministic template was used instead.
type HTMLReport struct {
	HTMLContent  string `json:"html_content"`
	QualityScore int    `json:"quality_score"`
	Attempts     int    `json:"attempts"`
	Fallback     bool   `json:"fallback"`
}

// ProfilingReport is the multi-section narrative produced by the profiling
// workflow. Sections is keyed by section id in SectionOrder.
type ProfilingReport struct {
	Sections    map[string]string `json:"sections" bson:"sections"`
	FullReport  string            `json:"full_report" bson:"full_report"`
	GeneratedAt time.Time         `json:"generated_at" bson:"generated_at"`
}

// ExecutionStats carries warehouse-side statistics for one query run.
type ExecutionStats struct {
	BytesProcessed int64  `json:"bytes_processed"`
	StartTime      string `json:"start_time,omitempty"`
	EndTime        string `json:"end_time,omitempty"`
	QueryID        string `json:"query_id,omitempty"`
}

// ExecutionResult is the structured outcome of running SQL against the
// warehouse. Execution failures are captured here, not raised, so callers
// can show both the failing SQL and the reason.
type ExecutionResult struct {
	Success   bool             `json:"success"`
	Columns   []string         `json:"columns,omitempty"`
	Rows      []map[string]any `json:"data"`
	RowCount  int              `json:"row_count"`
	JobStats  *ExecutionStats  `json:"job_stats,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorType string           `json:"error_type,omitempty"`
}
