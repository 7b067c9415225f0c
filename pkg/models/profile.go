package models

// ColumnType is the inferred value type of a result-set column.
// Inference looks at the first non-null value only; a column whose first
// value does not represent the majority type will be mis-profiled. That
// behavior is intentional and kept for output compatibility.
type ColumnType string

const (
	ColumnTypeNumeric     ColumnType = "numeric"
	ColumnTypeCategorical ColumnType = "categorical"
	ColumnTypeDatetime    ColumnType = "datetime"
	ColumnTypeMixed       ColumnType = "mixed"
	ColumnTypeUnknown     ColumnType = "unknown"
)

// NumericStats holds descriptive statistics for a numeric column.
// Median is the value at the middle sorted index (no averaging for even
// counts); quartiles are index-based, not interpolated.
type NumericStats struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Sum          float64 `json:"sum"`
	Range        float64 `json:"range"`
	OutlierCount int     `json:"outliers,omitempty"`
}

// CategoricalStats holds distribution statistics for a string column.
// TopValues is computed over the distinct values seen in the first 100 rows
// only, a performance shortcut carried over deliberately.
type CategoricalStats struct {
	UniqueCount int            `json:"unique_count"`
	Cardinality float64        `json:"cardinality"`
	MostCommon  string         `json:"most_common"`
	TopValues   map[string]int `json:"top_values"`
}

// DatetimeStats holds the observed time span of a datetime column.
type DatetimeStats struct {
	Earliest      string `json:"earliest"`
	Latest        string `json:"latest"`
	DateRangeDays int    `json:"date_range_days"`
}

// ColumnProfile is the per-column output of the data profiler.
// Exactly one of Numeric/Categorical/Datetime is set, matching Type.
type ColumnProfile struct {
	Type             ColumnType        `json:"type"`
	NonNullCount     int               `json:"non_null_count"`
	NullCount        int               `json:"null_count"`
	NullPercentage   float64           `json:"null_percentage"`
	Completeness     float64           `json:"completeness"`
	ConsistencyScore float64           `json:"consistency_score"`
	QualityIssues    []string          `json:"data_quality_issues"`
	Numeric          *NumericStats     `json:"numeric_stats,omitempty"`
	Categorical      *CategoricalStats `json:"categorical_stats,omitempty"`
	Datetime         *DatetimeStats    `json:"datetime_stats,omitempty"`
}

// DataQuality summarizes quality across all profiled columns.
type DataQuality struct {
	Completeness float64 `json:"completeness"`
	Consistency  float64 `json:"consistency"`
	OverallScore float64 `json:"overall_score"`
}

// DataProfile is the full profiling result for one result set.
// ColumnOrder preserves the column order of the result set so downstream
// consumers (insight generation in particular) iterate deterministically.
type DataProfile struct {
	RowCount    int                       `json:"row_count"`
	Columns     map[string]*ColumnProfile `json:"columns"`
	ColumnOrder []string                  `json:"column_order"`
	Patterns    []string                  `json:"patterns"`
	DataQuality DataQuality               `json:"data_quality"`
}

// ColumnsOfType returns column names of the given inferred type, in result
// set order.
func (p *DataProfile) ColumnsOfType(t ColumnType) []string {
	var names []string
	for _, name := range p.ColumnOrder {
		if col, ok := p.Columns[name]; ok && col.Type == t {
			names = append(names, name)
		}
	}
	return names
}
