package models

import (
	"fmt"
	"time"
)

// FieldType is the declared warehouse type of a column.
type FieldType string

const (
	FieldTypeString     FieldType = "STRING"
	FieldTypeInteger    FieldType = "INTEGER"
	FieldTypeFloat      FieldType = "FLOAT"
	FieldTypeBoolean    FieldType = "BOOLEAN"
	FieldTypeDate       FieldType = "DATE"
	FieldTypeDatetime   FieldType = "DATETIME"
	FieldTypeTimestamp  FieldType = "TIMESTAMP"
	FieldTypeTime       FieldType = "TIME"
	FieldTypeNumeric    FieldType = "NUMERIC"
	FieldTypeBigNumeric FieldType = "BIGNUMERIC"
	FieldTypeBytes      FieldType = "BYTES"
	FieldTypeRecord     FieldType = "RECORD"
)

// FieldMode describes nullability and repetition of a column.
type FieldMode string

const (
	FieldModeNullable FieldMode = "NULLABLE"
	FieldModeRequired FieldMode = "REQUIRED"
	FieldModeRepeated FieldMode = "REPEATED"
)

// IsNumeric reports whether the field type holds numeric values.
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldTypeInteger, FieldTypeFloat, FieldTypeNumeric, FieldTypeBigNumeric:
		return true
	}
	return false
}

// IsTemporal reports whether the field type holds date/time values.
func (t FieldType) IsTemporal() bool {
	switch t {
	case FieldTypeDate, FieldTypeDatetime, FieldTypeTimestamp, FieldTypeTime:
		return true
	}
	return false
}

// ColumnMetadata describes a single column of a warehouse table.
// Fields is populated only for RECORD columns.
type ColumnMetadata struct {
	Name        string           `json:"name"`
	Type        FieldType        `json:"type"`
	Mode        FieldMode        `json:"mode"`
	Description string           `json:"description,omitempty"`
	Fields      []ColumnMetadata `json:"fields,omitempty"`
}

// PartitioningInfo describes table partitioning, for engines that have it.
type PartitioningInfo struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// ClusteringInfo describes table clustering keys.
type ClusteringInfo struct {
	Fields []string `json:"fields"`
}

// TableMetadata is the extracted metadata for one table. Instances are
// immutable once stored in the catalog; re-extraction replaces them wholesale.
// Error is set instead of the other fields when extraction failed for this
// table, so one broken table does not fail a whole extraction batch.
type TableMetadata struct {
	TableID      string            `json:"table_id"`
	NumRows      int64             `json:"num_rows"`
	NumBytes     int64             `json:"num_bytes"`
	Created      *time.Time        `json:"created,omitempty"`
	Modified     *time.Time        `json:"modified,omitempty"`
	Description  string            `json:"description,omitempty"`
	Schema       []ColumnMetadata  `json:"schema,omitempty"`
	Partitioning *PartitioningInfo `json:"partitioning,omitempty"`
	Clustering   *ClusteringInfo   `json:"clustering,omitempty"`
	Error        string            `json:"error,omitempty"`
	ErrorType    string            `json:"error_type,omitempty"`
}

// MetadataSummary aggregates sizes across an extraction batch.
type MetadataSummary struct {
	TotalTables    int   `json:"total_tables"`
	TotalRows      int64 `json:"total_rows"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}

// ProjectMetadata holds everything extracted for one project in one pass.
// TableOrder preserves the extraction order so prompt rendering is
// deterministic; Tables is keyed by qualified table id.
type ProjectMetadata struct {
	ProjectID   string                    `json:"project_id"`
	Tables      map[string]*TableMetadata `json:"tables"`
	TableOrder  []string                  `json:"table_order"`
	Summary     MetadataSummary           `json:"summary"`
	ExtractedAt time.Time                 `json:"extracted_at"`
}

// TableSuggestion is a compact table summary for autocomplete surfaces.
type TableSuggestion struct {
	TableID     string   `json:"table_id"`
	Description string   `json:"description"`
	NumRows     int64    `json:"num_rows"`
	Size        string   `json:"size"`
	MainFields  []string `json:"main_fields"`
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatByteSize renders a byte count with binary-prefix units (base 1024).
// Whole bytes are printed without decimals.
func FormatByteSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}

	if unit == 0 {
		return fmt.Sprintf("%d %s", int64(size), sizeUnits[unit])
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}
