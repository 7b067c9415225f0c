package models

// JoinConfidence grades how likely a shared field is a usable join key.
type JoinConfidence string

const (
	JoinConfidenceHigh   JoinConfidence = "high"
	JoinConfidenceMedium JoinConfidence = "medium"
)

// CommonField is a field name that appears with an identical declared type
// in more than one table of a catalog entry.
type CommonField struct {
	Field            string    `json:"field"`
	Type             FieldType `json:"type"`
	Tables           []string  `json:"tables"`
	PotentialJoinKey bool      `json:"is_potential_join_key"`
}

// JoinKeyCandidate is a shared, type-compatible field between two tables.
type JoinKeyCandidate struct {
	Field      string         `json:"field"`
	Type       FieldType      `json:"type"`
	Confidence JoinConfidence `json:"confidence"`
}

// TableRelationship describes inferred linkage between two tables.
// Strength is (shared fields / union of fields) x 100.
type TableRelationship struct {
	Table1            string             `json:"table1"`
	Table2            string             `json:"table2"`
	Strength          float64            `json:"relationship_strength"`
	CommonFields      []string           `json:"common_fields"`
	PotentialJoinKeys []JoinKeyCandidate `json:"potential_join_keys"`
	SuggestedJoin     string             `json:"suggested_join,omitempty"`
}

// ColumnRelationshipKind classifies a detected relationship between two
// columns of a single result set.
type ColumnRelationshipKind string

const (
	RelationshipStrongCorrelation   ColumnRelationshipKind = "strong_correlation"
	RelationshipModerateCorrelation ColumnRelationshipKind = "moderate_correlation"
	RelationshipPotentialForeignKey ColumnRelationshipKind = "potential_foreign_key"
	RelationshipHierarchical        ColumnRelationshipKind = "hierarchical"
)

// ColumnRelationship is a candidate relationship between two result-set
// columns. Recomputed on each request, never persisted.
type ColumnRelationship struct {
	Column1     string                 `json:"column1"`
	Column2     string                 `json:"column2"`
	Kind        ColumnRelationshipKind `json:"relationship_type"`
	Confidence  float64                `json:"confidence"`
	Description string                 `json:"description"`
}
