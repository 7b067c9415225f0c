package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/models"
)

// SchemaCatalogService caches extracted warehouse metadata per project and
// renders it as LLM-ready schema context. The cache is process-wide, shared
// across requests, with no TTL; entries live until overwritten or cleared.
type SchemaCatalogService interface {
	// Register stores or replaces the cache entry for a project.
	Register(projectID string, metadata *models.ProjectMetadata)

	// SchemaPrompt renders the schema context for SQL generation. When the
	// project has no cache entry a minimal fallback prompt is returned so
	// callers degrade instead of failing.
	SchemaPrompt(projectID string, tableIDs []string) string

	// SuggestFields returns field names matching partial, case-insensitive,
	// including dotted paths for nested sub-fields. At most 10 filtered
	// matches, or the first 20 field names when partial is empty.
	SuggestFields(projectID, partial string) []string

	// SuggestTables returns table summaries sorted by row count descending.
	SuggestTables(projectID string) []models.TableSuggestion

	// InferRelationships derives pairwise table relationships from shared
	// field names within the project's cached metadata.
	InferRelationships(projectID string) []models.TableRelationship

	// Clear removes one project's entry, or all entries when projectID is
	// empty.
	Clear(projectID string)

	// Stats reports cache-wide counters.
	Stats() CatalogStats
}

// CatalogStats summarizes the schema cache contents.
type CatalogStats struct {
	CachedProjects int      `json:"cached_projects"`
	TotalTables    int      `json:"total_tables"`
	Projects       []string `json:"projects"`
}

type schemaCatalog struct {
	mu      sync.RWMutex
	entries map[string]*models.ProjectMetadata
	logger  *zap.Logger
}

func NewSchemaCatalogService(logger *zap.Logger) SchemaCatalogService {
	return &schemaCatalog{
		entries: make(map[string]*models.ProjectMetadata),
		logger:  logger.Named("schema-catalog"),
	}
}

var _ SchemaCatalogService = (*schemaCatalog)(nil)

// fieldTypeLabels are the human-readable labels used in rendered prompts.
var fieldTypeLabels = map[models.FieldType]string{
	models.FieldTypeString:     "text",
	models.FieldTypeInteger:    "integer",
	models.FieldTypeFloat:      "float",
	models.FieldTypeBoolean:    "boolean",
	models.FieldTypeDate:       "date",
	models.FieldTypeDatetime:   "datetime",
	models.FieldTypeTimestamp:  "timestamp",
	models.FieldTypeTime:       "time",
	models.FieldTypeNumeric:    "numeric",
	models.FieldTypeBigNumeric: "big numeric",
	models.FieldTypeBytes:      "binary",
	models.FieldTypeRecord:     "nested",
}

func (c *schemaCatalog) Register(projectID string, metadata *models.ProjectMetadata) {
	c.mu.Lock()
	c.entries[projectID] = metadata
	c.mu.Unlock()

	c.logger.Info("schema registered",
		zap.String("project_id", projectID),
		zap.Int("tables", len(metadata.Tables)))
}

func (c *schemaCatalog) SchemaPrompt(projectID string, tableIDs []string) string {
	c.mu.RLock()
	entry, ok := c.entries[projectID]
	c.mu.RUnlock()

	if !ok {
		return fallbackPrompt(projectID, tableIDs)
	}
	return buildDetailedPrompt(entry, tableIDs)
}

// fallbackPrompt is returned when no schema is cached for the project.
// It lists bare table ids with a warning so SQL generation can still run
// with degraded context.
func fallbackPrompt(projectID string, tableIDs []string) string {
	var b strings.Builder

	b.WriteString("The following tables belong to a warehouse project:\n\n")
	b.WriteString(fmt.Sprintf("**Project**: %s\n\n", projectID))
	b.WriteString("**Target tables**:\n")
	for _, id := range tableIDs {
		b.WriteString(fmt.Sprintf("- `%s`\n", id))
	}
	b.WriteString("\n**Warning**: schema detail is unavailable. Follow common warehouse conventions, quote table references, and limit result sizes with LIMIT.\n")

	return b.String()
}

func buildDetailedPrompt(entry *models.ProjectMetadata, targetIDs []string) string {
	tables := selectTables(entry, targetIDs)

	var totalBytes int64
	for _, t := range tables {
		totalBytes += t.NumBytes
	}

	var b strings.Builder

	b.WriteString("# Warehouse Project Schema\n\n")
	b.WriteString(fmt.Sprintf("**Project**: %s\n", entry.ProjectID))
	b.WriteString(fmt.Sprintf("**Tables**: %d\n", len(tables)))
	b.WriteString(fmt.Sprintf("**Total size**: %s\n\n", models.FormatByteSize(totalBytes)))

	for _, table := range tables {
		writeTableSection(&b, table)
	}

	if len(tables) > 1 {
		b.WriteString("## Table relationships\n")
		b.WriteString(renderCommonFields(tables))
		b.WriteString("\n\n")
	}

	b.WriteString("## Recommended query patterns\n")
	b.WriteString(renderQueryPatterns(tables))
	b.WriteString("\n")

	return b.String()
}

// selectTables resolves the tables in scope. An explicit id list is honored
// in request order (unknown ids are skipped); otherwise all tables render in
// extraction order.
func selectTables(entry *models.ProjectMetadata, targetIDs []string) []*models.TableMetadata {
	var out []*models.TableMetadata
	if len(targetIDs) > 0 {
		for _, id := range targetIDs {
			if t, ok := entry.Tables[id]; ok {
				out = append(out, t)
			}
		}
		return out
	}

	order := entry.TableOrder
	if len(order) == 0 {
		order = make([]string, 0, len(entry.Tables))
		for id := range entry.Tables {
			order = append(order, id)
		}
		sort.Strings(order)
	}
	for _, id := range order {
		if t, ok := entry.Tables[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func writeTableSection(b *strings.Builder, table *models.TableMetadata) {
	if table.Error != "" {
		b.WriteString(fmt.Sprintf("## Table: `%s` ❌\n", table.TableID))
		b.WriteString(fmt.Sprintf("- **Error**: %s\n\n", table.Error))
		return
	}

	b.WriteString(fmt.Sprintf("## Table: `%s`\n", table.TableID))
	b.WriteString(fmt.Sprintf("- **Rows**: %s\n", formatCount(table.NumRows)))
	b.WriteString(fmt.Sprintf("- **Size**: %s\n", models.FormatByteSize(table.NumBytes)))
	if table.Created != nil {
		b.WriteString(fmt.Sprintf("- **Created**: %s\n", table.Created.Format("2006-01-02")))
	}
	if table.Description != "" {
		b.WriteString(fmt.Sprintf("- **Description**: %s\n", table.Description))
	}
	if table.Partitioning != nil {
		field := table.Partitioning.Field
		if field == "" {
			field = "_PARTITIONTIME"
		}
		b.WriteString(fmt.Sprintf("- **Partitioning**: %s (%s)\n", field, table.Partitioning.Type))
	}
	if table.Clustering != nil && len(table.Clustering.Fields) > 0 {
		b.WriteString(fmt.Sprintf("- **Clustering**: %s\n", strings.Join(table.Clustering.Fields, ", ")))
	}

	b.WriteString("- **Schema**:\n")
	for _, field := range table.Schema {
		b.WriteString(fmt.Sprintf("  - %s\n", formatFieldLine(field)))
		for _, sub := range field.Fields {
			b.WriteString(fmt.Sprintf("    - %s\n", formatFieldLine(sub)))
		}
	}
	b.WriteString("\n")
}

func formatFieldLine(field models.ColumnMetadata) string {
	label, ok := fieldTypeLabels[field.Type]
	if !ok {
		label = string(field.Type)
	}

	switch field.Mode {
	case models.FieldModeRepeated:
		label += ", array"
	case models.FieldModeRequired:
		label += ", required"
	}

	line := fmt.Sprintf("`%s` (%s)", field.Name, label)
	if field.Description != "" {
		line += " - " + field.Description
	}
	return line
}

// findCommonFields collects fields appearing in more than one table with the
// same type in every appearance. Results are sorted by number of sharing
// tables descending, then name ascending, so rendering is deterministic.
func findCommonFields(tables []*models.TableMetadata) []models.CommonField {
	type occurrence struct {
		tables []string
		types  map[models.FieldType]bool
		typ    models.FieldType
	}

	seen := make(map[string]*occurrence)
	for _, table := range tables {
		if table.Error != "" {
			continue
		}
		for _, field := range table.Schema {
			occ, ok := seen[field.Name]
			if !ok {
				occ = &occurrence{types: make(map[models.FieldType]bool)}
				seen[field.Name] = occ
			}
			occ.tables = append(occ.tables, table.TableID)
			occ.types[field.Type] = true
			occ.typ = field.Type
		}
	}

	var common []models.CommonField
	for name, occ := range seen {
		if len(occ.tables) < 2 || len(occ.types) != 1 {
			continue
		}
		common = append(common, models.CommonField{
			Field:            name,
			Type:             occ.typ,
			Tables:           occ.tables,
			PotentialJoinKey: isJoinKeyName(name),
		})
	}

	sort.Slice(common, func(i, j int) bool {
		if len(common[i].Tables) != len(common[j].Tables) {
			return len(common[i].Tables) > len(common[j].Tables)
		}
		return common[i].Field < common[j].Field
	})

	return common
}

func isJoinKeyName(name string) bool {
	return strings.HasSuffix(name, "_id") || strings.HasSuffix(name, "_key") || name == "id"
}

func renderCommonFields(tables []*models.TableMetadata) string {
	common := findCommonFields(tables)
	if len(common) == 0 {
		return "- No common fields found"
	}

	if len(common) > 5 {
		common = common[:5]
	}

	var lines []string
	for _, cf := range common {
		quoted := make([]string, len(cf.Tables))
		for i, t := range cf.Tables {
			quoted[i] = "`" + t + "`"
		}
		line := fmt.Sprintf("- **%s** (%s): %s", cf.Field, cf.Type, strings.Join(quoted, ", "))
		if cf.PotentialJoinKey {
			line += " (possible join key)"
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func renderQueryPatterns(tables []*models.TableMetadata) string {
	var b strings.Builder
	wrote := false

	for _, table := range tables {
		if table.Error != "" || len(table.Schema) == 0 {
			continue
		}
		wrote = true

		b.WriteString("```sql\n")
		b.WriteString(fmt.Sprintf("-- %s basic lookup\n", table.TableID))
		b.WriteString(fmt.Sprintf("SELECT * FROM `%s` LIMIT 10;\n", table.TableID))

		if field := firstNumericField(table.Schema); field != "" {
			b.WriteString(fmt.Sprintf("\n-- %s numeric aggregate\n", table.TableID))
			b.WriteString(fmt.Sprintf("SELECT COUNT(*), AVG(%s), MAX(%s) FROM `%s`;\n", field, field, table.TableID))
		}

		if field := firstGroupableField(table.Schema); field != "" {
			b.WriteString(fmt.Sprintf("\n-- %s grouped counts\n", table.TableID))
			b.WriteString(fmt.Sprintf("SELECT %s, COUNT(*) FROM `%s` GROUP BY %s ORDER BY COUNT(*) DESC LIMIT 10;\n", field, table.TableID, field))
		}

		b.WriteString("```\n\n")
	}

	if !wrote {
		return "- No recommended patterns"
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstNumericField(schema []models.ColumnMetadata) string {
	for _, f := range schema {
		if f.Type.IsNumeric() {
			return f.Name
		}
	}
	return ""
}

// firstGroupableField returns the first string column that does not look
// like an identifier.
func firstGroupableField(schema []models.ColumnMetadata) string {
	for _, f := range schema {
		if f.Type == models.FieldTypeString && !strings.HasSuffix(f.Name, "_id") {
			return f.Name
		}
	}
	return ""
}

func (c *schemaCatalog) SuggestFields(projectID, partial string) []string {
	c.mu.RLock()
	entry, ok := c.entries[projectID]
	c.mu.RUnlock()

	if !ok {
		return nil
	}

	fieldSet := make(map[string]bool)
	for _, table := range entry.Tables {
		if table.Error != "" {
			continue
		}
		for _, field := range table.Schema {
			fieldSet[field.Name] = true
			for _, sub := range field.Fields {
				fieldSet[field.Name+"."+sub.Name] = true
			}
		}
	}

	var fields []string
	lower := strings.ToLower(partial)
	for name := range fieldSet {
		if partial == "" || strings.Contains(strings.ToLower(name), lower) {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)

	limit := 20
	if partial != "" {
		limit = 10
	}
	if len(fields) > limit {
		fields = fields[:limit]
	}
	return fields
}

func (c *schemaCatalog) SuggestTables(projectID string) []models.TableSuggestion {
	c.mu.RLock()
	entry, ok := c.entries[projectID]
	c.mu.RUnlock()

	if !ok {
		return nil
	}

	var suggestions []models.TableSuggestion
	for _, table := range selectTables(entry, nil) {
		if table.Error != "" {
			continue
		}
		var mainFields []string
		for i, f := range table.Schema {
			if i == 5 {
				break
			}
			mainFields = append(mainFields, f.Name)
		}
		suggestions = append(suggestions, models.TableSuggestion{
			TableID:     table.TableID,
			Description: table.Description,
			NumRows:     table.NumRows,
			Size:        models.FormatByteSize(table.NumBytes),
			MainFields:  mainFields,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].NumRows > suggestions[j].NumRows
	})
	return suggestions
}

func (c *schemaCatalog) InferRelationships(projectID string) []models.TableRelationship {
	c.mu.RLock()
	entry, ok := c.entries[projectID]
	c.mu.RUnlock()

	if !ok {
		return nil
	}
	return inferTableRelationships(selectTables(entry, nil))
}

// inferTableRelationships compares every table pair. A relationship is
// emitted when field-overlap strength exceeds 10% or at least one join-key
// candidate is shared, whatever its confidence.
func inferTableRelationships(tables []*models.TableMetadata) []models.TableRelationship {
	fieldsOf := func(t *models.TableMetadata) map[string]models.FieldType {
		out := make(map[string]models.FieldType, len(t.Schema))
		for _, f := range t.Schema {
			out[f.Name] = f.Type
		}
		return out
	}

	var relationships []models.TableRelationship
	for i := 0; i < len(tables); i++ {
		if tables[i].Error != "" {
			continue
		}
		fieldsA := fieldsOf(tables[i])
		for j := i + 1; j < len(tables); j++ {
			if tables[j].Error != "" {
				continue
			}
			fieldsB := fieldsOf(tables[j])

			union := make(map[string]bool, len(fieldsA)+len(fieldsB))
			for name := range fieldsA {
				union[name] = true
			}
			for name := range fieldsB {
				union[name] = true
			}

			var shared []string
			for name := range fieldsA {
				if _, ok := fieldsB[name]; ok {
					shared = append(shared, name)
				}
			}
			sort.Strings(shared)

			if len(union) == 0 || len(shared) == 0 {
				continue
			}
			strength := float64(len(shared)) / float64(len(union)) * 100

			var joinKeys []models.JoinKeyCandidate
			for _, name := range shared {
				if fieldsA[name] != fieldsB[name] {
					continue
				}
				confidence := models.JoinConfidenceMedium
				if isJoinKeyName(name) {
					confidence = models.JoinConfidenceHigh
				}
				joinKeys = append(joinKeys, models.JoinKeyCandidate{
					Field:      name,
					Type:       fieldsA[name],
					Confidence: confidence,
				})
			}

			if strength <= 10 && len(joinKeys) == 0 {
				continue
			}

			rel := models.TableRelationship{
				Table1:            tables[i].TableID,
				Table2:            tables[j].TableID,
				Strength:          strength,
				CommonFields:      shared,
				PotentialJoinKeys: joinKeys,
			}
			if best := bestJoinKey(joinKeys); best != nil {
				rel.SuggestedJoin = fmt.Sprintf("JOIN `%s` ON `%s`.%s = `%s`.%s",
					tables[j].TableID, tables[i].TableID, best.Field, tables[j].TableID, best.Field)
			}
			relationships = append(relationships, rel)
		}
	}

	return relationships
}

// bestJoinKey picks the join field for the suggested query: the first
// high-confidence candidate, else the first candidate of any confidence.
func bestJoinKey(joinKeys []models.JoinKeyCandidate) *models.JoinKeyCandidate {
	if len(joinKeys) == 0 {
		return nil
	}
	for i := range joinKeys {
		if joinKeys[i].Confidence == models.JoinConfidenceHigh {
			return &joinKeys[i]
		}
	}
	return &joinKeys[0]
}

func (c *schemaCatalog) Clear(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if projectID == "" {
		c.entries = make(map[string]*models.ProjectMetadata)
		c.logger.Info("schema cache cleared")
		return
	}
	delete(c.entries, projectID)
	c.logger.Info("schema cache entry cleared", zap.String("project_id", projectID))
}

func (c *schemaCatalog) Stats() CatalogStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CatalogStats{CachedProjects: len(c.entries)}
	for id, entry := range c.entries {
		stats.Projects = append(stats.Projects, id)
		stats.TotalTables += len(entry.Tables)
	}
	sort.Strings(stats.Projects)
	return stats
}

// formatCount renders an integer with thousands separators.
func formatCount(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
