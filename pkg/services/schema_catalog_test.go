package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/models"
)

func newTestCatalog() SchemaCatalogService {
	return NewSchemaCatalogService(zap.NewNop())
}

func ordersMetadata() *models.ProjectMetadata {
	return &models.ProjectMetadata{
		ProjectID: "shop",
		Tables: map[string]*models.TableMetadata{
			"shop.sales.orders": {
				TableID:  "shop.sales.orders",
				NumRows:  1500000,
				NumBytes: 2 * 1024 * 1024 * 1024,
				Schema: []models.ColumnMetadata{
					{Name: "order_id", Type: models.FieldTypeString, Mode: models.FieldModeRequired},
					{Name: "user_id", Type: models.FieldTypeString},
					{Name: "status", Type: models.FieldTypeString},
					{Name: "amount", Type: models.FieldTypeNumeric},
					{Name: "items", Type: models.FieldTypeRecord, Mode: models.FieldModeRepeated, Fields: []models.ColumnMetadata{
						{Name: "sku", Type: models.FieldTypeString},
						{Name: "qty", Type: models.FieldTypeInteger},
					}},
				},
			},
			"shop.sales.users": {
				TableID:  "shop.sales.users",
				NumRows:  40000,
				NumBytes: 64 * 1024 * 1024,
				Schema: []models.ColumnMetadata{
					{Name: "user_id", Type: models.FieldTypeString},
					{Name: "country", Type: models.FieldTypeString},
				},
			},
		},
		TableOrder: []string{"shop.sales.orders", "shop.sales.users"},
	}
}

func TestSchemaPrompt_FallbackWhenUncached(t *testing.T) {
	c := newTestCatalog()

	prompt := c.SchemaPrompt("unknown", []string{"a.b.c"})

	assert.Contains(t, prompt, "schema detail is unavailable")
	assert.Contains(t, prompt, "- `a.b.c`")
}

func TestSchemaPrompt_DetailedAfterRegister(t *testing.T) {
	c := newTestCatalog()
	c.Register("shop", ordersMetadata())

	prompt := c.SchemaPrompt("shop", nil)

	assert.NotContains(t, prompt, "schema detail is unavailable")
	assert.Contains(t, prompt, "## Table: `shop.sales.orders`")
	assert.Contains(t, prompt, "- **Rows**: 1,500,000")
	assert.Contains(t, prompt, "`amount` (numeric)")
	assert.Contains(t, prompt, "`items` (nested, array)")
	assert.Contains(t, prompt, "`sku` (text)")
	assert.Contains(t, prompt, "`order_id` (text, required)")

	// Two tables share user_id with the same type, flagged as a join key.
	assert.Contains(t, prompt, "## Table relationships")
	assert.Contains(t, prompt, "**user_id** (STRING)")
	assert.Contains(t, prompt, "(possible join key)")

	assert.Contains(t, prompt, "## Recommended query patterns")
	assert.Contains(t, prompt, "SELECT * FROM `shop.sales.orders` LIMIT 10;")
}

func TestSchemaPrompt_RequestOrderHonored(t *testing.T) {
	c := newTestCatalog()
	c.Register("shop", ordersMetadata())

	prompt := c.SchemaPrompt("shop", []string{"shop.sales.users"})

	assert.Contains(t, prompt, "shop.sales.users")
	assert.NotContains(t, prompt, "## Table: `shop.sales.orders`")
}

func TestSchemaPrompt_ErroredTableRendered(t *testing.T) {
	metadata := ordersMetadata()
	metadata.Tables["shop.sales.broken"] = &models.TableMetadata{
		TableID: "shop.sales.broken",
		Error:   "table not found",
	}
	metadata.TableOrder = append(metadata.TableOrder, "shop.sales.broken")

	c := newTestCatalog()
	c.Register("shop", metadata)

	prompt := c.SchemaPrompt("shop", nil)
	assert.Contains(t, prompt, "## Table: `shop.sales.broken` ❌")
	assert.Contains(t, prompt, "- **Error**: table not found")
}

func TestSuggestFields(t *testing.T) {
	c := newTestCatalog()
	c.Register("shop", ordersMetadata())

	filtered := c.SuggestFields("shop", "user")
	assert.Equal(t, []string{"user_id"}, filtered)

	nested := c.SuggestFields("shop", "sku")
	assert.Equal(t, []string{"items.sku"}, nested)

	all := c.SuggestFields("shop", "")
	assert.Contains(t, all, "order_id")
	assert.Contains(t, all, "items.qty")
	assert.LessOrEqual(t, len(all), 20)

	assert.Nil(t, c.SuggestFields("unknown", "x"))
}

func TestSuggestTables_SortedByRowCount(t *testing.T) {
	c := newTestCatalog()
	c.Register("shop", ordersMetadata())

	tables := c.SuggestTables("shop")

	require.Len(t, tables, 2)
	assert.Equal(t, "shop.sales.orders", tables[0].TableID)
	assert.Equal(t, "shop.sales.users", tables[1].TableID)
	assert.Equal(t, "2.00 GB", tables[0].Size)
	assert.Contains(t, tables[0].MainFields, "order_id")
}

func TestInferRelationships_JoinKey(t *testing.T) {
	c := newTestCatalog()
	c.Register("shop", ordersMetadata())

	rels := c.InferRelationships("shop")

	require.Len(t, rels, 1)
	rel := rels[0]
	assert.Equal(t, "shop.sales.orders", rel.Table1)
	assert.Equal(t, "shop.sales.users", rel.Table2)
	assert.Equal(t, []string{"user_id"}, rel.CommonFields)
	require.Len(t, rel.PotentialJoinKeys, 1)
	assert.Equal(t, models.JoinConfidenceHigh, rel.PotentialJoinKeys[0].Confidence)
	assert.Equal(t, "JOIN `shop.sales.users` ON `shop.sales.orders`.user_id = `shop.sales.users`.user_id", rel.SuggestedJoin)
}

func TestInferRelationships_MediumKeyAloneEmits(t *testing.T) {
	// One shared same-typed field among many gives a weak overlap, but a
	// medium-confidence join key still warrants a relationship record.
	wide := func(tableID, prefix string) *models.TableMetadata {
		schema := []models.ColumnMetadata{{Name: "status", Type: models.FieldTypeString}}
		for _, suffix := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"} {
			schema = append(schema, models.ColumnMetadata{Name: prefix + suffix, Type: models.FieldTypeString})
		}
		return &models.TableMetadata{TableID: tableID, Schema: schema}
	}

	c := newTestCatalog()
	c.Register("shop", &models.ProjectMetadata{
		ProjectID: "shop",
		Tables: map[string]*models.TableMetadata{
			"shop.sales.shipments": wide("shop.sales.shipments", "a"),
			"shop.sales.returns":   wide("shop.sales.returns", "b"),
		},
		TableOrder: []string{"shop.sales.shipments", "shop.sales.returns"},
	})

	rels := c.InferRelationships("shop")

	require.Len(t, rels, 1)
	rel := rels[0]
	assert.Less(t, rel.Strength, 10.0)
	assert.Equal(t, []string{"status"}, rel.CommonFields)
	require.Len(t, rel.PotentialJoinKeys, 1)
	assert.Equal(t, models.JoinConfidenceMedium, rel.PotentialJoinKeys[0].Confidence)
	assert.Equal(t, "shop.sales.shipments", rel.Table1)
	assert.Equal(t, "shop.sales.returns", rel.Table2)
	assert.Equal(t, "JOIN `shop.sales.returns` ON `shop.sales.shipments`.status = `shop.sales.returns`.status", rel.SuggestedJoin)
}

func TestBestJoinKey_PrefersHighConfidence(t *testing.T) {
	keys := []models.JoinKeyCandidate{
		{Field: "status", Confidence: models.JoinConfidenceMedium},
		{Field: "user_id", Confidence: models.JoinConfidenceHigh},
	}
	assert.Equal(t, "user_id", bestJoinKey(keys).Field)
	assert.Equal(t, "status", bestJoinKey(keys[:1]).Field)
	assert.Nil(t, bestJoinKey(nil))
}

func TestClearAndStats(t *testing.T) {
	c := newTestCatalog()
	c.Register("shop", ordersMetadata())
	c.Register("other", &models.ProjectMetadata{ProjectID: "other", Tables: map[string]*models.TableMetadata{}})

	stats := c.Stats()
	assert.Equal(t, 2, stats.CachedProjects)
	assert.Equal(t, 2, stats.TotalTables)
	assert.Equal(t, []string{"other", "shop"}, stats.Projects)

	c.Clear("shop")
	assert.Equal(t, 1, c.Stats().CachedProjects)

	c.Clear("")
	assert.Zero(t, c.Stats().CachedProjects)
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", formatCount(0))
	assert.Equal(t, "999", formatCount(999))
	assert.Equal(t, "1,000", formatCount(1000))
	assert.Equal(t, "1,500,000", formatCount(1500000))
	assert.Equal(t, "-12,345", formatCount(-12345))
}
