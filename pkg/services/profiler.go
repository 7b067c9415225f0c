package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/models"
)

// DataProfiler computes per-column statistics, quality scores and candidate
// column relationships for a rectangular result set.
type DataProfiler interface {
	// Profile analyzes one result set. It never returns an error; malformed
	// input degrades to a zeroed profile annotated with a pattern marker,
	// and per-column issues land in that column's quality issues.
	Profile(rows []map[string]any) *models.DataProfile

	// DetectColumnRelationships finds correlated, foreign-key-like and
	// hierarchically named column pairs, sorted by confidence descending.
	DetectColumnRelationships(rows []map[string]any) []models.ColumnRelationship
}

type dataProfiler struct {
	logger *zap.Logger
}

func NewDataProfiler(logger *zap.Logger) DataProfiler {
	return &dataProfiler{logger: logger.Named("profiler")}
}

var _ DataProfiler = (*dataProfiler)(nil)

func emptyProfile(rowCount int, patterns ...string) *models.DataProfile {
	return &models.DataProfile{
		RowCount: rowCount,
		Columns:  map[string]*models.ColumnProfile{},
		Patterns: patterns,
	}
}

func (p *dataProfiler) Profile(rows []map[string]any) *models.DataProfile {
	if len(rows) == 0 {
		return emptyProfile(0)
	}
	if rows[0] == nil {
		return emptyProfile(len(rows), "data structure error")
	}

	profile := &models.DataProfile{
		RowCount: len(rows),
		Columns:  make(map[string]*models.ColumnProfile, len(rows[0])),
	}

	// The first row defines the column set. Map iteration is unordered, so
	// columns are profiled in sorted name order for deterministic output.
	for name := range rows[0] {
		profile.ColumnOrder = append(profile.ColumnOrder, name)
	}
	sort.Strings(profile.ColumnOrder)

	var totalCompleteness, totalConsistency float64
	for _, name := range profile.ColumnOrder {
		col := p.profileColumn(name, rows)
		profile.Columns[name] = col
		totalCompleteness += col.Completeness
		totalConsistency += col.ConsistencyScore
	}

	if n := float64(len(profile.Columns)); n > 0 {
		profile.DataQuality.Completeness = round1(totalCompleteness / n)
		profile.DataQuality.Consistency = round1(totalConsistency / n)
		profile.DataQuality.OverallScore = round1((profile.DataQuality.Completeness + profile.DataQuality.Consistency) / 2)
	}

	return profile
}

func (p *dataProfiler) profileColumn(name string, rows []map[string]any) *models.ColumnProfile {
	var values []any
	for _, row := range rows {
		if v, ok := row[name]; ok && v != nil {
			values = append(values, v)
		}
	}

	total := len(rows)
	col := &models.ColumnProfile{
		Type:           models.ColumnTypeUnknown,
		NonNullCount:   len(values),
		NullCount:      total - len(values),
		NullPercentage: round1(float64(total-len(values)) / float64(total) * 100),
		Completeness:   round1(float64(len(values)) / float64(total) * 100),
	}

	consistency := 100.0
	if len(values) > 0 {
		// Type inference uses the first non-null value only. A column whose
		// first value does not represent the majority type is mis-profiled;
		// kept for output compatibility.
		first := values[0]
		switch {
		case isNumberValue(first):
			col.Type = models.ColumnTypeNumeric
			consistency -= p.analyzeNumeric(col, values)
		case isDatetimeValue(first):
			col.Type = models.ColumnTypeDatetime
			analyzeDatetime(col, values)
		case isStringValue(first):
			col.Type = models.ColumnTypeCategorical
			consistency -= analyzeCategorical(col, values)
		default:
			col.Type = models.ColumnTypeMixed
			col.QualityIssues = append(col.QualityIssues, "mixed data types")
			consistency -= 25
		}
	}

	col.ConsistencyScore = math.Max(0, round1(consistency))
	return col
}

// analyzeNumeric fills numeric statistics and returns the consistency
// deduction for outliers.
func (p *dataProfiler) analyzeNumeric(col *models.ColumnProfile, values []any) float64 {
	var nums []float64
	for _, v := range values {
		if f, ok := asNumber(v); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		col.QualityIssues = append(col.QualityIssues, "numeric analysis failed")
		return 30
	}

	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	var sum float64
	for _, n := range nums {
		sum += n
	}
	min, max := sorted[0], sorted[len(sorted)-1]

	col.Numeric = &models.NumericStats{
		Min:    min,
		Max:    max,
		Mean:   round2(sum / float64(len(nums))),
		Median: round2(sorted[len(sorted)/2]),
		Sum:    sum,
		Range:  max - min,
	}

	// IQR outlier rule with index-based quartiles, fence multiplier 1.5.
	q1 := sorted[len(sorted)/4]
	q3 := sorted[3*len(sorted)/4]
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	outliers := 0
	for _, n := range nums {
		if n < lower || n > upper {
			outliers++
		}
	}
	if outliers == 0 {
		return 0
	}

	col.Numeric.OutlierCount = outliers
	col.QualityIssues = append(col.QualityIssues, fmt.Sprintf("%d outliers detected", outliers))
	return math.Min(20, float64(outliers)/float64(len(nums))*100)
}

// analyzeCategorical fills string-distribution statistics and returns the
// accumulated consistency deduction.
func analyzeCategorical(col *models.ColumnProfile, values []any) float64 {
	strs := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			strs = append(strs, s)
		} else {
			strs = append(strs, fmt.Sprintf("%v", v))
		}
	}

	counts := make(map[string]int, len(strs))
	var order []string
	for _, s := range strs {
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}

	mostCommon := ""
	best := 0
	for _, s := range order {
		if counts[s] > best {
			mostCommon = s
			best = counts[s]
		}
	}

	// Top values consider only distinct values from the first 100 rows, a
	// performance shortcut; their counts still cover the whole column.
	head := strs
	if len(head) > 100 {
		head = head[:100]
	}
	distinctHead := make(map[string]bool, len(head))
	for _, s := range head {
		distinctHead[s] = true
	}
	type valueCount struct {
		value string
		count int
	}
	ranked := make([]valueCount, 0, len(distinctHead))
	for s := range distinctHead {
		ranked = append(ranked, valueCount{s, counts[s]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].value < ranked[j].value
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	topValues := make(map[string]int, len(ranked))
	for _, vc := range ranked {
		topValues[vc.value] = vc.count
	}

	col.Categorical = &models.CategoricalStats{
		UniqueCount: len(counts),
		Cardinality: round1(float64(len(counts)) / float64(len(strs)) * 100),
		MostCommon:  mostCommon,
		TopValues:   topValues,
	}

	var deduction float64

	emptyStrings := 0
	minLen, maxLen := math.MaxInt32, 0
	for _, s := range strs {
		if strings.TrimSpace(s) == "" {
			emptyStrings++
		}
		if len(s) < minLen {
			minLen = len(s)
		}
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	if emptyStrings > 0 {
		col.QualityIssues = append(col.QualityIssues, fmt.Sprintf("%d empty strings", emptyStrings))
		deduction += math.Min(15, float64(emptyStrings)/float64(len(strs))*100)
	}
	if maxLen-minLen > 100 {
		col.QualityIssues = append(col.QualityIssues, "inconsistent string lengths")
		deduction += 10
	}

	return deduction
}

func analyzeDatetime(col *models.ColumnProfile, values []any) {
	var times []time.Time
	for _, v := range values {
		if t, ok := asTime(v); ok {
			times = append(times, t)
		}
	}
	if len(times) == 0 {
		return
	}

	earliest, latest := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(earliest) {
			earliest = t
		}
		if t.After(latest) {
			latest = t
		}
	}

	rangeDays := 0
	if len(times) > 1 {
		rangeDays = int(latest.Sub(earliest).Hours() / 24)
	}

	col.Datetime = &models.DatetimeStats{
		Earliest:      earliest.Format(time.RFC3339),
		Latest:        latest.Format(time.RFC3339),
		DateRangeDays: rangeDays,
	}
}

func (p *dataProfiler) DetectColumnRelationships(rows []map[string]any) []models.ColumnRelationship {
	if len(rows) < 2 || rows[0] == nil {
		return nil
	}

	var columns []string
	for name := range rows[0] {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	var relationships []models.ColumnRelationship
	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			if rel := detectPairRelationship(columns[i], columns[j], rows); rel != nil {
				relationships = append(relationships, *rel)
			}
		}
	}

	sort.SliceStable(relationships, func(i, j int) bool {
		return relationships[i].Confidence > relationships[j].Confidence
	})
	return relationships
}

func detectPairRelationship(col1, col2 string, rows []map[string]any) *models.ColumnRelationship {
	var values1, values2 []any
	var paired1, paired2 []any
	for _, row := range rows {
		v1, v2 := row[col1], row[col2]
		if v1 != nil {
			values1 = append(values1, v1)
		}
		if v2 != nil {
			values2 = append(values2, v2)
		}
		if v1 != nil && v2 != nil {
			paired1 = append(paired1, v1)
			paired2 = append(paired2, v2)
		}
	}
	if len(values1) == 0 || len(values2) == 0 || len(paired1) < 2 {
		return nil
	}

	var kind models.ColumnRelationshipKind
	var confidence float64

	// 1. Numeric correlation between two numeric columns.
	if isNumberValue(values1[0]) && isNumberValue(values2[0]) {
		if corr, ok := pearson(paired1, paired2); ok {
			abs := math.Abs(corr)
			if abs > 0.7 {
				kind = models.RelationshipStrongCorrelation
				confidence = abs * 100
			} else if abs > 0.3 {
				kind = models.RelationshipModerateCorrelation
				confidence = abs * 100
			}
		}
	}

	// 2. Foreign-key shape: col1 has many repeats and most of its distinct
	// values also occur in col2.
	if kind == "" {
		unique1 := distinctValues(values1)
		unique2 := distinctValues(values2)
		if float64(len(unique1)) < float64(len(values1))*0.8 {
			overlap := 0
			for v := range unique1 {
				if unique2[v] {
					overlap++
				}
			}
			if float64(overlap) > float64(len(unique1))*0.5 {
				kind = models.RelationshipPotentialForeignKey
				confidence = float64(overlap) / float64(len(unique1)) * 100
			}
		}
	}

	// 3. Hierarchical naming patterns.
	if kind == "" {
		l1, l2 := strings.ToLower(col1), strings.ToLower(col2)
		if (strings.HasSuffix(l1, "_id") && strings.HasSuffix(l2, "_name")) ||
			(strings.HasSuffix(l1, "_code") && strings.HasSuffix(l2, "_description")) {
			kind = models.RelationshipHierarchical
			confidence = 80
		}
	}

	if kind == "" || confidence <= 30 {
		return nil
	}

	return &models.ColumnRelationship{
		Column1:     col1,
		Column2:     col2,
		Kind:        kind,
		Confidence:  round1(confidence),
		Description: relationshipDescription(kind, col1, col2),
	}
}

func relationshipDescription(kind models.ColumnRelationshipKind, col1, col2 string) string {
	switch kind {
	case models.RelationshipStrongCorrelation:
		return fmt.Sprintf("%s and %s are strongly correlated", col1, col2)
	case models.RelationshipModerateCorrelation:
		return fmt.Sprintf("%s and %s are moderately correlated", col1, col2)
	case models.RelationshipPotentialForeignKey:
		return fmt.Sprintf("%s may be a foreign key referencing %s", col1, col2)
	case models.RelationshipHierarchical:
		return fmt.Sprintf("%s and %s may form a hierarchical pair", col1, col2)
	default:
		return fmt.Sprintf("%s and %s appear related", col1, col2)
	}
}

// pearson computes the Pearson correlation coefficient over paired values.
// Returns false when either side has zero variance or a value is non-numeric.
func pearson(xs, ys []any) (float64, bool) {
	n := len(xs)
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		fx, okx := asNumber(xs[i])
		fy, oky := asNumber(ys[i])
		if !okx || !oky {
			return 0, false
		}
		x = append(x, fx)
		y = append(y, fy)
	}

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}

func distinctValues(values []any) map[any]bool {
	out := make(map[any]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

func isNumberValue(v any) bool {
	_, ok := asNumber(v)
	return ok
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// isDatetimeValue recognizes native timestamps and the canonical RFC 3339
// text form query execution normalizes timestamps into.
func isDatetimeValue(v any) bool {
	_, ok := asTime(v)
	return ok
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func isStringValue(v any) bool {
	_, ok := v.(string)
	return ok
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
