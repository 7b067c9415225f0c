// Package sql provides cleaning, validation and screening utilities for
// model-generated SQL before it reaches the warehouse.
package sql

import (
	"strings"
)

// sqlKeywords are the markers that rescue a comment-looking line from being
// dropped during cleaning. Model output sometimes wraps real clauses in
// comment syntax.
var sqlKeywords = []string{"SELECT", "FROM", "WHERE", "GROUP", "ORDER", "LIMIT"}

// CleanGeneratedSQL extracts an executable statement from raw model output.
//
// The model is asked for a fenced ```sql block but does not always comply,
// so cleaning is defensive:
//  1. Prefer the contents of a ```sql fence; fall back to any ``` fence.
//  2. Drop comment lines that carry no SQL keyword.
//  3. Ensure the statement ends with a semicolon.
func CleanGeneratedSQL(raw string) string {
	query := extractFenced(raw)

	var kept []string
	for _, line := range strings.Split(query, "\n") {
		trimmed := strings.TrimSpace(line)
		if isCommentLine(trimmed) && !containsKeyword(trimmed) {
			continue
		}
		kept = append(kept, line)
	}

	query = strings.TrimSpace(strings.Join(kept, "\n"))
	if query != "" && !strings.HasSuffix(query, ";") {
		query += ";"
	}

	return query
}

// extractFenced pulls the body of a markdown code fence out of raw text,
// preferring a fence tagged "sql". Returns the trimmed input when no fence
// is present.
func extractFenced(raw string) string {
	if body, ok := fenceBody(raw, "```sql"); ok {
		return body
	}
	if body, ok := fenceBody(raw, "```"); ok {
		return body
	}
	return strings.TrimSpace(raw)
}

func fenceBody(raw, opener string) (string, bool) {
	start := strings.Index(raw, opener)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(opener):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func isCommentLine(line string) bool {
	return strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#")
}

func containsKeyword(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range sqlKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}
