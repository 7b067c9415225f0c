// Package warehouse provides the analytical warehouse client used for
// metadata extraction and query execution.
package warehouse

import (
	"context"

	"github.com/warelens/warelens-engine/pkg/models"
)

// QueryResult is the raw outcome of a warehouse query before it is wrapped
// into a structured execution result.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
	QueryID string
}

// Client defines warehouse operations. Use this interface for dependency
// injection to enable mocking in tests.
type Client interface {
	// GetTableMetadata returns metadata and schema for one table.
	// Returns apperrors.ErrTableNotFound when the table does not exist.
	GetTableMetadata(ctx context.Context, tableID string) (*models.TableMetadata, error)

	// ListTables returns the tables visible in the configured schema,
	// ordered by row count descending.
	ListTables(ctx context.Context) ([]*models.TableMetadata, error)

	// Query runs a single statement and materializes all rows.
	Query(ctx context.Context, query string) (*QueryResult, error)

	// EstimateBytes returns the engine's pre-execution estimate of bytes
	// the statement would scan.
	EstimateBytes(ctx context.Context, query string) (int64, error)

	// Close releases the connection pool.
	Close() error
}
