package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/adapters/warehouse"
	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/models"
)

func TestExtract_AggregatesSummary(t *testing.T) {
	client := &warehouse.MockClient{
		GetTableMetadataFunc: func(ctx context.Context, tableID string) (*models.TableMetadata, error) {
			return &models.TableMetadata{TableID: tableID, NumRows: 100, NumBytes: 2048}, nil
		},
	}
	e := NewMetadataExtractor(client, zap.NewNop())

	metadata := e.Extract(context.Background(), "proj", []string{"t1", "t2", "t3"})

	assert.Equal(t, "proj", metadata.ProjectID)
	assert.Equal(t, []string{"t1", "t2", "t3"}, metadata.TableOrder)
	assert.Equal(t, 3, metadata.Summary.TotalTables)
	assert.Equal(t, int64(300), metadata.Summary.TotalRows)
	assert.Equal(t, int64(6144), metadata.Summary.TotalSizeBytes)
	assert.False(t, metadata.ExtractedAt.IsZero())
}

func TestExtract_CapturesPerTableErrors(t *testing.T) {
	client := &warehouse.MockClient{
		GetTableMetadataFunc: func(ctx context.Context, tableID string) (*models.TableMetadata, error) {
			switch tableID {
			case "missing":
				return nil, apperrors.ErrTableNotFound
			case "broken":
				return nil, errors.New("permission denied")
			}
			return &models.TableMetadata{TableID: tableID, NumRows: 10}, nil
		},
	}
	e := NewMetadataExtractor(client, zap.NewNop())

	metadata := e.Extract(context.Background(), "proj", []string{"ok", "missing", "broken"})

	require.Len(t, metadata.Tables, 3)

	missing := metadata.Tables["missing"]
	assert.Equal(t, "not_found", missing.ErrorType)
	assert.Equal(t, "table not found", missing.Error)

	broken := metadata.Tables["broken"]
	assert.Equal(t, "extraction_error", broken.ErrorType)
	assert.Contains(t, broken.Error, "permission denied")

	// Only the healthy table contributes to the summary.
	assert.Equal(t, int64(10), metadata.Summary.TotalRows)
}
