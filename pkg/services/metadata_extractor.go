package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/adapters/warehouse"
	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/models"
)

// MetadataExtractor pulls per-table metadata from the warehouse in bulk.
// Extraction failures are captured per table so one broken or missing table
// never fails the whole batch.
type MetadataExtractor interface {
	Extract(ctx context.Context, projectID string, tableIDs []string) *models.ProjectMetadata
}

type metadataExtractor struct {
	client warehouse.Client
	logger *zap.Logger
}

func NewMetadataExtractor(client warehouse.Client, logger *zap.Logger) MetadataExtractor {
	return &metadataExtractor{
		client: client,
		logger: logger.Named("metadata-extractor"),
	}
}

var _ MetadataExtractor = (*metadataExtractor)(nil)

func (e *metadataExtractor) Extract(ctx context.Context, projectID string, tableIDs []string) *models.ProjectMetadata {
	metadata := &models.ProjectMetadata{
		ProjectID:   projectID,
		Tables:      make(map[string]*models.TableMetadata, len(tableIDs)),
		TableOrder:  append([]string(nil), tableIDs...),
		Summary:     models.MetadataSummary{TotalTables: len(tableIDs)},
		ExtractedAt: time.Now().UTC(),
	}

	for _, tableID := range tableIDs {
		table, err := e.client.GetTableMetadata(ctx, tableID)
		if err != nil {
			e.logger.Warn("table metadata extraction failed",
				zap.String("table_id", tableID),
				zap.Error(err))

			errorType := "extraction_error"
			message := err.Error()
			if errors.Is(err, apperrors.ErrTableNotFound) {
				errorType = "not_found"
				message = "table not found"
			}
			metadata.Tables[tableID] = &models.TableMetadata{
				TableID:   tableID,
				Error:     message,
				ErrorType: errorType,
			}
			continue
		}

		metadata.Tables[tableID] = table
		metadata.Summary.TotalRows += table.NumRows
		metadata.Summary.TotalSizeBytes += table.NumBytes
	}

	e.logger.Info("metadata extracted",
		zap.String("project_id", projectID),
		zap.Int("tables", len(tableIDs)),
		zap.Int64("total_rows", metadata.Summary.TotalRows))

	return metadata
}
