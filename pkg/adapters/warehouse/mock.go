package warehouse

import (
	"context"

	"github.com/warelens/warelens-engine/pkg/models"
)

// MockClient is a mock implementation of Client for testing.
type MockClient struct {
	GetTableMetadataFunc func(ctx context.Context, tableID string) (*models.TableMetadata, error)
	ListTablesFunc       func(ctx context.Context) ([]*models.TableMetadata, error)
	QueryFunc            func(ctx context.Context, query string) (*QueryResult, error)
	EstimateBytesFunc    func(ctx context.Context, query string) (int64, error)

	QueryCalls int
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) GetTableMetadata(ctx context.Context, tableID string) (*models.TableMetadata, error) {
	if m.GetTableMetadataFunc != nil {
		return m.GetTableMetadataFunc(ctx, tableID)
	}
	return &models.TableMetadata{TableID: tableID}, nil
}

func (m *MockClient) ListTables(ctx context.Context) ([]*models.TableMetadata, error) {
	if m.ListTablesFunc != nil {
		return m.ListTablesFunc(ctx)
	}
	return nil, nil
}

func (m *MockClient) Query(ctx context.Context, query string) (*QueryResult, error) {
	m.QueryCalls++
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, query)
	}
	return &QueryResult{}, nil
}

func (m *MockClient) EstimateBytes(ctx context.Context, query string) (int64, error) {
	if m.EstimateBytesFunc != nil {
		return m.EstimateBytesFunc(ctx, query)
	}
	return 0, nil
}

func (m *MockClient) Close() error { return nil }
