package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	gosnowflake "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/config"
	"github.com/warelens/warelens-engine/pkg/logging"
	"github.com/warelens/warelens-engine/pkg/models"
)

// SnowflakeClient implements Client against Snowflake.
type SnowflakeClient struct {
	db           *sqlx.DB
	queryTimeout time.Duration
	logger       *zap.Logger
}

var _ Client = (*SnowflakeClient)(nil)

// NewSnowflakeClient opens a Snowflake connection pool from configuration.
func NewSnowflakeClient(cfg *config.WarehouseConfig, logger *zap.Logger) (*SnowflakeClient, error) {
	db, err := sqlx.Connect("snowflake", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("snowflake connect: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	timeout := time.Duration(cfg.QueryTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	logger.Info("warehouse connected",
		zap.String("dsn", logging.SanitizeConnectionString(cfg.DSN)),
		zap.Duration("query_timeout", timeout))

	return &SnowflakeClient{
		db:           db,
		queryTimeout: timeout,
		logger:       logger.Named("warehouse"),
	}, nil
}

// Close releases the connection pool.
func (c *SnowflakeClient) Close() error {
	return c.db.Close()
}

type tableInfoRow struct {
	TableName     string         `db:"TABLE_NAME"`
	RowCount      sql.NullInt64  `db:"ROW_COUNT"`
	Bytes         sql.NullInt64  `db:"BYTES"`
	Created       sql.NullTime   `db:"CREATED"`
	LastAltered   sql.NullTime   `db:"LAST_ALTERED"`
	Comment       sql.NullString `db:"COMMENT"`
	ClusteringKey sql.NullString `db:"CLUSTERING_KEY"`
}

type columnInfoRow struct {
	ColumnName   string         `db:"COLUMN_NAME"`
	DataType     string         `db:"DATA_TYPE"`
	IsNullable   string         `db:"IS_NULLABLE"`
	NumericScale sql.NullInt64  `db:"NUMERIC_SCALE"`
	Comment      sql.NullString `db:"COMMENT"`
}

const tableInfoQuery = `
SELECT table_name, row_count, bytes, created, last_altered, comment, clustering_key
FROM information_schema.tables
WHERE table_schema = CURRENT_SCHEMA() AND table_name = ?`

const columnInfoQuery = `
SELECT column_name, data_type, is_nullable, numeric_scale, comment
FROM information_schema.columns
WHERE table_schema = CURRENT_SCHEMA() AND table_name = ?
ORDER BY ordinal_position`

const listTablesQuery = `
SELECT table_name, row_count, bytes, created, last_altered, comment, clustering_key
FROM information_schema.tables
WHERE table_schema = CURRENT_SCHEMA() AND table_type = 'BASE TABLE'
ORDER BY row_count DESC NULLS LAST, table_name`

// GetTableMetadata reads table and column metadata from information_schema.
func (c *SnowflakeClient) GetTableMetadata(ctx context.Context, tableID string) (*models.TableMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	// Unquoted Snowflake identifiers are stored uppercase.
	name := strings.ToUpper(tableID)

	var info tableInfoRow
	if err := c.db.GetContext(ctx, &info, tableInfoQuery, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("table %s: %w", tableID, apperrors.ErrTableNotFound)
		}
		return nil, fmt.Errorf("fetch table info: %w", err)
	}

	var cols []columnInfoRow
	if err := c.db.SelectContext(ctx, &cols, columnInfoQuery, name); err != nil {
		return nil, fmt.Errorf("fetch columns: %w", err)
	}

	meta := tableMetadataFromRow(tableID, info)
	for _, col := range cols {
		meta.Schema = append(meta.Schema, models.ColumnMetadata{
			Name:        col.ColumnName,
			Type:        mapSnowflakeType(col.DataType, col.NumericScale),
			Mode:        columnMode(col.IsNullable),
			Description: col.Comment.String,
		})
	}

	return meta, nil
}

// ListTables enumerates base tables in the configured schema, largest first.
func (c *SnowflakeClient) ListTables(ctx context.Context) ([]*models.TableMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	var rows []tableInfoRow
	if err := c.db.SelectContext(ctx, &rows, listTablesQuery); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]*models.TableMetadata, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, tableMetadataFromRow(row.TableName, row))
	}
	return tables, nil
}

// Query executes a single statement and materializes every row as a map of
// column name to a JSON-friendly value.
func (c *SnowflakeClient) Query(ctx context.Context, query string) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	qidCh := make(chan string, 1)
	ctx = gosnowflake.WithQueryIDChan(ctx, qidCh)

	start := time.Now()
	rows, err := c.db.QueryxContext(ctx, query)
	if err != nil {
		c.logger.Warn("query failed",
			zap.String("query", logging.SanitizeQuery(query)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &QueryResult{Columns: columns}
	for rows.Next() {
		row := make(map[string]any, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for k, v := range row {
			row[k] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	select {
	case result.QueryID = <-qidCh:
	default:
	}

	c.logger.Debug("query completed",
		zap.Int("rows", len(result.Rows)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// EstimateBytes asks the engine for a plan and sums the bytes each plan node
// expects to scan. Snowflake has no dry-run mode, so the tabular EXPLAIN
// output is the closest available signal.
func (c *SnowflakeClient) EstimateBytes(ctx context.Context, query string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	rows, err := c.db.QueryxContext(ctx, "EXPLAIN USING TABULAR "+query)
	if err != nil {
		return 0, fmt.Errorf("explain: %w", err)
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return 0, fmt.Errorf("scan plan row: %w", err)
		}
		if b, ok := planBytes(row); ok {
			total += b
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate plan rows: %w", err)
	}

	return total, nil
}

func tableMetadataFromRow(tableID string, info tableInfoRow) *models.TableMetadata {
	meta := &models.TableMetadata{
		TableID:     tableID,
		NumRows:     info.RowCount.Int64,
		NumBytes:    info.Bytes.Int64,
		Description: info.Comment.String,
	}
	if info.Created.Valid {
		t := info.Created.Time
		meta.Created = &t
	}
	if info.LastAltered.Valid {
		t := info.LastAltered.Time
		meta.Modified = &t
	}
	if fields := parseClusteringKey(info.ClusteringKey.String); len(fields) > 0 {
		meta.Clustering = &models.ClusteringInfo{Fields: fields}
	}
	return meta
}

// parseClusteringKey extracts column names from a Snowflake clustering key
// expression such as "LINEAR(REGION, DATE)".
func parseClusteringKey(key string) []string {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if open := strings.Index(key, "("); open >= 0 && strings.HasSuffix(key, ")") {
		key = key[open+1 : len(key)-1]
	}

	var fields []string
	for _, part := range strings.Split(key, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}

// mapSnowflakeType converts an information_schema data type into the
// engine-neutral field type. NUMBER columns with scale 0 are integers.
func mapSnowflakeType(dataType string, scale sql.NullInt64) models.FieldType {
	switch strings.ToUpper(dataType) {
	case "TEXT", "VARCHAR", "CHAR", "CHARACTER", "STRING":
		return models.FieldTypeString
	case "NUMBER", "DECIMAL", "NUMERIC":
		if scale.Valid && scale.Int64 == 0 {
			return models.FieldTypeInteger
		}
		return models.FieldTypeNumeric
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT":
		return models.FieldTypeInteger
	case "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "REAL":
		return models.FieldTypeFloat
	case "BOOLEAN":
		return models.FieldTypeBoolean
	case "DATE":
		return models.FieldTypeDate
	case "TIME":
		return models.FieldTypeTime
	case "DATETIME", "TIMESTAMP_NTZ":
		return models.FieldTypeDatetime
	case "TIMESTAMP", "TIMESTAMP_LTZ", "TIMESTAMP_TZ":
		return models.FieldTypeTimestamp
	case "BINARY", "VARBINARY":
		return models.FieldTypeBytes
	case "VARIANT", "OBJECT", "ARRAY":
		return models.FieldTypeRecord
	default:
		return models.FieldTypeString
	}
}

func columnMode(isNullable string) models.FieldMode {
	if strings.EqualFold(isNullable, "YES") {
		return models.FieldModeNullable
	}
	return models.FieldModeRequired
}

// normalizeValue converts driver values into JSON-friendly representations.
// Timestamps become RFC 3339 strings so downstream profiling and report
// generation see a stable textual form.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

// planBytes pulls the scan-size column out of one EXPLAIN row. The column
// name differs across driver versions, so both spellings are tried.
func planBytes(row map[string]any) (int64, bool) {
	for _, key := range []string{"bytes", "BYTES", "bytesAssigned", "BYTES_ASSIGNED"} {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case int64:
			return n, true
		case float64:
			return int64(n), true
		case string:
			var parsed int64
			if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}
