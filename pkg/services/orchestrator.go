package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/adapters/warehouse"
	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/llm"
	"github.com/warelens/warelens-engine/pkg/logging"
	"github.com/warelens/warelens-engine/pkg/models"
	"github.com/warelens/warelens-engine/pkg/prompts"
	sqlutil "github.com/warelens/warelens-engine/pkg/sql"
)

// sqlGenerationMaxTokens bounds the SQL completion length.
const sqlGenerationMaxTokens = 1500

// bytesPerTB converts scanned bytes to terabytes for cost estimation.
const bytesPerTB = 1 << 40

// costPerTBUSD is the assumed on-demand scan price.
const costPerTBUSD = 5.0

var tableIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

// QueryValidation is the outcome of a dry-run style query check.
type QueryValidation struct {
	Valid          bool    `json:"valid"`
	BytesProcessed int64   `json:"bytes_processed,omitempty"`
	EstimatedCost  float64 `json:"estimated_cost,omitempty"`
	Error          string  `json:"error,omitempty"`
	Message        string  `json:"message"`
}

// QueryOrchestrator runs the question-to-result pipeline: schema context,
// SQL generation, sanitation, screening and execution.
type QueryOrchestrator interface {
	// GenerateSQL translates a natural-language question into a single SQL
	// statement using cached schema context. Generation errors are fatal
	// for the request; there is no retry.
	GenerateSQL(ctx context.Context, question, projectID string, tableIDs []string) (string, error)

	// ExecuteSQL runs a statement and returns a structured result.
	// Execution failures are captured in the result, not returned as
	// errors, so callers can present both the failing SQL and the reason.
	ExecuteSQL(ctx context.Context, sqlQuery string) *models.ExecutionResult

	// ValidateQuery estimates the scan size of a statement without running
	// it and prices the scan at the on-demand rate.
	ValidateQuery(ctx context.Context, sqlQuery string) (*QueryValidation, error)
}

type queryOrchestrator struct {
	catalog   SchemaCatalogService
	generator llm.TextGenerator
	client    warehouse.Client
	logger    *zap.Logger
}

// NewQueryOrchestrator wires the pipeline. generator and client may be nil
// when the corresponding collaborator is not configured; operations needing
// them fail fast with a configuration error.
func NewQueryOrchestrator(catalog SchemaCatalogService, generator llm.TextGenerator, client warehouse.Client, logger *zap.Logger) QueryOrchestrator {
	return &queryOrchestrator{
		catalog:   catalog,
		generator: generator,
		client:    client,
		logger:    logger.Named("orchestrator"),
	}
}

var _ QueryOrchestrator = (*queryOrchestrator)(nil)

func (o *queryOrchestrator) GenerateSQL(ctx context.Context, question, projectID string, tableIDs []string) (string, error) {
	if o.generator == nil {
		return "", apperrors.ErrLLMNotConfigured
	}

	if result := sqlutil.CheckInputForInjection("question", question); result != nil {
		o.logger.Warn("question failed injection screening",
			zap.String("fingerprint", result.Fingerprint))
		return "", fmt.Errorf("question rejected by injection screening (fingerprint %s)", result.Fingerprint)
	}

	schemaPrompt := o.catalog.SchemaPrompt(projectID, tableIDs)
	systemPrompt := prompts.BuildSQLGenerationSystemPrompt(schemaPrompt)

	raw, err := o.generator.GenerateText(ctx, question, systemPrompt, sqlGenerationMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}

	sqlQuery := sqlutil.CleanGeneratedSQL(raw)
	if sqlQuery == "" {
		return "", fmt.Errorf("generated output contained no sql")
	}

	o.logger.Info("sql generated",
		zap.String("project_id", projectID),
		zap.String("sql", logging.SanitizeQuery(sqlQuery)))

	return sqlQuery, nil
}

func (o *queryOrchestrator) ExecuteSQL(ctx context.Context, sqlQuery string) *models.ExecutionResult {
	if o.client == nil {
		return executionFailure(apperrors.ErrWarehouseNotConfigured.Error(), "configuration_error")
	}

	validation := sqlutil.ValidateAndNormalize(sqlQuery)
	if validation.Error != nil {
		return executionFailure(validation.Error.Error(), "validation_error")
	}

	start := time.Now().UTC()
	result, err := o.client.Query(ctx, validation.NormalizedSQL)
	end := time.Now().UTC()
	if err != nil {
		return executionFailure(logging.SanitizeError(err), "execution_error")
	}

	rows := result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}

	return &models.ExecutionResult{
		Success:  true,
		Columns:  result.Columns,
		Rows:     rows,
		RowCount: len(rows),
		JobStats: &models.ExecutionStats{
			StartTime: start.Format(time.RFC3339),
			EndTime:   end.Format(time.RFC3339),
			QueryID:   result.QueryID,
		},
	}
}

func executionFailure(message, errorType string) *models.ExecutionResult {
	return &models.ExecutionResult{
		Success:   false,
		Rows:      []map[string]any{},
		Error:     message,
		ErrorType: errorType,
	}
}

func (o *queryOrchestrator) ValidateQuery(ctx context.Context, sqlQuery string) (*QueryValidation, error) {
	if o.client == nil {
		return nil, apperrors.ErrWarehouseNotConfigured
	}

	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return nil, fmt.Errorf("sql query is empty")
	}

	validation := sqlutil.ValidateAndNormalize(sqlQuery)
	if validation.Error != nil {
		return &QueryValidation{
			Valid:   false,
			Error:   validation.Error.Error(),
			Message: "query has errors",
		}, nil
	}

	bytes, err := o.client.EstimateBytes(ctx, validation.NormalizedSQL)
	if err != nil {
		return &QueryValidation{
			Valid:   false,
			Error:   logging.SanitizeError(err),
			Message: "query has errors",
		}, nil
	}

	return &QueryValidation{
		Valid:          true,
		BytesProcessed: bytes,
		EstimatedCost:  round4(float64(bytes) / bytesPerTB * costPerTBUSD),
		Message:        "query is valid",
	}, nil
}

// ValidateTableIDs filters a table id list down to well-formed identifiers.
// Backticks and surrounding whitespace are stripped; ids with characters
// outside [a-zA-Z0-9_-.] are dropped.
func ValidateTableIDs(tableIDs []string) []string {
	var validated []string
	for _, id := range tableIDs {
		id = strings.Trim(strings.TrimSpace(id), "`")
		if id == "" {
			continue
		}
		if tableIDPattern.MatchString(id) {
			validated = append(validated, id)
		}
	}
	return validated
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
