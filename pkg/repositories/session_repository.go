package repositories

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/models"
)

const (
	sessionsCollection = "analysis_sessions"
	logsCollection     = "session_logs"

	// latestLogPreviewLen bounds the denormalized message preview stored on
	// the session document.
	latestLogPreviewLen = 100

	defaultListLimit = 50
	defaultLogLimit  = 100
)

// ResultKind selects which result payload SaveResult attaches to a session.
type ResultKind string

const (
	ResultProfilingReport ResultKind = "profiling_report"
	ResultSQLQueries      ResultKind = "sql_queries"
)

// ListFilter narrows a session listing. Zero values mean no filtering.
type ListFilter struct {
	ProjectID string
	Status    models.SessionStatus
	Limit     int
}

// SessionRepository persists analysis sessions and their append-only logs.
type SessionRepository interface {
	// Create starts a new session record and writes the initial system log.
	Create(ctx context.Context, projectID string, tableIDs []string) (*models.AnalysisSession, error)

	// AppendLog records one log entry and updates the session's log counter
	// and latest-log preview.
	AppendLog(ctx context.Context, sessionID, logType, message string, metadata map[string]any) error

	// SaveResult attaches a finished artifact to the session and records a
	// result log.
	SaveResult(ctx context.Context, sessionID string, kind ResultKind, result any) error

	// UpdateStatus transitions the session. Terminal statuses stamp the end
	// time; a failure also records the error message.
	UpdateStatus(ctx context.Context, sessionID string, status models.SessionStatus, errorMessage string) error

	// Get fetches one session, optionally with its logs in timestamp order.
	Get(ctx context.Context, sessionID string, includeLogs bool) (*models.AnalysisSession, error)

	// List returns sessions newest first.
	List(ctx context.Context, filter ListFilter) ([]*models.AnalysisSession, error)

	// GetSessionLogs returns a session's logs in timestamp order, optionally
	// filtered by log type.
	GetSessionLogs(ctx context.Context, sessionID, logType string, limit int) ([]models.SessionLog, error)

	// GetAllLogs returns recent logs across all sessions, newest first.
	GetAllLogs(ctx context.Context, limit int) ([]models.SessionLog, error)

	// Delete removes a session and its logs. The bool reports whether the
	// session existed.
	Delete(ctx context.Context, sessionID string) (bool, error)

	// Stats aggregates the store for the status dashboard.
	Stats(ctx context.Context) (*models.SessionStats, error)
}

type sessionRepository struct {
	sessions *mongo.Collection
	logs     *mongo.Collection
	logger   *zap.Logger
}

func NewSessionRepository(db *mongo.Database, logger *zap.Logger) SessionRepository {
	return &sessionRepository{
		sessions: db.Collection(sessionsCollection),
		logs:     db.Collection(logsCollection),
		logger:   logger.Named("session-repository"),
	}
}

var _ SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) Create(ctx context.Context, projectID string, tableIDs []string) (*models.AnalysisSession, error) {
	now := time.Now().UTC()
	session := &models.AnalysisSession{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		TableIDs:    append([]string(nil), tableIDs...),
		Status:      models.SessionInProgress,
		StartTime:   now,
		LogCount:    0,
		CreatedAt:   now,
		LastUpdated: now,
	}

	if _, err := r.sessions.InsertOne(ctx, session); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	if err := r.AppendLog(ctx, session.ID, "system", "analysis session started", map[string]any{"step": 0}); err != nil {
		r.logger.Warn("initial session log failed",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}

	r.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("project_id", projectID),
		zap.Int("tables", len(tableIDs)))

	return session, nil
}

func (r *sessionRepository) AppendLog(ctx context.Context, sessionID, logType, message string, metadata map[string]any) error {
	entry := models.SessionLog{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		LogType:   logType,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	if _, err := r.logs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert session log: %w", err)
	}

	update := bson.M{
		"$inc": bson.M{"log_count": 1},
		"$set": bson.M{
			"last_updated": entry.Timestamp,
			"latest_log":   logPreview(message),
		},
	}
	if _, err := r.sessions.UpdateOne(ctx, bson.M{"_id": sessionID}, update); err != nil {
		return fmt.Errorf("update session log counter: %w", err)
	}
	return nil
}

// logPreview caps the denormalized message preview in characters, not
// bytes, so a multi-byte rune is never split.
func logPreview(message string) string {
	runes := []rune(message)
	if len(runes) <= latestLogPreviewLen {
		return message
	}
	return string(runes[:latestLogPreviewLen])
}

func (r *sessionRepository) SaveResult(ctx context.Context, sessionID string, kind ResultKind, result any) error {
	var field, logMessage string
	switch kind {
	case ResultProfilingReport:
		field = "profiling_report"
		logMessage = "profiling report saved"
	case ResultSQLQueries:
		field = "sql_queries"
		logMessage = "generated sql queries saved"
	default:
		return fmt.Errorf("unknown result kind: %s", kind)
	}

	update := bson.M{
		"$set": bson.M{
			field:          result,
			"last_updated": time.Now().UTC(),
		},
	}
	if _, err := r.sessions.UpdateOne(ctx, bson.M{"_id": sessionID}, update); err != nil {
		return fmt.Errorf("save session result: %w", err)
	}

	return r.AppendLog(ctx, sessionID, "result", logMessage, map[string]any{"result_type": string(kind)})
}

func (r *sessionRepository) UpdateStatus(ctx context.Context, sessionID string, status models.SessionStatus, errorMessage string) error {
	now := time.Now().UTC()
	set := bson.M{
		"status":       status,
		"last_updated": now,
	}
	if status == models.SessionCompleted || status == models.SessionFailed {
		set["end_time"] = now
	}
	if status == models.SessionFailed && errorMessage != "" {
		set["error_message"] = errorMessage
	}

	if _, err := r.sessions.UpdateOne(ctx, bson.M{"_id": sessionID}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}

	switch status {
	case models.SessionFailed:
		message := "analysis session failed"
		if errorMessage != "" {
			message = fmt.Sprintf("analysis session failed: %s", errorMessage)
		}
		return r.AppendLog(ctx, sessionID, "error", message, nil)
	case models.SessionCompleted:
		return r.AppendLog(ctx, sessionID, "system", "analysis session completed", nil)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, sessionID string, includeLogs bool) (*models.AnalysisSession, error) {
	var session models.AnalysisSession
	err := r.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	if includeLogs {
		logs, err := r.GetSessionLogs(ctx, sessionID, "", 0)
		if err != nil {
			return nil, err
		}
		session.Logs = logs
	}
	return &session, nil
}

func (r *sessionRepository) List(ctx context.Context, filter ListFilter) ([]*models.AnalysisSession, error) {
	query := bson.M{}
	if filter.ProjectID != "" {
		query["project_id"] = filter.ProjectID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.sessions.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []*models.AnalysisSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepository) GetSessionLogs(ctx context.Context, sessionID, logType string, limit int) ([]models.SessionLog, error) {
	query := bson.M{"session_id": sessionID}
	if logType != "" {
		query["log_type"] = logType
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.logs.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list session logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.SessionLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("decode session logs: %w", err)
	}
	return logs, nil
}

func (r *sessionRepository) GetAllLogs(ctx context.Context, limit int) ([]models.SessionLog, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.logs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.SessionLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	return logs, nil
}

func (r *sessionRepository) Delete(ctx context.Context, sessionID string) (bool, error) {
	result, err := r.sessions.DeleteOne(ctx, bson.M{"_id": sessionID})
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if _, err := r.logs.DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return false, fmt.Errorf("delete session logs: %w", err)
	}

	deleted := result.DeletedCount > 0
	if deleted {
		r.logger.Info("session deleted", zap.String("session_id", sessionID))
	}
	return deleted, nil
}

func (r *sessionRepository) Stats(ctx context.Context) (*models.SessionStats, error) {
	total, err := r.sessions.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	completed, err := r.sessions.CountDocuments(ctx, bson.M{"status": models.SessionCompleted})
	if err != nil {
		return nil, fmt.Errorf("count completed sessions: %w", err)
	}
	failed, err := r.sessions.CountDocuments(ctx, bson.M{"status": models.SessionFailed})
	if err != nil {
		return nil, fmt.Errorf("count failed sessions: %w", err)
	}
	totalLogs, err := r.logs.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}

	projects, err := r.sessions.Distinct(ctx, "project_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct projects: %w", err)
	}

	stats := &models.SessionStats{
		TotalSessions:     int(total),
		UniqueProjects:    len(projects),
		CompletedSessions: int(completed),
		FailedSessions:    int(failed),
		TotalLogs:         int(totalLogs),
	}
	if total > 0 {
		stats.SuccessRate = math.Round(float64(completed)/float64(total)*1000) / 10
	}
	return stats, nil
}
