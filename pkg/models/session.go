package models

import "time"

// SessionStatus is the lifecycle state of an analysis session.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// SessionLog is one append-only log entry under a session.
type SessionLog struct {
	ID        string         `json:"id" bson:"_id"`
	SessionID string         `json:"session_id" bson:"session_id"`
	LogType   string         `json:"log_type" bson:"log_type"`
	Message   string         `json:"message" bson:"message"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// AnalysisSession is a tracked profiling run persisted in the session store.
// Logs is populated only when a session is fetched with logs included.
type AnalysisSession struct {
	ID              string           `json:"id" bson:"_id"`
	ProjectID       string           `json:"project_id" bson:"project_id"`
	TableIDs        []string         `json:"table_ids" bson:"table_ids"`
	Status          SessionStatus    `json:"status" bson:"status"`
	StartTime       time.Time        `json:"start_time" bson:"start_time"`
	EndTime         *time.Time       `json:"end_time,omitempty" bson:"end_time,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty" bson:"error_message,omitempty"`
	LogCount        int              `json:"log_count" bson:"log_count"`
	LatestLog       string           `json:"latest_log,omitempty" bson:"latest_log,omitempty"`
	CreatedAt       time.Time        `json:"created_at" bson:"created_at"`
	LastUpdated     time.Time        `json:"last_updated" bson:"last_updated"`
	ProfilingReport *ProfilingReport `json:"profiling_report,omitempty" bson:"profiling_report,omitempty"`
	SQLQueries      []string         `json:"sql_queries,omitempty" bson:"sql_queries,omitempty"`
	Metadata        *ProjectMetadata `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Logs            []SessionLog     `json:"logs,omitempty" bson:"-"`
}

// SessionStats aggregates the session store for the status dashboard.
type SessionStats struct {
	TotalSessions     int     `json:"total_sessions"`
	UniqueProjects    int     `json:"unique_projects"`
	CompletedSessions int     `json:"completed_sessions"`
	FailedSessions    int     `json:"failed_sessions"`
	TotalLogs         int     `json:"total_logs"`
	SuccessRate       float64 `json:"success_rate"`
}

// EventType tags a progress event in the profiling stream.
type EventType string

const (
	EventStatus            EventType = "status"
	EventLog               EventType = "log"
	EventMetadata          EventType = "metadata"
	EventReportSection     EventType = "report_section"
	EventProfilingComplete EventType = "profiling_complete"
	EventError             EventType = "error"
)

// ProgressEvent is one record of the profiling progress stream. Events are
// delivered in strict emission order; the terminal event is exactly one of
// profiling_complete or error.
type ProgressEvent struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}
