package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/apperrors"
	"github.com/warelens/warelens-engine/pkg/llm"
	"github.com/warelens/warelens-engine/pkg/models"
	"github.com/warelens/warelens-engine/pkg/prompts"
	"github.com/warelens/warelens-engine/pkg/repositories"
)

const (
	sectionMaxTokens  = 2000
	interSectionDelay = 200 * time.Millisecond
)

// EventSink receives workflow progress events in emission order.
type EventSink interface {
	Emit(event models.ProgressEvent)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(event models.ProgressEvent)

func (f EventSinkFunc) Emit(event models.ProgressEvent) { f(event) }

type reportSection struct {
	key     string
	message string
	title   string
}

var reportSections = []reportSection{
	{key: "overview", message: "Analyzing dataset overview...", title: "Dataset Overview"},
	{key: "table_analysis", message: "Analyzing table details...", title: "Table Analysis"},
	{key: "relationships", message: "Inferring table relationships...", title: "Table Relationships"},
	{key: "business_questions", message: "Deriving business questions...", title: "Analysis Questions"},
	{key: "recommendations", message: "Compiling recommendations...", title: "Recommendations"},
}

var sectionHeadings = map[string]string{
	"overview":           "## 1. 📋 Dataset Overview",
	"table_analysis":     "## 2. 🔍 Table Analysis",
	"relationships":      "## 3. 🔗 Table Relationships",
	"business_questions": "## 4. ❓ Analysis Questions",
	"recommendations":    "## 5. 💡 Recommendations",
}

// ProfilingWorkflow runs the full profiling pipeline for a set of tables:
// metadata extraction, schema registration and a five-section narrative
// report, streaming progress into the sink. All outcomes, including
// failures, are delivered as events; the terminal event is exactly one of
// profiling_complete or error.
type ProfilingWorkflow interface {
	Run(ctx context.Context, projectID string, tableIDs []string, sink EventSink)
}

type profilingWorkflow struct {
	extractor MetadataExtractor
	catalog   SchemaCatalogService
	generator llm.TextGenerator
	sessions  repositories.SessionRepository
	logger    *zap.Logger
}

// NewProfilingWorkflow wires the pipeline. sessions may be nil; tracking is
// then skipped and the workflow still streams events.
func NewProfilingWorkflow(extractor MetadataExtractor, catalog SchemaCatalogService, generator llm.TextGenerator, sessions repositories.SessionRepository, logger *zap.Logger) ProfilingWorkflow {
	return &profilingWorkflow{
		extractor: extractor,
		catalog:   catalog,
		generator: generator,
		sessions:  sessions,
		logger:    logger.Named("profiling-workflow"),
	}
}

var _ ProfilingWorkflow = (*profilingWorkflow)(nil)

func (w *profilingWorkflow) Run(ctx context.Context, projectID string, tableIDs []string, sink EventSink) {
	validated := ValidateTableIDs(tableIDs)
	if len(validated) == 0 {
		sink.Emit(errorEvent(apperrors.ErrNoValidTables.Error()))
		return
	}
	if w.generator == nil {
		sink.Emit(errorEvent(apperrors.ErrLLMNotConfigured.Error()))
		return
	}

	sessionID := w.createSession(ctx, projectID, validated)
	completed := false
	defer func() {
		if !completed && sessionID != "" {
			w.setStatus(ctx, sessionID, models.SessionFailed, "profiling did not complete")
		}
	}()

	sink.Emit(statusEvent(0, "Starting metadata extraction...", sessionID))

	startMessage := fmt.Sprintf("analysis of %d target tables started", len(validated))
	sink.Emit(logEvent(startMessage))
	w.appendLog(ctx, sessionID, "progress", startMessage)

	metadata := w.extractor.Extract(ctx, projectID, validated)
	w.catalog.Register(projectID, metadata)

	sink.Emit(statusEvent(1, "Metadata extraction complete", ""))
	sink.Emit(models.ProgressEvent{Type: models.EventMetadata, Payload: metadata})
	w.appendLog(ctx, sessionID, "progress", "metadata extraction complete")

	sink.Emit(statusEvent(2, "Generating data profiling report...", ""))

	report := &models.ProfilingReport{
		Sections:    make(map[string]string, len(reportSections)),
		GeneratedAt: time.Now().UTC(),
	}
	metadataSummary := buildMetadataSummary(projectID, validated, metadata)
	systemPrompt := prompts.ProfilingSystemPrompt()

	for i, section := range reportSections {
		sink.Emit(statusEvent(2, section.message, ""))
		sink.Emit(logEvent(section.message))
		w.appendLog(ctx, sessionID, "progress", section.message)

		prompt := fmt.Sprintf("%s\n\n%s\n\nAnalyze the metadata above and write the '%s' section.",
			systemPrompt, metadataSummary, section.title)

		content, err := w.generator.GenerateText(ctx, prompt, "", sectionMaxTokens)
		if err != nil {
			// A failed section degrades the report; the remaining sections
			// are still attempted.
			w.logger.Error("report section generation failed",
				zap.String("section", section.key),
				zap.Error(err))
			failureMessage := fmt.Sprintf("error generating %s: %s", section.title, err)
			sink.Emit(logEvent(failureMessage))
			w.appendLog(ctx, sessionID, "error", failureMessage)
			report.Sections[section.key] = fmt.Sprintf("section generation failed: %s", err)
			continue
		}

		report.Sections[section.key] = strings.TrimSpace(content)
		sink.Emit(models.ProgressEvent{
			Type: models.EventReportSection,
			Payload: map[string]any{
				"section": section.key,
				"title":   section.title,
				"content": report.Sections[section.key],
			},
		})

		if i < len(reportSections)-1 {
			time.Sleep(interSectionDelay)
		}
	}

	report.FullReport = assembleFullReport(report.Sections)

	sink.Emit(statusEvent(3, "Saving results...", ""))
	w.saveReport(ctx, sessionID, report)
	w.setStatus(ctx, sessionID, models.SessionCompleted, "")
	completed = true

	sink.Emit(statusEvent(4, "Profiling complete", sessionID))
	sink.Emit(models.ProgressEvent{
		Type: models.EventProfilingComplete,
		Payload: map[string]any{
			"session_id": sessionID,
			"report":     report,
		},
	})
}

// buildMetadataSummary renders extracted metadata as the prompt context for
// section generation.
func buildMetadataSummary(projectID string, tableIDs []string, metadata *models.ProjectMetadata) string {
	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		encoded = []byte("{}")
	}
	var b strings.Builder
	b.WriteString("The following is extracted warehouse table metadata:\n\n")
	b.WriteString(fmt.Sprintf("Project ID: %s\n", projectID))
	b.WriteString(fmt.Sprintf("Tables under analysis: %d\n\n", len(tableIDs)))
	b.Write(encoded)
	return b.String()
}

func assembleFullReport(sections map[string]string) string {
	parts := []string{"# 📊 Data Profiling Report\n"}
	for _, section := range reportSections {
		content, ok := sections[section.key]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s\n%s\n", sectionHeadings[section.key], content))
	}
	return strings.Join(parts, "\n")
}

// Session tracking is best effort: a missing or failing store never
// interrupts the stream.

func (w *profilingWorkflow) createSession(ctx context.Context, projectID string, tableIDs []string) string {
	if w.sessions == nil {
		return ""
	}
	session, err := w.sessions.Create(ctx, projectID, tableIDs)
	if err != nil {
		w.logger.Warn("session create failed", zap.Error(err))
		return ""
	}
	return session.ID
}

func (w *profilingWorkflow) appendLog(ctx context.Context, sessionID, logType, message string) {
	if w.sessions == nil || sessionID == "" {
		return
	}
	if err := w.sessions.AppendLog(ctx, sessionID, logType, message, nil); err != nil {
		w.logger.Warn("session log failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

func (w *profilingWorkflow) saveReport(ctx context.Context, sessionID string, report *models.ProfilingReport) {
	if w.sessions == nil || sessionID == "" {
		return
	}
	if err := w.sessions.SaveResult(ctx, sessionID, repositories.ResultProfilingReport, report); err != nil {
		w.logger.Warn("session result save failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

func (w *profilingWorkflow) setStatus(ctx context.Context, sessionID string, status models.SessionStatus, errorMessage string) {
	if w.sessions == nil || sessionID == "" {
		return
	}
	if err := w.sessions.UpdateStatus(ctx, sessionID, status, errorMessage); err != nil {
		w.logger.Warn("session status update failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

func statusEvent(step int, message, sessionID string) models.ProgressEvent {
	payload := map[string]any{"step": step, "message": message}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	return models.ProgressEvent{Type: models.EventStatus, Payload: payload}
}

func logEvent(message string) models.ProgressEvent {
	return models.ProgressEvent{Type: models.EventLog, Payload: map[string]any{"message": message}}
}

func errorEvent(message string) models.ProgressEvent {
	return models.ProgressEvent{Type: models.EventError, Payload: map[string]any{"message": message}}
}
