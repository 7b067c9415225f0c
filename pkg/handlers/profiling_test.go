package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/models"
	"github.com/warelens/warelens-engine/pkg/services"
)

func newProfilingMux(workflow services.ProfilingWorkflow) *http.ServeMux {
	mux := http.NewServeMux()
	NewProfilingHandler(workflow, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestStream_MissingParams(t *testing.T) {
	mux := newProfilingMux(&mockWorkflow{})

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/profiling", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"type":"error"`)
	assert.Contains(t, rec.Body.String(), "projectId and tableIds parameters are required")
}

func TestStream_EmitsEventsAsSSE(t *testing.T) {
	workflow := &mockWorkflow{
		RunFunc: func(ctx context.Context, projectID string, tableIDs []string, sink services.EventSink) {
			assert.Equal(t, "proj", projectID)
			assert.Equal(t, []string{"t1", "t2"}, tableIDs)
			sink.Emit(models.ProgressEvent{Type: models.EventStatus, Payload: map[string]any{"step": 0}})
			sink.Emit(models.ProgressEvent{Type: models.EventProfilingComplete, Payload: map[string]any{"session_id": "s1"}})
		},
	}
	mux := newProfilingMux(workflow)

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/profiling?projectId=proj&tableIds=t1,t2", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	body := rec.Body.String()
	events := strings.Split(strings.TrimSpace(body), "\n\n")
	require.Len(t, events, 2)
	assert.True(t, strings.HasPrefix(events[0], "data: "))
	assert.Contains(t, events[0], `"type":"status"`)
	assert.Contains(t, events[1], `"type":"profiling_complete"`)
}

func TestStream_WorkflowOutlivesDisconnect(t *testing.T) {
	finished := make(chan struct{})
	workflow := &mockWorkflow{
		RunFunc: func(ctx context.Context, projectID string, tableIDs []string, sink services.EventSink) {
			// The run context must not carry the request's cancellation.
			assert.NoError(t, ctx.Err())
			for i := 0; i < eventBuffer*2; i++ {
				sink.Emit(models.ProgressEvent{Type: models.EventLog, Payload: map[string]any{"i": i}})
			}
			close(finished)
		},
	}
	mux := newProfilingMux(workflow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/profiling?projectId=proj&tableIds=t1", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	// ServeHTTP returning means the handler drained every event even though
	// the client was gone from the start.
	select {
	case <-finished:
	default:
		t.Fatal("workflow did not run to completion")
	}
}

func TestSplitTableIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitTableIDs("a,b\nc"))
	assert.Equal(t, []string{"a"}, splitTableIDs("  a  ,, "))
	assert.Nil(t, splitTableIDs(""))
}
