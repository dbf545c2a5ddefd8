package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sindri-ai/sindri/internal/events"
	"github.com/sindri-ai/sindri/pkg/sindri"
)

func TestMetricsSubscribeCountsTaskOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	bus := events.New()
	m.Subscribe(bus)

	bus.Publish(sindri.Event{Type: sindri.EventTaskStarted, AgentName: "huginn"})
	bus.Publish(sindri.Event{Type: sindri.EventTaskCompleted, AgentName: "huginn"})
	bus.Publish(sindri.Event{Type: sindri.EventTaskFailed, AgentName: "muninn"})

	if got := testutil.ToFloat64(m.TasksTotal.WithLabelValues("huginn", "completed")); got != 1 {
		t.Errorf("completed count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TasksTotal.WithLabelValues("muninn", "failed")); got != 1 {
		t.Errorf("failed count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveTasks); got != -1 {
		t.Errorf("ActiveTasks = %v, want -1 (1 start, 2 terminal)", got)
	}
}

func TestMetricsSubscribeCountsToolAndModelEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	bus := events.New()
	m.Subscribe(bus)

	bus.Publish(sindri.Event{Type: sindri.EventToolFinished, Data: map[string]any{"tool": "read_file", "success": true}})
	bus.Publish(sindri.Event{Type: sindri.EventToolFinished, Data: map[string]any{"tool": "read_file", "success": false}})
	bus.Publish(sindri.Event{Type: sindri.EventModelCompleted, AgentName: "huginn", Data: map[string]any{"stop_reason": "stop"}})
	bus.Publish(sindri.Event{Type: sindri.EventModelEvicted})
	bus.Publish(sindri.Event{Type: sindri.EventModelFallback})
	bus.Publish(sindri.Event{Type: sindri.EventCheckpointSaved})

	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("read_file", "success")); got != 1 {
		t.Errorf("tool success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("read_file", "error")); got != 1 {
		t.Errorf("tool error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ModelCallsTotal.WithLabelValues("huginn", "stop")); got != 1 {
		t.Errorf("model call count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ModelEvictions); got != 1 {
		t.Errorf("ModelEvictions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ModelFallbacks); got != 1 {
		t.Errorf("ModelFallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CheckpointsSaved); got != 1 {
		t.Errorf("CheckpointsSaved = %v, want 1", got)
	}
}
