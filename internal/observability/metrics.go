package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sindri-ai/sindri/internal/events"
	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Metrics is Sindri's Prometheus instrumentation, trimmed from the
// teacher's channel/HTTP/database metric families down to the counters
// and gauges the task-tree execution model actually produces. Grounded
// on internal/observability/metrics.go's promauto-registered-CounterVec
// pattern.
type Metrics struct {
	TasksTotal       *prometheus.CounterVec
	IterationsTotal  *prometheus.CounterVec
	ToolCallsTotal   *prometheus.CounterVec
	ModelCallsTotal  *prometheus.CounterVec
	StuckNudgesTotal *prometheus.CounterVec
	ModelEvictions   prometheus.Counter
	ModelFallbacks   prometheus.Counter
	CheckpointsSaved prometheus.Counter
	ActiveTasks      prometheus.Gauge
}

// NewMetrics registers Sindri's metric families against reg. Pass
// prometheus.DefaultRegisterer in production; tests should pass a fresh
// prometheus.NewRegistry() so repeated calls don't panic on duplicate
// registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sindri_tasks_total",
			Help: "Total tasks by terminal outcome (completed, failed, delegated).",
		}, []string{"agent", "outcome"}),

		IterationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sindri_loop_iterations_total",
			Help: "Total loop iterations run, by agent.",
		}, []string{"agent"}),

		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sindri_tool_calls_total",
			Help: "Total tool invocations, by tool name and outcome.",
		}, []string{"tool", "status"}),

		ModelCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sindri_model_calls_total",
			Help: "Total model inference calls, by agent and stop reason.",
		}, []string{"agent", "stop_reason"}),

		StuckNudgesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sindri_stuck_nudges_total",
			Help: "Total stuck-detection nudges injected, by agent.",
		}, []string{"agent"}),

		ModelEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "sindri_model_evictions_total",
			Help: "Total models evicted from VRAM under admission pressure.",
		}),

		ModelFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "sindri_model_fallbacks_total",
			Help: "Total times a task fell back to a smaller model.",
		}),

		CheckpointsSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "sindri_checkpoints_saved_total",
			Help: "Total checkpoints written by the recovery manager.",
		}),

		ActiveTasks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sindri_active_tasks",
			Help: "Number of tasks currently running (delta of started/terminal events).",
		}),
	}
}

// Subscribe wires m to bus: every subscribed event type published on bus
// updates the matching counter. The Loop and the Model Manager publish
// events; the Orchestrator publishes none, so the task-started,
// task-failed and task-delegated handlers only fire for other publishers. Subscriptions are independent per event
// type, matching the Event Bus's per-type Subscribe contract (C5).
func (m *Metrics) Subscribe(bus *events.Bus) {
	bus.Subscribe(sindri.EventTaskStarted, func(e sindri.Event) {
		m.ActiveTasks.Inc()
	})
	bus.Subscribe(sindri.EventTaskCompleted, func(e sindri.Event) {
		m.TasksTotal.WithLabelValues(e.AgentName, "completed").Inc()
		m.ActiveTasks.Dec()
	})
	bus.Subscribe(sindri.EventTaskFailed, func(e sindri.Event) {
		m.TasksTotal.WithLabelValues(e.AgentName, "failed").Inc()
		m.ActiveTasks.Dec()
	})
	bus.Subscribe(sindri.EventTaskDelegated, func(e sindri.Event) {
		m.TasksTotal.WithLabelValues(e.AgentName, "delegated").Inc()
		m.ActiveTasks.Dec()
	})
	bus.Subscribe(sindri.EventIterationStart, func(e sindri.Event) {
		m.IterationsTotal.WithLabelValues(e.AgentName).Inc()
	})
	bus.Subscribe(sindri.EventToolFinished, func(e sindri.Event) {
		tool, _ := e.Data["tool"].(string)
		status := "error"
		if ok, _ := e.Data["success"].(bool); ok {
			status = "success"
		}
		m.ToolCallsTotal.WithLabelValues(tool, status).Inc()
	})
	bus.Subscribe(sindri.EventModelCompleted, func(e sindri.Event) {
		reason, _ := e.Data["stop_reason"].(string)
		m.ModelCallsTotal.WithLabelValues(e.AgentName, reason).Inc()
	})
	bus.Subscribe(sindri.EventStuckNudge, func(e sindri.Event) {
		m.StuckNudgesTotal.WithLabelValues(e.AgentName).Inc()
	})
	bus.Subscribe(sindri.EventModelEvicted, func(e sindri.Event) {
		m.ModelEvictions.Inc()
	})
	bus.Subscribe(sindri.EventModelFallback, func(e sindri.Event) {
		m.ModelFallbacks.Inc()
	})
	bus.Subscribe(sindri.EventCheckpointSaved, func(e sindri.Event) {
		m.CheckpointsSaved.Inc()
	})
}
