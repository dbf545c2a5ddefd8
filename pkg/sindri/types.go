// Package sindri holds the data model shared by every Sindri component:
// agents, tasks, sessions, turns, checkpoints, events and tool results.
// Types here are plain data; behavior lives in the internal/* packages
// that own each concern.
package sindri

import (
	"encoding/json"
	"time"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskWaiting   TaskStatus = "waiting" // suspended on a delegated child
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// validTaskTransitions enumerates the status transitions the scheduler
// accepts; anything else is rejected.
var validTaskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:   {TaskRunning, TaskCancelled},
	TaskRunning:   {TaskWaiting, TaskCompleted, TaskFailed, TaskCancelled},
	TaskWaiting:   {TaskPending, TaskCancelled},
	TaskCompleted: {},
	TaskFailed:    {},
	TaskCancelled: {},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, allowed := range validTaskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is a terminal one.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionStale   SessionStatus = "stale"
	SessionClosed  SessionStatus = "closed"
)

// TurnRole identifies who authored a Turn.
type TurnRole string

const (
	RoleSystem    TurnRole = "system"
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
	RoleTool      TurnRole = "tool"
)

// EventType identifies the kind of Event published on the bus.
type EventType string

const (
	EventTaskCreated     EventType = "task.created"
	EventTaskStarted     EventType = "task.started"
	EventTaskCompleted   EventType = "task.completed"
	EventTaskFailed      EventType = "task.failed"
	EventTaskDelegated   EventType = "task.delegated"
	EventTaskResumed     EventType = "task.resumed"
	EventIterationStart  EventType = "iteration.started"
	EventIterationEnd    EventType = "iteration.finished"
	EventModelDelta      EventType = "model.delta"
	EventModelCompleted  EventType = "model.completed"
	EventToolStarted     EventType = "tool.started"
	EventToolFinished    EventType = "tool.finished"
	EventModelEvicted    EventType = "model.evicted"
	EventModelFallback   EventType = "model.fallback"
	EventCheckpointSaved EventType = "checkpoint.saved"
	EventStuckNudge      EventType = "task.stuck_nudge"
)

// AgentDefinition describes one agent in the registry: its model, prompt,
// resource estimate and delegation edges.
type AgentDefinition struct {
	Name             string   `json:"name" toml:"name"`
	Description      string   `json:"description" toml:"description"`
	Model            string   `json:"model" toml:"model"`
	FallbackModel    string   `json:"fallback_model,omitempty" toml:"fallback_model,omitempty"`
	EstimatedVRAMGB  float64  `json:"estimated_vram_gb" toml:"estimated_vram_gb"`
	FallbackVRAMGB   float64  `json:"fallback_vram_gb,omitempty" toml:"fallback_vram_gb,omitempty"`
	Priority         int      `json:"priority" toml:"priority"`
	MaxIterations    int      `json:"max_iterations" toml:"max_iterations"`
	SystemPrompt     string   `json:"system_prompt" toml:"system_prompt"`
	DelegateTo       []string `json:"delegate_to,omitempty" toml:"delegate_to,omitempty"`
	Tools            []string `json:"tools,omitempty" toml:"tools,omitempty"`
}

// Task is a unit of work assigned to one agent, possibly the child of
// another task via delegation.
type Task struct {
	ID          string          `json:"id"`
	ParentID    string          `json:"parent_id,omitempty"`
	AgentName   string          `json:"agent_name"`
	SessionID   string          `json:"session_id"`
	Status      TaskStatus      `json:"status"`
	Priority    int             `json:"priority"`
	Description string          `json:"description"`
	Context     json.RawMessage `json:"context,omitempty"`
	Result      string          `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	// WaitingOnChildID is set while Status == TaskWaiting.
	WaitingOnChildID string `json:"waiting_on_child_id,omitempty"`
	// sequence is the scheduler's insertion order, used to break priority ties.
	sequence uint64
}

// Sequence returns the scheduler-assigned insertion order.
func (t *Task) Sequence() uint64 { return t.sequence }

// SetSequence is called once by the scheduler at enqueue time.
func (t *Task) SetSequence(n uint64) { t.sequence = n }

// Session groups the turns belonging to one task's conversation. Fields
// mirror spec.md §3's Session: `task` (original description), `model`,
// and a monotonically increasing `iterations` count, in addition to the
// lifecycle/identity fields already present.
type Session struct {
	ID          string        `json:"id"`
	TaskID      string        `json:"task_id"`
	AgentName   string        `json:"agent_name"`
	Description string        `json:"description"`
	Model       string        `json:"model"`
	Status      SessionStatus `json:"status"`
	Iterations  int           `json:"iterations"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
}

// Turn is one append-only message in a session's history.
type Turn struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Role      TurnRole        `json:"role"`
	Content   string          `json:"content"`
	ToolCalls json.RawMessage `json:"tool_calls,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToolResult is the outcome of executing one tool call.
type ToolResult struct {
	Success  bool           `json:"success"`
	Output   string         `json:"output"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Checkpoint is the durable, atomically-written snapshot a task resumes from.
type Checkpoint struct {
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	State     json.RawMessage `json:"state"`
}

// Event is one item published on the event bus.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	AgentName string         `json:"agent_name,omitempty"`
	Iteration int            `json:"iteration,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Sequence  uint64         `json:"sequence"`
	Data      map[string]any `json:"data,omitempty"`
}
