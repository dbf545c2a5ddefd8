// Package loop implements the Iteration Loop (C8): the per-task reasoning
// loop that alternates model inference with tool execution until the agent
// signals completion, delegates to a child, gets stuck, or exhausts its
// iteration budget.
//
// Per-iteration order mirrors _examples/original_source/sindri/core/loop.py:
// build context, call the model, extract tool calls (native or parsed),
// execute them, check for completion only once no tools ran this iteration,
// append turns, detect stuck repetition, checkpoint periodically.
package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sindri-ai/sindri/internal/events"
	"github.com/sindri-ai/sindri/internal/modelclient"
	"github.com/sindri-ai/sindri/internal/recovery"
	"github.com/sindri-ai/sindri/internal/sessions"
	"github.com/sindri-ai/sindri/internal/toolparser"
	"github.com/sindri-ai/sindri/internal/toolregistry"
	"github.com/sindri-ai/sindri/pkg/sindri"
)

// delegateToolName is intercepted before ordinary dispatch; it never
// actually runs through the Tool Registry.
const delegateToolName = "delegate"

// ModelClient is the subset of *modelclient.Client the loop depends on,
// mirroring the teacher's LLMProvider seam (internal/agent/provider_types.go)
// so tests can substitute a fake backend instead of talking to Ollama.
type ModelClient interface {
	Chat(ctx context.Context, model string, messages []modelclient.Message, tools []modelclient.ToolSpec) (*modelclient.Response, error)
	ChatStream(ctx context.Context, model string, messages []modelclient.Message, tools []modelclient.ToolSpec, onToken func(string)) (*modelclient.Response, error)
}

// ToolExecutor is the subset of *toolregistry.Registry the loop depends on.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, params json.RawMessage) (*sindri.ToolResult, error)
	Specs() []toolregistry.ToolSpec
}

// Config tunes loop behavior. Zero values are replaced with defaults by
// sanitizeConfig.
type Config struct {
	MaxIterations      int
	CompletionMarker   string
	StuckThreshold     int // sliding window size for stuck detection
	MaxNudges          int
	CheckpointInterval int
	Streaming          bool
}

// DefaultConfig returns the loop's default tuning, matching the original's
// LoopConfig defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:      50,
		CompletionMarker:   "<sindri:complete/>",
		StuckThreshold:     3,
		MaxNudges:          3,
		CheckpointInterval: 5,
		Streaming:          true,
	}
}

func sanitizeConfig(cfg Config) Config {
	d := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = d.MaxIterations
	}
	if cfg.CompletionMarker == "" {
		cfg.CompletionMarker = d.CompletionMarker
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = d.StuckThreshold
	}
	if cfg.MaxNudges <= 0 {
		cfg.MaxNudges = d.MaxNudges
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = d.CheckpointInterval
	}
	return cfg
}

// Reason enumerates why a loop run stopped.
type Reason string

const (
	ReasonCompletionMarker Reason = "completion_marker"
	ReasonDelegated        Reason = "delegated"
	ReasonMaxIterations    Reason = "max_iterations_reached"
	ReasonStuck            Reason = "stuck"
	ReasonFatalError       Reason = "fatal_error"
)

// Result is returned by Run once the loop reaches a terminal or
// soft-suspend outcome.
type Result struct {
	Success      bool
	Iterations   int
	Reason       Reason
	FinalOutput  string
	DelegateCall *DelegateRequest
	Err          error
}

// DelegateRequest carries a suspended delegate call's arguments back to the
// Orchestrator so it can enqueue the child Task.
type DelegateRequest struct {
	Agent   string
	Task    string
	Context json.RawMessage
}

// Loop wires together the Model Client, Tool Registry, Session Store, and
// Recovery Manager to run a single task's reasoning loop.
type Loop struct {
	client   ModelClient
	tools    ToolExecutor
	sessions sessions.Store
	recovery *recovery.Manager
	bus      *events.Bus
	config   Config
}

// New constructs a Loop. bus may be nil to run without event publication
// (e.g. in tests).
func New(client ModelClient, tools ToolExecutor, store sessions.Store, rec *recovery.Manager, bus *events.Bus, cfg Config) *Loop {
	return &Loop{
		client:   client,
		tools:    tools,
		sessions: store,
		recovery: rec,
		bus:      bus,
		config:   sanitizeConfig(cfg),
	}
}

// Run executes the loop for one Task until a terminal or suspend outcome.
// If task.SessionID is already set the loop resumes that session (the
// resumption invariant §4.10 requires); otherwise it creates a new one and
// stores the new id back onto task.
func (l *Loop) Run(ctx context.Context, task *sindri.Task, agent sindri.AgentDefinition) Result {
	session, err := l.loadOrCreateSession(ctx, task, agent)
	if err != nil {
		return Result{Success: false, Reason: ReasonFatalError, Err: err}
	}

	emitter := events.NewEmitter(l.bus, session.ID, task.ID, agent.Name)

	var recentResponses []string
	nudges := 0
	maxIter := l.effectiveMaxIterations(agent)

	for iteration := 0; iteration < maxIter; iteration++ {
		emitter.SetIteration(iteration + 1)
		if l.bus != nil {
			emitter.IterationStarted()
		}

		turns, err := l.sessions.GetHistory(ctx, session.ID, 0)
		if err != nil {
			return Result{Success: false, Iterations: iteration, Reason: ReasonFatalError, Err: err}
		}

		messages := buildContext(agent, task.Description, turns)
		toolSpecs := filterToolSpecs(l.tools.Specs(), agent.Tools)

		resp, err := l.callModel(ctx, agent, messages, toolSpecs, emitter)
		if err != nil {
			return Result{Success: false, Iterations: iteration, Reason: ReasonFatalError, Err: err}
		}

		assistantContent := resp.Message.Content
		calls := extractToolCalls(resp)

		// iterations counts completed loop steps (one per model response
		// received), per spec.md §3's "monotonically increases" invariant.
		session.Iterations = iteration + 1
		if err := l.sessions.Update(ctx, session); err != nil {
			return Result{Success: false, Iterations: iteration, Reason: ReasonFatalError, Err: err}
		}

		if delegateReq, ok := findDelegateCall(calls); ok {
			l.suspendForDelegation(ctx, session, assistantContent, calls)
			return Result{Success: false, Iterations: iteration + 1, Reason: ReasonDelegated, DelegateCall: delegateReq}
		}

		toolResults := l.executeTools(ctx, session, calls, emitter)

		if toolparser.HasCompletionMarker(assistantContent, l.config.CompletionMarker) && len(calls) == 0 {
			if err := l.sessions.AppendTurn(ctx, session.ID, &sindri.Turn{Role: sindri.RoleAssistant, Content: assistantContent}); err != nil {
				return Result{Success: false, Iterations: iteration, Reason: ReasonFatalError, Err: err}
			}
			session.Status = sindri.SessionClosed
			session.CompletedAt = time.Now()
			l.sessions.Update(ctx, session)
			if l.bus != nil {
				emitter.TaskCompleted(assistantContent)
			}
			return Result{Success: true, Iterations: iteration + 1, Reason: ReasonCompletionMarker, FinalOutput: assistantContent}
		}

		recentResponses = append(recentResponses, assistantContent)
		if len(recentResponses) > l.config.StuckThreshold {
			recentResponses = recentResponses[1:]
		}

		if isStuck(recentResponses, l.config.StuckThreshold) {
			nudges++
			if l.bus != nil {
				emitter.StuckNudge(nudges)
			}
			if nudges > l.config.MaxNudges {
				return Result{Success: false, Iterations: iteration + 1, Reason: ReasonStuck}
			}
			l.sessions.AppendTurn(ctx, session.ID, &sindri.Turn{
				Role:    sindri.RoleUser,
				Content: "You seem stuck. Try a different approach or ask for clarification.",
			})
			recentResponses = nil
			continue
		}

		if err := l.appendAssistantAndToolTurns(ctx, session.ID, assistantContent, calls, toolResults); err != nil {
			return Result{Success: false, Iterations: iteration, Reason: ReasonFatalError, Err: err}
		}

		if iteration%l.config.CheckpointInterval == 0 {
			l.checkpoint(session.ID, task, agent, iteration+1, emitter)
		}

		if l.bus != nil {
			emitter.IterationFinished()
		}
	}

	return Result{Success: false, Iterations: maxIter, Reason: ReasonMaxIterations}
}

func (l *Loop) effectiveMaxIterations(agent sindri.AgentDefinition) int {
	if agent.MaxIterations > 0 && agent.MaxIterations < l.config.MaxIterations {
		return agent.MaxIterations
	}
	return l.config.MaxIterations
}

func (l *Loop) loadOrCreateSession(ctx context.Context, task *sindri.Task, agent sindri.AgentDefinition) (*sindri.Session, error) {
	if task.SessionID != "" {
		return l.sessions.Get(ctx, task.SessionID)
	}
	session := &sindri.Session{
		ID:          newSessionID(task),
		TaskID:      task.ID,
		AgentName:   agent.Name,
		Description: task.Description,
		Model:       agent.Model,
		Status:      sindri.SessionActive,
	}
	if err := l.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	task.SessionID = session.ID
	return session, nil
}

// newSessionID derives a stable, collision-resistant id from the task.
// There is exactly one Session per Task, so the task id is the natural key.
func newSessionID(task *sindri.Task) string {
	return "sess_" + task.ID
}

func (l *Loop) callModel(ctx context.Context, agent sindri.AgentDefinition, messages []modelclient.Message, tools []modelclient.ToolSpec, emitter *events.Emitter) (*modelclient.Response, error) {
	if l.config.Streaming {
		onToken := func(string) {}
		if l.bus != nil {
			onToken = func(tok string) { emitter.ModelDelta(tok) }
		}
		resp, err := l.client.ChatStream(ctx, agent.Model, messages, tools, onToken)
		if err == nil && l.bus != nil {
			emitter.ModelCompleted(resp.StopReason)
		}
		return resp, err
	}
	resp, err := l.client.Chat(ctx, agent.Model, messages, tools)
	if err == nil && l.bus != nil {
		emitter.ModelCompleted(resp.StopReason)
	}
	return resp, err
}

func extractToolCalls(resp *modelclient.Response) []modelclient.ToolCall {
	if len(resp.Message.ToolCalls) > 0 {
		return resp.Message.ToolCalls
	}
	parsed := toolparser.Parse(resp.Message.Content)
	calls := make([]modelclient.ToolCall, 0, len(parsed))
	for i, p := range parsed {
		args, _ := json.Marshal(p.Arguments)
		calls = append(calls, modelclient.ToolCall{
			ID:       fmt.Sprintf("parsed_%d", i+1),
			Type:     "function",
			Function: modelclient.ToolCallFunction{Name: p.Name, Arguments: args},
		})
	}
	return calls
}

func findDelegateCall(calls []modelclient.ToolCall) (*DelegateRequest, bool) {
	for _, c := range calls {
		if c.Function.Name != delegateToolName {
			continue
		}
		var args struct {
			Agent   string          `json:"agent"`
			Task    string          `json:"task"`
			Context json.RawMessage `json:"context"`
		}
		json.Unmarshal(c.Function.Arguments, &args)
		return &DelegateRequest{Agent: args.Agent, Task: args.Task, Context: args.Context}, true
	}
	return nil, false
}

func (l *Loop) suspendForDelegation(ctx context.Context, session *sindri.Session, assistantContent string, calls []modelclient.ToolCall) {
	toolCallPayload, _ := json.Marshal(calls)
	l.sessions.AppendTurn(ctx, session.ID, &sindri.Turn{
		Role:      sindri.RoleAssistant,
		Content:   assistantContent,
		ToolCalls: toolCallPayload,
	})
}

func (l *Loop) executeTools(ctx context.Context, session *sindri.Session, calls []modelclient.ToolCall, emitter *events.Emitter) []*sindri.ToolResult {
	results := make([]*sindri.ToolResult, 0, len(calls))
	for _, call := range calls {
		if l.bus != nil {
			emitter.ToolStarted(call.Function.Name)
		}
		result, err := l.tools.Execute(ctx, call.Function.Name, call.Function.Arguments)
		if err != nil {
			result = &sindri.ToolResult{Success: false, Error: err.Error()}
		}
		if l.bus != nil {
			emitter.ToolFinished(call.Function.Name, result.Success)
		}
		results = append(results, result)
	}
	return results
}

func (l *Loop) appendAssistantAndToolTurns(ctx context.Context, sessionID string, assistantContent string, calls []modelclient.ToolCall, results []*sindri.ToolResult) error {
	var toolCallPayload json.RawMessage
	if len(calls) > 0 {
		toolCallPayload, _ = json.Marshal(calls)
	}
	if err := l.sessions.AppendTurn(ctx, sessionID, &sindri.Turn{
		Role:      sindri.RoleAssistant,
		Content:   assistantContent,
		ToolCalls: toolCallPayload,
	}); err != nil {
		return err
	}
	for i, res := range results {
		text := res.Output
		if !res.Success {
			text = fmt.Sprintf("ERROR: %s", res.Error)
		}
		name := ""
		if i < len(calls) {
			name = calls[i].Function.Name
		}
		if err := l.sessions.AppendTurn(ctx, sessionID, &sindri.Turn{
			Role:     sindri.RoleTool,
			Content:  text,
			ToolName: name,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) checkpoint(sessionID string, task *sindri.Task, agent sindri.AgentDefinition, iteration int, emitter *events.Emitter) {
	if l.recovery == nil {
		return
	}
	state, err := json.Marshal(map[string]any{
		"task_description": task.Description,
		"iteration":        iteration,
		"agent":            agent.Name,
	})
	if err != nil {
		return
	}
	if err := l.recovery.SaveCheckpoint(sessionID, state); err == nil && l.bus != nil {
		emitter.CheckpointSaved()
	}
}

func isStuck(responses []string, threshold int) bool {
	if len(responses) < threshold {
		return false
	}
	first := responses[0]
	for _, r := range responses[1:] {
		if r != first {
			return false
		}
	}
	return true
}

func filterToolSpecs(all []toolregistry.ToolSpec, allowed []string) []modelclient.ToolSpec {
	if len(allowed) == 0 {
		return nil
	}
	allowSet := make(map[string]bool, len(allowed))
	for _, n := range allowed {
		allowSet[n] = true
	}
	out := make([]modelclient.ToolSpec, 0, len(all))
	for _, spec := range all {
		if allowSet[spec.Name] {
			out = append(out, modelclient.ToolSpec{Name: spec.Name, Description: spec.Description, Schema: spec.Schema})
		}
	}
	return out
}

// buildContext assembles the message list sent to the model: system prompt
// (followed by the task description) first, then the session's stored turns
// translated to modelclient.Message.
func buildContext(agent sindri.AgentDefinition, taskDescription string, turns []*sindri.Turn) []modelclient.Message {
	messages := make([]modelclient.Message, 0, len(turns)+1)
	messages = append(messages, modelclient.Message{
		Role:    "system",
		Content: strings.TrimSpace(agent.SystemPrompt) + "\n\nTask: " + taskDescription,
	})
	for _, t := range turns {
		messages = append(messages, modelclient.Message{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}
	return messages
}
