// Package orchestrator implements the Orchestrator (C10): the top-level
// driver that turns a user task into a root Task, drives the Scheduler,
// invokes the Iteration Loop per task, and carries out the delegation
// handshake between parent and child tasks. Grounded in shape on the
// teacher's internal/multiagent/orchestrator.go (a central coordinator
// holding the shared registries/stores and fanning work out to per-agent
// runtimes), retargeted from Nexus's supervisor/handoff conversation model
// to Sindri's scheduler-driven task tree.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sindri-ai/sindri/internal/agents"
	"github.com/sindri-ai/sindri/internal/events"
	"github.com/sindri-ai/sindri/internal/loop"
	"github.com/sindri-ai/sindri/internal/modelmanager"
	"github.com/sindri-ai/sindri/internal/sessions"
	"github.com/sindri-ai/sindri/internal/tasks"
	"github.com/sindri-ai/sindri/pkg/sindri"
)

// excerptLen bounds how much of a child's result is quoted back into the
// parent's session, per spec.md §4.10's synthetic-turn format.
const excerptLen = 400

// Outcome is the terminal result of running a user task through the whole
// task tree (root task plus every descendant it spawned).
type Outcome struct {
	Success bool
	TaskID  string
	Result  string
	Error   string
}

// Orchestrator wires the Scheduler, Agent Registry, Model Manager, and
// Loop together and drives a single user task to completion.
type Orchestrator struct {
	scheduler *tasks.Scheduler
	agents    *agents.Registry
	models    *modelmanager.Manager
	sess      sessions.Store
	loop      *loop.Loop
	bus       *events.Bus
}

// New constructs an Orchestrator from its collaborators. bus may be nil.
func New(scheduler *tasks.Scheduler, agentRegistry *agents.Registry, models *modelmanager.Manager, sess sessions.Store, l *loop.Loop, bus *events.Bus) *Orchestrator {
	return &Orchestrator{
		scheduler: scheduler,
		agents:    agentRegistry,
		models:    models,
		sess:      sess,
		loop:      l,
		bus:       bus,
	}
}

// runOutcome is one completed (or suspended) task's outcome, reported back
// to the driver loop over a channel so concurrently-running tasks don't
// race on scheduler/session mutation.
type runOutcome struct {
	task   *sindri.Task
	result loop.Result
}

// Run creates a root Task for the given entry agent and drives the
// Scheduler until the whole task tree is terminal.
func (o *Orchestrator) Run(ctx context.Context, entryAgent, userTask string) (Outcome, error) {
	def, err := o.agents.Get(entryAgent)
	if err != nil {
		return Outcome{}, err
	}

	root := &sindri.Task{
		ID:          uuid.NewString(),
		AgentName:   entryAgent,
		Description: userTask,
		Priority:    def.Priority,
		Status:      sindri.TaskPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	o.scheduler.Enqueue(root)

	if err := o.drive(ctx); err != nil {
		return Outcome{}, err
	}

	final, ok := o.scheduler.Get(root.ID)
	if !ok {
		return Outcome{}, fmt.Errorf("root task %s vanished from scheduler", root.ID)
	}
	return Outcome{
		Success: final.Status == sindri.TaskCompleted,
		TaskID:  final.ID,
		Result:  final.Result,
		Error:   final.Error,
	}, nil
}

// drive pops eligible tasks and runs each one's Loop concurrently (one
// goroutine per active Task, per spec.md §5's "each active Task runs in its
// own logical execution context"), funneling every outcome back through one
// channel so scheduler/session mutation stays single-threaded.
func (o *Orchestrator) drive(ctx context.Context) error {
	outcomes := make(chan runOutcome)
	inFlight := 0

	launch := func(t *sindri.Task) {
		inFlight++
		go o.runTask(ctx, t, outcomes)
	}

	for {
		for {
			t := o.scheduler.Pop()
			if t == nil {
				break
			}
			launch(t)
		}
		if inFlight == 0 {
			return nil
		}
		out := <-outcomes
		inFlight--
		// handleOutcome may re-enqueue a resumed parent (Transition pushes
		// it back onto the scheduler's heap); the next loop pass's Pop()
		// pass picks it up, so no task is ever launched outside the
		// scheduler's running-set bookkeeping.
		if err := o.handleOutcome(ctx, out); err != nil {
			return err
		}
	}
}

// runTask acquires the task's model and runs the Loop, reporting the
// outcome on done.
func (o *Orchestrator) runTask(ctx context.Context, t *sindri.Task, done chan<- runOutcome) {
	def, err := o.agents.Get(t.AgentName)
	if err != nil {
		done <- runOutcome{task: t, result: loop.Result{Success: false, Reason: loop.ReasonFatalError, Err: err}}
		return
	}

	modelUsed, err := o.models.Acquire(modelmanager.Candidate{
		Model:          def.Model,
		VRAMGB:         def.EstimatedVRAMGB,
		FallbackModel:  def.FallbackModel,
		FallbackVRAMGB: def.FallbackVRAMGB,
	})
	if err != nil {
		done <- runOutcome{task: t, result: loop.Result{Success: false, Reason: loop.ReasonFatalError, Err: err}}
		return
	}
	def.Model = modelUsed

	result := o.loop.Run(ctx, t, def)
	o.models.Release(modelUsed)
	done <- runOutcome{task: t, result: result}
}

// handleOutcome applies one task's Loop result to the scheduler and, for a
// parent task, appends the synthetic resumption turn.
func (o *Orchestrator) handleOutcome(ctx context.Context, out runOutcome) error {
	t := out.task
	result := out.result

	switch {
	case result.Success && result.Reason == loop.ReasonCompletionMarker:
		t.Result = result.FinalOutput
		if err := o.scheduler.Transition(t.ID, sindri.TaskCompleted); err != nil {
			return err
		}
		return o.resolveParent(ctx, t, true, result.FinalOutput)

	case result.Reason == loop.ReasonDelegated:
		child := &sindri.Task{
			ID:          uuid.NewString(),
			ParentID:    t.ID,
			AgentName:   result.DelegateCall.Agent,
			Description: result.DelegateCall.Task,
			Context:     result.DelegateCall.Context,
			Status:      sindri.TaskPending,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if def, err := o.agents.Get(result.DelegateCall.Agent); err == nil {
			child.Priority = def.Priority
		}
		t.WaitingOnChildID = child.ID
		if err := o.scheduler.Transition(t.ID, sindri.TaskWaiting); err != nil {
			return err
		}
		o.scheduler.Enqueue(child)
		return nil

	default:
		t.Error = string(result.Reason)
		if result.Err != nil {
			t.Error = result.Err.Error()
		}
		if err := o.scheduler.Transition(t.ID, sindri.TaskFailed); err != nil {
			return err
		}
		return o.resolveParent(ctx, t, false, t.Error)
	}
}

// resolveParent appends the synthetic `[child <agent> completed: ...]` (or
// `failed`) turn to the parent's session and transitions it back to
// Pending so it gets re-dispatched with the child's outcome already in its
// conversation context — the resumption invariant spec.md §4.10 requires.
func (o *Orchestrator) resolveParent(ctx context.Context, child *sindri.Task, success bool, output string) error {
	if child.ParentID == "" {
		return nil
	}
	parent, ok := o.scheduler.Get(child.ParentID)
	if !ok {
		return nil
	}

	verb := "completed"
	if !success {
		verb = "failed"
	}
	excerpt := output
	if len(excerpt) > excerptLen {
		excerpt = excerpt[:excerptLen] + "..."
	}
	note := fmt.Sprintf("[child %s %s: %s]", child.AgentName, verb, strings.TrimSpace(excerpt))

	if parent.SessionID != "" {
		if err := o.sess.AppendTurn(ctx, parent.SessionID, &sindri.Turn{
			Role:    sindri.RoleUser,
			Content: note,
		}); err != nil {
			return err
		}
	}

	parent.WaitingOnChildID = ""
	return o.scheduler.Transition(parent.ID, sindri.TaskPending)
}
