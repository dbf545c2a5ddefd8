package events

import (
	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Emitter is a small per-task helper that stamps session/task/agent/
// iteration context onto every event it publishes, mirroring the
// teacher's EventEmitter convenience methods.
type Emitter struct {
	bus       *Bus
	sessionID string
	taskID    string
	agentName string
	iteration int
}

// NewEmitter returns an Emitter bound to one task's identity.
func NewEmitter(bus *Bus, sessionID, taskID, agentName string) *Emitter {
	return &Emitter{bus: bus, sessionID: sessionID, taskID: taskID, agentName: agentName}
}

// SetIteration updates the iteration number stamped on subsequent events.
func (e *Emitter) SetIteration(n int) { e.iteration = n }

func (e *Emitter) base(t sindri.EventType, data map[string]any) sindri.Event {
	return sindri.Event{
		Type:      t,
		SessionID: e.sessionID,
		TaskID:    e.taskID,
		AgentName: e.agentName,
		Iteration: e.iteration,
		Data:      data,
	}
}

func (e *Emitter) emit(t sindri.EventType, data map[string]any) {
	e.bus.Publish(e.base(t, data))
}

func (e *Emitter) TaskStarted()   { e.emit(sindri.EventTaskStarted, nil) }
func (e *Emitter) TaskCompleted(result string) {
	e.emit(sindri.EventTaskCompleted, map[string]any{"result": result})
}
func (e *Emitter) TaskFailed(reason string) {
	e.emit(sindri.EventTaskFailed, map[string]any{"reason": reason})
}
func (e *Emitter) TaskDelegated(childID, toAgent string) {
	e.emit(sindri.EventTaskDelegated, map[string]any{"child_id": childID, "agent": toAgent})
}
func (e *Emitter) TaskResumed(childID string) {
	e.emit(sindri.EventTaskResumed, map[string]any{"child_id": childID})
}
func (e *Emitter) IterationStarted() { e.emit(sindri.EventIterationStart, nil) }
func (e *Emitter) IterationFinished() { e.emit(sindri.EventIterationEnd, nil) }
func (e *Emitter) ModelDelta(text string) {
	e.emit(sindri.EventModelDelta, map[string]any{"text": text})
}
func (e *Emitter) ModelCompleted(stopReason string) {
	e.emit(sindri.EventModelCompleted, map[string]any{"stop_reason": stopReason})
}
func (e *Emitter) ToolStarted(name string) {
	e.emit(sindri.EventToolStarted, map[string]any{"tool": name})
}
func (e *Emitter) ToolFinished(name string, success bool) {
	e.emit(sindri.EventToolFinished, map[string]any{"tool": name, "success": success})
}
func (e *Emitter) CheckpointSaved() { e.emit(sindri.EventCheckpointSaved, nil) }
func (e *Emitter) StuckNudge(attempt int) {
	e.emit(sindri.EventStuckNudge, map[string]any{"attempt": attempt})
}
func (e *Emitter) ModelEvicted(model string) {
	e.emit(sindri.EventModelEvicted, map[string]any{"model": model})
}
func (e *Emitter) ModelFallback(from, to string) {
	e.emit(sindri.EventModelFallback, map[string]any{"from": from, "to": to})
}
