// Package tasks implements the Task Scheduler (C9): a priority queue keyed
// by (priority, insertion-sequence), guarded by one mutex, with status
// transitions validated against sindri.TaskStatus.CanTransition. Ordering
// discipline adapted from the teacher's due-time-ordered cron scheduler,
// retargeted from time-ordering to priority-ordering.
package tasks

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Scheduler tracks tasks by ID regardless of queue membership, so a task
// that's Running (popped off the queue) is still reachable by ID.
type Scheduler struct {
	mu       sync.Mutex
	queue    taskHeap
	byID     map[string]*sindri.Task
	sequence uint64
	running  map[string]bool
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		byID:    make(map[string]*sindri.Task),
		running: make(map[string]bool),
	}
}

// Enqueue adds a new task in TaskPending status.
func (s *Scheduler) Enqueue(t *sindri.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence++
	t.SetSequence(s.sequence)
	if t.Status == "" {
		t.Status = sindri.TaskPending
	}
	s.byID[t.ID] = t
	heap.Push(&s.queue, t)
}

// Pop removes and returns the highest-priority pending task, transitioning
// it to TaskRunning. Returns nil if the queue is empty.
func (s *Scheduler) Pop() *sindri.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return nil
	}
	t := heap.Pop(&s.queue).(*sindri.Task)
	t.Status = sindri.TaskRunning
	s.running[t.ID] = true
	return t
}

// Get returns the task with id, regardless of queue membership.
func (s *Scheduler) Get(id string) (*sindri.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	return t, ok
}

// Transition validates and applies a status change. Waiting->Pending
// re-enqueues the task (resumed after a delegated child completes, picked
// back up by a later Pop); Running->Waiting removes it from the running
// set without re-enqueueing (the orchestrator re-enqueues once the child
// is done).
func (s *Scheduler) Transition(id string, next sindri.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return sindri.ErrTaskNotFound
	}
	if !t.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", sindri.ErrInvalidTransition, t.Status, next)
	}
	prev := t.Status
	t.Status = next
	if prev == sindri.TaskRunning {
		delete(s.running, id)
	}
	if next == sindri.TaskPending {
		s.sequence++
		t.SetSequence(s.sequence)
		heap.Push(&s.queue, t)
	}
	return nil
}

// IsRunning reports whether a task is currently in the running set, used
// to enforce "at most one active loop per task".
func (s *Scheduler) IsRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[id]
}

// Len reports the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// taskHeap orders by (priority asc, sequence asc): smaller priority number
// wins (spec.md's "priority, lower = more important" convention — brokkr's
// priority 0 outranks ratatoskr's priority 2), ties broken by insertion
// order (FIFO among equal priorities).
type taskHeap []*sindri.Task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].Sequence() < h[j].Sequence()
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*sindri.Task))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
