package tasks

import (
	"testing"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

func TestPopReturnsHighestPriorityFirst(t *testing.T) {
	s := New()
	s.Enqueue(&sindri.Task{ID: "low", Priority: 10})
	s.Enqueue(&sindri.Task{ID: "high", Priority: 1})
	s.Enqueue(&sindri.Task{ID: "mid", Priority: 5})

	// Lower priority number wins (spec.md: "priority, lower = more
	// important" — e.g. brokkr's 0 outranks ratatoskr's 2).
	if got := s.Pop().ID; got != "high" {
		t.Errorf("first pop = %s, want high", got)
	}
	if got := s.Pop().ID; got != "mid" {
		t.Errorf("second pop = %s, want mid", got)
	}
	if got := s.Pop().ID; got != "low" {
		t.Errorf("third pop = %s, want low", got)
	}
}

func TestPopTiesBrokenByInsertionOrder(t *testing.T) {
	s := New()
	s.Enqueue(&sindri.Task{ID: "first", Priority: 5})
	s.Enqueue(&sindri.Task{ID: "second", Priority: 5})

	if got := s.Pop().ID; got != "first" {
		t.Errorf("first pop = %s, want first", got)
	}
	if got := s.Pop().ID; got != "second" {
		t.Errorf("second pop = %s, want second", got)
	}
}

func TestPopEmptyQueueReturnsNil(t *testing.T) {
	s := New()
	if s.Pop() != nil {
		t.Fatal("expected nil from empty queue")
	}
}

func TestAtMostOneActiveLoopPerTask(t *testing.T) {
	s := New()
	s.Enqueue(&sindri.Task{ID: "t1", Priority: 1})
	task := s.Pop()
	if !s.IsRunning(task.ID) {
		t.Fatal("expected task to be running after pop")
	}
	if s.Pop() != nil {
		t.Fatal("expected no other task to pop")
	}
}

func TestTransitionRejectsInvalidMove(t *testing.T) {
	s := New()
	s.Enqueue(&sindri.Task{ID: "t1", Priority: 1})
	if err := s.Transition("t1", sindri.TaskCompleted); err == nil {
		t.Fatal("expected pending->completed to be rejected")
	}
}

func TestTransitionWaitingBackToPendingReenqueues(t *testing.T) {
	s := New()
	s.Enqueue(&sindri.Task{ID: "t1", Priority: 1})
	task := s.Pop()
	if err := s.Transition(task.ID, sindri.TaskWaiting); err != nil {
		t.Fatal(err)
	}
	if s.IsRunning(task.ID) {
		t.Fatal("expected task to leave running set when waiting")
	}
	if err := s.Transition(task.ID, sindri.TaskPending); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected task to be re-enqueued, queue len = %d", s.Len())
	}
}

func TestTransitionUnknownTaskFails(t *testing.T) {
	s := New()
	if err := s.Transition("missing", sindri.TaskRunning); err != sindri.ErrTaskNotFound {
		t.Fatalf("got %v, want ErrTaskNotFound", err)
	}
}
