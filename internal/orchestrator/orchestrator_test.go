package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sindri-ai/sindri/internal/agents"
	"github.com/sindri-ai/sindri/internal/events"
	"github.com/sindri-ai/sindri/internal/loop"
	"github.com/sindri-ai/sindri/internal/modelclient"
	"github.com/sindri-ai/sindri/internal/modelmanager"
	"github.com/sindri-ai/sindri/internal/sessions"
	"github.com/sindri-ai/sindri/internal/tasks"
	"github.com/sindri-ai/sindri/internal/toolregistry"
	"github.com/sindri-ai/sindri/pkg/sindri"
)

// scriptedClient replays a queue of responses per model id and records the
// message history it was called with, so tests can assert the parent saw
// the child's resumption turn before its next model call.
type scriptedClient struct {
	mu        sync.Mutex
	byModel   map[string][]*modelclient.Response
	callIndex map[string]int
	seen      map[string][][]modelclient.Message
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{
		byModel:   make(map[string][]*modelclient.Response),
		callIndex: make(map[string]int),
		seen:      make(map[string][][]modelclient.Message),
	}
}

func (s *scriptedClient) script(model string, responses ...*modelclient.Response) {
	s.byModel[model] = responses
}

func (s *scriptedClient) Chat(ctx context.Context, model string, messages []modelclient.Message, tools []modelclient.ToolSpec) (*modelclient.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[model] = append(s.seen[model], messages)
	i := s.callIndex[model]
	queue := s.byModel[model]
	if i >= len(queue) {
		i = len(queue) - 1
	}
	s.callIndex[model] = s.callIndex[model] + 1
	return queue[i], nil
}

func (s *scriptedClient) ChatStream(ctx context.Context, model string, messages []modelclient.Message, tools []modelclient.ToolSpec, onToken func(string)) (*modelclient.Response, error) {
	return s.Chat(ctx, model, messages, tools)
}

func TestOrchestratorDelegatesAndResumesParentWithChildResult(t *testing.T) {
	client := newScriptedClient()
	client.script("model-parent",
		&modelclient.Response{Message: modelclient.Message{
			Content: "delegating to child",
			ToolCalls: []modelclient.ToolCall{
				{Type: "function", Function: modelclient.ToolCallFunction{
					Name:      "delegate",
					Arguments: []byte(`{"agent":"child","task":"do the subtask"}`),
				}},
			},
		}},
		&modelclient.Response{Message: modelclient.Message{Content: "thanks, all good <sindri:complete/>"}},
	)
	client.script("model-child",
		&modelclient.Response{Message: modelclient.Message{Content: "subtask done <sindri:complete/>"}},
	)

	agentRegistry := agents.New()
	agentRegistry.Register(sindri.AgentDefinition{
		Name: "parent", Model: "model-parent", MaxIterations: 5,
		SystemPrompt: "you are the parent", EstimatedVRAMGB: 1,
		Tools: []string{"delegate"}, DelegateTo: []string{"child"},
	})
	agentRegistry.Register(sindri.AgentDefinition{
		Name: "child", Model: "model-child", MaxIterations: 5,
		SystemPrompt: "you are the child", EstimatedVRAMGB: 1,
	})

	reg, err := toolregistry.NewDefaultRegistry(t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	store := sessions.NewMemoryStore()
	scheduler := tasks.New()
	models := modelmanager.New(10, 0, nil)
	bus := events.New()
	l := loop.New(client, reg, store, nil, bus, loop.Config{Streaming: false})

	o := New(scheduler, agentRegistry, models, store, l, bus)

	outcome, err := o.Run(context.Background(), "parent", "ship the feature")
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Result != "thanks, all good <sindri:complete/>" {
		t.Errorf("unexpected final result: %q", outcome.Result)
	}

	calls := client.seen["model-parent"]
	if len(calls) != 2 {
		t.Fatalf("expected parent model to be called twice, got %d", len(calls))
	}
	secondCallMessages := calls[1]
	found := false
	for _, m := range secondCallMessages {
		if strings.Contains(m.Content, "[child child completed: subtask done") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected parent's second model call to see the child's resumption turn, messages: %+v", secondCallMessages)
	}
}

func TestOrchestratorFailsWhenAgentUnknown(t *testing.T) {
	agentRegistry := agents.New()
	scheduler := tasks.New()
	models := modelmanager.New(10, 0, nil)
	store := sessions.NewMemoryStore()
	reg, err := toolregistry.NewDefaultRegistry(t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	l := loop.New(newScriptedClient(), reg, store, nil, nil, loop.Config{})
	o := New(scheduler, agentRegistry, models, store, l, nil)

	if _, err := o.Run(context.Background(), "nonexistent", "task"); err == nil {
		t.Fatal("expected error for unknown entry agent")
	}
}
