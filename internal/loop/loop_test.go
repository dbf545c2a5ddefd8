package loop

import (
	"context"
	"testing"
	"time"

	"github.com/sindri-ai/sindri/internal/modelclient"
	"github.com/sindri-ai/sindri/internal/sessions"
	"github.com/sindri-ai/sindri/internal/toolregistry"
	"github.com/sindri-ai/sindri/pkg/sindri"
)

// fakeClient replays a scripted sequence of responses, one per call to
// Chat/ChatStream, so tests can drive the loop deterministically without a
// live Ollama backend.
type fakeClient struct {
	responses []*modelclient.Response
	calls     int
}

func (f *fakeClient) next() *modelclient.Response {
	if f.calls >= len(f.responses) {
		return f.responses[len(f.responses)-1]
	}
	r := f.responses[f.calls]
	f.calls++
	return r
}

func (f *fakeClient) Chat(ctx context.Context, model string, messages []modelclient.Message, tools []modelclient.ToolSpec) (*modelclient.Response, error) {
	return f.next(), nil
}

func (f *fakeClient) ChatStream(ctx context.Context, model string, messages []modelclient.Message, tools []modelclient.ToolSpec, onToken func(string)) (*modelclient.Response, error) {
	return f.next(), nil
}

func testAgent() sindri.AgentDefinition {
	return sindri.AgentDefinition{
		Name:          "huginn",
		Description:   "fix the bug",
		Model:         "qwen2.5-coder:7b",
		MaxIterations: 10,
		SystemPrompt:  "You are a helpful coding agent.",
		Tools:         []string{"read_file"},
	}
}

func TestRunReturnsCompletionMarkerWhenNoToolsRan(t *testing.T) {
	client := &fakeClient{responses: []*modelclient.Response{
		{Message: modelclient.Message{Content: "all done <sindri:complete/>"}},
	}}
	reg, err := toolregistry.NewDefaultRegistry(t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	store := sessions.NewMemoryStore()
	l := New(client, reg, store, nil, nil, Config{Streaming: false})

	task := &sindri.Task{ID: "t1", Description: "fix the bug"}
	result := l.Run(context.Background(), task, testAgent())

	if !result.Success || result.Reason != ReasonCompletionMarker {
		t.Fatalf("got %+v", result)
	}
}

func TestCompletionMarkerIgnoredWhenToolsExecutedSameIteration(t *testing.T) {
	client := &fakeClient{responses: []*modelclient.Response{
		{Message: modelclient.Message{
			Content: "running a tool <sindri:complete/>",
			ToolCalls: []modelclient.ToolCall{
				{Type: "function", Function: modelclient.ToolCallFunction{Name: "read_file", Arguments: []byte(`{"path":"x.txt"}`)}},
			},
		}},
		{Message: modelclient.Message{Content: "now actually done <sindri:complete/>"}},
	}}
	reg, err := toolregistry.NewDefaultRegistry(t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	store := sessions.NewMemoryStore()
	l := New(client, reg, store, nil, nil, Config{Streaming: false})

	task := &sindri.Task{ID: "t2", Description: "read a file"}
	result := l.Run(context.Background(), task, testAgent())

	if !result.Success || result.Reason != ReasonCompletionMarker {
		t.Fatalf("expected eventual completion after tool turn, got %+v", result)
	}
	if result.Iterations != 2 {
		t.Errorf("expected completion on the second iteration, got %d", result.Iterations)
	}
}

func TestRunSuspendsOnDelegateCall(t *testing.T) {
	client := &fakeClient{responses: []*modelclient.Response{
		{Message: modelclient.Message{
			Content: "delegating",
			ToolCalls: []modelclient.ToolCall{
				{Type: "function", Function: modelclient.ToolCallFunction{
					Name:      "delegate",
					Arguments: []byte(`{"agent":"skald","task":"write tests"}`),
				}},
			},
		}},
	}}
	reg, err := toolregistry.NewDefaultRegistry(t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	store := sessions.NewMemoryStore()
	l := New(client, reg, store, nil, nil, Config{Streaming: false})

	task := &sindri.Task{ID: "t3", Description: "ship the feature"}
	result := l.Run(context.Background(), task, testAgent())

	if result.Reason != ReasonDelegated {
		t.Fatalf("expected delegated, got %+v", result)
	}
	if result.DelegateCall == nil || result.DelegateCall.Agent != "skald" {
		t.Fatalf("expected delegate request for skald, got %+v", result.DelegateCall)
	}
}

func TestRunDetectsStuckAfterMaxNudges(t *testing.T) {
	same := &modelclient.Response{Message: modelclient.Message{Content: "I am thinking about it"}}
	var responses []*modelclient.Response
	for i := 0; i < 20; i++ {
		responses = append(responses, same)
	}
	client := &fakeClient{responses: responses}
	reg, err := toolregistry.NewDefaultRegistry(t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	store := sessions.NewMemoryStore()
	l := New(client, reg, store, nil, nil, Config{Streaming: false, StuckThreshold: 3, MaxNudges: 2, MaxIterations: 20})

	task := &sindri.Task{ID: "t4", Description: "stuck task"}
	result := l.Run(context.Background(), task, testAgent())

	if result.Reason != ReasonStuck {
		t.Fatalf("expected stuck, got %+v", result)
	}
}

func TestRunReachesMaxIterations(t *testing.T) {
	var responses []*modelclient.Response
	for i := 0; i < 5; i++ {
		responses = append(responses, &modelclient.Response{Message: modelclient.Message{Content: "still working, attempt " + string(rune('a'+i))}})
	}
	client := &fakeClient{responses: responses}
	reg, err := toolregistry.NewDefaultRegistry(t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	store := sessions.NewMemoryStore()
	l := New(client, reg, store, nil, nil, Config{Streaming: false, MaxIterations: 3, StuckThreshold: 10})

	task := &sindri.Task{ID: "t5", Description: "never finishes"}
	agent := testAgent()
	agent.MaxIterations = 0
	result := l.Run(context.Background(), task, agent)

	if result.Reason != ReasonMaxIterations {
		t.Fatalf("expected max_iterations_reached, got %+v", result)
	}
	if result.Iterations != 3 {
		t.Errorf("expected 3 iterations, got %d", result.Iterations)
	}
}

func TestRunResumesExistingSession(t *testing.T) {
	store := sessions.NewMemoryStore()
	session := &sindri.Session{ID: "sess_existing", TaskID: "t6", Status: sindri.SessionActive}
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatal(err)
	}
	store.AppendTurn(context.Background(), session.ID, &sindri.Turn{Role: sindri.RoleUser, Content: "[child skald completed: wrote tests]"})

	client := &fakeClient{responses: []*modelclient.Response{
		{Message: modelclient.Message{Content: "great, all done <sindri:complete/>"}},
	}}
	reg, err := toolregistry.NewDefaultRegistry(t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	l := New(client, reg, store, nil, nil, Config{Streaming: false})

	task := &sindri.Task{ID: "t6", SessionID: session.ID, Description: "ship the feature"}
	result := l.Run(context.Background(), task, testAgent())

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	history, _ := store.GetHistory(context.Background(), session.ID, 0)
	if len(history) < 2 {
		t.Fatalf("expected the resumed session to retain prior history, got %d turns", len(history))
	}
	if history[0].Content != "[child skald completed: wrote tests]" {
		t.Errorf("expected prior child-result turn preserved, got %q", history[0].Content)
	}
}
