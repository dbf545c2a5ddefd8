// Package modelclient implements the Model Client (C1): a thin HTTP client
// against the local Ollama-compatible chat API. No ecosystem client targets
// this wire protocol, so it talks NDJSON over net/http directly, the way
// _examples/batalabs-muxd/internal/provider/ollama.go does.
package modelclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Message is one chat turn sent to or received from the model.
type Message struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	ToolCalls []ToolCall      `json:"tool_calls,omitempty"`
	ToolName  string          `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-issued function call.
type ToolCall struct {
	ID       string          `json:"id,omitempty"`
	Type     string          `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction holds the name and arguments of a tool call.
type ToolCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSpec describes one tool made available to the model.
type ToolSpec struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Response is the result of a non-streaming Chat call.
type Response struct {
	Message    Message
	StopReason string
	InputTokens  int
	OutputTokens int
}

// StreamingResponse is the result of a ChatStream call, assembled from
// NDJSON chunks as they arrive.
type StreamingResponse = Response

// Client talks to one Ollama-compatible endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client against baseURL (e.g. "http://localhost:11434").
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 0}, // streaming responses have no fixed deadline; use ctx
	}
}

// Chat sends messages to model and returns the complete response.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, tools []ToolSpec) (*Response, error) {
	return c.ChatStream(ctx, model, messages, tools, nil)
}

// ChatStream sends messages to model and streams content tokens to onToken
// as they arrive, still returning the fully assembled response at the end.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, tools []ToolSpec, onToken func(string)) (*Response, error) {
	reqBody := struct {
		Model    string            `json:"model"`
		Messages []Message         `json:"messages"`
		Tools    []ollamaToolDef   `json:"tools,omitempty"`
		Stream   bool              `json:"stream"`
	}{
		Model:    model,
		Messages: messages,
		Tools:    toOllamaTools(tools),
		Stream:   true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &sindri.ModelError{Model: model, Phase: "chat", Cause: fmt.Errorf("%w: %v", sindri.ErrModelUnavailable, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &sindri.ModelError{Model: model, Phase: "chat", Cause: fmt.Errorf("%w: HTTP %d: %s", sindri.ErrModelProtocolError, resp.StatusCode, string(raw))}
	}

	return readNDJSON(resp.Body, model, onToken)
}

type ollamaChunk struct {
	Message *struct {
		Content   string `json:"content"`
		ToolCalls []struct {
			ID       string `json:"id"`
			Function struct {
				Name      string          `json:"name"`
				Arguments json.RawMessage `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func readNDJSON(r io.Reader, model string, onToken func(string)) (*Response, error) {
	var text strings.Builder
	resp := &Response{StopReason: "end_turn"}
	var calls []ToolCall

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk ollamaChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return nil, &sindri.ModelError{Model: model, Phase: "stream", Cause: fmt.Errorf("%w: %v", sindri.ErrModelProtocolError, err)}
		}
		if chunk.Message != nil {
			if chunk.Message.Content != "" {
				text.WriteString(chunk.Message.Content)
				if onToken != nil {
					onToken(chunk.Message.Content)
				}
			}
			for _, tc := range chunk.Message.ToolCalls {
				id := tc.ID
				if id == "" {
					id = fmt.Sprintf("call_%d", len(calls)+1)
				}
				calls = append(calls, ToolCall{
					ID:   id,
					Type: "function",
					Function: ToolCallFunction{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
		}
		if chunk.PromptEvalCount > 0 {
			resp.InputTokens = chunk.PromptEvalCount
		}
		if chunk.EvalCount > 0 {
			resp.OutputTokens = chunk.EvalCount
		}
		if chunk.Done && chunk.DoneReason != "" {
			resp.StopReason = normalizeStop(chunk.DoneReason)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &sindri.ModelError{Model: model, Phase: "stream", Cause: err}
	}

	resp.Message = Message{Role: "assistant", Content: text.String(), ToolCalls: calls}
	if len(calls) > 0 {
		resp.StopReason = "tool_use"
	}
	return resp, nil
}

func normalizeStop(reason string) string {
	switch strings.TrimSpace(strings.ToLower(reason)) {
	case "", "stop":
		return "end_turn"
	default:
		return reason
	}
}

type ollamaToolDef struct {
	Type     string       `json:"type"`
	Function ollamaToolFn `json:"function"`
}

type ollamaToolFn struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

func toOllamaTools(specs []ToolSpec) []ollamaToolDef {
	if len(specs) == 0 {
		return nil
	}
	out := make([]ollamaToolDef, 0, len(specs))
	for _, s := range specs {
		out = append(out, ollamaToolDef{
			Type: "function",
			Function: ollamaToolFn{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Schema,
			},
		})
	}
	return out
}

// pingTimeout bounds the health-check request cmd/sindri's "doctor" command
// issues against the configured Ollama host.
const pingTimeout = 3 * time.Second

// Ping checks that the backend is reachable and responds to /api/tags.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sindri.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d", sindri.ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}
