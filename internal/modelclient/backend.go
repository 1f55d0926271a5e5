package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agraph/flow/internal/graph"
)

// StaticBackend returns canned responses, keyed by call order, for
// tests that need a deterministic graph.Model without a network call.
// ToolCalls, if set, supplies the tool calls to pair with the reply at
// the same index; a shorter ToolCalls (or a nil entry) yields none.
type StaticBackend struct {
	Replies   []string
	ToolCalls [][]graph.ToolCall
	calls     int
}

// NewStaticBackend creates a StaticBackend that returns replies in
// order, repeating the last one once exhausted.
func NewStaticBackend(replies ...string) *StaticBackend {
	return &StaticBackend{Replies: replies}
}

func (b *StaticBackend) Complete(ctx context.Context, messages []graph.Message, tools []string) (string, []graph.ToolCall, error) {
	if len(b.Replies) == 0 {
		return "", nil, fmt.Errorf("modelclient: static backend has no replies configured")
	}
	i := b.calls
	if i >= len(b.Replies) {
		i = len(b.Replies) - 1
	}
	b.calls++
	var calls []graph.ToolCall
	if i < len(b.ToolCalls) {
		calls = b.ToolCalls[i]
	}
	return b.Replies[i], calls, nil
}

// HTTPBackend calls an OpenAI-compatible chat completions endpoint. Its
// retry policy is intentionally a small bounded loop rather than a
// full backoff strategy -- spec.md §7 leaves remote-call retry policy
// out of the scheduler's core, and this is as far into "policy" as the
// backend itself should go.
type HTTPBackend struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	MaxRetries int
}

// NewHTTPBackend creates an HTTPBackend with its own http.Client (60s
// timeout) and MaxRetries set to 2.
func NewHTTPBackend(baseURL, apiKey, model string) *HTTPBackend {
	return &HTTPBackend{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		MaxRetries: 2,
	}
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

// chatToolCall mirrors the OpenAI-compatible chat-completions tool_calls
// shape; Arguments arrives as a JSON-encoded string, not a nested object.
type chatToolCall struct {
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []string      `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (b *HTTPBackend) Complete(ctx context.Context, messages []graph.Message, tools []string) (string, []graph.ToolCall, error) {
	payload := chatRequest{Model: b.Model, Tools: tools}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("modelclient: marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		reply, calls, err := b.doRequest(ctx, body)
		if err == nil {
			return reply, calls, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", nil, fmt.Errorf("modelclient: http backend: %w", lastErr)
}

func (b *HTTPBackend) doRequest(ctx context.Context, body []byte) (string, []graph.ToolCall, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", nil, fmt.Errorf("response had no choices")
	}

	msg := out.Choices[0].Message
	var calls []graph.ToolCall
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return "", nil, fmt.Errorf("decoding tool call arguments: %w", err)
			}
		}
		calls = append(calls, graph.ToolCall{Name: tc.Function.Name, Args: args})
	}
	return msg.Content, calls, nil
}
