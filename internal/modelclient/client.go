// Package modelclient talks to a remote model on behalf of graph.LLMNode
// bodies, through a pluggable Backend, with an optional local
// content-addressed response cache. Grounded on the teacher's
// internal/audit.PDRWriter (SHA-256 input hashing for reproducible
// records), generalized from "hash an action's inputs for an audit
// trail" to "hash a request to key its cached response."
package modelclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agraph/flow/internal/graph"
)

// Backend is the narrow collaborator a Client dispatches requests to.
// StaticBackend (tests) and HTTPBackend (a real OpenAI-compatible chat
// endpoint) both implement it.
type Backend interface {
	Complete(ctx context.Context, messages []graph.Message, tools []string) (reply string, calls []graph.ToolCall, err error)
}

// Client implements graph.Model against a Backend, transparently
// caching responses on disk when constructed with a non-nil Cache.
type Client struct {
	backend Backend
	cache   *Cache // nil disables caching
}

// New creates a Client. cache may be nil to disable caching.
func New(backend Backend, cache *Cache) *Client {
	return &Client{backend: backend, cache: cache}
}

// cachedResponse is the JSON shape stored in Cache, which only knows
// how to round-trip a single string value: wrapping reply and calls
// together lets the cache stay string-keyed/string-valued while still
// carrying a model's tool calls through a cache hit.
type cachedResponse struct {
	Reply string           `json:"reply"`
	Calls []graph.ToolCall `json:"calls,omitempty"`
}

// SendData implements graph.Model.
func (c *Client) SendData(ctx context.Context, messages []graph.Message, tools []string) (string, []graph.ToolCall, error) {
	if c.cache == nil {
		return c.backend.Complete(ctx, messages, tools)
	}

	key, err := requestKey(messages, tools)
	if err != nil {
		return "", nil, fmt.Errorf("modelclient: hashing request: %w", err)
	}

	if val, ok, err := c.cache.Get(key); err != nil {
		return "", nil, err
	} else if ok {
		var cached cachedResponse
		if err := json.Unmarshal([]byte(val), &cached); err != nil {
			return "", nil, fmt.Errorf("modelclient: decoding cached response: %w", err)
		}
		return cached.Reply, cached.Calls, nil
	}

	reply, calls, err := c.backend.Complete(ctx, messages, tools)
	if err != nil {
		return "", nil, err
	}
	encoded, err := json.Marshal(cachedResponse{Reply: reply, Calls: calls})
	if err != nil {
		return "", nil, fmt.Errorf("modelclient: encoding response for cache: %w", err)
	}
	if err := c.cache.Put(key, string(encoded)); err != nil {
		return "", nil, fmt.Errorf("modelclient: caching response: %w", err)
	}
	return reply, calls, nil
}
