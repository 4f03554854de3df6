// Copyright 2026 Foyer AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package llm defines the narrow LLM capability the runtime consumes and
// raw-HTTP provider implementations. Every consumer must run correctly when
// IsEnabled() is false.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // system, user, assistant, tool
	Content string `json:"content"`
}

// ToolCall is a function invocation emitted by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolDescriptor is a JSON-schema function descriptor shown to the model.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ChatRequest carries per-call knobs; zero values fall back to the
// provider's configured defaults.
type ChatRequest struct {
	Messages    []Message
	Tools       []ToolDescriptor
	Model       string
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the provider-agnostic response shape.
type ChatResponse struct {
	Content     string
	ToolCalls   []ToolCall
	TokensTotal int
	Model       string
}

// Provider is the injected LLM capability.
type Provider interface {
	// IsEnabled reports whether the provider can serve calls.
	IsEnabled() bool

	// Chat sends a conversation and returns the response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider name.
	Name() string

	// Model returns the default model identifier.
	Model() string
}

// CompleteJSON asks the provider for a JSON object and parses it. Returns
// nil (no error) on malformed output so callers can fall back to rule-based
// behavior, matching the capability contract.
func CompleteJSON(ctx context.Context, p Provider, req *ChatRequest) (map[string]any, error) {
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	return ParseJSONObject(resp.Content), nil
}

// ParseJSONObject extracts the first JSON object from text, tolerating
// markdown fences the way models tend to wrap output. Returns nil when no
// object parses.
func ParseJSONObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil
	}
	return out
}
