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
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultOllamaEndpoint is the default local Ollama endpoint.
	DefaultOllamaEndpoint = "http://localhost:11434"
	// DefaultOllamaTimeout allows for slow local generation.
	DefaultOllamaTimeout = 120 * time.Second
)

// OllamaClient implements Provider against a local Ollama server.
type OllamaClient struct {
	endpoint    string
	model       string
	httpClient  *http.Client
	temperature float64
	maxTokens   int
}

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	Endpoint    string // Default: http://localhost:11434
	Model       string // Required: e.g. llama3.1, qwen2.5
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.Endpoint == "" {
		config.Endpoint = DefaultOllamaEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultOllamaTimeout
	}
	return &OllamaClient{
		endpoint:    config.Endpoint,
		model:       config.Model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		httpClient:  &http.Client{Timeout: config.Timeout},
	}
}

// IsEnabled reports whether a model is configured.
func (c *OllamaClient) IsEnabled() bool { return c.model != "" }

// Name returns the provider name.
func (c *OllamaClient) Name() string { return "ollama" }

// Model returns the default model identifier.
func (c *OllamaClient) Model() string { return c.model }

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []Message           `json:"messages"`
	Tools    []ollamaTool        `json:"tools,omitempty"`
	Stream   bool                `json:"stream"`
	Options  *ollamaChatOptions  `json:"options,omitempty"`
}

type ollamaChatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		ToolCalls []struct {
			Function struct {
				Name      string         `json:"name"`
				Arguments map[string]any `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Chat sends a conversation to Ollama's /api/chat endpoint.
func (c *OllamaClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if !c.IsEnabled() {
		return nil, ErrDisabled
	}

	apiReq := &ollamaChatRequest{
		Model:    c.model,
		Messages: req.Messages,
		Stream:   false,
	}
	if req.Model != "" {
		apiReq.Model = req.Model
	}
	if c.temperature > 0 || c.maxTokens > 0 || req.Temperature > 0 || req.MaxTokens > 0 {
		opts := &ollamaChatOptions{Temperature: c.temperature, NumPredict: c.maxTokens}
		if req.Temperature > 0 {
			opts.Temperature = req.Temperature
		}
		if req.MaxTokens > 0 {
			opts.NumPredict = req.MaxTokens
		}
		apiReq.Options = opts
	}
	for _, t := range req.Tools {
		var ot ollamaTool
		ot.Type = "function"
		ot.Function.Name = t.Name
		ot.Function.Description = t.Description
		ot.Function.Parameters = t.InputSchema
		apiReq.Tools = append(apiReq.Tools, ot)
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var apiResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	resp := &ChatResponse{
		Content:     apiResp.Message.Content,
		Model:       apiResp.Model,
		TokensTotal: apiResp.PromptEvalCount + apiResp.EvalCount,
	}
	for i, tc := range apiResp.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:    fmt.Sprintf("call_%d", i),
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		})
	}
	return resp, nil
}
