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
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/foyer-ai/foyer/pkg/action"
	"github.com/foyer-ai/foyer/pkg/debug"
	"github.com/foyer-ai/foyer/pkg/llm"
	"github.com/foyer-ai/foyer/pkg/reflexion"
)

// maxToolsPerSession caps the tool descriptors handed to the model.
const maxToolsPerSession = 20

// SessionResult is what HandleMessage returns to the caller.
type SessionResult struct {
	SessionID       string              `json:"session_id"`
	Status          debug.SessionStatus `json:"status"`
	Result          any                 `json:"result,omitempty"`
	Attempts        []reflexion.Attempt `json:"attempts,omitempty"`
	ActionsExecuted []string            `json:"actions_executed,omitempty"`
	Errors          []string            `json:"errors,omitempty"`
	ExecutionTimeMS int64               `json:"execution_time_ms"`
}

// HandleMessage runs the full pipeline for one operator request: retrieve
// schema and tools, extract the intended action (LLM when enabled, keyword
// fallback otherwise), dispatch with reflexion, and log everything to the
// debug store. Debug-store write failures are logged but never fail the
// request.
func (r *Runtime) HandleMessage(ctx context.Context, input string, user action.User) (*SessionResult, error) {
	started := time.Now()

	userID, _ := strconv.Atoi(user.ID)
	sessionID, err := r.store.CreateSession(ctx, input, userID, user.Role)
	if err != nil {
		return nil, err
	}
	out := &SessionResult{SessionID: sessionID, Status: debug.StatusPending}

	schemaExport := r.onto.ExportSchema()
	tools := r.actions.ExportTools(input, maxToolsPerSession)
	r.logStoreErr(r.store.UpdateSessionRetrieval(ctx, sessionID, toMap(schemaExport), toAnySlice(tools)))

	actionName, params, err := r.extract(ctx, sessionID, input, schemaExport, tools)
	if err != nil {
		out.Errors = append(out.Errors, err.Error())
		r.finish(ctx, sessionID, out, started)
		return out, nil
	}

	outcome, loopErr := r.loop.Execute(ctx, actionName, params, user)

	var attempts []reflexion.Attempt
	if outcome != nil {
		attempts = outcome.Attempts
	} else {
		attempts = loopErr.Attempts
	}
	for _, a := range attempts {
		errText := ""
		if a.Error != nil {
			errText = a.Error.Error()
		}
		var attemptResult any
		if outcome != nil && a.Number == outcome.FinalAttempt {
			attemptResult = outcome.Result
		}
		_, logErr := r.store.LogAttempt(ctx, sessionID, actionName, a.Params,
			a.Error == nil, attemptResult, errText, a.Number-1)
		r.logStoreErr(logErr)
	}
	out.Attempts = attempts

	if loopErr != nil {
		out.Errors = append(out.Errors, loopErr.Error())
		r.finish(ctx, sessionID, out, started)
		return out, nil
	}

	out.Result = outcome.Result
	out.ActionsExecuted = []string{actionName}
	r.finish(ctx, sessionID, out, started)
	return out, nil
}

// finalStatus maps a finished session onto the status vocabulary: success
// when nothing failed, partial when some actions landed before a failure,
// error otherwise.
func finalStatus(actionsExecuted, errs []string) debug.SessionStatus {
	switch {
	case len(errs) == 0:
		return debug.StatusSuccess
	case len(actionsExecuted) > 0:
		return debug.StatusPartial
	default:
		return debug.StatusError
	}
}

// extract determines which action to run. With an enabled provider the
// model picks a tool; otherwise a keyword match over entity names produces
// a semantic_query.
func (r *Runtime) extract(ctx context.Context, sessionID, input string,
	schemaExport any, tools []llm.ToolDescriptor) (string, map[string]any, error) {

	if !r.provider.IsEnabled() {
		return r.keywordFallback(input)
	}

	schemaJSON, _ := json.Marshal(schemaExport)
	prompt := fmt.Sprintf(
		"Domain schema:\n%s\n\nOperator request:\n%s\n\nPick the single best tool and call it.",
		schemaJSON, input)
	req := &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Tools: tools,
	}

	callStart := time.Now()
	resp, err := r.provider.Chat(ctx, req)
	callEnd := time.Now()

	if err != nil {
		r.logger.Warnw("extraction call failed, using keyword fallback", "error", err)
		return r.keywordFallback(input)
	}

	tokens := resp.TokensTotal
	if tokens == 0 {
		tc := llm.GetTokenCounter()
		tokens = tc.EstimateMessagesTokens(req.Messages) + tc.CountTokens(resp.Content)
	}
	r.logStoreErr(r.store.UpdateSessionLLM(ctx, sessionID, prompt, resp.Content, tokens, resp.Model))
	r.logStoreErr(r.store.LogLLMInteraction(ctx, &debug.LLMInteraction{
		SessionID: sessionID, Seq: 0, Phase: "extraction", CallType: "chat",
		StartedAt: callStart, EndedAt: callEnd,
		LatencyMS: callEnd.Sub(callStart).Milliseconds(),
		Model:     resp.Model, Tokens: tokens,
	}))

	if len(resp.ToolCalls) > 0 {
		call := resp.ToolCalls[0]
		return call.Name, call.Input, nil
	}
	// Some models answer with a JSON object instead of a tool call.
	if obj := llm.ParseJSONObject(resp.Content); obj != nil {
		if name, ok := obj["action"].(string); ok {
			p, _ := obj["params"].(map[string]any)
			return name, p, nil
		}
	}
	return r.keywordFallback(input)
}

const extractionSystemPrompt = `You are the intent extractor of a hotel front-desk runtime.
Given the domain schema and an operator request, call exactly one of the provided tools
with fully-populated parameters. Dates are YYYY-MM-DD. If the request is a lookup,
use the semantic_query tool.`

// keywordFallback maps the input to a semantic_query over the first entity
// whose name or display name appears in the text.
func (r *Runtime) keywordFallback(input string) (string, map[string]any, error) {
	lower := strings.ToLower(input)
	for _, name := range r.onto.EntityNames() {
		e, _ := r.onto.Entity(name)
		if strings.Contains(lower, strings.ToLower(e.Name)) ||
			(e.DisplayName != "" && strings.Contains(input, e.DisplayName)) {
			return "semantic_query", map[string]any{"root_object": e.Name}, nil
		}
	}
	return "", nil, fmt.Errorf("could not determine intent from %q", input)
}

func (r *Runtime) finish(ctx context.Context, sessionID string, out *SessionResult, started time.Time) {
	out.Status = finalStatus(out.ActionsExecuted, out.Errors)
	out.ExecutionTimeMS = time.Since(started).Milliseconds()
	r.logStoreErr(r.store.CompleteSession(ctx, sessionID, out.Result, out.Status,
		out.ExecutionTimeMS, out.ActionsExecuted, out.Errors))
}

func (r *Runtime) logStoreErr(err error) {
	if err != nil {
		r.logger.Warnw("debug store write failed", "error", err)
	}
}

// toMap converts a struct to its JSON map form for debug-store storage.
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func toAnySlice(tools []llm.ToolDescriptor) []any {
	out := make([]any, len(tools))
	for i, t := range tools {
		out[i] = t
	}
	return out
}
