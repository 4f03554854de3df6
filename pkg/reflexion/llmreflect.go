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
package reflexion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foyer-ai/foyer/pkg/action"
	"github.com/foyer-ai/foyer/pkg/llm"
	"github.com/foyer-ai/foyer/pkg/ontology"
)

// minReflectionConfidence gates LLM-proposed corrections. Below this the
// proposal is discarded and the loop stops retrying.
const minReflectionConfidence = 0.5

// reflectionProposal is the JSON object the reflection prompt asks for.
type reflectionProposal struct {
	CorrectedParams map[string]any `json:"corrected_params"`
	ShouldRetry     bool           `json:"should_retry"`
	Confidence      float64        `json:"confidence"`
	Reasoning       string         `json:"reasoning"`
}

// llmReflect asks the provider to analyze the failure and propose corrected
// parameters. Returns the corrected map and true only when the model wants a
// retry with sufficient confidence.
func llmReflect(ctx context.Context, provider llm.Provider, def *ontology.ActionDefinition,
	params map[string]any, execErr *action.ExecutionError) (map[string]any, bool, error) {

	if provider == nil || !provider.IsEnabled() {
		return nil, false, llm.ErrDisabled
	}

	prompt, err := buildReflectionPrompt(def, params, execErr)
	if err != nil {
		return nil, false, err
	}

	result, err := llm.CompleteJSON(ctx, provider, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: reflectionSystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, false, err
	}
	if result == nil {
		return nil, false, nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, false, err
	}
	var proposal reflectionProposal
	if err := json.Unmarshal(raw, &proposal); err != nil {
		return nil, false, nil
	}
	if !proposal.ShouldRetry || proposal.Confidence < minReflectionConfidence || proposal.CorrectedParams == nil {
		return nil, false, nil
	}
	return proposal.CorrectedParams, true, nil
}

const reflectionSystemPrompt = `You are a parameter-repair assistant inside a hotel operations runtime.
An action failed; you will see its definition, the parameters used, and the structured error.
Respond with a single JSON object:
{"corrected_params": {...}, "should_retry": true|false, "confidence": 0.0-1.0, "reasoning": "..."}
Only propose corrections you are confident about. If the failure cannot be fixed by
changing parameters, set should_retry to false.`

func buildReflectionPrompt(def *ontology.ActionDefinition, params map[string]any, execErr *action.ExecutionError) (string, error) {
	paramsJSON, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return "", err
	}
	errJSON, err := json.MarshalIndent(execErr, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Action: %s\nDescription: %s\n\nParameter schema:\n", def.Name, def.Description)
	for _, p := range def.Parameters {
		fmt.Fprintf(&b, "- %s (%s", p.Name, p.Kind)
		if p.Required {
			b.WriteString(", required")
		}
		if len(p.EnumValues) > 0 {
			fmt.Fprintf(&b, ", one of: %s", strings.Join(p.EnumValues, ", "))
		}
		b.WriteString(")")
		if p.Description != "" {
			b.WriteString(": " + p.Description)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nParameters used:\n%s\n\nError:\n%s\n", paramsJSON, errJSON)
	return b.String(), nil
}
