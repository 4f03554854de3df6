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

import "github.com/foyer-ai/foyer/pkg/action"

// Hint keys injected into retry parameters for STATE_ERROR failures.
// Handlers and the LLM reflection prompt both read them; the dispatcher's
// validator passes unknown keys through untouched.
const (
	HintCurrentState      = "_entity_current_state"
	HintValidAlternatives = "_valid_state_alternatives"
)

// stateHint enriches the parameters with the entity's current state and the
// transitions valid from it, taken from the error context. Returns false when
// the error carries no state information.
func stateHint(params map[string]any, execErr *action.ExecutionError) (map[string]any, bool) {
	if execErr.Kind != action.KindStateError || execErr.Context == nil {
		return params, false
	}
	current, okCurrent := execErr.Context["current_state"]
	alternatives, okAlt := execErr.Context["valid_alternatives"]
	if !okCurrent && !okAlt {
		return params, false
	}

	enriched := make(map[string]any, len(params)+2)
	for k, v := range params {
		enriched[k] = v
	}
	if okCurrent {
		enriched[HintCurrentState] = current
	}
	if okAlt {
		enriched[HintValidAlternatives] = alternatives
	}
	return enriched, true
}
