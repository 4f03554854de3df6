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
package ontology

import "fmt"

// TransitionCondition disambiguates transitions sharing a trigger. It must be
// side-effect free.
type TransitionCondition func(payload map[string]any) bool

// StateTransition is one edge of an entity's state machine.
type StateTransition struct {
	From        string
	To          string
	Trigger     string
	Condition   TransitionCondition
	SideEffects []string
}

// StateMachine declares the legal states and transitions of an entity.
type StateMachine struct {
	Entity       string
	States       []string // ordered
	InitialState string
	Transitions  []StateTransition
}

// Validate enforces the structural invariants: all referenced states exist,
// the initial state exists, and no trigger yields two transitions from the
// same state without a disambiguating condition.
func (m *StateMachine) Validate() error {
	if m.Entity == "" {
		return errInvalid("state machine requires an entity name")
	}
	if len(m.States) == 0 {
		return errInvalid("state machine requires at least one state")
	}

	known := make(map[string]bool, len(m.States))
	for _, s := range m.States {
		if known[s] {
			return errInvalid(fmt.Sprintf("duplicate state %q", s))
		}
		known[s] = true
	}
	if !known[m.InitialState] {
		return errInvalid(fmt.Sprintf("initial state %q is not in the state set", m.InitialState))
	}

	seen := make(map[string]bool) // from+trigger pairs without condition
	for _, t := range m.Transitions {
		if !known[t.From] {
			return errInvalid(fmt.Sprintf("transition references unknown state %q", t.From))
		}
		if !known[t.To] {
			return errInvalid(fmt.Sprintf("transition references unknown state %q", t.To))
		}
		if t.Condition == nil {
			key := t.From + "\x00" + t.Trigger
			if seen[key] {
				return errInvalid(fmt.Sprintf("trigger %q is ambiguous from state %q", t.Trigger, t.From))
			}
			seen[key] = true
		}
	}
	return nil
}

// CanTransition reports whether trigger moves the entity from the given
// state, and returns the target state when it does. The payload feeds
// transition conditions.
func (m *StateMachine) CanTransition(from, trigger string, payload map[string]any) (string, bool) {
	for _, t := range m.Transitions {
		if t.From != from || t.Trigger != trigger {
			continue
		}
		if t.Condition != nil && !t.Condition(payload) {
			continue
		}
		return t.To, true
	}
	return "", false
}

// ValidTargets returns the states reachable from the given state. Used to
// build state-error hints for the reflexion loop.
func (m *StateMachine) ValidTargets(from string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range m.Transitions {
		if t.From == from && !seen[t.To] {
			seen[t.To] = true
			out = append(out, t.To)
		}
	}
	return out
}
