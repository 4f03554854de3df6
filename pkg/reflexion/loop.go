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

// Package reflexion retries failed action dispatches with progressively
// smarter corrections: deterministic rules first, then state hints, then an
// LLM reflection pass. Terminal errors stop the loop immediately and never
// reach the model.
package reflexion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/foyer-ai/foyer/internal/log"
	"github.com/foyer-ai/foyer/pkg/action"
	"github.com/foyer-ai/foyer/pkg/llm"
	"github.com/foyer-ai/foyer/pkg/ontology"
)

// DefaultMaxRetries bounds correction attempts after the initial dispatch.
const DefaultMaxRetries = 2

// Strategy names recorded on each attempt.
const (
	StrategyInitial     = "initial"
	StrategyAutoCorrect = "auto_correct"
	StrategyStateHint   = "state_hint"
	StrategyLLMReflect  = "llm_reflect"
)

// Attempt records one dispatch try for audit and replay.
type Attempt struct {
	Number     int                    `json:"number"` // 1-based
	Strategy   string                 `json:"strategy"`
	Params     map[string]any         `json:"params"`
	Error      *action.ExecutionError `json:"error,omitempty"`
	DurationMS int64                  `json:"duration_ms"`
	LLMUsed    bool                   `json:"llm_used"`
}

// Outcome is the loop's result on success.
type Outcome struct {
	Result        any       `json:"result"`
	Attempts      []Attempt `json:"attempts"`
	ReflexionUsed bool      `json:"reflexion_used"`
	FinalAttempt  int       `json:"final_attempt"`
}

// LoopError is the loop's result on failure. Err is the last attempt's
// classified error.
type LoopError struct {
	Err              *action.ExecutionError `json:"error"`
	Attempts         []Attempt              `json:"attempts"`
	RetriesExhausted bool                   `json:"retries_exhausted"`
}

func (e *LoopError) Error() string { return e.Err.Error() }
func (e *LoopError) Unwrap() error { return e.Err }

// Dispatcher is the execution surface the loop drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, params map[string]any, user action.User) (any, error)
}

// Loop coordinates dispatch retries.
type Loop struct {
	dispatcher Dispatcher
	meta       *ontology.Registry
	provider   llm.Provider
	maxRetries int
	logger     *zap.SugaredLogger
}

// NewLoop wires a reflexion loop. provider may be a NopProvider; the first
// two strategies work without it.
func NewLoop(dispatcher Dispatcher, meta *ontology.Registry, provider llm.Provider) *Loop {
	return &Loop{
		dispatcher: dispatcher,
		meta:       meta,
		provider:   provider,
		maxRetries: DefaultMaxRetries,
		logger:     log.Named("reflexion").Sugar(),
	}
}

// WithMaxRetries overrides the retry budget. Zero disables retries entirely.
func (l *Loop) WithMaxRetries(n int) *Loop {
	l.maxRetries = n
	return l
}

// Execute dispatches the action, applying correction strategies on failure
// until success, a terminal error, or the retry budget runs out. The returned
// error, when non-nil, is always a *LoopError.
func (l *Loop) Execute(ctx context.Context, name string, params map[string]any, user action.User) (*Outcome, *LoopError) {
	def, _ := l.meta.Action(name)

	var attempts []Attempt
	strategy := StrategyInitial
	current := params
	llmUsed := false

	for attemptNo := 1; attemptNo <= l.maxRetries+1; attemptNo++ {
		if deadline, ok := ctx.Deadline(); ok && time.Now().After(deadline) {
			timeoutErr := action.NewError(action.KindUnknown, "execution deadline exceeded")
			timeoutErr.Code = "TIMEOUT"
			return nil, &LoopError{Err: timeoutErr, Attempts: attempts, RetriesExhausted: true}
		}

		started := time.Now()
		result, err := l.dispatcher.Dispatch(ctx, name, current, user)
		elapsed := time.Since(started).Milliseconds()

		if err == nil {
			attempts = append(attempts, Attempt{
				Number: attemptNo, Strategy: strategy, Params: current,
				DurationMS: elapsed, LLMUsed: llmUsed && strategy == StrategyLLMReflect,
			})
			return &Outcome{
				Result:        result,
				Attempts:      attempts,
				ReflexionUsed: attemptNo > 1,
				FinalAttempt:  attemptNo,
			}, nil
		}

		execErr := action.Classify(err)
		attempts = append(attempts, Attempt{
			Number: attemptNo, Strategy: strategy, Params: current,
			Error: execErr, DurationMS: elapsed,
			LLMUsed: llmUsed && strategy == StrategyLLMReflect,
		})

		if execErr.Terminal() {
			l.logger.Warnw("terminal error, stopping", "action", name, "kind", execErr.Kind)
			return nil, &LoopError{Err: execErr, Attempts: attempts}
		}
		if attemptNo > l.maxRetries {
			return nil, &LoopError{Err: execErr, Attempts: attempts, RetriesExhausted: true}
		}

		next, nextStrategy, usedLLM := l.correct(ctx, def, current, execErr)
		if next == nil {
			return nil, &LoopError{Err: execErr, Attempts: attempts, RetriesExhausted: false}
		}
		l.logger.Infow("retrying with corrected params",
			"action", name, "attempt", attemptNo+1, "strategy", nextStrategy)
		current = next
		strategy = nextStrategy
		llmUsed = llmUsed || usedLLM
	}

	// Unreachable: the budget check above returns first.
	lastErr := attempts[len(attempts)-1].Error
	return nil, &LoopError{Err: lastErr, Attempts: attempts, RetriesExhausted: true}
}

// correct picks the cheapest strategy able to produce a changed parameter
// set. Returns nil when no strategy applies, which ends the loop early.
func (l *Loop) correct(ctx context.Context, def *ontology.ActionDefinition,
	params map[string]any, execErr *action.ExecutionError) (map[string]any, string, bool) {

	var specs []ontology.ParameterSpec
	if def != nil {
		specs = def.Parameters
	}

	switch execErr.Kind {
	case action.KindValueError, action.KindValidationError:
		if fixed, ok := autoCorrect(specs, params, execErr); ok {
			return fixed, StrategyAutoCorrect, false
		}
	case action.KindStateError:
		if enriched, ok := stateHint(params, execErr); ok {
			return enriched, StrategyStateHint, false
		}
	}

	if def == nil {
		return nil, "", false
	}
	corrected, retry, err := llmReflect(ctx, l.provider, def, params, execErr)
	if err != nil || !retry {
		if err != nil && err != llm.ErrDisabled {
			l.logger.Warnw("llm reflection failed", "action", def.Name, "error", err)
		}
		return nil, "", false
	}
	return corrected, StrategyLLMReflect, true
}
