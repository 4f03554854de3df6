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
package debug

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foyer-ai/foyer/internal/log"
	"github.com/foyer-ai/foyer/pkg/action"
)

// ReplayOverrides selects which knobs of the original session to replace.
// Nil fields keep the original value.
type ReplayOverrides struct {
	LLMModel     *string                   `json:"llm_model,omitempty"`
	Temperature  *float64                  `json:"temperature,omitempty"`
	MaxTokens    *int                      `json:"max_tokens,omitempty"`
	BaseURL      *string                   `json:"base_url,omitempty"`
	Schema       map[string]any            `json:"schema,omitempty"`
	Tools        []any                     `json:"tools,omitempty"`
	ActionParams map[string]map[string]any `json:"action_params,omitempty"` // action name -> param overrides
}

// ReplayConfig is the fully resolved knob set a replay runs with.
type ReplayConfig struct {
	LLMModel     string                    `json:"llm_model,omitempty"`
	Temperature  float64                   `json:"temperature,omitempty"`
	MaxTokens    int                       `json:"max_tokens,omitempty"`
	BaseURL      string                    `json:"base_url,omitempty"`
	Schema       map[string]any            `json:"schema,omitempty"`
	Tools        []any                     `json:"tools,omitempty"`
	ActionParams map[string]map[string]any `json:"action_params,omitempty"`
}

// AttemptRunner re-executes one recorded attempt. The default runner goes
// straight through the dispatcher; callers wanting retry semantics wrap a
// reflexion loop into a runner.
type AttemptRunner func(ctx context.Context, actionName string, params map[string]any, user action.User) (any, error)

// Replayer re-executes recorded sessions.
type Replayer struct {
	store  *Store
	run    AttemptRunner
	logger *zap.SugaredLogger
}

// NewReplayer wires a replayer over the debug store and an attempt runner.
func NewReplayer(store *Store, run AttemptRunner) *Replayer {
	return &Replayer{store: store, run: run, logger: log.Named("replay").Sugar()}
}

// resolveConfig folds overrides over the original session's recorded knobs.
func resolveConfig(sess *Session, ov *ReplayOverrides) *ReplayConfig {
	cfg := &ReplayConfig{
		LLMModel: sess.LLMModel,
		Schema:   sess.RetrievedSchema,
		Tools:    sess.RetrievedTools,
	}
	if ov == nil {
		return cfg
	}
	if ov.LLMModel != nil {
		cfg.LLMModel = *ov.LLMModel
	}
	if ov.Temperature != nil {
		cfg.Temperature = *ov.Temperature
	}
	if ov.MaxTokens != nil {
		cfg.MaxTokens = *ov.MaxTokens
	}
	if ov.BaseURL != nil {
		cfg.BaseURL = *ov.BaseURL
	}
	if ov.Schema != nil {
		cfg.Schema = ov.Schema
	}
	if ov.Tools != nil {
		cfg.Tools = ov.Tools
	}
	cfg.ActionParams = ov.ActionParams
	return cfg
}

// Replay re-executes the session's attempts under the resolved config.
// dryRun returns a skeleton record without invoking any handler; saveReplay
// persists the record.
func (r *Replayer) Replay(ctx context.Context, sessionID string, overrides *ReplayOverrides,
	dryRun, saveReplay bool) (*ReplayRecord, error) {

	sess, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	attempts, err := r.store.GetAttempts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cfg := resolveConfig(sess, overrides)

	rec := &ReplayRecord{
		ReplayID:          uuid.NewString(),
		OriginalSessionID: sessionID,
		LLMModel:          cfg.LLMModel,
		Timestamp:         time.Now().UTC(),
		DryRun:            dryRun,
	}

	if dryRun {
		rec.Success = true
		for _, a := range attempts {
			rec.Attempts = append(rec.Attempts, ReplayAttempt{
				AttemptNumber: a.AttemptNumber,
				ActionName:    a.ActionName,
				Params:        mergeParams(a.Params, cfg.ActionParams[a.ActionName]),
			})
		}
	} else {
		if r.run == nil {
			return nil, fmt.Errorf("replayer has no attempt runner")
		}
		user := action.User{ID: fmt.Sprintf("%d", sess.UserID), Role: sess.UserRole}
		started := time.Now()
		rec.Success = true

		for _, a := range attempts {
			params := mergeParams(a.Params, cfg.ActionParams[a.ActionName])
			attemptStart := time.Now()
			result, err := r.run(ctx, a.ActionName, params, user)
			replayed := ReplayAttempt{
				AttemptNumber: a.AttemptNumber,
				ActionName:    a.ActionName,
				Params:        params,
				DurationMS:    time.Since(attemptStart).Milliseconds(),
			}
			if err != nil {
				replayed.Error = err.Error()
				rec.Success = false
				rec.Error = err.Error()
			} else {
				replayed.Success = true
				replayed.Result = result
				rec.Result = result
			}
			rec.Attempts = append(rec.Attempts, replayed)
		}
		rec.ExecutionTimeMS = time.Since(started).Milliseconds()
	}

	if saveReplay {
		if err := r.store.SaveReplay(ctx, rec); err != nil {
			return nil, err
		}
	}
	r.logger.Infow("replay finished", "session", sessionID, "replay", rec.ReplayID,
		"success", rec.Success, "dry_run", dryRun)
	return rec, nil
}

// mergeParams deep-merges overrides over base. Nested maps merge key by key;
// everything else is replaced.
func mergeParams(base, overrides map[string]any) map[string]any {
	if base == nil && overrides == nil {
		return nil
	}
	merged := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		if ov, ok := v.(map[string]any); ok {
			if bv, ok := merged[k].(map[string]any); ok {
				merged[k] = mergeParams(bv, ov)
				continue
			}
		}
		merged[k] = v
	}
	return merged
}
