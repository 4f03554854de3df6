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

// Package runtime assembles the ontology, semantic, query, action,
// reflexion, and debug subsystems into one request pipeline: natural
// language in, validated and audited business action out.
package runtime

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/foyer-ai/foyer/internal/log"
	"github.com/foyer-ai/foyer/pkg/action"
	"github.com/foyer-ai/foyer/pkg/config"
	"github.com/foyer-ai/foyer/pkg/debug"
	"github.com/foyer-ai/foyer/pkg/llm"
	"github.com/foyer-ai/foyer/pkg/ontology"
	"github.com/foyer-ai/foyer/pkg/query"
	"github.com/foyer-ai/foyer/pkg/reflexion"
	"github.com/foyer-ai/foyer/pkg/semantic"
)

// Runtime is the assembled execution engine. Construct with New, then
// register domain actions through Actions() before calling Freeze.
type Runtime struct {
	cfg        *config.Config
	onto       *ontology.Registry
	actions    *action.Registry
	dispatcher *action.Dispatcher
	loop       *reflexion.Loop
	executor   *query.Executor
	provider   llm.Provider
	rules      *semantic.RuleApplicator
	store      *debug.Store
	replayer   *debug.Replayer
	retention  *debug.RetentionWorker
	db         *sql.DB
	logger     *zap.SugaredLogger
}

// New wires a runtime over an already-populated (but not yet frozen)
// registry and an open row store.
func New(cfg *config.Config, onto *ontology.Registry, db *sql.DB) (*Runtime, error) {
	store, err := debug.OpenStore(cfg.Debug.Path)
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		cfg:      cfg,
		onto:     onto,
		actions:  action.NewRegistry(onto),
		executor: query.NewExecutor(onto, db),
		provider: newProvider(cfg),
		rules:    semantic.NewRuleApplicator(nil, log.Named("rules")),
		store:    store,
		db:       db,
		logger:   log.Named("runtime").Sugar(),
	}
	r.dispatcher = action.NewDispatcher(r.actions, onto, db)
	r.loop = reflexion.NewLoop(r.dispatcher, onto, r.provider).WithMaxRetries(cfg.Reflexion.MaxRetries)
	r.replayer = debug.NewReplayer(store, r.dispatcher.Dispatch)

	r.retention, err = debug.NewRetentionWorker(store, cfg.Debug.CleanupCron, cfg.Debug.RetentionDays)
	if err != nil {
		store.Close()
		return nil, err
	}
	return r, nil
}

// newProvider builds the configured LLM provider. Unknown or absent
// providers yield a disabled NopProvider; the pipeline degrades to
// rule-based behavior.
func newProvider(cfg *config.Config) llm.Provider {
	switch cfg.LLM.Provider {
	case "anthropic":
		return llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Endpoint:    cfg.LLM.Endpoint,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	case "ollama":
		return llm.NewOllamaClient(llm.OllamaConfig{
			Endpoint:    cfg.LLM.Endpoint,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	default:
		return &llm.NopProvider{}
	}
}

// Actions exposes the action registry for domain registration.
func (r *Runtime) Actions() *action.Registry { return r.actions }

// Ontology exposes the registry.
func (r *Runtime) Ontology() *ontology.Registry { return r.onto }

// Executor exposes the query executor for domain adapters.
func (r *Runtime) Executor() *query.Executor { return r.executor }

// Rules exposes the alias applicator so adapters can seed and watch it.
func (r *Runtime) Rules() *semantic.RuleApplicator { return r.rules }

// DebugStore exposes the session log.
func (r *Runtime) DebugStore() *debug.Store { return r.store }

// Replayer exposes the replay engine.
func (r *Runtime) Replayer() *debug.Replayer { return r.replayer }

// Loop exposes the reflexion loop for direct dispatch-with-retry.
func (r *Runtime) Loop() *reflexion.Loop { return r.loop }

// Freeze fences the registry and starts background workers. Call once after
// all registration is done.
func (r *Runtime) Freeze() error {
	if r.onto.Frozen() {
		return fmt.Errorf("runtime already frozen")
	}
	r.onto.Freeze()
	r.retention.Start()
	r.logger.Infow("runtime frozen",
		"entities", len(r.onto.EntityNames()),
		"actions", len(r.onto.ActionNames()),
		"llm", r.provider.Name(), "llm_enabled", r.provider.IsEnabled())
	return nil
}

// Close stops workers and releases stores.
func (r *Runtime) Close() error {
	r.retention.Stop()
	r.rules.Stop()
	return r.store.Close()
}
