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

// Package action registers executable business actions and dispatches them
// through a uniform validate, authorize, execute pipeline. Every failure is
// classified into a closed error taxonomy so the reflexion loop can decide
// how to recover.
package action

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/foyer-ai/foyer/pkg/llm"
	"github.com/foyer-ai/foyer/pkg/ontology"
)

// exportFuzzyThreshold is the catalogue size above which ExportTools starts
// filtering by relevance instead of returning everything.
const exportFuzzyThreshold = 20

// Env carries the execution environment a handler runs in. Tx is non-nil for
// mutation and workflow actions; query actions read through DB directly.
type Env struct {
	DB     *sql.DB
	Tx     *sql.Tx
	User   User
	Meta   *ontology.Registry
	Logger Logger
}

// Logger is the minimal structured-logging surface handlers see.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

// User identifies the caller for permission checks and audit records.
type User struct {
	ID   string
	Name string
	Role string
}

// Handler executes one action. Params arrive coerced and validated; the
// returned value is the action result payload.
type Handler func(ctx context.Context, params map[string]any, env *Env) (any, error)

// Registration pairs an ontology action definition with its handler.
type Registration struct {
	Definition *ontology.ActionDefinition
	Handler    Handler
}

// Registry holds the executable side of the action catalogue. Definitions
// are mirrored into the ontology registry so schema export and the semantic
// layer see them.
type Registry struct {
	mu    sync.RWMutex
	meta  *ontology.Registry
	items map[string]*Registration
	order []string
}

// NewRegistry creates an action registry backed by the given ontology.
func NewRegistry(meta *ontology.Registry) *Registry {
	return &Registry{
		meta:  meta,
		items: make(map[string]*Registration),
	}
}

// Register adds an action with its handler. The definition is also recorded
// in the ontology registry; duplicate names fail there.
func (r *Registry) Register(entity string, def *ontology.ActionDefinition, handler Handler) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("action registration requires a name")
	}
	if handler == nil {
		return fmt.Errorf("action %q registered without a handler", def.Name)
	}
	if err := r.meta.RegisterAction(entity, def); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[strings.ToLower(def.Name)] = &Registration{Definition: def, Handler: handler}
	r.order = append(r.order, def.Name)
	return nil
}

// Lookup finds a registration case-insensitively.
func (r *Registry) Lookup(name string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.items[strings.ToLower(name)]
	return reg, ok
}

// Names returns action names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ExportAllTools renders every registered action as an LLM tool descriptor,
// in registration order.
func (r *Registry) ExportAllTools() []llm.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		reg := r.items[strings.ToLower(name)]
		out = append(out, toolDescriptor(reg.Definition))
	}
	return out
}

// ExportTools returns at most limit tool descriptors relevant to the query.
// Small catalogues are returned whole; above the threshold the catalogue is
// fuzzy-ranked against name, description, and search keywords.
func (r *Registry) ExportTools(query string, limit int) []llm.ToolDescriptor {
	all := r.ExportAllTools()
	if len(all) <= exportFuzzyThreshold || strings.TrimSpace(query) == "" {
		if limit > 0 && len(all) > limit {
			return all[:limit]
		}
		return all
	}

	r.mu.RLock()
	haystack := make([]string, len(r.order))
	for i, name := range r.order {
		def := r.items[strings.ToLower(name)].Definition
		haystack[i] = name + " " + def.Description + " " + strings.Join(def.SearchKeywords, " ")
	}
	r.mu.RUnlock()

	matches := fuzzy.Find(query, haystack)
	out := make([]llm.ToolDescriptor, 0, limit)
	for _, m := range matches {
		out = append(out, all[m.Index])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func toolDescriptor(def *ontology.ActionDefinition) llm.ToolDescriptor {
	return llm.ToolDescriptor{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: BuildJSONSchema(def.Parameters, ""),
	}
}

// SuggestNames returns up to max action names close to the misspelled input.
func (r *Registry) SuggestNames(input string, max int) []string {
	names := r.Names()
	matches := fuzzy.Find(input, names)
	var out []string
	for _, m := range matches {
		out = append(out, names[m.Index])
		if len(out) >= max {
			break
		}
	}
	return out
}
