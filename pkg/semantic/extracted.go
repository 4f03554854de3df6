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
package semantic

import (
	"strings"

	"github.com/foyer-ai/foyer/pkg/ontology"
)

// ExtractedQuery is the loose, LLM-shaped form of a query: hints instead of
// canonical names. The QueryCompiler grounds it against the registry.
type ExtractedQuery struct {
	TargetEntityHint string      `json:"target_entity"`
	TargetFieldsHint []string    `json:"target_fields,omitempty"`
	Conditions       []Condition `json:"conditions,omitempty"`
	TimeContext      string      `json:"time_context,omitempty"`
	Limit            int         `json:"limit,omitempty"`
}

// Condition is one loose filter in an ExtractedQuery.
type Condition struct {
	FieldHint string         `json:"field"`
	Operator  FilterOperator `json:"operator,omitempty"` // defaults to eq
	Value     any            `json:"value"`
}

// Confidence levels reported by CompileExtracted.
const (
	ConfidenceFull    = 0.9 // entity and every field/condition resolved
	ConfidencePartial = 0.7 // entity resolved, some fields unresolved
	ConfidenceEntity  = 0.5 // entity resolved, no fields resolved
	ConfidenceNone    = 0.0 // entity not found; caller must fall back
)

// QueryCompiler grounds ExtractedQuery hints against the ontology. An
// optional RuleApplicator canonicalizes condition values.
type QueryCompiler struct {
	reg   *ontology.Registry
	rules *RuleApplicator
}

// NewQueryCompiler creates a query compiler. rules may be nil.
func NewQueryCompiler(reg *ontology.Registry, rules *RuleApplicator) *QueryCompiler {
	return &QueryCompiler{reg: reg, rules: rules}
}

// CompileExtracted resolves entity and field hints into a SemanticQuery plus
// a confidence score. A zero confidence means the entity hint matched
// nothing and the caller must fall back (LLM clarification or error).
func (qc *QueryCompiler) CompileExtracted(eq *ExtractedQuery) (*SemanticQuery, float64) {
	entity := qc.resolveEntity(eq.TargetEntityHint)
	if entity == nil {
		return nil, ConfidenceNone
	}

	resolvedFields := 0
	var fields []string
	for _, hint := range eq.TargetFieldsHint {
		if prop := qc.resolveProperty(entity, hint); prop != "" {
			fields = append(fields, prop)
			resolvedFields++
		}
	}

	var filters []SemanticFilter
	resolvedConds := 0
	for _, cond := range eq.Conditions {
		prop := qc.resolveProperty(entity, cond.FieldHint)
		if prop == "" {
			continue
		}
		resolvedConds++
		op := cond.Operator
		if op == "" {
			op = OpEq
		}
		value := cond.Value
		if qc.rules != nil {
			value = qc.rules.ApplyValue(value)
		}
		filters = append(filters, SemanticFilter{Path: prop, Operator: op, Value: value})
	}

	q := &SemanticQuery{
		Root:    entity.Name,
		Fields:  fields,
		Filters: filters,
		Limit:   eq.Limit,
	}

	total := len(eq.TargetFieldsHint) + len(eq.Conditions)
	resolved := resolvedFields + resolvedConds
	switch {
	case total == 0, resolved == total:
		if total == 0 {
			return q, ConfidenceEntity
		}
		return q, ConfidenceFull
	case resolved > 0:
		return q, ConfidencePartial
	default:
		return q, ConfidenceEntity
	}
}

// resolveEntity matches a hint against entity name, display name, and
// description, case-insensitively.
func (qc *QueryCompiler) resolveEntity(hint string) *ontology.EntityMetadata {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil
	}
	if e, ok := qc.reg.Entity(hint); ok {
		return e
	}
	lower := strings.ToLower(hint)
	for _, name := range qc.reg.EntityNames() {
		e, _ := qc.reg.Entity(name)
		if strings.EqualFold(e.DisplayName, hint) {
			return e
		}
		if e.Description != "" && strings.Contains(strings.ToLower(e.Description), lower) {
			return e
		}
	}
	return nil
}

// resolveProperty matches a hint against property name and display name.
// Returns the canonical property name, or "" when nothing matches.
func (qc *QueryCompiler) resolveProperty(e *ontology.EntityMetadata, hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}
	if qc.rules != nil {
		hint = qc.rules.Apply(hint)
	}
	for _, name := range e.PropertyOrder {
		p := e.Properties[name]
		if strings.EqualFold(p.Name, hint) || strings.EqualFold(p.DisplayName, hint) {
			return p.Name
		}
	}
	// Dotted hints pass through untouched; the semantic compiler validates
	// the full path later.
	if strings.Contains(hint, ".") {
		return hint
	}
	return ""
}
