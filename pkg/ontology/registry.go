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

import (
	"strings"
	"sync"
)

// Registry is the process-wide ontology catalogue. Registration happens at
// process init behind the mutex; after Freeze all writes fail with
// REGISTRY_FROZEN and reads are lock-free safe because nothing mutates.
//
// Names resolve case-insensitively at lookup but keep their original case.
type Registry struct {
	mu     sync.RWMutex
	frozen bool

	entities    map[string]*EntityMetadata // canonical name -> metadata
	entityIndex map[string]string          // lowercase -> canonical name
	entityOrder []string

	relationships map[string][]*RelationshipMetadata // source entity -> edges
	machines      map[string]*StateMachine
	constraints   []*Constraint
	actions       map[string]*ActionDefinition
	actionIndex   map[string]string
	actionOrder   []string
	models        map[string]*ModelBinding
}

// NewRegistry creates an empty registry. Tests build a fresh registry per
// test; production code initializes one at startup and freezes it.
func NewRegistry() *Registry {
	return &Registry{
		entities:      make(map[string]*EntityMetadata),
		entityIndex:   make(map[string]string),
		relationships: make(map[string][]*RelationshipMetadata),
		machines:      make(map[string]*StateMachine),
		actions:       make(map[string]*ActionDefinition),
		actionIndex:   make(map[string]string),
		models:        make(map[string]*ModelBinding),
	}
}

// RegisterEntity adds an entity. Duplicate names fail with DUPLICATE_NAME.
func (r *Registry) RegisterEntity(e *EntityMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errFrozen("RegisterEntity")
	}
	if e == nil || e.Name == "" {
		return errInvalid("entity requires a name")
	}
	if _, exists := r.entityIndex[strings.ToLower(e.Name)]; exists {
		return errDuplicate("entity", e.Name)
	}
	r.entities[e.Name] = e
	r.entityIndex[strings.ToLower(e.Name)] = e.Name
	r.entityOrder = append(r.entityOrder, e.Name)
	return nil
}

// RegisterRelationship adds a directed edge from source. The source entity
// must already exist; the target may be registered later (the path resolver
// validates both ends at walk time).
func (r *Registry) RegisterRelationship(source string, rel *RelationshipMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errFrozen("RegisterRelationship")
	}
	canonical, ok := r.entityIndex[strings.ToLower(source)]
	if !ok {
		return errNotFound("entity", source)
	}
	if rel == nil || rel.Attribute == "" || rel.Target == "" {
		return errInvalid("relationship requires attribute and target")
	}
	rel.Source = canonical
	for _, existing := range r.relationships[canonical] {
		if existing.Attribute == rel.Attribute {
			return errDuplicate("relationship", canonical+"."+rel.Attribute)
		}
	}
	r.relationships[canonical] = append(r.relationships[canonical], rel)
	return nil
}

// RegisterStateMachine adds a validated state machine for an entity.
func (r *Registry) RegisterStateMachine(m *StateMachine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errFrozen("RegisterStateMachine")
	}
	if err := m.Validate(); err != nil {
		return err
	}
	canonical, ok := r.entityIndex[strings.ToLower(m.Entity)]
	if !ok {
		return errNotFound("entity", m.Entity)
	}
	if _, exists := r.machines[canonical]; exists {
		return errDuplicate("state machine", canonical)
	}
	m.Entity = canonical
	r.machines[canonical] = m
	return nil
}

// RegisterConstraint adds a constraint.
func (r *Registry) RegisterConstraint(c *Constraint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errFrozen("RegisterConstraint")
	}
	if c == nil || c.ID == "" {
		return errInvalid("constraint requires an id")
	}
	for _, existing := range r.constraints {
		if existing.ID == c.ID {
			return errDuplicate("constraint", c.ID)
		}
	}
	r.constraints = append(r.constraints, c)
	return nil
}

// RegisterAction adds an action definition for an entity. Action names are
// unique across the whole registry. The action registry mirrors these
// definitions with their handlers.
func (r *Registry) RegisterAction(entity string, def *ActionDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errFrozen("RegisterAction")
	}
	if def == nil || def.Name == "" {
		return errInvalid("action requires a name")
	}
	if _, exists := r.actionIndex[strings.ToLower(def.Name)]; exists {
		return errDuplicate("action", def.Name)
	}
	if entity != "" {
		canonical, ok := r.entityIndex[strings.ToLower(entity)]
		if !ok {
			return errNotFound("entity", entity)
		}
		def.Entity = canonical
	}
	r.actions[def.Name] = def
	r.actionIndex[strings.ToLower(def.Name)] = def.Name
	r.actionOrder = append(r.actionOrder, def.Name)
	return nil
}

// RegisterModel binds an entity to its row-store model.
func (r *Registry) RegisterModel(entity string, binding *ModelBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errFrozen("RegisterModel")
	}
	canonical, ok := r.entityIndex[strings.ToLower(entity)]
	if !ok {
		return errNotFound("entity", entity)
	}
	if binding == nil || binding.Table == "" {
		return errInvalid("model binding requires a table")
	}
	if _, exists := r.models[canonical]; exists {
		return errDuplicate("model", canonical)
	}
	binding.Entity = canonical
	r.models[canonical] = binding
	return nil
}

// Freeze fences registration. After Freeze every Register* call fails.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether the registry has been fenced.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Entity looks up an entity case-insensitively.
func (r *Registry) Entity(name string) (*EntityMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.entityIndex[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return r.entities[canonical], true
}

// EntityNames returns the registered entity names in registration order.
func (r *Registry) EntityNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entityOrder))
	copy(out, r.entityOrder)
	return out
}

// Relationships returns the outgoing edges of an entity.
func (r *Registry) Relationships(source string) []*RelationshipMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.entityIndex[strings.ToLower(source)]
	if !ok {
		return nil
	}
	return r.relationships[canonical]
}

// Relationship looks up the edge with the given attribute on source.
func (r *Registry) Relationship(source, attribute string) (*RelationshipMetadata, bool) {
	for _, rel := range r.Relationships(source) {
		if rel.Attribute == attribute {
			return rel, true
		}
	}
	return nil, false
}

// StateMachineFor returns the state machine registered for an entity.
func (r *Registry) StateMachineFor(entity string) (*StateMachine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.entityIndex[strings.ToLower(entity)]
	if !ok {
		return nil, false
	}
	m, ok := r.machines[canonical]
	return m, ok
}

// ConstraintsFor returns the constraints bound to (entity, action).
// An empty action matches property-bound constraints as well.
func (r *Registry) ConstraintsFor(entity, action string) []*Constraint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Constraint
	for _, c := range r.constraints {
		if !strings.EqualFold(c.Entity, entity) {
			continue
		}
		if action == "" || c.Action == "" || c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Action looks up an action definition case-insensitively.
func (r *Registry) Action(name string) (*ActionDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.actionIndex[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return r.actions[canonical], true
}

// ActionNames returns registered action names in registration order.
func (r *Registry) ActionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.actionOrder))
	copy(out, r.actionOrder)
	return out
}

// Model returns the row-model binding for an entity.
func (r *Registry) Model(entity string) (*ModelBinding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.entityIndex[strings.ToLower(entity)]
	if !ok {
		return nil, false
	}
	m, ok := r.models[canonical]
	return m, ok
}
