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

// SchemaExport is the JSON-friendly snapshot of the registry handed to the
// LLM as retrieval context and recorded verbatim in debug sessions.
type SchemaExport struct {
	Entities []EntityExport `json:"entities"`
}

// EntityExport is one entity in a SchemaExport.
type EntityExport struct {
	Name          string              `json:"name"`
	DisplayName   string              `json:"display_name,omitempty"`
	Description   string              `json:"description,omitempty"`
	Category      string              `json:"category,omitempty"`
	Properties    []PropertyExport    `json:"properties"`
	Relationships []RelationExport    `json:"relationships,omitempty"`
	States        *StateMachineExport `json:"states,omitempty"`
}

// PropertyExport is one property in an EntityExport. RESTRICTED properties
// are omitted from exports.
type PropertyExport struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	DisplayName string   `json:"display_name,omitempty"`
	EnumValues  []string `json:"enum_values,omitempty"`
	Required    bool     `json:"required,omitempty"`
	PrimaryKey  bool     `json:"primary_key,omitempty"`
}

// RelationExport is one relationship edge in an EntityExport.
type RelationExport struct {
	Attribute   string `json:"attribute"`
	Target      string `json:"target"`
	Cardinality string `json:"cardinality"`
}

// StateMachineExport summarizes an entity's state machine.
type StateMachineExport struct {
	States  []string `json:"states"`
	Initial string   `json:"initial"`
}

// ExportSchema produces the retrieval snapshot in registration order.
// Output is deterministic for a frozen registry.
func (r *Registry) ExportSchema() *SchemaExport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	export := &SchemaExport{}
	for _, name := range r.entityOrder {
		e := r.entities[name]
		ee := EntityExport{
			Name:        e.Name,
			DisplayName: e.DisplayName,
			Description: e.Description,
			Category:    e.Category,
		}
		for _, p := range e.OrderedProperties() {
			if p.Security == SecurityRestricted {
				continue
			}
			ee.Properties = append(ee.Properties, PropertyExport{
				Name:        p.Name,
				Type:        string(p.Type),
				DisplayName: p.DisplayName,
				EnumValues:  p.EnumValues,
				Required:    p.IsRequired,
				PrimaryKey:  p.IsPrimaryKey,
			})
		}
		for _, rel := range r.relationships[name] {
			ee.Relationships = append(ee.Relationships, RelationExport{
				Attribute:   rel.Attribute,
				Target:      rel.Target,
				Cardinality: string(rel.Cardinality),
			})
		}
		if m, ok := r.machines[name]; ok {
			ee.States = &StateMachineExport{States: m.States, Initial: m.InitialState}
		}
		export.Entities = append(export.Entities, ee)
	}
	return export
}
