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

// Package ontology holds the authoritative in-memory catalogue of entities,
// properties, relationships, state machines, constraints, actions, and
// row-model bindings. Domain adapters populate the registry at process init
// and freeze it; every downstream component reads from it.
package ontology

// SemanticType classifies a property's value space.
type SemanticType string

const (
	TypeString   SemanticType = "string"
	TypeInteger  SemanticType = "integer"
	TypeNumber   SemanticType = "number"
	TypeBoolean  SemanticType = "boolean"
	TypeDate     SemanticType = "date"
	TypeDatetime SemanticType = "datetime"
	TypeEnum     SemanticType = "enum"
	TypeText     SemanticType = "text"
)

// SecurityLevel tags how widely a property may be surfaced.
type SecurityLevel string

const (
	SecurityPublic       SecurityLevel = "PUBLIC"
	SecurityInternal     SecurityLevel = "INTERNAL"
	SecurityConfidential SecurityLevel = "CONFIDENTIAL"
	SecurityRestricted   SecurityLevel = "RESTRICTED"
)

// Cardinality describes the shape of a relationship.
type Cardinality string

const (
	OneToOne   Cardinality = "one_to_one"
	OneToMany  Cardinality = "one_to_many"
	ManyToOne  Cardinality = "many_to_one"
	ManyToMany Cardinality = "many_to_many"
)

// Collection reports whether the relationship yields multiple rows per
// source row. Collection-valued relations get EXISTS semantics when filtered.
func (c Cardinality) Collection() bool {
	return c == OneToMany || c == ManyToMany
}

// PropertyValidator checks a candidate value at update time. Validators must
// be side-effect free.
type PropertyValidator func(value any) error

// PropertyMetadata describes one scalar property of an entity.
type PropertyMetadata struct {
	Name             string
	Type             SemanticType
	NativeType       string // optional hint for code generation
	IsPrimaryKey     bool
	IsForeignKey     bool
	ForeignKeyTarget string
	IsRequired       bool
	IsUnique         bool
	IsNullable       bool
	EnumValues       []string
	DisplayName      string // used for column headers; falls back to Name
	Security         SecurityLevel
	PII              bool
	FormatRegex      string
	Validators       []PropertyValidator
}

// Header returns the column header for this property.
func (p *PropertyMetadata) Header() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// EntityMetadata describes one entity. Properties preserve registration
// order; PropertyOrder is the canonical ordering.
type EntityMetadata struct {
	Name          string
	Description   string
	DisplayName   string
	Properties    map[string]*PropertyMetadata
	PropertyOrder []string
	Category      string
	AggregateRoot bool
	Extensions    map[string]any
}

// AddProperty appends a property, preserving insertion order. Registering
// the same name twice replaces the previous definition in place.
func (e *EntityMetadata) AddProperty(p *PropertyMetadata) *EntityMetadata {
	if e.Properties == nil {
		e.Properties = make(map[string]*PropertyMetadata)
	}
	if _, exists := e.Properties[p.Name]; !exists {
		e.PropertyOrder = append(e.PropertyOrder, p.Name)
	}
	e.Properties[p.Name] = p
	return e
}

// Property looks up a property by exact name.
func (e *EntityMetadata) Property(name string) (*PropertyMetadata, bool) {
	p, ok := e.Properties[name]
	return p, ok
}

// OrderedProperties returns properties in registration order.
func (e *EntityMetadata) OrderedProperties() []*PropertyMetadata {
	out := make([]*PropertyMetadata, 0, len(e.PropertyOrder))
	for _, name := range e.PropertyOrder {
		out = append(out, e.Properties[name])
	}
	return out
}

// RelationshipMetadata describes one directed edge between two entities.
// The registry stores edges per source entity; metadata objects never hold
// references to each other (the graph is cyclic).
type RelationshipMetadata struct {
	Source           string
	Target           string
	Cardinality      Cardinality
	Attribute        string // relation attribute name on the source entity
	ForeignKeyColumn string
	Description      string
}

// Severity grades a constraint violation.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// ConstraintPredicate evaluates a constraint against an arbitrary payload.
// Predicates must be side-effect free. A nil predicate means the constraint
// is documentation-only.
type ConstraintPredicate func(payload map[string]any) bool

// Constraint binds a business rule to an (entity, action) or
// (entity, property) pair.
type Constraint struct {
	ID        string
	Name      string
	Severity  Severity
	Entity    string
	Action    string // set for action-bound constraints
	Property  string // set for property-bound constraints
	Predicate ConstraintPredicate
	Message   string // message template shown on violation
}

// ActionCategory classifies an action's effect on the store.
type ActionCategory string

const (
	CategoryQuery    ActionCategory = "query"
	CategoryMutation ActionCategory = "mutation"
	CategoryWorkflow ActionCategory = "workflow"
)

// ParamKind is the tagged-union discriminator for a parameter's type.
type ParamKind string

const (
	ParamString  ParamKind = "string"
	ParamInt     ParamKind = "int"
	ParamDecimal ParamKind = "decimal"
	ParamBool    ParamKind = "bool"
	ParamDate    ParamKind = "date"
	ParamEnum    ParamKind = "enum"
	ParamArray   ParamKind = "array"
)

// ParameterSpec declares one action parameter. The dispatcher coerces and
// validates at the boundary so handlers receive fully-typed values. Items
// is the JSON-schema element shape for array parameters.
type ParameterSpec struct {
	Name        string
	Kind        ParamKind
	Required    bool
	Default     any
	Description string
	EnumValues  []string
	Pattern     string
	Minimum     *float64
	Maximum     *float64
	Items       map[string]any
}

// ActionDefinition is the registry-side description of an executable action.
// Handlers live in the action registry, which mirrors these definitions.
type ActionDefinition struct {
	Name                 string
	Entity               string
	Description          string
	Category             ActionCategory
	Parameters           []ParameterSpec
	AllowedRoles         []string
	RequiresConfirmation bool
	Undoable             bool
	SideEffects          []string
	SearchKeywords       []string
}

// RoleAllowed reports whether the given role may invoke the action.
// An empty AllowedRoles set means any role is accepted.
func (a *ActionDefinition) RoleAllowed(role string) bool {
	if len(a.AllowedRoles) == 0 {
		return true
	}
	for _, r := range a.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}
