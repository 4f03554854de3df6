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

// Package semantic translates dot-path references into a structured query IR.
// The resolver walks the ontology graph; the compiler merges per-path joins
// into a deduplicated StructuredQuery the executor consumes.
package semantic

import "strings"

// FilterOperator enumerates the supported filter operators.
type FilterOperator string

const (
	OpEq        FilterOperator = "eq"
	OpNe        FilterOperator = "ne"
	OpGt        FilterOperator = "gt"
	OpGte       FilterOperator = "gte"
	OpLt        FilterOperator = "lt"
	OpLte       FilterOperator = "lte"
	OpIn        FilterOperator = "in"
	OpNotIn     FilterOperator = "not_in"
	OpLike      FilterOperator = "like"
	OpNotLike   FilterOperator = "not_like"
	OpBetween   FilterOperator = "between"
	OpIsNull    FilterOperator = "is_null"
	OpIsNotNull FilterOperator = "is_not_null"
)

var validOperators = map[FilterOperator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNotIn: true, OpLike: true, OpNotLike: true,
	OpBetween: true, OpIsNull: true, OpIsNotNull: true,
}

// ValidOperator reports whether op is one of the supported operators.
func ValidOperator(op FilterOperator) bool {
	return validOperators[op]
}

// SemanticFilter constrains a dot-path to a value.
type SemanticFilter struct {
	Path     string         `json:"path"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value"`
}

// OrderBy sorts results by a dot-path.
type OrderBy struct {
	Path string `json:"path"`
	Desc bool   `json:"desc,omitempty"`
}

// AggregateFunc enumerates the supported aggregate functions.
type AggregateFunc string

const (
	AggCount AggregateFunc = "count"
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggMax   AggregateFunc = "max"
	AggMin   AggregateFunc = "min"
)

// Aggregate describes an aggregate/group-by request.
type Aggregate struct {
	Func    AggregateFunc `json:"func"`
	Path    string        `json:"path,omitempty"` // empty means count(*)
	Alias   string        `json:"alias,omitempty"`
	GroupBy []string      `json:"group_by,omitempty"`
}

// SemanticQuery is the compiler input: a root entity plus dot-path fields,
// filters, and ordering.
type SemanticQuery struct {
	Root      string           `json:"root"`
	Fields    []string         `json:"fields"`
	Filters   []SemanticFilter `json:"filters,omitempty"`
	OrderBy   []OrderBy        `json:"order_by,omitempty"`
	Limit     int              `json:"limit,omitempty"`
	Offset    int              `json:"offset,omitempty"`
	Distinct  bool             `json:"distinct,omitempty"`
	Aggregate *Aggregate       `json:"aggregate,omitempty"`
}

// SegmentKind discriminates path segments.
type SegmentKind string

const (
	SegmentRelationship SegmentKind = "relationship"
	SegmentProperty     SegmentKind = "property"
)

// PathSegment is one resolved token of a dot-path.
type PathSegment struct {
	Name   string      // the token
	Kind   SegmentKind
	Entity string      // entity the segment lands on (relationship) or belongs to (property)
}

// JoinType enumerates supported join flavours.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
)

// JoinClause is one relational join derived from a relationship hop.
// PathPrefix is the ordered list of relation attributes walked to reach the
// target; it is the deduplication key together with the target entity.
type JoinClause struct {
	Target     string   `json:"target"`
	Attribute  string   `json:"attribute"`
	Type       JoinType `json:"type"`
	PathPrefix []string `json:"path_prefix"`
}

// Key returns the deduplication key (target-entity, path-prefix).
func (j *JoinClause) Key() string {
	return j.Target + "|" + strings.Join(j.PathPrefix, ".")
}

// Depth is the hop count of the join.
func (j *JoinClause) Depth() int {
	return len(j.PathPrefix)
}

// ResolvedPath is the outcome of resolving one dot-path.
type ResolvedPath struct {
	Original    string
	Segments    []PathSegment
	Joins       []JoinClause
	FinalEntity string
	FinalField  string // empty when the path ends on a relationship
}

// StructuredQuery is the IR the executor consumes.
type StructuredQuery struct {
	Root      string           `json:"root"`
	Fields    []string         `json:"fields"`
	Joins     []JoinClause     `json:"joins"`
	Filters   []SemanticFilter `json:"filters,omitempty"`
	OrderBy   []OrderBy        `json:"order_by,omitempty"`
	Limit     int              `json:"limit,omitempty"`
	Offset    int              `json:"offset,omitempty"`
	Distinct  bool             `json:"distinct,omitempty"`
	Aggregate *Aggregate       `json:"aggregate,omitempty"`
}
