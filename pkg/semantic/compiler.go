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
	"sort"
)

// Compiler turns a SemanticQuery into a StructuredQuery. Given the same
// input and registry snapshot the output is byte-identical.
type Compiler struct {
	resolver *Resolver
}

// NewCompiler creates a compiler over the given resolver.
func NewCompiler(resolver *Resolver) *Compiler {
	return &Compiler{resolver: resolver}
}

// Compile validates the root, resolves every referenced dot-path, merges the
// per-path joins (deduplicated, shallow joins first), checks filter
// operators, and assembles the IR.
func (c *Compiler) Compile(q *SemanticQuery) (*StructuredQuery, error) {
	rootEntity, ok := c.resolver.reg.Entity(q.Root)
	if !ok {
		return nil, &PathError{
			Code:        CodeUnknownRootEntity,
			Token:       q.Root,
			Suggestions: withinEditDistance(q.Root, c.resolver.reg.EntityNames(), 2),
			Detail:      "unknown root entity " + q.Root,
		}
	}

	paths := collectPaths(q)
	resolvedByPath := make(map[string]*ResolvedPath, len(paths))
	var merged []JoinClause
	seen := make(map[string]bool)

	for _, p := range paths {
		rp, err := c.resolver.ResolvePath(rootEntity.Name, p)
		if err != nil {
			return nil, err
		}
		resolvedByPath[p] = rp
		for i := range rp.Joins {
			j := rp.Joins[i]
			if !seen[j.Key()] {
				seen[j.Key()] = true
				merged = append(merged, j)
			}
		}
	}

	// Shorter joins first; insertion order breaks ties so output stays
	// deterministic across runs.
	sort.SliceStable(merged, func(i, k int) bool {
		return merged[i].Depth() < merged[k].Depth()
	})

	filters := make([]SemanticFilter, 0, len(q.Filters))
	for _, f := range q.Filters {
		if !ValidOperator(f.Operator) {
			return nil, &PathError{
				Code:        CodeUnknownOperator,
				Path:        f.Path,
				Token:       string(f.Operator),
				Suggestions: []string{},
				Detail:      "unsupported filter operator " + string(f.Operator),
			}
		}
		filters = append(filters, SemanticFilter{Path: f.Path, Operator: f.Operator, Value: f.Value})
	}

	out := &StructuredQuery{
		Root:     rootEntity.Name,
		Fields:   append([]string(nil), q.Fields...),
		Joins:    merged,
		Filters:  filters,
		OrderBy:  append([]OrderBy(nil), q.OrderBy...),
		Limit:    q.Limit,
		Offset:   q.Offset,
		Distinct: q.Distinct,
	}
	if q.Aggregate != nil {
		agg := *q.Aggregate
		out.Aggregate = &agg
	}
	return out, nil
}

// collectPaths gathers every dot-path referenced by fields, filters,
// order-by, and the aggregate spec, deduplicated in first-seen order.
func collectPaths(q *SemanticQuery) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, f := range q.Fields {
		add(f)
	}
	for _, f := range q.Filters {
		add(f.Path)
	}
	for _, o := range q.OrderBy {
		add(o.Path)
	}
	if q.Aggregate != nil {
		add(q.Aggregate.Path)
		for _, g := range q.Aggregate.GroupBy {
			add(g)
		}
	}
	return out
}
