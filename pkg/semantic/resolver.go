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

// MaxHopDepth bounds relationship traversal per dot-path.
const MaxHopDepth = 10

// Resolver walks dot-paths over the ontology graph. It is stateless and
// deterministic: the visited set lives on the stack of each walk.
type Resolver struct {
	reg *ontology.Registry
}

// NewResolver creates a resolver over a registry snapshot.
func NewResolver(reg *ontology.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// ResolvePath walks path from root left-to-right. Each token must be a
// relationship on the current entity or a terminal property. Cycles and
// hops past MaxHopDepth are compile-time errors.
func (r *Resolver) ResolvePath(root, path string) (*ResolvedPath, error) {
	rootEntity, ok := r.reg.Entity(root)
	if !ok {
		return nil, &PathError{
			Code:        CodeUnknownRootEntity,
			Path:        path,
			Token:       root,
			Suggestions: withinEditDistance(root, r.reg.EntityNames(), 2),
			Detail:      "unknown root entity " + root,
		}
	}

	tokens := strings.Split(path, ".")
	resolved := &ResolvedPath{Original: path, FinalEntity: rootEntity.Name}

	current := rootEntity
	visited := map[string]bool{rootEntity.Name: true}
	var prefix []string
	hops := 0

	for i, token := range tokens {
		if token == "" {
			return nil, &PathError{
				Code:        CodeInvalidPath,
				Path:        path,
				Position:    i,
				Suggestions: []string{},
				Detail:      "empty segment in path " + path,
			}
		}

		// A property segment must be terminal.
		if resolved.FinalField != "" {
			return nil, &PathError{
				Code:          CodePropertyIsNotRelationship,
				Path:          path,
				Token:         token,
				CurrentEntity: current.Name,
				Position:      i,
				Suggestions:   []string{},
				Detail:        "segment follows a property",
			}
		}

		if rel, ok := r.reg.Relationship(current.Name, token); ok {
			hops++
			if hops > MaxHopDepth {
				return nil, &PathError{
					Code:          CodeMaxDepthExceeded,
					Path:          path,
					Token:         token,
					CurrentEntity: current.Name,
					Position:      i,
					Suggestions:   []string{},
					Detail:        "path exceeds max hop depth",
				}
			}
			target, ok := r.reg.Entity(rel.Target)
			if !ok {
				// Stricter than the source: a half-registered edge fails fast
				// instead of silently producing empty rows.
				return nil, &PathError{
					Code:          CodePathResolution,
					Path:          path,
					Token:         token,
					CurrentEntity: current.Name,
					Position:      i,
					Suggestions:   []string{},
					Detail:        "relationship target " + rel.Target + " is not registered",
				}
			}
			if visited[target.Name] {
				return nil, &PathError{
					Code:          CodeCyclicPath,
					Path:          path,
					Token:         token,
					CurrentEntity: current.Name,
					Position:      i,
					Suggestions:   []string{},
					Detail:        "path revisits entity " + target.Name,
				}
			}
			visited[target.Name] = true
			prefix = append(prefix, rel.Attribute)

			resolved.Segments = append(resolved.Segments, PathSegment{
				Name: token, Kind: SegmentRelationship, Entity: target.Name,
			})
			resolved.Joins = append(resolved.Joins, JoinClause{
				Target:     target.Name,
				Attribute:  rel.Attribute,
				Type:       JoinInner,
				PathPrefix: append([]string(nil), prefix...),
			})
			resolved.FinalEntity = target.Name
			current = target
			continue
		}

		if _, ok := current.Property(token); ok {
			resolved.Segments = append(resolved.Segments, PathSegment{
				Name: token, Kind: SegmentProperty, Entity: current.Name,
			})
			resolved.FinalField = token
			continue
		}

		return nil, &PathError{
			Code:          CodePathResolution,
			Path:          path,
			Token:         token,
			CurrentEntity: current.Name,
			Position:      i,
			Suggestions:   closeMatches(token, r.segmentCandidates(current)),
		}
	}

	return resolved, nil
}

// segmentCandidates lists the legal next tokens on an entity: relationship
// attributes first, then property names.
func (r *Resolver) segmentCandidates(e *ontology.EntityMetadata) []string {
	var out []string
	for _, rel := range r.reg.Relationships(e.Name) {
		out = append(out, rel.Attribute)
	}
	out = append(out, e.PropertyOrder...)
	return out
}
