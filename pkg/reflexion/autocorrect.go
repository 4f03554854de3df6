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
package reflexion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/foyer-ai/foyer/pkg/action"
	"github.com/foyer-ai/foyer/pkg/ontology"
)

var laxDatePattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

// autoCorrect applies deterministic, rule-based repairs to the parameters
// named in the error's field issues. Handler-raised errors often carry no
// field issues; those fall back to trying every declared parameter. Returns
// the corrected map and true when at least one value changed; no LLM call
// is involved.
func autoCorrect(specs []ontology.ParameterSpec, params map[string]any, execErr *action.ExecutionError) (map[string]any, bool) {
	fields := make([]string, 0, len(execErr.Issues))
	for _, issue := range execErr.Issues {
		fields = append(fields, issue.Field)
	}
	if len(fields) == 0 {
		for _, spec := range specs {
			fields = append(fields, spec.Name)
		}
	}

	corrected := make(map[string]any, len(params))
	for k, v := range params {
		corrected[k] = v
	}

	changed := false
	for _, field := range fields {
		spec, ok := action.SpecFor(specs, field)
		if !ok {
			continue
		}
		value, present := corrected[field]
		if !present {
			continue
		}
		if fixed, ok := correctValue(spec, value); ok {
			corrected[field] = fixed
			changed = true
		}
	}
	return corrected, changed
}

// correctValue tries one deterministic repair for a single value.
func correctValue(spec ontology.ParameterSpec, value any) (any, bool) {
	s, isString := value.(string)

	switch spec.Kind {
	case ontology.ParamDate:
		// Zero-pad lax dates: 2026-2-8 becomes 2026-02-08.
		if !isString {
			return nil, false
		}
		m := laxDatePattern.FindStringSubmatch(strings.TrimSpace(s))
		if m == nil {
			return nil, false
		}
		fixed := fmt.Sprintf("%s-%s-%s", m[1], pad2(m[2]), pad2(m[3]))
		if fixed == s {
			return nil, false
		}
		return fixed, true

	case ontology.ParamEnum:
		if !isString {
			return nil, false
		}
		// Normalize whitespace and case, then re-match against the value set.
		normalized := strings.ToLower(strings.Join(strings.Fields(s), "_"))
		for _, ev := range spec.EnumValues {
			if normalized == strings.ToLower(ev) {
				if ev == s {
					return nil, false
				}
				return ev, true
			}
		}
		return nil, false

	case ontology.ParamInt:
		if !isString {
			return nil, false
		}
		trimmed := strings.TrimSpace(s)
		if n, err := strconv.Atoi(trimmed); err == nil {
			return n, true
		}
		return nil, false

	case ontology.ParamDecimal:
		if !isString {
			return nil, false
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
		return nil, false

	default:
		return nil, false
	}
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
