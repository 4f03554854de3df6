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
package action

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/foyer-ai/foyer/pkg/ontology"
)

// BuildJSONSchema exports a parameter list as a JSON Schema object suitable
// for LLM function calling and for gojsonschema validation.
func BuildJSONSchema(specs []ontology.ParameterSpec, description string) map[string]any {
	properties := make(map[string]any, len(specs))
	var required []string

	for _, spec := range specs {
		prop := map[string]any{}
		switch spec.Kind {
		case ontology.ParamInt:
			prop["type"] = "integer"
		case ontology.ParamDecimal:
			prop["type"] = "number"
		case ontology.ParamBool:
			prop["type"] = "boolean"
		case ontology.ParamDate:
			prop["type"] = "string"
			prop["format"] = "date"
		case ontology.ParamEnum:
			prop["type"] = "string"
			if len(spec.EnumValues) > 0 {
				values := make([]any, len(spec.EnumValues))
				for i, v := range spec.EnumValues {
					values[i] = v
				}
				prop["enum"] = values
			}
		case ontology.ParamArray:
			prop["type"] = "array"
			if spec.Items != nil {
				prop["items"] = spec.Items
			}
		default:
			prop["type"] = "string"
		}
		if spec.Description != "" {
			prop["description"] = spec.Description
		}
		if spec.Pattern != "" {
			prop["pattern"] = spec.Pattern
		}
		if spec.Minimum != nil {
			prop["minimum"] = *spec.Minimum
		}
		if spec.Maximum != nil {
			prop["maximum"] = *spec.Maximum
		}
		if spec.Default != nil {
			prop["default"] = spec.Default
		}
		properties[spec.Name] = prop
		if spec.Required {
			required = append(required, spec.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if description != "" {
		schema["description"] = description
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ValidateParams coerces params against the declared specs, then validates
// the coerced map against the exported JSON schema. On success the returned
// map carries fully-typed values (int, float64, bool, ISO date string).
// Unknown keys pass through untouched so correction hints survive.
func ValidateParams(specs []ontology.ParameterSpec, params map[string]any) (map[string]any, []FieldIssue) {
	coerced := make(map[string]any, len(params))
	for k, v := range params {
		coerced[k] = v
	}

	var issues []FieldIssue
	for _, spec := range specs {
		value, present := coerced[spec.Name]
		if !present || value == nil {
			if spec.Default != nil {
				coerced[spec.Name] = spec.Default
			} else if spec.Required {
				issues = append(issues, FieldIssue{Field: spec.Name, Reason: "required parameter is missing"})
			}
			continue
		}
		converted, err := coerceValue(spec, value)
		if err != nil {
			issues = append(issues, FieldIssue{Field: spec.Name, Reason: err.Error()})
			continue
		}
		coerced[spec.Name] = converted
	}
	if len(issues) > 0 {
		return nil, issues
	}

	schemaLoader := gojsonschema.NewGoLoader(BuildJSONSchema(specs, ""))
	docLoader := gojsonschema.NewGoLoader(coerced)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, []FieldIssue{{Field: "", Reason: "schema validation failed: " + err.Error()}}
	}
	if !result.Valid() {
		for _, verr := range result.Errors() {
			issues = append(issues, FieldIssue{Field: verr.Field(), Reason: verr.Description()})
		}
		return nil, issues
	}
	return coerced, nil
}

// coerceValue converts a loosely-typed value to the spec's kind. String
// inputs for int/decimal/bool are accepted and converted; everything else
// must already match.
func coerceValue(spec ontology.ParameterSpec, value any) (any, error) {
	switch spec.Kind {
	case ontology.ParamInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("expected an integer, got %v", v)
			}
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("expected an integer, got %q", v)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("expected an integer, got %T", value)
		}

	case ontology.ParamDecimal:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("expected a number, got %q", v)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("expected a number, got %T", value)
		}

	case ontology.ParamBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("expected a boolean, got %q", v)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("expected a boolean, got %T", value)
		}

	case ontology.ParamDate, ontology.ParamEnum, ontology.ParamString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", value)
		}
		return s, nil

	case ontology.ParamArray:
		switch value.(type) {
		case []any, []string:
			return value, nil
		default:
			return nil, fmt.Errorf("expected an array, got %T", value)
		}

	default:
		return value, nil
	}
}

// SpecFor finds the declared spec for a parameter name.
func SpecFor(specs []ontology.ParameterSpec, name string) (ontology.ParameterSpec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return ontology.ParameterSpec{}, false
}
