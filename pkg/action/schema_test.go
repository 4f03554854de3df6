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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foyer-ai/foyer/pkg/ontology"
)

func checkinSpecs() []ontology.ParameterSpec {
	min := 0.0
	return []ontology.ParameterSpec{
		{Name: "room_number", Kind: ontology.ParamString, Required: true},
		{Name: "nights", Kind: ontology.ParamInt, Required: true},
		{Name: "check_in_date", Kind: ontology.ParamDate, Required: true, Pattern: `^\d{4}-\d{2}-\d{2}$`},
		{Name: "deposit", Kind: ontology.ParamDecimal, Minimum: &min, Default: 0.0},
		{Name: "vip_level", Kind: ontology.ParamEnum, EnumValues: []string{"none", "gold", "platinum"}, Default: "none"},
		{Name: "send_receipt", Kind: ontology.ParamBool, Default: false},
	}
}

func TestBuildJSONSchema(t *testing.T) {
	schema := BuildJSONSchema(checkinSpecs(), "check a walk-in guest into a room")

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, "check a walk-in guest into a room", schema["description"])
	assert.ElementsMatch(t, []string{"room_number", "nights", "check_in_date"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Equal(t, "integer", props["nights"].(map[string]any)["type"])
	assert.Equal(t, "date", props["check_in_date"].(map[string]any)["format"])
	assert.Equal(t, []any{"none", "gold", "platinum"}, props["vip_level"].(map[string]any)["enum"])
	assert.Equal(t, 0.0, props["deposit"].(map[string]any)["minimum"])
}

func TestBuildJSONSchemaArrays(t *testing.T) {
	specs := []ontology.ParameterSpec{
		{Name: "fields", Kind: ontology.ParamArray, Items: map[string]any{"type": "string"}},
		{Name: "conditions", Kind: ontology.ParamArray, Items: map[string]any{"type": "object"}},
	}
	schema := BuildJSONSchema(specs, "")
	props := schema["properties"].(map[string]any)
	assert.Equal(t, "array", props["fields"].(map[string]any)["type"])
	assert.Equal(t, map[string]any{"type": "string"}, props["fields"].(map[string]any)["items"])
	assert.Equal(t, map[string]any{"type": "object"}, props["conditions"].(map[string]any)["items"])

	t.Run("array values accepted", func(t *testing.T) {
		coerced, issues := ValidateParams(specs, map[string]any{
			"fields":     []any{"房号", "楼层"},
			"conditions": []any{map[string]any{"field": "房态", "value": "净房"}},
		})
		require.Empty(t, issues)
		assert.Equal(t, []any{"房号", "楼层"}, coerced["fields"])
	})

	t.Run("scalar rejected for array", func(t *testing.T) {
		_, issues := ValidateParams(specs, map[string]any{"fields": "房号"})
		require.NotEmpty(t, issues)
		assert.Equal(t, "fields", issues[0].Field)
	})
}

func TestValidateParams(t *testing.T) {
	specs := checkinSpecs()

	t.Run("coerces string numerics and applies defaults", func(t *testing.T) {
		coerced, issues := ValidateParams(specs, map[string]any{
			"room_number":   "202",
			"nights":        "3",
			"check_in_date": "2026-08-24",
			"deposit":       "200",
		})
		require.Empty(t, issues)
		assert.Equal(t, 3, coerced["nights"])
		assert.Equal(t, 200.0, coerced["deposit"])
		assert.Equal(t, "none", coerced["vip_level"])
		assert.Equal(t, false, coerced["send_receipt"])
	})

	t.Run("missing required fields reported together", func(t *testing.T) {
		_, issues := ValidateParams(specs, map[string]any{"room_number": "202"})
		require.Len(t, issues, 2)
		fields := []string{issues[0].Field, issues[1].Field}
		assert.ElementsMatch(t, []string{"nights", "check_in_date"}, fields)
	})

	t.Run("malformed date caught by pattern", func(t *testing.T) {
		_, issues := ValidateParams(specs, map[string]any{
			"room_number":   "202",
			"nights":        1,
			"check_in_date": "2026-8-24",
		})
		require.NotEmpty(t, issues)
		assert.Equal(t, "check_in_date", issues[0].Field)
	})

	t.Run("enum value outside the set rejected", func(t *testing.T) {
		_, issues := ValidateParams(specs, map[string]any{
			"room_number":   "202",
			"nights":        1,
			"check_in_date": "2026-08-24",
			"vip_level":     "diamond",
		})
		require.NotEmpty(t, issues)
		assert.Equal(t, "vip_level", issues[0].Field)
	})

	t.Run("non-integral float rejected for int", func(t *testing.T) {
		_, issues := ValidateParams(specs, map[string]any{
			"room_number":   "202",
			"nights":        1.5,
			"check_in_date": "2026-08-24",
		})
		require.NotEmpty(t, issues)
		assert.Equal(t, "nights", issues[0].Field)
	})

	t.Run("integral float accepted for int", func(t *testing.T) {
		coerced, issues := ValidateParams(specs, map[string]any{
			"room_number":   "202",
			"nights":        2.0, // json.Unmarshal produces float64
			"check_in_date": "2026-08-24",
		})
		require.Empty(t, issues)
		assert.Equal(t, 2, coerced["nights"])
	})

	t.Run("minimum enforced after coercion", func(t *testing.T) {
		_, issues := ValidateParams(specs, map[string]any{
			"room_number":   "202",
			"nights":        1,
			"check_in_date": "2026-08-24",
			"deposit":       -50,
		})
		require.NotEmpty(t, issues)
		assert.Equal(t, "deposit", issues[0].Field)
	})

	t.Run("unknown keys pass through", func(t *testing.T) {
		coerced, issues := ValidateParams(specs, map[string]any{
			"room_number":           "202",
			"nights":                1,
			"check_in_date":         "2026-08-24",
			"_entity_current_state": "occupied",
		})
		require.Empty(t, issues)
		assert.Equal(t, "occupied", coerced["_entity_current_state"])
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorKind
	}{
		{"permission denied for role", KindPermissionDenied},
		{"room 999 not found", KindNotFound},
		{"no valid transition from occupied", KindStateError},
		{"invalid date format", KindValueError},
		{"business rule rejected the request", KindBusinessError},
		{"disk exploded", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(assertErr(tt.msg)).Kind)
		})
	}

	t.Run("typed errors pass through untouched", func(t *testing.T) {
		orig := NewError(KindStateError, "bad state").WithContext("current_state", "occupied")
		got := Classify(orig)
		assert.Same(t, orig, got)
	})
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
