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
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foyer-ai/foyer/pkg/action"
	"github.com/foyer-ai/foyer/pkg/llm"
	"github.com/foyer-ai/foyer/pkg/ontology"
)

// scriptedDispatcher fails with the scripted errors in order, then succeeds.
type scriptedDispatcher struct {
	errs   []*action.ExecutionError
	calls  int
	params []map[string]any
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, name string, params map[string]any, user action.User) (any, error) {
	d.calls++
	d.params = append(d.params, params)
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return nil, err
	}
	return "ok", nil
}

// countingProvider records Chat calls and replies with a fixed JSON body.
type countingProvider struct {
	calls int
	reply string
}

func (p *countingProvider) IsEnabled() bool { return true }
func (p *countingProvider) Name() string    { return "fake" }
func (p *countingProvider) Model() string   { return "fake-model" }
func (p *countingProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls++
	return &llm.ChatResponse{Content: p.reply, Model: p.Model()}, nil
}

func reflexionMeta(t *testing.T) *ontology.Registry {
	t.Helper()
	meta := ontology.NewRegistry()
	e := &ontology.EntityMetadata{Name: "Room"}
	e.AddProperty(&ontology.PropertyMetadata{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true})
	require.NoError(t, meta.RegisterEntity(e))
	require.NoError(t, meta.RegisterAction("Room", &ontology.ActionDefinition{
		Name:     "walkin_checkin",
		Entity:   "Room",
		Category: ontology.CategoryMutation,
		Parameters: []ontology.ParameterSpec{
			{Name: "room_number", Kind: ontology.ParamString, Required: true},
			{Name: "check_in_date", Kind: ontology.ParamDate, Required: true},
		},
	}))
	return meta
}

func TestExecuteFirstAttemptSuccess(t *testing.T) {
	d := &scriptedDispatcher{}
	provider := &countingProvider{}
	loop := NewLoop(d, reflexionMeta(t), provider)

	outcome, loopErr := loop.Execute(context.Background(), "walkin_checkin",
		map[string]any{"room_number": "202", "check_in_date": "2026-08-24"}, action.User{Role: "front_desk"})
	require.Nil(t, loopErr)
	assert.Equal(t, "ok", outcome.Result)
	assert.False(t, outcome.ReflexionUsed)
	assert.Equal(t, 1, outcome.FinalAttempt)
	require.Len(t, outcome.Attempts, 1)
	assert.Equal(t, StrategyInitial, outcome.Attempts[0].Strategy)
	assert.Zero(t, provider.calls)
}

func TestExecuteAutoCorrectsLaxDate(t *testing.T) {
	d := &scriptedDispatcher{errs: []*action.ExecutionError{
		{
			Kind:    action.KindValidationError,
			Message: "invalid parameters",
			Issues:  []action.FieldIssue{{Field: "check_in_date", Reason: "does not match pattern"}},
		},
	}}
	provider := &countingProvider{}
	loop := NewLoop(d, reflexionMeta(t), provider)

	outcome, loopErr := loop.Execute(context.Background(), "walkin_checkin",
		map[string]any{"room_number": "202", "check_in_date": "2026-8-4"}, action.User{Role: "front_desk"})
	require.Nil(t, loopErr)
	assert.True(t, outcome.ReflexionUsed)
	assert.Equal(t, 2, outcome.FinalAttempt)
	assert.Equal(t, StrategyAutoCorrect, outcome.Attempts[1].Strategy)
	assert.Equal(t, "2026-08-04", d.params[1]["check_in_date"])
	assert.Zero(t, provider.calls, "rule-based repair must not touch the model")
}

// Handler-raised value errors carry no field issues; the repair rules must
// still run over the declared parameters.
func TestExecuteAutoCorrectsHandlerValueError(t *testing.T) {
	d := &scriptedDispatcher{errs: []*action.ExecutionError{
		action.NewError(action.KindValueError, "Invalid date format: 2026-2-8"),
	}}
	provider := &countingProvider{}
	loop := NewLoop(d, reflexionMeta(t), provider)

	outcome, loopErr := loop.Execute(context.Background(), "walkin_checkin",
		map[string]any{"room_number": "202", "check_in_date": "2026-2-8"}, action.User{Role: "front_desk"})
	require.Nil(t, loopErr)
	assert.Equal(t, 2, outcome.FinalAttempt)
	assert.Equal(t, StrategyAutoCorrect, outcome.Attempts[1].Strategy)
	assert.Equal(t, "2026-02-08", d.params[1]["check_in_date"])
	assert.Zero(t, provider.calls)
}

func TestExecuteStateHintInjection(t *testing.T) {
	stateErr := action.NewError(action.KindStateError, "room not in a bookable state")
	stateErr.WithContext("current_state", "vacant_dirty")
	stateErr.WithContext("valid_alternatives", []string{"vacant_clean"})
	d := &scriptedDispatcher{errs: []*action.ExecutionError{stateErr}}
	loop := NewLoop(d, reflexionMeta(t), &countingProvider{})

	outcome, loopErr := loop.Execute(context.Background(), "walkin_checkin",
		map[string]any{"room_number": "203", "check_in_date": "2026-08-24"}, action.User{Role: "front_desk"})
	require.Nil(t, loopErr)
	assert.Equal(t, StrategyStateHint, outcome.Attempts[1].Strategy)
	assert.Equal(t, "vacant_dirty", d.params[1][HintCurrentState])
	assert.Equal(t, []string{"vacant_clean"}, d.params[1][HintValidAlternatives])
}

func TestExecutePermissionDeniedIsTerminal(t *testing.T) {
	d := &scriptedDispatcher{errs: []*action.ExecutionError{
		action.NewError(action.KindPermissionDenied, "role may not invoke"),
		action.NewError(action.KindPermissionDenied, "never reached"),
	}}
	provider := &countingProvider{}
	loop := NewLoop(d, reflexionMeta(t), provider)

	outcome, loopErr := loop.Execute(context.Background(), "walkin_checkin",
		map[string]any{"room_number": "202", "check_in_date": "2026-08-24"}, action.User{Role: "guest"})
	assert.Nil(t, outcome)
	require.NotNil(t, loopErr)
	assert.Equal(t, action.KindPermissionDenied, loopErr.Err.Kind)
	assert.False(t, loopErr.RetriesExhausted)
	assert.Equal(t, 1, d.calls, "terminal errors stop after the first attempt")
	assert.Zero(t, provider.calls, "terminal errors never reach the model")
}

func TestExecuteLLMReflection(t *testing.T) {
	proposal, _ := json.Marshal(map[string]any{
		"corrected_params": map[string]any{"room_number": "202", "check_in_date": "2026-08-24"},
		"should_retry":     true,
		"confidence":       0.8,
	})
	provider := &countingProvider{reply: string(proposal)}

	d := &scriptedDispatcher{errs: []*action.ExecutionError{
		action.NewError(action.KindBusinessError, "business rule rejected the request"),
	}}
	loop := NewLoop(d, reflexionMeta(t), provider)

	outcome, loopErr := loop.Execute(context.Background(), "walkin_checkin",
		map[string]any{"room_number": "999", "check_in_date": "2026-08-24"}, action.User{Role: "front_desk"})
	require.Nil(t, loopErr)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, StrategyLLMReflect, outcome.Attempts[1].Strategy)
	assert.True(t, outcome.Attempts[1].LLMUsed)
	assert.Equal(t, "202", d.params[1]["room_number"])
}

func TestExecuteLowConfidenceStopsLoop(t *testing.T) {
	proposal, _ := json.Marshal(map[string]any{
		"corrected_params": map[string]any{"room_number": "202"},
		"should_retry":     true,
		"confidence":       0.2,
	})
	provider := &countingProvider{reply: string(proposal)}
	d := &scriptedDispatcher{errs: []*action.ExecutionError{
		action.NewError(action.KindBusinessError, "business rule rejected the request"),
		action.NewError(action.KindBusinessError, "never reached"),
	}}
	loop := NewLoop(d, reflexionMeta(t), provider)

	_, loopErr := loop.Execute(context.Background(), "walkin_checkin",
		map[string]any{"room_number": "999", "check_in_date": "2026-08-24"}, action.User{Role: "front_desk"})
	require.NotNil(t, loopErr)
	assert.Equal(t, 1, d.calls)
	assert.False(t, loopErr.RetriesExhausted)
}

func TestExecuteRetriesExhausted(t *testing.T) {
	stuck := func() *action.ExecutionError {
		e := action.NewError(action.KindStateError, "room stuck in maintenance")
		e.WithContext("current_state", "maintenance")
		e.WithContext("valid_alternatives", []string{"vacant_dirty"})
		return e
	}
	d := &scriptedDispatcher{errs: []*action.ExecutionError{stuck(), stuck(), stuck()}}
	loop := NewLoop(d, reflexionMeta(t), llm.NewNopProvider())

	_, loopErr := loop.Execute(context.Background(), "walkin_checkin",
		map[string]any{"room_number": "302", "check_in_date": "2026-08-24"}, action.User{Role: "front_desk"})
	require.NotNil(t, loopErr)
	assert.True(t, loopErr.RetriesExhausted)
	assert.Len(t, loopErr.Attempts, DefaultMaxRetries+1)
}

func TestExecuteDeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	d := &scriptedDispatcher{}
	loop := NewLoop(d, reflexionMeta(t), llm.NewNopProvider())

	_, loopErr := loop.Execute(ctx, "walkin_checkin",
		map[string]any{"room_number": "202", "check_in_date": "2026-08-24"}, action.User{Role: "front_desk"})
	require.NotNil(t, loopErr)
	assert.Equal(t, "TIMEOUT", loopErr.Err.Code)
	assert.Equal(t, action.KindUnknown, loopErr.Err.Kind)
	assert.True(t, loopErr.RetriesExhausted)
	assert.Zero(t, d.calls)
}

func TestAutoCorrectValues(t *testing.T) {
	specs := []ontology.ParameterSpec{
		{Name: "d", Kind: ontology.ParamDate},
		{Name: "e", Kind: ontology.ParamEnum, EnumValues: []string{"vacant_clean", "occupied"}},
		{Name: "n", Kind: ontology.ParamInt},
	}
	execErr := &action.ExecutionError{
		Kind: action.KindValidationError,
		Issues: []action.FieldIssue{
			{Field: "d"}, {Field: "e"}, {Field: "n"},
		},
	}

	fixed, changed := autoCorrect(specs, map[string]any{
		"d": "2026-2-8",
		"e": "Vacant Clean",
		"n": "3",
	}, execErr)
	require.True(t, changed)
	assert.Equal(t, "2026-02-08", fixed["d"])
	assert.Equal(t, "vacant_clean", fixed["e"])
	assert.Equal(t, 3, fixed["n"])
}

func TestAutoCorrectScansSpecsWithoutIssues(t *testing.T) {
	specs := []ontology.ParameterSpec{
		{Name: "room_number", Kind: ontology.ParamString},
		{Name: "check_in_date", Kind: ontology.ParamDate},
	}
	execErr := action.NewError(action.KindValueError, "Invalid date format: 2026-2-8")

	fixed, changed := autoCorrect(specs, map[string]any{
		"room_number":   "202",
		"check_in_date": "2026-2-8",
	}, execErr)
	require.True(t, changed)
	assert.Equal(t, "2026-02-08", fixed["check_in_date"])
	assert.Equal(t, "202", fixed["room_number"])
}

func TestAutoCorrectNoChange(t *testing.T) {
	specs := []ontology.ParameterSpec{{Name: "d", Kind: ontology.ParamDate}}
	execErr := &action.ExecutionError{
		Kind:   action.KindValidationError,
		Issues: []action.FieldIssue{{Field: "d"}},
	}

	_, changed := autoCorrect(specs, map[string]any{"d": "not-a-date"}, execErr)
	assert.False(t, changed)
}
