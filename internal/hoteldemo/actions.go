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
package hoteldemo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/foyer-ai/foyer/pkg/action"
	"github.com/foyer-ai/foyer/pkg/ontology"
	"github.com/foyer-ai/foyer/pkg/query"
	"github.com/foyer-ai/foyer/pkg/semantic"
)

// RegisterActions registers the demo business actions. executor serves the
// semantic_query action; rules may be nil.
func RegisterActions(reg *action.Registry, executor *query.Executor,
	onto *ontology.Registry, rules *semantic.RuleApplicator) error {

	if err := reg.Register("StayRecord", &ontology.ActionDefinition{
		Name:        "walkin_checkin",
		Description: "Check a walk-in guest into a room, creating the guest record if needed.",
		Category:    ontology.CategoryMutation,
		Parameters: []ontology.ParameterSpec{
			{Name: "guest_name", Kind: ontology.ParamString, Required: true, Description: "guest full name"},
			{Name: "phone", Kind: ontology.ParamString, Description: "guest phone number"},
			{Name: "id_number", Kind: ontology.ParamString, Description: "guest ID document number"},
			{Name: "room_number", Kind: ontology.ParamString, Required: true, Description: "room to check into"},
			{Name: "check_in_date", Kind: ontology.ParamDate, Required: true, Description: "check-in date, YYYY-MM-DD"},
			{Name: "room_rate", Kind: ontology.ParamDecimal, Description: "nightly rate"},
			{Name: "deposit", Kind: ontology.ParamDecimal, Description: "deposit collected"},
		},
		AllowedRoles:   []string{"front_desk", "manager"},
		SideEffects:    []string{"creates stay record", "moves room to occupied"},
		SearchKeywords: []string{"checkin", "check in", "入住", "开房"},
	}, walkinCheckin); err != nil {
		return err
	}

	if err := reg.Register("Room", &ontology.ActionDefinition{
		Name:        "update_room_status",
		Description: "Move a room to a new housekeeping status, honoring the room state machine.",
		Category:    ontology.CategoryMutation,
		Parameters: []ontology.ParameterSpec{
			{Name: "room_number", Kind: ontology.ParamString, Required: true},
			{Name: "new_status", Kind: ontology.ParamEnum, Required: true, EnumValues: RoomStates,
				Description: "target room status"},
		},
		AllowedRoles:   []string{"front_desk", "housekeeping", "manager"},
		SideEffects:    []string{"updates room status"},
		SearchKeywords: []string{"room status", "housekeeping", "房态", "净房", "脏房"},
	}, updateRoomStatus); err != nil {
		return err
	}

	if err := reg.Register("", &ontology.ActionDefinition{
		Name:        "semantic_query",
		Description: "Query any registered entity using dot-path fields and filters.",
		Category:    ontology.CategoryQuery,
		Parameters: []ontology.ParameterSpec{
			{Name: "root_object", Kind: ontology.ParamString, Required: true, Description: "root entity name"},
			{Name: "fields", Kind: ontology.ParamArray, Description: "dot-path or display-name fields to select",
				Items: map[string]any{"type": "string"}},
			{Name: "conditions", Kind: ontology.ParamArray, Description: "filters, each {field, operator, value}",
				Items: map[string]any{"type": "object"}},
			{Name: "limit", Kind: ontology.ParamInt, Description: "max rows to return"},
		},
		SearchKeywords: []string{"query", "search", "list", "查询"},
	}, semanticQueryHandler(executor, onto, rules)); err != nil {
		return err
	}

	return nil
}

func walkinCheckin(ctx context.Context, params map[string]any, env *action.Env) (any, error) {
	roomNumber := params["room_number"].(string)
	checkInDate := params["check_in_date"].(string)
	guestName := params["guest_name"].(string)

	var roomID int
	var status string
	err := env.Tx.QueryRowContext(ctx,
		`SELECT id, status FROM rooms WHERE room_number = ?`, roomNumber).Scan(&roomID, &status)
	if err == sql.ErrNoRows {
		return nil, action.NewError(action.KindNotFound, fmt.Sprintf("room %s not found", roomNumber))
	}
	if err != nil {
		return nil, err
	}

	machine, _ := env.Meta.StateMachineFor("Room")
	target, ok := machine.CanTransition(status, "check_in", params)
	if !ok {
		return nil, action.NewError(action.KindStateError,
			fmt.Sprintf("room %s cannot be checked into from state %s", roomNumber, status)).
			WithContext("current_state", status).
			WithContext("valid_alternatives", machine.ValidTargets(status))
	}

	guestID, err := findOrCreateGuest(ctx, env.Tx, guestName, stringParam(params, "phone"), stringParam(params, "id_number"))
	if err != nil {
		return nil, err
	}

	res, err := env.Tx.ExecContext(ctx,
		`INSERT INTO stay_records (guest_id, room_id, check_in_date, status, room_rate, deposit)
		 VALUES (?, ?, ?, 'active', ?, ?)`,
		guestID, roomID, checkInDate, params["room_rate"], params["deposit"])
	if err != nil {
		return nil, err
	}
	stayID, _ := res.LastInsertId()

	if _, err := env.Tx.ExecContext(ctx,
		`UPDATE rooms SET status = ? WHERE id = ?`, target, roomID); err != nil {
		return nil, err
	}

	env.Logger.Infow("walk-in check-in", "guest", guestName, "room", roomNumber, "stay_id", stayID)
	return map[string]any{
		"stay_id":     stayID,
		"guest_id":    guestID,
		"room_number": roomNumber,
		"room_status": target,
	}, nil
}

func updateRoomStatus(ctx context.Context, params map[string]any, env *action.Env) (any, error) {
	roomNumber := params["room_number"].(string)
	newStatus := params["new_status"].(string)

	var roomID int
	var current string
	err := env.Tx.QueryRowContext(ctx,
		`SELECT id, status FROM rooms WHERE room_number = ?`, roomNumber).Scan(&roomID, &current)
	if err == sql.ErrNoRows {
		return nil, action.NewError(action.KindNotFound, fmt.Sprintf("room %s not found", roomNumber))
	}
	if err != nil {
		return nil, err
	}

	if current == newStatus {
		return map[string]any{"room_number": roomNumber, "status": current, "changed": false}, nil
	}

	machine, _ := env.Meta.StateMachineFor("Room")
	trigger, err := transitionTrigger(machine, current, newStatus)
	if err != nil {
		return nil, action.NewError(action.KindStateError,
			fmt.Sprintf("room %s cannot move from %s to %s", roomNumber, current, newStatus)).
			WithContext("current_state", current).
			WithContext("valid_alternatives", machine.ValidTargets(current))
	}

	if _, err := env.Tx.ExecContext(ctx,
		`UPDATE rooms SET status = ? WHERE id = ?`, newStatus, roomID); err != nil {
		return nil, err
	}
	env.Logger.Infow("room status updated", "room", roomNumber, "from", current, "to", newStatus, "trigger", trigger)
	return map[string]any{"room_number": roomNumber, "status": newStatus, "changed": true}, nil
}

// semanticQueryHandler grounds loose entity/field hints against the
// registry, compiles the dot-path query, and executes it.
func semanticQueryHandler(executor *query.Executor, onto *ontology.Registry,
	rules *semantic.RuleApplicator) action.Handler {

	queryCompiler := semantic.NewQueryCompiler(onto, rules)
	pathCompiler := semantic.NewCompiler(semantic.NewResolver(onto))

	return func(ctx context.Context, params map[string]any, env *action.Env) (any, error) {
		eq := &semantic.ExtractedQuery{
			TargetEntityHint: params["root_object"].(string),
			TargetFieldsHint: stringSlice(params["fields"]),
		}
		if limit, ok := params["limit"].(int); ok {
			eq.Limit = limit
		}
		for _, raw := range anySlice(params["conditions"]) {
			cond, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			c := semantic.Condition{Value: cond["value"]}
			if f, ok := cond["field"].(string); ok {
				c.FieldHint = f
			}
			if op, ok := cond["operator"].(string); ok {
				c.Operator = semantic.FilterOperator(op)
			}
			eq.Conditions = append(eq.Conditions, c)
		}

		sq, confidence := queryCompiler.CompileExtracted(eq)
		if confidence == semantic.ConfidenceNone {
			return nil, action.NewError(action.KindNotFound,
				fmt.Sprintf("no entity matches %q", eq.TargetEntityHint))
		}

		structured, err := pathCompiler.Compile(sq)
		if err != nil {
			return nil, err
		}
		result, err := executor.Execute(ctx, structured)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"result":     result,
			"confidence": confidence,
		}, nil
	}
}

func findOrCreateGuest(ctx context.Context, tx *sql.Tx, name, phone, idNumber string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM guests WHERE name = ? AND (phone = ? OR ? = '')`, name, phone, phone).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO guests (name, phone, id_number) VALUES (?, ?, ?)`,
		name, nullIfEmpty(phone), nullIfEmpty(idNumber))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func anySlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
