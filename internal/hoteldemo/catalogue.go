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

// Package hoteldemo is the reference domain adapter: a small hotel front
// desk ontology with guests, rooms, room types, and stay records, plus the
// business actions operators invoke in natural language.
package hoteldemo

import (
	"fmt"

	"github.com/foyer-ai/foyer/pkg/ontology"
)

// Room states.
const (
	StateVacantClean = "vacant_clean"
	StateVacantDirty = "vacant_dirty"
	StateOccupied    = "occupied"
	StateMaintenance = "maintenance"
	StateOutOfOrder  = "out_of_order"
)

// RoomStates lists every room state, in display order.
var RoomStates = []string{
	StateVacantClean, StateVacantDirty, StateOccupied, StateMaintenance, StateOutOfOrder,
}

// BuildRegistry populates a fresh registry with the hotel catalogue.
// The registry is NOT frozen; callers register actions first.
func BuildRegistry() (*ontology.Registry, error) {
	reg := ontology.NewRegistry()

	guest := &ontology.EntityMetadata{
		Name:          "Guest",
		DisplayName:   "客人",
		Description:   "a hotel guest with identity and contact details",
		Category:      "crm",
		AggregateRoot: true,
	}
	guest.AddProperty(&ontology.PropertyMetadata{
		Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true, Security: ontology.SecurityInternal,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "name", Type: ontology.TypeString, DisplayName: "姓名", IsRequired: true,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "phone", Type: ontology.TypeString, DisplayName: "电话", PII: true,
		FormatRegex: `^1\d{10}$`,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "id_number", Type: ontology.TypeString, DisplayName: "证件号", PII: true,
		Security: ontology.SecurityConfidential,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "vip_level", Type: ontology.TypeEnum, DisplayName: "会员等级",
		EnumValues: []string{"none", "silver", "gold", "platinum"},
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "created_at", Type: ontology.TypeDatetime, DisplayName: "建档时间",
	})

	roomType := &ontology.EntityMetadata{
		Name:        "RoomType",
		DisplayName: "房型",
		Description: "a sellable room category with pricing",
		Category:    "inventory",
	}
	roomType.AddProperty(&ontology.PropertyMetadata{
		Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true, Security: ontology.SecurityInternal,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "name", Type: ontology.TypeString, DisplayName: "房型名称", IsRequired: true, IsUnique: true,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "base_price", Type: ontology.TypeNumber, DisplayName: "门市价",
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "capacity", Type: ontology.TypeInteger, DisplayName: "可住人数",
	})

	room := &ontology.EntityMetadata{
		Name:          "Room",
		DisplayName:   "房间",
		Description:   "a physical room with a housekeeping status",
		Category:      "inventory",
		AggregateRoot: true,
	}
	room.AddProperty(&ontology.PropertyMetadata{
		Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true, Security: ontology.SecurityInternal,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "room_number", Type: ontology.TypeString, DisplayName: "房号", IsRequired: true, IsUnique: true,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "floor", Type: ontology.TypeInteger, DisplayName: "楼层",
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "status", Type: ontology.TypeEnum, DisplayName: "房态",
		EnumValues: RoomStates, IsRequired: true,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "room_type_id", Type: ontology.TypeInteger, IsForeignKey: true,
		ForeignKeyTarget: "RoomType", Security: ontology.SecurityInternal,
	})

	stay := &ontology.EntityMetadata{
		Name:        "StayRecord",
		DisplayName: "入住记录",
		Description: "one guest's stay in one room",
		Category:    "operations",
	}
	stay.AddProperty(&ontology.PropertyMetadata{
		Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true, Security: ontology.SecurityInternal,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "guest_id", Type: ontology.TypeInteger, IsForeignKey: true,
		ForeignKeyTarget: "Guest", Security: ontology.SecurityInternal,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "room_id", Type: ontology.TypeInteger, IsForeignKey: true,
		ForeignKeyTarget: "Room", Security: ontology.SecurityInternal,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "check_in_date", Type: ontology.TypeDate, DisplayName: "入住日期", IsRequired: true,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "check_out_date", Type: ontology.TypeDate, DisplayName: "离店日期", IsNullable: true,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "status", Type: ontology.TypeEnum, DisplayName: "状态",
		EnumValues: []string{"active", "checked_out", "cancelled"}, IsRequired: true,
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "room_rate", Type: ontology.TypeNumber, DisplayName: "房费",
	}).AddProperty(&ontology.PropertyMetadata{
		Name: "deposit", Type: ontology.TypeNumber, DisplayName: "押金",
	})

	for _, e := range []*ontology.EntityMetadata{guest, roomType, room, stay} {
		if err := reg.RegisterEntity(e); err != nil {
			return nil, err
		}
	}

	rels := []struct {
		source string
		rel    *ontology.RelationshipMetadata
	}{
		{"Guest", &ontology.RelationshipMetadata{
			Target: "StayRecord", Attribute: "stays", Cardinality: ontology.OneToMany,
			ForeignKeyColumn: "guest_id", Description: "the guest's stay history",
		}},
		{"StayRecord", &ontology.RelationshipMetadata{
			Target: "Guest", Attribute: "guest", Cardinality: ontology.ManyToOne,
			ForeignKeyColumn: "guest_id",
		}},
		{"StayRecord", &ontology.RelationshipMetadata{
			Target: "Room", Attribute: "room", Cardinality: ontology.ManyToOne,
			ForeignKeyColumn: "room_id",
		}},
		{"Room", &ontology.RelationshipMetadata{
			Target: "StayRecord", Attribute: "stays", Cardinality: ontology.OneToMany,
			ForeignKeyColumn: "room_id",
		}},
		{"Room", &ontology.RelationshipMetadata{
			Target: "RoomType", Attribute: "room_type", Cardinality: ontology.ManyToOne,
			ForeignKeyColumn: "room_type_id",
		}},
		{"RoomType", &ontology.RelationshipMetadata{
			Target: "Room", Attribute: "rooms", Cardinality: ontology.OneToMany,
			ForeignKeyColumn: "room_type_id",
		}},
	}
	for _, r := range rels {
		if err := reg.RegisterRelationship(r.source, r.rel); err != nil {
			return nil, err
		}
	}

	if err := reg.RegisterStateMachine(roomStateMachine()); err != nil {
		return nil, err
	}

	if err := reg.RegisterConstraint(&ontology.Constraint{
		ID:       "CHECKIN_DATE_REQUIRED",
		Name:     "check-in requires a date",
		Severity: ontology.SeverityError,
		Entity:   "StayRecord",
		Action:   "walkin_checkin",
		Predicate: func(payload map[string]any) bool {
			v, ok := payload["check_in_date"]
			return ok && v != ""
		},
		Message: "入住日期不能为空",
	}); err != nil {
		return nil, err
	}
	if err := reg.RegisterConstraint(&ontology.Constraint{
		ID:       "DEPOSIT_NON_NEGATIVE",
		Name:     "deposit must not be negative",
		Severity: ontology.SeverityWarning,
		Entity:   "StayRecord",
		Action:   "walkin_checkin",
		Predicate: func(payload map[string]any) bool {
			d, ok := payload["deposit"].(float64)
			return !ok || d >= 0
		},
		Message: "押金为负数",
	}); err != nil {
		return nil, err
	}

	models := map[string]*ontology.ModelBinding{
		"Guest":      {Table: "guests", PrimaryKey: "id"},
		"RoomType":   {Table: "room_types", PrimaryKey: "id"},
		"Room":       {Table: "rooms", PrimaryKey: "id"},
		"StayRecord": {Table: "stay_records", PrimaryKey: "id"},
	}
	for entity, binding := range models {
		if err := reg.RegisterModel(entity, binding); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func roomStateMachine() *ontology.StateMachine {
	return &ontology.StateMachine{
		Entity:       "Room",
		States:       RoomStates,
		InitialState: StateVacantClean,
		Transitions: []ontology.StateTransition{
			{From: StateVacantClean, To: StateOccupied, Trigger: "check_in"},
			{From: StateOccupied, To: StateVacantDirty, Trigger: "check_out"},
			{From: StateVacantDirty, To: StateVacantClean, Trigger: "clean"},
			{From: StateVacantClean, To: StateMaintenance, Trigger: "start_maintenance"},
			{From: StateVacantDirty, To: StateMaintenance, Trigger: "start_maintenance"},
			{From: StateMaintenance, To: StateVacantDirty, Trigger: "finish_maintenance"},
			{From: StateVacantClean, To: StateOutOfOrder, Trigger: "take_out_of_order"},
			{From: StateVacantDirty, To: StateOutOfOrder, Trigger: "take_out_of_order"},
			{From: StateOutOfOrder, To: StateVacantDirty, Trigger: "return_to_service"},
		},
	}
}

// StateAliases maps operator jargon to canonical room states. The semantic
// rule applicator loads these when no rules file is configured.
func StateAliases() map[string]string {
	return map[string]string{
		"净房":  StateVacantClean,
		"脏房":  StateVacantDirty,
		"在住":  StateOccupied,
		"维修":  StateMaintenance,
		"停用":  StateOutOfOrder,
		"干净房": StateVacantClean,
	}
}

// transitionTrigger finds the trigger that moves a room from one state to
// another, if any edge exists.
func transitionTrigger(m *ontology.StateMachine, from, to string) (string, error) {
	for _, t := range m.Transitions {
		if t.From == from && t.To == to {
			return t.Trigger, nil
		}
	}
	return "", fmt.Errorf("no transition from %s to %s", from, to)
}
