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
package ontology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guestEntity() *EntityMetadata {
	e := &EntityMetadata{Name: "Guest", DisplayName: "客人"}
	e.AddProperty(&PropertyMetadata{Name: "id", Type: TypeInteger, IsPrimaryKey: true})
	e.AddProperty(&PropertyMetadata{Name: "name", Type: TypeString, DisplayName: "姓名"})
	e.AddProperty(&PropertyMetadata{Name: "secret", Type: TypeString, Security: SecurityRestricted})
	return e
}

func TestRegisterEntity(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterEntity(guestEntity()))

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := reg.RegisterEntity(&EntityMetadata{Name: "guest"})
		var regErr *RegistryError
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, "DUPLICATE_NAME", regErr.Code)
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		e, ok := reg.Entity("GUEST")
		require.True(t, ok)
		assert.Equal(t, "Guest", e.Name)
	})

	t.Run("missing entity", func(t *testing.T) {
		_, ok := reg.Entity("Invoice")
		assert.False(t, ok)
	})
}

func TestFreezeFencesWrites(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterEntity(guestEntity()))
	reg.Freeze()
	require.True(t, reg.Frozen())

	err := reg.RegisterEntity(&EntityMetadata{Name: "Room"})
	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "REGISTRY_FROZEN", regErr.Code)

	err = reg.RegisterAction("", &ActionDefinition{Name: "noop"})
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "REGISTRY_FROZEN", regErr.Code)

	// Reads still work after freeze.
	_, ok := reg.Entity("Guest")
	assert.True(t, ok)
}

func TestRegisterRelationship(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterEntity(guestEntity()))

	rel := &RelationshipMetadata{Target: "StayRecord", Attribute: "stays", Cardinality: OneToMany}
	require.NoError(t, reg.RegisterRelationship("guest", rel))
	assert.Equal(t, "Guest", rel.Source, "source is canonicalized")

	t.Run("duplicate attribute rejected", func(t *testing.T) {
		err := reg.RegisterRelationship("Guest",
			&RelationshipMetadata{Target: "Other", Attribute: "stays", Cardinality: OneToMany})
		require.Error(t, err)
	})

	t.Run("unknown source rejected", func(t *testing.T) {
		err := reg.RegisterRelationship("Invoice",
			&RelationshipMetadata{Target: "Guest", Attribute: "guest", Cardinality: ManyToOne})
		require.Error(t, err)
	})

	got, ok := reg.Relationship("Guest", "stays")
	require.True(t, ok)
	assert.True(t, got.Cardinality.Collection())
}

func TestStateMachineValidate(t *testing.T) {
	tests := []struct {
		name    string
		machine StateMachine
		wantErr bool
	}{
		{
			name: "valid",
			machine: StateMachine{
				Entity: "Room", States: []string{"a", "b"}, InitialState: "a",
				Transitions: []StateTransition{{From: "a", To: "b", Trigger: "go"}},
			},
		},
		{
			name: "initial not in set",
			machine: StateMachine{
				Entity: "Room", States: []string{"a"}, InitialState: "z",
			},
			wantErr: true,
		},
		{
			name: "transition references unknown state",
			machine: StateMachine{
				Entity: "Room", States: []string{"a"}, InitialState: "a",
				Transitions: []StateTransition{{From: "a", To: "b", Trigger: "go"}},
			},
			wantErr: true,
		},
		{
			name: "ambiguous trigger without condition",
			machine: StateMachine{
				Entity: "Room", States: []string{"a", "b", "c"}, InitialState: "a",
				Transitions: []StateTransition{
					{From: "a", To: "b", Trigger: "go"},
					{From: "a", To: "c", Trigger: "go"},
				},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.machine.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStateMachineTransitions(t *testing.T) {
	m := &StateMachine{
		Entity: "Room",
		States: []string{"vacant_clean", "occupied", "vacant_dirty"},
		InitialState: "vacant_clean",
		Transitions: []StateTransition{
			{From: "vacant_clean", To: "occupied", Trigger: "check_in"},
			{From: "occupied", To: "vacant_dirty", Trigger: "check_out"},
		},
	}
	require.NoError(t, m.Validate())

	to, ok := m.CanTransition("vacant_clean", "check_in", nil)
	require.True(t, ok)
	assert.Equal(t, "occupied", to)

	_, ok = m.CanTransition("occupied", "check_in", nil)
	assert.False(t, ok)

	assert.Equal(t, []string{"vacant_dirty"}, m.ValidTargets("occupied"))
	assert.Empty(t, m.ValidTargets("vacant_dirty"))
}

func TestExportSchemaOmitsRestricted(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterEntity(guestEntity()))
	reg.Freeze()

	export := reg.ExportSchema()
	require.Len(t, export.Entities, 1)
	names := make([]string, 0, len(export.Entities[0].Properties))
	for _, p := range export.Entities[0].Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"id", "name"}, names)
}

func TestActionRoleAllowed(t *testing.T) {
	open := &ActionDefinition{Name: "x"}
	assert.True(t, open.RoleAllowed("anyone"))

	closed := &ActionDefinition{Name: "y", AllowedRoles: []string{"manager"}}
	assert.True(t, closed.RoleAllowed("manager"))
	assert.False(t, closed.RoleAllowed("front_desk"))
}

func TestConstraintsFor(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterEntity(guestEntity()))
	require.NoError(t, reg.RegisterConstraint(&Constraint{
		ID: "C1", Entity: "Guest", Action: "checkin", Severity: SeverityError,
	}))
	require.NoError(t, reg.RegisterConstraint(&Constraint{
		ID: "C2", Entity: "Guest", Severity: SeverityWarning,
	}))

	assert.Len(t, reg.ConstraintsFor("Guest", "checkin"), 2)
	assert.Len(t, reg.ConstraintsFor("Guest", "other"), 1, "action-bound constraint filtered out")
	assert.Empty(t, reg.ConstraintsFor("Room", "checkin"))

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := reg.RegisterConstraint(&Constraint{ID: "C1", Entity: "Guest"})
		require.Error(t, err)
	})
}
