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
package query

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/foyer-ai/foyer/internal/sqlitedriver"
	"github.com/foyer-ai/foyer/pkg/ontology"
	"github.com/foyer-ai/foyer/pkg/semantic"
)

func fixtureRegistry(t *testing.T) *ontology.Registry {
	t.Helper()
	reg := ontology.NewRegistry()

	guest := &ontology.EntityMetadata{Name: "Guest", DisplayName: "客人"}
	guest.AddProperty(&ontology.PropertyMetadata{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true})
	guest.AddProperty(&ontology.PropertyMetadata{Name: "name", Type: ontology.TypeString, DisplayName: "姓名"})

	roomType := &ontology.EntityMetadata{Name: "RoomType", DisplayName: "房型"}
	roomType.AddProperty(&ontology.PropertyMetadata{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true})
	roomType.AddProperty(&ontology.PropertyMetadata{Name: "name", Type: ontology.TypeString, DisplayName: "房型名称"})

	room := &ontology.EntityMetadata{Name: "Room", DisplayName: "房间"}
	room.AddProperty(&ontology.PropertyMetadata{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true})
	room.AddProperty(&ontology.PropertyMetadata{Name: "room_number", Type: ontology.TypeString, DisplayName: "房号"})
	room.AddProperty(&ontology.PropertyMetadata{Name: "floor", Type: ontology.TypeInteger, DisplayName: "楼层"})
	room.AddProperty(&ontology.PropertyMetadata{Name: "status", Type: ontology.TypeEnum, DisplayName: "房态"})
	room.AddProperty(&ontology.PropertyMetadata{Name: "room_type_id", Type: ontology.TypeInteger, IsForeignKey: true})

	stay := &ontology.EntityMetadata{Name: "StayRecord", DisplayName: "入住记录"}
	stay.AddProperty(&ontology.PropertyMetadata{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true})
	stay.AddProperty(&ontology.PropertyMetadata{Name: "guest_id", Type: ontology.TypeInteger, IsForeignKey: true})
	stay.AddProperty(&ontology.PropertyMetadata{Name: "room_id", Type: ontology.TypeInteger, IsForeignKey: true})
	stay.AddProperty(&ontology.PropertyMetadata{Name: "check_in_date", Type: ontology.TypeDate, DisplayName: "入住日期"})
	stay.AddProperty(&ontology.PropertyMetadata{Name: "status", Type: ontology.TypeEnum, DisplayName: "状态"})

	for _, e := range []*ontology.EntityMetadata{guest, roomType, room, stay} {
		require.NoError(t, reg.RegisterEntity(e))
	}
	require.NoError(t, reg.RegisterRelationship("Room", &ontology.RelationshipMetadata{
		Target: "RoomType", Attribute: "room_type", Cardinality: ontology.ManyToOne, ForeignKeyColumn: "room_type_id",
	}))
	require.NoError(t, reg.RegisterRelationship("Guest", &ontology.RelationshipMetadata{
		Target: "StayRecord", Attribute: "stays", Cardinality: ontology.OneToMany, ForeignKeyColumn: "guest_id",
	}))
	require.NoError(t, reg.RegisterRelationship("StayRecord", &ontology.RelationshipMetadata{
		Target: "Room", Attribute: "room", Cardinality: ontology.ManyToOne, ForeignKeyColumn: "room_id",
	}))

	require.NoError(t, reg.RegisterModel("Guest", &ontology.ModelBinding{Entity: "Guest", Table: "guests", PrimaryKey: "id"}))
	require.NoError(t, reg.RegisterModel("RoomType", &ontology.ModelBinding{Entity: "RoomType", Table: "room_types", PrimaryKey: "id"}))
	require.NoError(t, reg.RegisterModel("Room", &ontology.ModelBinding{Entity: "Room", Table: "rooms", PrimaryKey: "id"}))
	require.NoError(t, reg.RegisterModel("StayRecord", &ontology.ModelBinding{Entity: "StayRecord", Table: "stay_records", PrimaryKey: "id"}))
	return reg
}

func fixtureStore(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE guests (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE room_types (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE rooms (id INTEGER PRIMARY KEY, room_number TEXT, floor INTEGER, status TEXT, room_type_id INTEGER)`,
		`CREATE TABLE stay_records (id INTEGER PRIMARY KEY, guest_id INTEGER, room_id INTEGER, check_in_date TEXT, status TEXT)`,

		`INSERT INTO guests VALUES (1, '张三'), (2, '李四')`,
		`INSERT INTO room_types VALUES (1, '标准大床房'), (2, '行政套房')`,
		`INSERT INTO rooms VALUES
			(1, '201', 2, 'occupied', 1),
			(2, '202', 2, 'vacant_clean', 1),
			(3, '301', 3, 'vacant_clean', 2),
			(4, '302', 3, 'maintenance', 2)`,
		`INSERT INTO stay_records VALUES
			(1, 1, 1, '2026-08-20', 'active'),
			(2, 1, 2, '2026-07-01', 'checked_out'),
			(3, 2, 3, '2026-06-15', 'checked_out')`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
	return db
}

func fixtureExecutor(t *testing.T) *Executor {
	return NewExecutor(fixtureRegistry(t), fixtureStore(t))
}

func compile(t *testing.T, reg *ontology.Registry, q *semantic.SemanticQuery) *semantic.StructuredQuery {
	t.Helper()
	structured, err := semantic.NewCompiler(semantic.NewResolver(reg)).Compile(q)
	require.NoError(t, err)
	return structured
}

func TestExecuteSimpleSelect(t *testing.T) {
	reg := fixtureRegistry(t)
	e := NewExecutor(reg, fixtureStore(t))

	result, err := e.Execute(context.Background(), compile(t, reg, &semantic.SemanticQuery{
		Root:    "Room",
		Fields:  []string{"room_number", "floor"},
		Filters: []semantic.SemanticFilter{{Path: "status", Operator: semantic.OpEq, Value: "vacant_clean"}},
		OrderBy: []semantic.OrderBy{{Path: "room_number"}},
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"房号", "楼层"}, result.Columns)
	assert.Equal(t, [][]string{{"202", "2"}, {"301", "3"}}, result.Rows)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "共 2 条记录", result.Summary)
}

func TestExecuteJoinedSelect(t *testing.T) {
	reg := fixtureRegistry(t)
	e := NewExecutor(reg, fixtureStore(t))

	result, err := e.Execute(context.Background(), compile(t, reg, &semantic.SemanticQuery{
		Root:    "Room",
		Fields:  []string{"room_number", "room_type.name"},
		Filters: []semantic.SemanticFilter{{Path: "room_type.name", Operator: semantic.OpEq, Value: "行政套房"}},
		OrderBy: []semantic.OrderBy{{Path: "room_number"}},
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"房号", "房型名称"}, result.Columns)
	assert.Equal(t, [][]string{{"301", "行政套房"}, {"302", "行政套房"}}, result.Rows)
}

func TestExecuteCollectionJoinDeduplicates(t *testing.T) {
	reg := fixtureRegistry(t)
	e := NewExecutor(reg, fixtureStore(t))

	// Guest 1 has two stays; without DISTINCT the join would duplicate the
	// guest row. Collection joins force DISTINCT automatically.
	result, err := e.Execute(context.Background(), compile(t, reg, &semantic.SemanticQuery{
		Root:    "Guest",
		Fields:  []string{"name"},
		Filters: []semantic.SemanticFilter{{Path: "stays.room.floor", Operator: semantic.OpEq, Value: 2}},
	}))
	require.NoError(t, err)

	assert.Contains(t, result.SQL, "SELECT DISTINCT")
	assert.Equal(t, [][]string{{"张三"}}, result.Rows)
}

func TestExecuteAutoSelectSkipsKeys(t *testing.T) {
	reg := fixtureRegistry(t)
	e := NewExecutor(reg, fixtureStore(t))

	result, err := e.Execute(context.Background(), compile(t, reg, &semantic.SemanticQuery{
		Root:  "Room",
		Limit: 1,
	}))
	require.NoError(t, err)

	// Primary and foreign keys stay out of the projection.
	assert.Equal(t, []string{"room_number", "floor", "status"}, result.Paths)
	assert.Equal(t, 1, result.Count)
}

func TestExecuteLikeWrapsPattern(t *testing.T) {
	reg := fixtureRegistry(t)
	e := NewExecutor(reg, fixtureStore(t))

	result, err := e.Execute(context.Background(), compile(t, reg, &semantic.SemanticQuery{
		Root:    "Guest",
		Fields:  []string{"name"},
		Filters: []semantic.SemanticFilter{{Path: "name", Operator: semantic.OpLike, Value: "张"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"张三"}}, result.Rows)
}

func TestExecuteInOperator(t *testing.T) {
	reg := fixtureRegistry(t)
	e := NewExecutor(reg, fixtureStore(t))

	result, err := e.Execute(context.Background(), compile(t, reg, &semantic.SemanticQuery{
		Root:    "Room",
		Fields:  []string{"room_number"},
		Filters: []semantic.SemanticFilter{{Path: "status", Operator: semantic.OpIn, Value: []string{"occupied", "maintenance"}}},
		OrderBy: []semantic.OrderBy{{Path: "room_number"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"201"}, {"302"}}, result.Rows)
}

func TestExecuteDateFormatting(t *testing.T) {
	reg := fixtureRegistry(t)
	e := NewExecutor(reg, fixtureStore(t))

	result, err := e.Execute(context.Background(), compile(t, reg, &semantic.SemanticQuery{
		Root:    "StayRecord",
		Fields:  []string{"check_in_date"},
		Filters: []semantic.SemanticFilter{{Path: "status", Operator: semantic.OpEq, Value: "active"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2026-08-20"}}, result.Rows)
}

func TestExecuteAggregateGroupBy(t *testing.T) {
	reg := fixtureRegistry(t)
	e := NewExecutor(reg, fixtureStore(t))

	result, err := e.Execute(context.Background(), compile(t, reg, &semantic.SemanticQuery{
		Root:      "Room",
		Aggregate: &semantic.Aggregate{Func: semantic.AggCount, GroupBy: []string{"status"}},
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"房态", "count"}, result.Columns)
	counts := make(map[string]string)
	for _, row := range result.Rows {
		counts[row[0]] = row[1]
	}
	assert.Equal(t, "2", counts["vacant_clean"])
	assert.Equal(t, "1", counts["occupied"])
	assert.Equal(t, "1", counts["maintenance"])
}

func TestExecuteAggregateDegradesToCount(t *testing.T) {
	reg := fixtureRegistry(t)
	e := NewExecutor(reg, fixtureStore(t))

	// The aggregate path does not resolve; the executor degrades to COUNT(*)
	// instead of failing the whole query.
	result, err := e.Execute(context.Background(), &semantic.StructuredQuery{
		Root:      "Room",
		Aggregate: &semantic.Aggregate{Func: semantic.AggSum, Path: "no_such_property", Alias: "total"},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "4", result.Rows[0][0])
}

func TestFormatValue(t *testing.T) {
	dateProp := &ontology.PropertyMetadata{Name: "d", Type: ontology.TypeDate}
	boolProp := &ontology.PropertyMetadata{Name: "b", Type: ontology.TypeBoolean}

	assert.Equal(t, "", FormatValue(dateProp, nil))
	assert.Equal(t, "2026-08-20", FormatValue(dateProp, "2026-08-20T00:00:00Z"))
	assert.Equal(t, "true", FormatValue(boolProp, int64(1)))
	assert.Equal(t, "false", FormatValue(boolProp, int64(0)))
	assert.Equal(t, "42", FormatValue(nil, int64(42)))
}
