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
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/foyer-ai/foyer/internal/sqlitedriver"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS guests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	phone TEXT,
	id_number TEXT,
	vip_level TEXT DEFAULT 'none',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS room_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	base_price REAL,
	capacity INTEGER
);

CREATE TABLE IF NOT EXISTS rooms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_number TEXT NOT NULL UNIQUE,
	floor INTEGER,
	status TEXT NOT NULL DEFAULT 'vacant_clean',
	room_type_id INTEGER REFERENCES room_types(id)
);

CREATE TABLE IF NOT EXISTS stay_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guest_id INTEGER NOT NULL REFERENCES guests(id),
	room_id INTEGER NOT NULL REFERENCES rooms(id),
	check_in_date TEXT NOT NULL,
	check_out_date TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	room_rate REAL,
	deposit REAL
);
`

// OpenStore opens (or creates) the business row store at path and ensures
// the schema exists. ":memory:" works for tests.
func OpenStore(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	for _, p := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", p, err)
		}
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}
	return db, nil
}

// Seed loads the demo dataset: three room types, six rooms, two guests, and
// one active stay (张三 in room 201). Idempotent per empty database only.
func Seed(db *sql.DB) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM rooms`).Scan(&n); err != nil {
		return fmt.Errorf("failed to check seed state: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO room_types (name, base_price, capacity) VALUES (?, ?, ?)`, []any{"标准大床房", 288.0, 2}},
		{`INSERT INTO room_types (name, base_price, capacity) VALUES (?, ?, ?)`, []any{"标准双床房", 318.0, 2}},
		{`INSERT INTO room_types (name, base_price, capacity) VALUES (?, ?, ?)`, []any{"行政套房", 688.0, 3}},

		{`INSERT INTO rooms (room_number, floor, status, room_type_id) VALUES (?, ?, ?, ?)`, []any{"201", 2, StateOccupied, 1}},
		{`INSERT INTO rooms (room_number, floor, status, room_type_id) VALUES (?, ?, ?, ?)`, []any{"202", 2, StateVacantClean, 1}},
		{`INSERT INTO rooms (room_number, floor, status, room_type_id) VALUES (?, ?, ?, ?)`, []any{"203", 2, StateVacantDirty, 2}},
		{`INSERT INTO rooms (room_number, floor, status, room_type_id) VALUES (?, ?, ?, ?)`, []any{"301", 3, StateVacantClean, 2}},
		{`INSERT INTO rooms (room_number, floor, status, room_type_id) VALUES (?, ?, ?, ?)`, []any{"302", 3, StateMaintenance, 3}},
		{`INSERT INTO rooms (room_number, floor, status, room_type_id) VALUES (?, ?, ?, ?)`, []any{"303", 3, StateVacantClean, 3}},

		{`INSERT INTO guests (name, phone, id_number, vip_level) VALUES (?, ?, ?, ?)`, []any{"张三", "13800138000", "110101199001011234", "gold"}},
		{`INSERT INTO guests (name, phone, id_number, vip_level) VALUES (?, ?, ?, ?)`, []any{"李四", "13900139000", "110101199202022345", "none"}},

		{`INSERT INTO stay_records (guest_id, room_id, check_in_date, status, room_rate, deposit)
		  VALUES (?, ?, ?, ?, ?, ?)`, []any{1, 1, "2026-08-20", "active", 288.0, 200.0}},
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s.sql, s.args...); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	}
	return tx.Commit()
}
