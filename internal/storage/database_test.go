/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"testing"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := Open(Options{BaseDir: t.TempDir(), PageSize: 256, CachePages: 8, PreferredNodes: 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return db
}

func TestDatabase_MultiNodeExecutorDispatch(t *testing.T) {
	db, err := Open(Options{BaseDir: t.TempDir(), PageSize: 64, CachePages: 8, PreferredNodes: 4, ThreadsPerNode: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.CreateTable("t", []Column{{Name: "id", Type: Int}}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	for i := 0; i < 30; i++ {
		if _, err := db.Insert("t", []Value{IntValue(int32(i))}); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	rows, err := db.Select("t", nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 30 {
		t.Fatalf("expected 30 rows across multiple NUMA nodes, got %d", len(rows))
	}
}

func TestDatabase_CreateInsertSelect(t *testing.T) {
	db := openTestDatabase(t)
	defer db.Close()

	if err := db.CreateTable("users", []Column{
		{Name: "id", Type: Int},
		{Name: "name", Type: Text, Length: 16},
	}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := db.Insert("users", []Value{IntValue(1), TextValue("alice")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	rows, err := db.Select("users", nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestDatabase_CreateTableDuplicateRejected(t *testing.T) {
	db := openTestDatabase(t)
	defer db.Close()

	cols := []Column{{Name: "id", Type: Int}}
	if err := db.CreateTable("t", cols); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := db.CreateTable("t", cols); err == nil {
		t.Fatalf("expected duplicate table error")
	}
}

func TestDatabase_DropTableRemovesFile(t *testing.T) {
	db := openTestDatabase(t)
	defer db.Close()

	if err := db.CreateTable("t", []Column{{Name: "id", Type: Int}}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := db.DropTable("t"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := db.Select("t", nil); err == nil {
		t.Fatalf("expected error selecting from dropped table")
	}
}

func TestDatabase_UpdateAndDelete(t *testing.T) {
	db := openTestDatabase(t)
	defer db.Close()

	db.CreateTable("t", []Column{{Name: "id", Type: Int}, {Name: "status", Type: Text, Length: 8}})
	db.Insert("t", []Value{IntValue(1), TextValue("new")})
	db.Insert("t", []Value{IntValue(2), TextValue("new")})

	n, err := db.Update("t", &Predicate{ColumnIndex: 0, Value: IntValue(1)}, []int{1}, []Value{TextValue("done")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row updated, got %d", n)
	}

	n, err = db.Delete("t", &Predicate{ColumnIndex: 0, Value: IntValue(2)})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row deleted, got %d", n)
	}

	rows, _ := db.Select("t", nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row remaining, got %d", len(rows))
	}
}

func TestDatabase_AlterAddColumn(t *testing.T) {
	db := openTestDatabase(t)
	defer db.Close()

	db.CreateTable("t", []Column{{Name: "id", Type: Int}})
	db.Insert("t", []Value{IntValue(1)})

	if err := db.AlterAddColumn("t", Column{Name: "note", Type: Text, Length: 8}); err != nil {
		t.Fatalf("AlterAddColumn: %v", err)
	}
	schema, err := db.Schema("t")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if len(schema.Columns) != 2 {
		t.Fatalf("expected 2 columns after alter, got %d", len(schema.Columns))
	}

	rows, _ := db.Select("t", nil)
	if len(rows) != 1 || rows[0].Values[1].Text() != "" {
		t.Fatalf("unexpected row after alter: %+v", rows)
	}
}

func TestDatabase_RecoverAfterReopenWithoutClose(t *testing.T) {
	dir := t.TempDir()
	opts := Options{BaseDir: dir, PageSize: 256, CachePages: 8, PreferredNodes: 1}

	db, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.CreateTable("t", []Column{{Name: "id", Type: Int}}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := db.Insert("t", []Value{IntValue(9)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// Insert checkpoints internally, so a crash-recovery test needs the
	// log to still be meaningful: reopen and confirm the row persisted
	// through the checkpoint-then-reopen path.

	reopened, err := Open(opts)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer reopened.Close()

	rows, err := reopened.Select("t", nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 || rows[0].Values[0].Int() != 9 {
		t.Fatalf("expected row to survive reopen, got %+v", rows)
	}
}

func TestDatabase_ListTables(t *testing.T) {
	db := openTestDatabase(t)
	defer db.Close()

	db.CreateTable("a", []Column{{Name: "id", Type: Int}})
	db.CreateTable("b", []Column{{Name: "id", Type: Int}})

	tables := db.ListTables()
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %v", tables)
	}
}
