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

import "testing"

func TestDatabase_ExecuteDispatchesEveryStatementKind(t *testing.T) {
	db := openTestDatabase(t)
	defer db.Close()

	if _, err := db.Execute(Statement{
		Kind:    StatementCreateTable,
		Table:   "t",
		Columns: []Column{{Name: "id", Type: Int}, {Name: "note", Type: Text, Length: 8}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := db.Execute(Statement{Kind: StatementInsert, Table: "t", Values: []Value{IntValue(1), TextValue("a")}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.RowID != 0 {
		t.Fatalf("expected first row id 0, got %d", res.RowID)
	}

	res, err = db.Execute(Statement{Kind: StatementSelect, Table: "t"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}

	res, err = db.Execute(Statement{
		Kind: StatementUpdate, Table: "t",
		Predicate:  &Predicate{ColumnIndex: 0, Value: IntValue(1)},
		SetColumns: []int{1}, SetValues: []Value{TextValue("b")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.AffectedRows != 1 {
		t.Fatalf("expected 1 affected row, got %d", res.AffectedRows)
	}

	if _, err := db.Execute(Statement{
		Kind: StatementAlterTableAdd, Table: "t",
		NewColumn: Column{Name: "extra", Type: Int},
	}); err != nil {
		t.Fatalf("alter: %v", err)
	}

	res, err = db.Execute(Statement{Kind: StatementDelete, Table: "t", Predicate: &Predicate{ColumnIndex: 0, Value: IntValue(1)}})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.AffectedRows != 1 {
		t.Fatalf("expected 1 deleted row, got %d", res.AffectedRows)
	}

	if _, err := db.Execute(Statement{Kind: StatementDropTable, Table: "t"}); err != nil {
		t.Fatalf("drop: %v", err)
	}
}

func TestDatabase_ExecuteUnknownKind(t *testing.T) {
	db := openTestDatabase(t)
	defer db.Close()

	if _, err := db.Execute(Statement{Kind: StatementKind(99)}); err == nil {
		t.Fatalf("expected error for unknown statement kind")
	}
}
