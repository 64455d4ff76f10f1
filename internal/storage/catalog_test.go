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
	"os"
	"path/filepath"
	"testing"
)

func TestCatalog_LoadMissingFileIsEmpty(t *testing.T) {
	c := NewCatalog(filepath.Join(t.TempDir(), "catalog.meta"))
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.ListTables()) != 0 {
		t.Fatalf("expected empty catalog")
	}
}

func TestCatalog_CreateDropAlterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.meta")
	c := NewCatalog(path)
	schema := mustSchema(t, []Column{{Name: "id", Type: Int}, {Name: "name", Type: Text, Length: 16}})
	if err := c.CreateTable("users", schema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	reloaded := NewCatalog(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := reloaded.GetSchema("USERS")
	if err != nil {
		t.Fatalf("GetSchema: %v", err)
	}
	if len(got.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(got.Columns))
	}

	newSchema := mustSchema(t, []Column{
		{Name: "id", Type: Int}, {Name: "name", Type: Text, Length: 16}, {Name: "age", Type: Int},
	})
	if err := c.AlterAddColumn("users", newSchema); err != nil {
		t.Fatalf("AlterAddColumn: %v", err)
	}

	if err := c.DropTable("users"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := c.GetSchema("users"); err == nil {
		t.Fatalf("expected error after drop")
	}
}

func TestCatalog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.meta")
	contents := "good|id:INT\nnotvalid\nbad|col:FLOAT\nalsogood|name:TEXT(8)\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c := NewCatalog(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	tables := c.ListTables()
	if len(tables) != 2 {
		t.Fatalf("expected 2 well-formed tables to survive, got %v", tables)
	}
}

func TestCatalog_CreateTableDuplicateRejected(t *testing.T) {
	c := NewCatalog(filepath.Join(t.TempDir(), "catalog.meta"))
	schema := mustSchema(t, []Column{{Name: "id", Type: Int}})
	if err := c.CreateTable("t", schema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := c.CreateTable("T", schema); err == nil {
		t.Fatalf("expected duplicate table error")
	}
}
