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

import dberrors "numadb/internal/errors"

// StatementKind identifies which operation a Statement carries.
type StatementKind int

const (
	StatementCreateTable StatementKind = iota
	StatementDropTable
	StatementAlterTableAdd
	StatementInsert
	StatementSelect
	StatementUpdate
	StatementDelete
)

// Statement is the single value an external SQL tokenizer/parser hands to
// Database.Execute. Only the fields relevant to Kind are read; the caller
// is responsible for building a well-formed Statement for its kind.
type Statement struct {
	Kind  StatementKind
	Table string

	Columns    []Column // StatementCreateTable
	NewColumn  Column   // StatementAlterTableAdd
	Values     []Value  // StatementInsert
	Predicate  *Predicate // StatementSelect / StatementUpdate / StatementDelete
	SetColumns []int      // StatementUpdate
	SetValues  []Value    // StatementUpdate
}

// ExecResult carries whichever result shape a Statement produced.
type ExecResult struct {
	RowID        uint64
	Rows         []Row
	AffectedRows int
}

// Execute is the single entry point an external parser drives: it accepts
// the Statement value the tokenizer/parser produced and dispatches to the
// matching Database operation, without this module depending on the parser
// itself.
func (db *Database) Execute(stmt Statement) (ExecResult, error) {
	switch stmt.Kind {
	case StatementCreateTable:
		return ExecResult{}, db.CreateTable(stmt.Table, stmt.Columns)
	case StatementDropTable:
		return ExecResult{}, db.DropTable(stmt.Table)
	case StatementAlterTableAdd:
		return ExecResult{}, db.AlterAddColumn(stmt.Table, stmt.NewColumn)
	case StatementInsert:
		rowID, err := db.Insert(stmt.Table, stmt.Values)
		return ExecResult{RowID: rowID}, err
	case StatementSelect:
		rows, err := db.Select(stmt.Table, stmt.Predicate)
		return ExecResult{Rows: rows}, err
	case StatementUpdate:
		n, err := db.Update(stmt.Table, stmt.Predicate, stmt.SetColumns, stmt.SetValues)
		return ExecResult{AffectedRows: n}, err
	case StatementDelete:
		n, err := db.Delete(stmt.Table, stmt.Predicate)
		return ExecResult{AffectedRows: n}, err
	default:
		return ExecResult{}, dberrors.UnknownStatement()
	}
}
