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

// Package storage implements a fixed-length-record table engine: schemas,
// on-disk record encoding, a text write-ahead log, a catalog, and the
// table and database types that tie them together with NUMA-sharded page
// caches underneath.
package storage

import (
	"encoding/binary"
	"strconv"
	"strings"

	dberrors "numadb/internal/errors"
)

// ColumnType identifies a column's storage representation.
type ColumnType int

const (
	// Int is a 4-byte little-endian signed integer.
	Int ColumnType = iota
	// Text is a NUL-padded fixed-length byte string.
	Text
)

// String renders a ColumnType the way it appears in a catalog line.
func (t ColumnType) String() string {
	if t == Text {
		return "TEXT"
	}
	return "INT"
}

// DefaultTextLength is used for a TEXT column declared without an explicit
// length.
const DefaultTextLength = 64

// Column describes one field of a table's schema.
type Column struct {
	Name   string
	Type   ColumnType
	Length int // only meaningful for Text; byte width on disk
}

// dataSize returns how many bytes this column occupies in an encoded
// record, not counting the record's leading validity byte.
func (c Column) dataSize() int {
	if c.Type == Text {
		return c.Length
	}
	return 4
}

// Schema is an ordered, case-insensitively addressable list of columns.
type Schema struct {
	Columns    []Column
	columnByLC map[string]int
}

// NewSchema builds a Schema from columns, rejecting duplicate names
// (case-insensitive) or any column with an empty name.
func NewSchema(columns []Column) (*Schema, error) {
	if len(columns) == 0 {
		return nil, dberrors.EmptySchema()
	}
	byLC := make(map[string]int, len(columns))
	for i, c := range columns {
		if strings.TrimSpace(c.Name) == "" {
			return nil, dberrors.EmptyColumnName()
		}
		lc := strings.ToLower(c.Name)
		if _, exists := byLC[lc]; exists {
			return nil, dberrors.DuplicateColumn(c.Name)
		}
		byLC[lc] = i
	}
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Schema{Columns: cols, columnByLC: byLC}, nil
}

// ColumnIndex returns the position of name (case-insensitive), or -1 if
// the schema has no such column.
func (s *Schema) ColumnIndex(name string) int {
	if idx, ok := s.columnByLC[strings.ToLower(name)]; ok {
		return idx
	}
	return -1
}

// DataSize is the total encoded width of every column, excluding the
// leading validity byte.
func (s *Schema) DataSize() int {
	total := 0
	for _, c := range s.Columns {
		total += c.dataSize()
	}
	return total
}

// RecordSize is DataSize plus the one-byte validity flag that precedes
// every encoded record on disk.
func (s *Schema) RecordSize() int {
	return 1 + s.DataSize()
}

// DefaultValues returns the zero value for every column, in schema order:
// 0 for Int, "" for Text.
func (s *Schema) DefaultValues() []Value {
	vals := make([]Value, len(s.Columns))
	for i, c := range s.Columns {
		if c.Type == Text {
			vals[i] = TextValue("")
		} else {
			vals[i] = IntValue(0)
		}
	}
	return vals
}

// Normalize coerces value to column's declared type: a Text column accepts
// an Int value by formatting it, and an Int column accepts a Text value if
// it parses as a base-10 integer within int32 range.
func (s *Schema) Normalize(col Column, value Value) (Value, error) {
	switch col.Type {
	case Int:
		if value.IsText() {
			n, err := strconv.ParseInt(strings.TrimSpace(value.Text()), 10, 64)
			if err != nil || n < -2147483648 || n > 2147483647 {
				return Value{}, dberrors.IntOutOfRange(col.Name)
			}
			return IntValue(int32(n)), nil
		}
		return value, nil
	case Text:
		if value.IsInt() {
			value = TextValue(strconv.FormatInt(int64(value.Int()), 10))
		}
		if len(value.Text()) > col.Length {
			return Value{}, dberrors.TextTooLong(col.Name, col.Length, len(value.Text()))
		}
		return value, nil
	default:
		return value, nil
	}
}

// ValidateValues checks that values has exactly one entry per column and
// normalizes each to its column's type.
func (s *Schema) ValidateValues(values []Value) ([]Value, error) {
	if len(values) != len(s.Columns) {
		return nil, dberrors.ValueCountMismatch(len(s.Columns), len(values))
	}
	out := make([]Value, len(values))
	for i, col := range s.Columns {
		v, err := s.Normalize(col, values[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EncodeRecord writes valid and values into a RecordSize()-length byte
// slice: byte 0 is the validity flag, followed by each column in
// declaration order (4-byte little-endian int, or NUL-padded text).
func (s *Schema) EncodeRecord(values []Value, valid bool) ([]byte, error) {
	if len(values) != len(s.Columns) {
		return nil, dberrors.ValueCountMismatch(len(s.Columns), len(values))
	}
	buf := make([]byte, s.RecordSize())
	if valid {
		buf[0] = 1
	}
	offset := 1
	for i, col := range s.Columns {
		v := values[i]
		switch col.Type {
		case Int:
			binary.LittleEndian.PutUint32(buf[offset:offset+4], uint32(v.Int()))
			offset += 4
		case Text:
			text := v.Text()
			if len(text) > col.Length {
				return nil, dberrors.TextTooLong(col.Name, col.Length, len(text))
			}
			copy(buf[offset:offset+col.Length], []byte(text))
			offset += col.Length
		}
	}
	return buf, nil
}

// DecodeRecord reverses EncodeRecord, returning the validity flag and the
// decoded column values. A Text column's value stops at its first NUL
// byte.
func (s *Schema) DecodeRecord(buf []byte) (bool, []Value, error) {
	if len(buf) != s.RecordSize() {
		return false, nil, dberrors.RecordSizeMismatch(uint32(s.RecordSize()), uint32(len(buf)))
	}
	valid := buf[0] != 0
	values := make([]Value, len(s.Columns))
	offset := 1
	for i, col := range s.Columns {
		switch col.Type {
		case Int:
			n := binary.LittleEndian.Uint32(buf[offset : offset+4])
			values[i] = IntValue(int32(n))
			offset += 4
		case Text:
			raw := buf[offset : offset+col.Length]
			if nul := indexByte(raw, 0); nul >= 0 {
				raw = raw[:nul]
			}
			values[i] = TextValue(string(raw))
			offset += col.Length
		}
	}
	return valid, values, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// ParseColumnType parses a catalog-line type token such as "INT" or
// "TEXT(32)". An unqualified "TEXT" defaults to DefaultTextLength.
func ParseColumnType(token string) (ColumnType, int, error) {
	token = strings.TrimSpace(token)
	upper := strings.ToUpper(token)
	if upper == "INT" {
		return Int, 4, nil
	}
	if strings.HasPrefix(upper, "TEXT") {
		rest := strings.TrimPrefix(upper, "TEXT")
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return Text, DefaultTextLength, nil
		}
		if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
			return 0, 0, dberrors.TypeMismatch("<catalog>", "TEXT(n)", token)
		}
		n, err := strconv.Atoi(rest[1 : len(rest)-1])
		if err != nil || n <= 0 {
			return 0, 0, dberrors.TypeMismatch("<catalog>", "TEXT(n)", token)
		}
		return Text, n, nil
	}
	return 0, 0, dberrors.TypeMismatch("<catalog>", "INT|TEXT(n)", token)
}

// FormatColumnType renders a ColumnType the way it is written to the
// catalog file.
func FormatColumnType(t ColumnType, length int) string {
	if t == Text {
		return "TEXT(" + strconv.Itoa(length) + ")"
	}
	return "INT"
}
