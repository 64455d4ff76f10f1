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

func mustSchema(t *testing.T, columns []Column) *Schema {
	t.Helper()
	s, err := NewSchema(columns)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestNewSchema_RejectsDuplicateColumn(t *testing.T) {
	_, err := NewSchema([]Column{
		{Name: "id", Type: Int},
		{Name: "ID", Type: Text, Length: 8},
	})
	if err == nil {
		t.Fatalf("expected duplicate column error")
	}
}

func TestNewSchema_RejectsEmptyColumnName(t *testing.T) {
	_, err := NewSchema([]Column{{Name: "  ", Type: Int}})
	if err == nil {
		t.Fatalf("expected empty column name error")
	}
}

func TestNewSchema_RejectsEmptySchema(t *testing.T) {
	if _, err := NewSchema(nil); err == nil {
		t.Fatalf("expected empty schema error")
	}
}

func TestSchema_ColumnIndexCaseInsensitive(t *testing.T) {
	s := mustSchema(t, []Column{{Name: "Name", Type: Text, Length: 16}})
	if s.ColumnIndex("name") != 0 {
		t.Fatalf("expected case-insensitive lookup to find column 0")
	}
	if s.ColumnIndex("missing") != -1 {
		t.Fatalf("expected -1 for unknown column")
	}
}

func TestSchema_RecordSize(t *testing.T) {
	s := mustSchema(t, []Column{
		{Name: "id", Type: Int},
		{Name: "name", Type: Text, Length: 16},
	})
	// 1 validity byte + 4 bytes int + 16 bytes text.
	if s.RecordSize() != 21 {
		t.Fatalf("expected record size 21, got %d", s.RecordSize())
	}
}

func TestSchema_EncodeDecodeRoundTrip(t *testing.T) {
	s := mustSchema(t, []Column{
		{Name: "id", Type: Int},
		{Name: "name", Type: Text, Length: 16},
	})
	values := []Value{IntValue(42), TextValue("alice")}
	record, err := s.EncodeRecord(values, true)
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	if len(record) != s.RecordSize() {
		t.Fatalf("expected %d bytes, got %d", s.RecordSize(), len(record))
	}
	valid, decoded, err := s.DecodeRecord(record)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if !valid {
		t.Fatalf("expected valid record")
	}
	if decoded[0].Int() != 42 || decoded[1].Text() != "alice" {
		t.Fatalf("unexpected decoded values: %+v", decoded)
	}
}

func TestSchema_DecodeTombstone(t *testing.T) {
	s := mustSchema(t, []Column{{Name: "id", Type: Int}})
	record, _ := s.EncodeRecord([]Value{IntValue(1)}, false)
	valid, _, err := s.DecodeRecord(record)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if valid {
		t.Fatalf("expected tombstoned record to decode as invalid")
	}
}

func TestSchema_NormalizeTextToInt(t *testing.T) {
	s := mustSchema(t, []Column{{Name: "id", Type: Int}})
	v, err := s.Normalize(s.Columns[0], TextValue("123"))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if v.Int() != 123 {
		t.Fatalf("expected 123, got %d", v.Int())
	}
}

func TestSchema_NormalizeIntOutOfRange(t *testing.T) {
	s := mustSchema(t, []Column{{Name: "id", Type: Int}})
	_, err := s.Normalize(s.Columns[0], TextValue("99999999999999"))
	if err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestSchema_NormalizeTextTooLong(t *testing.T) {
	s := mustSchema(t, []Column{{Name: "name", Type: Text, Length: 4}})
	_, err := s.Normalize(s.Columns[0], TextValue("toolong"))
	if err == nil {
		t.Fatalf("expected text-too-long error")
	}
}

func TestSchema_ValidateValuesCountMismatch(t *testing.T) {
	s := mustSchema(t, []Column{{Name: "id", Type: Int}, {Name: "name", Type: Text, Length: 8}})
	_, err := s.ValidateValues([]Value{IntValue(1)})
	if err == nil {
		t.Fatalf("expected value count mismatch error")
	}
}

func TestParseColumnType(t *testing.T) {
	typ, length, err := ParseColumnType("TEXT(32)")
	if err != nil {
		t.Fatalf("ParseColumnType: %v", err)
	}
	if typ != Text || length != 32 {
		t.Fatalf("expected Text(32), got %v(%d)", typ, length)
	}

	typ, length, err = ParseColumnType("TEXT")
	if err != nil {
		t.Fatalf("ParseColumnType: %v", err)
	}
	if typ != Text || length != DefaultTextLength {
		t.Fatalf("expected default text length, got %d", length)
	}

	typ, _, err = ParseColumnType("int")
	if err != nil || typ != Int {
		t.Fatalf("expected INT to parse case-insensitively, got %v, err=%v", typ, err)
	}

	if _, _, err := ParseColumnType("FLOAT"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestFormatColumnType(t *testing.T) {
	if FormatColumnType(Int, 0) != "INT" {
		t.Fatalf("expected INT")
	}
	if FormatColumnType(Text, 32) != "TEXT(32)" {
		t.Fatalf("expected TEXT(32)")
	}
}
