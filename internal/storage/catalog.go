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
	"bufio"
	"os"
	"strings"
	"sync"

	dberrors "numadb/internal/errors"
	"numadb/internal/logging"
)

// Catalog persists the database's table schemas as a flat text file, one
// line per table: name|col:TYPE|col:TYPE... A line that fails to parse is
// skipped rather than aborting the whole load, so a single corrupted
// table entry never takes down every other table's schema.
type Catalog struct {
	mu     sync.Mutex
	path   string
	log    *logging.Logger
	tables map[string]*Schema
	order  []string // insertion order, preserved across save/load
}

// NewCatalog creates an empty, unpersisted Catalog bound to path.
func NewCatalog(path string) *Catalog {
	return &Catalog{
		path:   path,
		log:    logging.NewLogger("catalog"),
		tables: make(map[string]*Schema),
	}
}

// Load reads the catalog file if it exists. A missing file is treated as
// an empty catalog, not an error.
func (c *Catalog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return dberrors.IoOpen(c.path, err)
	}
	defer f.Close()

	c.tables = make(map[string]*Schema)
	c.order = nil

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, schema, ok := parseCatalogLine(line)
		if !ok {
			c.log.Warn("skipping malformed catalog line", "line", line)
			continue
		}
		lc := strings.ToLower(name)
		c.tables[lc] = schema
		c.order = append(c.order, lc)
	}
	if err := scanner.Err(); err != nil {
		return dberrors.IoRead(c.path, 0, err)
	}
	return nil
}

func parseCatalogLine(line string) (string, *Schema, bool) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return "", nil, false
	}
	name := parts[0]
	columns := make([]Column, 0, len(parts)-1)
	for _, part := range parts[1:] {
		colParts := strings.SplitN(part, ":", 2)
		if len(colParts) != 2 {
			return "", nil, false
		}
		typ, length, err := ParseColumnType(colParts[1])
		if err != nil {
			return "", nil, false
		}
		columns = append(columns, Column{Name: colParts[0], Type: typ, Length: length})
	}
	schema, err := NewSchema(columns)
	if err != nil {
		return "", nil, false
	}
	return name, schema, true
}

// Save truncates and rewrites the whole catalog file, one line per table.
func (c *Catalog) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Catalog) saveLocked() error {
	f, err := os.Create(c.path)
	if err != nil {
		return dberrors.IoOpen(c.path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, lc := range c.order {
		schema, ok := c.tables[lc]
		if !ok {
			continue
		}
		var sb strings.Builder
		sb.WriteString(lc)
		for _, col := range schema.Columns {
			sb.WriteByte('|')
			sb.WriteString(col.Name)
			sb.WriteByte(':')
			sb.WriteString(FormatColumnType(col.Type, col.Length))
		}
		sb.WriteByte('\n')
		if _, err := w.WriteString(sb.String()); err != nil {
			return dberrors.IoWrite(c.path, 0, err)
		}
	}
	if err := w.Flush(); err != nil {
		return dberrors.IoWrite(c.path, 0, err)
	}
	return nil
}

// CreateTable registers a new table's schema and persists the catalog.
func (c *Catalog) CreateTable(name string, schema *Schema) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	lc := strings.ToLower(name)
	if _, exists := c.tables[lc]; exists {
		return dberrors.TableExists(name)
	}
	c.tables[lc] = schema
	c.order = append(c.order, lc)
	return c.saveLocked()
}

// DropTable removes a table's schema and persists the catalog.
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	lc := strings.ToLower(name)
	if _, exists := c.tables[lc]; !exists {
		return dberrors.UnknownTable(name)
	}
	delete(c.tables, lc)
	for i, n := range c.order {
		if n == lc {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return c.saveLocked()
}

// AlterAddColumn appends a column to a table's schema and persists the
// catalog. The caller is responsible for rebuilding the table's on-disk
// records before calling this, since the catalog write is what commits
// the new schema.
func (c *Catalog) AlterAddColumn(name string, newSchema *Schema) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	lc := strings.ToLower(name)
	if _, exists := c.tables[lc]; !exists {
		return dberrors.UnknownTable(name)
	}
	c.tables[lc] = newSchema
	return c.saveLocked()
}

// GetSchema returns the schema for name, or an UnknownTable error.
func (c *Catalog) GetSchema(name string) (*Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	schema, exists := c.tables[strings.ToLower(name)]
	if !exists {
		return nil, dberrors.UnknownTable(name)
	}
	return schema, nil
}

// ListTables returns all table names in creation order.
func (c *Catalog) ListTables() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
