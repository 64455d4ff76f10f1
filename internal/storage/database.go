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
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	dberrors "numadb/internal/errors"
	"numadb/internal/executor"
	"numadb/internal/logging"
	"numadb/internal/numa"
	"numadb/internal/storage/disk"
)

// Options configures a Database's on-disk layout, page caching, and the
// NUMA executor every row-level operation dispatches through.
type Options struct {
	BaseDir        string
	PageSize       int
	CachePages     int
	PreferredNodes int
	ThreadsPerNode int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = disk.DefaultPageSize
	}
	if o.CachePages <= 0 {
		o.CachePages = 64
	}
	if o.ThreadsPerNode <= 0 {
		o.ThreadsPerNode = 2
	}
	return o
}

// Database owns a catalog, a shared redo log, and every open Table,
// composing them into the single entry point for DDL and DML. Every
// mutation checkpoints (flushes every table and clears the log) before
// returning, trading a checkpoint's IO cost on every call for the
// simplest possible recovery story: the log is only ever non-empty
// between a mutation's write and the checkpoint that follows it.
type Database struct {
	mu       sync.RWMutex
	baseDir  string
	opts     Options
	topology numa.Topology
	alloc    numa.Allocator

	catalog *Catalog
	log     *LogManager
	tables  map[string]*Table
	exec    *executor.NumaExecutor

	logger *logging.Logger
}

// Open creates baseDir if necessary, loads the catalog and every table it
// names, then replays any redo log entries left over from an unclean
// shutdown.
func Open(opts Options) (*Database, error) {
	opts = opts.withDefaults()
	if err := ensureDir(opts.BaseDir); err != nil {
		return nil, err
	}

	topology := numa.NewTopology(opts.PreferredNodes)
	alloc := numa.NewAllocator(topology.NodeCount())
	exec := executor.NewNumaExecutor(topology, opts.ThreadsPerNode)
	exec.Start()

	db := &Database{
		baseDir:  opts.BaseDir,
		opts:     opts,
		topology: topology,
		alloc:    alloc,
		catalog:  NewCatalog(filepath.Join(opts.BaseDir, "catalog.meta")),
		log:      NewLogManager(filepath.Join(opts.BaseDir, "db.log")),
		tables:   make(map[string]*Table),
		exec:     exec,
		logger:   logging.NewLogger("database"),
	}

	if err := db.catalog.Load(); err != nil {
		return nil, err
	}
	if err := db.loadTables(); err != nil {
		return nil, err
	}
	if err := db.recover(); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return dberrors.IoMkdir(path, err)
	}
	return nil
}

func (db *Database) tablePath(name string) string {
	return filepath.Join(db.baseDir, strings.ToLower(name)+".tbl")
}

func (db *Database) loadTables() error {
	for _, name := range db.catalog.ListTables() {
		schema, err := db.catalog.GetSchema(name)
		if err != nil {
			return err
		}
		table, err := OpenTable(db.tablePath(name), name, schema, db.opts.PageSize, db.opts.CachePages, db.topology, db.alloc, db.log, db.exec)
		if err != nil {
			return err
		}
		db.tables[name] = table
	}
	return nil
}

// recover replays every entry in the redo log against the table it names,
// failing if the log references a table the catalog no longer knows
// about, then rebuilds every table's free list (a crash between a
// delete's log append and its free-list update would otherwise leave that
// slot permanently unreusable) and clears the log.
func (db *Database) recover() error {
	entries, err := db.log.ReadAll()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		table, ok := db.tables[strings.ToLower(entry.Table)]
		if !ok {
			return dberrors.MissingTableDuringRecovery(entry.Table)
		}
		if err := table.ApplyRedo(entry); err != nil {
			return err
		}
	}
	for _, table := range db.tables {
		if err := table.RebuildFreeList(); err != nil {
			return err
		}
	}
	if len(entries) > 0 {
		db.logger.Info("replayed redo log entries", "count", len(entries))
	}
	return db.log.Clear()
}

// checkpoint flushes every table's dirty pages concurrently and, only if
// every flush succeeds, clears the redo log. A failed flush leaves the
// log intact so the next Open can still recover from it.
func (db *Database) checkpoint() error {
	var g errgroup.Group
	for _, table := range db.tables {
		table := table
		g.Go(table.Flush)
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return db.log.Clear()
}

// Checkpoint exposes the checkpoint operation for callers that want to
// force a flush outside of a DML call, e.g. before taking a backup.
func (db *Database) Checkpoint() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.checkpoint()
}

// CreateTable defines a new table and persists its schema.
func (db *Database) CreateTable(name string, columns []Column) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if hasDuplicateColumns(columns) {
		return dberrors.DuplicateColumn(name)
	}
	if _, exists := db.tables[strings.ToLower(name)]; exists {
		return dberrors.TableExists(name)
	}
	schema, err := NewSchema(columns)
	if err != nil {
		return err
	}
	if err := db.catalog.CreateTable(name, schema); err != nil {
		return err
	}
	table, err := OpenTable(db.tablePath(name), name, schema, db.opts.PageSize, db.opts.CachePages, db.topology, db.alloc, db.log, db.exec)
	if err != nil {
		return err
	}
	db.tables[strings.ToLower(name)] = table
	return nil
}

// DropTable removes a table's schema and its backing file.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	lc := strings.ToLower(name)
	table, exists := db.tables[lc]
	if !exists {
		return dberrors.UnknownTable(name)
	}
	if err := db.catalog.DropTable(name); err != nil {
		return err
	}
	delete(db.tables, lc)
	table.Close()
	if err := os.Remove(db.tablePath(name)); err != nil && !os.IsNotExist(err) {
		return dberrors.IoRemove(db.tablePath(name), err)
	}
	return nil
}

// AlterAddColumn adds a new column with its zero value to every existing
// row, rewriting the table file before committing the new schema to the
// catalog — so a crash mid-rewrite leaves the catalog still pointing at
// the old, still-valid schema.
func (db *Database) AlterAddColumn(tableName string, column Column) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	lc := strings.ToLower(tableName)
	table, exists := db.tables[lc]
	if !exists {
		return dberrors.UnknownTable(tableName)
	}
	oldSchema := table.Schema()
	if oldSchema.ColumnIndex(column.Name) >= 0 {
		return dberrors.ColumnExists(column.Name)
	}
	newColumns := append(append([]Column{}, oldSchema.Columns...), column)
	newSchema, err := NewSchema(newColumns)
	if err != nil {
		return err
	}
	if err := table.RebuildForSchema(newSchema, db.topology, db.alloc, db.opts.CachePages); err != nil {
		return err
	}
	return db.catalog.AlterAddColumn(tableName, newSchema)
}

// Insert inserts one row and checkpoints.
func (db *Database) Insert(tableName string, values []Value) (uint64, error) {
	db.mu.RLock()
	table, err := db.tableLocked(tableName)
	db.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	rowID, err := table.Insert(values)
	if err != nil {
		return 0, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return rowID, db.checkpoint()
}

// Select returns every live row in tableName matching pred.
func (db *Database) Select(tableName string, pred *Predicate) ([]Row, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	table, err := db.tableLocked(tableName)
	if err != nil {
		return nil, err
	}
	return table.Select(pred)
}

// Update applies setCols/setVals to every row matching pred and
// checkpoints.
func (db *Database) Update(tableName string, pred *Predicate, setCols []int, setVals []Value) (int, error) {
	db.mu.RLock()
	table, err := db.tableLocked(tableName)
	db.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	if len(setCols) == 0 {
		return 0, dberrors.NoSetColumns()
	}
	count, err := table.Update(pred, setCols, setVals)
	if err != nil {
		return count, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return count, db.checkpoint()
}

// Delete tombstones every row matching pred and checkpoints.
func (db *Database) Delete(tableName string, pred *Predicate) (int, error) {
	db.mu.RLock()
	table, err := db.tableLocked(tableName)
	db.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	count, err := table.Delete(pred)
	if err != nil {
		return count, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return count, db.checkpoint()
}

// Schema returns the schema of tableName.
func (db *Database) Schema(tableName string) (*Schema, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.catalog.GetSchema(tableName)
}

// ListTables returns every table name in creation order.
func (db *Database) ListTables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.catalog.ListTables()
}

func (db *Database) tableLocked(name string) (*Table, error) {
	table, exists := db.tables[strings.ToLower(name)]
	if !exists {
		return nil, dberrors.UnknownTable(name)
	}
	return table, nil
}

// Close checkpoints every table, releases their file handles, and stops
// the NUMA executor those tables were dispatching row operations through.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkpoint(); err != nil {
		return err
	}
	for _, table := range db.tables {
		if err := table.Close(); err != nil {
			return err
		}
	}
	db.exec.Stop()
	return nil
}
