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
	"encoding/binary"
	"os"
	"strings"
	"sync"

	dberrors "numadb/internal/errors"
	"numadb/internal/executor"
	"numadb/internal/logging"
	"numadb/internal/numa"
	"numadb/internal/storage/disk"
)

const (
	headerMagic     = "TBL1"
	headerSize      = 32
	pageLockStripes = 64
)

// Row is one decoded record returned from a scan.
type Row struct {
	RowID  uint64
	Values []Value
}

// Predicate matches rows during a scan by equality on one column. A nil
// Predicate matches every row.
type Predicate struct {
	ColumnIndex int
	Value       Value
}

// Matches reports whether values satisfies p.
func (p *Predicate) Matches(values []Value) bool {
	if p == nil {
		return true
	}
	v := values[p.ColumnIndex]
	if v.IsText() || p.Value.IsText() {
		return v.Text() == p.Value.Text()
	}
	return v.Int() == p.Value.Int()
}

// Table is a fixed-length-record table backed by a single file: a 32-byte
// header followed by records starting at the file's first page boundary.
// Page 0 is reserved for the header in its entirety; record i lives at
// byte offset pageSize + i*recordSize regardless of how that offset maps
// onto page boundaries from there on.
type Table struct {
	mu     sync.RWMutex // guards schema-affecting operations (rebuild) vs. everything else
	metaMu sync.Mutex   // guards rowCount and freeList
	name   string
	path   string
	schema *Schema

	file     *disk.PagedFile
	pageSize int

	rowCount uint64
	freeList []uint64

	pageLocks [pageLockStripes]sync.Mutex

	log    *LogManager
	logger *logging.Logger
	exec   *executor.NumaExecutor
}

// OpenTable opens or creates the table file at path. A zero-length or
// missing file is initialized with a fresh header; otherwise the header is
// read back and validated against schema. exec, if non-nil, is used to
// dispatch every row-level read/write to the NUMA node that owns the
// row's page instead of running it on the calling goroutine; a nil exec
// preserves the previous inline behavior.
func OpenTable(path string, name string, schema *Schema, pageSize, cachePages int, topology numa.Topology, alloc numa.Allocator, log *LogManager, exec *executor.NumaExecutor) (*Table, error) {
	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	file, err := disk.OpenPagedFile(path, pageSize, cachePages, topology, alloc)
	if err != nil {
		return nil, err
	}

	t := &Table{
		name:     name,
		path:     path,
		schema:   schema,
		file:     file,
		pageSize: file.PageSize(),
		log:      log,
		logger:   logging.NewLogger("table." + name),
		exec:     exec,
	}

	if fresh {
		if err := t.writeHeader(); err != nil {
			return nil, err
		}
	} else {
		if err := t.readHeader(); err != nil {
			return nil, err
		}
	}
	if err := t.rebuildFreeListLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) readHeader() error {
	buf, err := t.file.ReadAt(0, headerSize)
	if err != nil {
		return err
	}
	if string(buf[0:4]) != headerMagic {
		return dberrors.BadMagic(t.path)
	}
	recordSize := binary.LittleEndian.Uint32(buf[4:8])
	if int(recordSize) != t.schema.RecordSize() {
		return dberrors.RecordSizeMismatch(uint32(t.schema.RecordSize()), recordSize)
	}
	t.rowCount = binary.LittleEndian.Uint64(buf[8:16])
	return nil
}

func (t *Table) writeHeader() error {
	t.metaMu.Lock()
	rowCount := t.rowCount
	t.metaMu.Unlock()

	buf := make([]byte, headerSize)
	copy(buf[0:4], headerMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(t.schema.RecordSize()))
	binary.LittleEndian.PutUint64(buf[8:16], rowCount)
	// bytes 16..31 are reserved and left zero.
	return t.file.WriteAt(0, buf)
}

func (t *Table) recordOffset(rowID uint64) int64 {
	return int64(t.pageSize) + int64(rowID)*int64(t.schema.RecordSize())
}

func (t *Table) pageLockFor(rowID uint64) *sync.Mutex {
	pageID := t.recordOffset(rowID) / int64(t.pageSize)
	idx := pageID % int64(pageLockStripes)
	if idx < 0 {
		idx += pageLockStripes
	}
	return &t.pageLocks[idx]
}

// nodeForRow reports which NUMA node owns the page rowID lives on, using
// the same ModuloSelector routing the buffer pool itself uses.
func (t *Table) nodeForRow(rowID uint64) int {
	return t.file.PageNode(t.recordOffset(rowID))
}

// dispatch runs fn on the NUMA node that owns rowID's page. With no
// executor configured it just runs fn inline, so single-node callers (and
// every existing test) see no behavior change.
func (t *Table) dispatch(rowID uint64, fn func() error) error {
	if t.exec == nil {
		return fn()
	}
	return t.exec.Submit(t.nodeForRow(rowID), fn).Wait()
}

func (t *Table) readRecord(rowID uint64) (bool, []Value, error) {
	buf, err := t.file.ReadAt(t.recordOffset(rowID), t.schema.RecordSize())
	if err != nil {
		return false, nil, err
	}
	return t.schema.DecodeRecord(buf)
}

func (t *Table) writeRecord(rowID uint64, record []byte) error {
	return t.file.WriteAt(t.recordOffset(rowID), record)
}

// Insert appends values as a new row, reusing a free row ID from a prior
// delete if one is available. The redo log entry is appended before the
// record is written, so a crash between the two always leaves a log entry
// whose replay can still recreate the write.
func (t *Table) Insert(values []Value) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	vals, err := t.schema.ValidateValues(values)
	if err != nil {
		return 0, err
	}
	record, err := t.schema.EncodeRecord(vals, true)
	if err != nil {
		return 0, err
	}

	t.metaMu.Lock()
	var rowID uint64
	reused := false
	if n := len(t.freeList); n > 0 {
		rowID = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		reused = true
	} else {
		rowID = t.rowCount
		t.rowCount++
	}
	t.metaMu.Unlock()

	err = t.dispatch(rowID, func() error {
		lock := t.pageLockFor(rowID)
		lock.Lock()
		defer lock.Unlock()

		if _, err := t.log.Append(OpInsert, t.name, rowID, record); err != nil {
			return err
		}
		return t.writeRecord(rowID, record)
	})
	if err != nil {
		return 0, err
	}
	if !reused {
		if err := t.writeHeader(); err != nil {
			return 0, err
		}
	}
	return rowID, nil
}

// Select returns every live row matching pred (nil matches everything).
func (t *Table) Select(pred *Predicate) ([]Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.metaMu.Lock()
	rowCount := t.rowCount
	t.metaMu.Unlock()

	var rows []Row
	for rowID := uint64(0); rowID < rowCount; rowID++ {
		var valid bool
		var vals []Value
		err := t.dispatch(rowID, func() error {
			lock := t.pageLockFor(rowID)
			lock.Lock()
			defer lock.Unlock()
			v, decoded, err := t.readRecord(rowID)
			valid, vals = v, decoded
			return err
		})
		if err != nil {
			return nil, err
		}
		if valid && pred.Matches(vals) {
			rows = append(rows, Row{RowID: rowID, Values: vals})
		}
	}
	return rows, nil
}

// Update applies setCols/setVals to every live row matching pred, logging
// and writing each changed row's full post-image. It returns the number
// of rows changed.
func (t *Table) Update(pred *Predicate, setCols []int, setVals []Value) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.metaMu.Lock()
	rowCount := t.rowCount
	t.metaMu.Unlock()

	count := 0
	for rowID := uint64(0); rowID < rowCount; rowID++ {
		var changed bool
		err := t.dispatch(rowID, func() error {
			lock := t.pageLockFor(rowID)
			lock.Lock()
			defer lock.Unlock()
			c, err := t.updateRowLocked(rowID, pred, setCols, setVals)
			changed = c
			return err
		})
		if err != nil {
			return count, err
		}
		if changed {
			count++
		}
	}
	return count, nil
}

func (t *Table) updateRowLocked(rowID uint64, pred *Predicate, setCols []int, setVals []Value) (bool, error) {
	valid, vals, err := t.readRecord(rowID)
	if err != nil {
		return false, err
	}
	if !valid || !pred.Matches(vals) {
		return false, nil
	}
	for i, colIdx := range setCols {
		vals[colIdx] = setVals[i]
	}
	normalized, err := t.schema.ValidateValues(vals)
	if err != nil {
		return false, err
	}
	record, err := t.schema.EncodeRecord(normalized, true)
	if err != nil {
		return false, err
	}
	if _, err := t.log.Append(OpUpdate, t.name, rowID, record); err != nil {
		return false, err
	}
	if err := t.writeRecord(rowID, record); err != nil {
		return false, err
	}
	return true, nil
}

// Delete tombstones every live row matching pred and returns their row IDs
// to the free list for reuse by a future Insert. It returns the number of
// rows deleted.
func (t *Table) Delete(pred *Predicate) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.metaMu.Lock()
	rowCount := t.rowCount
	t.metaMu.Unlock()

	count := 0
	for rowID := uint64(0); rowID < rowCount; rowID++ {
		var deleted bool
		err := t.dispatch(rowID, func() error {
			lock := t.pageLockFor(rowID)
			lock.Lock()
			defer lock.Unlock()
			d, err := t.deleteRowLocked(rowID, pred)
			deleted = d
			return err
		})
		if err != nil {
			return count, err
		}
		if deleted {
			t.metaMu.Lock()
			t.freeList = append(t.freeList, rowID)
			t.metaMu.Unlock()
			count++
		}
	}
	return count, nil
}

func (t *Table) deleteRowLocked(rowID uint64, pred *Predicate) (bool, error) {
	valid, vals, err := t.readRecord(rowID)
	if err != nil {
		return false, err
	}
	if !valid || !pred.Matches(vals) {
		return false, nil
	}
	record, err := t.schema.EncodeRecord(vals, false)
	if err != nil {
		return false, err
	}
	if _, err := t.log.Append(OpDelete, t.name, rowID, record); err != nil {
		return false, err
	}
	if err := t.writeRecord(rowID, record); err != nil {
		return false, err
	}
	return true, nil
}

// ReadRow reads a single row by ID without scanning, authored for callers
// (point lookups, recovery, tests) that already know the row ID. Unlike
// the full-scan methods, a point method only ever takes the one page
// stripe lock its row lives on, so the executor can run many of these
// concurrently across rows that land on different pages.
func (t *Table) ReadRow(rowID uint64) (bool, []Value, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkRowBounds(rowID); err != nil {
		return false, nil, err
	}
	var valid bool
	var vals []Value
	err := t.dispatch(rowID, func() error {
		lock := t.pageLockFor(rowID)
		lock.Lock()
		defer lock.Unlock()
		v, decoded, err := t.readRecord(rowID)
		valid, vals = v, decoded
		return err
	})
	return valid, vals, err
}

// UpdateRow applies setCols/setVals to rowID unconditionally (no
// predicate), taking only that row's page stripe lock. It reports whether
// the row was live and therefore actually updated.
func (t *Table) UpdateRow(rowID uint64, setCols []int, setVals []Value) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkRowBounds(rowID); err != nil {
		return false, err
	}
	var changed bool
	err := t.dispatch(rowID, func() error {
		lock := t.pageLockFor(rowID)
		lock.Lock()
		defer lock.Unlock()
		c, err := t.updateRowLocked(rowID, nil, setCols, setVals)
		changed = c
		return err
	})
	return changed, err
}

// DeleteRow tombstones rowID unconditionally (no predicate), taking only
// that row's page stripe lock, and returns it to the free list if it was
// live. It reports whether the row was live and therefore actually
// deleted.
func (t *Table) DeleteRow(rowID uint64) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkRowBounds(rowID); err != nil {
		return false, err
	}
	var deleted bool
	err := t.dispatch(rowID, func() error {
		lock := t.pageLockFor(rowID)
		lock.Lock()
		defer lock.Unlock()
		d, err := t.deleteRowLocked(rowID, nil)
		deleted = d
		return err
	})
	if err != nil {
		return false, err
	}
	if deleted {
		t.metaMu.Lock()
		t.freeList = append(t.freeList, rowID)
		t.metaMu.Unlock()
	}
	return deleted, nil
}

// WriteRow writes values as rowID's full record, live, overwriting
// whatever was there before. Like Insert it appends the redo entry (as an
// UPDATE) before writing the record, but it targets an existing row the
// caller names and never allocates a new one.
func (t *Table) WriteRow(rowID uint64, values []Value) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkRowBounds(rowID); err != nil {
		return err
	}
	vals, err := t.schema.ValidateValues(values)
	if err != nil {
		return err
	}
	record, err := t.schema.EncodeRecord(vals, true)
	if err != nil {
		return err
	}
	return t.dispatch(rowID, func() error {
		lock := t.pageLockFor(rowID)
		lock.Lock()
		defer lock.Unlock()
		if _, err := t.log.Append(OpUpdate, t.name, rowID, record); err != nil {
			return err
		}
		return t.writeRecord(rowID, record)
	})
}

func (t *Table) checkRowBounds(rowID uint64) error {
	t.metaMu.Lock()
	inBounds := rowID < t.rowCount
	t.metaMu.Unlock()
	if !inBounds {
		return dberrors.RowOutOfRange(rowID)
	}
	return nil
}

// ApplyRedo writes entry's post-image verbatim to its row, extending the
// table's row count (and header) if the entry addresses a row beyond the
// table's current bounds. Replaying the same entry twice is a no-op
// beyond the second identical write, so recovery can always restart from
// the beginning of the log.
func (t *Table) ApplyRedo(entry LogEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metaMu.Lock()
	grew := false
	if entry.RowID >= t.rowCount {
		t.rowCount = entry.RowID + 1
		grew = true
	}
	t.metaMu.Unlock()

	if err := t.writeRecord(entry.RowID, entry.Record); err != nil {
		return err
	}
	if grew {
		if err := t.writeHeader(); err != nil {
			return err
		}
	}
	return nil
}

// RebuildFreeList rescans every row and resets the free list to exactly
// the tombstoned row IDs. Used after recovery, since a crash between a
// delete's log append and the in-memory free-list update would otherwise
// leave a reusable slot unreflected in memory.
func (t *Table) RebuildFreeList() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rebuildFreeListLocked()
}

func (t *Table) rebuildFreeListLocked() error {
	t.metaMu.Lock()
	rowCount := t.rowCount
	t.metaMu.Unlock()

	var free []uint64
	for rowID := uint64(0); rowID < rowCount; rowID++ {
		valid, _, err := t.readRecord(rowID)
		if err != nil {
			return err
		}
		if !valid {
			free = append(free, rowID)
		}
	}
	t.metaMu.Lock()
	t.freeList = free
	t.metaMu.Unlock()
	return nil
}

// RowCount returns the current number of row slots, live or tombstoned.
func (t *Table) RowCount() uint64 {
	t.metaMu.Lock()
	defer t.metaMu.Unlock()
	return t.rowCount
}

// Schema returns the table's current schema.
func (t *Table) Schema() *Schema {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.schema
}

// Flush writes back every dirty page belonging to this table.
func (t *Table) Flush() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.file.Flush()
}

// Close flushes and releases this table's file handle.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

// RebuildForSchema rewrites the table's on-disk records under newSchema,
// remapping columns by case-insensitive name and defaulting any column
// that newSchema adds. It takes the table's exclusive lock for the
// duration, since every row is rewritten.
//
// The rewrite happens in a temporary file which is then swapped into place
// via a backup-and-rename sequence, so a half-written file never appears
// at the table's path. A crash while the temporary file is being written
// leaves the original in place; a crash between the two renames leaves
// the original under path+".bak" and nothing at the table's path.
func (t *Table) RebuildForSchema(newSchema *Schema, topology numa.Topology, alloc numa.Allocator, cachePages int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tmpPath := t.path + ".tmp"
	os.Remove(tmpPath)

	tmp, err := disk.OpenPagedFile(tmpPath, t.pageSize, cachePages, topology, alloc)
	if err != nil {
		return err
	}

	oldSchema := t.schema
	remap := make([]int, len(newSchema.Columns))
	for i, col := range newSchema.Columns {
		remap[i] = oldSchema.ColumnIndex(col.Name)
	}

	t.metaMu.Lock()
	rowCount := t.rowCount
	t.metaMu.Unlock()

	for rowID := uint64(0); rowID < rowCount; rowID++ {
		valid, oldVals, err := t.readRecord(rowID)
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
		newVals := newSchema.DefaultValues()
		for i, oldIdx := range remap {
			if oldIdx >= 0 {
				newVals[i] = oldVals[oldIdx]
			}
		}
		record, err := newSchema.EncodeRecord(newVals, valid)
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
		offset := int64(t.pageSize) + int64(rowID)*int64(newSchema.RecordSize())
		if err := tmp.WriteAt(offset, record); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
	}

	header := make([]byte, headerSize)
	copy(header[0:4], headerMagic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(newSchema.RecordSize()))
	binary.LittleEndian.PutUint64(header[8:16], rowCount)
	if err := tmp.WriteAt(0, header); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := t.file.Close(); err != nil {
		return err
	}

	bakPath := t.path + ".bak"
	os.Remove(bakPath)
	if err := os.Rename(t.path, bakPath); err != nil {
		return dberrors.IoRename(t.path, bakPath, err)
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		// Roll back: restore the original file under its real name.
		os.Rename(bakPath, t.path)
		return dberrors.IoRename(tmpPath, t.path, err)
	}
	os.Remove(bakPath)

	t.schema = newSchema
	t.rowCount = rowCount

	newFile, err := disk.OpenPagedFile(t.path, t.pageSize, cachePages, topology, alloc)
	if err != nil {
		return err
	}
	t.file = newFile
	return t.rebuildFreeListLocked()
}

// hasDuplicateColumns reports whether columns contains a case-insensitive
// duplicate name or an empty name.
func hasDuplicateColumns(columns []Column) bool {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if strings.TrimSpace(c.Name) == "" {
			return true
		}
		lc := strings.ToLower(c.Name)
		if seen[lc] {
			return true
		}
		seen[lc] = true
	}
	return false
}
