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
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"sync"

	dberrors "numadb/internal/errors"
	"numadb/internal/logging"
)

// LogOp identifies the kind of mutation a LogEntry records.
type LogOp string

const (
	OpInsert LogOp = "INSERT"
	OpUpdate LogOp = "UPDATE"
	OpDelete LogOp = "DELETE"
)

// LogEntry is one redo record: the post-image of row RowID in Table after
// Op was applied.
type LogEntry struct {
	LSN    uint64
	Op     LogOp
	Table  string
	RowID  uint64
	Record []byte
}

// LogManager appends redo records to a single text log file and replays
// them on recovery. The on-disk format is one line per entry:
// LSN|OP|TABLE|ROW_ID|HEX(RECORD)\n. LSNs increase strictly; the file is
// opened in append mode on every write so a crash mid-write never
// corrupts an earlier entry.
type LogManager struct {
	mu      sync.Mutex
	path    string
	log     *logging.Logger
	nextLSN uint64
}

// NewLogManager creates a LogManager bound to path. The next LSN starts at
// 1 and is not persisted separately; ReadAll advances it past the highest
// LSN found in the file, so appends after a ReadAll continue that sequence.
func NewLogManager(path string) *LogManager {
	return &LogManager{path: path, log: logging.NewLogger("logmanager"), nextLSN: 1}
}

// Append writes one redo entry and returns its LSN.
func (m *LogManager) Append(op LogOp, table string, rowID uint64, record []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lsn := m.nextLSN
	m.nextLSN++

	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, dberrors.IoOpen(m.path, err)
	}
	defer f.Close()

	line := strconv.FormatUint(lsn, 10) + "|" + string(op) + "|" + table + "|" +
		strconv.FormatUint(rowID, 10) + "|" + strings.ToUpper(hex.EncodeToString(record)) + "\n"
	if _, err := f.WriteString(line); err != nil {
		return 0, dberrors.IoWrite(m.path, 0, err)
	}
	if err := f.Sync(); err != nil {
		return 0, dberrors.IoWrite(m.path, 0, err)
	}
	return lsn, nil
}

// ReadAll returns every well-formed entry in the log file in file order.
// A missing file yields no entries and no error. A line with fewer than 5
// pipe-separated fields, a non-numeric LSN or row ID, or invalid hex is
// skipped rather than aborting the whole read.
func (m *LogManager) ReadAll() ([]LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberrors.IoOpen(m.path, err)
	}
	defer f.Close()

	var entries []LogEntry
	var maxLSN uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 5)
		if len(parts) < 5 {
			m.log.Warn("skipping malformed log line", "line", line)
			continue
		}
		lsn, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			m.log.Warn("skipping log line with bad LSN", "line", line)
			continue
		}
		rowID, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			m.log.Warn("skipping log line with bad row id", "line", line)
			continue
		}
		record, err := hex.DecodeString(parts[4])
		if err != nil {
			m.log.Warn("skipping log line with bad hex payload", "line", line)
			continue
		}
		entries = append(entries, LogEntry{
			LSN:    lsn,
			Op:     LogOp(parts[1]),
			Table:  parts[2],
			RowID:  rowID,
			Record: record,
		})
		if lsn > maxLSN {
			maxLSN = lsn
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, dberrors.IoRead(m.path, 0, err)
	}
	if maxLSN >= m.nextLSN {
		m.nextLSN = maxLSN + 1
	}
	return entries, nil
}

// Clear truncates the log file, discarding all entries. Called once
// recovery or a checkpoint has made them redundant.
func (m *LogManager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := os.OpenFile(m.path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return dberrors.IoOpen(m.path, err)
	}
	return f.Close()
}
