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

// Package disk implements the fixed-size page layer: a single-file Pager,
// per-NUMA-node page caches, and a NumaBufferPool that shards cached pages
// across those caches. Everything above this package deals in page IDs and
// byte ranges; nothing here knows about rows, schemas, or tables.
package disk

import (
	"io"
	"os"
	"sync"

	dberrors "numadb/internal/errors"
)

// DefaultPageSize is used whenever a caller does not override it.
const DefaultPageSize = 8192

// Pager is the sole owner of the backing file handle for a table. All reads
// and writes are serialized through a single mutex; callers above this
// layer (PageCache, NumaBufferPool) never touch the file directly.
type Pager struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	pageSize int
	closed   bool
}

// OpenPager opens path for read/write, creating it if necessary. The file
// is never truncated; an existing file's trailing page may be short, which
// ReadPage treats as a zero-padded page rather than an error.
func OpenPager(path string, pageSize int) (*Pager, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberrors.IoOpen(path, err)
	}
	return &Pager{file: f, path: path, pageSize: pageSize}, nil
}

// PageSize returns the fixed page size this pager was opened with.
func (p *Pager) PageSize() int { return p.pageSize }

// Path returns the backing file path.
func (p *Pager) Path() string { return p.path }

// ReadPage returns the contents of page id. A page entirely beyond the
// current end of file reads back as all zeros, and a page that straddles
// the end of file has its missing tail zero-filled; neither case is an
// error, mirroring how a freshly extended file reads on POSIX systems.
func (p *Pager) ReadPage(id int64) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, dberrors.PagerClosed().WithPath(p.path)
	}
	buf := make([]byte, p.pageSize)
	offset := id * int64(p.pageSize)
	n, err := p.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, dberrors.IoRead(p.path, offset, err)
	}
	// Any bytes beyond n are already zero from make(); a short or zero
	// read both fall out naturally here.
	_ = n
	return buf, nil
}

// WritePage writes data, which must be exactly PageSize() bytes, to page
// id, extending the file with implicit zero pages if id is beyond the
// current end of file.
func (p *Pager) WritePage(id int64, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return dberrors.PagerClosed().WithPath(p.path)
	}
	if len(data) != p.pageSize {
		return dberrors.SizeMismatch(p.pageSize, len(data)).WithPath(p.path)
	}
	offset := id * int64(p.pageSize)
	if _, err := p.file.WriteAt(data, offset); err != nil {
		return dberrors.IoWrite(p.path, offset, err)
	}
	return nil
}

// Flush syncs the backing file to stable storage.
func (p *Pager) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return dberrors.PagerClosed().WithPath(p.path)
	}
	if err := p.file.Sync(); err != nil {
		return dberrors.IoWrite(p.path, 0, err)
	}
	return nil
}

// PageCount returns the number of whole or partial pages currently backed
// by the file.
func (p *Pager) PageCount() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, dberrors.PagerClosed().WithPath(p.path)
	}
	info, err := p.file.Stat()
	if err != nil {
		return 0, dberrors.IoStat(p.path, err)
	}
	size := info.Size()
	pages := size / int64(p.pageSize)
	if size%int64(p.pageSize) != 0 {
		pages++
	}
	return pages, nil
}

// Close releases the backing file handle without syncing it first (call
// Flush for that). After Close, ReadPage, WritePage, Flush and PageCount
// return a State error; a second Close returns nil.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.file.Close(); err != nil {
		return dberrors.IoWrite(p.path, 0, err)
	}
	return nil
}
