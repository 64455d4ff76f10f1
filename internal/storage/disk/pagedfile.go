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

package disk

import "numadb/internal/numa"

// PagedFile presents a table's backing storage as a flat byte-addressable
// range, walking page boundaries internally via a NumaBufferPool. Callers
// above this layer (the table package) address records by byte offset and
// never see page IDs.
type PagedFile struct {
	pool *NumaBufferPool
}

// OpenPagedFile opens path and wraps it in a NUMA-sharded buffer pool.
func OpenPagedFile(path string, pageSize, cacheCapacity int, topology numa.Topology, alloc numa.Allocator) (*PagedFile, error) {
	pager, err := OpenPager(path, pageSize)
	if err != nil {
		return nil, err
	}
	pool := NewNumaBufferPool(pager, cacheCapacity, pager.PageSize(), topology, alloc)
	return &PagedFile{pool: pool}, nil
}

// PageSize returns the fixed page size backing this file.
func (pf *PagedFile) PageSize() int { return pf.pool.PageSize() }

// NodeCount returns the number of NUMA shards backing this file.
func (pf *PagedFile) NodeCount() int { return pf.pool.NodeCount() }

// PageNode reports which NUMA node owns the page containing offset, using
// the same routing ReadAt/WriteAt use internally. Callers that want to
// dispatch work to that node before touching the byte range call this
// first.
func (pf *PagedFile) PageNode(offset int64) int {
	pageID := offset / int64(pf.PageSize())
	return pf.pool.NodeForPage(pageID)
}

// ReadAt reads length bytes starting at offset, spanning as many pages as
// necessary.
func (pf *PagedFile) ReadAt(offset int64, length int) ([]byte, error) {
	out := make([]byte, length)
	remaining := length
	read := 0
	pageSize := pf.PageSize()
	for remaining > 0 {
		curOffset := offset + int64(read)
		pageID := curOffset / int64(pageSize)
		pageOffset := int(curOffset % int64(pageSize))
		chunk := pageSize - pageOffset
		if chunk > remaining {
			chunk = remaining
		}
		page, err := pf.pool.GetPage(pageID)
		if err != nil {
			return nil, err
		}
		copy(out[read:read+chunk], page.Data()[pageOffset:pageOffset+chunk])
		read += chunk
		remaining -= chunk
	}
	return out, nil
}

// WriteAt writes data starting at offset, spanning as many pages as
// necessary and marking each touched page dirty.
func (pf *PagedFile) WriteAt(offset int64, data []byte) error {
	remaining := len(data)
	written := 0
	pageSize := pf.PageSize()
	for remaining > 0 {
		curOffset := offset + int64(written)
		pageID := curOffset / int64(pageSize)
		pageOffset := int(curOffset % int64(pageSize))
		chunk := pageSize - pageOffset
		if chunk > remaining {
			chunk = remaining
		}
		page, err := pf.pool.GetPage(pageID)
		if err != nil {
			return err
		}
		copy(page.Data()[pageOffset:pageOffset+chunk], data[written:written+chunk])
		pf.pool.MarkDirty(pageID)
		written += chunk
		remaining -= chunk
	}
	return nil
}

// Flush writes back all dirty pages across every NUMA shard.
func (pf *PagedFile) Flush() error {
	return pf.pool.Flush()
}

// Close flushes and releases the backing file handle.
func (pf *PagedFile) Close() error {
	return pf.pool.Close()
}
