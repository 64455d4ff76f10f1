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

import (
	"container/list"
	"sync"

	dberrors "numadb/internal/errors"
	"numadb/internal/numa"
)

// PageCache is a single-shard, plain-LRU cache of fixed-size pages backed
// by a shared Pager. It holds no locks on the pager's file beyond what the
// pager itself serializes; all cache-local state is protected by mu.
type PageCache struct {
	mu       sync.Mutex
	pager    *Pager
	capacity int
	pageSize int
	node     int
	alloc    numa.Allocator

	lru     *list.List // front = most recently used
	entries map[int64]*list.Element
}

type cacheEntry struct {
	page *Page
}

// NewPageCache creates a cache for one NUMA shard. capacity is the number
// of pages this shard may hold before evicting.
func NewPageCache(pager *Pager, capacity, pageSize, node int, alloc numa.Allocator) *PageCache {
	if capacity < 1 {
		capacity = 1
	}
	return &PageCache{
		pager:    pager,
		capacity: capacity,
		pageSize: pageSize,
		node:     node,
		alloc:    alloc,
		lru:      list.New(),
		entries:  make(map[int64]*list.Element),
	}
}

// GetPage returns the cached page for id, loading it from the pager on a
// miss. A cache miss that requires eviction writes back the evicted page's
// dirty contents first; if that write fails, GetPage returns the error
// without having mutated any cache state.
func (c *PageCache) GetPage(id int64) (*Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[id]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).page, nil
	}

	if err := c.evictIfNeeded(); err != nil {
		return nil, err
	}

	raw, err := c.pager.ReadPage(id)
	if err != nil {
		return nil, err
	}
	buf := NewBuffer(len(raw), c.node, c.alloc)
	copy(buf.Data(), raw)
	page := &Page{ID: id, Buf: buf}
	elem := c.lru.PushFront(&cacheEntry{page: page})
	c.entries[id] = elem
	return page, nil
}

// MarkDirty flags a currently cached page as dirty. It is a no-op (not an
// error) if the page is not in this cache, mirroring the original
// implementation's tolerance for marking a page the caller already knows
// is resident.
func (c *PageCache) MarkDirty(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[id]; ok {
		elem.Value.(*cacheEntry).page.Dirty = true
	}
}

// Flush writes back every dirty page in this shard and clears their dirty
// flags, then syncs the shared pager.
func (c *PageCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for e := c.lru.Front(); e != nil; e = e.Next() {
		page := e.Value.(*cacheEntry).page
		if !page.Dirty {
			continue
		}
		if err := c.pager.WritePage(page.ID, page.Data()); err != nil {
			return err
		}
		page.Dirty = false
	}
	return c.pager.Flush()
}

// evictIfNeeded removes the least-recently-used page if the cache is at
// capacity, writing it back first if dirty. Must be called with mu held.
func (c *PageCache) evictIfNeeded() error {
	if len(c.entries) < c.capacity {
		return nil
	}
	back := c.lru.Back()
	if back == nil {
		return nil
	}
	victim := back.Value.(*cacheEntry).page
	if victim.Dirty {
		if err := c.pager.WritePage(victim.ID, victim.Data()); err != nil {
			return dberrors.IoWrite(c.pager.Path(), victim.ID*int64(c.pageSize), err)
		}
	}
	c.lru.Remove(back)
	delete(c.entries, victim.ID)
	return nil
}
