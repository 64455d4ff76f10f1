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
	"golang.org/x/sync/errgroup"

	"numadb/internal/numa"
)

// NumaBufferPool shards a single table's pages across one PageCache per
// NUMA node. Every shard shares the same underlying Pager — there is only
// ever one file handle per table — but each shard keeps its own
// independent LRU and capacity, so a hot page on one node never evicts a
// hot page tracked by another.
type NumaBufferPool struct {
	pager    *Pager
	shards   []*PageCache
	selector PageNodeSelector
}

// NewNumaBufferPool builds a buffer pool with one PageCache per node.
// capacity is the total page budget across all shards; every shard gets
// capacity/nodes pages (at least 1), and any remainder is unused. If
// topology reports a single node, the entire capacity goes to shard 0,
// matching single-node (non-NUMA) operation exactly.
func NewNumaBufferPool(pager *Pager, capacity, pageSize int, topology numa.Topology, alloc numa.Allocator) *NumaBufferPool {
	nodes := topology.NodeCount()
	if nodes < 1 {
		nodes = 1
	}
	perNode := capacity
	if nodes > 1 {
		perNode = capacity / nodes
		if perNode < 1 {
			perNode = 1
		}
	}
	shards := make([]*PageCache, nodes)
	for i := 0; i < nodes; i++ {
		shards[i] = NewPageCache(pager, perNode, pageSize, i, alloc)
	}
	return &NumaBufferPool{pager: pager, shards: shards, selector: ModuloSelector{}}
}

// NodeCount reports the number of shards.
func (bp *NumaBufferPool) NodeCount() int { return len(bp.shards) }

// PageSize returns the page size of the backing pager.
func (bp *NumaBufferPool) PageSize() int { return bp.pager.PageSize() }

func (bp *NumaBufferPool) shardFor(pageID int64) *PageCache {
	return bp.shards[bp.NodeForPage(pageID)]
}

// NodeForPage reports which shard (and therefore which NUMA node) owns
// pageID, using the same routing a GetPage/MarkDirty call for that page
// would use. Callers that need to dispatch work to the node owning a page
// before touching the page itself (the NUMA executor) use this directly.
func (bp *NumaBufferPool) NodeForPage(pageID int64) int {
	idx := bp.selector.NodeForPage(pageID, len(bp.shards))
	if idx < 0 || idx >= len(bp.shards) {
		idx = 0
	}
	return idx
}

// GetPage loads a page through the shard it is routed to.
func (bp *NumaBufferPool) GetPage(id int64) (*Page, error) {
	return bp.shardFor(id).GetPage(id)
}

// MarkDirty flags a page dirty in its owning shard.
func (bp *NumaBufferPool) MarkDirty(id int64) {
	bp.shardFor(id).MarkDirty(id)
}

// Close flushes every shard and closes the shared pager.
func (bp *NumaBufferPool) Close() error {
	if err := bp.Flush(); err != nil {
		return err
	}
	return bp.pager.Close()
}

// Flush writes back every shard concurrently. Unlike a simple sequential
// walk, this lets dirty pages on separate NUMA nodes hit their home
// memory and the shared pager's write path in parallel. A failing shard
// does not stop the others; every shard's flush runs to completion and
// the first error is returned.
func (bp *NumaBufferPool) Flush() error {
	var g errgroup.Group
	for _, shard := range bp.shards {
		shard := shard
		g.Go(shard.Flush)
	}
	return g.Wait()
}
