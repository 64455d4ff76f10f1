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

package numa

import "sync/atomic"

// Allocator hands out byte buffers, nominally on a given NUMA node. There
// is no portable, cgo-free way to steer Go's allocator to a specific NUMA
// node (that requires mbind(2), which is outside the Go runtime's memory
// management), so FallbackAllocator allocates with the ordinary Go heap
// and only tracks which node each allocation was nominally requested for
// — useful for Stats() and for keeping the accounting honest even though
// the bytes aren't physically pinned.
type Allocator interface {
	AllocBytes(size, node int) []byte
	Stats() AllocatorStats
}

// AllocatorStats summarizes allocation activity for diagnostics.
type AllocatorStats struct {
	TotalAllocs int64
	TotalBytes  int64
	PerNode     map[int]int64
}

// FallbackAllocator is the Allocator used on every platform this module
// runs on.
type FallbackAllocator struct {
	totalAllocs atomic.Int64
	totalBytes  atomic.Int64
	perNode     []atomic.Int64
	forcedNode  int
}

// NewAllocator returns a FallbackAllocator tracking nodeCount nodes worth
// of per-node statistics. If NUMA is disabled (MINI_DB_ENABLE_NUMA) and
// MINI_DB_NUMA_ALLOC_NODE names a node, every allocation is forced onto
// that node regardless of what its caller requests, read once here per
// the package's "env read once at construction" contract.
func NewAllocator(nodeCount int) *FallbackAllocator {
	if nodeCount <= 0 {
		nodeCount = 1
	}
	forced := -1
	if !Enabled() {
		forced = ForcedAllocNode()
	}
	return &FallbackAllocator{perNode: make([]atomic.Int64, nodeCount), forcedNode: forced}
}

// AllocBytes returns a zeroed byte slice of size bytes, recording the
// allocation against node (clamped into range), unless construction
// forced every allocation onto a single node.
func (a *FallbackAllocator) AllocBytes(size, node int) []byte {
	if a.forcedNode >= 0 {
		node = a.forcedNode
	}
	a.totalAllocs.Add(1)
	a.totalBytes.Add(int64(size))
	if len(a.perNode) > 0 {
		if node < 0 {
			node = 0
		}
		node %= len(a.perNode)
		a.perNode[node].Add(int64(size))
	}
	return make([]byte, size)
}

// Stats returns a snapshot of allocation counters.
func (a *FallbackAllocator) Stats() AllocatorStats {
	perNode := make(map[int]int64, len(a.perNode))
	for i := range a.perNode {
		perNode[i] = a.perNode[i].Load()
	}
	return AllocatorStats{
		TotalAllocs: a.totalAllocs.Load(),
		TotalBytes:  a.totalBytes.Load(),
		PerNode:     perNode,
	}
}
