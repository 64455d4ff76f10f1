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

// PageNodeSelector decides which NUMA shard a page ID is routed to.
type PageNodeSelector interface {
	NodeForPage(pageID int64, nodeCount int) int
}

// ModuloSelector is the default selector: pages are spread across nodes by
// page ID modulo node count, so consecutive pages land on different
// shards.
type ModuloSelector struct{}

// NodeForPage implements PageNodeSelector.
func (ModuloSelector) NodeForPage(pageID int64, nodeCount int) int {
	if nodeCount <= 1 {
		return 0
	}
	n := int(pageID % int64(nodeCount))
	if n < 0 {
		n += nodeCount
	}
	return n
}
