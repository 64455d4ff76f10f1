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

// Page is a single cached, fixed-size page. It carries no internal
// structure of its own — no slot array, no header — because the record
// layout living inside a page is the table layer's concern, not this
// layer's. A Page is just PageSize() bytes plus bookkeeping.
type Page struct {
	ID    int64
	Buf   *Buffer
	Dirty bool
}

// Data returns the page's raw bytes.
func (p *Page) Data() []byte { return p.Buf.Data() }

// Node reports which NUMA node backs this page's buffer.
func (p *Page) Node() int { return p.Buf.Node() }
