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
	"bytes"
	"path/filepath"
	"testing"

	"numadb/internal/numa"
)

func TestPageCache_EvictsLRUAndWritesBackDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.tbl")
	pager, err := OpenPager(path, 32)
	if err != nil {
		t.Fatalf("OpenPager: %v", err)
	}
	defer pager.Close()

	alloc := numa.NewAllocator(1)
	cache := NewPageCache(pager, 2, 32, 0, alloc)

	p0, _ := cache.GetPage(0)
	want := make([]byte, 32)
	copy(want, []byte("page-zero-dirty-content"))
	copy(p0.Data(), want)
	cache.MarkDirty(0)

	if _, err := cache.GetPage(1); err != nil {
		t.Fatalf("GetPage(1): %v", err)
	}
	// Capacity 2, both 0 and 1 resident. Loading page 2 must evict page 0
	// (least recently used) and write its dirty contents back first.
	if _, err := cache.GetPage(2); err != nil {
		t.Fatalf("GetPage(2): %v", err)
	}

	onDisk, err := pager.ReadPage(0)
	if err != nil {
		t.Fatalf("ReadPage(0): %v", err)
	}
	if !bytes.Equal(onDisk, want) {
		t.Fatalf("expected evicted dirty page to be written back, got %q", onDisk)
	}
}

func TestPageCache_HitMovesToFront(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.tbl")
	pager, err := OpenPager(path, 16)
	if err != nil {
		t.Fatalf("OpenPager: %v", err)
	}
	defer pager.Close()

	alloc := numa.NewAllocator(1)
	cache := NewPageCache(pager, 2, 16, 0, alloc)

	cache.GetPage(0)
	cache.GetPage(1)
	// Touch 0 again so it's now more recently used than 1.
	cache.GetPage(0)
	// Loading page 2 should evict 1, not 0.
	cache.GetPage(2)

	if _, ok := cache.entries[0]; !ok {
		t.Fatalf("expected page 0 to remain cached after being touched")
	}
	if _, ok := cache.entries[1]; ok {
		t.Fatalf("expected page 1 to have been evicted")
	}
}

func TestPageCache_FlushClearsDirtyFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.tbl")
	pager, err := OpenPager(path, 16)
	if err != nil {
		t.Fatalf("OpenPager: %v", err)
	}
	defer pager.Close()

	alloc := numa.NewAllocator(1)
	cache := NewPageCache(pager, 4, 16, 0, alloc)
	page, _ := cache.GetPage(0)
	copy(page.Data(), []byte("0123456789abcdef"))
	cache.MarkDirty(0)

	if err := cache.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if page.Dirty {
		t.Fatalf("expected Flush to clear dirty flag")
	}
}
