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

package executor

import (
	"errors"
	"sync/atomic"
	"testing"

	"numadb/internal/numa"
)

func TestNumaExecutor_SubmitBeforeStartRunsInline(t *testing.T) {
	exec := NewNumaExecutor(numa.NewFallbackTopology(2), 1)
	var ran atomic.Bool
	f := exec.Submit(0, func() error {
		ran.Store(true)
		return nil
	})
	if err := f.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran.Load() {
		t.Fatalf("expected inline execution before Start")
	}
}

func TestNumaExecutor_SubmitAfterStartRunsOnWorker(t *testing.T) {
	exec := NewNumaExecutor(numa.NewFallbackTopology(2), 2)
	exec.Start()
	defer exec.Stop()

	var counter atomic.Int64
	var futures []*Future
	for i := 0; i < 20; i++ {
		futures = append(futures, exec.Submit(i, func() error {
			counter.Add(1)
			return nil
		}))
	}
	for _, f := range futures {
		if err := f.Wait(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if counter.Load() != 20 {
		t.Fatalf("expected 20 tasks to run, got %d", counter.Load())
	}
}

func TestNumaExecutor_SubmitPropagatesError(t *testing.T) {
	exec := NewNumaExecutor(numa.NewFallbackTopology(1), 1)
	exec.Start()
	defer exec.Stop()

	wantErr := errors.New("boom")
	f := exec.Submit(0, func() error { return wantErr })
	if err := f.Wait(); err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestNumaExecutor_SubmitRecoversPanic(t *testing.T) {
	exec := NewNumaExecutor(numa.NewFallbackTopology(1), 1)
	exec.Start()
	defer exec.Stop()

	f := exec.Submit(0, func() error { panic("kaboom") })
	if err := f.Wait(); err == nil {
		t.Fatalf("expected panic to surface as an error")
	}
}

func TestNumaExecutor_NodeCountMatchesTopology(t *testing.T) {
	exec := NewNumaExecutor(numa.NewFallbackTopology(4), 1)
	if exec.NodeCount() != 4 {
		t.Fatalf("expected 4, got %d", exec.NodeCount())
	}
}
