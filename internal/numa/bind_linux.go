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

//go:build linux

package numa

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// bindCurrentThread pins the calling OS thread's scheduling affinity to
// the CPUs belonging to node, via sched_setaffinity(2). The caller must
// have already called runtime.LockOSThread so the affinity sticks to a
// single OS thread for the goroutine's lifetime.
func bindCurrentThread(node int) error {
	cpus := nodeCPUs(node)
	if len(cpus) == 0 {
		return fmt.Errorf("numa: no CPUs known for node %d", node)
	}
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	// Pid 0 means "the calling thread" for sched_setaffinity.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("numa: sched_setaffinity(node %d): %w", node, err)
	}
	return nil
}
