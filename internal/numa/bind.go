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

import (
	"fmt"
	"runtime"
)

// BindThreadToNode binds the calling goroutine's OS thread to the CPUs of
// node. It calls runtime.LockOSThread itself, because a binding that can
// migrate to a different OS thread on the next scheduler preemption is
// worthless; callers (NumaExecutor workers) must not call
// runtime.UnlockOSThread afterward for the lifetime of the worker.
//
// Binding is best-effort: a non-nil error means the caller should log and
// keep running unbound, never abort.
func BindThreadToNode(node int) error {
	if !Enabled() {
		return fmt.Errorf("numa: thread binding disabled")
	}
	if node < 0 {
		node = 0
	}
	runtime.LockOSThread()
	return bindCurrentThread(node)
}
