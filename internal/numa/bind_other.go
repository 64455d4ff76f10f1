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

//go:build !linux

package numa

import "fmt"

// bindCurrentThread has no implementation outside Linux; sched_setaffinity
// is a Linux-specific syscall. Binding always fails (best-effort, per the
// executor's contract: a failed bind logs and the worker proceeds
// unbound).
func bindCurrentThread(node int) error {
	return fmt.Errorf("numa: thread binding is not supported on this platform")
}
