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
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
)

// Topology reports how many NUMA nodes are available and estimates which
// one the calling goroutine is currently running on.
type Topology interface {
	NodeCount() int
	CurrentNode() int
}

// FallbackTopology is the Topology used everywhere this module runs: a
// fixed node count supplied by the caller, env override, or sysfs
// detection, with CurrentNode() estimated by round-robin since Go has no
// portable, cgo-free equivalent of sched_getcpu().
type FallbackTopology struct {
	nodes  int
	cursor atomic.Uint64
}

// NewFallbackTopology returns a topology with exactly nodes nodes (clamped
// to at least 1).
func NewFallbackTopology(nodes int) *FallbackTopology {
	if nodes <= 0 {
		nodes = 1
	}
	return &FallbackTopology{nodes: nodes}
}

// NodeCount returns the configured node count.
func (t *FallbackTopology) NodeCount() int {
	return t.nodes
}

// CurrentNode round-robins across the configured nodes. Callers that need
// page-owning-node semantics should use a PageNodeSelector keyed by page
// id instead; CurrentNode is only an approximation of "nearby" for code
// with no natural page affinity. The NUMA executor does not call it:
// every Submit names its node explicitly.
func (t *FallbackTopology) CurrentNode() int {
	if t.nodes <= 1 {
		return 0
	}
	return int(t.cursor.Add(1) % uint64(t.nodes))
}

// NewTopology resolves the effective node count from, in priority order:
// an explicit preferredNodes argument, the MINI_DB_NUMA_NODES environment
// variable, sysfs node detection (only attempted when NUMA is enabled),
// and finally a single-node fallback. When NUMA is disabled via
// MINI_DB_ENABLE_NUMA, the result always collapses to a single node.
func NewTopology(preferredNodes int) Topology {
	if !Enabled() {
		return NewFallbackTopology(1)
	}
	nodes := preferredNodes
	if nodes <= 0 {
		nodes = EnvNodes()
	}
	if nodes <= 0 {
		nodes = detectSysfsNodeCount()
	}
	if nodes <= 0 {
		nodes = 1
	}
	return NewFallbackTopology(nodes)
}

var sysfsNodeDir = "/sys/devices/system/node"

var nodeDirPattern = regexp.MustCompile(`^node(\d+)$`)

// detectSysfsNodeCount counts nodeN directories under
// /sys/devices/system/node. Returns 0 (meaning "unknown") on any platform
// where that path doesn't exist, which is the common case off real NUMA
// hardware.
func detectSysfsNodeCount() int {
	entries, err := os.ReadDir(sysfsNodeDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if nodeDirPattern.MatchString(entry.Name()) {
			count++
		}
	}
	return count
}

// nodeCPUs returns the CPU ids bound to a given NUMA node by parsing its
// sysfs cpulist file (e.g. "0-3,8" as used by the kernel's cpulist
// formatter). Returns nil if the node or its cpulist cannot be read.
func nodeCPUs(node int) []int {
	path := filepath.Join(sysfsNodeDir, "node"+strconv.Itoa(node), "cpulist")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return parseCPUList(strings.TrimSpace(string(data)))
}

// parseCPUList parses a kernel cpulist string such as "0-3,8,10-11" into
// individual CPU ids.
func parseCPUList(input string) []int {
	var cpus []int
	if input == "" {
		return cpus
	}
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if dash := strings.IndexByte(part, '-'); dash >= 0 {
			lo, err1 := strconv.Atoi(part[:dash])
			hi, err2 := strconv.Atoi(part[dash+1:])
			if err1 != nil || err2 != nil || hi < lo {
				continue
			}
			for c := lo; c <= hi; c++ {
				cpus = append(cpus, c)
			}
		} else {
			c, err := strconv.Atoi(part)
			if err == nil {
				cpus = append(cpus, c)
			}
		}
	}
	return cpus
}
