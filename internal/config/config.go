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

/*
Package config loads the storage engine's configuration with a clear
precedence: environment variables override a TOML configuration file,
which overrides built-in defaults.

Configuration File Format:
The configuration file uses TOML format for readability and ease of use.

Example configuration file:

	# numadb configuration
	data_dir = "/var/lib/numadb"
	page_size = 8192
	cache_pages = 256
	numa_nodes = 0       # 0 = auto-detect
	threads_per_node = 2
	log_level = "info"
	log_json = false

Environment Variables:
  - NUMADB_DATA_DIR: base directory for catalog, log, and table files
  - NUMADB_PAGE_SIZE: fixed page size in bytes
  - NUMADB_CACHE_PAGES: total page-cache budget across all NUMA shards
  - NUMADB_THREADS_PER_NODE: worker goroutines per NumaExecutor node
  - NUMADB_LOG_LEVEL: log level (debug, info, warn, error)
  - NUMADB_LOG_JSON: enable JSON logging (true/false)
  - NUMADB_CONFIG_FILE: path to configuration file

NUMA topology and allocation are controlled separately by the environment
variables documented in the numa package (MINI_DB_NUMA_NODES,
MINI_DB_ENABLE_NUMA, MINI_DB_NUMA_ALLOC_NODE), since those also need to be
visible to code that constructs a numa.Topology directly in tests without
going through this package.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const (
	DefaultPageSize       = 8192
	DefaultCachePages     = 256
	DefaultThreadsPerNode = 2
)

// GetDefaultDataDir returns the directory used when data_dir is not set by
// any configuration source.
func GetDefaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".numadb", "data")
	}
	return "./numadb-data"
}

// Config holds every setting needed to open a Database and a NumaExecutor.
type Config struct {
	DataDir        string
	PageSize       int
	CachePages     int
	NumaNodes      int // 0 = auto-detect
	ThreadsPerNode int
	LogLevel       string
	LogJSON        bool
}

// DefaultConfig returns the built-in defaults, before any file or
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		DataDir:        GetDefaultDataDir(),
		PageSize:       DefaultPageSize,
		CachePages:     DefaultCachePages,
		NumaNodes:      0,
		ThreadsPerNode: DefaultThreadsPerNode,
		LogLevel:       "info",
		LogJSON:        false,
	}
}

// Manager owns the active Config and notifies subscribers on Reload.
type Manager struct {
	mu       sync.RWMutex
	cfg      *Config
	path     string
	reloadFn []func(*Config)
}

// NewManager returns a Manager holding DefaultConfig.
func NewManager() *Manager {
	return &Manager{cfg: DefaultConfig()}
}

var (
	globalMgr     *Manager
	globalMgrOnce sync.Once
)

// Global returns the process-wide Manager, created on first use.
func Global() *Manager {
	globalMgrOnce.Do(func() { globalMgr = NewManager() })
	return globalMgr
}

// Get returns the currently active Config. Callers must not mutate the
// returned value; call Set or Reload instead.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Set replaces the active Config and notifies reload subscribers.
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	fns := append([]func(*Config){}, m.reloadFn...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn(cfg)
	}
}

// OnReload registers fn to run whenever the Config changes.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadFn = append(m.reloadFn, fn)
}

// Validate checks that a Config's values are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page_size must be positive, got %d", c.PageSize)
	}
	if c.CachePages <= 0 {
		return fmt.Errorf("config: cache_pages must be positive, got %d", c.CachePages)
	}
	if c.NumaNodes < 0 {
		return fmt.Errorf("config: numa_nodes must not be negative, got %d", c.NumaNodes)
	}
	if c.ThreadsPerNode <= 0 {
		return fmt.Errorf("config: threads_per_node must be positive, got %d", c.ThreadsPerNode)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return nil
}

// LoadFromFile parses a TOML file at path into a fresh Config (starting
// from defaults) and, if valid, makes it the active Config.
func (m *Manager) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := parseTOML(string(data), cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.path = path
	m.Set(cfg)
	return nil
}

// LoadFromEnv overlays environment variable overrides onto a copy of the
// active Config and installs that copy through Set, notifying reload
// subscribers. Config values returned earlier by Get are left unchanged.
func (m *Manager) LoadFromEnv() {
	m.mu.Lock()
	cfg := *m.cfg
	m.mu.Unlock()

	if v := os.Getenv("NUMADB_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("NUMADB_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
	if v := os.Getenv("NUMADB_CACHE_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CachePages = n
		}
	}
	if v := os.Getenv("NUMADB_THREADS_PER_NODE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ThreadsPerNode = n
		}
	}
	if v := os.Getenv("NUMADB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("NUMADB_LOG_JSON"); v != "" {
		cfg.LogJSON = strings.EqualFold(v, "true") || v == "1"
	}
	m.Set(&cfg)
}

// FindConfigFile looks for a config file via NUMADB_CONFIG_FILE, then
// ./numadb.toml, returning "" if neither exists.
func FindConfigFile() string {
	if v := os.Getenv("NUMADB_CONFIG_FILE"); v != "" {
		return v
	}
	if _, err := os.Stat("numadb.toml"); err == nil {
		return "numadb.toml"
	}
	return ""
}

// Load applies the full precedence chain: defaults, then a discovered
// config file if any, then environment variables.
func (m *Manager) Load() error {
	m.Set(DefaultConfig())
	if path := FindConfigFile(); path != "" {
		if err := m.LoadFromFile(path); err != nil {
			return err
		}
	}
	m.LoadFromEnv()
	return m.Get().Validate()
}

// Reload re-runs Load, which discovers the config file again through
// FindConfigFile and re-reads the environment. A path passed earlier to
// LoadFromFile is not reused.
func (m *Manager) Reload() error {
	return m.Load()
}

// parseTOML fills cfg from a minimal flat TOML document: one
// key = value pair per line, strings double-quoted, comments starting
// with #. This engine's configuration surface has no tables or arrays, so
// a full TOML library is more machinery than the format needs.
func parseTOML(data string, cfg *Config) error {
	for lineNo, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			return fmt.Errorf("line %d: expected key = value", lineNo+1)
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if idx := strings.Index(value, "#"); idx >= 0 {
			value = strings.TrimSpace(value[:idx])
		}
		value = strings.Trim(value, `"`)
		if err := applyConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("line %d: %w", lineNo+1, err)
		}
	}
	return nil
}

func applyConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "data_dir":
		cfg.DataDir = value
	case "page_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid page_size %q", value)
		}
		cfg.PageSize = n
	case "cache_pages":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid cache_pages %q", value)
		}
		cfg.CachePages = n
	case "numa_nodes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid numa_nodes %q", value)
		}
		cfg.NumaNodes = n
	case "threads_per_node":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid threads_per_node %q", value)
		}
		cfg.ThreadsPerNode = n
	case "log_level":
		cfg.LogLevel = value
	case "log_json":
		cfg.LogJSON = strings.EqualFold(value, "true")
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

// String renders a human-readable summary, omitting nothing sensitive
// since this engine's config carries no secrets.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DataDir=%s PageSize=%d CachePages=%d NumaNodes=%d ThreadsPerNode=%d LogLevel=%s LogJSON=%t}",
		c.DataDir, c.PageSize, c.CachePages, c.NumaNodes, c.ThreadsPerNode, c.LogLevel, c.LogJSON)
}

// ToTOML renders c back into the file format LoadFromFile accepts.
func (c *Config) ToTOML() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "data_dir = %q\n", c.DataDir)
	fmt.Fprintf(&sb, "page_size = %d\n", c.PageSize)
	fmt.Fprintf(&sb, "cache_pages = %d\n", c.CachePages)
	fmt.Fprintf(&sb, "numa_nodes = %d\n", c.NumaNodes)
	fmt.Fprintf(&sb, "threads_per_node = %d\n", c.ThreadsPerNode)
	fmt.Fprintf(&sb, "log_level = %q\n", c.LogLevel)
	fmt.Fprintf(&sb, "log_json = %t\n", c.LogJSON)
	return sb.String()
}

// SaveToFile writes c's TOML representation to path.
func (c *Config) SaveToFile(path string) error {
	return os.WriteFile(path, []byte(c.ToTOML()), 0o644)
}
